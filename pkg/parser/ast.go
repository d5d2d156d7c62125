package parser

// Statement represents a SQL statement.
type Statement interface {
	stmtNode()
}

// Expr represents an expression in SQL.
type Expr interface {
	exprNode()
}

// TableRef represents a table reference in FROM clause.
type TableRef interface {
	tableRefNode()
}

// ---------- Statement Types ----------

// SelectStmt represents a complete SELECT statement with optional WITH clause.
type SelectStmt struct {
	Pos  Position
	With *WithClause
	Body *SelectBody
}

func (*SelectStmt) stmtNode() {}

// WithClause represents a WITH clause with CTEs.
type WithClause struct {
	Recursive bool
	CTEs      []*CTE
}

// CTE represents a Common Table Expression.
type CTE struct {
	Name string
	// Columns is the optional column list: name(a, b) AS (...).
	Columns []string
	Select  *SelectStmt
}

// SelectBody represents the body of a SELECT with possible set operations.
type SelectBody struct {
	Left   *SelectCore
	Op     SetOpType   // UNION, INTERSECT, EXCEPT, or empty
	All    bool        // UNION ALL
	ByName bool        // UNION BY NAME
	Right  *SelectBody // For chained set operations
}

// SetOpType represents the type of set operation.
type SetOpType string

// SetOpType constants for set operations in queries.
const (
	SetOpNone      SetOpType = ""
	SetOpUnion     SetOpType = "UNION"
	SetOpUnionAll  SetOpType = "UNION ALL"
	SetOpIntersect SetOpType = "INTERSECT"
	SetOpExcept    SetOpType = "EXCEPT"
)

// SelectCore represents a single SELECT, a VALUES list, or a parenthesized query.
type SelectCore struct {
	Distinct   bool
	DistinctOn []Expr
	Columns    []SelectItem
	From       *FromClause
	Where      Expr
	GroupBy    []Expr
	GroupByAll bool
	Having     Expr
	Windows    []WindowDef
	Qualify    Expr
	OrderBy    []OrderByItem
	OrderByAll bool
	Limit      Expr
	Offset     Expr
	Fetch      *FetchClause

	// Values holds the rows of a VALUES list.
	Values [][]Expr
	// Subquery is set when the core is a parenthesized query.
	Subquery *SelectStmt
}

// SelectItem represents an item in the SELECT list.
type SelectItem struct {
	Star      bool   // SELECT *
	TableStar string // SELECT t.*
	Expr      Expr
	Alias     string
}

// OrderByItem represents an item in ORDER BY.
type OrderByItem struct {
	Expr       Expr
	Desc       bool
	NullsFirst *bool
}

// WindowDef is a named window from the WINDOW clause.
type WindowDef struct {
	Name string
	Spec *WindowSpec
}

// FetchClause represents FETCH {FIRST|NEXT} n {ROW|ROWS} {ONLY|WITH TIES}.
type FetchClause struct {
	Count    Expr
	Percent  bool
	WithTies bool
}

// ---------- Table References ----------

// FromClause represents the FROM clause.
type FromClause struct {
	Source TableRef
	Joins  []*Join
}

// JoinType represents the type of join.
type JoinType string

// JoinType constants.
const (
	JoinInner      JoinType = "INNER"
	JoinLeft       JoinType = "LEFT"
	JoinRight      JoinType = "RIGHT"
	JoinFull       JoinType = "FULL"
	JoinCross      JoinType = "CROSS"
	JoinComma      JoinType = ","
	JoinSemi       JoinType = "SEMI"
	JoinAnti       JoinType = "ANTI"
	JoinAsOf       JoinType = "ASOF"
	JoinPositional JoinType = "POSITIONAL"
)

// Join represents a JOIN clause.
type Join struct {
	Type      JoinType
	Natural   bool
	Right     TableRef
	Condition Expr
	Using     []string
}

// TableName represents a table reference by name.
type TableName struct {
	Catalog string
	Schema  string
	Name    string
	Alias   string
	Columns []string
}

func (*TableName) tableRefNode() {}

// DerivedTable represents a subquery in FROM clause.
type DerivedTable struct {
	Select  *SelectStmt
	Alias   string
	Columns []string
}

func (*DerivedTable) tableRefNode() {}

// LateralTable represents a LATERAL subquery.
type LateralTable struct {
	Select  *SelectStmt
	Alias   string
	Columns []string
}

func (*LateralTable) tableRefNode() {}

// TableFunction represents a function call used as a table: generate_series(1, 10) AS g(n).
type TableFunction struct {
	Func    *FuncCall
	Lateral bool
	Alias   string
	Columns []string
}

func (*TableFunction) tableRefNode() {}

// ---------- Expression Types ----------

// ColumnRef represents a column reference (possibly qualified).
type ColumnRef struct {
	Table  string // optional table/alias qualifier
	Column string
}

func (*ColumnRef) exprNode() {}

// LiteralType represents the type of a literal.
type LiteralType int

// LiteralType constants for SQL literal value types.
const (
	LiteralNumber LiteralType = iota
	LiteralString
	LiteralBool
	LiteralNull
	LiteralTyped // DATE '2024-01-01', INTERVAL '1 day'
	LiteralParam
)

// Literal represents a literal value.
type Literal struct {
	Type     LiteralType
	TypeName string // for LiteralTyped
	Value    string
}

func (*Literal) exprNode() {}

// BinaryExpr represents a binary expression.
type BinaryExpr struct {
	Left  Expr
	Op    Token
	Right Expr
}

func (*BinaryExpr) exprNode() {}

// UnaryExpr represents a unary expression.
type UnaryExpr struct {
	Op   TokenType
	Expr Expr
}

func (*UnaryExpr) exprNode() {}

// FuncCall represents a function call.
type FuncCall struct {
	Name        string
	Distinct    bool
	Star        bool
	Args        []Expr
	OrderBy     []OrderByItem // string_agg(x, ',' ORDER BY y)
	WithinGroup []OrderByItem
	Filter      Expr
	Window      *WindowSpec
}

func (*FuncCall) exprNode() {}

// CaseExpr represents a CASE expression.
type CaseExpr struct {
	Operand Expr // optional, for simple CASE
	Whens   []WhenClause
	Else    Expr
}

func (*CaseExpr) exprNode() {}

// WhenClause represents a WHEN clause in CASE.
type WhenClause struct {
	Condition Expr
	Result    Expr
}

// CastExpr represents CAST(expr AS type) and expr::type.
type CastExpr struct {
	Expr     Expr
	TypeName string
	Try      bool
}

func (*CastExpr) exprNode() {}

// InExpr represents an IN expression.
type InExpr struct {
	Expr   Expr
	Not    bool
	Values []Expr
	Query  *SelectStmt
}

func (*InExpr) exprNode() {}

// BetweenExpr represents a BETWEEN expression.
type BetweenExpr struct {
	Expr Expr
	Not  bool
	Low  Expr
	High Expr
}

func (*BetweenExpr) exprNode() {}

// LikeExpr represents a LIKE or ILIKE expression.
type LikeExpr struct {
	Expr    Expr
	Not     bool
	Op      TokenType
	Pattern Expr
}

func (*LikeExpr) exprNode() {}

// IsNullExpr represents IS [NOT] NULL.
type IsNullExpr struct {
	Expr Expr
	Not  bool
}

func (*IsNullExpr) exprNode() {}

// IsBoolExpr represents IS [NOT] TRUE/FALSE.
type IsBoolExpr struct {
	Expr  Expr
	Not   bool
	Value bool
}

func (*IsBoolExpr) exprNode() {}

// IsDistinctExpr represents IS [NOT] DISTINCT FROM.
type IsDistinctExpr struct {
	Left  Expr
	Not   bool
	Right Expr
}

func (*IsDistinctExpr) exprNode() {}

// ExistsExpr represents an EXISTS expression.
type ExistsExpr struct {
	Not    bool
	Select *SelectStmt
}

func (*ExistsExpr) exprNode() {}

// SubqueryExpr represents a scalar subquery.
type SubqueryExpr struct {
	Select *SelectStmt
}

func (*SubqueryExpr) exprNode() {}

// ParenExpr represents a parenthesized expression.
type ParenExpr struct {
	Expr Expr
}

func (*ParenExpr) exprNode() {}

// ListExpr represents a parenthesized list: (a, b, c).
type ListExpr struct {
	Items []Expr
}

func (*ListExpr) exprNode() {}

// ArrayExpr represents an array literal: [1, 2] or ARRAY[1, 2].
type ArrayExpr struct {
	Elements []Expr
}

func (*ArrayExpr) exprNode() {}

// StructExpr represents a struct literal: {'a': 1}.
type StructExpr struct {
	Fields []Expr
}

func (*StructExpr) exprNode() {}

// SubscriptExpr represents expr[index] or expr[lower:upper].
type SubscriptExpr struct {
	Expr  Expr
	Index Expr
	Upper Expr
	Slice bool
}

func (*SubscriptExpr) exprNode() {}

// FieldExpr represents field access on a non-identifier expression: (expr).field.
type FieldExpr struct {
	Expr  Expr
	Field string
}

func (*FieldExpr) exprNode() {}

// StarExpr represents * or table.* inside an expression.
type StarExpr struct {
	Table string
}

func (*StarExpr) exprNode() {}

// ---------- Window Types ----------

// WindowSpec represents a window specification.
type WindowSpec struct {
	Name        string // named window reference
	PartitionBy []Expr
	OrderBy     []OrderByItem
	Frame       *FrameSpec
}

// FrameType represents the type of window frame.
type FrameType string

// FrameType constants.
const (
	FrameRows   FrameType = "ROWS"
	FrameRange  FrameType = "RANGE"
	FrameGroups FrameType = "GROUPS"
)

// FrameSpec represents a window frame specification.
type FrameSpec struct {
	Type  FrameType
	Start *FrameBound
	End   *FrameBound
}

// FrameBoundType represents the type of frame bound.
type FrameBoundType string

// FrameBoundType constants.
const (
	FrameUnboundedPreceding FrameBoundType = "UNBOUNDED PRECEDING"
	FrameUnboundedFollowing FrameBoundType = "UNBOUNDED FOLLOWING"
	FrameCurrentRow         FrameBoundType = "CURRENT ROW"
	FrameExprPreceding      FrameBoundType = "PRECEDING"
	FrameExprFollowing      FrameBoundType = "FOLLOWING"
)

// FrameBound represents a frame bound.
type FrameBound struct {
	Type   FrameBoundType
	Offset Expr
}
