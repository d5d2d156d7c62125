package parser

import "strings"

// FROM clause parsing: table references, derived tables, table functions, JOINs.
//
// Grammar:
//
//	from_clause   → table_ref (join)*
//	table_ref     → table_name | table_func | derived_table | lateral_table | STRING
//	table_name    → [catalog "."] [schema "."] identifier [alias]
//	table_func    → name "(" args ")" [alias]
//	derived_table → "(" statement ")" [alias]
//	lateral_table → LATERAL ("(" statement ")" | table_func) [alias]
//	alias         → [AS] identifier ["(" name_list ")"]
//	join          → [NATURAL] join_type JOIN table_ref [ON expr | USING "(" name_list ")"] | "," table_ref
//	join_type     → [INNER] | LEFT [OUTER] | RIGHT [OUTER] | FULL [OUTER] | CROSS
//	              | [LEFT] SEMI | [LEFT] ANTI | ASOF [LEFT] | POSITIONAL

// parseFromClause parses the FROM clause.
func (p *Parser) parseFromClause() *FromClause {
	from := &FromClause{}
	from.Source = p.parseTableRef()

	for !p.failed() {
		join := p.parseJoin()
		if join == nil {
			break
		}
		from.Joins = append(from.Joins, join)
	}

	return from
}

// parseTableRef parses a table reference.
func (p *Parser) parseTableRef() TableRef {
	if !p.enter() {
		return &TableName{}
	}
	defer p.leave()

	if p.match(TOKEN_LATERAL) {
		if p.check(TOKEN_LPAREN) {
			return p.parseLateralTable()
		}
		ref := p.parseTableName()
		if fn, ok := ref.(*TableFunction); ok {
			fn.Lateral = true
		}
		return ref
	}

	if p.check(TOKEN_LPAREN) {
		if p.isParenQuery() {
			return p.parseDerivedTable()
		}
		// Parenthesized join tree: FROM (a JOIN b ON ...)
		p.nextToken()
		from := p.parseFromClause()
		p.expect(TOKEN_RPAREN)
		derived := &DerivedTable{Select: &SelectStmt{Body: &SelectBody{Left: &SelectCore{
			Columns: []SelectItem{{Star: true}},
			From:    from,
		}}}}
		derived.Alias, derived.Columns = p.parseTableAlias()
		return derived
	}

	// DuckDB file scans: FROM 'data.parquet'
	if p.check(TOKEN_STRING) {
		table := &TableName{Name: p.token.Literal}
		p.nextToken()
		table.Alias, table.Columns = p.parseTableAlias()
		return table
	}

	return p.parseTableName()
}

// parseTableName parses a table name with optional schema/catalog, or a
// table function call.
func (p *Parser) parseTableName() TableRef {
	table := &TableName{}

	if !isIdentLike(p.token) && !p.check(TOKEN_VALUES) {
		p.addError(ErrExpectedTableName)
		return table
	}

	// Parse potentially qualified name: catalog.schema.table
	parts := []string{p.token.Literal}
	p.nextToken()

	for p.check(TOKEN_DOT) && (isIdentLike(p.peek) || p.peek.Type.IsKeyword()) {
		p.nextToken()
		parts = append(parts, p.token.Literal)
		p.nextToken()
	}

	if p.check(TOKEN_LPAREN) {
		fn := &TableFunction{Func: p.parseFuncCall(strings.Join(parts, "."))}
		p.skipWithOrdinality()
		fn.Alias, fn.Columns = p.parseTableAlias()
		return fn
	}

	switch len(parts) {
	case 1:
		table.Name = parts[0]
	case 2:
		table.Schema = parts[0]
		table.Name = parts[1]
	default:
		n := len(parts)
		table.Catalog = parts[n-3]
		table.Schema = parts[n-2]
		table.Name = parts[n-1]
	}

	table.Alias, table.Columns = p.parseTableAlias()

	return table
}

// skipWithOrdinality consumes WITH ORDINALITY after a table function.
func (p *Parser) skipWithOrdinality() {
	if p.check(TOKEN_WITH) && isWord(p.peek, "ORDINALITY") {
		p.nextToken()
		p.nextToken()
	}
}

// parseTableAlias parses an optional alias with optional column list.
func (p *Parser) parseTableAlias() (string, []string) {
	var alias string
	switch {
	case p.match(TOKEN_AS):
		alias = p.parseName("alias")
	case p.isAliasCandidate() && !p.checkWord("TABLESAMPLE"):
		alias = p.token.Literal
		p.nextToken()
	default:
		return "", nil
	}

	var cols []string
	if p.check(TOKEN_LPAREN) {
		cols = p.parseNameList()
	}
	return alias, cols
}

// parseDerivedTable parses a derived table (subquery in FROM clause).
func (p *Parser) parseDerivedTable() *DerivedTable {
	p.expect(TOKEN_LPAREN)
	derived := &DerivedTable{}
	derived.Select = p.parseStatement()
	p.expect(TOKEN_RPAREN)

	derived.Alias, derived.Columns = p.parseTableAlias()

	return derived
}

// parseLateralTable parses a LATERAL subquery.
func (p *Parser) parseLateralTable() *LateralTable {
	p.expect(TOKEN_LPAREN)
	lateral := &LateralTable{}
	lateral.Select = p.parseStatement()
	p.expect(TOKEN_RPAREN)

	lateral.Alias, lateral.Columns = p.parseTableAlias()

	return lateral
}

// parseJoin parses a JOIN clause. Returns nil when no join follows.
func (p *Parser) parseJoin() *Join {
	join := &Join{}

	// Comma join (implicit cross join)
	if p.match(TOKEN_COMMA) {
		join.Type = JoinComma
		join.Right = p.parseTableRef()
		return join
	}

	if p.match(TOKEN_NATURAL) {
		join.Natural = true
	}

	switch {
	case p.match(TOKEN_JOIN):
		join.Type = JoinInner
		return p.finishJoin(join)
	case p.match(TOKEN_INNER):
		join.Type = JoinInner
	case p.match(TOKEN_LEFT):
		join.Type = JoinLeft
		p.match(TOKEN_OUTER)
		switch {
		case p.matchWord("SEMI"):
			join.Type = JoinSemi
		case p.matchWord("ANTI"):
			join.Type = JoinAnti
		}
	case p.match(TOKEN_RIGHT):
		join.Type = JoinRight
		p.match(TOKEN_OUTER)
	case p.match(TOKEN_FULL):
		join.Type = JoinFull
		p.match(TOKEN_OUTER)
	case p.match(TOKEN_CROSS):
		join.Type = JoinCross
	case p.checkWord("SEMI") && p.checkPeek(TOKEN_JOIN):
		p.nextToken()
		join.Type = JoinSemi
	case p.checkWord("ANTI") && p.checkPeek(TOKEN_JOIN):
		p.nextToken()
		join.Type = JoinAnti
	case p.checkWord("ASOF") && (p.checkPeek(TOKEN_JOIN) || p.checkPeek(TOKEN_LEFT)):
		p.nextToken()
		join.Type = JoinAsOf
		if p.match(TOKEN_LEFT) {
			p.match(TOKEN_OUTER)
		}
	case p.checkWord("POSITIONAL") && p.checkPeek(TOKEN_JOIN):
		p.nextToken()
		join.Type = JoinPositional
	default:
		if join.Natural {
			p.addError("expected JOIN after NATURAL")
		}
		return nil
	}

	if !p.expect(TOKEN_JOIN) {
		return nil
	}

	return p.finishJoin(join)
}

// finishJoin parses the right side and condition of a join.
func (p *Parser) finishJoin(join *Join) *Join {
	join.Right = p.parseTableRef()

	switch {
	case join.Natural || join.Type == JoinCross || join.Type == JoinPositional:
	case p.match(TOKEN_ON):
		join.Condition = p.parseExpression()
	case p.match(TOKEN_USING):
		join.Using = p.parseNameList()
	}

	return join
}
