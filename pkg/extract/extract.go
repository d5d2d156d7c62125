// Package extract derives the column names a compiled query projects.
//
// Only names that can be read off the query text are returned: plain column
// references and aliases. Stars and unaliased expressions are skipped because
// naming them requires running the query.
package extract

import (
	"fmt"

	"github.com/leapstack-labs/leapschema/pkg/parser"
)

// Extract returns the ordered, de-duplicated column names projected by sql.
//
// sql may hold several ';'-separated statements; only SELECT-shaped ones
// contribute. For each statement the final projection comes first, followed
// by the projection of every CTE in declaration order (recursively). For set
// operations the left-most SELECT names the output.
//
// Extract never panics. On failure it returns no names and a *parser.ParseError.
func Extract(sql string) (names []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			names = nil
			err = &parser.ParseError{Message: fmt.Sprintf("internal parser failure: %v", r)}
		}
	}()

	stmts, err := parser.ParseScript(sql)
	if err != nil {
		return nil, err
	}

	c := &collector{seen: make(map[string]struct{})}
	for _, stmt := range stmts {
		c.statement(stmt)
	}
	return c.names, nil
}

type collector struct {
	names []string
	seen  map[string]struct{}
}

func (c *collector) add(name string) {
	if name == "" {
		return
	}
	if _, ok := c.seen[name]; ok {
		return
	}
	c.seen[name] = struct{}{}
	c.names = append(c.names, name)
}

// statement emits the projection of stmt followed by its CTEs.
func (c *collector) statement(stmt *parser.SelectStmt) {
	if stmt == nil {
		return
	}
	nested := c.projection(stmt.Body)
	c.ctes(stmt)
	for _, n := range nested {
		c.ctes(n)
	}
}

// ctes emits the projection of each CTE of stmt in declaration order.
// An explicit CTE column list names the CTE's columns.
func (c *collector) ctes(stmt *parser.SelectStmt) {
	if stmt == nil || stmt.With == nil {
		return
	}
	for _, cte := range stmt.With.CTEs {
		if len(cte.Columns) == 0 {
			c.statement(cte.Select)
			continue
		}
		for _, col := range cte.Columns {
			c.add(col)
		}
		c.ctes(cte.Select)
	}
}

// projection emits the output names of body and returns any parenthesized
// statements whose CTEs still need visiting.
func (c *collector) projection(body *parser.SelectBody) []*parser.SelectStmt {
	if body == nil || body.Left == nil {
		return nil
	}
	core := body.Left

	if sub := core.Subquery; sub != nil {
		nested := c.projection(sub.Body)
		return append([]*parser.SelectStmt{sub}, nested...)
	}

	for _, item := range core.Columns {
		c.add(itemName(item))
	}
	return nil
}

// itemName returns the name a select item projects, or "" when it cannot be
// named from the text alone.
func itemName(item parser.SelectItem) string {
	if item.Star || item.TableStar != "" {
		return ""
	}
	if item.Alias != "" {
		return item.Alias
	}
	if ref, ok := item.Expr.(*parser.ColumnRef); ok {
		return ref.Column
	}
	return ""
}
