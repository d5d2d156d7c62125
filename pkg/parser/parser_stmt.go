package parser

// Statement parsing: WITH clause, CTEs, SELECT body, SELECT list, clauses, ORDER BY.
//
// Grammar:
//
//	statement     → [WITH [RECURSIVE] cte_list] select_body
//	cte_list      → cte ("," cte)*
//	cte           → identifier ["(" name_list ")"] AS [[NOT] MATERIALIZED] "(" statement ")"
//	select_body   → select_core [(UNION|INTERSECT|EXCEPT) [ALL|DISTINCT] [BY NAME] select_body]
//	select_list   → select_item ("," select_item)*
//	select_item   → "*" [star_modifier] | table "." "*" [star_modifier] | expr [[AS] alias]
//	star_modifier → (EXCLUDE|EXCEPT|REPLACE|RENAME) ("(" ... ")" | identifier)
//	order_list    → order_item ("," order_item)*
//	order_item    → expr [ASC|DESC] [NULLS FIRST|LAST]

// parseStatement parses a complete SQL query statement.
func (p *Parser) parseStatement() *SelectStmt {
	stmt := &SelectStmt{Pos: p.token.Pos}
	if !p.enter() {
		return stmt
	}
	defer p.leave()

	if p.check(TOKEN_WITH) {
		stmt.With = p.parseWithClause()
	}

	stmt.Body = p.parseSelectBody()

	return stmt
}

// parseWithClause parses a WITH clause with CTEs.
func (p *Parser) parseWithClause() *WithClause {
	p.expect(TOKEN_WITH)
	with := &WithClause{}

	if p.match(TOKEN_RECURSIVE) {
		with.Recursive = true
	}

	for !p.failed() {
		with.CTEs = append(with.CTEs, p.parseCTE())

		if !p.match(TOKEN_COMMA) {
			break
		}
	}

	return with
}

// parseCTE parses a single CTE.
func (p *Parser) parseCTE() *CTE {
	cte := &CTE{}

	if !isIdentLike(p.token) {
		p.addError("expected CTE name")
		return cte
	}
	cte.Name = p.token.Literal
	p.nextToken()

	if p.check(TOKEN_LPAREN) {
		cte.Columns = p.parseNameList()
	}

	p.expect(TOKEN_AS)

	// [NOT] MATERIALIZED
	if p.check(TOKEN_NOT) && isWord(p.peek, "MATERIALIZED") {
		p.nextToken()
	}
	p.matchWord("MATERIALIZED")

	p.expect(TOKEN_LPAREN)
	cte.Select = p.parseStatement()
	p.expect(TOKEN_RPAREN)

	return cte
}

// parseSelectBody parses a SELECT body with possible set operations.
func (p *Parser) parseSelectBody() *SelectBody {
	body := &SelectBody{}
	body.Left = p.parseSelectCore()

	if p.failed() {
		return body
	}

	if p.check(TOKEN_UNION) || p.check(TOKEN_INTERSECT) || p.check(TOKEN_EXCEPT) {
		switch p.token.Type {
		case TOKEN_UNION:
			p.nextToken()
			if p.match(TOKEN_ALL) {
				body.Op = SetOpUnionAll
				body.All = true
			} else {
				body.Op = SetOpUnion
				p.match(TOKEN_DISTINCT)
			}
		case TOKEN_INTERSECT:
			p.nextToken()
			body.Op = SetOpIntersect
			if p.match(TOKEN_ALL) {
				body.All = true
			} else {
				p.match(TOKEN_DISTINCT)
			}
		case TOKEN_EXCEPT:
			p.nextToken()
			body.Op = SetOpExcept
			if p.match(TOKEN_ALL) {
				body.All = true
			} else {
				p.match(TOKEN_DISTINCT)
			}
		}

		// BY NAME
		if p.check(TOKEN_BY) && isWord(p.peek, "NAME") {
			p.nextToken()
			p.nextToken()
			body.ByName = true
		}

		body.Right = p.parseSelectBody()
	}

	return body
}

// parseSelectCore parses a single SELECT, a VALUES list, or a parenthesized query.
func (p *Parser) parseSelectCore() *SelectCore {
	core := &SelectCore{}

	switch {
	case p.check(TOKEN_LPAREN):
		p.nextToken()
		core.Subquery = p.parseStatement()
		p.expect(TOKEN_RPAREN)
		p.parseClauses(core)
		return core

	case p.check(TOKEN_VALUES):
		p.nextToken()
		core.Values = p.parseValuesRows()
		p.parseClauses(core)
		return core
	}

	p.expect(TOKEN_SELECT)
	if p.failed() {
		return core
	}

	// DISTINCT [ON (...)] / ALL
	if p.match(TOKEN_DISTINCT) {
		core.Distinct = true
		if p.match(TOKEN_ON) {
			p.expect(TOKEN_LPAREN)
			core.DistinctOn = p.parseExpressionList()
			p.expect(TOKEN_RPAREN)
		}
	} else {
		p.match(TOKEN_ALL)
	}

	core.Columns = p.parseSelectList()

	if p.match(TOKEN_FROM) {
		core.From = p.parseFromClause()
	}

	p.parseClauses(core)

	return core
}

// parseValuesRows parses the rows of a VALUES list.
func (p *Parser) parseValuesRows() [][]Expr {
	var rows [][]Expr
	for !p.failed() {
		p.expect(TOKEN_LPAREN)
		var row []Expr
		if !p.check(TOKEN_RPAREN) {
			row = p.parseExpressionList()
		}
		p.expect(TOKEN_RPAREN)
		rows = append(rows, row)

		if !p.match(TOKEN_COMMA) {
			break
		}
	}
	return rows
}

// parseClauses parses the optional trailing clauses of a SELECT core in any order.
func (p *Parser) parseClauses(core *SelectCore) {
	for !p.failed() {
		switch {
		case p.match(TOKEN_WHERE):
			core.Where = p.parseExpression()

		case p.check(TOKEN_GROUP) && p.checkPeek(TOKEN_BY):
			p.nextToken()
			p.nextToken()
			if p.match(TOKEN_ALL) {
				core.GroupByAll = true
			} else {
				core.GroupBy = p.parseGroupingList()
			}

		case p.match(TOKEN_HAVING):
			core.Having = p.parseExpression()

		case p.match(TOKEN_WINDOW):
			core.Windows = p.parseWindowDefs()

		case p.match(TOKEN_QUALIFY):
			core.Qualify = p.parseExpression()

		case p.check(TOKEN_ORDER) && p.checkPeek(TOKEN_BY):
			p.nextToken()
			p.nextToken()
			if p.match(TOKEN_ALL) {
				core.OrderByAll = true
				if !p.match(TOKEN_ASC) {
					p.match(TOKEN_DESC)
				}
			} else {
				core.OrderBy = p.parseOrderByList()
			}

		case p.match(TOKEN_LIMIT):
			if p.match(TOKEN_ALL) {
				continue
			}
			core.Limit = p.parseExpression()
			// LIMIT offset, count
			if p.match(TOKEN_COMMA) {
				core.Offset = core.Limit
				core.Limit = p.parseExpression()
			}

		case p.match(TOKEN_OFFSET):
			core.Offset = p.parseExpression()
			if !p.match(TOKEN_ROWS) {
				p.match(TOKEN_ROW)
			}

		case p.match(TOKEN_FETCH):
			core.Fetch = p.parseFetch()

		default:
			return
		}
	}
}

// parseGroupingList parses a GROUP BY list including GROUPING SETS.
func (p *Parser) parseGroupingList() []Expr {
	var exprs []Expr
	for !p.failed() {
		if p.checkWord("GROUPING") && isWord(p.peek, "SETS") {
			p.nextToken()
			p.nextToken()
			exprs = append(exprs, p.parseParenExpr())
		} else {
			exprs = append(exprs, p.parseExpression())
		}

		if !p.match(TOKEN_COMMA) {
			break
		}
	}
	return exprs
}

// parseFetch parses the remainder of FETCH {FIRST|NEXT} [n [PERCENT]] {ROW|ROWS} {ONLY|WITH TIES}.
func (p *Parser) parseFetch() *FetchClause {
	fetch := &FetchClause{}
	if !p.match(TOKEN_FIRST) && !p.matchWord("NEXT") {
		p.addError("expected FIRST or NEXT after FETCH")
		return fetch
	}
	if !p.check(TOKEN_ROW) && !p.check(TOKEN_ROWS) {
		fetch.Count = p.parseExpression()
		fetch.Percent = p.matchWord("PERCENT")
	}
	if !p.match(TOKEN_ROWS) && !p.match(TOKEN_ROW) {
		p.addError("expected ROW or ROWS in FETCH clause")
		return fetch
	}
	switch {
	case p.matchWord("ONLY"):
	case p.check(TOKEN_WITH) && isWord(p.peek, "TIES"):
		p.nextToken()
		p.nextToken()
		fetch.WithTies = true
	default:
		p.addError("expected ONLY or WITH TIES in FETCH clause")
	}
	return fetch
}

// parseWindowDefs parses name AS (spec) ("," name AS (spec))*.
func (p *Parser) parseWindowDefs() []WindowDef {
	var defs []WindowDef
	for !p.failed() {
		def := WindowDef{Name: p.parseName("window name")}
		p.expect(TOKEN_AS)
		def.Spec = p.parseWindowSpec()
		defs = append(defs, def)

		if !p.match(TOKEN_COMMA) {
			break
		}
	}
	return defs
}

// parseSelectList parses the list of SELECT items.
func (p *Parser) parseSelectList() []SelectItem {
	var items []SelectItem

	for !p.failed() {
		items = append(items, p.parseSelectItem())

		if !p.match(TOKEN_COMMA) {
			break
		}
		// Trailing comma before FROM
		if p.check(TOKEN_FROM) {
			break
		}
	}

	return items
}

// parseSelectItem parses a single SELECT item.
func (p *Parser) parseSelectItem() SelectItem {
	item := SelectItem{}

	if p.check(TOKEN_STAR) {
		item.Star = true
		p.nextToken()
		p.parseStarModifiers()
		return item
	}

	// table.* using 3-token lookahead (no rollback needed)
	if isIdentLike(p.token) && p.checkPeek(TOKEN_DOT) && p.checkPeek2(TOKEN_STAR) {
		item.TableStar = p.token.Literal
		p.nextToken() // identifier
		p.nextToken() // DOT
		p.nextToken() // STAR
		p.parseStarModifiers()
		return item
	}

	item.Expr = p.parseExpression()

	if p.match(TOKEN_AS) {
		item.Alias = p.parseAliasAfterAs()
	} else if p.isAliasCandidate() {
		item.Alias = p.token.Literal
		p.nextToken()
	}

	return item
}

// parseStarModifiers skips EXCLUDE/EXCEPT/REPLACE/RENAME lists following a star.
// They change which columns the star expands to, which is never materialized here.
func (p *Parser) parseStarModifiers() {
	for !p.failed() {
		switch {
		case p.checkWord("EXCLUDE") || p.checkWord("REPLACE") || p.checkWord("RENAME"):
			p.nextToken()
		case p.check(TOKEN_EXCEPT) && p.checkPeek(TOKEN_LPAREN) &&
			!p.checkPeek2(TOKEN_SELECT) && !p.checkPeek2(TOKEN_WITH) && !p.checkPeek2(TOKEN_VALUES):
			p.nextToken()
		default:
			return
		}

		if p.check(TOKEN_LPAREN) {
			p.skipParenthesized()
		} else {
			p.parseName("column name")
		}
	}
}

// parseOrderByList parses a list of ORDER BY items.
func (p *Parser) parseOrderByList() []OrderByItem {
	var items []OrderByItem

	for !p.failed() {
		items = append(items, p.parseOrderByItem())

		if !p.match(TOKEN_COMMA) {
			break
		}
	}

	return items
}

// parseOrderByItem parses a single ORDER BY item.
func (p *Parser) parseOrderByItem() OrderByItem {
	item := OrderByItem{}
	item.Expr = p.parseExpression()

	if p.match(TOKEN_ASC) {
		item.Desc = false
	} else if p.match(TOKEN_DESC) {
		item.Desc = true
	}

	if p.match(TOKEN_NULLS) {
		if p.match(TOKEN_FIRST) {
			b := true
			item.NullsFirst = &b
		} else if p.match(TOKEN_LAST) {
			b := false
			item.NullsFirst = &b
		}
	}

	return item
}

// parseExpressionList parses a comma-separated list of expressions.
func (p *Parser) parseExpressionList() []Expr {
	var exprs []Expr

	for !p.failed() {
		exprs = append(exprs, p.parseExpression())

		if !p.match(TOKEN_COMMA) {
			break
		}
	}

	return exprs
}
