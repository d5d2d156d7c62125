package parser

import (
	"fmt"
	"strings"
)

// Primary expression parsing: literals, column refs, function calls.
//
// Grammar:
//
//	primary       → literal | typed_literal | column_ref | func_call | paren_expr
//	              | case_expr | cast_expr | exists_expr | array | struct
//	literal       → NUMBER | STRING | TRUE | FALSE | NULL | PARAM
//	typed_literal → (DATE|TIME|TIMESTAMP|TIMESTAMPTZ|INTERVAL) STRING | INTERVAL NUMBER unit
//	column_ref    → [table "."] column | [schema "." table "."] column
//	func_call     → name "(" [DISTINCT|ALL] [args | "*"] [ORDER BY order_list] ")"
//	                [WITHIN GROUP "(" ORDER BY order_list ")"]
//	                [FILTER "(" WHERE expr ")"] [OVER window_spec]

// typedLiteralTypes are type names that may prefix a string literal.
var typedLiteralTypes = map[string]bool{
	"DATE":        true,
	"TIME":        true,
	"TIMESTAMP":   true,
	"TIMESTAMPTZ": true,
	"DATETIME":    true,
	"INTERVAL":    true,
	"JSON":        true,
	"UUID":        true,
}

// parsePrimary parses primary expressions.
func (p *Parser) parsePrimary() Expr {
	switch p.token.Type {
	case TOKEN_NUMBER:
		lit := &Literal{Type: LiteralNumber, Value: p.token.Literal}
		p.nextToken()
		return lit

	case TOKEN_STRING:
		lit := &Literal{Type: LiteralString, Value: p.token.Literal}
		p.nextToken()
		return lit

	case TOKEN_PARAM:
		lit := &Literal{Type: LiteralParam, Value: p.token.Literal}
		p.nextToken()
		return lit

	case TOKEN_TRUE:
		p.nextToken()
		return &Literal{Type: LiteralBool, Value: "true"}

	case TOKEN_FALSE:
		p.nextToken()
		return &Literal{Type: LiteralBool, Value: "false"}

	case TOKEN_NULL:
		p.nextToken()
		return &Literal{Type: LiteralNull, Value: "null"}

	case TOKEN_CASE:
		return p.parseCaseExpr()

	case TOKEN_CAST:
		return p.parseCastExpr()

	case TOKEN_EXISTS:
		return p.parseExistsExpr(false)

	case TOKEN_LPAREN:
		return p.parseParenExpr()

	case TOKEN_LBRACKET:
		return p.parseArrayExpr()

	case TOKEN_LBRACE:
		return p.parseStructExpr()

	case TOKEN_STAR:
		// COLUMNS(*) and similar argument positions
		p.nextToken()
		return &StarExpr{}

	case TOKEN_IDENT:
		return p.parseIdentifierExpr()

	case TOKEN_LEFT, TOKEN_RIGHT, TOKEN_ALL:
		// LEFT(s, n), RIGHT(s, n), ALL(subquery)
		if p.checkPeek(TOKEN_LPAREN) {
			name := p.token.Literal
			p.nextToken()
			return p.parseFuncCall(name)
		}

	default:
		if softKeywords[p.token.Type] {
			return p.parseIdentifierExpr()
		}
	}

	p.addError(fmt.Sprintf(ErrUnexpectedInExpr, p.token.Type))
	p.nextToken()
	return nil
}

// parseIdentifierExpr parses an identifier which could be a column ref,
// function call, or typed literal.
func (p *Parser) parseIdentifierExpr() Expr {
	tok := p.token
	name := tok.Literal
	p.nextToken()

	if !tok.Quoted {
		upper := strings.ToUpper(name)

		// DATE '2024-01-01', INTERVAL '1 day', INTERVAL 3 DAY
		if typedLiteralTypes[upper] {
			if p.check(TOKEN_STRING) {
				lit := &Literal{Type: LiteralTyped, TypeName: upper, Value: p.token.Literal}
				p.nextToken()
				p.parseIntervalUnit(upper)
				return lit
			}
			if upper == "INTERVAL" && (p.check(TOKEN_NUMBER) || p.check(TOKEN_LPAREN)) {
				value := p.parsePrimary()
				p.parseIntervalUnit(upper)
				return &CastExpr{Expr: value, TypeName: upper}
			}
		}

		switch upper {
		case "ARRAY":
			if p.check(TOKEN_LBRACKET) {
				return p.parseArrayExpr()
			}
		case "TRY_CAST", "SAFE_CAST":
			if p.check(TOKEN_LPAREN) {
				return p.parseCastBody(true)
			}
		case "EXTRACT":
			if p.check(TOKEN_LPAREN) {
				return p.parseExtractExpr(upper)
			}
		}
	}

	if p.check(TOKEN_LPAREN) {
		return p.parseFuncCall(name)
	}

	if p.check(TOKEN_DOT) {
		return p.parseQualifiedColumnRef(name)
	}

	return &ColumnRef{Column: name}
}

// parseIntervalUnit consumes an optional unit after an INTERVAL value,
// including the "DAY TO SECOND" form.
func (p *Parser) parseIntervalUnit(typeName string) {
	if typeName != "INTERVAL" {
		return
	}
	if p.check(TOKEN_IDENT) && isIntervalUnit(p.token.Literal) {
		p.nextToken()
		if p.checkWord("TO") && isIntervalUnit(p.peek.Literal) {
			p.nextToken()
			p.nextToken()
		}
	}
}

func isIntervalUnit(s string) bool {
	switch strings.ToUpper(s) {
	case "YEAR", "YEARS", "MONTH", "MONTHS", "WEEK", "WEEKS", "DAY", "DAYS",
		"HOUR", "HOURS", "MINUTE", "MINUTES", "SECOND", "SECONDS",
		"MILLISECOND", "MILLISECONDS", "MICROSECOND", "MICROSECONDS", "QUARTER", "QUARTERS":
		return true
	}
	return false
}

// parseQualifiedColumnRef parses a qualified column reference.
func (p *Parser) parseQualifiedColumnRef(firstPart string) Expr {
	parts := []string{firstPart}

	for p.check(TOKEN_DOT) {
		if p.checkPeek(TOKEN_STAR) {
			p.nextToken() // DOT
			p.nextToken() // STAR
			return &StarExpr{Table: parts[len(parts)-1]}
		}
		if !isIdentLike(p.peek) && !p.peek.Type.IsKeyword() {
			break
		}
		p.nextToken() // DOT
		parts = append(parts, p.token.Literal)
		p.nextToken()
	}

	// schema.func(...)
	if p.check(TOKEN_LPAREN) {
		return p.parseFuncCall(strings.Join(parts, "."))
	}

	ref := &ColumnRef{Column: parts[len(parts)-1]}
	if len(parts) > 1 {
		ref.Table = parts[len(parts)-2]
	}
	return ref
}

// parseFuncCall parses a function call.
func (p *Parser) parseFuncCall(name string) *FuncCall {
	fn := &FuncCall{Name: strings.ToUpper(name)}

	p.expect(TOKEN_LPAREN)

	if p.check(TOKEN_STAR) && p.checkPeek(TOKEN_RPAREN) {
		fn.Star = true
		p.nextToken()
	} else if !p.check(TOKEN_RPAREN) {
		if p.match(TOKEN_DISTINCT) {
			fn.Distinct = true
		} else {
			p.match(TOKEN_ALL)
		}

		fn.Args = p.parseFuncArgs(fn.Name)

		if p.check(TOKEN_ORDER) && p.checkPeek(TOKEN_BY) {
			p.nextToken()
			p.nextToken()
			fn.OrderBy = p.parseOrderByList()
		}
		p.parseNullTreatment()
		if p.match(TOKEN_LIMIT) {
			p.parseExpression()
		}
	}

	p.expect(TOKEN_RPAREN)

	p.parseNullTreatment()

	// WITHIN GROUP (ORDER BY ...)
	if p.match(TOKEN_WITHIN) {
		p.expect(TOKEN_GROUP)
		p.expect(TOKEN_LPAREN)
		p.expect(TOKEN_ORDER)
		p.expect(TOKEN_BY)
		fn.WithinGroup = p.parseOrderByList()
		p.expect(TOKEN_RPAREN)
	}

	// FILTER (WHERE ...)
	if p.check(TOKEN_FILTER) && p.checkPeek(TOKEN_LPAREN) {
		p.nextToken()
		p.expect(TOKEN_LPAREN)
		p.match(TOKEN_WHERE)
		fn.Filter = p.parseExpression()
		p.expect(TOKEN_RPAREN)
	}

	p.parseNullTreatment()

	if p.match(TOKEN_OVER) {
		fn.Window = p.parseWindowSpec()
	}

	return fn
}

// parseFuncArgs parses function arguments. Keyword separators used by
// standard functions, as in SUBSTRING(s FROM 1 FOR 2) or TRIM(BOTH ' ' FROM s),
// are accepted between arguments.
func (p *Parser) parseFuncArgs(name string) []Expr {
	var args []Expr

	if name == "TRIM" {
		if p.checkWord("BOTH") || p.checkWord("LEADING") || p.checkWord("TRAILING") {
			p.nextToken()
		}
		if p.match(TOKEN_FROM) {
			args = append(args, p.parseExpression())
			return args
		}
	}

	for !p.failed() {
		args = append(args, p.parseExpression())

		if p.match(TOKEN_COMMA) || p.match(TOKEN_FROM) || p.matchWord("FOR") {
			continue
		}
		break
	}

	return args
}

// parseNullTreatment consumes IGNORE NULLS / RESPECT NULLS.
func (p *Parser) parseNullTreatment() {
	if (p.checkWord("IGNORE") || p.checkWord("RESPECT")) && p.checkPeek(TOKEN_NULLS) {
		p.nextToken()
		p.nextToken()
	}
}
