package parser

import "strings"

// Special expression parsing: CASE, CAST, EXISTS, parenthesized expressions,
// subqueries, arrays and structs.
//
// Grammar:
//
//	case_expr     → CASE [expr] (WHEN expr THEN expr)+ [ELSE expr] END
//	cast_expr     → (CAST|TRY_CAST) "(" expr AS type_name ")"
//	extract_expr  → EXTRACT "(" field FROM expr ")"
//	exists_expr   → [NOT] EXISTS "(" statement ")"
//	paren_expr    → "(" ")" | "(" expr ("," expr)* ")" | "(" statement ")"
//	array         → [ARRAY] "[" [expr ("," expr)*] "]"
//	struct        → "{" [expr ":" expr ("," expr ":" expr)*] "}"
//	type_name     → word+ ["(" params ")"] ("[" [NUMBER] "]")*

// parseCaseExpr parses a CASE expression.
func (p *Parser) parseCaseExpr() Expr {
	p.expect(TOKEN_CASE)
	caseExpr := &CaseExpr{}

	// Simple CASE: CASE expr WHEN ...
	if !p.check(TOKEN_WHEN) {
		caseExpr.Operand = p.parseExpression()
	}

	for !p.failed() && p.match(TOKEN_WHEN) {
		when := WhenClause{}
		when.Condition = p.parseExpression()
		p.expect(TOKEN_THEN)
		when.Result = p.parseExpression()
		caseExpr.Whens = append(caseExpr.Whens, when)
	}

	if p.match(TOKEN_ELSE) {
		caseExpr.Else = p.parseExpression()
	}

	p.expect(TOKEN_END)
	return caseExpr
}

// parseCastExpr parses a CAST expression.
func (p *Parser) parseCastExpr() Expr {
	p.expect(TOKEN_CAST)
	return p.parseCastBody(false)
}

// parseCastBody parses "(" expr AS type_name ")".
func (p *Parser) parseCastBody(try bool) Expr {
	p.expect(TOKEN_LPAREN)

	cast := &CastExpr{Try: try}
	cast.Expr = p.parseExpression()

	p.expect(TOKEN_AS)
	cast.TypeName = p.parseTypeName()

	p.expect(TOKEN_RPAREN)
	return cast
}

// typeNameContinuations are words that extend a multi-word type name.
var typeNameContinuations = map[string]bool{
	"PRECISION": true, // DOUBLE PRECISION
	"VARYING":   true, // CHARACTER VARYING
	"UNSIGNED":  true,
	"VARCHAR":   true, // LONG VARCHAR
}

// parseTypeName parses a type name with optional parameters.
func (p *Parser) parseTypeName() string {
	if p.token.Type != TOKEN_IDENT && !p.token.Type.IsKeyword() {
		p.addError(ErrExpectedTypeName)
		return ""
	}

	var b strings.Builder
	b.WriteString(p.token.Literal)
	p.nextToken()

	for {
		switch {
		case p.check(TOKEN_IDENT) && typeNameContinuations[strings.ToUpper(p.token.Literal)]:
			b.WriteString(" " + p.token.Literal)
			p.nextToken()
			continue
		case p.check(TOKEN_DOT) && p.checkPeek(TOKEN_IDENT):
			// schema-qualified user type
			p.nextToken()
			b.WriteString("." + p.token.Literal)
			p.nextToken()
			continue
		case (p.check(TOKEN_WITH) || p.checkWord("WITHOUT")) && isWord(p.peek, "TIME") && isWord(p.peek2, "ZONE"):
			b.WriteString(" " + p.token.Literal)
			p.nextToken()
			b.WriteString(" " + p.token.Literal)
			p.nextToken()
			b.WriteString(" " + p.token.Literal)
			p.nextToken()
			continue
		}
		break
	}

	// Type parameters like VARCHAR(255), DECIMAL(10, 2) or STRUCT(a INT, b TEXT)
	if p.check(TOKEN_LPAREN) {
		b.WriteString(p.parseTypeParams())
	}

	// Array suffixes: INT[], INT[3]
	for p.check(TOKEN_LBRACKET) && (p.checkPeek(TOKEN_RBRACKET) || (p.checkPeek(TOKEN_NUMBER) && p.checkPeek2(TOKEN_RBRACKET))) {
		p.nextToken()
		b.WriteString("[")
		if p.check(TOKEN_NUMBER) {
			b.WriteString(p.token.Literal)
			p.nextToken()
		}
		p.expect(TOKEN_RBRACKET)
		b.WriteString("]")
	}

	return b.String()
}

// parseTypeParams renders a parenthesized type parameter list back to text.
func (p *Parser) parseTypeParams() string {
	var b strings.Builder
	depth := 0
	prevWord := false
	for !p.check(TOKEN_EOF) {
		tok := p.token
		switch tok.Type {
		case TOKEN_LPAREN:
			depth++
			b.WriteString("(")
			prevWord = false
		case TOKEN_RPAREN:
			depth--
			b.WriteString(")")
			prevWord = false
		case TOKEN_COMMA:
			b.WriteString(", ")
			prevWord = false
		default:
			if prevWord {
				b.WriteString(" ")
			}
			b.WriteString(tok.Literal)
			prevWord = true
		}
		p.nextToken()
		if depth == 0 {
			return b.String()
		}
	}
	p.addError(ErrExpectedTypeName)
	return b.String()
}

// parseExtractExpr parses EXTRACT(field FROM expr) into a function call
// whose first argument is the field name as a string.
func (p *Parser) parseExtractExpr(name string) Expr {
	p.expect(TOKEN_LPAREN)
	fn := &FuncCall{Name: name}

	if p.check(TOKEN_STRING) || isIdentLike(p.token) || p.token.Type.IsKeyword() {
		fn.Args = append(fn.Args, &Literal{Type: LiteralString, Value: p.token.Literal})
		p.nextToken()
	} else {
		p.addError("expected field name in EXTRACT")
		return fn
	}

	if !p.match(TOKEN_FROM) {
		p.expect(TOKEN_COMMA)
	}
	fn.Args = append(fn.Args, p.parseExpression())

	p.expect(TOKEN_RPAREN)
	return fn
}

// parseParenExpr parses a parenthesized expression, list, or subquery.
func (p *Parser) parseParenExpr() Expr {
	if p.isParenQuery() {
		p.nextToken()
		subquery := &SubqueryExpr{Select: p.parseStatement()}
		p.expect(TOKEN_RPAREN)
		return subquery
	}

	p.expect(TOKEN_LPAREN)

	// Empty grouping set or tuple: ()
	if p.match(TOKEN_RPAREN) {
		return &ListExpr{}
	}

	expr := p.parseExpression()

	if p.check(TOKEN_COMMA) {
		list := &ListExpr{Items: []Expr{expr}}
		for !p.failed() && p.match(TOKEN_COMMA) {
			list.Items = append(list.Items, p.parseExpression())
		}
		p.expect(TOKEN_RPAREN)
		return list
	}

	p.expect(TOKEN_RPAREN)
	return &ParenExpr{Expr: expr}
}

// parseExistsExpr parses an EXISTS expression. The current token is EXISTS.
func (p *Parser) parseExistsExpr(not bool) Expr {
	p.expect(TOKEN_EXISTS)

	p.expect(TOKEN_LPAREN)
	exists := &ExistsExpr{Not: not, Select: p.parseStatement()}
	p.expect(TOKEN_RPAREN)

	return exists
}

// parseArrayExpr parses an array literal.
func (p *Parser) parseArrayExpr() Expr {
	p.expect(TOKEN_LBRACKET)
	arr := &ArrayExpr{}
	if !p.check(TOKEN_RBRACKET) {
		arr.Elements = p.parseExpressionList()
	}
	p.expect(TOKEN_RBRACKET)
	return arr
}

// parseStructExpr parses a struct literal of key: value pairs.
func (p *Parser) parseStructExpr() Expr {
	p.expect(TOKEN_LBRACE)
	st := &StructExpr{}
	for !p.failed() && !p.check(TOKEN_RBRACE) {
		st.Fields = append(st.Fields, p.parseExpression())
		p.expect(TOKEN_COLON)
		st.Fields = append(st.Fields, p.parseExpression())
		if !p.match(TOKEN_COMMA) {
			break
		}
	}
	p.expect(TOKEN_RBRACE)
	return st
}
