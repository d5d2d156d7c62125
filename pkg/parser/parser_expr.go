package parser

// Expression precedence parsing using a Pratt parser.
//
// Precedence levels:
//
//	PrecedenceNone       = 0
//	PrecedenceOr         = 1
//	PrecedenceAnd        = 2
//	PrecedenceNot        = 3
//	PrecedenceComparison = 4  (=, !=, <, >, <=, >=, IS, IN, BETWEEN, LIKE, ILIKE, other operators)
//	PrecedenceAddition   = 5  (+, -, ||, ->, ->>)
//	PrecedenceMultiply   = 6  (*, /, %)
//	PrecedenceUnary      = 7  (-, +, NOT)
//	PrecedencePostfix    = 8  (::, [])

// Precedence levels for infix and prefix operators.
const (
	PrecedenceNone = iota
	PrecedenceOr
	PrecedenceAnd
	PrecedenceNot
	PrecedenceComparison
	PrecedenceAddition
	PrecedenceMultiply
	PrecedenceUnary
	PrecedencePostfix
)

// parseExpression parses an expression using precedence climbing.
func (p *Parser) parseExpression() Expr {
	return p.parseExpressionWithPrecedence(PrecedenceNone + 1)
}

// parseExpressionWithPrecedence implements Pratt parsing.
func (p *Parser) parseExpressionWithPrecedence(minPrecedence int) Expr {
	if !p.enter() {
		return nil
	}
	defer p.leave()

	left := p.parsePrefixExpr()
	if left == nil {
		return nil
	}

	for !p.failed() {
		prec := p.infixPrecedence()
		if prec == PrecedenceNone || prec < minPrecedence {
			break
		}

		left = p.parseInfixExpr(left, prec)
		if left == nil {
			break
		}
	}

	return left
}

// parsePrefixExpr parses prefix expressions (unary operators and primary expressions).
func (p *Parser) parsePrefixExpr() Expr {
	switch p.token.Type {
	case TOKEN_NOT:
		if p.checkPeek(TOKEN_EXISTS) {
			p.nextToken()
			return p.parseExistsExpr(true)
		}
		p.nextToken()
		expr := p.parseExpressionWithPrecedence(PrecedenceNot)
		return &UnaryExpr{Op: TOKEN_NOT, Expr: expr}

	case TOKEN_MINUS, TOKEN_PLUS:
		op := p.token.Type
		p.nextToken()
		expr := p.parseExpressionWithPrecedence(PrecedenceUnary)
		return &UnaryExpr{Op: op, Expr: expr}

	case TOKEN_OPERATOR:
		// Prefix operators such as ~ (bitwise not) or @ (absolute value)
		op := p.token.Type
		p.nextToken()
		expr := p.parseExpressionWithPrecedence(PrecedenceUnary)
		return &UnaryExpr{Op: op, Expr: expr}

	default:
		return p.parsePrimary()
	}
}

// infixPrecedence returns the precedence of the current token as an infix operator.
// Returns PrecedenceNone if the token is not an infix operator.
func (p *Parser) infixPrecedence() int {
	switch p.token.Type {
	case TOKEN_OR:
		return PrecedenceOr
	case TOKEN_AND:
		return PrecedenceAnd
	case TOKEN_EQ, TOKEN_NE, TOKEN_LT, TOKEN_GT, TOKEN_LE, TOKEN_GE, TOKEN_OPERATOR:
		return PrecedenceComparison
	case TOKEN_IS, TOKEN_IN, TOKEN_BETWEEN, TOKEN_LIKE, TOKEN_ILIKE:
		return PrecedenceComparison
	case TOKEN_NOT:
		// NOT IN, NOT LIKE, NOT BETWEEN
		switch p.peek.Type {
		case TOKEN_IN, TOKEN_BETWEEN, TOKEN_LIKE, TOKEN_ILIKE:
			return PrecedenceComparison
		}
		if isWord(p.peek, "SIMILAR") {
			return PrecedenceComparison
		}
		return PrecedenceNone
	case TOKEN_PLUS, TOKEN_MINUS, TOKEN_DPIPE, TOKEN_ARROW:
		return PrecedenceAddition
	case TOKEN_STAR, TOKEN_SLASH, TOKEN_PERCENT:
		return PrecedenceMultiply
	case TOKEN_DCOLON, TOKEN_LBRACKET:
		return PrecedencePostfix
	case TOKEN_DOT:
		return PrecedencePostfix
	case TOKEN_IDENT:
		switch {
		case isWord(p.token, "SIMILAR") && isWord(p.peek, "TO"):
			return PrecedenceComparison
		case isWord(p.token, "GLOB") || isWord(p.token, "REGEXP") || isWord(p.token, "RLIKE"):
			return PrecedenceComparison
		case isWord(p.token, "COLLATE"):
			return PrecedencePostfix
		}
	}
	return PrecedenceNone
}

// parseInfixExpr parses an infix expression given the left operand and current precedence.
func (p *Parser) parseInfixExpr(left Expr, prec int) Expr {
	switch p.token.Type {
	case TOKEN_NOT:
		return p.parseNotInfixExpr(left)

	case TOKEN_IS:
		return p.parseIsExpr(left)

	case TOKEN_IN:
		p.nextToken()
		return p.parseInExpr(left, false)

	case TOKEN_BETWEEN:
		p.nextToken()
		return p.parseBetweenExpr(left, false)

	case TOKEN_LIKE, TOKEN_ILIKE:
		op := p.token.Type
		p.nextToken()
		return p.parseLikeExpr(left, false, op)

	case TOKEN_DCOLON:
		p.nextToken()
		return &CastExpr{Expr: left, TypeName: p.parseTypeName()}

	case TOKEN_LBRACKET:
		return p.parseSubscript(left)

	case TOKEN_DOT:
		// (expr).field or struct_col['a'].field
		p.nextToken()
		if p.check(TOKEN_STAR) {
			p.nextToken()
			return &FieldExpr{Expr: left, Field: "*"}
		}
		return &FieldExpr{Expr: left, Field: p.parseName("field name")}

	case TOKEN_IDENT:
		switch {
		case p.checkWord("SIMILAR"):
			p.nextToken() // SIMILAR
			p.nextToken() // TO
			return p.parseLikeExpr(left, false, TOKEN_LIKE)
		case p.checkWord("COLLATE"):
			p.nextToken()
			if p.check(TOKEN_STRING) || isIdentLike(p.token) {
				p.nextToken()
			}
			return left
		}
	}

	op := p.token
	p.nextToken()

	// Parse right operand with higher precedence (left-associative)
	right := p.parseExpressionWithPrecedence(prec + 1)

	return &BinaryExpr{Left: left, Op: op, Right: right}
}

// parseNotInfixExpr handles NOT as an infix modifier (NOT IN, NOT BETWEEN, NOT LIKE).
func (p *Parser) parseNotInfixExpr(left Expr) Expr {
	p.nextToken() // consume NOT

	switch p.token.Type {
	case TOKEN_IN:
		p.nextToken()
		return p.parseInExpr(left, true)

	case TOKEN_BETWEEN:
		p.nextToken()
		return p.parseBetweenExpr(left, true)

	case TOKEN_LIKE, TOKEN_ILIKE:
		op := p.token.Type
		p.nextToken()
		return p.parseLikeExpr(left, true, op)

	default:
		if p.matchWord("SIMILAR") {
			p.matchWord("TO")
			return p.parseLikeExpr(left, true, TOKEN_LIKE)
		}
		p.addError(ErrExpectedAfterNot)
		return left
	}
}

// parseIsExpr parses IS [NOT] NULL / TRUE / FALSE / DISTINCT FROM.
func (p *Parser) parseIsExpr(left Expr) Expr {
	p.nextToken() // consume IS

	isNot := p.match(TOKEN_NOT)

	switch p.token.Type {
	case TOKEN_NULL:
		p.nextToken()
		return &IsNullExpr{Expr: left, Not: isNot}

	case TOKEN_TRUE:
		p.nextToken()
		return &IsBoolExpr{Expr: left, Not: isNot, Value: true}

	case TOKEN_FALSE:
		p.nextToken()
		return &IsBoolExpr{Expr: left, Not: isNot, Value: false}

	case TOKEN_DISTINCT:
		p.nextToken()
		p.expect(TOKEN_FROM)
		right := p.parseExpressionWithPrecedence(PrecedenceAddition)
		return &IsDistinctExpr{Left: left, Not: isNot, Right: right}

	default:
		// IS [NOT] UNKNOWN
		if p.matchWord("UNKNOWN") {
			return &IsNullExpr{Expr: left, Not: isNot}
		}
		p.addError(ErrExpectedAfterIs)
		return left
	}
}

// parseInExpr parses an IN expression. A single operand without parentheses
// is accepted, as in POSITION(x IN y).
func (p *Parser) parseInExpr(left Expr, not bool) Expr {
	in := &InExpr{Expr: left, Not: not}

	if !p.check(TOKEN_LPAREN) {
		in.Values = []Expr{p.parseExpressionWithPrecedence(PrecedenceAddition)}
		return in
	}

	p.nextToken()
	switch {
	case p.check(TOKEN_SELECT) || p.check(TOKEN_WITH):
		in.Query = p.parseStatement()
	case p.check(TOKEN_RPAREN):
		// empty list
	default:
		in.Values = p.parseExpressionList()
	}
	p.expect(TOKEN_RPAREN)
	return in
}

// parseBetweenExpr parses a BETWEEN expression.
func (p *Parser) parseBetweenExpr(left Expr, not bool) Expr {
	between := &BetweenExpr{Expr: left, Not: not}
	p.matchWord("SYMMETRIC")
	// Bounds at addition precedence so the bound does not capture AND
	between.Low = p.parseExpressionWithPrecedence(PrecedenceAddition)
	p.expect(TOKEN_AND)
	between.High = p.parseExpressionWithPrecedence(PrecedenceAddition)
	return between
}

// parseLikeExpr parses a LIKE/ILIKE expression.
func (p *Parser) parseLikeExpr(left Expr, not bool, op TokenType) Expr {
	like := &LikeExpr{Expr: left, Not: not, Op: op}
	// ANY/ALL pattern lists are parsed as function calls
	like.Pattern = p.parseExpressionWithPrecedence(PrecedenceAddition)
	if p.matchWord("ESCAPE") {
		p.parseExpressionWithPrecedence(PrecedenceAddition)
	}
	return like
}

// parseSubscript parses expr[index] or expr[lower:upper].
func (p *Parser) parseSubscript(left Expr) Expr {
	p.expect(TOKEN_LBRACKET)
	sub := &SubscriptExpr{Expr: left}
	if !p.check(TOKEN_COLON) {
		sub.Index = p.parseExpression()
	}
	if p.match(TOKEN_COLON) {
		sub.Slice = true
		if !p.check(TOKEN_RBRACKET) {
			sub.Upper = p.parseExpression()
		}
	}
	p.expect(TOKEN_RBRACKET)
	return sub
}
