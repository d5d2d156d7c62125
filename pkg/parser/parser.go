// Package parser provides a generic, dialect-agnostic SQL parser for SELECT
// queries.
//
// # Usage
//
//	stmt, err := parser.Parse("SELECT a, b FROM t")
//	if err != nil {
//	    // handle error
//	}
//
// ParseScript accepts a ';'-separated sequence of statements and returns the
// SELECT-shaped ones, skipping everything else.
//
// # Grammar Overview
//
// The parser implements a recursive descent parser for a subset of SQL:
//
//	script        → [statement] (";" [statement])*
//	statement     → [WITH cte_list] select_body
//	select_body   → select_core [(UNION|INTERSECT|EXCEPT) [ALL|DISTINCT] [BY NAME] select_body]
//	select_core   → SELECT [DISTINCT [ON (...)]|ALL] select_list [FROM from_clause] clause*
//	              | VALUES row ("," row)*
//	              | "(" statement ")" clause*
//	clause        → WHERE expr | GROUP BY (ALL | expr_list) | HAVING expr
//	              | WINDOW window_def_list | QUALIFY expr | ORDER BY (ALL | order_list)
//	              | LIMIT expr | OFFSET expr | FETCH ...
//
// Clauses are accepted in any order. See each file for detailed grammar rules
// for that section.
package parser

import (
	"fmt"
	"strings"
)

// maxDepth bounds recursion so pathological input fails instead of exhausting the stack.
const maxDepth = 500

// Parser parses SQL into an AST.
type Parser struct {
	lexer  *Lexer
	token  Token // current token
	peek   Token // lookahead token
	peek2  Token // second lookahead token
	errors []error
	depth  int
}

// NewParser creates a new parser for the given SQL input.
func NewParser(sql string) *Parser {
	p := &Parser{
		lexer: NewLexer(sql),
	}
	// Read three tokens to initialize current, peek, and peek2
	p.nextToken()
	p.nextToken()
	p.nextToken()
	return p
}

// Parse parses a single SELECT statement, optionally terminated by ';'.
func Parse(sql string) (*SelectStmt, error) {
	p := NewParser(sql)
	stmt := p.parseStatement()
	p.match(TOKEN_SEMICOLON)
	if !p.check(TOKEN_EOF) && len(p.errors) == 0 {
		p.addError(fmt.Sprintf(ErrTrailingTokens, p.token.Type))
	}
	if len(p.errors) > 0 {
		return nil, p.errors[0]
	}
	return stmt, nil
}

// ParseScript parses a ';'-separated sequence of statements. SELECT-shaped
// statements are returned in order; other statements are skipped.
func ParseScript(sql string) ([]*SelectStmt, error) {
	if err := checkUTF8(sql); err != nil {
		return nil, err
	}
	p := NewParser(sql)
	var stmts []*SelectStmt

	for !p.check(TOKEN_EOF) {
		if p.match(TOKEN_SEMICOLON) {
			continue
		}

		if !p.isQueryStart() {
			p.skipStatement()
			continue
		}

		stmt := p.parseStatement()
		if len(p.errors) > 0 {
			return nil, p.errors[0]
		}
		if !p.check(TOKEN_SEMICOLON) && !p.check(TOKEN_EOF) {
			p.addError(fmt.Sprintf(ErrTrailingTokens, p.token.Type))
			return nil, p.errors[0]
		}
		stmts = append(stmts, stmt)
	}

	return stmts, nil
}

// isQueryStart reports whether the current token begins a query expression.
func (p *Parser) isQueryStart() bool {
	switch p.token.Type {
	case TOKEN_SELECT, TOKEN_WITH, TOKEN_VALUES:
		return true
	case TOKEN_LPAREN:
		return p.isParenQuery()
	}
	return false
}

// isParenQuery reports whether the current '(' opens a query, looking past
// any further opening parens.
func (p *Parser) isParenQuery() bool {
	if !p.check(TOKEN_LPAREN) {
		return false
	}
	switch p.peek.Type {
	case TOKEN_SELECT, TOKEN_WITH, TOKEN_VALUES:
		return true
	case TOKEN_LPAREN:
		return p.peek2.Type == TOKEN_SELECT || p.peek2.Type == TOKEN_WITH
	}
	return false
}

// skipStatement consumes tokens up to the next top-level ';' or EOF.
func (p *Parser) skipStatement() {
	depth := 0
	for !p.check(TOKEN_EOF) {
		switch p.token.Type {
		case TOKEN_LPAREN:
			depth++
		case TOKEN_RPAREN:
			if depth > 0 {
				depth--
			}
		case TOKEN_SEMICOLON:
			if depth == 0 {
				return
			}
		}
		p.nextToken()
	}
}

// ---------- Token Helpers ----------

// nextToken advances to the next token.
func (p *Parser) nextToken() {
	p.token = p.peek
	p.peek = p.peek2
	p.peek2 = p.lexer.NextToken()
}

// check returns true if the current token is of the given type.
func (p *Parser) check(t TokenType) bool {
	return p.token.Type == t
}

// checkPeek returns true if the peek token is of the given type.
func (p *Parser) checkPeek(t TokenType) bool {
	return p.peek.Type == t
}

// checkPeek2 returns true if the peek2 token is of the given type.
func (p *Parser) checkPeek2(t TokenType) bool {
	return p.peek2.Type == t
}

// checkWord returns true if the current token is an unquoted identifier
// spelled word (case-insensitive). Used for contextual words that are not
// keywords, like NEXT or EXCLUDE.
func (p *Parser) checkWord(word string) bool {
	return isWord(p.token, word)
}

func isWord(tok Token, word string) bool {
	return tok.Type == TOKEN_IDENT && !tok.Quoted && strings.EqualFold(tok.Literal, word)
}

// match consumes the current token if it matches and returns true.
func (p *Parser) match(t TokenType) bool {
	if p.check(t) {
		p.nextToken()
		return true
	}
	return false
}

// matchWord consumes the current token if checkWord succeeds.
func (p *Parser) matchWord(word string) bool {
	if p.checkWord(word) {
		p.nextToken()
		return true
	}
	return false
}

// expect consumes the current token if it matches, otherwise adds an error.
func (p *Parser) expect(t TokenType) bool {
	if p.check(t) {
		p.nextToken()
		return true
	}
	p.addError(fmt.Sprintf(ErrUnexpectedToken, p.token.Type, t))
	return false
}

// addError adds a parse error.
func (p *Parser) addError(msg string) {
	p.errors = append(p.errors, &ParseError{
		Pos:     p.token.Pos,
		Message: msg,
	})
}

// enter increments the nesting depth and reports whether parsing may continue.
func (p *Parser) enter() bool {
	p.depth++
	if p.depth > maxDepth {
		if len(p.errors) == 0 {
			p.addError(fmt.Sprintf(ErrMaxDepthExceeded, maxDepth))
		}
		return false
	}
	return true
}

func (p *Parser) leave() {
	p.depth--
}

// failed reports whether parsing has already hit an error.
func (p *Parser) failed() bool {
	return len(p.errors) > 0
}

// ---------- Keyword Helpers ----------

// isIdentLike reports whether tok can be used as a name.
func isIdentLike(tok Token) bool {
	return tok.Type == TOKEN_IDENT || softKeywords[tok.Type]
}

// isAliasCandidate reports whether the current token can be an alias
// written without AS.
func (p *Parser) isAliasCandidate() bool {
	tok := p.token
	if tok.Type == TOKEN_IDENT {
		return tok.Quoted || !isJoinModifier(tok) || !(p.checkPeek(TOKEN_JOIN) || isJoinModifier(p.peek))
	}
	switch tok.Type {
	case TOKEN_FILTER, TOKEN_OVER, TOKEN_WITHIN:
		return false
	}
	return softKeywords[tok.Type]
}

// isJoinModifier reports whether tok is a contextual join word like SEMI or ASOF.
func isJoinModifier(tok Token) bool {
	for _, w := range []string{"SEMI", "ANTI", "ASOF", "POSITIONAL"} {
		if isWord(tok, w) {
			return true
		}
	}
	return false
}

// parseName consumes an identifier-like token and returns its text.
func (p *Parser) parseName(what string) string {
	if !isIdentLike(p.token) {
		p.addError(fmt.Sprintf(ErrUnexpectedToken, p.token.Type, what))
		return ""
	}
	name := p.token.Literal
	p.nextToken()
	return name
}

// parseAliasAfterAs consumes the name following AS. Any word, including a
// reserved keyword, and a string literal are accepted.
func (p *Parser) parseAliasAfterAs() string {
	if p.token.Type == TOKEN_IDENT || p.token.Type == TOKEN_STRING || p.token.Type.IsKeyword() {
		name := p.token.Literal
		p.nextToken()
		return name
	}
	p.addError("expected alias after AS")
	return ""
}

// parseNameList parses "(" name ("," name)* ")".
func (p *Parser) parseNameList() []string {
	p.expect(TOKEN_LPAREN)
	var names []string
	for !p.failed() {
		names = append(names, p.parseName("column name"))
		if !p.match(TOKEN_COMMA) {
			break
		}
	}
	p.expect(TOKEN_RPAREN)
	return names
}

// skipParenthesized consumes a balanced "(" ... ")" group.
func (p *Parser) skipParenthesized() {
	if !p.expect(TOKEN_LPAREN) {
		return
	}
	depth := 1
	for depth > 0 && !p.check(TOKEN_EOF) {
		switch p.token.Type {
		case TOKEN_LPAREN:
			depth++
		case TOKEN_RPAREN:
			depth--
		}
		p.nextToken()
	}
	if depth > 0 {
		p.addError(fmt.Sprintf(ErrUnexpectedToken, TOKEN_EOF, TOKEN_RPAREN))
	}
}
