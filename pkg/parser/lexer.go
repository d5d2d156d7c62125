package parser

import "strings"

// Lexer tokenizes SQL input.
type Lexer struct {
	input   string
	pos     int  // current position in input
	readPos int  // reading position (after current char)
	ch      byte // current char under examination
	line    int  // current line number (1-based)
	col     int  // current column number (1-based)
}

// NewLexer creates a new Lexer for the given input.
func NewLexer(input string) *Lexer {
	l := &Lexer{
		input: input,
		line:  1,
		col:   0,
	}
	l.readChar()
	return l
}

// readChar advances to the next character.
func (l *Lexer) readChar() {
	if l.readPos >= len(l.input) {
		l.ch = 0 // ASCII NUL = EOF
	} else {
		l.ch = l.input[l.readPos]
	}
	l.pos = l.readPos
	l.readPos++

	if l.ch == '\n' {
		l.line++
		l.col = 0
	} else {
		l.col++
	}
}

// peekChar returns the next character without advancing.
func (l *Lexer) peekChar() byte {
	if l.readPos >= len(l.input) {
		return 0
	}
	return l.input[l.readPos]
}

// peekCharAt returns the character n positions after the current one.
func (l *Lexer) peekCharAt(n int) byte {
	i := l.pos + n
	if i >= len(l.input) {
		return 0
	}
	return l.input[i]
}

// atEOF reports whether the whole input has been consumed. A literal NUL byte
// inside the input is not EOF.
func (l *Lexer) atEOF() bool {
	return l.pos >= len(l.input)
}

func (l *Lexer) currentPos() Position {
	return Position{
		Line:   l.line,
		Column: l.col,
		Offset: l.pos,
	}
}

// NextToken returns the next token.
func (l *Lexer) NextToken() Token {
	l.skipWhitespaceAndComments()

	pos := l.currentPos()
	tok := Token{Pos: pos}

	if l.atEOF() {
		tok.Type = TOKEN_EOF
		return tok
	}

	switch l.ch {
	case '+':
		tok = l.newToken(TOKEN_PLUS, "+")
	case '-':
		if l.peekChar() == '>' {
			l.readChar()
			if l.peekChar() == '>' {
				l.readChar()
				tok = Token{Type: TOKEN_ARROW, Literal: "->>", Pos: pos}
			} else {
				tok = Token{Type: TOKEN_ARROW, Literal: "->", Pos: pos}
			}
		} else {
			tok = l.newToken(TOKEN_MINUS, "-")
		}
	case '*':
		tok = l.newToken(TOKEN_STAR, "*")
	case '/':
		tok = l.newToken(TOKEN_SLASH, "/")
	case '%':
		tok = l.newToken(TOKEN_PERCENT, "%")
	case '=':
		switch l.peekChar() {
		case '>':
			l.readChar()
			tok = Token{Type: TOKEN_OPERATOR, Literal: "=>", Pos: pos}
		case '=':
			l.readChar()
			tok = Token{Type: TOKEN_EQ, Literal: "==", Pos: pos}
		default:
			tok = l.newToken(TOKEN_EQ, "=")
		}
	case '<':
		switch l.peekChar() {
		case '=':
			l.readChar()
			tok = Token{Type: TOKEN_LE, Literal: "<=", Pos: pos}
		case '>':
			l.readChar()
			tok = Token{Type: TOKEN_NE, Literal: "<>", Pos: pos}
		case '@', '<':
			return l.readOperator(pos)
		default:
			tok = l.newToken(TOKEN_LT, "<")
		}
	case '>':
		switch l.peekChar() {
		case '=':
			l.readChar()
			tok = Token{Type: TOKEN_GE, Literal: ">=", Pos: pos}
		case '>':
			return l.readOperator(pos)
		default:
			tok = l.newToken(TOKEN_GT, ">")
		}
	case '!':
		if l.peekChar() == '=' {
			l.readChar()
			tok = Token{Type: TOKEN_NE, Literal: "!=", Pos: pos}
		} else {
			return l.readOperator(pos)
		}
	case '|':
		if l.peekChar() == '|' {
			l.readChar()
			tok = Token{Type: TOKEN_DPIPE, Literal: "||", Pos: pos}
		} else {
			return l.readOperator(pos)
		}
	case '~', '&', '^', '#', '@':
		return l.readOperator(pos)
	case '.':
		if isDigit(l.peekChar()) {
			tok.Type = TOKEN_NUMBER
			tok.Literal = l.readNumber()
			return tok
		}
		tok = l.newToken(TOKEN_DOT, ".")
	case ',':
		tok = l.newToken(TOKEN_COMMA, ",")
	case ';':
		tok = l.newToken(TOKEN_SEMICOLON, ";")
	case ':':
		switch l.peekChar() {
		case ':':
			l.readChar()
			tok = Token{Type: TOKEN_DCOLON, Literal: "::", Pos: pos}
		case '=':
			l.readChar()
			tok = Token{Type: TOKEN_OPERATOR, Literal: ":=", Pos: pos}
		default:
			tok = l.newToken(TOKEN_COLON, ":")
		}
	case '(':
		tok = l.newToken(TOKEN_LPAREN, "(")
	case ')':
		tok = l.newToken(TOKEN_RPAREN, ")")
	case '[':
		tok = l.newToken(TOKEN_LBRACKET, "[")
	case ']':
		tok = l.newToken(TOKEN_RBRACKET, "]")
	case '{':
		tok = l.newToken(TOKEN_LBRACE, "{")
	case '}':
		tok = l.newToken(TOKEN_RBRACE, "}")
	case '?':
		tok = l.newToken(TOKEN_PARAM, "?")
	case '$':
		if isDigit(l.peekChar()) {
			start := l.pos
			l.readChar()
			for isDigit(l.ch) {
				l.readChar()
			}
			return Token{Type: TOKEN_PARAM, Literal: l.input[start:l.pos], Pos: pos}
		}
		if tag, ok := l.dollarTag(); ok {
			return Token{Type: TOKEN_STRING, Literal: l.readDollarString(tag), Pos: pos}
		}
		tok = l.newToken(TOKEN_ILLEGAL, "$")
	case '\'':
		tok.Type = TOKEN_STRING
		tok.Literal = l.readString(false)
		return tok
	case '"':
		tok.Type = TOKEN_IDENT
		tok.Literal = l.readQuoted('"')
		tok.Quoted = true
		return tok
	case '`':
		tok.Type = TOKEN_IDENT
		tok.Literal = l.readQuoted('`')
		tok.Quoted = true
		return tok
	default:
		switch {
		case isStringPrefix(l.ch) && l.peekChar() == '\'':
			escapes := l.ch == 'e' || l.ch == 'E'
			l.readChar() // skip prefix
			tok.Type = TOKEN_STRING
			tok.Literal = l.readString(escapes)
			return tok
		case isLetter(l.ch) || l.ch == '_':
			tok.Literal = l.readIdentifier()
			tok.Type = LookupIdent(strings.ToLower(tok.Literal))
			return tok
		case isDigit(l.ch):
			tok.Type = TOKEN_NUMBER
			tok.Literal = l.readNumber()
			return tok
		default:
			tok = l.newToken(TOKEN_ILLEGAL, string(l.ch))
		}
	}

	l.readChar()
	return tok
}

func (l *Lexer) newToken(tokenType TokenType, literal string) Token {
	return Token{Type: tokenType, Literal: literal, Pos: l.currentPos()}
}

// skipWhitespaceAndComments skips whitespace, line comments and block comments.
func (l *Lexer) skipWhitespaceAndComments() {
	for {
		for !l.atEOF() && isSpace(l.ch) {
			l.readChar()
		}

		if l.ch == '-' && l.peekChar() == '-' {
			for !l.atEOF() && l.ch != '\n' {
				l.readChar()
			}
			continue
		}

		if l.ch == '/' && l.peekChar() == '*' {
			l.skipBlockComment()
			continue
		}

		break
	}
}

// skipBlockComment skips a possibly nested /* ... */ comment.
func (l *Lexer) skipBlockComment() {
	depth := 0
	for !l.atEOF() {
		switch {
		case l.ch == '/' && l.peekChar() == '*':
			depth++
			l.readChar()
			l.readChar()
		case l.ch == '*' && l.peekChar() == '/':
			depth--
			l.readChar()
			l.readChar()
			if depth == 0 {
				return
			}
		default:
			l.readChar()
		}
	}
}

// readOperator reads a run of operator characters that has no dedicated token.
func (l *Lexer) readOperator(pos Position) Token {
	start := l.pos
	for !l.atEOF() && strings.IndexByte("~&|^#@<>!=?", l.ch) >= 0 {
		l.readChar()
	}
	return Token{Type: TOKEN_OPERATOR, Literal: l.input[start:l.pos], Pos: pos}
}

// readString reads a single-quoted string literal.
// Handles doubled single quotes as escape: 'it''s' -> it's.
// With escapes set, backslash sequences are also honored.
func (l *Lexer) readString(escapes bool) string {
	l.readChar() // skip opening quote

	var result strings.Builder
	for !l.atEOF() {
		switch {
		case escapes && l.ch == '\\' && l.peekChar() != 0:
			l.readChar()
			result.WriteByte(l.ch)
			l.readChar()
		case l.ch == '\'':
			if l.peekChar() == '\'' {
				result.WriteByte('\'')
				l.readChar()
				l.readChar()
				continue
			}
			l.readChar() // skip closing quote
			return result.String()
		default:
			result.WriteByte(l.ch)
			l.readChar()
		}
	}
	return result.String()
}

// readQuoted reads an identifier quoted with q.
// Handles doubled quotes as escape: "col""name" -> col"name.
func (l *Lexer) readQuoted(q byte) string {
	l.readChar() // skip opening quote

	var result strings.Builder
	for !l.atEOF() {
		if l.ch == q {
			if l.peekChar() == q {
				result.WriteByte(q)
				l.readChar()
				l.readChar()
				continue
			}
			l.readChar() // skip closing quote
			break
		}
		result.WriteByte(l.ch)
		l.readChar()
	}
	return result.String()
}

// dollarTag returns the tag of a dollar-quoted string starting at the
// current position, such as $$ or $body$.
func (l *Lexer) dollarTag() (string, bool) {
	i := 1
	for {
		c := l.peekCharAt(i)
		if c == '$' {
			return l.input[l.pos : l.pos+i+1], true
		}
		if !(isLetter(c) || isDigit(c) || c == '_') {
			return "", false
		}
		i++
	}
}

func (l *Lexer) readDollarString(tag string) string {
	for range tag {
		l.readChar()
	}
	start := l.pos
	end := strings.Index(l.input[start:], tag)
	if end < 0 {
		for !l.atEOF() {
			l.readChar()
		}
		return l.input[start:]
	}
	for l.pos < start+end+len(tag) {
		l.readChar()
	}
	return l.input[start : start+end]
}

// readIdentifier reads an unquoted identifier.
func (l *Lexer) readIdentifier() string {
	start := l.pos
	for !l.atEOF() && (isLetter(l.ch) || isDigit(l.ch) || l.ch == '_' || l.ch == '$') {
		l.readChar()
	}
	return l.input[start:l.pos]
}

// readNumber reads a numeric literal (integer, decimal, or scientific).
func (l *Lexer) readNumber() string {
	start := l.pos

	for isDigit(l.ch) || l.ch == '_' {
		l.readChar()
	}

	if l.ch == '.' && l.peekChar() != '.' {
		l.readChar()
		for isDigit(l.ch) {
			l.readChar()
		}
	}

	if (l.ch == 'e' || l.ch == 'E') && (isDigit(l.peekChar()) || l.peekChar() == '+' || l.peekChar() == '-') {
		l.readChar()
		if l.ch == '+' || l.ch == '-' {
			l.readChar()
		}
		for isDigit(l.ch) {
			l.readChar()
		}
	}

	return l.input[start:l.pos]
}

// isLetter returns true for ASCII letters and any byte of a multi-byte
// UTF-8 sequence, so non-ASCII identifiers lex as one token.
func isLetter(ch byte) bool {
	return ch >= 'a' && ch <= 'z' || ch >= 'A' && ch <= 'Z' || ch >= 0x80
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func isSpace(ch byte) bool {
	return ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r' || ch == '\f' || ch == '\v'
}

func isStringPrefix(ch byte) bool {
	switch ch {
	case 'e', 'E', 'n', 'N', 'x', 'X', 'b', 'B':
		return true
	}
	return false
}

// Tokenize returns all tokens from the input.
func Tokenize(input string) []Token {
	l := NewLexer(input)
	var tokens []Token
	for {
		tok := l.NextToken()
		tokens = append(tokens, tok)
		if tok.Type == TOKEN_EOF {
			break
		}
	}
	return tokens
}
