package parser

import (
	"fmt"
	"unicode/utf8"
)

// ParseError represents a parsing error with position information.
type ParseError struct {
	Pos     Position
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at line %d, column %d: %s", e.Pos.Line, e.Pos.Column, e.Message)
}

// Common error messages
const (
	ErrUnexpectedToken   = "unexpected token %s, expected %s"
	ErrUnexpectedInExpr  = "unexpected token in expression: %s"
	ErrTrailingTokens    = "unexpected %s after end of statement"
	ErrMaxDepthExceeded  = "query nesting exceeds %d levels"
	ErrExpectedAfterNot  = "expected IN, BETWEEN, LIKE, or ILIKE after NOT"
	ErrExpectedAfterIs   = "expected NULL, TRUE, FALSE, or DISTINCT FROM after IS"
	ErrExpectedTypeName  = "expected type name"
	ErrExpectedTableName = "expected table name"
	ErrInvalidUTF8       = "invalid UTF-8 byte 0x%02x"
)

// checkUTF8 reports the first byte of sql that is not valid UTF-8.
func checkUTF8(sql string) error {
	if utf8.ValidString(sql) {
		return nil
	}
	pos := Position{Line: 1, Column: 1}
	for pos.Offset < len(sql) {
		r, size := utf8.DecodeRuneInString(sql[pos.Offset:])
		if r == utf8.RuneError && size == 1 {
			return &ParseError{Pos: pos, Message: fmt.Sprintf(ErrInvalidUTF8, sql[pos.Offset])}
		}
		pos.Offset += size
		if r == '\n' {
			pos.Line++
			pos.Column = 1
		} else {
			pos.Column++
		}
	}
	return nil
}
