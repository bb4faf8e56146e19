package sexp

import "fmt"

// TokenType classifies a token produced by the reader's scanner.
type TokenType int

const (
	TokenEOF       TokenType = iota // end of input; literal is a synthesized ")"
	TokenNumeric                    // optional '-' then digits
	TokenAlpha                      // letter, then letters and digits
	TokenDelimiter                  // any other single character
)

var tokenNames = map[TokenType]string{
	TokenEOF:       "EOF",
	TokenNumeric:   "NUMERIC",
	TokenAlpha:     "ALPHA",
	TokenDelimiter: "DELIMITER",
}

// String returns the token type name.
func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return fmt.Sprintf("TokenType(%d)", t)
}

// Token is a scanned token.
type Token struct {
	Type    TokenType
	Literal string
}

// String returns a debug representation of the token.
func (t Token) String() string {
	return fmt.Sprintf("%s(%q)", t.Type, t.Literal)
}
