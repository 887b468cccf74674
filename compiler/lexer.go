package compiler

// ---------------------------------------------------------------------------
// Lexer: tokenizer for Loxa source text
// ---------------------------------------------------------------------------

// keywords maps reserved identifiers to their token types.
var keywords = map[string]TokenType{
	"and":    TokenAnd,
	"else":   TokenElse,
	"false":  TokenFalse,
	"for":    TokenFor,
	"fun":    TokenFun,
	"if":     TokenIf,
	"nil":    TokenNil,
	"or":     TokenOr,
	"print":  TokenPrint,
	"return": TokenReturn,
	"true":   TokenTrue,
	"var":    TokenVar,
	"while":  TokenWhile,
}

// Lexer tokenizes Loxa source code.
type Lexer struct {
	input string
	start int // start of the token being scanned
	pos   int // current position in input
	line  int // current line (1-based)
}

// NewLexer creates a new lexer for the given input.
func NewLexer(input string) *Lexer {
	return &Lexer{input: input, line: 1}
}

func (l *Lexer) isAtEnd() bool {
	return l.pos >= len(l.input)
}

func (l *Lexer) advance() byte {
	l.pos++
	return l.input[l.pos-1]
}

func (l *Lexer) peek() byte {
	if l.isAtEnd() {
		return 0
	}
	return l.input[l.pos]
}

func (l *Lexer) peekNext() byte {
	if l.pos+1 >= len(l.input) {
		return 0
	}
	return l.input[l.pos+1]
}

func (l *Lexer) match(expected byte) bool {
	if l.isAtEnd() || l.input[l.pos] != expected {
		return false
	}
	l.pos++
	return true
}

func (l *Lexer) makeToken(t TokenType) Token {
	return Token{Type: t, Lexeme: l.input[l.start:l.pos], Line: l.line}
}

func (l *Lexer) errorToken(message string) Token {
	return Token{Type: TokenError, Lexeme: message, Line: l.line}
}

func (l *Lexer) skipWhitespaceAndComments() {
	for {
		switch l.peek() {
		case ' ', '\r', '\t':
			l.advance()
		case '\n':
			l.line++
			l.advance()
		case '/':
			if l.peekNext() == '/' {
				for l.peek() != '\n' && !l.isAtEnd() {
					l.advance()
				}
			} else {
				return
			}
		default:
			return
		}
	}
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isAlpha(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '_'
}

func (l *Lexer) scanString() Token {
	for l.peek() != '"' && !l.isAtEnd() {
		if l.peek() == '\n' {
			l.line++
		}
		l.advance()
	}

	if l.isAtEnd() {
		return l.errorToken("Unterminated string.")
	}

	l.advance() // closing quote
	return l.makeToken(TokenString)
}

func (l *Lexer) scanNumber() Token {
	for isDigit(l.peek()) {
		l.advance()
	}

	// Fractional part
	if l.peek() == '.' && isDigit(l.peekNext()) {
		l.advance()
		for isDigit(l.peek()) {
			l.advance()
		}
	}

	return l.makeToken(TokenNumber)
}

func (l *Lexer) scanIdentifier() Token {
	for isAlpha(l.peek()) || isDigit(l.peek()) {
		l.advance()
	}

	if t, ok := keywords[l.input[l.start:l.pos]]; ok {
		return l.makeToken(t)
	}
	return l.makeToken(TokenIdentifier)
}

// NextToken returns the next token in the input.
func (l *Lexer) NextToken() Token {
	l.skipWhitespaceAndComments()

	l.start = l.pos
	if l.isAtEnd() {
		return l.makeToken(TokenEOF)
	}

	c := l.advance()
	if isAlpha(c) {
		return l.scanIdentifier()
	}
	if isDigit(c) {
		return l.scanNumber()
	}

	switch c {
	case '(':
		return l.makeToken(TokenLeftParen)
	case ')':
		return l.makeToken(TokenRightParen)
	case '{':
		return l.makeToken(TokenLeftBrace)
	case '}':
		return l.makeToken(TokenRightBrace)
	case ';':
		return l.makeToken(TokenSemicolon)
	case ',':
		return l.makeToken(TokenComma)
	case '.':
		return l.makeToken(TokenDot)
	case '-':
		return l.makeToken(TokenMinus)
	case '+':
		return l.makeToken(TokenPlus)
	case '/':
		return l.makeToken(TokenSlash)
	case '*':
		return l.makeToken(TokenStar)
	case '!':
		if l.match('=') {
			return l.makeToken(TokenBangEqual)
		}
		return l.makeToken(TokenBang)
	case '=':
		if l.match('=') {
			return l.makeToken(TokenEqualEqual)
		}
		return l.makeToken(TokenEqual)
	case '<':
		if l.match('=') {
			return l.makeToken(TokenLessEqual)
		}
		return l.makeToken(TokenLess)
	case '>':
		if l.match('=') {
			return l.makeToken(TokenGreaterEqual)
		}
		return l.makeToken(TokenGreater)
	case '"':
		return l.scanString()
	}

	return l.errorToken("Unexpected character.")
}
