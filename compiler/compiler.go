// Package compiler translates Loxa source text into bytecode chunks.
// It is a single-pass compiler: the parser emits instructions as it
// recognizes grammar, with no intermediate tree.
package compiler

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/loxa-lang/loxa/bytecode"
)

// precedence levels, lowest to highest.
type precedence int

const (
	precNone precedence = iota
	precEquality   // == !=
	precComparison // < > <= >=
	precTerm       // + -
	precFactor     // * /
	precUnary      // ! -
	precPrimary
)

type parseFn func(p *parser)

// parseRule binds a token type to its prefix and infix behavior.
type parseRule struct {
	prefix parseFn
	infix  parseFn
	prec   precedence
}

// parser holds the compilation state for one source unit.
type parser struct {
	lexer *Lexer
	chunk *bytecode.Chunk

	current  Token
	previous Token

	errors    []string
	panicMode bool
}

// Compile translates source into a chunk of bytecode. On failure it
// returns an error carrying every diagnostic collected before the parser
// gave up; no partially built chunk is returned.
func Compile(source string) (*bytecode.Chunk, error) {
	p := &parser{
		lexer: NewLexer(source),
		chunk: bytecode.NewChunk(),
	}

	p.advance()
	for !p.match(TokenEOF) {
		p.statement()
	}
	p.emit(bytecode.OpReturn)

	if len(p.errors) > 0 {
		return nil, errors.New(strings.Join(p.errors, "\n"))
	}
	return p.chunk, nil
}

// ---------------------------------------------------------------------------
// Error reporting
// ---------------------------------------------------------------------------

func (p *parser) errorAt(token Token, message string) {
	if p.panicMode {
		return
	}
	p.panicMode = true

	var sb strings.Builder
	fmt.Fprintf(&sb, "[line %d] Error", token.Line)
	switch token.Type {
	case TokenEOF:
		sb.WriteString(" at end")
	case TokenError:
		// The lexeme is the message itself; no location fragment.
	default:
		fmt.Fprintf(&sb, " at '%s'", token.Lexeme)
	}
	fmt.Fprintf(&sb, ": %s", message)
	p.errors = append(p.errors, sb.String())
}

func (p *parser) errorAtCurrent(message string) {
	p.errorAt(p.current, message)
}

func (p *parser) error(message string) {
	p.errorAt(p.previous, message)
}

// synchronize discards tokens until a statement boundary so one mistake
// does not cascade into a wall of diagnostics.
func (p *parser) synchronize() {
	p.panicMode = false

	for p.current.Type != TokenEOF {
		if p.previous.Type == TokenSemicolon {
			return
		}
		switch p.current.Type {
		case TokenPrint, TokenIf, TokenWhile, TokenFor, TokenFun, TokenVar, TokenReturn:
			return
		}
		p.advance()
	}
}

// ---------------------------------------------------------------------------
// Token stream helpers
// ---------------------------------------------------------------------------

func (p *parser) advance() {
	p.previous = p.current

	for {
		p.current = p.lexer.NextToken()
		if p.current.Type != TokenError {
			break
		}
		p.errorAtCurrent(p.current.Lexeme)
	}
}

func (p *parser) consume(t TokenType, message string) {
	if p.current.Type == t {
		p.advance()
		return
	}
	p.errorAtCurrent(message)
}

func (p *parser) match(t TokenType) bool {
	if p.current.Type != t {
		return false
	}
	p.advance()
	return true
}

// ---------------------------------------------------------------------------
// Emit helpers
// ---------------------------------------------------------------------------

func (p *parser) emit(op bytecode.Opcode) {
	p.chunk.WriteOp(op, p.previous.Line)
}

func (p *parser) emitConstant(k bytecode.Constant) {
	idx, err := p.chunk.AddConstant(k)
	if err != nil || idx > 0xFF {
		// OpConstant's operand is one byte, so the reachable pool is
		// smaller than the pool's own hard cap.
		p.error("Too many constants in one chunk.")
		return
	}
	p.chunk.WriteOp(bytecode.OpConstant, p.previous.Line, byte(idx))
}

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

// statement → "print" expression ";" | expression ";"
func (p *parser) statement() {
	if p.match(TokenPrint) {
		p.expression()
		p.consume(TokenSemicolon, "Expect ';' after value.")
		p.emit(bytecode.OpPrint)
	} else {
		p.expression()
		p.consume(TokenSemicolon, "Expect ';' after expression.")
	}

	if p.panicMode {
		p.synchronize()
	}
}

// ---------------------------------------------------------------------------
// Expressions (Pratt parser)
// ---------------------------------------------------------------------------

func (p *parser) expression() {
	p.parsePrecedence(precEquality)
}

func (p *parser) parsePrecedence(prec precedence) {
	p.advance()
	rule := p.rule(p.previous.Type)
	if rule.prefix == nil {
		p.error("Expect expression.")
		return
	}
	rule.prefix(p)

	for prec <= p.rule(p.current.Type).prec {
		p.advance()
		p.rule(p.previous.Type).infix(p)
	}
}

func (p *parser) grouping() {
	p.expression()
	p.consume(TokenRightParen, "Expect ')' after expression.")
}

func (p *parser) unary() {
	op := p.previous.Type

	p.parsePrecedence(precUnary)

	switch op {
	case TokenMinus:
		p.emit(bytecode.OpNegate)
	case TokenBang:
		p.emit(bytecode.OpNot)
	}
}

func (p *parser) binary() {
	op := p.previous.Type
	rule := p.rule(op)

	p.parsePrecedence(rule.prec + 1)

	switch op {
	case TokenPlus:
		p.emit(bytecode.OpAdd)
	case TokenMinus:
		p.emit(bytecode.OpSubtract)
	case TokenStar:
		p.emit(bytecode.OpMultiply)
	case TokenSlash:
		p.emit(bytecode.OpDivide)
	case TokenEqualEqual:
		p.emit(bytecode.OpEqual)
	case TokenBangEqual:
		p.emit(bytecode.OpEqual)
		p.emit(bytecode.OpNot)
	case TokenGreater:
		p.emit(bytecode.OpGreater)
	case TokenGreaterEqual:
		p.emit(bytecode.OpLess)
		p.emit(bytecode.OpNot)
	case TokenLess:
		p.emit(bytecode.OpLess)
	case TokenLessEqual:
		p.emit(bytecode.OpGreater)
		p.emit(bytecode.OpNot)
	}
}

func (p *parser) literal() {
	switch p.previous.Type {
	case TokenNil:
		p.emit(bytecode.OpNil)
	case TokenTrue:
		p.emit(bytecode.OpTrue)
	case TokenFalse:
		p.emit(bytecode.OpFalse)
	}
}

// number compiles a numeric literal. Lexemes without a decimal point
// become Int constants; with one, Float. An integer literal too large
// for int64 falls back to a Float constant.
func (p *parser) number() {
	lexeme := p.previous.Lexeme
	if strings.ContainsRune(lexeme, '.') {
		f, err := strconv.ParseFloat(lexeme, 64)
		if err != nil {
			p.error("Invalid number literal.")
			return
		}
		p.emitConstant(bytecode.FloatConstant(f))
		return
	}

	n, err := strconv.ParseInt(lexeme, 10, 64)
	if err != nil {
		f, ferr := strconv.ParseFloat(lexeme, 64)
		if ferr != nil {
			p.error("Invalid number literal.")
			return
		}
		p.emitConstant(bytecode.FloatConstant(f))
		return
	}
	p.emitConstant(bytecode.IntConstant(n))
}

func (p *parser) stringLiteral() {
	// Trim the surrounding quotes.
	lexeme := p.previous.Lexeme
	p.emitConstant(bytecode.StringConstant(lexeme[1 : len(lexeme)-1]))
}

// rule returns the parse rule for a token type. Tokens without rules
// (keywords outside the compiled subset, punctuation with no expression
// role) have no prefix entry and surface as "Expect expression." errors.
func (p *parser) rule(t TokenType) parseRule {
	switch t {
	case TokenLeftParen:
		return parseRule{prefix: (*parser).grouping}
	case TokenMinus:
		return parseRule{prefix: (*parser).unary, infix: (*parser).binary, prec: precTerm}
	case TokenPlus:
		return parseRule{infix: (*parser).binary, prec: precTerm}
	case TokenStar, TokenSlash:
		return parseRule{infix: (*parser).binary, prec: precFactor}
	case TokenBang:
		return parseRule{prefix: (*parser).unary}
	case TokenEqualEqual, TokenBangEqual:
		return parseRule{infix: (*parser).binary, prec: precEquality}
	case TokenGreater, TokenGreaterEqual, TokenLess, TokenLessEqual:
		return parseRule{infix: (*parser).binary, prec: precComparison}
	case TokenNumber:
		return parseRule{prefix: (*parser).number}
	case TokenString:
		return parseRule{prefix: (*parser).stringLiteral}
	case TokenNil, TokenTrue, TokenFalse:
		return parseRule{prefix: (*parser).literal}
	default:
		return parseRule{}
	}
}
