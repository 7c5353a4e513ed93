package lexer

import (
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/npillmayer/schuko/tracing"
)

func tracer() tracing.Trace {
	return tracing.Select("gramc.lexer")
}

type StateID int

func (id StateID) Int() int {
	return int(id)
}

type KindID int

func (id KindID) Int() int {
	return int(id)
}

// KindIDNil is the kind of the EOF token and of invalid tokens.
const KindIDNil = KindID(0)

type LexSpec interface {
	InitialState() StateID
	NextState(state StateID, c rune) (StateID, bool)
	Accept(state StateID) (KindID, bool)
	KindName(kind KindID) string
	Skip(kind KindID) bool
}

// Token representes a token.
type Token struct {
	// KindID is an ID of a kind. It equals the terminal symbol of the kind.
	KindID KindID

	// Row is a row number where a lexeme appears.
	Row int

	// Col is a column number where a lexeme appears.
	// Note that Col is counted in code points, not bytes.
	Col int

	// Lexeme is a byte sequence matched a pattern of a lexical specification.
	Lexeme []byte

	// When this field is true, it means the token is the EOF token.
	EOF bool

	// When this field is true, it means the token is an error token.
	Invalid bool
}

type LexerOption func(l *Lexer) error

// KeepSkippedTokens makes the lexer return tokens of the kinds the
// specification marks as skipped.
func KeepSkippedTokens() LexerOption {
	return func(l *Lexer) error {
		l.keepSkipped = true
		return nil
	}
}

type lexerState struct {
	srcPtr int
	row    int
	col    int
}

type Lexer struct {
	spec              LexSpec
	src               []byte
	state             lexerState
	lastAcceptedState lexerState
	tokBuf            []*Token
	keepSkipped       bool
}

// NewLexer returns a new lexer.
func NewLexer(spec LexSpec, src io.Reader, opts ...LexerOption) (*Lexer, error) {
	b, err := io.ReadAll(src)
	if err != nil {
		return nil, err
	}
	l := &Lexer{
		spec: spec,
		src:  b,
	}
	for _, opt := range opts {
		err := opt(l)
		if err != nil {
			return nil, err
		}
	}

	return l, nil
}

// Next returns a next token. Consecutive characters that start no token are
// merged into one invalid token.
func (l *Lexer) Next() (*Token, error) {
	for {
		tok, err := l.nextMerged()
		if err != nil {
			return nil, err
		}
		if tok.EOF || tok.Invalid || l.keepSkipped || !l.spec.Skip(tok.KindID) {
			return tok, nil
		}
	}
}

func (l *Lexer) nextMerged() (*Token, error) {
	if len(l.tokBuf) > 0 {
		tok := l.tokBuf[0]
		l.tokBuf = l.tokBuf[1:]
		return tok, nil
	}

	tok, err := l.next()
	if err != nil {
		return nil, err
	}
	if !tok.Invalid {
		return tok, nil
	}
	errTok := tok
	for {
		tok, err = l.next()
		if err != nil {
			// next leaves the state at the bad sequence, so the following call
			// reports it.
			tracer().Debugf("invalid token at %v:%v: %q", errTok.Row+1, errTok.Col+1, errTok.Lexeme)
			return errTok, nil
		}
		if !tok.Invalid {
			break
		}
		errTok.Lexeme = append(errTok.Lexeme, tok.Lexeme...)
	}
	l.tokBuf = append(l.tokBuf, tok)
	tracer().Debugf("invalid token at %v:%v: %q", errTok.Row+1, errTok.Col+1, errTok.Lexeme)

	return errTok, nil
}

// next reads the longest lexeme from the current position. When no prefix
// is accepted, it consumes exactly one character as an invalid token.
func (l *Lexer) next() (*Token, error) {
	state := l.spec.InitialState()
	start := l.state
	var tok *Token
	for {
		c, eof, err := l.read()
		if err != nil {
			// The bad sequence is reported only once it is where a scan starts.
			if tok != nil {
				l.revert()
				return tok, nil
			}
			if l.state.srcPtr > start.srcPtr {
				l.state = start
				return l.invalid(start), nil
			}
			return nil, err
		}
		if eof {
			if tok != nil {
				l.revert()
				return tok, nil
			}
			// When the lexer reads EOF right after a character it could not
			// accept, the character becomes an invalid token.
			if l.state.srcPtr > start.srcPtr {
				l.state = start
				return l.invalid(start), nil
			}
			return &Token{
				Row: start.row,
				Col: start.col,
				EOF: true,
			}, nil
		}
		nextState, ok := l.spec.NextState(state, c)
		if !ok {
			if tok != nil {
				l.revert()
				return tok, nil
			}
			l.state = start
			return l.invalid(start), nil
		}
		state = nextState
		if kindID, ok := l.spec.Accept(state); ok {
			tok = &Token{
				KindID: kindID,
				Lexeme: l.src[start.srcPtr:l.state.srcPtr],
				Row:    start.row,
				Col:    start.col,
			}
			l.accept()
		}
	}
}

func (l *Lexer) invalid(start lexerState) *Token {
	l.read()
	lexeme := make([]byte, l.state.srcPtr-start.srcPtr)
	copy(lexeme, l.src[start.srcPtr:l.state.srcPtr])
	return &Token{
		Lexeme:  lexeme,
		Row:     start.row,
		Col:     start.col,
		Invalid: true,
	}
}

// read decodes one character. The driver treats LF as the end of lines and
// counts columns in code points.
func (l *Lexer) read() (rune, bool, error) {
	if l.state.srcPtr >= len(l.src) {
		return 0, true, nil
	}

	c, size := utf8.DecodeRune(l.src[l.state.srcPtr:])
	if c == utf8.RuneError && size <= 1 {
		if size == 0 {
			return 0, true, nil
		}
		return 0, false, fmt.Errorf("invalid UTF-8 sequence at byte %v", l.state.srcPtr)
	}
	l.state.srcPtr += size

	if c == '\n' {
		l.state.row++
		l.state.col = 0
	} else {
		l.state.col++
	}

	return c, false, nil
}

// accept saves the current state.
func (l *Lexer) accept() {
	l.lastAcceptedState = l.state
}

// revert reverts the lexer state to the last accepted state.
//
// We must not call this function consecutively.
func (l *Lexer) revert() {
	l.state = l.lastAcceptedState
}
