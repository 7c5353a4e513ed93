package parser

import (
	"io"

	"github.com/nihei9/gramc/driver/lexer"
	spec "github.com/nihei9/gramc/spec/grammar"
)

type vToken struct {
	terminalID int
	tok        *lexer.Token
}

func (t *vToken) TerminalID() int {
	return t.terminalID
}

func (t *vToken) Lexeme() []byte {
	return t.tok.Lexeme
}

func (t *vToken) EOF() bool {
	return t.tok.EOF
}

func (t *vToken) Invalid() bool {
	return t.tok.Invalid
}

func (t *vToken) Position() (int, int) {
	return t.tok.Row, t.tok.Col
}

type tokenStream struct {
	lex *lexer.Lexer
}

// NewTokenStream scans src with the lexical part of g. The kinds of g share
// their ids with its terminals, so a kind id is used as the terminal id as is.
func NewTokenStream(g *spec.CompiledGrammar, src io.Reader) (TokenStream, error) {
	lex, err := lexer.NewLexer(lexer.NewLexSpec(g.Lexical), src)
	if err != nil {
		return nil, err
	}

	return &tokenStream{
		lex: lex,
	}, nil
}

func (l *tokenStream) Next() (VToken, error) {
	tok, err := l.lex.Next()
	if err != nil {
		return nil, err
	}
	return &vToken{
		terminalID: tok.KindID.Int(),
		tok:        tok,
	}, nil
}
