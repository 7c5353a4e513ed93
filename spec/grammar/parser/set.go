package parser

import (
	"strconv"
	"unicode/utf8"

	"github.com/nihei9/gramc/grammar/lexical/matchset"
)

type setScanner struct {
	src string
	pos int
}

func (s *setScanner) eof() bool {
	return s.pos >= len(s.src)
}

func (s *setScanner) peek() rune {
	r, _ := utf8.DecodeRuneInString(s.src[s.pos:])
	return r
}

func (s *setScanner) next() rune {
	r, n := utf8.DecodeRuneInString(s.src[s.pos:])
	s.pos += n
	return r
}

// char reads one possibly escaped character.
func (s *setScanner) char() (rune, *SyntaxError) {
	r := s.next()
	if r != '\\' {
		return r, nil
	}
	if s.eof() {
		return 0, synErrIncompletedEscSeq
	}
	switch c := s.next(); c {
	case 'n':
		return '\n', nil
	case 't':
		return '\t', nil
	case 'r':
		return '\r', nil
	case '\\', ']', '[', '-', '^':
		return c, nil
	case 'u':
		if len(s.src)-s.pos < 4 {
			return 0, synErrIncompletedEscSeq
		}
		v, err := strconv.ParseUint(s.src[s.pos:s.pos+4], 16, 16)
		if err != nil {
			return 0, synErrInvalidEscSeq
		}
		s.pos += 4
		return rune(v), nil
	}
	return 0, synErrInvalidEscSeq
}

// parseSet turns a bracket expression such as [^a-z_] into a match set.
func parseSet(lit string) (matchset.Set, *SyntaxError) {
	if len(lit) < 2 || lit[0] != '[' || lit[len(lit)-1] != ']' {
		return matchset.Empty, synErrUnclosedSet
	}
	s := &setScanner{
		src: lit[1 : len(lit)-1],
	}
	invert := false
	if !s.eof() && s.peek() == '^' {
		s.next()
		invert = true
	}

	set := matchset.Empty
	for !s.eof() {
		from, err := s.char()
		if err != nil {
			return matchset.Empty, err
		}
		to := from
		if !s.eof() && s.peek() == '-' {
			s.next()
			if s.eof() {
				// A trailing '-' is a literal.
				if !matchset.InRange(from) {
					return matchset.Empty, synErrCharOutOfRange
				}
				set = set.Union(matchset.FromRunes(from, '-'))
				break
			}
			to, err = s.char()
			if err != nil {
				return matchset.Empty, err
			}
		}
		if !matchset.InRange(from) || !matchset.InRange(to) {
			return matchset.Empty, synErrCharOutOfRange
		}
		if from > to {
			return matchset.Empty, synErrRangeInvalidOrder
		}
		set = set.Union(matchset.Range(from, to))
	}
	if invert {
		return set.Invert(), nil
	}
	return set, nil
}
