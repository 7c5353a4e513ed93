// Package matchset implements the character sets used as edge labels of the
// lexical automata. A set is one of four variants (a single character, a
// bitset, the empty set and the universal set) over the 16-bit character
// space. Every set returned by this package is reduced, so sets accepting the
// same characters compare equal and hash identically whatever their variant.
package matchset

import (
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"math/bits"
	"strings"
)

const (
	// MaxChar is the largest character a set can hold.
	MaxChar = 0xFFFF

	charCount = MaxChar + 1
	wordCount = charCount / 64
)

// Kind identifies the variant of a Set.
type Kind uint8

const (
	KindEmpty Kind = iota
	KindSingle
	KindBits
	KindAll
)

func (k Kind) String() string {
	switch k {
	case KindEmpty:
		return "empty"
	case KindSingle:
		return "single"
	case KindBits:
		return "bits"
	case KindAll:
		return "all"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

type bitset [wordCount]uint64

func (b *bitset) add(r rune) {
	b[r/64] |= 1 << uint(r%64)
}

func (b *bitset) has(r rune) bool {
	return b[r/64]&(1<<uint(r%64)) != 0
}

func (b *bitset) count() int {
	n := 0
	for _, w := range b {
		n += bits.OnesCount64(w)
	}
	return n
}

func (b *bitset) complement() *bitset {
	c := &bitset{}
	for i, w := range b {
		c[i] = ^w
	}
	return c
}

// first returns the lowest member. It must not be called on an empty bitset.
func (b *bitset) first() rune {
	for i, w := range b {
		if w != 0 {
			return rune(i*64 + bits.TrailingZeros64(w))
		}
	}
	panic("matchset: first member of an empty bitset")
}

// Set is an immutable set of characters. The zero value is the empty set.
//
// For KindBits, `bits` holds the members when `inverted` is false and the
// non-members when it is true. A reduced bitset always stores the polarity
// with at most half of the character space set.
type Set struct {
	kind     Kind
	ch       rune
	inverted bool
	bits     *bitset
}

var (
	// Empty matches no character.
	Empty = Set{kind: KindEmpty}

	// All matches every character of the 16-bit space.
	All = Set{kind: KindAll}
)

// InRange reports whether r lies in the character space.
func InRange(r rune) bool {
	return r >= 0 && r <= MaxChar
}

// Single returns a set containing only r.
func Single(r rune) Set {
	mustInRange(r)
	return Set{kind: KindSingle, ch: r}
}

// Range returns a set containing every character from `from` to `to`
// inclusive.
func Range(from, to rune) Set {
	mustInRange(from)
	mustInRange(to)
	if from > to {
		panic(fmt.Sprintf("matchset: invalid range [%U-%U]", from, to))
	}
	b := &bitset{}
	for r := from; r <= to; r++ {
		b.add(r)
	}
	return fromBits(b)
}

// FromRunes returns a set containing the given characters.
func FromRunes(rs ...rune) Set {
	b := &bitset{}
	for _, r := range rs {
		mustInRange(r)
		b.add(r)
	}
	return fromBits(b)
}

func mustInRange(r rune) {
	if !InRange(r) {
		panic(fmt.Sprintf("matchset: character out of range: %U", r))
	}
}

// fromBits builds the canonical set of the members of b. b must not be
// mutated afterwards.
func fromBits(b *bitset) Set {
	n := b.count()
	switch {
	case n == 0:
		return Empty
	case n == charCount:
		return All
	case n == 1:
		return Set{kind: KindSingle, ch: b.first()}
	case n > charCount/2:
		return Set{kind: KindBits, inverted: true, bits: b.complement()}
	}
	return Set{kind: KindBits, bits: b}
}

// members returns a fresh bitset of the characters s accepts.
func (s Set) members() *bitset {
	switch s.kind {
	case KindSingle:
		b := &bitset{}
		b.add(s.ch)
		return b
	case KindBits:
		if s.inverted {
			return s.bits.complement()
		}
		b := *s.bits
		return &b
	case KindAll:
		return (&bitset{}).complement()
	}
	return &bitset{}
}

// Kind returns the variant of s.
func (s Set) Kind() Kind {
	return s.kind
}

// IsEmpty reports whether s accepts no character.
func (s Set) IsEmpty() bool {
	return s.Count() == 0
}

// Count returns the number of characters s accepts.
func (s Set) Count() int {
	switch s.kind {
	case KindSingle:
		return 1
	case KindBits:
		n := s.bits.count()
		if s.inverted {
			return charCount - n
		}
		return n
	case KindAll:
		return charCount
	}
	return 0
}

// IsMatch reports whether s accepts r.
func (s Set) IsMatch(r rune) bool {
	if !InRange(r) {
		return false
	}
	switch s.kind {
	case KindSingle:
		return s.ch == r
	case KindBits:
		return s.bits.has(r) != s.inverted
	case KindAll:
		return true
	}
	return false
}

// Reduce returns the canonical representative of s.
func (s Set) Reduce() Set {
	if s.kind != KindBits {
		return s
	}
	return fromBits(s.members())
}

// Union returns the characters accepted by s or t.
func (s Set) Union(t Set) Set {
	switch {
	case s.kind == KindEmpty:
		return t.Reduce()
	case t.kind == KindEmpty:
		return s.Reduce()
	case s.kind == KindAll || t.kind == KindAll:
		return All
	}
	b := s.members()
	o := t.members()
	for i := range b {
		b[i] |= o[i]
	}
	return fromBits(b)
}

// Intersect returns the characters accepted by both s and t. The result is
// Empty when they are disjoint.
func (s Set) Intersect(t Set) Set {
	switch {
	case s.kind == KindEmpty || t.kind == KindEmpty:
		return Empty
	case s.kind == KindAll:
		return t.Reduce()
	case t.kind == KindAll:
		return s.Reduce()
	}
	b := s.members()
	o := t.members()
	for i := range b {
		b[i] &= o[i]
	}
	return fromBits(b)
}

// Difference returns the characters accepted by s but not by t.
func (s Set) Difference(t Set) Set {
	switch {
	case s.kind == KindEmpty || t.kind == KindAll:
		return Empty
	case t.kind == KindEmpty:
		return s.Reduce()
	}
	b := s.members()
	o := t.members()
	for i := range b {
		b[i] &^= o[i]
	}
	return fromBits(b)
}

// Invert returns the complement of s within the character space.
func (s Set) Invert() Set {
	switch s.kind {
	case KindEmpty:
		return All
	case KindAll:
		return Empty
	}
	return fromBits(s.members().complement())
}

// Equal reports whether s and t accept the same characters.
func (s Set) Equal(t Set) bool {
	a := s.Reduce()
	b := t.Reduce()
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindSingle:
		return a.ch == b.ch
	case KindBits:
		return a.inverted == b.inverted && *a.bits == *b.bits
	}
	return true
}

// Hash returns a hash value consistent with Equal.
func (s Set) Hash() uint64 {
	r := s.Reduce()
	h := fnv.New64a()
	var buf [8]byte
	h.Write([]byte{byte(r.kind)})
	switch r.kind {
	case KindSingle:
		binary.LittleEndian.PutUint64(buf[:], uint64(r.ch))
		h.Write(buf[:])
	case KindBits:
		if r.inverted {
			h.Write([]byte{1})
		} else {
			h.Write([]byte{0})
		}
		for _, w := range r.bits {
			binary.LittleEndian.PutUint64(buf[:], w)
			h.Write(buf[:])
		}
	}
	return h.Sum64()
}

// CharRange is an inclusive range of characters.
type CharRange struct {
	From rune
	To   rune
}

// Ranges returns the members of s as sorted, non-adjacent ranges.
func (s Set) Ranges() []CharRange {
	switch s.kind {
	case KindEmpty:
		return nil
	case KindSingle:
		return []CharRange{{From: s.ch, To: s.ch}}
	case KindAll:
		return []CharRange{{From: 0, To: MaxChar}}
	}
	return bitsetRanges(s.members())
}

func bitsetRanges(b *bitset) []CharRange {
	var rs []CharRange
	open := false
	var from rune
	for r := rune(0); r <= MaxChar; r++ {
		if b[r/64] == 0 && r%64 == 0 {
			if open {
				rs = append(rs, CharRange{From: from, To: r - 1})
				open = false
			}
			r += 63
			continue
		}
		if b.has(r) {
			if !open {
				from = r
				open = true
			}
			continue
		}
		if open {
			rs = append(rs, CharRange{From: from, To: r - 1})
			open = false
		}
	}
	if open {
		rs = append(rs, CharRange{From: from, To: MaxChar})
	}
	return rs
}

func (s Set) String() string {
	switch s.kind {
	case KindEmpty:
		return "[]"
	case KindSingle:
		return fmt.Sprintf("%q", s.ch)
	case KindAll:
		return "."
	}
	var b strings.Builder
	b.WriteString("[")
	if s.inverted {
		b.WriteString("^")
	}
	for _, r := range bitsetRanges(s.bits) {
		writeChar(&b, r.From)
		if r.To != r.From {
			b.WriteString("-")
			writeChar(&b, r.To)
		}
	}
	b.WriteString("]")
	return b.String()
}

func writeChar(b *strings.Builder, r rune) {
	if r >= 0x21 && r <= 0x7E && r != '-' && r != '\\' && r != ']' && r != '^' {
		b.WriteRune(r)
		return
	}
	fmt.Fprintf(b, "\\u%04X", r)
}
