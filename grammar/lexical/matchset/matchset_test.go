package matchset

import (
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func rawBits(inverted bool, rs ...rune) Set {
	b := &bitset{}
	for _, r := range rs {
		b.add(r)
	}
	return Set{kind: KindBits, inverted: inverted, bits: b}
}

func sampleSets() map[string]Set {
	return map[string]Set{
		"empty":      Empty,
		"all":        All,
		"a":          Single('a'),
		"a-z":        Range('a', 'z'),
		"g-z":        Range('g', 'z'),
		"digits":     Range('0', '9'),
		"vowels":     FromRunes('a', 'e', 'i', 'o', 'u'),
		"not a":      Single('a').Invert(),
		"not digits": Range('0', '9').Invert(),
		"upper half": Range(0x8000, MaxChar),
	}
}

var probes = []rune{0, '0', '5', '9', 'a', 'e', 'f', 'g', 'm', 'z', 'A', 0x7FFF, 0x8000, MaxChar, MaxChar + 1, -1}

func TestSet_Laws(t *testing.T) {
	sets := sampleSets()
	for na, a := range sets {
		for nb, b := range sets {
			t.Run(fmt.Sprintf("%v|%v", na, nb), func(t *testing.T) {
				u := a.Union(b)
				i := a.Intersect(b)
				d := a.Difference(b)
				for _, c := range probes {
					if got, want := u.IsMatch(c), a.IsMatch(c) || b.IsMatch(c); got != want {
						t.Errorf("union at %U: want: %v, got: %v", c, want, got)
					}
					if got, want := i.IsMatch(c), a.IsMatch(c) && b.IsMatch(c); got != want {
						t.Errorf("intersection at %U: want: %v, got: %v", c, want, got)
					}
					if got, want := d.IsMatch(c), a.IsMatch(c) && !b.IsMatch(c); got != want {
						t.Errorf("difference at %U: want: %v, got: %v", c, want, got)
					}
				}
				if got, want := u.Count(), a.Count()+b.Count()-i.Count(); got != want {
					t.Errorf("unexpected union size; want: %v, got: %v", want, got)
				}
			})
		}
		t.Run(na, func(t *testing.T) {
			if !a.Invert().Invert().Equal(a) {
				t.Errorf("double inversion changed the set: %v", a)
			}
			if !a.Difference(a).IsEmpty() {
				t.Errorf("a difference with itself must be empty: %v", a.Difference(a))
			}
			if a.Union(a.Invert()).Kind() != KindAll {
				t.Errorf("a union with the complement must be all: %v", a.Union(a.Invert()))
			}
			r := a.Reduce()
			if !r.Equal(r.Reduce()) || r.Reduce().Kind() != r.Kind() {
				t.Errorf("reduce is not idempotent: %v", a)
			}
			for _, c := range probes {
				if InRange(c) && a.Invert().IsMatch(c) == a.IsMatch(c) {
					t.Errorf("inversion did not flip %U", c)
				}
			}
		})
	}
}

func TestSet_RepresentationIndependence(t *testing.T) {
	tests := []struct {
		caption string
		x       Set
		y       Set
		kind    Kind
	}{
		{
			caption: "a single character equals a bitset holding only that character",
			x:       Single('a'),
			y:       rawBits(false, 'a'),
			kind:    KindSingle,
		},
		{
			caption: "a range of one character is a single",
			x:       Range('a', 'a'),
			y:       FromRunes('a'),
			kind:    KindSingle,
		},
		{
			caption: "an intersection resulting in one character is a single",
			x:       Range('a', 'm').Intersect(Range('m', 'z')),
			y:       Single('m'),
			kind:    KindSingle,
		},
		{
			caption: "a one-hole set is stored inverted",
			x:       Single('a').Invert(),
			y:       All.Difference(Single('a')),
			kind:    KindBits,
		},
		{
			caption: "a saturated bitset is all",
			x:       rawBits(true),
			y:       All,
			kind:    KindAll,
		},
		{
			caption: "an empty bitset is empty",
			x:       rawBits(false),
			y:       Empty,
			kind:    KindEmpty,
		},
		{
			caption: "a direct bitset covering more than half equals its inverted form",
			x:       Range(0, 0x9000),
			y:       Range(0x9001, MaxChar).Invert(),
			kind:    KindBits,
		},
	}
	for _, tt := range tests {
		t.Run(tt.caption, func(t *testing.T) {
			if !tt.x.Equal(tt.y) || !tt.y.Equal(tt.x) {
				t.Fatalf("sets must be equal: %v, %v", tt.x, tt.y)
			}
			if tt.x.Hash() != tt.y.Hash() {
				t.Fatalf("hashes must be equal: %v, %v", tt.x.Hash(), tt.y.Hash())
			}
			if k := tt.x.Reduce().Kind(); k != tt.kind {
				t.Fatalf("unexpected kind; want: %v, got: %v", tt.kind, k)
			}
			if k := tt.y.Reduce().Kind(); k != tt.kind {
				t.Fatalf("unexpected kind; want: %v, got: %v", tt.kind, k)
			}
		})
	}
}

func TestSet_CanonicalPolarity(t *testing.T) {
	s := Range(0, 0x9000)
	if !s.inverted {
		t.Fatalf("a set covering more than half of the space must be stored inverted")
	}
	if n := s.bits.count(); n > charCount/2 {
		t.Fatalf("stored bits must not exceed half of the space; got: %v", n)
	}
	if s.Count() != 0x9001 {
		t.Fatalf("unexpected count; want: %v, got: %v", 0x9001, s.Count())
	}
}

func TestSet_NotEqual(t *testing.T) {
	if Single('a').Equal(Single('b')) {
		t.Errorf("'a' and 'b' must differ")
	}
	if Range('a', 'z').Equal(Range('a', 'y')) {
		t.Errorf("[a-z] and [a-y] must differ")
	}
	if Empty.Equal(All) {
		t.Errorf("empty and all must differ")
	}
}

func TestSet_Ranges(t *testing.T) {
	tests := []struct {
		set  Set
		want []CharRange
		str  string
	}{
		{
			set:  Empty,
			want: nil,
			str:  "[]",
		},
		{
			set:  Single('x'),
			want: []CharRange{{'x', 'x'}},
			str:  "'x'",
		},
		{
			set:  Range('a', 'c').Union(Range('x', 'z')).Union(Single('0')),
			want: []CharRange{{'0', '0'}, {'a', 'c'}, {'x', 'z'}},
			str:  "[0a-cx-z]",
		},
		{
			set:  Range('a', 'z').Invert(),
			want: []CharRange{{0, 'a' - 1}, {'z' + 1, MaxChar}},
			str:  "[^a-z]",
		},
		{
			set:  Range(60, 200),
			want: []CharRange{{60, 200}},
		},
		{
			set:  All,
			want: []CharRange{{0, MaxChar}},
			str:  ".",
		},
	}
	for _, tt := range tests {
		t.Run(tt.set.String(), func(t *testing.T) {
			if diff := cmp.Diff(tt.want, tt.set.Ranges()); diff != "" {
				t.Fatalf("unexpected ranges (-want +got):\n%s", diff)
			}
			if tt.str != "" && tt.set.String() != tt.str {
				t.Fatalf("unexpected string; want: %v, got: %v", tt.str, tt.set.String())
			}
		})
	}
}
