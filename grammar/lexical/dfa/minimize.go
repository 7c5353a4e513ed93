package dfa

import (
	"sort"

	"github.com/emirpasic/gods/lists/arraylist"
	"github.com/emirpasic/gods/sets/hashset"
	"github.com/emirpasic/gods/sets/treeset"
)

// partition is the current set of blocks of Hopcroft's refinement. A block
// is named by its index in blocks, and that name keeps denoting the block's
// current contents across splits.
type partition struct {
	blocks  []*treeset.Set
	blockOf []int
}

func (p *partition) add(members []int) int {
	id := len(p.blocks)
	b := treeset.NewWithIntComparator()
	for _, s := range members {
		b.Add(s)
		p.blockOf[s] = id
	}
	p.blocks = append(p.blocks, b)
	return id
}

func (p *partition) members(id int) []int {
	vs := p.blocks[id].Values()
	ms := make([]int, len(vs))
	for i, v := range vs {
		ms[i] = v.(int)
	}
	return ms
}

// split moves moved out of block id into a new block and returns the new
// block's name.
func (p *partition) split(id int, moved []int) int {
	for _, s := range moved {
		p.blocks[id].Remove(s)
	}
	return p.add(moved)
}

// Minimize merges indistinguishable states with Hopcroft's algorithm and
// returns how many states were merged away. States of a block collapse into
// the lowest index of the block.
func (d *DFA) Minimize() int {
	n := len(d.States)
	if n == 0 {
		return 0
	}
	classCount := d.ClassCount()

	// pre[c][t] lists the states moving to t on class c.
	pre := make([][][]int, classCount)
	for c := range pre {
		pre[c] = make([][]int, n)
	}
	for s, st := range d.States {
		for c, t := range st.Next {
			if t != NoState {
				pre[c][t] = append(pre[c][t], s)
			}
		}
	}

	p := &partition{
		blockOf: make([]int, n),
	}
	{
		byAccept := map[int][]int{}
		var tags []int
		for s, st := range d.States {
			if _, ok := byAccept[st.Accept]; !ok {
				tags = append(tags, st.Accept)
			}
			byAccept[st.Accept] = append(byAccept[st.Accept], s)
		}
		sort.Ints(tags)
		for _, tag := range tags {
			p.add(byAccept[tag])
		}
	}

	// Every initial block is a splitter. The automaton is partial, so the
	// complement trick of the textbook algorithm does not apply.
	work := arraylist.New()
	inWork := hashset.New()
	for id := range p.blocks {
		work.Add(id)
		inWork.Add(id)
	}

	mark := make([]bool, n)
	for !work.Empty() {
		v, _ := work.Get(0)
		work.Remove(0)
		inWork.Remove(v)
		splitter := p.members(v.(int))

		for c := 0; c < classCount; c++ {
			var x []int
			for _, t := range splitter {
				for _, s := range pre[c][t] {
					if !mark[s] {
						mark[s] = true
						x = append(x, s)
					}
				}
			}
			if len(x) == 0 {
				continue
			}

			touched := map[int][]int{}
			var order []int
			for _, s := range x {
				b := p.blockOf[s]
				if _, ok := touched[b]; !ok {
					order = append(order, b)
				}
				touched[b] = append(touched[b], s)
			}
			for _, s := range x {
				mark[s] = false
			}
			sort.Ints(order)

			for _, y := range order {
				in := touched[y]
				size := p.blocks[y].Size()
				if len(in) == size {
					continue
				}
				z := p.split(y, in)
				switch {
				case inWork.Contains(y):
					work.Add(z)
					inWork.Add(z)
				case len(in) <= size-len(in):
					work.Add(z)
					inWork.Add(z)
				default:
					work.Add(y)
					inWork.Add(y)
				}
			}
		}
	}

	var merged []int
	rep := make([]int, n)
	for id := range p.blocks {
		ms := p.members(id)
		for _, s := range ms {
			rep[s] = ms[0]
			if s != ms[0] {
				merged = append(merged, s)
			}
		}
	}
	sort.Sort(sort.Reverse(sort.IntSlice(merged)))
	for _, s := range merged {
		d.deleteState(s, rep[s])
	}

	tracer().Debugf("minimization: %v -> %v states (%v blocks)", n, len(d.States), len(p.blocks))
	return len(merged)
}
