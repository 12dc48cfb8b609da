package sync

import "slices"

// touched collects store row ids seen during a pass.
type touched map[uint]struct{}

func (t touched) add(ids ...uint) {
	for _, id := range ids {
		t[id] = struct{}{}
	}
}

func (t touched) merge(o touched) {
	for id := range o {
		t[id] = struct{}{}
	}
}

func (t touched) list() []uint {
	out := make([]uint, 0, len(t))
	for id := range t {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}
