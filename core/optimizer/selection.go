package optimizer

import (
	"github.com/kilianp07/blockplan/core/model"
	"github.com/kilianp07/blockplan/core/overlap"
)

// selection is the immutable accumulator threaded through the optimizer
// phases. Each accepted unit yields a new value.
type selection struct {
	blocks     []model.TimeBlock
	signatures map[string]struct{}
	// chosen maps an exclusive group id to the key of its chosen option.
	chosen     map[string]string
	backfilled int
}

func newSelection(pins []model.TimeBlock) selection {
	s := selection{signatures: map[string]struct{}{}, chosen: map[string]string{}}
	for _, p := range pins {
		p.Fixed = true
		s.blocks = append(s.blocks, p)
		s.signatures[p.Signature()] = struct{}{}
	}
	return s
}

// fits reports whether every block can join without overlap or duplication.
func (s selection) fits(blocks []model.TimeBlock) bool {
	for i, b := range blocks {
		if _, dup := s.signatures[b.Signature()]; dup {
			return false
		}
		if overlap.ConflictsWith(b, s.blocks) || overlap.ConflictsWith(b, blocks[:i]) {
			return false
		}
	}
	return true
}

func (s selection) hasChosen(groupID string) bool {
	_, ok := s.chosen[groupID]
	return ok
}

// with returns a copy of s extended by blocks. An empty optionKey leaves the
// exclusive bookkeeping untouched.
func (s selection) with(groupID, optionKey string, blocks []model.TimeBlock) selection {
	next := selection{
		blocks:     make([]model.TimeBlock, 0, len(s.blocks)+len(blocks)),
		signatures: make(map[string]struct{}, len(s.signatures)+len(blocks)),
		chosen:     make(map[string]string, len(s.chosen)+1),
		backfilled: s.backfilled,
	}
	next.blocks = append(append(next.blocks, s.blocks...), blocks...)
	for k := range s.signatures {
		next.signatures[k] = struct{}{}
	}
	for _, b := range blocks {
		next.signatures[b.Signature()] = struct{}{}
	}
	for k, v := range s.chosen {
		next.chosen[k] = v
	}
	if optionKey != "" {
		next.chosen[groupID] = optionKey
	}
	return next
}

func (s selection) unpinned() int {
	n := 0
	for _, b := range s.blocks {
		if !b.Fixed {
			n++
		}
	}
	return n
}
