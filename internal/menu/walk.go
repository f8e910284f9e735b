package menu

import (
	"fmt"

	"github.com/atomicstack/menu-hud/internal/logging"
)

// maxDescent bounds nesting so that a remote menu referencing itself cannot
// loop forever.
const maxDescent = 64

// frame is one pending visit of a depth-first descent.
type frame[T any] struct {
	node   T
	parent Handle
	path   []string
	depth  int
	hops   int
}

// descend visits frames depth-first, preserving sibling order. visit
// returns the frames to explore beneath the one it was given; the
// protocol-specific fetching lives entirely in visit.
func descend[T any](start []frame[T], visit func(frame[T]) ([]frame[T], error)) error {
	stack := make([]frame[T], 0, len(start))
	for i := len(start) - 1; i >= 0; i-- {
		stack = append(stack, start[i])
	}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if f.hops > maxDescent {
			logging.Error(fmt.Errorf("menu nesting exceeds %d levels at %v", maxDescent, f.path))
			continue
		}
		next, err := visit(f)
		if err != nil {
			return err
		}
		for i := len(next) - 1; i >= 0; i-- {
			stack = append(stack, next[i])
		}
	}
	return nil
}
