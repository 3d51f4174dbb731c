package trellis

import (
	"fmt"

	"go.uber.org/zap"
)

// globalDebug mirrors the most recently set Scene debug flag so that element
// operations (which lack a Scene pointer) can check it cheaply. Only valid
// with a single Scene; multiple Scenes with differing debug modes will
// reflect whichever called SetDebugMode last.
var globalDebug bool

// debugCheckDisposed panics with a descriptive message when a disposed element
// is used in a tree operation. In release mode callers skip this entirely.
func debugCheckDisposed(e *Element, op string) {
	if e.disposed {
		panic(fmt.Sprintf("trellis debug: %s on disposed element %q", op, e.Name))
	}
}

// debugCheckTreeDepth warns if tree depth exceeds the threshold.
const debugMaxTreeDepth = 32

func debugCheckTreeDepth(e *Element) {
	depth := 0
	for p := e; p != nil; p = p.Parent {
		depth++
	}
	if depth > debugMaxTreeDepth {
		logger.Warn("trellis: tree too deep",
			zap.Int("depth", depth), zap.Int("threshold", debugMaxTreeDepth), zap.String("element", e.Name))
	}
}

// debugCheckChildCount warns if an element has more than 1000 children.
const debugMaxChildCount = 1000

func debugCheckChildCount(e *Element) {
	if len(e.children) > debugMaxChildCount {
		logger.Warn("trellis: too many children",
			zap.String("element", e.Name), zap.Int("children", len(e.children)), zap.Int("threshold", debugMaxChildCount))
	}
}

// debugReportLeaks logs bindings that still reference disposed endpoints.
// Each leak is reported once.
func (s *Scene) debugReportLeaks() {
	for _, b := range s.bindings.Leaks() {
		if _, seen := s.reportedLeaks[b]; seen {
			continue
		}
		if s.reportedLeaks == nil {
			s.reportedLeaks = make(map[*Binding]struct{})
		}
		s.reportedLeaks[b] = struct{}{}
		logger.Warn("trellis: binding references a disposed element; call Unbind",
			zap.Stringer("id", b.ID()),
			zap.Stringer("source", b.Source()),
			zap.Stringer("target", b.Target()))
	}
	for b := range s.reportedLeaks {
		if !b.IsBinding() {
			delete(s.reportedLeaks, b)
		}
	}
}
