package fsck

import (
	"strings"

	"github.com/minixfs/mfsck/pkg/minix"
)

// NameStack renders the path of the entry currently being visited, for
// diagnostics only. It never aborts on overflow; names pushed past
// minix.MaxNameDepth are simply dropped from the rendered path.
type NameStack struct {
	names []string
}

// NewNameStack returns an empty stack.
func NewNameStack() *NameStack {
	return &NameStack{names: make([]string, 0, minix.MaxNameDepth)}
}

// Push records name as the next path component, if there is room.
func (s *NameStack) Push(name string) {
	if len(s.names) >= minix.MaxNameDepth {
		return
	}
	s.names = append(s.names, name)
}

// Pop removes the most recently pushed component, if any was recorded.
func (s *NameStack) Pop() {
	if len(s.names) == 0 {
		return
	}
	s.names = s.names[:len(s.names)-1]
}

// Path renders the stack as a slash-separated path for diagnostics.
func (s *NameStack) Path() string {
	return "/" + strings.Join(s.names, "/")
}
