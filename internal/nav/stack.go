package nav

import (
	"fmt"

	"github.com/muurk/deckd/internal/config"
)

// Stack is the page navigation stack. The last element is the current page
// and the bottom is always the home page, so the stack is never empty.
//
// Stack is not safe for concurrent use; it is owned and mutated exclusively
// by the event coordinator.
type Stack struct {
	pages []string
	home  string
}

// New creates a stack positioned on the home page.
func New(home string) *Stack {
	return &Stack{
		pages: []string{home},
		home:  home,
	}
}

// Current returns the current page id.
func (s *Stack) Current() string {
	return s.pages[len(s.pages)-1]
}

// Depth returns the stack depth (always >= 1).
func (s *Stack) Depth() int {
	return len(s.pages)
}

// Push navigates to a page, validating the target against the active
// snapshot. Pushing an unknown page leaves the stack unchanged and returns
// an error; a broken config reference must not crash navigation.
func (s *Stack) Push(snap *config.Config, pageID string) error {
	if !snap.HasPage(pageID) {
		return fmt.Errorf("page not found: %q", pageID)
	}
	s.pages = append(s.pages, pageID)
	return nil
}

// Pop navigates back one page. Returns false (no-op) when already at the
// bottom of the stack.
func (s *Stack) Pop() bool {
	if len(s.pages) <= 1 {
		return false
	}
	s.pages = s.pages[:len(s.pages)-1]
	return true
}

// Home truncates the stack to the home page. Returns true if the current
// page changed.
func (s *Stack) Home() bool {
	changed := s.Current() != s.home
	s.pages = append(s.pages[:0], s.home)
	return changed
}

// Prune reconciles the stack with a new snapshot: the home page is replaced
// by the snapshot's, and every entry referencing a page absent from the
// snapshot is dropped. Surviving entries keep their position, so the current
// page only changes when it was itself removed. If nothing survives, the
// stack collapses to the new home page. Returns true if the current page
// changed.
func (s *Stack) Prune(snap *config.Config) bool {
	current := s.Current()
	s.home = snap.Deckd.HomePage

	kept := s.pages[:0]
	for _, id := range s.pages {
		if snap.HasPage(id) {
			kept = append(kept, id)
		}
	}
	switch {
	case len(kept) == 0:
		kept = append(kept, s.home)
	case kept[0] != s.home:
		// The new home anchors the bottom so Back always terminates there,
		// without displacing any surviving entry.
		kept = append([]string{s.home}, kept...)
	}
	s.pages = kept
	return s.Current() != current
}
