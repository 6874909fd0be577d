package nav

import (
	"testing"

	"github.com/muurk/deckd/internal/config"
)

func snapshot(home string, pages ...string) *config.Config {
	cfg := &config.Config{
		Deckd: config.Deckd{HomePage: home},
		Pages: make(map[string]config.Page),
	}
	cfg.Pages[home] = config.Page{Name: home}
	for _, id := range pages {
		cfg.Pages[id] = config.Page{Name: id}
	}
	return cfg
}

func TestPushPopHome(t *testing.T) {
	snap := snapshot("home", "lights", "scenes")
	s := New("home")

	if s.Current() != "home" {
		t.Fatalf("Current() = %q, want home", s.Current())
	}

	if err := s.Push(snap, "lights"); err != nil {
		t.Fatalf("Push(lights) error = %v", err)
	}
	if err := s.Push(snap, "scenes"); err != nil {
		t.Fatalf("Push(scenes) error = %v", err)
	}
	if s.Current() != "scenes" {
		t.Errorf("Current() = %q, want scenes", s.Current())
	}
	if s.Depth() != 3 {
		t.Errorf("Depth() = %d, want 3", s.Depth())
	}

	if !s.Pop() {
		t.Error("Pop() = false, want true")
	}
	if s.Current() != "lights" {
		t.Errorf("Current() after Pop = %q, want lights", s.Current())
	}

	if !s.Home() {
		t.Error("Home() = false, want true (page changed)")
	}
	if s.Depth() != 1 {
		t.Errorf("Depth() after Home = %d, want 1", s.Depth())
	}
}

func TestPopAtBottomIsNoop(t *testing.T) {
	s := New("home")
	if s.Pop() {
		t.Error("Pop() at depth 1 = true, want false")
	}
	if s.Current() != "home" || s.Depth() != 1 {
		t.Errorf("stack changed by no-op Pop: current=%q depth=%d", s.Current(), s.Depth())
	}
}

func TestHomeAlwaysDepthOne(t *testing.T) {
	snap := snapshot("home", "a", "b", "c")
	s := New("home")
	for _, id := range []string{"a", "b", "c", "a"} {
		if err := s.Push(snap, id); err != nil {
			t.Fatalf("Push(%s) error = %v", id, err)
		}
	}
	s.Home()
	if s.Depth() != 1 {
		t.Errorf("Depth() after Home = %d, want 1", s.Depth())
	}
	if s.Current() != "home" {
		t.Errorf("Current() after Home = %q, want home", s.Current())
	}
	// Home at home is a no-op.
	if s.Home() {
		t.Error("Home() at home = true, want false")
	}
}

func TestPushUnknownPageRejected(t *testing.T) {
	snap := snapshot("home", "lights")
	s := New("home")
	if err := s.Push(snap, "nope"); err == nil {
		t.Fatal("Push(unknown page) error = nil, want error")
	}
	if s.Current() != "home" || s.Depth() != 1 {
		t.Errorf("stack changed by rejected Push: current=%q depth=%d", s.Current(), s.Depth())
	}
}

func TestPruneDropsRemovedPages(t *testing.T) {
	old := snapshot("home", "lights", "scenes")
	s := New("home")
	_ = s.Push(old, "lights")
	_ = s.Push(old, "scenes")

	// New snapshot removes "scenes" but keeps "lights".
	next := snapshot("home", "lights")
	if !s.Prune(next) {
		t.Error("Prune() = false, want true (current page was removed)")
	}
	if s.Current() != "lights" {
		t.Errorf("Current() after Prune = %q, want lights", s.Current())
	}
}

func TestPruneCollapsesToHome(t *testing.T) {
	old := snapshot("home", "lights", "scenes")
	s := New("home")
	_ = s.Push(old, "lights")
	_ = s.Push(old, "scenes")

	// New snapshot renames everything; nothing on the stack survives.
	next := snapshot("main")
	if !s.Prune(next) {
		t.Error("Prune() = false, want true")
	}
	if s.Current() != "main" {
		t.Errorf("Current() after Prune = %q, want main", s.Current())
	}
	if s.Depth() != 1 {
		t.Errorf("Depth() after Prune = %d, want 1", s.Depth())
	}
}

func TestPruneKeepsSurvivingCurrentOnHomeSwap(t *testing.T) {
	old := snapshot("home", "lights")
	s := New("home")
	_ = s.Push(old, "lights")

	// Reload removes the old home page and names a new one; the surviving
	// current page must stay current, with the new home underneath it.
	next := snapshot("main", "lights")
	if s.Prune(next) {
		t.Error("Prune() = true, want false (current page survived)")
	}
	if s.Current() != "lights" {
		t.Errorf("Current() after Prune = %q, want lights", s.Current())
	}
	if !s.Pop() {
		t.Fatal("Pop() = false, want true")
	}
	if s.Current() != "main" {
		t.Errorf("Current() after Pop = %q, want main (new home at bottom)", s.Current())
	}
}

func TestPruneKeepsValidStack(t *testing.T) {
	snap := snapshot("home", "lights")
	s := New("home")
	_ = s.Push(snap, "lights")

	if s.Prune(snap) {
		t.Error("Prune() with unchanged snapshot = true, want false")
	}
	if s.Current() != "lights" || s.Depth() != 2 {
		t.Errorf("stack changed by Prune: current=%q depth=%d", s.Current(), s.Depth())
	}
}
