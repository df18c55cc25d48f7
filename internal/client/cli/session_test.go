package cli

import (
	"testing"

	"github.com/clarifio/clarifio/internal/client/autosave"
)

func TestRenderAutosave_SuppressedAfterViewCloses(t *testing.T) {
	var printed []string
	origPrint := printlnFn
	printlnFn = func(args ...any) (int, error) {
		for _, arg := range args {
			if s, ok := arg.(string); ok {
				printed = append(printed, s)
			}
		}
		return 0, nil
	}
	t.Cleanup(func() { printlnFn = origPrint })

	view := &sessionView{sessionID: "s1"}
	a := &App{}
	a.view.Store(view)

	a.renderAutosave("s1", autosave.StatusSaving)
	a.renderAutosave("s2", autosave.StatusSaving) // some other session
	view.close()
	a.renderAutosave("s1", autosave.StatusSaved)

	if len(printed) != 1 || printed[0] != "Saving..." {
		t.Fatalf("unexpected output: %v", printed)
	}
}

func TestRenderAutosave_ConcurrentWithViewTeardown(t *testing.T) {
	origPrint := printlnFn
	printlnFn = func(args ...any) (int, error) { return 0, nil }
	t.Cleanup(func() { printlnFn = origPrint })

	a := &App{}
	view := &sessionView{sessionID: "s1"}
	a.view.Store(view)

	// Status callbacks arrive on timer goroutines while the REPL
	// goroutine tears the view down; both sides must be safe under -race.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			a.renderAutosave("s1", autosave.StatusSaving)
		}
	}()

	view.close()
	a.view.Store(nil)
	<-done

	a.renderAutosave("s1", autosave.StatusSaved)
}

func TestSessionView_AliveUntilClosed(t *testing.T) {
	v := &sessionView{sessionID: "s1"}
	if !v.alive() {
		t.Fatal("new view must be alive")
	}
	v.close()
	if v.alive() {
		t.Fatal("closed view must not be alive")
	}
}
