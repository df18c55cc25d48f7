package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"

	"github.com/clarifio/clarifio/internal/client/autosave"
	"github.com/clarifio/clarifio/internal/client/clarify"
	"github.com/clarifio/clarifio/internal/client/models"
	"github.com/clarifio/clarifio/internal/common"
)

// sessionView is the liveness handle of an open note session. Clarify
// runs asynchronously; a result arriving after the view closed is simply
// not rendered (the definitions are already persisted server-side).
type sessionView struct {
	sessionID string

	mu     sync.Mutex
	closed bool
}

func (v *sessionView) alive() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return !v.closed
}

func (v *sessionView) close() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.closed = true
}

// renderAutosave is the autosave engine's status callback. Output is
// suppressed once the view that owns the session is gone.
func (a *App) renderAutosave(sessionID string, st autosave.Status) {
	v := a.view.Load()
	if v == nil || v.sessionID != sessionID || !v.alive() {
		return
	}
	switch st {
	case autosave.StatusSaving:
		printlnFn("Saving...")
	case autosave.StatusSaved:
		printlnFn("Saved")
	}
}

// Open prompts for a session id and enters the note session view: a
// nested loop for editing notes, managing terms, and clarifying them.
func (a *App) Open(ctx context.Context) error {
	if a.course == nil {
		fmt.Println("Select a course first ('usecourse').")
		return nil
	}
	id, err := getSimpleText(a.reader, "Enter session id to open", os.Stdout)
	if err != nil {
		return err
	}
	sessions, err := a.study.ListSessions(ctx, a.course.ID)
	if err != nil {
		log.Printf("Error: %s", err.Error())
		return err
	}
	var session *models.NoteSession
	for _, s := range sessions {
		if s.ID == id {
			session = s
			break
		}
	}
	if session == nil {
		fmt.Println("No such session:", id)
		return nil
	}

	a.runSessionView(ctx, session, bufio.NewScanner(os.Stdin))
	return nil
}

func (a *App) runSessionView(ctx context.Context, session *models.NoteSession, scanner *bufio.Scanner) {
	view := &sessionView{sessionID: session.ID}
	a.view.Store(view)
	a.autosave.Track(session.ID, session.Notes)

	defer func() {
		view.close()
		a.autosave.Close(session.ID)
		a.view.Store(nil)
	}()

	fmt.Printf("Session %s. Commands: show, edit, terms, addterm, delterm, clarify, clarifyall, back\n", session.Name)

	for {
		printlnFn(fmt.Sprintf("%s > ", session.Name))
		if !scanner.Scan() {
			return
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}

		switch parts[0] {
		case "show":
			printlnFn(session.Notes)

		case "edit":
			text, err := GetMultiline(a.reader, "Enter notes", os.Stdout)
			if err != nil {
				log.Printf("Error: %s", err.Error())
				continue
			}
			session.Notes = text
			a.autosave.NotesChanged(session.ID, text)

		case "terms":
			a.listTerms(ctx, session.ID)

		case "addterm":
			a.addTerm(ctx, session.ID)

		case "delterm":
			a.removeTerm(ctx, session.ID)

		case "clarify":
			a.clarifyOne(ctx, view, session)

		case "clarifyall":
			a.clarifyAll(ctx, view, session)

		case "back", "exit":
			return

		default:
			printlnFn("Unknown command:", parts[0])
		}
	}
}

func (a *App) listTerms(ctx context.Context, sessionID string) {
	terms, err := a.study.ListTerms(ctx, sessionID)
	if err != nil {
		log.Printf("Error: %s", err.Error())
		return
	}
	if len(terms) == 0 {
		fmt.Println("No terms yet; use 'addterm'.")
		return
	}
	for _, t := range terms {
		if t.Pending() {
			fmt.Printf("%s  %s  (pending)\n", t.ID, t.Term)
		} else {
			fmt.Printf("%s  %s: %s\n", t.ID, t.Term, t.Definition)
		}
	}
}

func (a *App) addTerm(ctx context.Context, sessionID string) {
	text, err := getSimpleText(a.reader, "Enter term", os.Stdout)
	if err != nil {
		log.Printf("Error: %s", err.Error())
		return
	}
	t, err := a.study.AddTerm(ctx, sessionID, text)
	if err != nil {
		log.Printf("Error: %s", err.Error())
		return
	}
	fmt.Printf("Added term %s (%s)\n", t.Term, t.ID)
}

func (a *App) removeTerm(ctx context.Context, sessionID string) {
	id, err := getSimpleText(a.reader, "Enter term id to remove", os.Stdout)
	if err != nil {
		log.Printf("Error: %s", err.Error())
		return
	}
	if err := a.study.RemoveTerm(ctx, id); err != nil {
		log.Printf("Error: %s", err.Error())
	}
}

func (a *App) clarifyOne(ctx context.Context, view *sessionView, session *models.NoteSession) {
	id, err := getSimpleText(a.reader, "Enter term id to clarify", os.Stdout)
	if err != nil {
		log.Printf("Error: %s", err.Error())
		return
	}
	terms, err := a.study.ListTerms(ctx, session.ID)
	if err != nil {
		log.Printf("Error: %s", err.Error())
		return
	}
	for _, t := range terms {
		if t.ID == id {
			a.runClarify(ctx, view, session, func(ctx context.Context) (*clarify.Result, error) {
				return a.clarifier.ClarifyOne(ctx, session, t)
			})
			return
		}
	}
	fmt.Println("No such term:", id)
}

func (a *App) clarifyAll(ctx context.Context, view *sessionView, session *models.NoteSession) {
	terms, err := a.study.ListTerms(ctx, session.ID)
	if err != nil {
		log.Printf("Error: %s", err.Error())
		return
	}
	a.runClarify(ctx, view, session, func(ctx context.Context) (*clarify.Result, error) {
		return a.clarifier.ClarifyAll(ctx, session, terms)
	})
}

// runClarify executes one clarification action in the background so the
// view stays responsive. The result is rendered only if the view is
// still alive when it arrives.
func (a *App) runClarify(ctx context.Context, view *sessionView, session *models.NoteSession, do func(ctx context.Context) (*clarify.Result, error)) {
	printlnFn("Clarifying...")
	go func() {
		res, err := do(ctx)
		if !view.alive() {
			return
		}
		if err != nil {
			switch {
			case errors.Is(err, common.ErrQuotaExceeded):
				printlnFn("Your free clarification is used up; 'upgrade' unlocks unlimited clarifications.")
			case errors.Is(err, clarify.ErrInFlight):
				printlnFn("A clarification is already running for this session.")
			default:
				printlnFn("Clarification failed:", err.Error())
			}
			return
		}
		for _, t := range res.Updated {
			printlnFn(fmt.Sprintf("%s: %s", t.ID, t.Definition))
		}
		if len(res.Remaining) > 0 {
			printlnFn(fmt.Sprintf("Still pending: %s", strings.Join(res.Remaining, ", ")))
		}
	}()
}
