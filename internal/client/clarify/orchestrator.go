// Package clarify batches definition requests for pending terms, applies
// quota gating, merges results back into term records, and tolerates
// partial results: a term the service did not define simply stays pending.
package clarify

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"unicode/utf8"

	"github.com/clarifio/clarifio/internal/client/models"
	"github.com/clarifio/clarifio/internal/common"
	"github.com/clarifio/clarifio/internal/logging"
)

// ErrInFlight rejects a clarification for a session that already has one
// running. The UI disables its trigger while loading, so hitting this is
// a safety net rather than a normal path.
var ErrInFlight = errors.New("clarification already in flight for session")

// Definer is the external definition service: one call per user action,
// whole batch at once. Absence of a term in the result map means "not
// defined", not an error.
type Definer interface {
	Define(ctx context.Context, terms []string, notes, sessionID string) (map[string]string, error)
}

// TermStore persists a merged definition.
type TermStore interface {
	UpdateDefinition(ctx context.Context, termID, definition string) (*models.Term, error)
}

// QuotaTracker is the guest's single-use clarification flag.
type QuotaTracker interface {
	HasClarified(ctx context.Context) (bool, error)
	MarkClarified(ctx context.Context) error
}

// TierFunc returns the caller's tier at the moment it is invoked. The
// orchestrator calls it at gate time and again at completion, never
// relying on a snapshot captured when the UI action began.
type TierFunc func() models.Tier

// Result reports the outcome of one clarification action.
type Result struct {
	// Updated holds the terms whose definitions were merged.
	Updated []*models.Term
	// Remaining lists term texts that are still pending after the merge.
	Remaining []string
}

// Orchestrator coordinates clarification for note sessions.
type Orchestrator struct {
	definer    Definer
	store      TermStore
	quota      QuotaTracker
	tier       TierFunc
	log        logging.Logger
	notesLimit int

	mu       sync.Mutex
	inFlight map[string]bool
}

func NewOrchestrator(definer Definer, store TermStore, quota QuotaTracker, tier TierFunc, log logging.Logger) *Orchestrator {
	return &Orchestrator{
		definer:    definer,
		store:      store,
		quota:      quota,
		tier:       tier,
		log:        log,
		notesLimit: common.NotesContextLimit,
		inFlight:   make(map[string]bool),
	}
}

// ClarifyOne defines a single pending term. A term that already has a
// definition is an empty candidate set, i.e. a no-op success.
func (o *Orchestrator) ClarifyOne(ctx context.Context, session *models.NoteSession, term *models.Term) (*Result, error) {
	return o.clarify(ctx, session, []*models.Term{term})
}

// ClarifyAll defines every term in the session currently lacking a
// definition.
func (o *Orchestrator) ClarifyAll(ctx context.Context, session *models.NoteSession, terms []*models.Term) (*Result, error) {
	return o.clarify(ctx, session, terms)
}

func (o *Orchestrator) clarify(ctx context.Context, session *models.NoteSession, terms []*models.Term) (*Result, error) {
	var pending []*models.Term
	for _, t := range terms {
		if t.Pending() {
			pending = append(pending, t)
		}
	}
	if len(pending) == 0 {
		return &Result{}, nil
	}

	// Gate before any network call, against the tier as of right now.
	tierAtCall := o.tier()
	if tierAtCall == models.TierGuest {
		used, err := o.quota.HasClarified(ctx)
		if err != nil {
			return nil, err
		}
		if used {
			return nil, common.ErrQuotaExceeded
		}
	}

	if err := o.acquire(session.ID); err != nil {
		return nil, err
	}
	defer o.release(session.ID)

	texts := make([]string, 0, len(pending))
	for _, t := range pending {
		texts = append(texts, t.Term)
	}

	defs, err := o.definer.Define(ctx, texts, truncateNotes(session.Notes, o.notesLimit), session.ID)
	if err != nil {
		// Whole-batch failure: nothing merged, no quota credit, safe to
		// retry with the same still-pending terms.
		if errors.Is(err, common.ErrService) {
			return nil, fmt.Errorf("defining terms: %w", err)
		}
		return nil, fmt.Errorf("%w: %v", common.ErrService, err)
	}

	res := &Result{}
	for _, t := range pending {
		def, ok := defs[t.Term]
		if !ok || def == "" {
			res.Remaining = append(res.Remaining, t.Term)
			continue
		}
		updated, uerr := o.store.UpdateDefinition(ctx, t.ID, def)
		if uerr != nil {
			// The term stays pending and retryable; only log the detail.
			o.log.Error(ctx, "failed to store definition", "term_id", t.ID, "error", uerr)
			res.Remaining = append(res.Remaining, t.Term)
			continue
		}
		res.Updated = append(res.Updated, updated)
	}

	// The flag is written once per successful action, and only if the
	// caller is still a guest by the time the response arrived — an
	// upgrade completing mid-flight must not burn the free clarification.
	if len(res.Updated) > 0 && tierAtCall == models.TierGuest && o.tier() == models.TierGuest {
		if err := o.quota.MarkClarified(ctx); err != nil {
			o.log.Error(ctx, "failed to persist guest quota flag", "error", err)
		}
	}

	return res, nil
}

func (o *Orchestrator) acquire(sessionID string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.inFlight[sessionID] {
		return ErrInFlight
	}
	o.inFlight[sessionID] = true
	return nil
}

func (o *Orchestrator) release(sessionID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.inFlight, sessionID)
}

// truncateNotes bounds the notes context sent with a batch, cutting on a
// rune boundary so the tail is never an invalid sequence.
func truncateNotes(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := s[:limit]
	for len(cut) > 0 && !utf8.ValidString(cut) {
		cut = cut[:len(cut)-1]
	}
	return cut
}
