package clarify

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/clarifio/clarifio/internal/client/models"
	"github.com/clarifio/clarifio/internal/common"
	"github.com/clarifio/clarifio/internal/logging"
	"github.com/stretchr/testify/require"
)

// ---- fakes ----

type defineCall struct {
	terms     []string
	notes     string
	sessionID string
}

type fakeDefiner struct {
	mu      sync.Mutex
	calls   []defineCall
	result  map[string]string
	err     error
	started chan struct{}
	release chan struct{}
}

func (d *fakeDefiner) Define(_ context.Context, terms []string, notes, sessionID string) (map[string]string, error) {
	d.mu.Lock()
	d.calls = append(d.calls, defineCall{terms, notes, sessionID})
	d.mu.Unlock()
	if d.started != nil {
		close(d.started)
		d.started = nil
	}
	if d.release != nil {
		<-d.release
	}
	return d.result, d.err
}

func (d *fakeDefiner) callCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.calls)
}

type fakeStore struct {
	updates map[string]string
	err     error
}

func (s *fakeStore) UpdateDefinition(_ context.Context, termID, definition string) (*models.Term, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.updates == nil {
		s.updates = make(map[string]string)
	}
	s.updates[termID] = definition
	return &models.Term{ID: termID, Definition: definition}, nil
}

type fakeQuota struct {
	used      bool
	markCalls int
}

func (q *fakeQuota) HasClarified(context.Context) (bool, error) { return q.used, nil }
func (q *fakeQuota) MarkClarified(context.Context) error {
	q.used = true
	q.markCalls++
	return nil
}

func testLogger() logging.Logger {
	var buf bytes.Buffer
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(&buf, nil)))
}

func fixedTier(t models.Tier) TierFunc { return func() models.Tier { return t } }

func session() *models.NoteSession {
	return &models.NoteSession{ID: "s1", Notes: "Euler's method approximates solutions to ODEs."}
}

func pendingTerms(texts ...string) []*models.Term {
	out := make([]*models.Term, 0, len(texts))
	for i, txt := range texts {
		out = append(out, &models.Term{ID: "t" + string(rune('1'+i)), SessionID: "s1", Term: txt})
	}
	return out
}

// ---- tests ----

func TestClarify_GuestOverQuotaNeverCallsService(t *testing.T) {
	definer := &fakeDefiner{result: map[string]string{}}
	quota := &fakeQuota{used: true}
	o := NewOrchestrator(definer, &fakeStore{}, quota, fixedTier(models.TierGuest), testLogger())

	_, err := o.ClarifyAll(context.Background(), session(), pendingTerms("Euler's method"))
	require.ErrorIs(t, err, common.ErrQuotaExceeded)
	require.Zero(t, definer.callCount())

	_, err = o.ClarifyOne(context.Background(), session(), pendingTerms("Euler's method")[0])
	require.ErrorIs(t, err, common.ErrQuotaExceeded)
	require.Zero(t, definer.callCount())
}

func TestClarify_EmptyCandidateSetIsNoOpSuccess(t *testing.T) {
	definer := &fakeDefiner{}
	o := NewOrchestrator(definer, &fakeStore{}, &fakeQuota{}, fixedTier(models.TierFree), testLogger())

	defined := &models.Term{ID: "t1", Term: "done", Definition: "already defined"}
	res, err := o.ClarifyAll(context.Background(), session(), []*models.Term{defined})
	require.NoError(t, err)
	require.Empty(t, res.Updated)
	require.Zero(t, definer.callCount())
}

func TestClarify_OneCallPerActionWithWholeBatch(t *testing.T) {
	definer := &fakeDefiner{result: map[string]string{
		"Euler's method": "A numerical technique...",
		"ODE":            "An ordinary differential equation.",
	}}
	store := &fakeStore{}
	o := NewOrchestrator(definer, store, &fakeQuota{}, fixedTier(models.TierFree), testLogger())

	res, err := o.ClarifyAll(context.Background(), session(), pendingTerms("Euler's method", "ODE"))
	require.NoError(t, err)
	require.Equal(t, 1, definer.callCount(), "one external call per user action, never one per term")
	require.Equal(t, []string{"Euler's method", "ODE"}, definer.calls[0].terms)
	require.Equal(t, "s1", definer.calls[0].sessionID)
	require.Len(t, res.Updated, 2)
	require.Len(t, store.updates, 2)
}

func TestClarify_PartialResultLeavesTermsPendingWithoutError(t *testing.T) {
	definer := &fakeDefiner{result: map[string]string{
		"alpha": "first letter",
		"beta":  "second letter",
	}}
	store := &fakeStore{}
	o := NewOrchestrator(definer, store, &fakeQuota{}, fixedTier(models.TierFree), testLogger())

	terms := pendingTerms("alpha", "beta", "gamma")
	res, err := o.ClarifyAll(context.Background(), session(), terms)
	require.NoError(t, err)
	require.Len(t, res.Updated, 2)
	require.Equal(t, []string{"gamma"}, res.Remaining)

	// A later retry sends only the still-pending term.
	terms[0].Definition = "first letter"
	terms[1].Definition = "second letter"
	_, err = o.ClarifyAll(context.Background(), session(), terms)
	require.NoError(t, err)
	require.Equal(t, 2, definer.callCount())
	require.Equal(t, []string{"gamma"}, definer.calls[1].terms)
}

func TestClarify_FullyDefinedSecondPassMakesNoCalls(t *testing.T) {
	definer := &fakeDefiner{result: map[string]string{"alpha": "a"}}
	o := NewOrchestrator(definer, &fakeStore{}, &fakeQuota{}, fixedTier(models.TierFree), testLogger())

	terms := pendingTerms("alpha")
	_, err := o.ClarifyAll(context.Background(), session(), terms)
	require.NoError(t, err)

	terms[0].Definition = "a"
	res, err := o.ClarifyAll(context.Background(), session(), terms)
	require.NoError(t, err)
	require.Empty(t, res.Updated)
	require.Equal(t, 1, definer.callCount())
}

func TestClarify_GuestQuotaMarkedExactlyOncePerBatch(t *testing.T) {
	definer := &fakeDefiner{result: map[string]string{
		"alpha": "a", "beta": "b", "gamma": "c",
	}}
	quota := &fakeQuota{}
	o := NewOrchestrator(definer, &fakeStore{}, quota, fixedTier(models.TierGuest), testLogger())

	res, err := o.ClarifyAll(context.Background(), session(), pendingTerms("alpha", "beta", "gamma"))
	require.NoError(t, err)
	require.Len(t, res.Updated, 3)
	require.Equal(t, 1, quota.markCalls)
}

func TestClarify_BatchFailureGivesNoQuotaCredit(t *testing.T) {
	definer := &fakeDefiner{err: errors.New("connection reset")}
	quota := &fakeQuota{}
	o := NewOrchestrator(definer, &fakeStore{}, quota, fixedTier(models.TierGuest), testLogger())

	_, err := o.ClarifyAll(context.Background(), session(), pendingTerms("alpha"))
	require.ErrorIs(t, err, common.ErrService)
	require.Zero(t, quota.markCalls)

	used, _ := quota.HasClarified(context.Background())
	require.False(t, used, "a failed batch must remain retryable for the guest")
}

func TestClarify_MidFlightUpgradeSkipsQuotaFlag(t *testing.T) {
	definer := &fakeDefiner{result: map[string]string{"alpha": "a"}}
	quota := &fakeQuota{}

	// Guest at gate time, paid by the time the response arrives.
	tiers := []models.Tier{models.TierGuest, models.TierPaid}
	i := 0
	tier := func() models.Tier {
		t := tiers[i]
		if i < len(tiers)-1 {
			i++
		}
		return t
	}

	o := NewOrchestrator(definer, &fakeStore{}, quota, tier, testLogger())

	res, err := o.ClarifyAll(context.Background(), session(), pendingTerms("alpha"))
	require.NoError(t, err)
	require.Len(t, res.Updated, 1)
	require.Zero(t, quota.markCalls, "an upgrade completing mid-flight must not burn the free clarification")
}

func TestClarify_SecondConcurrentCallForSameSessionRejected(t *testing.T) {
	definer := &fakeDefiner{
		result:  map[string]string{"alpha": "a"},
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	o := NewOrchestrator(definer, &fakeStore{}, &fakeQuota{}, fixedTier(models.TierFree), testLogger())

	started := definer.started
	done := make(chan error, 1)
	go func() {
		_, err := o.ClarifyAll(context.Background(), session(), pendingTerms("alpha"))
		done <- err
	}()

	<-started
	_, err := o.ClarifyAll(context.Background(), session(), pendingTerms("beta"))
	require.ErrorIs(t, err, ErrInFlight)

	close(definer.release)
	require.NoError(t, <-done)
}

func TestClarify_NotesContextIsBounded(t *testing.T) {
	definer := &fakeDefiner{result: map[string]string{}}
	o := NewOrchestrator(definer, &fakeStore{}, &fakeQuota{}, fixedTier(models.TierFree), testLogger())

	s := session()
	s.Notes = strings.Repeat("résumé ", 1000) // multi-byte runes, > 4000 bytes
	_, err := o.ClarifyAll(context.Background(), s, pendingTerms("alpha"))
	require.NoError(t, err)

	sent := definer.calls[0].notes
	require.LessOrEqual(t, len(sent), common.NotesContextLimit)
	require.True(t, strings.HasPrefix(s.Notes, sent))
}

func TestTruncateNotes_CutsOnRuneBoundary(t *testing.T) {
	s := "ααααα" // 2 bytes per rune
	got := truncateNotes(s, 5)
	require.Equal(t, "αα", got)

	require.Equal(t, "abc", truncateNotes("abc", 10))
}
