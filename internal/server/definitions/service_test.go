package definitions

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/clarifio/clarifio/internal/common"
	"github.com/clarifio/clarifio/internal/logging"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	terms  []string
	notes  string
	result map[string]string
	err    error
	calls  int
}

func (f *fakeProvider) Define(_ context.Context, terms []string, notes string) (map[string]string, error) {
	f.calls++
	f.terms = terms
	f.notes = notes
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func newTestService(p Provider) *Service {
	var buf bytes.Buffer
	log := logging.NewSlogLogger(slog.New(slog.NewTextHandler(&buf, nil)))
	return NewService(p, 100, 100, log)
}

func TestDefine_EmptyBatchRejectedBeforeProvider(t *testing.T) {
	p := &fakeProvider{}
	s := newTestService(p)

	_, err := s.Define(context.Background(), []string{"", "  "}, "")
	require.ErrorIs(t, err, common.ErrValidation)
	require.Zero(t, p.calls)
}

func TestDefine_TrimsAndFiltersTerms(t *testing.T) {
	p := &fakeProvider{result: map[string]string{"limit": "A bound.", "series": "A sum."}}
	s := newTestService(p)

	got, err := s.Define(context.Background(), []string{" limit ", "", "series"}, "")
	require.NoError(t, err)
	require.Equal(t, []string{"limit", "series"}, p.terms)
	require.Equal(t, "A bound.", got["limit"])
}

func TestDefine_DropsUnrequestedAndBlankAnswers(t *testing.T) {
	p := &fakeProvider{result: map[string]string{
		"limit":    "A bound.",
		"series":   "  ",
		"intruder": "not asked for",
	}}
	s := newTestService(p)

	got, err := s.Define(context.Background(), []string{"limit", "series"}, "")
	require.NoError(t, err)
	require.Equal(t, map[string]string{"limit": "A bound."}, got)
}

func TestDefine_NotesBoundedOnRuneBoundary(t *testing.T) {
	p := &fakeProvider{result: map[string]string{}}
	s := newTestService(p)

	long := make([]byte, 0, common.NotesContextLimit+10)
	for len(long) < common.NotesContextLimit+3 {
		long = append(long, []byte("α")...) // two bytes per rune
	}

	_, err := s.Define(context.Background(), []string{"x"}, string(long))
	require.NoError(t, err)
	require.LessOrEqual(t, len(p.notes), common.NotesContextLimit)
	require.True(t, len(p.notes) >= common.NotesContextLimit-1, "should cut close to the limit")
}

func TestDefine_ProviderErrorPropagates(t *testing.T) {
	p := &fakeProvider{err: common.ErrService}
	s := newTestService(p)

	_, err := s.Define(context.Background(), []string{"x"}, "")
	require.ErrorIs(t, err, common.ErrService)
}

func TestParseDefinitions_StripsCodeFences(t *testing.T) {
	got, err := parseDefinitions("```json\n{\"limit\": \"A bound.\"}\n```")
	require.NoError(t, err)
	require.Equal(t, "A bound.", got["limit"])
}

func TestParseDefinitions_MalformedIsServiceError(t *testing.T) {
	_, err := parseDefinitions("Sorry, I cannot help with that.")
	require.ErrorIs(t, err, common.ErrService)
}
