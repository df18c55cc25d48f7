package definitions

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/clarifio/clarifio/internal/common"
	"github.com/clarifio/clarifio/internal/logging"
	"golang.org/x/time/rate"
)

// Service fronts the Provider with validation, a server-side notes bound,
// and a global rate limit protecting the upstream model quota.
type Service struct {
	provider Provider
	limiter  *rate.Limiter
	log      logging.Logger
}

func NewService(provider Provider, rps float64, burst int, log logging.Logger) *Service {
	return &Service{
		provider: provider,
		limiter:  rate.NewLimiter(rate.Limit(rps), burst),
		log:      log,
	}
}

// Define resolves a batch of terms. Blank terms are rejected up front;
// the call blocks on the rate limiter rather than failing, so bursts
// queue instead of erroring.
func (s *Service) Define(ctx context.Context, terms []string, notes string) (map[string]string, error) {
	cleaned := make([]string, 0, len(terms))
	for _, t := range terms {
		t = strings.TrimSpace(t)
		if t != "" {
			cleaned = append(cleaned, t)
		}
	}
	if len(cleaned) == 0 {
		return nil, fmt.Errorf("%w: no terms to define", common.ErrValidation)
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: rate limit wait: %v", common.ErrService, err)
	}

	defs, err := s.provider.Define(ctx, cleaned, boundNotes(notes, common.NotesContextLimit))
	if err != nil {
		s.log.Error(ctx, "definition batch failed", "terms", len(cleaned), "error", err)
		return nil, err
	}

	// Keep only answers for terms we actually asked about.
	out := make(map[string]string, len(cleaned))
	for _, t := range cleaned {
		if d, ok := defs[t]; ok && strings.TrimSpace(d) != "" {
			out[t] = d
		}
	}
	s.log.Info(ctx, "definition batch resolved", "requested", len(cleaned), "answered", len(out))
	return out, nil
}

// boundNotes enforces the notes budget on the server too; clients already
// truncate, but the wire contract is not trusted.
func boundNotes(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	for limit > 0 && !utf8.RuneStart(s[limit]) {
		limit--
	}
	return s[:limit]
}
