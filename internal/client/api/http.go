package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/clarifio/clarifio/internal/client/models"
	"github.com/clarifio/clarifio/internal/client/repositories/metadata"
	"github.com/clarifio/clarifio/internal/common"
)

// Metadata keys under which the current token pair is persisted so a
// restarted process can resume its identity session.
const (
	accessTokenKey  = "access_token"
	refreshTokenKey = "refresh_token"
)

// HTTPClient implements Client over the backend's JSON API.
type HTTPClient struct {
	baseURL string
	http    *http.Client
	tokens  metadata.Repository

	accessToken  string
	refreshToken string
}

// NewHTTPClient builds a client for the backend at baseURL. Token state is
// persisted through tokens, usually the local metadata repository.
func NewHTTPClient(baseURL string, tokens metadata.Repository, timeout time.Duration) *HTTPClient {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &HTTPClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		tokens:  tokens,
	}
}

func (c *HTTPClient) Close() error { return nil }

// identityPayload is the wire form of an identity plus, on session-creating
// calls, the token pair.
type identityPayload struct {
	Identity struct {
		ID    string `json:"id"`
		Kind  string `json:"kind"`
		Email string `json:"email"`
	} `json:"identity"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

func (p *identityPayload) toModel() *models.Identity {
	return &models.Identity{
		ID:    p.Identity.ID,
		Kind:  models.IdentityKind(p.Identity.Kind),
		Email: p.Identity.Email,
	}
}

type errorPayload struct {
	Error string `json:"error"`
}

// do performs one JSON request. A nil out skips response decoding. When
// authed is set the current access token is attached and a single refresh
// attempt is made on 401 before giving up.
func (c *HTTPClient) do(ctx context.Context, method, path string, body, out any, authed bool) error {
	err := c.doOnce(ctx, method, path, body, out, authed)
	if authed && errors.Is(err, common.ErrUnauthorized) && c.refreshToken != "" {
		if rerr := c.refresh(ctx); rerr == nil {
			err = c.doOnce(ctx, method, path, body, out, authed)
		}
	}
	return err
}

func (c *HTTPClient) doOnce(ctx context.Context, method, path string, body, out any, authed bool) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if authed && c.accessToken != "" {
		req.Header.Set(common.AccessTokenHeaderName, "Bearer "+c.accessToken)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return common.ErrUnauthorized
	}
	if resp.StatusCode == http.StatusNotFound {
		return common.ErrNotFound
	}
	if resp.StatusCode >= 400 {
		var ep errorPayload
		if jerr := json.NewDecoder(resp.Body).Decode(&ep); jerr == nil && ep.Error != "" {
			return fmt.Errorf("%w: %s", common.ErrService, ep.Error)
		}
		return fmt.Errorf("%w: status %d", common.ErrService, resp.StatusCode)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decoding response: %v", common.ErrService, err)
	}
	return nil
}

// authError reshapes a failed credential call so the provider's message
// passes through verbatim over the ErrAuth sentinel.
func authError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrUnavailable) || errors.Is(err, common.ErrUnauthorized) {
		return err
	}
	return fmt.Errorf("%w: %s", common.ErrAuth, err.Error())
}

func (c *HTTPClient) adoptTokens(ctx context.Context, p *identityPayload) {
	if p.AccessToken == "" {
		return
	}
	c.accessToken = p.AccessToken
	c.refreshToken = p.RefreshToken
	_ = c.tokens.Set(ctx, accessTokenKey, []byte(p.AccessToken))
	_ = c.tokens.Set(ctx, refreshTokenKey, []byte(p.RefreshToken))
}

func (c *HTTPClient) dropTokens(ctx context.Context) {
	c.accessToken = ""
	c.refreshToken = ""
	_ = c.tokens.Delete(ctx, accessTokenKey)
	_ = c.tokens.Delete(ctx, refreshTokenKey)
}

func (c *HTTPClient) refresh(ctx context.Context) error {
	var p identityPayload
	err := c.doOnce(ctx, http.MethodPost, "/v1/auth/refresh",
		map[string]string{"refresh_token": c.refreshToken}, &p, false)
	if err != nil {
		return err
	}
	c.adoptTokens(ctx, &p)
	return nil
}

// ---- identity ----

func (c *HTTPClient) SignInAnonymously(ctx context.Context) (*models.Identity, error) {
	var p identityPayload
	if err := c.do(ctx, http.MethodPost, "/v1/auth/anonymous", nil, &p, false); err != nil {
		return nil, authError(err)
	}
	c.adoptTokens(ctx, &p)
	return p.toModel(), nil
}

func (c *HTTPClient) SignIn(ctx context.Context, email string, password []byte) (*models.Identity, error) {
	body := map[string]string{"email": email, "password": string(password)}
	var p identityPayload
	if err := c.do(ctx, http.MethodPost, "/v1/auth/signin", body, &p, false); err != nil {
		return nil, authError(err)
	}
	c.adoptTokens(ctx, &p)
	return p.toModel(), nil
}

func (c *HTTPClient) SignUp(ctx context.Context, email string, password []byte) error {
	body := map[string]string{"email": email, "password": string(password)}
	if err := c.do(ctx, http.MethodPost, "/v1/auth/signup", body, nil, false); err != nil {
		return authError(err)
	}
	return nil
}

func (c *HTTPClient) LinkCredential(ctx context.Context, email string, password []byte) (*models.Identity, error) {
	body := map[string]string{"email": email, "password": string(password)}
	var p identityPayload
	if err := c.do(ctx, http.MethodPost, "/v1/auth/link", body, &p, true); err != nil {
		return nil, authError(err)
	}
	return p.toModel(), nil
}

func (c *HTTPClient) SignOut(ctx context.Context) error {
	err := c.do(ctx, http.MethodPost, "/v1/auth/signout",
		map[string]string{"refresh_token": c.refreshToken}, nil, true)
	// Local tokens are dropped even if the server-side revoke failed:
	// the caller is getting a fresh anonymous identity either way.
	c.dropTokens(ctx)
	return err
}

// RestoreSession resumes the identity session persisted by a previous run.
// ErrNoStoredTokens means there is nothing to resume and the caller should
// create an anonymous identity instead.
func (c *HTTPClient) RestoreSession(ctx context.Context) (*models.Identity, error) {
	access, err := c.tokens.Get(ctx, accessTokenKey)
	if err != nil {
		return nil, err
	}
	refresh, err := c.tokens.Get(ctx, refreshTokenKey)
	if err != nil {
		return nil, err
	}
	if len(access) == 0 {
		return nil, ErrNoStoredTokens
	}
	c.accessToken = string(access)
	c.refreshToken = string(refresh)

	var p identityPayload
	if err := c.do(ctx, http.MethodGet, "/v1/auth/session", nil, &p, true); err != nil {
		if errors.Is(err, common.ErrUnauthorized) {
			c.dropTokens(ctx)
			return nil, ErrNoStoredTokens
		}
		return nil, err
	}
	return p.toModel(), nil
}

// ---- records ----

func (c *HTTPClient) CreateProgram(ctx context.Context, name string) (*models.Program, error) {
	var out models.Program
	err := c.do(ctx, http.MethodPost, "/v1/programs", map[string]string{"name": name}, &out, true)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) ListPrograms(ctx context.Context) ([]*models.Program, error) {
	var out []*models.Program
	if err := c.do(ctx, http.MethodGet, "/v1/programs", nil, &out, true); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPClient) DeleteProgram(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/v1/programs/"+id, nil, nil, true)
}

func (c *HTTPClient) CreateCourse(ctx context.Context, programID, name string) (*models.Course, error) {
	var out models.Course
	err := c.do(ctx, http.MethodPost, "/v1/courses",
		map[string]string{"program_id": programID, "name": name}, &out, true)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) ListCourses(ctx context.Context, programID string) ([]*models.Course, error) {
	var out []*models.Course
	if err := c.do(ctx, http.MethodGet, "/v1/courses?program_id="+programID, nil, &out, true); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPClient) DeleteCourse(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/v1/courses/"+id, nil, nil, true)
}

func (c *HTTPClient) CreateSession(ctx context.Context, courseID, name string) (*models.NoteSession, error) {
	var out models.NoteSession
	err := c.do(ctx, http.MethodPost, "/v1/sessions",
		map[string]string{"course_id": courseID, "name": name}, &out, true)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) ListSessions(ctx context.Context, courseID string) ([]*models.NoteSession, error) {
	var out []*models.NoteSession
	if err := c.do(ctx, http.MethodGet, "/v1/sessions?course_id="+courseID, nil, &out, true); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPClient) SaveNotes(ctx context.Context, sessionID, notes string, updatedAt time.Time) error {
	body := map[string]any{"notes": notes, "updated_at": updatedAt.UTC().Format(time.RFC3339Nano)}
	return c.do(ctx, http.MethodPatch, "/v1/sessions/"+sessionID, body, nil, true)
}

func (c *HTTPClient) DeleteSession(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/v1/sessions/"+id, nil, nil, true)
}

func (c *HTTPClient) CreateTerm(ctx context.Context, sessionID, term string) (*models.Term, error) {
	var out models.Term
	err := c.do(ctx, http.MethodPost, "/v1/terms",
		map[string]string{"session_id": sessionID, "term": term}, &out, true)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) ListTerms(ctx context.Context, sessionID string) ([]*models.Term, error) {
	var out []*models.Term
	if err := c.do(ctx, http.MethodGet, "/v1/terms?session_id="+sessionID, nil, &out, true); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPClient) UpdateDefinition(ctx context.Context, termID, definition string) (*models.Term, error) {
	var out models.Term
	err := c.do(ctx, http.MethodPatch, "/v1/terms/"+termID,
		map[string]string{"definition": definition}, &out, true)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) DeleteTerm(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/v1/terms/"+id, nil, nil, true)
}

// ---- billing ----

// GetSubscription returns nil without error when the identity has no
// subscription record.
func (c *HTTPClient) GetSubscription(ctx context.Context) (*models.Subscription, error) {
	var out models.Subscription
	err := c.do(ctx, http.MethodGet, "/v1/subscription", nil, &out, true)
	if errors.Is(err, common.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if out.UserID == "" {
		return nil, nil
	}
	return &out, nil
}

func (c *HTTPClient) CreateCheckout(ctx context.Context, plan, email string) (string, error) {
	var out struct {
		URL string `json:"url"`
	}
	err := c.do(ctx, http.MethodPost, "/v1/billing/checkout",
		map[string]string{"plan": plan, "email": email}, &out, true)
	if err != nil {
		return "", err
	}
	return out.URL, nil
}

func (c *HTTPClient) VerifyPayment(ctx context.Context, checkoutSessionID string) (bool, error) {
	var out struct {
		Verified bool `json:"verified"`
	}
	err := c.do(ctx, http.MethodPost, "/v1/billing/verify",
		map[string]string{"session_id": checkoutSessionID}, &out, true)
	if err != nil {
		return false, err
	}
	return out.Verified, nil
}

// ---- definitions ----

type clarifyRequest struct {
	Terms     []string `json:"terms"`
	Notes     string   `json:"notes"`
	SessionID string   `json:"sessionId,omitempty"`
}

// Define sends the whole batch in one call. A non-2xx or non-JSON response
// is a hard failure for the batch.
func (c *HTTPClient) Define(ctx context.Context, terms []string, notes, sessionID string) (map[string]string, error) {
	out := make(map[string]string)
	req := clarifyRequest{Terms: terms, Notes: notes, SessionID: sessionID}
	if err := c.do(ctx, http.MethodPost, "/v1/clarify", req, &out, true); err != nil {
		return nil, err
	}
	return out, nil
}

var _ Client = (*HTTPClient)(nil)
