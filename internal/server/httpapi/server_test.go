package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/clarifio/clarifio/internal/common"
	"github.com/clarifio/clarifio/internal/logging"
	"github.com/clarifio/clarifio/internal/server/billing"
	"github.com/clarifio/clarifio/internal/server/config"
	"github.com/clarifio/clarifio/internal/server/definitions"
	"github.com/clarifio/clarifio/internal/server/identity"
	"github.com/clarifio/clarifio/internal/server/models"
	"github.com/clarifio/clarifio/internal/server/records"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// ---- in-memory backends ----

type memUsers struct {
	byID map[string]*models.User
}

func (m *memUsers) Create(_ context.Context, u *models.User) (*models.User, error) {
	u.CreatedAt = time.Now()
	m.byID[u.ID] = u
	return u, nil
}

func (m *memUsers) GetByID(_ context.Context, id string) (*models.User, error) {
	u, ok := m.byID[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return u, nil
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (*models.User, error) {
	for _, u := range m.byID {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, common.ErrNotFound
}

func (m *memUsers) AttachCredential(_ context.Context, id, email string, hash []byte) error {
	u, ok := m.byID[id]
	if !ok {
		return common.ErrNotFound
	}
	u.Email = email
	u.PasswordHash = hash
	u.Anonymous = false
	u.Confirmed = true
	return nil
}

func (m *memUsers) ConfirmByToken(_ context.Context, token string) error {
	for _, u := range m.byID {
		if token != "" && u.ConfirmationToken == token {
			u.Confirmed = true
			u.ConfirmationToken = ""
			return nil
		}
	}
	return common.ErrNotFound
}

type memTokens struct {
	byToken map[string]*models.RefreshToken
}

func (m *memTokens) Create(_ context.Context, userID, token string, validity time.Duration) error {
	m.byToken[token] = &models.RefreshToken{UserID: userID, Token: token, Expires: time.Now().Add(validity)}
	return nil
}

func (m *memTokens) Get(_ context.Context, token string) (*models.RefreshToken, error) {
	rt, ok := m.byToken[token]
	if !ok {
		return nil, common.ErrNotFound
	}
	return rt, nil
}

func (m *memTokens) Delete(_ context.Context, token string) error {
	delete(m.byToken, token)
	return nil
}

func (m *memTokens) DeleteByUser(_ context.Context, userID string) error {
	for k, rt := range m.byToken {
		if rt.UserID == userID {
			delete(m.byToken, k)
		}
	}
	return nil
}

type memRecords struct {
	programs map[string]*models.Program
	courses  map[string]*models.Course
	sessions map[string]*models.NoteSession
	terms    map[string]*models.Term
}

func newMemRecords() *memRecords {
	return &memRecords{
		programs: make(map[string]*models.Program),
		courses:  make(map[string]*models.Course),
		sessions: make(map[string]*models.NoteSession),
		terms:    make(map[string]*models.Term),
	}
}

func (m *memRecords) ownsProgram(userID, id string) bool {
	p, ok := m.programs[id]
	return ok && p.UserID == userID
}

func (m *memRecords) ownsCourse(userID, id string) bool {
	c, ok := m.courses[id]
	return ok && m.ownsProgram(userID, c.ProgramID)
}

func (m *memRecords) ownsSession(userID, id string) bool {
	s, ok := m.sessions[id]
	return ok && m.ownsCourse(userID, s.CourseID)
}

func (m *memRecords) CreateProgram(_ context.Context, userID, id, name string) (*models.Program, error) {
	p := &models.Program{ID: id, UserID: userID, Name: name, CreatedAt: time.Now()}
	m.programs[id] = p
	return p, nil
}

func (m *memRecords) ListPrograms(_ context.Context, userID string) ([]*models.Program, error) {
	var out []*models.Program
	for _, p := range m.programs {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memRecords) DeleteProgram(_ context.Context, userID, id string) error {
	if !m.ownsProgram(userID, id) {
		return common.ErrNotFound
	}
	delete(m.programs, id)
	return nil
}

func (m *memRecords) CreateCourse(_ context.Context, userID, id, programID, name string) (*models.Course, error) {
	if !m.ownsProgram(userID, programID) {
		return nil, common.ErrNotFound
	}
	c := &models.Course{ID: id, ProgramID: programID, Name: name, CreatedAt: time.Now()}
	m.courses[id] = c
	return c, nil
}

func (m *memRecords) ListCourses(_ context.Context, userID, programID string) ([]*models.Course, error) {
	var out []*models.Course
	for _, c := range m.courses {
		if c.ProgramID == programID && m.ownsProgram(userID, programID) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *memRecords) DeleteCourse(_ context.Context, userID, id string) error {
	if !m.ownsCourse(userID, id) {
		return common.ErrNotFound
	}
	delete(m.courses, id)
	return nil
}

func (m *memRecords) CreateSession(_ context.Context, userID, id, courseID, name string) (*models.NoteSession, error) {
	if !m.ownsCourse(userID, courseID) {
		return nil, common.ErrNotFound
	}
	s := &models.NoteSession{ID: id, CourseID: courseID, Name: name, CreatedAt: time.Now()}
	m.sessions[id] = s
	return s, nil
}

func (m *memRecords) ListSessions(_ context.Context, userID, courseID string) ([]*models.NoteSession, error) {
	var out []*models.NoteSession
	for _, s := range m.sessions {
		if s.CourseID == courseID && m.ownsCourse(userID, courseID) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *memRecords) GetSession(_ context.Context, userID, id string) (*models.NoteSession, error) {
	if !m.ownsSession(userID, id) {
		return nil, common.ErrNotFound
	}
	return m.sessions[id], nil
}

func (m *memRecords) UpdateSessionNotes(_ context.Context, userID, id, notes string, updatedAt time.Time) error {
	if !m.ownsSession(userID, id) {
		return common.ErrNotFound
	}
	m.sessions[id].Notes = notes
	m.sessions[id].UpdatedAt = updatedAt
	return nil
}

func (m *memRecords) DeleteSession(_ context.Context, userID, id string) error {
	if !m.ownsSession(userID, id) {
		return common.ErrNotFound
	}
	delete(m.sessions, id)
	return nil
}

func (m *memRecords) CreateTerm(_ context.Context, userID, id, sessionID, term string) (*models.Term, error) {
	if !m.ownsSession(userID, sessionID) {
		return nil, common.ErrNotFound
	}
	t := &models.Term{ID: id, SessionID: sessionID, Term: term, CreatedAt: time.Now()}
	m.terms[id] = t
	return t, nil
}

func (m *memRecords) ListTerms(_ context.Context, userID, sessionID string) ([]*models.Term, error) {
	var out []*models.Term
	for _, t := range m.terms {
		if t.SessionID == sessionID && m.ownsSession(userID, sessionID) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *memRecords) UpdateTermDefinition(_ context.Context, userID, id, definition string) (*models.Term, error) {
	t, ok := m.terms[id]
	if !ok || !m.ownsSession(userID, t.SessionID) {
		return nil, common.ErrNotFound
	}
	t.Definition = definition
	return t, nil
}

func (m *memRecords) DeleteTerm(_ context.Context, userID, id string) error {
	t, ok := m.terms[id]
	if !ok || !m.ownsSession(userID, t.SessionID) {
		return common.ErrNotFound
	}
	delete(m.terms, id)
	return nil
}

type memSubs struct {
	byUser map[string]*models.Subscription
}

func (m *memSubs) Upsert(_ context.Context, sub *models.Subscription) (*models.Subscription, error) {
	if existing, ok := m.byUser[sub.UserID]; ok {
		existing.Status = sub.Status
		existing.Plan = sub.Plan
		existing.CheckoutSessionID = sub.CheckoutSessionID
		return existing, nil
	}
	cp := *sub
	m.byUser[sub.UserID] = &cp
	return &cp, nil
}

func (m *memSubs) GetByUserID(_ context.Context, userID string) (*models.Subscription, error) {
	sub, ok := m.byUser[userID]
	if !ok {
		return nil, common.ErrNotFound
	}
	return sub, nil
}

type fakeProvider struct {
	result map[string]string
	err    error
}

func (f *fakeProvider) Define(_ context.Context, _ []string, _ string) (map[string]string, error) {
	return f.result, f.err
}

type fakeOracle struct {
	session *billing.CheckoutSession
}

func (f *fakeOracle) Create(_ context.Context, _, _, _ string) (*billing.CheckoutSession, error) {
	return f.session, nil
}

func (f *fakeOracle) Retrieve(_ context.Context, _ string) (*billing.CheckoutSession, error) {
	return f.session, nil
}

// ---- harness ----

type harness struct {
	router   *gin.Engine
	provider *fakeProvider
	oracle   *fakeOracle
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.SecretKey = "test-secret"

	var buf bytes.Buffer
	log := logging.NewSlogLogger(slog.New(slog.NewTextHandler(&buf, nil)))

	users := &memUsers{byID: make(map[string]*models.User)}
	tokens := &memTokens{byToken: make(map[string]*models.RefreshToken)}
	provider := &fakeProvider{result: map[string]string{}}
	oracle := &fakeOracle{session: &billing.CheckoutSession{ID: "cs_1", URL: "https://pay.example/cs_1", Paid: true}}

	srv := NewServer(
		identity.NewService(users, tokens, cfg),
		records.NewService(newMemRecords()),
		definitions.NewService(provider, 100, 100, log),
		billing.NewService(oracle, &memSubs{byUser: make(map[string]*models.Subscription)}, cfg, log),
		cfg,
		log,
	)
	return &harness{router: srv.Router(), provider: provider, oracle: oracle}
}

func (h *harness) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	return w
}

func (h *harness) anonymous(t *testing.T) (userID, accessToken string) {
	t.Helper()
	w := h.do(t, http.MethodPost, "/v1/auth/anonymous", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var p struct {
		Identity struct {
			ID   string `json:"id"`
			Kind string `json:"kind"`
		} `json:"identity"`
		AccessToken string `json:"access_token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &p))
	require.Equal(t, "anonymous", p.Identity.Kind)
	return p.Identity.ID, p.AccessToken
}

// ---- tests ----

func TestAuth_MissingTokenIsUnauthorized(t *testing.T) {
	h := newHarness(t)

	w := h.do(t, http.MethodGet, "/v1/programs", "", nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = h.do(t, http.MethodGet, "/v1/programs", "not-a-jwt", nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAnonymous_SessionWorksEndToEnd(t *testing.T) {
	h := newHarness(t)
	_, token := h.anonymous(t)

	w := h.do(t, http.MethodPost, "/v1/programs", token, map[string]string{"name": "Calculus I"})
	require.Equal(t, http.StatusOK, w.Code)

	var program models.Program
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &program))
	require.NotEmpty(t, program.ID)
	require.Equal(t, "Calculus I", program.Name)

	w = h.do(t, http.MethodGet, "/v1/programs", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.True(t, strings.HasPrefix(strings.TrimSpace(w.Body.String()), "["))
}

func TestPrograms_EmptyListIsArrayNotNull(t *testing.T) {
	h := newHarness(t)
	_, token := h.anonymous(t)

	w := h.do(t, http.MethodGet, "/v1/programs", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "[]", strings.TrimSpace(w.Body.String()))
}

func TestPrograms_BlankNameIsBadRequest(t *testing.T) {
	h := newHarness(t)
	_, token := h.anonymous(t)

	w := h.do(t, http.MethodPost, "/v1/programs", token, map[string]string{"name": "   "})
	require.Equal(t, http.StatusBadRequest, w.Code)

	var ep struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ep))
	require.NotEmpty(t, ep.Error)
}

func TestOwnership_ForeignProgramIs404(t *testing.T) {
	h := newHarness(t)
	_, owner := h.anonymous(t)
	_, intruder := h.anonymous(t)

	w := h.do(t, http.MethodPost, "/v1/programs", owner, map[string]string{"name": "Mine"})
	require.Equal(t, http.StatusOK, w.Code)
	var program models.Program
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &program))

	w = h.do(t, http.MethodDelete, "/v1/programs/"+program.ID, intruder, nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestSaveNotes_RoundTripsClientStamp(t *testing.T) {
	h := newHarness(t)
	_, token := h.anonymous(t)

	w := h.do(t, http.MethodPost, "/v1/programs", token, map[string]string{"name": "P"})
	var program models.Program
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &program))

	w = h.do(t, http.MethodPost, "/v1/courses", token, map[string]string{"program_id": program.ID, "name": "C"})
	var course models.Course
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &course))

	w = h.do(t, http.MethodPost, "/v1/sessions", token, map[string]string{"course_id": course.ID, "name": "S"})
	var session models.NoteSession
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &session))

	stamp := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	w = h.do(t, http.MethodPatch, "/v1/sessions/"+session.ID, token,
		map[string]string{"notes": "hello", "updated_at": stamp.Format(time.RFC3339Nano)})
	require.Equal(t, http.StatusNoContent, w.Code)

	w = h.do(t, http.MethodPatch, "/v1/sessions/"+session.ID, token,
		map[string]string{"notes": "hello", "updated_at": "yesterday"})
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSignUpConfirmSignIn_OverHTTP(t *testing.T) {
	h := newHarness(t)

	w := h.do(t, http.MethodPost, "/v1/auth/signup", "",
		map[string]string{"email": "a@b.c", "password": "longenough"})
	require.Equal(t, http.StatusOK, w.Code)

	// Signing in before confirmation is a 400 with the provider message.
	w = h.do(t, http.MethodPost, "/v1/auth/signin", "",
		map[string]string{"email": "a@b.c", "password": "longenough"})
	require.Equal(t, http.StatusBadRequest, w.Code)

	// Wrong password is 401, not 400.
	w = h.do(t, http.MethodPost, "/v1/auth/signin", "",
		map[string]string{"email": "a@b.c", "password": "wrongwrong"})
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRefresh_RotatesOverHTTP(t *testing.T) {
	h := newHarness(t)

	w := h.do(t, http.MethodPost, "/v1/auth/anonymous", "", nil)
	var p struct {
		RefreshToken string `json:"refresh_token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &p))

	w = h.do(t, http.MethodPost, "/v1/auth/refresh", "", map[string]string{"refresh_token": p.RefreshToken})
	require.Equal(t, http.StatusOK, w.Code)

	// The old token was revoked by rotation.
	w = h.do(t, http.MethodPost, "/v1/auth/refresh", "", map[string]string{"refresh_token": p.RefreshToken})
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSubscription_AbsentIs404(t *testing.T) {
	h := newHarness(t)
	_, token := h.anonymous(t)

	w := h.do(t, http.MethodGet, "/v1/subscription", token, nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestBilling_CheckoutThenVerify(t *testing.T) {
	h := newHarness(t)
	userID, token := h.anonymous(t)

	w := h.do(t, http.MethodPost, "/v1/billing/checkout", token, map[string]string{"plan": "monthly"})
	require.Equal(t, http.StatusOK, w.Code)
	var checkout struct {
		URL string `json:"url"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &checkout))
	require.Equal(t, "https://pay.example/cs_1", checkout.URL)

	w = h.do(t, http.MethodPost, "/v1/billing/verify", token, map[string]string{"session_id": "cs_1"})
	require.Equal(t, http.StatusOK, w.Code)
	var verify struct {
		Verified bool `json:"verified"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &verify))
	require.True(t, verify.Verified)

	w = h.do(t, http.MethodGet, "/v1/subscription", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var sub subscriptionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &sub))
	require.Equal(t, userID, sub.UserID)
	require.Equal(t, "active", sub.Status)
	require.Equal(t, "monthly", sub.Plan)
}

func TestClarify_AnswersFlatMap(t *testing.T) {
	h := newHarness(t)
	_, token := h.anonymous(t)
	h.provider.result = map[string]string{"limit": "A bound."}

	w := h.do(t, http.MethodPost, "/v1/clarify", token,
		map[string]any{"terms": []string{"limit"}, "notes": "", "sessionId": "s1"})
	require.Equal(t, http.StatusOK, w.Code)

	out := make(map[string]string)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	require.Equal(t, "A bound.", out["limit"])
}

func TestClarify_ProviderFailureIsBadGateway(t *testing.T) {
	h := newHarness(t)
	_, token := h.anonymous(t)
	h.provider.err = common.ErrService

	w := h.do(t, http.MethodPost, "/v1/clarify", token,
		map[string]any{"terms": []string{"limit"}})
	require.Equal(t, http.StatusBadGateway, w.Code)
}
