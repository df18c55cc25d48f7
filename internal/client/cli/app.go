package cli

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"os"
	"sync/atomic"

	"github.com/clarifio/clarifio/internal/client/api"
	"github.com/clarifio/clarifio/internal/client/autosave"
	"github.com/clarifio/clarifio/internal/client/clarify"
	"github.com/clarifio/clarifio/internal/client/config"
	"github.com/clarifio/clarifio/internal/client/entitlement"
	"github.com/clarifio/clarifio/internal/client/identity"
	"github.com/clarifio/clarifio/internal/client/localdb"
	"github.com/clarifio/clarifio/internal/client/models"
	"github.com/clarifio/clarifio/internal/client/quota"
	"github.com/clarifio/clarifio/internal/client/services"
	"github.com/clarifio/clarifio/internal/logging"

	_ "modernc.org/sqlite"
)

// App holds the wired client components and the REPL's navigation state.
type App struct {
	config    *config.Config
	log       logging.Logger
	client    api.Client
	db        *sql.DB
	identity  *identity.Manager
	study     *services.StudyService
	billing   *services.BillingService
	quota     *quota.GuestQuota
	autosave  *autosave.Engine
	clarifier *clarify.Orchestrator
	reader    *bufio.Reader

	// Current navigation position; nil means "not selected".
	program *models.Program
	course  *models.Course

	// view is the open note session view, if any. Set and cleared by the
	// REPL goroutine, read by autosave timer goroutines.
	view atomic.Pointer[sessionView]

	unsubIdentity func()
}

func NewApp(c *config.Config, log logging.Logger) (*App, error) {
	ctx := context.Background()

	repos, err := localdb.Init(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("initializing local database: %w", err)
	}

	apiClient := api.NewHTTPClient(c.ServerBaseURL, repos.Metadata, c.RequestTimeout)

	idm := identity.NewManager(apiClient, log)
	gq := quota.New(repos.Metadata)
	billing := services.NewBillingService(apiClient, gq, log)
	study := services.NewStudyService(apiClient)

	tier := func() models.Tier {
		return entitlement.Derive(idm.Current(), billing.Current())
	}

	a := &App{
		config:    c,
		log:       log,
		client:    apiClient,
		db:        repos.DB,
		identity:  idm,
		study:     study,
		billing:   billing,
		quota:     gq,
		reader:    bufio.NewReader(os.Stdin),
		clarifier: clarify.NewOrchestrator(apiClient, apiClient, gq, tier, log),
	}
	a.autosave = autosave.NewEngine(study, log, autosave.WithStatusFunc(a.renderAutosave))
	a.unsubIdentity = idm.Subscribe(a.identityChanged)
	return a, nil
}

// identityChanged keeps the billing cache aligned with the active
// identity: every transition to a ready identity re-fetches the
// subscription, so entitlement derives from the account actually signed
// in. Refreshing hits the network, so it runs off the delivery goroutine.
func (a *App) identityChanged(ev identity.Event) {
	if ev.State != identity.StateReady {
		return
	}
	go func() {
		ctx := context.Background()
		if _, err := a.billing.Refresh(ctx); err != nil {
			a.log.Debug(ctx, "subscription refresh failed", "error", err)
		}
	}()
}

// Tier derives the current entitlement from the live identity and
// subscription. Never cached.
func (a *App) Tier() models.Tier {
	return entitlement.Derive(a.identity.Current(), a.billing.Current())
}

// Run resolves the startup identity and hands control to the REPL. It
// blocks until the user exits.
func (a *App) Run(ctx context.Context) {
	defer a.close()

	if _, err := a.identity.Resolve(ctx); err != nil {
		a.log.Error(ctx, "identity resolution failed", "error", err)
		fmt.Println("Could not establish an identity; use 'signin' or 'signup' to continue.")
	}

	fmt.Println("Clarifio CLI (type 'help' for commands)")
	runREPL(ctx, a, a.status, bufio.NewScanner(os.Stdin))
}

func (a *App) close() {
	if a.unsubIdentity != nil {
		a.unsubIdentity()
	}
	if a.client != nil {
		_ = a.client.Close()
	}
	if a.db != nil {
		_ = a.db.Close()
	}
}

// status renders the prompt suffix: who the user is and what tier they
// are on, e.g. "(a@b.c paid)" or "(guest)".
func (a *App) status() string {
	id := a.identity.Current()
	who := "guest"
	if id != nil && id.Email != "" {
		who = id.Email
	}
	tier := a.Tier()
	if who == string(tier) {
		return fmt.Sprintf("(%s)", who)
	}
	return fmt.Sprintf("(%s %s)", who, tier)
}
