package engine

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/zaziork/photocat-client/internal/api"
	"github.com/zaziork/photocat-client/internal/dto"
	"github.com/zaziork/photocat-client/internal/models"
	"github.com/zaziork/photocat-client/internal/store"
	"github.com/zaziork/photocat-client/pkg/cache"
	appErrors "github.com/zaziork/photocat-client/pkg/errors"
)

// requester issues API requests with the per-channel single-flight
// discipline. Satisfied by *api.Client.
type requester interface {
	Execute(ctx context.Context, op api.Operation, params api.Params) (*api.Result, error)
}

// sessionGate tracks and mutates authentication state. Satisfied by
// *session.Gate.
type sessionGate interface {
	Authenticated() bool
	Credential() (models.Credential, bool)
	SetCredential(cred models.Credential)
	ClearCredential()
	OnChange(fn func(authenticated bool))
}

// Config tunes engine behaviour.
type Config struct {
	SearchDebounce time.Duration
	PageLimit      int
}

// Engine owns catalog state synchronization: it turns user intent into
// requests, reconciles responses into the record store, and reports each
// outcome through the latest-status message slot.
type Engine struct {
	client      requester
	gate        sessionGate
	store       *store.Store
	suggestions *cache.Suggestions
	validate    *validator.Validate
	logger      *zap.Logger
	cfg         Config

	status statusState
	search *debouncer
	wg     sync.WaitGroup
}

// New wires the engine to its collaborators. A gate transition to
// authenticated triggers exactly one initial record fetch.
func New(client requester, gate sessionGate, st *store.Store, suggestions *cache.Suggestions, validate *validator.Validate, logger *zap.Logger, cfg Config) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if cfg.PageLimit <= 0 {
		cfg.PageLimit = 25
	}
	RegisterSearchTermValidation(validate)

	e := &Engine{
		client:      client,
		gate:        gate,
		store:       st,
		suggestions: suggestions,
		validate:    validate,
		logger:      logger,
		cfg:         cfg,
	}
	e.search = newDebouncer(cfg.SearchDebounce, e.fireSearchFetch)

	gate.OnChange(func(authenticated bool) {
		e.store.SetAuthenticated(authenticated)
		if authenticated {
			e.GetRecords(GetRecordsOptions{})
		}
	})

	return e
}

// Store exposes the record store for snapshot reads and subscriptions.
func (e *Engine) Store() *store.Store { return e.store }

// Status returns the latest user-facing outcome.
func (e *Engine) Status() Status { return e.status.get() }

// OnStatus subscribes to status changes.
func (e *Engine) OnStatus(fn func(Status)) { e.status.subscribe(fn) }

// Wait blocks until all fired async work has completed. The debounce timer
// is not waited on; pending search fetches fire on their own schedule.
func (e *Engine) Wait() { e.wg.Wait() }

// Close cancels pending timers.
func (e *Engine) Close() { e.search.Stop() }

func (e *Engine) async(fn func()) {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		fn()
	}()
}

// GetRecordsOptions parameterises a list fetch.
type GetRecordsOptions struct {
	// Record is the working record whose meta drives the fetch; nil uses
	// the current snapshot.
	Record *models.Record
	// URL, when set, is a server-issued cursor reused verbatim.
	URL string
	// Notify controls whether a success message is published.
	Notify bool
}

// GetRecords fires an asynchronous list fetch and returns immediately.
// Outcome lands in the record store and the status slot.
func (e *Engine) GetRecords(opts GetRecordsOptions) {
	e.async(func() { _ = e.fetchRecords(context.Background(), opts) })
}

// FetchRecords is the synchronous form of GetRecords.
func (e *Engine) FetchRecords(ctx context.Context, opts GetRecordsOptions) error {
	return e.fetchRecords(ctx, opts)
}

func (e *Engine) fetchRecords(ctx context.Context, opts GetRecordsOptions) error {
	if !e.gate.Authenticated() {
		return appErrors.Clone(appErrors.ErrUnauthenticated, "")
	}

	rec := e.store.Snapshot()
	if opts.Record != nil {
		rec = *opts.Record
	}

	issuedAt := time.Now()
	res, err := e.client.Execute(ctx, api.OpFetchList, api.Params{URL: opts.URL, Meta: &rec.Meta})
	if err != nil {
		if appErrors.IsCancelled(err) {
			return nil
		}
		e.status.set("An API error has occurred", ClassError)
		e.logger.Warn("list fetch failed", zap.Error(err))
		return err
	}

	var page dto.PhotoListResponse
	if err := json.Unmarshal(res.Payload, &page); err != nil {
		e.status.set("An API error has occurred", ClassError)
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "decoding photo list")
	}

	now := time.Now().UTC()
	rec.Results = page.Results
	rec.Meta.Next = page.Next
	rec.Meta.Previous = page.Previous
	rec.Meta.LastFetchedAt = &now

	e.store.MergeFetched(rec, issuedAt)

	if opts.Notify {
		e.status.set("Records successfully retrieved!", ClassSuccess)
	}
	return nil
}

// fireSearchFetch runs when the search debounce window elapses. The snapshot
// meta already carries the latest validated term.
func (e *Engine) fireSearchFetch() {
	e.async(func() { _ = e.fetchRecords(context.Background(), GetRecordsOptions{}) })
}

// Login authenticates against the token endpoint and installs the returned
// credential. The gate transition triggers the initial record fetch.
func (e *Engine) Login(ctx context.Context, req models.LoginRequest) error {
	if err := e.validate.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid login payload")
	}

	res, err := e.client.Execute(ctx, api.OpAuthenticate, api.Params{Body: req})
	if err != nil {
		if appErrors.IsCancelled(err) {
			return nil
		}
		e.status.set("Login failed", ClassError)
		return err
	}

	var login models.LoginResponse
	if err := json.Unmarshal(res.Payload, &login); err != nil || login.Token == "" {
		e.status.set("Login failed", ClassError)
		return appErrors.Clone(appErrors.ErrServerRejected, "login response carried no token")
	}

	e.gate.SetCredential(models.Credential{Token: login.Token, Username: req.Username})
	e.status.set("Logged in", ClassSuccess)
	return nil
}

// Logout ends the remote session and always drops the local credential:
// a dead local session is the right end state whether or not the API call
// lands.
func (e *Engine) Logout(ctx context.Context) error {
	var reqErr error
	if e.gate.Authenticated() {
		_, err := e.client.Execute(ctx, api.OpEndSession, api.Params{})
		if err != nil && !appErrors.IsCancelled(err) {
			reqErr = err
		}
	}

	e.gate.ClearCredential()
	if reqErr != nil {
		e.status.set("Logout completed locally; the API could not be reached", ClassInfo)
		return reqErr
	}
	e.status.set("Logged out", ClassSuccess)
	return nil
}

// ChangePassword updates the account password for the logged-in user.
func (e *Engine) ChangePassword(ctx context.Context, req models.ChangePasswordRequest) error {
	if err := e.validate.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid change-password payload")
	}
	cred, ok := e.gate.Credential()
	if !ok {
		return appErrors.Clone(appErrors.ErrUnauthenticated, "")
	}

	_, err := e.client.Execute(ctx, api.OpChangeCredential, api.Params{Body: req, Username: cred.Username})
	if err != nil {
		if appErrors.IsCancelled(err) {
			return nil
		}
		e.status.set("Password change failed", ClassError)
		return err
	}
	e.status.set("Password changed", ClassSuccess)
	return nil
}
