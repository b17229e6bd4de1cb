package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ecoxchange/db"
	"ecoxchange/internal/marketplace"
	"ecoxchange/internal/session"
	"ecoxchange/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MarketplaceOptions wires a Marketplace. Journal, Events and Logger are
// optional.
type MarketplaceOptions struct {
	Sessions         session.Repository
	Evaluator        Evaluator
	Catalog          Catalog
	Journal          db.Journal
	Events           EventSink
	StartingBalance  models.Money
	EvaluatorTimeout time.Duration // zero means no timeout
	CatalogTimeout   time.Duration
	Logger           *zap.Logger
}

// Marketplace owns every session's state. Each user action is dispatched
// as a marketplace.Action under the session's lock; evaluation calls run
// outside the lock, bracketed by BeginSubmit and CompleteSubmit/FailSubmit.
type Marketplace struct {
	sessions         session.Repository
	locks            *session.Locker
	evaluator        Evaluator
	catalog          Catalog
	journal          db.Journal
	events           EventSink
	observers        []StateObserver
	startingBalance  models.Money
	evaluatorTimeout time.Duration
	catalogTimeout   time.Duration
	logger           *zap.Logger
	now              func() time.Time
}

func NewMarketplace(opts MarketplaceOptions) *Marketplace {
	m := &Marketplace{
		sessions:         opts.Sessions,
		locks:            session.NewLocker(),
		evaluator:        opts.Evaluator,
		catalog:          opts.Catalog,
		journal:          opts.Journal,
		events:           opts.Events,
		startingBalance:  opts.StartingBalance,
		evaluatorTimeout: opts.EvaluatorTimeout,
		catalogTimeout:   opts.CatalogTimeout,
		logger:           opts.Logger,
		now:              time.Now,
	}
	if m.journal == nil {
		m.journal = db.NewMemoryJournal(0)
	}
	if m.events == nil {
		m.events = Fanout{}
	}
	if m.logger == nil {
		m.logger = zap.NewNop()
	}
	if r, ok := m.sessions.(evictionNotifier); ok {
		r.OnEvict(m.sessionExpired)
	}
	return m
}

// evictionNotifier is implemented by repositories that drop expired
// sessions themselves, such as session.MemoryRepository.
type evictionNotifier interface {
	OnEvict(fn func(id string))
}

type sessionForgetter interface {
	Forget(sessionID string)
}

// sessionExpired releases what the process still holds for an expired
// session. Persistent journals keep their history.
func (m *Marketplace) sessionExpired(id string) {
	if j, ok := m.journal.(sessionForgetter); ok {
		j.Forget(id)
	}
	m.logger.Debug("session expired", zap.String("session", id))
}

// Observe registers o for state changes of every session.
func (m *Marketplace) Observe(o StateObserver) {
	m.observers = append(m.observers, o)
}

// Listings returns the fixed buyer listings.
func (m *Marketplace) Listings() []models.Listing {
	return m.catalog.Listings()
}

// SignIn creates a session and signs it in. It never fails for lack of
// credentials; there are none.
func (m *Marketplace) SignIn(ctx context.Context) (string, marketplace.State, error) {
	id := uuid.NewString()
	state, err := marketplace.Reduce(marketplace.New(m.startingBalance), marketplace.SignIn{})
	if err != nil {
		return "", marketplace.State{}, err
	}
	if err := m.sessions.Save(ctx, id, state); err != nil {
		return "", marketplace.State{}, fmt.Errorf("create session: %w", err)
	}
	m.logger.Info("session signed in", zap.String("session", id))
	m.publish(ctx, models.EventSignedIn, id, state, 0, "")
	m.notify(id, state)
	return id, state, nil
}

// State returns the session's current state.
func (m *Marketplace) State(ctx context.Context, id string) (marketplace.State, error) {
	return m.sessions.Load(ctx, id)
}

// SetView selects the buyer or seller panel.
func (m *Marketplace) SetView(ctx context.Context, id string, mode marketplace.ViewMode) (marketplace.State, error) {
	return m.dispatch(ctx, id, marketplace.SetView{Mode: mode})
}

// ToggleView flips between the buyer and seller panels.
func (m *Marketplace) ToggleView(ctx context.Context, id string) (marketplace.State, error) {
	return m.dispatch(ctx, id, marketplace.ToggleView{})
}

// SelectFile makes file the pending upload, replacing any previous one.
func (m *Marketplace) SelectFile(ctx context.Context, id string, file models.PendingFile) (marketplace.State, error) {
	if file.SelectedAt.IsZero() {
		file.SelectedAt = m.now()
	}
	if file.Size == 0 {
		file.Size = int64(len(file.Data))
	}
	return m.dispatch(ctx, id, marketplace.SelectFile{File: file})
}

// Submit sends the pending file for evaluation and credits the payout. The
// evaluation is detached from ctx's cancellation so a disconnecting caller
// cannot leave the session stuck in the submitting phase.
func (m *Marketplace) Submit(ctx context.Context, id string) (marketplace.State, error) {
	state, err := m.dispatch(ctx, id, marketplace.BeginSubmit{})
	if err != nil {
		return state, err
	}
	file := *state.PendingFile

	detached := context.WithoutCancel(ctx)
	evalCtx := detached
	if m.evaluatorTimeout > 0 {
		var cancel context.CancelFunc
		evalCtx, cancel = context.WithTimeout(detached, m.evaluatorTimeout)
		defer cancel()
	}

	log := m.logger.With(zap.String("session", id), zap.String("file", file.Name), zap.Int64("size", file.Size))
	log.Info("submitting certificate for evaluation")

	result, evalErr := m.evaluator.Evaluate(evalCtx, file)
	if evalErr != nil {
		log.Warn("certificate evaluation failed", zap.Error(evalErr))
		failed, err := m.dispatch(detached, id, marketplace.FailSubmit{})
		if err != nil {
			return failed, err
		}
		m.publish(detached, models.EventUploadFailed, id, failed, 0, file.Name)
		var uploadErr *UploadError
		if !errors.As(evalErr, &uploadErr) {
			evalErr = &UploadError{Cause: evalErr}
		}
		return failed, evalErr
	}

	evaluated, err := m.dispatch(detached, id, marketplace.CompleteSubmit{Result: result})
	if err != nil {
		log.Error("evaluation result could not be applied", zap.Error(err))
		return evaluated, err
	}
	log.Info("payout credited",
		zap.String("type", result.CertificateType),
		zap.Stringer("payout", result.Payout),
		zap.Stringer("balance", evaluated.Balance))
	m.record(detached, id, models.TransactionPayout, result.Payout, evaluated.Balance, result.CertificateType)
	m.publish(detached, models.EventPayoutCredited, id, evaluated, result.Payout, result.CertificateType)
	return evaluated, nil
}

// Search queries the catalog and records the query and its results.
func (m *Marketplace) Search(ctx context.Context, id, query string) ([]models.Listing, marketplace.State, error) {
	m.logger.Info("searching certificates", zap.String("session", id), zap.String("query", query))

	if _, err := m.sessions.Load(ctx, id); err != nil {
		return nil, marketplace.State{}, err
	}

	searchCtx := ctx
	if m.catalogTimeout > 0 {
		var cancel context.CancelFunc
		searchCtx, cancel = context.WithTimeout(ctx, m.catalogTimeout)
		defer cancel()
	}
	results, err := m.catalog.Search(searchCtx, query)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("%w: %w", ErrCatalogTimeout, err)
		}
		return nil, marketplace.State{}, fmt.Errorf("search catalog: %w", err)
	}

	state, err := m.dispatch(ctx, id, marketplace.Search{Query: query, Results: results})
	if err != nil {
		return nil, state, err
	}
	return results, state, nil
}

// Purchase debits the listing's price. There is no funds check; the
// balance may go negative.
func (m *Marketplace) Purchase(ctx context.Context, id, listingID string) (models.Listing, marketplace.State, error) {
	listing, err := m.catalog.Lookup(listingID)
	if err != nil {
		return models.Listing{}, marketplace.State{}, err
	}
	state, err := m.dispatch(ctx, id, marketplace.Purchase{Listing: listing})
	if err != nil {
		return listing, state, err
	}
	m.logger.Info("listing purchased",
		zap.String("session", id),
		zap.String("listing", listing.ID),
		zap.Stringer("price", listing.Price),
		zap.Stringer("balance", state.Balance))
	m.record(ctx, id, models.TransactionPurchase, listing.Price, state.Balance, listing.ID)
	m.publish(ctx, models.EventPurchaseDebited, id, state, listing.Price, listing.ID)
	return listing, state, nil
}

// Transactions returns the session's newest journaled balance changes.
func (m *Marketplace) Transactions(ctx context.Context, id string, limit int) ([]models.Transaction, error) {
	if _, err := m.sessions.Load(ctx, id); err != nil {
		return nil, err
	}
	return m.journal.Recent(ctx, id, limit)
}

// dispatch runs one load-reduce-save cycle under the session lock. A submit
// without a file is saved despite the error so the message shows up in the
// session's state.
func (m *Marketplace) dispatch(ctx context.Context, id string, action marketplace.Action) (marketplace.State, error) {
	unlock := m.locks.Lock(id)
	defer unlock()

	current, err := m.sessions.Load(ctx, id)
	if err != nil {
		return marketplace.State{}, err
	}
	next, reduceErr := marketplace.Reduce(current, action)
	if reduceErr != nil && !errors.Is(reduceErr, marketplace.ErrNoFileSelected) {
		return current, reduceErr
	}
	if err := m.sessions.Save(ctx, id, next); err != nil {
		return current, fmt.Errorf("save session after %s: %w", action.Name(), err)
	}
	m.logger.Debug("action applied",
		zap.String("session", id),
		zap.String("action", action.Name()),
		zap.String("upload", string(next.Upload)),
		zap.Stringer("balance", next.Balance))
	m.notify(id, next)
	return next, reduceErr
}

func (m *Marketplace) notify(id string, state marketplace.State) {
	for _, o := range m.observers {
		o.StateChanged(id, state)
	}
}

func (m *Marketplace) record(ctx context.Context, id string, kind models.TransactionKind, amount, balance models.Money, ref string) {
	tx := models.Transaction{
		ID:           uuid.NewString(),
		SessionID:    id,
		Kind:         kind,
		Amount:       amount,
		BalanceAfter: balance,
		Reference:    ref,
		CreatedAt:    m.now().UTC(),
	}
	if err := m.journal.Record(ctx, tx); err != nil {
		m.logger.Warn("failed to journal transaction", zap.String("session", id), zap.String("kind", string(kind)), zap.Error(err))
	}
}

func (m *Marketplace) publish(ctx context.Context, eventType, id string, state marketplace.State, amount models.Money, ref string) {
	m.events.Publish(ctx, models.MarketEvent{
		Type:      eventType,
		SessionID: id,
		Amount:    amount,
		Balance:   state.Balance,
		Reference: ref,
		Timestamp: m.now().UTC(),
	})
}
