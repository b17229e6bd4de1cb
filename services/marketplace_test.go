package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"ecoxchange/db"
	"ecoxchange/internal/marketplace"
	"ecoxchange/internal/session"
	"ecoxchange/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubEvaluator struct {
	calls  atomic.Int32
	result models.EvaluationResult
	err    error
	gate   chan struct{} // when set, Evaluate waits for it to close
	seen   chan models.PendingFile
}

func (s *stubEvaluator) Evaluate(ctx context.Context, file models.PendingFile) (models.EvaluationResult, error) {
	s.calls.Add(1)
	if s.seen != nil {
		s.seen <- file
	}
	if s.gate != nil {
		<-s.gate
	}
	if err := ctx.Err(); err != nil {
		return models.EvaluationResult{}, err
	}
	return s.result, s.err
}

type recordingSink struct {
	mu     sync.Mutex
	events []models.MarketEvent
}

func (r *recordingSink) Publish(ctx context.Context, e models.MarketEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recordingSink) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

type slowCatalog struct {
	*StaticCatalog
}

func (c slowCatalog) Search(ctx context.Context, query string) ([]models.Listing, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

type fixture struct {
	market    *Marketplace
	evaluator *stubEvaluator
	journal   *db.MemoryJournal
	sink      *recordingSink
	id        string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ev := &stubEvaluator{result: models.EvaluationResult{CertificateType: "Solar REC", Payout: 4550}}
	journal := db.NewMemoryJournal(0)
	sink := &recordingSink{}
	m := NewMarketplace(MarketplaceOptions{
		Sessions:        session.NewMemoryRepository(0),
		Evaluator:       ev,
		Catalog:         NewStaticCatalog(models.DefaultListings()),
		Journal:         journal,
		Events:          sink,
		StartingBalance: 100000,
		CatalogTimeout:  time.Second,
	})
	id, state, err := m.SignIn(context.Background())
	require.NoError(t, err)
	require.True(t, state.SignedIn)
	return &fixture{market: m, evaluator: ev, journal: journal, sink: sink, id: id}
}

func (f *fixture) selectFile(t *testing.T) {
	t.Helper()
	_, err := f.market.SelectFile(context.Background(), f.id, models.PendingFile{Name: "solar.pdf", Data: []byte("pdf")})
	require.NoError(t, err)
}

func TestSubmitWithoutFileNeverCallsEvaluator(t *testing.T) {
	f := newFixture(t)
	state, err := f.market.Submit(context.Background(), f.id)
	assert.ErrorIs(t, err, marketplace.ErrNoFileSelected)
	assert.Equal(t, "Please select a file to upload.", state.Error)
	assert.Equal(t, int32(0), f.evaluator.calls.Load())

	stored, err := f.market.State(context.Background(), f.id)
	require.NoError(t, err)
	assert.Equal(t, models.Money(100000), stored.Balance)
	assert.Equal(t, marketplace.MsgNoFileSelected, stored.Error)
}

func TestSubmitCreditsPayout(t *testing.T) {
	f := newFixture(t)
	f.selectFile(t)

	state, err := f.market.Submit(context.Background(), f.id)
	require.NoError(t, err)
	assert.Equal(t, "$1045.50", state.Balance.String())
	assert.Equal(t, marketplace.PhaseEvaluated, state.Upload)
	assert.Equal(t, "$45.50", state.Evaluation.Payout.String())
	assert.Equal(t, int32(1), f.evaluator.calls.Load())

	txs, err := f.market.Transactions(context.Background(), f.id, 10)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, models.TransactionPayout, txs[0].Kind)
	assert.Equal(t, models.Money(104550), txs[0].BalanceAfter)
	assert.Equal(t, "Solar REC", txs[0].Reference)

	assert.Equal(t, []string{models.EventSignedIn, models.EventPayoutCredited}, f.sink.types())
}

func TestSubmitFailureLeavesBalance(t *testing.T) {
	f := newFixture(t)
	f.evaluator.err = errors.New("connection reset")
	f.selectFile(t)

	state, err := f.market.Submit(context.Background(), f.id)
	var uploadErr *UploadError
	require.ErrorAs(t, err, &uploadErr)
	assert.Equal(t, marketplace.PhaseFailed, state.Upload)
	assert.Equal(t, marketplace.MsgUploadFailed, state.Error)
	assert.Equal(t, models.Money(100000), state.Balance)

	txs, err := f.market.Transactions(context.Background(), f.id, 10)
	require.NoError(t, err)
	assert.Empty(t, txs)
	assert.Contains(t, f.sink.types(), models.EventUploadFailed)
}

func TestSubmitSurvivesCallerCancellation(t *testing.T) {
	f := newFixture(t)
	f.evaluator.gate = make(chan struct{})
	f.evaluator.seen = make(chan models.PendingFile, 1)
	f.selectFile(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := f.market.Submit(ctx, f.id)
		done <- err
	}()

	<-f.evaluator.seen
	cancel()
	close(f.evaluator.gate)
	require.NoError(t, <-done)

	state, err := f.market.State(context.Background(), f.id)
	require.NoError(t, err)
	assert.Equal(t, models.Money(104550), state.Balance)
}

func TestOneOutstandingSubmission(t *testing.T) {
	f := newFixture(t)
	f.evaluator.gate = make(chan struct{})
	f.evaluator.seen = make(chan models.PendingFile, 1)
	f.selectFile(t)

	done := make(chan error, 1)
	go func() {
		_, err := f.market.Submit(context.Background(), f.id)
		done <- err
	}()
	<-f.evaluator.seen

	state, err := f.market.State(context.Background(), f.id)
	require.NoError(t, err)
	assert.True(t, state.Submitting())

	_, err = f.market.Submit(context.Background(), f.id)
	assert.ErrorIs(t, err, marketplace.ErrSubmissionInFlight)

	// viewing the other panel while waiting is fine
	_, err = f.market.ToggleView(context.Background(), f.id)
	require.NoError(t, err)

	close(f.evaluator.gate)
	require.NoError(t, <-done)
	assert.Equal(t, int32(1), f.evaluator.calls.Load())
}

func TestEvaluatorTimeout(t *testing.T) {
	f := newFixture(t)
	f.market.evaluatorTimeout = 20 * time.Millisecond
	f.evaluator.gate = make(chan struct{})
	f.selectFile(t)

	go func() {
		time.Sleep(60 * time.Millisecond)
		close(f.evaluator.gate)
	}()
	state, err := f.market.Submit(context.Background(), f.id)
	var uploadErr *UploadError
	require.ErrorAs(t, err, &uploadErr)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, models.Money(100000), state.Balance)
}

func TestPurchaseDebitsListingPrice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for i := 0; i < 11; i++ {
		_, _, err := f.market.Purchase(ctx, f.id, "solar-1000")
		require.NoError(t, err)
	}
	_, state, err := f.market.Purchase(ctx, f.id, "wind-800")
	require.NoError(t, err)
	assert.Equal(t, models.Money(100000-11*10000-8000), state.Balance)
	assert.Equal(t, "-$180.00", state.Balance.String())

	_, _, err = f.market.Purchase(ctx, f.id, "coal-1")
	assert.ErrorIs(t, err, ErrListingNotFound)

	txs, err := f.market.Transactions(ctx, f.id, 5)
	require.NoError(t, err)
	require.Len(t, txs, 5)
	assert.Equal(t, "wind-800", txs[0].Reference)
}

func TestBalanceOnlyIncreasesThroughPayouts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.selectFile(t)

	balance := func() models.Money {
		s, err := f.market.State(ctx, f.id)
		require.NoError(t, err)
		return s.Balance
	}
	start := balance()

	_, _ = f.market.ToggleView(ctx, f.id)
	_, _ = f.market.SetView(ctx, f.id, marketplace.ViewSeller)
	_, _, _ = f.market.Search(ctx, f.id, "wind")
	f.selectFile(t)
	assert.Equal(t, start, balance())

	_, err := f.market.Submit(ctx, f.id)
	require.NoError(t, err)
	assert.Equal(t, start+4550, balance())
}

func TestToggleViewKeepsUploadState(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.selectFile(t)
	before, err := f.market.Submit(ctx, f.id)
	require.NoError(t, err)

	after, err := f.market.ToggleView(ctx, f.id)
	require.NoError(t, err)
	assert.Equal(t, marketplace.ViewBuyer, after.View)
	assert.Equal(t, before.Balance, after.Balance)
	assert.Equal(t, before.PendingFile, after.PendingFile)
	assert.Equal(t, before.Evaluation, after.Evaluation)
}

func TestSearchRecordsResults(t *testing.T) {
	f := newFixture(t)
	results, state, err := f.market.Search(context.Background(), f.id, "wind")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "wind", state.SearchQuery)
	assert.Equal(t, results, state.LastResults)
	assert.Len(t, f.market.Listings(), 2)
}

func TestSearchTimeout(t *testing.T) {
	f := newFixture(t)
	f.market.catalog = slowCatalog{NewStaticCatalog(models.DefaultListings())}
	f.market.catalogTimeout = 10 * time.Millisecond

	_, _, err := f.market.Search(context.Background(), f.id, "solar")
	assert.ErrorIs(t, err, ErrCatalogTimeout)

	state, err := f.market.State(context.Background(), f.id)
	require.NoError(t, err)
	assert.Empty(t, state.SearchQuery)
}

func TestUnknownSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.market.ToggleView(ctx, "nope")
	assert.ErrorIs(t, err, session.ErrNotFound)
	_, err = f.market.Submit(ctx, "nope")
	assert.ErrorIs(t, err, session.ErrNotFound)
	_, err = f.market.Transactions(ctx, "nope", 10)
	assert.ErrorIs(t, err, session.ErrNotFound)
}

func TestExpiredSessionsAreReleased(t *testing.T) {
	ctx := context.Background()
	repo := session.NewMemoryRepository(200 * time.Millisecond)
	journal := db.NewMemoryJournal(0)
	m := NewMarketplace(MarketplaceOptions{
		Sessions:        repo,
		Evaluator:       &stubEvaluator{},
		Catalog:         NewStaticCatalog(models.DefaultListings()),
		Journal:         journal,
		StartingBalance: 100000,
	})

	for i := 0; i < 100; i++ {
		id, _, err := m.SignIn(ctx)
		require.NoError(t, err)
		_, _, err = m.Purchase(ctx, id, "solar-1000")
		require.NoError(t, err)
	}
	assert.Equal(t, 100, repo.Len())
	assert.Equal(t, 100, journal.Sessions())

	assert.Eventually(t, func() bool {
		repo.Sweep()
		return repo.Len() == 0
	}, 2*time.Second, 20*time.Millisecond)
	assert.Equal(t, 0, journal.Sessions())
	assert.Equal(t, 0, m.locks.Len())
}

type countingObserver struct {
	mu     sync.Mutex
	states []marketplace.State
}

func (o *countingObserver) StateChanged(id string, s marketplace.State) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.states = append(o.states, s)
}

func TestObserversSeeEveryTransition(t *testing.T) {
	f := newFixture(t)
	obs := &countingObserver{}
	f.market.Observe(obs)
	f.selectFile(t)
	_, err := f.market.Submit(context.Background(), f.id)
	require.NoError(t, err)

	require.Len(t, obs.states, 3)
	assert.Equal(t, marketplace.PhaseFileSelected, obs.states[0].Upload)
	assert.Equal(t, marketplace.PhaseSubmitting, obs.states[1].Upload)
	assert.Equal(t, marketplace.PhaseEvaluated, obs.states[2].Upload)
}
