package app_test

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/lessonforge/lessonforge/internal/app"
	"github.com/lessonforge/lessonforge/internal/domain"
)

func newTestBroker(repo *memRepo, dir *stubDirectory) (*app.QuoteBroker, *app.Ledger, *app.RequestLocks) {
	ledger, _, _ := newTestLedger()
	locks := app.NewRequestLocks()
	broker := app.NewQuoteBroker(repo, repo, dir, ledger, locks, zap.NewNop())
	return broker, ledger, locks
}

func seedRequest(t *testing.T, repo *memRepo, durationMinutes int) domain.LessonRequest {
	t.Helper()
	req := domain.LessonRequest{
		ID:              "r-1",
		StudentID:       "s-1",
		LessonType:      "guitar",
		StartTime:       time.Now().UTC().Add(48 * time.Hour),
		DurationMinutes: durationMinutes,
		AddressID:       "a-1",
		CreatedAt:       time.Now().UTC(),
	}
	if err := repo.CreateLessonRequest(context.Background(), req); err != nil {
		t.Fatalf("seeding request: %v", err)
	}
	return req
}

func TestGenerateQuotes_OnePerEligibleTeacher(t *testing.T) {
	repo := newMemRepo()
	seedRequest(t, repo, 60)
	dir := &stubDirectory{listings: []domain.TeacherListing{
		{TeacherID: "t-1", RatesByType: map[string]int64{"guitar": 5000}},
		{TeacherID: "t-2", RatesByType: map[string]int64{"guitar": 6000}},
		{TeacherID: "t-3", RatesByType: map[string]int64{"piano": 7000}}, // no guitar rate
	}}
	broker, ledger, _ := newTestBroker(repo, dir)

	quotes, err := broker.GenerateQuotes(context.Background(), "r-1")
	if err != nil {
		t.Fatalf("GenerateQuotes failed: %v", err)
	}
	if len(quotes) != 2 {
		t.Fatalf("got %d quotes, want 2 (teacher without a guitar rate is skipped)", len(quotes))
	}

	costs := map[string]int64{}
	for _, q := range quotes {
		costs[q.TeacherID] = q.CostCents

		status, err := ledger.CurrentStatus(context.Background(), domain.EntityQuote, q.ID)
		if err != nil {
			t.Fatalf("quote %s not registered in ledger: %v", q.ID, err)
		}
		if status != domain.QuoteCreated {
			t.Errorf("quote %s status = %q, want %q", q.ID, status, domain.QuoteCreated)
		}
		if want := q.CreatedAt.Add(domain.QuoteTTL); !q.ExpiresAt.Equal(want) {
			t.Errorf("quote %s ExpiresAt = %v, want %v", q.ID, q.ExpiresAt, want)
		}
	}

	if costs["t-1"] != 5000 {
		t.Errorf("t-1 cost = %d, want 5000", costs["t-1"])
	}
	if costs["t-2"] != 6000 {
		t.Errorf("t-2 cost = %d, want 6000", costs["t-2"])
	}
}

func TestGenerateQuotes_HalfHourCost(t *testing.T) {
	repo := newMemRepo()
	seedRequest(t, repo, 30)
	dir := &stubDirectory{listings: []domain.TeacherListing{
		{TeacherID: "t-1", RatesByType: map[string]int64{"guitar": 5000}},
	}}
	broker, _, _ := newTestBroker(repo, dir)

	quotes, err := broker.GenerateQuotes(context.Background(), "r-1")
	if err != nil {
		t.Fatalf("GenerateQuotes failed: %v", err)
	}
	if len(quotes) != 1 {
		t.Fatalf("got %d quotes, want 1", len(quotes))
	}
	if quotes[0].CostCents != 2500 {
		t.Errorf("cost = %d, want 2500", quotes[0].CostCents)
	}
}

func TestGenerateQuotes_Idempotent(t *testing.T) {
	repo := newMemRepo()
	seedRequest(t, repo, 60)
	dir := &stubDirectory{listings: []domain.TeacherListing{
		{TeacherID: "t-1", RatesByType: map[string]int64{"guitar": 5000}},
		{TeacherID: "t-2", RatesByType: map[string]int64{"guitar": 6000}},
	}}
	broker, _, _ := newTestBroker(repo, dir)
	ctx := context.Background()

	first, err := broker.GenerateQuotes(ctx, "r-1")
	if err != nil {
		t.Fatalf("first GenerateQuotes failed: %v", err)
	}
	second, err := broker.GenerateQuotes(ctx, "r-1")
	if err != nil {
		t.Fatalf("second GenerateQuotes failed: %v", err)
	}

	if len(second) != len(first) {
		t.Fatalf("second call returned %d quotes, want %d", len(second), len(first))
	}

	ids := func(qs []domain.Quote) []string {
		out := make([]string, len(qs))
		for i, q := range qs {
			out[i] = q.ID
		}
		sort.Strings(out)
		return out
	}
	a, b := ids(first), ids(second)
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("second call returned different quotes: %v vs %v", a, b)
		}
	}
}

func TestGenerateQuotes_DeduplicatesDirectory(t *testing.T) {
	repo := newMemRepo()
	seedRequest(t, repo, 60)
	// Directory returns the same teacher twice.
	dir := &stubDirectory{listings: []domain.TeacherListing{
		{TeacherID: "t-1", RatesByType: map[string]int64{"guitar": 5000}},
		{TeacherID: "t-1", RatesByType: map[string]int64{"guitar": 5000}},
	}}
	broker, _, _ := newTestBroker(repo, dir)

	quotes, err := broker.GenerateQuotes(context.Background(), "r-1")
	if err != nil {
		t.Fatalf("GenerateQuotes failed: %v", err)
	}
	if len(quotes) != 1 {
		t.Errorf("got %d quotes, want 1", len(quotes))
	}
}

func TestGenerateQuotes_NoAvailableTeachers(t *testing.T) {
	repo := newMemRepo()
	seedRequest(t, repo, 60)
	dir := &stubDirectory{listings: []domain.TeacherListing{
		{TeacherID: "t-3", RatesByType: map[string]int64{"piano": 7000}},
	}}
	broker, _, _ := newTestBroker(repo, dir)

	_, err := broker.GenerateQuotes(context.Background(), "r-1")
	if !errors.Is(err, domain.ErrNoAvailableTeachers) {
		t.Errorf("expected ErrNoAvailableTeachers, got %v", err)
	}
}

func TestGenerateQuotes_RequestNotFound(t *testing.T) {
	repo := newMemRepo()
	dir := &stubDirectory{}
	broker, _, _ := newTestBroker(repo, dir)

	_, err := broker.GenerateQuotes(context.Background(), "missing")
	if !errors.Is(err, domain.ErrEntityNotFound) {
		t.Errorf("expected ErrEntityNotFound, got %v", err)
	}
}

func TestGenerateQuotes_ConcurrentCallsShareOneBatch(t *testing.T) {
	repo := newMemRepo()
	seedRequest(t, repo, 60)
	dir := &stubDirectory{listings: []domain.TeacherListing{
		{TeacherID: "t-1", RatesByType: map[string]int64{"guitar": 5000}},
		{TeacherID: "t-2", RatesByType: map[string]int64{"guitar": 6000}},
	}}
	broker, _, _ := newTestBroker(repo, dir)

	const callers = 8
	results := make([][]domain.Quote, callers)
	errs := make([]error, callers)

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = broker.GenerateQuotes(context.Background(), "r-1")
		}(i)
	}
	wg.Wait()

	for i := 0; i < callers; i++ {
		if errs[i] != nil {
			t.Fatalf("caller %d failed: %v", i, errs[i])
		}
		if len(results[i]) != 2 {
			t.Fatalf("caller %d got %d quotes, want 2", i, len(results[i]))
		}
	}

	stored, err := repo.QuotesByRequest(context.Background(), "r-1")
	if err != nil {
		t.Fatalf("QuotesByRequest failed: %v", err)
	}
	if len(stored) != 2 {
		t.Errorf("stored %d quotes, want 2 (no duplicates from the race)", len(stored))
	}
}

func TestGenerateQuotes_RegisterFails_RollsBackBatch(t *testing.T) {
	repo := newMemRepo()
	seedRequest(t, repo, 60)
	dir := &stubDirectory{listings: []domain.TeacherListing{
		{TeacherID: "t-1", RatesByType: map[string]int64{"guitar": 5000}},
		{TeacherID: "t-2", RatesByType: map[string]int64{"guitar": 6000}},
	}}
	ledger, store, _ := newTestLedger()
	locks := app.NewRequestLocks()
	broker := app.NewQuoteBroker(repo, repo, dir, ledger, locks, zap.NewNop())
	ctx := context.Background()

	// Fail opening the second quote's history, leaving the run half done.
	registered := 0
	store.failAppend = func(rec domain.StatusRecord) error {
		if rec.EntityType == domain.EntityQuote && rec.Event == "" {
			registered++
			if registered == 2 {
				return errors.New("disk full")
			}
		}
		return nil
	}

	if _, err := broker.GenerateQuotes(ctx, "r-1"); err == nil {
		t.Fatal("expected GenerateQuotes to fail")
	}

	// No quote rows survive the failed run. A leftover row without ledger
	// history would be served back by every later call and be unreadable.
	stored, err := repo.QuotesByRequest(ctx, "r-1")
	if err != nil {
		t.Fatalf("QuotesByRequest failed: %v", err)
	}
	if len(stored) != 0 {
		t.Fatalf("stored %d quotes after failed run, want 0", len(stored))
	}

	// A later call regenerates the full batch with readable statuses.
	store.failAppend = nil
	quotes, err := broker.GenerateQuotes(ctx, "r-1")
	if err != nil {
		t.Fatalf("retry after recovery failed: %v", err)
	}
	if len(quotes) != 2 {
		t.Fatalf("retry got %d quotes, want 2", len(quotes))
	}
	for _, q := range quotes {
		status, err := ledger.CurrentStatus(ctx, domain.EntityQuote, q.ID)
		if err != nil {
			t.Fatalf("quote %s has no ledger history: %v", q.ID, err)
		}
		if status != domain.QuoteCreated {
			t.Errorf("quote %s status = %q, want %q", q.ID, status, domain.QuoteCreated)
		}
	}
}

func TestGenerateQuotes_LostInsertRace_ReturnsWinnerBatch(t *testing.T) {
	repo := newMemRepo()
	seedRequest(t, repo, 60)
	dir := &stubDirectory{listings: []domain.TeacherListing{
		{TeacherID: "t-1", RatesByType: map[string]int64{"guitar": 5000}},
	}}
	broker, _, _ := newTestBroker(repo, dir)

	// Another process commits its quote between our existence check and our
	// insert: the uniqueness constraint fires, and the winner's row is what
	// a re-read sees.
	repo.onCreateQuote = func(q domain.Quote) error {
		winner := q
		winner.ID = "q-winner"
		repo.quotes[winner.ID] = winner
		return &domain.DuplicateQuoteError{LessonRequestID: q.LessonRequestID, TeacherID: q.TeacherID}
	}

	quotes, err := broker.GenerateQuotes(context.Background(), "r-1")
	if err != nil {
		t.Fatalf("GenerateQuotes failed: %v", err)
	}
	if len(quotes) != 1 {
		t.Fatalf("got %d quotes, want 1", len(quotes))
	}
	if quotes[0].ID != "q-winner" {
		t.Errorf("returned quote ID = %q, want the winner's %q", quotes[0].ID, "q-winner")
	}
}

func TestGenerateQuotes_LostRaceWithNothingToReRead_Conflicts(t *testing.T) {
	repo := newMemRepo()
	seedRequest(t, repo, 60)
	dir := &stubDirectory{listings: []domain.TeacherListing{
		{TeacherID: "t-1", RatesByType: map[string]int64{"guitar": 5000}},
	}}
	broker, _, _ := newTestBroker(repo, dir)

	// The constraint fires but the conflicting row is gone by the time we
	// re-read (the other process rolled back). The bounded retry gives up
	// with a conflict instead of looping.
	repo.onCreateQuote = func(q domain.Quote) error {
		return &domain.DuplicateQuoteError{LessonRequestID: q.LessonRequestID, TeacherID: q.TeacherID}
	}

	_, err := broker.GenerateQuotes(context.Background(), "r-1")
	var conflict *domain.ConcurrentConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected ConcurrentConflictError, got %v", err)
	}
	if conflict.LessonRequestID != "r-1" {
		t.Errorf("conflict LessonRequestID = %q, want %q", conflict.LessonRequestID, "r-1")
	}
}
