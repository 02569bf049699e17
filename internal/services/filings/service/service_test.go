package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"ncsrpipe/internal/modkit/repokit"
	"ncsrpipe/internal/platform/store"

	pdomain "ncsrpipe/internal/adapters/parse/domain"
	fdomain "ncsrpipe/internal/services/filings/domain"
)

// fakeTxRunner runs fn against a fakeQueryer that no-ops Exec/Query/QueryRow;
// fine since the fake repo below never actually dereferences q, but
// WithBeginHooks' statement-timeout hook does call q.Exec
type fakeTxRunner struct{ txErr error }

func (f *fakeTxRunner) Exec(ctx context.Context, sql string, args ...any) (store.CommandTag, error) {
	return nil, errors.New("not implemented")
}
func (f *fakeTxRunner) Query(ctx context.Context, sql string, args ...any) (store.Rows, error) {
	return nil, errors.New("not implemented")
}
func (f *fakeTxRunner) QueryRow(ctx context.Context, sql string, args ...any) store.Row { return nil }
func (f *fakeTxRunner) Tx(ctx context.Context, fn func(q store.RowQuerier) error) error {
	if f.txErr != nil {
		return f.txErr
	}
	return fn(&fakeQueryer{})
}

// fakeQueryer is a no-op store.RowQuerier, just enough to satisfy a
// BeginHook's q.Exec call inside a faked transaction
type fakeQueryer struct{}

func (f *fakeQueryer) Exec(ctx context.Context, sql string, args ...any) (store.CommandTag, error) {
	return nil, nil
}
func (f *fakeQueryer) Query(ctx context.Context, sql string, args ...any) (store.Rows, error) {
	return nil, errors.New("not implemented")
}
func (f *fakeQueryer) QueryRow(ctx context.Context, sql string, args ...any) store.Row { return nil }

type fakeRepo struct {
	savedTier   fdomain.Tier
	savedResult pdomain.Result
	saveErr     error

	ensureID  int64
	ensureErr error

	lastStatus fdomain.ProcessingStatus

	metrics fdomain.DailyMetrics

	cleanupN int64

	lastLogOp string
}

func (r *fakeRepo) EnsureFiling(ctx context.Context, f fdomain.NewFiling) (int64, error) {
	return r.ensureID, r.ensureErr
}
func (r *fakeRepo) SetStatus(ctx context.Context, filingID int64, status fdomain.ProcessingStatus) error {
	r.lastStatus = status
	return nil
}
func (r *fakeRepo) Save(ctx context.Context, filingID int64, tier fdomain.Tier, result pdomain.Result) error {
	r.savedTier = tier
	r.savedResult = result
	return r.saveErr
}
func (r *fakeRepo) GetByAccession(ctx context.Context, accession string) (*fdomain.Filing, error) {
	return &fdomain.Filing{AccessionNumber: accession}, nil
}
func (r *fakeRepo) ExistingAccessions(ctx context.Context, candidates []string) (map[string]bool, error) {
	out := map[string]bool{}
	for _, c := range candidates {
		if c == "known" {
			out[c] = true
		}
	}
	return out, nil
}
func (r *fakeRepo) DailyMetrics(ctx context.Context, date time.Time) (fdomain.DailyMetrics, error) {
	return r.metrics, nil
}
func (r *fakeRepo) Cleanup(ctx context.Context, retentionDays int) (int64, error) {
	return r.cleanupN, nil
}
func (r *fakeRepo) LogOperation(ctx context.Context, filingID int64, operation string, status fdomain.LogStatus, message string, executionTimeMS int64) error {
	r.lastLogOp = operation
	return nil
}

func newService(repo *fakeRepo, tx *fakeTxRunner) *Service {
	binder := repokit.BindFunc[fdomain.StorageRepo](func(repokit.Queryer) fdomain.StorageRepo { return repo })
	return New(tx, binder)
}

func TestSave_DelegatesToRepoWithinTx(t *testing.T) {
	repo := &fakeRepo{}
	svc := newService(repo, &fakeTxRunner{})

	result := pdomain.Result{Success: true, Strategy: pdomain.StrategyHybrid}
	if err := svc.Save(context.Background(), 42, fdomain.TierStandard, result); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.savedTier != fdomain.TierStandard {
		t.Fatalf("expected tier forwarded to repo, got %s", repo.savedTier)
	}
	if !repo.savedResult.Success {
		t.Fatal("expected result forwarded to repo")
	}
}

func TestSave_PropagatesTxFailure(t *testing.T) {
	repo := &fakeRepo{}
	svc := newService(repo, &fakeTxRunner{txErr: errors.New("commit failed")})

	err := svc.Save(context.Background(), 1, fdomain.TierStandard, pdomain.Result{})
	if err == nil {
		t.Fatal("expected error when the transaction fails to commit")
	}
}

func TestExistingAccessions_FiltersToKnown(t *testing.T) {
	repo := &fakeRepo{}
	svc := newService(repo, &fakeTxRunner{})

	got, err := svc.ExistingAccessions(context.Background(), []string{"known", "unknown"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got["known"] || got["unknown"] {
		t.Fatalf("unexpected filter result: %v", got)
	}
}

func TestNew_PanicsOnNilTxRunner(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for nil TxRunner")
		}
	}()
	New(nil, repokit.BindFunc[fdomain.StorageRepo](func(repokit.Queryer) fdomain.StorageRepo { return &fakeRepo{} }))
}

func TestLogOperation_DelegatesToRepo(t *testing.T) {
	repo := &fakeRepo{}
	svc := newService(repo, &fakeTxRunner{})

	if err := svc.LogOperation(context.Background(), 7, "parse", fdomain.LogStatusOK, "ok", 12); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.lastLogOp != "parse" {
		t.Fatalf("expected operation forwarded to repo, got %q", repo.lastLogOp)
	}
}

func TestNew_PanicsOnNilBinder(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for nil Binder")
		}
	}()
	New(&fakeTxRunner{}, nil)
}
