package suppliers

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/treadstock/treadstock/internal/shared"
)

type fakeRepo struct {
	suppliers map[int64]Supplier
	entries   map[int64][]LedgerEntry
	nextID    int64
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{suppliers: make(map[int64]Supplier), entries: make(map[int64][]LedgerEntry), nextID: 1}
}

func (f *fakeRepo) List(ctx context.Context, filters ListFilters) ([]Supplier, int, error) {
	var out []Supplier
	for _, s := range f.suppliers {
		out = append(out, s)
	}
	return out, len(out), nil
}

func (f *fakeRepo) Get(ctx context.Context, id int64) (Supplier, error) {
	s, ok := f.suppliers[id]
	if !ok {
		return Supplier{}, shared.ErrNotFound
	}
	return s, nil
}

func (f *fakeRepo) Create(ctx context.Context, s Supplier) (Supplier, error) {
	s.ID = f.nextID
	s.IsActive = true
	f.nextID++
	f.suppliers[s.ID] = s
	return s, nil
}

func (f *fakeRepo) Update(ctx context.Context, id int64, s Supplier) error {
	if _, ok := f.suppliers[id]; !ok {
		return shared.ErrNotFound
	}
	s.ID = id
	f.suppliers[id] = s
	return nil
}

func (f *fakeRepo) Deactivate(ctx context.Context, id int64) error {
	s, ok := f.suppliers[id]
	if !ok {
		return shared.ErrNotFound
	}
	s.IsActive = false
	f.suppliers[id] = s
	return nil
}

func (f *fakeRepo) LedgerEntries(ctx context.Context, supplierID int64) ([]LedgerEntry, error) {
	return f.entries[supplierID], nil
}

func TestCreateRequiresCodeAndName(t *testing.T) {
	svc := NewService(newFakeRepo())

	_, err := svc.Create(context.Background(), Supplier{Name: "No Code"})
	require.ErrorIs(t, err, ErrInvalid)

	_, err = svc.Create(context.Background(), Supplier{Code: "SUP-1", Name: "  "})
	require.ErrorIs(t, err, ErrInvalid)

	created, err := svc.Create(context.Background(), Supplier{Code: "SUP-1", Name: "Continental Traders"})
	require.NoError(t, err)
	require.NotZero(t, created.ID)
	require.True(t, created.IsActive)
}

func TestDeactivateKeepsRecord(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo)
	created, err := svc.Create(context.Background(), Supplier{Code: "SUP-1", Name: "Continental Traders"})
	require.NoError(t, err)

	require.NoError(t, svc.Deactivate(context.Background(), created.ID))

	got, err := svc.Get(context.Background(), created.ID)
	require.NoError(t, err)
	require.False(t, got.IsActive)
}

func TestLedgerRunningBalance(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo)
	created, err := svc.Create(context.Background(), Supplier{Code: "SUP-1", Name: "Continental Traders"})
	require.NoError(t, err)

	day := func(d int) time.Time { return time.Date(2026, 2, d, 0, 0, 0, 0, time.UTC) }
	repo.entries[created.ID] = []LedgerEntry{
		{Date: day(1), Document: "GRN-20260201-001", Kind: "GRN", Debit: decimal.NewFromInt(2700), Credit: decimal.Zero},
		{Date: day(5), Document: "PAY-0007", Kind: "PAYMENT", Debit: decimal.Zero, Credit: decimal.NewFromInt(2000)},
		{Date: day(9), Document: "GRN-20260209-001", Kind: "GRN", Debit: decimal.NewFromInt(760), Credit: decimal.Zero},
	}

	ledger, err := svc.Ledger(context.Background(), created.ID)
	require.NoError(t, err)
	require.Len(t, ledger.Entries, 3)
	require.True(t, ledger.Entries[0].Balance.Equal(decimal.NewFromInt(2700)))
	require.True(t, ledger.Entries[1].Balance.Equal(decimal.NewFromInt(700)))
	require.True(t, ledger.Entries[2].Balance.Equal(decimal.NewFromInt(1460)))
	require.True(t, ledger.Balance.Equal(decimal.NewFromInt(1460)))
}

func TestLedgerUnknownSupplier(t *testing.T) {
	svc := NewService(newFakeRepo())
	_, err := svc.Ledger(context.Background(), 99)
	require.ErrorIs(t, err, shared.ErrNotFound)
}
