package suppliers

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// Service wraps supplier business rules.
type Service struct {
	repo Repository
}

// NewService constructs a Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// List returns suppliers matching the filters plus the total count.
func (s *Service) List(ctx context.Context, filters ListFilters) ([]Supplier, int, error) {
	return s.repo.List(ctx, filters)
}

// Get fetches one supplier.
func (s *Service) Get(ctx context.Context, id int64) (Supplier, error) {
	if id <= 0 {
		return Supplier{}, fmt.Errorf("%w: invalid supplier id", ErrInvalid)
	}
	return s.repo.Get(ctx, id)
}

// Create validates and stores a new supplier.
func (s *Service) Create(ctx context.Context, supplier Supplier) (Supplier, error) {
	if err := s.validate(supplier); err != nil {
		return Supplier{}, err
	}
	return s.repo.Create(ctx, supplier)
}

// Update validates and applies supplier changes.
func (s *Service) Update(ctx context.Context, id int64, supplier Supplier) error {
	if id <= 0 {
		return fmt.Errorf("%w: invalid supplier id", ErrInvalid)
	}
	if err := s.validate(supplier); err != nil {
		return err
	}
	return s.repo.Update(ctx, id, supplier)
}

// Deactivate disables a supplier without destroying purchase history.
func (s *Service) Deactivate(ctx context.Context, id int64) error {
	if id <= 0 {
		return fmt.Errorf("%w: invalid supplier id", ErrInvalid)
	}
	return s.repo.Deactivate(ctx, id)
}

// Ledger builds the supplier statement with a running balance. Receipts
// debit the account, payments credit it.
func (s *Service) Ledger(ctx context.Context, id int64) (Ledger, error) {
	supplier, err := s.Get(ctx, id)
	if err != nil {
		return Ledger{}, err
	}
	entries, err := s.repo.LedgerEntries(ctx, id)
	if err != nil {
		return Ledger{}, err
	}

	balance := decimal.Zero
	for i := range entries {
		balance = balance.Add(entries[i].Debit).Sub(entries[i].Credit)
		entries[i].Balance = balance
	}
	return Ledger{Supplier: supplier, Entries: entries, Balance: balance}, nil
}
