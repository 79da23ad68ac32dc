package suppliers

import (
	"time"

	"github.com/shopspring/decimal"
)

// Supplier represents a tire supplier.
type Supplier struct {
	ID            int64     `json:"id"`
	Code          string    `json:"code"`
	Name          string    `json:"name"`
	Address       string    `json:"address,omitempty"`
	Email         string    `json:"email,omitempty"`
	Phone         string    `json:"phone,omitempty"`
	ContactPerson string    `json:"contact_person,omitempty"`
	IsActive      bool      `json:"is_active"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// LedgerEntry is one movement on a supplier's account, derived from goods
// receipts and recorded payments. Balance is the running total up to and
// including this entry.
type LedgerEntry struct {
	Date      time.Time       `json:"date"`
	Document  string          `json:"document"`
	Kind      string          `json:"kind"`
	Reference string          `json:"reference,omitempty"`
	Debit     decimal.Decimal `json:"debit"`
	Credit    decimal.Decimal `json:"credit"`
	Balance   decimal.Decimal `json:"balance"`
}

// Ledger is the full statement for one supplier.
type Ledger struct {
	Supplier Supplier        `json:"supplier"`
	Entries  []LedgerEntry   `json:"entries"`
	Balance  decimal.Decimal `json:"balance"`
}

// ListFilters narrows supplier listings.
type ListFilters struct {
	Search  string
	SortBy  string
	SortDir string
	Limit   int
	Page    int
}
