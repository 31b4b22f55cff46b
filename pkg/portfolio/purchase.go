package portfolio

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	// ErrInvalidPurchase is returned for purchases that fail validation.
	ErrInvalidPurchase = errors.New("portfolio: invalid purchase")
	// ErrPurchaseNotFound is returned when an edit or removal names an unknown id.
	ErrPurchaseNotFound = errors.New("portfolio: purchase not found")
)

// Purchase is one ledger entry. The stored JSON shape keeps the asset id under
// "cryptoId" so existing ledgers load unchanged.
type Purchase struct {
	ID        string          `json:"id"`
	AssetID   string          `json:"cryptoId"`
	Name      string          `json:"name"`
	Symbol    string          `json:"symbol"`
	Image     string          `json:"image,omitempty"`
	Amount    decimal.Decimal `json:"amount"`
	Price     decimal.Decimal `json:"price"`
	Date      time.Time       `json:"date"`
	Notes     string          `json:"notes,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
}

// Cost is Amount * Price.
func (p Purchase) Cost() decimal.Decimal {
	return p.Amount.Mul(p.Price)
}

// Validate checks the ledger invariants: an asset id, amount > 0, price >= 0.
func (p Purchase) Validate() error {
	switch {
	case strings.TrimSpace(p.AssetID) == "":
		return fmt.Errorf("%w: asset id is required", ErrInvalidPurchase)
	case !p.Amount.IsPositive():
		return fmt.Errorf("%w: amount must be positive, got %s", ErrInvalidPurchase, p.Amount)
	case p.Price.IsNegative():
		return fmt.Errorf("%w: price must not be negative, got %s", ErrInvalidPurchase, p.Price)
	}
	return nil
}

// NewPurchaseID returns a fresh purchase id.
func NewPurchaseID() string {
	return uuid.NewString()
}

// PurchaseEdit lists the mutable fields of a purchase; nil fields are kept.
type PurchaseEdit struct {
	Amount *decimal.Decimal `json:"amount,omitempty"`
	Price  *decimal.Decimal `json:"price,omitempty"`
	Date   *time.Time       `json:"date,omitempty"`
	Notes  *string          `json:"notes,omitempty"`
}

// Apply returns p with the edit applied. Identity fields never change.
func (e PurchaseEdit) Apply(p Purchase) Purchase {
	if e.Amount != nil {
		p.Amount = *e.Amount
	}
	if e.Price != nil {
		p.Price = *e.Price
	}
	if e.Date != nil {
		p.Date = *e.Date
	}
	if e.Notes != nil {
		p.Notes = *e.Notes
	}
	return p
}
