package types

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Credentials are the externally supplied Breeze API credentials.
type Credentials struct {
	APIKey       string `validate:"required"`
	SecretKey    string `validate:"required"`
	SessionToken string
	AccountID    string
	BaseURL      string `validate:"omitempty,url"`
	Environment  string
}

// Redacted returns the non-secret view of the credentials for display.
func (c Credentials) Redacted() map[string]string {
	return map[string]string{
		"api_key":       mask(c.APIKey),
		"account_id":    c.AccountID,
		"base_url":      c.BaseURL,
		"environment":   c.Environment,
		"session_token": mask(c.SessionToken),
	}
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 4 {
		return strings.Repeat("*", len(s))
	}
	return strings.Repeat("*", len(s)-4) + s[len(s)-4:]
}

type SessionState int

const (
	Unauthenticated SessionState = iota
	Active
	Expired
)

func (s SessionState) String() string {
	switch s {
	case Active:
		return "ACTIVE"
	case Expired:
		return "EXPIRED"
	default:
		return "UNAUTHENTICATED"
	}
}

// Session is a time-limited token issued by the provider.
type Session struct {
	Token    string        `json:"token"`
	UserID   string        `json:"user_id,omitempty"`
	IssuedAt time.Time     `json:"issued_at"`
	ValidFor time.Duration `json:"valid_for"`
}

func (s *Session) ExpiresAt() time.Time {
	return s.IssuedAt.Add(s.ValidFor)
}

// StateAt reports the state of s at now. A nil session or an empty token is
// Unauthenticated.
func (s *Session) StateAt(now time.Time) SessionState {
	if s == nil || s.Token == "" {
		return Unauthenticated
	}
	if !now.Before(s.ExpiresAt()) {
		return Expired
	}
	return Active
}

type Balance struct {
	BankAccount        string          `json:"bank_account"`
	Cash               decimal.Decimal `json:"cash"`
	TotalBankBalance   decimal.Decimal `json:"total_bank_balance"`
	AllocatedEquity    decimal.Decimal `json:"allocated_equity"`
	AllocatedFNO       decimal.Decimal `json:"allocated_fno"`
	BlockedByTrade     decimal.Decimal `json:"block_by_trade_equity"`
	UnallocatedBalance decimal.Decimal `json:"unallocated_balance"`
}

type Holding struct {
	StockCode          string          `json:"stock_code" validate:"required"`
	ExchangeCode       string          `json:"exchange_code"`
	Quantity           decimal.Decimal `json:"quantity"`
	AveragePrice       decimal.Decimal `json:"average_price"`
	CurrentMarketPrice decimal.Decimal `json:"current_market_price"`
	ChangePercentage   decimal.Decimal `json:"change_percentage"`
	BookedProfitLoss   decimal.Decimal `json:"booked_profit_loss"`
	UnbookedProfitLoss decimal.Decimal `json:"unbooked_profit_loss"`
}

// MarketValue is quantity times the current market price.
func (h Holding) MarketValue() decimal.Decimal {
	return h.Quantity.Mul(h.CurrentMarketPrice)
}

type Order struct {
	OrderID         string          `json:"order_id" validate:"required"`
	StockCode       string          `json:"stock_code"`
	ExchangeCode    string          `json:"exchange_code"`
	Action          string          `json:"action"`
	OrderType       string          `json:"order_type"`
	ProductType     string          `json:"product_type"`
	Status          string          `json:"status" validate:"required"`
	Quantity        decimal.Decimal `json:"quantity"`
	PendingQuantity decimal.Decimal `json:"pending_quantity"`
	Price           decimal.Decimal `json:"price"`
	AveragePrice    decimal.Decimal `json:"average_price"`
	OrderDatetime   string          `json:"order_datetime"`
}

var openOrderStatuses = map[string]bool{
	"PENDING":          true,
	"OPEN":             true,
	"PARTIALLY_FILLED": true,
}

// IsOpen reports whether the order is still working at the exchange.
func (o Order) IsOpen() bool {
	return openOrderStatuses[strings.ToUpper(strings.TrimSpace(o.Status))]
}
