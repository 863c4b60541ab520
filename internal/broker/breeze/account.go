package breeze

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"breeze-trading-bot/internal/api"
	"breeze-trading-bot/internal/interfaces"
	"breeze-trading-bot/internal/logger"
	"breeze-trading-bot/internal/types"
)

// DefaultHistoryDays is the order history look-back used when none is given.
const DefaultHistoryDays = 7

const breezeTimeLayout = "2006-01-02T15:04:05.000Z"

// AccountClient performs authenticated reads against the provider. Every
// call reflects the provider's state at call time; nothing is cached.
// Calls are independent and may run concurrently.
type AccountClient struct {
	sessions *SessionManager
}

var _ interfaces.AccountReader = (*AccountClient)(nil)

// NewAccountClient returns a client that reads through the session held by
// sessions.
func NewAccountClient(sessions *SessionManager) *AccountClient {
	return &AccountClient{sessions: sessions}
}

// IsAuthenticated reports whether a non-expired session is available.
func (c *AccountClient) IsAuthenticated() bool {
	return c.sessions.IsAuthenticated()
}

// fundsPayload is the wire form of the funds response. bank_account and
// cash must be present; the remaining figures default to zero.
type fundsPayload struct {
	BankAccount        *string          `json:"bank_account" validate:"required"`
	Cash               *decimal.Decimal `json:"cash" validate:"required"`
	TotalBankBalance   decimal.Decimal  `json:"total_bank_balance"`
	AllocatedEquity    decimal.Decimal  `json:"allocated_equity"`
	AllocatedFNO       decimal.Decimal  `json:"allocated_fno"`
	BlockedByTrade     decimal.Decimal  `json:"block_by_trade_equity"`
	UnallocatedBalance decimal.Decimal  `json:"unallocated_balance"`
}

func (p *fundsPayload) balance() *types.Balance {
	return &types.Balance{
		BankAccount:        *p.BankAccount,
		Cash:               *p.Cash,
		TotalBankBalance:   p.TotalBankBalance,
		AllocatedEquity:    p.AllocatedEquity,
		AllocatedFNO:       p.AllocatedFNO,
		BlockedByTrade:     p.BlockedByTrade,
		UnallocatedBalance: p.UnallocatedBalance,
	}
}

// GetAccountBalance returns the funds summary. A payload without cash or
// bank_account is a MalformedBody TransportError.
func (c *AccountClient) GetAccountBalance(ctx context.Context) (*types.Balance, error) {
	env, err := c.get(ctx, "balance", c.sessions.endpoints.Funds, nil)
	if err != nil {
		return nil, err
	}
	payload, err := decodeObject[fundsPayload](env)
	if err != nil {
		return nil, &TransportError{Op: "balance", Kind: MalformedBody, Err: err}
	}
	return payload.balance(), nil
}

// GetPortfolio returns the current holdings. No holdings is an empty,
// non-nil slice.
func (c *AccountClient) GetPortfolio(ctx context.Context) ([]types.Holding, error) {
	return getList[types.Holding](ctx, c, "portfolio", c.sessions.endpoints.Portfolio, nil)
}

// GetOpenOrders returns the orders that are still PENDING, OPEN or
// PARTIALLY_FILLED.
func (c *AccountClient) GetOpenOrders(ctx context.Context) ([]types.Order, error) {
	orders, err := getList[types.Order](ctx, c, "open_orders", c.sessions.endpoints.Orders, nil)
	if err != nil {
		return nil, err
	}
	open := make([]types.Order, 0, len(orders))
	for _, o := range orders {
		if o.IsOpen() {
			open = append(open, o)
		}
	}
	return open, nil
}

// GetOrderHistory returns every order placed in the last days days.
// days <= 0 means DefaultHistoryDays.
func (c *AccountClient) GetOrderHistory(ctx context.Context, days int) ([]types.Order, error) {
	from, to := historyWindow(c.sessions.now(), days)
	query := map[string]string{
		"from_date": from.Format(breezeTimeLayout),
		"to_date":   to.Format(breezeTimeLayout),
	}
	return getList[types.Order](ctx, c, "order_history", c.sessions.endpoints.Orders, query)
}

func getList[T any](ctx context.Context, c *AccountClient, op, path string, query map[string]string) ([]T, error) {
	env, err := c.get(ctx, op, path, query)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && isNoData(apiErr.Message) {
			return []T{}, nil
		}
		return nil, err
	}
	items, err := decodeList[T](env)
	if err != nil {
		return nil, &TransportError{Op: op, Kind: MalformedBody, Err: err}
	}
	return items, nil
}

// get issues one authenticated GET and returns the successful envelope.
// A rejected token clears the session and yields ErrSessionExpired.
func (c *AccountClient) get(ctx context.Context, op, path string, query map[string]string) (*envelope, error) {
	s, ok := c.sessions.CurrentSession()
	if !ok {
		return nil, ErrNotAuthenticated
	}

	resp, err := c.sessions.http.Get(ctx, path, query, c.sessions.headers(s))
	if err != nil {
		return nil, transportFailure(op, err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, c.expire(ctx, op, s)
	}

	env, err := decodeEnvelope(resp)
	if err != nil {
		return nil, &TransportError{Op: op, Kind: MalformedBody, Err: err}
	}

	msg := env.message()
	if isSessionExpired(*env.Status, msg) {
		return nil, c.expire(ctx, op, s)
	}
	if !resp.IsSuccess() {
		return nil, &APIError{Op: op, Code: resp.StatusCode, Message: messageOr(msg, http.StatusText(resp.StatusCode))}
	}
	if !env.ok() {
		return nil, &APIError{Op: op, Code: *env.Status, Message: msg}
	}
	return env, nil
}

func (c *AccountClient) expire(ctx context.Context, op string, s *types.Session) error {
	if c.sessions.Invalidate(s.Token) {
		logger.Session(ctx, "rejected", "op", op, "user_id", s.UserID)
	}
	return ErrSessionExpired
}

func transportFailure(op string, err error) error {
	kind := ConnectionFailed
	var reqErr *api.RequestError
	if errors.As(err, &reqErr) && reqErr.Kind == api.FailureTimeout {
		kind = Timeout
	} else if errors.Is(err, context.DeadlineExceeded) {
		kind = Timeout
	}
	return &TransportError{Op: op, Kind: kind, Err: err}
}

func messageOr(msg, fallback string) string {
	if msg == "" {
		return fallback
	}
	return msg
}

func historyWindow(now time.Time, days int) (time.Time, time.Time) {
	if days <= 0 {
		days = DefaultHistoryDays
	}
	to := now.UTC()
	return to.AddDate(0, 0, -days), to
}
