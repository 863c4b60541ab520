package brokerobs

import (
	"context"

	"breeze-trading-bot/internal/interfaces"
	"breeze-trading-bot/internal/logger"
	"breeze-trading-bot/internal/trace"
	"breeze-trading-bot/internal/types"
)

// observableAccount wraps an AccountReader with observability (logging & tracing)
type observableAccount struct {
	account interfaces.AccountReader
}

// Compile-time interface check
var _ interfaces.AccountReader = (*observableAccount)(nil)

// Wrap wraps an account reader with observability middleware
func Wrap(account interfaces.AccountReader) interfaces.AccountReader {
	return &observableAccount{
		account: account,
	}
}

func (oa *observableAccount) GetAccountBalance(ctx context.Context) (*types.Balance, error) {
	ctx, span := trace.StartSpan(ctx, "broker.GetAccountBalance")
	defer span.End()

	logger.DebugSkip(ctx, 1, "Fetching account balance")

	balance, err := oa.account.GetAccountBalance(ctx)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to fetch account balance", err)
		return nil, err
	}

	logger.DebugSkip(ctx, 1, "Account balance fetched", "cash", balance.Cash.String())
	return balance, nil
}

func (oa *observableAccount) GetPortfolio(ctx context.Context) ([]types.Holding, error) {
	ctx, span := trace.StartSpan(ctx, "broker.GetPortfolio")
	defer span.End()

	logger.DebugSkip(ctx, 1, "Fetching portfolio")

	holdings, err := oa.account.GetPortfolio(ctx)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to fetch portfolio", err)
		return nil, err
	}

	logger.DebugSkip(ctx, 1, "Portfolio fetched", "count", len(holdings))
	return holdings, nil
}

func (oa *observableAccount) GetOpenOrders(ctx context.Context) ([]types.Order, error) {
	ctx, span := trace.StartSpan(ctx, "broker.GetOpenOrders")
	defer span.End()

	logger.DebugSkip(ctx, 1, "Fetching open orders")

	orders, err := oa.account.GetOpenOrders(ctx)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to fetch open orders", err)
		return nil, err
	}

	logger.DebugSkip(ctx, 1, "Open orders fetched", "count", len(orders))
	return orders, nil
}

func (oa *observableAccount) GetOrderHistory(ctx context.Context, days int) ([]types.Order, error) {
	ctx, span := trace.StartSpan(ctx, "broker.GetOrderHistory")
	defer span.End()

	logger.DebugSkip(ctx, 1, "Fetching order history", "days", days)

	orders, err := oa.account.GetOrderHistory(ctx, days)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to fetch order history", err, "days", days)
		return nil, err
	}

	logger.DebugSkip(ctx, 1, "Order history fetched", "days", days, "count", len(orders))
	return orders, nil
}

func (oa *observableAccount) IsAuthenticated() bool {
	return oa.account.IsAuthenticated()
}

// observableSessions wraps a Sessions implementation with tracing. Session
// lifecycle events are already logged by the manager itself.
type observableSessions struct {
	sessions interfaces.Sessions
}

var _ interfaces.Sessions = (*observableSessions)(nil)

// WrapSessions wraps a session manager with observability middleware
func WrapSessions(sessions interfaces.Sessions) interfaces.Sessions {
	return &observableSessions{
		sessions: sessions,
	}
}

func (obs *observableSessions) Authenticate(ctx context.Context, creds types.Credentials) (*types.Session, error) {
	ctx, span := trace.StartSpan(ctx, "broker.Authenticate")
	defer span.End()

	logger.DebugSkip(ctx, 1, "Authenticating", "environment", creds.Environment)

	s, err := obs.sessions.Authenticate(ctx, creds)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Authentication failed", err)
		return nil, err
	}
	return s, nil
}

func (obs *observableSessions) Restore(ctx context.Context, creds types.Credentials) (*types.Session, bool) {
	ctx, span := trace.StartSpan(ctx, "broker.Restore")
	defer span.End()

	s, ok := obs.sessions.Restore(ctx, creds)
	logger.DebugSkip(ctx, 1, "Session restore attempted", "restored", ok)
	return s, ok
}

func (obs *observableSessions) CurrentSession() (*types.Session, bool) {
	return obs.sessions.CurrentSession()
}

func (obs *observableSessions) State() types.SessionState {
	return obs.sessions.State()
}

func (obs *observableSessions) Logout(ctx context.Context) error {
	ctx, span := trace.StartSpan(ctx, "broker.Logout")
	defer span.End()

	if err := obs.sessions.Logout(ctx); err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Remote logout failed", err)
		return err
	}
	logger.DebugSkip(ctx, 1, "Logged out")
	return nil
}
