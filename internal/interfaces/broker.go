package interfaces

import (
	"context"

	"breeze-trading-bot/internal/types"
)

// AccountReader reads point-in-time account state from the broker.
type AccountReader interface {
	GetAccountBalance(ctx context.Context) (*types.Balance, error)
	GetPortfolio(ctx context.Context) ([]types.Holding, error)
	GetOpenOrders(ctx context.Context) ([]types.Order, error)
	GetOrderHistory(ctx context.Context, days int) ([]types.Order, error)
	IsAuthenticated() bool
}

// Sessions owns the broker authentication lifecycle.
type Sessions interface {
	Authenticate(ctx context.Context, creds types.Credentials) (*types.Session, error)
	Restore(ctx context.Context, creds types.Credentials) (*types.Session, bool)
	CurrentSession() (*types.Session, bool)
	State() types.SessionState
	Logout(ctx context.Context) error
}
