// Package venue abstracts the execution venue the strategy trades against:
// market data, account state, order operations and position enumeration.
// A real implementation adapts a broker API; SimVenue is the in-process
// deterministic implementation used by tests and the replay driver.
package venue

import "github.com/aurumlab/goldcore/internal/types"

// Venue is the capability surface consumed by the trading core. Every
// mutating call is synchronous: it either returns a ticket/nil or an error
// carrying a venue retcode mapped onto pkg/errors trade codes. The venue
// owns all position and order records; callers only mirror them.
type Venue interface {
	// Tick returns the current best bid/ask snapshot.
	Tick() (types.Tick, error)
	// SymbolInfo returns the current trading constraints for the instrument.
	SymbolInfo() (types.SymbolInfo, error)
	// AccountInfo returns balance, equity and margin state.
	AccountInfo() (types.AccountInfo, error)

	// OpenMarket opens a position at market and returns its ticket.
	OpenMarket(req types.OrderRequest) (int64, error)
	// PlacePending places a resting limit/stop order and returns its ticket.
	PlacePending(req types.OrderRequest) (int64, error)
	// ModifyPosition updates the stop loss and take profit of a position.
	ModifyPosition(ticket int64, stopLoss, takeProfit float64) error
	// ModifyPending updates the price, stop loss and take profit of a resting order.
	ModifyPending(ticket int64, price, stopLoss, takeProfit float64) error
	// ClosePosition closes a position at market, realizing its P&L.
	ClosePosition(ticket int64) error
	// DeletePending removes a resting order without triggering it.
	DeletePending(ticket int64) error

	// Positions enumerates all open positions on the account, including ones
	// owned by other strategies. Filtering by symbol and magic is the caller's
	// responsibility.
	Positions() ([]types.Position, error)
	// PendingOrders enumerates all resting orders on the account.
	PendingOrders() ([]types.PendingOrder, error)
	// Deals returns realized trades matching the filter, oldest first.
	Deals(filter types.DealFilter) ([]types.Deal, error)
}
