// Package trade owns the order lifecycle against the venue: opening market
// positions, placing and modifying pendings, closing, and the protective
// stop maintenance (trailing, break-even). Every mutating call validates
// against freshly fetched venue constraints before anything is sent, so a
// rejected request leaves no side effects.
package trade

import (
	"github.com/google/uuid"
	"github.com/moznion/go-optional"
	"go.uber.org/zap"

	"github.com/aurumlab/goldcore/internal/logger"
	"github.com/aurumlab/goldcore/internal/types"
	"github.com/aurumlab/goldcore/internal/venue"
	"github.com/aurumlab/goldcore/pkg/errors"
)

// TrailingConfig controls trailing stop maintenance. Points are venue points.
type TrailingConfig struct {
	Enabled bool `yaml:"enabled" json:"enabled"`
	// ActivationPoints is the open profit required before trailing starts.
	ActivationPoints float64 `yaml:"activation_points" json:"activation_points" default:"300" validate:"gte=0"`
	// DistancePoints is how far behind the current price the stop trails.
	DistancePoints float64 `yaml:"distance_points" json:"distance_points" default:"200" validate:"gte=0"`
	// StepPoints is the minimum improvement before the stop is moved again.
	StepPoints float64 `yaml:"step_points" json:"step_points" default:"50" validate:"gte=0"`
}

// BreakEvenConfig controls the one-shot move of the stop to entry.
type BreakEvenConfig struct {
	Enabled bool `yaml:"enabled" json:"enabled"`
	// ActivationPoints is the open profit required before the stop is moved.
	ActivationPoints float64 `yaml:"activation_points" json:"activation_points" default:"200" validate:"gte=0"`
	// BufferPoints is added beyond the entry so a break-even exit still
	// covers costs.
	BufferPoints float64 `yaml:"buffer_points" json:"buffer_points" default:"20" validate:"gte=0"`
}

// Config holds the trade manager parameters.
type Config struct {
	Trailing  TrailingConfig  `yaml:"trailing" json:"trailing"`
	BreakEven BreakEvenConfig `yaml:"break_even" json:"break_even"`
}

// Manager executes and maintains orders for one instrument under one
// ownership tag. Positions and orders carrying a different magic number are
// invisible to every operation.
type Manager struct {
	cfg    Config
	venue  venue.Venue
	symbol string
	magic  int64
	logger *logger.Logger

	ordersSent     int64
	ordersAccepted int64
	ordersFilled   int64
	ordersFailed   int64
}

// NewManager creates a trade Manager.
func NewManager(cfg Config, v venue.Venue, symbol string, magic int64, log *logger.Logger) *Manager {
	return &Manager{
		cfg:            cfg,
		venue:          v,
		symbol:         symbol,
		magic:          magic,
		logger:         log,
		ordersSent:     0,
		ordersAccepted: 0,
		ordersFilled:   0,
		ordersFailed:   0,
	}
}

// OrdersSent returns the number of mutating requests sent to the venue.
func (m *Manager) OrdersSent() int64 { return m.ordersSent }

// OrdersAccepted returns the number of requests the venue accepted.
func (m *Manager) OrdersAccepted() int64 { return m.ordersAccepted }

// OrdersFilled returns the number of confirmed fills. Market orders fill
// synchronously on acceptance; a pending order is only accepted at placement
// and fills later, at trigger.
func (m *Manager) OrdersFilled() int64 { return m.ordersFilled }

// OrdersFailed returns the number of requests the venue rejected.
func (m *Manager) OrdersFailed() int64 { return m.ordersFailed }

// OpenBuy opens a market buy. Zero stopLoss/takeProfit mean none attached.
func (m *Manager) OpenBuy(volume, stopLoss, takeProfit float64, comment string) (int64, error) {
	return m.openMarket(types.DirectionBuy, volume, stopLoss, takeProfit, comment)
}

// OpenSell opens a market sell. Zero stopLoss/takeProfit mean none attached.
func (m *Manager) OpenSell(volume, stopLoss, takeProfit float64, comment string) (int64, error) {
	return m.openMarket(types.DirectionSell, volume, stopLoss, takeProfit, comment)
}

func (m *Manager) openMarket(
	direction types.Direction,
	volume, stopLoss, takeProfit float64,
	comment string,
) (int64, error) {
	tick, info, err := m.marketState()
	if err != nil {
		return 0, err
	}

	reference := tick.Ask
	if direction == types.DirectionSell {
		reference = tick.Bid
	}

	if err := validateStops(direction, reference, stopLoss, takeProfit, info); err != nil {
		return 0, err
	}

	request := types.OrderRequest{
		ID:          uuid.New().String(),
		Symbol:      m.symbol,
		Direction:   direction,
		Volume:      volume,
		Price:       optional.None[float64](),
		PendingType: optional.None[types.PendingType](),
		StopLoss:    optionalPrice(stopLoss),
		TakeProfit:  optionalPrice(takeProfit),
		Magic:       m.magic,
		Comment:     comment,
	}
	if err := request.Validate(); err != nil {
		return 0, err
	}

	ticket, err := m.send(request, true, func() (int64, error) {
		return m.venue.OpenMarket(request)
	})
	if err != nil {
		return 0, err
	}

	m.logger.Info("opened market position",
		zap.String("request_id", request.ID),
		zap.Int64("ticket", ticket),
		zap.String("direction", string(direction)),
		zap.Float64("volume", volume),
		zap.Float64("stop_loss", stopLoss),
		zap.Float64("take_profit", takeProfit),
	)

	return ticket, nil
}

// PlacePending places a resting order after validating the price sits on the
// correct side of the current market for its type.
func (m *Manager) PlacePending(
	pendingType types.PendingType,
	price, volume, stopLoss, takeProfit float64,
	comment string,
) (int64, error) {
	tick, info, err := m.marketState()
	if err != nil {
		return 0, err
	}

	if err := validatePendingPrice(pendingType, price, tick, info); err != nil {
		return 0, err
	}

	direction := pendingType.Direction()
	if err := validateStops(direction, price, stopLoss, takeProfit, info); err != nil {
		return 0, err
	}

	request := types.OrderRequest{
		ID:          uuid.New().String(),
		Symbol:      m.symbol,
		Direction:   direction,
		Volume:      volume,
		Price:       optional.Some(price),
		PendingType: optional.Some(pendingType),
		StopLoss:    optionalPrice(stopLoss),
		TakeProfit:  optionalPrice(takeProfit),
		Magic:       m.magic,
		Comment:     comment,
	}
	if err := request.Validate(); err != nil {
		return 0, err
	}

	ticket, err := m.send(request, false, func() (int64, error) {
		return m.venue.PlacePending(request)
	})
	if err != nil {
		return 0, err
	}

	m.logger.Info("placed pending order",
		zap.String("request_id", request.ID),
		zap.Int64("ticket", ticket),
		zap.String("type", string(pendingType)),
		zap.Float64("price", price),
		zap.Float64("volume", volume),
	)

	return ticket, nil
}

// ModifyPosition updates the stop and target of an owned position. The new
// levels are validated against the position's direction and the current
// market before the venue is touched.
func (m *Manager) ModifyPosition(ticket int64, stopLoss, takeProfit float64) error {
	position, err := m.ownedPosition(ticket)
	if err != nil {
		return err
	}

	tick, info, err := m.marketState()
	if err != nil {
		return err
	}

	if err := validateStops(position.Direction, modifyReference(&position, tick), stopLoss, takeProfit, info); err != nil {
		return err
	}

	if err := m.venue.ModifyPosition(ticket, stopLoss, takeProfit); err != nil {
		return errors.Wrapf(errors.ErrCodeOrderFailed, err, "failed to modify position %d", ticket)
	}

	m.logger.Info("modified position",
		zap.Int64("ticket", ticket),
		zap.Float64("stop_loss", stopLoss),
		zap.Float64("take_profit", takeProfit),
	)

	return nil
}

// ModifyPending updates the price and stops of an owned pending order.
func (m *Manager) ModifyPending(ticket int64, price, stopLoss, takeProfit float64) error {
	order, err := m.ownedPending(ticket)
	if err != nil {
		return err
	}

	tick, info, err := m.marketState()
	if err != nil {
		return err
	}

	if err := validatePendingPrice(order.Type, price, tick, info); err != nil {
		return err
	}

	if err := validateStops(order.Type.Direction(), price, stopLoss, takeProfit, info); err != nil {
		return err
	}

	if err := m.venue.ModifyPending(ticket, price, stopLoss, takeProfit); err != nil {
		return errors.Wrapf(errors.ErrCodeOrderFailed, err, "failed to modify pending order %d", ticket)
	}

	m.logger.Info("modified pending order",
		zap.Int64("ticket", ticket),
		zap.Float64("price", price),
		zap.Float64("stop_loss", stopLoss),
		zap.Float64("take_profit", takeProfit),
	)

	return nil
}

// ClosePosition closes an owned position at market.
func (m *Manager) ClosePosition(ticket int64) error {
	if _, err := m.ownedPosition(ticket); err != nil {
		return err
	}

	if err := m.venue.ClosePosition(ticket); err != nil {
		return errors.Wrapf(errors.ErrCodeOrderFailed, err, "failed to close position %d", ticket)
	}

	m.logger.Info("closed position", zap.Int64("ticket", ticket))

	return nil
}

// DeletePending deletes an owned resting order.
func (m *Manager) DeletePending(ticket int64) error {
	if _, err := m.ownedPending(ticket); err != nil {
		return err
	}

	if err := m.venue.DeletePending(ticket); err != nil {
		return errors.Wrapf(errors.ErrCodeOrderFailed, err, "failed to delete pending order %d", ticket)
	}

	m.logger.Info("deleted pending order", zap.Int64("ticket", ticket))

	return nil
}

// CloseAllPositions closes every owned position and returns how many were
// closed. It keeps going past individual failures and returns the first
// error encountered, if any.
func (m *Manager) CloseAllPositions() (int, error) {
	positions, err := m.OwnPositions()
	if err != nil {
		return 0, err
	}

	closed := 0

	var firstErr error

	for _, position := range positions {
		if err := m.venue.ClosePosition(position.Ticket); err != nil {
			m.logger.Error("failed to close position during flatten",
				zap.Int64("ticket", position.Ticket), zap.Error(err))

			if firstErr == nil {
				firstErr = errors.Wrapf(errors.ErrCodeOrderFailed, err,
					"failed to close position %d", position.Ticket)
			}

			continue
		}

		closed++
	}

	return closed, firstErr
}

// DeleteAllPending deletes every owned resting order and returns how many
// were deleted.
func (m *Manager) DeleteAllPending() (int, error) {
	orders, err := m.OwnPendingOrders()
	if err != nil {
		return 0, err
	}

	deleted := 0

	var firstErr error

	for _, order := range orders {
		if err := m.venue.DeletePending(order.Ticket); err != nil {
			m.logger.Error("failed to delete pending order during cleanup",
				zap.Int64("ticket", order.Ticket), zap.Error(err))

			if firstErr == nil {
				firstErr = errors.Wrapf(errors.ErrCodeOrderFailed, err,
					"failed to delete pending order %d", order.Ticket)
			}

			continue
		}

		deleted++
	}

	return deleted, firstErr
}

// OwnPositions returns the open positions owned by this manager.
func (m *Manager) OwnPositions() ([]types.Position, error) {
	positions, err := m.venue.Positions()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeAccountQueryFailed, "failed to enumerate positions", err)
	}

	owned := make([]types.Position, 0, len(positions))

	for _, position := range positions {
		if position.Symbol == m.symbol && position.Magic == m.magic {
			owned = append(owned, position)
		}
	}

	return owned, nil
}

// OwnPendingOrders returns the resting orders owned by this manager.
func (m *Manager) OwnPendingOrders() ([]types.PendingOrder, error) {
	orders, err := m.venue.PendingOrders()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeAccountQueryFailed, "failed to enumerate pending orders", err)
	}

	owned := make([]types.PendingOrder, 0, len(orders))

	for _, order := range orders {
		if order.Symbol == m.symbol && order.Magic == m.magic {
			owned = append(owned, order)
		}
	}

	return owned, nil
}

// OpenPositionsCount returns the number of owned open positions.
func (m *Manager) OpenPositionsCount() (int, error) {
	positions, err := m.OwnPositions()
	if err != nil {
		return 0, err
	}

	return len(positions), nil
}

// PendingOrdersCount returns the number of owned resting orders.
func (m *Manager) PendingOrdersCount() (int, error) {
	orders, err := m.OwnPendingOrders()
	if err != nil {
		return 0, err
	}

	return len(orders), nil
}

// ApplyTrailingStop advances the stop of each sufficiently profitable owned
// position so it trails the market at the configured distance. Stops only
// ever move in the profit direction, and only when the improvement clears
// the configured step.
func (m *Manager) ApplyTrailingStop() error {
	if !m.cfg.Trailing.Enabled {
		return nil
	}

	positions, err := m.OwnPositions()
	if err != nil {
		return err
	}

	tick, info, err := m.marketState()
	if err != nil {
		return err
	}

	for _, position := range positions {
		newStop, move := trailingStopFor(&position, tick, info, m.cfg.Trailing)
		if !move {
			continue
		}

		if err := validateStops(position.Direction, modifyReference(&position, tick), newStop, 0, info); err != nil {
			m.logger.Warn("trailed stop violates venue constraints, leaving stop in place",
				zap.Int64("ticket", position.Ticket), zap.Error(err))

			continue
		}

		if err := m.venue.ModifyPosition(position.Ticket, newStop, position.TakeProfit); err != nil {
			m.logger.Warn("failed to trail stop",
				zap.Int64("ticket", position.Ticket), zap.Error(err))

			continue
		}

		m.logger.Info("trailed stop",
			zap.Int64("ticket", position.Ticket),
			zap.Float64("old_stop", position.StopLoss),
			zap.Float64("new_stop", newStop),
		)
	}

	return nil
}

// ApplyBreakEven moves the stop of each sufficiently profitable owned
// position to its entry price plus the configured buffer, once.
func (m *Manager) ApplyBreakEven() error {
	if !m.cfg.BreakEven.Enabled {
		return nil
	}

	positions, err := m.OwnPositions()
	if err != nil {
		return err
	}

	tick, info, err := m.marketState()
	if err != nil {
		return err
	}

	for _, position := range positions {
		newStop, move := breakEvenStopFor(&position, tick, info, m.cfg.BreakEven)
		if !move {
			continue
		}

		if err := validateStops(position.Direction, modifyReference(&position, tick), newStop, 0, info); err != nil {
			m.logger.Warn("break-even stop violates venue constraints, leaving stop in place",
				zap.Int64("ticket", position.Ticket), zap.Error(err))

			continue
		}

		if err := m.venue.ModifyPosition(position.Ticket, newStop, position.TakeProfit); err != nil {
			m.logger.Warn("failed to move stop to break even",
				zap.Int64("ticket", position.Ticket), zap.Error(err))

			continue
		}

		m.logger.Info("moved stop to break even",
			zap.Int64("ticket", position.Ticket),
			zap.Float64("new_stop", newStop),
		)
	}

	return nil
}

// trailingStopFor computes the trailed stop for one position. The second
// return is false when the stop should not move.
func trailingStopFor(
	position *types.Position,
	tick types.Tick,
	info types.SymbolInfo,
	cfg TrailingConfig,
) (float64, bool) {
	point := info.Point
	if point <= 0 {
		return 0, false
	}

	if position.Direction == types.DirectionBuy {
		profitPoints := (tick.Bid - position.OpenPrice) / point
		if profitPoints < cfg.ActivationPoints {
			return 0, false
		}

		newStop := tick.Bid - cfg.DistancePoints*point
		if position.StopLoss != 0 && newStop < position.StopLoss+cfg.StepPoints*point {
			return 0, false
		}

		return newStop, true
	}

	profitPoints := (position.OpenPrice - tick.Ask) / point
	if profitPoints < cfg.ActivationPoints {
		return 0, false
	}

	newStop := tick.Ask + cfg.DistancePoints*point
	if position.StopLoss != 0 && newStop > position.StopLoss-cfg.StepPoints*point {
		return 0, false
	}

	return newStop, true
}

// breakEvenStopFor computes the break-even stop for one position. The second
// return is false when the stop is already at or beyond break even, or the
// position has not earned it yet.
func breakEvenStopFor(
	position *types.Position,
	tick types.Tick,
	info types.SymbolInfo,
	cfg BreakEvenConfig,
) (float64, bool) {
	point := info.Point
	if point <= 0 {
		return 0, false
	}

	if position.Direction == types.DirectionBuy {
		profitPoints := (tick.Bid - position.OpenPrice) / point
		if profitPoints < cfg.ActivationPoints {
			return 0, false
		}

		newStop := position.OpenPrice + cfg.BufferPoints*point
		if position.StopLoss >= newStop {
			return 0, false
		}

		return newStop, true
	}

	profitPoints := (position.OpenPrice - tick.Ask) / point
	if profitPoints < cfg.ActivationPoints {
		return 0, false
	}

	newStop := position.OpenPrice - cfg.BufferPoints*point
	if position.StopLoss != 0 && position.StopLoss <= newStop {
		return 0, false
	}

	return newStop, true
}

// send dispatches exactly one venue request and keeps the counters. fills
// marks requests that fill synchronously on acceptance (market orders); a
// pending placement only counts as accepted. A rejection is never retried
// here; the next tick re-evaluates.
func (m *Manager) send(request types.OrderRequest, fills bool, dispatch func() (int64, error)) (int64, error) {
	m.ordersSent++

	ticket, err := dispatch()
	if err == nil {
		m.ordersAccepted++

		if fills {
			m.ordersFilled++
		}

		return ticket, nil
	}

	m.ordersFailed++

	// Transient rejections (requote, off quotes, server busy) resolve
	// themselves by the next quote; everything else is a real failure.
	if errors.IsTransient(err) {
		m.logger.Warn("transient venue rejection, abandoning this attempt",
			zap.String("request_id", request.ID),
			zap.Error(err),
		)
	} else {
		m.logger.Error("venue rejected order request",
			zap.String("request_id", request.ID),
			zap.Error(err),
		)
	}

	return 0, errors.Wrapf(errors.ErrCodeOrderFailed, err, "order request %s failed", request.ID)
}

// ownedPosition fetches a position and verifies this manager owns it.
func (m *Manager) ownedPosition(ticket int64) (types.Position, error) {
	positions, err := m.venue.Positions()
	if err != nil {
		return types.Position{}, errors.Wrap(errors.ErrCodeAccountQueryFailed, "failed to enumerate positions", err)
	}

	for _, position := range positions {
		if position.Ticket != ticket {
			continue
		}

		if position.Symbol != m.symbol || position.Magic != m.magic {
			return types.Position{}, errors.Newf(errors.ErrCodeNotOwned,
				"position %d belongs to another strategy", ticket)
		}

		return position, nil
	}

	return types.Position{}, errors.Newf(errors.ErrCodeTicketNotFound, "position %d not found", ticket)
}

// ownedPending fetches a pending order and verifies this manager owns it.
func (m *Manager) ownedPending(ticket int64) (types.PendingOrder, error) {
	orders, err := m.venue.PendingOrders()
	if err != nil {
		return types.PendingOrder{}, errors.Wrap(errors.ErrCodeAccountQueryFailed, "failed to enumerate pending orders", err)
	}

	for _, order := range orders {
		if order.Ticket != ticket {
			continue
		}

		if order.Symbol != m.symbol || order.Magic != m.magic {
			return types.PendingOrder{}, errors.Newf(errors.ErrCodeNotOwned,
				"pending order %d belongs to another strategy", ticket)
		}

		return order, nil
	}

	return types.PendingOrder{}, errors.Newf(errors.ErrCodeTicketNotFound, "pending order %d not found", ticket)
}

// modifyReference is the market price a position's stop levels are measured
// against when modifying: the side the protective exit would fill on.
func modifyReference(position *types.Position, tick types.Tick) float64 {
	if position.Direction == types.DirectionSell {
		return tick.Ask
	}

	return tick.Bid
}

func (m *Manager) marketState() (types.Tick, types.SymbolInfo, error) {
	tick, err := m.venue.Tick()
	if err != nil {
		return types.Tick{}, types.SymbolInfo{}, errors.Wrap(errors.ErrCodeFeedUnavailable, "no current quote", err)
	}

	info, err := m.venue.SymbolInfo()
	if err != nil {
		return types.Tick{}, types.SymbolInfo{}, errors.Wrap(errors.ErrCodeFeedUnavailable, "no symbol info", err)
	}

	return tick, info, nil
}

// validateStops checks stop/target ordering and the venue's minimum stop
// distance against a reference price. Zero levels are unset and skipped.
func validateStops(
	direction types.Direction,
	reference, stopLoss, takeProfit float64,
	info types.SymbolInfo,
) error {
	minDistance := info.StopDistance()

	if stopLoss != 0 {
		var distance float64

		switch direction {
		case types.DirectionBuy:
			distance = reference - stopLoss
		case types.DirectionSell:
			distance = stopLoss - reference
		}

		if distance <= 0 {
			return errors.Newf(errors.ErrCodeInvalidStops,
				"stop loss %f on the wrong side of price %f for %s", stopLoss, reference, direction)
		}

		if distance < minDistance {
			return errors.Newf(errors.ErrCodeInvalidStops,
				"stop loss %f closer than the minimum distance %f", stopLoss, minDistance)
		}
	}

	if takeProfit != 0 {
		var distance float64

		switch direction {
		case types.DirectionBuy:
			distance = takeProfit - reference
		case types.DirectionSell:
			distance = reference - takeProfit
		}

		if distance <= 0 {
			return errors.Newf(errors.ErrCodeInvalidStops,
				"take profit %f on the wrong side of price %f for %s", takeProfit, reference, direction)
		}

		if distance < minDistance {
			return errors.Newf(errors.ErrCodeInvalidStops,
				"take profit %f closer than the minimum distance %f", takeProfit, minDistance)
		}
	}

	return nil
}

// validatePendingPrice checks a resting price sits on the correct side of
// the market for its order type, at least the minimum stop distance away.
func validatePendingPrice(pendingType types.PendingType, price float64, tick types.Tick, info types.SymbolInfo) error {
	minDistance := info.StopDistance()

	var distance float64

	switch pendingType {
	case types.PendingTypeBuyLimit:
		distance = tick.Ask - price
	case types.PendingTypeBuyStop:
		distance = price - tick.Ask
	case types.PendingTypeSellLimit:
		distance = price - tick.Bid
	case types.PendingTypeSellStop:
		distance = tick.Bid - price
	default:
		return errors.Newf(errors.ErrCodeInvalidOrderRequest, "unknown pending type %q", pendingType)
	}

	if distance <= 0 {
		return errors.Newf(errors.ErrCodeInvalidPrice,
			"%s price %f on the wrong side of the market (bid %f, ask %f)",
			pendingType, price, tick.Bid, tick.Ask)
	}

	if distance < minDistance {
		return errors.Newf(errors.ErrCodeInvalidPrice,
			"%s price %f closer than the minimum distance %f", pendingType, price, minDistance)
	}

	return nil
}

func optionalPrice(value float64) optional.Option[float64] {
	if value == 0 {
		return optional.None[float64]()
	}

	return optional.Some(value)
}
