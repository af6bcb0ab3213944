package venue

import (
	"sort"

	"github.com/aurumlab/goldcore/internal/types"
	"github.com/aurumlab/goldcore/pkg/errors"
)

// SimConfig configures the simulated venue.
type SimConfig struct {
	// Symbol carries the instrument constraints the sim enforces.
	Symbol types.SymbolInfo
	// InitialBalance is the starting cash balance.
	InitialBalance float64
	// MarginPerLot is the margin locked per lot of open volume.
	MarginPerLot float64
	// CommissionPerLot is the commission charged per lot on close, as a
	// positive number (recorded negative on the deal).
	CommissionPerLot float64
}

// SimVenue is a deterministic in-process venue. Market orders fill at the
// current bid/ask, pending orders and stop/target levels trigger on tick
// updates, and closing realizes P&L into the balance. Like the live core it
// serves, it is single-threaded: callers drive it from one event loop.
type SimVenue struct {
	cfg        SimConfig
	tick       types.Tick
	hasTick    bool
	balance    float64
	nextTicket int64
	positions  map[int64]*types.Position
	pending    map[int64]*types.PendingOrder
	deals      []types.Deal
	// tradeDisabled simulates the venue rejecting all mutating requests.
	tradeDisabled bool
}

// NewSimVenue creates a simulated venue with the given configuration.
func NewSimVenue(cfg SimConfig) *SimVenue {
	return &SimVenue{
		cfg:           cfg,
		tick:          types.Tick{},
		hasTick:       false,
		balance:       cfg.InitialBalance,
		nextTicket:    1,
		positions:     make(map[int64]*types.Position),
		pending:       make(map[int64]*types.PendingOrder),
		deals:         nil,
		tradeDisabled: false,
	}
}

// SetTick advances the market: refreshes floating P&L, fires stop/target
// exits and triggers resting orders whose level has been reached.
func (s *SimVenue) SetTick(tick types.Tick) {
	s.tick = tick
	s.hasTick = true

	s.refreshFloatingProfit()
	s.triggerProtectiveExits()
	s.triggerPendingOrders()
}

// SetTradeDisabled toggles venue-side trade rejection. Used to simulate the
// "trading disabled" hard error.
func (s *SimVenue) SetTradeDisabled(disabled bool) {
	s.tradeDisabled = disabled
}

// SeedPosition injects a pre-existing position, e.g. one owned by another
// strategy sharing the account. Returns its ticket.
func (s *SimVenue) SeedPosition(position types.Position) int64 {
	position.Ticket = s.nextTicket
	s.nextTicket++
	s.positions[position.Ticket] = &position

	return position.Ticket
}

// SeedPendingOrder injects a pre-existing resting order. Returns its ticket.
func (s *SimVenue) SeedPendingOrder(order types.PendingOrder) int64 {
	order.Ticket = s.nextTicket
	s.nextTicket++
	s.pending[order.Ticket] = &order

	return order.Ticket
}

// Tick implements Venue.
func (s *SimVenue) Tick() (types.Tick, error) {
	if !s.hasTick {
		return types.Tick{}, errors.New(errors.ErrCodeOffQuotes, "no quote available yet")
	}

	return s.tick, nil
}

// SymbolInfo implements Venue.
func (s *SimVenue) SymbolInfo() (types.SymbolInfo, error) {
	return s.cfg.Symbol, nil
}

// AccountInfo implements Venue.
func (s *SimVenue) AccountInfo() (types.AccountInfo, error) {
	floating := 0.0
	margin := 0.0

	for _, position := range s.positions {
		floating += position.Profit
		margin += position.Volume * s.cfg.MarginPerLot
	}

	equity := s.balance + floating

	marginLevel := 0.0
	if margin > 0 {
		marginLevel = equity / margin * 100
	}

	return types.AccountInfo{
		Balance:     s.balance,
		Equity:      equity,
		Margin:      margin,
		FreeMargin:  equity - margin,
		MarginLevel: marginLevel,
	}, nil
}

// OpenMarket implements Venue.
func (s *SimVenue) OpenMarket(req types.OrderRequest) (int64, error) {
	if err := s.checkMutable(req); err != nil {
		return 0, err
	}

	fillPrice := s.tick.Ask
	if req.Direction == types.DirectionSell {
		fillPrice = s.tick.Bid
	}

	// Stop levels are measured against the side a protective exit would
	// fill on, like the live venue does.
	reference := s.tick.Bid
	if req.Direction == types.DirectionSell {
		reference = s.tick.Ask
	}

	if err := s.checkStopLevels(req.Direction, reference, req.StopLoss.TakeOr(0), req.TakeProfit.TakeOr(0)); err != nil {
		return 0, err
	}

	account, _ := s.AccountInfo()
	if req.Volume*s.cfg.MarginPerLot > account.FreeMargin {
		return 0, errors.Newf(errors.ErrCodeNoMoney,
			"not enough free margin: need %.2f, have %.2f",
			req.Volume*s.cfg.MarginPerLot, account.FreeMargin)
	}

	position := &types.Position{
		Ticket:     s.nextTicket,
		Symbol:     req.Symbol,
		Direction:  req.Direction,
		Volume:     req.Volume,
		OpenPrice:  fillPrice,
		StopLoss:   req.StopLoss.TakeOr(0),
		TakeProfit: req.TakeProfit.TakeOr(0),
		Magic:      req.Magic,
		Profit:     0,
		OpenTime:   s.tick.Time,
		Comment:    req.Comment,
	}

	s.nextTicket++
	s.positions[position.Ticket] = position

	return position.Ticket, nil
}

// PlacePending implements Venue.
func (s *SimVenue) PlacePending(req types.OrderRequest) (int64, error) {
	if err := s.checkMutable(req); err != nil {
		return 0, err
	}

	if req.Price.IsNone() || req.PendingType.IsNone() {
		return 0, errors.New(errors.ErrCodeInvalidPrice, "pending order requires price and type")
	}

	price := req.Price.Unwrap()
	pendingType := req.PendingType.Unwrap()

	if err := s.checkStopLevels(pendingType.Direction(), price, req.StopLoss.TakeOr(0), req.TakeProfit.TakeOr(0)); err != nil {
		return 0, err
	}

	order := &types.PendingOrder{
		Ticket:     s.nextTicket,
		Symbol:     req.Symbol,
		Type:       pendingType,
		Volume:     req.Volume,
		Price:      price,
		StopLoss:   req.StopLoss.TakeOr(0),
		TakeProfit: req.TakeProfit.TakeOr(0),
		Magic:      req.Magic,
		Comment:    req.Comment,
	}

	s.nextTicket++
	s.pending[order.Ticket] = order

	return order.Ticket, nil
}

// ModifyPosition implements Venue.
func (s *SimVenue) ModifyPosition(ticket int64, stopLoss, takeProfit float64) error {
	if s.tradeDisabled {
		return errors.New(errors.ErrCodeTradeDisabled, "trading is disabled on the venue")
	}

	position, ok := s.positions[ticket]
	if !ok {
		return errors.Newf(errors.ErrCodeTicketNotFound, "no position with ticket %d", ticket)
	}

	reference := s.tick.Bid
	if position.Direction == types.DirectionSell {
		reference = s.tick.Ask
	}

	if err := s.checkStopLevels(position.Direction, reference, stopLoss, takeProfit); err != nil {
		return err
	}

	position.StopLoss = stopLoss
	position.TakeProfit = takeProfit

	return nil
}

// ModifyPending implements Venue.
func (s *SimVenue) ModifyPending(ticket int64, price, stopLoss, takeProfit float64) error {
	if s.tradeDisabled {
		return errors.New(errors.ErrCodeTradeDisabled, "trading is disabled on the venue")
	}

	order, ok := s.pending[ticket]
	if !ok {
		return errors.Newf(errors.ErrCodeTicketNotFound, "no pending order with ticket %d", ticket)
	}

	if err := s.checkStopLevels(order.Type.Direction(), price, stopLoss, takeProfit); err != nil {
		return err
	}

	order.Price = price
	order.StopLoss = stopLoss
	order.TakeProfit = takeProfit

	return nil
}

// ClosePosition implements Venue.
func (s *SimVenue) ClosePosition(ticket int64) error {
	if s.tradeDisabled {
		return errors.New(errors.ErrCodeTradeDisabled, "trading is disabled on the venue")
	}

	position, ok := s.positions[ticket]
	if !ok {
		return errors.Newf(errors.ErrCodeTicketNotFound, "no position with ticket %d", ticket)
	}

	closePrice := s.tick.Bid
	if position.Direction == types.DirectionSell {
		closePrice = s.tick.Ask
	}

	s.realizeClose(position, closePrice)

	return nil
}

// DeletePending implements Venue.
func (s *SimVenue) DeletePending(ticket int64) error {
	if s.tradeDisabled {
		return errors.New(errors.ErrCodeTradeDisabled, "trading is disabled on the venue")
	}

	if _, ok := s.pending[ticket]; !ok {
		return errors.Newf(errors.ErrCodeTicketNotFound, "no pending order with ticket %d", ticket)
	}

	delete(s.pending, ticket)

	return nil
}

// Positions implements Venue.
func (s *SimVenue) Positions() ([]types.Position, error) {
	out := make([]types.Position, 0, len(s.positions))
	for _, position := range s.positions {
		out = append(out, *position)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Ticket < out[j].Ticket })

	return out, nil
}

// PendingOrders implements Venue.
func (s *SimVenue) PendingOrders() ([]types.PendingOrder, error) {
	out := make([]types.PendingOrder, 0, len(s.pending))
	for _, order := range s.pending {
		out = append(out, *order)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Ticket < out[j].Ticket })

	return out, nil
}

// Deals implements Venue.
func (s *SimVenue) Deals(filter types.DealFilter) ([]types.Deal, error) {
	var out []types.Deal

	for _, deal := range s.deals {
		if filter.Matches(deal) {
			out = append(out, deal)
		}
	}

	return out, nil
}

func (s *SimVenue) checkMutable(req types.OrderRequest) error {
	if s.tradeDisabled {
		return errors.New(errors.ErrCodeTradeDisabled, "trading is disabled on the venue")
	}

	if !s.hasTick {
		return errors.New(errors.ErrCodeOffQuotes, "no quote available yet")
	}

	if req.Symbol != s.cfg.Symbol.Symbol {
		return errors.Newf(errors.ErrCodeInvalidSymbol, "unknown symbol %s", req.Symbol)
	}

	info := s.cfg.Symbol
	if req.Volume < info.MinLot || req.Volume > info.MaxLot {
		return errors.Newf(errors.ErrCodeInvalidVolume,
			"volume %.2f outside [%.2f, %.2f]", req.Volume, info.MinLot, info.MaxLot)
	}

	return nil
}

// checkStopLevels rejects stop/target levels that sit on the wrong side of
// the reference price or inside the minimum stop distance. Zero levels are
// unset and skipped.
func (s *SimVenue) checkStopLevels(direction types.Direction, reference, stopLoss, takeProfit float64) error {
	minDistance := s.cfg.Symbol.StopDistance()

	if stopLoss != 0 {
		distance := reference - stopLoss
		if direction == types.DirectionSell {
			distance = stopLoss - reference
		}

		if distance < minDistance {
			return errors.Newf(errors.ErrCodeInvalidStops,
				"stop loss %.5f within %.5f of price %.5f", stopLoss, minDistance, reference)
		}
	}

	if takeProfit != 0 {
		distance := takeProfit - reference
		if direction == types.DirectionSell {
			distance = reference - takeProfit
		}

		if distance < minDistance {
			return errors.Newf(errors.ErrCodeInvalidStops,
				"take profit %.5f within %.5f of price %.5f", takeProfit, minDistance, reference)
		}
	}

	return nil
}

func (s *SimVenue) refreshFloatingProfit() {
	info := s.cfg.Symbol

	for _, position := range s.positions {
		var points float64

		if position.Direction == types.DirectionBuy {
			points = (s.tick.Bid - position.OpenPrice) / info.Point
		} else {
			points = (position.OpenPrice - s.tick.Ask) / info.Point
		}

		position.Profit = points * info.TickValue * position.Volume
	}
}

// triggerProtectiveExits fills stop-loss and take-profit levels at their
// exact price, an idealized no-slippage execution.
func (s *SimVenue) triggerProtectiveExits() {
	for _, position := range s.positions {
		exitPrice, hit := s.protectiveExitPrice(position)
		if hit {
			s.realizeClose(position, exitPrice)
		}
	}
}

func (s *SimVenue) protectiveExitPrice(position *types.Position) (float64, bool) {
	if position.Direction == types.DirectionBuy {
		if position.StopLoss > 0 && s.tick.Bid <= position.StopLoss {
			return position.StopLoss, true
		}

		if position.TakeProfit > 0 && s.tick.Bid >= position.TakeProfit {
			return position.TakeProfit, true
		}

		return 0, false
	}

	if position.StopLoss > 0 && s.tick.Ask >= position.StopLoss {
		return position.StopLoss, true
	}

	if position.TakeProfit > 0 && s.tick.Ask <= position.TakeProfit {
		return position.TakeProfit, true
	}

	return 0, false
}

func (s *SimVenue) triggerPendingOrders() {
	for ticket, order := range s.pending {
		if !s.pendingTriggered(order) {
			continue
		}

		position := &types.Position{
			Ticket:     s.nextTicket,
			Symbol:     order.Symbol,
			Direction:  order.Type.Direction(),
			Volume:     order.Volume,
			OpenPrice:  order.Price,
			StopLoss:   order.StopLoss,
			TakeProfit: order.TakeProfit,
			Magic:      order.Magic,
			Profit:     0,
			OpenTime:   s.tick.Time,
			Comment:    order.Comment,
		}

		s.nextTicket++
		s.positions[position.Ticket] = position

		delete(s.pending, ticket)
	}
}

func (s *SimVenue) pendingTriggered(order *types.PendingOrder) bool {
	switch order.Type {
	case types.PendingTypeBuyLimit:
		return s.tick.Ask <= order.Price
	case types.PendingTypeBuyStop:
		return s.tick.Ask >= order.Price
	case types.PendingTypeSellLimit:
		return s.tick.Bid >= order.Price
	case types.PendingTypeSellStop:
		return s.tick.Bid <= order.Price
	default:
		return false
	}
}

func (s *SimVenue) realizeClose(position *types.Position, closePrice float64) {
	info := s.cfg.Symbol

	var points float64
	if position.Direction == types.DirectionBuy {
		points = (closePrice - position.OpenPrice) / info.Point
	} else {
		points = (position.OpenPrice - closePrice) / info.Point
	}

	profit := points * info.TickValue * position.Volume
	commission := -s.cfg.CommissionPerLot * position.Volume

	deal := types.Deal{
		Ticket:     position.Ticket,
		Symbol:     position.Symbol,
		Direction:  position.Direction,
		Volume:     position.Volume,
		OpenPrice:  position.OpenPrice,
		ClosePrice: closePrice,
		Profit:     profit,
		Commission: commission,
		Swap:       0,
		Magic:      position.Magic,
		OpenTime:   position.OpenTime,
		CloseTime:  s.tick.Time,
	}

	s.deals = append(s.deals, deal)
	s.balance += deal.NetProfit()

	delete(s.positions, position.Ticket)
}
