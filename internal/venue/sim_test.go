package venue

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/moznion/go-optional"
	"github.com/stretchr/testify/suite"

	"github.com/aurumlab/goldcore/internal/types"
	"github.com/aurumlab/goldcore/pkg/errors"
)

const testMagic int64 = 860001

func xauSymbol() types.SymbolInfo {
	return types.SymbolInfo{
		Symbol:             "XAUUSD",
		Point:              0.01,
		Digits:             2,
		TickValue:          0.01, // 1 USD per 1.00 price move per lot
		StopDistancePoints: 30,
		MinLot:             0.01,
		MaxLot:             100,
		LotStep:            0.01,
	}
}

type SimVenueTestSuite struct {
	suite.Suite
	sim *SimVenue
}

func TestSimVenueSuite(t *testing.T) {
	suite.Run(t, new(SimVenueTestSuite))
}

func (suite *SimVenueTestSuite) SetupTest() {
	suite.sim = NewSimVenue(SimConfig{
		Symbol:           xauSymbol(),
		InitialBalance:   100000,
		MarginPerLot:     2400,
		CommissionPerLot: 7,
	})
	suite.sim.SetTick(types.Tick{
		Time: time.Date(2024, 6, 3, 10, 0, 0, 0, time.UTC),
		Bid:  2399.80,
		Ask:  2400.20,
	})
}

func (suite *SimVenueTestSuite) marketRequest(direction types.Direction, volume float64) types.OrderRequest {
	return types.OrderRequest{
		ID:          uuid.New().String(),
		Symbol:      "XAUUSD",
		Direction:   direction,
		Volume:      volume,
		Price:       optional.None[float64](),
		PendingType: optional.None[types.PendingType](),
		StopLoss:    optional.None[float64](),
		TakeProfit:  optional.None[float64](),
		Magic:       testMagic,
		Comment:     "test",
	}
}

func (suite *SimVenueTestSuite) TestOpenMarketBuyFillsAtAsk() {
	ticket, err := suite.sim.OpenMarket(suite.marketRequest(types.DirectionBuy, 0.10))
	suite.NoError(err)
	suite.NotZero(ticket)

	positions, err := suite.sim.Positions()
	suite.NoError(err)
	suite.Require().Len(positions, 1)
	suite.InDelta(2400.20, positions[0].OpenPrice, 1e-9)
	suite.Equal(types.DirectionBuy, positions[0].Direction)
	suite.Equal(testMagic, positions[0].Magic)
}

func (suite *SimVenueTestSuite) TestOpenMarketSellFillsAtBid() {
	_, err := suite.sim.OpenMarket(suite.marketRequest(types.DirectionSell, 0.10))
	suite.NoError(err)

	positions, _ := suite.sim.Positions()
	suite.Require().Len(positions, 1)
	suite.InDelta(2399.80, positions[0].OpenPrice, 1e-9)
}

func (suite *SimVenueTestSuite) TestOpenMarketRejectsBadVolume() {
	_, err := suite.sim.OpenMarket(suite.marketRequest(types.DirectionBuy, 0.001))
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidVolume))
}

func (suite *SimVenueTestSuite) TestOpenMarketRejectsStopInsideMinimumDistance() {
	req := suite.marketRequest(types.DirectionBuy, 0.10)
	// 20 points below the bid; the venue minimum is 30.
	req.StopLoss = optional.Some(2399.60)

	_, err := suite.sim.OpenMarket(req)
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidStops))

	positions, _ := suite.sim.Positions()
	suite.Empty(positions)
}

func (suite *SimVenueTestSuite) TestOpenMarketRejectsWhenNoMargin() {
	_, err := suite.sim.OpenMarket(suite.marketRequest(types.DirectionBuy, 100))
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeNoMoney))
}

func (suite *SimVenueTestSuite) TestOpenMarketRejectsWhenTradeDisabled() {
	suite.sim.SetTradeDisabled(true)

	_, err := suite.sim.OpenMarket(suite.marketRequest(types.DirectionBuy, 0.10))
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeTradeDisabled))
}

func (suite *SimVenueTestSuite) TestCloseRealizesProfitIntoBalance() {
	ticket, err := suite.sim.OpenMarket(suite.marketRequest(types.DirectionBuy, 1.0))
	suite.Require().NoError(err)

	// +10.00 move = 1000 points; tick value 0.01/point/lot => 10 USD per lot
	suite.sim.SetTick(types.Tick{Time: time.Date(2024, 6, 3, 11, 0, 0, 0, time.UTC), Bid: 2410.20, Ask: 2410.60})
	suite.NoError(suite.sim.ClosePosition(ticket))

	account, err := suite.sim.AccountInfo()
	suite.NoError(err)
	// gross 10.00, commission 7 per lot
	suite.InDelta(100000+10.0-7.0, account.Balance, 1e-6)

	deals, err := suite.sim.Deals(types.DealFilter{})
	suite.NoError(err)
	suite.Require().Len(deals, 1)
	suite.InDelta(10.0, deals[0].Profit, 1e-6)
	suite.InDelta(-7.0, deals[0].Commission, 1e-6)

	positions, _ := suite.sim.Positions()
	suite.Empty(positions)
}

func (suite *SimVenueTestSuite) TestStopLossTriggersAtStopPrice() {
	req := suite.marketRequest(types.DirectionBuy, 1.0)
	req.StopLoss = optional.Some(2390.0)
	_, err := suite.sim.OpenMarket(req)
	suite.Require().NoError(err)

	suite.sim.SetTick(types.Tick{Time: time.Date(2024, 6, 3, 11, 0, 0, 0, time.UTC), Bid: 2389.50, Ask: 2389.90})

	positions, _ := suite.sim.Positions()
	suite.Empty(positions)

	deals, _ := suite.sim.Deals(types.DealFilter{})
	suite.Require().Len(deals, 1)
	suite.InDelta(2390.0, deals[0].ClosePrice, 1e-9)
}

func (suite *SimVenueTestSuite) TestTakeProfitTriggers() {
	req := suite.marketRequest(types.DirectionSell, 0.5)
	req.TakeProfit = optional.Some(2380.0)
	_, err := suite.sim.OpenMarket(req)
	suite.Require().NoError(err)

	suite.sim.SetTick(types.Tick{Time: time.Date(2024, 6, 3, 11, 0, 0, 0, time.UTC), Bid: 2379.50, Ask: 2379.90})

	positions, _ := suite.sim.Positions()
	suite.Empty(positions)

	deals, _ := suite.sim.Deals(types.DealFilter{})
	suite.Require().Len(deals, 1)
	suite.InDelta(2380.0, deals[0].ClosePrice, 1e-9)
	suite.Positive(deals[0].Profit)
}

func (suite *SimVenueTestSuite) TestBuyLimitTriggersWhenAskFalls() {
	req := suite.marketRequest(types.DirectionBuy, 0.10)
	req.Price = optional.Some(2395.0)
	req.PendingType = optional.Some(types.PendingTypeBuyLimit)

	ticket, err := suite.sim.PlacePending(req)
	suite.NoError(err)
	suite.NotZero(ticket)

	orders, _ := suite.sim.PendingOrders()
	suite.Len(orders, 1)

	suite.sim.SetTick(types.Tick{Time: time.Date(2024, 6, 3, 11, 0, 0, 0, time.UTC), Bid: 2394.40, Ask: 2394.80})

	orders, _ = suite.sim.PendingOrders()
	suite.Empty(orders)

	positions, _ := suite.sim.Positions()
	suite.Require().Len(positions, 1)
	suite.InDelta(2395.0, positions[0].OpenPrice, 1e-9)
	suite.Equal(types.DirectionBuy, positions[0].Direction)
}

func (suite *SimVenueTestSuite) TestDeletePending() {
	req := suite.marketRequest(types.DirectionSell, 0.10)
	req.Price = optional.Some(2410.0)
	req.PendingType = optional.Some(types.PendingTypeSellLimit)

	ticket, err := suite.sim.PlacePending(req)
	suite.Require().NoError(err)

	suite.NoError(suite.sim.DeletePending(ticket))
	suite.Error(suite.sim.DeletePending(ticket))

	orders, _ := suite.sim.PendingOrders()
	suite.Empty(orders)
}

func (suite *SimVenueTestSuite) TestModifyPosition() {
	ticket, err := suite.sim.OpenMarket(suite.marketRequest(types.DirectionBuy, 0.10))
	suite.Require().NoError(err)

	suite.NoError(suite.sim.ModifyPosition(ticket, 2395.0, 2410.0))

	positions, _ := suite.sim.Positions()
	suite.Require().Len(positions, 1)
	suite.InDelta(2395.0, positions[0].StopLoss, 1e-9)
	suite.InDelta(2410.0, positions[0].TakeProfit, 1e-9)

	err = suite.sim.ModifyPosition(9999, 1, 2)
	suite.True(errors.HasCode(err, errors.ErrCodeTicketNotFound))
}

func (suite *SimVenueTestSuite) TestModifyPositionRejectsStopInsideMinimumDistance() {
	ticket, err := suite.sim.OpenMarket(suite.marketRequest(types.DirectionBuy, 0.10))
	suite.Require().NoError(err)

	err = suite.sim.ModifyPosition(ticket, 2399.60, 0)
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidStops))

	positions, _ := suite.sim.Positions()
	suite.Require().Len(positions, 1)
	suite.Zero(positions[0].StopLoss)
}

func (suite *SimVenueTestSuite) TestModifyPendingRejectsStopInsideMinimumDistance() {
	req := suite.marketRequest(types.DirectionBuy, 0.10)
	req.Price = optional.Some(2395.0)
	req.PendingType = optional.Some(types.PendingTypeBuyLimit)

	ticket, err := suite.sim.PlacePending(req)
	suite.Require().NoError(err)

	// 20 points below the order price; the venue minimum is 30.
	err = suite.sim.ModifyPending(ticket, 2395.0, 2394.80, 0)
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidStops))

	orders, _ := suite.sim.PendingOrders()
	suite.Require().Len(orders, 1)
	suite.Zero(orders[0].StopLoss)
}

func (suite *SimVenueTestSuite) TestDealsFilterBySymbolAndMagic() {
	suite.sim.SeedPosition(types.Position{
		Symbol:    "XAUUSD",
		Direction: types.DirectionBuy,
		Volume:    0.10,
		OpenPrice: 2400.0,
		Magic:     999, // foreign strategy
		OpenTime:  time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC),
	})

	ticket, err := suite.sim.OpenMarket(suite.marketRequest(types.DirectionBuy, 0.10))
	suite.Require().NoError(err)

	suite.sim.SetTick(types.Tick{Time: time.Date(2024, 6, 3, 11, 0, 0, 0, time.UTC), Bid: 2405.0, Ask: 2405.40})
	suite.NoError(suite.sim.ClosePosition(ticket))

	all, _ := suite.sim.Deals(types.DealFilter{})
	suite.Len(all, 1)

	mine, _ := suite.sim.Deals(types.DealFilter{Symbol: "XAUUSD", Magic: testMagic})
	suite.Len(mine, 1)

	foreign, _ := suite.sim.Deals(types.DealFilter{Magic: 999})
	suite.Empty(foreign)
}

func (suite *SimVenueTestSuite) TestAccountEquityTracksFloatingProfit() {
	_, err := suite.sim.OpenMarket(suite.marketRequest(types.DirectionBuy, 1.0))
	suite.Require().NoError(err)

	suite.sim.SetTick(types.Tick{Time: time.Date(2024, 6, 3, 11, 0, 0, 0, time.UTC), Bid: 2405.20, Ask: 2405.60})

	account, err := suite.sim.AccountInfo()
	suite.NoError(err)
	// bid moved from open 2400.20 to 2405.20 = +5.00 = 5 USD on 1 lot
	suite.InDelta(100000.0, account.Balance, 1e-9)
	suite.InDelta(100005.0, account.Equity, 1e-6)
	suite.InDelta(2400.0, account.Margin, 1e-9)
}
