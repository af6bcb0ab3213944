package engine

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/aurumlab/goldcore/internal/config"
	"github.com/aurumlab/goldcore/internal/feed"
	"github.com/aurumlab/goldcore/internal/journal"
	"github.com/aurumlab/goldcore/internal/logger"
	"github.com/aurumlab/goldcore/internal/metrics"
	"github.com/aurumlab/goldcore/internal/types"
	"github.com/aurumlab/goldcore/internal/venue"
	"github.com/aurumlab/goldcore/pkg/errors"
)

type EngineTestSuite struct {
	suite.Suite
	cfg    config.Config
	sim    *venue.SimVenue
	feed   *feed.SliceFeed
	engine *Engine
}

func TestEngineSuite(t *testing.T) {
	suite.Run(t, new(EngineTestSuite))
}

func (suite *EngineTestSuite) SetupTest() {
	var err error
	suite.cfg, err = config.Default()
	suite.Require().NoError(err)

	// Deterministic sizing and a reward gate the analyzer's fixed 1:2
	// signals always clear.
	suite.cfg.Risk.UseFixedLot = true
	suite.cfg.Risk.FixedLot = 0.10
	suite.cfg.Risk.MinRewardRatio = 1.5

	suite.buildEngine(nil)
}

// buildEngine (re)creates the sim, feed and engine from suite.cfg.
func (suite *EngineTestSuite) buildEngine(jrnl journal.Journal) {
	suite.sim = venue.NewSimVenue(venue.SimConfig{
		Symbol: types.SymbolInfo{
			Symbol:             "XAUUSD",
			Point:              0.01,
			Digits:             2,
			TickValue:          0.01,
			StopDistancePoints: 30,
			MinLot:             0.01,
			MaxLot:             100,
			LotStep:            0.01,
		},
		InitialBalance: 10000,
		MarginPerLot:   2400,
	})
	suite.setTick(10, 2399.80, 2400.20)

	suite.feed = feed.NewSliceFeed()
	suite.setFlatFeed()

	suite.engine = New(suite.cfg, suite.sim, suite.feed, metrics.NewRegistry(), jrnl, logger.NewNopLogger())
}

func (suite *EngineTestSuite) setTick(hour int, bid, ask float64) {
	suite.sim.SetTick(types.Tick{
		Time: time.Date(2024, 6, 3, hour, 0, 0, 0, time.UTC),
		Bid:  bid,
		Ask:  ask,
	})
}

func (suite *EngineTestSuite) tick(hour int, bid, ask float64) types.Tick {
	suite.setTick(hour, bid, ask)

	return types.Tick{
		Time: time.Date(2024, 6, 3, hour, 0, 0, 0, time.UTC),
		Bid:  bid,
		Ask:  ask,
	}
}

func (suite *EngineTestSuite) setFlatFeed() {
	suite.feed.Set(types.IndicatorFastMA, []float64{2399.0, 2399.0})
	suite.feed.Set(types.IndicatorSlowMA, []float64{2399.5, 2399.5})
	suite.feed.Set(types.IndicatorMACD, []float64{0.10, 0.10})
	suite.feed.Set(types.IndicatorMACDSignal, []float64{0.20, 0.20})
	suite.feed.Set(types.IndicatorRSI, []float64{50})
	suite.feed.Set(types.IndicatorATR, []float64{5.0})
}

func (suite *EngineTestSuite) setBuyCrossover() {
	suite.feed.Set(types.IndicatorFastMA, []float64{2400.5, 2398.0})
	suite.feed.Set(types.IndicatorSlowMA, []float64{2399.5, 2399.0})
	suite.feed.Set(types.IndicatorMACD, []float64{0.35, 0.10})
	suite.feed.Set(types.IndicatorMACDSignal, []float64{0.20, 0.20})
	suite.feed.Set(types.IndicatorRSI, []float64{58})
	suite.feed.Set(types.IndicatorATR, []float64{5.0})
}

func (suite *EngineTestSuite) setSellCrossover() {
	suite.feed.Set(types.IndicatorFastMA, []float64{2398.5, 2400.0})
	suite.feed.Set(types.IndicatorSlowMA, []float64{2399.5, 2399.0})
	suite.feed.Set(types.IndicatorMACD, []float64{0.05, 0.30})
	suite.feed.Set(types.IndicatorMACDSignal, []float64{0.20, 0.20})
	suite.feed.Set(types.IndicatorRSI, []float64{42})
	suite.feed.Set(types.IndicatorATR, []float64{5.0})
}

func (suite *EngineTestSuite) ownPositions() []types.Position {
	positions, err := suite.sim.Positions()
	suite.Require().NoError(err)

	owned := make([]types.Position, 0, len(positions))

	for _, position := range positions {
		if position.Magic == suite.cfg.MagicNumber {
			owned = append(owned, position)
		}
	}

	return owned
}

func (suite *EngineTestSuite) TestProcessTickBeforeInitialize() {
	err := suite.engine.ProcessTick(suite.tick(10, 2399.80, 2400.20))
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeEngineNotInitialized))
}

func (suite *EngineTestSuite) TestInitializeIsNotRepeatable() {
	suite.Require().NoError(suite.engine.Initialize())

	err := suite.engine.Initialize()
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeEngineAlreadyInitialized))
}

func (suite *EngineTestSuite) TestQuietTickOpensNothing() {
	suite.Require().NoError(suite.engine.Initialize())

	suite.Require().NoError(suite.engine.ProcessTick(suite.tick(10, 2399.80, 2400.20)))
	suite.Empty(suite.ownPositions())
}

func (suite *EngineTestSuite) TestBuySignalOpensPosition() {
	suite.Require().NoError(suite.engine.Initialize())
	suite.setBuyCrossover()

	suite.Require().NoError(suite.engine.ProcessTick(suite.tick(10, 2399.80, 2400.20)))

	positions := suite.ownPositions()
	suite.Require().Len(positions, 1)
	suite.Equal(types.DirectionBuy, positions[0].Direction)
	suite.InDelta(0.10, positions[0].Volume, 1e-9)

	// ATR 5.0 at the default 1.5 multiplier: stop 7.5 under the ask,
	// target 15 above.
	suite.InDelta(2400.20, positions[0].OpenPrice, 1e-9)
	suite.InDelta(2392.70, positions[0].StopLoss, 1e-9)
	suite.InDelta(2415.20, positions[0].TakeProfit, 1e-9)
}

func (suite *EngineTestSuite) TestSellSignalOpensPosition() {
	suite.Require().NoError(suite.engine.Initialize())
	suite.setSellCrossover()

	suite.Require().NoError(suite.engine.ProcessTick(suite.tick(10, 2399.80, 2400.20)))

	positions := suite.ownPositions()
	suite.Require().Len(positions, 1)
	suite.Equal(types.DirectionSell, positions[0].Direction)
}

func (suite *EngineTestSuite) TestMaxOpenTradesCapsEntries() {
	suite.cfg.MaxOpenTrades = 1
	suite.buildEngine(nil)
	suite.Require().NoError(suite.engine.Initialize())
	suite.setBuyCrossover()

	suite.Require().NoError(suite.engine.ProcessTick(suite.tick(10, 2399.80, 2400.20)))
	suite.Require().NoError(suite.engine.ProcessTick(suite.tick(11, 2399.80, 2400.20)))

	suite.Len(suite.ownPositions(), 1)
}

func (suite *EngineTestSuite) TestDirectionGateBlocksShorts() {
	suite.cfg.AllowShort = false
	suite.buildEngine(nil)
	suite.Require().NoError(suite.engine.Initialize())
	suite.setSellCrossover()

	suite.Require().NoError(suite.engine.ProcessTick(suite.tick(10, 2399.80, 2400.20)))
	suite.Empty(suite.ownPositions())
}

func (suite *EngineTestSuite) TestRewardRiskGateRejectsEntry() {
	suite.cfg.Risk.MinRewardRatio = 3
	suite.buildEngine(nil)
	suite.Require().NoError(suite.engine.Initialize())
	suite.setBuyCrossover()

	suite.Require().NoError(suite.engine.ProcessTick(suite.tick(10, 2399.80, 2400.20)))
	suite.Empty(suite.ownPositions())
}

func (suite *EngineTestSuite) TestFeedFailureSkipsEntryButKeepsUpkeep() {
	suite.Require().NoError(suite.engine.Initialize())
	suite.setBuyCrossover()
	suite.feed.Set(types.IndicatorATR, []float64{})

	suite.Require().NoError(suite.engine.ProcessTick(suite.tick(10, 2399.80, 2400.20)))
	suite.Empty(suite.ownPositions())

	snapshot := suite.engine.Snapshot()
	suite.InDelta(10000.0, snapshot.Balance, 1e-9)
}

func (suite *EngineTestSuite) TestStopOutTripsDailyLossProtection() {
	// Make a single stop-out big enough to breach the 5% daily limit: one
	// full lot at a 1.0 tick value loses 750 on a 750-point stop.
	suite.cfg.Risk.FixedLot = 1.0
	suite.cfg.Risk.RiskPercent = 10
	suite.cfg.Risk.MaxEquityRiskPercent = 20
	suite.buildEngine(nil)

	simInfo := types.SymbolInfo{
		Symbol:             "XAUUSD",
		Point:              0.01,
		Digits:             2,
		TickValue:          1.0,
		StopDistancePoints: 30,
		MinLot:             0.01,
		MaxLot:             100,
		LotStep:            0.01,
	}
	suite.sim = venue.NewSimVenue(venue.SimConfig{
		Symbol:         simInfo,
		InitialBalance: 10000,
		MarginPerLot:   2400,
	})
	suite.engine = New(suite.cfg, suite.sim, suite.feed, metrics.NewRegistry(), nil, logger.NewNopLogger())
	suite.setTick(10, 2399.80, 2400.20)

	suite.Require().NoError(suite.engine.Initialize())
	suite.setBuyCrossover()
	suite.Require().NoError(suite.engine.ProcessTick(suite.tick(10, 2399.80, 2400.20)))
	suite.Require().Len(suite.ownPositions(), 1)

	// Crash through the stop; the venue closes the position at 2392.70 for
	// a 750 loss, 7.5% of the initial balance.
	suite.setFlatFeed()
	suite.Require().NoError(suite.engine.ProcessTick(suite.tick(11, 2380.00, 2380.40)))

	suite.False(suite.engine.TradingEnabled())
	suite.Empty(suite.ownPositions())

	// A fresh signal opens nothing while trading is disabled.
	suite.setBuyCrossover()
	suite.Require().NoError(suite.engine.ProcessTick(suite.tick(12, 2380.00, 2380.40)))
	suite.Empty(suite.ownPositions())
}

func (suite *EngineTestSuite) TestSnapshotReflectsState() {
	suite.Require().NoError(suite.engine.Initialize())
	suite.setBuyCrossover()
	suite.Require().NoError(suite.engine.ProcessTick(suite.tick(10, 2399.80, 2400.20)))

	snapshot := suite.engine.Snapshot()
	suite.NotEmpty(snapshot.RunID)
	suite.Equal(StateInitialized, snapshot.State)
	suite.True(snapshot.TradingEnabled)
	suite.Equal(1, snapshot.OpenPositions)
	suite.InDelta(10000.0, snapshot.Balance, 1e-9)
}

func (suite *EngineTestSuite) TestProcessTimerRunsUpkeep() {
	suite.Require().NoError(suite.engine.Initialize())
	suite.Require().NoError(suite.engine.ProcessTimer(time.Date(2024, 6, 3, 10, 5, 0, 0, time.UTC)))

	snapshot := suite.engine.Snapshot()
	suite.InDelta(10000.0, snapshot.Equity, 1e-9)
}

func (suite *EngineTestSuite) TestShutdownWritesRunArtifacts() {
	dir := suite.T().TempDir()
	jrnl, err := journal.NewCSVJournal(dir, time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC))
	suite.Require().NoError(err)

	suite.buildEngine(jrnl)
	suite.Require().NoError(suite.engine.Initialize())
	suite.Require().NoError(suite.engine.ProcessTick(suite.tick(10, 2399.80, 2400.20)))
	suite.Require().NoError(suite.engine.Shutdown(time.Date(2024, 6, 3, 11, 0, 0, 0, time.UTC)))

	suite.FileExists(filepath.Join(jrnl.RunDir(), "snapshot.yaml"))
	suite.FileExists(filepath.Join(jrnl.RunDir(), "equity_curve.csv"))

	err = suite.engine.ProcessTick(suite.tick(12, 2399.80, 2400.20))
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeEngineNotInitialized))
}
