package metrics

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/suite"
)

type MetricsTestSuite struct {
	suite.Suite
	registry *Registry
}

func TestMetricsSuite(t *testing.T) {
	suite.Run(t, new(MetricsTestSuite))
}

func (suite *MetricsTestSuite) SetupTest() {
	suite.registry = NewRegistry()
}

// gaugeValue finds a single-series gauge by name.
func (suite *MetricsTestSuite) gaugeValue(name string) float64 {
	families, err := suite.registry.Gather()
	suite.Require().NoError(err)

	for _, family := range families {
		if family.GetName() != name {
			continue
		}

		metrics := family.GetMetric()
		suite.Require().Len(metrics, 1)

		return metrics[0].GetGauge().GetValue()
	}

	suite.Require().FailNowf("metric not found", "name %s", name)

	return 0
}

func (suite *MetricsTestSuite) TestCountersRegistered() {
	suite.registry.RecordTick()
	suite.registry.RecordSignal("buy")
	suite.registry.RecordOrder("open", "filled")
	suite.registry.RecordRiskRejection("daily_loss")

	families, err := suite.registry.Gather()
	suite.Require().NoError(err)

	names := make(map[string]bool, len(families))
	for _, family := range families {
		names[family.GetName()] = true
	}

	suite.True(names["goldcore_ticks_processed_total"])
	suite.True(names["goldcore_signals_total"])
	suite.True(names["goldcore_orders_total"])
	suite.True(names["goldcore_risk_rejections_total"])
}

func (suite *MetricsTestSuite) TestAccountGauges() {
	suite.registry.SetAccountState(10000, 9900, 1.5)

	suite.InDelta(10000.0, suite.gaugeValue("goldcore_balance"), 1e-9)
	suite.InDelta(9900.0, suite.gaugeValue("goldcore_equity"), 1e-9)
	suite.InDelta(1.5, suite.gaugeValue("goldcore_drawdown_percent"), 1e-9)
}

func (suite *MetricsTestSuite) TestTradingEnabledGauge() {
	suite.registry.SetTradingEnabled(true)
	suite.InDelta(1.0, suite.gaugeValue("goldcore_trading_enabled"), 1e-9)

	suite.registry.SetTradingEnabled(false)
	suite.InDelta(0.0, suite.gaugeValue("goldcore_trading_enabled"), 1e-9)
}

func (suite *MetricsTestSuite) TestHandlerServesExposition() {
	suite.registry.RecordTick()

	recorder := httptest.NewRecorder()
	request := httptest.NewRequest("GET", "/metrics", nil)
	suite.registry.Handler().ServeHTTP(recorder, request)

	suite.Equal(200, recorder.Code)
	suite.Contains(recorder.Body.String(), "goldcore_ticks_processed_total")
}
