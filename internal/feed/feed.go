// Package feed defines the narrow read-only indicator interface the analyzer
// depends on. The raw indicator math (moving averages, RSI, MACD, ATR) is an
// external collaborator; implementations of Feed can be backed by a live
// platform buffer or by a deterministic fixture in tests.
package feed

import (
	"github.com/aurumlab/goldcore/internal/types"
	"github.com/aurumlab/goldcore/pkg/errors"
)

// Feed supplies the latest n values of an indicator series, most recent
// first (index 0 is the newest completed bar).
type Feed interface {
	// Values returns the latest n values of the series, or an error if the
	// feed cannot supply that many values right now.
	Values(kind types.IndicatorKind, n int) ([]float64, error)
}

// SliceFeed is a deterministic in-memory Feed used by tests and fixtures.
// Series are stored most recent first, matching the Feed contract.
type SliceFeed struct {
	series map[types.IndicatorKind][]float64
}

// NewSliceFeed creates an empty SliceFeed.
func NewSliceFeed() *SliceFeed {
	return &SliceFeed{
		series: make(map[types.IndicatorKind][]float64),
	}
}

// Set replaces the stored series for the given kind, most recent first.
func (f *SliceFeed) Set(kind types.IndicatorKind, values []float64) {
	f.series[kind] = values
}

// Values implements Feed.
func (f *SliceFeed) Values(kind types.IndicatorKind, n int) ([]float64, error) {
	if n <= 0 {
		return nil, errors.Newf(errors.ErrCodeInvalidParameter, "requested %d values", n)
	}

	values, ok := f.series[kind]
	if !ok {
		return nil, errors.Newf(errors.ErrCodeFeedDataMissing, "no series for indicator %s", kind)
	}

	if len(values) < n {
		return nil, errors.Newf(errors.ErrCodeFeedCopyFailed,
			"series %s holds %d values, %d requested", kind, len(values), n)
	}

	out := make([]float64, n)
	copy(out, values[:n])

	return out, nil
}
