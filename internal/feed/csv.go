package feed

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/aurumlab/goldcore/internal/types"
	"github.com/aurumlab/goldcore/pkg/errors"
)

// Row is one replay record: a quote plus the indicator values computed on the
// bar that closed at that quote.
type Row struct {
	Tick       types.Tick
	FastMA     float64
	SlowMA     float64
	ATR        float64
	RSI        float64
	MACD       float64
	MACDSignal float64
}

// csvColumns is the expected header of a replay file.
var csvColumns = []string{
	"time", "bid", "ask", "fast_ma", "slow_ma", "atr", "rsi", "macd", "macd_signal",
}

// ReplayFeed is a Feed fed by successive replay rows. It keeps the full
// history of each series so the analyzer can request the last N values.
type ReplayFeed struct {
	// history per series, most recent first
	history map[types.IndicatorKind][]float64
}

// NewReplayFeed creates an empty ReplayFeed.
func NewReplayFeed() *ReplayFeed {
	return &ReplayFeed{
		history: make(map[types.IndicatorKind][]float64),
	}
}

// Advance pushes one replay row onto the front of every series.
func (f *ReplayFeed) Advance(row Row) {
	push := func(kind types.IndicatorKind, value float64) {
		f.history[kind] = append([]float64{value}, f.history[kind]...)
	}

	push(types.IndicatorFastMA, row.FastMA)
	push(types.IndicatorSlowMA, row.SlowMA)
	push(types.IndicatorATR, row.ATR)
	push(types.IndicatorRSI, row.RSI)
	push(types.IndicatorMACD, row.MACD)
	push(types.IndicatorMACDSignal, row.MACDSignal)
}

// Values implements Feed.
func (f *ReplayFeed) Values(kind types.IndicatorKind, n int) ([]float64, error) {
	if n <= 0 {
		return nil, errors.Newf(errors.ErrCodeInvalidParameter, "requested %d values", n)
	}

	values, ok := f.history[kind]
	if !ok || len(values) < n {
		return nil, errors.Newf(errors.ErrCodeFeedCopyFailed,
			"series %s holds %d values, %d requested", kind, len(values), n)
	}

	out := make([]float64, n)
	copy(out, values[:n])

	return out, nil
}

// ReadCSV loads a replay file. The file must carry the header
// time,bid,ask,fast_ma,slow_ma,atr,rsi,macd,macd_signal with RFC 3339 times.
func ReadCSV(path string) ([]Row, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeFeedUnavailable, err, "failed to open replay file %s", path)
	}
	defer file.Close()

	reader := csv.NewReader(file)

	header, err := reader.Read()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeFeedCopyFailed, "failed to read replay header", err)
	}

	if len(header) != len(csvColumns) {
		return nil, errors.Newf(errors.ErrCodeFeedCopyFailed,
			"replay header has %d columns, expected %d", len(header), len(csvColumns))
	}

	for i, column := range csvColumns {
		if header[i] != column {
			return nil, errors.Newf(errors.ErrCodeFeedCopyFailed,
				"replay column %d is %q, expected %q", i, header[i], column)
		}
	}

	var rows []Row

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}

		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeFeedCopyFailed, "failed to read replay record", err)
		}

		row, err := parseRow(record)
		if err != nil {
			return nil, err
		}

		rows = append(rows, row)
	}

	return rows, nil
}

func parseRow(record []string) (Row, error) {
	tickTime, err := time.Parse(time.RFC3339, record[0])
	if err != nil {
		return Row{}, errors.Wrapf(errors.ErrCodeFeedCopyFailed, err, "invalid time %q", record[0])
	}

	values := make([]float64, len(record)-1)

	for i, raw := range record[1:] {
		value, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return Row{}, errors.Wrapf(errors.ErrCodeFeedCopyFailed, err, "invalid value %q", raw)
		}

		values[i] = value
	}

	return Row{
		Tick: types.Tick{
			Time: tickTime,
			Bid:  values[0],
			Ask:  values[1],
		},
		FastMA:     values[2],
		SlowMA:     values[3],
		ATR:        values[4],
		RSI:        values[5],
		MACD:       values[6],
		MACDSignal: values[7],
	}, nil
}
