// Package journal persists the engine's run artifacts: closed trades and the
// equity curve as CSV files, and the final portfolio snapshot as YAML.
package journal

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/aurumlab/goldcore/internal/portfolio"
	"github.com/aurumlab/goldcore/internal/types"
)

// Journal defines the interface for writing run artifacts.
type Journal interface {
	// WriteDeal appends a closed trade to the journal.
	WriteDeal(deal types.Deal) error

	// WriteEquityPoint appends one equity curve sample.
	WriteEquityPoint(at time.Time, equity float64) error

	// WriteSnapshot writes the final portfolio snapshot.
	WriteSnapshot(snapshot portfolio.Snapshot) error

	// Close finalizes the journal.
	Close() error
}

// CSVJournal implements Journal by writing CSV files into a per-run
// directory under the configured base directory.
type CSVJournal struct {
	runDir string

	dealsFile  *os.File
	equityFile *os.File

	dealsCsv  *csv.Writer
	equityCsv *csv.Writer
}

// NewCSVJournal creates a CSVJournal writing into a fresh timestamped run
// directory under baseDir.
func NewCSVJournal(baseDir string, now time.Time) (*CSVJournal, error) {
	runDir := filepath.Join(baseDir, now.Format("2006-01-02_15-04-05"))

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create run directory: %w", err)
	}

	journal := &CSVJournal{runDir: runDir}

	if err := journal.initFiles(); err != nil {
		return nil, err
	}

	return journal, nil
}

// RunDir returns the directory this run's artifacts are written into.
func (j *CSVJournal) RunDir() string {
	return j.runDir
}

func (j *CSVJournal) initFiles() error {
	dealsFile, err := os.Create(filepath.Join(j.runDir, "deals.csv"))
	if err != nil {
		return fmt.Errorf("failed to create deals file: %w", err)
	}

	j.dealsFile = dealsFile
	j.dealsCsv = csv.NewWriter(dealsFile)

	if err := j.dealsCsv.Write([]string{
		"ticket", "symbol", "direction", "volume", "open_price", "close_price",
		"profit", "commission", "swap", "open_time", "close_time",
	}); err != nil {
		return fmt.Errorf("failed to write deals header: %w", err)
	}

	equityFile, err := os.Create(filepath.Join(j.runDir, "equity_curve.csv"))
	if err != nil {
		return fmt.Errorf("failed to create equity curve file: %w", err)
	}

	j.equityFile = equityFile
	j.equityCsv = csv.NewWriter(equityFile)

	if err := j.equityCsv.Write([]string{"time", "equity"}); err != nil {
		return fmt.Errorf("failed to write equity curve header: %w", err)
	}

	return nil
}

// WriteDeal appends a closed trade to deals.csv.
func (j *CSVJournal) WriteDeal(deal types.Deal) error {
	record := []string{
		fmt.Sprintf("%d", deal.Ticket),
		deal.Symbol,
		string(deal.Direction),
		fmt.Sprintf("%f", deal.Volume),
		fmt.Sprintf("%f", deal.OpenPrice),
		fmt.Sprintf("%f", deal.ClosePrice),
		fmt.Sprintf("%f", deal.Profit),
		fmt.Sprintf("%f", deal.Commission),
		fmt.Sprintf("%f", deal.Swap),
		deal.OpenTime.Format(time.RFC3339),
		deal.CloseTime.Format(time.RFC3339),
	}

	if err := j.dealsCsv.Write(record); err != nil {
		return fmt.Errorf("failed to write deal: %w", err)
	}

	j.dealsCsv.Flush()

	return j.dealsCsv.Error()
}

// WriteEquityPoint appends one sample to equity_curve.csv.
func (j *CSVJournal) WriteEquityPoint(at time.Time, equity float64) error {
	record := []string{
		at.Format(time.RFC3339),
		fmt.Sprintf("%f", equity),
	}

	if err := j.equityCsv.Write(record); err != nil {
		return fmt.Errorf("failed to write equity curve point: %w", err)
	}

	j.equityCsv.Flush()

	return j.equityCsv.Error()
}

// WriteSnapshot writes the portfolio snapshot as snapshot.yaml.
func (j *CSVJournal) WriteSnapshot(snapshot portfolio.Snapshot) error {
	return portfolio.WriteSnapshot(filepath.Join(j.runDir, "snapshot.yaml"), snapshot)
}

// Close flushes and closes all files.
func (j *CSVJournal) Close() error {
	if j.dealsCsv != nil {
		j.dealsCsv.Flush()
	}

	if j.equityCsv != nil {
		j.equityCsv.Flush()
	}

	if j.dealsFile != nil {
		j.dealsFile.Close()
	}

	if j.equityFile != nil {
		j.equityFile.Close()
	}

	return nil
}
