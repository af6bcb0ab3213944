package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/aurumlab/goldcore/internal/config"
	"github.com/aurumlab/goldcore/internal/engine"
	"github.com/aurumlab/goldcore/internal/feed"
	"github.com/aurumlab/goldcore/internal/journal"
	"github.com/aurumlab/goldcore/internal/logger"
	"github.com/aurumlab/goldcore/internal/metrics"
	"github.com/aurumlab/goldcore/internal/server"
	"github.com/aurumlab/goldcore/internal/types"
	"github.com/aurumlab/goldcore/internal/venue"
	"github.com/aurumlab/goldcore/pkg/utils"
)

// replaySymbolInfo builds the venue constraints for a replay run. XAUUSD
// quoted to 2 digits with a $1 point value per lot.
func replaySymbolInfo(symbol string) types.SymbolInfo {
	return types.SymbolInfo{
		Symbol:             symbol,
		Point:              0.01,
		Digits:             2,
		TickValue:          1.0,
		StopDistancePoints: 30,
		MinLot:             0.01,
		MaxLot:             100,
		LotStep:            0.01,
	}
}

// runAction replays a tick file through the engine against the simulated
// venue and writes the run artifacts.
func runAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return err
	}

	appLog, err := logger.NewLogger()
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer appLog.Sync() //nolint:errcheck // stdout sync failure is harmless on exit

	rows, err := feed.ReadCSV(cmd.String("ticks"))
	if err != nil {
		return err
	}

	if len(rows) == 0 {
		return fmt.Errorf("replay file %s holds no rows", cmd.String("ticks"))
	}

	sim := venue.NewSimVenue(venue.SimConfig{
		Symbol:           replaySymbolInfo(cfg.Symbol),
		InitialBalance:   cmd.Float64("balance"),
		MarginPerLot:     cmd.Float64("margin-per-lot"),
		CommissionPerLot: cmd.Float64("commission-per-lot"),
	})
	sim.SetTick(rows[0].Tick)

	replayFeed := feed.NewReplayFeed()
	registry := metrics.NewRegistry()

	var jrnl journal.Journal

	if cfg.Journal.Dir != "" {
		csvJournal, err := journal.NewCSVJournal(cfg.Journal.Dir, time.Now())
		if err != nil {
			return err
		}

		jrnl = csvJournal

		appLog.Info("journaling run artifacts", zap.String("dir", csvJournal.RunDir()))
	}

	eng := engine.New(cfg, sim, replayFeed, registry, jrnl, appLog)
	if err := eng.Initialize(); err != nil {
		return err
	}

	if cfg.Server.Listen != "" {
		statusServer := server.New(cfg.Server.Listen, eng, registry.Handler(), appLog)

		go func() {
			if err := statusServer.Start(); err != nil {
				appLog.Error("status server failed", zap.Error(err))
			}
		}()

		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			if err := statusServer.Shutdown(shutdownCtx); err != nil {
				appLog.Error("status server shutdown failed", zap.Error(err))
			}
		}()
	}

	lastTime := rows[0].Tick.Time

	for _, row := range rows {
		select {
		case <-ctx.Done():
			appLog.Info("replay interrupted")

			return eng.Shutdown(lastTime)
		default:
		}

		replayFeed.Advance(row)
		sim.SetTick(row.Tick)

		if err := eng.ProcessTick(row.Tick); err != nil {
			return err
		}

		lastTime = row.Tick.Time
	}

	snapshot := eng.Snapshot()

	if err := eng.Shutdown(lastTime); err != nil {
		return err
	}

	report, err := yaml.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to render run report: %w", err)
	}

	fmt.Println(string(report))

	return nil
}

// schemaAction prints the JSON schema of the configuration file.
func schemaAction(_ context.Context, _ *cli.Command) error {
	schema, err := utils.GetSchemaFromConfig(&config.Config{})
	if err != nil {
		return fmt.Errorf("failed to generate config schema: %w", err)
	}

	fmt.Println(schema)

	return nil
}

func main() {
	cmd := &cli.Command{
		Name:  "goldcore",
		Usage: "Automated gold trading engine",
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "Replay a tick file through the trading engine",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "config",
						Aliases: []string{"c"},
						Usage:   "Path to the YAML configuration file",
						Value:   "config.yaml",
					},
					&cli.StringFlag{
						Name:     "ticks",
						Aliases:  []string{"t"},
						Usage:    "Path to the replay CSV (time,bid,ask,indicators)",
						Required: true,
					},
					&cli.Float64Flag{
						Name:  "balance",
						Usage: "Initial account balance",
						Value: 10000,
					},
					&cli.Float64Flag{
						Name:  "margin-per-lot",
						Usage: "Margin required per lot",
						Value: 2400,
					},
					&cli.Float64Flag{
						Name:  "commission-per-lot",
						Usage: "Commission charged per lot on close",
						Value: 7,
					},
				},
				Action: runAction,
			},
			{
				Name:   "schema",
				Usage:  "Print the JSON schema of the configuration file",
				Action: schemaAction,
			},
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.Run(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}
