// Package app wires the juggy services together and owns their lifecycle.
package app

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/juggyai/juggy/internal/account"
	"github.com/juggyai/juggy/internal/analysis"
	"github.com/juggyai/juggy/internal/bridge"
	"github.com/juggyai/juggy/internal/config"
	"github.com/juggyai/juggy/internal/credit"
	"github.com/juggyai/juggy/internal/csync"
	"github.com/juggyai/juggy/internal/db"
	"github.com/juggyai/juggy/internal/exchange"
	"github.com/juggyai/juggy/internal/llm/prompt"
	"github.com/juggyai/juggy/internal/llm/provider"
	"github.com/juggyai/juggy/internal/llm/tools"
	"github.com/juggyai/juggy/internal/log"
	"github.com/juggyai/juggy/internal/orchestrator"
	"github.com/juggyai/juggy/internal/parsejob"
	"github.com/juggyai/juggy/internal/pubsub"
	"github.com/juggyai/juggy/internal/session"
)

type App struct {
	Accounts  account.Service
	Sessions  session.Service
	Exchanges exchange.Service
	Agents    prompt.Service
	ParseJobs parsejob.Service
	Analysis  *analysis.Service

	Orchestrator *orchestrator.Orchestrator

	config *config.Config
	conn   *sql.DB
	worker *parsejob.Worker

	turns      *csync.Map[string, Turn]
	turnBroker *pubsub.Broker[Turn]
	turnWG     sync.WaitGroup

	cleanupFuncs []func() error
}

// New initializes a new application instance. The provider serves both
// candidate turns and session analysis.
func New(ctx context.Context, conn *sql.DB, cfg *config.Config, p provider.Provider) (*App, error) {
	store := db.NewStore(conn)

	sessions := session.NewService(store,
		session.WithMeter(credit.NewMeter(cfg.Metering.TerminationThreshold)),
		session.WithLinkPolicy(session.LinkPolicy{RelinkThreshold: cfg.Metering.RelinkThresholdMinutes}),
	)
	exchanges := exchange.NewService(store)
	agents := prompt.NewService(store)
	parseJobs := parsejob.NewService(store)

	app := &App{
		Accounts:  account.NewService(store),
		Sessions:  sessions,
		Exchanges: exchanges,
		Agents:    agents,
		ParseJobs: parseJobs,
		Analysis:  analysis.NewService(sessions, exchanges, analysis.NewLLMAnalyzer(p)),

		config: cfg,
		conn:   conn,

		turns:      csync.NewMap[string, Turn](),
		turnBroker: pubsub.NewBroker[Turn](),
	}

	str := bridge.New(p,
		bridge.WithTimeout(cfg.Stream.Timeout.Std()),
		bridge.WithMaxToolRounds(cfg.Stream.MaxToolRounds),
	)
	app.Orchestrator = orchestrator.New(orchestrator.Config{
		Sessions:  sessions,
		Accounts:  app.Accounts,
		Exchanges: exchanges,
		Agents:    agents,
		Bridge:    str,
		Tools: []tools.BaseTool{
			tools.NewRetrieveContextTool(sessions, parseJobs),
			tools.NewRecordMainQuestionTool(sessions),
		},
		ConcurrentTools: cfg.Stream.ConcurrentTools,
		DefaultAgent:    cfg.Agents.DefaultAgent,
		DefaultStrategy: cfg.Agents.DefaultStrategy,
		Model:           p.Model(),
	})

	if cfg.Agents.File != "" {
		imported, err := prompt.ImportFile(ctx, agents, cfg.Agents.File)
		if err != nil {
			return nil, fmt.Errorf("failed to import agents: %w", err)
		}
		slog.Info("Imported agents", "file", cfg.Agents.File, "count", len(imported))
	}

	if cfg.Parser.URL != "" {
		parser := parsejob.NewHTTPParser(cfg.Parser.URL, cfg.Parser.Timeout.Std(), parserHTTPClient(cfg))
		app.worker = parsejob.NewWorker(parseJobs, parser, parsejob.ContextUpdaterFunc(app.updateContexts),
			cfg.Parser.PollInterval.Std(), cfg.Parser.Timeout.Std())

		workerCtx, cancel := context.WithCancel(ctx)
		done := make(chan struct{})
		go func() {
			defer close(done)
			app.worker.Run(workerCtx)
		}()
		app.cleanupFuncs = append(app.cleanupFuncs, func() error {
			cancel()
			<-done
			return nil
		})
	} else {
		slog.Debug("No parser configured, resume parse jobs stay pending")
	}

	app.cleanupFuncs = append(app.cleanupFuncs, func() error {
		if err := conn.Close(); err != nil {
			return fmt.Errorf("failed to close database: %w", err)
		}
		return nil
	})
	return app, nil
}

// Config returns the application configuration.
// parserHTTPClient returns the body logging client in debug mode only. A nil
// client lets the parser build a plain one with its timeout.
func parserHTTPClient(cfg *config.Config) *http.Client {
	if cfg.Options != nil && cfg.Options.Debug {
		return log.NewHTTPClient()
	}
	return nil
}

func (app *App) Config() *config.Config {
	return app.config
}

func (app *App) updateContexts(ctx context.Context, id string, fn func(json.RawMessage) (json.RawMessage, error)) error {
	_, err := app.Sessions.UpdateContexts(ctx, id, fn)
	return err
}

// Subscribe returns a fan-in of every service event that lives until ctx
// is done. Every caller gets its own copy.
func (app *App) Subscribe(ctx context.Context) <-chan any {
	out := make(chan any, 100)
	var wg sync.WaitGroup
	setupSubscriber(ctx, &wg, "sessions", app.Sessions.Subscribe, out)
	setupSubscriber(ctx, &wg, "exchanges", app.Exchanges.Subscribe, out)
	setupSubscriber(ctx, &wg, "parse-jobs", app.ParseJobs.Subscribe, out)
	setupSubscriber(ctx, &wg, "turns", app.turnBroker.Subscribe, out)
	go func() {
		wg.Wait()
		close(out)
	}()
	return out
}

func setupSubscriber[T any](
	ctx context.Context,
	wg *sync.WaitGroup,
	name string,
	subscriber func(context.Context) <-chan pubsub.Event[T],
	outputCh chan<- any,
) {
	subCh := subscriber(ctx)
	wg.Go(func() {
		for {
			select {
			case event, ok := <-subCh:
				if !ok {
					slog.Debug("subscription channel closed", "name", name)
					return
				}
				var msg any = event
				select {
				case outputCh <- msg:
				case <-time.After(2 * time.Second):
					slog.Warn("message dropped due to slow consumer", "name", name)
				case <-ctx.Done():
					slog.Debug("subscription cancelled", "name", name)
					return
				}
			case <-ctx.Done():
				slog.Debug("subscription cancelled", "name", name)
				return
			}
		}
	})
}

// Shutdown stops the parse worker, waits for in-flight turns to be
// recorded and closes the database.
func (app *App) Shutdown() {
	start := time.Now()
	defer func() { slog.Info("Shutdown took " + time.Since(start).String()) }()

	app.turnWG.Wait()
	app.Orchestrator.Wait()
	app.turnBroker.Shutdown()

	var errs []error
	for _, cleanup := range app.cleanupFuncs {
		if cleanup != nil {
			errs = append(errs, cleanup())
		}
	}
	if err := errors.Join(errs...); err != nil {
		slog.Error("Failed to clean up app properly on shutdown", "error", err)
	}
}
