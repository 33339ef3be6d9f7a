// Package server wires all components and creates the MCP server instance.
//
// This is the composition root: it creates concrete implementations and
// injects them into the tools, prompts and resources that depend on them.
// No planning logic lives here, only wiring.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/mark3labs/mcp-go/server"

	"github.com/HendryAvila/propgate/internal/catalog"
	"github.com/HendryAvila/propgate/internal/config"
	"github.com/HendryAvila/propgate/internal/coverage"
	"github.com/HendryAvila/propgate/internal/decision"
	"github.com/HendryAvila/propgate/internal/knowledge"
	"github.com/HendryAvila/propgate/internal/ledger"
	"github.com/HendryAvila/propgate/internal/mapper"
	"github.com/HendryAvila/propgate/internal/metrics"
	"github.com/HendryAvila/propgate/internal/pipeline"
	"github.com/HendryAvila/propgate/internal/prompts"
	"github.com/HendryAvila/propgate/internal/resources"
	"github.com/HendryAvila/propgate/internal/store"
	"github.com/HendryAvila/propgate/internal/templates"
	"github.com/HendryAvila/propgate/internal/tools"
	"github.com/HendryAvila/propgate/internal/validation"
)

// Version is set at build time via ldflags.
var Version = "dev"

// App holds every long-lived component of one engine instance. The
// ledger and the decision log are session-scoped and shared by all runs.
type App struct {
	Config    config.Config
	Logger    *slog.Logger
	Store     *store.Store
	Catalog   *catalog.Catalog
	Ledger    *ledger.Ledger
	Decisions *decision.Log
	Chain     *knowledge.Chain
	Mapper    *mapper.Mapper
	Gate      *coverage.Gate
	Metrics   *metrics.Metrics
	Engine    *pipeline.Engine
	Renderer  *templates.Renderer

	metricsSrv *http.Server
}

// Build resolves every dependency from cfg. The caller owns the returned
// App and must Close it.
func Build(cfg config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	policy, err := mapper.ParsePolicy(cfg.Policy)
	if err != nil {
		return nil, err
	}

	renderer, err := templates.NewRenderer()
	if err != nil {
		return nil, fmt.Errorf("creating template renderer: %w", err)
	}

	cols, err := collaborators(cfg)
	if err != nil {
		return nil, err
	}

	st, err := store.New(store.Config{DataDir: cfg.DataDir})
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	a := &App{
		Config:   cfg,
		Logger:   logger,
		Store:    st,
		Catalog:  catalog.Default(),
		Metrics:  metrics.New(),
		Renderer: renderer,
	}
	a.Ledger = ledger.New(st)
	a.Decisions = decision.NewLog(st, logger)
	a.Chain = knowledge.NewChain(knowledge.ChainConfig{
		Timeout: cfg.LookupTimeout,
		Workers: cfg.LookupWorkers,
		Metrics: a.Metrics,
		Logger:  logger,
	}, cols...)
	a.Mapper = mapper.New(a.Catalog, a.Ledger, a.Chain, mapper.Config{Policy: policy, Logger: logger})
	a.Gate = coverage.NewGate(a.Mapper, a.Metrics)

	orch, err := validation.New(a.Catalog, a.Mapper, a.Gate, validation.Config{
		MaxRepairIterations: cfg.RepairBudget(),
		Logger:              logger,
		Metrics:             a.Metrics,
	})
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("creating orchestrator: %w", err)
	}
	a.Engine = pipeline.NewEngine(orch, a.Decisions, pipeline.Config{
		Runs:    st,
		Metrics: a.Metrics,
		Logger:  logger,
	})

	logger.Info("engine ready",
		"data_dir", cfg.DataDir,
		"policy", policy,
		"max_repair_iterations", cfg.RepairBudget(),
		"collaborators", a.Chain.Names(),
	)
	return a, nil
}

// collaborators builds the knowledge sources in configured order.
func collaborators(cfg config.Config) ([]knowledge.Collaborator, error) {
	client := &http.Client{Timeout: cfg.LookupTimeout}
	var out []knowledge.Collaborator
	for _, c := range cfg.Collaborators {
		scope, err := knowledge.ParseScope(c.Scope)
		if err != nil {
			return nil, fmt.Errorf("collaborator %s: %w", c.Name, err)
		}
		switch c.Kind {
		case config.KindFile:
			src, err := knowledge.LoadFileSource(c.Name, scope, c.Dir)
			if err != nil {
				return nil, fmt.Errorf("collaborator %s: %w", c.Name, err)
			}
			out = append(out, src)
		case config.KindHTTP:
			out = append(out, knowledge.NewHTTPSource(c.Name, scope, c.Endpoint, client))
		default:
			return nil, fmt.Errorf("collaborator %s: unknown kind %q", c.Name, c.Kind)
		}
	}
	return out, nil
}

// ServeMetrics exposes the Prometheus registry on cfg.MetricsAddr in the
// background. It does nothing when no address is configured.
func (a *App) ServeMetrics() {
	if a.Config.MetricsAddr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", a.Metrics.Handler())
	a.metricsSrv = &http.Server{
		Addr:              a.Config.MetricsAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := a.metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Logger.Error("metrics server stopped", "addr", a.Config.MetricsAddr, "error", err)
		}
	}()
	a.Logger.Info("serving metrics", "addr", a.Config.MetricsAddr)
}

// Close stops the metrics server and closes the store.
func (a *App) Close() error {
	var errs []error
	if a.metricsSrv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.metricsSrv.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("metrics server shutdown: %w", err))
		}
	}
	if err := a.Store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("store close: %w", err))
	}
	return errors.Join(errs...)
}

// MCPServer creates the MCP server with all tools, prompts and resources
// registered against the App's components.
func (a *App) MCPServer() *server.MCPServer {
	s := server.NewMCPServer(
		"propgate",
		Version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithPromptCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(serverInstructions()),
	)

	// --- Register planning tools ---

	normalizeTool := tools.NewNormalizeTool()
	s.AddTool(normalizeTool.Definition(), normalizeTool.Handle)

	approachTool := tools.NewSelectApproachTool(a.Catalog)
	s.AddTool(approachTool.Definition(), approachTool.Handle)

	coverageTool := tools.NewCoverageTool(a.Catalog, a.Mapper, a.Gate)
	s.AddTool(coverageTool.Definition(), coverageTool.Handle)

	planTool := tools.NewPlanTool(a.Engine, a.Renderer, a.Ledger)
	s.AddTool(planTool.Definition(), planTool.Handle)

	decisionsTool := tools.NewDecisionsTool(a.Store)
	s.AddTool(decisionsTool.Definition(), decisionsTool.Handle)

	// --- Register ledger tools ---

	ledgerAdd := tools.NewLedgerAddTool(a.Ledger)
	s.AddTool(ledgerAdd.Definition(), ledgerAdd.Handle)

	ledgerResolve := tools.NewLedgerResolveTool(a.Ledger)
	s.AddTool(ledgerResolve.Definition(), ledgerResolve.Handle)

	ledgerImport := tools.NewLedgerImportTool(a.Ledger)
	s.AddTool(ledgerImport.Definition(), ledgerImport.Handle)

	// --- Register prompts ---

	startPrompt := prompts.NewStartPrompt()
	s.AddPrompt(startPrompt.Definition(), startPrompt.Handle)

	statusPrompt := prompts.NewStatusPrompt()
	s.AddPrompt(statusPrompt.Definition(), statusPrompt.Handle)

	// --- Register resources ---

	h := resources.NewHandler(a.Catalog, a.Ledger, a.Store)
	s.AddResource(h.CatalogResource(), h.HandleCatalog)
	s.AddResource(h.LedgerResource(), h.HandleLedger)
	s.AddResource(h.ConflictsResource(), h.HandleConflicts)
	s.AddResource(h.RunsResource(), h.HandleRuns)

	return s
}

// Open loads the configuration and builds an App logging to stderr.
func Open() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return Build(cfg, cfg.NewLogger(os.Stderr))
}

// New opens the App and returns its MCP server.
//
// The returned cleanup function stops the metrics listener and closes the
// store. It is always non-nil and safe to call.
func New() (*server.MCPServer, func(), error) {
	app, err := Open()
	if err != nil {
		return nil, noop, err
	}
	app.ServeMetrics()

	cleanup := func() {
		if err := app.Close(); err != nil {
			app.Logger.Warn("shutdown", "error", err)
		}
	}
	return app.MCPServer(), cleanup, nil
}

// noop is the cleanup returned when construction fails.
func noop() {}

// serverInstructions returns the system instructions that tell the AI
// how to use propgate.
func serverInstructions() string {
	return `You have access to propgate, a planning gate for property packages.

## WHAT IT DOES

propgate turns a property package request (components, phases, state
definition, EOS per phase, equilibrium pairs, coverage mode) into a build
plan, or into an explicit Blocked state listing every unresolved item.
It never writes property-package code itself.

## WORKFLOW

1. propgate_normalize: check the request. Every missing mandatory field
   is reported at once. Fix them all before continuing.
2. propgate_select_approach: see whether the generic approach suffices or
   the class-based approach is needed, and why.
3. propgate_coverage: see which required properties have a method, which
   need a custom implementation, and which parameters are missing.
4. propgate_ledger_add / propgate_ledger_import: record parameter values.
5. propgate_plan: run the whole gate. Ready runs come with a delivery
   report and an implementation checklist.

## PARAMETER RULES

- NEVER invent a parameter value. Every value needs a source, a retrieval
  date and a confidence.
- When the user has no value, record a placeholder: source TODO,
  confidence low, no value. Placeholders keep a run Blocked, which is
  the point: they are visible, not hidden.
- A record with lower confidence cannot shadow a higher one unless you
  supersede it with a rationale the user agreed to.

## READING RESULTS

- A Blocked run is a result, not a failure. Go through its unresolved
  items with the user one by one.
- propgate_decisions explains every choice the engine made for a run.
- Resources: propgate://catalog, propgate://ledger,
  propgate://ledger/conflicts, propgate://runs.`
}
