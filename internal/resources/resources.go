// Package resources implements MCP resource handlers for the planning
// engine.
//
// Resources provide read-only data that the host can consume for context.
// They use URI-based addressing (propgate://...) following MCP conventions.
package resources

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/propgate/internal/catalog"
	"github.com/HendryAvila/propgate/internal/ledger"
	"github.com/HendryAvila/propgate/internal/store"
)

const (
	CatalogURI   = "propgate://catalog"
	LedgerURI    = "propgate://ledger"
	ConflictsURI = "propgate://ledger/conflicts"
	RunsURI      = "propgate://runs"
)

// recentRuns caps the runs resource.
const recentRuns = 20

// RunLister lists the most recent planning runs. *store.Store implements
// it.
type RunLister interface {
	RecentRuns(ctx context.Context, limit int) ([]store.Run, error)
}

// Handler manages the resource endpoints.
type Handler struct {
	catalog *catalog.Catalog
	ledger  *ledger.Ledger
	runs    RunLister
}

// NewHandler creates a resource Handler with its dependencies.
func NewHandler(cat *catalog.Catalog, led *ledger.Ledger, runs RunLister) *Handler {
	return &Handler{catalog: cat, ledger: led, runs: runs}
}

// --- Catalog ---

// CatalogResource returns the MCP resource definition for the catalog.
func (h *Handler) CatalogResource() mcp.Resource {
	return mcp.NewResource(
		CatalogURI,
		"Property Catalog",
		mcp.WithResourceDescription("Known properties, methods with their parameters, and validated reference examples"),
		mcp.WithMIMEType("application/json"),
	)
}

type catalogView struct {
	Properties []catalog.Property  `json:"properties"`
	Methods    []catalog.Method    `json:"methods"`
	References []catalog.Reference `json:"references"`
}

// HandleCatalog returns the built-in catalog as JSON.
func (h *Handler) HandleCatalog(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return jsonContents(req.Params.URI, catalogView{
		Properties: h.catalog.Properties(),
		Methods:    h.catalog.Methods(),
		References: h.catalog.References(),
	})
}

// --- Ledger ---

// LedgerResource returns the MCP resource definition for the live ledger.
func (h *Handler) LedgerResource() mcp.Resource {
	return mcp.NewResource(
		LedgerURI,
		"Parameter Ledger",
		mcp.WithResourceDescription("Live parameter records with source, retrieval date and confidence, as CSV"),
		mcp.WithMIMEType("text/csv"),
	)
}

// HandleLedger exports the live records as CSV.
func (h *Handler) HandleLedger(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	var buf bytes.Buffer
	if err := ledger.ExportCSV(ctx, h.ledger, &buf); err != nil {
		return nil, fmt.Errorf("exporting ledger: %w", err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "text/csv",
			Text:     buf.String(),
		},
	}, nil
}

// ConflictsResource returns the MCP resource definition for ledger
// conflicts.
func (h *Handler) ConflictsResource() mcp.Resource {
	return mcp.NewResource(
		ConflictsURI,
		"Parameter Conflicts",
		mcp.WithResourceDescription("Keys whose top-confidence live records disagree on value"),
		mcp.WithMIMEType("application/json"),
	)
}

// HandleConflicts returns every unresolved ledger conflict.
func (h *Handler) HandleConflicts(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	conflicts, err := h.ledger.Conflicts(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing conflicts: %w", err)
	}
	if conflicts == nil {
		conflicts = []ledger.Conflict{}
	}
	return jsonContents(req.Params.URI, conflicts)
}

// --- Runs ---

// RunsResource returns the MCP resource definition for recent runs.
func (h *Handler) RunsResource() mcp.Resource {
	return mcp.NewResource(
		RunsURI,
		"Recent Runs",
		mcp.WithResourceDescription("The most recent planning runs with their final state"),
		mcp.WithMIMEType("application/json"),
	)
}

// HandleRuns lists the most recent runs, newest first. Build plans are
// left out; propgate_plan with format=json returns them in full.
func (h *Handler) HandleRuns(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	runs, err := h.runs.RecentRuns(ctx, recentRuns)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	if runs == nil {
		runs = []store.Run{}
	}
	for i := range runs {
		runs[i].Plan = nil
	}
	return jsonContents(req.Params.URI, runs)
}

func jsonContents(uri string, v any) ([]mcp.ResourceContents, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling %s: %w", uri, err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
