package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/propgate/internal/approach"
	"github.com/HendryAvila/propgate/internal/catalog"
	"github.com/HendryAvila/propgate/internal/coverage"
	"github.com/HendryAvila/propgate/internal/mapper"
)

// CoverageTool handles the propgate_coverage MCP tool.
// It runs the coverage gate on its own, without mapping or validation, so
// a caller can see what a request is missing before planning it.
type CoverageTool struct {
	catalog *catalog.Catalog
	mapper  *mapper.Mapper
	gate    *coverage.Gate
}

// NewCoverageTool creates a CoverageTool.
func NewCoverageTool(cat *catalog.Catalog, m *mapper.Mapper, gate *coverage.Gate) *CoverageTool {
	return &CoverageTool{catalog: cat, mapper: m, gate: gate}
}

// Definition returns the MCP tool definition for registration.
func (t *CoverageTool) Definition() mcp.Tool {
	return mcp.NewTool("propgate_coverage",
		mcp.WithDescription(
			"Build the coverage table for a request: every required property with its "+
				"status (covered, missing, custom_implementation_needed), candidate methods "+
				"and missing parameters, plus a pass/fail verdict for the coverage mode. "+
				"Read-only: the parameter ledger is not touched.",
		),
		mcp.WithString("request",
			mcp.Required(),
			mcp.Description(requestDescription),
		),
	)
}

// coverageResult is the propgate_coverage payload.
type coverageResult struct {
	Resolution catalog.Resolution `json:"resolution"`
	Selection  approach.Selection `json:"selection"`
	Table      *coverage.Table    `json:"coverage"`
}

// Handle processes the propgate_coverage tool call.
func (t *CoverageTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s, errResult := parseSpec(req)
	if errResult != nil {
		return errResult, nil
	}

	res := t.catalog.Resolve(s)
	sel := approach.Select(s, res, t.catalog)
	form, _, err := t.mapper.SelectForm(s)
	if err != nil {
		if isUserError(err) {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return nil, err
	}

	table, err := t.gate.Evaluate(ctx, coverage.Input{Spec: s, Approach: sel.Approach, Resolution: res, Form: form})
	if err != nil {
		if isUserError(err) {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return nil, err
	}
	return jsonResult(coverageResult{Resolution: res, Selection: sel, Table: table})
}
