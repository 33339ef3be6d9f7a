package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/propgate/internal/ledger"
	"github.com/HendryAvila/propgate/internal/pipeline"
	"github.com/HendryAvila/propgate/internal/templates"
)

// PlanTool handles the propgate_plan MCP tool: one full pipeline run from
// request to build plan, or to an explicit Blocked state.
type PlanTool struct {
	engine   *pipeline.Engine
	renderer *templates.Renderer
	ledger   *ledger.Ledger
}

// NewPlanTool creates a PlanTool. led supplies retrieval dates for the
// report's parameter table.
func NewPlanTool(engine *pipeline.Engine, renderer *templates.Renderer, led *ledger.Ledger) *PlanTool {
	return &PlanTool{engine: engine, renderer: renderer, ledger: led}
}

// Definition returns the MCP tool definition for registration.
func (t *PlanTool) Definition() mcp.Tool {
	return mcp.NewTool("propgate_plan",
		mcp.WithDescription(
			"Run the full gate on a property package request: normalize, select the approach, "+
				"check coverage, bind methods and parameters, validate with bounded repair. "+
				"Returns a delivery report (and an implementation checklist when the run is Ready) "+
				"or the raw run as JSON. A Blocked run lists every unresolved item.",
		),
		mcp.WithString("request",
			mcp.Required(),
			mcp.Description(requestDescription),
		),
		mcp.WithString("format",
			mcp.Description("Output format: 'report' (Markdown, default) or 'json'"),
			mcp.Enum("report", "json"),
		),
	)
}

// Handle processes the propgate_plan tool call.
func (t *PlanTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	format := req.GetString("format", "report")
	if format != "report" && format != "json" {
		return mcp.NewToolResultError(fmt.Sprintf("unknown format %q (allowed: report, json)", format)), nil
	}

	s, errResult := parseSpec(req)
	if errResult != nil {
		return errResult, nil
	}

	run, err := t.engine.RunSpec(ctx, s)
	if err != nil {
		if isUserError(err) {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return nil, fmt.Errorf("running pipeline: %w", err)
	}

	if format == "json" {
		return jsonResult(run)
	}

	text, err := pipeline.RenderReport(ctx, t.renderer, run, t.ledger)
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(text), nil
}
