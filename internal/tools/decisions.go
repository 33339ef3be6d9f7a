package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/propgate/internal/decision"
)

// DecisionReader loads persisted decisions. An empty runID means every
// run.
type DecisionReader interface {
	Decisions(ctx context.Context, runID string) ([]decision.Decision, error)
}

// DecisionsTool handles the propgate_decisions MCP tool.
type DecisionsTool struct {
	reader DecisionReader
}

// NewDecisionsTool creates a DecisionsTool.
func NewDecisionsTool(reader DecisionReader) *DecisionsTool {
	return &DecisionsTool{reader: reader}
}

// Definition returns the MCP tool definition for registration.
func (t *DecisionsTool) Definition() mcp.Tool {
	return mcp.NewTool("propgate_decisions",
		mcp.WithDescription(
			"List recorded decisions in the order they were taken: approach, equilibrium form, "+
				"method selection, parameter conflicts and repairs, each with its rationale and "+
				"the rejected alternative.",
		),
		mcp.WithString("run_id",
			mcp.Description("Limit the list to one run. Omit for every run."),
		),
		mcp.WithString("format",
			mcp.Description("Output format: 'text' (default) or 'json'"),
			mcp.Enum("text", "json"),
		),
	)
}

// Handle processes the propgate_decisions tool call.
func (t *DecisionsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	runID := strings.TrimSpace(req.GetString("run_id", ""))
	ds, err := t.reader.Decisions(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("loading decisions: %w", err)
	}

	if req.GetString("format", "text") == "json" {
		if ds == nil {
			ds = []decision.Decision{}
		}
		return jsonResult(ds)
	}

	if len(ds) == 0 {
		if runID != "" {
			return mcp.NewToolResultText(fmt.Sprintf("No decisions recorded for run %s.", runID)), nil
		}
		return mcp.NewToolResultText("No decisions recorded yet."), nil
	}

	var sb strings.Builder
	last := ""
	for _, d := range ds {
		if d.RunID != last {
			if last != "" {
				sb.WriteString("\n")
			}
			fmt.Fprintf(&sb, "## Run %s\n\n", d.RunID)
			last = d.RunID
		}
		fmt.Fprintf(&sb, "- %s\n", d)
		for _, note := range d.RiskNotes {
			fmt.Fprintf(&sb, "  - risk: %s\n", note)
		}
	}
	return mcp.NewToolResultText(sb.String()), nil
}
