package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/propgate/internal/approach"
	"github.com/HendryAvila/propgate/internal/catalog"
)

// SelectApproachTool handles the propgate_select_approach MCP tool.
type SelectApproachTool struct {
	catalog *catalog.Catalog
}

// NewSelectApproachTool creates a SelectApproachTool.
func NewSelectApproachTool(cat *catalog.Catalog) *SelectApproachTool {
	return &SelectApproachTool{catalog: cat}
}

// Definition returns the MCP tool definition for registration.
func (t *SelectApproachTool) Definition() mcp.Tool {
	return mcp.NewTool("propgate_select_approach",
		mcp.WithDescription(
			"Choose between the generic and the class-based implementation approach. "+
				"Lists every factor that rules out the generic approach and the decisions taken.",
		),
		mcp.WithString("request",
			mcp.Required(),
			mcp.Description(requestDescription),
		),
	)
}

// Handle processes the propgate_select_approach tool call.
func (t *SelectApproachTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s, errResult := parseSpec(req)
	if errResult != nil {
		return errResult, nil
	}
	res := t.catalog.Resolve(s)
	return jsonResult(approach.Select(s, res, t.catalog))
}
