package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
)

// NormalizeTool handles the propgate_normalize MCP tool.
// It turns a loosely specified request into the strict specification the
// rest of the engine works on.
type NormalizeTool struct{}

// NewNormalizeTool creates a NormalizeTool.
func NewNormalizeTool() *NormalizeTool {
	return &NormalizeTool{}
}

// Definition returns the MCP tool definition for registration.
func (t *NormalizeTool) Definition() mcp.Tool {
	return mcp.NewTool("propgate_normalize",
		mcp.WithDescription(
			"Normalize a property package request into a strict specification. "+
				"Reports every missing mandatory field at once, and any phase reference "+
				"that does not resolve. Defaults (coverage mode, SI base units) are filled in.",
		),
		mcp.WithString("request",
			mcp.Required(),
			mcp.Description(requestDescription),
		),
	)
}

// Handle processes the propgate_normalize tool call.
func (t *NormalizeTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s, errResult := parseSpec(req)
	if errResult != nil {
		return errResult, nil
	}
	return jsonResult(s)
}
