package prompts

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
)

// StatusPrompt handles the propgate-status MCP prompt.
// It instructs the AI to summarize recent runs and the ledger.
type StatusPrompt struct{}

// NewStatusPrompt creates a StatusPrompt.
func NewStatusPrompt() *StatusPrompt {
	return &StatusPrompt{}
}

// Definition returns the MCP prompt definition for registration.
func (p *StatusPrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt("propgate-status",
		mcp.WithPromptDescription(
			"Summarize recent planning runs, open parameter conflicts, "+
				"and what to do next.",
		),
	)
}

// Handle processes the propgate-status prompt request.
func (p *StatusPrompt) Handle(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	return &mcp.GetPromptResult{
		Description: "Planning Status",
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.NewTextContent(
					"Please read the `propgate://runs` and `propgate://ledger/conflicts` resources.\n\n" +
						"Then:\n" +
						"1. Show me the recent runs with their state and reason\n" +
						"2. For the latest Blocked run, run `propgate_decisions` with its run_id and explain what blocked it\n" +
						"3. List any parameter conflicts and ask me which source to keep\n" +
						"4. Tell me exactly what I should do next",
				),
			},
		},
	}, nil
}
