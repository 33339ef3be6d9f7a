// Package prompts implements MCP prompt handlers for the planning engine.
//
// MCP prompts are user-triggered workflows (like slash commands) that
// instruct the AI to execute a specific sequence. Unlike tools (which
// the AI calls), prompts are initiated by the user.
package prompts

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

// StartPrompt handles the propgate-start MCP prompt.
// It walks the AI from a rough idea of a property package to a first
// planning run.
type StartPrompt struct{}

// NewStartPrompt creates a StartPrompt.
func NewStartPrompt() *StartPrompt {
	return &StartPrompt{}
}

// Definition returns the MCP prompt definition for registration.
func (p *StartPrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt("propgate-start",
		mcp.WithPromptDescription(
			"Plan a new property package. Collects the request fields, checks coverage "+
				"and parameters, then runs the full gate.",
		),
		mcp.WithArgument("name",
			mcp.ArgumentDescription("Name of the property package"),
		),
		mcp.WithArgument("components",
			mcp.ArgumentDescription("Comma-separated component ids, e.g. 'benzene, toluene'"),
		),
		mcp.WithArgument("phases",
			mcp.ArgumentDescription("Comma-separated phase ids, e.g. 'Liq, Vap'"),
		),
	)
}

// Handle processes the propgate-start prompt request.
func (p *StartPrompt) Handle(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	name := "my-package"
	var components, phases string
	if args := req.Params.Arguments; args != nil {
		if v := strings.TrimSpace(args["name"]); v != "" {
			name = v
		}
		components = strings.TrimSpace(args["components"])
		phases = strings.TrimSpace(args["phases"])
	}

	var known strings.Builder
	if components != "" {
		fmt.Fprintf(&known, "- components: [%s]\n", components)
	}
	if phases != "" {
		fmt.Fprintf(&known, "- phases: [%s]\n", phases)
	}
	if known.Len() == 0 {
		known.WriteString("- nothing yet\n")
	}

	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("Plan property package: %s", name),
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.NewTextContent(fmt.Sprintf(
					"I want to plan a property package called '%s'.\n\n"+
						"What I know so far:\n%s\n"+
						"Please:\n"+
						"1. Ask me for the missing request fields: state definition, coverage mode, "+
						"EOS per phase, and whether phase equilibrium is required (and for which pairs)\n"+
						"2. Run `propgate_normalize` on the request and fix every field it reports\n"+
						"3. Run `propgate_coverage` and walk me through missing or custom properties\n"+
						"4. For every missing parameter, ask me for a sourced value and record it with "+
						"`propgate_ledger_add`. Never invent a value: use source TODO with low confidence "+
						"when I do not have one\n"+
						"5. Run `propgate_plan` and explain the result. If the run is Blocked, go through "+
						"each unresolved item with me",
					name, known.String(),
				)),
			},
		},
	}, nil
}
