package prompts

import (
	"context"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
)

func promptText(t *testing.T, result *mcp.GetPromptResult) string {
	t.Helper()
	if len(result.Messages) != 1 {
		t.Fatalf("messages = %d, want 1", len(result.Messages))
	}
	tc, ok := result.Messages[0].Content.(mcp.TextContent)
	if !ok {
		t.Fatalf("content is %T, want TextContent", result.Messages[0].Content)
	}
	return tc.Text
}

func TestStartPrompt_Definition(t *testing.T) {
	def := NewStartPrompt().Definition()
	if def.Name != "propgate-start" {
		t.Errorf("name = %q", def.Name)
	}
	if len(def.Arguments) != 3 {
		t.Errorf("arguments = %d, want 3", len(def.Arguments))
	}
}

func TestStartPrompt_Handle(t *testing.T) {
	tests := []struct {
		name string
		args map[string]string
		want []string
	}{
		{
			name: "defaults",
			args: nil,
			want: []string{"'my-package'", "- nothing yet", "propgate_normalize", "propgate_plan"},
		},
		{
			name: "known fields",
			args: map[string]string{"name": "btx", "components": "benzene, toluene", "phases": "Liq, Vap"},
			want: []string{"'btx'", "- components: [benzene, toluene]", "- phases: [Liq, Vap]"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := mcp.GetPromptRequest{}
			req.Params.Arguments = tt.args
			result, err := NewStartPrompt().Handle(context.Background(), req)
			if err != nil {
				t.Fatalf("Handle failed: %v", err)
			}
			text := promptText(t, result)
			for _, w := range tt.want {
				if !strings.Contains(text, w) {
					t.Errorf("prompt missing %q:\n%s", w, text)
				}
			}
		})
	}
}

func TestStatusPrompt_Handle(t *testing.T) {
	if got := NewStatusPrompt().Definition().Name; got != "propgate-status" {
		t.Errorf("name = %q", got)
	}
	result, err := NewStatusPrompt().Handle(context.Background(), mcp.GetPromptRequest{})
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	text := promptText(t, result)
	for _, w := range []string{"propgate://runs", "propgate_decisions"} {
		if !strings.Contains(text, w) {
			t.Errorf("prompt missing %q", w)
		}
	}
}
