package tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/HendryAvila/propgate/internal/ledger"
)

const dateLayout = "2006-01-02"

// --- propgate_ledger_add ---

// LedgerAddTool handles the propgate_ledger_add MCP tool.
type LedgerAddTool struct {
	ledger *ledger.Ledger
}

// NewLedgerAddTool creates a LedgerAddTool.
func NewLedgerAddTool(led *ledger.Ledger) *LedgerAddTool {
	return &LedgerAddTool{ledger: led}
}

// Definition returns the MCP tool definition for registration.
func (t *LedgerAddTool) Definition() mcp.Tool {
	return mcp.NewTool("propgate_ledger_add",
		mcp.WithDescription(
			"Append one parameter record to the provenance ledger. Every value needs a source, "+
				"a retrieval date and a confidence. Low confidence is reserved for placeholders, "+
				"which must use the source TODO and carry no value. A record that would shadow "+
				"a higher-confidence one is rejected unless supersede is set with a rationale.",
		),
		mcp.WithString("parameter_name",
			mcp.Required(),
			mcp.Description("Parameter name, e.g. 'mw' or 'pressure_crit'"),
		),
		mcp.WithString("applies_to",
			mcp.Required(),
			mcp.Description("Scope: 'component:<id>', 'phase:<id>' or 'package'"),
		),
		mcp.WithString("value",
			mcp.Description("Value as written in the source. Empty for placeholders."),
		),
		mcp.WithString("units",
			mcp.Description("Units of the value, e.g. 'kg/mol'"),
		),
		mcp.WithString("source",
			mcp.Required(),
			mcp.Description("Citation for the value, or TODO for a placeholder"),
		),
		mcp.WithString("retrieved_on",
			mcp.Description("Retrieval date as YYYY-MM-DD. Defaults to today for placeholders only."),
		),
		mcp.WithString("confidence",
			mcp.Required(),
			mcp.Description("Confidence: high, medium or low"),
			mcp.Enum("high", "medium", "low"),
		),
		mcp.WithString("notes",
			mcp.Description("Free-form notes"),
		),
		mcp.WithBoolean("supersede",
			mcp.Description("Shadow existing records for the same key"),
		),
		mcp.WithString("rationale",
			mcp.Description("Why the existing records are superseded. Required with supersede."),
		),
	)
}

// Handle processes the propgate_ledger_add tool call.
func (t *LedgerAddTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	key, err := ledger.ParseAppliesTo(req.GetString("parameter_name", ""), req.GetString("applies_to", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	rec := ledger.Record{
		Key:        key,
		Value:      strings.TrimSpace(req.GetString("value", "")),
		Unit:       strings.TrimSpace(req.GetString("units", "")),
		Source:     strings.TrimSpace(req.GetString("source", "")),
		Confidence: ledger.Confidence(strings.ToLower(req.GetString("confidence", ""))),
		Notes:      req.GetString("notes", ""),
	}

	switch retrieved := req.GetString("retrieved_on", ""); {
	case retrieved != "":
		d, err := time.Parse(dateLayout, retrieved)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("retrieved_on %q is not a YYYY-MM-DD date", retrieved)), nil
		}
		rec.RetrievedOn = d
	case rec.IsPlaceholder():
		rec.RetrievedOn = timeNow().UTC().Truncate(24 * time.Hour)
	default:
		return mcp.NewToolResultError("'retrieved_on' is required for sourced values"), nil
	}

	stored, err := t.ledger.Insert(ctx, rec, ledger.InsertOptions{
		Supersede: req.GetBool("supersede", false),
		Rationale: req.GetString("rationale", ""),
	})
	if err != nil {
		if isUserError(err) {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return nil, fmt.Errorf("inserting %s: %w", key, err)
	}
	return jsonResult(stored)
}

// --- propgate_ledger_resolve ---

// LedgerResolveTool handles the propgate_ledger_resolve MCP tool.
type LedgerResolveTool struct {
	ledger *ledger.Ledger
}

// NewLedgerResolveTool creates a LedgerResolveTool.
func NewLedgerResolveTool(led *ledger.Ledger) *LedgerResolveTool {
	return &LedgerResolveTool{ledger: led}
}

// Definition returns the MCP tool definition for registration.
func (t *LedgerResolveTool) Definition() mcp.Tool {
	return mcp.NewTool("propgate_ledger_resolve",
		mcp.WithDescription(
			"Resolve the value the engine would use for one parameter key, with the full "+
				"append-only history and any same-confidence conflict.",
		),
		mcp.WithString("parameter_name",
			mcp.Required(),
			mcp.Description("Parameter name"),
		),
		mcp.WithString("applies_to",
			mcp.Required(),
			mcp.Description("Scope: 'component:<id>', 'phase:<id>' or 'package'"),
		),
	)
}

type resolveResult struct {
	Key      string           `json:"key"`
	Resolved *ledger.Record   `json:"resolved"`
	Conflict *ledger.Conflict `json:"conflict,omitempty"`
	History  []ledger.Record  `json:"history"`
}

// Handle processes the propgate_ledger_resolve tool call.
func (t *LedgerResolveTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	key, err := ledger.ParseAppliesTo(req.GetString("parameter_name", ""), req.GetString("applies_to", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if key.Name == "" {
		return mcp.NewToolResultError("'parameter_name' is required"), nil
	}

	out := resolveResult{Key: key.String()}
	rec, ok, err := t.ledger.Resolve(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", key, err)
	}
	if ok {
		out.Resolved = &rec
	}
	conflict, found, err := t.ledger.ConflictFor(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("checking conflicts for %s: %w", key, err)
	}
	if found {
		out.Conflict = &conflict
	}
	if out.History, err = t.ledger.History(ctx, key); err != nil {
		return nil, fmt.Errorf("loading history for %s: %w", key, err)
	}
	if out.History == nil {
		out.History = []ledger.Record{}
	}
	return jsonResult(out)
}

// --- propgate_ledger_import ---

// LedgerImportTool handles the propgate_ledger_import MCP tool.
type LedgerImportTool struct {
	ledger *ledger.Ledger
}

// NewLedgerImportTool creates a LedgerImportTool.
func NewLedgerImportTool(led *ledger.Ledger) *LedgerImportTool {
	return &LedgerImportTool{ledger: led}
}

// Definition returns the MCP tool definition for registration.
func (t *LedgerImportTool) Definition() mcp.Tool {
	return mcp.NewTool("propgate_ledger_import",
		mcp.WithDescription(
			"Import parameter records from CSV with the columns "+
				strings.Join(ledger.CSVColumns, ", ")+". "+
				"Rows that break the provenance rules are reported by line and skipped.",
		),
		mcp.WithString("csv",
			mcp.Required(),
			mcp.Description("CSV document, header row first"),
		),
	)
}

// Handle processes the propgate_ledger_import tool call.
func (t *LedgerImportTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	doc := req.GetString("csv", "")
	if strings.TrimSpace(doc) == "" {
		return mcp.NewToolResultError("'csv' is required"), nil
	}

	res, err := ledger.ImportCSV(ctx, t.ledger, strings.NewReader(doc))
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		return mcp.NewToolResultError(err.Error()), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Imported %d record(s).\n", res.Imported)
	if len(res.Rejected) > 0 {
		fmt.Fprintf(&sb, "\nRejected %d row(s):\n", len(res.Rejected))
		for _, r := range res.Rejected {
			fmt.Fprintf(&sb, "- %s\n", r.Error())
		}
	}
	return mcp.NewToolResultText(sb.String()), nil
}
