package resources

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HendryAvila/propgate/internal/catalog"
	"github.com/HendryAvila/propgate/internal/ledger"
	"github.com/HendryAvila/propgate/internal/store"
)

type fakeRuns struct {
	runs []store.Run
	err  error
}

func (f *fakeRuns) RecentRuns(_ context.Context, limit int) ([]store.Run, error) {
	if len(f.runs) > limit {
		return f.runs[:limit], f.err
	}
	return f.runs, f.err
}

func read(t *testing.T, handle func(context.Context, mcp.ReadResourceRequest) ([]mcp.ResourceContents, error), uri string) mcp.TextResourceContents {
	t.Helper()
	req := mcp.ReadResourceRequest{}
	req.Params.URI = uri
	contents, err := handle(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, contents, 1)
	text, ok := contents[0].(mcp.TextResourceContents)
	require.True(t, ok, "expected text contents")
	return text
}

func record(component, value, source string, conf ledger.Confidence) ledger.Record {
	return ledger.Record{
		Key:         ledger.ComponentKey("mw", component),
		Value:       value,
		Unit:        "kg/mol",
		Source:      source,
		RetrievedOn: time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
		Confidence:  conf,
	}
}

func TestResourceDefinitions(t *testing.T) {
	h := NewHandler(catalog.Default(), ledger.New(nil), &fakeRuns{})
	assert.Equal(t, CatalogURI, h.CatalogResource().URI)
	assert.Equal(t, LedgerURI, h.LedgerResource().URI)
	assert.Equal(t, ConflictsURI, h.ConflictsResource().URI)
	assert.Equal(t, RunsURI, h.RunsResource().URI)
	assert.Equal(t, "text/csv", h.LedgerResource().MIMEType)
}

func TestHandleCatalog(t *testing.T) {
	cat := catalog.Default()
	h := NewHandler(cat, ledger.New(nil), &fakeRuns{})

	text := read(t, h.HandleCatalog, CatalogURI)
	assert.Equal(t, "application/json", text.MIMEType)

	var got catalogView
	require.NoError(t, json.Unmarshal([]byte(text.Text), &got))
	assert.Len(t, got.Properties, len(cat.Properties()))
	assert.Len(t, got.Methods, len(cat.Methods()))
	assert.Len(t, got.References, len(cat.References()))
}

func TestHandleLedger_ExportsLiveRecords(t *testing.T) {
	ctx := context.Background()
	led := ledger.New(nil)
	_, err := led.Insert(ctx, record("A", "0.018", "CRC handbook", ledger.ConfidenceHigh), ledger.InsertOptions{})
	require.NoError(t, err)

	text := read(t, NewHandler(catalog.Default(), led, &fakeRuns{}).HandleLedger, LedgerURI)
	lines := strings.Split(strings.TrimSpace(text.Text), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, strings.Join(ledger.CSVColumns, ","), lines[0])
	assert.Equal(t, "mw,0.018,kg/mol,component:A,CRC handbook,2026-09-01,high,", lines[1])
}

func TestHandleConflicts(t *testing.T) {
	ctx := context.Background()
	led := ledger.New(nil)
	h := NewHandler(catalog.Default(), led, &fakeRuns{})

	assert.Equal(t, "[]", read(t, h.HandleConflicts, ConflictsURI).Text)

	_, err := led.Insert(ctx, record("A", "0.018", "CRC handbook", ledger.ConfidenceHigh), ledger.InsertOptions{})
	require.NoError(t, err)
	_, err = led.Insert(ctx, record("A", "0.019", "NIST webbook", ledger.ConfidenceHigh), ledger.InsertOptions{})
	require.NoError(t, err)

	var got []ledger.Conflict
	require.NoError(t, json.Unmarshal([]byte(read(t, h.HandleConflicts, ConflictsURI).Text), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "mw@component:A", got[0].Key.String())
	assert.Len(t, got[0].Records, 2)
}

func TestHandleRuns(t *testing.T) {
	runs := &fakeRuns{runs: []store.Run{
		{ID: "r2", SpecName: "ab", State: "Blocked", Reason: "RepairBudgetExhausted", Plan: json.RawMessage(`{}`)},
		{ID: "r1", SpecName: "ab", State: "Ready", Approach: "generic", Plan: json.RawMessage(`{"run_id":"r1"}`)},
	}}
	text := read(t, NewHandler(catalog.Default(), ledger.New(nil), runs).HandleRuns, RunsURI)

	var got []store.Run
	require.NoError(t, json.Unmarshal([]byte(text.Text), &got))
	require.Len(t, got, 2)
	assert.Equal(t, "r2", got[0].ID)
	assert.Nil(t, got[1].Plan)
}

func TestHandleRuns_ListerFailure(t *testing.T) {
	h := NewHandler(catalog.Default(), ledger.New(nil), &fakeRuns{err: errors.New("db locked")})
	req := mcp.ReadResourceRequest{}
	req.Params.URI = RunsURI
	_, err := h.HandleRuns(context.Background(), req)
	assert.Error(t, err)
}
