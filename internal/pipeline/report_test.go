package pipeline

import (
	"context"
	"strings"
	"testing"

	"github.com/HendryAvila/propgate/internal/templates"
)

func TestReportData_ReadyRun(t *testing.T) {
	h := newHarness(t, 1)
	h.seedBase(t, "A", "B")
	run := plan(t, h, idealVLE)

	data, err := ReportData(context.Background(), run, h.ledger)
	if err != nil {
		t.Fatalf("ReportData: %v", err)
	}

	if data.RunID != run.ID || data.State != "Ready" || data.Verdict != "pass" {
		t.Errorf("header = %s %s %s", data.RunID, data.State, data.Verdict)
	}
	if len(data.Decisions) != len(run.Decisions) || len(data.Checks) != len(run.Outcome.Checks) {
		t.Errorf("decisions = %d, checks = %d", len(data.Decisions), len(data.Checks))
	}
	var found bool
	for _, p := range data.Parameters {
		if p.Key == "mw@component:A" {
			found = true
			if p.RetrievedOn != "2026-09-01" || p.Source != "CRC handbook" {
				t.Errorf("mw row = %+v", p)
			}
		}
	}
	if !found {
		t.Error("mw@component:A missing from the parameter table")
	}
	if len(data.Placeholders) != 0 {
		t.Errorf("placeholders = %v", data.Placeholders)
	}

	r, err := templates.NewRenderer()
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}
	report, err := r.Render(templates.Report, data)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(report, "`"+run.ID+"`") {
		t.Errorf("report does not name the run:\n%s", report)
	}

	checklist, err := r.Render(templates.Checklist, ChecklistData(run.Spec.Name, run.Plan))
	if err != nil {
		t.Fatalf("Render checklist: %v", err)
	}
	if !strings.Contains(checklist, "- [ ] Approach rationale documented as Generic.") {
		t.Errorf("checklist:\n%s", checklist)
	}
}

func TestReportData_BlockedRunListsUnresolved(t *testing.T) {
	h := newHarness(t, 1)
	h.seedBase(t, "A")
	run := plan(t, h, idealVLE)

	data, err := ReportData(context.Background(), run, nil)
	if err != nil {
		t.Fatalf("ReportData: %v", err)
	}
	if data.Reason != "RepairBudgetExhausted" || len(data.Unresolved) == 0 {
		t.Fatalf("reason = %s, unresolved = %v", data.Reason, data.Unresolved)
	}

	r, err := templates.NewRenderer()
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}
	report, err := r.Render(templates.Report, data)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	for _, want := range []string{"## Blocked", "parameter_completeness: mw@component:B (missing)"} {
		if !strings.Contains(report, want) {
			t.Errorf("report missing %q", want)
		}
	}
}
