package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/HendryAvila/propgate/internal/ledger"
	"github.com/HendryAvila/propgate/internal/mapper"
	"github.com/HendryAvila/propgate/internal/templates"
)

// ReportData flattens a run into the delivery report input. led, when
// set, supplies retrieval dates for sourced parameters.
func ReportData(ctx context.Context, run *Run, led *ledger.Ledger) (templates.ReportData, error) {
	out := run.Outcome
	data := templates.ReportData{
		RunID:       run.ID,
		SpecName:    run.Spec.Name,
		State:       string(out.State),
		Reason:      string(out.Reason),
		Approach:    string(out.Selection.Approach),
		Form:        string(out.Form),
		Iterations:  out.Iterations,
		GeneratedAt: timeNow().UTC().Format("2006-01-02 15:04 UTC"),
		Unresolved:  out.Unresolved,
	}

	for _, d := range run.Decisions {
		data.Decisions = append(data.Decisions, templates.DecisionRow{
			Point:     string(d.Point),
			Selected:  d.Selected,
			Rejected:  d.Rejected,
			Rationale: d.Rationale,
			RiskNotes: d.RiskNotes,
		})
	}

	if out.Coverage != nil {
		data.Verdict = string(out.Coverage.Verdict)
		for _, e := range out.Coverage.Entries {
			data.Coverage = append(data.Coverage, templates.CoverageRow{
				Property:      e.Property,
				Applicability: string(e.Applicability),
				Status:        string(e.Status),
				Method:        e.Method,
				Detail:        e.Detail,
			})
		}
	}

	if out.Mapping != nil {
		for _, b := range out.Mapping.Bindings {
			data.Bindings = append(data.Bindings, templates.BindingRow{Property: b.Property, Method: b.MethodID})
		}
		for _, row := range out.Mapping.Matrix {
			pr := templates.ParameterRow{
				Key:        row.Key.String(),
				Status:     string(row.Status),
				Value:      row.Value,
				Unit:       row.Unit,
				Source:     row.Source,
				Confidence: string(row.Confidence),
			}
			if row.Status == mapper.ParamPresent && led != nil {
				rec, ok, err := led.Resolve(ctx, row.Key)
				if err != nil {
					return templates.ReportData{}, fmt.Errorf("resolving %s: %w", row.Key, err)
				}
				if ok {
					pr.RetrievedOn = rec.RetrievedOn.Format("2006-01-02")
				}
			}
			data.Parameters = append(data.Parameters, pr)
			if row.Status == mapper.ParamPlaceholder {
				data.Placeholders = append(data.Placeholders, pr)
			}
		}
	}

	for _, c := range out.Checks {
		data.Checks = append(data.Checks, templates.CheckRow{
			Check:  c.Check,
			Status: string(c.Status),
			Detail: c.Detail,
			Items:  c.Items,
		})
	}
	return data, nil
}

// ChecklistData turns a plan's file plan into the checklist input.
func ChecklistData(specName string, p *BuildPlan) templates.ChecklistData {
	data := templates.ChecklistData{
		SpecName: specName,
		Approach: string(p.Approach),
		Items:    p.FilePlan.Checklist,
	}
	for _, f := range p.FilePlan.Files {
		data.Files = append(data.Files, templates.ChecklistFile{Path: f.Path, Purpose: f.Purpose, Sections: f.Sections})
	}
	return data
}

// RenderReport renders the delivery report for run, followed by the
// implementation checklist when the run is Ready.
func RenderReport(ctx context.Context, r *templates.Renderer, run *Run, led *ledger.Ledger) (string, error) {
	data, err := ReportData(ctx, run, led)
	if err != nil {
		return "", fmt.Errorf("building report: %w", err)
	}
	report, err := r.Render(templates.Report, data)
	if err != nil {
		return "", fmt.Errorf("rendering report: %w", err)
	}
	if !run.Ready() {
		return report, nil
	}

	checklist, err := r.Render(templates.Checklist, ChecklistData(run.Spec.Name, run.Plan))
	if err != nil {
		return "", fmt.Errorf("rendering checklist: %w", err)
	}
	var sb strings.Builder
	sb.WriteString(report)
	sb.WriteString("\n---\n\n")
	sb.WriteString(checklist)
	return sb.String(), nil
}
