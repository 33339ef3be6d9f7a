package ledger

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
)

// CSVColumns is the column layout of an exported parameter ledger.
var CSVColumns = []string{
	"parameter_name",
	"value",
	"units",
	"applies_to",
	"source",
	"retrieved_on",
	"confidence",
	"notes",
}

const dateLayout = "2006-01-02"

// RowError is one CSV row the import rejected.
type RowError struct {
	Line int
	Err  error
}

func (e RowError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

// ImportResult summarizes a CSV import.
type ImportResult struct {
	Imported int
	Rejected []RowError
}

// ImportCSV appends every valid row of r to the ledger. Rows that break
// the provenance rules are reported in the result, not silently fixed.
// A malformed document (no header, unreadable CSV) is an error.
func ImportCSV(ctx context.Context, l *Ledger, r io.Reader) (ImportResult, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return ImportResult{}, errors.New("empty ledger CSV: header row required")
		}
		return ImportResult{}, fmt.Errorf("reading header: %w", err)
	}
	index := make(map[string]int, len(header))
	for i, h := range header {
		index[strings.TrimSpace(strings.ToLower(h))] = i
	}
	if _, ok := index["parameter_name"]; !ok {
		return ImportResult{}, errors.New("ledger CSV header must include parameter_name")
	}

	var res ImportResult
	line := 1
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return res, fmt.Errorf("reading line %d: %w", line, err)
		}
		if err := ctx.Err(); err != nil {
			return res, err
		}

		field := func(name string) string {
			i, ok := index[name]
			if !ok || i >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[i])
		}

		rec, err := recordFromFields(field)
		if err == nil {
			_, err = l.Insert(ctx, rec, InsertOptions{})
		}
		if err != nil {
			res.Rejected = append(res.Rejected, RowError{Line: line, Err: err})
			continue
		}
		res.Imported++
	}
	return res, nil
}

// ExportCSV writes every live record of the ledger to w.
func ExportCSV(ctx context.Context, l *Ledger, w io.Writer) error {
	live, err := l.Live(ctx)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(CSVColumns); err != nil {
		return err
	}
	for _, r := range live {
		row := []string{
			r.Name,
			r.Value,
			r.Unit,
			FormatAppliesTo(r.Key),
			r.Source,
			formatDate(r.RetrievedOn),
			string(r.Confidence),
			r.Notes,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func recordFromFields(field func(string) string) (Record, error) {
	key, err := ParseAppliesTo(field("parameter_name"), field("applies_to"))
	if err != nil {
		return Record{}, err
	}
	retrieved, err := parseDate(field("retrieved_on"))
	if err != nil {
		return Record{}, err
	}
	return Record{
		Key:         key,
		Value:       field("value"),
		Unit:        field("units"),
		Source:      field("source"),
		RetrievedOn: retrieved,
		Confidence:  Confidence(strings.ToLower(field("confidence"))),
		Notes:       field("notes"),
	}, nil
}

// FormatAppliesTo renders the scope column: "component:<id>",
// "phase:<id>" or "package".
func FormatAppliesTo(k Key) string {
	if k.AppliesTo == ScopePackage || k.Target == "" {
		return string(k.AppliesTo)
	}
	return string(k.AppliesTo) + ":" + k.Target
}

// ParseAppliesTo is the inverse of FormatAppliesTo.
func ParseAppliesTo(name, appliesTo string) (Key, error) {
	scope, target, _ := strings.Cut(appliesTo, ":")
	k := Key{
		Name:      strings.TrimSpace(name),
		AppliesTo: Scope(strings.ToLower(strings.TrimSpace(scope))),
		Target:    strings.TrimSpace(target),
	}
	if !validScopes[k.AppliesTo] {
		return Key{}, fmt.Errorf("%w: unknown applies_to %q", ErrInvalidRecord, appliesTo)
	}
	if k.AppliesTo == ScopePackage {
		k.Target = ""
	}
	return k, nil
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	t = t.UTC()
	if t.Equal(t.Truncate(24 * time.Hour)) {
		return t.Format(dateLayout)
	}
	return t.Format(time.RFC3339)
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(dateLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: retrieved_on %q is neither YYYY-MM-DD nor RFC 3339", ErrInvalidRecord, s)
	}
	return t.UTC(), nil
}
