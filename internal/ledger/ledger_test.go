package ledger

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var day = time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)

func highRecord(key Key, value string) Record {
	return Record{
		Key:         key,
		Value:       value,
		Unit:        "K",
		Source:      "NIST WebBook",
		RetrievedOn: day,
		Confidence:  ConfidenceHigh,
	}
}

func TestInsert_RejectsFabricatedProvenance(t *testing.T) {
	l := New(nil)
	ctx := context.Background()
	key := ComponentKey("temperature_crit", "benzene")

	tests := []struct {
		name string
		rec  Record
	}{
		{"low confidence with real source", Record{Key: key, Value: "562.05", Source: "guess", Confidence: ConfidenceLow}},
		{"TODO marker with high confidence", Record{Key: key, Value: "562.05", Source: PlaceholderSource, Confidence: ConfidenceHigh}},
		{"placeholder carrying a value", Record{Key: key, Value: "562.05", Source: PlaceholderSource, Confidence: ConfidenceLow}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := l.Insert(ctx, tt.rec, InsertOptions{})
			require.ErrorIs(t, err, ErrFabricatedProvenance)
		})
	}

	all, err := l.All(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestInsert_ValidatesShape(t *testing.T) {
	l := New(nil)
	ctx := context.Background()

	_, err := l.Insert(ctx, Record{Key: Key{Name: "mw", AppliesTo: ScopeComponent}, Value: "0.078", Source: "x", Confidence: ConfidenceHigh}, InsertOptions{})
	assert.ErrorIs(t, err, ErrInvalidRecord, "component scope needs a target")

	_, err = l.Insert(ctx, Record{Key: PackageKey("PR_kappa"), Source: "x", Confidence: ConfidenceHigh}, InsertOptions{})
	assert.ErrorIs(t, err, ErrInvalidRecord, "real records need a value")

	_, err = l.Insert(ctx, Record{Key: PackageKey("PR_kappa"), Value: "0", Source: "x", Confidence: "certain"}, InsertOptions{})
	assert.ErrorIs(t, err, ErrInvalidRecord, "unknown confidence")
}

func TestInsert_RefusesDowngradeWithoutSupersede(t *testing.T) {
	l := New(nil)
	ctx := context.Background()
	key := ComponentKey("temperature_crit", "benzene")

	_, err := l.Insert(ctx, highRecord(key, "562.05"), InsertOptions{})
	require.NoError(t, err)

	medium := highRecord(key, "562.0")
	medium.Confidence = ConfidenceMedium
	medium.Source = "textbook"
	_, err = l.Insert(ctx, medium, InsertOptions{})
	require.ErrorIs(t, err, ErrWouldDowngrade)

	_, err = l.Insert(ctx, medium, InsertOptions{Supersede: true})
	require.ErrorIs(t, err, ErrSupersedeRationale)

	saved, err := l.Insert(ctx, medium, InsertOptions{Supersede: true, Rationale: "NIST value was for a different isomer"})
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, saved.Supersedes)

	got, ok, err := l.Resolve(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "562.0", got.Value)

	history, err := l.History(ctx, key)
	require.NoError(t, err)
	assert.Len(t, history, 2, "supersession appends, never overwrites")
}

func TestResolve_PrefersConfidenceThenRecency(t *testing.T) {
	l := New(nil)
	ctx := context.Background()
	key := ComponentKey("omega", "toluene")

	_, err := l.Insert(ctx, Placeholder(key, "", "needs lookup", day), InsertOptions{})
	require.NoError(t, err)

	older := highRecord(key, "0.264")
	older.Unit = ""
	older.Confidence = ConfidenceMedium
	older.Source = "handbook"
	_, err = l.Insert(ctx, older, InsertOptions{})
	require.NoError(t, err)

	newer := older
	newer.Value = "0.266"
	newer.Source = "review article"
	newer.RetrievedOn = day.AddDate(0, 1, 0)
	_, err = l.Insert(ctx, newer, InsertOptions{})
	require.NoError(t, err)

	got, ok, err := l.Resolve(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "0.266", got.Value)
	assert.False(t, got.IsPlaceholder())

	conflicts, err := l.Conflicts(ctx)
	require.NoError(t, err)
	require.Len(t, conflicts, 1)
	assert.Equal(t, key, conflicts[0].Key)
	assert.Len(t, conflicts[0].Records, 2)
}

func TestResolve_Unknown(t *testing.T) {
	l := New(nil)
	_, ok, err := l.Resolve(context.Background(), PackageKey("SRK_kappa"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestInsert_IdenticalRecordIsIdempotent(t *testing.T) {
	l := New(nil)
	ctx := context.Background()
	key := ComponentKey("mw", "benzene")

	first, err := l.Insert(ctx, highRecord(key, "0.07811"), InsertOptions{})
	require.NoError(t, err)
	second, err := l.Insert(ctx, highRecord(key, "0.07811"), InsertOptions{})
	require.NoError(t, err)

	assert.Equal(t, first.Seq, second.Seq)
	all, err := l.All(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestLedger_NoFabricationInvariant(t *testing.T) {
	l := New(nil)
	ctx := context.Background()

	for _, c := range []string{"benzene", "toluene"} {
		_, err := l.Insert(ctx, Placeholder(ComponentKey("pressure_crit", c), "Pa", "", day), InsertOptions{})
		require.NoError(t, err)
		_, err = l.Insert(ctx, highRecord(ComponentKey("temperature_crit", c), "591.75"), InsertOptions{})
		require.NoError(t, err)
	}

	all, err := l.All(ctx)
	require.NoError(t, err)
	for _, r := range all {
		if r.Confidence == ConfidenceLow {
			assert.Equal(t, PlaceholderSource, r.Source, "low-confidence record %s", r.Key)
		}
	}
}

func TestCSV_RoundTrip(t *testing.T) {
	ctx := context.Background()
	src := New(nil)
	_, err := src.Insert(ctx, highRecord(ComponentKey("temperature_crit", "benzene"), "562.05"), InsertOptions{})
	require.NoError(t, err)
	_, err = src.Insert(ctx, Placeholder(PackageKey("PR_kappa"), "", "binary interaction", day), InsertOptions{})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, ExportCSV(ctx, src, &buf))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, strings.Join(CSVColumns, ","), lines[0])
	assert.Equal(t, "temperature_crit,562.05,K,component:benzene,NIST WebBook,2026-02-10,high,", lines[1])

	dst := New(nil)
	res, err := ImportCSV(ctx, dst, &buf)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Imported)
	assert.Empty(t, res.Rejected)

	got, ok, err := dst.Resolve(ctx, PackageKey("PR_kappa"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, got.IsPlaceholder())
	assert.Equal(t, "binary interaction", got.Notes)
}

func TestImportCSV_RejectsBadRows(t *testing.T) {
	doc := `parameter_name,value,units,applies_to,source,retrieved_on,confidence,notes
mw,0.092,kg/mol,component:toluene,DIPPR,2026-01-05,high,
omega,0.26,,component:toluene,my guess,2026-01-05,low,
pressure_crit,4.1e6,Pa,reactor:1,DIPPR,2026-01-05,high,
temperature_crit,591.75,K,component:toluene,DIPPR,last week,high,
`
	l := New(nil)
	res, err := ImportCSV(context.Background(), l, strings.NewReader(doc))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Imported)
	require.Len(t, res.Rejected, 3)
	assert.ErrorIs(t, res.Rejected[0].Err, ErrFabricatedProvenance)
	assert.Equal(t, 3, res.Rejected[0].Line)
	assert.ErrorIs(t, res.Rejected[1].Err, ErrInvalidRecord)
	assert.ErrorIs(t, res.Rejected[2].Err, ErrInvalidRecord)
}

func TestImportCSV_RequiresHeader(t *testing.T) {
	_, err := ImportCSV(context.Background(), New(nil), strings.NewReader(""))
	assert.Error(t, err)

	_, err = ImportCSV(context.Background(), New(nil), strings.NewReader("value,units\n1,K\n"))
	assert.Error(t, err)
}

func TestKey_String(t *testing.T) {
	assert.Equal(t, "mw@component:benzene", ComponentKey("mw", "benzene").String())
	assert.Equal(t, "PR_kappa@package", PackageKey("PR_kappa").String())
	assert.Equal(t, "visc_d_coeff@phase:Liq", PhaseKey("visc_d_coeff", "Liq").String())
}
