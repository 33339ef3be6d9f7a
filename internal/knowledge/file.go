package knowledge

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/HendryAvila/propgate/internal/ledger"
)

// sheet is one YAML parameter sheet:
//
//	source: Perry's Chemical Engineers' Handbook, 8th ed.
//	confidence: high
//	parameters:
//	  - parameter: temperature_crit
//	    applies_to: component:benzene
//	    value: 562.05
//	    units: K
//	  - parameter: cp_mol_liq_comp_coeff
//	    applies_to: component:benzene
//	    value: [29.9, -0.0215, 1.2e-4]
//	    units: J/mol/K
type sheet struct {
	Source     string       `yaml:"source"`
	Confidence string       `yaml:"confidence"`
	Parameters []sheetEntry `yaml:"parameters"`
}

type sheetEntry struct {
	Parameter  string `yaml:"parameter"`
	AppliesTo  string `yaml:"applies_to"`
	Value      sheetValue `yaml:"value"`
	Units      string `yaml:"units"`
	Confidence string `yaml:"confidence"`
	Source     string `yaml:"source"`
}

// sheetValue is a scalar value or a list of coefficients. A list is kept
// as its items joined by single spaces.
type sheetValue string

func (v *sheetValue) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		*v = sheetValue(node.Value)
		return nil
	case yaml.SequenceNode:
		items := make([]string, 0, len(node.Content))
		for _, item := range node.Content {
			if item.Kind != yaml.ScalarNode {
				return fmt.Errorf("line %d: value list items must be scalars", item.Line)
			}
			items = append(items, item.Value)
		}
		*v = sheetValue(strings.Join(items, " "))
		return nil
	default:
		return fmt.Errorf("line %d: value must be a scalar or a list", node.Line)
	}
}

// FileSource answers from a directory of YAML parameter sheets. Sheets are
// read once at load time, in file-name order.
type FileSource struct {
	*StaticSource
}

// LoadFileSource reads every *.yaml and *.yml file in dir.
func LoadFileSource(name string, scope Scope, dir string) (*FileSource, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading sheet directory: %w", err)
	}
	var files []string
	for _, e := range entries {
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if !e.IsDir() && (ext == ".yaml" || ext == ".yml") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)

	src := &FileSource{StaticSource: NewStaticSource(name, scope)}
	for _, f := range files {
		if err := src.load(filepath.Join(dir, f)); err != nil {
			return nil, err
		}
	}
	return src, nil
}

func (s *FileSource) load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading sheet %s: %w", path, err)
	}
	var sh sheet
	if err := yaml.Unmarshal(data, &sh); err != nil {
		return fmt.Errorf("parsing sheet %s: %w", path, err)
	}

	base := filepath.Base(path)
	for i, p := range sh.Parameters {
		key, err := ledger.ParseAppliesTo(p.Parameter, p.AppliesTo)
		if err != nil {
			return fmt.Errorf("sheet %s entry %d: %w", base, i+1, err)
		}
		conf := ledger.Confidence(firstNonEmpty(p.Confidence, sh.Confidence, string(ledger.ConfidenceMedium)))
		if err := ledger.ValidateConfidence(conf); err != nil {
			return fmt.Errorf("sheet %s entry %d: %w", base, i+1, err)
		}
		text := strings.TrimSpace(string(p.Value) + " " + p.Units)
		locator := fmt.Sprintf("%s (%s)", firstNonEmpty(p.Source, sh.Source, base), base)
		s.Add(key.String(), Hit{Text: text, Locator: locator, ConfidenceHint: conf})
	}
	return nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
