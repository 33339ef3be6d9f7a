package config

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

// clearEnv makes every test start from an empty PROPGATE_* environment.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{EnvConfig, EnvDataDir, EnvMaxRepairIterations, EnvLogLevel, EnvMetricsAddr} {
		t.Setenv(k, "")
	}
}

// --- DefaultConfig ---

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if !strings.HasSuffix(cfg.DataDir, ".propgate") {
		t.Errorf("DataDir = %s, want suffix .propgate", cfg.DataDir)
	}
	if cfg.LookupTimeout != 5*time.Second {
		t.Errorf("LookupTimeout = %s, want 5s", cfg.LookupTimeout)
	}
	if cfg.LookupWorkers != 4 {
		t.Errorf("LookupWorkers = %d, want 4", cfg.LookupWorkers)
	}
	if cfg.Policy != "placeholder" {
		t.Errorf("Policy = %s, want placeholder", cfg.Policy)
	}
	if cfg.MaxRepairIterations != nil {
		t.Errorf("MaxRepairIterations = %d, want unset", *cfg.MaxRepairIterations)
	}
}

func TestDefaultConfig_FailsValidationWithoutRepairBudget(t *testing.T) {
	err := DefaultConfig().Validate()
	if !errors.Is(err, ErrRepairBudgetUnset) {
		t.Fatalf("Validate() = %v, want ErrRepairBudgetUnset", err)
	}
}

// --- Parse ---

func TestParse_OverridesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
data_dir: /var/lib/propgate
max_repair_iterations: 3
lookup_timeout: 250ms
policy: none
collaborators:
  - name: sheets
    kind: file
    scope: documentation
    dir: /etc/propgate/sheets
  - name: search
    kind: http
    scope: web
    endpoint: http://localhost:9000/search
`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if cfg.DataDir != "/var/lib/propgate" {
		t.Errorf("DataDir = %s", cfg.DataDir)
	}
	if cfg.RepairBudget() != 3 {
		t.Errorf("RepairBudget() = %d, want 3", cfg.RepairBudget())
	}
	if cfg.LookupTimeout != 250*time.Millisecond {
		t.Errorf("LookupTimeout = %s, want 250ms", cfg.LookupTimeout)
	}
	if cfg.LookupWorkers != 4 {
		t.Errorf("LookupWorkers = %d, want default 4", cfg.LookupWorkers)
	}
	if len(cfg.Collaborators) != 2 || cfg.Collaborators[0].Name != "sheets" || cfg.Collaborators[1].Kind != KindHTTP {
		t.Errorf("Collaborators = %+v", cfg.Collaborators)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestParse_ZeroBudgetIsSet(t *testing.T) {
	cfg, err := Parse([]byte("max_repair_iterations: 0\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.MaxRepairIterations == nil {
		t.Fatal("explicit zero should count as configured")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestParse_InvalidYAML(t *testing.T) {
	if _, err := Parse([]byte("max_repair_iterations: [")); err == nil {
		t.Fatal("expected error for malformed yaml")
	}
}

// --- Validate ---

func TestValidate_ReportsEveryProblem(t *testing.T) {
	neg := -1
	cfg := DefaultConfig()
	cfg.MaxRepairIterations = &neg
	cfg.LookupWorkers = 0
	cfg.LogLevel = "loud"
	cfg.Collaborators = []Collaborator{
		{Name: "a", Kind: KindFile},
		{Name: "a", Kind: KindHTTP},
		{Name: "b", Kind: "grpc"},
	}

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{
		"max_repair_iterations must be >= 0",
		"lookup_workers must be >= 1",
		`unknown log_level "loud"`,
		"collaborators[0]: file collaborator needs dir",
		`collaborators[1]: duplicate name "a"`,
		"collaborators[1]: http collaborator needs endpoint",
		`collaborators[2]: unknown kind "grpc"`,
	} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error missing %q:\n%v", want, err)
		}
	}
}

func TestSlogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"", slog.LevelInfo},
		{"debug", slog.LevelDebug},
		{"WARN", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Config{LogLevel: tt.in}.SlogLevel()
			if err != nil {
				t.Fatalf("SlogLevel: %v", err)
			}
			if got != tt.want {
				t.Errorf("SlogLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

// --- Load ---

func TestLoad_ExplicitFileWithEnvOverrides(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "max_repair_iterations: 2\nlog_level: debug\n")
	dataDir := t.TempDir()

	t.Setenv(EnvConfig, path)
	t.Setenv(EnvDataDir, dataDir)
	t.Setenv(EnvMaxRepairIterations, "5")
	t.Setenv(EnvMetricsAddr, ":9102")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DataDir != dataDir {
		t.Errorf("DataDir = %s, want %s", cfg.DataDir, dataDir)
	}
	if cfg.RepairBudget() != 5 {
		t.Errorf("RepairBudget() = %d, want env override 5", cfg.RepairBudget())
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %s, want debug from file", cfg.LogLevel)
	}
	if cfg.MetricsAddr != ":9102" {
		t.Errorf("MetricsAddr = %s", cfg.MetricsAddr)
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvConfig, filepath.Join(t.TempDir(), "absent.yaml"))

	if _, err := Load(); err == nil {
		t.Fatal("expected error for missing explicit config file")
	}
}

func TestLoad_BadEnvBudget(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvConfig, writeConfig(t, "max_repair_iterations: 1\n"))
	t.Setenv(EnvMaxRepairIterations, "many")

	_, err := Load()
	if err == nil || !strings.Contains(err.Error(), EnvMaxRepairIterations) {
		t.Fatalf("Load() = %v, want error naming %s", err, EnvMaxRepairIterations)
	}
}

func TestLoad_UnsetBudgetFails(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvConfig, writeConfig(t, "log_level: info\n"))

	if _, err := Load(); !errors.Is(err, ErrRepairBudgetUnset) {
		t.Fatalf("Load() = %v, want ErrRepairBudgetUnset", err)
	}
}
