package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nvandessel/selfwatch/internal/export"
)

// isolateHome points HOME at a temp directory so no test touches ~/.selfwatch.
func isolateHome(t *testing.T) string {
	t.Helper()
	home := filepath.Join(t.TempDir(), "home")
	if err := os.MkdirAll(home, 0700); err != nil {
		t.Fatalf("Failed to create temp home: %v", err)
	}
	t.Setenv("HOME", home)
	for _, env := range []string{"SELFWATCH_LOG_LEVEL", "SELFWATCH_DB", "SELFWATCH_ENTITIES", "SELFWATCH_TICK_RATE", "SELFWATCH_CYCLE", "SELFWATCH_SEED", "SELFWATCH_ADDR"} {
		t.Setenv(env, "")
	}
	return home
}

// execute runs the CLI with args and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestVersionCmd(t *testing.T) {
	isolateHome(t)

	out, err := execute(t, "version", "--json")
	if err != nil {
		t.Fatalf("version failed: %v", err)
	}
	var got map[string]string
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decode: %v (%q)", err, out)
	}
	if got["version"] != version {
		t.Errorf("version = %q, want %q", got["version"], version)
	}

	out, err = execute(t, "version")
	if err != nil || !strings.HasPrefix(out, "selfwatch version ") {
		t.Errorf("version = %q, %v", out, err)
	}
}

func TestInitCmd(t *testing.T) {
	home := isolateHome(t)
	path := filepath.Join(home, ".selfwatch", "config.yaml")

	if _, err := execute(t, "init"); err != nil {
		t.Fatalf("init failed: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("config not written: %v", err)
	}

	if _, err := execute(t, "init"); err == nil {
		t.Error("second init should refuse to overwrite")
	}
	if _, err := execute(t, "init", "--force"); err != nil {
		t.Errorf("init --force failed: %v", err)
	}

	out, err := execute(t, "config", "validate")
	if err != nil || !strings.Contains(out, "valid") {
		t.Errorf("config validate = %q, %v", out, err)
	}
}

func TestConfigValidate_Invalid(t *testing.T) {
	isolateHome(t)
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("engine:\n  tick_rate: 0\n"), 0600); err != nil {
		t.Fatalf("write: %v", err)
	}

	out, err := execute(t, "config", "validate", path, "--json")
	if err == nil {
		t.Fatal("validate should fail for tick_rate 0")
	}
	if !strings.Contains(out, `"valid":false`) {
		t.Errorf("json output = %q", out)
	}
}

func TestConfigList(t *testing.T) {
	isolateHome(t)

	out, err := execute(t, "config", "list")
	if err != nil {
		t.Fatalf("config list failed: %v", err)
	}
	for _, want := range []string{"engine.tick_rate:       60", "simulation.seed:        (random)", "store.record_every:     30"} {
		if !strings.Contains(out, want) {
			t.Errorf("config list missing %q:\n%s", want, out)
		}
	}
}

func TestRunRecordAndExport(t *testing.T) {
	isolateHome(t)
	dir := t.TempDir()
	db := filepath.Join(dir, "runs.db")
	arrowPath := filepath.Join(dir, "samples.arrow")
	archivePath := filepath.Join(dir, "run.swa")

	out, err := execute(t, "run", "--ticks", "90", "--seed", "7", "--db", db,
		"--arrow", arrowPath, "--archive", archivePath, "--json")
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	var summary struct {
		RunID    string `json:"run_id"`
		Snapshot struct {
			Tick int64 `json:"tick"`
		} `json:"snapshot"`
	}
	if err := json.Unmarshal([]byte(out), &summary); err != nil {
		t.Fatalf("decode run summary: %v (%q)", err, out)
	}
	if summary.RunID == "" || summary.Snapshot.Tick != 90 {
		t.Fatalf("summary = %+v", summary)
	}

	samples, err := export.ReadArrowFile(arrowPath)
	if err != nil {
		t.Fatalf("ReadArrowFile: %v", err)
	}
	if len(samples) != 3 {
		t.Errorf("arrow rows = %d, want 3", len(samples))
	}

	out, err = execute(t, "export", "verify", archivePath)
	if err != nil || !strings.Contains(out, summary.RunID) {
		t.Errorf("export verify = %q, %v", out, err)
	}

	out, err = execute(t, "runs", "list", "--db", db, "--json")
	if err != nil {
		t.Fatalf("runs list failed: %v", err)
	}
	var listed struct {
		Count int `json:"count"`
		Runs  []struct {
			ID    string `json:"id"`
			Ticks int64  `json:"ticks"`
			Seed  uint64 `json:"seed"`
		} `json:"runs"`
	}
	if err := json.Unmarshal([]byte(out), &listed); err != nil {
		t.Fatalf("decode runs: %v", err)
	}
	if listed.Count != 1 || listed.Runs[0].ID != summary.RunID || listed.Runs[0].Ticks != 90 || listed.Runs[0].Seed != 7 {
		t.Errorf("runs = %+v", listed)
	}

	out, err = execute(t, "runs", "show", summary.RunID, "--db", db)
	if err != nil || !strings.Contains(out, "TICK") {
		t.Errorf("runs show = %q, %v", out, err)
	}

	second := filepath.Join(dir, "again.arrow")
	if _, err := execute(t, "export", "--db", db, "--run", summary.RunID, "--arrow", second); err != nil {
		t.Errorf("export failed: %v", err)
	}
	if _, err := execute(t, "export", "--db", db, "--run", "missing", "--arrow", second); err == nil {
		t.Error("export of an unknown run should fail")
	}
}

func TestRun_NoRecordRejectsExports(t *testing.T) {
	isolateHome(t)
	if _, err := execute(t, "run", "--ticks", "5", "--no-record", "--arrow", "x.arrow"); err == nil {
		t.Error("--no-record with --arrow should fail")
	}
}

func TestRuns_MissingDatabase(t *testing.T) {
	isolateHome(t)
	if _, err := execute(t, "runs", "list", "--db", filepath.Join(t.TempDir(), "none.db")); err == nil {
		t.Error("runs list should fail without a database")
	}
}

func TestAnalyzeCmd(t *testing.T) {
	isolateHome(t)
	path := filepath.Join(t.TempDir(), "entropy.csv")

	var sb strings.Builder
	sb.WriteString("tick,entropy\n")
	for i := 0; i < 240; i++ {
		fmt.Fprintf(&sb, "%d,%.6f\n", i, 0.5+0.3*math.Sin(2*math.Pi*float64(i)/20))
	}
	if err := os.WriteFile(path, []byte(sb.String()), 0600); err != nil {
		t.Fatalf("write: %v", err)
	}

	out, err := execute(t, "analyze", path)
	if err != nil {
		t.Fatalf("analyze failed: %v", err)
	}
	if !strings.Contains(out, "Analyzed 240 samples") {
		t.Errorf("analyze output = %q", out)
	}

	empty := filepath.Join(t.TempDir(), "empty.txt")
	if err := os.WriteFile(empty, []byte("# nothing\n"), 0600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := execute(t, "analyze", empty); err == nil {
		t.Error("analyze of an empty series should fail")
	}
}
