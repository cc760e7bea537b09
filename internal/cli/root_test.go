package cli

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/lucasnoah/prflow/internal/workflow"
)

// resetFlags restores every flag to its default so package-level flag
// variables do not leak between tests.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

func executeWithInput(stdin io.Reader, args ...string) (string, error) {
	resetFlags(rootCmd)
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetIn(stdin)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}

func executeCommand(args ...string) (string, error) {
	return executeWithInput(strings.NewReader(""), args...)
}

const history = `{
  "success": true,
  "count": 4,
  "fixes": [
    {"id": 1, "pr_number": 101, "pr_url": "https://github.com/o/r/pull/101", "status": "merged", "fix_type": "null_check", "build_id": 37, "merged_at": "2024-06-02T10:00:00Z"},
    {"id": 2, "pr_number": 102, "pr_url": "https://github.com/o/r/pull/102", "status": "pr_created"},
    {"id": 3, "status": "reverted", "rollback_at": "2024-06-03T08:00:00Z"},
    {"id": 4, "status": "pending"}
  ]
}`

func writeHistory(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "history.json")
	if err := os.WriteFile(path, []byte(history), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestVersionCommand(t *testing.T) {
	SetVersion("test-version")
	out, err := executeCommand("version")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "test-version") {
		t.Errorf("expected version output to contain 'test-version', got: %s", out)
	}
}

func TestRootHelp(t *testing.T) {
	out, err := executeCommand("--help")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expectedSubcommands := []string{
		"version", "stages", "derive", "explain", "summary",
		"status", "serve", "config", "db",
	}
	for _, sub := range expectedSubcommands {
		if !strings.Contains(out, sub) {
			t.Errorf("help output missing subcommand %q", sub)
		}
	}
}

func TestSubcommandHelp(t *testing.T) {
	for _, args := range [][]string{
		{"config", "show"}, {"config", "validate"}, {"config", "paths"},
		{"db", "migrate"}, {"db", "reset"}, {"db", "import"}, {"db", "stats"},
	} {
		out, err := executeCommand(append(args, "--help")...)
		if err != nil {
			t.Errorf("%v --help failed: %v", args, err)
		}
		if out == "" {
			t.Errorf("%v --help produced no output", args)
		}
	}
}

func TestStagesCommand(t *testing.T) {
	out, err := executeCommand("stages")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != workflow.StageCount {
		t.Fatalf("got %d lines, want %d:\n%s", len(lines), workflow.StageCount, out)
	}
	if !strings.HasPrefix(lines[0], "0  approved") || !strings.HasPrefix(lines[6], "6  merged") {
		t.Errorf("unexpected stage order:\n%s", out)
	}
}

func TestDeriveText(t *testing.T) {
	out, err := executeCommand("derive", writeHistory(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{"#101", "Merged", "In Review", "CI Failed", "Open", "Total PRs 4"} {
		if !strings.Contains(out, want) {
			t.Errorf("derive output missing %q:\n%s", want, out)
		}
	}
}

func TestDeriveJSONFromStdin(t *testing.T) {
	out, err := executeWithInput(strings.NewReader(history), "derive", "-", "--format", "json")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var report workflow.Report
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("output is not a report: %v\n%s", err, out)
	}
	if len(report.Views) != 4 {
		t.Fatalf("got %d views, want 4", len(report.Views))
	}
	want := []workflow.OverallStatus{workflow.StatusMerged, workflow.StatusReview, workflow.StatusFailed, workflow.StatusOpen}
	for i, v := range report.Views {
		if v.OverallStatus != want[i] {
			t.Errorf("view %d status = %s, want %s", i, v.OverallStatus, want[i])
		}
	}
	if report.Summary.InProgress != 2 {
		t.Errorf("InProgress = %d, want 2", report.Summary.InProgress)
	}
}

func TestDeriveOut(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "out", "report.json")
	if _, err := executeCommand("derive", writeHistory(t), "--format", "json", "--out", dest); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if !strings.Contains(string(data), `"overall_status": "merged"`) {
		t.Errorf("unexpected file content:\n%s", data)
	}
}

func TestDeriveErrors(t *testing.T) {
	if _, err := executeCommand("derive", writeHistory(t), "--format", "yaml"); err == nil {
		t.Error("expected error for unknown format")
	}
	if _, err := executeWithInput(strings.NewReader(`{"success": false, "error": "db down"}`), "derive"); err == nil || !strings.Contains(err.Error(), "db down") {
		t.Errorf("expected upstream error, got %v", err)
	}
	if _, err := executeCommand("derive", filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestExplain(t *testing.T) {
	out, err := executeCommand("explain", writeHistory(t), "3")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{"=> reverted", "merged", "Overall: failed (CI Failed)", "* ✗ CI Running", "2024-06-03 08:00 UTC"} {
		if !strings.Contains(out, want) {
			t.Errorf("explain output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "pr_linked") {
		t.Errorf("rules after the match should not be listed:\n%s", out)
	}

	if _, err := executeCommand("explain", writeHistory(t), "999"); err == nil {
		t.Error("expected error for unknown id")
	}
}

func TestExplainCollidingIDs(t *testing.T) {
	const colliding = `[
  {"id": 9, "status": "merged"},
  {"pr_number": 1, "status": "pending"},
  {"status": "reverted"},
  {"id": 2, "status": "pending"}
]`
	_, err := executeWithInput(strings.NewReader(colliding), "explain", "2")
	if err == nil {
		t.Fatal("expected error for ambiguous id")
	}
	if !strings.Contains(err.Error(), "2@2, 2@3") {
		t.Errorf("error should list candidate keys, got: %v", err)
	}

	out, err := executeWithInput(strings.NewReader(colliding), "explain", "2@3")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "=> open") {
		t.Errorf("expected open rule for 2@3:\n%s", out)
	}
}

func TestExplainFromStdin(t *testing.T) {
	out, err := executeWithInput(strings.NewReader(history), "explain", "101")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "=> merged") {
		t.Errorf("expected merged rule:\n%s", out)
	}
}

func TestSummary(t *testing.T) {
	out, err := executeCommand("summary", writeHistory(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{"Total PRs:   4", "Merged:      1", "In Progress: 2", "Failed CI:   1"} {
		if !strings.Contains(out, want) {
			t.Errorf("summary output missing %q:\n%s", want, out)
		}
	}

	out, err = executeCommand("summary", writeHistory(t), "--format", "json")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var sum workflow.AggregateSummary
	if err := json.Unmarshal([]byte(out), &sum); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if sum != (workflow.AggregateSummary{Total: 4, Merged: 1, InProgress: 2, Failed: 1}) {
		t.Errorf("summary = %+v", sum)
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "prflow.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestStatusFromFileSourceThenCached(t *testing.T) {
	cfg := writeConfig(t, "prflow:\n  source:\n    kind: file\n    path: "+writeHistory(t)+"\n  log:\n    level: error\n")
	cache := filepath.Join(t.TempDir(), "last.json")

	out, err := executeCommand("status", "--config", cfg, "--cache", cache)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "#101") || !strings.Contains(out, "source file") {
		t.Errorf("unexpected status output:\n%s", out)
	}
	if _, err := os.Stat(cache); err != nil {
		t.Fatalf("cache not written: %v", err)
	}

	out, err = executeCommand("status", "--cached", "--cache", cache)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "Total PRs 4") {
		t.Errorf("unexpected cached output:\n%s", out)
	}
}

func TestStatusCachedMissing(t *testing.T) {
	_, err := executeCommand("status", "--cached", "--cache", filepath.Join(t.TempDir(), "none.json"))
	if err == nil || !strings.Contains(err.Error(), "no cached snapshot") {
		t.Errorf("expected missing cache error, got %v", err)
	}
}

func TestConfigShow(t *testing.T) {
	cfg := writeConfig(t, "prflow:\n  source:\n    kind: sqlite\n    path: /tmp/fixes.db\n")
	out, err := executeCommand("config", "show", "--config", cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{"# prflow config from " + cfg, "kind: sqlite", "limit: 50", "interval: 30s", "port: 8080"} {
		if !strings.Contains(out, want) {
			t.Errorf("config show missing %q:\n%s", want, out)
		}
	}
}

func TestConfigShowNamesEnvOverrides(t *testing.T) {
	t.Setenv("PRFLOW_PORT", "9191")
	cfg := writeConfig(t, "prflow:\n  source:\n    kind: file\n    path: fixes.json\n")
	out, err := executeCommand("config", "show", "--config", cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{"# overridden by PRFLOW_PORT", "port: 9191"} {
		if !strings.Contains(out, want) {
			t.Errorf("config show missing %q:\n%s", want, out)
		}
	}
}

func TestConfigPaths(t *testing.T) {
	cfg := writeConfig(t, "prflow:\n  source:\n    kind: file\n    path: fixes.json\n")
	out, err := executeCommand("config", "paths", "--config", cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{"--config " + cfg + "  (in use)", "prflow.yaml  ("} {
		if !strings.Contains(out, want) {
			t.Errorf("config paths missing %q:\n%s", want, out)
		}
	}
}

func TestConfigValidate(t *testing.T) {
	good := writeConfig(t, "prflow:\n  source:\n    kind: file\n    path: fixes.json\n")
	out, err := executeCommand("config", "validate", "--config", good)
	if err != nil {
		t.Fatalf("unexpected error: %v\n%s", err, out)
	}
	for _, want := range []string{good + ": ok", "source:  file fixes.json (limit 50, timeout 30s)", "refresh: every 30s", "web ui:  http://localhost:8080"} {
		if !strings.Contains(out, want) {
			t.Errorf("config validate missing %q:\n%s", want, out)
		}
	}

	bad := writeConfig(t, "prflow:\n  source:\n    kind: kafka\n  server:\n    port: 70000\n")
	out, err = executeCommand("config", "validate", "--config", bad)
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(out, "problem(s)") || !strings.Contains(out, "✗ ") {
		t.Errorf("unexpected output: %s", out)
	}
}

func TestConfigValidateMasksPostgresPassword(t *testing.T) {
	cfg := writeConfig(t, "prflow:\n  source:\n    kind: postgres\n    dsn: postgres://prflow:hunter2@db:5432/fixes\n")
	out, err := executeCommand("config", "validate", "--config", cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v\n%s", err, out)
	}
	if strings.Contains(out, "hunter2") {
		t.Errorf("password leaked:\n%s", out)
	}
	if !strings.Contains(out, "postgres://prflow:xxxxx@db:5432/fixes") {
		t.Errorf("unexpected output: %s", out)
	}
}

func TestDBImportAndStats(t *testing.T) {
	dbFile := filepath.Join(t.TempDir(), "fixes.db")

	out, err := executeCommand("db", "import", writeHistory(t), "--db", dbFile)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if !strings.Contains(out, "Imported 4 fix(es)") {
		t.Errorf("unexpected import output: %s", out)
	}

	out, err = executeCommand("db", "stats", "--db", dbFile)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	for _, want := range []string{"merged", "pending", "pr_created", "reverted"} {
		if !strings.Contains(out, want) {
			t.Errorf("stats missing %q:\n%s", want, out)
		}
	}

	if _, err := executeCommand("db", "reset", "--db", dbFile); err == nil {
		t.Error("reset without --force should fail")
	}
	if _, err := executeCommand("db", "reset", "--force", "--db", dbFile); err != nil {
		t.Fatalf("reset: %v", err)
	}
	out, err = executeCommand("db", "stats", "--db", dbFile)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if strings.TrimSpace(out) != "" {
		t.Errorf("expected empty stats after reset, got:\n%s", out)
	}
}
