package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/felix-dieterle/mycontracts/internal/api"
	"github.com/felix-dieterle/mycontracts/internal/config"
	"github.com/felix-dieterle/mycontracts/internal/testsupport"
)

func runCLI(t *testing.T, args []string, configPath string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), err
}

func writeTestConfig(t *testing.T, cfg *config.Config) string {
	t.Helper()
	path := filepath.Join(testsupport.BaseDir(cfg), "config.toml")
	content := fmt.Sprintf(`[paths]
state_dir = %q
log_dir = %q
storage_dir = %q
api_bind = ""

[watcher]
watch_dir = %q
max_retries = %d
retry_backoff_ms = %d
`, cfg.Paths.StateDir, cfg.Paths.LogDir, cfg.Paths.StorageDir, cfg.Watcher.WatchDir,
		cfg.Watcher.MaxRetries, cfg.Watcher.RetryBackoffMs)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestScanMatchesRegisteredFile(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	configPath := writeTestConfig(t, cfg)

	src := filepath.Join(testsupport.BaseDir(cfg), "upload", "rental-2025.pdf")
	testsupport.WriteFile(t, src, 64)
	out, err := runCLI(t, []string{"files", "add", src}, configPath)
	if err != nil {
		t.Fatalf("files add: %v", err)
	}
	if !strings.Contains(out, "Stored file 1: rental-2025.pdf") {
		t.Fatalf("unexpected files add output: %q", out)
	}

	testsupport.WriteArtifact(t, cfg.Watcher.WatchDir, "rental-2025_ocr.json", `{"text":"rent"}`)
	testsupport.WriteArtifact(t, cfg.Watcher.WatchDir, "unknown_ocr.json", `{"text":"?"}`)

	out, err = runCLI(t, []string{"scan"}, configPath)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if !strings.Contains(out, "discovered 2, matched 1, retried 1") {
		t.Fatalf("unexpected scan summary: %q", out)
	}
	if !strings.Contains(out, "Matched") || !strings.Contains(out, "Pending") {
		t.Fatalf("expected record table in scan output: %q", out)
	}

	out, err = runCLI(t, []string{"records", "--status", "matched", "--json"}, configPath)
	if err != nil {
		t.Fatalf("records: %v", err)
	}
	var list api.RecordListResponse
	if err := json.Unmarshal([]byte(out), &list); err != nil {
		t.Fatalf("decode records: %v\n%s", err, out)
	}
	if len(list.Records) != 1 || list.Records[0].MatchedFileID == nil || *list.Records[0].MatchedFileID != 1 {
		t.Fatalf("unexpected matched records: %#v", list.Records)
	}

	out, err = runCLI(t, []string{"files", "list"}, configPath)
	if err != nil {
		t.Fatalf("files list: %v", err)
	}
	if !strings.Contains(out, "rental-2025.pdf") || !strings.Contains(out, "application/pdf") {
		t.Fatalf("unexpected files list output: %q", out)
	}

	out, err = runCLI(t, []string{"status"}, configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	for _, want := range []string{"Watch directory:", "[OK]", "Matched:", "[INFO] 1", "Total:"} {
		if !strings.Contains(out, want) {
			t.Fatalf("status output missing %q:\n%s", want, out)
		}
	}
}

func TestRecordsRejectsUnknownStatus(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	configPath := writeTestConfig(t, cfg)

	_, err := runCLI(t, []string{"records", "--status", "archived"}, configPath)
	if err == nil || !strings.Contains(err.Error(), `unknown status "archived"`) {
		t.Fatalf("expected unknown status error, got %v", err)
	}

	out, err := runCLI(t, []string{"records"}, configPath)
	if err != nil {
		t.Fatalf("records: %v", err)
	}
	if strings.TrimSpace(out) != "No records" {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestScanFailsWhenWatchDirUnavailable(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	blocker := filepath.Join(testsupport.BaseDir(cfg), "blocker")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg.Watcher.WatchDir = filepath.Join(blocker, "incoming")
	configPath := writeTestConfig(t, cfg)

	_, err := runCLI(t, []string{"scan"}, configPath)
	if err == nil || !strings.Contains(err.Error(), "scan:") {
		t.Fatalf("expected scan error, got %v", err)
	}
}

func TestConfigInitAndValidate(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	target := filepath.Join(home, "cfg", "mycontracts.toml")

	out, err := runCLI(t, []string{"config", "init", "--path", target}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	if !strings.Contains(out, target) {
		t.Fatalf("unexpected init output: %q", out)
	}
	if _, err := runCLI(t, []string{"config", "init", "--path", target}, ""); err == nil {
		t.Fatal("expected init to refuse overwriting")
	}

	out, err = runCLI(t, []string{"config", "validate"}, target)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	if !strings.Contains(out, "Configuration valid") || !strings.Contains(out, "Record store: sqlite") {
		t.Fatalf("unexpected validate output: %q", out)
	}
}
