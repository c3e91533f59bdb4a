package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"specred/internal/catalog"
	"specred/internal/config"
	"specred/internal/exposure"
	"specred/internal/geometry"
	"specred/internal/testsupport"
)

func writeTestConfig(t *testing.T, cfg *config.Config) string {
	t.Helper()

	encoded, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("toml.Marshal: %v", err)
	}
	path := filepath.Join(testsupport.BaseDir(cfg), "config.toml")
	if err := os.WriteFile(path, encoded, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cmd := newRootCommand()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestConfigInitWritesSampleConfig(t *testing.T) {
	target := filepath.Join(t.TempDir(), "nested", "config.toml")

	out, err := runCommand(t, "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	if !strings.Contains(out, "Wrote sample configuration") {
		t.Fatalf("unexpected output: %s", out)
	}
	if _, _, exists, err := config.Load(target); err != nil || !exists {
		t.Fatalf("sample config should load: exists=%v err=%v", exists, err)
	}

	if _, err := runCommand(t, "config", "init", "--path", target); err == nil {
		t.Fatal("second init without --overwrite should fail")
	}
	if _, err := runCommand(t, "config", "init", "--path", target, "--overwrite"); err != nil {
		t.Fatalf("init with --overwrite: %v", err)
	}
}

func TestConfigShowPrintsResolvedValues(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	path := writeTestConfig(t, cfg)

	out, err := runCommand(t, "--config", path, "config", "show")
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	if !strings.Contains(out, "# config path: "+path) {
		t.Fatalf("missing config path header: %s", out)
	}
	if !strings.Contains(out, cfg.Paths.WorkspaceDir) {
		t.Fatalf("resolved workspace dir missing: %s", out)
	}
	if !strings.Contains(out, "[instrument]") {
		t.Fatalf("expected TOML sections in output: %s", out)
	}
}

func TestMastersListEmptyCatalog(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	path := writeTestConfig(t, cfg)

	out, err := runCommand(t, "--config", path, "masters", "list")
	if err != nil {
		t.Fatalf("masters list: %v", err)
	}
	if !strings.Contains(out, "No masters recorded.") {
		t.Fatalf("unexpected output: %s", out)
	}
}

func TestMastersInfoShowsSavedMaster(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	path := writeTestConfig(t, cfg)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}

	store, err := catalog.Open(cfg)
	if err != nil {
		t.Fatalf("catalog.Open: %v", err)
	}
	f := testsupport.ConstantFrame(t, 6, 8, 500)
	if _, err := store.SaveMaster(context.Background(), "night1", 1, "bias", 3, f); err != nil {
		store.Close()
		t.Fatalf("SaveMaster: %v", err)
	}
	// Release the workspace lock before the CLI opens its own store.
	if err := store.Close(); err != nil {
		t.Fatalf("close catalog: %v", err)
	}

	out, err := runCommand(t, "--config", path, "masters", "list")
	if err != nil {
		t.Fatalf("masters list: %v", err)
	}
	if !strings.Contains(out, "night1_bias_1") || !strings.Contains(out, "Bias") {
		t.Fatalf("saved master missing from list: %s", out)
	}

	out, err = runCommand(t, "--config", path, "masters", "info", "night1_bias_1")
	if err != nil {
		t.Fatalf("masters info: %v", err)
	}
	for _, want := range []string{"night1_bias_1", "6x8", "mean=500"} {
		if !strings.Contains(out, want) {
			t.Fatalf("info output missing %q: %s", want, out)
		}
	}

	if _, err := runCommand(t, "--config", path, "masters", "info", "no_such_master"); err == nil {
		t.Fatal("info for unknown master should fail")
	}
}

func TestCheckCommandReportsReadiness(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	path := writeTestConfig(t, cfg)
	if err := os.MkdirAll(cfg.Paths.RawDir, 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}

	out, err := runCommand(t, "--config", path, "check")
	if err != nil {
		t.Fatalf("check: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Ready to reduce.") {
		t.Fatalf("expected ready message: %s", out)
	}

	// A missing raw directory turns readiness into a failure.
	if err := os.RemoveAll(cfg.Paths.RawDir); err != nil {
		t.Fatalf("RemoveAll: %v", err)
	}
	out, err = runCommand(t, "--config", path, "check")
	if err == nil {
		t.Fatalf("check should fail without the raw directory: %s", out)
	}
	if !strings.Contains(out, "[ERROR]") {
		t.Fatalf("expected an ERROR line: %s", out)
	}
}

func TestLogsCommandPrintsTail(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	path := writeTestConfig(t, cfg)
	if err := os.MkdirAll(cfg.Paths.LogDir, 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	logPath := filepath.Join(cfg.Paths.LogDir, "specred.log")
	if err := os.WriteFile(logPath, []byte("first\nsecond\nthird\n"), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}

	out, err := runCommand(t, "--config", path, "logs", "-n", "2")
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	if strings.Contains(out, "first") || !strings.Contains(out, "second") || !strings.Contains(out, "third") {
		t.Fatalf("unexpected tail: %s", out)
	}
}

func TestReduceCommandRunsPlanEndToEnd(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithDispersionAxis(geometry.AxisRows))
	path := writeTestConfig(t, cfg)

	obs := time.Date(2003, time.January, 4, 12, 0, 0, 0, time.UTC)
	raw := cfg.Paths.RawDir
	testsupport.WriteRawFrame(t, raw, "sci.fits", 40, 40, 1000, obs)
	testsupport.WriteRawFrame(t, raw, "bias1.fits", 40, 40, 500, obs.Add(-time.Hour))
	testsupport.WriteRawFrame(t, raw, "bias2.fits", 40, 40, 500, obs.Add(-59*time.Minute))
	testsupport.WriteRawFrame(t, raw, "arc1.fits", 40, 40, 700, obs.Add(-30*time.Minute))
	testsupport.WriteRawFrame(t, raw, "trace1.fits", 40, 40, 900, obs.Add(-20*time.Minute))
	testsupport.WriteRawFrame(t, raw, "flat1.fits", 40, 40, 1500, obs.Add(-10*time.Minute))

	plan := exposure.Plan{
		Exposure: exposure.PlanExposure{Target: "HD 12345"},
		Frames: exposure.PlanFrames{
			Science: "sci.fits",
			Bias:    []string{"bias1.fits", "bias2.fits"},
			Arc:     []string{"arc1.fits"},
			Trace:   []string{"trace1.fits"},
			PixFlat: []string{"flat1.fits"},
		},
	}
	encoded, err := toml.Marshal(plan)
	if err != nil {
		t.Fatalf("toml.Marshal plan: %v", err)
	}
	planPath := filepath.Join(testsupport.BaseDir(cfg), "plan.toml")
	if err := os.WriteFile(planPath, encoded, 0o644); err != nil {
		t.Fatalf("write plan: %v", err)
	}

	out, err := runCommand(t, "--config", path, "reduce", planPath)
	if err != nil {
		t.Fatalf("reduce: %v\n%s", err, out)
	}
	for _, want := range []string{"Exposure: 2003Jan04T120000 (HD 12345)", "Done"} {
		if !strings.Contains(out, want) {
			t.Fatalf("reduce output missing %q: %s", want, out)
		}
	}

	match := regexp.MustCompile(`Run ID:\s+(\S+)`).FindStringSubmatch(out)
	if match == nil {
		t.Fatalf("run id missing from output: %s", out)
	}

	out, err = runCommand(t, "--config", path, "masters", "list")
	if err != nil {
		t.Fatalf("masters list after reduce: %v", err)
	}
	for _, want := range []string{"2003Jan04T120000_bias_1", "2003Jan04T120000_normpixflat_1"} {
		if !strings.Contains(out, want) {
			t.Fatalf("masters list missing %q: %s", want, out)
		}
	}

	out, err = runCommand(t, "--config", path, "runs", "show", match[1])
	if err != nil {
		t.Fatalf("runs show: %v", err)
	}
	for _, want := range []string{"HD 12345", "ok", "Done"} {
		if !strings.Contains(out, want) {
			t.Fatalf("runs show missing %q: %s", want, out)
		}
	}
}
