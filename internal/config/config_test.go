package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"modcheck/internal/integrity"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Policy.InitialWarningCount != 3 {
		t.Errorf("expected InitialWarningCount=3, got %d", cfg.Policy.InitialWarningCount)
	}
	if cfg.Policy.CooldownDays != 7 {
		t.Errorf("expected CooldownDays=7, got %d", cfg.Policy.CooldownDays)
	}
	if !cfg.Notify.OpenLinks {
		t.Error("expected OpenLinks by default")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestConfig_SaveLoad(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "modcheck.yaml")

	cfg := DefaultConfig()
	cfg.InstallRoot = "/games/mgs2"
	cfg.Policy.CooldownDays = 30
	cfg.DisabledConditions = []string{integrity.KeyUpscaleLoadOrder}

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if loaded.InstallRoot != "/games/mgs2" {
		t.Errorf("expected InstallRoot=/games/mgs2, got %s", loaded.InstallRoot)
	}
	if loaded.Policy.CooldownDays != 30 {
		t.Errorf("expected CooldownDays=30, got %d", loaded.Policy.CooldownDays)
	}
	if len(loaded.DisabledConditions) != 1 {
		t.Errorf("expected one disabled condition, got %v", loaded.DisabledConditions)
	}
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.CacheFile != "mod_warnings.bin" {
		t.Errorf("expected default cache file, got %s", cfg.CacheFile)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("policy: [not, a, map"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestLoad_ExtraConditions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "modcheck.yaml")
	content := `
conditions:
  - key: OldAudioPack
    kind: incompatible_pack
    path: sound/bgm.sdt
    bad_hashes: ["a9993e364706816aba3e25717850c26c9cd0d89d"]
    title: Old audio pack
    message: Remove it.
disabled_conditions: [LiqMixAISlop]
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	table, err := cfg.ConditionTable()
	if err != nil {
		t.Fatalf("ConditionTable failed: %v", err)
	}

	keys := map[string]bool{}
	for _, c := range table {
		keys[c.Key] = true
	}
	if !keys["OldAudioPack"] {
		t.Error("expected extra condition in table")
	}
	if keys[integrity.KeyLegacyUpscale] {
		t.Error("expected disabled condition removed")
	}
	if !keys[integrity.KeyBaseMissing] {
		t.Error("expected built-in condition kept")
	}
}

func TestConfig_Validate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Policy.InitialWarningCount = -1
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for negative initial count")
	}

	cfg = DefaultConfig()
	cfg.Policy.CooldownDays = -2
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for negative cooldown")
	}

	cfg = DefaultConfig()
	cfg.Conditions = []integrity.Condition{{Key: "broken", Kind: integrity.KindBaseMissing, Path: "x"}}
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for condition without good hashes")
	}
}

func TestConfig_Helpers(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.GetCooldown() != 7*24*time.Hour {
		t.Errorf("unexpected cooldown: %v", cfg.GetCooldown())
	}

	dir := t.TempDir()
	cfg.DataDir = dir
	path, err := cfg.CachePath()
	if err != nil {
		t.Fatalf("CachePath failed: %v", err)
	}
	if path != filepath.Join(dir, "mod_warnings.bin") {
		t.Errorf("unexpected cache path: %s", path)
	}

	abs := filepath.Join(dir, "elsewhere.bin")
	cfg.CacheFile = abs
	if path, _ := cfg.CachePath(); path != abs {
		t.Errorf("absolute cache file should be used as is, got %s", path)
	}

	cfg.InstallRoot = ""
	root, err := cfg.ResolveInstallRoot()
	if err != nil || !filepath.IsAbs(root) {
		t.Errorf("expected absolute install root, got %q (%v)", root, err)
	}
}

func TestConfig_AuditPath(t *testing.T) {
	cfg := DefaultConfig()
	if p, err := cfg.AuditPath(); err != nil || p != "" {
		t.Errorf("expected auditing off by default, got %q (%v)", p, err)
	}

	dir := t.TempDir()
	cfg.DataDir = dir
	cfg.Logging.AuditFile = "audit.jsonl"
	p, err := cfg.AuditPath()
	if err != nil {
		t.Fatalf("AuditPath failed: %v", err)
	}
	if p != filepath.Join(dir, "audit.jsonl") {
		t.Errorf("unexpected audit path: %s", p)
	}
}
