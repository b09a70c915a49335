package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.AI.Model != "claude-sonnet-4-20250514" || cfg.AI.MaxTokens != 1024 {
		t.Fatalf("unexpected ai defaults: %+v", cfg.AI)
	}
	s := cfg.DefaultSettings()
	if !s.Notifications || !s.Sound || s.DarkMode {
		t.Fatalf("unexpected flag defaults: %+v", s)
	}
	if s.TimerPomodoro != 25 || s.TimerShortBreak != 5 || s.TimerLongBreak != 15 {
		t.Fatalf("unexpected timer defaults: %+v", s)
	}
}

func TestFromYAMLKeepsDefaults(t *testing.T) {
	cfg, err := FromYAML([]byte("proxy:\n  variant: function\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.Proxy.Variant != VariantFunction {
		t.Fatalf("variant=%s", cfg.Proxy.Variant)
	}
	if cfg.Proxy.Upstream == "" || cfg.Store.Driver != DriverSQLite {
		t.Fatalf("defaults lost: %+v", cfg)
	}
}

func TestValidateRejects(t *testing.T) {
	cases := map[string]string{
		"mongo without uri": "store:\n  driver: mongo\n",
		"unknown driver":    "store:\n  driver: postgres\n",
		"bad variant":       "proxy:\n  variant: edge\n",
		"webhook url":       "webhooks:\n  - events: [task-completed]\n",
		"timer minutes":     "settings:\n  timer_pomodoro: 0\n",
	}
	for name, doc := range cases {
		if _, err := FromYAML([]byte(doc)); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestLoadOptional(t *testing.T) {
	dir := t.TempDir()
	cfg, err := LoadOptional(dir)
	if err != nil || cfg == nil {
		t.Fatalf("load optional without file: %v", err)
	}
	if _, err := Load(dir); err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("expected not found, got %v", err)
	}
	doc := "store:\n  driver: mongo\n  mongo_uri: mongodb://localhost:27017\n"
	if err := os.WriteFile(filepath.Join(dir, "focusflow.yml"), []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err = Load(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Store.Driver != DriverMongo || cfg.Store.Database != "focusflow" {
		t.Fatalf("unexpected store: %+v", cfg.Store)
	}
}
