package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/hylla/ranka/internal/config"
)

func TestStatusTemplates(t *testing.T) {
	got := statusTemplates([]config.StatusConfig{
		{ID: "todo", Name: "To Do"},
		{ID: "done", Name: "Done"},
	})
	if len(got) != 2 {
		t.Fatalf("templates = %d, want 2", len(got))
	}
	if got[0].ID != "todo" || got[0].Name != "To Do" {
		t.Fatalf("first template = %+v", got[0])
	}
	if got[1].ID != "done" || got[1].Name != "Done" {
		t.Fatalf("second template = %+v", got[1])
	}
}

func TestResolveOverridePrecedence(t *testing.T) {
	t.Setenv("RANKA_TEST_OVERRIDE", "/from/env")

	if got := resolveOverride("/from/flag", "RANKA_TEST_OVERRIDE", "/fallback"); got != "/from/flag" {
		t.Fatalf("flag wins: got %q", got)
	}
	if got := resolveOverride("  ", "RANKA_TEST_OVERRIDE", "/fallback"); got != "/from/env" {
		t.Fatalf("env wins over fallback: got %q", got)
	}
	t.Setenv("RANKA_TEST_OVERRIDE", "")
	if got := resolveOverride("", "RANKA_TEST_OVERRIDE", "/fallback"); got != "/fallback" {
		t.Fatalf("fallback: got %q", got)
	}
}

func TestParseBoolEnv(t *testing.T) {
	tests := []struct {
		raw     string
		want    bool
		wantSet bool
	}{
		{"", false, false},
		{"1", true, true},
		{"true", true, true},
		{"YES", true, true},
		{"on", true, true},
		{"0", false, true},
		{"false", false, true},
		{"off", false, true},
		{"banana", false, false},
	}
	for _, tt := range tests {
		t.Setenv("RANKA_TEST_BOOL", tt.raw)
		got, set := parseBoolEnv("RANKA_TEST_BOOL")
		if got != tt.want || set != tt.wantSet {
			t.Fatalf("parseBoolEnv(%q) = (%t, %t), want (%t, %t)", tt.raw, got, set, tt.want, tt.wantSet)
		}
	}
}

func TestPathsCommandOutput(t *testing.T) {
	flags := &rootFlags{appName: "ranka-test", devMode: true}
	cmd := newPathsCmd(flags)

	var out bytes.Buffer
	cmd.SetOut(&out)
	if err := cmd.RunE(cmd, nil); err != nil {
		t.Fatalf("paths command: %v", err)
	}

	text := out.String()
	for _, want := range []string{"app: ranka-test", "dev_mode: true", "config: ", "data_dir: ", "db: "} {
		if !strings.Contains(text, want) {
			t.Fatalf("paths output missing %q:\n%s", want, text)
		}
	}
	if !strings.Contains(text, "ranka-test-dev") {
		t.Fatalf("dev mode paths should use the -dev suffix:\n%s", text)
	}
}
