package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/flashtoggle/flashtoggle/internal/config"
	"github.com/flashtoggle/flashtoggle/internal/platform"
)

func TestParseHandle(t *testing.T) {
	tests := []struct {
		in      string
		want    platform.Handle
		wantErr bool
	}{
		{in: "4096", want: 4096},
		{in: "0x1a2b", want: 0x1a2b},
		{in: " 0X10 ", want: 0x10},
		{in: "0", wantErr: true},
		{in: "-5", wantErr: true},
		{in: "window", wantErr: true},
	}
	for _, tt := range tests {
		got, err := parseHandle(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("parseHandle(%q) = %v, want error", tt.in, got)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("parseHandle(%q) = %v, %v; want %v", tt.in, got, err, tt.want)
		}
	}
}

func TestFormatSource(t *testing.T) {
	tests := []struct {
		src  config.Source
		want string
	}{
		{config.Source{Kind: config.SourceDefault}, "default"},
		{config.Source{Kind: config.SourceFile}, "file"},
		{config.Source{Kind: config.SourceFile, File: "c.yaml"}, "file:c.yaml"},
		{config.Source{Kind: config.SourceFile, File: "c.yaml", Line: 3, Column: 7}, "file:c.yaml:3:7"},
	}
	for _, tt := range tests {
		if got := formatSource(tt.src); got != tt.want {
			t.Errorf("formatSource(%+v) = %q, want %q", tt.src, got, tt.want)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("truncate kept = %q", got)
	}
	if got := truncate("北京欢迎你朋友", 4); got != "北京欢…" {
		t.Errorf("truncate runes = %q", got)
	}
}

func TestCommandTree(t *testing.T) {
	want := [][]string{
		{"daemon"}, {"status"}, {"list"}, {"search"}, {"activate"}, {"tag"},
		{"tags", "list"}, {"tags", "forget"},
		{"back"}, {"forward"}, {"history"},
		{"pin", "list"}, {"pin", "capture"}, {"pin", "toggle"}, {"pin", "topmost"},
		{"pin", "hotkey"}, {"pin", "release"},
		{"config", "print"}, {"config", "validate"}, {"config", "explain"}, {"config", "path"},
		{"reload"}, {"mcp", "serve"},
	}
	for _, path := range want {
		cmd, rest, err := rootCmd.Find(path)
		if err != nil || len(rest) != 0 || cmd.Name() != path[len(path)-1] {
			t.Errorf("command %q not found (got %v, rest %v, err %v)", strings.Join(path, " "), cmd.Name(), rest, err)
		}
	}
}

func runRoot(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Cleanup(func() {
		configPath = ""
		jsonOutput = false
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
	})
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestConfigCommandsReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("max_history: 7\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	out, err := runRoot(t, "config", "explain", "max_history", "--config", path)
	if err != nil {
		t.Fatalf("explain: %v", err)
	}
	if !strings.Contains(out, "max_history: 7") || !strings.Contains(out, "file:"+path+":1:") {
		t.Errorf("explain output = %q", out)
	}

	out, err = runRoot(t, "config", "validate", "--config", path)
	if err != nil || !strings.Contains(out, "ok") {
		t.Errorf("validate = %q, %v", out, err)
	}
}

func TestConfigValidateRejectsUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("no_such_key: 1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := runRoot(t, "config", "validate", "--config", path); err == nil {
		t.Error("validate should fail on unknown keys")
	}
}

func TestPickerArgsForwardConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.yaml")
	args := pickerArgs(path)

	cmd, rest, err := rootCmd.Find(args)
	if err != nil || cmd.Name() != "search" {
		t.Fatalf("picker args %v do not resolve to search: %v", args, err)
	}
	if err := cmd.ParseFlags(rest); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	t.Cleanup(func() { configPath = "" })
	if got, _ := resolveConfigPath(); got != path {
		t.Errorf("picker config = %q, want %q", got, path)
	}
}
