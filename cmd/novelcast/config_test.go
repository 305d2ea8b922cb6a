package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
)

func TestEnvName(t *testing.T) {
	tests := map[string]string{
		"voice":          "NOVELCAST_VOICE",
		"models.primary": "NOVELCAST_MODELS_PRIMARY",
		"api.base_url":   "NOVELCAST_API_BASE_URL",
	}
	for key, want := range tests {
		if got := envName(key); got != want {
			t.Errorf("envName(%q) = %q, want %q", key, got, want)
		}
	}
}

func TestAppPath(t *testing.T) {
	a := &app{dir: filepath.FromSlash("/work")}
	if got, want := a.path("out.wav"), filepath.Join("/work", "out.wav"); got != want {
		t.Errorf("path(out.wav) = %q, want %q", got, want)
	}
	abs := filepath.Join(string(filepath.Separator), "tmp", "x.wav")
	if got := a.path(abs); got != abs {
		t.Errorf("path(%q) = %q, want unchanged", abs, got)
	}
	if got := (&app{}).path("out.wav"); got != "out.wav" {
		t.Errorf("path without dir = %q, want out.wav", got)
	}
}

func TestLoadConfigPrecedence(t *testing.T) {
	dir := t.TempDir()
	env := map[string]string{
		"NOVELCAST_CONFIG_HOME": dir,
		"NOVELCAST_VOICE":       "Kore",
		"NOVELCAST_LANGUAGE":    "French",
	}
	var stdout bytes.Buffer
	a := &app{
		stdin:  strings.NewReader(""),
		stdout: &stdout,
		stderr: &stdout,
		getenv: func(k string) string { return env[k] },
	}
	root := a.rootCmd()
	root.SetArgs([]string{"--language", "German", "config", "show"})
	if err := root.Execute(); err != nil {
		t.Fatal(err)
	}
	if a.cfg.Voice != "Kore" {
		t.Errorf("Voice = %q, want env value Kore", a.cfg.Voice)
	}
	if a.cfg.Language != "German" {
		t.Errorf("Language = %q, want flag value German", a.cfg.Language)
	}
	if a.cfg.SpeechBackend != "rest" || a.cfg.AudioOutput != "device" {
		t.Errorf("defaults not applied: backend %q output %q", a.cfg.SpeechBackend, a.cfg.AudioOutput)
	}
	if a.cfg.ConfigFile != "" {
		t.Errorf("ConfigFile = %q, want none", a.cfg.ConfigFile)
	}
}

func TestValidate(t *testing.T) {
	good := config{SpeechBackend: "live", AudioOutput: "none", LogLevel: "debug"}
	if err := good.validate(); err != nil {
		t.Errorf("validate(%+v) = %v", good, err)
	}
	for _, c := range []config{
		{SpeechBackend: "grpc", AudioOutput: "none", LogLevel: "info"},
		{SpeechBackend: "rest", AudioOutput: "speaker", LogLevel: "info"},
		{SpeechBackend: "rest", AudioOutput: "none", LogLevel: "loud"},
	} {
		if err := c.validate(); err == nil {
			t.Errorf("validate(%+v) = nil, want error", c)
		}
	}
}
