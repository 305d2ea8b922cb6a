package main

import (
	"context"
	"strings"
	"testing"

	"rsc.io/script"

	"github.com/tmc/novelcast/internal/testing/scripttest"
)

func TestScripts(t *testing.T) {
	provider := scripttest.NewProvider(t)
	env := []string{
		"NOVELCAST_API_BASE_URL=" + provider.URL,
		"NOVELCAST_API_RATE_LIMIT=0",
		"NOVELCAST_AUDIO_OUTPUT=none",
		"NOVELCAST_STORAGE_PATH=novelcast.db",
		"NOVELCAST_CONFIG_HOME=config",
		"GEMINI_API_KEY=env-key-0123456789",
	}
	scripttest.Run(t, "testdata/script", map[string]script.Cmd{
		"novelcast": scripttest.Command("run novelcast in-process", runNovelcast),
	}, env)
}

func runNovelcast(ctx context.Context, inv scripttest.Invocation) error {
	a := &app{
		stdin:  strings.NewReader(""),
		stdout: inv.Stdout,
		stderr: inv.Stderr,
		getenv: inv.Getenv,
		dir:    inv.Dir,
	}
	return a.execute(ctx, inv.Args)
}
