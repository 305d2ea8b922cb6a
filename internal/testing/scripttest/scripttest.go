// Package scripttest runs script tests against an in-process command and a
// fake provider.
package scripttest

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"testing"

	"rsc.io/script"
	rsctest "rsc.io/script/scripttest"

	"github.com/tmc/novelcast/api"
)

// Invocation is one run of an in-process command.
type Invocation struct {
	Dir    string
	Getenv func(string) string
	Stdout io.Writer
	Stderr io.Writer
	Args   []string
}

// Main runs a command for inv.
type Main func(ctx context.Context, inv Invocation) error

// Command wraps run as a script command. The script's working directory and
// environment are passed through, never the process's.
func Command(summary string, run Main) script.Cmd {
	return script.Command(
		script.CmdUsage{Summary: summary, Args: "[args...]"},
		func(s *script.State, args ...string) (script.WaitFunc, error) {
			var stdout, stderr bytes.Buffer
			err := run(s.Context(), Invocation{
				Dir: s.Getwd(),
				Getenv: func(k string) string {
					v, _ := s.LookupEnv(k)
					return v
				},
				Stdout: &stdout,
				Stderr: &stderr,
				Args:   args,
			})
			return func(*script.State) (string, string, error) {
				return stdout.String(), stderr.String(), err
			}, nil
		})
}

// Run executes every dir/*.txt script with cmds added to the default engine.
func Run(t *testing.T, dir string, cmds map[string]script.Cmd, env []string) {
	t.Helper()
	e := script.NewEngine()
	for name, c := range cmds {
		e.Cmds[name] = c
	}
	rsctest.Test(t, context.Background(), e, env, filepath.Join(dir, "*.txt"))
}

// Provider fixtures.
const (
	BookTitle    = "Mother of Learning"
	ChapterTitle = "Capítulo 1: Buenos días, hermano"
	Translation  = "Zorian se despertó con un golpe en el estómago."
	Original     = "Zorian's eyes abruptly shot open as a sharp pain erupted from his stomach."
	RejectedKey  = "rejected-key"
)

// NewProvider starts a fake provider that answers book analysis, chapter
// extraction and speech requests. Requests carrying RejectedKey fail as an
// invalid key.
func NewProvider(t testing.TB) *api.FakeServer {
	silence := base64.StdEncoding.EncodeToString(make([]byte, 48000))
	return api.NewFakeServer(t, func(r api.RecordedRequest) api.FakeResponse {
		switch {
		case r.APIKey == RejectedKey:
			return api.ErrorResponse(http.StatusBadRequest, "INVALID_ARGUMENT", "API_KEY_INVALID", "API key not valid. Please pass a valid API key.")
		case r.Voice != "":
			return api.AudioResponse(silence)
		case strings.Contains(r.Prompt, "Act as a Web Scraper"):
			return api.TextResponse(mustJSON(map[string]any{
				"title":              BookTitle,
				"description":        "A time loop story.",
				"totalChapters":      3,
				"urlPattern":         "https://example.com/book/chapter-{number}",
				"firstChapterNumber": 1,
			}))
		default:
			return api.TextResponse("```json\n" + mustJSON(map[string]any{
				"title":          ChapterTitle,
				"originalText":   Original,
				"translatedText": Translation,
			}) + "\n```")
		}
	})
}

func mustJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return string(b)
}
