// Command novelcast reads web-novel chapters translated by Gemini and plays
// them aloud.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	gap "github.com/muesli/go-app-paths"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/tmc/novelcast"
	"github.com/tmc/novelcast/novel"
)

// Version as provided by the build.
var Version = ""

// app carries the process boundary so commands can run in-process in tests.
type app struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	getenv func(string) string
	dir    string // relative paths resolve here; empty means the process directory

	configFile string
	debug      bool
	cfg        config
}

func newApp() *app {
	return &app{
		stdin:  os.Stdin,
		stdout: os.Stdout,
		stderr: os.Stderr,
		getenv: os.Getenv,
	}
}

// environ returns the provider key variables for credential parsing.
func (a *app) environ() map[string]string {
	vars := map[string]string{}
	for _, k := range []string{"GEMINI_API_KEY", "GOOGLE_API_KEY", "API_KEY", "GOOGLE_GENERATIVE_AI_KEY"} {
		if v := a.getenv(k); v != "" {
			vars[k] = v
		}
	}
	return vars
}

// path resolves p against the invocation directory.
func (a *app) path(p string) string {
	if p == "" || a.dir == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(a.dir, p)
}

// isTerminal reports whether stdout is an interactive terminal.
func (a *app) isTerminal() bool {
	f, ok := a.stdout.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "novelcast [URL]",
		Short:         "Read web-novel chapters translated and narrated by Gemini",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.MaximumNArgs(1),
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.loadConfig(cmd); err != nil {
				return err
			}
			level, _ := log.ParseLevel(a.cfg.LogLevel)
			log.SetLevel(level)
			log.Debug("configuration loaded", "file", a.cfg.ConfigFile, "backend", a.cfg.SpeechBackend, "output", a.cfg.AudioOutput)
			return nil
		},
		RunE: a.runTUI,
	}
	if root.Version == "" {
		root.Version = "unknown (built from source)"
	}
	root.SetIn(a.stdin)
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)

	pf := root.PersistentFlags()
	pf.StringVar(&a.configFile, "config", "", "config file (default novelcast.yaml in the user config dir)")
	pf.BoolVar(&a.debug, "debug", false, "log at debug level")
	pf.String("model", "", "primary model for chapter extraction")
	pf.String("fallback-model", "", "fallback model, also used for book analysis")
	pf.String("speech-model", "", "text-to-speech model")
	pf.String("voice", "", "prebuilt voice name")
	pf.String("language", "", "translation target language")
	pf.String("speech-backend", "", "speech backend: rest or live")
	pf.String("audio-output", "", "audio output: device, command or none")
	pf.String("player", "", "external player command for --audio-output=command")
	pf.String("db", "", "SQLite storage file")
	pf.String("base-url", "", "provider endpoint, scheme://host[:port]")
	root.Flags().Bool("text", false, "treat the argument as text to translate")

	root.AddCommand(
		a.analyzeCmd(),
		a.readCmd(),
		a.speakCmd(),
		a.modelsCmd(),
		a.keyCmd(),
		a.clearCmd(),
		a.configCmd(),
	)
	return root
}

func (a *app) runTUI(cmd *cobra.Command, args []string) error {
	deps, err := a.open(true)
	if err != nil {
		return err
	}
	defer deps.Close()

	opts := []novelcast.Option{
		novelcast.WithReader(deps.service),
		novelcast.WithLibrary(deps.library),
		novelcast.WithKeyStore(deps.creds),
		novelcast.WithContext(cmd.Context()),
	}
	if deps.output != nil {
		opts = append(opts, novelcast.WithAudioOutput(deps.output))
	}
	if len(args) == 1 {
		mode := novel.ModeURL
		if text, _ := cmd.Flags().GetBool("text"); text {
			mode = novel.ModeText
		}
		opts = append(opts, novelcast.WithInput(args[0], mode))
	}
	if dir, err := os.Getwd(); err == nil {
		opts = append(opts, novelcast.WithWAVDir(dir))
	}

	m, err := novelcast.New(opts...)
	if err != nil {
		return err
	}
	model, err := m.InitModel()
	if err != nil {
		return err
	}
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(cmd.Context()))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("unable to run tui program: %w", err)
	}
	return nil
}

func logFilePath() (string, error) {
	dir, err := gap.NewScope(gap.User, appName).CacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, appName+".log"), nil
}

// setupLog sends logs to a file in the cache dir; the TUI owns the terminal.
func setupLog() (func() error, error) {
	log.SetOutput(io.Discard)

	path, err := logFilePath()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	log.SetDefault(log.NewWithOptions(f, log.Options{
		ReportTimestamp: true,
		Prefix:          appName,
	}))
	return f.Close, nil
}

// execute runs the command line args and reports a failure on stderr.
func (a *app) execute(ctx context.Context, args []string) error {
	root := a.rootCmd()
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintln(a.stderr, "Error:", err)
	}
	return err
}

func main() {
	closer, err := setupLog()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	err = newApp().execute(context.Background(), os.Args[1:])
	_ = closer()
	if err != nil {
		os.Exit(1)
	}
}
