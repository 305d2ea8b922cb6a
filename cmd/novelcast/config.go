package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	gap "github.com/muesli/go-app-paths"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tmc/novelcast/api"
	"github.com/tmc/novelcast/novel"
)

const appName = "novelcast"

const defaultConfig = `# model tried first for chapter extraction
models:
  primary: "gemini-3-pro-preview"
  # fallback model, also used for book analysis
  fallback: "gemini-3-flash-preview"
  # text-to-speech model
  speech: "gemini-2.5-flash-preview-tts"
# prebuilt voice name
voice: "Puck"
# translation target language
language: "Spanish (neutral)"
speech:
  # rest or live
  backend: "rest"
audio:
  # device, command or none
  output: "device"
  # external player for the command output, auto-detected when empty
  player: ""
storage:
  # SQLite file, defaults to the user data dir
  path: ""
api:
  base_url: "https://generativelanguage.googleapis.com"
  # requests per minute, 0 disables pacing
  rate_limit: 60
log_level: "info"
`

// config is the resolved configuration of one invocation.
type config struct {
	PrimaryModel  string
	FallbackModel string
	SpeechModel   string
	Voice         string
	Language      string
	SpeechBackend string
	AudioOutput   string
	AudioPlayer   string
	StoragePath   string
	BaseURL       string
	LiveURL       string
	RateLimit     int
	LogLevel      string
	ConfigFile    string
}

// configKeys are the keys that may also come from NOVELCAST_* variables.
var configKeys = []string{
	"models.primary", "models.fallback", "models.speech",
	"voice", "language",
	"speech.backend", "speech.live_url",
	"audio.output", "audio.player",
	"storage.path",
	"api.base_url", "api.rate_limit",
	"log_level",
}

// flagKeys maps string flags to the keys they override.
var flagKeys = map[string]string{
	"model":          "models.primary",
	"fallback-model": "models.fallback",
	"speech-model":   "models.speech",
	"voice":          "voice",
	"language":       "language",
	"speech-backend": "speech.backend",
	"audio-output":   "audio.output",
	"player":         "audio.player",
	"db":             "storage.path",
	"base-url":       "api.base_url",
}

func envName(key string) string {
	return strings.ToUpper(appName + "_" + strings.NewReplacer(".", "_").Replace(key))
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("models.primary", novel.DefaultProModel)
	v.SetDefault("models.fallback", novel.DefaultFlashModel)
	v.SetDefault("models.speech", api.DefaultSpeechModel)
	v.SetDefault("voice", api.DefaultVoice)
	v.SetDefault("language", novel.DefaultLanguage)
	v.SetDefault("speech.backend", "rest")
	v.SetDefault("speech.live_url", api.LiveModelEndpoint)
	v.SetDefault("audio.output", "device")
	v.SetDefault("api.base_url", api.DefaultBaseURL)
	v.SetDefault("api.rate_limit", 60)
	v.SetDefault("log_level", "info")
}

// configDirs lists where novelcast.yaml is searched, most specific first.
// NOVELCAST_CONFIG_HOME replaces the search path.
func (a *app) configDirs() []string {
	if c := a.getenv("NOVELCAST_CONFIG_HOME"); c != "" {
		return []string{a.path(c)}
	}
	var dirs []string
	if c := a.getenv("XDG_CONFIG_HOME"); c != "" {
		dirs = append(dirs, filepath.Join(c, appName))
	}
	scoped, err := gap.NewScope(gap.User, appName).ConfigDirs()
	if err != nil {
		log.Warn("could not determine config directories", "err", err)
	}
	return append(dirs, scoped...)
}

// loadConfig resolves defaults, the config file, NOVELCAST_* variables and
// changed flags, in increasing precedence.
func (a *app) loadConfig(cmd *cobra.Command) error {
	v := viper.New()
	setDefaults(v)
	v.SetConfigName(appName)
	v.SetConfigType("yaml")

	if a.configFile != "" {
		v.SetConfigFile(a.path(a.configFile))
	} else {
		for _, d := range a.configDirs() {
			v.AddConfigPath(d)
		}
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("read config: %w", err)
		}
	}

	for _, k := range configKeys {
		if val := a.getenv(envName(k)); val != "" {
			v.Set(k, val)
		}
	}
	for name, k := range flagKeys {
		f := cmd.Flags().Lookup(name)
		if f != nil && f.Changed {
			v.Set(k, f.Value.String())
		}
	}
	if a.debug {
		v.Set("log_level", "debug")
	}

	a.cfg = config{
		PrimaryModel:  v.GetString("models.primary"),
		FallbackModel: v.GetString("models.fallback"),
		SpeechModel:   v.GetString("models.speech"),
		Voice:         v.GetString("voice"),
		Language:      v.GetString("language"),
		SpeechBackend: v.GetString("speech.backend"),
		LiveURL:       v.GetString("speech.live_url"),
		AudioOutput:   v.GetString("audio.output"),
		AudioPlayer:   v.GetString("audio.player"),
		StoragePath:   v.GetString("storage.path"),
		BaseURL:       v.GetString("api.base_url"),
		RateLimit:     v.GetInt("api.rate_limit"),
		LogLevel:      v.GetString("log_level"),
		ConfigFile:    v.ConfigFileUsed(),
	}
	return a.cfg.validate()
}

func (c config) validate() error {
	switch c.SpeechBackend {
	case "rest", "live":
	default:
		return fmt.Errorf("speech.backend must be rest or live, got %q", c.SpeechBackend)
	}
	switch c.AudioOutput {
	case "device", "command", "none":
	default:
		return fmt.Errorf("audio.output must be device, command or none, got %q", c.AudioOutput)
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	return nil
}

func (a *app) configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the configuration",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Print the configuration file in use, or where one would be read from",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if a.cfg.ConfigFile != "" {
				fmt.Fprintln(a.stdout, a.cfg.ConfigFile)
				return nil
			}
			dirs := a.configDirs()
			if len(dirs) == 0 {
				return errors.New("no configuration directory available")
			}
			fmt.Fprintln(a.stdout, filepath.Join(dirs[0], appName+".yaml"))
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the resolved settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c := a.cfg
			for _, kv := range [][2]string{
				{"models.primary", c.PrimaryModel},
				{"models.fallback", c.FallbackModel},
				{"models.speech", c.SpeechModel},
				{"voice", c.Voice},
				{"language", c.Language},
				{"speech.backend", c.SpeechBackend},
				{"audio.output", c.AudioOutput},
				{"audio.player", c.AudioPlayer},
				{"storage.path", c.StoragePath},
				{"api.base_url", c.BaseURL},
				{"api.rate_limit", fmt.Sprint(c.RateLimit)},
				{"log_level", c.LogLevel},
			} {
				fmt.Fprintf(a.stdout, "%s: %q\n", kv[0], kv[1])
			}
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "default",
		Short: "Print a default configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprint(a.stdout, defaultConfig)
			return err
		},
	})
	return cmd
}
