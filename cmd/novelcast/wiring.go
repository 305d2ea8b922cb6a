package main

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	gap "github.com/muesli/go-app-paths"
	"google.golang.org/api/option"

	"github.com/tmc/novelcast/api"
	"github.com/tmc/novelcast/audioplayer"
	"github.com/tmc/novelcast/novel"
	"github.com/tmc/novelcast/store"
)

// deps are the long-lived pieces shared by every command.
type deps struct {
	library *store.Library
	creds   *api.Credentials
	client  *api.Client
	service *novel.Service
	output  audioplayer.Output
}

func (d *deps) Close() error {
	var errs []error
	if d.output != nil {
		errs = append(errs, d.output.Close())
	}
	if d.library != nil {
		errs = append(errs, d.library.Close())
	}
	return errors.Join(errs...)
}

func (a *app) storagePath() (string, error) {
	if a.cfg.StoragePath != "" {
		return a.path(a.cfg.StoragePath), nil
	}
	return gap.NewScope(gap.User, appName).DataPath(appName + ".db")
}

func (a *app) openLibrary() (*store.Library, error) {
	path, err := a.storagePath()
	if err != nil {
		return nil, fmt.Errorf("locate storage: %w", err)
	}
	p, err := store.OpenSQLite(path)
	if err != nil {
		return nil, err
	}
	lib, err := store.NewLibrary(p)
	if err != nil {
		p.Close()
		return nil, err
	}
	return lib, nil
}

func userAgent() string {
	if Version == "" {
		return "novelcast"
	}
	return "novelcast/" + Version
}

// open wires storage, credentials, the provider client and, when withAudio
// is set and configured, an audio output.
func (a *app) open(withAudio bool) (*deps, error) {
	lib, err := a.openLibrary()
	if err != nil {
		return nil, err
	}
	d := &deps{library: lib}
	d.creds = api.NewCredentials(lib).WithEnvironment(a.environ)
	d.client = api.NewClient(d.creds,
		api.WithBaseURL(a.cfg.BaseURL),
		api.WithRateLimit(a.cfg.RateLimit),
		api.WithClientOptions(option.WithUserAgent(userAgent())),
	)

	var speech novel.Synthesizer
	switch a.cfg.SpeechBackend {
	case "live":
		speech = &api.LiveClient{
			Endpoint: a.cfg.LiveURL,
			Voice:    a.cfg.Voice,
			Keys:     d.creds,
		}
	default:
		speech = &api.SpeechClient{Client: d.client, Model: a.cfg.SpeechModel, Voice: a.cfg.Voice}
	}

	d.service = novel.NewService(d.client, speech, novel.Config{
		Tiers: []novel.Tier{
			{Name: "primary", Model: a.cfg.PrimaryModel, Advanced: true, Terminal: api.IsCredentialError},
			{Name: "fallback", Model: a.cfg.FallbackModel, Terminal: api.IsCredentialError},
		},
		AnalyzeModel: a.cfg.FallbackModel,
		Language:     a.cfg.Language,
	})

	if withAudio {
		out, err := a.newOutput()
		if err != nil {
			d.Close()
			return nil, err
		}
		d.output = out
	}
	return d, nil
}

// newOutput returns the configured output, or nil for "none".
func (a *app) newOutput() (audioplayer.Output, error) {
	cfg := audioplayer.DefaultConfig
	switch a.cfg.AudioOutput {
	case "none":
		return nil, nil
	case "command":
		command := a.cfg.AudioPlayer
		if command == "" {
			command = audioplayer.DetectCommand(cfg)
		}
		if command == "" {
			return nil, errors.New("no audio player found: set audio.player or use audio.output: device")
		}
		return commandOutput(command, cfg)
	}
	out, err := audioplayer.NewOtoOutput(cfg)
	if err != nil {
		log.Warn("audio device unavailable, falling back to an external player", "err", err)
		if command := audioplayer.DetectCommand(cfg); command != "" {
			return commandOutput(command, cfg)
		}
		return nil, fmt.Errorf("open audio device: %w", err)
	}
	return out, nil
}

func commandOutput(command string, cfg audioplayer.Config) (audioplayer.Output, error) {
	out, err := audioplayer.NewCommandOutput(command, cfg)
	if err != nil {
		return nil, err
	}
	return out, nil
}
