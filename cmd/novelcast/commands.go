package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	"github.com/muesli/reflow/wordwrap"
	"github.com/spf13/cobra"

	"github.com/tmc/novelcast"
	"github.com/tmc/novelcast/api"
	"github.com/tmc/novelcast/audioplayer"
	"github.com/tmc/novelcast/novel"
)

var headingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("5"))

const cliWrap = 80

func (a *app) heading(s string) string {
	if a.isTerminal() {
		return headingStyle.Render(s)
	}
	return s
}

// controller builds the reader state machine for a headless command.
func (a *app) controller(d *deps) *novelcast.Controller {
	var player *audioplayer.Controller
	if d.output != nil {
		player = audioplayer.NewController(d.output)
	}
	c := novelcast.NewController(d.service, player, d.library, d.creds)
	c.Restore()
	return c
}

func (a *app) analyzeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "analyze URL",
		Short: "Find a book's chapters and save them as the current book",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := a.open(false)
			if err != nil {
				return err
			}
			defer d.Close()

			c := a.controller(d)
			if err := c.Analyze(cmd.Context(), args[0]); err != nil {
				return err
			}
			book := c.Snapshot().Book
			fmt.Fprintln(a.stdout, a.heading(book.Title))
			if book.Description != "" {
				fmt.Fprintln(a.stdout, wordwrap.String(book.Description, cliWrap))
			}
			fmt.Fprintf(a.stdout, "%s chapters\n", humanize.Comma(int64(book.TotalChapters)))
			if len(book.Chapters) == 0 {
				fmt.Fprintln(a.stdout, "no chapters found")
				return nil
			}
			for _, ch := range book.Chapters {
				fmt.Fprintf(a.stdout, "%s\t%s\n", ch.Number, ch.URL)
			}
			return nil
		},
	}
}

func (a *app) readCmd() *cobra.Command {
	var (
		text     bool
		original bool
		title    string
		chapter  string
	)
	cmd := &cobra.Command{
		Use:   "read [URL | - | TEXT]",
		Short: "Retrieve and translate a chapter",
		Long: "Retrieve and translate a chapter. With --text the argument is the text itself; " +
			"\"-\" reads it from stdin. With --chapter the chapter is taken from the current book.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := a.open(false)
			if err != nil {
				return err
			}
			defer d.Close()
			c := a.controller(d)

			switch {
			case chapter != "":
				err = c.ReadChapterNumber(cmd.Context(), chapter)
			case len(args) == 1:
				input := args[0]
				mode := novel.ModeURL
				if text || input == "-" {
					mode = novel.ModeText
				}
				if input == "-" {
					b, rerr := io.ReadAll(a.stdin)
					if rerr != nil {
						return fmt.Errorf("read stdin: %w", rerr)
					}
					input = string(b)
				}
				err = c.FetchChapter(cmd.Context(), input, mode, title)
			default:
				return errors.New("give a URL, text, \"-\" or --chapter")
			}
			if err != nil {
				return err
			}
			a.printStory(c.Snapshot().Story, original)
			return nil
		},
	}
	cmd.Flags().BoolVar(&text, "text", false, "treat the argument as text to translate")
	cmd.Flags().BoolVar(&original, "original", false, "also print the original text")
	cmd.Flags().StringVar(&title, "title", "", "chapter title to use when the provider gives none")
	cmd.Flags().StringVar(&chapter, "chapter", "", "read the chapter numbered N in the current book")
	return cmd
}

func (a *app) printStory(story *novel.StoryContent, original bool) {
	fmt.Fprintln(a.stdout, a.heading(story.Title))
	fmt.Fprintln(a.stdout)
	if original {
		fmt.Fprintln(a.stdout, wordwrap.String(story.OriginalText, cliWrap))
		fmt.Fprintln(a.stdout)
	}
	fmt.Fprintln(a.stdout, wordwrap.String(story.TranslatedText, cliWrap))
}

func (a *app) speakCmd() *cobra.Command {
	var (
		wavPath string
		noAudio bool
		text    bool
	)
	cmd := &cobra.Command{
		Use:   "speak [URL]",
		Short: "Narrate a chapter, or the last chapter read",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := a.open(!noAudio)
			if err != nil {
				return err
			}
			defer d.Close()
			c := a.controller(d)
			ctx := cmd.Context()

			if len(args) == 1 {
				mode := novel.ModeURL
				if text {
					mode = novel.ModeText
				}
				if err := c.FetchChapter(ctx, args[0], mode, ""); err != nil {
					return err
				}
			}
			story := c.Snapshot().Story
			if story == nil {
				return novelcast.ErrNoStory
			}
			fmt.Fprintln(a.stdout, a.heading(story.Title))
			if err := c.GenerateAudio(ctx); err != nil {
				return err
			}
			snap := c.Snapshot()
			fmt.Fprintf(a.stdout, "audio: %s\n", snap.Story.Audio.Duration().Round(time.Second/10))

			if wavPath != "" {
				if err := c.SaveAudio(a.path(wavPath)); err != nil {
					return err
				}
				fmt.Fprintf(a.stdout, "saved %s\n", wavPath)
			}
			if d.output == nil {
				return nil
			}
			return waitForPlayback(ctx, c)
		},
	}
	cmd.Flags().StringVar(&wavPath, "wav", "", "write the narration to a WAV file")
	cmd.Flags().BoolVar(&noAudio, "no-audio", false, "do not play the narration")
	cmd.Flags().BoolVar(&text, "text", false, "treat the argument as text to translate")
	return cmd
}

// waitForPlayback blocks until the narration ends or ctx is cancelled.
func waitForPlayback(ctx context.Context, c *novelcast.Controller) error {
	t := time.NewTicker(100 * time.Millisecond)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			c.Stop()
			return ctx.Err()
		case <-t.C:
			if c.Tick() || c.State() != novelcast.StatePlaying {
				return nil
			}
		}
	}
}

func (a *app) modelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "models [FILTER]",
		Short: "List available models",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := a.open(false)
			if err != nil {
				return err
			}
			defer d.Close()
			filter := ""
			if len(args) == 1 {
				filter = args[0]
			}
			models, err := d.client.ListModels(cmd.Context(), filter)
			if err != nil {
				if api.IsCredentialError(err) {
					return fmt.Errorf("%w: %w", novel.ErrCredentials, err)
				}
				return err
			}
			for _, m := range models {
				fmt.Fprintf(a.stdout, "%s\t%s\n", m.ID(), m.DisplayName)
			}
			return nil
		},
	}
}

func (a *app) keyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "key",
		Short: "Manage the stored API key override",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "set KEY",
			Short: "Store an API key that takes precedence over the environment",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.withKeys(func(c *api.Credentials) error {
					if strings.TrimSpace(args[0]) == "" {
						return errors.New("key is empty: use \"key clear\" to remove the override")
					}
					if err := c.SetOverride(args[0]); err != nil {
						return err
					}
					fmt.Fprintln(a.stdout, "API key saved")
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "clear",
			Short: "Remove the stored API key override",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return a.withKeys(func(c *api.Credentials) error {
					if err := c.SetOverride(""); err != nil {
						return err
					}
					fmt.Fprintln(a.stdout, "API key override removed")
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "show",
			Short: "Show the active key, masked, and where it comes from",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return a.withKeys(func(c *api.Credentials) error {
					key := c.APIKey()
					if key == "" {
						fmt.Fprintln(a.stdout, "no API key configured")
						return nil
					}
					fmt.Fprintf(a.stdout, "%s (%s)\n", api.MaskKey(key), c.Source())
					return nil
				})
			},
		},
	)
	return cmd
}

func (a *app) withKeys(fn func(*api.Credentials) error) error {
	lib, err := a.openLibrary()
	if err != nil {
		return err
	}
	defer func() {
		if err := lib.Close(); err != nil {
			log.Warn("close storage", "err", err)
		}
	}()
	return fn(api.NewCredentials(lib).WithEnvironment(a.environ))
}

func (a *app) clearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Forget the saved book and chapter",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			lib, err := a.openLibrary()
			if err != nil {
				return err
			}
			defer lib.Close()
			if err := lib.Clear(); err != nil {
				return err
			}
			fmt.Fprintln(a.stdout, "saved book and chapter cleared")
			return nil
		},
	}
}
