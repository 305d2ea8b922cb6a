package audioplayer

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/tmc/novelcast/internal/helpers"
)

// CommandOutput plays audio by running an external player such as ffplay,
// aplay or afplay. Each Source is one process.
type CommandOutput struct {
	command string
	cmdName string
	cmdArgs []string
	config  Config
	epoch   time.Time
}

// DetectCommand returns a player command available on PATH, or "".
func DetectCommand(cfg Config) string {
	candidates := []string{
		"ffplay -autoexit -nodisp -loglevel quiet -i -",
		"aplay -q -t raw -f S16_LE -r " + strconv.Itoa(cfg.SampleRate) + " -c " + strconv.Itoa(cfg.Channels),
		"afplay",
	}
	for _, c := range candidates {
		if _, err := exec.LookPath(strings.Fields(c)[0]); err == nil {
			return c
		}
	}
	return ""
}

// NewCommandOutput checks that the command exists and returns an output for it.
func NewCommandOutput(command string, config Config) (*CommandOutput, error) {
	parts := strings.Fields(command)
	if len(parts) == 0 {
		return nil, errors.New("audio player command cannot be empty")
	}
	if _, err := exec.LookPath(parts[0]); err != nil {
		return nil, fmt.Errorf("audio player command '%s' not found in PATH: %w", parts[0], err)
	}
	log.Debug("command output initialized", "component", "player", "command", command)
	return &CommandOutput{
		command: command,
		cmdName: parts[0],
		cmdArgs: parts[1:],
		config:  config,
		epoch:   time.Now(),
	}, nil
}

// RequiresWAVHeader reports whether the player needs a WAV container.
// aplay is driven with raw PCM flags; everything else gets a header.
func (o *CommandOutput) RequiresWAVHeader() bool {
	return o.cmdName != "aplay"
}

// readsFile reports whether the player cannot read stdin.
func (o *CommandOutput) readsFile() bool {
	return o.cmdName == "afplay"
}

func (o *CommandOutput) Now() float64 {
	return time.Since(o.epoch).Seconds()
}

func (o *CommandOutput) NewSource(buf *Buffer) (Source, error) {
	return &commandSource{out: o, buf: buf}, nil
}

func (o *CommandOutput) Close() error { return nil }

type commandSource struct {
	mu       sync.Mutex
	out      *CommandOutput
	buf      *Buffer
	cmd      *exec.Cmd
	tempPath string
	stopped  bool
}

func (s *commandSource) Start(offset float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cmd != nil || s.stopped {
		return errors.New("audio source is single use")
	}

	pcm := s.buf.Int16LE(offset)
	var payload bytes.Buffer
	if s.out.RequiresWAVHeader() {
		payload.Write(helpers.CreateWavHeader(len(pcm), s.buf.NumberOfChannels(), s.buf.SampleRate, 16))
	}
	payload.Write(pcm)

	args := s.out.cmdArgs
	var cmd *exec.Cmd
	if s.out.readsFile() {
		path, err := writeTempWAV(payload.Bytes())
		if err != nil {
			return err
		}
		s.tempPath = path
		cmd = exec.Command(s.out.cmdName, append(append([]string{}, args...), path)...)
	} else {
		cmd = exec.Command(s.out.cmdName, args...)
		cmd.Stdin = &payload
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if helpers.IsAudioTraceEnabled() {
		log.Debug("executing player", "component", "player", "command", s.out.command, "bytes", payload.Len())
	}
	if err := cmd.Start(); err != nil {
		s.cleanup()
		return fmt.Errorf("audio player command failed: %w", err)
	}
	s.cmd = cmd
	go func() {
		err := cmd.Wait()
		s.mu.Lock()
		stopped := s.stopped
		s.mu.Unlock()
		if err != nil && !stopped {
			log.Warn("audio player exited", "component", "player", "err", err, "stderr", stderr.String())
		}
	}()
	return nil
}

func (s *commandSource) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return ErrSourceStopped
	}
	s.stopped = true
	defer s.cleanup()
	if s.cmd == nil || s.cmd.Process == nil {
		return nil
	}
	if err := s.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return err
	}
	return nil
}

func (s *commandSource) cleanup() {
	if s.tempPath == "" {
		return
	}
	if err := os.Remove(s.tempPath); err != nil {
		log.Warn("failed to remove temp file", "component", "player", "path", s.tempPath, "err", err)
	}
	s.tempPath = ""
}

func writeTempWAV(data []byte) (string, error) {
	f, err := os.CreateTemp("", "novelcast-*.wav")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	w := bufio.NewWriterSize(f, 32*1024)
	_, errData := w.Write(data)
	errFlush := w.Flush()
	errClose := f.Close()
	if err := errors.Join(errData, errFlush, errClose); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("failed writing temp file %s: %w", f.Name(), err)
	}
	return f.Name(), nil
}
