package api

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
)

const (
	// LiveModelEndpoint is the WebSocket endpoint for Gemini Live API
	LiveModelEndpoint = "wss://generativelanguage.googleapis.com/ws/google.ai.generativelanguage.v1beta.GenerativeService.BidiGenerateContent"
	// DefaultLiveModel is used when LiveClient.Model is empty.
	DefaultLiveModel = "gemini-2.0-flash-live-001"

	liveReadAloudInstruction = "You are a narrator. Read the user's text aloud exactly as written, without adding, omitting or commenting on anything."
)

// LiveSetupRequest represents the initial setup message for the Live API
type LiveSetupRequest struct {
	Setup LiveSetupConfig `json:"setup"`
}

// LiveSetupConfig contains configuration for the Live API session
type LiveSetupConfig struct {
	Model             string               `json:"model"`
	GenerationConfig  LiveGenerationConfig `json:"generationConfig,omitempty"`
	SystemInstruction *LiveContent         `json:"systemInstruction,omitempty"`
}

// LiveGenerationConfig contains generation parameters for the Live API
type LiveGenerationConfig struct {
	ResponseModalities []string          `json:"responseModalities,omitempty"`
	SpeechConfig       *LiveSpeechConfig `json:"speechConfig,omitempty"`
}

// LiveSpeechConfig configures speech output for audio responses
type LiveSpeechConfig struct {
	VoiceConfig *LiveVoiceConfig `json:"voiceConfig,omitempty"`
}

// LiveVoiceConfig configures the voice for audio responses
type LiveVoiceConfig struct {
	PrebuiltVoiceConfig *LivePrebuiltVoiceConfig `json:"prebuiltVoiceConfig,omitempty"`
}

// LivePrebuiltVoiceConfig specifies a prebuilt voice
type LivePrebuiltVoiceConfig struct {
	VoiceName string `json:"voiceName"`
}

// LiveContent represents content in a message
type LiveContent struct {
	Role  string     `json:"role,omitempty"`
	Parts []LivePart `json:"parts"`
}

// inlineData is a base64 media payload inside a part.
type inlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

// LivePart represents a part of a message
type LivePart struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

// LiveClientMessageRequest represents a client message to the Live API
type LiveClientMessageRequest struct {
	ClientContent *LiveClientContent `json:"clientContent,omitempty"`
}

// LiveClientContent contains the content of a client message
type LiveClientContent struct {
	Turns        []LiveContent `json:"turns"`
	TurnComplete bool          `json:"turnComplete"`
}

// LiveServerResponse represents a response from the Live API
type LiveServerResponse struct {
	ServerContent *LiveServerContent `json:"serverContent,omitempty"`
	SetupComplete *struct{}          `json:"setupComplete,omitempty"`
}

// LiveServerContent contains the content of a server response
type LiveServerContent struct {
	ModelTurn    *LiveContent `json:"modelTurn,omitempty"`
	TurnComplete bool         `json:"turnComplete"`
	Interrupted  bool         `json:"interrupted"`
}

// LiveClient synthesizes speech through a Live API session: one session per
// call, reading audio parts until the model completes its turn.
type LiveClient struct {
	Endpoint         string
	Model            string
	Voice            string
	Keys             KeyResolver
	HandshakeTimeout time.Duration
	// ReadTimeout bounds the wait for each server message. Zero means
	// DefaultLiveReadTimeout.
	ReadTimeout time.Duration
}

// DefaultLiveReadTimeout is how long a session may stay silent before
// Synthesize gives up.
const DefaultLiveReadTimeout = 60 * time.Second

// Synthesize returns base64 PCM for text.
func (c *LiveClient) Synthesize(ctx context.Context, text string) (string, error) {
	key := ""
	if c.Keys != nil {
		key = c.Keys.APIKey()
	}
	if key == "" {
		return "", ErrNoAPIKey
	}
	endpoint := c.Endpoint
	if endpoint == "" {
		endpoint = LiveModelEndpoint
	}
	timeout := c.HandshakeTimeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	header := http.Header{}
	header.Add("x-goog-api-key", key)
	dialer := websocket.Dialer{HandshakeTimeout: timeout}
	log.Debug("connecting to live endpoint", "endpoint", endpoint)
	conn, resp, err := dialer.DialContext(ctx, endpoint, header)
	if err != nil {
		if resp != nil {
			return "", &APIError{HTTPStatus: resp.StatusCode, Message: fmt.Sprintf("failed to connect to Live API: %v", err)}
		}
		return "", fmt.Errorf("failed to connect to Live API: %w", err)
	}
	defer conn.Close()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	if err := c.sendSetup(conn); err != nil {
		return "", err
	}
	readTimeout := c.ReadTimeout
	if readTimeout <= 0 {
		readTimeout = DefaultLiveReadTimeout
	}
	if err := waitForSetupComplete(conn, readTimeout); err != nil {
		return "", wrapLiveErr(ctx, err)
	}

	msg := LiveClientMessageRequest{ClientContent: &LiveClientContent{
		Turns:        []LiveContent{{Role: "user", Parts: []LivePart{{Text: text}}}},
		TurnComplete: true,
	}}
	if err := conn.WriteJSON(msg); err != nil {
		return "", fmt.Errorf("send text: %w", err)
	}

	var pcm []byte
	for {
		var r LiveServerResponse
		if err := readResponse(conn, &r, readTimeout); err != nil {
			return "", wrapLiveErr(ctx, err)
		}
		if r.ServerContent == nil {
			continue
		}
		if mt := r.ServerContent.ModelTurn; mt != nil {
			for _, p := range mt.Parts {
				if p.InlineData == nil || !strings.HasPrefix(p.InlineData.MimeType, "audio/") {
					continue
				}
				chunk, err := base64.StdEncoding.DecodeString(p.InlineData.Data)
				if err != nil {
					return "", fmt.Errorf("decode live audio chunk: %w", err)
				}
				pcm = append(pcm, chunk...)
			}
		}
		if r.ServerContent.TurnComplete || r.ServerContent.Interrupted {
			break
		}
	}
	if len(pcm) == 0 {
		return "", ErrNoAudio
	}
	log.Debug("live synthesis complete", "bytes", len(pcm))
	return base64.StdEncoding.EncodeToString(pcm), nil
}

func (c *LiveClient) sendSetup(conn *websocket.Conn) error {
	model := c.Model
	if model == "" {
		model = DefaultLiveModel
	}
	if !strings.HasPrefix(model, "models/") {
		model = "models/" + model
	}
	voice := c.Voice
	if voice == "" {
		voice = DefaultVoice
	}
	setup := LiveSetupRequest{Setup: LiveSetupConfig{
		Model: model,
		GenerationConfig: LiveGenerationConfig{
			ResponseModalities: []string{"AUDIO"},
			SpeechConfig: &LiveSpeechConfig{VoiceConfig: &LiveVoiceConfig{
				PrebuiltVoiceConfig: &LivePrebuiltVoiceConfig{VoiceName: voice},
			}},
		},
		SystemInstruction: &LiveContent{Parts: []LivePart{{Text: liveReadAloudInstruction}}},
	}}
	if err := conn.WriteJSON(setup); err != nil {
		return fmt.Errorf("failed to send setup message: %w", err)
	}
	return nil
}

func waitForSetupComplete(conn *websocket.Conn, timeout time.Duration) error {
	for {
		var r LiveServerResponse
		if err := readResponse(conn, &r, timeout); err != nil {
			return fmt.Errorf("setup failed: %w", err)
		}
		if r.SetupComplete != nil {
			return nil
		}
	}
}

// readResponse accepts both text and binary frames; the server sends JSON in either.
func readResponse(conn *websocket.Conn, r *LiveServerResponse, timeout time.Duration) error {
	if err := conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return err
	}
	_, data, err := conn.ReadMessage()
	if err != nil {
		var ne net.Error
		if errors.As(err, &ne) && ne.Timeout() {
			return fmt.Errorf("no live message within %s: %w", timeout, err)
		}
		return err
	}
	if err := json.Unmarshal(data, r); err != nil {
		return fmt.Errorf("decode live message: %w", err)
	}
	return nil
}

func wrapLiveErr(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	var ce *websocket.CloseError
	if errors.As(err, &ce) && ce.Code != websocket.CloseNormalClosure {
		apiErr := &APIError{Message: ce.Text}
		if ce.Code == websocket.ClosePolicyViolation && mentionsAPIKey(ce.Text) {
			apiErr.Status = "UNAUTHENTICATED"
		}
		return apiErr
	}
	return err
}
