package api

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	langbeta "cloud.google.com/go/ai/generativelanguage/apiv1beta"
	langbetapb "cloud.google.com/go/ai/generativelanguage/apiv1beta/generativelanguagepb"
	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/googleapis/gax-go/v2"
	"github.com/googleapis/gax-go/v2/callctx"
	"golang.org/x/time/rate"
	"google.golang.org/api/option"
)

// DefaultBaseURL is the Generative Language service root. The SDK adds the
// /v1beta version path itself.
const DefaultBaseURL = "https://generativelanguage.googleapis.com"

// Client calls generateContent through the generativelanguage REST client.
// The key is resolved per request, so a new SDK client is built for every call.
type Client struct {
	BaseURL string
	Keys    KeyResolver

	timeout    time.Duration
	limiter    *rate.Limiter
	clientOpts []option.ClientOption
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithBaseURL points the client at another endpoint, such as an httptest server.
func WithBaseURL(u string) ClientOption {
	return func(c *Client) {
		u = strings.TrimRight(u, "/")
		c.BaseURL = strings.TrimSuffix(u, "/v1beta")
	}
}

// WithRateLimit spaces requests to at most perMinute per minute.
func WithRateLimit(perMinute int) ClientOption {
	return func(c *Client) {
		if perMinute <= 0 {
			c.limiter = nil
			return
		}
		c.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1)
	}
}

// WithTimeout bounds each generateContent call.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) { c.timeout = d }
}

// WithClientOptions appends SDK options to every client the Client builds.
func WithClientOptions(opts ...option.ClientOption) ClientOption {
	return func(c *Client) { c.clientOpts = append(c.clientOpts, opts...) }
}

// NewClient returns a client that asks keys for the API key on every call.
func NewClient(keys KeyResolver, opts ...ClientOption) *Client {
	c := &Client{
		BaseURL: DefaultBaseURL,
		Keys:    keys,
		timeout: 5 * time.Minute,
		limiter: rate.NewLimiter(rate.Every(time.Second), 2),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// GenerateRequest is one single-turn generateContent call.
type GenerateRequest struct {
	Model     string
	Prompt    string
	JSON      bool   // ask for application/json
	WebSearch bool   // enable the googleSearch tool
	Voice     string // non-empty requests AUDIO output with this prebuilt voice
}

// GenerateResponse carries the first candidate's output.
type GenerateResponse struct {
	Text         string
	Audio        string // base64 PCM from inlineData
	AudioMIME    string
	FinishReason string
	RequestID    string
}

func modelName(model string) string {
	return "models/" + strings.TrimPrefix(model, "models/")
}

func buildRequest(req GenerateRequest) *langbetapb.GenerateContentRequest {
	out := &langbetapb.GenerateContentRequest{
		Model: modelName(req.Model),
		Contents: []*langbetapb.Content{{
			Role:  "user",
			Parts: []*langbetapb.Part{{Data: &langbetapb.Part_Text{Text: req.Prompt}}},
		}},
	}
	var gc langbetapb.GenerationConfig
	if req.JSON {
		gc.ResponseMimeType = "application/json"
	}
	if req.Voice != "" {
		voice := req.Voice
		gc.ResponseModalities = []langbetapb.GenerationConfig_Modality{langbetapb.GenerationConfig_AUDIO}
		gc.SpeechConfig = &langbetapb.SpeechConfig{
			VoiceConfig: &langbetapb.VoiceConfig{
				VoiceConfig: &langbetapb.VoiceConfig_PrebuiltVoiceConfig{
					PrebuiltVoiceConfig: &langbetapb.PrebuiltVoiceConfig{VoiceName: &voice},
				},
			},
		}
	}
	if gc.ResponseMimeType != "" || gc.ResponseModalities != nil {
		out.GenerationConfig = &gc
	}
	if req.WebSearch {
		out.Tools = []*langbetapb.Tool{{GoogleSearch: &langbetapb.Tool_GoogleSearch{}}}
	}
	return out
}

func (c *Client) newGenerativeClient(ctx context.Context, key string) (*langbeta.GenerativeClient, error) {
	opts := []option.ClientOption{option.WithAPIKey(key)}
	if c.BaseURL != "" {
		opts = append(opts, option.WithEndpoint(c.BaseURL))
	}
	opts = append(opts, c.clientOpts...)
	return langbeta.NewGenerativeRESTClient(ctx, opts...)
}

// callOptions disables SDK retries; tier fallback is the retry policy.
func (c *Client) callOptions() []gax.CallOption {
	opts := []gax.CallOption{gax.WithRetry(func() gax.Retryer { return nil })}
	if c.timeout > 0 {
		opts = append(opts, gax.WithTimeout(c.timeout))
	}
	return opts
}

// GenerateContent performs one generateContent call.
func (c *Client) GenerateContent(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	key := ""
	if c.Keys != nil {
		key = c.Keys.APIKey()
	}
	if key == "" {
		return nil, ErrNoAPIKey
	}
	if req.Model == "" {
		return nil, fmt.Errorf("model name is required")
	}
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	gc, err := c.newGenerativeClient(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to create generative client: %w", err)
	}
	defer gc.Close()

	requestID := uuid.NewString()
	ctx = callctx.SetHeaders(ctx, "x-request-id", requestID)
	pbReq := buildRequest(req)

	start := time.Now()
	log.Debug("generateContent", "model", pbReq.Model, "json", req.JSON, "search", req.WebSearch, "audio", req.Voice != "", "request_id", requestID)
	resp, err := gc.GenerateContent(ctx, pbReq, c.callOptions()...)
	if err != nil {
		log.Debug("generateContent failed", "model", pbReq.Model, "elapsed", time.Since(start), "err", err)
		return nil, convertError(err)
	}
	log.Debug("generateContent done", "model", pbReq.Model, "candidates", len(resp.GetCandidates()), "elapsed", time.Since(start))

	out := &GenerateResponse{RequestID: requestID}
	if len(resp.GetCandidates()) == 0 {
		if br := resp.GetPromptFeedback().GetBlockReason(); br != langbetapb.GenerateContentResponse_PromptFeedback_BLOCK_REASON_UNSPECIFIED {
			return nil, fmt.Errorf("prompt blocked: %s", br)
		}
		return out, nil
	}
	cand := resp.GetCandidates()[0]
	if fr := cand.GetFinishReason(); fr != langbetapb.Candidate_FINISH_REASON_UNSPECIFIED {
		out.FinishReason = fr.String()
	}
	var text strings.Builder
	for _, p := range cand.GetContent().GetParts() {
		text.WriteString(p.GetText())
		if blob := p.GetInlineData(); blob != nil && out.Audio == "" {
			out.Audio = base64.StdEncoding.EncodeToString(blob.GetData())
			out.AudioMIME = blob.GetMimeType()
		}
	}
	out.Text = text.String()
	return out, nil
}

// DefaultSpeechModel and DefaultVoice are the provider's TTS defaults.
const (
	DefaultSpeechModel = "gemini-2.5-flash-preview-tts"
	DefaultVoice       = "Puck"
)

// SpeechClient synthesizes speech through generateContent with AUDIO output.
type SpeechClient struct {
	Client *Client
	Model  string
	Voice  string
}

// Synthesize returns base64 PCM (s16le, 24 kHz, mono) for text.
func (s *SpeechClient) Synthesize(ctx context.Context, text string) (string, error) {
	model, voice := s.Model, s.Voice
	if model == "" {
		model = DefaultSpeechModel
	}
	if voice == "" {
		voice = DefaultVoice
	}
	resp, err := s.Client.GenerateContent(ctx, GenerateRequest{Model: model, Prompt: text, Voice: voice})
	if err != nil {
		return "", err
	}
	if resp.Audio == "" {
		return "", ErrNoAudio
	}
	return resp.Audio, nil
}

// ErrNoAudio means the provider answered without an audio payload.
var ErrNoAudio = errors.New("no audio data received")
