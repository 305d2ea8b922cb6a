package api

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	langbetapb "cloud.google.com/go/ai/generativelanguage/apiv1beta/generativelanguagepb"
	"github.com/charmbracelet/log"
	"google.golang.org/protobuf/encoding/protojson"
)

// testLogWriter redirects log output to testing.T.Logf
type testLogWriter struct {
	t      testing.TB
	mu     sync.Mutex
	buffer bytes.Buffer
}

// Write implements io.Writer for testLogWriter
func (w *testLogWriter) Write(p []byte) (n int, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	n, err = w.buffer.Write(p)
	for {
		line, err := w.buffer.ReadString('\n')
		if err != nil {
			if len(line) > 0 {
				w.buffer.WriteString(line)
			}
			break
		}
		if line = strings.TrimSuffix(line, "\n"); line != "" {
			w.t.Logf("%s", line)
		}
	}
	return n, nil
}

// SetupTestLogging sends the default logger to t.Logf at debug level.
// It returns a cleanup function that restores the previous logger.
func SetupTestLogging(t testing.TB) func() {
	original := log.Default()
	logger := log.NewWithOptions(&testLogWriter{t: t}, log.Options{Level: log.DebugLevel})
	log.SetDefault(logger)
	return func() { log.SetDefault(original) }
}

// CaptureLogOutput captures log output during the execution of fn.
func CaptureLogOutput(fn func()) string {
	original := log.Default()
	var buf bytes.Buffer
	log.SetDefault(log.NewWithOptions(&buf, log.Options{Level: log.DebugLevel}))
	defer log.SetDefault(original)
	fn()
	return buf.String()
}

// RecordedRequest is one generateContent call seen by a FakeServer.
type RecordedRequest struct {
	Model     string
	APIKey    string
	Prompt    string
	JSON      bool
	WebSearch bool
	Voice     string
}

// FakeResponse is what a FakeServer answers.
type FakeResponse struct {
	HTTPStatus int
	Text       string
	Audio      string // base64 PCM
	Status     string // error status, e.g. "INVALID_ARGUMENT"
	Reason     string // error detail reason, e.g. "API_KEY_INVALID"
	Message    string
}

// TextResponse answers with a single text part.
func TextResponse(text string) FakeResponse { return FakeResponse{Text: text} }

// AudioResponse answers with a single inlineData part.
func AudioResponse(b64 string) FakeResponse { return FakeResponse{Audio: b64} }

// ErrorResponse answers with a provider error body.
func ErrorResponse(httpStatus int, status, reason, message string) FakeResponse {
	return FakeResponse{HTTPStatus: httpStatus, Status: status, Reason: reason, Message: message}
}

// FakeServer is an httptest provider for the generateContent REST method.
// It speaks the same protojson the SDK's REST transport sends.
type FakeServer struct {
	*httptest.Server

	mu       sync.Mutex
	requests []RecordedRequest
	handler  func(RecordedRequest) FakeResponse
}

// NewFakeServer starts a fake provider; it is closed when the test ends.
func NewFakeServer(t testing.TB, handler func(RecordedRequest) FakeResponse) *FakeServer {
	f := &FakeServer{handler: handler}
	f.Server = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.Close)
	return f
}

// Requests returns the calls received so far.
func (f *FakeServer) Requests() []RecordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]RecordedRequest(nil), f.requests...)
}

type fakeErrorDetail struct {
	Type   string `json:"@type"`
	Reason string `json:"reason"`
	Domain string `json:"domain"`
}

type fakeError struct {
	Error struct {
		Code    int               `json:"code"`
		Message string            `json:"message"`
		Status  string            `json:"status,omitempty"`
		Details []fakeErrorDetail `json:"details,omitempty"`
	} `json:"error"`
}

func (f *FakeServer) serve(w http.ResponseWriter, r *http.Request) {
	model, ok := strings.CutSuffix(strings.TrimPrefix(r.URL.Path, "/v1beta/models/"), ":generateContent")
	if r.Method != http.MethodPost || !ok {
		http.NotFound(w, r)
		return
	}
	body, _ := io.ReadAll(r.Body)
	var req langbetapb.GenerateContentRequest
	if err := (protojson.UnmarshalOptions{DiscardUnknown: true}).Unmarshal(body, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	key := r.URL.Query().Get("key")
	if key == "" {
		key = r.Header.Get("x-goog-api-key")
	}
	rec := RecordedRequest{Model: model, APIKey: key}
	if c := req.GetContents(); len(c) > 0 && len(c[0].GetParts()) > 0 {
		rec.Prompt = c[0].GetParts()[0].GetText()
	}
	if gc := req.GetGenerationConfig(); gc != nil {
		rec.JSON = gc.GetResponseMimeType() == "application/json"
		rec.Voice = gc.GetSpeechConfig().GetVoiceConfig().GetPrebuiltVoiceConfig().GetVoiceName()
	}
	for _, tool := range req.GetTools() {
		if tool.GetGoogleSearch() != nil {
			rec.WebSearch = true
		}
	}
	f.mu.Lock()
	f.requests = append(f.requests, rec)
	f.mu.Unlock()

	resp := f.handler(rec)
	w.Header().Set("Content-Type", "application/json")
	if resp.HTTPStatus >= 300 {
		var e fakeError
		e.Error.Code = resp.HTTPStatus
		e.Error.Status = resp.Status
		e.Error.Message = resp.Message
		if resp.Reason != "" {
			e.Error.Details = append(e.Error.Details, fakeErrorDetail{
				Type:   "type.googleapis.com/google.rpc.ErrorInfo",
				Reason: resp.Reason,
				Domain: "googleapis.com",
			})
		}
		w.WriteHeader(resp.HTTPStatus)
		json.NewEncoder(w).Encode(e)
		return
	}
	part := &langbetapb.Part{Data: &langbetapb.Part_Text{Text: resp.Text}}
	if resp.Audio != "" {
		pcm, err := base64.StdEncoding.DecodeString(resp.Audio)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		part.Data = &langbetapb.Part_InlineData{InlineData: &langbetapb.Blob{MimeType: "audio/L16;codec=pcm;rate=24000", Data: pcm}}
	}
	out, err := protojson.Marshal(&langbetapb.GenerateContentResponse{
		Candidates: []*langbetapb.Candidate{{
			Content:      &langbetapb.Content{Role: "model", Parts: []*langbetapb.Part{part}},
			FinishReason: langbetapb.Candidate_STOP,
		}},
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Write(out)
}

// StaticKey is a KeyResolver that always returns the same key.
type StaticKey string

func (k StaticKey) APIKey() string { return string(k) }
