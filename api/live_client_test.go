package api

import (
	"context"
	"encoding/base64"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func newLiveServer(t *testing.T, chunks [][]byte, closeWith *websocket.CloseError) (*httptest.Server, *LiveSetupRequest) {
	t.Helper()
	var setup LiveSetupRequest
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()
		if err := conn.ReadJSON(&setup); err != nil {
			t.Errorf("read setup: %v", err)
			return
		}
		if closeWith != nil {
			conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(closeWith.Code, closeWith.Text))
			return
		}
		conn.WriteJSON(map[string]any{"setupComplete": map[string]any{}})

		var msg LiveClientMessageRequest
		if err := conn.ReadJSON(&msg); err != nil {
			t.Errorf("read content: %v", err)
			return
		}
		for _, c := range chunks {
			resp := LiveServerResponse{ServerContent: &LiveServerContent{ModelTurn: &LiveContent{
				Parts: []LivePart{{InlineData: &inlineData{MimeType: "audio/pcm;rate=24000", Data: base64.StdEncoding.EncodeToString(c)}}},
			}}}
			conn.WriteJSON(resp)
		}
		conn.WriteJSON(LiveServerResponse{ServerContent: &LiveServerContent{TurnComplete: true}})
	}))
	t.Cleanup(srv.Close)
	return srv, &setup
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestLiveClientSynthesize(t *testing.T) {
	defer SetupTestLogging(t)()

	srv, setup := newLiveServer(t, [][]byte{{1, 2}, {3, 4, 5, 6}}, nil)
	c := &LiveClient{Endpoint: wsURL(srv), Keys: StaticKey("k"), Voice: "Kore"}

	got, err := c.Synthesize(context.Background(), "hola mundo")
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	raw, _ := base64.StdEncoding.DecodeString(got)
	if string(raw) != string([]byte{1, 2, 3, 4, 5, 6}) {
		t.Errorf("audio = %v, want concatenated chunks", raw)
	}
	if setup.Setup.Model != "models/"+DefaultLiveModel {
		t.Errorf("setup model = %q", setup.Setup.Model)
	}
	if v := setup.Setup.GenerationConfig.SpeechConfig.VoiceConfig.PrebuiltVoiceConfig.VoiceName; v != "Kore" {
		t.Errorf("voice = %q, want Kore", v)
	}
}

func TestLiveClientNoAudio(t *testing.T) {
	srv, _ := newLiveServer(t, nil, nil)
	c := &LiveClient{Endpoint: wsURL(srv), Keys: StaticKey("k")}
	if _, err := c.Synthesize(context.Background(), "x"); !errors.Is(err, ErrNoAudio) {
		t.Errorf("Synthesize() error = %v, want ErrNoAudio", err)
	}
}

func TestLiveClientCredentialClose(t *testing.T) {
	srv, _ := newLiveServer(t, nil, &websocket.CloseError{Code: websocket.ClosePolicyViolation, Text: "API key not valid. Please pass a valid API key."})
	c := &LiveClient{Endpoint: wsURL(srv), Keys: StaticKey("bad")}
	_, err := c.Synthesize(context.Background(), "x")
	if !IsCredentialError(err) {
		t.Errorf("Synthesize() error = %v, want credential error", err)
	}
}

func TestLiveClientNoKey(t *testing.T) {
	c := &LiveClient{Endpoint: "ws://127.0.0.1:1", Keys: StaticKey("")}
	if _, err := c.Synthesize(context.Background(), "x"); !errors.Is(err, ErrNoAPIKey) {
		t.Errorf("Synthesize() error = %v, want ErrNoAPIKey", err)
	}
}

func TestLiveClientReadTimeout(t *testing.T) {
	release := make(chan struct{})
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		var setup LiveSetupRequest
		if err := conn.ReadJSON(&setup); err != nil {
			return
		}
		conn.WriteJSON(map[string]any{"setupComplete": map[string]any{}})
		<-release
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(release) })

	c := &LiveClient{Endpoint: wsURL(srv), Keys: StaticKey("k"), ReadTimeout: 100 * time.Millisecond}
	start := time.Now()
	_, err := c.Synthesize(context.Background(), "x")
	if err == nil {
		t.Fatal("Synthesize() succeeded against a silent server")
	}
	var ne net.Error
	if !errors.As(err, &ne) || !ne.Timeout() {
		t.Errorf("Synthesize() error = %v, want a read timeout", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("Synthesize() took %v, want it bounded by the read timeout", elapsed)
	}
}
