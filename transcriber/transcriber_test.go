package transcriber

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"vozflow/apperr"
	"vozflow/config"
	"vozflow/encoder"
)

func TestNetworkMetricsSum(t *testing.T) {
	m := &NetworkMetrics{
		ConnWait:   10 * time.Millisecond,
		DNS:        20 * time.Millisecond,
		TCP:        30 * time.Millisecond,
		TLS:        40 * time.Millisecond,
		ReqHeaders: 5 * time.Millisecond,
		ReqBody:    15 * time.Millisecond,
		TTFB:       50 * time.Millisecond,
	}
	if got, want := m.Sum(), 170*time.Millisecond; got != want {
		t.Errorf("Sum() = %v, want %v", got, want)
	}
}

func payload() encoder.Result {
	return encoder.Result{Data: []byte("fLaC-not-really"), Format: encoder.FormatFLAC, Frames: 16000}
}

func TestPipelineSuccess(t *testing.T) {
	f := NewFake("um so hello world", "So, hello world.")
	res, err := NewPipeline(f, f).Run(context.Background(), "s1", payload())
	if err != nil {
		t.Fatal(err)
	}
	if res.Original != "um so hello world" || res.Refined != "So, hello world." {
		t.Errorf("got %+v", res)
	}
	if f.LastRefineInput() != "um so hello world" {
		t.Errorf("refine input = %q", f.LastRefineInput())
	}
	if f.LastFormat() != encoder.FormatFLAC {
		t.Errorf("format = %q", f.LastFormat())
	}
}

func TestPipelineFailures(t *testing.T) {
	boom := errors.New("boom")
	for _, tt := range []struct {
		name       string
		fake       *Fake
		data       []byte
		wantRefine int
	}{
		{"stt error", &Fake{STTErr: boom, Refined: "x"}, []byte("a"), 0},
		{"empty transcript", &Fake{Text: "", Refined: "x"}, []byte("a"), 0},
		{"refine error", &Fake{Text: "hi", RefineErr: boom}, []byte("a"), 1},
		{"empty refinement", &Fake{Text: "hi", Refined: ""}, []byte("a"), 1},
		{"no audio", &Fake{Text: "hi", Refined: "Hi."}, nil, 0},
	} {
		t.Run(tt.name, func(t *testing.T) {
			p := payload()
			p.Data = tt.data
			_, err := NewPipeline(tt.fake, tt.fake).Run(context.Background(), "s", p)
			if !apperr.Is(err, apperr.Pipeline) {
				t.Fatalf("err = %v, want pipeline error", err)
			}
			if _, refine := tt.fake.Calls(); refine != tt.wantRefine {
				t.Errorf("refine calls = %d, want %d", refine, tt.wantRefine)
			}
		})
	}
}

func TestPipelineHonorsCancel(t *testing.T) {
	f := NewFake("a", "b")
	f.Gate = make(chan struct{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewPipeline(f, f).Run(ctx, "s", payload())
	if !apperr.Is(err, apperr.Pipeline) || !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v", err)
	}
}

type fakeAPI struct {
	mu          sync.Mutex
	auth        string
	model       string
	language    string
	chatBody    map[string]any
	sttStatus   int
	sttText     string
	chatContent string
}

func (a *fakeAPI) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/audio/transcriptions", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		a.mu.Lock()
		a.auth = r.Header.Get("Authorization")
		a.model = r.FormValue("model")
		a.language = r.FormValue("language")
		status, text := a.sttStatus, a.sttText
		a.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		if status != 0 {
			w.WriteHeader(status)
			io.WriteString(w, `{"error":{"message":"bad key","type":"invalid_request_error"}}`)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"text": text})
	})
	mux.HandleFunc("/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		a.mu.Lock()
		a.chatBody = body
		content := a.chatContent
		a.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"created": 1700000000,
			"model":   body["model"],
			"choices": []map[string]any{{
				"index":         0,
				"message":       map[string]any{"role": "assistant", "content": content},
				"finish_reason": "stop",
			}},
		})
	})
	return mux
}

func newGroq(t *testing.T, api *fakeAPI, lang string) *Groq {
	t.Helper()
	srv := httptest.NewServer(api.handler())
	t.Cleanup(srv.Close)
	cfg := config.Config{
		APIKey:      "gsk-test",
		BaseURL:     srv.URL + "/",
		STTModel:    config.DefaultSTTModel,
		RefineModel: config.DefaultRefineModel,
		Temperature: 0.1,
		Language:    lang,
		Timeout:     5 * time.Second,
	}
	g, err := NewGroq(cfg, NewTracedClient(func(*http.Request, int, *NetworkMetrics) {}))
	if err != nil {
		t.Fatal(err)
	}
	return g
}

func TestGroqEndToEnd(t *testing.T) {
	api := &fakeAPI{sttText: " uh hola mundo ", chatContent: "Hola, mundo."}
	g := newGroq(t, api, "es")

	res, err := NewPipeline(g, g).Run(context.Background(), "s", payload())
	if err != nil {
		t.Fatal(err)
	}
	if res.Original != "uh hola mundo" || res.Refined != "Hola, mundo." {
		t.Errorf("got %+v", res)
	}

	api.mu.Lock()
	defer api.mu.Unlock()
	if api.auth != "Bearer gsk-test" {
		t.Errorf("auth = %q", api.auth)
	}
	if api.model != config.DefaultSTTModel || api.language != "es" {
		t.Errorf("stt model = %q language = %q", api.model, api.language)
	}
	if api.chatBody["model"] != config.DefaultRefineModel {
		t.Errorf("chat model = %v", api.chatBody["model"])
	}
	if temp, _ := api.chatBody["temperature"].(float64); temp != 0.1 {
		t.Errorf("temperature = %v", api.chatBody["temperature"])
	}
	msgs, _ := api.chatBody["messages"].([]any)
	if len(msgs) != 2 {
		t.Fatalf("messages = %v", api.chatBody["messages"])
	}
	sys, _ := msgs[0].(map[string]any)
	if sys["role"] != "system" || sys["content"] != SystemPrompt {
		t.Errorf("system message = %v", sys)
	}
	user, _ := msgs[1].(map[string]any)
	if user["role"] != "user" || user["content"] != "uh hola mundo" {
		t.Errorf("user message = %v", user)
	}
}

func TestGroqHTTPErrorIsPipelineError(t *testing.T) {
	api := &fakeAPI{sttStatus: http.StatusUnauthorized}
	g := newGroq(t, api, "")

	_, err := NewPipeline(g, g).Run(context.Background(), "s", payload())
	if !apperr.Is(err, apperr.Pipeline) {
		t.Fatalf("err = %v, want pipeline error", err)
	}
	if !strings.Contains(err.Error(), "401") {
		t.Errorf("err = %v, want status in message", err)
	}
	api.mu.Lock()
	defer api.mu.Unlock()
	if api.chatBody != nil {
		t.Error("refinement ran after transcription failed")
	}
}

func TestGroqRequiresKey(t *testing.T) {
	_, err := NewGroq(config.Config{BaseURL: config.DefaultBaseURL}, nil)
	if !apperr.Is(err, apperr.Pipeline) {
		t.Errorf("err = %v, want pipeline error", err)
	}
}
