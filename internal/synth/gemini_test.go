package synth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNewGeminiBackendRequiresKey(t *testing.T) {
	if _, err := NewGeminiBackend(); !errors.Is(err, ErrNoAPIKey) {
		t.Errorf("NewGeminiBackend() error = %v, want ErrNoAPIKey", err)
	}
}

// wireRequest is the part of the generateContent body the tests inspect.
type wireRequest struct {
	Contents []struct {
		Parts []struct {
			Text string `json:"text"`
		} `json:"parts"`
	} `json:"contents"`
	GenerationConfig struct {
		ResponseModalities []string `json:"responseModalities"`
		SpeechConfig       struct {
			VoiceConfig struct {
				PrebuiltVoiceConfig struct {
					VoiceName string `json:"voiceName"`
				} `json:"prebuiltVoiceConfig"`
			} `json:"voiceConfig"`
		} `json:"speechConfig"`
	} `json:"generationConfig"`
}

func TestGeminiBackendSynthesize(t *testing.T) {
	var got wireRequest
	var path, key string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		key = r.Header.Get("x-goog-api-key")
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"inlineData":{"mimeType":"audio/L16;rate=24000","data":"AAAAAA=="}}]}}]}`))
	}))
	defer srv.Close()

	g, err := NewGeminiBackend(WithAPIKey("k"), WithBaseURL(srv.URL), WithRateLimit(0))
	if err != nil {
		t.Fatalf("NewGeminiBackend() error = %v", err)
	}
	defer g.Close()

	data, err := g.Synthesize(context.Background(), Request{
		Text:  "۞ بِسْمِ ٱللَّهِ ",
		Voice: "Kore",
		Style: "Recite: ",
	})
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}

	if string(data) != "AAAAAA==" {
		t.Errorf("Synthesize() = %q, want AAAAAA==", data)
	}
	if path != "/v1beta/models/"+DefaultModel+":generateContent" {
		t.Errorf("request path = %q", path)
	}
	if key != "k" {
		t.Errorf("api key = %q, want k", key)
	}
	if v := got.GenerationConfig.SpeechConfig.VoiceConfig.PrebuiltVoiceConfig.VoiceName; v != "Kore" {
		t.Errorf("voice = %q, want Kore", v)
	}
	if m := got.GenerationConfig.ResponseModalities; len(m) != 1 || m[0] != "AUDIO" {
		t.Errorf("modalities = %v, want [AUDIO]", m)
	}
	if len(got.Contents) == 0 || len(got.Contents[0].Parts) == 0 {
		t.Fatalf("request has no contents: %+v", got)
	}
	if text := got.Contents[0].Parts[0].Text; text != "Recite: بِسْمِ ٱللَّهِ" {
		t.Errorf("prompt = %q", text)
	}
}

func TestGeminiBackendErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{
			name:    "no audio",
			status:  http.StatusOK,
			body:    `{"candidates":[{"content":{"parts":[{"text":"sorry"}]}}]}`,
			wantErr: ErrNoAudio,
		},
		{
			name:    "no candidates",
			status:  http.StatusOK,
			body:    `{"candidates":[]}`,
			wantErr: ErrNoAudio,
		},
		{
			name:    "bad key",
			status:  http.StatusForbidden,
			body:    `{"error":{"code":403,"message":"API key not valid","status":"PERMISSION_DENIED"}}`,
			wantErr: ErrNoAPIKey,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			g, _ := NewGeminiBackend(WithAPIKey("k"), WithBaseURL(srv.URL), WithRateLimit(0))
			_, err := g.Synthesize(context.Background(), Request{Text: "text"})
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Synthesize() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestGeminiBackendRateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"code":429,"message":"quota","status":"RESOURCE_EXHAUSTED"}}`))
	}))
	defer srv.Close()

	g, _ := NewGeminiBackend(WithAPIKey("k"), WithBaseURL(srv.URL), WithRateLimit(0))
	_, err := g.Synthesize(context.Background(), Request{Text: "text"})

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("Synthesize() error = %v, want *APIError", err)
	}
	if !apiErr.IsRateLimited() || !apiErr.IsRetryable() {
		t.Errorf("APIError %+v should be rate limited and retryable", apiErr)
	}
	if !strings.Contains(apiErr.Error(), "RESOURCE_EXHAUSTED") {
		t.Errorf("Error() = %q, want status included", apiErr.Error())
	}
}

func TestGeminiBackendEmptyText(t *testing.T) {
	g, _ := NewGeminiBackend(WithAPIKey("k"), WithBaseURL("http://127.0.0.1:0"))
	if _, err := g.Synthesize(context.Background(), Request{Text: " ۞ "}); !errors.Is(err, ErrEmptyText) {
		t.Errorf("Synthesize() error = %v, want ErrEmptyText", err)
	}
}

func TestPrompt(t *testing.T) {
	tests := []struct {
		name string
		req  Request
		want string
	}{
		{"plain", Request{}, "text"},
		{"style", Request{Style: "Slowly: "}, "Slowly: text"},
		{"default speed", Request{Speed: 1, Pitch: 1}, "text"},
		{"speed", Request{Speed: 1.5}, "Recite at 1.5 times the normal pace. text"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := prompt(tt.req, "text"); got != tt.want {
				t.Errorf("prompt() = %q, want %q", got, tt.want)
			}
		})
	}
}
