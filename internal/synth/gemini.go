package synth

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

const (
	// DefaultModel is the speech model used when none is configured.
	DefaultModel = "gemini-2.5-flash-preview-tts"

	// DefaultBaseURL is the public Gemini endpoint.
	DefaultBaseURL = "https://generativelanguage.googleapis.com"

	// DefaultVoice is used when a request names no voice.
	DefaultVoice = "Zephyr"
)

// Config holds Gemini backend configuration.
// Use functional options (WithXxx) to set these values.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string

	Timeout time.Duration

	// RequestsPerMinute caps outgoing calls; 0 disables the limit.
	RequestsPerMinute int

	Logger *log.Logger
}

// Option is a functional option for configuring the Gemini backend.
type Option func(*Config)

// WithAPIKey sets the API key.
func WithAPIKey(key string) Option {
	return func(c *Config) {
		c.APIKey = key
	}
}

// WithBaseURL overrides the default API base URL.
func WithBaseURL(u string) Option {
	return func(c *Config) {
		c.BaseURL = u
	}
}

// WithModel sets the speech model.
func WithModel(model string) Option {
	return func(c *Config) {
		c.Model = model
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		c.Timeout = timeout
	}
}

// WithRateLimit caps the request rate.
func WithRateLimit(requestsPerMinute int) Option {
	return func(c *Config) {
		c.RequestsPerMinute = requestsPerMinute
	}
}

// WithLogger sets the logger.
func WithLogger(logger *log.Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// DefaultConfig returns the default Gemini configuration.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:           DefaultBaseURL,
		Model:             DefaultModel,
		Timeout:           60 * time.Second,
		RequestsPerMinute: 10,
		Logger:            log.WithPrefix("synth"),
	}
}

// GeminiBackend synthesizes speech with the Gemini generateContent API.
type GeminiBackend struct {
	config  *Config
	http    *http.Client
	client  *genai.Client
	limiter *rate.Limiter
	logger  *log.Logger
}

// NewGeminiBackend creates a Gemini backend. A missing API key is reported
// here rather than on the first request.
func NewGeminiBackend(opts ...Option) (*GeminiBackend, error) {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.APIKey == "" {
		return nil, ErrNoAPIKey
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RequestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RequestsPerMinute)), 1)
	}

	httpClient := &http.Client{}
	timeout := cfg.Timeout
	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: httpClient,
		HTTPOptions: genai.HTTPOptions{
			BaseURL: cfg.BaseURL,
			Timeout: &timeout,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	return &GeminiBackend{
		config:  cfg,
		http:    httpClient,
		client:  client,
		limiter: limiter,
		logger:  cfg.Logger,
	}, nil
}

// Synthesize implements Backend.
func (g *GeminiBackend) Synthesize(ctx context.Context, req Request) ([]byte, error) {
	text := CleanText(req.Text)
	if text == "" {
		return nil, ErrEmptyText
	}

	if err := g.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait cancelled: %w", err)
	}

	voice := req.Voice
	if voice == "" {
		voice = DefaultVoice
	}

	start := time.Now()
	resp, err := g.client.Models.GenerateContent(ctx, g.config.Model, genai.Text(prompt(req, text)), &genai.GenerateContentConfig{
		ResponseModalities: []string{"AUDIO"},
		SpeechConfig: &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: voice},
			},
		},
	})
	if err != nil {
		return nil, apiError(err)
	}

	pcm := inlineAudio(resp)
	if len(pcm) == 0 {
		return nil, ErrNoAudio
	}

	g.logger.Debug("synthesized", "voice", voice, "chars", len(text), "latency", time.Since(start))

	out := make([]byte, base64.StdEncoding.EncodedLen(len(pcm)))
	base64.StdEncoding.Encode(out, pcm)
	return out, nil
}

// Close releases idle connections.
func (g *GeminiBackend) Close() error {
	g.http.CloseIdleConnections()
	return nil
}

// prompt prefixes the style directive and any prosody hints to text. The
// model has no numeric pitch or rate controls, so they are spoken as
// instructions.
func prompt(req Request, text string) string {
	var b strings.Builder
	b.WriteString(req.Style)

	if req.Speed != 0 && req.Speed != 1 {
		fmt.Fprintf(&b, "Recite at %.2g times the normal pace. ", req.Speed)
	}
	if req.Pitch != 0 && req.Pitch != 1 {
		fmt.Fprintf(&b, "Use a voice pitched %.2g times the natural pitch. ", req.Pitch)
	}

	b.WriteString(text)
	return b.String()
}

// apiError converts SDK errors into *APIError.
func apiError(err error) error {
	var gerr genai.APIError
	if !errors.As(err, &gerr) {
		return fmt.Errorf("synth request failed: %w", err)
	}
	return &APIError{StatusCode: gerr.Code, Message: gerr.Message, Status: gerr.Status}
}

// inlineAudio returns the raw PCM of the first candidate's first part.
func inlineAudio(resp *genai.GenerateContentResponse) []byte {
	if resp == nil || len(resp.Candidates) == 0 {
		return nil
	}
	c := resp.Candidates[0].Content
	if c == nil || len(c.Parts) == 0 || c.Parts[0].InlineData == nil {
		return nil
	}
	return c.Parts[0].InlineData.Data
}
