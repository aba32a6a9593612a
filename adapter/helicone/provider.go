package helicone

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"maps"
	"net/http"
	"strings"

	"github.com/google/uuid"

	aisdk "github.com/Helicone/ai-sdk"
	"github.com/Helicone/ai-sdk/adapter"
)

const (
	// ProviderName is the provider identifier and the ProviderOptions key read by this adapter.
	ProviderName = "helicone"
	// DefaultBaseURL is the public gateway endpoint.
	DefaultBaseURL = "https://ai-gateway.helicone.ai"
)

// Doer sends HTTP requests. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

type settings struct {
	baseURL     string
	apiKey      string
	headers     map[string]string
	metadata    Metadata
	modelParams adapter.ModelParams
	client      Doer
	logger      *slog.Logger
	newID       func() string
}

func (s *settings) log() *slog.Logger {
	if s.logger != nil {
		return s.logger
	}
	return slog.Default()
}

// Option configures a Provider.
type Option func(*settings)

// WithBaseURL sets the gateway base URL. A trailing slash is trimmed.
func WithBaseURL(u string) Option {
	return func(s *settings) {
		if u != "" {
			s.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithAPIKey sets the key sent as "Authorization: Bearer <key>".
func WithAPIKey(key string) Option {
	return func(s *settings) { s.apiKey = key }
}

// WithHeaders adds static headers sent on every request. Later calls add to earlier ones.
func WithHeaders(h map[string]string) Option {
	return func(s *settings) {
		if s.headers == nil {
			s.headers = make(map[string]string, len(h))
		}
		maps.Copy(s.headers, h)
	}
}

// WithMetadata sets default metadata; per-call metadata is merged over it.
func WithMetadata(m Metadata) Option {
	return func(s *settings) { s.metadata = m.clone() }
}

// WithModelParams sets default sampling parameters for calls that leave them unset.
func WithModelParams(p adapter.ModelParams) Option {
	return func(s *settings) { s.modelParams = p }
}

// WithModelConfig is WithModelParams for a loosely typed map (temperature, max_tokens, ...).
func WithModelConfig(cfg map[string]any) Option {
	return WithModelParams(adapter.ExtractModelConfig(cfg))
}

// WithHTTPClient sets the HTTP client. Default is http.DefaultClient.
func WithHTTPClient(c Doer) Option {
	return func(s *settings) {
		if c != nil {
			s.client = c
		}
	}
}

// WithLogger sets the logger. Default is slog.Default() at call time.
func WithLogger(l *slog.Logger) Option {
	return func(s *settings) { s.logger = l }
}

// WithIDGenerator sets the generator for stream text IDs and missing tool-call IDs.
// Default is uuid.NewString.
func WithIDGenerator(f func() string) Option {
	return func(s *settings) {
		if f != nil {
			s.newID = f
		}
	}
}

// Provider creates gateway-backed language models. Its configuration is fixed at New
// and shared read-only by every model it creates.
type Provider struct {
	cfg *settings
}

// New returns a Provider configured by opts.
func New(opts ...Option) *Provider {
	s := &settings{
		baseURL: DefaultBaseURL,
		client:  http.DefaultClient,
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return &Provider{cfg: s}
}

// LanguageModel returns the model modelID routed through the gateway.
func (p *Provider) LanguageModel(modelID string) *ChatModel {
	return &ChatModel{modelID: modelID, cfg: p.cfg}
}

// ChatModel is a gateway chat-completions model. It is safe for concurrent use.
type ChatModel struct {
	modelID string
	cfg     *settings
}

var _ adapter.LanguageModel = (*ChatModel)(nil)

// Provider implements adapter.LanguageModel.
func (m *ChatModel) Provider() string { return ProviderName }

// ModelID implements adapter.LanguageModel.
func (m *ChatModel) ModelID() string { return m.modelID }

// Generate performs one non-streaming chat completion.
func (m *ChatModel) Generate(ctx context.Context, call *aisdk.CallOptions) (*aisdk.GenerateResult, error) {
	req, err := m.newRequest(ctx, call, false)
	if err != nil {
		return nil, err
	}
	resp, err := m.send(ctx, req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	var body chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &GatewayError{
			StatusCode: resp.StatusCode,
			Message:    "decode response body",
			Response:   resp,
			Cause:      fmt.Errorf("%w: %w", adapter.ErrInvalidResponse, err),
		}
	}
	result, err := translateResponse(&body)
	if err != nil {
		return nil, &GatewayError{
			StatusCode: resp.StatusCode,
			Message:    "translate response",
			Response:   resp,
			Cause:      err,
		}
	}
	result.Response.Headers = resp.Header.Clone()
	return result, nil
}

// Stream opens a streaming chat completion. Request and status failures are returned
// directly; the sequence yields parts until exactly one aisdk.Finish, or stops at the
// first read error. The sequence can be ranged over once; breaking early closes the body.
// A sequence that is never ranged over leaves the response body open, so callers that
// drop it must cancel ctx to release the connection.
func (m *ChatModel) Stream(ctx context.Context, call *aisdk.CallOptions) (iter.Seq2[aisdk.StreamPart, error], error) {
	req, err := m.newRequest(ctx, call, true)
	if err != nil {
		return nil, err
	}
	resp, err := m.send(ctx, req)
	if err != nil {
		return nil, err
	}
	return m.streamParts(ctx, resp), nil
}

func (m *ChatModel) streamParts(ctx context.Context, resp *http.Response) iter.Seq2[aisdk.StreamPart, error] {
	return func(yield func(aisdk.StreamPart, error) bool) {
		defer func() { _ = resp.Body.Close() }()
		state := newStreamState(m.cfg.log(), m.cfg.newID)
		events := newEventReader(resp.Body)
		for {
			data, err := events.next()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					yield(nil, ctxErr)
					return
				}
				yield(nil, &GatewayError{
					StatusCode: resp.StatusCode,
					Message:    "read stream",
					Response:   resp,
					Cause:      err,
				})
				return
			}
			if strings.TrimSpace(data) == doneSentinel {
				break
			}
			for _, part := range state.process(data) {
				if !yield(part, nil) {
					return
				}
			}
		}
		for _, part := range state.flush() {
			if !yield(part, nil) {
				return
			}
		}
	}
}

// send issues req and returns the response for 2xx statuses.
func (m *ChatModel) send(ctx context.Context, req *http.Request) (*http.Response, error) {
	resp, err := m.cfg.client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &GatewayError{Message: "request failed", Cause: err}
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		defer func() { _ = resp.Body.Close() }()
		return nil, newStatusError(resp)
	}
	return resp, nil
}
