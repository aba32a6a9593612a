// Package promaisdk records Prometheus metrics for adapter.LanguageModel calls.
package promaisdk

import (
	"context"
	"errors"
	"iter"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	aisdk "github.com/Helicone/ai-sdk"
	"github.com/Helicone/ai-sdk/adapter"
	"github.com/Helicone/ai-sdk/adapter/helicone"
)

// Request outcome label values.
const (
	StatusSuccess  = "success"
	StatusError    = "error"
	StatusCanceled = "canceled"
)

// Call mode label values.
const (
	ModeGenerate = "generate"
	ModeStream   = "stream"
)

// Metrics holds the collectors shared by every wrapped model.
type Metrics struct {
	requests   *prometheus.CounterVec
	tokens     *prometheus.CounterVec
	latency    *prometheus.HistogramVec
	finishes   *prometheus.CounterVec
	gatewayErr *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg.
// A nil reg uses prometheus.DefaultRegisterer.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "aisdk_requests_total",
			Help: "Language model calls by outcome.",
		}, []string{"provider", "model", "mode", "status"}),
		tokens: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "aisdk_token_usage_total",
			Help: "Tokens reported by the gateway.",
		}, []string{"provider", "model", "direction"}), // direction: input, output, cached, reasoning
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "aisdk_request_latency_seconds",
			Help:    "Call latency in seconds; streams are measured until the last part.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"provider", "model", "mode"}),
		finishes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "aisdk_finish_reasons_total",
			Help: "Completed calls by finish reason.",
		}, []string{"provider", "model", "reason"}),
		gatewayErr: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "aisdk_gateway_errors_total",
			Help: "Gateway errors by HTTP status code.",
		}, []string{"provider", "model", "code"}),
	}
	for _, c := range []prometheus.Collector{m.requests, m.tokens, m.latency, m.finishes, m.gatewayErr} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Model is an instrumented adapter.LanguageModel.
type Model struct {
	next    adapter.LanguageModel
	metrics *Metrics
	now     func() time.Time
}

var _ adapter.LanguageModel = (*Model)(nil)

// Wrap returns next recording into m.
func (m *Metrics) Wrap(next adapter.LanguageModel) *Model {
	return &Model{next: next, metrics: m, now: time.Now}
}

// Provider returns the wrapped model's provider.
func (w *Model) Provider() string { return w.next.Provider() }

// ModelID returns the wrapped model's ID.
func (w *Model) ModelID() string { return w.next.ModelID() }

// Generate records one non-streaming call.
func (w *Model) Generate(ctx context.Context, call *aisdk.CallOptions) (*aisdk.GenerateResult, error) {
	start := w.now()
	res, err := w.next.Generate(ctx, call)
	w.observeLatency(ModeGenerate, start)
	if err != nil {
		w.recordError(ModeGenerate, err)
		return nil, err
	}
	w.recordSuccess(ModeGenerate, res.FinishReason, res.Usage)
	return res, nil
}

// Stream records one streaming call once the sequence ends.
func (w *Model) Stream(ctx context.Context, call *aisdk.CallOptions) (iter.Seq2[aisdk.StreamPart, error], error) {
	start := w.now()
	seq, err := w.next.Stream(ctx, call)
	if err != nil {
		w.observeLatency(ModeStream, start)
		w.recordError(ModeStream, err)
		return nil, err
	}
	return func(yield func(aisdk.StreamPart, error) bool) {
		defer w.observeLatency(ModeStream, start)
		for part, err := range seq {
			if err != nil {
				w.recordError(ModeStream, err)
				yield(nil, err)
				return
			}
			if f, ok := part.(aisdk.Finish); ok {
				w.recordSuccess(ModeStream, f.Reason, f.Usage)
			}
			if !yield(part, nil) {
				return
			}
		}
	}, nil
}

func (w *Model) observeLatency(mode string, start time.Time) {
	w.metrics.latency.WithLabelValues(w.next.Provider(), w.next.ModelID(), mode).
		Observe(w.now().Sub(start).Seconds())
}

func (w *Model) recordSuccess(mode string, reason aisdk.FinishReason, u aisdk.Usage) {
	provider, model := w.next.Provider(), w.next.ModelID()
	w.metrics.requests.WithLabelValues(provider, model, mode, StatusSuccess).Inc()
	w.metrics.finishes.WithLabelValues(provider, model, string(reason)).Inc()
	for direction, n := range map[string]int64{
		"input":     u.InputTokens,
		"output":    u.OutputTokens,
		"cached":    u.CachedInputTokens,
		"reasoning": u.ReasoningTokens,
	} {
		if n > 0 {
			w.metrics.tokens.WithLabelValues(provider, model, direction).Add(float64(n))
		}
	}
}

func (w *Model) recordError(mode string, err error) {
	provider, model := w.next.Provider(), w.next.ModelID()
	status := StatusError
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		status = StatusCanceled
	}
	w.metrics.requests.WithLabelValues(provider, model, mode, status).Inc()
	if ge, ok := helicone.IsGatewayError(err); ok && ge.StatusCode != 0 {
		w.metrics.gatewayErr.WithLabelValues(provider, model, strconv.Itoa(ge.StatusCode)).Inc()
	}
}
