// Package otelaisdk traces adapter.LanguageModel calls with OpenTelemetry.
//
// Wrap returns a model that opens one client span per Generate or Stream call.
// Attributes follow the gen_ai semantic conventions. A streaming span ends when
// the sequence is drained, fails, or the consumer stops ranging over it; a stream
// that is never ranged over leaves its span open.
package otelaisdk

import (
	"context"
	"iter"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	aisdk "github.com/Helicone/ai-sdk"
	"github.com/Helicone/ai-sdk/adapter"
	"github.com/Helicone/ai-sdk/adapter/helicone"
)

const instrumentationName = "github.com/Helicone/ai-sdk/ext/otelaisdk"

// Span names.
const (
	SpanGenerate = "aisdk.generate"
	SpanStream   = "aisdk.stream"
)

// Attribute keys.
const (
	AttrSystem           = attribute.Key("gen_ai.system")
	AttrRequestModel     = attribute.Key("gen_ai.request.model")
	AttrRequestMaxTokens = attribute.Key("gen_ai.request.max_tokens")
	AttrRequestTemp      = attribute.Key("gen_ai.request.temperature")
	AttrResponseID       = attribute.Key("gen_ai.response.id")
	AttrResponseModel    = attribute.Key("gen_ai.response.model")
	AttrFinishReasons    = attribute.Key("gen_ai.response.finish_reasons")
	AttrInputTokens      = attribute.Key("gen_ai.usage.input_tokens")
	AttrOutputTokens     = attribute.Key("gen_ai.usage.output_tokens")
	AttrToolCalls        = attribute.Key("aisdk.tool_calls")
	AttrStreamAborted    = attribute.Key("aisdk.stream.aborted")
	AttrHTTPStatus       = attribute.Key("http.response.status_code")
)

type config struct {
	provider trace.TracerProvider
}

// Option configures Wrap.
type Option func(*config)

// WithTracerProvider sets the tracer provider. Default is otel.GetTracerProvider().
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *config) {
		if tp != nil {
			c.provider = tp
		}
	}
}

// Model is a tracing adapter.LanguageModel.
type Model struct {
	next   adapter.LanguageModel
	tracer trace.Tracer
}

var _ adapter.LanguageModel = (*Model)(nil)

// Wrap returns next instrumented with spans.
func Wrap(next adapter.LanguageModel, opts ...Option) *Model {
	c := config{provider: otel.GetTracerProvider()}
	for _, opt := range opts {
		opt(&c)
	}
	return &Model{next: next, tracer: c.provider.Tracer(instrumentationName)}
}

// Provider returns the wrapped model's provider.
func (m *Model) Provider() string { return m.next.Provider() }

// ModelID returns the wrapped model's ID.
func (m *Model) ModelID() string { return m.next.ModelID() }

// Generate traces one non-streaming call.
func (m *Model) Generate(ctx context.Context, call *aisdk.CallOptions) (*aisdk.GenerateResult, error) {
	ctx, span := m.start(ctx, SpanGenerate, call)
	defer span.End()

	res, err := m.next.Generate(ctx, call)
	if err != nil {
		recordError(span, err)
		return nil, err
	}
	calls := 0
	for _, p := range res.Content {
		if _, ok := p.(aisdk.ToolCallPart); ok {
			calls++
		}
	}
	span.SetAttributes(
		AttrResponseID.String(res.Response.ID),
		AttrResponseModel.String(res.Response.ModelID),
		AttrToolCalls.Int(calls),
	)
	setFinish(span, res.FinishReason, res.Usage)
	return res, nil
}

// Stream traces one streaming call. The span covers the whole iteration.
func (m *Model) Stream(ctx context.Context, call *aisdk.CallOptions) (iter.Seq2[aisdk.StreamPart, error], error) {
	ctx, span := m.start(ctx, SpanStream, call)
	seq, err := m.next.Stream(ctx, call)
	if err != nil {
		recordError(span, err)
		span.End()
		return nil, err
	}
	return func(yield func(aisdk.StreamPart, error) bool) {
		defer span.End()
		calls := 0
		for part, err := range seq {
			if err != nil {
				recordError(span, err)
				yield(nil, err)
				return
			}
			switch p := part.(type) {
			case aisdk.ToolCall:
				calls++
				span.SetAttributes(AttrToolCalls.Int(calls))
			case aisdk.Finish:
				setFinish(span, p.Reason, p.Usage)
			}
			if !yield(part, nil) {
				span.SetAttributes(AttrStreamAborted.Bool(true))
				return
			}
		}
	}, nil
}

func (m *Model) start(ctx context.Context, name string, call *aisdk.CallOptions) (context.Context, trace.Span) {
	attrs := []attribute.KeyValue{
		AttrSystem.String(m.next.Provider()),
		AttrRequestModel.String(m.next.ModelID()),
	}
	if call != nil {
		if call.MaxOutputTokens != nil {
			attrs = append(attrs, AttrRequestMaxTokens.Int64(*call.MaxOutputTokens))
		}
		if call.Temperature != nil {
			attrs = append(attrs, AttrRequestTemp.Float64(*call.Temperature))
		}
	}
	return m.tracer.Start(ctx, name, trace.WithSpanKind(trace.SpanKindClient), trace.WithAttributes(attrs...))
}

func setFinish(span trace.Span, reason aisdk.FinishReason, usage aisdk.Usage) {
	span.SetAttributes(
		AttrFinishReasons.StringSlice([]string{string(reason)}),
		AttrInputTokens.Int64(usage.InputTokens),
		AttrOutputTokens.Int64(usage.OutputTokens),
	)
}

func recordError(span trace.Span, err error) {
	if ge, ok := helicone.IsGatewayError(err); ok && ge.StatusCode != 0 {
		span.SetAttributes(AttrHTTPStatus.Int(ge.StatusCode))
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
