package promaisdk

import (
	"context"
	"iter"
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	aisdk "github.com/Helicone/ai-sdk"
	"github.com/Helicone/ai-sdk/adapter/helicone"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeModel struct {
	result    *aisdk.GenerateResult
	parts     []aisdk.StreamPart
	err       error
	streamErr error
}

func (f *fakeModel) Provider() string { return "helicone" }
func (f *fakeModel) ModelID() string  { return "gpt-4o-mini" }

func (f *fakeModel) Generate(context.Context, *aisdk.CallOptions) (*aisdk.GenerateResult, error) {
	return f.result, f.err
}

func (f *fakeModel) Stream(context.Context, *aisdk.CallOptions) (iter.Seq2[aisdk.StreamPart, error], error) {
	if f.err != nil {
		return nil, f.err
	}
	return func(yield func(aisdk.StreamPart, error) bool) {
		for _, p := range f.parts {
			if !yield(p, nil) {
				return
			}
		}
		if f.streamErr != nil {
			yield(nil, f.streamErr)
		}
	}, nil
}

func newMetrics(t *testing.T) *Metrics {
	t.Helper()
	m, err := NewMetrics(prometheus.NewRegistry())
	require.NoError(t, err)
	return m
}

func TestGenerate_Success(t *testing.T) {
	t.Parallel()
	metrics := newMetrics(t)
	w := metrics.Wrap(&fakeModel{result: &aisdk.GenerateResult{
		FinishReason: aisdk.FinishReasonStop,
		Usage:        aisdk.Usage{InputTokens: 5, OutputTokens: 2, TotalTokens: 7, CachedInputTokens: 3},
	}})
	_, err := w.Generate(context.Background(), &aisdk.CallOptions{})
	require.NoError(t, err)

	assert.InDelta(t, 1.0, testutil.ToFloat64(metrics.requests.WithLabelValues("helicone", "gpt-4o-mini", ModeGenerate, StatusSuccess)), 1e-9)
	assert.InDelta(t, 5.0, testutil.ToFloat64(metrics.tokens.WithLabelValues("helicone", "gpt-4o-mini", "input")), 1e-9)
	assert.InDelta(t, 2.0, testutil.ToFloat64(metrics.tokens.WithLabelValues("helicone", "gpt-4o-mini", "output")), 1e-9)
	assert.InDelta(t, 3.0, testutil.ToFloat64(metrics.tokens.WithLabelValues("helicone", "gpt-4o-mini", "cached")), 1e-9)
	assert.InDelta(t, 1.0, testutil.ToFloat64(metrics.finishes.WithLabelValues("helicone", "gpt-4o-mini", "stop")), 1e-9)
	assert.Equal(t, 1, testutil.CollectAndCount(metrics.latency))
}

func TestGenerate_GatewayError(t *testing.T) {
	t.Parallel()
	metrics := newMetrics(t)
	w := metrics.Wrap(&fakeModel{err: &helicone.GatewayError{StatusCode: http.StatusBadGateway}})
	_, err := w.Generate(context.Background(), &aisdk.CallOptions{})
	require.Error(t, err)

	assert.InDelta(t, 1.0, testutil.ToFloat64(metrics.requests.WithLabelValues("helicone", "gpt-4o-mini", ModeGenerate, StatusError)), 1e-9)
	assert.InDelta(t, 1.0, testutil.ToFloat64(metrics.gatewayErr.WithLabelValues("helicone", "gpt-4o-mini", "502")), 1e-9)
	assert.Equal(t, 0, testutil.CollectAndCount(metrics.tokens))
}

func TestStream_RecordsOnFinish(t *testing.T) {
	t.Parallel()
	metrics := newMetrics(t)
	w := metrics.Wrap(&fakeModel{parts: []aisdk.StreamPart{
		aisdk.TextDelta{ID: "t", Delta: "hi"},
		aisdk.Finish{Reason: aisdk.FinishReasonLength, Usage: aisdk.Usage{InputTokens: 4, OutputTokens: 9, ReasoningTokens: 2}},
	}})
	seq, err := w.Stream(context.Background(), &aisdk.CallOptions{})
	require.NoError(t, err)
	assert.Equal(t, 0, testutil.CollectAndCount(metrics.requests))

	for _, err := range seq {
		require.NoError(t, err)
	}
	assert.InDelta(t, 1.0, testutil.ToFloat64(metrics.requests.WithLabelValues("helicone", "gpt-4o-mini", ModeStream, StatusSuccess)), 1e-9)
	assert.InDelta(t, 2.0, testutil.ToFloat64(metrics.tokens.WithLabelValues("helicone", "gpt-4o-mini", "reasoning")), 1e-9)
	assert.InDelta(t, 1.0, testutil.ToFloat64(metrics.finishes.WithLabelValues("helicone", "gpt-4o-mini", "length")), 1e-9)
	assert.Equal(t, 1, testutil.CollectAndCount(metrics.latency))
}

func TestStream_CanceledMidStream(t *testing.T) {
	t.Parallel()
	metrics := newMetrics(t)
	w := metrics.Wrap(&fakeModel{
		parts:     []aisdk.StreamPart{aisdk.TextDelta{ID: "t", Delta: "a"}},
		streamErr: context.Canceled,
	})
	seq, err := w.Stream(context.Background(), &aisdk.CallOptions{})
	require.NoError(t, err)
	var last error
	for _, err := range seq {
		last = err
	}
	assert.Equal(t, context.Canceled, last)
	assert.InDelta(t, 1.0, testutil.ToFloat64(metrics.requests.WithLabelValues("helicone", "gpt-4o-mini", ModeStream, StatusCanceled)), 1e-9)
}

func TestStream_OpenError(t *testing.T) {
	t.Parallel()
	metrics := newMetrics(t)
	_, err := metrics.Wrap(&fakeModel{err: context.DeadlineExceeded}).Stream(context.Background(), &aisdk.CallOptions{})
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.InDelta(t, 1.0, testutil.ToFloat64(metrics.requests.WithLabelValues("helicone", "gpt-4o-mini", ModeStream, StatusCanceled)), 1e-9)
}

func TestLatency_UsesClock(t *testing.T) {
	t.Parallel()
	reg := prometheus.NewRegistry()
	metrics, err := NewMetrics(reg)
	require.NoError(t, err)
	w := metrics.Wrap(&fakeModel{result: &aisdk.GenerateResult{FinishReason: aisdk.FinishReasonStop}})
	base := time.Unix(0, 0)
	calls := 0
	w.now = func() time.Time {
		calls++
		return base.Add(time.Duration(calls-1) * 2 * time.Second)
	}
	_, err = w.Generate(context.Background(), &aisdk.CallOptions{})
	require.NoError(t, err)

	families, err := reg.Gather()
	require.NoError(t, err)
	var sum float64
	for _, mf := range families {
		if mf.GetName() == "aisdk_request_latency_seconds" {
			sum = mf.GetMetric()[0].GetHistogram().GetSampleSum()
		}
	}
	assert.InDelta(t, 2.0, sum, 1e-9)
}

func TestNewMetrics_DuplicateRegistration(t *testing.T) {
	t.Parallel()
	reg := prometheus.NewRegistry()
	_, err := NewMetrics(reg)
	require.NoError(t, err)
	_, err = NewMetrics(reg)
	require.Error(t, err)
}
