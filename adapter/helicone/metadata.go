package helicone

import (
	"fmt"
	"maps"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Helicone/ai-sdk/internal/cast"
)

// Gateway header names.
const (
	headerSessionID      = "Helicone-Session-Id"
	headerSessionName    = "Helicone-Session-Name"
	headerSessionPath    = "Helicone-Session-Path"
	headerUserID         = "Helicone-User-Id"
	headerPropertyPrefix = "Helicone-Property-"
	headerTagPrefix      = "Helicone-Property-Tag-"
	headerCacheEnabled   = "Helicone-Cache-Enabled"
	headerRetryEnabled   = "Helicone-Retry-Enabled"
	headerRetryNum       = "Helicone-Retry-Num"
	headerRetryFactor    = "Helicone-Retry-Factor"
	headerRetryMin       = "Helicone-Retry-Min-Timeout"
	headerRetryMax       = "Helicone-Retry-Max-Timeout"
)

// RetryPolicy asks the gateway to retry failed upstream calls.
// Zero numeric fields are left to the gateway's defaults.
type RetryPolicy struct {
	Enabled    bool
	MaxRetries int
	Factor     float64
	MinTimeout time.Duration
	MaxTimeout time.Duration
}

// Metadata is the observability and routing channel folded into request headers.
type Metadata struct {
	SessionID   string
	SessionName string
	SessionPath string
	UserID      string
	// Properties become Helicone-Property-<key> headers; values are stringified.
	Properties map[string]any
	// Tags become Helicone-Property-Tag-<tag>: true headers.
	Tags []string
	// Cache is tri-state: nil leaves the gateway default.
	Cache *bool
	Retry *RetryPolicy
	// Fallbacks are model IDs tried in order after the primary model.
	Fallbacks []string
}

// CallOptions are per-call gateway options, passed as
// aisdk.CallOptions.ProviderOptions["helicone"].
type CallOptions struct {
	Metadata Metadata
	// PromptID switches the call to prompt-template mode: messages are not sent.
	PromptID    string
	Inputs      map[string]any
	Environment string
	// ExtraBody keys are merged into the request JSON; model, stream and messages are never overridden.
	ExtraBody map[string]any
}

// merge returns m overlaid with o: set scalars in o win, properties merge key-wise,
// non-empty tags and fallbacks replace.
func (m Metadata) merge(o Metadata) Metadata {
	out := m
	if o.SessionID != "" {
		out.SessionID = o.SessionID
	}
	if o.SessionName != "" {
		out.SessionName = o.SessionName
	}
	if o.SessionPath != "" {
		out.SessionPath = o.SessionPath
	}
	if o.UserID != "" {
		out.UserID = o.UserID
	}
	if len(o.Properties) > 0 {
		props := make(map[string]any, len(m.Properties)+len(o.Properties))
		maps.Copy(props, m.Properties)
		maps.Copy(props, o.Properties)
		out.Properties = props
	}
	if len(o.Tags) > 0 {
		out.Tags = o.Tags
	}
	if o.Cache != nil {
		out.Cache = o.Cache
	}
	if o.Retry != nil {
		out.Retry = o.Retry
	}
	if len(o.Fallbacks) > 0 {
		out.Fallbacks = o.Fallbacks
	}
	return out
}

// clone deep-copies the reference fields so a stored Metadata cannot be mutated by the caller.
func (m Metadata) clone() Metadata {
	out := m
	out.Properties = maps.Clone(m.Properties)
	if m.Tags != nil {
		out.Tags = append([]string(nil), m.Tags...)
	}
	if m.Cache != nil {
		c := *m.Cache
		out.Cache = &c
	}
	if m.Retry != nil {
		r := *m.Retry
		out.Retry = &r
	}
	if m.Fallbacks != nil {
		out.Fallbacks = append([]string(nil), m.Fallbacks...)
	}
	return out
}

// setHeader sets k to v after removing every key equal to k ignoring case.
// Property and tag keys are stored as given so the property name keeps its case.
func setHeader(h http.Header, k, v string) {
	for existing := range h {
		if strings.EqualFold(existing, k) {
			delete(h, existing)
		}
	}
	if len(k) >= len(headerPropertyPrefix) && strings.EqualFold(k[:len(headerPropertyPrefix)], headerPropertyPrefix) {
		h[k] = []string{v}
		return
	}
	h.Set(k, v)
}

// applyHeaders writes the metadata headers into h.
func (m Metadata) applyHeaders(h http.Header) {
	if m.SessionID != "" {
		h.Set(headerSessionID, m.SessionID)
	}
	if m.SessionName != "" {
		h.Set(headerSessionName, m.SessionName)
	}
	if m.SessionPath != "" {
		h.Set(headerSessionPath, m.SessionPath)
	}
	if m.UserID != "" {
		h.Set(headerUserID, m.UserID)
	}
	for k, v := range m.Properties {
		setHeader(h, headerPropertyPrefix+k, cast.ToString(v))
	}
	for _, tag := range m.Tags {
		if tag != "" {
			setHeader(h, headerTagPrefix+tag, "true")
		}
	}
	if m.Cache != nil {
		h.Set(headerCacheEnabled, strconv.FormatBool(*m.Cache))
	}
	if r := m.Retry; r != nil {
		h.Set(headerRetryEnabled, strconv.FormatBool(r.Enabled))
		if r.MaxRetries > 0 {
			h.Set(headerRetryNum, strconv.Itoa(r.MaxRetries))
		}
		if r.Factor > 0 {
			h.Set(headerRetryFactor, strconv.FormatFloat(r.Factor, 'f', -1, 64))
		}
		if r.MinTimeout > 0 {
			h.Set(headerRetryMin, strconv.FormatInt(r.MinTimeout.Milliseconds(), 10))
		}
		if r.MaxTimeout > 0 {
			h.Set(headerRetryMax, strconv.FormatInt(r.MaxTimeout.Milliseconds(), 10))
		}
	}
}

// parseCallOptions accepts CallOptions, *CallOptions or a loosely typed map
// (camelCase or snake_case keys).
func parseCallOptions(v any) (CallOptions, error) {
	switch o := v.(type) {
	case nil:
		return CallOptions{}, nil
	case CallOptions:
		return o, nil
	case *CallOptions:
		if o == nil {
			return CallOptions{}, nil
		}
		return *o, nil
	case map[string]any:
		return callOptionsFromMap(o)
	default:
		return CallOptions{}, fmt.Errorf("%w: unexpected type %T", ErrInvalidProviderOptions, v)
	}
}

func callOptionsFromMap(m map[string]any) (CallOptions, error) {
	var out CallOptions
	meta, err := MetadataFromMap(m)
	if err != nil {
		return out, err
	}
	out.Metadata = meta
	out.PromptID = stringKey(m, "promptId", "prompt_id")
	out.Environment = stringKey(m, "environment")
	if v, ok := lookup(m, "inputs"); ok {
		inputs, ok := cast.ToStringMap(v)
		if !ok {
			return out, fmt.Errorf("%w: inputs must be an object", ErrInvalidProviderOptions)
		}
		out.Inputs = inputs
	}
	if v, ok := lookup(m, "extraBody", "extra_body"); ok {
		extra, ok := cast.ToStringMap(v)
		if !ok {
			return out, fmt.Errorf("%w: extraBody must be an object", ErrInvalidProviderOptions)
		}
		out.ExtraBody = extra
	}
	return out, nil
}

// MetadataFromMap reads metadata keys from a loosely typed map such as decoded JSON or YAML.
// Retry timeouts are milliseconds.
func MetadataFromMap(m map[string]any) (Metadata, error) {
	var out Metadata
	out.SessionID = stringKey(m, "sessionId", "session_id")
	out.SessionName = stringKey(m, "sessionName", "session_name")
	out.SessionPath = stringKey(m, "sessionPath", "session_path")
	out.UserID = stringKey(m, "userId", "user_id")
	if v, ok := lookup(m, "properties"); ok {
		props, ok := cast.ToStringMap(v)
		if !ok {
			return out, fmt.Errorf("%w: properties must be an object", ErrInvalidProviderOptions)
		}
		out.Properties = props
	}
	if v, ok := lookup(m, "tags"); ok {
		tags, ok := cast.ToStringSlice(v)
		if !ok {
			return out, fmt.Errorf("%w: tags must be a list of strings", ErrInvalidProviderOptions)
		}
		out.Tags = tags
	}
	if v, ok := lookup(m, "fallbacks"); ok {
		fb, ok := cast.ToStringSlice(v)
		if !ok {
			return out, fmt.Errorf("%w: fallbacks must be a list of strings", ErrInvalidProviderOptions)
		}
		out.Fallbacks = fb
	}
	if v, ok := lookup(m, "cache"); ok {
		b, ok := cast.ToBool(v)
		if !ok {
			return out, fmt.Errorf("%w: cache must be a boolean", ErrInvalidProviderOptions)
		}
		out.Cache = &b
	}
	if v, ok := lookup(m, "retry"); ok {
		r, err := retryFromValue(v)
		if err != nil {
			return out, err
		}
		out.Retry = r
	}
	return out, nil
}

// retryFromValue accepts a bool (enable with gateway defaults) or an object.
func retryFromValue(v any) (*RetryPolicy, error) {
	if b, ok := v.(bool); ok {
		return &RetryPolicy{Enabled: b}, nil
	}
	m, ok := cast.ToStringMap(v)
	if !ok {
		return nil, fmt.Errorf("%w: retry must be a boolean or an object", ErrInvalidProviderOptions)
	}
	r := &RetryPolicy{Enabled: true}
	if v, ok := lookup(m, "enabled"); ok {
		b, ok := cast.ToBool(v)
		if !ok {
			return nil, fmt.Errorf("%w: retry.enabled must be a boolean", ErrInvalidProviderOptions)
		}
		r.Enabled = b
	}
	if v, ok := lookup(m, "num", "maxRetries", "max_retries"); ok {
		n, ok := cast.ToInt64(v)
		if !ok {
			return nil, fmt.Errorf("%w: retry.num must be a number", ErrInvalidProviderOptions)
		}
		r.MaxRetries = int(n)
	}
	if v, ok := lookup(m, "factor"); ok {
		f, ok := cast.ToFloat64(v)
		if !ok {
			return nil, fmt.Errorf("%w: retry.factor must be a number", ErrInvalidProviderOptions)
		}
		r.Factor = f
	}
	var err error
	if r.MinTimeout, err = millisKey(m, "minTimeout", "min_timeout"); err != nil {
		return nil, err
	}
	if r.MaxTimeout, err = millisKey(m, "maxTimeout", "max_timeout"); err != nil {
		return nil, err
	}
	return r, nil
}

func millisKey(m map[string]any, keys ...string) (time.Duration, error) {
	v, ok := lookup(m, keys...)
	if !ok {
		return 0, nil
	}
	ms, ok := cast.ToInt64(v)
	if !ok {
		return 0, fmt.Errorf("%w: retry.%s must be milliseconds", ErrInvalidProviderOptions, keys[0])
	}
	return time.Duration(ms) * time.Millisecond, nil
}

func lookup(m map[string]any, keys ...string) (any, bool) {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

func stringKey(m map[string]any, keys ...string) string {
	v, ok := lookup(m, keys...)
	if !ok {
		return ""
	}
	return cast.ToString(v)
}
