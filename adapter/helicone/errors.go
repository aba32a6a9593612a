package helicone

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"
)

// maxErrorBody caps how much of a non-2xx body is read into a GatewayError.
const maxErrorBody = 64 << 10

var (
	// ErrInvalidProviderOptions is returned when CallOptions.ProviderOptions["helicone"] has an unusable shape.
	ErrInvalidProviderOptions = errors.New("helicone: invalid provider options")
	// ErrUnsupportedToolChoice is returned for tool choices the gateway cannot express.
	ErrUnsupportedToolChoice = errors.New("helicone: unsupported tool choice")
)

// ErrorData is the structured error object from a gateway error body.
type ErrorData struct {
	Message string
	Type    string
	Param   string
	Code    any // string or number, as sent
}

// GatewayError reports a failed gateway call. Non-2xx statuses, transport failures
// and bodies that cannot be decoded or translated all surface as a GatewayError.
// Cause holds the underlying error when there is one.
type GatewayError struct {
	StatusCode int
	Message    string
	Data       *ErrorData
	Response   *http.Response
	Cause      error
}

// Error implements error.
func (e *GatewayError) Error() string {
	var b strings.Builder
	b.WriteString("helicone: gateway error")
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " (status %d)", e.StatusCode)
	}
	msg := e.Message
	if msg == "" && e.Data != nil {
		msg = e.Data.Message
	}
	if msg != "" {
		b.WriteString(": ")
		b.WriteString(msg)
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

// Unwrap returns Cause.
func (e *GatewayError) Unwrap() error { return e.Cause }

// Retryable reports whether the status usually clears on retry (408, 409, 429, 5xx).
// Transport failures without a status are retryable too.
func (e *GatewayError) Retryable() bool {
	switch {
	case e.StatusCode == 0:
		return e.Cause != nil
	case e.StatusCode == http.StatusRequestTimeout,
		e.StatusCode == http.StatusConflict,
		e.StatusCode == http.StatusTooManyRequests:
		return true
	default:
		return e.StatusCode >= http.StatusInternalServerError
	}
}

var _ error = (*GatewayError)(nil)

// newStatusError drains a non-2xx response into a GatewayError. The caller closes the body.
func newStatusError(resp *http.Response) *GatewayError {
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	ge := &GatewayError{StatusCode: resp.StatusCode, Response: resp, Cause: err}
	status := resp.Status
	if status == "" {
		status = fmt.Sprintf("%d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}
	ge.Data = parseErrorData(raw, status)
	ge.Message = ge.Data.Message
	return ge
}

// parseErrorData reads {"error":{"message",...}}, {"error":"..."} or {"message":"..."};
// anything else falls back to the trimmed body text, then to status.
func parseErrorData(raw []byte, status string) *ErrorData {
	if gjson.ValidBytes(raw) {
		res := gjson.ParseBytes(raw)
		obj := res.Get("error")
		switch {
		case obj.IsObject() && obj.Get("message").Exists():
			d := &ErrorData{
				Message: obj.Get("message").String(),
				Type:    obj.Get("type").String(),
				Param:   obj.Get("param").String(),
			}
			if c := obj.Get("code"); c.Exists() && c.Type != gjson.Null {
				d.Code = c.Value()
			}
			return d
		case obj.Type == gjson.String:
			return &ErrorData{Message: obj.String()}
		case res.Get("message").Type == gjson.String:
			return &ErrorData{Message: res.Get("message").String()}
		}
	}
	text := strings.TrimSpace(string(raw))
	if text == "" {
		text = status
	}
	return &ErrorData{Message: text}
}

// IsGatewayError reports whether err wraps a *GatewayError and returns it.
func IsGatewayError(err error) (*GatewayError, bool) {
	var ge *GatewayError
	if errors.As(err, &ge) {
		return ge, true
	}
	return nil, false
}
