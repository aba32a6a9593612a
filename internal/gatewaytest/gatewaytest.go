// Package gatewaytest runs a fake chat-completions gateway for tests.
package gatewaytest

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/labstack/echo/v4"
)

// ChatCompletionsPath is the only route the fake gateway serves.
const ChatCompletionsPath = "/v1/chat/completions"

// Request is a recorded inbound request.
type Request struct {
	Method string
	Path   string
	Header http.Header
	Body   []byte
}

// Decode unmarshals the recorded body into a generic map.
func (r Request) Decode(t testing.TB) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(r.Body, &m); err != nil {
		t.Fatalf("gatewaytest: decode request body: %v", err)
	}
	return m
}

// Reply is what the fake gateway writes back.
type Reply struct {
	Status      int
	ContentType string
	Header      map[string]string
	Body        string
	// Hold keeps the response open after Body is flushed until the client goes away.
	Hold bool
}

// JSON returns a reply with v encoded as the body.
func JSON(status int, v any) Reply {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return Reply{Status: status, ContentType: echo.MIMEApplicationJSON, Body: string(b)}
}

// Text returns a reply with a plain-text body.
func Text(status int, body string) Reply {
	return Reply{Status: status, ContentType: echo.MIMETextPlain, Body: body}
}

// SSE returns an event-stream reply with one data event per frame, followed by [DONE].
func SSE(frames ...string) Reply {
	return RawSSE(EncodeEvents(append(frames, "[DONE]")...))
}

// RawSSE returns an event-stream reply with body written as is.
func RawSSE(body string) Reply {
	return Reply{Status: http.StatusOK, ContentType: "text/event-stream", Body: body}
}

// EncodeEvents renders frames as "data: <frame>\n\n" events.
func EncodeEvents(frames ...string) string {
	var b strings.Builder
	for _, f := range frames {
		b.WriteString("data: ")
		b.WriteString(f)
		b.WriteString("\n\n")
	}
	return b.String()
}

// Server is a fake gateway backed by echo and httptest.
type Server struct {
	URL string

	srv   *httptest.Server
	reply func(Request) Reply

	mu       sync.Mutex
	requests []Request
}

// New starts a gateway that answers every chat-completions request with reply(req).
// The server is closed by t.Cleanup.
func New(t testing.TB, reply func(Request) Reply) *Server {
	t.Helper()
	s := &Server{reply: reply}
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.POST(ChatCompletionsPath, s.handle)
	s.srv = httptest.NewServer(e)
	s.URL = s.srv.URL
	t.Cleanup(s.Close)
	return s
}

// Static starts a gateway that always answers with r.
func Static(t testing.TB, r Reply) *Server {
	t.Helper()
	return New(t, func(Request) Reply { return r })
}

// Client returns an HTTP client bound to the server.
func (s *Server) Client() *http.Client { return s.srv.Client() }

// Close shuts the server down and drops idle client connections.
func (s *Server) Close() {
	s.srv.Client().CloseIdleConnections()
	s.srv.Close()
}

// Requests returns the recorded requests in arrival order.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// Last returns the most recent request. It fails the test when none arrived.
func (s *Server) Last(t testing.TB) Request {
	t.Helper()
	reqs := s.Requests()
	if len(reqs) == 0 {
		t.Fatal("gatewaytest: no requests recorded")
	}
	return reqs[len(reqs)-1]
}

func (s *Server) handle(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	req := Request{
		Method: c.Request().Method,
		Path:   c.Request().URL.Path,
		Header: c.Request().Header.Clone(),
		Body:   body,
	}
	s.mu.Lock()
	s.requests = append(s.requests, req)
	s.mu.Unlock()

	r := s.reply(req)
	status := r.Status
	if status == 0 {
		status = http.StatusOK
	}
	res := c.Response()
	for k, v := range r.Header {
		res.Header().Set(k, v)
	}
	if r.ContentType != "" {
		res.Header().Set(echo.HeaderContentType, r.ContentType)
	}
	res.WriteHeader(status)
	if _, err := io.WriteString(res, r.Body); err != nil {
		return err
	}
	res.Flush()
	if r.Hold {
		<-c.Request().Context().Done()
	}
	return nil
}
