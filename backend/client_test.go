package backend_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fwojciec/concierge"
	"github.com/fwojciec/concierge/backend"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder captures handler callbacks in delivery order.
type recorder struct {
	calls        []string
	tokens       []string
	statuses     []string
	artifacts    [][]concierge.RawBlock
	results      []concierge.Result
	errs         []error
	reconnecting [][2]int
}

func (r *recorder) handler() concierge.Handler {
	return concierge.Handler{
		OnToken: func(text string) {
			r.calls = append(r.calls, "token")
			r.tokens = append(r.tokens, text)
		},
		OnStatus: func(text string) {
			r.calls = append(r.calls, "status")
			r.statuses = append(r.statuses, text)
		},
		OnClear: func() { r.calls = append(r.calls, "clear") },
		OnArtifact: func(blocks []concierge.RawBlock) {
			r.calls = append(r.calls, "artifact")
			r.artifacts = append(r.artifacts, blocks)
		},
		OnError: func(err error) {
			r.calls = append(r.calls, "error")
			r.errs = append(r.errs, err)
		},
		OnComplete: func(res concierge.Result) {
			r.calls = append(r.calls, "complete")
			r.results = append(r.results, res)
		},
		OnReconnecting: func(attempt, maxAttempts int) {
			r.calls = append(r.calls, "reconnecting")
			r.reconnecting = append(r.reconnecting, [2]int{attempt, maxAttempts})
		},
		OnReconnected: func() { r.calls = append(r.calls, "reconnected") },
	}
}

// frames returns a handler that writes each payload as one frame.
func frames(payloads ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		flusher, _ := w.(http.Flusher)
		for _, p := range payloads {
			fmt.Fprintf(w, "data: %s\n\n", p)
			if flusher != nil {
				flusher.Flush()
			}
		}
	}
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func streamResponse(body string) *http.Response {
	return &http.Response{
		StatusCode: http.StatusOK,
		Header:     http.Header{"Content-Type": {"text/event-stream"}},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

// noSleep records backoff delays without waiting.
func noSleep(delays *[]time.Duration) backend.Option {
	return backend.WithSleep(func(_ context.Context, d time.Duration) error {
		*delays = append(*delays, d)
		return nil
	})
}

func streamFrom(t *testing.T, h http.Handler, opts ...backend.Option) *recorder {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	var delays []time.Duration
	client := backend.New(append([]backend.Option{backend.WithBaseURL(srv.URL), noSleep(&delays)}, opts...)...)
	rec := &recorder{}
	client.StreamChat(context.Background(), concierge.ChatRequest{Message: "hi"}, rec.handler())
	return rec
}

func TestClient_RequestFormat(t *testing.T) {
	t.Parallel()

	var captured []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured, _ = io.ReadAll(r.Body)

		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/chat/stream", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "text/event-stream", r.Header.Get("Accept"))
		assert.Equal(t, "Bearer tok-123", r.Header.Get("Authorization"))

		frames(`{"done":true}`)(w, r)
	}))
	defer srv.Close()

	client := backend.New(backend.WithBaseURL(srv.URL+"/"), backend.WithToken("tok-123"))
	rec := &recorder{}
	client.StreamChat(context.Background(), concierge.ChatRequest{
		Message:   "Find hotels in Lisbon",
		SessionID: "sess-1",
	}, rec.handler())

	var body map[string]any
	require.NoError(t, json.Unmarshal(captured, &body))
	assert.Equal(t, "Find hotels in Lisbon", body["message"])
	assert.Equal(t, "sess-1", body["session_id"])
	assert.Equal(t, []string{"complete"}, rec.calls)
}

func TestClient_OmitsEmptySessionAndToken(t *testing.T) {
	t.Parallel()

	var captured []byte
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured, _ = io.ReadAll(r.Body)
		auth = r.Header.Get("Authorization")
		frames(`{"done":true}`)(w, r)
	}))
	defer srv.Close()

	backend.New(backend.WithBaseURL(srv.URL)).
		StreamChat(context.Background(), concierge.ChatRequest{Message: "hi"}, concierge.Handler{})

	assert.JSONEq(t, `{"message":"hi"}`, string(captured))
	assert.Empty(t, auth)
}

func TestClient_TokensThenDone(t *testing.T) {
	t.Parallel()

	rec := streamFrom(t, frames(
		`{"token":"Hello"}`,
		`{"token":" world"}`,
		`{"done":true,"status":"completed"}`,
	))

	assert.Equal(t, []string{"token", "token", "complete"}, rec.calls)
	assert.Equal(t, []string{"Hello", " world"}, rec.tokens)
	require.Len(t, rec.results, 1)
	assert.Equal(t, "completed", rec.results[0].Status)
	assert.JSONEq(t, `"completed"`, string(rec.results[0].Fields["status"]))
	assert.Empty(t, rec.errs)
}

func TestClient_ClearBeforeComplete(t *testing.T) {
	t.Parallel()

	rec := streamFrom(t, frames(`{"clear":true}`, `{"done":true}`))

	assert.Equal(t, []string{"clear", "complete"}, rec.calls)
}

func TestClient_StatusAndArtifacts(t *testing.T) {
	t.Parallel()

	rec := streamFrom(t, frames(
		`{"status":"Searching hotels..."}`,
		`{"ui_blocks":[{"block_type":"hotel_cards","payload":[{"name":"Casa"}]}]}`,
		`{"token":"Found one."}`,
		`{"done":true}`,
	))

	assert.Equal(t, []string{"status", "artifact", "token", "complete"}, rec.calls)
	assert.Equal(t, []string{"Searching hotels..."}, rec.statuses)
	require.Len(t, rec.artifacts, 1)
	assert.Equal(t, "hotel_cards", rec.artifacts[0][0].BlockType)
	assert.JSONEq(t, `[{"name":"Casa"}]`, string(rec.artifacts[0][0].Payload))
}

func TestClient_DonePayload(t *testing.T) {
	t.Parallel()

	rec := streamFrom(t, frames(
		`{"done":true,"user_id":42,"next_suggestions":["Cheaper?","Near the beach?"],`+
			`"itinerary":{"days":[{"day":1}]},"create_new_message":true,`+
			`"ui_blocks":[{"type":"flights","data":[]}],"trace":"abc"}`,
	))

	require.Len(t, rec.results, 1)
	res := rec.results[0]
	assert.Equal(t, "42", res.UserID)
	assert.Equal(t, []string{"Cheaper?", "Near the beach?"}, res.NextSuggestions)
	assert.JSONEq(t, `{"days":[{"day":1}]}`, string(res.Itinerary))
	assert.True(t, res.CreateNewMessage)
	require.Len(t, res.UIBlocks, 1)
	assert.Equal(t, "flights", res.UIBlocks[0].Type)

	var trace string
	assert.True(t, res.Field("trace", &trace))
	assert.Equal(t, "abc", trace)
	assert.False(t, res.Field("missing", &trace))
	assert.Empty(t, rec.artifacts, "done-frame blocks are not artifacts")
}

func TestClient_InBandError(t *testing.T) {
	t.Parallel()

	rec := streamFrom(t, frames(
		`{"token":"Let me"}`,
		`{"error":"model overloaded"}`,
		`{"token":"ignored"}`,
		`{"done":true}`,
	))

	assert.Equal(t, []string{"token", "error"}, rec.calls)
	require.Len(t, rec.errs, 1)
	assert.EqualError(t, rec.errs[0], "model overloaded")
	var se *concierge.ServerError
	assert.ErrorAs(t, rec.errs[0], &se)
}

func TestClient_ErrorObject(t *testing.T) {
	t.Parallel()

	rec := streamFrom(t, frames(`{"error":{"code":"quota","message":"quota exceeded"}}`))

	require.Len(t, rec.errs, 1)
	assert.EqualError(t, rec.errs[0], "quota exceeded")
}

func TestClient_DiscardsFramesAfterDone(t *testing.T) {
	t.Parallel()

	rec := streamFrom(t, frames(`{"done":true}`, `{"token":"late"}`, `{"error":"late"}`))

	assert.Equal(t, []string{"complete"}, rec.calls)
}

func TestClient_SkipsMalformedAndUnmarkedLines(t *testing.T) {
	t.Parallel()

	rec := streamFrom(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, ": keep-alive\r\n"+
			"event: message\n"+
			"data: {\"token\":\"A\"}\r\n"+
			"data: {not json\n"+
			"data: {}\n"+
			"data: {\"token\":7}\n"+
			"data:{\"token\":\"B\"}\n"+
			"data: \n"+
			"data: {\"error\":null,\"token\":\"C\"}\n"+
			"data: {\"done\":true}\n")
	}))

	assert.Equal(t, []string{"A", "B", "C"}, rec.tokens)
	assert.Equal(t, []string{"token", "token", "token", "complete"}, rec.calls)
}

func TestClient_SkipsOversizedFrame(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	huge := `{"status":"` + strings.Repeat("x", 5<<20) + `"}`
	rec := streamFrom(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, "data: {\"token\":\"Hi\"}\n\n"+
			"data: "+huge+"\n\n"+
			"data: {\"token\":\" there\"}\n\n"+
			"data: {\"done\":true}\n\n")
	}))

	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, []string{"Hi", " there"}, rec.tokens)
	assert.Equal(t, []string{"token", "token", "complete"}, rec.calls)
	assert.Empty(t, rec.errs)
}

func TestClient_ClientErrorNotRetried(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	rec := streamFrom(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"detail":"message too long"}`)
	}))

	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, []string{"error"}, rec.calls)
	require.Len(t, rec.errs, 1)
	assert.EqualError(t, rec.errs[0], "Request failed: 400")

	var se *backend.StatusError
	require.ErrorAs(t, rec.errs[0], &se)
	assert.Contains(t, se.Body, "message too long")
}

func TestClient_ServerErrorRetried(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	rec := streamFrom(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))

	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, []string{"reconnecting", "reconnecting", "error"}, rec.calls)
	assert.EqualError(t, rec.errs[0], "Request failed: 503")
}

func TestClient_TransportErrorRetryBound(t *testing.T) {
	t.Parallel()

	var calls int
	hc := &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
		calls++
		return nil, fmt.Errorf("connection refused (attempt %d)", calls)
	})}

	var delays []time.Duration
	rec := &recorder{}
	backend.New(backend.WithHTTPClient(hc), noSleep(&delays)).
		StreamChat(context.Background(), concierge.ChatRequest{Message: "hi"}, rec.handler())

	assert.Equal(t, 3, calls)
	assert.Equal(t, [][2]int{{1, 3}, {2, 3}}, rec.reconnecting)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, delays)
	assert.Equal(t, []string{"reconnecting", "reconnecting", "error"}, rec.calls)
	require.Len(t, rec.errs, 1)
	assert.ErrorContains(t, rec.errs[0], "connection refused (attempt 3)")
}

func TestClient_ReconnectsAfterTransportError(t *testing.T) {
	t.Parallel()

	var calls int
	hc := &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
		calls++
		if calls == 1 {
			return nil, errors.New("network is unreachable")
		}
		return streamResponse("data: {\"token\":\"Hi\"}\n\ndata: {\"done\":true}\n\n"), nil
	})}

	var delays []time.Duration
	rec := &recorder{}
	backend.New(backend.WithHTTPClient(hc), noSleep(&delays)).
		StreamChat(context.Background(), concierge.ChatRequest{Message: "hi"}, rec.handler())

	assert.Equal(t, 2, calls)
	assert.Equal(t, [][2]int{{1, 3}}, rec.reconnecting)
	assert.Equal(t, []string{"reconnecting", "reconnected", "token", "complete"}, rec.calls)
	assert.Empty(t, rec.errs)
}

func TestClient_AbruptEndClearsPartialAnswer(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	rec := streamFrom(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			frames(`{"token":"partial"}`)(w, r)
			return
		}
		frames(`{"token":"full answer"}`, `{"done":true}`)(w, r)
	}))

	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, []string{"token", "clear", "reconnecting", "reconnected", "token", "complete"}, rec.calls)
	assert.Equal(t, []string{"partial", "full answer"}, rec.tokens)
}

func TestClient_AbruptEndExhausted(t *testing.T) {
	t.Parallel()

	rec := streamFrom(t, frames(`{"status":"Thinking..."}`))

	require.Len(t, rec.errs, 1)
	assert.ErrorIs(t, rec.errs[0], concierge.ErrUnexpectedEnd)
	assert.NotContains(t, rec.calls, "clear", "no tokens were delivered")
}

func TestClient_CustomRetry(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	rec := streamFrom(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}), backend.WithRetry(backend.RetryConfig{MaxAttempts: 1}))

	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, []string{"error"}, rec.calls)
}

func TestClient_ContextCanceled(t *testing.T) {
	t.Parallel()

	var calls int
	hc := &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
		calls++
		return nil, r.Context().Err()
	})}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rec := &recorder{}
	backend.New(backend.WithHTTPClient(hc)).StreamChat(ctx, concierge.ChatRequest{Message: "hi"}, rec.handler())

	assert.LessOrEqual(t, calls, 1)
	assert.Equal(t, []string{"error"}, rec.calls)
	assert.ErrorIs(t, rec.errs[0], context.Canceled)
}

func TestClient_CanceledDuringBackoff(t *testing.T) {
	t.Parallel()

	hc := &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
		return nil, errors.New("connection reset by peer")
	})}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rec := &recorder{}
	backend.New(
		backend.WithHTTPClient(hc),
		backend.WithSleep(func(ctx context.Context, d time.Duration) error {
			cancel()
			return ctx.Err()
		}),
	).StreamChat(ctx, concierge.ChatRequest{Message: "hi"}, rec.handler())

	assert.Equal(t, []string{"reconnecting", "error"}, rec.calls)
	assert.ErrorIs(t, rec.errs[0], context.Canceled)
}
