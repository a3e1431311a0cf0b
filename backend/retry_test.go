package backend_test

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/fwojciec/concierge"
	"github.com/fwojciec/concierge/backend"
	"github.com/stretchr/testify/assert"
)

func TestRetryConfig_Backoff(t *testing.T) {
	t.Parallel()

	cfg := backend.DefaultRetryConfig()
	assert.Equal(t, 3, cfg.MaxAttempts)

	tests := []struct {
		retry int
		want  time.Duration
	}{
		{0, time.Second},
		{1, time.Second},
		{2, 2 * time.Second},
		{3, 4 * time.Second},
		{4, 8 * time.Second},
		{5, 10 * time.Second},
		{12, 10 * time.Second},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, cfg.Backoff(tt.retry), "retry %d", tt.retry)
	}
}

func TestIsRetryable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"canceled", context.Canceled, false},
		{"wrapped canceled", fmt.Errorf("post: %w", context.Canceled), false},
		{"bad request", &backend.StatusError{Code: 400}, false},
		{"unauthorized", &backend.StatusError{Code: 401}, false},
		{"too many requests", &backend.StatusError{Code: 429}, false},
		{"internal server error", &backend.StatusError{Code: 500}, true},
		{"bad gateway", &backend.StatusError{Code: 502}, true},
		{"dial failure", &net.OpError{Op: "dial", Err: errors.New("connection refused")}, true},
		{"dns failure", &net.DNSError{Err: "no such host", Name: "api.example"}, true},
		{"unexpected end", concierge.ErrUnexpectedEnd, true},
		{"deadline", context.DeadlineExceeded, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, backend.IsRetryable(tt.err))
		})
	}
}

func TestStatusError(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "Request failed: 404", (&backend.StatusError{Code: 404, Body: "nope"}).Error())
}
