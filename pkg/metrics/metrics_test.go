package metrics

import (
	"fmt"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nm-morais/go-por/pkg/errors"
	"github.com/nm-morais/go-por/pkg/message"
	"github.com/nm-morais/go-por/pkg/peer"
	"github.com/nm-morais/go-por/pkg/protocol"
	"github.com/nm-morais/go-por/pkg/schema"
)

var _ protocol.Observer = (*Metrics)(nil)

func TestCountersByKind(t *testing.T) {
	m := New()
	p := peer.Named("P")
	m.MessageProcessed(p, message.AckMessage{})
	m.MessageProcessed(p, message.AckMessage{})
	m.MessageSent(p, message.ResponseMessage{})

	assert.Equal(t, 2.0, testutil.ToFloat64(m.processed.WithLabelValues("Ack")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.sent.WithLabelValues("Response")))
}

func TestReason(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"truncated", errors.NewDecodeError(errors.Truncated, "test", "", "short"), "truncated"},
		{"unknown tag", errors.NewDecodeError(errors.UnknownTag, "test", "", "tag 9"), "unknown_tag"},
		{"missing", &schema.PorMessageError{Variant: message.AckMessageType, Err: &schema.AckError{FieldError: schema.FieldError{Field: schema.FieldRequestID, Err: schema.ErrMissingField}}}, "missing_field"},
		{"no variant", &schema.PorMessageError{Err: schema.ErrNoResponseType}, "no_response_type"},
		{"several variants", &schema.PorMessageError{Err: schema.ErrMultipleResponseTypes}, "multiple_response_types"},
		{"wrapped", fmt.Errorf("frame: %w", errors.NewDecodeError(errors.InvalidField, "test", "f", "bad")), "invalid_field"},
		{"other", io.EOF, "other"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Reason(tt.err))
		})
	}
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New()
	m.DecodeFailed(peer.Named("P"), errors.NewDecodeError(errors.Truncated, "test", "", "short"))
	m.ObserveRoundTrip(3 * time.Millisecond)
	m.SendFailed()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)

	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `por_decode_errors_total{reason="truncated"} 1`), body)
	assert.Contains(t, body, "por_probe_round_trip_seconds_count 1")
	assert.Contains(t, body, "por_send_failures_total 1")
}
