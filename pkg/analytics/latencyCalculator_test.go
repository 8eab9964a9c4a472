package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/nm-morais/go-por/pkg/message"
)

func TestLatencyCalculator(t *testing.T) {
	l := NewLatencyCalculator(0.5, 0.5)
	_, ok := l.CurrValue()
	assert.False(t, ok)

	l.AddMeasurement(10 * time.Millisecond)
	l.AddMeasurement(20 * time.Millisecond)

	v, ok := l.CurrValue()
	assert.True(t, ok)
	assert.Equal(t, 15*time.Millisecond, v)
	assert.Equal(t, 2, l.NrMeasurements())
}

func TestProbeTracker(t *testing.T) {
	issued := time.Unix(1700000000, 0).UTC()
	tracker := NewProbeTracker("P", 0.5, 0.5)
	tracker.now = func() time.Time { return issued.Add(4 * time.Millisecond) }

	resp := message.ResponseMessage{RequestID: message.RequestID{OriginNode: "P", Timestamp: issued, Sequence: 1}}
	rtt, ok := tracker.Observe("Q", resp)
	assert.True(t, ok)
	assert.Equal(t, 4*time.Millisecond, rtt)

	smoothed, ok := tracker.Latency("Q")
	assert.True(t, ok)
	assert.Equal(t, 4*time.Millisecond, smoothed)

	_, ok = tracker.Latency("R")
	assert.False(t, ok)

	foreign := message.ResponseMessage{RequestID: message.RequestID{OriginNode: "X", Timestamp: issued}}
	_, ok = tracker.Observe("Q", foreign)
	assert.False(t, ok)
}
