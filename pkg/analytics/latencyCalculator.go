package analytics

import (
	"sync"
	"time"

	"github.com/nm-morais/go-por/pkg/message"
)

// LatencyCalculator keeps an exponentially weighted average of probe
// round trips.
type LatencyCalculator struct {
	mu                    sync.Mutex
	newMeasurementsWeight float32
	oldMeasurementsWeight float32
	nMeasurements         int
	currValue             time.Duration
}

func NewLatencyCalculator(newMeasurementsWeight float32, oldMeasurementsWeight float32) *LatencyCalculator {
	return &LatencyCalculator{
		newMeasurementsWeight: newMeasurementsWeight,
		oldMeasurementsWeight: oldMeasurementsWeight,
	}
}

func (l *LatencyCalculator) AddMeasurement(measurement time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.nMeasurements++
	if l.nMeasurements == 1 {
		l.currValue = measurement
		return
	}
	l.currValue = time.Duration(float32(measurement)*l.newMeasurementsWeight + float32(l.currValue)*l.oldMeasurementsWeight)
}

// CurrValue is false until the first measurement.
func (l *LatencyCalculator) CurrValue() (time.Duration, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.currValue, l.nMeasurements > 0
}

func (l *LatencyCalculator) NrMeasurements() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.nMeasurements
}

// ProbeTracker smooths round trips per responding peer. It reads the
// issue time out of the Response request id, so it keeps no pending table.
type ProbeTracker struct {
	origin    string
	newWeight float32
	oldWeight float32
	now       func() time.Time

	mu    sync.Mutex
	peers map[string]*LatencyCalculator
}

func NewProbeTracker(origin string, newWeight, oldWeight float32) *ProbeTracker {
	return &ProbeTracker{
		origin:    origin,
		newWeight: newWeight,
		oldWeight: oldWeight,
		now:       time.Now,
		peers:     make(map[string]*LatencyCalculator),
	}
}

// Observe records the round trip of resp, answered by peerName. Responses
// to requests issued by another node are ignored.
func (t *ProbeTracker) Observe(peerName string, resp message.ResponseMessage) (time.Duration, bool) {
	if resp.RequestID.OriginNode != t.origin {
		return 0, false
	}
	rtt := t.now().Sub(resp.RequestID.Timestamp)
	if rtt < 0 {
		rtt = 0
	}
	t.mu.Lock()
	calc, ok := t.peers[peerName]
	if !ok {
		calc = NewLatencyCalculator(t.newWeight, t.oldWeight)
		t.peers[peerName] = calc
	}
	t.mu.Unlock()
	calc.AddMeasurement(rtt)
	return rtt, true
}

// Latency is the smoothed round trip to peerName.
func (t *ProbeTracker) Latency(peerName string) (time.Duration, bool) {
	t.mu.Lock()
	calc, ok := t.peers[peerName]
	t.mu.Unlock()
	if !ok {
		return 0, false
	}
	return calc.CurrValue()
}
