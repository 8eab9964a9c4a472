package message

import (
	"fmt"
	"sync"
	"time"
)

// RequestID correlates a Request with every message derived from it. It is
// unique per (OriginNode, Sequence) and is copied, never mutated.
type RequestID struct {
	OriginNode string
	Timestamp  time.Time
	Sequence   uint32
}

func NewRequestID(originNode string, sequence uint32) RequestID {
	return RequestID{
		OriginNode: originNode,
		Timestamp:  time.Now().UTC(),
		Sequence:   sequence,
	}
}

// CanonicalString renders "{origin}-{unix_seconds}-{sequence:04}". Both
// codecs keep whole seconds exactly, so the string is stable across them.
func (id RequestID) CanonicalString() string {
	return fmt.Sprintf("%s-%d-%04d", id.OriginNode, id.Timestamp.Unix(), id.Sequence)
}

func (id RequestID) String() string {
	return id.CanonicalString()
}

func (id RequestID) IsZero() bool {
	return id.OriginNode == "" && id.Timestamp.IsZero() && id.Sequence == 0
}

// Sequencer issues request ids for a single origin node. Sequence numbers
// increase by one per call and timestamps never go backwards.
type Sequencer struct {
	mu     sync.Mutex
	origin string
	seq    uint32
	last   time.Time
	now    func() time.Time
}

func NewSequencer(originNode string) *Sequencer {
	return &Sequencer{origin: originNode, now: time.Now}
}

func (s *Sequencer) Origin() string {
	return s.origin
}

func (s *Sequencer) Next() RequestID {
	s.mu.Lock()
	defer s.mu.Unlock()
	ts := s.now().UTC()
	if ts.Before(s.last) {
		ts = s.last
	}
	s.last = ts
	s.seq++
	return RequestID{
		OriginNode: s.origin,
		Timestamp:  ts,
		Sequence:   s.seq,
	}
}
