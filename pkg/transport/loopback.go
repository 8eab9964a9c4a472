package transport

import (
	"sync"

	"github.com/nm-morais/go-por/pkg/errors"
	"github.com/nm-morais/go-por/pkg/peer"
)

const LoopbackCaller = "Loopback"

// Loopback is an in-memory network. Send delivers synchronously on the
// caller's goroutine, so a whole request/response exchange completes before
// the first Send returns.
type Loopback struct {
	mu        sync.RWMutex
	endpoints map[string]Inbound
}

func NewLoopback() *Loopback {
	return &Loopback{endpoints: make(map[string]Inbound)}
}

// Endpoint creates the sending side for self. Nothing is delivered to self
// until Serve is called.
func (l *Loopback) Endpoint(self peer.Peer) *LoopbackEndpoint {
	return &LoopbackEndpoint{
		network:  l,
		self:     self,
		failures: make(chan Failure, failureBuffer),
	}
}

func (l *Loopback) attach(name string, inbound Inbound) {
	l.mu.Lock()
	l.endpoints[name] = inbound
	l.mu.Unlock()
}

// Detach removes a node; later sends to it fail.
func (l *Loopback) Detach(name string) {
	l.mu.Lock()
	delete(l.endpoints, name)
	l.mu.Unlock()
}

func (l *Loopback) lookup(name string) (Inbound, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	inbound, ok := l.endpoints[name]
	return inbound, ok
}

type LoopbackEndpoint struct {
	network  *Loopback
	self     peer.Peer
	failures chan Failure
}

// Serve starts delivering messages addressed to this endpoint to inbound.
func (e *LoopbackEndpoint) Serve(inbound Inbound) {
	e.network.attach(e.self.Name(), inbound)
}

func (e *LoopbackEndpoint) Send(target peer.Peer, data []byte) {
	inbound, ok := e.network.lookup(target.Name())
	if !ok {
		reportFailure(e.failures, Failure{
			Target: target,
			Err:    errors.NonFatalError(404, "unknown peer "+target.Name(), LoopbackCaller),
		})
		return
	}
	frame := make([]byte, len(data))
	copy(frame, data)
	// decode errors belong to the receiver
	_ = inbound(e.self, frame)
}

func (e *LoopbackEndpoint) Failures() <-chan Failure {
	return e.failures
}

func (e *LoopbackEndpoint) Close() error {
	e.network.Detach(e.self.Name())
	return nil
}
