package protocol

import (
	"time"

	"github.com/nm-morais/go-por/pkg/message"
	"github.com/nm-morais/go-por/pkg/peer"
)

// RequestPolicy decides what a node does with an incoming Request.
// Implementations must carry the request id unchanged into everything they emit.
type RequestPolicy interface {
	OnRequest(self, source peer.Peer, req message.RequestMessage) []Outbound
}

// EchoPolicy answers every Request with a Response holding the same request
// id and payload, addressed to the peer the Request came from.
type EchoPolicy struct{}

func (EchoPolicy) OnRequest(_, source peer.Peer, req message.RequestMessage) []Outbound {
	return []Outbound{{
		Target:  source,
		Message: message.NewResponse(req, req.Payload),
	}}
}

// Hop is the next leg of a forwarded Request.
type Hop struct {
	Next    peer.Peer
	Latency time.Duration
	Cost    uint64
}

// Router picks where a Request goes next. ok is false when this node is the
// last hop.
type Router interface {
	NextHop(source peer.Peer, req message.RequestMessage) (hop Hop, ok bool)
}

type RouterFunc func(source peer.Peer, req message.RequestMessage) (Hop, bool)

func (f RouterFunc) NextHop(source peer.Peer, req message.RequestMessage) (Hop, bool) {
	return f(source, req)
}

// ForwardPolicy appends the local node to the Request path and passes it on
// to the hop chosen by Router. It answers like EchoPolicy when there is no
// next hop or the hop was already visited.
type ForwardPolicy struct {
	Router Router
}

func (p ForwardPolicy) OnRequest(self, source peer.Peer, req message.RequestMessage) []Outbound {
	if p.Router == nil {
		return EchoPolicy{}.OnRequest(self, source, req)
	}
	hop, ok := p.Router.NextHop(source, req)
	if !ok || hop.Next == nil || visited(req.Path, hop.Next) || hop.Next.Equals(self) {
		return EchoPolicy{}.OnRequest(self, source, req)
	}
	return []Outbound{{
		Target:  hop.Next,
		Message: req.Forwarded(self.Name(), hop.Latency, hop.Cost),
	}}
}

func visited(path []string, p peer.Peer) bool {
	for _, name := range path {
		if name == p.Name() {
			return true
		}
	}
	return false
}
