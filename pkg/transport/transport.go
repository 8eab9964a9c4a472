package transport

import (
	"github.com/nm-morais/go-por/pkg/errors"
	"github.com/nm-morais/go-por/pkg/peer"
	"github.com/nm-morais/go-por/pkg/protocol"
)

// Inbound receives a frame addressed to this node. node.Node.OnMessage has
// this signature.
type Inbound func(source peer.Peer, data []byte) error

// Failure reports an outbound frame that could not be delivered. Nothing is
// retried.
type Failure struct {
	Target peer.Peer
	Err    errors.Error
}

// Transport is a Sender that also reports its delivery failures.
type Transport interface {
	protocol.Sender
	Failures() <-chan Failure
	Close() error
}

const failureBuffer = 128

// reportFailure never blocks; if nobody drains the channel the failure is
// only logged by the caller.
func reportFailure(failures chan Failure, f Failure) bool {
	select {
	case failures <- f:
		return true
	default:
		return false
	}
}
