// Package node wires a codec, a protocol handler and a transport together:
// inbound bytes are decoded and handled, and whatever the handler produces is
// encoded and handed to the Sender.
package node

import (
	"github.com/nm-morais/go-por/pkg/errors"
	"github.com/nm-morais/go-por/pkg/message"
	"github.com/nm-morais/go-por/pkg/peer"
	"github.com/nm-morais/go-por/pkg/protocol"
)

const NodeCaller = "Node"

// Codec is implemented by both the binary and the schema codec.
type Codec interface {
	Name() string
	Encode(msg message.Message) ([]byte, error)
	Decode(data []byte) (message.Message, error)
}

type Node struct {
	self      peer.Peer
	codec     Codec
	handler   *protocol.Handler
	sender    protocol.Sender
	observer  protocol.Observer
	sequencer *message.Sequencer
}

func New(self peer.Peer, codec Codec, handler *protocol.Handler, sender protocol.Sender, observer protocol.Observer) *Node {
	if observer == nil {
		observer = protocol.NopObserver{}
	}
	return &Node{
		self:      self,
		codec:     codec,
		handler:   handler,
		sender:    sender,
		observer:  observer,
		sequencer: message.NewSequencer(self.Name()),
	}
}

func (n *Node) Self() peer.Peer {
	return n.self
}

func (n *Node) Codec() Codec {
	return n.codec
}

// OnMessage is the inbound callback for the transport. A payload that fails
// to decode is reported and returned; it has no effect on later messages.
func (n *Node) OnMessage(source peer.Peer, data []byte) error {
	msg, err := n.codec.Decode(data)
	if err != nil {
		n.observer.DecodeFailed(source, err)
		return err
	}
	var firstErr error
	for _, out := range n.handler.Handle(source, msg) {
		if err := n.send(out.Target, out.Message); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Probe sends a fresh Request to target and returns its id so the caller
// can correlate the Response.
func (n *Node) Probe(target peer.Peer, payload []byte) (message.RequestID, error) {
	req := message.RequestMessage{
		RequestID: n.sequencer.Next(),
		Payload:   payload,
		Path:      []string{n.self.Name()},
	}
	if err := n.send(target, req); err != nil {
		return message.RequestID{}, err
	}
	return req.RequestID, nil
}

// Send encodes msg and hands it to the transport.
func (n *Node) Send(target peer.Peer, msg message.Message) error {
	return n.send(target, msg)
}

func (n *Node) send(target peer.Peer, msg message.Message) error {
	if target == nil {
		return errors.NonFatalError(400, "no target for "+msg.Type().String(), NodeCaller)
	}
	data, err := n.codec.Encode(msg)
	if err != nil {
		return err
	}
	n.observer.MessageSent(target, msg)
	n.sender.Send(target, data)
	return nil
}
