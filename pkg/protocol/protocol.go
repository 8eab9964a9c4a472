package protocol

import (
	"fmt"

	"github.com/nm-morais/go-por/pkg/handlers"
	"github.com/nm-morais/go-por/pkg/message"
	"github.com/nm-morais/go-por/pkg/peer"
)

// Outbound is a message the handler wants delivered to Target.
type Outbound struct {
	Target  peer.Peer
	Message message.Message
}

// Sender is the one capability the protocol needs from a transport.
// Send is fire-and-forget; delivery failures are reported by the transport
// on its own channel.
type Sender interface {
	Send(target peer.Peer, data []byte)
}

// Handler dispatches decoded messages. It keeps no per-request state: each
// call to Handle depends only on its arguments, the request policy and the
// registered callbacks.
type Handler struct {
	self     peer.Peer
	policy   RequestPolicy
	observer Observer
	handlers map[message.ID][]handlers.MessageHandler
}

type Option func(h *Handler)

// WithPolicy replaces the default EchoPolicy.
func WithPolicy(policy RequestPolicy) Option {
	return func(h *Handler) {
		h.policy = policy
	}
}

func WithObserver(observer Observer) Option {
	return func(h *Handler) {
		h.observer = observer
	}
}

func NewHandler(self peer.Peer, opts ...Option) *Handler {
	h := &Handler{
		self:     self,
		policy:   EchoPolicy{},
		observer: NopObserver{},
		handlers: make(map[message.ID][]handlers.MessageHandler),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) Self() peer.Peer {
	return h.self
}

// RegisterMessageHandler adds a callback for messages of the given type.
// Several callbacks may share a type; they run in registration order.
// Registration must happen before the handler starts serving messages.
func (h *Handler) RegisterMessageHandler(id message.ID, handler handlers.MessageHandler) error {
	if !id.Valid() {
		return fmt.Errorf("cannot register handler for unknown message type %s", id)
	}
	if handler == nil {
		return fmt.Errorf("nil handler for message type %s", id)
	}
	h.handlers[id] = append(h.handlers[id], handler)
	return nil
}

// Handle processes msg received from source and returns, in order, the
// messages that must be sent in reaction. Only Request produces output;
// every other variant is terminal here and is only surfaced to callbacks.
func (h *Handler) Handle(source peer.Peer, msg message.Message) []Outbound {
	if msg == nil {
		return nil
	}
	h.observer.MessageProcessed(source, msg)

	var out []Outbound
	if req, ok := msg.(message.RequestMessage); ok {
		out = h.policy.OnRequest(h.self, source, req)
	}
	for _, cb := range h.handlers[msg.Type()] {
		cb(source, msg)
	}
	return out
}
