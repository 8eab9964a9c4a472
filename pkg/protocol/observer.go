package protocol

import (
	log "github.com/sirupsen/logrus"

	"github.com/nm-morais/go-por/pkg/message"
	"github.com/nm-morais/go-por/pkg/peer"
)

// Observer is told about every dispatched message, every message handed to
// a Sender and every inbound payload that failed to decode.
type Observer interface {
	MessageProcessed(source peer.Peer, msg message.Message)
	MessageSent(target peer.Peer, msg message.Message)
	DecodeFailed(source peer.Peer, err error)
}

type NopObserver struct{}

func (NopObserver) MessageProcessed(peer.Peer, message.Message) {}
func (NopObserver) MessageSent(peer.Peer, message.Message)      {}
func (NopObserver) DecodeFailed(peer.Peer, error)               {}

// MultiObserver fans every event out to each observer in order.
type MultiObserver []Observer

func (m MultiObserver) MessageProcessed(source peer.Peer, msg message.Message) {
	for _, o := range m {
		o.MessageProcessed(source, msg)
	}
}

func (m MultiObserver) MessageSent(target peer.Peer, msg message.Message) {
	for _, o := range m {
		o.MessageSent(target, msg)
	}
}

func (m MultiObserver) DecodeFailed(source peer.Peer, err error) {
	for _, o := range m {
		o.DecodeFailed(source, err)
	}
}

type LoggingObserver struct {
	logger *log.Logger
}

func NewLoggingObserver(logger *log.Logger) *LoggingObserver {
	return &LoggingObserver{logger: logger}
}

func messageFields(p peer.Peer, msg message.Message) log.Fields {
	fields := log.Fields{
		"peer": p.ToString(),
		"kind": msg.Type().String(),
	}
	if id, ok := message.RequestIDOf(msg); ok {
		fields["request_id"] = id.CanonicalString()
	}
	return fields
}

func (o *LoggingObserver) MessageProcessed(source peer.Peer, msg message.Message) {
	o.logger.WithFields(messageFields(source, msg)).Info("Received PoR message")
	o.logger.Debugf("Message content: %+v", msg)
}

func (o *LoggingObserver) MessageSent(target peer.Peer, msg message.Message) {
	o.logger.WithFields(messageFields(target, msg)).Info("Sending PoR message")
}

func (o *LoggingObserver) DecodeFailed(source peer.Peer, err error) {
	o.logger.WithField("peer", source.ToString()).Warnf("Dropping malformed PoR message: %s", err)
}
