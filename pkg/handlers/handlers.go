package handlers

import (
	"github.com/nm-morais/go-por/pkg/message"
	"github.com/nm-morais/go-por/pkg/peer"
)

// MessageHandler receives a decoded message together with the peer it came from.
type MessageHandler func(sender peer.Peer, message message.Message)
