// Package serialization implements the compact binary encoding used between
// directly connected peers.
//
// A frame is a one byte variant tag followed by the variant body. Integers
// are big-endian, strings and byte slices carry a uint32 length prefix,
// instants are unix seconds plus a uint32 nanosecond remainder and durations
// are int64 nanoseconds. Encoding is deterministic and lossless.
package serialization

import (
	"fmt"

	internalSerialization "github.com/nm-morais/go-por/internal/serialization"
	"github.com/nm-morais/go-por/pkg/errors"
	"github.com/nm-morais/go-por/pkg/message"
	"github.com/nm-morais/go-por/pkg/serializationManager"
	"github.com/nm-morais/go-por/pkg/serializationUtils"
)

const BinaryCodecCaller = "BinaryCodec"

// Codec is the binary wire codec. It is stateless after construction and
// safe for concurrent use.
type Codec struct {
	manager serializationManager.SerializationManager
}

func NewCodec() *Codec {
	manager := internalSerialization.NewSerializationManager()
	for id, s := range map[message.ID]variantSerializer{
		message.RequestMessageType:  RequestSerializer{},
		message.ResponseMessageType: ResponseSerializer{},
		message.EdgeCutMessageType:  EdgeCutSerializer{},
		message.SyncMessageType:     SyncSerializer{},
		message.PaymentMessageType:  PaymentSerializer{},
		message.AckMessageType:      AckSerializer{},
		message.NodeIDMessageType:   NodeIDSerializer{},
	} {
		manager.RegisterSerializer(id, s)
		manager.RegisterDeserializer(id, s)
	}
	return &Codec{manager: manager}
}

func (c *Codec) Name() string {
	return "binary"
}

// Encode writes the variant tag followed by the variant body.
func (c *Codec) Encode(msg message.Message) ([]byte, error) {
	if msg == nil {
		return nil, errors.FatalError(400, "cannot encode nil message", BinaryCodecCaller)
	}
	body, err := c.manager.Serialize(msg)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, 1+len(body))
	out = append(out, byte(msg.Type()))
	return append(out, body...), nil
}

type variantSerializer interface {
	message.Serializer
	message.Deserializer
}

func wrongType(want message.ID, got message.Message) error {
	return errors.FatalError(400, fmt.Sprintf("serializer for %s got %T", want, got), BinaryCodecCaller)
}

func putRequestID(w *serializationUtils.Writer, id message.RequestID) {
	w.PutString(id.OriginNode)
	w.PutTime(id.Timestamp)
	w.PutUint32(id.Sequence)
}

type RequestSerializer struct{}

func (RequestSerializer) Serialize(m message.Message) ([]byte, error) {
	msg, ok := m.(message.RequestMessage)
	if !ok {
		return nil, wrongType(message.RequestMessageType, m)
	}
	w := serializationUtils.NewWriter()
	putRequestID(w, msg.RequestID)
	w.PutBytes(msg.Payload)
	w.PutStrings(msg.Path)
	w.PutDuration(msg.TotalLatency)
	w.PutUint64(msg.TotalCost)
	return w.Bytes(), nil
}

type ResponseSerializer struct{}

func (ResponseSerializer) Serialize(m message.Message) ([]byte, error) {
	msg, ok := m.(message.ResponseMessage)
	if !ok {
		return nil, wrongType(message.ResponseMessageType, m)
	}
	w := serializationUtils.NewWriter()
	putRequestID(w, msg.RequestID)
	w.PutBytes(msg.Payload)
	return w.Bytes(), nil
}

type EdgeCutSerializer struct{}

func (EdgeCutSerializer) Serialize(m message.Message) ([]byte, error) {
	msg, ok := m.(message.EdgeCutMessage)
	if !ok {
		return nil, wrongType(message.EdgeCutMessageType, m)
	}
	w := serializationUtils.NewWriter()
	putRequestID(w, msg.RequestID)
	w.PutString(msg.Node1)
	w.PutString(msg.Node2)
	return w.Bytes(), nil
}

type SyncSerializer struct{}

func (SyncSerializer) Serialize(m message.Message) ([]byte, error) {
	msg, ok := m.(message.SyncMessage)
	if !ok {
		return nil, wrongType(message.SyncMessageType, m)
	}
	w := serializationUtils.NewWriter()
	putRequestID(w, msg.RequestID)
	w.PutTime(msg.Timestamp)
	w.PutTime(msg.NextExpected)
	w.PutBool(msg.HasLatePayment)
	return w.Bytes(), nil
}

type PaymentSerializer struct{}

func (PaymentSerializer) Serialize(m message.Message) ([]byte, error) {
	msg, ok := m.(message.PaymentMessage)
	if !ok {
		return nil, wrongType(message.PaymentMessageType, m)
	}
	w := serializationUtils.NewWriter()
	putRequestID(w, msg.RequestID)
	w.PutUint64(msg.Amount)
	w.PutDuration(msg.LatencySoFar)
	return w.Bytes(), nil
}

type AckSerializer struct{}

func (AckSerializer) Serialize(m message.Message) ([]byte, error) {
	msg, ok := m.(message.AckMessage)
	if !ok {
		return nil, wrongType(message.AckMessageType, m)
	}
	w := serializationUtils.NewWriter()
	putRequestID(w, msg.RequestID)
	return w.Bytes(), nil
}

type NodeIDSerializer struct{}

func (NodeIDSerializer) Serialize(m message.Message) ([]byte, error) {
	msg, ok := m.(message.NodeIDMessage)
	if !ok {
		return nil, wrongType(message.NodeIDMessageType, m)
	}
	w := serializationUtils.NewWriter()
	w.PutString(msg.NodeName)
	w.PutUint32(msg.NodeVersion)
	return w.Bytes(), nil
}
