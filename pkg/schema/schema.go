// Package schema implements the protobuf interchange form of the protocol.
//
// Every field is optional on the wire; Decode enforces the sub-messages the
// typed model requires and reports the exact missing field. The layout is:
//
//	message RequestId       { string origin_node = 1; google.protobuf.Timestamp timestamp = 2; uint32 sequence = 3; }
//	message RequestMessage  { RequestId request_id = 1; bytes payload = 2; repeated string path = 3; uint64 total_latency_ms = 4; uint64 total_cost = 5; }
//	message ResponseMessage { RequestId request_id = 1; bytes payload = 2; }
//	message EdgeCutMessage  { RequestId request_id = 1; string node1 = 2; string node2 = 3; }
//	message SyncMessage     { RequestId request_id = 1; google.protobuf.Timestamp timestamp = 2; google.protobuf.Timestamp next_expected = 3; bool has_late_payment = 4; }
//	message PaymentMessage  { RequestId request_id = 1; uint64 amount = 2; uint64 latency_so_far_ms = 3; }
//	message AckMessage      { RequestId request_id = 1; }
//	message NodeIdMessage   { string node_name = 1; uint32 node_version = 2; }
//	message ProofOfResponse {
//	  oneof response_type {
//	    RequestMessage request = 1; ResponseMessage response = 2; EdgeCutMessage edge_cut = 3;
//	    SyncMessage sync = 4; PaymentMessage payment = 5; AckMessage ack = 6; NodeIdMessage node_id = 7;
//	  }
//	}
//
// Durations travel as whole milliseconds, so sub-millisecond precision is
// dropped on encode.
package schema

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/nm-morais/go-por/pkg/errors"
	"github.com/nm-morais/go-por/pkg/message"
)

const SchemaCodecCaller = "SchemaCodec"

// RequestId fields.
const (
	requestIDOriginNode protowire.Number = 1
	requestIDTimestamp  protowire.Number = 2
	requestIDSequence   protowire.Number = 3
)

// request_id is field 1 in every variant that carries one.
const fieldRequestID protowire.Number = 1

// Envelope oneof fields share numbers with the variant tags.
func envelopeField(id message.ID) protowire.Number {
	return protowire.Number(id)
}

// Codec is the schema'd interchange codec. It holds no state.
type Codec struct{}

func NewCodec() *Codec {
	return &Codec{}
}

func (c *Codec) Name() string {
	return "schema"
}

// Encode produces a ProofOfResponse envelope. Zero-valued scalars are
// omitted and field order is fixed, so the output is deterministic.
func (c *Codec) Encode(msg message.Message) ([]byte, error) {
	if msg == nil {
		return nil, errors.FatalError(400, "cannot encode nil message", SchemaCodecCaller)
	}
	body, err := encodeVariant(msg)
	if err != nil {
		return nil, err
	}
	return appendMessage(nil, envelopeField(msg.Type()), body), nil
}

func encodeVariant(msg message.Message) ([]byte, error) {
	var b []byte
	switch m := msg.(type) {
	case message.RequestMessage:
		rid, err := encodeRequestID(m.RequestID)
		if err != nil {
			return nil, err
		}
		b = appendMessage(b, fieldRequestID, rid)
		b = appendBytes(b, 2, m.Payload)
		for _, hop := range m.Path {
			b = protowire.AppendTag(b, 3, protowire.BytesType)
			b = protowire.AppendString(b, hop)
		}
		b = appendVarint(b, 4, durationToMillis(m.TotalLatency))
		b = appendVarint(b, 5, m.TotalCost)
	case message.ResponseMessage:
		rid, err := encodeRequestID(m.RequestID)
		if err != nil {
			return nil, err
		}
		b = appendMessage(b, fieldRequestID, rid)
		b = appendBytes(b, 2, m.Payload)
	case message.EdgeCutMessage:
		rid, err := encodeRequestID(m.RequestID)
		if err != nil {
			return nil, err
		}
		b = appendMessage(b, fieldRequestID, rid)
		b = appendString(b, 2, m.Node1)
		b = appendString(b, 3, m.Node2)
	case message.SyncMessage:
		rid, err := encodeRequestID(m.RequestID)
		if err != nil {
			return nil, err
		}
		ts, err := marshalTimestamp(m.Timestamp, "sync.timestamp")
		if err != nil {
			return nil, err
		}
		next, err := marshalTimestamp(m.NextExpected, "sync.next_expected")
		if err != nil {
			return nil, err
		}
		b = appendMessage(b, fieldRequestID, rid)
		b = appendMessage(b, 2, ts)
		b = appendMessage(b, 3, next)
		if m.HasLatePayment {
			b = appendVarint(b, 4, 1)
		}
	case message.PaymentMessage:
		rid, err := encodeRequestID(m.RequestID)
		if err != nil {
			return nil, err
		}
		b = appendMessage(b, fieldRequestID, rid)
		b = appendVarint(b, 2, m.Amount)
		b = appendVarint(b, 3, durationToMillis(m.LatencySoFar))
	case message.AckMessage:
		rid, err := encodeRequestID(m.RequestID)
		if err != nil {
			return nil, err
		}
		b = appendMessage(b, fieldRequestID, rid)
	case message.NodeIDMessage:
		b = appendString(b, 1, m.NodeName)
		b = appendVarint(b, 2, uint64(m.NodeVersion))
	default:
		return nil, errors.FatalError(400, fmt.Sprintf("unsupported message %T", msg), SchemaCodecCaller)
	}
	return b, nil
}

func encodeRequestID(id message.RequestID) ([]byte, error) {
	ts, err := marshalTimestamp(id.Timestamp, "request_id.timestamp")
	if err != nil {
		return nil, err
	}
	var b []byte
	b = appendString(b, requestIDOriginNode, id.OriginNode)
	b = appendMessage(b, requestIDTimestamp, ts)
	b = appendVarint(b, requestIDSequence, uint64(id.Sequence))
	return b, nil
}

// appendMessage always emits the field, even when sub is empty, so that
// presence survives the round trip.
func appendMessage(b []byte, num protowire.Number, sub []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, sub)
}

func appendBytes(b []byte, num protowire.Number, v []byte) []byte {
	if len(v) == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, v)
}

func appendString(b []byte, num protowire.Number, v string) []byte {
	if v == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, v)
}

func appendVarint(b []byte, num protowire.Number, v uint64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}
