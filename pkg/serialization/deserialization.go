package serialization

import (
	"fmt"

	"github.com/nm-morais/go-por/pkg/errors"
	"github.com/nm-morais/go-por/pkg/message"
	"github.com/nm-morais/go-por/pkg/serializationUtils"
)

// Decode parses a frame produced by Encode. Every failure is a
// *errors.DecodeError; untrusted input never panics.
func (c *Codec) Decode(buf []byte) (message.Message, error) {
	if len(buf) == 0 {
		return nil, errors.NewDecodeError(errors.Truncated, BinaryCodecCaller, "tag", "empty frame")
	}
	id := message.ID(buf[0])
	if !id.Valid() {
		return nil, errors.NewDecodeError(errors.UnknownTag, BinaryCodecCaller, "tag", fmt.Sprintf("unknown message tag %d", buf[0]))
	}
	return c.manager.Deserialize(id, buf[1:])
}

func readRequestID(r *serializationUtils.Reader) message.RequestID {
	return message.RequestID{
		OriginNode: r.String("request_id.origin_node"),
		Timestamp:  r.Time("request_id.timestamp"),
		Sequence:   r.Uint32("request_id.sequence"),
	}
}

func (RequestSerializer) Deserialize(buf []byte) (message.Message, error) {
	r := serializationUtils.NewReader(buf)
	msg := message.RequestMessage{
		RequestID:    readRequestID(r),
		Payload:      r.Bytes("payload"),
		Path:         r.Strings("path"),
		TotalLatency: r.Duration("total_latency"),
		TotalCost:    r.Uint64("total_cost"),
	}
	if err := r.Done(); err != nil {
		return nil, err
	}
	return msg, nil
}

func (ResponseSerializer) Deserialize(buf []byte) (message.Message, error) {
	r := serializationUtils.NewReader(buf)
	msg := message.ResponseMessage{
		RequestID: readRequestID(r),
		Payload:   r.Bytes("payload"),
	}
	if err := r.Done(); err != nil {
		return nil, err
	}
	return msg, nil
}

func (EdgeCutSerializer) Deserialize(buf []byte) (message.Message, error) {
	r := serializationUtils.NewReader(buf)
	msg := message.EdgeCutMessage{
		RequestID: readRequestID(r),
		Node1:     r.String("node1"),
		Node2:     r.String("node2"),
	}
	if err := r.Done(); err != nil {
		return nil, err
	}
	return msg, nil
}

func (SyncSerializer) Deserialize(buf []byte) (message.Message, error) {
	r := serializationUtils.NewReader(buf)
	msg := message.SyncMessage{
		RequestID:      readRequestID(r),
		Timestamp:      r.Time("timestamp"),
		NextExpected:   r.Time("next_expected"),
		HasLatePayment: r.Bool("has_late_payment"),
	}
	if err := r.Done(); err != nil {
		return nil, err
	}
	return msg, nil
}

func (PaymentSerializer) Deserialize(buf []byte) (message.Message, error) {
	r := serializationUtils.NewReader(buf)
	msg := message.PaymentMessage{
		RequestID:    readRequestID(r),
		Amount:       r.Uint64("amount"),
		LatencySoFar: r.Duration("latency_so_far"),
	}
	if err := r.Done(); err != nil {
		return nil, err
	}
	return msg, nil
}

func (AckSerializer) Deserialize(buf []byte) (message.Message, error) {
	r := serializationUtils.NewReader(buf)
	msg := message.AckMessage{RequestID: readRequestID(r)}
	if err := r.Done(); err != nil {
		return nil, err
	}
	return msg, nil
}

func (NodeIDSerializer) Deserialize(buf []byte) (message.Message, error) {
	r := serializationUtils.NewReader(buf)
	msg := message.NodeIDMessage{
		NodeName:    r.String("node_name"),
		NodeVersion: r.Uint32("node_version"),
	}
	if err := r.Done(); err != nil {
		return nil, err
	}
	return msg, nil
}
