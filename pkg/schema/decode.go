package schema

import (
	stderrors "errors"
	"fmt"
	"io"
	"math"
	"time"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/nm-morais/go-por/pkg/errors"
	"github.com/nm-morais/go-por/pkg/message"
)

// field is one decoded key/value pair. Only the member matching typ is set.
type field struct {
	num    protowire.Number
	typ    protowire.Type
	varint uint64
	bytes  []byte
}

func wireError(path string, n int) error {
	err := protowire.ParseError(n)
	kind := errors.InvalidField
	if stderrors.Is(err, io.ErrUnexpectedEOF) {
		kind = errors.Truncated
	}
	return errors.NewDecodeError(kind, SchemaCodecCaller, path, err.Error())
}

// rangeFields walks b and calls fn for every field. Fields fn does not know
// must be ignored by fn; groups and fixed-width values are skipped here.
func rangeFields(b []byte, path string, fn func(f field) error) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return wireError(path, n)
		}
		b = b[n:]
		f := field{num: num, typ: typ}
		switch typ {
		case protowire.VarintType:
			f.varint, n = protowire.ConsumeVarint(b)
		case protowire.BytesType:
			f.bytes, n = protowire.ConsumeBytes(b)
		default:
			n = protowire.ConsumeFieldValue(num, typ, b)
		}
		if n < 0 {
			return wireError(fmt.Sprintf("%s.%d", path, num), n)
		}
		b = b[n:]
		if err := fn(f); err != nil {
			return err
		}
	}
	return nil
}

func (f field) wantType(path string, typ protowire.Type) error {
	if f.typ != typ {
		return errors.NewDecodeError(errors.InvalidField, SchemaCodecCaller, path, fmt.Sprintf("wire type %d, want %d", f.typ, typ))
	}
	return nil
}

func (f field) asBytes(path string) ([]byte, error) {
	if err := f.wantType(path, protowire.BytesType); err != nil {
		return nil, err
	}
	if len(f.bytes) == 0 {
		return nil, nil
	}
	out := make([]byte, len(f.bytes))
	copy(out, f.bytes)
	return out, nil
}

func (f field) asString(path string) (string, error) {
	if err := f.wantType(path, protowire.BytesType); err != nil {
		return "", err
	}
	return string(f.bytes), nil
}

func (f field) asUint64(path string) (uint64, error) {
	if err := f.wantType(path, protowire.VarintType); err != nil {
		return 0, err
	}
	return f.varint, nil
}

func (f field) asUint32(path string) (uint32, error) {
	v, err := f.asUint64(path)
	if err != nil {
		return 0, err
	}
	if v > math.MaxUint32 {
		return 0, errors.NewDecodeError(errors.InvalidField, SchemaCodecCaller, path, fmt.Sprintf("%d overflows uint32", v))
	}
	return uint32(v), nil
}

func (f field) asBool(path string) (bool, error) {
	v, err := f.asUint64(path)
	return v != 0, err
}

func (f field) asTimestamp(path string) (time.Time, error) {
	if err := f.wantType(path, protowire.BytesType); err != nil {
		return time.Time{}, err
	}
	return unmarshalTimestamp(f.bytes, path)
}

// Decode parses a ProofOfResponse envelope. It never substitutes a default
// variant: an envelope with no variant fails with ErrNoResponseType.
func (c *Codec) Decode(b []byte) (message.Message, error) {
	var (
		variant message.ID
		body    []byte
	)
	err := rangeFields(b, "response_type", func(f field) error {
		id := message.ID(f.num)
		if f.num > math.MaxUint8 || !id.Valid() {
			// unknown field: a newer peer may have added a variant
			return nil
		}
		if variant != 0 {
			return &PorMessageError{Err: ErrMultipleResponseTypes}
		}
		v, err := f.asBytes(variantName(id))
		if err != nil {
			return &PorMessageError{Variant: id, Err: err}
		}
		variant, body = id, v
		return nil
	})
	if err != nil {
		return nil, err
	}
	if variant == 0 {
		return nil, &PorMessageError{Err: ErrNoResponseType}
	}
	msg, err := decodeVariant(variant, body)
	if err != nil {
		return nil, &PorMessageError{Variant: variant, Err: err}
	}
	return msg, nil
}

func decodeVariant(id message.ID, b []byte) (message.Message, error) {
	switch id {
	case message.RequestMessageType:
		return decodeRequest(b)
	case message.ResponseMessageType:
		return decodeResponse(b)
	case message.EdgeCutMessageType:
		return decodeEdgeCut(b)
	case message.SyncMessageType:
		return decodeSync(b)
	case message.PaymentMessageType:
		return decodePayment(b)
	case message.AckMessageType:
		return decodeAck(b)
	case message.NodeIDMessageType:
		return decodeNodeID(b)
	}
	return nil, errors.NewDecodeError(errors.UnknownTag, SchemaCodecCaller, "", fmt.Sprintf("unknown message tag %d", id))
}

func decodeRequestID(b []byte) (message.RequestID, error) {
	var (
		id    message.RequestID
		hasTs bool
	)
	err := rangeFields(b, "request_id", func(f field) (err error) {
		switch f.num {
		case requestIDOriginNode:
			id.OriginNode, err = f.asString("request_id.origin_node")
		case requestIDTimestamp:
			id.Timestamp, err = f.asTimestamp("request_id.timestamp")
			hasTs = true
		case requestIDSequence:
			id.Sequence, err = f.asUint32("request_id.sequence")
		}
		return err
	})
	if err != nil {
		return message.RequestID{}, err
	}
	if !hasTs {
		return message.RequestID{}, &RequestIDError{missing(FieldTimestamp)}
	}
	return id, nil
}

// requiredRequestID tracks the request_id sub-message every variant but
// NodeId must carry.
type requiredRequestID struct {
	present bool
	err     error
}

// take decodes f into dst when f is the request_id field.
func (r *requiredRequestID) take(f field, dst *message.RequestID) bool {
	if f.num != fieldRequestID {
		return false
	}
	r.present = true
	if err := f.wantType("request_id", protowire.BytesType); err != nil {
		r.err = err
		return true
	}
	*dst, r.err = decodeRequestID(f.bytes)
	return true
}

func (r requiredRequestID) check() *FieldError {
	if !r.present {
		fe := missing(FieldRequestID)
		return &fe
	}
	if r.err != nil {
		fe := requestIDFailed(r.err)
		return &fe
	}
	return nil
}

func decodeRequest(b []byte) (message.Message, error) {
	var (
		msg message.RequestMessage
		rid requiredRequestID
	)
	err := rangeFields(b, "request", func(f field) (err error) {
		if rid.take(f, &msg.RequestID) {
			return nil
		}
		switch f.num {
		case 2:
			msg.Payload, err = f.asBytes("request.payload")
		case 3:
			var hop string
			hop, err = f.asString("request.path")
			msg.Path = append(msg.Path, hop)
		case 4:
			var ms uint64
			if ms, err = f.asUint64("request.total_latency_ms"); err == nil {
				msg.TotalLatency, err = millisToDuration(ms, "request.total_latency_ms")
			}
		case 5:
			msg.TotalCost, err = f.asUint64("request.total_cost")
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	if fe := rid.check(); fe != nil {
		return nil, &RequestError{*fe}
	}
	return msg, nil
}

func decodeResponse(b []byte) (message.Message, error) {
	var (
		msg message.ResponseMessage
		rid requiredRequestID
	)
	err := rangeFields(b, "response", func(f field) (err error) {
		if !rid.take(f, &msg.RequestID) && f.num == 2 {
			msg.Payload, err = f.asBytes("response.payload")
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	if fe := rid.check(); fe != nil {
		return nil, &ResponseError{*fe}
	}
	return msg, nil
}

func decodeEdgeCut(b []byte) (message.Message, error) {
	var (
		msg message.EdgeCutMessage
		rid requiredRequestID
	)
	err := rangeFields(b, "edge_cut", func(f field) (err error) {
		if rid.take(f, &msg.RequestID) {
			return nil
		}
		switch f.num {
		case 2:
			msg.Node1, err = f.asString("edge_cut.node1")
		case 3:
			msg.Node2, err = f.asString("edge_cut.node2")
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	if fe := rid.check(); fe != nil {
		return nil, &EdgeCutError{*fe}
	}
	return msg, nil
}

func decodeSync(b []byte) (message.Message, error) {
	var (
		msg            message.SyncMessage
		rid            requiredRequestID
		hasTs, hasNext bool
	)
	err := rangeFields(b, "sync", func(f field) (err error) {
		if rid.take(f, &msg.RequestID) {
			return nil
		}
		switch f.num {
		case 2:
			hasTs = true
			msg.Timestamp, err = f.asTimestamp("sync.timestamp")
		case 3:
			hasNext = true
			msg.NextExpected, err = f.asTimestamp("sync.next_expected")
		case 4:
			msg.HasLatePayment, err = f.asBool("sync.has_late_payment")
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	if fe := rid.check(); fe != nil {
		return nil, &SyncError{*fe}
	}
	if !hasTs {
		return nil, &SyncError{missing(FieldTimestamp)}
	}
	if !hasNext {
		return nil, &SyncError{missing(FieldNextExpected)}
	}
	return msg, nil
}

func decodePayment(b []byte) (message.Message, error) {
	var (
		msg message.PaymentMessage
		rid requiredRequestID
	)
	err := rangeFields(b, "payment", func(f field) (err error) {
		if rid.take(f, &msg.RequestID) {
			return nil
		}
		switch f.num {
		case 2:
			msg.Amount, err = f.asUint64("payment.amount")
		case 3:
			var ms uint64
			if ms, err = f.asUint64("payment.latency_so_far_ms"); err == nil {
				msg.LatencySoFar, err = millisToDuration(ms, "payment.latency_so_far_ms")
			}
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	if fe := rid.check(); fe != nil {
		return nil, &PaymentError{*fe}
	}
	return msg, nil
}

func decodeAck(b []byte) (message.Message, error) {
	var (
		msg message.AckMessage
		rid requiredRequestID
	)
	err := rangeFields(b, "ack", func(f field) error {
		rid.take(f, &msg.RequestID)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if fe := rid.check(); fe != nil {
		return nil, &AckError{*fe}
	}
	return msg, nil
}

// decodeNodeID has no required sub-message; only malformed scalars fail.
func decodeNodeID(b []byte) (message.Message, error) {
	var msg message.NodeIDMessage
	err := rangeFields(b, "node_id", func(f field) (err error) {
		switch f.num {
		case 1:
			msg.NodeName, err = f.asString("node_id.node_name")
		case 2:
			msg.NodeVersion, err = f.asUint32("node_id.node_version")
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return msg, nil
}
