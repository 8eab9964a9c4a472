package schema

import (
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/nm-morais/go-por/pkg/errors"
	"github.com/nm-morais/go-por/pkg/message"
	"github.com/nm-morais/go-por/pkg/serialization"
)

var testRequestID = message.RequestID{
	OriginNode: "node0",
	Timestamp:  time.Unix(1700000000, 123456789).UTC(),
	Sequence:   42,
}

func allVariants() []message.Message {
	return []message.Message{
		message.RequestMessage{
			RequestID:    testRequestID,
			Payload:      []byte("ping"),
			Path:         []string{"node0", "node1"},
			TotalLatency: 15 * time.Millisecond,
			TotalCost:    7,
		},
		message.ResponseMessage{RequestID: testRequestID, Payload: []byte("pong")},
		message.EdgeCutMessage{RequestID: testRequestID, Node1: "node1", Node2: "node2"},
		message.SyncMessage{
			RequestID:      testRequestID,
			Timestamp:      time.Unix(1700000001, 5).UTC(),
			NextExpected:   time.Unix(1700000061, 0).UTC(),
			HasLatePayment: true,
		},
		message.PaymentMessage{RequestID: testRequestID, Amount: 1 << 40, LatencySoFar: 3 * time.Millisecond},
		message.AckMessage{RequestID: testRequestID},
		message.NodeIDMessage{NodeName: "node0", NodeVersion: 3},
	}
}

func mustRequestID(t *testing.T, id message.RequestID) []byte {
	t.Helper()
	b, err := encodeRequestID(id)
	require.NoError(t, err)
	return b
}

func mustTimestamp(t *testing.T, ts time.Time) []byte {
	t.Helper()
	b, err := marshalTimestamp(ts, "test")
	require.NoError(t, err)
	return b
}

func envelope(variant message.ID, body []byte) []byte {
	return appendMessage(nil, envelopeField(variant), body)
}

func TestRoundTripAllVariants(t *testing.T) {
	codec := NewCodec()
	for _, msg := range allVariants() {
		t.Run(msg.Type().String(), func(t *testing.T) {
			encoded, err := codec.Encode(msg)
			require.NoError(t, err)
			decoded, err := codec.Decode(encoded)
			require.NoError(t, err)
			assert.Equal(t, msg, decoded)
		})
	}
}

func TestEncodeDeterministic(t *testing.T) {
	codec := NewCodec()
	for _, msg := range allVariants() {
		a, err := codec.Encode(msg)
		require.NoError(t, err)
		b, err := codec.Encode(msg)
		require.NoError(t, err)
		assert.Equal(t, a, b)
	}
}

func TestDurationPrecisionFloor(t *testing.T) {
	codec := NewCodec()
	encoded, err := codec.Encode(message.PaymentMessage{
		RequestID:    testRequestID,
		Amount:       10,
		LatencySoFar: 1500 * time.Microsecond,
	})
	require.NoError(t, err)

	decoded, err := codec.Decode(encoded)
	require.NoError(t, err)
	assert.Equal(t, time.Millisecond, decoded.(message.PaymentMessage).LatencySoFar)

	encoded, err = codec.Encode(message.RequestMessage{RequestID: testRequestID, TotalLatency: 999 * time.Microsecond})
	require.NoError(t, err)
	decoded, err = codec.Decode(encoded)
	require.NoError(t, err)
	assert.Equal(t, time.Duration(0), decoded.(message.RequestMessage).TotalLatency)
}

func TestSyncMissingNextExpected(t *testing.T) {
	var body []byte
	body = appendMessage(body, fieldRequestID, mustRequestID(t, testRequestID))
	body = appendMessage(body, 2, mustTimestamp(t, time.Unix(10, 0)))
	body = appendVarint(body, 4, 1)

	_, err := NewCodec().Decode(envelope(message.SyncMessageType, body))
	require.Error(t, err)

	var syncErr *SyncError
	require.True(t, stderrors.As(err, &syncErr), "got %v", err)
	assert.Equal(t, FieldNextExpected, syncErr.Field)
	assert.True(t, stderrors.Is(err, ErrMissingField))

	var envErr *PorMessageError
	require.True(t, stderrors.As(err, &envErr))
	assert.Equal(t, message.SyncMessageType, envErr.Variant)
	assert.Equal(t, "sync: next_expected: missing required field", err.Error())
}

func TestSyncMissingTimestamp(t *testing.T) {
	var body []byte
	body = appendMessage(body, fieldRequestID, mustRequestID(t, testRequestID))
	body = appendMessage(body, 3, mustTimestamp(t, time.Unix(10, 0)))

	_, err := NewCodec().Decode(envelope(message.SyncMessageType, body))
	var syncErr *SyncError
	require.True(t, stderrors.As(err, &syncErr), "got %v", err)
	assert.Equal(t, FieldTimestamp, syncErr.Field)
}

func TestMissingRequestID(t *testing.T) {
	tests := []struct {
		variant message.ID
		body    []byte
		check   func(t *testing.T, err error)
	}{
		{message.RequestMessageType, appendBytes(nil, 2, []byte("x")), func(t *testing.T, err error) {
			var e *RequestError
			require.True(t, stderrors.As(err, &e))
			assert.Equal(t, FieldRequestID, e.Field)
		}},
		{message.ResponseMessageType, nil, func(t *testing.T, err error) {
			var e *ResponseError
			require.True(t, stderrors.As(err, &e))
			assert.Equal(t, FieldRequestID, e.Field)
		}},
		{message.EdgeCutMessageType, appendString(nil, 2, "a"), func(t *testing.T, err error) {
			var e *EdgeCutError
			require.True(t, stderrors.As(err, &e))
			assert.Equal(t, FieldRequestID, e.Field)
		}},
		{message.SyncMessageType, nil, func(t *testing.T, err error) {
			var e *SyncError
			require.True(t, stderrors.As(err, &e))
			assert.Equal(t, FieldRequestID, e.Field)
		}},
		{message.PaymentMessageType, appendVarint(nil, 2, 5), func(t *testing.T, err error) {
			var e *PaymentError
			require.True(t, stderrors.As(err, &e))
			assert.Equal(t, FieldRequestID, e.Field)
		}},
		{message.AckMessageType, nil, func(t *testing.T, err error) {
			var e *AckError
			require.True(t, stderrors.As(err, &e))
			assert.Equal(t, FieldRequestID, e.Field)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.variant.String(), func(t *testing.T) {
			_, err := NewCodec().Decode(envelope(tt.variant, tt.body))
			require.Error(t, err)
			assert.True(t, stderrors.Is(err, ErrMissingField))
			tt.check(t, err)
		})
	}
}

func TestRequestIDMissingTimestamp(t *testing.T) {
	rid := appendString(nil, requestIDOriginNode, "node0")
	rid = appendVarint(rid, requestIDSequence, 3)
	body := appendMessage(nil, fieldRequestID, rid)

	_, err := NewCodec().Decode(envelope(message.AckMessageType, body))
	require.Error(t, err)

	var ackErr *AckError
	require.True(t, stderrors.As(err, &ackErr))
	assert.Equal(t, FieldRequestID, ackErr.Field)

	var ridErr *RequestIDError
	require.True(t, stderrors.As(err, &ridErr))
	assert.Equal(t, FieldTimestamp, ridErr.Field)
	assert.True(t, stderrors.Is(err, ErrMissingField))
	assert.Equal(t, "ack: request_id: timestamp: missing required field", err.Error())
}

func TestNoResponseType(t *testing.T) {
	unknownOnly := protowire.AppendTag(nil, 99, protowire.VarintType)
	unknownOnly = protowire.AppendVarint(unknownOnly, 1)

	for name, data := range map[string][]byte{
		"empty":        nil,
		"unknown only": unknownOnly,
	} {
		t.Run(name, func(t *testing.T) {
			msg, err := NewCodec().Decode(data)
			assert.Nil(t, msg)
			require.Error(t, err)
			assert.True(t, stderrors.Is(err, ErrNoResponseType))
			assert.Equal(t, "no response_type field", err.Error())
		})
	}
}

func TestMultipleResponseTypes(t *testing.T) {
	data := envelope(message.NodeIDMessageType, nil)
	data = append(data, envelope(message.AckMessageType, appendMessage(nil, fieldRequestID, mustRequestID(t, testRequestID)))...)
	_, err := NewCodec().Decode(data)
	assert.True(t, stderrors.Is(err, ErrMultipleResponseTypes))
}

func TestUnknownFieldsSkipped(t *testing.T) {
	body := appendMessage(nil, fieldRequestID, mustRequestID(t, testRequestID))
	body = protowire.AppendTag(body, 50, protowire.Fixed64Type)
	body = protowire.AppendFixed64(body, 0xdeadbeef)
	body = appendString(body, 51, "from the future")
	data := envelope(message.AckMessageType, body)
	data = appendString(data, 60, "newer envelope field")

	decoded, err := NewCodec().Decode(data)
	require.NoError(t, err)
	assert.Equal(t, message.AckMessage{RequestID: testRequestID}, decoded)
}

func TestEmptyNodeID(t *testing.T) {
	decoded, err := NewCodec().Decode(envelope(message.NodeIDMessageType, nil))
	require.NoError(t, err)
	assert.Equal(t, message.NodeIDMessage{}, decoded)
}

func TestMalformedWireData(t *testing.T) {
	codec := NewCodec()
	encoded, err := codec.Encode(allVariants()[0])
	require.NoError(t, err)

	_, err = codec.Decode(encoded[:len(encoded)-3])
	var decodeErr *errors.DecodeError
	require.True(t, stderrors.As(err, &decodeErr), "got %v", err)
	assert.Equal(t, errors.Truncated, decodeErr.Kind)

	wrongType := protowire.AppendTag(nil, protowire.Number(message.AckMessageType), protowire.VarintType)
	wrongType = protowire.AppendVarint(wrongType, 1)
	_, err = codec.Decode(wrongType)
	require.True(t, stderrors.As(err, &decodeErr), "got %v", err)
	assert.Equal(t, errors.InvalidField, decodeErr.Kind)

	badTs := appendMessage(nil, fieldRequestID, appendMessage(nil, requestIDTimestamp, []byte{0x08}))
	_, err = codec.Decode(envelope(message.AckMessageType, badTs))
	require.Error(t, err)
	assert.True(t, stderrors.As(err, &decodeErr), "got %v", err)
}

func TestCanonicalStringMatchesBinaryCodec(t *testing.T) {
	msg := message.AckMessage{RequestID: testRequestID}

	schemaBytes, err := NewCodec().Encode(msg)
	require.NoError(t, err)
	fromSchema, err := NewCodec().Decode(schemaBytes)
	require.NoError(t, err)

	binary := serialization.NewCodec()
	binaryBytes, err := binary.Encode(msg)
	require.NoError(t, err)
	fromBinary, err := binary.Decode(binaryBytes)
	require.NoError(t, err)

	a, _ := message.RequestIDOf(fromSchema)
	b, _ := message.RequestIDOf(fromBinary)
	assert.Equal(t, a.CanonicalString(), b.CanonicalString())
	assert.Equal(t, "node0-1700000000-0042", a.CanonicalString())
}

func TestEncodeRejectsOutOfRangeTimestamps(t *testing.T) {
	farFuture := time.Date(10000, 1, 1, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name  string
		msg   message.Message
		field string
	}{
		{"request id", message.AckMessage{RequestID: message.RequestID{OriginNode: "node0", Timestamp: farFuture}}, "request_id.timestamp"},
		{"sync timestamp", message.SyncMessage{RequestID: testRequestID, Timestamp: farFuture, NextExpected: testRequestID.Timestamp}, "sync.timestamp"},
		{"sync next expected", message.SyncMessage{RequestID: testRequestID, Timestamp: testRequestID.Timestamp, NextExpected: time.Date(0, 12, 31, 0, 0, 0, 0, time.UTC)}, "sync.next_expected"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoded, err := NewCodec().Encode(tt.msg)
			assert.Nil(t, encoded)
			var decodeErr *errors.DecodeError
			require.True(t, stderrors.As(err, &decodeErr), "got %v", err)
			assert.Equal(t, errors.InvalidField, decodeErr.Kind)
			assert.Equal(t, tt.field, decodeErr.Field)
		})
	}

	// the binary form carries the same instant
	binary := serialization.NewCodec()
	msg := message.AckMessage{RequestID: message.RequestID{OriginNode: "node0", Timestamp: farFuture}}
	encoded, err := binary.Encode(msg)
	require.NoError(t, err)
	decoded, err := binary.Decode(encoded)
	require.NoError(t, err)
	assert.Equal(t, msg, decoded)
}

func TestRequestIDWrongWireType(t *testing.T) {
	body := appendVarint(nil, fieldRequestID, 7)
	_, err := NewCodec().Decode(envelope(message.PaymentMessageType, body))

	var paymentErr *PaymentError
	require.True(t, stderrors.As(err, &paymentErr), "got %v", err)
	assert.Equal(t, FieldRequestID, paymentErr.Field)
	var decodeErr *errors.DecodeError
	require.True(t, stderrors.As(err, &decodeErr))
	assert.Equal(t, errors.InvalidField, decodeErr.Kind)
	assert.False(t, stderrors.Is(err, ErrMissingField))
}
