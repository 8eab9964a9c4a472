package message

import "fmt"

// ID is the envelope tag of a message variant.
type ID uint8

type Deserializer interface {
	Deserialize(bytes []byte) (Message, error)
}

type Serializer interface {
	Serialize(msg Message) ([]byte, error)
}

type Message interface {
	Type() ID
}

// Types lists every known variant tag in wire order.
var Types = []ID{
	RequestMessageType,
	ResponseMessageType,
	EdgeCutMessageType,
	SyncMessageType,
	PaymentMessageType,
	AckMessageType,
	NodeIDMessageType,
}

func (id ID) Valid() bool {
	return id >= RequestMessageType && id <= NodeIDMessageType
}

func (id ID) String() string {
	switch id {
	case RequestMessageType:
		return "Request"
	case ResponseMessageType:
		return "Response"
	case EdgeCutMessageType:
		return "EdgeCut"
	case SyncMessageType:
		return "Sync"
	case PaymentMessageType:
		return "Payment"
	case AckMessageType:
		return "Ack"
	case NodeIDMessageType:
		return "NodeId"
	default:
		return fmt.Sprintf("ID(%d)", uint8(id))
	}
}

// RequestIDOf returns the correlation id carried by msg. NodeIDMessage
// carries none.
func RequestIDOf(msg Message) (RequestID, bool) {
	switch m := msg.(type) {
	case RequestMessage:
		return m.RequestID, true
	case ResponseMessage:
		return m.RequestID, true
	case EdgeCutMessage:
		return m.RequestID, true
	case SyncMessage:
		return m.RequestID, true
	case PaymentMessage:
		return m.RequestID, true
	case AckMessage:
		return m.RequestID, true
	default:
		return RequestID{}, false
	}
}
