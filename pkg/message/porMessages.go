package message

import "time"

const (
	RequestMessageType  ID = 1
	ResponseMessageType ID = 2
	EdgeCutMessageType  ID = 3
	SyncMessageType     ID = 4
	PaymentMessageType  ID = 5
	AckMessageType      ID = 6
	NodeIDMessageType   ID = 7
)

// RequestMessage is a probe sent along a path of nodes. Path grows by one
// node identifier per forwarding hop.
type RequestMessage struct {
	RequestID    RequestID
	Payload      []byte
	Path         []string
	TotalLatency time.Duration
	TotalCost    uint64
}

// ResponseMessage answers the RequestMessage with the same RequestID.
type ResponseMessage struct {
	RequestID RequestID
	Payload   []byte
}

// EdgeCutMessage reports a broken edge between Node1 and Node2.
type EdgeCutMessage struct {
	RequestID RequestID
	Node1     string
	Node2     string
}

type SyncMessage struct {
	RequestID      RequestID
	Timestamp      time.Time
	NextExpected   time.Time
	HasLatePayment bool
}

type PaymentMessage struct {
	RequestID    RequestID
	Amount       uint64
	LatencySoFar time.Duration
}

type AckMessage struct {
	RequestID RequestID
}

// NodeIDMessage announces a node's identity. It is not tied to any request.
type NodeIDMessage struct {
	NodeName    string
	NodeVersion uint32
}

func (RequestMessage) Type() ID  { return RequestMessageType }
func (ResponseMessage) Type() ID { return ResponseMessageType }
func (EdgeCutMessage) Type() ID  { return EdgeCutMessageType }
func (SyncMessage) Type() ID     { return SyncMessageType }
func (PaymentMessage) Type() ID  { return PaymentMessageType }
func (AckMessage) Type() ID      { return AckMessageType }
func (NodeIDMessage) Type() ID   { return NodeIDMessageType }

// NewResponse builds the response to req, keeping its RequestID.
func NewResponse(req RequestMessage, payload []byte) ResponseMessage {
	return ResponseMessage{RequestID: req.RequestID, Payload: payload}
}

// Forwarded returns a copy of req with hop appended to the path and the
// hop's latency and cost accumulated. The receiver is left untouched.
func (req RequestMessage) Forwarded(hop string, latency time.Duration, cost uint64) RequestMessage {
	path := make([]string, len(req.Path), len(req.Path)+1)
	copy(path, req.Path)
	fwd := req
	fwd.Path = append(path, hop)
	fwd.TotalLatency += latency
	fwd.TotalCost += cost
	return fwd
}
