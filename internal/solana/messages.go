package solana

import "encoding/json"

// SubscribeRequest is the outbound JSON-RPC 2.0 subscription envelope.
type SubscribeRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params,omitempty"`
}

// NewLogsSubscribeRequest builds a logsSubscribe request for one program id
// with the mentions-based "all" filter.
func NewLogsSubscribeRequest(id uint64, programID string) SubscribeRequest {
	return SubscribeRequest{
		JSONRPC: "2.0",
		ID:      id,
		Method:  "logsSubscribe",
		Params: []interface{}{
			"all",
			map[string][]string{"mentions": {programID}},
		},
	}
}

// MessageKind tags the shapes an inbound subscription message can take.
type MessageKind int

const (
	// MessageUnknown is anything the decoder does not recognize; callers
	// log it at debug level and move on.
	MessageUnknown MessageKind = iota

	// MessageNotification carries a batch of program log lines.
	MessageNotification

	// MessageSubscribeResult confirms a subscription and carries its id.
	MessageSubscribeResult

	// MessageError is an error envelope from the endpoint. Non-fatal: the
	// subscription stays open.
	MessageError
)

// Message is one decoded inbound WebSocket message.
type Message struct {
	Kind           MessageKind
	Notification   *LogsNotification // set for MessageNotification
	RequestID      uint64            // set for MessageSubscribeResult and MessageError
	SubscriptionID int64             // set for MessageSubscribeResult
	Err            *WireError        // set for MessageError
	Raw            []byte
}

// LogsNotification is the payload of a logsNotification message.
type LogsNotification struct {
	Slot      int64
	Signature string
	Logs      []string
	Err       interface{} // transaction-level error, nil on success
}

// WireError is a JSON-RPC error object.
type WireError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type wireMessage struct {
	JSONRPC string              `json:"jsonrpc"`
	ID      uint64              `json:"id"`
	Method  string              `json:"method"`
	Params  *notificationParams `json:"params"`
	Result  json.RawMessage     `json:"result"`
	Error   *WireError          `json:"error"`
}

type notificationParams struct {
	Subscription int64              `json:"subscription"`
	Result       notificationResult `json:"result"`
}

type notificationResult struct {
	Context *notificationContext `json:"context"`
	Value   notificationValue    `json:"value"`
}

type notificationContext struct {
	Slot int64 `json:"slot"`
}

type notificationValue struct {
	Signature string      `json:"signature"`
	Logs      []string    `json:"logs"`
	Err       interface{} `json:"err"`
}

// DecodeMessage classifies one raw inbound message. It never fails: anything
// unparseable comes back as MessageUnknown with Raw preserved.
func DecodeMessage(raw []byte) Message {
	msg := Message{Kind: MessageUnknown, Raw: raw}

	var wire wireMessage
	if err := json.Unmarshal(raw, &wire); err != nil {
		return msg
	}

	switch {
	case wire.Method == "logsNotification" && wire.Params != nil:
		notif := &LogsNotification{
			Signature: wire.Params.Result.Value.Signature,
			Logs:      wire.Params.Result.Value.Logs,
			Err:       wire.Params.Result.Value.Err,
		}
		if wire.Params.Result.Context != nil {
			notif.Slot = wire.Params.Result.Context.Slot
		}
		msg.Kind = MessageNotification
		msg.Notification = notif

	case wire.Error != nil:
		msg.Kind = MessageError
		msg.RequestID = wire.ID
		msg.Err = wire.Error

	case len(wire.Result) > 0 && wire.ID != 0:
		var subID int64
		if err := json.Unmarshal(wire.Result, &subID); err == nil {
			msg.Kind = MessageSubscribeResult
			msg.RequestID = wire.ID
			msg.SubscriptionID = subID
		}
	}

	return msg
}
