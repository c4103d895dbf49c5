package transport

import (
	"encoding/json"
	"strings"
)

const (
	jsonrpcVersion     = "2.0"
	subscribeSuffix    = "_subscribe"
	unsubscribeSuffix  = "_unsubscribe"
	notificationSuffix = "_subscription"
)

// Request is a JSON-RPC 2.0 request envelope.
type Request struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

// NewRequest creates a request with the given id. Nil params are sent as an empty array.
func NewRequest(id uint64, method string, params []interface{}) *Request {
	if params == nil {
		params = []interface{}{}
	}
	return &Request{
		JSONRPC: jsonrpcVersion,
		ID:      id,
		Method:  method,
		Params:  params,
	}
}

// message is anything the server can send: a response or a subscription notification.
type message struct {
	JSONRPC string          `json:"jsonrpc,omitempty"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

type subscriptionParams struct {
	Subscription string          `json:"subscription"`
	Result       json.RawMessage `json:"result"`
}

func (m *message) isNotification() bool {
	return len(m.ID) == 0 && strings.HasSuffix(m.Method, notificationSuffix)
}

func (m *message) isResponse() bool {
	return len(m.ID) > 0 && m.Method == ""
}

func (m *message) id() (uint64, bool) {
	var id uint64
	if err := json.Unmarshal(m.ID, &id); err != nil {
		return 0, false
	}
	return id, true
}

// decodeResult copies the response result into out. A missing result decodes like null.
func (m *message) decodeResult(out interface{}) error {
	if m.Error != nil {
		return m.Error
	}
	if out == nil {
		return nil
	}
	raw := m.Result
	if len(raw) == 0 {
		raw = json.RawMessage("null")
	}
	return json.Unmarshal(raw, out)
}
