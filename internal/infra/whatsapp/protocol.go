package whatsapp

// Frame types exchanged with the WhatsApp Web bridge
const (
	FrameMessage    = "message"
	FrameConnection = "connection"
	FrameQR         = "qr"
	FrameSend       = "send"
	FramePresence   = "presence"
)

// Presence states
const (
	PresenceComposing = "composing"
	PresencePaused    = "paused"
)

// Event is an inbound frame from the bridge
type Event struct {
	Type    string        `json:"type"`
	Message *MessageFrame `json:"message,omitempty"`
	State   string        `json:"state,omitempty"` // connection: open, close
	Code    string        `json:"code,omitempty"`  // qr: pairing code to scan
}

// MessageFrame is one message observed on the account, incoming or sent from it
type MessageFrame struct {
	ID        string         `json:"id"`
	Chat      string         `json:"chat"`
	FromMe    bool           `json:"from_me"`
	PushName  string         `json:"push_name,omitempty"`
	Timestamp int64          `json:"timestamp"` // unix seconds
	Content   MessageContent `json:"content"`
}

// MessageContent mirrors the WhatsApp message proto; at most one field is set
type MessageContent struct {
	Conversation           string           `json:"conversation,omitempty"`
	ExtendedTextMessage    *ExtendedText    `json:"extendedTextMessage,omitempty"`
	ImageMessage           *MediaMessage    `json:"imageMessage,omitempty"`
	VideoMessage           *MediaMessage    `json:"videoMessage,omitempty"`
	ButtonsResponseMessage *ButtonsResponse `json:"buttonsResponseMessage,omitempty"`
	ListResponseMessage    *ListResponse    `json:"listResponseMessage,omitempty"`
}

type ExtendedText struct {
	Text string `json:"text"`
}

type MediaMessage struct {
	Caption string `json:"caption,omitempty"`
}

type ButtonsResponse struct {
	SelectedButtonID string `json:"selectedButtonId"`
}

type ListResponse struct {
	Title string `json:"title"`
}

// SendFrame asks the bridge to deliver a text message
type SendFrame struct {
	Type     string `json:"type"`
	ID       string `json:"id"`
	To       string `json:"to"`
	Text     string `json:"text"`
	QuotedID string `json:"quoted_id,omitempty"`
}

// PresenceFrame updates the chat presence (typing indicator)
type PresenceFrame struct {
	Type  string `json:"type"`
	To    string `json:"to"`
	State string `json:"state"`
}
