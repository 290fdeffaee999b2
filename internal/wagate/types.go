package wagate

import "context"

// Event is one frame pushed by the gateway over the WebSocket.
type Event struct {
	Type     string   `json:"type"` // "message" | "group_join" | "group_leave"
	Chat     string   `json:"chat,omitempty"`
	User     string   `json:"user,omitempty"`
	UserName string   `json:"userName,omitempty"`
	Message  *Message `json:"message,omitempty"`
}

const (
	EventMessage    = "message"
	EventGroupJoin  = "group_join"
	EventGroupLeave = "group_leave"
)

// Message carries the subset of WhatsApp message metadata the bot depends on.
type Message struct {
	ID         string   `json:"id"`
	Chat       string   `json:"chat"`
	Sender     string   `json:"sender"`
	SenderName string   `json:"senderName,omitempty"`
	Body       string   `json:"body"`
	IsGroup    bool     `json:"isGroup,omitempty"`
	HasMedia   bool     `json:"hasMedia,omitempty"`
	IsViewOnce bool     `json:"isViewOnce,omitempty"`
	MediaType  string   `json:"mediaType,omitempty"`
	QuotedID   string   `json:"quotedId,omitempty"`
	QuotedType string   `json:"quotedType,omitempty"`
	Mentions   []string `json:"mentions,omitempty"`
}

// Media is a downloaded attachment, base64-encoded as the gateway ships it.
type Media struct {
	Data     string `json:"data"`
	Mimetype string `json:"mimetype"`
}

// MediaOptions control how an outbound attachment is presented.
type MediaOptions struct {
	Caption   string `json:"caption,omitempty"`
	AsSticker bool   `json:"asSticker,omitempty"`
}

// Participant is a group member with its current admin flag.
type Participant struct {
	ID      string `json:"id"`
	Name    string `json:"name,omitempty"`
	IsAdmin bool   `json:"isAdmin"`
}

// GatewayInfo mirrors the gateway's /config response.
type GatewayInfo struct {
	SelfID   string `json:"selfId"`
	SelfName string `json:"selfName"`
	Version  string `json:"version"`
	Ready    bool   `json:"ready"`
}

type sendTextRequest struct {
	Chat string `json:"chat"`
	Text string `json:"text"`
}

type sendMediaRequest struct {
	Chat      string `json:"chat"`
	Data      string `json:"data"`
	Mimetype  string `json:"mimetype"`
	Caption   string `json:"caption,omitempty"`
	AsSticker bool   `json:"asSticker,omitempty"`
}

type sendMentionsRequest struct {
	Chat  string   `json:"chat"`
	Text  string   `json:"text"`
	Users []string `json:"users"`
}

type messageRefRequest struct {
	Message string `json:"message"`
}

type groupActionRequest struct {
	Chat  string   `json:"chat"`
	Users []string `json:"users,omitempty"`
}

type participantsResponse struct {
	Participants []Participant `json:"participants"`
}

type EventCallback func(event *Event)

type StateCallback func(state WebSocketState)

type WSClient interface {
	Connect(ctx context.Context) error
	OnEvent(cb EventCallback) int
	RemoveEventCallback(id int)
	OnStateChange(cb StateCallback) int
	RemoveStateCallback(id int)
	Close(ctx context.Context) error
}
