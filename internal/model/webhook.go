package model

// InboundMessage is the provider-agnostic shape extracted from a webhook
// payload. Participant carries the individual sender inside a group
// conversation; SelfEcho marks messages that originated from this system's
// own outbound channel.
type InboundMessage struct {
	From        string `json:"from"`
	Participant string `json:"participant,omitempty"`
	Body        string `json:"body"`
	Group       bool   `json:"group"`
	SelfEcho    bool   `json:"from_me"`
	AITagged    bool   `json:"ai_tagged,omitempty"`
	MediaType   string `json:"media_type,omitempty"`
}

// WebhookAck is the acknowledgement returned for every inbound webhook
// call, echoing the routing decision taken. The most recent value is
// retained in process memory for external inspection.
type WebhookAck struct {
	OK             bool   `json:"ok"`
	Route          string `json:"route,omitempty"`
	Ignored        string `json:"ignored,omitempty"`
	Warning        string `json:"warning,omitempty"`
	ConversationID string `json:"conversation_id,omitempty"`
	ModelInvoked   bool   `json:"model_invoked,omitempty"`
	AutoReplied    bool   `json:"auto_replied,omitempty"`
	DelayMs        int64  `json:"delay_ms"`
}
