package models

// MerchantContact is where escalation notices for a shop are delivered.
type MerchantContact struct {
	ShopID   string `json:"shopId"`
	ShopName string `json:"shopName"`
	Email    string `json:"email,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Lang     string `json:"lang,omitempty"`
}

// Notification is a rendered merchant notice.
type Notification struct {
	ID             string `json:"id"`
	ConversationID string `json:"conversationId"`
	Subject        string `json:"subject"`
	Body           string `json:"body"`
	SentAt         string `json:"sentAt"`
}

const (
	ChannelEmail = "email"
	ChannelSMS   = "sms"
)
