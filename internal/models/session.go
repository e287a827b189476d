package models

import "time"

const (
	OwnerBot   = "bot"
	OwnerHuman = "human"
)

// EscalationRequest hands a conversation over to the merchant.
type EscalationRequest struct {
	UserID         string `json:"userId"`
	ConversationID string `json:"conversationId"`
	Reason         string `json:"reason"`
	TriggerText    string `json:"triggerText"`
}

// EscalationOutcome records which best-effort steps of an escalation succeeded.
type EscalationOutcome struct {
	ConversationID   string    `json:"conversationId"`
	MarkedHumanOwned bool      `json:"markedHumanOwned"`
	EscalatedAt      time.Time `json:"escalatedAt"`
	PhoneDecrypted   bool      `json:"phoneDecrypted"`
	CustomerPhone    string    `json:"customerPhone"`
	NotifiedChannels []string  `json:"notifiedChannels"`
	Failures         []string  `json:"failures,omitempty"`
}

// Succeeded reports whether every step completed.
func (o *EscalationOutcome) Succeeded() bool {
	return len(o.Failures) == 0
}
