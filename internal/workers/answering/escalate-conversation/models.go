package escalateconversation

import "commerce-answers/internal/models"

type Input = models.EscalationRequest

// Output omits the decrypted phone; it never leaves the worker as a process variable.
type Output struct {
	ConversationID   string   `json:"conversationId"`
	MarkedHumanOwned bool     `json:"markedHumanOwned"`
	EscalatedAt      string   `json:"escalatedAt"`
	PhoneDecrypted   bool     `json:"phoneDecrypted"`
	NotifiedChannels []string `json:"notifiedChannels"`
	Failures         []string `json:"failures,omitempty"`
	Succeeded        bool     `json:"escalationSucceeded"`
}
