package guardrail

import (
	"context"
	"fmt"
	"time"

	"commerce-answers/internal/common/metrics"
	"commerce-answers/internal/lang"
	"commerce-answers/internal/models"

	"github.com/google/uuid"
)

// MaskedPhone stands in for a customer phone that could not be decrypted.
const MaskedPhone = "+** *** *** ** **"

const (
	StepMarkHumanOwned = "mark_human_owned"
	StepMerchantLookup = "merchant_contact"
	StepDecryptPhone   = "decrypt_phone"
	StepNotifyMerchant = "notify_merchant"
)

type ConversationStore interface {
	MarkHumanOwned(ctx context.Context, conversationID string, at time.Time) error
	GetMerchantContact(ctx context.Context, conversationID string) (*models.MerchantContact, error)
}

type ContactStore interface {
	GetEncryptedPhone(ctx context.Context, userID string) (string, error)
}

type PhoneDecrypter interface {
	Decrypt(ciphertext string) (string, error)
}

// Notifier delivers a notice and returns the channels that accepted it.
type Notifier interface {
	NotifyMerchant(ctx context.Context, contact models.MerchantContact, n models.Notification) ([]string, error)
}

type Logger interface {
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

// Escalator hands a conversation to the merchant. Every step is best-effort.
type Escalator struct {
	conversations ConversationStore
	contacts      ContactStore
	phones        PhoneDecrypter
	notifier      Notifier
	logger        Logger
	now           func() time.Time
}

func NewEscalator(conversations ConversationStore, contacts ContactStore, phones PhoneDecrypter, notifier Notifier, log Logger) *Escalator {
	return &Escalator{
		conversations: conversations,
		contacts:      contacts,
		phones:        phones,
		notifier:      notifier,
		logger:        log,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// Escalate never returns an error. Failures are logged and listed in the outcome.
func (e *Escalator) Escalate(ctx context.Context, req models.EscalationRequest) models.EscalationOutcome {
	out := models.EscalationOutcome{
		ConversationID:   req.ConversationID,
		EscalatedAt:      e.now(),
		CustomerPhone:    MaskedPhone,
		NotifiedChannels: []string{},
	}

	out.MarkedHumanOwned = e.try(ctx, &out, StepMarkHumanOwned, func() error {
		return e.conversations.MarkHumanOwned(ctx, req.ConversationID, out.EscalatedAt)
	})

	var contact *models.MerchantContact
	e.try(ctx, &out, StepMerchantLookup, func() error {
		c, err := e.conversations.GetMerchantContact(ctx, req.ConversationID)
		if err != nil {
			return err
		}
		if c == nil {
			return fmt.Errorf("no merchant contact for conversation %s", req.ConversationID)
		}
		contact = c
		return nil
	})

	out.PhoneDecrypted = e.try(ctx, &out, StepDecryptPhone, func() error {
		if e.contacts == nil || e.phones == nil {
			return fmt.Errorf("phone decryption not configured")
		}
		sealed, err := e.contacts.GetEncryptedPhone(ctx, req.UserID)
		if err != nil {
			return err
		}
		if sealed == "" {
			return fmt.Errorf("no phone on file for user %s", req.UserID)
		}
		phone, err := e.phones.Decrypt(sealed)
		if err != nil {
			return err
		}
		out.CustomerPhone = phone
		return nil
	})

	if contact != nil && e.notifier != nil {
		e.try(ctx, &out, StepNotifyMerchant, func() error {
			channels, err := e.notifier.NotifyMerchant(ctx, *contact, e.notification(req, *contact, out))
			out.NotifiedChannels = append(out.NotifiedChannels, channels...)
			return err
		})
	}

	e.logger.Info("conversation escalated", map[string]interface{}{
		"conversationId":   req.ConversationID,
		"reason":           req.Reason,
		"markedHumanOwned": out.MarkedHumanOwned,
		"phoneDecrypted":   out.PhoneDecrypted,
		"notifiedChannels": out.NotifiedChannels,
		"failures":         len(out.Failures),
	})
	return out
}

// try runs one step, converting panics and errors into a recorded failure.
func (e *Escalator) try(ctx context.Context, out *models.EscalationOutcome, step string, fn func() error) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
			e.fail(out, step, fmt.Errorf("panic: %v", r))
		}
		result := "ok"
		if !ok {
			result = "failed"
		}
		metrics.EscalationSteps.WithLabelValues(step, result).Inc()
	}()

	if err := ctx.Err(); err != nil {
		e.fail(out, step, err)
		return false
	}
	if err := fn(); err != nil {
		e.fail(out, step, err)
		return false
	}
	return true
}

func (e *Escalator) fail(out *models.EscalationOutcome, step string, err error) {
	out.Failures = append(out.Failures, fmt.Sprintf("%s: %v", step, err))
	e.logger.Warn("escalation step failed", map[string]interface{}{
		"conversationId": out.ConversationID,
		"step":           step,
		"error":          err.Error(),
	})
}

var escalationSubject = localized{
	lang.English:   "A customer needs your attention",
	lang.Turkish:   "Bir müşteri ilginizi bekliyor",
	lang.Hungarian: "Egy vásárló a figyelmedet kéri",
}

var escalationBody = localized{
	lang.English:   "%s: the assistant handed conversation %s over to you (%s). Customer phone: %s. Last message: %q",
	lang.Turkish:   "%s: asistan %s numaralı konuşmayı size devretti (%s). Müşteri telefonu: %s. Son mesaj: %q",
	lang.Hungarian: "%s: az asszisztens átadta neked a(z) %s beszélgetést (%s). Vásárló telefonszáma: %s. Utolsó üzenet: %q",
}

func (e *Escalator) notification(req models.EscalationRequest, contact models.MerchantContact, out models.EscalationOutcome) models.Notification {
	code := lang.OrDefault(contact.Lang)
	return models.Notification{
		ID:             uuid.New().String(),
		ConversationID: req.ConversationID,
		Subject:        escalationSubject.in(code),
		Body: fmt.Sprintf(escalationBody.in(code),
			contact.ShopName, req.ConversationID, req.Reason, out.CustomerPhone, req.TriggerText),
		SentAt: out.EscalatedAt.Format(time.RFC3339),
	}
}
