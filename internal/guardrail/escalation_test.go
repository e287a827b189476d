package guardrail

import (
	"context"
	"errors"
	"testing"
	"time"

	"commerce-answers/internal/common/logger"
	"commerce-answers/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type MockConversationStore struct {
	MarkHumanOwnedFunc     func(ctx context.Context, conversationID string, at time.Time) error
	GetMerchantContactFunc func(ctx context.Context, conversationID string) (*models.MerchantContact, error)
}

func (m *MockConversationStore) MarkHumanOwned(ctx context.Context, conversationID string, at time.Time) error {
	return m.MarkHumanOwnedFunc(ctx, conversationID, at)
}

func (m *MockConversationStore) GetMerchantContact(ctx context.Context, conversationID string) (*models.MerchantContact, error) {
	return m.GetMerchantContactFunc(ctx, conversationID)
}

type MockContactStore struct {
	GetEncryptedPhoneFunc func(ctx context.Context, userID string) (string, error)
}

func (m *MockContactStore) GetEncryptedPhone(ctx context.Context, userID string) (string, error) {
	return m.GetEncryptedPhoneFunc(ctx, userID)
}

type MockDecrypter struct {
	DecryptFunc func(string) (string, error)
}

func (m *MockDecrypter) Decrypt(s string) (string, error) {
	return m.DecryptFunc(s)
}

type MockNotifier struct {
	NotifyMerchantFunc func(ctx context.Context, contact models.MerchantContact, n models.Notification) ([]string, error)
}

func (m *MockNotifier) NotifyMerchant(ctx context.Context, contact models.MerchantContact, n models.Notification) ([]string, error) {
	return m.NotifyMerchantFunc(ctx, contact, n)
}

func happyDeps() (*MockConversationStore, *MockContactStore, *MockDecrypter, *MockNotifier) {
	conv := &MockConversationStore{
		MarkHumanOwnedFunc: func(ctx context.Context, id string, at time.Time) error { return nil },
		GetMerchantContactFunc: func(ctx context.Context, id string) (*models.MerchantContact, error) {
			return &models.MerchantContact{ShopID: "shop-1", ShopName: "Glow", Email: "owner@glow.test", Phone: "+3612345678", Lang: "hu"}, nil
		},
	}
	contacts := &MockContactStore{
		GetEncryptedPhoneFunc: func(ctx context.Context, userID string) (string, error) { return "sealed", nil },
	}
	dec := &MockDecrypter{DecryptFunc: func(s string) (string, error) { return "+36 30 111 2222", nil }}
	notifier := &MockNotifier{
		NotifyMerchantFunc: func(ctx context.Context, c models.MerchantContact, n models.Notification) ([]string, error) {
			return []string{models.ChannelSMS, models.ChannelEmail}, nil
		},
	}
	return conv, contacts, dec, notifier
}

func TestEscalate_AllStepsSucceed(t *testing.T) {
	conv, contacts, dec, notifier := happyDeps()
	var sent models.Notification
	notifier.NotifyMerchantFunc = func(ctx context.Context, c models.MerchantContact, n models.Notification) ([]string, error) {
		sent = n
		return []string{models.ChannelEmail}, nil
	}

	esc := NewEscalator(conv, contacts, dec, notifier, logger.NewTestLogger(t))
	out := esc.Escalate(context.Background(), models.EscalationRequest{
		UserID: "u-1", ConversationID: "c-1", Reason: "crisis_keyword", TriggerText: "segítség",
	})

	assert.True(t, out.Succeeded())
	assert.True(t, out.MarkedHumanOwned)
	assert.True(t, out.PhoneDecrypted)
	assert.Equal(t, "+36 30 111 2222", out.CustomerPhone)
	assert.Equal(t, []string{models.ChannelEmail}, out.NotifiedChannels)
	assert.Equal(t, escalationSubject["hu"], sent.Subject)
	assert.Contains(t, sent.Body, "+36 30 111 2222")
	assert.NotEmpty(t, sent.ID)
}

func TestEscalate_DecryptFailureUsesMaskedPhone(t *testing.T) {
	conv, contacts, dec, notifier := happyDeps()
	dec.DecryptFunc = func(string) (string, error) { return "", errors.New("bad key") }
	var body string
	notifier.NotifyMerchantFunc = func(ctx context.Context, c models.MerchantContact, n models.Notification) ([]string, error) {
		body = n.Body
		return []string{models.ChannelSMS}, nil
	}

	out := NewEscalator(conv, contacts, dec, notifier, logger.NewNoOpLogger()).
		Escalate(context.Background(), models.EscalationRequest{ConversationID: "c-1", UserID: "u-1"})

	assert.False(t, out.PhoneDecrypted)
	assert.Equal(t, MaskedPhone, out.CustomerPhone)
	assert.Contains(t, body, MaskedPhone)
	require.Len(t, out.Failures, 1)
	assert.Contains(t, out.Failures[0], StepDecryptPhone)
	assert.Equal(t, []string{models.ChannelSMS}, out.NotifiedChannels)
}

func TestEscalate_PanicsAndErrorsNeverEscape(t *testing.T) {
	conv, contacts, dec, notifier := happyDeps()
	conv.MarkHumanOwnedFunc = func(ctx context.Context, id string, at time.Time) error { panic("nil pointer in store") }
	notifier.NotifyMerchantFunc = func(ctx context.Context, c models.MerchantContact, n models.Notification) ([]string, error) {
		return nil, errors.New("ses throttled")
	}

	var out models.EscalationOutcome
	assert.NotPanics(t, func() {
		out = NewEscalator(conv, contacts, dec, notifier, logger.NewNoOpLogger()).
			Escalate(context.Background(), models.EscalationRequest{ConversationID: "c-9"})
	})

	assert.False(t, out.MarkedHumanOwned)
	assert.True(t, out.PhoneDecrypted)
	assert.Len(t, out.Failures, 2)
	assert.Empty(t, out.NotifiedChannels)
}

func TestEscalate_NoMerchantContactSkipsNotify(t *testing.T) {
	conv, contacts, dec, notifier := happyDeps()
	conv.GetMerchantContactFunc = func(ctx context.Context, id string) (*models.MerchantContact, error) {
		return nil, errors.New("sql: no rows in result set")
	}
	called := false
	notifier.NotifyMerchantFunc = func(ctx context.Context, c models.MerchantContact, n models.Notification) ([]string, error) {
		called = true
		return nil, nil
	}

	out := NewEscalator(conv, contacts, dec, notifier, logger.NewNoOpLogger()).
		Escalate(context.Background(), models.EscalationRequest{ConversationID: "c-1"})

	assert.False(t, called)
	assert.True(t, out.MarkedHumanOwned)
	require.Len(t, out.Failures, 1)
	assert.Contains(t, out.Failures[0], StepMerchantLookup)
}
