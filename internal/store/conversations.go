package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"commerce-answers/internal/models"
)

// ConversationStore backs the escalation steps.
type ConversationStore struct {
	db *sql.DB
}

func NewConversationStore(db *sql.DB) *ConversationStore {
	return &ConversationStore{db: db}
}

// MarkHumanOwned hands the conversation to the merchant. Marking twice keeps the first timestamp.
func (s *ConversationStore) MarkHumanOwned(ctx context.Context, conversationID string, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE conversations
		SET owner = $2, escalated_at = COALESCE(escalated_at, $3)
		WHERE id = $1`,
		conversationID, models.OwnerHuman, at.UTC())
	if err != nil {
		return fmt.Errorf("%w: conversations: %v", ErrQueryFailed, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: conversation %s", ErrNotFound, conversationID)
	}
	return nil
}

func (s *ConversationStore) GetMerchantContact(ctx context.Context, conversationID string) (*models.MerchantContact, error) {
	var c models.MerchantContact
	var email, phone, lang sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT s.id, s.name, s.contact_email, s.contact_phone, st.default_source_lang
		FROM conversations c
		JOIN shops s ON s.id = c.shop_id
		LEFT JOIN shop_settings st ON st.shop_id = s.id
		WHERE c.id = $1`, conversationID,
	).Scan(&c.ShopID, &c.ShopName, &email, &phone, &lang)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: conversation %s", ErrNotFound, conversationID)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: merchant contact: %v", ErrQueryFailed, err)
	}
	c.Email, c.Phone, c.Lang = email.String, phone.String, lang.String
	return &c, nil
}

// GetEncryptedPhone returns the stored ciphertext, or "" when the customer left no phone.
func (s *ConversationStore) GetEncryptedPhone(ctx context.Context, userID string) (string, error) {
	var phone sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT phone_encrypted FROM customers WHERE id = $1`, userID,
	).Scan(&phone)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: customer %s", ErrNotFound, userID)
	}
	if err != nil {
		return "", fmt.Errorf("%w: customers: %v", ErrQueryFailed, err)
	}
	return phone.String, nil
}
