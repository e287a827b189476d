package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"commerce-answers/internal/lang"
	"commerce-answers/internal/models"
)

const settingsKeyPrefix = "shop_settings:"

// SettingsStore reads shop settings from postgres with a redis cache in front.
// A nil redis client disables caching.
type SettingsStore struct {
	db     *sql.DB
	redis  *redis.Client
	ttl    time.Duration
	detect func(string) string
	logger Logger
}

func NewSettingsStore(db *sql.DB, rdb *redis.Client, ttl time.Duration, log Logger) *SettingsStore {
	return &SettingsStore{
		db:     db,
		redis:  rdb,
		ttl:    ttl,
		detect: lang.Detect,
		logger: orNop(log),
	}
}

// GetOrCreateShopSettings returns the shop's settings, creating the row on first
// use with a default source language detected from seedQuestion.
func (s *SettingsStore) GetOrCreateShopSettings(ctx context.Context, shopID, seedQuestion string) (*models.ShopSettings, error) {
	key := settingsKeyPrefix + shopID
	if cached := s.cached(ctx, key); cached != nil {
		return cached, nil
	}

	settings, err := s.selectSettings(ctx, shopID)
	if errors.Is(err, sql.ErrNoRows) {
		seed := lang.OrDefault(s.detect(seedQuestion))
		if _, err := s.db.ExecContext(ctx, `
			INSERT INTO shop_settings (shop_id, default_source_lang, created_at)
			VALUES ($1, $2, NOW())
			ON CONFLICT (shop_id) DO NOTHING`, shopID, seed); err != nil {
			return nil, fmt.Errorf("%w: insert shop_settings: %v", ErrQueryFailed, err)
		}
		// Another request may have won the insert; read what is stored.
		settings, err = s.selectSettings(ctx, shopID)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: select shop_settings: %v", ErrQueryFailed, err)
	}

	s.store(ctx, key, settings)
	return settings, nil
}

func (s *SettingsStore) selectSettings(ctx context.Context, shopID string) (*models.ShopSettings, error) {
	var settings models.ShopSettings
	var defaultLang sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT shop_id, default_source_lang, created_at FROM shop_settings WHERE shop_id = $1`,
		shopID,
	).Scan(&settings.ShopID, &defaultLang, &settings.CreatedAt)
	if err != nil {
		return nil, err
	}
	settings.DefaultSourceLang = lang.Normalize(defaultLang.String)
	return &settings, nil
}

func (s *SettingsStore) cached(ctx context.Context, key string) *models.ShopSettings {
	if s.redis == nil {
		return nil
	}
	val, err := s.redis.Get(ctx, key).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.Warn("settings cache read failed", map[string]interface{}{
				"key":   key,
				"error": err.Error(),
			})
		}
		return nil
	}
	var settings models.ShopSettings
	if err := json.Unmarshal([]byte(val), &settings); err != nil {
		return nil
	}
	return &settings
}

func (s *SettingsStore) store(ctx context.Context, key string, settings *models.ShopSettings) {
	if s.redis == nil {
		return
	}
	data, _ := json.Marshal(settings)
	if err := s.redis.Set(ctx, key, data, s.ttl).Err(); err != nil {
		s.logger.Warn("settings cache write failed", map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		})
	}
}

// Invalidate drops the cached settings of a shop.
func (s *SettingsStore) Invalidate(ctx context.Context, shopID string) error {
	if s.redis == nil {
		return nil
	}
	return s.redis.Del(ctx, settingsKeyPrefix+shopID).Err()
}
