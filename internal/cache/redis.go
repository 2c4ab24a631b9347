package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"spacecraft-telemetry-analyzer/internal/profile"
)

// Ключи хранения
const (
	userProfilesKey = "profiles:user"
	profileOrderKey = "profiles:order"
	summaryKeyFmt   = "summary:%s:%d"
	summaryListFmt  = "summary_list:%s"
)

// RedisStore обертка для Redis клиента: хранит пользовательские профили и
// снимки результатов анализа
type RedisStore struct {
	client *redis.Client
	ctx    context.Context
	ttl    time.Duration
}

// NewRedisStore создает подключение к Redis
func NewRedisStore(addr, password string, db int, snapshotTTL time.Duration) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		PoolSize:     100,
		MinIdleConns: 10,
		MaxRetries:   3,
	})

	ctx := context.Background()

	// Проверяем подключение
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisStore{
		client: client,
		ctx:    ctx,
		ttl:    snapshotTTL,
	}, nil
}

// SaveUserProfile сохраняет пользовательский профиль; порядок создания
// фиксируется в sorted set при первом сохранении имени
func (r *RedisStore) SaveUserProfile(p profile.MissionProfile) error {
	jsonData, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to marshal profile: %w", err)
	}

	score := float64(time.Now().UnixNano())

	pipe := r.client.Pipeline()
	pipe.HSet(r.ctx, userProfilesKey, p.Name, jsonData)
	pipe.ZAddNX(r.ctx, profileOrderKey, redis.Z{Score: score, Member: p.Name})

	_, err = pipe.Exec(r.ctx)
	return err
}

// LoadUserProfiles возвращает пользовательские профили в порядке создания
func (r *RedisStore) LoadUserProfiles() ([]profile.MissionProfile, error) {
	names, err := r.client.ZRange(r.ctx, profileOrderKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read profile order: %w", err)
	}
	if len(names) == 0 {
		return nil, nil
	}

	raw, err := r.client.HMGet(r.ctx, userProfilesKey, names...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read profiles: %w", err)
	}

	profiles := make([]profile.MissionProfile, 0, len(raw))
	for _, item := range raw {
		s, ok := item.(string)
		if !ok {
			continue
		}
		var p profile.MissionProfile
		if err := json.Unmarshal([]byte(s), &p); err != nil {
			continue
		}
		profiles = append(profiles, p)
	}
	return profiles, nil
}

// StoreSummary сохраняет снимок результата анализа сессии
func (r *RedisStore) StoreSummary(sessionID string, timestamp time.Time, data interface{}) error {
	key := fmt.Sprintf(summaryKeyFmt, sessionID, timestamp.UnixNano())

	jsonData, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal summary: %w", err)
	}

	// Добавляем в sorted set для легкого извлечения истории
	score := float64(timestamp.UnixNano())
	listKey := fmt.Sprintf(summaryListFmt, sessionID)

	pipe := r.client.Pipeline()
	pipe.Set(r.ctx, key, jsonData, r.ttl)
	pipe.ZAdd(r.ctx, listKey, redis.Z{Score: score, Member: key})
	pipe.Expire(r.ctx, listKey, r.ttl)

	_, err = pipe.Exec(r.ctx)
	return err
}

// RecentSummaries возвращает последние снимки анализа сессии (новые первыми)
func (r *RedisStore) RecentSummaries(sessionID string, limit int) ([]json.RawMessage, error) {
	listKey := fmt.Sprintf(summaryListFmt, sessionID)

	keys, err := r.client.ZRevRange(r.ctx, listKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get summary history: %w", err)
	}
	if len(keys) == 0 {
		return nil, nil
	}

	raw, err := r.client.MGet(r.ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get summaries: %w", err)
	}

	summaries := make([]json.RawMessage, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			summaries = append(summaries, json.RawMessage(s))
		}
	}
	return summaries, nil
}

// Close закрывает соединение с Redis
func (r *RedisStore) Close() error {
	return r.client.Close()
}

// Ping проверяет доступность Redis
func (r *RedisStore) Ping() error {
	return r.client.Ping(r.ctx).Err()
}

// GetStats возвращает статистику пула соединений
func (r *RedisStore) GetStats() map[string]interface{} {
	stats := r.client.PoolStats()

	return map[string]interface{}{
		"hits":        stats.Hits,
		"misses":      stats.Misses,
		"timeouts":    stats.Timeouts,
		"total_conns": stats.TotalConns,
		"idle_conns":  stats.IdleConns,
		"stale_conns": stats.StaleConns,
	}
}
