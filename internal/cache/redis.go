// Package cache реализует хранение сессий, точек ЭЭГ и тревог в Redis
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"neurodrive-service/internal/models"
)

const (
	// SessionKeyPrefix префикс ключей сессий
	SessionKeyPrefix = "session:"
	// SessionIndexKey множество идентификаторов сессий
	SessionIndexKey = "sessions:index"
	// SamplesKeyPrefix префикс списков точек данных по сессиям
	SamplesKeyPrefix = "eeg:samples:"
	// AlertsKeyPrefix префикс списков тревог по сессиям
	AlertsKeyPrefix = "alerts:session:"
	// AlertsGlobalKey общий список тревог
	AlertsGlobalKey = "alerts:all"
	// SamplesCounterKey счетчик принятых точек
	SamplesCounterKey = "samples:total"
	// AlertsCounterKey счетчик тревог
	AlertsCounterKey = "alerts:total"
	// AlertIDKey генератор идентификаторов тревог
	AlertIDKey = "alerts:next_id"
	// LatestSampleKeyPrefix последняя точка по сессии
	LatestSampleKeyPrefix = "eeg:latest:"
	// LatestSampleTTL время жизни снимка последней точки
	LatestSampleTTL = time.Hour
	// MaxSamplesPerSession храним последние N точек на сессию
	MaxSamplesPerSession = 10000
	// MaxAlerts храним последние N тревог
	MaxAlerts = 1000
	// SamplesTTL время жизни точек данных
	SamplesTTL = 24 * time.Hour
)

// RedisCache хранилище на Redis
type RedisCache struct {
	client *redis.Client
	ctx    context.Context
}

// NewRedisCache создает новое подключение к Redis
func NewRedisCache(addr, password string, db int) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		PoolSize:     100,
		MinIdleConns: 10,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx := context.Background()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisCache{client: client, ctx: ctx}, nil
}

// CacheSample сохраняет точку данных сессии.
// Горячий путь приема - пишем конвейером
func (r *RedisCache) CacheSample(rec models.EEGRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal eeg record: %w", err)
	}

	key := SamplesKeyPrefix + rec.SessionID.String()

	pipe := r.client.Pipeline()
	pipe.LPush(r.ctx, key, data)
	pipe.LTrim(r.ctx, key, 0, MaxSamplesPerSession-1)
	pipe.Expire(r.ctx, key, SamplesTTL)
	pipe.Incr(r.ctx, SamplesCounterKey)

	if _, err := pipe.Exec(r.ctx); err != nil {
		return fmt.Errorf("failed to cache eeg record: %w", err)
	}
	return nil
}

// GetRecentSamples возвращает последние N точек сессии (новые первыми)
func (r *RedisCache) GetRecentSamples(sessionID uuid.UUID, count int64) ([]models.EEGRecord, error) {
	return r.samplesRange(sessionID, 0, count-1)
}

// GetSamplesPage возвращает страницу точек сессии и общее количество
func (r *RedisCache) GetSamplesPage(sessionID uuid.UUID, page, pageSize int) ([]models.EEGRecord, int64, error) {
	key := SamplesKeyPrefix + sessionID.String()

	total, err := r.client.LLen(r.ctx, key).Result()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count samples: %w", err)
	}

	start := int64(page-1) * int64(pageSize)
	records, err := r.samplesRange(sessionID, start, start+int64(pageSize)-1)
	if err != nil {
		return nil, 0, err
	}
	return records, total, nil
}

func (r *RedisCache) samplesRange(sessionID uuid.UUID, start, stop int64) ([]models.EEGRecord, error) {
	key := SamplesKeyPrefix + sessionID.String()

	data, err := r.client.LRange(r.ctx, key, start, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get samples: %w", err)
	}

	records := make([]models.EEGRecord, 0, len(data))
	for _, d := range data {
		var rec models.EEGRecord
		if err := json.Unmarshal([]byte(d), &rec); err != nil {
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

// SaveSession сохраняет сессию и индексирует ее
func (r *RedisCache) SaveSession(s models.Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	pipe := r.client.Pipeline()
	pipe.Set(r.ctx, SessionKeyPrefix+s.ID.String(), data, 0)
	pipe.SAdd(r.ctx, SessionIndexKey, s.ID.String())

	if _, err := pipe.Exec(r.ctx); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// GetSession возвращает сессию по идентификатору.
// Отсутствующая сессия - (nil, nil)
func (r *RedisCache) GetSession(id uuid.UUID) (*models.Session, error) {
	data, err := r.client.Get(r.ctx, SessionKeyPrefix+id.String()).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	var s models.Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return &s, nil
}

// ListSessions возвращает все сессии
func (r *RedisCache) ListSessions() ([]models.Session, error) {
	ids, err := r.client.SMembers(r.ctx, SessionIndexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	sessions := make([]models.Session, 0, len(ids))
	for _, id := range ids {
		sid, err := uuid.Parse(id)
		if err != nil {
			continue
		}
		s, err := r.GetSession(sid)
		if err != nil || s == nil {
			continue
		}
		sessions = append(sessions, *s)
	}
	return sessions, nil
}

// DeleteSession удаляет сессию вместе с ее точками и тревогами
func (r *RedisCache) DeleteSession(id uuid.UUID) error {
	pipe := r.client.Pipeline()
	pipe.Del(r.ctx, SessionKeyPrefix+id.String())
	pipe.Del(r.ctx, SamplesKeyPrefix+id.String())
	pipe.Del(r.ctx, AlertsKeyPrefix+id.String())
	pipe.Del(r.ctx, LatestSampleKeyPrefix+id.String())
	pipe.SRem(r.ctx, SessionIndexKey, id.String())

	if _, err := pipe.Exec(r.ctx); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// AppendAlert сохраняет тревогу, присвоив ей идентификатор.
// Возвращает тревогу с заполненным ID
func (r *RedisCache) AppendAlert(a models.Alert) (models.Alert, error) {
	id, err := r.client.Incr(r.ctx, AlertIDKey).Result()
	if err != nil {
		return a, fmt.Errorf("failed to allocate alert id: %w", err)
	}
	a.ID = id

	data, err := json.Marshal(a)
	if err != nil {
		return a, fmt.Errorf("failed to marshal alert: %w", err)
	}

	pipe := r.client.Pipeline()
	pipe.LPush(r.ctx, AlertsGlobalKey, data)
	pipe.LTrim(r.ctx, AlertsGlobalKey, 0, MaxAlerts-1)
	pipe.LPush(r.ctx, AlertsKeyPrefix+a.SessionID.String(), data)
	pipe.LTrim(r.ctx, AlertsKeyPrefix+a.SessionID.String(), 0, MaxAlerts-1)
	pipe.Incr(r.ctx, AlertsCounterKey)

	if _, err := pipe.Exec(r.ctx); err != nil {
		return a, fmt.Errorf("failed to append alert: %w", err)
	}
	return a, nil
}

// AlertFilter фильтры списка тревог
type AlertFilter struct {
	SessionID    *uuid.UUID
	Level        string
	Acknowledged *bool
}

// GetAlerts возвращает тревоги с фильтрацией и пагинацией (новые первыми)
func (r *RedisCache) GetAlerts(f AlertFilter, limit, offset int) ([]models.Alert, int, error) {
	key := AlertsGlobalKey
	if f.SessionID != nil {
		key = AlertsKeyPrefix + f.SessionID.String()
	}

	data, err := r.client.LRange(r.ctx, key, 0, MaxAlerts-1).Result()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get alerts: %w", err)
	}

	matched := make([]models.Alert, 0, len(data))
	for _, d := range data {
		var a models.Alert
		if err := json.Unmarshal([]byte(d), &a); err != nil {
			continue
		}
		if f.Level != "" && a.Level != f.Level {
			continue
		}
		if f.Acknowledged != nil && a.Acknowledged != *f.Acknowledged {
			continue
		}
		matched = append(matched, a)
	}

	total := len(matched)
	if offset >= total {
		return []models.Alert{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return matched[offset:end], total, nil
}

// AcknowledgeAlert помечает тревогу подтвержденной в обоих списках
func (r *RedisCache) AcknowledgeAlert(id int64) (*models.Alert, error) {
	alert, err := r.ackInList(AlertsGlobalKey, id)
	if err != nil || alert == nil {
		return alert, err
	}
	// Зеркалим в списке сессии; несовпадение не фатально
	_, _ = r.ackInList(AlertsKeyPrefix+alert.SessionID.String(), id)
	return alert, nil
}

// ackScript атомарно находит тревогу по id и помечает ее подтвержденной.
// LPUSH новой тревоги между сканом и записью сдвигал бы индексы,
// поэтому поиск и LSET выполняются одним скриптом на сервере
var ackScript = redis.NewScript(`
local n = redis.call('LLEN', KEYS[1])
for i = 0, n - 1 do
	local raw = redis.call('LINDEX', KEYS[1], i)
	local ok, a = pcall(cjson.decode, raw)
	if ok and a.id == tonumber(ARGV[1]) then
		a.acknowledged = true
		local updated = cjson.encode(a)
		redis.call('LSET', KEYS[1], i, updated)
		return updated
	end
end
return false
`)

func (r *RedisCache) ackInList(key string, id int64) (*models.Alert, error) {
	res, err := ackScript.Run(r.ctx, r.client, []string{key}, id).Text()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update alert: %w", err)
	}

	var a models.Alert
	if err := json.Unmarshal([]byte(res), &a); err != nil {
		return nil, fmt.Errorf("failed to unmarshal alert: %w", err)
	}
	return &a, nil
}

// SetWithTTL сохраняет произвольное значение с временем жизни
func (r *RedisCache) SetWithTTL(key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}
	return r.client.Set(r.ctx, key, data, ttl).Err()
}

// Get читает значение в dest; отсутствие ключа возвращает redis.Nil
func (r *RedisCache) Get(key string, dest interface{}) error {
	data, err := r.client.Get(r.ctx, key).Result()
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(data), dest)
}

// GetCounter возвращает значение счетчика
func (r *RedisCache) GetCounter(key string) (int64, error) {
	val, err := r.client.Get(r.ctx, key).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	return val, err
}

// Ping проверяет соединение с Redis
func (r *RedisCache) Ping() error {
	return r.client.Ping(r.ctx).Err()
}

// Close закрывает соединение
func (r *RedisCache) Close() error {
	return r.client.Close()
}

// FlushDB очищает базу (только для тестов)
func (r *RedisCache) FlushDB() error {
	return r.client.FlushDB(r.ctx).Err()
}
