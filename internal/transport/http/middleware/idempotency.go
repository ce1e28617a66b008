package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"miluim/internal/transport/http/api"
)

const IdempotencyHeader = "Idempotency-Key"

var ErrIdempotencyConflict = errors.New("idempotency key conflicts with existing request")

// StoredResponse is what a replayed request receives.
type StoredResponse struct {
	RequestHash string `json:"requestHash"`
	Status      int    `json:"status"`
	ContentType string `json:"contentType"`
	Body        []byte `json:"body"`
}

type IdempotencyStore interface {
	// Check returns the stored response for key, or nil when there is none.
	// A stored response with a different hash is ErrIdempotencyConflict.
	Check(ctx context.Context, key, requestHash string) (*StoredResponse, error)
	Save(ctx context.Context, key string, resp StoredResponse) error
}

func RequestHash(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

type RedisIdempotencyStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedisIdempotencyStore(client *redis.Client, ttl time.Duration) *RedisIdempotencyStore {
	return &RedisIdempotencyStore{client: client, prefix: "miluim:idempotency:", ttl: ttl}
}

func (s *RedisIdempotencyStore) Check(ctx context.Context, key, requestHash string) (*StoredResponse, error) {
	raw, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var stored StoredResponse
	if err := json.Unmarshal(raw, &stored); err != nil {
		return nil, err
	}
	if stored.RequestHash != requestHash {
		return nil, ErrIdempotencyConflict
	}
	return &stored, nil
}

// Save keeps the first response stored under key.
func (s *RedisIdempotencyStore) Save(ctx context.Context, key string, resp StoredResponse) error {
	raw, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	ok, err := s.client.SetNX(ctx, s.prefix+key, raw, s.ttl).Result()
	if err != nil {
		return err
	}
	if !ok {
		existing, err := s.Check(ctx, key, resp.RequestHash)
		if err != nil {
			return err
		}
		if existing == nil {
			return ErrIdempotencyConflict
		}
	}
	return nil
}

type memoryEntry struct {
	resp    StoredResponse
	expires time.Time
}

// MemoryIdempotencyStore serves single-instance deployments without Redis.
type MemoryIdempotencyStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemoryIdempotencyStore(ttl time.Duration) *MemoryIdempotencyStore {
	return &MemoryIdempotencyStore{ttl: ttl, entries: map[string]memoryEntry{}, now: time.Now}
}

func (s *MemoryIdempotencyStore) Check(_ context.Context, key, requestHash string) (*StoredResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[key]
	if !ok {
		return nil, nil
	}
	if s.ttl > 0 && s.now().After(entry.expires) {
		delete(s.entries, key)
		return nil, nil
	}
	if entry.resp.RequestHash != requestHash {
		return nil, ErrIdempotencyConflict
	}
	resp := entry.resp
	return &resp, nil
}

func (s *MemoryIdempotencyStore) Save(_ context.Context, key string, resp StoredResponse) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	if entry, ok := s.entries[key]; ok && (s.ttl <= 0 || now.Before(entry.expires)) {
		if entry.resp.RequestHash != resp.RequestHash {
			return ErrIdempotencyConflict
		}
		return nil
	}
	for k, entry := range s.entries {
		if s.ttl > 0 && now.After(entry.expires) {
			delete(s.entries, k)
		}
	}
	s.entries[key] = memoryEntry{resp: resp, expires: now.Add(s.ttl)}
	return nil
}

type bufferedResponse struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (b *bufferedResponse) WriteHeader(code int) {
	b.status = code
	b.ResponseWriter.WriteHeader(code)
}

func (b *bufferedResponse) Write(p []byte) (int, error) {
	if b.status == 0 {
		b.status = http.StatusOK
	}
	b.body.Write(p)
	return b.ResponseWriter.Write(p)
}

// Idempotency replays the stored response of a POST carrying an
// Idempotency-Key header. Reusing a key with a different body is a 409.
// Server errors are not stored so the client may retry.
func Idempotency(store IdempotencyStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := strings.TrimSpace(r.Header.Get(IdempotencyHeader))
			if store == nil || key == "" || r.Method != http.MethodPost {
				next.ServeHTTP(w, r)
				return
			}
			requestID := GetRequestID(r.Context())
			if len(key) > 128 {
				api.Fail(w, http.StatusBadRequest, "invalid_idempotency_key", "idempotency key is too long", requestID)
				return
			}

			payload, err := io.ReadAll(r.Body)
			if err != nil {
				api.Fail(w, http.StatusRequestEntityTooLarge, "payload_too_large", "request body could not be read", requestID)
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(payload))
			scoped := GetSubject(r) + ":" + r.URL.Path + ":" + key
			hash := RequestHash(append([]byte(r.Header.Get("Content-Type")+"\n"), payload...))

			stored, err := store.Check(r.Context(), scoped, hash)
			if errors.Is(err, ErrIdempotencyConflict) {
				api.Fail(w, http.StatusConflict, "idempotency_conflict", ErrIdempotencyConflict.Error(), requestID)
				return
			}
			if err != nil {
				zap.L().Warn("idempotency lookup failed", zap.Error(err), zap.String("requestId", requestID))
			}
			if stored != nil {
				if stored.ContentType != "" {
					w.Header().Set("Content-Type", stored.ContentType)
				}
				w.Header().Set("Idempotent-Replayed", "true")
				w.WriteHeader(stored.Status)
				_, _ = w.Write(stored.Body)
				return
			}

			recorder := &bufferedResponse{ResponseWriter: w}
			next.ServeHTTP(recorder, r)
			if recorder.status == 0 || recorder.status >= http.StatusInternalServerError {
				return
			}
			resp := StoredResponse{
				RequestHash: hash,
				Status:      recorder.status,
				ContentType: w.Header().Get("Content-Type"),
				Body:        recorder.body.Bytes(),
			}
			if err := store.Save(r.Context(), scoped, resp); err != nil {
				zap.L().Warn("idempotency save failed", zap.Error(err), zap.String("requestId", requestID))
			}
		})
	}
}
