// Package redisstore keeps practice sessions in Redis: one hash per session,
// list keys for answers and recordings, and a per-user sorted set for listing.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/zhouzirui/msl-practice/backend/internal/model/practice"
)

const keyPrefix = "practice:"

var appendAnswerScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then return -1 end
redis.call('RPUSH', KEYS[2], ARGV[1])
local cur = tonumber(redis.call('HGET', KEYS[1], 'currentQuestionIndex') or '0')
local nxt = tonumber(ARGV[2])
if nxt > cur then
  redis.call('HSET', KEYS[1], 'currentQuestionIndex', nxt)
  cur = nxt
end
return cur
`)

var appendRecordingScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then return -1 end
return redis.call('RPUSH', KEYS[2], ARGV[1]) - 1
`)

var completeScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then return 0 end
if redis.call('HGET', KEYS[1], 'status') ~= ARGV[1] then
  redis.call('HSET', KEYS[1], 'status', ARGV[1], 'completedAt', ARGV[2])
end
return 1
`)

// sessionDoc holds the fields that never change after start.
type sessionDoc struct {
	ID          string              `json:"sessionId"`
	UserID      string              `json:"userId"`
	PersonaID   string              `json:"personaId"`
	PersonaName string              `json:"personaName"`
	Difficulty  string              `json:"difficulty"`
	Questions   []practice.Question `json:"questions"`
	CreatedAt   time.Time           `json:"createdAt"`
}

// SessionStore implements practice.Store on Redis.
type SessionStore struct {
	client redis.UniversalClient
}

var _ practice.Store = (*SessionStore)(nil)

// NewSessionStore wraps an existing client.
func NewSessionStore(client redis.UniversalClient) *SessionStore {
	return &SessionStore{client: client}
}

// Dial parses a redis:// URL, connects and pings.
func Dial(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return client, nil
}

func sessionKey(id string) string    { return keyPrefix + "session:" + id }
func answersKey(id string) string    { return keyPrefix + "session:" + id + ":answers" }
func recordingsKey(id string) string { return keyPrefix + "session:" + id + ":recordings" }
func userKey(userID string) string   { return keyPrefix + "user:" + userID + ":sessions" }

func (s *SessionStore) Put(ctx context.Context, sess *practice.Session) error {
	doc, err := json.Marshal(sessionDoc{
		ID:          sess.ID,
		UserID:      sess.UserID,
		PersonaID:   sess.PersonaID,
		PersonaName: sess.PersonaName,
		Difficulty:  sess.Difficulty,
		Questions:   sess.Questions,
		CreatedAt:   sess.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	answers, err := marshalEach(sess.Answers)
	if err != nil {
		return err
	}
	recordings, err := marshalEach(sess.Recordings)
	if err != nil {
		return err
	}

	completedAt := ""
	if sess.CompletedAt != nil {
		completedAt = sess.CompletedAt.Format(time.RFC3339Nano)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, answersKey(sess.ID), recordingsKey(sess.ID))
		pipe.HSet(ctx, sessionKey(sess.ID),
			"doc", doc,
			"status", string(sess.Status),
			"currentQuestionIndex", sess.CurrentQuestionIndex,
			"completedAt", completedAt,
		)
		if len(answers) > 0 {
			pipe.RPush(ctx, answersKey(sess.ID), answers...)
		}
		if len(recordings) > 0 {
			pipe.RPush(ctx, recordingsKey(sess.ID), recordings...)
		}
		pipe.ZAdd(ctx, userKey(sess.UserID), redis.Z{
			Score:  float64(sess.CreatedAt.UnixMilli()),
			Member: sess.ID,
		})
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

func (s *SessionStore) Get(ctx context.Context, id string) (*practice.Session, error) {
	var (
		fields     *redis.MapStringStringCmd
		answers    *redis.StringSliceCmd
		recordings *redis.StringSliceCmd
	)
	_, err := s.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		fields = pipe.HGetAll(ctx, sessionKey(id))
		answers = pipe.LRange(ctx, answersKey(id), 0, -1)
		recordings = pipe.LRange(ctx, recordingsKey(id), 0, -1)
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	hash := fields.Val()
	if len(hash) == 0 {
		return nil, practice.ErrSessionNotFound
	}
	return decodeSession(hash, answers.Val(), recordings.Val())
}

func (s *SessionStore) ListByUser(ctx context.Context, userID string) ([]*practice.Session, error) {
	ids, err := s.client.ZRevRange(ctx, userKey(userID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	out := make([]*practice.Session, 0, len(ids))
	for _, id := range ids {
		sess, err := s.Get(ctx, id)
		if errors.Is(err, practice.ErrSessionNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, sess)
	}
	practice.SortNewestFirst(out)
	return out, nil
}

func (s *SessionStore) AppendAnswer(ctx context.Context, id string, a practice.Answer, nextIndex int) (int, error) {
	payload, err := json.Marshal(a)
	if err != nil {
		return 0, fmt.Errorf("marshal answer: %w", err)
	}
	current, err := appendAnswerScript.Run(ctx, s.client,
		[]string{sessionKey(id), answersKey(id)}, string(payload), nextIndex).Int()
	if err != nil {
		return 0, fmt.Errorf("failed to append answer: %w", err)
	}
	if current < 0 {
		return 0, practice.ErrSessionNotFound
	}
	return current, nil
}

func (s *SessionStore) AppendRecording(ctx context.Context, id string, r practice.Recording) (int, error) {
	payload, err := json.Marshal(r)
	if err != nil {
		return 0, fmt.Errorf("marshal recording: %w", err)
	}
	index, err := appendRecordingScript.Run(ctx, s.client,
		[]string{sessionKey(id), recordingsKey(id)}, string(payload)).Int()
	if err != nil {
		return 0, fmt.Errorf("failed to append recording: %w", err)
	}
	if index < 0 {
		return 0, practice.ErrSessionNotFound
	}
	return index, nil
}

func (s *SessionStore) Complete(ctx context.Context, id string, at time.Time) (*practice.Session, error) {
	found, err := completeScript.Run(ctx, s.client, []string{sessionKey(id)},
		string(practice.StatusCompleted), at.UTC().Format(time.RFC3339Nano)).Int()
	if err != nil {
		return nil, fmt.Errorf("failed to complete session: %w", err)
	}
	if found == 0 {
		return nil, practice.ErrSessionNotFound
	}
	return s.Get(ctx, id)
}

func decodeSession(hash map[string]string, answers, recordings []string) (*practice.Session, error) {
	var doc sessionDoc
	if err := json.Unmarshal([]byte(hash["doc"]), &doc); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}

	sess := &practice.Session{
		ID:          doc.ID,
		UserID:      doc.UserID,
		PersonaID:   doc.PersonaID,
		PersonaName: doc.PersonaName,
		Difficulty:  doc.Difficulty,
		Questions:   doc.Questions,
		Status:      practice.Status(hash["status"]),
		CreatedAt:   doc.CreatedAt,
		Answers:     make([]practice.Answer, 0, len(answers)),
		Recordings:  make([]practice.Recording, 0, len(recordings)),
	}

	if raw := hash["currentQuestionIndex"]; raw != "" {
		idx, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("decode currentQuestionIndex: %w", err)
		}
		sess.CurrentQuestionIndex = idx
	}
	if raw := hash["completedAt"]; raw != "" {
		at, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return nil, fmt.Errorf("decode completedAt: %w", err)
		}
		sess.CompletedAt = &at
	}

	for _, raw := range answers {
		var a practice.Answer
		if err := json.Unmarshal([]byte(raw), &a); err != nil {
			return nil, fmt.Errorf("decode answer: %w", err)
		}
		sess.Answers = append(sess.Answers, a)
	}
	for _, raw := range recordings {
		var r practice.Recording
		if err := json.Unmarshal([]byte(raw), &r); err != nil {
			return nil, fmt.Errorf("decode recording: %w", err)
		}
		sess.Recordings = append(sess.Recordings, r)
	}
	return sess, nil
}

func marshalEach[T any](items []T) ([]any, error) {
	out := make([]any, 0, len(items))
	for _, item := range items {
		raw, err := json.Marshal(item)
		if err != nil {
			return nil, fmt.Errorf("marshal item: %w", err)
		}
		out = append(out, string(raw))
	}
	return out, nil
}
