// Package mirror publishes accepted moves and the latest session snapshot to
// redis for external dashboards. Nothing is read back: the relay itself keeps
// no state across restarts.
package mirror

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/park285/chess-relay/internal/relay"
	"github.com/park285/chess-relay/internal/session"
	"github.com/park285/chess-relay/pkg/wire"
)

const ttlSession = 24 * time.Hour

type Publisher struct {
	rdb *redis.Client
	log *zap.Logger
}

// New connects to redisURL and checks the server answers.
func New(redisURL string, log *zap.Logger) (*Publisher, error) {
	opts, err := parseRedisURL(redisURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return NewWithClient(rdb, log), nil
}

func NewWithClient(rdb *redis.Client, log *zap.Logger) *Publisher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Publisher{rdb: rdb, log: log}
}

func (p *Publisher) Close() error {
	if p == nil || p.rdb == nil {
		return nil
	}
	return p.rdb.Close()
}

func keySnapshot(id string) string   { return "relay:" + strings.TrimSpace(id) + ":snapshot" }
func keySAN(id string) string        { return "relay:" + strings.TrimSpace(id) + ":san" }
func channelEvents(id string) string { return "relay:" + strings.TrimSpace(id) + ":events" }

// Event is what subscribers of the events channel receive.
type Event struct {
	Type    string           `json:"type"`
	Ply     int              `json:"ply,omitempty"`
	Move    *wire.MoveRecord `json:"move,omitempty"`
	Outcome string           `json:"outcome,omitempty"`
	Method  string           `json:"method,omitempty"`
	At      time.Time        `json:"at"`
}

func (p *Publisher) MoveAccepted(ctx context.Context, ev relay.MoveEvent, snap session.Snapshot) error {
	rec := relay.ToWireRecord(ev.Record)
	// 기보(SAN) 누적
	if err := p.rdb.RPush(ctx, keySAN(ev.SessionID), rec.SAN).Err(); err != nil {
		return fmt.Errorf("push san: %w", err)
	}
	_ = p.rdb.Expire(ctx, keySAN(ev.SessionID), ttlSession).Err()
	if err := p.saveSnapshot(ctx, snap); err != nil {
		return err
	}
	return p.publish(ctx, ev.SessionID, Event{Type: wire.EventMoveAccepted, Ply: ev.Ply, Move: &rec, At: ev.At})
}

func (p *Publisher) GameFinished(ctx context.Context, snap session.Snapshot) error {
	if err := p.saveSnapshot(ctx, snap); err != nil {
		return err
	}
	p.log.Info("mirror_game_finished", zap.String("session_id", snap.ID), zap.String("outcome", string(snap.Outcome)))
	return p.publish(ctx, snap.ID, Event{
		Type:    wire.EventGameOver,
		Outcome: string(snap.Outcome),
		Method:  snap.Method,
		At:      snap.UpdatedAt,
	})
}

func (p *Publisher) saveSnapshot(ctx context.Context, snap session.Snapshot) error {
	raw, err := json.Marshal(relay.ToWireSnapshot(snap))
	if err != nil {
		return err
	}
	if err := p.rdb.Set(ctx, keySnapshot(snap.ID), raw, ttlSession).Err(); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

func (p *Publisher) publish(ctx context.Context, sessionID string, ev Event) error {
	raw, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if err := p.rdb.Publish(ctx, channelEvents(sessionID), raw).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", ev.Type, err)
	}
	return nil
}

// parseRedisURL redis:// 와 rediss:// 모두 허용. rediss 는 TLS, 쿼리 옵션(pool_size 등)도 그대로 반영된다.
func parseRedisURL(raw string) (*redis.Options, error) {
	opts, err := redis.ParseURL(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return opts, nil
}
