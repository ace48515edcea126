// Package archive stores finished games in PostgreSQL.
package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/park285/chess-relay/internal/relay"
	"github.com/park285/chess-relay/internal/rules"
	"github.com/park285/chess-relay/internal/session"
)

const schema = `CREATE TABLE IF NOT EXISTS relay_games (
    session_id    TEXT PRIMARY KEY,
    start_fen     TEXT NOT NULL,
    final_fen     TEXT NOT NULL,
    result        TEXT NOT NULL,
    result_method TEXT NOT NULL DEFAULT '',
    moves_uci     JSONB NOT NULL,
    moves_san     JSONB NOT NULL,
    pgn           TEXT NOT NULL,
    started_at    TIMESTAMPTZ NOT NULL,
    ended_at      TIMESTAMPTZ NOT NULL,
    duration_ms   BIGINT NOT NULL
)`

type Repository struct {
	db       *sql.DB
	log      *zap.Logger
	standard rules.Position
}

func NewRepository(databaseURL string, log *zap.Logger) (*Repository, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create relay_games: %w", err)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Repository{db: db, log: log, standard: rules.NewChess().Initial()}, nil
}

func (r *Repository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

func (r *Repository) MoveAccepted(context.Context, relay.MoveEvent, session.Snapshot) error {
	return nil
}

func (r *Repository) GameFinished(ctx context.Context, snap session.Snapshot) error {
	if err := r.SaveResult(ctx, snap); err != nil {
		r.log.Error("archive_persist_error", zap.String("session_id", snap.ID), zap.Error(err))
		return err
	}
	r.log.Info("archive_persist", zap.String("session_id", snap.ID), zap.String("outcome", string(snap.Outcome)), zap.String("method", snap.Method))
	return nil
}

// SaveResult upserts a finished game.
func (r *Repository) SaveResult(ctx context.Context, snap session.Snapshot) error {
	if r == nil || r.db == nil {
		return nil
	}
	start := startPosition(snap, r.standard)
	uci := make([]string, 0, len(snap.Log))
	san := make([]string, 0, len(snap.Log))
	for _, rec := range snap.Log {
		uci = append(uci, rec.UCI)
		san = append(san, rec.SAN)
	}
	uciRaw, _ := json.Marshal(uci)
	sanRaw, _ := json.Marshal(san)
	duration := snap.UpdatedAt.Sub(snap.StartedAt).Milliseconds()
	if duration < 0 {
		duration = 0
	}

	q := `INSERT INTO relay_games (
        session_id, start_fen, final_fen, result, result_method,
        moves_uci, moves_san, pgn, started_at, ended_at, duration_ms
      ) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
      ON CONFLICT (session_id) DO UPDATE SET
        final_fen=EXCLUDED.final_fen,
        result=EXCLUDED.result,
        result_method=EXCLUDED.result_method,
        moves_uci=EXCLUDED.moves_uci,
        moves_san=EXCLUDED.moves_san,
        pgn=EXCLUDED.pgn,
        ended_at=EXCLUDED.ended_at,
        duration_ms=EXCLUDED.duration_ms`

	_, err := r.db.ExecContext(ctx, q,
		snap.ID, string(start), string(snap.Position),
		string(snap.Outcome), strings.TrimSpace(snap.Method),
		string(uciRaw), string(sanRaw), buildPGN(snap, start, r.standard),
		snap.StartedAt, snap.UpdatedAt, duration,
	)
	return err
}

func startPosition(snap session.Snapshot, standard rules.Position) rules.Position {
	if len(snap.Log) > 0 {
		return snap.Log[0].Before
	}
	if snap.Position != "" {
		return snap.Position
	}
	return standard
}

func buildPGN(snap session.Snapshot, start, standard rules.Position) string {
	var b strings.Builder
	date := snap.UpdatedAt
	if date.IsZero() {
		date = time.Now()
	}
	result := string(snap.Outcome)
	if result == "" {
		result = string(rules.Ongoing)
	}

	b.WriteString("[Event \"chess-relay\"]\n")
	b.WriteString(fmt.Sprintf("[Site \"%s\"]\n", sanitizePGN(snap.ID)))
	b.WriteString(fmt.Sprintf("[Date \"%04d.%02d.%02d\"]\n", date.Year(), int(date.Month()), date.Day()))
	b.WriteString(fmt.Sprintf("[White \"%s\"]\n", session.RoleFor(rules.White, firstSide(snap, start))))
	b.WriteString(fmt.Sprintf("[Black \"%s\"]\n", session.RoleFor(rules.Black, firstSide(snap, start))))
	if start != standard {
		b.WriteString("[SetUp \"1\"]\n")
		b.WriteString(fmt.Sprintf("[FEN \"%s\"]\n", sanitizePGN(string(start))))
	}
	if m := strings.TrimSpace(snap.Method); m != "" {
		b.WriteString(fmt.Sprintf("[Termination \"%s\"]\n", sanitizePGN(m)))
	}
	b.WriteString(fmt.Sprintf("[Result \"%s\"]\n\n", result))

	moveNo := fullMoveNumber(start)
	for i, rec := range snap.Log {
		if rec.Side == rules.White {
			b.WriteString(fmt.Sprintf("%d. %s ", moveNo, strings.TrimSpace(rec.SAN)))
			continue
		}
		if i == 0 {
			b.WriteString(fmt.Sprintf("%d... ", moveNo))
		}
		b.WriteString(strings.TrimSpace(rec.SAN))
		b.WriteString(" ")
		moveNo++
	}
	b.WriteString(result)
	return b.String()
}

func firstSide(snap session.Snapshot, start rules.Position) rules.Side {
	if snap.FirstSide != "" {
		return snap.FirstSide
	}
	if fields := strings.Fields(string(start)); len(fields) > 1 && fields[1] == "b" {
		return rules.Black
	}
	return rules.White
}

func fullMoveNumber(pos rules.Position) int {
	fields := strings.Fields(string(pos))
	if len(fields) < 6 {
		return 1
	}
	n, err := strconv.Atoi(fields[5])
	if err != nil || n < 1 {
		return 1
	}
	return n
}

func sanitizePGN(s string) string {
	s = strings.ReplaceAll(s, "\\", " ")
	s = strings.ReplaceAll(s, "\"", "'")
	return strings.TrimSpace(s)
}
