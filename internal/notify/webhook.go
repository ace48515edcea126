// Package notify posts a JSON summary of each finished game to a webhook.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/park285/chess-relay/internal/relay"
	"github.com/park285/chess-relay/internal/session"
)

// HeaderProvider supplies extra headers per request, e.g. a bearer token.
type HeaderProvider func() map[string]string

type Webhook struct {
	url     string
	http    *fasthttp.Client
	headers HeaderProvider
	log     *zap.Logger

	timeout  time.Duration
	retryMax int
}

type Option func(*Webhook)

func WithTimeout(d time.Duration) Option {
	return func(w *Webhook) {
		if d > 0 {
			w.timeout = d
		}
	}
}

func WithRetry(max int) Option {
	return func(w *Webhook) { w.retryMax = max }
}

func WithHeaderProvider(h HeaderProvider) Option {
	return func(w *Webhook) { w.headers = h }
}

func WithLogger(l *zap.Logger) Option {
	return func(w *Webhook) {
		if l != nil {
			w.log = l
		}
	}
}

func New(url string, opts ...Option) *Webhook {
	w := &Webhook{
		url:      strings.TrimSpace(url),
		http:     &fasthttp.Client{ReadTimeout: 5 * time.Second, WriteTimeout: 5 * time.Second, MaxConnsPerHost: 8},
		log:      zap.NewNop(),
		timeout:  5 * time.Second,
		retryMax: 3,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Summary is the webhook body.
type Summary struct {
	SessionID  string    `json:"session_id"`
	Outcome    string    `json:"outcome"`
	Method     string    `json:"method,omitempty"`
	Winner     string    `json:"winner,omitempty"`
	Plies      int       `json:"plies"`
	Moves      []string  `json:"moves"`
	Final      string    `json:"final_position"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

func summarize(snap session.Snapshot) Summary {
	moves := make([]string, 0, len(snap.Log))
	for _, rec := range snap.Log {
		moves = append(moves, rec.SAN)
	}
	s := Summary{
		SessionID:  snap.ID,
		Outcome:    string(snap.Outcome),
		Method:     snap.Method,
		Plies:      len(snap.Log),
		Moves:      moves,
		Final:      string(snap.Position),
		StartedAt:  snap.StartedAt,
		FinishedAt: snap.UpdatedAt,
	}
	if side := snap.Outcome.Winner(); side != "" {
		s.Winner = string(session.RoleFor(side, snap.FirstSide))
	}
	return s
}

func (w *Webhook) MoveAccepted(context.Context, relay.MoveEvent, session.Snapshot) error {
	return nil
}

func (w *Webhook) GameFinished(ctx context.Context, snap session.Snapshot) error {
	if w == nil || w.url == "" {
		return nil
	}
	if err := w.post(ctx, summarize(snap)); err != nil {
		w.log.Warn("notify_webhook_error", zap.String("session_id", snap.ID), zap.Error(err))
		return err
	}
	w.log.Info("notify_webhook_sent", zap.String("session_id", snap.ID))
	return nil
}

func (w *Webhook) post(ctx context.Context, body any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()
	req.Header.SetMethod(fasthttp.MethodPost)
	req.SetRequestURI(w.url)
	req.Header.SetContentType("application/json")
	if w.headers != nil {
		for k, v := range w.headers() {
			if strings.TrimSpace(k) != "" && strings.TrimSpace(v) != "" {
				req.Header.Set(k, v)
			}
		}
	}
	req.SetBody(payload)

	attempts := w.retryMax
	if attempts <= 0 {
		attempts = 1
	}
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		err := w.http.DoDeadline(req, resp, w.deadline(ctx))
		if err == nil {
			status := resp.StatusCode()
			if status >= 200 && status < 300 {
				return nil
			}
			err = fmt.Errorf("webhook status=%d body=%s", status, truncate(string(resp.Body()), 256))
			if !shouldRetryStatus(status) {
				return err
			}
		}
		lastErr = err
		if attempt == attempts {
			break
		}
		if sleepErr := sleepWithContext(ctx, backoff(attempt)); sleepErr != nil {
			break
		}
	}
	if lastErr == nil {
		lastErr = errors.New("webhook: no attempt made")
	}
	return lastErr
}

func (w *Webhook) deadline(ctx context.Context) time.Time {
	own := time.Now().Add(w.timeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(own) {
		return dl
	}
	return own
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// backoff doubles from 100ms and caps at 3.2s.
func backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 6 {
		attempt = 6
	}
	return time.Duration(1<<uint(attempt-1)) * 100 * time.Millisecond
}

func shouldRetryStatus(code int) bool {
	switch code {
	case fasthttp.StatusTooManyRequests, fasthttp.StatusInternalServerError, fasthttp.StatusBadGateway,
		fasthttp.StatusServiceUnavailable, fasthttp.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
