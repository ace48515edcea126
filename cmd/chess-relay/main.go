package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/park285/chess-relay/internal/archive"
	appcfg "github.com/park285/chess-relay/internal/config"
	"github.com/park285/chess-relay/internal/httpapi"
	"github.com/park285/chess-relay/internal/mirror"
	"github.com/park285/chess-relay/internal/notify"
	"github.com/park285/chess-relay/internal/obslog"
	"github.com/park285/chess-relay/internal/relay"
	"github.com/park285/chess-relay/internal/render"
	"github.com/park285/chess-relay/internal/rules"
	"github.com/park285/chess-relay/internal/session"
	"github.com/park285/chess-relay/internal/transport"
)

func main() {
	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	logger, err := obslog.Init(cfg.Log)
	if err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	sess, err := session.New(rules.NewChess(), session.WithStartPosition(rules.Position(cfg.InitialFEN)))
	if err != nil {
		logger.Fatal("session_init_failed", zap.Error(err))
	}

	// 부가 리스너: 설정된 URL이 있는 것만 붙인다
	var (
		listeners []relay.Listener
		closers   []func() error
	)
	if cfg.RedisURL != "" {
		pub, err := mirror.New(cfg.RedisURL, logger.Named("mirror"))
		if err != nil {
			logger.Fatal("mirror_init_failed", zap.Error(err))
		}
		listeners = append(listeners, pub)
		closers = append(closers, pub.Close)
	}
	if cfg.DatabaseURL != "" {
		repo, err := archive.NewRepository(cfg.DatabaseURL, logger.Named("archive"))
		if err != nil {
			logger.Fatal("archive_init_failed", zap.Error(err))
		}
		listeners = append(listeners, repo)
		closers = append(closers, repo.Close)
	}
	if cfg.ResultWebhookURL != "" {
		listeners = append(listeners, notify.New(cfg.ResultWebhookURL, notify.WithLogger(logger.Named("notify"))))
	}

	disp := relay.NewDispatcher(logger.Named("dispatch"), cfg.ListenerQueue, cfg.ListenerTimeout, listeners...)
	go disp.Run()

	hub := relay.NewHub(sess,
		relay.WithLogger(logger),
		relay.WithQueueSize(cfg.EventQueueSize),
		relay.WithOutOfTurnNotice(cfg.NotifyOutOfTurn),
		relay.WithDispatcher(disp),
	)
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go hub.Run(ctx)

	socket := transport.NewServer(hub,
		transport.WithLogger(logger),
		transport.WithOriginPatterns(cfg.AllowedOrigins...),
		transport.WithSendBuffer(cfg.PeerSendBuffer),
		transport.WithReadLimit(cfg.ReadLimit),
		transport.WithPingInterval(cfg.PingInterval),
	)
	router := httpapi.NewRouter(httpapi.Deps{
		Hub:      hub,
		Socket:   socket,
		Renderer: render.New(render.DefaultSquareSize),
		Log:      logger.Named("http"),
	})

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("relay_listening",
			zap.String("addr", srv.Addr),
			zap.String("session_id", sess.ID()),
			zap.Int("listeners", len(listeners)),
		)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("relay_shutdown_signal")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("relay_listen_failed", zap.Error(err))
		}
		stop()
	}

	// 종료 순서: HTTP 서버 → 허브 루프 → 디스패처 큐 비우기 → 외부 연결 닫기
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("relay_http_shutdown", zap.Error(err))
	}
	<-hub.Done()
	if err := disp.Close(shutdownCtx); err != nil {
		logger.Warn("relay_dispatcher_drain", zap.Error(err))
	}
	for _, c := range closers {
		_ = c()
	}
	logger.Info("relay_stopped")
}
