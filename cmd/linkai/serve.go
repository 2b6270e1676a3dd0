package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hikevindiaz/linkai/internal/channels"
	"github.com/hikevindiaz/linkai/internal/channels/sms"
	"github.com/hikevindiaz/linkai/internal/channels/voice"
	"github.com/hikevindiaz/linkai/internal/channels/web"
	"github.com/hikevindiaz/linkai/internal/channels/whatsapp"
	"github.com/hikevindiaz/linkai/internal/config"
	"github.com/hikevindiaz/linkai/internal/conversation"
	"github.com/hikevindiaz/linkai/internal/knowledge"
	"github.com/hikevindiaz/linkai/internal/observability"
	"github.com/hikevindiaz/linkai/internal/provider"
	"github.com/hikevindiaz/linkai/internal/runtime"
)

func runServe(ctx context.Context, configPath string, debug bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if debug {
		cfg.Logging.Level = "debug"
	}

	logger := observability.NewLogger(observability.LogConfig{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	metrics := observability.NewMetrics(nil)

	store, closeStore, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	registry, err := buildProviders(ctx, cfg, logger)
	if err != nil {
		return err
	}
	if len(registry.Names()) == 0 {
		return errors.New("no provider configured: set at least one providers.*.api_key")
	}

	rt := runtime.New(
		runtime.StaticConfigSource(cfg.AgentMap()),
		store,
		registry,
		runtime.Options{
			Retriever:      knowledge.NewStaticRetriever(cfg.Retrieval.Sources),
			Logger:         logger,
			Metrics:        metrics,
			RetrievalLimit: cfg.Retrieval.Limit,
		},
	)

	mux := http.NewServeMux()
	if err := mountChannels(cfg, rt, logger, mux); err != nil {
		return err
	}
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	})

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info(ctx, "server listening", "addr", server.Addr, "providers", registry.Names())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info(context.Background(), "shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func openStore(cfg *config.Config) (conversation.Store, func(), error) {
	locker := conversation.NewThreadLocker(time.Minute, 5*time.Minute)

	switch cfg.Storage.Driver {
	case "sqlite":
		sqlite, err := conversation.NewSQLiteStore(cfg.Storage.Path)
		if err != nil {
			locker.Close()
			return nil, nil, err
		}
		return conversation.NewLockingStore(sqlite, locker), func() {
			locker.Close()
			sqlite.Close()
		}, nil
	default:
		memory := conversation.NewMemoryStore(cfg.Storage.MaxMessages)
		return conversation.NewLockingStore(memory, locker), func() { locker.Close() }, nil
	}
}

func buildProviders(ctx context.Context, cfg *config.Config, logger *observability.Logger) (*provider.Registry, error) {
	registry := provider.NewRegistry()

	if cfg.Providers.OpenAI.Enabled() {
		gw := provider.NewOpenAIGateway(cfg.Providers.OpenAI.APIKey, logger)
		if err := registry.Register(provider.NewRetryingGateway(gw, logger)); err != nil {
			return nil, err
		}
	}
	if cfg.Providers.Anthropic.Enabled() {
		gw := provider.NewAnthropicGateway(cfg.Providers.Anthropic.APIKey, logger)
		if err := registry.Register(provider.NewRetryingGateway(gw, logger)); err != nil {
			return nil, err
		}
	}
	if cfg.Providers.Google.Enabled() {
		gw, err := provider.NewGoogleGateway(ctx, cfg.Providers.Google.APIKey, logger)
		if err != nil {
			return nil, err
		}
		if err := registry.Register(provider.NewRetryingGateway(gw, logger)); err != nil {
			return nil, err
		}
	}
	return registry, nil
}

func mountChannels(cfg *config.Config, rt *runtime.Runtime, logger *observability.Logger, mux *http.ServeMux) error {
	adapters := channels.NewRegistry()

	if cfg.Channels.Web.Enabled {
		adapter := web.New(cfg.Channels.Web.AgentID, logger)
		if err := adapters.Register(adapter); err != nil {
			return err
		}
		web.NewHandler(adapter, rt).Routes(mux, "/web")
	}
	if cfg.Channels.Voice.Enabled {
		sender := newOutboundSender(cfg.Channels.Voice.OutboundURL, logger)
		adapter := voice.New(cfg.Channels.Voice.AgentID, sender, logger)
		if err := adapters.Register(adapter); err != nil {
			return err
		}
		mux.HandleFunc("POST /webhooks/voice", channels.WebhookHandler(adapter, rt, logger))
	}
	if cfg.Channels.SMS.Enabled {
		sender := newOutboundSender(cfg.Channels.SMS.OutboundURL, logger)
		adapter := sms.New(cfg.Channels.SMS.AgentID, sender, logger)
		if err := adapters.Register(adapter); err != nil {
			return err
		}
		mux.HandleFunc("POST /webhooks/sms", channels.WebhookHandler(adapter, rt, logger))
	}
	if cfg.Channels.WhatsApp.Enabled {
		sender := newOutboundSender(cfg.Channels.WhatsApp.OutboundURL, logger)
		adapter := whatsapp.New(cfg.Channels.WhatsApp.AgentID, sender, logger)
		if err := adapters.Register(adapter); err != nil {
			return err
		}
		mux.HandleFunc("POST /webhooks/whatsapp", channels.WebhookHandler(adapter, rt, logger))
	}
	return nil
}
