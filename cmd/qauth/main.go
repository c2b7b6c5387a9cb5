package main

import (
	"context"
	"os"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/platinummonkey/qauth/pkg/broker"
	"github.com/platinummonkey/qauth/pkg/config"
	"github.com/platinummonkey/qauth/pkg/observability"
	"github.com/platinummonkey/qauth/pkg/qps"
	"github.com/platinummonkey/qauth/pkg/session"
	"github.com/platinummonkey/qauth/pkg/sso"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		observability.NewLogger(observability.ErrorLevel, os.Stderr).
			WithError(err).Error("Failed to load configuration")
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)
	logger.Info("Starting qauth session broker")

	ctx := context.Background()

	otelProviders, err := observability.InitOTel(ctx, observability.OTelConfig{
		Enabled:        cfg.Observability.OTelEnabled,
		Endpoint:       cfg.Observability.OTelEndpoint,
		ServiceName:    cfg.Observability.OTelServiceName,
		ServiceVersion: cfg.Observability.OTelServiceVersion,
		Insecure:       cfg.Observability.OTelInsecure,
	}, logger)
	if err != nil {
		logger.WithError(err).Error("Failed to initialize OpenTelemetry")
		os.Exit(1)
	}

	var metrics *observability.Metrics
	if cfg.Observability.MetricsEnabled {
		metrics = observability.NewMetrics(prometheus.NewRegistry())
	}

	proxyClient, err := qps.NewClient(cfg.Proxy, logger.WithField("component", "qps"), metrics)
	if err != nil {
		logger.WithError(err).Error("Failed to create proxy service client")
		os.Exit(1)
	}

	store, err := session.NewRedisStore(session.RedisConfig{
		URL:      cfg.Session.RedisURL,
		Password: cfg.Session.RedisPassword,
		DB:       cfg.Session.RedisDB,
		PoolSize: cfg.Session.RedisPoolSize,
		TTL:      cfg.Session.TTL,
	})
	if err != nil {
		logger.WithError(err).Error("Failed to connect to the session store")
		os.Exit(1)
	}
	sessions := session.NewManager(store, cfg.Session.CookieName, cfg.Session.TTL, cfg.Session.CookieSecure)

	registry, err := buildStrategies(ctx, cfg)
	if err != nil {
		logger.WithError(err).Error("Failed to configure identity providers")
		os.Exit(1)
	}
	logger.Infof("Registered login strategies: %v", registry.Names())

	handlers := broker.NewHandlers(registry, proxyClient, sessions, logger, metrics, cfg.Server.BasePath)
	server := broker.NewServer(broker.ServerConfig{
		Addr:           cfg.Server.Host + ":" + cfg.Server.Port,
		OpsAddr:        cfg.Server.Host + ":" + cfg.Server.OpsPort,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
	}, handlers, logger, metrics, store.Ping)

	shutdown := observability.NewShutdownManager(logger, cfg.Server.ShutdownTimeout)
	shutdown.RegisterServer(server.App())
	if server.Ops() != nil {
		shutdown.RegisterServer(server.Ops())
	}
	shutdown.RegisterShutdownFunc(func(context.Context) error { return store.Close() })
	shutdown.RegisterShutdownFunc(otelProviders.Shutdown)

	go func() {
		if err := server.Start(); err != nil {
			logger.WithError(err).Error("Server failed")
			os.Exit(1)
		}
	}()

	if err := shutdown.WaitForShutdown(); err != nil {
		logger.WithError(err).Error("Shutdown failed")
		os.Exit(1)
	}
}

// buildStrategies creates the strategy registry from the configured
// providers
func buildStrategies(ctx context.Context, cfg *config.Config) (*sso.Registry, error) {
	var strategies []sso.Strategy

	if cfg.Providers.HasGoogle() {
		google, err := sso.NewGoogleStrategy(ctx,
			cfg.Providers.GoogleClientID,
			cfg.Providers.GoogleClientSecret,
			cfg.Providers.CallbackURL(cfg.Server.BasePath, "google"),
		)
		if err != nil {
			return nil, err
		}
		strategies = append(strategies, google)
	}

	if cfg.Providers.HasFacebook() {
		facebook, err := sso.NewFacebookStrategy(
			cfg.Providers.FacebookAppID,
			cfg.Providers.FacebookAppSecret,
			cfg.Providers.CallbackURL(cfg.Server.BasePath, "facebook"),
		)
		if err != nil {
			return nil, err
		}
		strategies = append(strategies, facebook)
	}

	if cfg.Providers.HasSAML() {
		certPEM, err := os.ReadFile(cfg.Providers.SAMLCertificate)
		if err != nil {
			return nil, err
		}
		saml, err := sso.NewSAMLStrategy(sso.SAMLConfig{
			Name:        cfg.Providers.SAMLName,
			EntityID:    cfg.Providers.SAMLEntityID,
			SSOURL:      cfg.Providers.SAMLSSOURL,
			Certificate: string(certPEM),
			ServiceURL:  cfg.Providers.ExternalURL,
			CallbackURL: cfg.Providers.CallbackURL(cfg.Server.BasePath, cfg.Providers.SAMLName),
		})
		if err != nil {
			return nil, err
		}
		strategies = append(strategies, saml)
	}

	return sso.NewRegistry(strategies...)
}
