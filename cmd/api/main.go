// Package main is the entry point for the space purchase API server.
//
// It loads the configuration, builds the upstream API clients and the domain
// services on top of them, wires the billing and purchase handlers into the
// core chassis, and serves HTTP until SIGINT or SIGTERM.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"spacepurchase/internal/api/handlers"
	"spacepurchase/internal/billing"
	"spacepurchase/internal/config"
	"spacepurchase/internal/core"
	"spacepurchase/internal/external"
	"spacepurchase/internal/purchase"
	"spacepurchase/internal/queue"
	"spacepurchase/internal/spaces"
	"spacepurchase/internal/subscription"
	"spacepurchase/internal/telemetry"
)

// Provider names used for circuit breakers, health components and error details.
const (
	providerOrgAPI     = "organization_api"
	providerContentAPI = "content_api"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// run encapsulates the startup lifecycle so that main() can cleanly exit on error.
func run() error {
	// The provider is only consulted outside of APP_ENV=local.
	cfg, err := config.LoadConfig(config.NewSSMProvider(os.Getenv("AWS_REGION")))
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := newLogger(cfg.LogLevel)
	logger.Info("space purchase API starting",
		"environment", cfg.Environment,
		"version", cfg.Build.Version,
		"commit", cfg.Build.Commit,
		"port", cfg.Server.Port,
	)

	clients, err := newAWSClients(context.Background(), cfg.AWS)
	if err != nil {
		return fmt.Errorf("loading AWS config: %w", err)
	}

	srv, err := buildServer(cfg, logger, clients)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	return runHTTPServer(srv, cfg, logger)
}

// awsClients are the AWS SDK clients used by the server. A nil client turns
// the matching feature off.
type awsClients struct {
	SQS        queue.SQSSender
	CloudWatch telemetry.CloudWatchClient
}

func newAWSClients(ctx context.Context, cfg config.AWSConfig) (awsClients, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return awsClients{}, err
	}

	sqsClient := sqs.NewFromConfig(awsCfg, func(o *sqs.Options) {
		if cfg.EndpointURL != "" {
			o.BaseEndpoint = aws.String(cfg.EndpointURL)
		}
	})
	cwClient := cloudwatch.NewFromConfig(awsCfg, func(o *cloudwatch.Options) {
		if cfg.EndpointURL != "" {
			o.BaseEndpoint = aws.String(cfg.EndpointURL)
		}
	})
	return awsClients{SQS: sqsClient, CloudWatch: cwClient}, nil
}

// buildServer wires every dependency of the HTTP layer and mounts the routes.
func buildServer(cfg *config.Config, logger *slog.Logger, clients awsClients) (*core.Server, error) {
	srv, err := core.NewServer(cfg, logger)
	if err != nil {
		return nil, err
	}

	userAgent := "space-purchase-api/" + cfg.Build.Version
	retry := external.DefaultRetryPolicy()
	retry.MaxRetries = cfg.Upstream.MaxRetries
	httpClient := &http.Client{Timeout: cfg.Upstream.Timeout}

	orgBase := external.NewBaseClient(httpClient, providerOrgAPI, retry, userAgent)
	contentBase := external.NewBaseClient(httpClient, providerContentAPI, retry, userAgent)
	orgAPI := external.NewAPIClient(orgBase, cfg.Upstream.APIURL, external.CallerToken, providerOrgAPI)
	contentAPI := external.NewAPIClient(contentBase, cfg.Upstream.ContentAPIURL, external.StaticToken(cfg.Upstream.ContentAPIToken), providerContentAPI)

	spaceSvc := spaces.NewService(orgAPI, cfg.Purchase.DefaultSpaceLocale, logger)
	content := spaces.NewContent(contentAPI)
	subscriptionSvc := subscription.NewService(orgAPI, logger)
	catalog := subscription.NewCatalogCache(subscriptionSvc, cfg.Purchase.CatalogCacheTTL)
	billingSvc := billing.NewService(orgAPI, logger)

	metrics := telemetry.NewCloudWatchMetrics(nil, cfg.Observability.MetricNamespace, logger)
	if cfg.Observability.EnableMetrics && clients.CloudWatch != nil {
		metrics = telemetry.NewCloudWatchMetrics(clients.CloudWatch, cfg.Observability.MetricNamespace, logger)
		srv.Metrics = metrics
	}

	publisher := queue.NewAnalyticsPublisher(clients.SQS, cfg.AWS.AnalyticsQueueURL, logger)
	if !publisher.Enabled() {
		logger.Info("analytics publishing disabled")
	}

	loader := purchase.NewLoader(
		purchase.Sources{
			Orgs:    spaceSvc,
			Plans:   subscriptionSvc,
			Flags:   catalog,
			Content: content,
			Billing: billingSvc,
		},
		purchase.Deps{
			Payments:   billingSvc,
			Spaces:     spaceSvc,
			Plans:      subscriptionSvc,
			Catalog:    catalog,
			Publisher:  publisher,
			Reporter:   telemetry.NewErrorReporter(metrics, logger),
			AppBaseURL: cfg.Server.AppBaseURL,
			Logger:     logger,
		},
		cfg.Purchase.ComposeLaunchAppIDs,
	)
	store := purchase.NewStore(cfg.Purchase.SessionCapacity, cfg.Purchase.SessionTTL)

	billingHandler := handlers.NewBillingHandler(billingSvc, srv.Validator, logger)
	purchaseHandler := handlers.NewPurchaseHandler(loader, store, srv.Validator, logger)
	srv.V1RouteRegistrars = append(srv.V1RouteRegistrars,
		billingHandler.RegisterRoutes,
		purchaseHandler.RegisterRoutes,
	)

	srv.HealthProbes = []core.HealthProbe{
		breakerProbe(providerOrgAPI, orgBase),
		breakerProbe(providerContentAPI, contentBase),
	}

	srv.MountRoutes()
	return srv, nil
}

// breakerProbe reports an upstream as unhealthy while its breaker is open.
func breakerProbe(name string, c *external.BaseClient) core.HealthProbe {
	return core.ProbeFunc{
		ProbeName: name,
		Fn: func(context.Context) error {
			if c.BreakerOpen() {
				return errors.New("circuit breaker open")
			}
			return nil
		},
	}
}

// runHTTPServer starts the server in standard HTTP mode with graceful shutdown.
func runHTTPServer(srv *core.Server, cfg *config.Config, logger *slog.Logger) error {
	addr := ":" + cfg.Server.Port

	// WriteTimeout leaves room for the request timeout plus the error response.
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      cfg.Server.RequestTimeout + 5*time.Second,
		IdleTimeout:       120 * time.Second,
	}

	serverErr := make(chan error, 1)

	go func() {
		logger.Info("HTTP server listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-shutdown:
		logger.Info("shutdown signal received", "signal", sig.String())
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	logger.Info("initiating graceful shutdown")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
		return fmt.Errorf("server shutdown: %w", err)
	}

	logger.Info("server stopped cleanly")
	return nil
}

// newLogger creates a structured slog.Logger configured for the given log level.
func newLogger(level string) *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLevel(level),
	}))
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
