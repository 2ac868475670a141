package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/clinic/clinic/internal/config"
	"github.com/clinic/clinic/internal/domain/cds"
	"github.com/clinic/clinic/internal/domain/clinic"
	"github.com/clinic/clinic/internal/domain/identity"
	"github.com/clinic/clinic/internal/domain/scheduling"
	"github.com/clinic/clinic/internal/platform/auth"
	"github.com/clinic/clinic/internal/platform/db"
	"github.com/clinic/clinic/internal/platform/middleware"
	"github.com/clinic/clinic/internal/platform/outbox"
	"github.com/clinic/clinic/internal/platform/telemetry"
)

const (
	serviceName = "clinic-server"
	bodyLimit   = "1M"
	tokenTTL    = 12 * time.Hour
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func runServer() error {
	// Logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	// Config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}
	window, err := buildWindow(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid operating window")
	}

	// Database
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	// Tracing
	shutdownTracing, err := telemetry.Setup(ctx, telemetry.TelemetryConfig{
		Enabled:        cfg.OTelEnabled,
		ServiceName:    serviceName,
		ServiceVersion: version,
		Environment:    cfg.Env,
		OTLPEndpoint:   cfg.OTelEndpoint,
		SampleRate:     cfg.OTelSampleRatio,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to set up tracing")
	}

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = middleware.HTTPErrorHandler(logger)
	e.Validator = middleware.NewValidator()

	// Global middleware
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.Recovery(logger))
	e.Use(telemetry.Middleware(serviceName))
	e.Use(middleware.SecurityHeaders())
	e.Use(middleware.RequestTimeout(cfg.RequestTimeout))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))
	e.Use(echomw.BodyLimit(bodyLimit))

	// Auth middleware
	if cfg.ResolvedAuthMode() == "development" {
		logger.Warn().Msg("development auth enabled; requests act as admin unless X-Dev-Role is set")
		e.Use(auth.DevAuthMiddleware(auth.AuthSkipper))
	} else {
		e.Use(auth.JWTMiddleware(jwtConfig(cfg)))
	}

	// Rate limiting
	api := e.Group("")
	var rdb *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("invalid REDIS_URL")
		}
		rdb = redis.NewClient(opts)
		defer rdb.Close()
		limiter := middleware.NewRedisRateLimiter(rdb, redisLimit(cfg), cfg.RateLimitWindow, "clinic:rl")
		api.Use(limiter.Middleware(logger, !cfg.IsProduction()))
		logger.Info().Msg("using redis rate limiter")
	} else {
		api.Use(middleware.RateLimit(rateLimitConfig(cfg)))
	}

	// Health
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok", "version": version})
	})
	e.GET("/health/ready", db.ReadyHandler(readyChecks(cfg, pool, rdb)...))
	e.GET("/health/db/stats", db.StatsHandler(pool))

	// Events are written to the outbox in the booking transaction and
	// relayed to Kafka only when brokers are configured.
	outboxRepo := outbox.NewRepository(pool)

	// Clinics
	clinicSvc := clinic.NewService(clinic.NewRepoPG(pool))
	clinic.NewHandler(clinicSvc).RegisterRoutes(api)

	// Users
	identitySvc := identity.NewService(identity.NewRepoPG(pool), clinicSvc)
	identityHandler := identity.NewHandler(identitySvc)
	if cfg.AuthSigningKey != "" {
		key := []byte(cfg.AuthSigningKey)
		identityHandler.WithTokenIssuer(func(p auth.Principal) (string, error) {
			return auth.IssueToken(key, p, tokenTTL)
		})
	}
	identityHandler.RegisterPublicRoutes(api)
	identityHandler.RegisterRoutes(api)

	// Scheduling
	coordOpts := []scheduling.Option{scheduling.WithEvents(outboxRepo)}
	def, err := clinicSvc.ResolveDefault(ctx, cfg.DefaultClinicID, cfg.DefaultClinicName)
	switch {
	case err != nil:
		logger.Warn().Err(err).Msg("default clinic could not be resolved")
	case def == nil:
		logger.Warn().Str("name", cfg.DefaultClinicName).Msg("no default clinic; bookings without clinic or doctor will be rejected")
	default:
		logger.Info().Str("clinic_id", def.ID.String()).Str("name", def.Name).Msg("default clinic resolved")
		coordOpts = append(coordOpts, scheduling.WithDefaultClinic(def.ID))
	}
	apptRepo := scheduling.NewRepoPG(pool)
	calc := scheduling.NewCalculator(apptRepo, clinicSvc, identitySvc, window)
	coordinator := scheduling.NewCoordinator(apptRepo, clinicSvc, identitySvc, calc, db.NewTxRunner(pool), coordOpts...)
	scheduling.NewHandler(calc, coordinator).RegisterRoutes(api)

	// Clinical decision support
	cds.NewHandler(cds.NewService(cds.NewRepoPG(pool))).RegisterRoutes(api)

	// Outbox publisher
	bgCtx, stopBackground := context.WithCancel(context.Background())
	defer stopBackground()
	if brokers := cfg.Brokers(); len(brokers) > 0 {
		writer := outbox.NewKafkaWriter(brokers)
		defer writer.Close()
		publisher := outbox.NewPublisher(pool, outboxRepo, writer, logger, outbox.PublisherConfig{
			PollEvery: cfg.OutboxPollInterval,
			BatchSize: cfg.OutboxBatchSize,
		})
		go publisher.Run(bgCtx)
		logger.Info().Strs("brokers", brokers).Msg("outbox publisher started")
	}

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Bool("tls", cfg.TLSEnabled).Msg("starting server")
		var err error
		if cfg.TLSEnabled {
			err = e.StartTLS(addr, cfg.TLSCertFile, cfg.TLSKeyFile)
		} else {
			err = e.Start(addr)
		}
		if err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	stopBackground()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown failed")
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("tracer shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}

func buildWindow(cfg *config.Config) (scheduling.Window, error) {
	return scheduling.NewWindow(cfg.ClinicOpensAt, cfg.ClinicClosesAt, cfg.SlotMinutes)
}

// jwtConfig drops issuer and audience checks for locally signed tokens,
// which carry neither claim.
func jwtConfig(cfg *config.Config) auth.JWTConfig {
	if cfg.AuthSigningKey != "" {
		return auth.JWTConfig{
			SigningKey: []byte(cfg.AuthSigningKey),
			Skipper:    auth.AuthSkipper,
		}
	}
	return auth.JWTConfig{
		Issuer:   cfg.AuthIssuer,
		Audience: cfg.AuthAudience,
		JWKSURL:  cfg.AuthJWKSURL,
		Skipper:  auth.AuthSkipper,
	}
}

func rateLimitConfig(cfg *config.Config) middleware.RateLimitConfig {
	rl := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}
	if rl.RequestsPerSecond <= 0 {
		return middleware.DefaultRateLimitConfig()
	}
	return rl
}

// redisLimit converts the per-second rate into a per-window quota.
func redisLimit(cfg *config.Config) int {
	window := cfg.RateLimitWindow
	if window <= 0 {
		window = time.Minute
	}
	return int(cfg.RateLimitRPS * window.Seconds())
}

func readyChecks(cfg *config.Config, pool *pgxpool.Pool, rdb *redis.Client) []db.ReadyCheck {
	checks := []db.ReadyCheck{db.PingCheck(pool)}
	if rdb != nil {
		checks = append(checks, db.ReadyCheck{Name: "redis", Check: func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}})
	}
	if brokers := cfg.Brokers(); len(brokers) > 0 {
		checks = append(checks, db.ReadyCheck{Name: "kafka", Check: outbox.ReadyCheck(brokers)})
	}
	return checks
}
