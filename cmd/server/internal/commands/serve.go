package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/cors"

	"github.com/ghostboard/ghostboard/internal/identity"
	"github.com/ghostboard/ghostboard/internal/logger"
	"github.com/ghostboard/ghostboard/internal/ratelimit"
	"github.com/ghostboard/ghostboard/internal/server"
	"github.com/ghostboard/ghostboard/internal/store"
	memorystore "github.com/ghostboard/ghostboard/internal/store/memory"
	postgresstore "github.com/ghostboard/ghostboard/internal/store/postgres"
)

type ServeCmd struct {
	// Server configuration
	Listen string `help:"HTTP server listen address" default:"localhost:8080" env:"GHOSTBOARD_LISTEN"`

	// CORS configuration
	CORSOrigins []string `help:"allowed CORS origins for API requests" default:"http://localhost:3000" env:"GHOSTBOARD_CORS_ORIGINS"`

	// Identity configuration
	HashSalt string `help:"server-side salt for submitter identity hashing, minimum 32 bytes" env:"GHOSTBOARD_HASH_SALT"`

	// Read-path rate limiting
	ReadRPS   float64 `help:"sustained requests per second allowed per client on read endpoints" default:"1" env:"GHOSTBOARD_READ_RPS"`
	ReadBurst int     `help:"burst size allowed per client on read endpoints" default:"5" env:"GHOSTBOARD_READ_BURST"`

	// Store configuration
	StoreType     string             `help:"store type (memory or postgres)" default:"memory" env:"GHOSTBOARD_STORE_TYPE" enum:"memory,postgres"`
	Quota         QuotaFlags         `embed:"" prefix:"quota-"`
	PostgresStore PostgresStoreFlags `embed:"" prefix:"postgres-"`
}

// QuotaFlags configures the submission caps the quota enforcer applies.
type QuotaFlags struct {
	DailyMax   int `help:"maximum submission attempts per submitter per UTC day" default:"3" env:"GHOSTBOARD_QUOTA_DAILY_MAX"`
	CompanyMax int `help:"maximum reports per submitter per company" default:"3" env:"GHOSTBOARD_QUOTA_COMPANY_MAX"`
}

func (q *QuotaFlags) Validate() error {
	if q.DailyMax <= 0 {
		return errors.New("daily quota must be a positive integer (--quota-daily-max)")
	}
	if q.CompanyMax <= 0 {
		return errors.New("per-company quota must be a positive integer (--quota-company-max)")
	}
	return nil
}

type PostgresStoreFlags struct {
	// Connection Configuration
	ConnString string `help:"PostgreSQL connection string" env:"POSTGRES_CONNECTION_STRING"`

	// Connection Pool Configuration
	MaxConns        int32 `help:"maximum number of connections in pool" default:"20"`
	MinConns        int32 `help:"minimum number of connections in pool" default:"5"`
	MaxConnLifetime int32 `help:"maximum connection lifetime in seconds" default:"3600"`
	MaxConnIdleTime int32 `help:"maximum connection idle time in seconds" default:"1800"`

	// Migration Configuration
	AutoMigrate bool `help:"run database migrations on startup" default:"false" env:"GHOSTBOARD_POSTGRES_AUTO_MIGRATE"`
}

func (s *PostgresStoreFlags) Validate() error {
	if s.ConnString == "" {
		return errors.New("PostgreSQL connection string is required (--postgres-conn-string or POSTGRES_CONNECTION_STRING)")
	}
	return nil
}

func (c *ServeCmd) Run(globals *Globals) error {
	log := logger.Setup(globals.Debug)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info().Str("version", globals.Version).Bool("debug", globals.Debug).Msg("Starting server")

	hasher, err := identity.NewHasher([]byte(c.HashSalt))
	if err != nil {
		return fmt.Errorf("failed to configure identity hasher (GHOSTBOARD_HASH_SALT): %w", err)
	}

	if err := c.Quota.Validate(); err != nil {
		return err
	}

	// Create stores based on store type
	var (
		companies store.CompanyStore
		quotas    store.QuotaStore
		reports   store.ReportStore
	)

	switch c.StoreType {
	case "postgres":
		if err := c.PostgresStore.Validate(); err != nil {
			return fmt.Errorf("failed to validate postgres flags: %w", err)
		}
		pool, err := postgresstore.NewPool(ctx, &postgresstore.PoolConfig{
			ConnString:      c.PostgresStore.ConnString,
			MaxConns:        c.PostgresStore.MaxConns,
			MinConns:        c.PostgresStore.MinConns,
			MaxConnLifetime: c.PostgresStore.MaxConnLifetime,
			MaxConnIdleTime: c.PostgresStore.MaxConnIdleTime,
			AutoMigrate:     c.PostgresStore.AutoMigrate,
		})
		if err != nil {
			return fmt.Errorf("failed to create postgres pool: %w", err)
		}
		defer pool.Close()

		quotas, err = postgresstore.NewQuotaStore(pool, &postgresstore.QuotaConfig{
			DailyMax:   c.Quota.DailyMax,
			CompanyMax: c.Quota.CompanyMax,
		})
		if err != nil {
			return fmt.Errorf("failed to create quota store: %w", err)
		}
		companies = postgresstore.NewCompanyStore(pool)
		reports = postgresstore.NewReportStore(pool)
		log.Info().Msg("Using PostgreSQL stores")

	default:
		companies = memorystore.NewCompanyStore()
		quotas = memorystore.NewQuotaStore(c.Quota.DailyMax, c.Quota.CompanyMax)
		reports = memorystore.NewReportStore()
		log.Info().Msg("Using in-memory stores")
	}

	readLimiter := ratelimit.New(c.ReadRPS, c.ReadBurst)
	defer readLimiter.Stop()

	service := server.NewReportService(hasher, companies, quotas, reports)
	srv := server.NewServer(service, companies, reports, hasher, readLimiter)

	handler := withCORS(c.CORSOrigins, srv.Handler(log))
	httpServer := configureHTTPServer(c.Listen, handler)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Failed to shut down HTTP server")
		}
	}()

	log.Info().
		Str("addr", c.Listen).
		Str("store", c.StoreType).
		Int("quota_daily_max", c.Quota.DailyMax).
		Int("quota_company_max", c.Quota.CompanyMax).
		Msg("Starting HTTP server")

	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// withCORS adds CORS support to the API handler.
func withCORS(allowedOrigins []string, h http.Handler) http.Handler {
	middleware := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
		MaxAge:         300,
	})
	return middleware.Handler(h)
}
