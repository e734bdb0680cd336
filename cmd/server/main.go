package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"clinic-booking-api/internal/auth"
	"clinic-booking-api/internal/config"
	"clinic-booking-api/internal/handler"
	"clinic-booking-api/internal/logging"
	"clinic-booking-api/internal/metrics"
	"clinic-booking-api/internal/middleware"
	"clinic-booking-api/internal/notify"
	"clinic-booking-api/internal/probe"
	"clinic-booking-api/internal/reminder"
	"clinic-booking-api/internal/store"
	"clinic-booking-api/internal/store/postgres"
	"clinic-booking-api/internal/store/sqlite"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := run(ctx)
	stop()
	if err != nil {
		logrus.Fatal(err)
	}
}

// run owns every resource it opens; it returns once ctx is cancelled or a
// listener fails, after shutting everything down.
func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logging.New(cfg.LogLevel, cfg.LogFormat)

	// database
	st, err := openStore(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("db: %w", err)
	}
	defer st.Close()
	if err := st.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	log.Info("schema ready")

	if cfg.AdminPasswordDefaulted {
		log.WithField("username", cfg.AdminUsername).
			Warn("ADMIN_PASSWORD not set, seeding with the built-in fallback password; set it before exposing this server")
	}
	created, err := auth.SeedAdmin(ctx, st, cfg.AdminUsername, cfg.AdminPassword)
	if err != nil {
		return err
	}
	if created {
		log.WithField("username", cfg.AdminUsername).Info("admin user created")
	}

	secret := cfg.JWTSecret
	if secret == "" {
		if secret, err = auth.RandomSecret(); err != nil {
			return fmt.Errorf("secret: %w", err)
		}
		log.Warn("JWT_SECRET not set, using a random secret; tokens will not survive a restart")
	}

	m := metrics.New()
	email := notify.NewEmail(notify.EmailConfig{
		User:     cfg.EmailUser,
		Pass:     cfg.EmailPass,
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Clinic:   cfg.ClinicName,
		Location: cfg.ClinicLocation,
		Doctor:   cfg.ClinicDoctor,
	}, log)
	if !cfg.MailConfigured() {
		log.Info("email credentials not set, email notifications disabled")
	}
	notifier := notify.NewDispatcher(log, m, email, notify.NewWhatsApp(log))

	loginRL := middleware.NewRateLimiter(cfg.LoginRate, cfg.LoginBurst)
	loginRL.StartCleanup(ctx, time.Minute)
	bookingRL := middleware.NewRateLimiter(cfg.BookingRate, cfg.BookingBurst)
	bookingRL.StartCleanup(ctx, time.Minute)

	if cfg.ReminderCron != "" {
		rem := reminder.New(st, notifier, log)
		if err := rem.Start(ctx, cfg.ReminderCron); err != nil {
			return err
		}
		defer rem.Stop()
	}

	errCh := make(chan error, 2)

	// optional grpc health probe
	if cfg.GRPCPort != "" {
		lis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
		if err != nil {
			return fmt.Errorf("probe listen: %w", err)
		}
		pr := probe.New(st, log, 15*time.Second)
		go pr.Run(ctx)
		go func() {
			if err := pr.Serve(lis); err != nil {
				errCh <- fmt.Errorf("probe: %w", err)
			}
		}()
		defer pr.Stop()
	}

	h := handler.New(st, secret, notifier, m, log)
	httpSrv := &http.Server{
		Addr: ":" + cfg.Port,
		Handler: h.Router(handler.RouterConfig{
			Origins:        cfg.Origins(),
			LoginLimiter:   loginRL,
			BookingLimiter: bookingRL,
			StaticDir:      cfg.StaticDir,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.WithField("port", cfg.Port).Info("http listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http: %w", err)
		}
	}()

	// graceful shutdown
	var runErr error
	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case runErr = <-errCh:
		log.WithError(runErr).Error("listener failed, shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("http shutdown")
	}
	return runErr
}

// openStore picks the backend once, from the resolved config.
func openStore(ctx context.Context, cfg *config.Config, log *logrus.Logger) (store.Store, error) {
	fields := logrus.Fields{"driver": cfg.DBDriver, "inferred": cfg.DBDriverInferred}
	switch cfg.DBDriver {
	case config.DriverPostgres:
		st, err := postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		log.WithFields(fields).Info("connected to postgres")
		return st, nil
	default:
		st, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		fields["path"] = cfg.SQLitePath
		log.WithFields(fields).Info("opened sqlite database")
		return st, nil
	}
}
