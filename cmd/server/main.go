package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"
	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/drumil/phonebook/internal/config"
	"github.com/drumil/phonebook/internal/contact"
	"github.com/drumil/phonebook/internal/digest"
	"github.com/drumil/phonebook/internal/mailer"
	"github.com/drumil/phonebook/internal/scheduler"
	"github.com/drumil/phonebook/internal/store"
	"github.com/drumil/phonebook/internal/web"
)

var version = "dev"

type CLI struct {
	Version kong.VersionFlag `help:"Show version." short:"V"`
	Config  string           `help:"Path to YAML config file. Missing file means defaults." default:"phonebook.yaml" type:"path"`
	Addr    string           `help:"Listen address, overrides config and environment."`
	Variant string           `help:"Form variant (basic or validated), overrides config and environment."`
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Description("Single-page phonebook web application."),
		kong.Vars{"version": version},
	)
	ctx.FatalIfErrorf(cli.Run())
}

func (c *CLI) Run() error {
	// Load .env file if present
	envErr := godotenv.Load()

	cfg, err := config.Load(c.Config)
	if err != nil {
		return err
	}
	if c.Addr != "" {
		cfg.Addr = c.Addr
	}
	if c.Variant != "" {
		cfg.Variant = c.Variant
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	log := newLogger(cfg.LogLevel)
	if envErr != nil {
		log.Debug().Msg("No .env file found, relying on environment variables")
	}

	// Validate already rejected unknown variants.
	variant, _ := contact.ParseVariant(cfg.Variant)
	contacts := store.NewMemoryStore()

	var opts []web.Option
	var jobScheduler *scheduler.Scheduler
	if cfg.DigestEnabled() {
		sender, err := newSender(cfg, log)
		if err != nil {
			return err
		}
		job := digest.NewJob(contacts, sender, cfg.Digest.To, cfg.Digest.Subject, log)

		jobScheduler = scheduler.NewScheduler(cfg.Digest.Interval, job.RunLogged, log)
		jobScheduler.Start()

		opts = append(opts, web.WithTrigger(cfg.CronSecret, func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
			defer cancel()
			job.RunLogged(ctx)
		}))
	}

	handler := web.New(contacts, variant, log, opts...)
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful Shutdown
	stop, cancelSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancelSignals()

	serveErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.Addr).Str("variant", string(variant)).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return errors.Wrap(err, "HTTP server failed")
		}
	case <-stop.Done():
	}
	log.Info().Msg("Shutting down...")

	if jobScheduler != nil {
		jobScheduler.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
	return nil
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}

	var logger zerolog.Logger
	if isatty.IsTerminal(os.Stdout.Fd()) {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen})
	} else {
		logger = zerolog.New(os.Stdout)
	}
	return logger.Level(lvl).With().Timestamp().Logger()
}

// newSender prefers the Gmail API when client credentials are available
// and falls back to SMTP otherwise.
func newSender(cfg *config.Config, log zerolog.Logger) (mailer.Sender, error) {
	credsJSON := []byte(os.Getenv("GMAIL_CREDENTIALS_JSON"))
	if len(credsJSON) == 0 {
		if b, err := os.ReadFile(cfg.Gmail.CredentialsFile); err == nil {
			credsJSON = b
		}
	}

	if len(credsJSON) > 0 {
		log.Info().Msg("Initializing Gmail API mailer...")
		tokenJSON := []byte(os.Getenv("GMAIL_TOKEN_JSON"))
		gm, err := mailer.NewGmailMailer(context.Background(), cfg.SenderEmail, credsJSON, tokenJSON, cfg.Gmail.TokenFile, log)
		if err != nil {
			return nil, errors.Wrap(err, "failed to create Gmail client")
		}
		return gm, nil
	}

	if cfg.SMTP.Host == "" {
		return nil, errors.New("digest is enabled but neither Gmail credentials nor SMTP_HOST are configured")
	}
	log.Info().Str("host", cfg.SMTP.Host).Msg("No Gmail credentials found. Using SMTP mailer...")
	return mailer.NewSMTPMailer(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.User, cfg.SMTP.Pass, cfg.SenderEmail, log), nil
}
