// @title                       Back-office API
// @version                     1.0
// @description                 Identity, account administration and staff catalog API.
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/northwind/backoffice/internal/api"
	"github.com/northwind/backoffice/internal/api/handler"
	"github.com/northwind/backoffice/internal/core/domain"
	"github.com/northwind/backoffice/internal/core/ports"
	"github.com/northwind/backoffice/internal/core/service"
	"github.com/northwind/backoffice/internal/infrastructure/config"
	mongodb "github.com/northwind/backoffice/internal/infrastructure/db/mongo"
	redisdb "github.com/northwind/backoffice/internal/infrastructure/db/redis"
	"github.com/northwind/backoffice/internal/infrastructure/mail"
	"github.com/northwind/backoffice/internal/infrastructure/queue"
	"github.com/northwind/backoffice/internal/infrastructure/security"
	"github.com/northwind/backoffice/pkg/logger"
)

const shutdownTimeout = 15 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		bootLog := logger.Init(logger.Options{Level: "error"})
		bootLog.Fatal().Err(err).Msg("failed to load configuration")
	}

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  !cfg.IsProduction(),
		Service: "backoffice-api",
	})

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server exited with error")
	}
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	// --- Storage ---
	mongoClient, db, err := mongodb.Connect(ctx, mongodb.Config{
		URI:      cfg.Mongo.URI,
		Database: cfg.Mongo.Database,
		AppName:  "backoffice-api",
	})
	if err != nil {
		return err
	}
	defer func() {
		dctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = mongoClient.Disconnect(dctx)
	}()

	if err := mongodb.EnsureIndexes(ctx, db); err != nil {
		return err
	}

	rdb, err := redisdb.Connect(ctx, redisdb.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		return err
	}
	defer rdb.Close()

	// --- Outbound email ---
	var transport ports.EmailSender
	if cfg.Mail.RabbitURL != "" {
		publisher, err := mail.NewAMQPPublisher(cfg.Mail.RabbitURL, cfg.Mail.Queue, cfg.Mail.From)
		if err != nil {
			return err
		}
		defer publisher.Close()
		transport = publisher
	} else {
		log.Warn().Msg("RABBITMQ_URL not set, verification emails will only be logged")
		transport = mail.NewLogSender(logger.Component("mail"))
	}

	workerCtx, cancelWorkers := context.WithCancel(context.Background())
	defer cancelWorkers()
	mailer := queue.NewMailDispatcher(cfg.Mail.Workers, transport, logger.Component("mail_dispatcher"))
	mailer.Start(workerCtx)

	// --- Core services ---
	tx := mongodb.NewTransactor(mongoClient)
	issuer := security.NewJWTIssuer(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer, cfg.Auth.JWTTTL)
	serviceLog := logger.Component("service")

	authService := service.NewAuthService(service.AuthDeps{
		Accounts: mongodb.NewAccountRepository(db),
		Tokens:   mongodb.NewVerificationTokenRepository(db),
		Secrets:  security.NewSecretGenerator(),
		Tx:       tx,
		Hasher:   security.NewBcryptHasher(cfg.Auth.BcryptCost),
		Issuer:   issuer,
		Mailer:   mailer,
	}, service.AuthConfig{
		RequireEmailVerification: cfg.Auth.RequireEmailVerification,
		AutoApprove:              cfg.Auth.AutoApprove,
		VerificationTTL:          cfg.Auth.VerificationTTL,
		PublicBaseURL:            cfg.Auth.PublicBaseURL,
	}, serviceLog)

	router := api.NewRouter(api.Deps{
		Auth:      authService,
		Accounts:  service.NewAccountService(mongodb.NewAccountRepository(db), tx, serviceLog),
		Employees: service.NewCatalog[*domain.Employee]("employee", "email", mongodb.NewEmployeeRepository(db), tx, serviceLog),
		Positions: service.NewCatalog[*domain.Position]("position", "code", mongodb.NewPositionRepository(db), tx, serviceLog),
		Projects:  service.NewCatalog[*domain.Project]("project", "code", mongodb.NewProjectRepository(db), tx, serviceLog),
		Clients:   service.NewCatalog[*domain.Client]("client", "email", mongodb.NewClientRepository(db), tx, serviceLog),

		Tokens:   issuer,
		Throttle: redisdb.NewLoginLimiter(rdb, cfg.Auth.LoginMaxAttempts, cfg.Auth.LoginLockWindow),
		Health: map[string]handler.Pinger{
			"mongodb": handler.PingFunc(func(ctx context.Context) error { return mongodb.Ping(ctx, mongoClient) }),
			"redis":   handler.PingFunc(func(ctx context.Context) error { return rdb.Ping(ctx).Err() }),
		},
		FrontendURL: cfg.Auth.FrontendBaseURL,
		Log:         logger.Component("http"),
	})

	// --- Serve ---
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("http server listening")
		if err := router.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := router.Shutdown(shutdownCtx); err != nil {
		return err
	}

	cancelWorkers()
	if err := mailer.Wait(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("mail queue not drained before shutdown deadline")
	}
	return nil
}
