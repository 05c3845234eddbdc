package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/wb-go/wbf/config"
	"github.com/wb-go/wbf/dbpg"
	"github.com/wb-go/wbf/zlog"

	"dramclub/cmd/buildCFG"
	"dramclub/internal/api/api"
	"dramclub/internal/auth"
	"dramclub/internal/clock"
	rabbitReader "dramclub/internal/consumerWorker"
	"dramclub/internal/mailer"
	"dramclub/internal/notifier"
	"dramclub/internal/rabbit"
	"dramclub/internal/repo"
	"dramclub/internal/service"
)

func main() {
	zlog.Init()
	log := zlog.Logger

	cfg := config.New()
	if err := cfg.Load("config.yaml", "", ""); err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	serverCfg, err := buildCFG.BuildServerConfig(cfg, &log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build server config")
	}

	masterDSN, slaveDSNs, poolOptions, err := buildCFG.BuildDBConfig(cfg, &log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build DB config")
	}
	db, err := dbpg.New(masterDSN, slaveDSNs, poolOptions)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to DB")
	}

	repository, err := repo.NewRepository(db, &log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize repository")
	}
	migrationPath := serverCfg.Migrations
	if !filepath.IsAbs(migrationPath) {
		cwd, err := os.Getwd()
		if err != nil {
			log.Fatal().Err(err).Msg("cannot get working directory")
		}
		migrationPath = filepath.Join(cwd, migrationPath)
	}
	if err := repository.MigrateUp(migrationPath); err != nil {
		log.Fatal().Err(err).Msg("migration failed")
	}

	smtpCfg := buildCFG.BuildSMTPConfig(cfg, &log)
	mail := mailer.New(smtpCfg, &log)
	rabbitCfg, err := buildCFG.BuildRabbitConfig(cfg, &log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load RabbitMQ config")
	}

	workerCtx, cancelWorkers := context.WithCancel(context.Background())
	defer cancelWorkers()

	var (
		notify service.Notifier = notifier.NewDirect(mail)
		reader *rabbitReader.Reader
	)
	if rabbitCfg.Enabled {
		rmq, err := rabbit.NewClient(rabbitCfg.Config)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to RabbitMQ")
		}
		defer rmq.Close()

		notify = notifier.NewQueue(rmq, &log)
		reader = rabbitReader.NewReader(rmq, rmq, mail, rabbitCfg.Worker, &log)
		reader.Start(workerCtx)
	}

	tokens, err := auth.NewTokens(serverCfg.JWTSecret, serverCfg.TokenTTL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to configure tokens")
	}

	settings := buildCFG.BuildClubSettings(cfg, &log)
	clk := clock.NewSystem()
	ledger := service.NewLedger(repository, clk, settings, &log)

	accounts := service.NewAccounts(repository, tokens, &log)
	if err := accounts.EnsureAdmin(context.Background(), cfg.GetString("admin.email"), cfg.GetString("admin.password")); err != nil {
		log.Fatal().Err(err).Msg("failed to bootstrap admin user")
	}

	app := api.NewRouters(&api.Routers{
		Catalog:      service.NewCatalog(repository, clk, &log),
		Registrar:    service.NewRegistrar(repository, ledger, notify, settings, &log),
		Ledger:       ledger,
		Payments:     service.NewPaymentWorkflow(repository, notify, &log),
		Accounts:     accounts,
		Tokens:       tokens,
		Payees:       smtpCfg.PaymentInstructions,
		AllowOrigins: serverCfg.AllowOrigins,
		Mode:         serverCfg.Mode,
	})

	srv := &http.Server{
		Addr:              ":" + serverCfg.Port,
		Handler:           app,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		log.Info().Str("port", serverCfg.Port).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("failed to start server: %w", err)
		}
	}()

	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-signalChan:
		log.Info().Str("signal", sig.String()).Msg("initiating shutdown")
	case err := <-serverErrChan:
		log.Error().Err(err).Msg("server error")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("error shutting down server")
	}

	cancelWorkers()
	if reader != nil {
		reader.Stop()
	}
	log.Info().Msg("shutdown complete")
}
