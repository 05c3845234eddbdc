package buildCFG

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/wb-go/wbf/dbpg"

	"dramclub/internal/consumerWorker"
	"dramclub/internal/mailer"
	"dramclub/internal/model"
	"dramclub/internal/rabbit"
	"dramclub/internal/service"
)

// Source is the subset of *config.Config the builders read.
type Source interface {
	GetString(key string) string
	GetInt(key string) int
	GetBool(key string) bool
}

type ServerConfig struct {
	Port         string
	Mode         string
	JWTSecret    string
	TokenTTL     time.Duration
	AllowOrigins []string
	Migrations   string
}

type RabbitConfig struct {
	Enabled bool
	rabbit.Config
	Worker consumerWorker.Options
}

func BuildServerConfig(cfg Source, log *zerolog.Logger) (ServerConfig, error) {
	sc := ServerConfig{
		Port:         cfg.GetString("server.port"),
		Mode:         cfg.GetString("server.mode"),
		JWTSecret:    cfg.GetString("server.jwt_secret"),
		AllowOrigins: splitList(cfg.GetString("server.allow_origins")),
		Migrations:   cfg.GetString("server.migrations_dir"),
	}
	if sc.Port == "" {
		sc.Port = "8080"
		log.Warn().Msg("server.port not set, using 8080")
	}
	if sc.Migrations == "" {
		sc.Migrations = "migrations/postgres"
	}
	if sc.JWTSecret == "" {
		return ServerConfig{}, errors.New("server.jwt_secret is required")
	}
	ttl, err := durationOr(cfg.GetString("server.token_ttl"), 12*time.Hour)
	if err != nil {
		return ServerConfig{}, fmt.Errorf("server.token_ttl: %w", err)
	}
	sc.TokenTTL = ttl
	return sc, nil
}

func BuildDBConfig(cfg Source, log *zerolog.Logger) (string, []string, *dbpg.Options, error) {
	master := cfg.GetString("database.master_dsn")
	if master == "" {
		return "", nil, nil, errors.New("database.master_dsn is required")
	}
	slaves := splitList(cfg.GetString("database.slave_dsns"))

	lifetime, err := durationOr(cfg.GetString("database.conn_max_lifetime"), 30*time.Minute)
	if err != nil {
		return "", nil, nil, fmt.Errorf("database.conn_max_lifetime: %w", err)
	}
	opts := &dbpg.Options{
		MaxOpenConns:    intOr(cfg.GetInt("database.max_open_conns"), 10),
		MaxIdleConns:    intOr(cfg.GetInt("database.max_idle_conns"), 5),
		ConnMaxLifetime: lifetime,
	}
	log.Info().Int("slaves", len(slaves)).Int("max_open_conns", opts.MaxOpenConns).Msg("database config loaded")
	return master, slaves, opts, nil
}

func BuildRabbitConfig(cfg Source, log *zerolog.Logger) (RabbitConfig, error) {
	rc := RabbitConfig{Enabled: cfg.GetBool("rabbit.enabled")}
	if !rc.Enabled {
		log.Info().Msg("rabbit disabled, notifications are sent inline")
		return rc, nil
	}
	rc.Config = rabbit.Config{
		URL:      cfg.GetString("rabbit.url"),
		Exchange: cfg.GetString("rabbit.exchange"),
		Queue:    cfg.GetString("rabbit.queue"),
	}
	if rc.URL == "" || rc.Exchange == "" || rc.Queue == "" {
		return RabbitConfig{}, errors.New("rabbit.url, rabbit.exchange and rabbit.queue are required when rabbit is enabled")
	}
	delay, err := durationOr(cfg.GetString("rabbit.retry_delay"), 30*time.Second)
	if err != nil {
		return RabbitConfig{}, fmt.Errorf("rabbit.retry_delay: %w", err)
	}
	rc.Worker = consumerWorker.Options{
		MaxAttempts: intOr(cfg.GetInt("rabbit.max_attempts"), 5),
		RetryDelay:  delay,
	}
	return rc, nil
}

func BuildSMTPConfig(cfg Source, log *zerolog.Logger) mailer.Config {
	mc := mailer.Config{
		Host:     cfg.GetString("smtp.host"),
		Port:     intOr(cfg.GetInt("smtp.port"), 587),
		Username: cfg.GetString("smtp.username"),
		Password: cfg.GetString("smtp.password"),
		From:     cfg.GetString("smtp.from"),
		PaymentInstructions: map[string]string{
			string(model.PaymentStripe): cfg.GetString("club.payees.stripe"),
			string(model.PaymentPayPal): cfg.GetString("club.payees.paypal"),
		},
	}
	if mc.Host == "" {
		log.Warn().Msg("smtp.host not set, emails will fail and be logged")
	}
	return mc
}

func BuildClubSettings(cfg Source, log *zerolog.Logger) service.Settings {
	s := service.DefaultSettings()
	if methods := splitList(cfg.GetString("club.payment_methods")); len(methods) > 0 {
		s.PaymentMethods = s.PaymentMethods[:0]
		for _, m := range methods {
			s.PaymentMethods = append(s.PaymentMethods, model.PaymentMethod(m))
		}
	}
	s.BypassCode = cfg.GetString("club.bypass_code")
	if s.BypassCode != "" {
		log.Warn().Msg("payment bypass code is enabled")
	}
	s.FreeEventsPerMembership = intOr(cfg.GetInt("club.free_events_per_membership"), s.FreeEventsPerMembership)
	s.MembershipPrice = intOr(cfg.GetInt("club.membership_price"), s.MembershipPrice)
	return s
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func durationOr(s string, def time.Duration) (time.Duration, error) {
	if strings.TrimSpace(s) == "" {
		return def, nil
	}
	return time.ParseDuration(s)
}

func intOr(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
