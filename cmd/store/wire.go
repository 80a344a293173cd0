package main

import (
	"fmt"
	"log/slog"

	"github.com/fjod/go_store/internal/catalog"
	"github.com/fjod/go_store/internal/config"
	"github.com/fjod/go_store/internal/payment"
	"github.com/fjod/go_store/internal/repository"
	"github.com/fjod/go_store/pkg/circuitbreaker"
)

func credentials(cfg *config.Config) *repository.Credentials {
	return &repository.Credentials{
		Host:              cfg.DB.Host,
		Port:              cfg.DB.Port,
		User:              cfg.DB.User,
		Password:          cfg.DB.Password,
		DBName:            cfg.DB.Name,
		MigrationsDirPath: cfg.DB.MigrationsPath,
	}
}

func openRepository(cfg *config.Config, migrate bool) (*repository.Repository, error) {
	creds := credentials(cfg)
	repo, err := repository.NewRepository(creds)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if migrate {
		if err := repo.RunMigrations(creds); err != nil {
			repo.Close()
			return nil, fmt.Errorf("run migrations: %w", err)
		}
	}
	return repo, nil
}

func openCatalog(cfg *config.Config, migrate bool) (*catalog.Catalog, error) {
	products, err := catalog.NewCatalog(cfg.Catalog.Path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	if migrate {
		if err := products.RunMigrations(cfg.Catalog.MigrationsPath); err != nil {
			products.Close()
			return nil, fmt.Errorf("run catalog migrations: %w", err)
		}
	}
	return products, nil
}

// newGateway builds the configured processor adapter behind a circuit breaker.
func newGateway(cfg *config.Config, log *slog.Logger) (payment.Gateway, error) {
	var gateway payment.Gateway
	switch cfg.Payment.Provider {
	case config.ProviderStripe:
		gateway = payment.NewStripeGateway(payment.StripeConfig{
			SecretKey:     cfg.Payment.SecretKey,
			WebhookSecret: cfg.Payment.WebhookSecret,
			WebsiteURL:    cfg.Payment.WebsiteURL,
			Currency:      cfg.Payment.Currency,
			Timeout:       cfg.Payment.Timeout,
		})
	default:
		log.Warn("using the fake payment gateway, no real payments will be taken")
		fake, err := payment.NewFakeGateway(cfg.Payment.WebsiteURL, cfg.Payment.WebhookSecret)
		if err != nil {
			return nil, fmt.Errorf("fake payment gateway: %w", err)
		}
		gateway = fake
	}

	breakerCfg := circuitbreaker.DefaultConfig("payment-" + cfg.Payment.Provider)
	if cfg.Payment.Breaker.ConsecutiveFailures > 0 {
		breakerCfg.ConsecutiveFailures = cfg.Payment.Breaker.ConsecutiveFailures
	}
	if cfg.Payment.Breaker.OpenTimeout > 0 {
		breakerCfg.Timeout = cfg.Payment.Breaker.OpenTimeout
	}
	return payment.NewBreakerGateway(gateway, cfg.Payment.Timeout, breakerCfg, log), nil
}
