// Package app wires configuration, storage, clients, and services together.
// Dependencies are passed at construction; nothing is looked up globally.
package app

import (
	"fmt"
	"os"

	"github.com/openfolio/folio/internal/clients/marketdata"
	"github.com/openfolio/folio/internal/common"
	"github.com/openfolio/folio/internal/interfaces"
	"github.com/openfolio/folio/internal/services/ledger"
	"github.com/openfolio/folio/internal/services/valuation"
	"github.com/openfolio/folio/internal/storage/badger"
)

// App holds all initialized services and clients.
type App struct {
	Config           *common.Config
	Logger           *common.Logger
	Storage          interfaces.StorageManager
	MarketClient     interfaces.MarketDataClient
	LedgerService    interfaces.LedgerService
	ValuationService interfaces.ValuationService
}

// NewApp initializes storage, the market data client, and the services.
// configPath may be empty, in which case FOLIO_CONFIG and then the default
// file name are tried.
func NewApp(configPath string) (*App, error) {
	if configPath == "" {
		configPath = os.Getenv("FOLIO_CONFIG")
	}
	if configPath == "" {
		configPath = "folio.toml"
	}

	config, err := common.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger := common.NewLoggerFromConfig(config.Logging)

	storageManager, err := badger.NewManager(logger, config.Storage.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	marketClient := marketdata.NewClient(config.MarketData.APIKey,
		marketdata.WithBaseURL(config.MarketData.BaseURL),
		marketdata.WithLogger(logger),
		marketdata.WithRateLimit(config.MarketData.RateLimit),
		marketdata.WithTimeout(config.MarketData.GetTimeout()),
		marketdata.WithMaxRetries(config.MarketData.MaxRetries),
	)

	ledgerService := ledger.NewService(storageManager, marketClient, logger)
	valuationService := valuation.NewService(storageManager, marketClient, config, logger)

	logger.Info().Str("data", config.Storage.Path).Msg("App initialized")

	return &App{
		Config:           config,
		Logger:           logger,
		Storage:          storageManager,
		MarketClient:     marketClient,
		LedgerService:    ledgerService,
		ValuationService: valuationService,
	}, nil
}

// Close releases all resources held by the App.
func (a *App) Close() {
	if a.Storage != nil {
		a.Storage.Close()
		a.Storage = nil
	}
}
