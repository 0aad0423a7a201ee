// File: cmd/hackathon/main.go
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/smartdevs17/hackathon-platform/internal/config"
	"github.com/smartdevs17/hackathon-platform/internal/connection"
	"github.com/smartdevs17/hackathon-platform/internal/contract"
	"github.com/smartdevs17/hackathon-platform/internal/metrics"
	"github.com/smartdevs17/hackathon-platform/internal/query"
	"github.com/smartdevs17/hackathon-platform/internal/server"
	"github.com/smartdevs17/hackathon-platform/internal/storage"
	"github.com/smartdevs17/hackathon-platform/pkg/utils"
)

// AppVersion contains the application version
const AppVersion = "1.0.0"

// Application is the query API process
type Application struct {
	config     *config.Config
	logger     *logrus.Logger
	metrics    *metrics.Manager
	connection *connection.ConnectionManager
	storage    storage.Storage
	query      *query.Service
	server     *server.HTTPServer
	ctx        context.Context
	cancel     context.CancelFunc
}

// NewApplication creates a new application instance
func NewApplication(cfg *config.Config) (*Application, error) {
	ctx, cancel := context.WithCancel(context.Background())

	app := &Application{
		config:  cfg,
		logger:  utils.GetLogger(),
		metrics: metrics.NewManager(),
		ctx:     ctx,
		cancel:  cancel,
	}

	if err := app.initializeComponents(); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to initialize components: %w", err)
	}

	return app, nil
}

// initializeComponents initializes all application components
func (app *Application) initializeComponents() error {
	app.logger.Info("Initializing application components")

	if err := app.initializeConnection(); err != nil {
		return fmt.Errorf("failed to initialize connection: %w", err)
	}

	if err := app.initializeStorage(); err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}

	if err := app.initializeServer(); err != nil {
		return fmt.Errorf("failed to initialize server: %w", err)
	}

	app.logger.Info("All components initialized successfully")
	return nil
}

// initializeConnection wires the ledger connection, contract binding and query service
func (app *Application) initializeConnection() error {
	app.logger.WithField("rpc_url", app.config.Ledger.RPCURL).Info("Initializing ledger connection")

	app.connection = connection.NewConnectionManager(&app.config.Ledger)
	app.connection.SetMetricsManager(app.metrics)

	backend := connection.NewBackend(app.connection, app.config.Ledger.ReceiptPollInterval)
	binding, err := contract.NewBinding(app.config.ContractAddress(), backend, backend)
	if err != nil {
		return fmt.Errorf("failed to bind contract: %w", err)
	}
	binding.SetMetricsManager(app.metrics)

	app.query = query.NewService(binding, query.Config{
		CallTimeout:      app.config.Ledger.CallTimeout,
		FetchConcurrency: app.config.Query.FetchConcurrency,
	})
	app.query.SetMetricsManager(app.metrics)

	// The API serves 500s until the node answers; a failed first probe is not fatal
	ctx, cancel := context.WithTimeout(app.ctx, app.config.Ledger.RequestTimeout)
	defer cancel()
	if err := app.connection.HealthCheck(ctx); err != nil {
		app.logger.WithError(err).Warn("Ledger is not reachable yet")
	}

	return nil
}

// initializeStorage opens the snapshot store reported by the detailed health check
func (app *Application) initializeStorage() error {
	if !app.config.Storage.Enabled {
		app.logger.Info("Storage disabled")
		return nil
	}

	store, err := storage.Open(&app.config.Storage, app.metrics)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	app.storage = store

	app.logger.WithField("type", app.config.Storage.Type).Info("Storage layer initialized successfully")
	return nil
}

// initializeServer initializes the HTTP server
func (app *Application) initializeServer() error {
	serverCfg := &server.ServerConfig{
		Port:           app.config.Server.Port,
		Host:           app.config.Server.Host,
		ReadTimeout:    app.config.Server.ReadTimeout,
		WriteTimeout:   app.config.Server.WriteTimeout,
		EnableMetrics:  app.config.Server.EnableMetrics,
		EnableHealth:   app.config.Server.EnableHealth,
		DistinctErrors: app.config.Server.DistinctErrors,
	}

	app.server = server.NewHTTPServer(serverCfg, app.query, app.metrics)
	app.server.SetLedger(app.connection)
	if app.storage != nil {
		app.server.SetStorage(app.storage)
	}
	return nil
}

// Start starts the application
func (app *Application) Start() error {
	app.logger.WithFields(logrus.Fields{
		"version":     AppVersion,
		"environment": app.config.App.Environment,
		"contract":    app.config.Ledger.ContractAddress,
	}).Info("Starting hackathon API")

	if err := app.server.Start(); err != nil {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	app.logger.WithField("address", fmt.Sprintf("%s:%d", app.config.Server.Host, app.config.Server.Port)).
		Info("Hackathon API started successfully")
	return nil
}

// Stop stops the application gracefully
func (app *Application) Stop() error {
	app.logger.Info("Stopping hackathon API")
	app.cancel()

	if app.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := app.server.Stop(ctx); err != nil {
			app.logger.WithError(err).Error("Failed to stop HTTP server")
		}
	}

	if app.storage != nil {
		if err := app.storage.Close(); err != nil {
			app.logger.WithError(err).Error("Failed to close storage")
		}
	}

	if app.connection != nil {
		if err := app.connection.Close(); err != nil {
			app.logger.WithError(err).Error("Failed to close connection")
		}
	}

	app.logger.Info("Hackathon API stopped successfully")
	return nil
}

// loadConfig loads configuration and initializes the logger from it
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(viper.GetString("config"))
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	level := cfg.Logging.Level
	if flagLevel := viper.GetString("log-level"); flagLevel != "" {
		level = flagLevel
	}
	if viper.GetBool("debug") {
		level = "debug"
	}
	if err := utils.InitLogger(level, cfg.Logging.Format, cfg.Logging.Output, cfg.Logging.File); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// CLI Commands

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:           "hackathon",
	Short:         "Hackathon platform API and client",
	Long:          `Serves a read API over the hackathon contract and drives it from the command line: browse hackathons, create one, submit projects and vote.`,
	Version:       AppVersion,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runServer,
}

// serveCmd runs the query API
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the hackathon read API",
	RunE:  runServer,
}

// runServer runs the API until interrupted
func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.ValidateLedger(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	app, err := NewApplication(cfg)
	if err != nil {
		return fmt.Errorf("failed to create application: %w", err)
	}

	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, os.Interrupt, syscall.SIGTERM)

	if err := app.Start(); err != nil {
		app.Stop()
		return fmt.Errorf("failed to start application: %w", err)
	}

	<-signalChan
	fmt.Fprintln(os.Stderr, "\nReceived shutdown signal, stopping application...")

	return app.Stop()
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "Hackathon Platform %s\n", AppVersion)
	},
}

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management commands",
}

// validateConfigCmd validates the configuration
var validateConfigCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("configuration validation failed: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Configuration is valid!\n")
		fmt.Fprintf(out, "Environment: %s\n", cfg.App.Environment)
		fmt.Fprintf(out, "RPC endpoint: %s\n", cfg.Ledger.RPCURL)
		fmt.Fprintf(out, "Contract: %s\n", cfg.Ledger.ContractAddress)
		fmt.Fprintf(out, "API: %s\n", cfg.Client.APIBaseURL)
		fmt.Fprintf(out, "Storage: %s (enabled: %t)\n", cfg.Storage.Type, cfg.Storage.Enabled)

		if err := cfg.ValidateLedger(); err != nil {
			fmt.Fprintf(out, "Warning: %v\n", err)
		}
		return nil
	},
}

// testCmd represents the test command
var testCmd = &cobra.Command{
	Use:   "test",
	Short: "Test connectivity and configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if err := cfg.ValidateLedger(); err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "Testing hackathon platform connectivity...")

		fmt.Fprintf(out, "Testing ledger connection to %s...\n", cfg.Ledger.RPCURL)
		conn := connection.NewConnectionManager(&cfg.Ledger)
		defer conn.Close()

		ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Ledger.RequestTimeout)
		defer cancel()
		if err := conn.HealthCheck(ctx); err != nil {
			return fmt.Errorf("failed to reach ledger: %w", err)
		}
		stats := conn.Stats()
		fmt.Fprintf(out, "✓ Ledger connection successful (chain %d, block %d)\n", stats.ChainID, stats.LatestBlock)

		backend := connection.NewBackend(conn, cfg.Ledger.ReceiptPollInterval)
		code, err := backend.CodeAt(ctx, cfg.ContractAddress(), nil)
		if err != nil {
			return fmt.Errorf("failed to read contract code: %w", err)
		}
		if len(code) == 0 {
			return fmt.Errorf("no contract deployed at %s", cfg.Ledger.ContractAddress)
		}
		fmt.Fprintf(out, "✓ Contract found at %s\n", cfg.Ledger.ContractAddress)

		if cfg.Storage.Enabled {
			fmt.Fprintf(out, "Testing storage connection (%s)...\n", cfg.Storage.Type)
			store, err := storage.Open(&cfg.Storage, nil)
			if err != nil {
				return fmt.Errorf("failed to open storage: %w", err)
			}
			store.Close()
			fmt.Fprintln(out, "✓ Storage connection successful")
		}

		fmt.Fprintln(out, "\nAll connectivity tests passed! ✓")
		return nil
	},
}

// init initializes the CLI commands
func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file path")
	rootCmd.PersistentFlags().StringP("log-level", "l", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug mode")

	viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	viper.BindPFlag("log-level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(testCmd)
	configCmd.AddCommand(validateConfigCmd)

	addClientCommands(rootCmd)
}

// main is the entry point
func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
