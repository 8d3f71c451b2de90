package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rewired-gh/chatpeaks/internal/config"
	"github.com/rewired-gh/chatpeaks/internal/logger"
	"github.com/rewired-gh/chatpeaks/internal/models"
	"github.com/rewired-gh/chatpeaks/internal/orchestrator"
	"github.com/rewired-gh/chatpeaks/internal/server"
	"github.com/rewired-gh/chatpeaks/internal/storage"
	"github.com/rewired-gh/chatpeaks/internal/telegram"
	"github.com/rewired-gh/chatpeaks/internal/twitch"
	"github.com/spf13/cobra"
)

const defaultConfigPath = "configs/config.yaml"

var version = "dev"

var (
	configPath string
	cfg        *config.Config
)

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:          "chatpeaks",
	Short:        "Find the moments a stream's chat went wild",
	Version:      version,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		path := configPath
		// The default file is optional; an explicit --config is not.
		if !cmd.Flags().Changed("config") {
			if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
				path = ""
			}
		}

		loaded, err := config.Load(path)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if err := loaded.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}
		cfg = loaded

		logger.Init(cfg.Logging.Level, cfg.Logging.Format)
		if path != "" {
			logger.Debug("Configuration loaded from %s", path)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", defaultConfigPath, "Path to configuration file")

	analyzeCmd.Flags().String("sensitivity", "", "Override sensitivity mode (conservative, balanced, aggressive)")
	analyzeCmd.Flags().Int("threshold", 0, "Override the message threshold")
	analyzeCmd.Flags().Bool("multi-window", false, "Corroborate peaks across the configured window sizes")
	analyzeCmd.Flags().String("format", "text", "Output format: text, json or yaml")
	showCmd.Flags().String("format", "text", "Output format: text, json or yaml")
	listCmd.Flags().Int("limit", orchestrator.DefaultListLimit, "Maximum number of analyses to list")

	rootCmd.AddCommand(analyzeCmd, showCmd, listCmd, deleteCmd, serveCmd)
}

// app holds the wired collaborators of one command run.
type app struct {
	store *storage.Store
	orch  *orchestrator.Orchestrator
}

func newApp() (*app, error) {
	store, err := storage.New(storage.Dialect(cfg.Storage.Driver), cfg.Storage.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	var videos twitch.VideoAPI
	if cfg.Twitch.HelixEnabled() {
		helixClient, err := twitch.NewHelixClient(cfg.Twitch.ClientID, cfg.Twitch.ClientSecret)
		if err != nil {
			// Metadata falls back to the chat export.
			logger.Warn("Helix unavailable, reading metadata from chat exports: %v", err)
		} else {
			videos = helixClient
		}
	}
	source := twitch.NewSource(twitch.Config{
		ChatDir:        cfg.Twitch.ChatDir,
		ChatBaseURL:    cfg.Twitch.ChatBaseURL,
		Timeout:        cfg.Twitch.Timeout,
		MaxRetries:     cfg.Twitch.MaxRetries,
		RetryDelayBase: cfg.Twitch.RetryDelayBase,
	}, videos)

	var notifier orchestrator.Notifier
	if cfg.Telegram.Enabled {
		telegramClient, err := telegram.NewClient(cfg.Telegram.BotToken, cfg.Telegram.ChatID,
			cfg.Telegram.TopN, cfg.Telegram.MaxRetries, cfg.Telegram.RetryDelayBase)
		if err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("failed to initialize Telegram client: %w", err)
		}
		notifier = telegramClient
		logger.Info("Telegram client initialized successfully")
	} else {
		logger.Debug("Telegram notifications disabled")
	}

	return &app{
		store: store,
		orch:  orchestrator.New(source, store, notifier, cfg.Analysis),
	}, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		logger.Error("Failed to close storage: %v", err)
	}
}

// withApp wires the collaborators, runs fn and closes them afterwards.
func withApp(fn func(a *app) error) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze <recording-id>",
	Short: "Analyze a recording's chat and store the result",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		analysisConfig, err := analysisOverrides(cmd, cfg.Analysis)
		if err != nil {
			return err
		}
		format, _ := cmd.Flags().GetString("format")

		return withApp(func(a *app) error {
			result, err := a.orch.AnalyzeRecording(cmd.Context(), args[0], &analysisConfig)
			if err != nil {
				return err
			}
			return writeResult(cmd.OutOrStdout(), result, format)
		})
	},
}

var showCmd = &cobra.Command{
	Use:   "show <recording-id>",
	Short: "Show the stored analysis of a recording",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		return withApp(func(a *app) error {
			result, err := a.orch.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return writeResult(cmd.OutOrStdout(), result, format)
		})
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored analyses, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		return withApp(func(a *app) error {
			summaries, err := a.orch.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			return writeSummaries(cmd.OutOrStdout(), summaries)
		})
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <recording-id>",
	Short: "Delete the stored analysis of a recording",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app) error {
			if err := a.orch.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted analysis of %s\n", args[0])
			return nil
		})
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app) error {
			server.Version = version
			srv := server.New(a.orch, cfg.Server.Addr, cfg.Server.Mode)

			// Setup graceful shutdown
			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
			defer signal.Stop(sigChan)

			errChan := make(chan error, 1)
			go func() { errChan <- srv.Start() }()

			select {
			case err := <-errChan:
				return err
			case <-sigChan:
				logger.Info("Shutdown signal received, cleaning up...")
			}

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(ctx); err != nil {
				return fmt.Errorf("failed to shut down HTTP API: %w", err)
			}
			logger.Info("Service stopped")
			return nil
		})
	},
}

// analysisOverrides applies the analyze command's flags on top of base.
func analysisOverrides(cmd *cobra.Command, base models.AnalysisConfig) (models.AnalysisConfig, error) {
	out := base
	if cmd.Flags().Changed("sensitivity") {
		mode, _ := cmd.Flags().GetString("sensitivity")
		out.SensitivityMode = models.SensitivityMode(mode)
	}
	if cmd.Flags().Changed("threshold") {
		out.MessageThreshold, _ = cmd.Flags().GetInt("threshold")
	}
	if cmd.Flags().Changed("multi-window") {
		out.MultiWindowAnalysis, _ = cmd.Flags().GetBool("multi-window")
	}
	if err := config.ValidateAnalysis(out); err != nil {
		return out, err
	}
	return out, nil
}
