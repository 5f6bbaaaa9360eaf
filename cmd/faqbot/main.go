package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/0xcro3dile/faqbot-go/internal/infrastructure/app"
	"github.com/0xcro3dile/faqbot-go/internal/infrastructure/config"
	"github.com/0xcro3dile/faqbot-go/internal/infrastructure/logging"
	"github.com/0xcro3dile/faqbot-go/internal/infrastructure/telemetry"
	"github.com/0xcro3dile/faqbot-go/internal/infrastructure/tui"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"

	configPath string
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Warning: loading .env: %v\n", err)
	}

	rootCmd := &cobra.Command{
		Use:           "faqbot",
		Short:         "Conversational FAQ assistant",
		Long:          "faqbot answers questions from a FAQ spreadsheet, refusing when the FAQ does not cover them.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultPath, "configuration path")

	rootCmd.AddCommand(
		serveCmd(),
		indexCmd(),
		askCmd(),
		chatCmd(),
		&cobra.Command{
			Use:   "version",
			Short: "Print version info",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Printf("faqbot %s (%s, %s)\n", version, commit, buildDate)
			},
		},
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

// setup loads the config and wires the application.
func setup() (*app.App, *logrus.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, nil, err
	}

	a, err := app.New(cfg, log)
	if err != nil {
		return nil, nil, err
	}
	return a, log, nil
}

func serveCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP chat server",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, log, err := setup()
			if err != nil {
				return err
			}
			defer a.Close()

			if port > 0 {
				a.Config.Server.Port = port
			}

			if a.Config.Telemetry.Enabled {
				shutdown, err := telemetry.Setup(ctx, telemetry.Config{
					ServiceName: a.Config.Telemetry.ServiceName,
					Version:     version,
					Endpoint:    a.Config.Telemetry.Endpoint,
					Insecure:    a.Config.Telemetry.Insecure,
				})
				if err != nil {
					log.WithError(err).Warn("failed to setup OpenTelemetry")
				} else {
					defer shutdown(context.WithoutCancel(ctx))
				}
			}

			err = a.Serve(ctx)
			log.Info("server exiting")
			return err
		},
	}
	cmd.Flags().IntVarP(&port, "port", "p", 0, "override the listen port")
	return cmd
}

func indexCmd() *cobra.Command {
	var rebuild bool

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Build or validate the persisted search index",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, _, err := setup()
			if err != nil {
				return err
			}
			defer a.Close()

			report, err := a.BuildIndex(cmd.Context(), rebuild)
			if err != nil {
				return err
			}
			fmt.Printf("indexed %d passages with %s strategy (%s)\n", report.Passages, report.Strategy, report.Store)
			return nil
		},
	}
	cmd.Flags().BoolVar(&rebuild, "rebuild", false, "discard any stored index first")
	return cmd
}

func askCmd() *cobra.Command {
	var showSources bool

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Answer a single question and exit",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, _, err := setup()
			if err != nil {
				return err
			}
			defer a.Close()

			reply := a.Engine.Answer(cmd.Context(), strings.Join(args, " "))
			fmt.Println(reply.Text)
			if showSources {
				for _, sp := range reply.Sources {
					fmt.Printf("  [%d] %.3f %s\n", sp.Passage.ID, sp.Score, sp.Passage.Text)
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&showSources, "sources", "s", false, "print the passages behind the answer")
	return cmd
}

func chatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Chat in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, log, err := setup()
			if err != nil {
				return err
			}
			defer a.Close()

			// Log lines would tear the full-screen UI.
			if a.Config.Log.Level != "debug" {
				log.SetLevel(logrus.ErrorLevel)
			}

			title := "FAQ Assistant"
			if name := a.Config.Answer.AssistantName; name != "" {
				title = name + " " + title
			}

			p := tea.NewProgram(tui.New(cmd.Context(), a.Chat, title), tea.WithAltScreen(), tea.WithContext(cmd.Context()))
			if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
				return err
			}
			return nil
		},
	}
}
