package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/zhouzirui/strombreaker/widget/internal/config"
	"github.com/zhouzirui/strombreaker/widget/internal/identity"
	"github.com/zhouzirui/strombreaker/widget/internal/logging"
	chatService "github.com/zhouzirui/strombreaker/widget/internal/service/chat"
	"github.com/zhouzirui/strombreaker/widget/internal/service/wellness"
)

func main() {
	_ = godotenv.Load()

	var (
		apiURL  string
		userID  string
		logLvl  string
		noColor bool
	)

	rootCmd := &cobra.Command{
		Use:   "chattester",
		Short: "Drive a StromBreaker chat session from the terminal",
		Long: `chattester runs one widget chat session against the wellness backend and
prints every display event to the console.

Type a message to chat, or a slash command (/help lists them).`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if logLvl == "" {
				logLvl = cfg.Log.Level
			}
			if err := logging.Init(logLvl, "console"); err != nil {
				return err
			}
			if apiURL == "" {
				apiURL = cfg.API.BaseURL
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if userID == "" {
				store, closeStore, err := identity.Open(cfg.Identity.Backend, cfg.Identity.Path)
				if err != nil {
					return err
				}
				defer func() { _ = closeStore() }()
				if userID, err = identity.GetOrCreate(ctx, store); err != nil {
					return err
				}
			}

			api, err := wellness.NewClient(apiURL, wellness.WithTimeout(cfg.API.Timeout()))
			if err != nil {
				return err
			}

			printer := newPrinter(cmd.OutOrStdout(), !noColor)
			ctl, err := chatService.NewController(userID, api, chatService.WithListener(printer))
			if err != nil {
				return errors.Wrap(err, "create controller")
			}
			defer ctl.Close()

			log.Debug().Str("user_id", userID).Str("backend", apiURL).Msg("session started")
			printer.banner(userID, apiURL)
			_ = ctl.LoadDashboard(ctx)

			return runREPL(ctx, ctl, cmd.InOrStdin(), printer)
		},
	}

	rootCmd.Flags().StringVar(&apiURL, "api-url", "", "wellness backend base URL (default WELLNESS_API_URL)")
	rootCmd.Flags().StringVar(&userID, "user-id", "", "use this user id instead of the persisted identity")
	rootCmd.Flags().StringVar(&logLvl, "log-level", "", "log level (default LOG_LEVEL)")
	rootCmd.Flags().BoolVar(&noColor, "no-color", false, "disable styled output")

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
