// Command insightai is the terminal client: researcher views as subcommands and the
// respondent chat as a full-screen terminal conversation.
package main

import (
	"context"
	"insightai/internal/config"
	"insightai/internal/service"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

type cli struct {
	cfg *config.Config
	api *service.APIClient
}

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: failed to load .env: %v", err)
	}
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := newRootCmd(config.Load()).ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func newRootCmd(cfg *config.Config) *cobra.Command {
	c := &cli{cfg: cfg}

	root := &cobra.Command{
		Use:              "insightai",
		Short:            "Conversational surveys from the terminal",
		SilenceUsage:     true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			c.api = service.NewAPIClient(cfg.APIBaseURL, cfg.APIToken, cfg.APITimeout)
		},
	}
	root.PersistentFlags().StringVar(&cfg.APIBaseURL, "api", cfg.APIBaseURL, "survey backend base URL")
	root.PersistentFlags().StringVar(&cfg.PublicURL, "public-url", cfg.PublicURL, "origin used in share links")
	root.PersistentFlags().DurationVar(&cfg.APITimeout, "timeout", cfg.APITimeout, "backend request timeout")

	root.AddCommand(c.surveysCmd(), c.insightsCmd(), c.respondCmd())
	return root
}
