package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/spf13/cobra"

	"github.com/stakewatch/stakewatch/internal/channel"
	"github.com/stakewatch/stakewatch/internal/config"
	"github.com/stakewatch/stakewatch/internal/health"
	"github.com/stakewatch/stakewatch/internal/logging"
	"github.com/stakewatch/stakewatch/internal/metrics"
	"github.com/stakewatch/stakewatch/internal/render"
	"github.com/stakewatch/stakewatch/internal/router"
	"github.com/stakewatch/stakewatch/internal/storage"
	"github.com/stakewatch/stakewatch/internal/supervisor"
)

var (
	flagOnce    bool
	flagHealth  string
	flagMetrics string
)

func init() {
	runCmd.Flags().BoolVar(&flagOnce, "once", false, "Process one tick and exit")
	runCmd.Flags().StringVar(&flagHealth, "health", "", "Health check HTTP address (e.g., :8080)")
	runCmd.Flags().StringVar(&flagMetrics, "metrics", "", "Metrics HTTP address (e.g., :9090)")
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the notification pipeline",
	RunE: func(cmd *cobra.Command, args []string) error {
		logLevel := os.Getenv("LOG_LEVEL")
		if logLevel == "" {
			logLevel = "info"
		}
		log := logging.NewWithLevel(logLevel)
		ctx := cmd.Context()

		cfg, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		store, err := storage.Open(cfg.Global.DBPath)
		if err != nil {
			return fmt.Errorf("open storage: %w", err)
		}
		defer store.Close()

		client, err := ethclient.DialContext(ctx, cfg.Global.RPCURL)
		if err != nil {
			return fmt.Errorf("dial rpc: %w", err)
		}
		defer client.Close()

		templates, err := render.LoadTemplates(cfg.Global.TemplatesPath)
		if err != nil {
			return fmt.Errorf("load templates: %w", err)
		}

		rt, err := buildRouter(cfg, log)
		if err != nil {
			return err
		}

		var mtr *metrics.Metrics
		if flagMetrics != "" {
			mtr = metrics.Init()
			log.Info("metrics enabled", "addr", flagMetrics)
			go func() {
				mux := http.NewServeMux()
				mux.Handle("/metrics", metrics.Handler())
				srv := &http.Server{Addr: flagMetrics, Handler: mux}
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Error("metrics server error", "error", err)
				}
			}()
		}

		sup, err := supervisor.New(ctx, cfg, client, store, rt, supervisor.Collaborators{
			Names:     render.NewStaticLabels(cfg.Labels),
			Charts:    render.BarChart{},
			Templates: templates,
		}, log, mtr)
		if err != nil {
			return err
		}

		if flagHealth != "" {
			rpcChecker := health.NewRPCChecker(client)
			healthSrv := health.Serve(flagHealth, health.Checker{
				DBPing:   store.Ping,
				RPCPing:  rpcChecker.Ping,
				Pipeline: sup.Healthy,
			})
			log.Info("health check enabled", "addr", flagHealth)
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = health.Shutdown(shutdownCtx, healthSrv)
			}()
		}

		if flagOnce {
			sup.Tick(ctx)
			log.Info("tick complete")
			return nil
		}

		log.Info("pipeline started", "interval", cfg.Global.Tick().String())
		return sup.Run(ctx)
	},
}

func buildRouter(cfg *config.Config, log *slog.Logger) (*router.Router, error) {
	senders := map[string]channel.Sender{}
	for _, ch := range cfg.Channels {
		var (
			sender channel.Sender
			err    error
		)
		switch strings.ToLower(ch.Type) {
		case "discord":
			sender, err = channel.NewDiscordSender(ch.WebhookURL)
		case "webhook":
			sender, err = channel.NewWebhookSender(ch.WebhookURL)
		default:
			err = fmt.Errorf("unsupported channel type: %s", ch.Type)
		}
		if err != nil {
			return nil, fmt.Errorf("channel %s: %w", ch.ID, err)
		}
		senders[ch.ID] = sender
	}
	return router.New(senders["default"], senders["governance"], log), nil
}
