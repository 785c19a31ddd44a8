// Command consumer is the EthMultiVault indexer entrypoint: one process,
// one mode, selected by a cobra subcommand (§6 "consumer_type (currently a
// single broker variant)", §9 "No global mutable state... an explicit
// AppContext"). Mirrors the teacher's cmd/synnergy subcommand shape.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/0xintuition/ethmultivault-indexer/internal/config"
	"github.com/0xintuition/ethmultivault-indexer/internal/consumer/decoded"
	"github.com/0xintuition/ethmultivault-indexer/internal/consumer/imageupload"
	"github.com/0xintuition/ethmultivault-indexer/internal/consumer/raw"
	"github.com/0xintuition/ethmultivault-indexer/internal/consumer/resolver"
	"github.com/0xintuition/ethmultivault-indexer/internal/httpapi"
	"github.com/0xintuition/ethmultivault-indexer/internal/logging"
	"github.com/0xintuition/ethmultivault-indexer/internal/queue"
	"github.com/0xintuition/ethmultivault-indexer/internal/rawsource"
	"github.com/0xintuition/ethmultivault-indexer/internal/sharding"
	"github.com/0xintuition/ethmultivault-indexer/internal/store"
)

func main() {
	rootCmd := &cobra.Command{Use: "consumer"}
	rootCmd.AddCommand(rawCmd(), decodedCmd(), resolverCmd(), imageUploadCmd(), adminCmd())
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// signalContext cancels when the process receives SIGINT/SIGTERM, the way
// a long-running consumer loop should shut down (§5).
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func newBroker(ctx context.Context, cfg *config.Config) (queue.Broker, error) {
	if cfg.ConsumerType == "local" {
		return queue.NewLocalBroker(), nil
	}
	return queue.NewSQSBroker(ctx, cfg.LocalstackURL)
}

func rawCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "raw",
		Short: "run the raw consumer (§4.2)",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("fatal: load config: %w", err)
			}
			broker, err := newBroker(ctx, cfg)
			if err != nil {
				return fmt.Errorf("fatal: build broker: %w", err)
			}
			adapter, err := rawsource.New(rawsource.Kind(cfg.IndexingSource))
			if err != nil {
				return fmt.Errorf("fatal: build source adapter: %w", err)
			}

			c := &raw.Consumer{
				Broker:          broker,
				Adapter:         adapter,
				ContractAddress: cfg.IntuitionContractAddress,
				RawQueueURL:     cfg.RawQueueURL,
				DecodedQueueURL: cfg.DecodedQueueURL,
				PollPause:       cfg.PollPause,
				Log:             logging.New("raw-consumer"),
			}
			return c.Run(ctx)
		},
	}
}

func decodedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "decoded",
		Short: "run the decoded consumer (§4.3)",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("fatal: load config: %w", err)
			}
			broker, err := newBroker(ctx, cfg)
			if err != nil {
				return fmt.Errorf("fatal: build broker: %w", err)
			}
			st, err := store.New(ctx, cfg.Postgres)
			if err != nil {
				return fmt.Errorf("fatal: open store: %w", err)
			}
			defer st.Close()

			c := &decoded.Consumer{
				Broker:              broker,
				Store:               st,
				DecodedQueueURL:     cfg.DecodedQueueURL,
				ResolverQueueURL:    cfg.ResolverQueueURL,
				ImageUploadQueueURL: cfg.ImageUploadQueueURL,
				PollPause:           cfg.PollPause,
				ToleranceBps:        cfg.Reconciliation.ToleranceBps,
				Shards:              sharding.NewPool(8),
				Log:                 logging.New("decoded-consumer"),
			}
			return c.Run(ctx)
		},
	}
}

func resolverCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resolver",
		Short: "run the resolver consumer (§4.4)",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("fatal: load config: %w", err)
			}
			broker, err := newBroker(ctx, cfg)
			if err != nil {
				return fmt.Errorf("fatal: build broker: %w", err)
			}
			st, err := store.New(ctx, cfg.Postgres)
			if err != nil {
				return fmt.Errorf("fatal: open store: %w", err)
			}
			defer st.Close()

			ensClient, err := ethclient.DialContext(ctx, cfg.RPCURLMainnet)
			if err != nil {
				return fmt.Errorf("fatal: dial mainnet rpc: %w", err)
			}

			c := &resolver.Consumer{
				Broker:              broker,
				Store:               st,
				HTTP:                http.DefaultClient,
				ENS:                 ensClient,
				ENSRegistryAddress:  common.HexToAddress(cfg.ENSRegistryAddress),
				IPFSGatewayURL:      cfg.IPFSGatewayURL,
				ResolverQueueURL:    cfg.ResolverQueueURL,
				ImageUploadQueueURL: cfg.ImageUploadQueueURL,
				PollPause:           cfg.PollPause,
				Log:                 logging.New("resolver-consumer"),
			}
			return c.Run(ctx)
		},
	}
}

func imageUploadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "image-upload",
		Short: "run the image-upload consumer (§4.5)",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("fatal: load config: %w", err)
			}
			broker, err := newBroker(ctx, cfg)
			if err != nil {
				return fmt.Errorf("fatal: build broker: %w", err)
			}
			st, err := store.New(ctx, cfg.Postgres)
			if err != nil {
				return fmt.Errorf("fatal: open store: %w", err)
			}
			defer st.Close()

			c := &imageupload.Consumer{
				Broker:              broker,
				Store:               st,
				HTTP:                http.DefaultClient,
				ImageGuardURL:       cfg.ImageGuardURL,
				ImageUploadQueueURL: cfg.ImageUploadQueueURL,
				PollPause:           cfg.PollPause,
				Log:                 logging.New("image-upload-consumer"),
			}
			return c.Run(ctx)
		},
	}
}

func adminCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "admin",
		Short: "run the administrative HTTP surface (§6)",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("fatal: load config: %w", err)
			}
			broker, err := newBroker(ctx, cfg)
			if err != nil {
				return fmt.Errorf("fatal: build broker: %w", err)
			}

			log := logging.New("admin-http")
			srv := &httpapi.Server{Broker: broker, Log: log}
			r := mux.NewRouter()
			srv.Register(r)

			httpSrv := &http.Server{Addr: ":" + cfg.AdminHTTPPort, Handler: r}
			go func() {
				<-ctx.Done()
				_ = httpSrv.Close()
			}()

			log.Infof("admin http surface listening on %s", httpSrv.Addr)
			if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				return fmt.Errorf("admin http server: %w", err)
			}
			return nil
		},
	}
}
