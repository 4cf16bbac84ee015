package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"mmw/config"
	"mmw/events"
	"mmw/exception"
	"mmw/jsonrpc"
	"mmw/logx"
	"mmw/store"
	"mmw/types"
	"mmw/wallet"
)

var nodeConfig struct {
	ConfigPath string
	RPCIniPath string
}

var nodeCmd = &cobra.Command{
	Use:   "node",
	Short: "Run a wallet node",
	Long:  "Run the wallet RPC daemon for one wallet instance, restoring persisted state from its store.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runNode()
	},
}

func init() {
	nodeCmd.Flags().StringVar(&nodeConfig.ConfigPath, "config", "config/wallet.yml", "Path to wallet.yml")
	nodeCmd.Flags().StringVar(&nodeConfig.RPCIniPath, "rpc-config", "", "Optional path to server.ini with RPC tuning")
	rootCmd.AddCommand(nodeCmd)
}

func runNode() error {
	cfg, err := config.LoadWalletConfig(nodeConfig.ConfigPath)
	if err != nil {
		return err
	}

	rpcCfg := config.DefaultRPCConfig()
	if nodeConfig.RPCIniPath != "" {
		rpcCfg, err = config.LoadRPCConfig(nodeConfig.RPCIniPath)
		if err != nil {
			return fmt.Errorf("failed to load rpc config: %w", err)
		}
	}

	walletStore, _, err := store.CreateStore(&cfg.Store)
	if err != nil {
		return fmt.Errorf("failed to create store: %w", err)
	}

	bus := events.NewEventBus()

	w, err := wallet.New(wallet.Options{
		Domain: types.DomainInfo{
			Name:          cfg.DomainName,
			Version:       cfg.DomainVersion,
			ChainID:       cfg.ChainID,
			WalletAddress: cfg.WalletAddress,
		},
		MaxSigners:     cfg.MaxSigners,
		InitialSigners: cfg.Signers,
		Store:          walletStore,
		Bus:            bus,
	})
	if err != nil {
		walletStore.MustClose()
		return err
	}
	defer w.Close()

	_, eventCh := bus.SubscribeToAllEvents()
	exception.SafeGo("event-logger", func() {
		for event := range eventCh {
			logx.Info("WALLET", fmt.Sprintf("event | type=%s proposal=%d", event.Type(), event.ProposalID()))
		}
	})

	server := jsonrpc.NewServer(cfg.RPCAddr, w, rpcCfg)
	server.Start()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	logx.Info("NODE", "shutting down")
	return nil
}
