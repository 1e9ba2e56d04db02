package main

import (
	"context"
	"os"

	"github.com/go-i2p/go-onion/lib/config"
	"github.com/go-i2p/go-onion/lib/util/signals"
	"github.com/go-i2p/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var log = logger.GetGoI2PLogger()

var rootCmd = &cobra.Command{
	Use:   "go-onion",
	Short: "A minimal onion routing network",
	Long: `go-onion runs the nodes of a small onion routing network: a directory
that maps relay ports to public keys, relays that each peel one layer of
encryption, and users that send messages through three-relay circuits.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		config.InitConfig()
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&config.CfgFile, "config", "", "config file (default is $HOME/.go-onion/config.yaml)")
	pf.String("host", config.Defaults().Network.Host, "host every node listens on and dials")
	pf.Int("directory-port", config.Defaults().Network.DirectoryPort, "port of the directory")
	pf.String("suite", config.Defaults().Protocol.Suite, "symmetric layer cipher")
	pf.Int("hop-count", config.Defaults().Protocol.HopCount, "relays per circuit")
	pf.Duration("hop-timeout", config.Defaults().Transport.HopTimeout, "timeout of a single hop to hop delivery")

	bindFlag(pf.Lookup("host"), "network.host")
	bindFlag(pf.Lookup("directory-port"), "network.directory_port")
	bindFlag(pf.Lookup("suite"), "protocol.suite")
	bindFlag(pf.Lookup("hop-count"), "protocol.hop_count")
	bindFlag(pf.Lookup("hop-timeout"), "transport.hop_timeout")

	rootCmd.AddCommand(directoryCmd, relayCmd, userCmd, sendCmd, simulateCmd, keygenCmd)
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	interruptID := signals.RegisterInterruptHandler(func() {
		log.Info("Shutting down")
		cancel()
	})
	defer signals.DeregisterInterruptHandler(interruptID)
	reloadID := signals.RegisterReloadHandler(func() {
		if err := viper.ReadInConfig(); err != nil {
			log.WithError(err).Warn("Failed to reload configuration")
			return
		}
		log.WithField("file", viper.ConfigFileUsed()).Info("Configuration reloaded; restart nodes to apply it")
	})
	defer signals.DeregisterReloadHandler(reloadID)
	go signals.Handle(ctx)
	defer signals.StopHandle()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
