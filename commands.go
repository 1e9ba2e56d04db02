package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-i2p/go-onion/lib/config"
	"github.com/go-i2p/go-onion/lib/crypto"
	"github.com/go-i2p/go-onion/lib/keys"
	"github.com/go-i2p/go-onion/lib/network"
	"github.com/go-i2p/go-onion/lib/onion"
	"github.com/go-i2p/go-onion/lib/router"
	"github.com/samber/oops"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

func bindFlag(f *pflag.Flag, key string) {
	if err := viper.BindPFlag(key, f); err != nil {
		log.Fatalf("Failed to bind flag %s: %s", f.Name, err)
	}
}

// currentConfig returns the validated configuration after flags are applied.
func currentConfig() (config.ConfigDefaults, error) {
	cfg := config.CurrentConfig()
	if err := config.Validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

const stopTimeout = 5 * time.Second

func stopContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), stopTimeout)
}

var directoryCmd = &cobra.Command{
	Use:   "directory",
	Short: "Run the directory server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := currentConfig()
		if err != nil {
			return err
		}
		d, err := network.StartDirectory(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "directory listening on %s\n", d.Server.Addr())
		<-cmd.Context().Done()

		ctx, cancel := stopContext()
		defer cancel()
		return d.Close(ctx)
	},
}

var relayCmd = &cobra.Command{
	Use:   "relay",
	Short: "Run one relay and register it with the directory",
	Long: `Run one relay and register it with the directory.

With --validate-destinations the relay only forwards to addresses inside the
network's port ranges, taken from network.relay_base_port, network.relay_count,
network.user_base_port and network.user_count in this process's configuration.
Every relay of a multi-process network must share those settings, or nodes
started on ports outside them are treated as implausible.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := currentConfig()
		if err != nil {
			return err
		}
		port, _ := cmd.Flags().GetInt("port")
		deps, err := network.NewDeps(cfg, nil)
		if err != nil {
			return err
		}
		relay, err := network.StartRelay(cmd.Context(), cfg, deps, onion.Address(port))
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "relay %s registered and listening\n", relay.Address())
		<-cmd.Context().Done()

		ctx, cancel := stopContext()
		defer cancel()
		return relay.Stop(ctx)
	},
}

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Run one user node",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := currentConfig()
		if err != nil {
			return err
		}
		port, _ := cmd.Flags().GetInt("port")
		deps, err := network.NewDeps(cfg, nil)
		if err != nil {
			return err
		}
		user, err := network.StartUser(cfg, deps, onion.Address(port))
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "user %s listening\n", user.Address())
		<-cmd.Context().Done()

		ctx, cancel := stopContext()
		defer cancel()
		return user.Stop(ctx)
	},
}

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Ask a running user to send a message to another user",
	RunE: func(cmd *cobra.Command, args []string) error {
		from, _ := cmd.Flags().GetInt("from")
		to, _ := cmd.Flags().GetUint64("to")
		message, _ := cmd.Flags().GetString("message")

		body, err := json.Marshal(map[string]any{"message": message, "destinationUserId": to})
		if err != nil {
			return err
		}
		url := "http://" + net.JoinHostPort(viper.GetString("network.host"), strconv.Itoa(from)) + "/sendMessage"
		req, err := http.NewRequestWithContext(cmd.Context(), http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")

		client := &http.Client{Timeout: 30 * time.Second}
		resp, err := client.Do(req)
		if err != nil {
			return oops.Wrapf(err, "user %d is not reachable", from)
		}
		defer resp.Body.Close()
		raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if err != nil {
			return err
		}
		if resp.StatusCode != http.StatusOK {
			return oops.Errorf("send failed: %s: %s", resp.Status, bytes.TrimSpace(raw))
		}

		var sent router.SentMessage
		if err := json.Unmarshal(raw, &sent); err != nil {
			return oops.Wrapf(err, "unexpected response from user %d", from)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "sent via %s -> %s\n", sent.Circuit, sent.Destination)
		return nil
	},
}

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run a directory, relays and users in one process",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := currentConfig()
		if err != nil {
			return err
		}
		n, err := network.Launch(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer n.Close()

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "directory on %s, relays %d-%d, users %d-%d\n",
			n.Directory.Server.Addr(),
			cfg.Network.RelayBasePort, cfg.Network.RelayBasePort+cfg.Network.RelayCount-1,
			cfg.Network.UserBasePort, cfg.Network.UserBasePort+cfg.Network.UserCount-1)

		if message, _ := cmd.Flags().GetString("message"); message != "" && len(n.Users) >= 2 {
			from, to := n.Users[0], n.Users[1]
			if err := from.Send(cmd.Context(), message, to.Address()); err != nil {
				return err
			}
			sent, _ := from.LastSent()
			fmt.Fprintf(out, "%s sent %q via %s to %s\n", from.Address(), message, sent.Circuit, to.Address())
		}

		if snapshot, _ := cmd.Flags().GetString("snapshot"); snapshot != "" {
			if err := n.Snapshot(cmd.Context(), snapshot); err != nil {
				return err
			}
			fmt.Fprintf(out, "registry written to %s\n", snapshot)
		}

		<-cmd.Context().Done()
		return nil
	},
}

var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Create or show a persistent relay key",
	RunE: func(cmd *cobra.Command, args []string) error {
		name, _ := cmd.Flags().GetString("name")
		dir, _ := cmd.Flags().GetString("key-dir")
		if dir == "" {
			dir = viper.GetString("relay.key_dir")
		}
		if dir == "" {
			return oops.Errorf("a key directory is required (--key-dir or relay.key_dir)")
		}
		ks, err := keys.NewRelayKeystore(dir, name)
		if err != nil {
			return err
		}
		pub, _, err := ks.GetKeys()
		if err != nil {
			return err
		}
		encoded, err := crypto.ExportPublicKey(pub)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), encoded)
		return nil
	},
}

func init() {
	directoryCmd.Flags().String("store", config.Defaults().Directory.Store, "directory store: memory or badger")
	directoryCmd.Flags().String("path", config.Defaults().Directory.Path, "badger store directory")
	directoryCmd.Flags().String("seed", "", "YAML seed file to pre-populate the directory")
	bindFlag(directoryCmd.Flags().Lookup("store"), "directory.store")
	bindFlag(directoryCmd.Flags().Lookup("path"), "directory.path")
	bindFlag(directoryCmd.Flags().Lookup("seed"), "directory.seed_file")

	for _, c := range []*cobra.Command{relayCmd, userCmd} {
		c.Flags().Int("port", 0, "port to listen on, which is also the node id")
		_ = c.MarkFlagRequired("port")
	}
	relayCmd.Flags().String("key-dir", "", "directory holding the relay key; empty keeps it in memory")
	relayCmd.Flags().Float64("rate-limit", config.Defaults().Relay.RateLimit, "inbound messages per second")
	relayCmd.Flags().Bool("validate-destinations", config.Defaults().Relay.ValidateDestinations, "drop messages whose next hop is outside the network's port ranges")
	bindFlag(relayCmd.Flags().Lookup("key-dir"), "relay.key_dir")
	bindFlag(relayCmd.Flags().Lookup("rate-limit"), "relay.rate_limit")
	bindFlag(relayCmd.Flags().Lookup("validate-destinations"), "relay.validate_destinations")

	sendCmd.Flags().Int("from", 0, "port of the sending user")
	sendCmd.Flags().Uint64("to", 0, "port of the receiving user")
	sendCmd.Flags().String("message", "", "message to send")
	for _, name := range []string{"from", "to", "message"} {
		_ = sendCmd.MarkFlagRequired(name)
	}

	simulateCmd.Flags().Int("relays", config.Defaults().Network.RelayCount, "number of relays")
	simulateCmd.Flags().Int("users", config.Defaults().Network.UserCount, "number of users")
	simulateCmd.Flags().Bool("in-process", false, "deliver between local nodes without HTTP")
	simulateCmd.Flags().String("message", "", "message the first user sends to the second after start")
	simulateCmd.Flags().String("snapshot", "", "write the registry to this YAML file after start")
	bindFlag(simulateCmd.Flags().Lookup("relays"), "network.relay_count")
	bindFlag(simulateCmd.Flags().Lookup("users"), "network.user_count")
	bindFlag(simulateCmd.Flags().Lookup("in-process"), "transport.in_process")

	keygenCmd.Flags().String("name", "relay", "key file name without extension")
	keygenCmd.Flags().String("key-dir", "", "directory to store the key in (default relay.key_dir)")
}
