package config

import (
	"os"
	"path/filepath"

	"github.com/go-i2p/logger"
	"github.com/spf13/viper"
)

var (
	CfgFile string
	log     = logger.GetGoI2PLogger()
)

const GOONION_BASE_DIR = ".go-onion"

// InitConfig loads defaults, reads (or creates) the config file and leaves
// the merged result in viper. Call CurrentConfig to get a typed snapshot.
func InitConfig() {
	if CfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(CfgFile)
	} else {
		viper.AddConfigPath(BuildOnionDirPath())
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	setDefaults()
	handleConfigFile()
}

func setDefaults() {
	d := Defaults()

	viper.SetDefault("network.host", d.Network.Host)
	viper.SetDefault("network.directory_port", d.Network.DirectoryPort)
	viper.SetDefault("network.relay_base_port", d.Network.RelayBasePort)
	viper.SetDefault("network.user_base_port", d.Network.UserBasePort)
	viper.SetDefault("network.relay_count", d.Network.RelayCount)
	viper.SetDefault("network.user_count", d.Network.UserCount)

	viper.SetDefault("protocol.hop_count", d.Protocol.HopCount)
	viper.SetDefault("protocol.suite", d.Protocol.Suite)
	viper.SetDefault("protocol.destination_width", d.Protocol.DestinationWidth)

	viper.SetDefault("transport.hop_timeout", d.Transport.HopTimeout)
	viper.SetDefault("transport.in_process", d.Transport.InProcess)

	viper.SetDefault("relay.rate_limit", d.Relay.RateLimit)
	viper.SetDefault("relay.burst", d.Relay.Burst)
	viper.SetDefault("relay.validate_destinations", d.Relay.ValidateDestinations)
	viper.SetDefault("relay.key_dir", d.Relay.KeyDir)

	viper.SetDefault("directory.store", d.Directory.Store)
	viper.SetDefault("directory.path", d.Directory.Path)
	viper.SetDefault("directory.seed_file", d.Directory.SeedFile)
}

// CurrentConfig returns a snapshot of the configuration currently held by viper.
// Keys must match the ones written by setDefaults.
func CurrentConfig() ConfigDefaults {
	return ConfigDefaults{
		Network: NetworkDefaults{
			Host:          viper.GetString("network.host"),
			DirectoryPort: viper.GetInt("network.directory_port"),
			RelayBasePort: viper.GetInt("network.relay_base_port"),
			UserBasePort:  viper.GetInt("network.user_base_port"),
			RelayCount:    viper.GetInt("network.relay_count"),
			UserCount:     viper.GetInt("network.user_count"),
		},
		Protocol: ProtocolDefaults{
			HopCount:         viper.GetInt("protocol.hop_count"),
			Suite:            viper.GetString("protocol.suite"),
			DestinationWidth: viper.GetInt("protocol.destination_width"),
		},
		Transport: TransportDefaults{
			HopTimeout: viper.GetDuration("transport.hop_timeout"),
			InProcess:  viper.GetBool("transport.in_process"),
		},
		Relay: RelayDefaults{
			RateLimit:            viper.GetFloat64("relay.rate_limit"),
			Burst:                viper.GetInt("relay.burst"),
			ValidateDestinations: viper.GetBool("relay.validate_destinations"),
			KeyDir:               viper.GetString("relay.key_dir"),
		},
		Directory: DirectoryDefaults{
			Store:    viper.GetString("directory.store"),
			Path:     viper.GetString("directory.path"),
			SeedFile: viper.GetString("directory.seed_file"),
		},
	}
}

func createDefaultConfig(defaultConfigDir string) {
	defaultConfigFile := filepath.Join(defaultConfigDir, "config.yaml")
	if err := os.MkdirAll(defaultConfigDir, 0o755); err != nil {
		log.Fatalf("Could not create config directory: %s", err)
	}

	if err := viper.SafeWriteConfigAs(defaultConfigFile); err != nil {
		log.Fatalf("Could not write default config file: %s", err)
	}

	log.Debugf("Created default configuration at: %s", defaultConfigFile)
}

func handleConfigFile() {
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			if CfgFile != "" {
				log.Fatalf("Config file %s is not found: %s", CfgFile, err)
			} else {
				createDefaultConfig(BuildOnionDirPath())
			}
		} else {
			log.Fatalf("Error reading config file: %s", err)
		}
	} else {
		log.Debugf("Using config file: %s", viper.ConfigFileUsed())
	}
}

// BuildOnionDirPath returns $HOME/.go-onion.
func BuildOnionDirPath() string {
	return filepath.Join(userHome(), GOONION_BASE_DIR)
}

// userHome falls back to $HOME and then the working directory when
// os.UserHomeDir fails, which happens in minimal containers.
func userHome() string {
	homeDir, err := os.UserHomeDir()
	if err == nil {
		return homeDir
	}
	if home := os.Getenv("HOME"); home != "" {
		log.WithError(err).Warn("os.UserHomeDir failed, falling back to $HOME")
		return home
	}
	if wd, wdErr := os.Getwd(); wdErr == nil {
		log.WithError(err).Warn("os.UserHomeDir and $HOME unavailable; falling back to working directory")
		return wd
	}
	return "."
}
