// Package config provides configuration management for go-onion nodes.
//
// # Sources
//
// Values are resolved by viper in the usual order: command line flags bound by
// the CLI, then the YAML config file, then the defaults returned by Defaults().
// The config file lives at $HOME/.go-onion/config.yaml and is created with the
// default values on first run when no explicit file was requested.
//
// # Protocol constants
//
// The protocol section (suite, destination width, hop count) must be identical
// on every participant of a network. Changing any of these values is a
// protocol version change: a sender and a relay that disagree on them cannot
// exchange messages.
package config
