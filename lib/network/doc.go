// Package network assembles directories, relays and users from configuration.
//
// The Start* functions bring up a single node the way the go-onion
// subcommands do; Launch brings up a whole network in one process for
// simulations and integration tests.
package network
