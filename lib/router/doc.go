// Package router implements the participants of an onion network: the
// Sender that builds a circuit and wraps a message for it, the Relay that
// peels one layer and forwards the remainder, and the User that originates
// messages and receives them at the end of a circuit.
//
// # Relay lifecycle
//
// A relay registers its public key with the directory when it starts. Each
// inbound message then moves through
//
//	received -> peeled -> Forwarded
//	received -> Rejected            (decryption failed or destination implausible)
//	received -> peeled -> Undeliverable (next hop did not accept the hand-off)
//
// No outcome is ever reported back to the previous hop. The HTTP surface
// answers a POST /message as soon as the message has been accepted for
// processing, before it is peeled.
//
// # Usage Example
//
//	relay, err := router.NewRelay(router.RelayConfig{
//	    Address:   4000,
//	    Codec:     onion.DefaultCodec(),
//	    Transport: httpTransport,
//	    Directory: directoryClient,
//	    KeyStore:  ks,
//	})
//	if err := relay.Start(ctx); err != nil {
//	    return err
//	}
//	defer relay.Stop(context.Background())
package router
