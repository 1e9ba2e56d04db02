// Package transport hands wire messages to the node listening on an address.
//
// Delivery is at-most-once and never retried: a failed hand-off is reported
// to the caller as a *DeliveryError and the message is gone. Nothing is ever
// sent back toward the previous hop.
//
// Two transports are provided:
//   - HTTPTransport posts {"message": payload} to http://host:port/message
//     with a per-hop timeout.
//   - Loopback dispatches to handlers registered in the same process, for
//     tests and single-process simulations.
//
// TransportMuxer combines several transports and delivers through the first
// one compatible with the target address.
package transport
