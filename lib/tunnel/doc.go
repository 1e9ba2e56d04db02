// Package tunnel selects circuits: the ordered, duplicate-free list of relays
// a single message traverses.
//
// Selection is uniform random sampling without replacement over the current
// directory snapshot. Every message gets its own circuit; nothing is reused
// or kept after the send. There is no weighting, no guard stability and no
// exclusion of the sender.
//
//	builder, _ := tunnel.NewBuilder(3)
//	circuit, err := builder.Build(nodes)
//	hops, err := tunnel.Resolve(circuit, nodes)
package tunnel
