// Package onion builds and peels the nested layer format carried between hops.
//
// # Wire format
//
// A message arriving at hop i is
//
//	wrappedKey_i || sealed_i
//
// where wrappedKey_i is the layer key RSA-OAEP encrypted to hop i and
// encoded as WrappedKeyWidth characters of I2P base64, and sealed_i is the
// I2P base64 encoding of iv || ciphertext produced by the configured
// SymmetricSuite. Opening sealed_i yields
//
//	destination (DestinationWidth zero-padded decimal digits) || remainder
//
// The remainder is the message for the next hop: another full layer for an
// intermediate hop, or the plaintext for the last one.
//
// # Roles
//
// Wrap is run once by a sender, innermost layer first, so the first hop's
// layer ends up outermost. Peel is run by every relay with its own private
// key and reveals only the next destination.
package onion
