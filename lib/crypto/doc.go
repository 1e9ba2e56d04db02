// Package crypto holds the key handling primitives used by onion layers.
//
// Asymmetric keys are RSA-2048. A layer key is wrapped with RSA-OAEP over
// SHA-256, which always produces WrappedKeySize bytes; that fixed width is
// what allows a relay to split an incoming message without a length prefix.
//
// Layer payloads are sealed with a SymmetricSuite. Two suites exist:
//
//   - chacha20-poly1305: authenticated, 12 byte nonce (default)
//   - aes-256-cbc: PKCS#7 padding-checked, 16 byte IV
//
// Every Seal draws a fresh random IV. Sealed output is always iv || ciphertext.
package crypto
