package onion

import (
	"crypto/rsa"
	"errors"
	"strings"
	"testing"

	"github.com/go-i2p/common/base64"
	"github.com/go-i2p/go-onion/lib/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testRelay struct {
	addr Address
	priv *rsa.PrivateKey
}

func newTestRelays(t *testing.T, addrs ...Address) ([]testRelay, []Hop) {
	t.Helper()
	relays := make([]testRelay, len(addrs))
	hops := make([]Hop, len(addrs))
	for i, addr := range addrs {
		priv, err := crypto.GenerateKeyPair()
		require.NoError(t, err)
		relays[i] = testRelay{addr: addr, priv: priv}
		hops[i] = Hop{Address: addr, PublicKey: &priv.PublicKey}
	}
	return relays, hops
}

func codecs(t *testing.T) []*Codec {
	t.Helper()
	aes, err := NewCodecByName(crypto.SuiteAESCBC, DefaultDestinationWidth)
	require.NoError(t, err)
	return []*Codec{DefaultCodec(), aes}
}

func TestWrapPeelRoundTrip(t *testing.T) {
	relays, hops := newTestRelays(t, 4001, 4002, 4003)

	for _, codec := range codecs(t) {
		t.Run(codec.Suite().Name(), func(t *testing.T) {
			for _, plaintext := range []string{"hello", "", strings.Repeat("x", 5000), "multi\nline ✓"} {
				wire, err := codec.Wrap(plaintext, 3001, hops)
				require.NoError(t, err)

				msg := wire
				var next Address
				for i, r := range relays {
					next, msg, err = codec.Peel(msg, r.priv)
					require.NoError(t, err, "hop %d", i)
					if i < len(relays)-1 {
						assert.Equal(t, relays[i+1].addr, next, "hop %d must only learn the next relay", i)
					}
				}
				assert.Equal(t, Address(3001), next)
				assert.Equal(t, plaintext, msg)
			}
		})
	}
}

func TestWrapSingleHop(t *testing.T) {
	relays, hops := newTestRelays(t, 4005)
	codec := DefaultCodec()

	wire, err := codec.Wrap("direct", 3002, hops)
	require.NoError(t, err)

	next, rest, err := codec.Peel(wire, relays[0].priv)
	require.NoError(t, err)
	assert.Equal(t, Address(3002), next)
	assert.Equal(t, "direct", rest)
}

func TestWrapLayerFraming(t *testing.T) {
	relays, hops := newTestRelays(t, 4001, 4002, 4003)
	codec := DefaultCodec()

	wire, err := codec.Wrap("hello", 3001, hops)
	require.NoError(t, err)

	key, sealed, err := SplitLayer(wire)
	require.NoError(t, err)
	assert.Len(t, key, 344)

	raw, err := base64.DecodeString(sealed)
	require.NoError(t, err)
	assert.Greater(t, len(raw), codec.Suite().IVSize())

	// Each peel strips exactly one layer: the remainder is again a full layer
	_, inner, err := codec.Peel(wire, relays[0].priv)
	require.NoError(t, err)
	_, _, err = SplitLayer(inner)
	assert.NoError(t, err)
	assert.Less(t, len(inner), len(wire))
}

func TestWrapUsesFreshKeysPerMessage(t *testing.T) {
	_, hops := newTestRelays(t, 4001, 4002, 4003)
	codec := DefaultCodec()

	a, err := codec.Wrap("same", 3001, hops)
	require.NoError(t, err)
	b, err := codec.Wrap("same", 3001, hops)
	require.NoError(t, err)

	assert.NotEqual(t, a[:WrappedKeyWidth], b[:WrappedKeyWidth])
	assert.NotEqual(t, a, b)
}

func TestPeelLayerIsolation(t *testing.T) {
	relays, hops := newTestRelays(t, 4001, 4002, 4003)
	codec := DefaultCodec()

	wire, err := codec.Wrap("secret", 3001, hops)
	require.NoError(t, err)

	// B and C cannot open A's layer
	for _, r := range relays[1:] {
		next, rest, err := codec.Peel(wire, r.priv)
		var decErr *DecryptionError
		require.True(t, errors.As(err, &decErr), "relay %s must fail with DecryptionError", r.addr)
		assert.Equal(t, StageUnwrap, decErr.Stage)
		assert.Zero(t, next)
		assert.Empty(t, rest)
	}

	// After A peels, A cannot peel B's layer either
	_, inner, err := codec.Peel(wire, relays[0].priv)
	require.NoError(t, err)
	_, _, err = codec.Peel(inner, relays[0].priv)
	var decErr *DecryptionError
	assert.True(t, errors.As(err, &decErr))
}

func TestPeelDetectsTamperedCiphertext(t *testing.T) {
	relays, hops := newTestRelays(t, 4001, 4002, 4003)
	codec := DefaultCodec()

	wire, err := codec.Wrap("hello", 3001, hops)
	require.NoError(t, err)

	key, sealed, err := SplitLayer(wire)
	require.NoError(t, err)
	raw, err := base64.DecodeString(sealed)
	require.NoError(t, err)

	for _, offset := range []int{codec.Suite().IVSize(), len(raw) / 2, len(raw) - 1} {
		tampered := append([]byte(nil), raw...)
		tampered[offset] ^= 0x80

		_, _, err := codec.Peel(key+base64.EncodeToString(tampered), relays[0].priv)
		var decErr *DecryptionError
		require.True(t, errors.As(err, &decErr), "flip at %d must be detected", offset)
		assert.Equal(t, StageOpen, decErr.Stage)
		assert.ErrorIs(t, err, crypto.ErrAuthenticationFails)
		assert.NotErrorIs(t, err, crypto.ErrUnwrapFailed)
	}
}

func TestPeelRejectsMalformedInput(t *testing.T) {
	relays, hops := newTestRelays(t, 4001)
	codec := DefaultCodec()

	wire, err := codec.Wrap("hello", 3001, hops)
	require.NoError(t, err)

	tests := []struct {
		name    string
		message string
		stage   string
	}{
		{"empty", "", StageSplit},
		{"only key", wire[:WrappedKeyWidth], StageSplit},
		{"bad key encoding", "!" + wire[1:], StageDecode},
		{"bad payload encoding", wire[:WrappedKeyWidth] + "!!!!", StageDecode},
		{"payload shorter than iv", wire[:WrappedKeyWidth] + base64.EncodeToString([]byte("abc")), StageSplit},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := codec.Peel(tt.message, relays[0].priv)
			var decErr *DecryptionError
			require.True(t, errors.As(err, &decErr))
			assert.Equal(t, tt.stage, decErr.Stage)
		})
	}
}

func TestPeelRejectsBadDestinationField(t *testing.T) {
	priv, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	suite := crypto.ChaCha20Poly1305Suite{}
	codec := DefaultCodec()

	key, err := suite.GenerateKey()
	require.NoError(t, err)
	wrapped, err := crypto.WrapKey(&priv.PublicKey, key)
	require.NoError(t, err)

	for _, payload := range []string{"short", "00000x4001rest"} {
		sealed, err := suite.Seal(key, []byte(payload))
		require.NoError(t, err)
		msg := base64.EncodeToString(wrapped) + base64.EncodeToString(sealed)

		_, _, err = codec.Peel(msg, priv)
		var decErr *DecryptionError
		require.True(t, errors.As(err, &decErr), "payload %q", payload)
		assert.Equal(t, StageFrame, decErr.Stage)
		assert.ErrorIs(t, err, ErrMalformedDestination)
	}
}

func TestWrapErrors(t *testing.T) {
	codec := DefaultCodec()

	_, err := codec.Wrap("hello", 3001, nil)
	assert.ErrorIs(t, err, ErrEmptyPath)
	assert.NotErrorIs(t, err, ErrDestinationOverflow)

	_, hops := newTestRelays(t, 4001)
	_, err = codec.Wrap("hello", 10000000000, hops)
	assert.ErrorIs(t, err, ErrDestinationOverflow)
	assert.NotErrorIs(t, err, ErrEmptyPath)

	_, err = codec.Wrap("hello", 3001, []Hop{{Address: 4001}})
	assert.ErrorIs(t, err, crypto.ErrInvalidPublicKey)
}

func TestNewCodecValidation(t *testing.T) {
	_, err := NewCodec(nil, 10)
	assert.Error(t, err)

	_, err = NewCodec(crypto.AESCBCSuite{}, 0)
	assert.Error(t, err)

	_, err = NewCodecByName("none", 10)
	assert.ErrorIs(t, err, crypto.ErrUnknownSuite)

	c, err := NewCodecByName(crypto.SuiteAESCBC, 12)
	require.NoError(t, err)
	assert.Equal(t, 12, c.DestinationWidth())
	assert.Equal(t, crypto.SuiteAESCBC, c.Suite().Name())
}
