package mfa

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAESGCMEncryptor(t *testing.T) {
	t.Parallel()

	enc := NewAESGCMEncryptor(StaticKeyProvider{KeyBytes: bytes.Repeat([]byte{7}, 32)})
	seed := []byte("12345678901234567890")
	scope := Scope{Serial: "LSAE00012345", Purpose: PurposeOTPSeed}

	t.Run("round trip", func(t *testing.T) {
		t.Parallel()

		ct, err := enc.Encrypt(seed, scope)
		require.NoError(t, err)
		assert.NotContains(t, string(ct), string(seed))

		got, err := enc.Decrypt(ct, scope)
		require.NoError(t, err)
		assert.Equal(t, seed, got)
	})

	t.Run("bound to serial and purpose", func(t *testing.T) {
		t.Parallel()

		ct, err := enc.Encrypt(seed, scope)
		require.NoError(t, err)

		_, err = enc.Decrypt(ct, Scope{Serial: "OTHER", Purpose: PurposeOTPSeed})
		assert.ErrorIs(t, err, ErrDecryptFailed)

		_, err = enc.Decrypt(ct, Scope{Serial: scope.Serial, Purpose: PurposeTokenPIN})
		assert.ErrorIs(t, err, ErrDecryptFailed)
	})

	t.Run("malformed input", func(t *testing.T) {
		t.Parallel()

		_, err := enc.Encrypt(nil, scope)
		assert.ErrorIs(t, err, ErrPlaintextEmpty)

		_, err = enc.Decrypt([]byte{0, 1}, scope)
		assert.ErrorIs(t, err, ErrCiphertextTooShort)

		ct, err := enc.Encrypt(seed, scope)
		require.NoError(t, err)
		ct[1] = 9
		_, err = enc.Decrypt(ct, scope)
		assert.ErrorIs(t, err, ErrUnsupportedCiphertextVersion)
	})

	t.Run("key problems", func(t *testing.T) {
		t.Parallel()

		_, err := NewAESGCMEncryptor(StaticKeyProvider{}).Encrypt(seed, scope)
		assert.ErrorIs(t, err, ErrMissingStaticKey)

		_, err = NewAESGCMEncryptor(StaticKeyProvider{KeyBytes: []byte("short")}).Encrypt(seed, scope)
		assert.ErrorIs(t, err, ErrInvalidKeyLength)

		var nilEnc *AESGCMEncryptor
		_, err = nilEnc.Encrypt(seed, scope)
		assert.ErrorIs(t, err, ErrEncryptorNotConfigured)
	})
}
