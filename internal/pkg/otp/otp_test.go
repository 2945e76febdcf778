package otp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	seedSHA1   = []byte("12345678901234567890")
	seedSHA256 = []byte("12345678901234567890123456789012")
	seedSHA512 = []byte("1234567890123456789012345678901234567890123456789012345678901234")
)

func TestHOTP(t *testing.T) {
	t.Parallel()

	gen := NewStandard()
	want := []string{"755224", "287082", "359152", "969429", "338314", "254676", "287922", "162583", "399871", "520489"}

	for counter, code := range want {
		got, err := gen.HOTP(seedSHA1, uint64(counter), Params{Digits: 6})
		require.NoError(t, err)
		assert.Equal(t, code, got, "counter %d", counter)
	}
}

func TestTOTP(t *testing.T) {
	t.Parallel()

	gen := NewStandard()
	tests := []struct {
		at   int64
		seed []byte
		algo string
		want string
	}{
		{at: 59, seed: seedSHA1, algo: "sha1", want: "94287082"},
		{at: 59, seed: seedSHA256, algo: "sha256", want: "46119246"},
		{at: 59, seed: seedSHA512, algo: "SHA512", want: "90693936"},
		{at: 1111111109, seed: seedSHA1, algo: "", want: "07081804"},
		{at: 1234567890, seed: seedSHA1, algo: "sha1", want: "89005924"},
	}

	for _, tt := range tests {
		w := Window(time.Unix(tt.at, 0), DefaultStep)
		got, err := gen.TOTP(tt.seed, w, Params{Digits: 8, Algorithm: tt.algo})
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "at %d %s", tt.at, tt.algo)
	}
}

func TestTOTPCustomStep(t *testing.T) {
	t.Parallel()

	step := time.Minute
	w := Window(time.Unix(119, 0), step)
	require.Equal(t, uint64(1), w)

	got, err := NewStandard().TOTP(seedSHA1, w, Params{Digits: 6, Step: step})
	require.NoError(t, err)
	assert.Equal(t, "287082", got)
}

func TestWindow(t *testing.T) {
	t.Parallel()

	at := time.Date(2009, 2, 13, 23, 31, 30, 0, time.UTC)
	w := Window(at, 30*time.Second)

	assert.Equal(t, uint64(41152263), w)
	assert.Equal(t, at, WindowStart(w, 30*time.Second))
	assert.Equal(t, uint64(20576131), Window(at, time.Minute))
	assert.Equal(t, uint64(0), Window(time.Unix(-5, 0), 0))
}

func TestGeneratorErrors(t *testing.T) {
	t.Parallel()

	gen := NewStandard()

	_, err := gen.HOTP(nil, 0, Params{})
	assert.ErrorIs(t, err, ErrEmptySeed)

	_, err = gen.HOTP(seedSHA1, 0, Params{Digits: 7})
	assert.ErrorIs(t, err, ErrUnsupportedDigits)

	_, err = gen.HOTP(seedSHA1, 0, Params{Algorithm: "md5"})
	assert.ErrorIs(t, err, ErrUnsupportedAlgorithm)
}
