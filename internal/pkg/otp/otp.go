package otp

import (
	"encoding/base32"
	"errors"
	"strings"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/hotp"
	"github.com/pquerna/otp/totp"
)

// DefaultStep is the TOTP time step when a token does not define one.
const DefaultStep = 30 * time.Second

var (
	// ErrEmptySeed indicates a token without seed material.
	ErrEmptySeed = errors.New("otp: empty seed")
	// ErrUnsupportedDigits indicates an OTP length other than 6 or 8.
	ErrUnsupportedDigits = errors.New("otp: digits must be 6 or 8")
	// ErrUnsupportedAlgorithm indicates an unknown hash name.
	ErrUnsupportedAlgorithm = errors.New("otp: unsupported hash algorithm")
)

// Params are the per-token generation settings.
type Params struct {
	Digits    int
	Algorithm string
	// Step is the TOTP period; zero means DefaultStep. HOTP ignores it.
	Step time.Duration
}

// Generator computes one-time passwords.
type Generator interface {
	HOTP(seed []byte, counter uint64, p Params) (string, error)
	TOTP(seed []byte, window uint64, p Params) (string, error)
}

// Standard implements Generator with github.com/pquerna/otp.
type Standard struct{}

// NewStandard returns the RFC 4226/6238 generator.
func NewStandard() *Standard {
	return &Standard{}
}

// HOTP returns the value at counter.
func (*Standard) HOTP(seed []byte, counter uint64, p Params) (string, error) {
	if len(seed) == 0 {
		return "", ErrEmptySeed
	}

	digits, err := parseDigits(p.Digits)
	if err != nil {
		return "", err
	}

	algo, err := ParseAlgorithm(p.Algorithm)
	if err != nil {
		return "", err
	}

	return hotp.GenerateCodeCustom(base32.StdEncoding.EncodeToString(seed), counter, hotp.ValidateOpts{
		Digits:    digits,
		Algorithm: algo,
	})
}

// TOTP returns the value for a time window, i.e. unix time divided by step.
func (*Standard) TOTP(seed []byte, window uint64, p Params) (string, error) {
	if len(seed) == 0 {
		return "", ErrEmptySeed
	}

	digits, err := parseDigits(p.Digits)
	if err != nil {
		return "", err
	}

	algo, err := ParseAlgorithm(p.Algorithm)
	if err != nil {
		return "", err
	}

	step := p.Step
	if step < time.Second {
		step = DefaultStep
	}

	return totp.GenerateCodeCustom(base32.StdEncoding.EncodeToString(seed), WindowStart(window, step), totp.ValidateOpts{
		Period:    uint(step / time.Second),
		Digits:    digits,
		Algorithm: algo,
	})
}

// Window returns the TOTP window containing at.
func Window(at time.Time, step time.Duration) uint64 {
	if step < time.Second {
		step = DefaultStep
	}
	secs := at.Unix()
	if secs < 0 {
		return 0
	}
	return uint64(secs) / uint64(step/time.Second)
}

// WindowStart returns the first instant of window.
func WindowStart(window uint64, step time.Duration) time.Time {
	if step < time.Second {
		step = DefaultStep
	}
	return time.Unix(int64(window)*int64(step/time.Second), 0).UTC()
}

func parseDigits(n int) (otp.Digits, error) {
	switch n {
	case 0, 6:
		return otp.DigitsSix, nil
	case 8:
		return otp.DigitsEight, nil
	default:
		return 0, ErrUnsupportedDigits
	}
}

// ParseAlgorithm maps a stored hash name (sha1, sha256, sha512) to the library value.
// An empty name means sha1.
func ParseAlgorithm(name string) (otp.Algorithm, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "sha1":
		return otp.AlgorithmSHA1, nil
	case "sha256":
		return otp.AlgorithmSHA256, nil
	case "sha512":
		return otp.AlgorithmSHA512, nil
	default:
		return 0, ErrUnsupportedAlgorithm
	}
}
