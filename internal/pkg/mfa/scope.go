package mfa

// Purpose identifies what an encrypted blob holds.
type Purpose string

const (
	// PurposeOTPSeed scopes encryption to a token's OTP seed.
	PurposeOTPSeed Purpose = "otp_seed"
	// PurposeTokenPIN scopes encryption to a token's static PIN.
	PurposeTokenPIN Purpose = "token_pin"
)

// Scope binds a ciphertext to one token and purpose. It is used as AES-GCM
// additional data, so a seed cannot be decrypted as another token's seed or
// as a PIN.
type Scope struct {
	Serial  string
	Purpose Purpose
}
