// Package mfa encrypts token secrets at rest.
package mfa

// Encryptor encrypts and decrypts token material bound to a Scope.
type Encryptor interface {
	Encrypt(plaintext []byte, scope Scope) (ciphertext []byte, err error)
	Decrypt(ciphertext []byte, scope Scope) (plaintext []byte, err error)
}

// KeyProvider returns the 32-byte AES key for a scope.
type KeyProvider interface {
	Key(scope Scope) ([]byte, error)
}
