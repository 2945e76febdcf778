// Package otp computes HOTP (RFC 4226) and TOTP (RFC 6238) values from a raw
// seed. TOTP is expressed as HOTP over a time-window counter so that callers
// can walk consecutive windows.
package otp
