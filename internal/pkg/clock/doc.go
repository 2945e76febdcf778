// Package clock provides a tiny time abstraction.
//
// OTP generation is time dependent; usecases read "now" through Clocker so
// tests can pin TOTP windows with Fixed.
package clock
