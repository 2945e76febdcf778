// Package validator validates request structs before they reach the usecases.
//
// Usecases depend on the Validator interface; V10Validator is the
// go-playground/validator implementation with English messages and the
// token-specific rules used by the gettoken module.
package validator

// Validator validates a struct and returns a V10ValidationError on failure.
type Validator interface {
	Validate(data any) error
}
