package entity

import "errors"

var (
	// ErrTokenNotFound is returned by the OTP provider for an unknown serial.
	ErrTokenNotFound = errors.New("gettoken: no token with this serial number")
	// ErrTokenUnsupported is returned by the OTP provider for a token that cannot disclose values.
	ErrTokenUnsupported = errors.New("gettoken: token does not support getotp")
)

// OTPValue is a single retrieved value.
type OTPValue struct {
	Index    int64
	Value    string
	PIN      string
	Password string
}

// OTPEntry is one element of a batch retrieval, in window order.
type OTPEntry struct {
	Index      int64
	Value      string
	TimeWindow string
}

type OutcomeKind int

const (
	OutcomeSuccess OutcomeKind = iota
	OutcomeAmbiguous
	OutcomeNotFound
	OutcomeNoTokenForUser
	OutcomeUnsupported
	OutcomeMissingParameters
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeAmbiguous:
		return "ambiguous"
	case OutcomeNotFound:
		return "not_found"
	case OutcomeNoTokenForUser:
		return "no_token_for_user"
	case OutcomeUnsupported:
		return "unsupported"
	case OutcomeMissingParameters:
		return "missing_parameters"
	default:
		return "unknown"
	}
}

// Outcome is the result of a retrieval. Only the fields relevant to Kind are set:
// Value for a single success, Entries for a batch success, Candidates when ambiguous.
type Outcome struct {
	Kind       OutcomeKind
	Serial     string
	Value      *OTPValue
	Entries    []OTPEntry
	Candidates []string
}

func (o *Outcome) IsSuccess() bool {
	return o != nil && o.Kind == OutcomeSuccess
}

func NewSingleSuccess(serial string, v OTPValue) *Outcome {
	return &Outcome{Kind: OutcomeSuccess, Serial: serial, Value: &v}
}

func NewBatchSuccess(serial string, entries []OTPEntry) *Outcome {
	if entries == nil {
		entries = []OTPEntry{}
	}
	return &Outcome{Kind: OutcomeSuccess, Serial: serial, Entries: entries}
}

func NewAmbiguous(serials []string) *Outcome {
	return &Outcome{Kind: OutcomeAmbiguous, Candidates: serials}
}

func NewNotFound(serial string) *Outcome {
	return &Outcome{Kind: OutcomeNotFound, Serial: serial}
}

func NewNoTokenForUser() *Outcome {
	return &Outcome{Kind: OutcomeNoTokenForUser}
}

func NewUnsupported(serial string) *Outcome {
	return &Outcome{Kind: OutcomeUnsupported, Serial: serial}
}

func NewMissingParameters() *Outcome {
	return &Outcome{Kind: OutcomeMissingParameters}
}
