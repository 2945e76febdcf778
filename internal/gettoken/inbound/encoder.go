package inbound

import "github.com/shandysiswandi/gettoken/internal/gettoken/entity"

const (
	descNotFound          = "No Token with this serial number"
	descUnsupported       = "This Token does not support the getOtp function"
	descAmbiguous         = "The user has more than one token"
	descNoTokenForUser    = "No Token found for this user"
	descMissingParameters = "you need to provide a user or a serial"
	descUnknownOutcome    = "unknown retrieval outcome"
)

// encodeOutcome maps an outcome to its response body. It has no side effects.
func encodeOutcome(out *entity.Outcome) any {
	if out == nil {
		return FailureResponse{Description: descUnknownOutcome}
	}

	switch out.Kind {
	case entity.OutcomeSuccess:
		if out.Value != nil {
			return GetOTPResponse{
				Result: true,
				OTPVal: out.Value.Value,
				PIN:    out.Value.PIN,
				Pass:   out.Value.Password,
			}
		}

		otps := make([]OTPEntryResponse, 0, len(out.Entries))
		for _, e := range out.Entries {
			otps = append(otps, OTPEntryResponse{Index: e.Index, OTPVal: e.Value, Time: e.TimeWindow})
		}
		return GetMultiOTPResponse{Result: true, Serial: out.Serial, OTP: otps}

	case entity.OutcomeNotFound:
		return FailureResponse{Description: descNotFound}
	case entity.OutcomeUnsupported:
		return FailureResponse{Description: descUnsupported}
	case entity.OutcomeAmbiguous:
		return FailureResponse{Description: descAmbiguous, Serials: out.Candidates}
	case entity.OutcomeNoTokenForUser:
		return FailureResponse{Description: descNoTokenForUser}
	case entity.OutcomeMissingParameters:
		return FailureResponse{Description: descMissingParameters}
	default:
		return FailureResponse{Description: descUnknownOutcome}
	}
}
