package inbound

type GetOTPResponse struct {
	Result bool   `json:"result"`
	OTPVal string `json:"otpval"`
	PIN    string `json:"pin"`
	Pass   string `json:"pass"`
}

func (GetOTPResponse) Message() string {
	return "OTP value retrieved"
}

type OTPEntryResponse struct {
	Index  int64  `json:"index"`
	OTPVal string `json:"otpval"`
	Time   string `json:"time,omitempty"`
}

type GetMultiOTPResponse struct {
	Result bool               `json:"result"`
	Serial string             `json:"serial"`
	OTP    []OTPEntryResponse `json:"otp"`
}

func (GetMultiOTPResponse) Message() string {
	return "OTP values retrieved"
}

// FailureResponse is a negative retrieval result. It is returned with 200
// like the success shapes; result=false tells the caller nothing was disclosed.
type FailureResponse struct {
	Result      bool     `json:"result"`
	Description string   `json:"description"`
	Serials     []string `json:"serials,omitempty"`
}

func (r FailureResponse) Message() string {
	return r.Description
}
