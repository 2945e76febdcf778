package inbound

import (
	"time"

	"github.com/shandysiswandi/gettoken/internal/gettoken/usecase"
	"github.com/shandysiswandi/gettoken/internal/pkg/router"
)

var curTimeLayouts = []string{time.RFC3339, "2006-01-02 15:04:05.999999", time.DateTime}

// HTTPEndpoint exposes the OTP retrieval handlers.
type HTTPEndpoint struct {
	uc uc
}

func parseCurTime(r *router.Request) (*time.Time, error) {
	if !r.HasQuery("curTime") {
		return nil, nil
	}

	at, err := r.GetQueryTime("curTime", curTimeLayouts...)
	if err != nil {
		return nil, err
	}

	return &at, nil
}

// GetOTP returns the current OTP value of a token.
// @Summary Retrieve OTP value
// @Description Returns the OTP value, PIN and password of the token addressed by serial, or of the single token owned by user. Limited by the gettoken max_count policy.
// @Tags GetToken
// @Produce json
// @Security BearerAuth
// @Param serial query string false "Token serial"
// @Param user query string false "Token owner login"
// @Param realm query string false "Realm of the user, defaults to the configured realm"
// @Param curTime query string false "Evaluation time, honoured only when time override is enabled"
// @Success 200 {object} router.successResponse{data=GetOTPResponse} "OTP value"
// @Success 200 {object} router.successResponse{data=FailureResponse} "Negative result"
// @Failure 401 {object} router.errorResponse "Authentication required"
// @Failure 403 {object} router.errorResponse "Denied by policy"
// @Failure 422 {object} router.errorResponse "Validation error"
// @Failure 503 {object} router.errorResponse "getotp is not activated"
// @Router /api/v1/gettoken/getotp [get]
func (h *HTTPEndpoint) GetOTP(r *router.Request) (any, error) {
	if err := h.uc.Enabled(r.Context()); err != nil {
		return nil, err
	}

	curTime, err := parseCurTime(r)
	if err != nil {
		return nil, err
	}

	out, err := h.uc.GetOTP(r.Context(), usecase.GetOTPInput{
		Serial:  r.GetQuery("serial"),
		User:    r.GetQuery("user"),
		Realm:   r.GetQuery("realm"),
		CurTime: curTime,
		Client:  r.ClientIP(),
	})
	if err != nil {
		return nil, err
	}

	return encodeOutcome(out), nil
}

// GetMultiOTP returns consecutive OTP values of a token.
// @Summary Retrieve multiple OTP values
// @Description Returns up to count OTP values starting at the current one. Requires the admin getotp right; count is reduced to the max_count policy.
// @Tags GetToken
// @Produce json
// @Security BearerAuth
// @Param serial query string true "Token serial"
// @Param count query int true "Number of values"
// @Param curTime query string false "Evaluation time, honoured only when time override is enabled"
// @Param view query string false "Accepted and ignored"
// @Success 200 {object} router.successResponse{data=GetMultiOTPResponse} "OTP values"
// @Success 200 {object} router.successResponse{data=FailureResponse} "Negative result"
// @Failure 401 {object} router.errorResponse "Authentication required"
// @Failure 403 {object} router.errorResponse "Denied by policy"
// @Failure 422 {object} router.errorResponse "Validation error"
// @Failure 503 {object} router.errorResponse "getotp is not activated"
// @Router /api/v1/gettoken/getmultiotp [get]
func (h *HTTPEndpoint) GetMultiOTP(r *router.Request) (any, error) {
	if err := h.uc.Enabled(r.Context()); err != nil {
		return nil, err
	}

	count, err := r.GetQueryIntPtr("count")
	if err != nil {
		return nil, err
	}

	curTime, err := parseCurTime(r)
	if err != nil {
		return nil, err
	}

	out, err := h.uc.GetMultiOTP(r.Context(), usecase.GetMultiOTPInput{
		Serial:  r.GetQuery("serial"),
		Count:   count,
		CurTime: curTime,
		Client:  r.ClientIP(),
	})
	if err != nil {
		return nil, err
	}

	return encodeOutcome(out), nil
}
