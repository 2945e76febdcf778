package usecase

import (
	"testing"

	"github.com/shandysiswandi/gettoken/internal/gettoken/entity"
	"github.com/shandysiswandi/gettoken/internal/pkg/goerror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetMultiOTPClampsToPolicy(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		requested int
		limit     int
		want      int
	}{
		{name: "above limit", requested: 10, limit: 3, want: 3},
		{name: "below limit", requested: 2, limit: 5, want: 2},
		{name: "equal to limit", requested: 4, limit: 4, want: 4},
		{name: "zero limit", requested: 6, limit: 0, want: 0},
		{name: "negative limit", requested: 6, limit: -2, want: 0},
		{name: "zero requested", requested: 0, limit: 5, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			// Arrange
			h := newHarness(t)
			h.policy.limit = tt.limit

			// Act
			out, err := h.uc.GetMultiOTP(adminCtx(), GetMultiOTPInput{Serial: "LSAE00012345", Count: intPtr(tt.requested)})

			// Assert
			require.NoError(t, err)
			require.Equal(t, entity.OutcomeSuccess, out.Kind)
			assert.Equal(t, "LSAE00012345", out.Serial)
			assert.Len(t, out.Entries, tt.want)
			assert.Equal(t, tt.want, h.otp.lastCount)
			assert.Equal(t, []string{"admin/getotp", "gettoken/max_count"}, h.policy.calls)
			assert.Equal(t, 1, h.sess.commits)
			assert.Equal(t, 1, h.sess.closes)
		})
	}
}

func TestGetMultiOTPAdminDenied(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.policy.adminAllowed = false

	out, err := h.uc.GetMultiOTP(adminCtx(), GetMultiOTPInput{Serial: "LSAE00012345", Count: intPtr(3)})

	assert.Nil(t, out)
	gerr := requireCode(t, err, goerror.CodeForbidden)
	assert.Equal(t, "You do not have the administrative right to do a getotp on token LSAE00012345 in realm myrealm", gerr.Msg())
	assert.Equal(t, []string{"admin/getotp"}, h.policy.calls)
	assert.Equal(t, 0, h.otp.multiCalls)
	assert.Equal(t, 1, h.sess.rollbacks)
	assert.Equal(t, 1, h.sess.closes)
}

func TestGetMultiOTPValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   GetMultiOTPInput
	}{
		{name: "missing count", in: GetMultiOTPInput{Serial: "LSAE00012345"}},
		{name: "missing serial", in: GetMultiOTPInput{Count: intPtr(2)}},
		{name: "negative count", in: GetMultiOTPInput{Serial: "LSAE00012345", Count: intPtr(-1)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := newHarness(t)

			_, err := h.uc.GetMultiOTP(adminCtx(), tt.in)

			requireCode(t, err, goerror.CodeInvalidInput)
			assert.Equal(t, 0, h.db.begins)
			assert.Empty(t, h.policy.calls)
		})
	}
}

func TestGetMultiOTPUnknownSerial(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.otp.err = entity.ErrTokenNotFound

	out, err := h.uc.GetMultiOTP(adminCtx(), GetMultiOTPInput{Serial: "NOPE0001", Count: intPtr(2)})

	require.NoError(t, err)
	assert.Equal(t, entity.OutcomeNotFound, out.Kind)
	assert.Equal(t, "mydefrealm", h.policy.params[0].Realm)
	assert.Equal(t, 1, h.sess.rollbacks)
}

func TestGetMultiOTPPublishesAudit(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.policy.limit = 2

	_, err := h.uc.GetMultiOTP(adminCtx(), GetMultiOTPInput{Serial: "LSAE00012345", Count: intPtr(5), Client: "10.1.1.1"})
	require.NoError(t, err)
	require.NoError(t, h.gm.Wait())

	require.Len(t, h.msg.records, 1)
	rec := h.msg.records[0]
	assert.Equal(t, entity.AuditActionGetMultiOTP, rec.Action)
	assert.True(t, rec.Success)
	assert.Equal(t, 2, rec.Info["count"])
	assert.Equal(t, "success", rec.Info["outcome"])
}
