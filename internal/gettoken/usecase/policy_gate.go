package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shandysiswandi/gettoken/internal/gettoken/entity"
	"github.com/shandysiswandi/gettoken/internal/pkg/goerror"
)

// checkQuota asks the policy provider about scope/action and returns the
// permitted count, or a forbidden error when the provider denies.
func (s *Usecase) checkQuota(ctx context.Context, scope, action string, p entity.PolicyParams) (int, error) {
	dec, err := s.policy.Decide(ctx, scope, action, p)
	if err != nil {
		slog.ErrorContext(ctx, "failed to evaluate policy",
			"scope", scope, "policy_action", action, "admin", p.Subject, "serial", p.Serial, "error", err)
		return 0, goerror.NewServer(err)
	}

	if !dec.Allowed {
		slog.WarnContext(ctx, "policy denied",
			"scope", scope, "policy_action", action, "admin", p.Subject, "serial", p.Serial, "realm", p.Realm, "reason", dec.Reason)
		return 0, policyDenied(scope, p)
	}

	return dec.Limit, nil
}

func policyDenied(scope string, p entity.PolicyParams) error {
	msg := fmt.Sprintf("The policy forbids receiving OTP values for the token %s in this realm", p.Serial)
	if scope == entity.PolicyScopeAdmin {
		msg = fmt.Sprintf("You do not have the administrative right to do a getotp on token %s in realm %s", p.Serial, p.Realm)
	}

	return goerror.NewBusinessWithFields(msg, goerror.CodeForbidden, "serial", p.Serial)
}
