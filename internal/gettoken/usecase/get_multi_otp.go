package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/shandysiswandi/gettoken/internal/gettoken/entity"
	"github.com/shandysiswandi/gettoken/internal/pkg/goerror"
)

type GetMultiOTPInput struct {
	Serial  string `validate:"required,serial"`
	Count   *int   `validate:"required,gte=0"`
	CurTime *time.Time
	Client  string
}

// GetMultiOTP retrieves up to Count consecutive OTP values of one token.
// Count is clamped to the max_count policy without raising an error.
func (s *Usecase) GetMultiOTP(ctx context.Context, in GetMultiOTPInput) (out *entity.Outcome, err error) {
	ctx, span := s.startSpan(ctx, "GetMultiOTP")
	defer span.End()

	if err := s.ensureEnabled(ctx); err != nil {
		return nil, err
	}

	admin, err := s.authenticated(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.validator.Validate(in); err != nil {
		slog.WarnContext(ctx, "invalid payload get multi otp", "error", err)
		return nil, goerror.NewInvalidInput(err)
	}

	defer func() {
		s.audit(ctx, entity.AuditRecord{
			Action:        entity.AuditActionGetMultiOTP,
			Administrator: admin,
			Client:        in.Client,
			Serial:        in.Serial,
		}, out, err)
	}()

	at := s.atTime(ctx, in.CurTime)

	return s.withSession(ctx, entity.AuditActionGetMultiOTP, func(sess Session) (*entity.Outcome, error) {
		return s.retrieveBatch(ctx, sess, admin, in.Serial, *in.Count, at)
	})
}

func (s *Usecase) retrieveBatch(
	ctx context.Context,
	sess Session,
	admin, serial string,
	count int,
	at time.Time,
) (*entity.Outcome, error) {
	ref, err := s.lookupRef(ctx, sess, serial)
	if err != nil {
		slog.ErrorContext(ctx, "gettoken/getmultiotp failed", "stage", "token_ref", "serial", serial, "error", err)
		return nil, goerror.NewServer(err)
	}

	params := s.policyParams(admin, serial, entity.UserIdentity{Realm: s.realmOrDefault("")}, ref)
	if _, err := s.checkQuota(ctx, entity.PolicyScopeAdmin, entity.PolicyActionGetOTP, params); err != nil {
		return nil, err
	}

	limit, err := s.checkQuota(ctx, entity.PolicyScopeGetToken, entity.PolicyActionMaxCount, params)
	if err != nil {
		return nil, err
	}
	if count > limit {
		slog.InfoContext(ctx, "requested count clamped by policy", "serial", serial, "requested", count, "limit", limit)
		count = max(limit, 0)
	}

	entries, err := s.otp.GetMultiOTP(ctx, sess, serial, count, at)
	if errors.Is(err, entity.ErrTokenNotFound) {
		slog.InfoContext(ctx, "no token with this serial number", "serial", serial)
		return entity.NewNotFound(serial), nil
	}
	if errors.Is(err, entity.ErrTokenUnsupported) {
		slog.InfoContext(ctx, "token does not support get otp", "serial", serial)
		return entity.NewUnsupported(serial), nil
	}
	if err != nil {
		slog.ErrorContext(ctx, "gettoken/getmultiotp failed", "stage", "provider", "serial", serial, "error", err)
		return nil, goerror.NewServer(err)
	}

	return entity.NewBatchSuccess(serial, entries), nil
}
