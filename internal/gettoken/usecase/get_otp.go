package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/shandysiswandi/gettoken/internal/gettoken/entity"
	"github.com/shandysiswandi/gettoken/internal/pkg/goerror"
)

type GetOTPInput struct {
	Serial  string `validate:"omitempty,serial"`
	User    string `validate:"omitempty,max=255"`
	Realm   string `validate:"omitempty,realm"`
	CurTime *time.Time
	Client  string
}

// GetOTP retrieves the current OTP value of a token addressed by serial or by
// its owner. A serial takes precedence over a user.
func (s *Usecase) GetOTP(ctx context.Context, in GetOTPInput) (out *entity.Outcome, err error) {
	ctx, span := s.startSpan(ctx, "GetOTP")
	defer span.End()

	if err := s.ensureEnabled(ctx); err != nil {
		return nil, err
	}

	admin, err := s.authenticated(ctx)
	if err != nil {
		return nil, err
	}

	user := entity.UserIdentity{Login: in.User, Realm: s.realmOrDefault(in.Realm)}

	defer func() {
		s.audit(ctx, entity.AuditRecord{
			Action:        entity.AuditActionGetOTP,
			Administrator: admin,
			Client:        in.Client,
			Serial:        in.Serial,
			User:          user.Login,
			Realm:         user.Realm,
		}, out, err)
	}()

	if in.Serial == "" && user.IsEmpty() {
		slog.InfoContext(ctx, "get otp without user or serial")
		return entity.NewMissingParameters(), nil
	}

	if err := s.validator.Validate(in); err != nil {
		slog.WarnContext(ctx, "invalid payload get otp", "error", err)
		return nil, goerror.NewInvalidInput(err)
	}

	at := s.atTime(ctx, in.CurTime)

	return s.withSession(ctx, entity.AuditActionGetOTP, func(sess Session) (*entity.Outcome, error) {
		return s.retrieveSingle(ctx, sess, admin, in.Serial, user, at)
	})
}

func (s *Usecase) retrieveSingle(
	ctx context.Context,
	sess Session,
	admin, serial string,
	user entity.UserIdentity,
	at time.Time,
) (*entity.Outcome, error) {
	serial, outcome, err := s.resolveToken(ctx, sess, serial, user)
	if err != nil {
		slog.ErrorContext(ctx, "gettoken/getotp failed", "stage", "resolve", "user", user.Login, "error", err)
		return nil, goerror.NewServer(err)
	}
	if outcome != nil {
		return outcome, nil
	}

	ref, err := s.lookupRef(ctx, sess, serial)
	if err != nil {
		slog.ErrorContext(ctx, "gettoken/getotp failed", "stage", "token_ref", "serial", serial, "error", err)
		return nil, goerror.NewServer(err)
	}

	params := s.policyParams(admin, serial, user, ref)
	limit, err := s.checkQuota(ctx, entity.PolicyScopeGetToken, entity.PolicyActionMaxCount, params)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		slog.WarnContext(ctx, "policy max count forbids get otp", "admin", admin, "serial", serial, "limit", limit)
		return nil, policyDenied(entity.PolicyScopeGetToken, params)
	}

	val, err := s.otp.GetOTP(ctx, sess, serial, at)
	if errors.Is(err, entity.ErrTokenNotFound) {
		slog.InfoContext(ctx, "no token with this serial number", "serial", serial)
		return entity.NewNotFound(serial), nil
	}
	if errors.Is(err, entity.ErrTokenUnsupported) {
		slog.InfoContext(ctx, "token does not support get otp", "serial", serial)
		return entity.NewUnsupported(serial), nil
	}
	if err != nil {
		slog.ErrorContext(ctx, "gettoken/getotp failed", "stage", "provider", "serial", serial, "error", err)
		return nil, goerror.NewServer(err)
	}

	return entity.NewSingleSuccess(serial, *val), nil
}
