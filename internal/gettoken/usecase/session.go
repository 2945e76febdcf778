package usecase

import (
	"context"
	"errors"
	"log/slog"

	"github.com/shandysiswandi/gettoken/internal/gettoken/entity"
	"github.com/shandysiswandi/gettoken/internal/pkg/goerror"
)

// withSession runs fn inside one session. The session is committed when fn
// returns a success outcome, rolled back otherwise, and closed exactly once.
func (s *Usecase) withSession(
	ctx context.Context,
	action string,
	fn func(sess Session) (*entity.Outcome, error),
) (*entity.Outcome, error) {
	sess, err := s.repoDB.Begin(ctx)
	if err != nil {
		slog.ErrorContext(ctx, action+" failed", "stage", "begin", "error", err)
		return nil, goerror.NewServer(err)
	}
	defer sess.Close(ctx)

	out, err := fn(sess)
	if err != nil || !out.IsSuccess() {
		if rerr := sess.Rollback(ctx); rerr != nil {
			slog.WarnContext(ctx, "failed to rollback session", "action", action, "error", rerr)
		}
		return out, err
	}

	if err := sess.Commit(ctx); err != nil {
		slog.ErrorContext(ctx, action+" failed", "stage", "commit", "error", err)
		return nil, goerror.NewServer(err)
	}

	return out, nil
}

// lookupRef returns the token's directory entry; an unknown serial yields nil.
func (s *Usecase) lookupRef(ctx context.Context, dir TokenDirectory, serial string) (*entity.TokenRef, error) {
	ref, err := dir.GetTokenRef(ctx, serial)
	if errors.Is(err, goerror.ErrNotFound) {
		slog.InfoContext(ctx, "token not in directory, evaluating policy without token realm", "serial", serial)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return ref, nil
}

func (s *Usecase) policyParams(admin, serial string, user entity.UserIdentity, ref *entity.TokenRef) entity.PolicyParams {
	p := entity.PolicyParams{
		Subject: admin,
		Serial:  serial,
		Realm:   user.Realm,
		User:    user.Login,
	}
	if ref != nil {
		p.TokenType = ref.Type
		if ref.Realm != "" {
			p.Realm = ref.Realm
		}
	}

	return p
}
