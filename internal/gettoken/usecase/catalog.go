package usecase

import (
	"context"
	"log/slog"

	"github.com/samber/lo"
	"github.com/shandysiswandi/gettoken/internal/gettoken/entity"
)

// resolveToken decides which token a request addresses. A non-nil outcome
// ends the request without policy evaluation or OTP generation.
func (s *Usecase) resolveToken(
	ctx context.Context,
	dir TokenDirectory,
	serial string,
	user entity.UserIdentity,
) (string, *entity.Outcome, error) {
	if serial != "" {
		return serial, nil, nil
	}

	if user.IsEmpty() {
		return "", entity.NewMissingParameters(), nil
	}

	refs, err := dir.GetTokensByUser(ctx, user, serial)
	if err != nil {
		return "", nil, err
	}

	switch len(refs) {
	case 0:
		slog.InfoContext(ctx, "no token found for user", "user", user.Login, "realm", user.Realm)
		return "", entity.NewNoTokenForUser(), nil
	case 1:
		return refs[0].Serial, nil, nil
	default:
		serials := lo.Map(refs, func(r entity.TokenRef, _ int) string { return r.Serial })
		slog.InfoContext(ctx, "user has more than one token", "user", user.Login, "realm", user.Realm, "serials", serials)
		return "", entity.NewAmbiguous(serials), nil
	}
}
