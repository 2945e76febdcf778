package usecase

import (
	"context"
	"errors"
	"log/slog"

	"github.com/shandysiswandi/gettoken/internal/gettoken/entity"
	"github.com/shandysiswandi/gettoken/internal/pkg/goerror"
	"github.com/shandysiswandi/gettoken/internal/pkg/valueobject"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

func outcomeLabel(out *entity.Outcome, err error) string {
	if err != nil {
		if gerr, ok := goerror.As(err); ok && gerr.Code() == goerror.CodeForbidden {
			return "policy_denied"
		}
		return "error"
	}
	if out == nil {
		return "unknown"
	}

	return out.Kind.String()
}

// audit counts the call and, when enabled, publishes the record in the
// background. Failures are logged and never reach the caller.
func (s *Usecase) audit(ctx context.Context, rec entity.AuditRecord, out *entity.Outcome, err error) {
	label := outcomeLabel(out, err)
	s.retrievals.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", rec.Action),
		attribute.String("outcome", label),
	))

	if !s.cfg.GetBool(keyAuditEnabled) {
		return
	}

	rec.ID = s.uid.Generate()
	rec.At = s.clock.Now()
	rec.Success = err == nil && out.IsSuccess()
	rec.Info = valueobject.JSONMap{"outcome": label}
	if out != nil && out.Serial != "" {
		rec.Serial = out.Serial
	}
	if out != nil && len(out.Entries) > 0 {
		rec.Info["count"] = len(out.Entries)
	}
	if gerr, ok := goerror.As(err); ok {
		rec.Info["message"] = gerr.Msg()
	}

	s.goroutine.Go(context.WithoutCancel(ctx), func(ctx context.Context) error {
		if rec.Serial != "" {
			tokenType, err := s.repoCache.GetTokenType(ctx, rec.Serial)
			if err != nil && !errors.Is(err, goerror.ErrNotFound) {
				slog.WarnContext(ctx, "failed to resolve token type for audit", "serial", rec.Serial, "error", err)
			}
			rec.TokenType = tokenType
		}

		if err := s.repoMessaging.PublishRetrievalAudit(ctx, rec); err != nil {
			slog.ErrorContext(ctx, "failed to publish retrieval audit", "audit_id", rec.ID, "action", rec.Action, "error", err)
		}

		return nil
	})
}
