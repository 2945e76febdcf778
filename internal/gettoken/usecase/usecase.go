package usecase

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/shandysiswandi/gettoken/internal/gettoken/entity"
	"github.com/shandysiswandi/gettoken/internal/pkg/clock"
	"github.com/shandysiswandi/gettoken/internal/pkg/config"
	"github.com/shandysiswandi/gettoken/internal/pkg/goerror"
	"github.com/shandysiswandi/gettoken/internal/pkg/goroutine"
	"github.com/shandysiswandi/gettoken/internal/pkg/instrument"
	"github.com/shandysiswandi/gettoken/internal/pkg/jwt"
	"github.com/shandysiswandi/gettoken/internal/pkg/uid"
	"github.com/shandysiswandi/gettoken/internal/pkg/validator"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
)

const (
	keyGetOTPEnabled     = "modules.gettoken.getotp_enabled"
	keyDefaultRealm      = "modules.gettoken.default_realm"
	keyAllowTimeOverride = "modules.gettoken.allow_time_override"
	keyAuditEnabled      = "modules.gettoken.audit.enabled"
)

// TokenDirectory resolves users and serials to token references.
type TokenDirectory interface {
	GetTokensByUser(ctx context.Context, user entity.UserIdentity, serial string) ([]entity.TokenRef, error)
	GetTokenRef(ctx context.Context, serial string) (*entity.TokenRef, error)
}

// TokenReader loads full token records for OTP computation.
type TokenReader interface {
	GetToken(ctx context.Context, serial string) (*entity.Token, error)
}

// Session is one request-scoped, read-only unit of work. Close must be safe
// to call after Commit or Rollback.
type Session interface {
	TokenDirectory
	TokenReader

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
	Close(ctx context.Context)
}

type repoDB interface {
	Begin(ctx context.Context) (Session, error)
}

type repoCache interface {
	GetTokenType(ctx context.Context, serial string) (string, error)
}

type repoMessaging interface {
	PublishRetrievalAudit(ctx context.Context, rec entity.AuditRecord) error
}

type policyProvider interface {
	Decide(ctx context.Context, scope, action string, p entity.PolicyParams) (entity.PolicyDecision, error)
}

type otpProvider interface {
	GetOTP(ctx context.Context, tokens TokenReader, serial string, at time.Time) (*entity.OTPValue, error)
	GetMultiOTP(ctx context.Context, tokens TokenReader, serial string, count int, at time.Time) ([]entity.OTPEntry, error)
}

type Usecase struct {
	repoDB        repoDB
	repoCache     repoCache
	repoMessaging repoMessaging
	policy        policyProvider
	otp           otpProvider
	validator     validator.Validator
	cfg           config.Config
	uid           uid.NumberID
	clock         clock.Clocker
	ins           instrument.Instrumentation
	goroutine     *goroutine.Manager
	retrievals    metric.Int64Counter
}

type Dependency struct {
	RepoDB        repoDB
	RepoCache     repoCache
	RepoMessaging repoMessaging
	Policy        policyProvider
	OTP           otpProvider
	Validator     validator.Validator
	Config        config.Config
	UID           uid.NumberID
	Clock         clock.Clocker
	Instrument    instrument.Instrumentation
	Goroutine     *goroutine.Manager
}

func New(dep Dependency) *Usecase {
	retrievals, err := dep.Instrument.Meter("gettoken.usecase").Int64Counter(
		"gettoken.retrievals",
		metric.WithDescription("Number of OTP retrieval calls by outcome"),
	)
	if err != nil {
		slog.Error("failed to create gettoken retrievals counter", "error", err)
		retrievals = noop.Int64Counter{}
	}

	return &Usecase{
		repoDB:        dep.RepoDB,
		repoCache:     dep.RepoCache,
		repoMessaging: dep.RepoMessaging,
		policy:        dep.Policy,
		otp:           dep.OTP,
		validator:     dep.Validator,
		cfg:           dep.Config,
		uid:           dep.UID,
		clock:         dep.Clock,
		ins:           dep.Instrument,
		goroutine:     dep.Goroutine,
		retrievals:    retrievals,
	}
}

func (s *Usecase) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.ins.Tracer("gettoken.usecase").Start(ctx, name)
}

// Enabled reports the getotp feature flag as an error when it is switched off.
func (s *Usecase) Enabled(ctx context.Context) error {
	return s.ensureEnabled(ctx)
}

func (s *Usecase) ensureEnabled(ctx context.Context) error {
	if !s.cfg.GetBool(keyGetOTPEnabled) {
		slog.WarnContext(ctx, "getotp is disabled by configuration")
		return goerror.NewBusiness("getotp is not activated.", goerror.CodeUnavailable)
	}

	return nil
}

func (s *Usecase) authenticated(ctx context.Context) (string, error) {
	clm := jwt.GetAuth(ctx)
	if clm == nil || clm.Admin() == "" {
		return "", goerror.NewBusiness("Authentication required", goerror.CodeUnauthorized)
	}

	return clm.Admin(), nil
}

func (s *Usecase) realmOrDefault(realm string) string {
	if r := strings.TrimSpace(realm); r != "" {
		return strings.ToLower(r)
	}

	return strings.ToLower(s.cfg.GetString(keyDefaultRealm))
}

// atTime honours a caller supplied clock only when the override is enabled.
func (s *Usecase) atTime(ctx context.Context, curTime *time.Time) time.Time {
	if curTime == nil {
		return s.clock.Now()
	}

	if !s.cfg.GetBool(keyAllowTimeOverride) {
		slog.WarnContext(ctx, "curTime ignored, time override is disabled", "cur_time", curTime.String())
		return s.clock.Now()
	}

	return curTime.UTC()
}
