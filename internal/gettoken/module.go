package gettoken

import (
	"context"

	"github.com/casbin/casbin/v3"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/shandysiswandi/gettoken/internal/gettoken/inbound"
	"github.com/shandysiswandi/gettoken/internal/gettoken/outbound/cache"
	"github.com/shandysiswandi/gettoken/internal/gettoken/outbound/db"
	"github.com/shandysiswandi/gettoken/internal/gettoken/outbound/mq"
	"github.com/shandysiswandi/gettoken/internal/gettoken/outbound/otpgen"
	"github.com/shandysiswandi/gettoken/internal/gettoken/outbound/policy"
	"github.com/shandysiswandi/gettoken/internal/gettoken/usecase"
	"github.com/shandysiswandi/gettoken/internal/pkg/clock"
	"github.com/shandysiswandi/gettoken/internal/pkg/config"
	"github.com/shandysiswandi/gettoken/internal/pkg/goroutine"
	"github.com/shandysiswandi/gettoken/internal/pkg/instrument"
	"github.com/shandysiswandi/gettoken/internal/pkg/messaging"
	"github.com/shandysiswandi/gettoken/internal/pkg/mfa"
	"github.com/shandysiswandi/gettoken/internal/pkg/otp"
	"github.com/shandysiswandi/gettoken/internal/pkg/router"
	"github.com/shandysiswandi/gettoken/internal/pkg/uid"
	"github.com/shandysiswandi/gettoken/internal/pkg/validator"
)

type Dependency struct {
	Ctx          context.Context            `validate:"required"`
	DBConn       *pgxpool.Pool              `validate:"required"`
	CacheConn    *redis.Client              `validate:"required"`
	Goroutine    *goroutine.Manager         `validate:"required"`
	Enforcer     *casbin.Enforcer           `validate:"required"`
	Router       *router.Router             `validate:"required"`
	Messaging    messaging.Messaging        `validate:"required"`
	Config       config.Config              `validate:"required"`
	Instrument   instrument.Instrumentation `validate:"required"`
	UID          uid.NumberID               `validate:"required"`
	MFAEncryptor mfa.Encryptor              `validate:"required"`
	OTP          otp.Generator              `validate:"required"`
	Clock        clock.Clocker              `validate:"required"`
	Validator    validator.Validator        `validate:"required"`
}

func New(dep Dependency) error {
	if err := dep.Validator.Validate(dep); err != nil {
		return err
	}

	repoDB := db.NewDB(dep.DBConn, dep.Instrument)
	if dep.Config.GetBool("modules.gettoken.auto_migrate") {
		if err := repoDB.Migrate(dep.Ctx); err != nil {
			return err
		}
	}

	repoCache := cache.NewCache(dep.CacheConn, repoDB,
		dep.Config.GetSecond("modules.gettoken.audit.token_type_ttl_seconds"), dep.Instrument)
	repoMsg := mq.NewMessaging(dep.Messaging,
		dep.Config.GetString("modules.gettoken.audit.destination"), dep.Instrument)

	uc := usecase.New(usecase.Dependency{
		RepoDB:        repoDB,
		RepoCache:     repoCache,
		RepoMessaging: repoMsg,
		Policy:        policy.NewCasbin(dep.Enforcer, dep.Instrument),
		OTP:           otpgen.NewProvider(dep.MFAEncryptor, dep.OTP, dep.Instrument),
		Validator:     dep.Validator,
		Config:        dep.Config,
		UID:           dep.UID,
		Clock:         dep.Clock,
		Instrument:    dep.Instrument,
		Goroutine:     dep.Goroutine,
	})

	inbound.RegisterHTTPEndpoint(dep.Router, uc)

	return nil
}
