package app

import (
	"log/slog"
	"os"

	"github.com/shandysiswandi/gettoken/internal/gettoken"
)

func (a *App) initModules() {
	if a.config.GetBool("modules.gettoken.enabled") {
		if err := gettoken.New(gettoken.Dependency{
			Ctx:          a.ctx,
			DBConn:       a.dbConn,
			CacheConn:    a.cacheConn,
			Goroutine:    a.goroutine,
			Enforcer:     a.casbin,
			Router:       a.router,
			Messaging:    a.messaging,
			Config:       a.config,
			Instrument:   a.ins,
			UID:          a.uid,
			MFAEncryptor: a.mfaEncryptor,
			OTP:          a.otp,
			Clock:        a.clock,
			Validator:    a.validator,
		}); err != nil {
			slog.Error("failed to init module gettoken", "error", err)
			os.Exit(1)
		}
	}
}
