package inbound

import (
	"context"

	"github.com/shandysiswandi/gettoken/internal/gettoken/entity"
	"github.com/shandysiswandi/gettoken/internal/gettoken/usecase"
	"github.com/shandysiswandi/gettoken/internal/pkg/router"
)

type uc interface {
	Enabled(ctx context.Context) error
	GetOTP(ctx context.Context, in usecase.GetOTPInput) (*entity.Outcome, error)
	GetMultiOTP(ctx context.Context, in usecase.GetMultiOTPInput) (*entity.Outcome, error)
}

func RegisterHTTPEndpoint(r *router.Router, uc uc) {
	end := &HTTPEndpoint{uc: uc}

	// OTP retrieval (need authenticated & policy)
	r.GET("/api/v1/gettoken/getotp", end.GetOTP)
	r.GET("/api/v1/gettoken/getmultiotp", end.GetMultiOTP)
}
