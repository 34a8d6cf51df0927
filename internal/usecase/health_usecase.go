package usecase

import (
	"context"
	"time"
)

type HealthStatus struct {
	Status      string `json:"status" example:"healthy"`
	Timestamp   string `json:"timestamp" example:"2026-01-02T10:00:00Z"`
	Version     string `json:"version" example:"1.0.0"`
	Environment string `json:"environment" example:"production"`
	Uptime      string `json:"uptime" example:"3h12m5s"`
}

type HealthUsecase interface {
	Check(ctx context.Context) HealthStatus
}

type healthUsecase struct {
	version     string
	environment string
	startedAt   time.Time
	now         func() time.Time
}

func NewHealthUsecase(version, environment string) HealthUsecase {
	return &healthUsecase{
		version:     version,
		environment: environment,
		startedAt:   time.Now(),
		now:         time.Now,
	}
}

func (u *healthUsecase) Check(ctx context.Context) HealthStatus {
	now := u.now()
	return HealthStatus{
		Status:      "healthy",
		Timestamp:   now.UTC().Format(time.RFC3339),
		Version:     u.version,
		Environment: u.environment,
		Uptime:      now.Sub(u.startedAt).Truncate(time.Second).String(),
	}
}
