package services

import (
	"context"

	"xrayctl/internal/models"
)

// ContainerControl is the capability surface the services need from the
// container runtime. The docker controller implements it; tests substitute
// fakes.
type ContainerControl interface {
	Restart(ctx context.Context) error
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	ReloadConfig(ctx context.Context) error
	IsRunning(ctx context.Context) bool
	GenerateKeyPair(ctx context.Context) (models.KeyPair, error)
	TrafficStats(ctx context.Context) (map[string]models.TrafficStat, error)
}
