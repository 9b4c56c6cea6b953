package services

import (
	"context"

	"github.com/sirupsen/logrus"

	"xrayctl/internal/config"
	xerrors "xrayctl/internal/errors"
	"xrayctl/internal/models"
	"xrayctl/internal/protocols"
	"xrayctl/internal/repository"
)

// SystemService manages system-level operations: backups, restoration and
// protocol initialization
type SystemService struct {
	repo     *repository.Repository
	control  ContainerControl
	handler  protocols.Handler
	settings *config.Settings
	logger   *logrus.Logger
}

// NewSystemService creates a new system service
func NewSystemService(repo *repository.Repository, control ContainerControl, settings *config.Settings, logger *logrus.Logger) *SystemService {
	return &SystemService{
		repo:     repo,
		control:  control,
		handler:  protocols.ForProtocol(settings.XrayProtocol),
		settings: settings,
		logger:   logger,
	}
}

// Backups returns the available config backups, newest first
func (s *SystemService) Backups() ([]models.Backup, error) {
	return s.repo.Backups()
}

// RestoreBackup restores a config backup and restarts the container. A
// restore can change anything (ports, keys), so a hot reload is not
// trusted here.
func (s *SystemService) RestoreBackup(ctx context.Context, backupPath string) error {
	if err := s.repo.Restore(backupPath); err != nil {
		return err
	}
	return s.control.Restart(ctx)
}

// Initialize performs one-time protocol setup: key generation, short ID
// and masking domain are written into the config under the repository
// lock, the container is restarted, and the environment values the
// surrounding layer must persist are returned
func (s *SystemService) Initialize(ctx context.Context, domain string) (map[string]string, error) {
	if s.handler.RequiresDomain() && domain == "" {
		return nil, &xerrors.InvalidArgumentError{Field: "domain", Message: "required for " + s.handler.Name()}
	}

	var env map[string]string
	err := s.repo.Mutate(func(doc map[string]interface{}) error {
		var err error
		env, err = s.handler.Initialize(ctx, doc, s.control, domain)
		return err
	})
	if err != nil {
		return nil, err
	}

	if err := s.control.Restart(ctx); err != nil {
		return nil, err
	}

	s.logger.Infof("Initialized protocol %s with domain %s", s.handler.Name(), domain)
	return env, nil
}
