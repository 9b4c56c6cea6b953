package services

import (
	"context"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"xrayctl/internal/config"
	xerrors "xrayctl/internal/errors"
	"xrayctl/internal/models"
	"xrayctl/internal/protocols"
	"xrayctl/internal/repository"
)

// UserService manages proxy users: configuration updates, share links and
// traffic reporting. Mutations go through the repository's locked scope and
// end with a hot reload of the container; read paths are deliberately
// lock-free and may observe a concurrent mutation (acceptable for display).
type UserService struct {
	repo     *repository.Repository
	control  ContainerControl
	handler  protocols.Handler
	settings *config.Settings
	logger   *logrus.Logger
}

// NewUserService creates a new user service
func NewUserService(repo *repository.Repository, control ContainerControl, settings *config.Settings, logger *logrus.Logger) *UserService {
	return &UserService{
		repo:     repo,
		control:  control,
		handler:  protocols.ForProtocol(settings.XrayProtocol),
		settings: settings,
		logger:   logger,
	}
}

// AddUser adds a new user, hot-reloads the container and returns the
// connection link. Fails with AlreadyExistsError when the alias is taken.
func (s *UserService) AddUser(ctx context.Context, alias string) (string, error) {
	if err := ValidateAlias(alias); err != nil {
		return "", err
	}
	if s.settings.ServerIP == "" {
		return "", &xerrors.InvalidArgumentError{Field: "SERVER_IP", Message: "not configured; run init first"}
	}

	id := uuid.NewString()
	var inbound map[string]interface{}

	err := s.repo.Mutate(func(doc map[string]interface{}) error {
		var err error
		inbound, err = s.handler.FindInbound(doc)
		if err != nil {
			return err
		}

		settings, clients, err := inboundClients(inbound)
		if err != nil {
			return err
		}

		for _, entry := range clients {
			if client, ok := entry.(map[string]interface{}); ok && client["email"] == alias {
				return &xerrors.AlreadyExistsError{Alias: alias}
			}
		}

		settings["clients"] = append(clients, s.handler.CreateClient(alias, id))
		return nil
	})
	if err != nil {
		return "", err
	}

	// The file is updated before the reload; a crash in between leaves the
	// live process one reload behind, never with a torn config.
	if err := s.control.ReloadConfig(ctx); err != nil {
		return "", err
	}
	s.logger.Infof("Added user %s", alias)

	return s.handler.GenerateLink(inbound, id, alias, s.settings.ServerIP,
		protocols.LinkOptions{PublicKey: s.settings.XrayPubKey})
}

// RemoveUser removes a user by alias. Returns whether anything was removed;
// an absent alias is not an error. The container is reloaded only when the
// client list actually changed.
func (s *UserService) RemoveUser(ctx context.Context, alias string) (bool, error) {
	removed := false

	err := s.repo.Mutate(func(doc map[string]interface{}) error {
		inbound, err := s.handler.FindInbound(doc)
		if err != nil {
			return err
		}

		settings, clients, err := inboundClients(inbound)
		if err != nil {
			return err
		}

		kept := make([]interface{}, 0, len(clients))
		for _, entry := range clients {
			if client, ok := entry.(map[string]interface{}); ok && client["email"] == alias {
				removed = true
				continue
			}
			kept = append(kept, entry)
		}
		settings["clients"] = kept
		return nil
	})
	if err != nil {
		return false, err
	}

	if removed {
		if err := s.control.ReloadConfig(ctx); err != nil {
			return false, err
		}
		s.logger.Infof("Removed user %s", alias)
	}

	return removed, nil
}

// Users returns all client records. Lock-free read.
func (s *UserService) Users() ([]models.Client, error) {
	doc, err := s.repo.Load()
	if err != nil {
		return nil, err
	}

	inbound, err := s.handler.FindInbound(doc)
	if err != nil {
		return nil, err
	}

	_, clients, err := inboundClients(inbound)
	if err != nil {
		return nil, err
	}

	result := make([]models.Client, 0, len(clients))
	for _, entry := range clients {
		if client, ok := entry.(map[string]interface{}); ok {
			result = append(result, models.ClientFromMap(client))
		}
	}

	return result, nil
}

// UserLink regenerates the connection link for an existing user
func (s *UserService) UserLink(alias string) (string, error) {
	doc, err := s.repo.Load()
	if err != nil {
		return "", err
	}

	inbound, err := s.handler.FindInbound(doc)
	if err != nil {
		return "", err
	}

	_, clients, err := inboundClients(inbound)
	if err != nil {
		return "", err
	}

	for _, entry := range clients {
		client, ok := entry.(map[string]interface{})
		if !ok || client["email"] != alias {
			continue
		}
		id, _ := client["id"].(string)
		return s.handler.GenerateLink(inbound, id, alias, s.settings.ServerIP,
			protocols.LinkOptions{PublicKey: s.settings.XrayPubKey})
	}

	return "", &xerrors.NotFoundError{Kind: "user", Name: alias}
}

// UsersWithStats merges the client list with live traffic counters by
// alias. A stats failure degrades to zero counters rather than failing the
// whole call.
func (s *UserService) UsersWithStats(ctx context.Context) ([]models.ClientTraffic, error) {
	users, err := s.Users()
	if err != nil {
		return nil, err
	}

	stats, err := s.control.TrafficStats(ctx)
	if err != nil {
		s.logger.Warnf("Traffic stats unavailable, reporting zeros: %v", err)
		stats = nil
	}

	result := make([]models.ClientTraffic, 0, len(users))
	for _, user := range users {
		counters := stats[user.Email]
		result = append(result, models.ClientTraffic{
			Client: user,
			Up:     counters.Up,
			Down:   counters.Down,
			Total:  counters.Up + counters.Down,
		})
	}

	return result, nil
}

// UserTraffic returns the traffic counters for one user
func (s *UserService) UserTraffic(ctx context.Context, alias string) (models.ClientTraffic, error) {
	all, err := s.UsersWithStats(ctx)
	if err != nil {
		return models.ClientTraffic{}, err
	}

	for _, entry := range all {
		if entry.Email == alias {
			return entry, nil
		}
	}

	return models.ClientTraffic{}, &xerrors.NotFoundError{Kind: "user", Name: alias}
}

// inboundClients digs out the inbound's settings map and client list. A
// missing clients key reads as an empty list; a present non-list is
// malformed.
func inboundClients(inbound map[string]interface{}) (map[string]interface{}, []interface{}, error) {
	settings, ok := inbound["settings"].(map[string]interface{})
	if !ok {
		return nil, nil, &xerrors.MalformedConfigError{Reason: "inbound has no settings"}
	}

	raw, present := settings["clients"]
	if !present || raw == nil {
		return settings, nil, nil
	}

	clients, ok := raw.([]interface{})
	if !ok {
		return nil, nil, &xerrors.MalformedConfigError{Reason: "inbound clients is not a list"}
	}

	return settings, clients, nil
}
