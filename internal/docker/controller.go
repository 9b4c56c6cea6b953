package docker

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"

	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"

	"xrayctl/internal/constants"
	xerrors "xrayctl/internal/errors"
)

// Controller manages the Xray container through the docker CLI. No timeout
// is imposed on container commands; a hung daemon blocks the calling
// operation until the passed context is cancelled.
type Controller struct {
	containerName string
	statsCache    *cache.Cache
	logger        *logrus.Logger
}

// NewController creates a new container controller
func NewController(containerName string, logger *logrus.Logger) *Controller {
	return &Controller{
		containerName: containerName,
		statsCache:    cache.New(constants.StatsCacheTTL, constants.StatsCacheCleanup),
		logger:        logger,
	}
}

// Restart restarts the container. Active proxy connections are dropped;
// mutations that only touch the client list use ReloadConfig instead.
func (c *Controller) Restart(ctx context.Context) error {
	c.logger.Infof("Restarting container %s", c.containerName)
	_, err := c.docker(ctx, "restart", c.containerName)
	return err
}

// Start starts the container
func (c *Controller) Start(ctx context.Context) error {
	c.logger.Infof("Starting container %s", c.containerName)
	_, err := c.docker(ctx, "start", c.containerName)
	return err
}

// Stop stops the container
func (c *Controller) Stop(ctx context.Context) error {
	c.logger.Infof("Stopping container %s", c.containerName)
	_, err := c.docker(ctx, "stop", c.containerName)
	return err
}

// ReloadConfig sends SIGHUP so the core re-reads its config file without
// dropping unrelated connections
func (c *Controller) ReloadConfig(ctx context.Context) error {
	c.logger.Infof("Sending hot-reload signal to %s", c.containerName)
	_, err := c.docker(ctx, "kill", "--signal", "HUP", c.containerName)
	return err
}

// IsRunning reports whether the container is currently running
func (c *Controller) IsRunning(ctx context.Context) bool {
	out, err := c.docker(ctx, "inspect", "--format", "{{.State.Running}}", c.containerName)
	if err != nil {
		return false
	}
	return strings.TrimSpace(out) == "true"
}

// docker runs one docker CLI command and returns its stdout. Failures carry
// the daemon's stderr, which is where docker puts the useful message.
func (c *Controller) docker(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "docker", args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	c.logger.Debugf("Running docker %s", strings.Join(args, " "))
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return "", &xerrors.ExternalError{Op: "docker " + args[0], Err: errors.New(msg)}
	}

	return stdout.String(), nil
}
