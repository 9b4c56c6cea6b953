package docker

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"xrayctl/internal/constants"
	xerrors "xrayctl/internal/errors"
	"xrayctl/internal/models"
)

var (
	privateKeyPattern = regexp.MustCompile(`(?i)Private\s*Key:?\s*(\S+)`)
	publicKeyPattern  = regexp.MustCompile(`(?i)(?:Public\s*Key|Password):?\s*(\S+)`)
)

// GenerateKeyPair produces a fresh X25519 key pair by running `xray x25519`
// inside the live container, or in a disposable one when the container is
// stopped
func (c *Controller) GenerateKeyPair(ctx context.Context) (models.KeyPair, error) {
	var out string
	var err error

	if c.IsRunning(ctx) {
		out, err = c.docker(ctx, "exec", c.containerName, "xray", "x25519")
	} else {
		c.logger.Debug("Container not running, generating keys in a disposable one")
		out, err = c.docker(ctx, "run", "--rm", constants.XrayImage, "x25519")
	}
	if err != nil {
		return models.KeyPair{}, err
	}

	return ParseKeyPair(out)
}

// ParseKeyPair extracts the private and public values from `xray x25519`
// output. Newer cores label the public value "Password", older ones
// "Public key"; both are accepted.
func ParseKeyPair(out string) (models.KeyPair, error) {
	priv := privateKeyPattern.FindStringSubmatch(out)
	pub := publicKeyPattern.FindStringSubmatch(out)

	if priv == nil || pub == nil {
		return models.KeyPair{}, &xerrors.ExternalError{
			Op:  "parse x25519 output",
			Err: fmt.Errorf("unrecognized output: %q", strings.TrimSpace(out)),
		}
	}

	return models.KeyPair{PrivateKey: priv[1], PublicKey: pub[1]}, nil
}
