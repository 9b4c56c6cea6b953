package config

import (
	"fmt"
	"net"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"xrayctl/internal/constants"
)

// Load loads the configuration from environment variables
func Load() (*Settings, error) {
	v := viper.New()
	v.AutomaticEnv()

	// Set default values
	v.SetDefault("CONFIG_PATH", "config/config.json")
	v.SetDefault("XRAY_PORT", 443)
	v.SetDefault("XRAY_PROTOCOL", "vless-reality")
	v.SetDefault("DOCKER_CONTAINER_NAME", constants.DefaultContainerName)
	v.SetDefault("LOG_LEVEL", "info")

	// Define environment variables
	v.BindEnv("CONFIG_PATH")
	v.BindEnv("SERVER_IP")
	v.BindEnv("XRAY_PORT")
	v.BindEnv("XRAY_PUB_KEY")
	v.BindEnv("XRAY_PROTOCOL")
	v.BindEnv("DOCKER_CONTAINER_NAME")
	v.BindEnv("LOG_LEVEL")

	cfg := &Settings{
		ConfigPath:    strings.TrimSpace(v.GetString("CONFIG_PATH")),
		ServerIP:      strings.TrimSpace(v.GetString("SERVER_IP")),
		XrayPort:      v.GetInt("XRAY_PORT"),
		XrayPubKey:    strings.TrimSpace(v.GetString("XRAY_PUB_KEY")),
		XrayProtocol:  strings.TrimSpace(v.GetString("XRAY_PROTOCOL")),
		ContainerName: strings.TrimSpace(v.GetString("DOCKER_CONTAINER_NAME")),
		LogLevel:      v.GetString("LOG_LEVEL"),
	}

	if err := validateSettings(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validateSettings checks every field and reports all problems together, so
// an operator can fix the whole environment in one pass
func validateSettings(cfg *Settings) error {
	var problems []string

	if filepath.Ext(cfg.ConfigPath) != ".json" {
		problems = append(problems, fmt.Sprintf("CONFIG_PATH: file must have .json extension, got %q", cfg.ConfigPath))
	}

	// SERVER_IP and XRAY_PUB_KEY are produced by the init flow, so an empty
	// value is legal; a present value must still be well-formed.
	if cfg.ServerIP != "" {
		ip := net.ParseIP(cfg.ServerIP)
		if ip == nil || ip.To4() == nil {
			problems = append(problems, fmt.Sprintf("SERVER_IP: invalid IPv4 address: %q", cfg.ServerIP))
		}
	}

	if cfg.XrayPort < 1 || cfg.XrayPort > 65535 {
		problems = append(problems, fmt.Sprintf("XRAY_PORT: port must be between 1 and 65535, got %d", cfg.XrayPort))
	}

	if cfg.XrayPubKey != "" {
		if l := len(cfg.XrayPubKey); l != 43 && l != 44 {
			problems = append(problems, fmt.Sprintf("XRAY_PUB_KEY: invalid key length %d, expected 43-44", l))
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration:\n  - %s", strings.Join(problems, "\n  - "))
	}

	return nil
}
