package config

import (
	"strings"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	t.Setenv("SERVER_IP", "")
	t.Setenv("XRAY_PORT", "")
	t.Setenv("XRAY_PUB_KEY", "")
	t.Setenv("XRAY_PROTOCOL", "")
	t.Setenv("DOCKER_CONTAINER_NAME", "")
	t.Setenv("LOG_LEVEL", "")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}

	if cfg.ConfigPath != "config/config.json" {
		t.Fatalf("unexpected default config path: %q", cfg.ConfigPath)
	}
	if cfg.XrayPort != 443 {
		t.Fatalf("unexpected default port: %d", cfg.XrayPort)
	}
	if cfg.XrayProtocol != "vless-reality" {
		t.Fatalf("unexpected default protocol: %q", cfg.XrayProtocol)
	}
	if cfg.ContainerName != "xray-core" {
		t.Fatalf("unexpected default container name: %q", cfg.ContainerName)
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("CONFIG_PATH", "/etc/xray/config.json")
	t.Setenv("SERVER_IP", "203.0.113.10")
	t.Setenv("XRAY_PORT", "8443")
	t.Setenv("XRAY_PUB_KEY", strings.Repeat("k", 43))
	t.Setenv("XRAY_PROTOCOL", "vless-reality")
	t.Setenv("DOCKER_CONTAINER_NAME", "xray-prod")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}

	if cfg.ConfigPath != "/etc/xray/config.json" || cfg.ServerIP != "203.0.113.10" || cfg.XrayPort != 8443 {
		t.Fatalf("unexpected settings: %+v", cfg)
	}
	if cfg.ContainerName != "xray-prod" {
		t.Fatalf("unexpected container name: %q", cfg.ContainerName)
	}
}

func TestLoadAggregatesValidationErrors(t *testing.T) {
	t.Setenv("CONFIG_PATH", "/etc/xray/config.yaml")
	t.Setenv("SERVER_IP", "not-an-ip")
	t.Setenv("XRAY_PORT", "99999")
	t.Setenv("XRAY_PUB_KEY", "short")

	_, err := Load()
	if err == nil {
		t.Fatal("expected validation to fail")
	}

	for _, field := range []string{"CONFIG_PATH", "SERVER_IP", "XRAY_PORT", "XRAY_PUB_KEY"} {
		if !strings.Contains(err.Error(), field) {
			t.Errorf("error should mention %s: %v", field, err)
		}
	}
}

func TestLoadRejectsIPv6ServerIP(t *testing.T) {
	t.Setenv("CONFIG_PATH", "config/config.json")
	t.Setenv("SERVER_IP", "2001:db8::1")

	if _, err := Load(); err == nil {
		t.Fatal("IPv6 SERVER_IP should be rejected")
	}
}
