package constants

import "time"

const (
	// Backup constants
	MaxBackups       = 10
	BackupDirName    = "backups"
	BackupTimeFormat = "2006-01-02_15-04-05"

	// Alias validation constants
	MinAliasLength = 3
	MaxAliasLength = 32

	// Traffic constants
	BytesInGB = 1024 * 1024 * 1024

	// Network constants
	DefaultProbeTimeout = 3 * time.Second
	PublicIPTimeout     = 3 * time.Second
	TLSPort             = 443

	// Docker constants
	DefaultContainerName = "xray-core"
	XrayImage            = "ghcr.io/xtls/xray-core:latest"
	StatsAPIServer       = "127.0.0.1:10085"

	// Cache constants
	StatsCacheTTL     = 5 * time.Second
	StatsCacheCleanup = time.Minute

	// Reality constants
	ShortIDBytes = 8
	FlowVision   = "xtls-rprx-vision"

	// Formatting constants
	MaxAliasDisplayLength = 17
	MaxAliasSuffixLength  = 14
	TimestampFormat       = "2006-01-02 15:04:05"
)
