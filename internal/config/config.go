package config

// Settings holds the application configuration loaded from environment variables
type Settings struct {
	ConfigPath    string
	ServerIP      string
	XrayPort      int
	XrayPubKey    string
	XrayProtocol  string
	ContainerName string
	LogLevel      string
}
