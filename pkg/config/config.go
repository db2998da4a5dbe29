package config

import "time"

// Config represents the main configuration for a kvpubsub process
type Config struct {
	Client  ClientConfig  `yaml:"client"`
	Broker  BrokerConfig  `yaml:"broker"`
	Gateway GatewayConfig `yaml:"gateway"`
	Logging LoggingConfig `yaml:"logging"`
}

// ClientConfig contains the settings for the subscriber connection
type ClientConfig struct {
	Address            string        `yaml:"address"`              // host:port of the key-value server
	DialTimeout        time.Duration `yaml:"dial_timeout"`         // TCP connect timeout
	WriteTimeout       time.Duration `yaml:"write_timeout"`        // Deadline for each socket write, 0 disables
	MaxPendingCommands int           `yaml:"max_pending_commands"` // Queue bound per priority class; up to twice this may be pending
	ReadBufferSize     int           `yaml:"read_buffer_size"`     // Initial decoder buffer
	MaxFrameSize       int           `yaml:"max_frame_size"`       // Largest inbound frame accepted
	ClientName         string        `yaml:"client_name"`          // Sent with CLIENT SETNAME on the publish connection
}

// BrokerConfig contains the embedded pub/sub server settings
type BrokerConfig struct {
	ListenAddr  string        `yaml:"listen_addr"`
	IdleTimeout time.Duration `yaml:"idle_timeout"` // 0 keeps idle connections open
}

// GatewayConfig contains the HTTP/WebSocket gateway settings
type GatewayConfig struct {
	ListenAddr   string        `yaml:"listen_addr"`
	WriteTimeout time.Duration `yaml:"write_timeout"` // WebSocket write deadline
	ClientBuffer int           `yaml:"client_buffer"` // Messages buffered per WebSocket client
}

// Default returns a Config with sensible defaults for local development.
func Default() *Config {
	return &Config{
		Client: ClientConfig{
			Address:            "127.0.0.1:6379",
			DialTimeout:        5 * time.Second,
			WriteTimeout:       10 * time.Second,
			MaxPendingCommands: 1024,
			ReadBufferSize:     4096,
			MaxFrameSize:       32 * 1024 * 1024,
			ClientName:         "kvpubsub",
		},
		Broker: BrokerConfig{
			ListenAddr: "127.0.0.1:6379",
		},
		Gateway: GatewayConfig{
			ListenAddr:   "127.0.0.1:8080",
			WriteTimeout: 30 * time.Second,
			ClientBuffer: 128,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}
