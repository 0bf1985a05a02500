package config

import (
	"fmt"
	"os"
	"time"
)

// Default configuration values (production)
const (
	DefaultServer   = "localhost:8080"
	DefaultSTUN     = "stun:stun.l.google.com:19302"
	DefaultTURN     = "" // Optional, empty by default
	DefaultTURNUser = ""
	DefaultTURNPass = ""

	DefaultSetupTimeout       = 10 * time.Second
	DefaultChannelOpenTimeout = 15 * time.Second
	DefaultHeartbeatInterval  = 5 * time.Second
	DefaultRetryBackoff       = 2 * time.Second
	DefaultMaxRetries         = 3
)

// Config holds application configuration.
type Config struct {
	// Server is the rendezvous server host[:port].
	Server string

	// WebSocketURL is constructed from Server.
	WebSocketURL string

	// ICE servers for WebRTC
	STUNServer string
	TURNServer string
	TURNUser   string
	TURNPass   string
	ForceRelay bool

	// Session bounds
	SetupTimeout       time.Duration
	ChannelOpenTimeout time.Duration
	HeartbeatInterval  time.Duration
	RetryBackoff       time.Duration
	MaxRetries         int
}

// Options for loading config with CLI flag overrides.
type Options struct {
	Server     string
	STUNServer string
	TURNServer string
	TURNUser   string
	TURNPass   string
	ForceRelay bool
	Insecure   bool
}

// Load reads configuration with the following priority:
// 1. CLI flags (passed via Options) - highest priority
// 2. Environment variables
// 3. Hardcoded defaults - lowest priority
func Load(opts Options) (*Config, error) {
	server := firstNonEmpty(opts.Server, os.Getenv("WATCHWIRE_SERVER"), DefaultServer)
	stunServer := firstNonEmpty(opts.STUNServer, os.Getenv("STUN_SERVER"), DefaultSTUN)
	turnServer := firstNonEmpty(opts.TURNServer, os.Getenv("TURN_SERVER"), DefaultTURN)
	turnUser := firstNonEmpty(opts.TURNUser, os.Getenv("TURN_USERNAME"), DefaultTURNUser)
	turnPass := firstNonEmpty(opts.TURNPass, os.Getenv("TURN_PASSWORD"), DefaultTURNPass)

	scheme := "wss"
	if opts.Insecure || os.Getenv("WATCHWIRE_INSECURE") == "1" {
		scheme = "ws"
	}

	cfg := &Config{
		Server:       server,
		WebSocketURL: fmt.Sprintf("%s://%s/ws", scheme, server),
		STUNServer:   stunServer,
		TURNServer:   turnServer,
		TURNUser:     turnUser,
		TURNPass:     turnPass,
		ForceRelay:   opts.ForceRelay,

		SetupTimeout:       DefaultSetupTimeout,
		ChannelOpenTimeout: DefaultChannelOpenTimeout,
		HeartbeatInterval:  DefaultHeartbeatInterval,
		RetryBackoff:       DefaultRetryBackoff,
		MaxRetries:         DefaultMaxRetries,
	}

	if cfg.ForceRelay && cfg.GetTURNServers() == nil {
		return nil, fmt.Errorf("cannot force relay mode without TURN server configured")
	}

	return cfg, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// GetSTUNServers returns STUN server URLs as strings.
func (c *Config) GetSTUNServers() []string {
	return []string{c.STUNServer}
}

// GetTURNServers returns TURN server URLs if configured.
func (c *Config) GetTURNServers() []string {
	if c.TURNServer == "" {
		return nil
	}
	return []string{
		fmt.Sprintf("%s:3478?transport=udp", c.TURNServer),
		fmt.Sprintf("%s:3478?transport=tcp", c.TURNServer),
	}
}

// GetTURNCredentials returns TURN username and password.
func (c *Config) GetTURNCredentials() (string, string) {
	return c.TURNUser, c.TURNPass
}
