package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(Options{})
	require.NoError(t, err)

	assert.Equal(t, DefaultServer, cfg.Server)
	assert.Equal(t, "wss://"+DefaultServer+"/ws", cfg.WebSocketURL)
	assert.Equal(t, DefaultSTUN, cfg.STUNServer)
	assert.Equal(t, DefaultSetupTimeout, cfg.SetupTimeout)
	assert.Equal(t, DefaultChannelOpenTimeout, cfg.ChannelOpenTimeout)
	assert.Equal(t, DefaultHeartbeatInterval, cfg.HeartbeatInterval)
	assert.Equal(t, DefaultRetryBackoff, cfg.RetryBackoff)
	assert.Equal(t, DefaultMaxRetries, cfg.MaxRetries)
}

func TestFlagsBeatEnvironment(t *testing.T) {
	t.Setenv("WATCHWIRE_SERVER", "env.example.com")

	cfg, err := Load(Options{Server: "flag.example.com"})
	require.NoError(t, err)
	assert.Equal(t, "flag.example.com", cfg.Server)
}

func TestEnvironmentBeatsDefaults(t *testing.T) {
	t.Setenv("WATCHWIRE_SERVER", "env.example.com")
	t.Setenv("STUN_SERVER", "stun:stun.example.com:3478")

	cfg, err := Load(Options{})
	require.NoError(t, err)
	assert.Equal(t, "env.example.com", cfg.Server)
	assert.Equal(t, "stun:stun.example.com:3478", cfg.STUNServer)
}

func TestInsecureSwitchesScheme(t *testing.T) {
	cfg, err := Load(Options{Insecure: true})
	require.NoError(t, err)
	assert.Equal(t, "ws://"+DefaultServer+"/ws", cfg.WebSocketURL)
}

func TestForceRelayRequiresTURN(t *testing.T) {
	_, err := Load(Options{ForceRelay: true})
	assert.Error(t, err)

	cfg, err := Load(Options{ForceRelay: true, TURNServer: "turn:turn.example.com"})
	require.NoError(t, err)
	assert.True(t, cfg.ForceRelay)
}

func TestTURNServerExpandsTransports(t *testing.T) {
	cfg, err := Load(Options{TURNServer: "turn:turn.example.com"})
	require.NoError(t, err)

	servers := cfg.GetTURNServers()
	require.Len(t, servers, 2)
	assert.Contains(t, servers[0], "transport=udp")
	assert.Contains(t, servers[1], "transport=tcp")
}

func TestNoTURNByDefault(t *testing.T) {
	cfg, err := Load(Options{})
	require.NoError(t, err)
	assert.Nil(t, cfg.GetTURNServers())
}
