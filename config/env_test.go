package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"KV_BACKEND", "MQTT_FIX_TOPIC", "HTTP_PORT", "LOG_LEVEL", "SEED_FENCES"} {
		t.Setenv(k, "")
	}

	cfg := Load()
	assert.Equal(t, KVSQLite, cfg.KVBackend)
	assert.Equal(t, "/gird/device/+/fix", cfg.MQTTFixTopic)
	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Empty(t, cfg.SeedFences)
}

func TestLoad_KVBackend(t *testing.T) {
	tests := []struct {
		env  string
		want string
	}{
		{"postgres", KVPostgres},
		{" Redis ", KVRedis},
		{"memory", KVMemory},
		{"sqlite", KVSQLite},
		{"etcd", KVSQLite},
	}
	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			t.Setenv("KV_BACKEND", tt.env)
			assert.Equal(t, tt.want, Load().KVBackend)
		})
	}
}

func TestNewLogger(t *testing.T) {
	logger, err := NewLogger(&Config{LogLevel: "debug"})
	assert.NoError(t, err)
	assert.NotNil(t, logger)

	_, err = NewLogger(&Config{LogLevel: "loud"})
	assert.Error(t, err)
}
