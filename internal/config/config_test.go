package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFromEnv_Defaults(t *testing.T) {
	t.Setenv("HTTP_ADDR", "")
	t.Setenv("CART_SESSION_TTL_MINUTES", "")
	t.Setenv("RABBITMQ_URL", "")

	cfg := FromEnv()
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, 15*time.Second, cfg.BackendTimeout)
	assert.Equal(t, 30*time.Minute, cfg.CartSessionTTL)
	assert.Empty(t, cfg.RabbitMQURL)
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("BACKEND_TIMEOUT_SECONDS", "3")
	t.Setenv("CART_SESSION_TTL_MINUTES", "5")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example ,")
	t.Setenv("ENVIRONMENT", "production")

	cfg := FromEnv()
	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, 3*time.Second, cfg.BackendTimeout)
	assert.Equal(t, 5*time.Minute, cfg.CartSessionTTL)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowedOrigins)
	assert.Equal(t, "production", cfg.Environment)
}

func TestFromEnv_InvalidDurationFallsBack(t *testing.T) {
	t.Setenv("SHUTDOWN_TIMEOUT_SECONDS", "soon")
	cfg := FromEnv()
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
}
