package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("JWT_TTL", "")
	t.Setenv("DEFAULT_TAX_PERCENT", "")

	cfg := Load()

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 24*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, 18.0, cfg.Business.DefaultTaxPercent)
	assert.Equal(t, 10, cfg.Business.DefaultStockThreshold)
	assert.Equal(t, []string{"http://localhost:5173", "http://localhost:5174"}, cfg.CORS.AllowedOrigins)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("JWT_TTL", "2h")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("DB_AUTO_MIGRATE", "false")
	t.Setenv("LOGIN_WINDOW", "not-a-duration")

	cfg := Load()

	assert.Equal(t, 2*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.False(t, cfg.Database.AutoMigrate)
	assert.Equal(t, 15*time.Minute, cfg.Auth.LoginWindow)
}

func TestValidateJWTSecret(t *testing.T) {
	tests := []struct {
		name    string
		env     string
		secret  string
		wantErr bool
	}{
		{"development keeps default", "development", defaultJWTSecret, false},
		{"production default", "production", defaultJWTSecret, true},
		{"production empty", "production", "", true},
		{"production custom", "production", "s3cr3t-from-vault", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				Server: ServerConfig{Env: tt.env},
				Auth:   AuthConfig{JWTSecret: tt.secret},
			}
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoadProductionRequiresSecret(t *testing.T) {
	t.Setenv("ENV", "production")
	t.Setenv("JWT_SECRET", "")

	assert.Error(t, Load().Validate())

	t.Setenv("JWT_SECRET", "rotated-secret")
	assert.NoError(t, Load().Validate())
}
