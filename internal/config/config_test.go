package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("DB_NAME", "gym_test")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://a.test, http://b.test ,")
	t.Setenv("AUTH_RESET_TTL", "30m")
	t.Setenv("FRONTEND_URL", "http://front.test/")

	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, "gym_test", cfg.Database.DBName)
	require.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORS.AllowedOrigins)
	require.Equal(t, 24*time.Hour, cfg.Auth.VerificationTTL)
	require.Equal(t, 30*time.Minute, cfg.Auth.ResetTTL)
	require.Equal(t, "http://front.test", cfg.Auth.FrontendURL)
	require.False(t, cfg.IsProduction())
}

func TestValidate_RejectsDevSecretsInProduction(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("JWT_ACCESS_SECRET", "")
	t.Setenv("JWT_REFRESH_SECRET", "")

	_, err := Load()
	require.Error(t, err)

	t.Setenv("JWT_ACCESS_SECRET", "prod-a")
	t.Setenv("JWT_REFRESH_SECRET", "prod-r")
	cfg, err := Load()
	require.NoError(t, err)
	require.True(t, cfg.IsProduction())
}

func TestDatabaseConfig_DSNAndURL(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: "5432", User: "u", Password: "p", DBName: "gym", SSLMode: "disable"}

	require.Equal(t, "host=db port=5432 user=u password=p dbname=gym sslmode=disable", d.DSN())
	require.Equal(t, "postgres://u:p@db:5432/gym?sslmode=disable", d.URL())
}
