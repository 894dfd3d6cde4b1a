package config

import (
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestViper(overrides map[string]interface{}) *viper.Viper {
	v := viper.New()
	setDefaults(v)
	for k, val := range overrides {
		v.Set(k, val)
	}
	return v
}

func TestFromViperDefaults(t *testing.T) {
	cfg := fromViper(newTestViper(nil))

	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, 15*time.Minute, cfg.JWT.Expiration)
	assert.Equal(t, 14*24*time.Hour, cfg.JWT.RefreshExpiration)
	assert.Equal(t, "session-auth-api", cfg.JWT.Issuer)
	assert.Equal(t, "refreshToken", cfg.Cookie.Name)
	assert.True(t, cfg.Cookie.Secure)
	assert.Equal(t, http.SameSiteStrictMode, cfg.Cookie.SameSite)
	assert.Equal(t, "auth", cfg.Session.KeyPrefix)
	assert.Equal(t, 2*time.Second, cfg.Redis.Timeout)
	assert.Nil(t, cfg.CORS.AllowedOrigins)
	assert.Equal(t, bcrypt.DefaultCost, cfg.Credentials.BcryptCost)
	require.NoError(t, cfg.Validate())
}

func TestFromViperOverrides(t *testing.T) {
	cfg := fromViper(newTestViper(map[string]interface{}{
		"ACCESS_TOKEN_EXPIRATION":  "5m",
		"REFRESH_TOKEN_EXPIRATION": "not-a-duration",
		"COOKIE_SAMESITE":          "Lax",
		"ALLOWED_ORIGINS":          "https://a.example, ,https://b.example ",
		"SESSION_KEY_PREFIX":       "social",
		"BCRYPT_COST":              12,
	}))

	assert.Equal(t, 5*time.Minute, cfg.JWT.Expiration)
	assert.Equal(t, 14*24*time.Hour, cfg.JWT.RefreshExpiration)
	assert.Equal(t, http.SameSiteLaxMode, cfg.Cookie.SameSite)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, "social", cfg.Session.KeyPrefix)
	assert.Equal(t, 12, cfg.Credentials.BcryptCost)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		overrides map[string]interface{}
		wantErr   bool
	}{
		{name: "defaults", wantErr: false},
		{name: "access equals refresh", overrides: map[string]interface{}{"ACCESS_TOKEN_EXPIRATION": "1h", "REFRESH_TOKEN_EXPIRATION": "1h"}, wantErr: true},
		{name: "access longer than refresh", overrides: map[string]interface{}{"ACCESS_TOKEN_EXPIRATION": "2h", "REFRESH_TOKEN_EXPIRATION": "1h"}, wantErr: true},
		{name: "negative access", overrides: map[string]interface{}{"ACCESS_TOKEN_EXPIRATION": "-1m"}, wantErr: true},
		{name: "empty secret", overrides: map[string]interface{}{"JWT_SECRET": ""}, wantErr: true},
		{name: "bcrypt cost below minimum", overrides: map[string]interface{}{"BCRYPT_COST": bcrypt.MinCost - 1}, wantErr: true},
		{name: "bcrypt cost above maximum", overrides: map[string]interface{}{"BCRYPT_COST": bcrypt.MaxCost + 1}, wantErr: true},
		{name: "empty cookie name", overrides: map[string]interface{}{"COOKIE_NAME": ""}, wantErr: true},
		{name: "production with default secret", overrides: map[string]interface{}{"ENV": EnvProduction}, wantErr: true},
		{name: "production without secure cookie", overrides: map[string]interface{}{"ENV": EnvProduction, "JWT_SECRET": "s3cr3t", "COOKIE_SECURE": false}, wantErr: true},
		{name: "production configured", overrides: map[string]interface{}{"ENV": EnvProduction, "JWT_SECRET": "s3cr3t"}, wantErr: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := fromViper(newTestViper(tc.overrides)).Validate()
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	t.Setenv("JWT_SECRET", "from-env")
	t.Setenv("PORT", "9090")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.JWT.Secret)
	assert.Equal(t, 9090, cfg.Port)
}
