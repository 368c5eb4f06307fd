package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, ":8000", cfg.Server.Addr)
	assert.Equal(t, "videotube", cfg.Mongo.Database)
	assert.Equal(t, "1d", cfg.Auth.AccessTokenExpiry)
	assert.Equal(t, "10d", cfg.Auth.RefreshTokenExpiry)
	assert.True(t, cfg.Cookie.Secure)
	assert.Equal(t, "s3", cfg.Storage.Provider)
	assert.Equal(t, 5, cfg.Upload.MaxSizeMB)
}

func TestLoad_ConventionalEnvNames(t *testing.T) {
	t.Setenv("PORT", "4000")
	t.Setenv("MONGODB_URI", "mongodb://db:27017")
	t.Setenv("CORS_ORIGIN", "https://a.example, https://b.example")
	t.Setenv("ACCESS_TOKEN_SECRET", "access")
	t.Setenv("ACCESS_TOKEN_EXPIRY", "15m")
	t.Setenv("REFRESH_TOKEN_SECRET", "refresh")
	t.Setenv("COOKIE_SECURE", "false")
	t.Setenv("R2_BUCKET", "media")

	cfg, err := load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, ":4000", cfg.Server.Addr)
	assert.Equal(t, "mongodb://db:27017", cfg.Mongo.URI)
	assert.Equal(t, "access", cfg.Auth.AccessTokenSecret)
	assert.Equal(t, "refresh", cfg.Auth.RefreshTokenSecret)
	assert.False(t, cfg.Cookie.Secure)
	assert.Equal(t, "media", cfg.Storage.Bucket)
	assert.Equal(t, map[string]bool{"https://a.example": true, "https://b.example": true}, cfg.AllowedOrigins())

	ttl, err := cfg.AccessTTL()
	require.NoError(t, err)
	assert.Equal(t, 15*time.Minute, ttl)
	require.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		var c Config
		c.Auth.AccessTokenSecret = "a"
		c.Auth.AccessTokenExpiry = "1d"
		c.Auth.RefreshTokenSecret = "r"
		c.Auth.RefreshTokenExpiry = "10d"
		c.Storage.Provider = "gcs"
		c.Upload.MaxSizeMB = 5
		return c
	}

	require.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing access secret", func(c *Config) { c.Auth.AccessTokenSecret = " " }},
		{"missing refresh secret", func(c *Config) { c.Auth.RefreshTokenSecret = "" }},
		{"bad access expiry", func(c *Config) { c.Auth.AccessTokenExpiry = "soon" }},
		{"negative refresh expiry", func(c *Config) { c.Auth.RefreshTokenExpiry = "-1h" }},
		{"unknown provider", func(c *Config) { c.Storage.Provider = "ftp" }},
		{"zero upload size", func(c *Config) { c.Upload.MaxSizeMB = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(&c)
			assert.Error(t, c.Validate())
		})
	}
}

func TestParseExpiry(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{in: "10d", want: 240 * time.Hour},
		{in: "1d", want: 24 * time.Hour},
		{in: "15m", want: 15 * time.Minute},
		{in: "90", want: 90 * time.Second},
		{in: "", wantErr: true},
		{in: "xd", wantErr: true},
		{in: "0d", wantErr: true},
		{in: "abc", wantErr: true},
		{in: "106751d", want: 106751 * 24 * time.Hour},
		{in: "106752d", wantErr: true},
		{in: "999999999d", wantErr: true},
		{in: "9223372036854775807", wantErr: true},
		{in: "9223372037", wantErr: true},
		{in: "-5", wantErr: true},
		{in: "-999999999999d", wantErr: true},
		{in: "-9223372036854775807", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseExpiry(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}
