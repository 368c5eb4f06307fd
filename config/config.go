package config

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application level configuration aggregated from env/config files.
type Config struct {
	Server struct {
		Addr string
	}
	Mongo struct {
		URI      string
		Database string
	}
	CORS struct {
		Origins string
	}
	Auth struct {
		AccessTokenSecret  string
		AccessTokenExpiry  string
		RefreshTokenSecret string
		RefreshTokenExpiry string
	}
	Cookie struct {
		Secure bool
		Domain string
	}
	Storage struct {
		Provider        string
		Bucket          string
		Endpoint        string
		Region          string
		AccessKeyID     string
		SecretAccessKey string
		PublicDomain    string
		CredentialsFile string
	}
	Upload struct {
		MaxSizeMB int
	}
	Log struct {
		Level  string
		Format string
	}
}

// envBindings keeps the conventional variable names working next to the
// prefixed viper keys.
var envBindings = map[string][]string{
	"server.addr":             {"SERVER_ADDR"},
	"mongo.uri":               {"MONGODB_URI"},
	"mongo.database":          {"DATABASE_NAME"},
	"cors.origins":            {"CORS_ORIGIN"},
	"auth.accesstokensecret":  {"ACCESS_TOKEN_SECRET"},
	"auth.accesstokenexpiry":  {"ACCESS_TOKEN_EXPIRY"},
	"auth.refreshtokensecret": {"REFRESH_TOKEN_SECRET"},
	"auth.refreshtokenexpiry": {"REFRESH_TOKEN_EXPIRY"},
	"cookie.secure":           {"COOKIE_SECURE"},
	"cookie.domain":           {"COOKIE_DOMAIN"},
	"storage.provider":        {"STORAGE_PROVIDER"},
	"storage.bucket":          {"R2_BUCKET", "STORAGE_BUCKET"},
	"storage.endpoint":        {"R2_ENDPOINT", "STORAGE_ENDPOINT"},
	"storage.region":          {"STORAGE_REGION"},
	"storage.accesskeyid":     {"R2_ACCESS_KEY_ID", "STORAGE_ACCESS_KEY_ID"},
	"storage.secretaccesskey": {"R2_SECRET_ACCESS_KEY", "STORAGE_SECRET_ACCESS_KEY"},
	"storage.publicdomain":    {"R2_PUBLIC_DOMAIN", "STORAGE_PUBLIC_DOMAIN"},
	"storage.credentialsfile": {"CREDENTIALS_FILE_LOCATION"},
	"upload.maxsizemb":        {"MAX_UPLOAD_SIZE_MB"},
	"log.level":               {"LOG_LEVEL"},
	"log.format":              {"LOG_FORMAT"},
}

// Load reads configuration from the .env file, environment variables and an
// optional config.yaml in the working directory.
func Load() (Config, error) {
	_ = godotenv.Load()
	return load(viper.New())
}

func load(v *viper.Viper) (Config, error) {
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server.addr", "")
	v.SetDefault("mongo.uri", "mongodb://localhost:27017")
	v.SetDefault("mongo.database", "videotube")
	v.SetDefault("cors.origins", "")
	v.SetDefault("auth.accesstokensecret", "")
	v.SetDefault("auth.accesstokenexpiry", "1d")
	v.SetDefault("auth.refreshtokensecret", "")
	v.SetDefault("auth.refreshtokenexpiry", "10d")
	v.SetDefault("cookie.secure", true)
	v.SetDefault("cookie.domain", "")
	v.SetDefault("storage.provider", "s3")
	v.SetDefault("storage.bucket", "")
	v.SetDefault("storage.endpoint", "")
	v.SetDefault("storage.region", "auto")
	v.SetDefault("storage.accesskeyid", "")
	v.SetDefault("storage.secretaccesskey", "")
	v.SetDefault("storage.publicdomain", "")
	v.SetDefault("storage.credentialsfile", "")
	v.SetDefault("upload.maxsizemb", 5)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	for key, envs := range envBindings {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return Config{}, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if strings.TrimSpace(cfg.Server.Addr) == "" {
		cfg.Server.Addr = ":8000"
		if port := strings.TrimSpace(v.GetString("port")); port != "" {
			cfg.Server.Addr = ":" + port
		}
	}

	return cfg, nil
}

// Validate reports the first configuration problem that would prevent the
// server from issuing tokens or storing uploads.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Auth.AccessTokenSecret) == "" {
		return errors.New("ACCESS_TOKEN_SECRET is required")
	}
	if strings.TrimSpace(c.Auth.RefreshTokenSecret) == "" {
		return errors.New("REFRESH_TOKEN_SECRET is required")
	}
	if _, err := c.AccessTTL(); err != nil {
		return err
	}
	if _, err := c.RefreshTTL(); err != nil {
		return err
	}
	switch c.Storage.Provider {
	case "s3", "gcs":
	default:
		return fmt.Errorf("unknown storage provider %q (allowed: s3, gcs)", c.Storage.Provider)
	}
	if c.Upload.MaxSizeMB <= 0 {
		return errors.New("MAX_UPLOAD_SIZE_MB must be positive")
	}
	return nil
}

func (c Config) AccessTTL() (time.Duration, error) {
	d, err := ParseExpiry(c.Auth.AccessTokenExpiry)
	if err != nil {
		return 0, fmt.Errorf("ACCESS_TOKEN_EXPIRY: %w", err)
	}
	return d, nil
}

func (c Config) RefreshTTL() (time.Duration, error) {
	d, err := ParseExpiry(c.Auth.RefreshTokenExpiry)
	if err != nil {
		return 0, fmt.Errorf("REFRESH_TOKEN_EXPIRY: %w", err)
	}
	return d, nil
}

// AllowedOrigins splits the comma separated CORS origin list.
func (c Config) AllowedOrigins() map[string]bool {
	allowed := map[string]bool{}
	for _, origin := range strings.Split(c.CORS.Origins, ",") {
		origin = strings.TrimSpace(origin)
		if origin != "" {
			allowed[origin] = true
		}
	}
	return allowed
}

// ParseExpiry accepts Go durations ("15m", "240h") and whole days ("10d").
// Bare numbers are read as seconds.
func ParseExpiry(raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, errors.New("expiry is empty")
	}

	var d time.Duration
	switch {
	case strings.HasSuffix(raw, "d"):
		days, err := strconv.ParseInt(strings.TrimSuffix(raw, "d"), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid expiry %q", raw)
		}
		if days <= 0 {
			return 0, fmt.Errorf("expiry %q must be positive", raw)
		}
		if days > math.MaxInt64/int64(24*time.Hour) {
			return 0, fmt.Errorf("expiry %q is too large", raw)
		}
		d = time.Duration(days) * 24 * time.Hour
	default:
		if secs, err := strconv.ParseInt(raw, 10, 64); err == nil {
			if secs <= 0 {
				return 0, fmt.Errorf("expiry %q must be positive", raw)
			}
			if secs > math.MaxInt64/int64(time.Second) {
				return 0, fmt.Errorf("expiry %q is too large", raw)
			}
			d = time.Duration(secs) * time.Second
			break
		}
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			return 0, fmt.Errorf("invalid expiry %q", raw)
		}
		d = parsed
	}

	if d <= 0 {
		return 0, fmt.Errorf("expiry %q must be positive", raw)
	}
	return d, nil
}
