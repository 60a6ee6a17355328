package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	appLog "daybook/internal/log"
)

const (
	defaultListen        = "127.0.0.1:8080"
	defaultLogLevel      = "info"
	defaultRetentionCron = "15 0 * * *"
	defaultKeepDays      = 30
)

// Environment variables that override file settings.
const (
	EnvListen   = "DAYBOOK_LISTEN"
	EnvSeedFile = "DAYBOOK_SEED_FILE"
	EnvLogLevel = "DAYBOOK_LOG_LEVEL"
	EnvKeepDays = "DAYBOOK_RETENTION_KEEP_DAYS"
)

// RetentionConfig controls the periodic pruning of past days.
type RetentionConfig struct {
	Enabled bool `yaml:"enabled" json:"enabled"`
	// Cron is a standard 5-field cron expression.
	Cron string `yaml:"cron" json:"cron"`
	// KeepDays is how many past days are kept; older days are removed.
	// 0 이면 오늘 이전 날짜는 모두 지운다.
	KeepDays int `yaml:"keep_days" json:"keep_days"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the API.
	Listen string `yaml:"listen" json:"listen"`

	// SeedFile is an optional YAML or ICS file the schedule is loaded from
	// at startup.
	SeedFile string `yaml:"seed_file" json:"seed_file"`

	LogLevel string `yaml:"log_level" json:"log_level"`

	Retention RetentionConfig `yaml:"retention" json:"retention"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all
	// endpoints except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:   defaultListen,
		LogLevel: defaultLogLevel,
		Retention: RetentionConfig{
			Enabled:  false,
			Cron:     defaultRetentionCron,
			KeepDays: defaultKeepDays,
		},
	}
}

// Normalize fills in missing or invalid values with defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = defaultListen
	}
	if c.LogLevel == "" {
		c.LogLevel = defaultLogLevel
	}
	if c.Retention.Cron == "" {
		c.Retention.Cron = defaultRetentionCron
	}
	// 잘못된 cron 표현식은 서버 시작 시점에 실패하지 않도록 기본값으로 되돌린다.
	if _, err := cron.ParseStandard(c.Retention.Cron); err != nil {
		appLog.Warn("invalid retention cron; using default", "cron", c.Retention.Cron, "default", defaultRetentionCron)
		c.Retention.Cron = defaultRetentionCron
	}
	if c.Retention.KeepDays < 0 {
		c.Retention.KeepDays = defaultKeepDays
	}
}

// ApplyEnv overrides settings from env. Unknown keys are ignored and a
// malformed numeric value leaves the setting untouched.
func (c *Config) ApplyEnv(env map[string]string) {
	if v := env[EnvListen]; v != "" {
		c.Listen = v
	}
	if v := env[EnvSeedFile]; v != "" {
		c.SeedFile = v
	}
	if v := env[EnvLogLevel]; v != "" {
		c.LogLevel = v
	}
	if v := env[EnvKeepDays]; v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			c.Retention.KeepDays = n
		} else {
			appLog.Warn("ignoring malformed env value", "key", EnvKeepDays, "value", v)
		}
	}
}

// Environment collects overrides from an optional dotenv file and the
// process environment; the process environment wins.
func Environment(dotenvPath string) (map[string]string, error) {
	env := make(map[string]string)
	if dotenvPath != "" {
		fileEnv, err := godotenv.Read(dotenvPath)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read %s: %w", dotenvPath, err)
		}
		for k, v := range fileEnv {
			env[k] = v
		}
	}
	// .env 보다 실제 프로세스 환경변수가 우선한다.
	for _, k := range []string{EnvListen, EnvSeedFile, EnvLogLevel, EnvKeepDays} {
		if v, ok := os.LookupEnv(k); ok {
			env[k] = v
		}
	}
	return env, nil
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist, a default config is written with 0600
//     perms and returned.
//   - Otherwise the YAML is unmarshalled and defaults are filled in.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Caller decides whether an unsaved default is acceptable.
				return cfg, err
			}
			appLog.Info("wrote default config", "path", path)
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes cfg to path atomically (temp file + rename) with 0600 perms,
// creating the parent directory with 0700 if needed.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	// 같은 디렉토리에 임시 파일을 쓰고 rename 해서 중간 상태의 파일이 남지 않게 한다.
	tmp, err := os.CreateTemp(dir, ".daybook-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}

	return os.Rename(tmpName, path)
}

// Save is a convenience wrapper around the package-level Save.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
