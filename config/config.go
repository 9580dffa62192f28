package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/alejandrodnm/rotabot/internal/domain"
)

// Config es la configuración completa del bot.
type Config struct {
	Log        LogConfig        `yaml:"log"`
	Data       DataConfig       `yaml:"data"`
	Notify     NotifyConfig     `yaml:"notify"`
	Schedule   ScheduleConfig   `yaml:"schedule"`
	Universe   UniverseConfig   `yaml:"universe"`
	Strategies []StrategyConfig `yaml:"strategies"`
	Live       LiveConfig       `yaml:"live"`
}

// LogConfig controla el formato y nivel de logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// DataConfig controla la descarga de market data y el snapshot en disco.
type DataConfig struct {
	Dir               string `yaml:"dir"`                 // raíz de data/ (cache, flag, ledger)
	Period            string `yaml:"period"`              // ventana de look-back, p.ej. "3mo"
	CacheTTLHours     int    `yaml:"cache_ttl_hours"`     // frescura del snapshot
	MaxRetries        int    `yaml:"max_retries"`         // intentos del residual retry
	RetryDelaySeconds int    `yaml:"retry_delay_seconds"` // espera entre intentos
	RetryEnabled      *bool  `yaml:"retry_enabled"`       // nil → true
	DownloadWorkers   int    `yaml:"download_workers"`
}

// NotifyConfig nombra las variables de entorno con las credenciales del bot
// de Telegram. Vacías → solo console notifier.
type NotifyConfig struct {
	TelegramTokenEnv  string `yaml:"telegram_token_env"`
	TelegramChatIDEnv string `yaml:"telegram_chat_id_env"`
}

// ScheduleConfig controla el supervisor.
type ScheduleConfig struct {
	Environment             string `yaml:"environment"` // local | prod
	ConfirmationWaitSeconds int    `yaml:"confirmation_wait_seconds"`
}

// UniverseConfig lleva las additions custom a la lista blue-chip.
type UniverseConfig struct {
	Additions []string `yaml:"additions"`
}

// StrategyConfig define una strategy instance de la flota.
// Las credenciales son env-only: KeyEnv/SecretEnv nombran las variables.
type StrategyConfig struct {
	Name      string `yaml:"name"`
	Enabled   bool   `yaml:"enabled"`
	Paper     bool   `yaml:"paper"`
	TopN      int    `yaml:"top_n"`
	Universe  string `yaml:"universe"` // low | medium | high | union
	KeyEnv    string `yaml:"key_env"`
	SecretEnv string `yaml:"secret_env"`
}

// LiveConfig define la cuenta live multi-bucket con ledger de investors.
type LiveConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Paper     bool   `yaml:"paper"` // paper endpoint para ensayos del flujo live
	TopN      int    `yaml:"top_n"`
	KeyEnv    string `yaml:"key_env"`
	SecretEnv string `yaml:"secret_env"`
	LedgerDSN string `yaml:"ledger_dsn"` // ruta SQLite; default <data.dir>/investors.db
}

// Load carga la configuración desde el archivo YAML y el archivo .env si existe.
func Load(path string) (*Config, error) {
	// Cargar .env si existe (silencia error si no hay archivo)
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	return &cfg, nil
}

// Validate comprueba los preconditions de arranque.
func (c *Config) Validate() error {
	anyEnabled := c.Live.Enabled
	for _, s := range c.Strategies {
		if !s.Enabled {
			continue
		}
		anyEnabled = true
		if s.Name == "" {
			return fmt.Errorf("config.Validate: unnamed strategy: %w", domain.ErrConfigMissing)
		}
		if key, secret := s.Credentials(); key == "" || secret == "" {
			return fmt.Errorf("config.Validate: strategy %q: credentials %s/%s unset: %w",
				s.Name, s.KeyEnv, s.SecretEnv, domain.ErrConfigMissing)
		}
	}
	if c.Live.Enabled {
		if key, secret := c.Live.Credentials(); key == "" || secret == "" {
			return fmt.Errorf("config.Validate: live account credentials %s/%s unset: %w",
				c.Live.KeyEnv, c.Live.SecretEnv, domain.ErrConfigMissing)
		}
	}
	if !anyEnabled {
		return fmt.Errorf("config.Validate: no enabled strategies: %w", domain.ErrConfigMissing)
	}
	return nil
}

// Credentials resuelve las credenciales de la strategy desde el entorno.
func (s StrategyConfig) Credentials() (key, secret string) {
	return os.Getenv(s.KeyEnv), os.Getenv(s.SecretEnv)
}

// Credentials resuelve las credenciales de la cuenta live desde el entorno.
func (l LiveConfig) Credentials() (key, secret string) {
	return os.Getenv(l.KeyEnv), os.Getenv(l.SecretEnv)
}

// TelegramCredentials resuelve token y chat id; vacíos si no configurados.
func (n NotifyConfig) TelegramCredentials() (token, chatID string) {
	if n.TelegramTokenEnv == "" || n.TelegramChatIDEnv == "" {
		return "", ""
	}
	return os.Getenv(n.TelegramTokenEnv), os.Getenv(n.TelegramChatIDEnv)
}

// CacheTTL devuelve la ventana de frescura del snapshot.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Data.CacheTTLHours) * time.Hour
}

// RetryDelay devuelve la espera entre intentos del residual retry.
func (c *Config) RetryDelay() time.Duration {
	return time.Duration(c.Data.RetryDelaySeconds) * time.Second
}

// RetryEnabled reports whether the residual retry is on (default true).
func (c *Config) RetryEnabled() bool {
	return c.Data.RetryEnabled == nil || *c.Data.RetryEnabled
}

// ConfirmationWait devuelve el timeout de la confirmación en modo local.
func (c *Config) ConfirmationWait() time.Duration {
	return time.Duration(c.Schedule.ConfirmationWaitSeconds) * time.Second
}

// applyEnvOverrides sobreescribe valores con variables de entorno si están presentes.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("ROTABOT_ENV"); v != "" {
		cfg.Schedule.Environment = v
	}
}

// setDefaults asegura que los valores requeridos tengan valores sensatos.
func setDefaults(cfg *Config) {
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
	if cfg.Data.Dir == "" {
		cfg.Data.Dir = "data"
	}
	if cfg.Data.Period == "" {
		cfg.Data.Period = "3mo"
	}
	if cfg.Data.CacheTTLHours <= 0 {
		cfg.Data.CacheTTLHours = 24
	}
	if cfg.Data.MaxRetries <= 0 {
		cfg.Data.MaxRetries = 3
	}
	if cfg.Data.RetryDelaySeconds <= 0 {
		cfg.Data.RetryDelaySeconds = 30
	}
	if cfg.Data.DownloadWorkers <= 0 {
		cfg.Data.DownloadWorkers = 8
	}
	if cfg.Schedule.Environment == "" {
		cfg.Schedule.Environment = "local"
	}
	if cfg.Schedule.ConfirmationWaitSeconds <= 0 {
		cfg.Schedule.ConfirmationWaitSeconds = 30
	}
	for i := range cfg.Strategies {
		if cfg.Strategies[i].TopN <= 0 {
			cfg.Strategies[i].TopN = 5
		}
		if cfg.Strategies[i].Universe == "" {
			cfg.Strategies[i].Universe = "low"
		}
	}
	if cfg.Live.TopN <= 0 {
		cfg.Live.TopN = 5
	}
	if cfg.Live.LedgerDSN == "" {
		cfg.Live.LedgerDSN = cfg.Data.Dir + "/investors.db"
	}
}
