package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Database DatabaseConfig `mapstructure:"database"`
	APIs     APIsConfig     `mapstructure:"apis"`
	Mapping  MappingConfig  `mapstructure:"mapping"`
	Programs ProgramsConfig `mapstructure:"programs"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

// --- Core App/Infrastructure Config ---

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type DatabaseConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

type PostgresConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string.
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	CacheTTL int    `mapstructure:"cache_ttl"` // seconds
}

// --- External API Configuration ---

// APIsConfig holds settings for external API integrations.
type APIsConfig struct {
	OpenAI OpenAIConfig `mapstructure:"openai"`
}

// OpenAIConfig configures the completion service used by the semantic
// mapping tier. The API key comes from the environment, never from YAML.
type OpenAIConfig struct {
	BaseURL      string  `mapstructure:"base_url"`
	APIKey       string  `mapstructure:"api_key"`
	Model        string  `mapstructure:"model"`
	MaxTokens    int     `mapstructure:"max_tokens"`
	Temperature  float64 `mapstructure:"temperature"`
	Timeout      int     `mapstructure:"timeout"` // milliseconds
	MaxRetries   int     `mapstructure:"max_retries"`
	RequestsPerS float64 `mapstructure:"requests_per_second"`
}

// --- Pipeline Configuration ---

// MappingConfig carries the keyword-tier weights and the acceptance
// threshold. The weights are deliberate constants from the scoring
// heuristic; they are configurable but their defaults are load-bearing.
type MappingConfig struct {
	KeywordMatchThreshold float64 `mapstructure:"keyword_match_threshold"`
	TermWeight            float64 `mapstructure:"term_weight"`
	SkillWeight           float64 `mapstructure:"skill_weight"`
	ContractorWeight      float64 `mapstructure:"contractor_weight"`
	ConfidenceCap         float64 `mapstructure:"confidence_cap"`
	ConfidencePerProgram  float64 `mapstructure:"confidence_per_program"`
	Concurrency           int     `mapstructure:"concurrency"`
}

// ProgramsConfig locates the reference-data dictionary.
type ProgramsConfig struct {
	DictionaryPath string `mapstructure:"dictionary_path"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// MetricsConfig exposes the optional Prometheus listener.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Address string `mapstructure:"address"`
}
