package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config armazena as configurações da aplicação
type Config struct {
	Port     string
	GinMode  string
	LogLevel string
	LogJSON  bool

	// Token Bearer das rotas administrativas (vazio = rotas desabilitadas)
	TokenAPI    string
	CORSOrigins []string

	Database DatabaseConfig
	Oracle   OracleConfig
	Governor GovernorConfig

	DefaultHourlyRate float64
}

// DatabaseConfig contém a conexão do Task Store
type DatabaseConfig struct {
	URL      string
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// OracleConfig configura o modelo de linguagem usado na pontuação
type OracleConfig struct {
	Provider          string // anthropic | openai
	APIKey            string
	Model             string
	MaxTokens         int
	Timeout           time.Duration
	RequestsPerMinute int
	Workers           int
	Mode              string // per_task | batch
}

// GovernorConfig configura a cota por cliente e a verificação anti-bot
type GovernorConfig struct {
	MaxRequests int
	Window      time.Duration

	RecaptchaSecret    string
	RecaptchaMinScore  float64
	RecaptchaVerifyURL string
	RecaptchaTimeout   time.Duration

	// AllowUnverified habilita explicitamente o bypass quando não há secret
	AllowUnverified bool
}

const (
	DefaultOracleModel        = "claude-sonnet-4-20250514"
	DefaultRecaptchaVerifyURL = "https://www.google.com/recaptcha/api/siteverify"

	ScoringModePerTask = "per_task"
	ScoringModeBatch   = "batch"
)

// ErrTrustBypassNotAllowed indica secret do reCAPTCHA ausente sem bypass explícito
var ErrTrustBypassNotAllowed = errors.New("RECAPTCHA_SECRET_KEY não configurado e ALLOW_UNVERIFIED_CLIENTS=false")

// Load carrega as configurações do ambiente
func Load() (*Config, error) {
	// Tenta carregar .env de múltiplos locais
	_ = godotenv.Load()
	_ = godotenv.Load("../.env")

	cfg := &Config{
		Port:     getEnv("PORT", "8080"),
		GinMode:  getEnv("GIN_MODE", "debug"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		TokenAPI: os.Getenv("TOKEN_API"),
		Database: LoadDatabase(),
		Governor: GovernorConfig{
			RecaptchaSecret:    os.Getenv("RECAPTCHA_SECRET_KEY"),
			RecaptchaVerifyURL: getEnv("RECAPTCHA_VERIFY_URL", DefaultRecaptchaVerifyURL),
		},
	}

	origins := getEnv("CORS_ORIGINS", "http://localhost:3000,http://127.0.0.1:3000")
	for _, o := range strings.Split(origins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			cfg.CORSOrigins = append(cfg.CORSOrigins, o)
		}
	}

	var err error
	if cfg.Oracle, err = LoadOracle(); err != nil {
		return nil, err
	}
	if cfg.LogJSON, err = getBool("LOG_JSON", false); err != nil {
		return nil, err
	}
	if cfg.Governor.AllowUnverified, err = getBool("ALLOW_UNVERIFIED_CLIENTS", false); err != nil {
		return nil, err
	}
	if cfg.Governor.MaxRequests, err = getInt("MAX_ANALYSES_PER_WINDOW", 5); err != nil {
		return nil, err
	}
	if cfg.Governor.Window, err = getDuration("RATE_WINDOW", time.Hour); err != nil {
		return nil, err
	}
	if cfg.Governor.RecaptchaTimeout, err = getDuration("RECAPTCHA_TIMEOUT", 5*time.Second); err != nil {
		return nil, err
	}
	if cfg.Governor.RecaptchaMinScore, err = getFloat("RECAPTCHA_MIN_SCORE", 0.5); err != nil {
		return nil, err
	}
	if cfg.DefaultHourlyRate, err = getFloat("DEFAULT_HOURLY_RATE", 50); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDatabase lê a conexão do Task Store
func LoadDatabase() DatabaseConfig {
	return DatabaseConfig{
		URL:      os.Getenv("DATABASE_URL"),
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     getEnv("DB_PORT", "5432"),
		User:     getEnv("DB_USER", "postgres"),
		Password: os.Getenv("DB_PASSWORD"),
		DBName:   getEnv("DB_NAME", "workscan"),
		SSLMode:  getEnv("DB_SSLMODE", "disable"),
	}
}

// LoadOracle carrega apenas a configuração do oráculo. Usado pela CLI, que
// não passa pelo Rate Governor.
func LoadOracle() (OracleConfig, error) {
	_ = godotenv.Load()

	o := OracleConfig{
		Provider: strings.ToLower(getEnv("ORACLE_PROVIDER", "anthropic")),
		Model:    getEnv("ORACLE_MODEL", DefaultOracleModel),
		Mode:     getEnv("SCORING_MODE", ScoringModePerTask),
	}

	switch o.Provider {
	case "anthropic":
		o.APIKey = os.Getenv("ANTHROPIC_API_KEY")
	case "openai":
		o.APIKey = os.Getenv("OPENAI_API_KEY")
	default:
		return o, fmt.Errorf("ORACLE_PROVIDER inválido: %s (suportados: anthropic, openai)", o.Provider)
	}

	if o.Mode != ScoringModePerTask && o.Mode != ScoringModeBatch {
		return o, fmt.Errorf("SCORING_MODE inválido: %s", o.Mode)
	}

	var err error
	if o.MaxTokens, err = getInt("ORACLE_MAX_TOKENS", 500); err != nil {
		return o, err
	}
	if o.RequestsPerMinute, err = getInt("ORACLE_REQUESTS_PER_MINUTE", 60); err != nil {
		return o, err
	}
	if o.Workers, err = getInt("SCORING_WORKERS", 4); err != nil {
		return o, err
	}
	if o.Timeout, err = getDuration("ORACLE_TIMEOUT", 30*time.Second); err != nil {
		return o, err
	}
	if o.Workers < 1 {
		o.Workers = 1
	}
	return o, nil
}

// validate aplica as regras que dependem de mais de uma variável
func (c *Config) validate() error {
	if c.Governor.MaxRequests < 1 {
		return errors.New("MAX_ANALYSES_PER_WINDOW deve ser maior que zero")
	}
	if c.Governor.Window <= 0 {
		return errors.New("RATE_WINDOW deve ser positivo")
	}
	if c.DefaultHourlyRate <= 0 {
		return errors.New("DEFAULT_HOURLY_RATE deve ser positivo")
	}

	// Sem secret só sobe com bypass explícito, em qualquer modo
	if c.Governor.RecaptchaSecret == "" && !c.Governor.AllowUnverified {
		return ErrTrustBypassNotAllowed
	}
	return nil
}

// DSN retorna a string de conexão do PostgreSQL
func (d DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode)
}

func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getBool(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s inválido: %w", key, err)
	}
	return b, nil
}

func getInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s inválido: %w", key, err)
	}
	return n, nil
}

func getFloat(key string, def float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s inválido: %w", key, err)
	}
	return f, nil
}

func getDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s inválido: %w", key, err)
	}
	return d, nil
}
