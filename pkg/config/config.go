package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/taskpilot/chatbot/internal/models"
)

type Config struct {
	Telegram  TelegramConfig    `mapstructure:"telegram"`
	Database  DatabaseConfig    `mapstructure:"database"`
	OpenAI    OpenAIConfig      `mapstructure:"openai"`
	Backend   BackendConfig     `mapstructure:"backend"`
	App       AppConfig         `mapstructure:"app"`
	Workflows []models.Workflow `mapstructure:"workflows"`
}

type TelegramConfig struct {
	Token         string `mapstructure:"token"`
	UseWebhook    bool   `mapstructure:"use_webhook"`
	WebhookListen string `mapstructure:"webhook_listen"`
	WebhookPath   string `mapstructure:"webhook_path"`
}

type DatabaseConfig struct {
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	User        string `mapstructure:"user"`
	Password    string `mapstructure:"password"`
	DBName      string `mapstructure:"dbname"`
	SSLMode     string `mapstructure:"sslmode"`
	UseInMemory bool   `mapstructure:"use_in_memory"`
}

type OpenAIConfig struct {
	APIKey      string        `mapstructure:"api_key"`
	Model       string        `mapstructure:"model"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	Temperature float64       `mapstructure:"temperature"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

type BackendConfig struct {
	BaseURL    string        `mapstructure:"base_url"`
	Namespace  string        `mapstructure:"namespace"`
	SigningKey string        `mapstructure:"signing_key"`
	TokenTTL   time.Duration `mapstructure:"token_ttl"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

type AppConfig struct {
	SignupURL string `mapstructure:"signup_url"`
}

func parseDatabaseURL(dbURL string) (DatabaseConfig, error) {
	u, err := url.Parse(dbURL)
	if err != nil {
		return DatabaseConfig{}, err
	}

	password, _ := u.User.Password()
	port := 5432 // default PostgreSQL port
	if u.Port() != "" {
		fmt.Sscanf(u.Port(), "%d", &port)
	}

	// Remove leading slash from path to get database name
	dbName := strings.TrimPrefix(u.Path, "/")

	return DatabaseConfig{
		Host:     u.Hostname(),
		Port:     port,
		User:     u.User.Username(),
		Password: password,
		DBName:   dbName,
		SSLMode:  "disable",
	}, nil
}

// DefaultWorkflows is the automation catalog used when the config file does
// not declare one. Names must match the workflow endpoints exposed by the
// automation backend.
func DefaultWorkflows() []models.Workflow {
	return []models.Workflow{
		{Name: "weather_check", Description: "Look up current weather for a location", MinTier: models.TierFree},
		{Name: "calendar_summary", Description: "Summarize upcoming calendar events", MinTier: models.TierStarter},
		{Name: "send_email", Description: "Compose and send an email on the user's behalf", MinTier: models.TierStarter},
		{Name: "generate_report", Description: "Generate a document or report from user data", MinTier: models.TierPro},
	}
}

func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	// Set default values
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.use_in_memory", false)
	v.SetDefault("openai.model", "gpt-4o-mini")
	v.SetDefault("openai.max_tokens", 300)
	v.SetDefault("openai.temperature", 0.1)
	v.SetDefault("openai.timeout", 20*time.Second)
	v.SetDefault("backend.namespace", "webhook")
	v.SetDefault("backend.token_ttl", 10*time.Minute)
	v.SetDefault("backend.timeout", 30*time.Second)
	v.SetDefault("telegram.use_webhook", false)
	v.SetDefault("telegram.webhook_listen", ":8443")
	v.SetDefault("telegram.webhook_path", "/telegram/webhook")

	// Enable environment variable support
	v.AutomaticEnv()

	// Read the config file
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	// Check for DATABASE_URL environment variable
	if dbURL := v.GetString("DATABASE_URL"); dbURL != "" {
		dbConfig, err := parseDatabaseURL(dbURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse DATABASE_URL: %v", err)
		}
		config.Database = dbConfig
	}

	// Get other environment variables
	if token := v.GetString("TELEGRAM_TOKEN"); token != "" {
		config.Telegram.Token = token
	}

	if apiKey := v.GetString("OPENAI_API_KEY"); apiKey != "" {
		config.OpenAI.APIKey = apiKey
	}

	if key := v.GetString("DISPATCH_SIGNING_KEY"); key != "" {
		config.Backend.SigningKey = key
	}

	if len(config.Workflows) == 0 {
		config.Workflows = DefaultWorkflows()
	}

	return &config, nil
}
