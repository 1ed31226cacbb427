package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"github.com/FreePeak/db-copilot/internal/llm"
	"github.com/FreePeak/db-copilot/pkg/db"
)

// Config holds all server configuration
type Config struct {
	ServerPort    int    `validate:"min=1,max=65535"`
	APIPort       int    `validate:"min=0,max=65535"`
	TransportMode string `validate:"oneof=stdio sse http"`
	LogLevel      string `validate:"oneof=debug info warn error"`
	DBConfig      DatabaseConfig
	Model         ModelConfig
	Router        RouterConfig
	MCP           MCPConfig

	// UIActionsFile and KeywordsFile extend the embedded defaults when set
	UIActionsFile string
	KeywordsFile  string
	DryRunDefault bool
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Type         string `validate:"oneof=mysql postgres sqlite"`
	Host         string
	Port         int `validate:"min=0,max=65535"`
	User         string
	Password     string
	Name         string
	Schema       string `validate:"omitempty,sqlident"`
	Path         string `validate:"required_if=Type sqlite"`
	AuditTable   string `validate:"required,sqlident"`
	CatalogTable string `validate:"required,sqlident"`
}

// ModelConfig selects the model used for each routing tier
type ModelConfig struct {
	APIKey     string
	Chat       string        `validate:"required"`
	Vision     string        `validate:"required"`
	Tools      string        `validate:"required"`
	Classifier string        `validate:"required"`
	Timeout    time.Duration `validate:"gt=0"`
}

// MCPConfig identifies MCP callers, which carry no end-user identity
type MCPConfig struct {
	ActorID    string
	ToolPrefix string `validate:"omitempty,sqlident"`
}

// RouterConfig tunes the two-stage request router
type RouterConfig struct {
	Window               int `validate:"min=1,max=50"`
	Stage2Enabled        bool
	FailClosedOnMutation bool
	ClassifierTimeout    time.Duration `validate:"gt=0"`
}

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// LoadConfig loads the configuration from the environment, reading a .env
// file first when one is present
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	port, err := getInt("SERVER_PORT", 9090)
	if err != nil {
		return nil, err
	}
	apiPort, err := getInt("API_PORT", 9091)
	if err != nil {
		return nil, err
	}
	dbPort, err := getInt("DB_PORT", 3306)
	if err != nil {
		return nil, err
	}
	window, err := getInt("ROUTER_WINDOW", 6)
	if err != nil {
		return nil, err
	}
	classifierTimeout, err := getDuration("CLASSIFIER_TIMEOUT", 3*time.Second)
	if err != nil {
		return nil, err
	}
	modelTimeout, err := getDuration("MODEL_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, err
	}
	stage2, err := getBool("ROUTER_STAGE2", true)
	if err != nil {
		return nil, err
	}
	failClosed, err := getBool("ROUTER_FAIL_CLOSED_ON_MUTATION", true)
	if err != nil {
		return nil, err
	}
	dryRun, err := getBool("DRY_RUN_DEFAULT", false)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		ServerPort:    port,
		APIPort:       apiPort,
		TransportMode: strings.ToLower(getEnv("TRANSPORT_MODE", "sse")),
		LogLevel:      strings.ToLower(getEnv("LOG_LEVEL", "info")),
		DBConfig: DatabaseConfig{
			Type:         strings.ToLower(getEnv("DB_TYPE", "mysql")),
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         dbPort,
			User:         getEnv("DB_USER", ""),
			Password:     getEnv("DB_PASSWORD", ""),
			Name:         getEnv("DB_NAME", ""),
			Schema:       getEnv("DB_SCHEMA", ""),
			Path:         getEnv("DB_PATH", ""),
			AuditTable:   getEnv("AUDIT_TABLE", "ai_audit_log"),
			CatalogTable: getEnv("CATALOG_TABLE", "ai_data_sources"),
		},
		Model: ModelConfig{
			APIKey:     getEnv("GEMINI_API_KEY", ""),
			Chat:       getEnv("MODEL_CHAT", "gemini-2.5-flash"),
			Vision:     getEnv("MODEL_VISION", "gemini-2.5-flash"),
			Tools:      getEnv("MODEL_TOOLS", "gemini-2.5-pro"),
			Classifier: getEnv("MODEL_CLASSIFIER", "gemini-2.5-flash-lite"),
			Timeout:    modelTimeout,
		},
		Router: RouterConfig{
			Window:               window,
			Stage2Enabled:        stage2,
			FailClosedOnMutation: failClosed,
			ClassifierTimeout:    classifierTimeout,
		},
		MCP: MCPConfig{
			ActorID:    getEnv("MCP_ACTOR_ID", ""),
			ToolPrefix: getEnv("MCP_TOOL_PREFIX", ""),
		},
		UIActionsFile: getEnv("UI_ACTIONS_FILE", ""),
		KeywordsFile:  getEnv("ROUTER_KEYWORDS_FILE", ""),
		DryRunDefault: dryRun,
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration against its struct constraints
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.RegisterValidation("sqlident", func(fl validator.FieldLevel) bool {
		return identPattern.MatchString(fl.Field().String())
	}); err != nil {
		return err
	}
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("invalid configuration: %s failed %q", fe.Namespace(), fe.Tag())
		}
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// Database converts the database section into a pkg/db connection config
func (c DatabaseConfig) Database() db.Config {
	return db.Config{
		Type:     c.Type,
		Host:     c.Host,
		Port:     c.Port,
		User:     c.User,
		Password: c.Password,
		Name:     c.Name,
		Path:     c.Path,
	}
}

// Tiers maps the routing tiers onto configured model names
func (c ModelConfig) Tiers() llm.Tiers {
	return llm.Tiers{
		Chat:       c.Chat,
		Vision:     c.Vision,
		Tools:      c.Tools,
		Classifier: c.Classifier,
	}
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getInt(key string, defaultValue int) (int, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return n, nil
}

func getBool(key string, defaultValue bool) (bool, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return b, nil
}

// getDuration accepts Go durations ("3s") or a plain number of seconds
func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue, nil
	}
	if secs, err := strconv.Atoi(raw); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return d, nil
}
