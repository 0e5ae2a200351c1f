package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
)

type Config struct {
	LLM        LLMConfig        `mapstructure:"llm"`
	Embedding  EmbeddingConfig  `mapstructure:"embedding"`
	Cache      CacheConfig      `mapstructure:"cache"`
	Breaker    BreakerConfig    `mapstructure:"breaker"`
	Index      IndexConfig      `mapstructure:"index"`
	Classifier ClassifierConfig `mapstructure:"classifier"`
	Matcher    MatcherConfig    `mapstructure:"matcher"`
	Decision   DecisionConfig   `mapstructure:"decision"`
	Engagement EngagementConfig `mapstructure:"engagement"`
	Content    ContentConfig    `mapstructure:"content"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Log        LogConfig        `mapstructure:"log"`
}

type LLMConfig struct {
	APIKey          string        `mapstructure:"api_key"`
	BaseURL         string        `mapstructure:"base_url"`
	ClassifierModel string        `mapstructure:"classifier_model"`
	ContentModel    string        `mapstructure:"content_model"`
	MaxTokens       int           `mapstructure:"max_tokens"`
	Timeout         time.Duration `mapstructure:"timeout"`
}

type EmbeddingConfig struct {
	// Provider is "openai" or "local".
	Provider  string `mapstructure:"provider"`
	Model     string `mapstructure:"model"`
	Dimension int    `mapstructure:"dimension"`
}

type CacheConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	RedisURL string        `mapstructure:"redis_url"`
	TTL      time.Duration `mapstructure:"ttl"`
}

type BreakerConfig struct {
	MaxRequests         uint32        `mapstructure:"max_requests"`
	Interval            time.Duration `mapstructure:"interval"`
	Timeout             time.Duration `mapstructure:"timeout"`
	ConsecutiveFailures uint32        `mapstructure:"consecutive_failures"`
	FailureRatio        float64       `mapstructure:"failure_ratio"`
	MinRequests         uint32        `mapstructure:"min_requests"`
}

type IndexConfig struct {
	// Metric is "l2" or "cosine".
	Metric string `mapstructure:"metric"`
	// Path of the sqlite file holding index vectors. Empty keeps the index in memory only.
	Path string `mapstructure:"path"`
}

type ClassifierConfig struct {
	Rules bool `mapstructure:"rules"`
}

type MatcherConfig struct {
	TopK           int     `mapstructure:"top_k"`
	SemanticWeight float64 `mapstructure:"semantic_weight"`
	IndustryBonus  float64 `mapstructure:"industry_bonus"`
	UrgencyBonus   float64 `mapstructure:"urgency_bonus"`
}

// DecisionConfig holds the factor weights of the channel decision engine.
// They are hand-tuned and meant to be adjusted.
type DecisionConfig struct {
	Urgency    float64 `mapstructure:"urgency"`
	ICP        float64 `mapstructure:"icp"`
	Objective  float64 `mapstructure:"objective"`
	Historical float64 `mapstructure:"historical"`
}

type EngagementConfig struct {
	Defaults map[string]float64 `mapstructure:"defaults"`
}

type ContentConfig struct {
	Temperatures map[string]float64 `mapstructure:"temperatures"`
	MaxAttempts  int                `mapstructure:"max_attempts"`
	BaseDelay    time.Duration      `mapstructure:"base_delay"`
}

type DatabaseConfig struct {
	// Driver is "memory", "postgres" or "sqlite".
	Driver     string `mapstructure:"driver"`
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	User       string `mapstructure:"user"`
	Password   string `mapstructure:"password"`
	DBName     string `mapstructure:"dbname"`
	SSLMode    string `mapstructure:"sslmode"`
	SQLitePath string `mapstructure:"sqlite_path"`
}

type LogConfig struct {
	Development bool `mapstructure:"development"`
}

func parseDatabaseURL(dbURL string) (DatabaseConfig, error) {
	u, err := url.Parse(dbURL)
	if err != nil {
		return DatabaseConfig{}, err
	}

	password, _ := u.User.Password()
	port := 5432
	if u.Port() != "" {
		fmt.Sscanf(u.Port(), "%d", &port)
	}

	sslMode := u.Query().Get("sslmode")
	if sslMode == "" {
		sslMode = "disable"
	}

	return DatabaseConfig{
		Driver:   "postgres",
		Host:     u.Hostname(),
		Port:     port,
		User:     u.User.Username(),
		Password: password,
		DBName:   strings.TrimPrefix(u.Path, "/"),
		SSLMode:  sslMode,
	}, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("llm.base_url", "https://openrouter.ai/api/v1")
	v.SetDefault("llm.classifier_model", "amazon/nova-micro-v1")
	v.SetDefault("llm.content_model", "amazon/nova-micro-v1")
	v.SetDefault("llm.max_tokens", 512)
	v.SetDefault("llm.timeout", 10*time.Second)

	v.SetDefault("embedding.provider", "local")
	v.SetDefault("embedding.model", "text-embedding-3-small")
	v.SetDefault("embedding.dimension", 384)

	v.SetDefault("cache.enabled", false)
	v.SetDefault("cache.redis_url", "redis://localhost:6379/0")
	v.SetDefault("cache.ttl", 24*time.Hour)

	v.SetDefault("breaker.max_requests", 3)
	v.SetDefault("breaker.interval", 60*time.Second)
	v.SetDefault("breaker.timeout", 30*time.Second)
	v.SetDefault("breaker.consecutive_failures", 5)
	v.SetDefault("breaker.failure_ratio", 0.6)
	v.SetDefault("breaker.min_requests", 10)

	v.SetDefault("index.metric", "l2")
	v.SetDefault("index.path", "")

	v.SetDefault("classifier.rules", false)

	v.SetDefault("matcher.top_k", 3)
	v.SetDefault("matcher.semantic_weight", 0.7)
	v.SetDefault("matcher.industry_bonus", 0.2)
	v.SetDefault("matcher.urgency_bonus", 0.1)

	v.SetDefault("decision.urgency", 0.40)
	v.SetDefault("decision.icp", 0.25)
	v.SetDefault("decision.objective", 0.20)
	v.SetDefault("decision.historical", 0.15)

	v.SetDefault("engagement.defaults", map[string]float64{"LinkedIn": 0.5, "Email": 0.7, "Call": 0.2})

	v.SetDefault("content.temperatures", map[string]float64{"LinkedIn": 0.85, "Email": 0.7, "SMS": 0.4, "Call": 0.5})
	v.SetDefault("content.max_attempts", 3)
	v.SetDefault("content.base_delay", time.Second)

	v.SetDefault("database.driver", "memory")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.dbname", "outreach")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.sqlite_path", "data/outreach.db")

	v.SetDefault("log.development", false)
}

// LoadConfig reads path (optional) and the environment into a Config value.
func LoadConfig(path string) (Config, error) {
	// .env is optional
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			if _, statErr := os.Stat(path); statErr == nil {
				return Config{}, eris.Wrapf(err, "failed to read config %s", path)
			}
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return Config{}, eris.Wrap(err, "failed to decode config")
	}

	if dbURL := v.GetString("DATABASE_URL"); dbURL != "" {
		dbConfig, err := parseDatabaseURL(dbURL)
		if err != nil {
			return Config{}, eris.Wrap(err, "failed to parse DATABASE_URL")
		}
		config.Database = dbConfig
	}

	if apiKey := v.GetString("OPENAI_API_KEY"); apiKey != "" {
		config.LLM.APIKey = apiKey
	}
	if baseURL := v.GetString("OPENAI_BASE_URL"); baseURL != "" {
		config.LLM.BaseURL = baseURL
	}
	if redisURL := v.GetString("REDIS_URL"); redisURL != "" {
		config.Cache.RedisURL = redisURL
		config.Cache.Enabled = true
	}

	return config, nil
}

// Redacted is a printable view of the configuration without secrets.
type Redacted struct {
	Config        Config `json:"config"`
	LLMKeySet     bool   `json:"llm_api_key_set"`
	DBPasswordSet bool   `json:"database_password_set"`
}

// Redacted masks credentials and reports which of them are set.
func (c Config) Redacted() Redacted {
	out := c.Clone()
	r := Redacted{LLMKeySet: c.LLM.APIKey != "", DBPasswordSet: c.Database.Password != ""}
	out.LLM.APIKey = ""
	out.Database.Password = ""
	if u, err := url.Parse(out.Cache.RedisURL); err == nil && u.User != nil {
		u.User = url.User(u.User.Username())
		out.Cache.RedisURL = u.String()
	}
	r.Config = out
	return r
}

// Clone deep-copies the map fields so the result shares nothing with c.
func (c Config) Clone() Config {
	out := c
	out.Engagement.Defaults = cloneMap(c.Engagement.Defaults)
	out.Content.Temperatures = cloneMap(c.Content.Temperatures)
	return out
}

func cloneMap(m map[string]float64) map[string]float64 {
	if m == nil {
		return nil
	}
	out := make(map[string]float64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Default returns the built-in defaults without reading files or the environment.
func Default() Config {
	v := viper.New()
	setDefaults(v)
	var config Config
	// defaults always decode
	_ = v.Unmarshal(&config)
	return config
}
