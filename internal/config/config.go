package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Log         LogConfig         `yaml:"log" mapstructure:"log"`
	Server      ServerConfig      `yaml:"server" mapstructure:"server"`
	Store       StoreConfig       `yaml:"store" mapstructure:"store"`
	Cache       CacheConfig       `yaml:"cache" mapstructure:"cache"`
	Secrets     Secrets           `yaml:"secrets" mapstructure:"secrets"`
	Marketplace MarketplaceConfig `yaml:"marketplace" mapstructure:"marketplace"`
	Filter      FilterConfig      `yaml:"filter" mapstructure:"filter"`
	Ranking     RankingConfig     `yaml:"ranking" mapstructure:"ranking"`
	WebSearch   WebSearchConfig   `yaml:"websearch" mapstructure:"websearch"`
	Places      PlacesConfig      `yaml:"places" mapstructure:"places"`
	Pipeline    PipelineConfig    `yaml:"pipeline" mapstructure:"pipeline"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port           int           `yaml:"port" mapstructure:"port"`
	RequestTimeout time.Duration `yaml:"request_timeout" mapstructure:"request_timeout"`
	AllowedOrigins []string      `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// StoreConfig configures the search history backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
}

// CacheConfig configures the shared cache.
type CacheConfig struct {
	RedisURL   string        `yaml:"redis_url" mapstructure:"redis_url"`
	Prefix     string        `yaml:"prefix" mapstructure:"prefix"`
	DefaultTTL time.Duration `yaml:"default_ttl" mapstructure:"default_ttl"`
	SearchTTL  time.Duration `yaml:"search_ttl" mapstructure:"search_ttl"`
	PlacesTTL  time.Duration `yaml:"places_ttl" mapstructure:"places_ttl"`
}

// Secrets holds provider credentials.
type Secrets struct {
	RapidAPIKey  string `yaml:"rapidapi_key" mapstructure:"rapidapi_key"`
	GoogleAPIKey string `yaml:"google_api_key" mapstructure:"google_api_key"`
	GoogleCSEID  string `yaml:"google_cse_id" mapstructure:"google_cse_id"`
	JinaKey      string `yaml:"jina_key" mapstructure:"jina_key"`
}

// MarketplaceConfig configures the probing search client.
type MarketplaceConfig struct {
	Hosts            []string      `yaml:"hosts" mapstructure:"hosts"`
	Endpoints        []string      `yaml:"endpoints" mapstructure:"endpoints"`
	MaxPages         int           `yaml:"max_pages" mapstructure:"max_pages"`
	MinResults       int           `yaml:"min_results" mapstructure:"min_results"`
	PageSize         int           `yaml:"page_size" mapstructure:"page_size"`
	FailureThreshold int           `yaml:"failure_threshold" mapstructure:"failure_threshold"`
	MaxProbes        int           `yaml:"max_probes" mapstructure:"max_probes"`
	Timeout          time.Duration `yaml:"timeout" mapstructure:"timeout"`
	PageDelay        time.Duration `yaml:"page_delay" mapstructure:"page_delay"`
}

// FilterConfig configures listing exclusion.
type FilterConfig struct {
	ExcludedBrands    []string `yaml:"excluded_brands" mapstructure:"excluded_brands"`
	MinPrice          float64  `yaml:"min_price" mapstructure:"min_price"`
	MaxPrice          float64  `yaml:"max_price" mapstructure:"max_price"`
	AllowedConditions []string `yaml:"allowed_conditions" mapstructure:"allowed_conditions"`
}

// RankingConfig holds scoring weights and curve parameters.
type RankingConfig struct {
	PriceWeight         float64            `yaml:"price_weight" mapstructure:"price_weight"`
	SalesWeight         float64            `yaml:"sales_weight" mapstructure:"sales_weight"`
	ConditionWeight     float64            `yaml:"condition_weight" mapstructure:"condition_weight"`
	MaxPrice            float64            `yaml:"max_price" mapstructure:"max_price"`
	PriceFloor          float64            `yaml:"price_floor" mapstructure:"price_floor"`
	PriceDecay          float64            `yaml:"price_decay" mapstructure:"price_decay"`
	MaxSales            float64            `yaml:"max_sales" mapstructure:"max_sales"`
	ConditionScores     map[string]float64 `yaml:"condition_scores" mapstructure:"condition_scores"`
	DefaultCondition    float64            `yaml:"default_condition" mapstructure:"default_condition"`
	SellerBase          float64            `yaml:"seller_base" mapstructure:"seller_base"`
	LevelMultipliers    map[string]float64 `yaml:"level_multipliers" mapstructure:"level_multipliers"`
	TransactionBonus    float64            `yaml:"transaction_bonus" mapstructure:"transaction_bonus"`
	MaxTransactionBonus float64            `yaml:"max_transaction_bonus" mapstructure:"max_transaction_bonus"`
	ShippingBase        float64            `yaml:"shipping_base" mapstructure:"shipping_base"`
	FreeShippingBonus   float64            `yaml:"free_shipping_bonus" mapstructure:"free_shipping_bonus"`
	FastShippingBonus   float64            `yaml:"fast_shipping_bonus" mapstructure:"fast_shipping_bonus"`
	Limit               int                `yaml:"limit" mapstructure:"limit"`
}

// WebSearchConfig configures the web-search contact resolver.
type WebSearchConfig struct {
	Engine     string        `yaml:"engine" mapstructure:"engine"`
	BaseURL    string        `yaml:"base_url" mapstructure:"base_url"`
	NumResults int           `yaml:"num_results" mapstructure:"num_results"`
	Timeout    time.Duration `yaml:"timeout" mapstructure:"timeout"`
	Sites      []string      `yaml:"sites" mapstructure:"sites"`
}

// PlacesConfig configures the places contact resolver.
type PlacesConfig struct {
	PrimaryHost     string        `yaml:"primary_host" mapstructure:"primary_host"`
	FallbackBaseURL string        `yaml:"fallback_base_url" mapstructure:"fallback_base_url"`
	Timeout         time.Duration `yaml:"timeout" mapstructure:"timeout"`
	MaxResults      int           `yaml:"max_results" mapstructure:"max_results"`
	FallbackRPS     float64       `yaml:"fallback_rps" mapstructure:"fallback_rps"`
	BreakerFailures int           `yaml:"breaker_failures" mapstructure:"breaker_failures"`
	BreakerCooldown time.Duration `yaml:"breaker_cooldown" mapstructure:"breaker_cooldown"`
}

// PipelineConfig configures the orchestrator.
type PipelineConfig struct {
	Deadline       time.Duration `yaml:"deadline" mapstructure:"deadline"`
	ContactWorkers int           `yaml:"contact_workers" mapstructure:"contact_workers"`
	ContactRPS     float64       `yaml:"contact_rps" mapstructure:"contact_rps"`
	Strategy       string        `yaml:"strategy" mapstructure:"strategy"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("SCOUT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Bare provider variable names are accepted alongside the prefixed ones.
	_ = v.BindEnv("secrets.rapidapi_key", "SCOUT_SECRETS_RAPIDAPI_KEY", "RAPIDAPI_KEY")
	_ = v.BindEnv("secrets.google_api_key", "SCOUT_SECRETS_GOOGLE_API_KEY", "GOOGLE_API_KEY")
	_ = v.BindEnv("secrets.google_cse_id", "SCOUT_SECRETS_GOOGLE_CSE_ID", "GOOGLE_CSE_ID")
	_ = v.BindEnv("secrets.jina_key", "SCOUT_SECRETS_JINA_KEY", "JINA_API_KEY")
	_ = v.BindEnv("cache.redis_url", "SCOUT_CACHE_REDIS_URL", "REDIS_URL")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.request_timeout", 120*time.Second)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "scout.db")
	v.SetDefault("store.max_conns", 5)

	v.SetDefault("cache.redis_url", "")
	v.SetDefault("cache.prefix", "scout:")
	v.SetDefault("cache.default_ttl", time.Hour)
	v.SetDefault("cache.search_ttl", time.Hour)
	v.SetDefault("cache.places_ttl", 24*time.Hour)

	v.SetDefault("secrets.rapidapi_key", "")
	v.SetDefault("secrets.google_api_key", "")
	v.SetDefault("secrets.google_cse_id", "")
	v.SetDefault("secrets.jina_key", "")

	v.SetDefault("marketplace.hosts", []string{
		"mercado-libre7.p.rapidapi.com",
		"mercadolibre1.p.rapidapi.com",
		"mercadolibre.p.rapidapi.com",
	})
	v.SetDefault("marketplace.endpoints", []string{
		"/listings_for_search",
		"/api/search",
		"/search",
		"/items/search",
		"/sites/{site}/search",
	})
	v.SetDefault("marketplace.max_pages", 5)
	v.SetDefault("marketplace.min_results", 20)
	v.SetDefault("marketplace.page_size", 50)
	v.SetDefault("marketplace.failure_threshold", 3)
	v.SetDefault("marketplace.max_probes", 30)
	v.SetDefault("marketplace.timeout", 15*time.Second)
	v.SetDefault("marketplace.page_delay", 500*time.Millisecond)

	v.SetDefault("filter.excluded_brands", []string{
		"samsung", "lg", "sony", "philips", "motorola", "apple",
		"xiaomi", "noblex", "tcl", "hisense",
	})
	v.SetDefault("filter.min_price", 0)
	v.SetDefault("filter.max_price", 0)
	v.SetDefault("filter.allowed_conditions", []string{"new", "used", "not_specified"})

	v.SetDefault("ranking.price_weight", 0.4)
	v.SetDefault("ranking.sales_weight", 0.4)
	v.SetDefault("ranking.condition_weight", 0.2)
	v.SetDefault("ranking.max_price", 1_000_000.0)
	v.SetDefault("ranking.price_floor", 1000.0)
	v.SetDefault("ranking.price_decay", 100_000.0)
	v.SetDefault("ranking.max_sales", 100.0)
	v.SetDefault("ranking.condition_scores", map[string]float64{
		"new":                      1.0,
		"new_other":                0.9,
		"new_with_defects":         0.8,
		"manufacturer_refurbished": 0.7,
		"seller_refurbished":       0.6,
		"used":                     0.5,
		"for_parts":                0.3,
		"not_specified":            0.5,
	})
	v.SetDefault("ranking.default_condition", 0.5)
	v.SetDefault("ranking.seller_base", 0.5)
	v.SetDefault("ranking.level_multipliers", map[string]float64{
		"5_green":       1.2,
		"4_light_green": 1.1,
		"3_yellow":      1.0,
		"2_orange":      0.9,
		"1_red":         0.8,
	})
	v.SetDefault("ranking.transaction_bonus", 0.0001)
	v.SetDefault("ranking.max_transaction_bonus", 0.2)
	v.SetDefault("ranking.shipping_base", 0.5)
	v.SetDefault("ranking.free_shipping_bonus", 0.2)
	v.SetDefault("ranking.fast_shipping_bonus", 0.1)
	v.SetDefault("ranking.limit", 20)

	v.SetDefault("websearch.engine", "customsearch")
	v.SetDefault("websearch.base_url", "")
	v.SetDefault("websearch.num_results", 3)
	v.SetDefault("websearch.timeout", 15*time.Second)
	v.SetDefault("websearch.sites", []string{
		"mercadolibre.com.ar",
		"*.mercadoshops.com.ar",
		"instagram.com",
		"facebook.com",
	})

	v.SetDefault("places.primary_host", "maps-data.p.rapidapi.com")
	v.SetDefault("places.fallback_base_url", "https://places.googleapis.com/v1")
	v.SetDefault("places.timeout", 15*time.Second)
	v.SetDefault("places.max_results", 3)
	v.SetDefault("places.fallback_rps", 5.0)
	v.SetDefault("places.breaker_failures", 5)
	v.SetDefault("places.breaker_cooldown", 2*time.Minute)

	v.SetDefault("pipeline.deadline", 90*time.Second)
	v.SetDefault("pipeline.contact_workers", 4)
	v.SetDefault("pipeline.contact_rps", 2.0)
	v.SetDefault("pipeline.strategy", "all")
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
