package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the full runtime configuration. Values come from an optional
// YAML file and are overridden by environment variables.
type Config struct {
	Env      string `yaml:"env"`
	HTTPAddr string `yaml:"http_addr"`

	StoreBackend    string `yaml:"store_backend"` // memory or mongo
	MongoURI        string `yaml:"mongo_uri"`
	MongoDatabase   string `yaml:"mongo_database"`
	MongoCollection string `yaml:"mongo_collection"`

	RedisAddr     string        `yaml:"redis_addr"` // empty disables the read cache
	RedisPassword string        `yaml:"redis_password"`
	RedisDB       int           `yaml:"redis_db"`
	CacheTTL      time.Duration `yaml:"cache_ttl"`

	JWTSecret         string `yaml:"jwt_secret"`
	AdminUser         string `yaml:"admin_user"`
	AdminPasswordHash string `yaml:"admin_password_hash"`

	IDScheme   string   `yaml:"id_scheme"`   // uuid or timestamp
	RouteTable string   `yaml:"route_table"` // primary or compact
	CORSAllow  []string `yaml:"cors_allow"`
}

// Defaults returns the configuration used when nothing is set.
func Defaults() Config {
	return Config{
		Env:             "dev",
		HTTPAddr:        ":8000",
		StoreBackend:    "memory",
		MongoURI:        "mongodb://localhost:27017/?replicaSet=rs0",
		MongoDatabase:   "itemsdb",
		MongoCollection: "items",
		CacheTTL:        5 * time.Minute,
		JWTSecret:       "dev-secret-change",
		AdminUser:       "admin",
		IDScheme:        "uuid",
		RouteTable:      "primary",
		CORSAllow:       []string{"http://localhost:4200"},
	}
}

// Load reads .env (if present), then path (if non-empty), then the process
// environment.
func Load(path string) (Config, error) {
	_ = godotenv.Load()

	cfg := Defaults()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := applyEnv(&cfg, os.Getenv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config, getenv func(string) string) error {
	str := func(k string, dst *string) {
		if v := getenv(k); v != "" {
			*dst = v
		}
	}
	str("APP_ENV", &cfg.Env)
	str("HTTP_ADDR", &cfg.HTTPAddr)
	str("STORE_BACKEND", &cfg.StoreBackend)
	str("MONGO_URI", &cfg.MongoURI)
	str("MONGO_DATABASE", &cfg.MongoDatabase)
	str("MONGO_COLLECTION", &cfg.MongoCollection)
	str("REDIS_ADDR", &cfg.RedisAddr)
	str("REDIS_PASSWORD", &cfg.RedisPassword)
	str("JWT_SECRET", &cfg.JWTSecret)
	str("ADMIN_USER", &cfg.AdminUser)
	str("ADMIN_PASSWORD_HASH", &cfg.AdminPasswordHash)
	str("ID_SCHEME", &cfg.IDScheme)
	str("ROUTE_TABLE", &cfg.RouteTable)

	if v := getenv("REDIS_DB"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("REDIS_DB: %w", err)
		}
		cfg.RedisDB = n
	}
	if v := getenv("CACHE_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("CACHE_TTL: %w", err)
		}
		cfg.CacheTTL = d
	}
	if v := getenv("CORS_ALLOW"); v != "" {
		cfg.CORSAllow = splitCSV(v)
	}
	return nil
}

// Validate rejects values the server cannot run with.
func (c Config) Validate() error {
	switch c.StoreBackend {
	case "memory", "mongo":
	default:
		return fmt.Errorf("store backend %q: want memory or mongo", c.StoreBackend)
	}
	switch c.IDScheme {
	case "uuid", "timestamp":
	default:
		return fmt.Errorf("id scheme %q: want uuid or timestamp", c.IDScheme)
	}
	switch c.RouteTable {
	case "primary", "compact":
	default:
		return fmt.Errorf("route table %q: want primary or compact", c.RouteTable)
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("jwt secret required")
	}
	if c.Env == "prod" && c.JWTSecret == Defaults().JWTSecret {
		return fmt.Errorf("jwt secret must be changed in prod")
	}
	return nil
}

// splitCSV trims and filters a comma-separated list
func splitCSV(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		s = strings.TrimSpace(s)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
