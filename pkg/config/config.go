package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// Backends soportados para el contador por organización.
const (
	CounterBackendPostgres = "postgres"
	CounterBackendRedis    = "redis"
)

// Config agrupa la configuración de la aplicación (lectura vía Viper desde env y opcionalmente archivo).
type Config struct {
	App     AppConfig
	DB      DBConfig
	JWT     JWTConfig
	HTTP    HTTPConfig
	Redis   RedisConfig
	Ledger  LedgerConfig
	Counter CounterConfig
	Events  EventsConfig
	Tracing TracingConfig
}

// AppConfig configuración general de la aplicación.
type AppConfig struct {
	Env      string // development, staging, production
	Name     string
	LogLevel string
	TimeZone string // zona para las fechas del reporte PDF
}

// DBConfig configuración de PostgreSQL.
// Si DatabaseURL no está vacío, se usa como connection string completo.
type DBConfig struct {
	DatabaseURL string
	Host        string
	Port        int
	User        string
	Password    string
	DBName      string
	SSLMode     string
	MaxConns    int
	AutoMigrate bool
}

// ConnectionString devuelve el DSN a usar: DATABASE_URL si está definido, si no el construido con DSN().
func (c DBConfig) ConnectionString() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return c.DSN()
}

// DSN devuelve el connection string para PostgreSQL con URL encoding para caracteres especiales.
func (c DBConfig) DSN() string {
	u := &url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     "/" + c.DBName,
		RawQuery: fmt.Sprintf("sslmode=%s", c.SSLMode),
	}
	return u.String()
}

// JWTConfig configuración de JWT. Los tokens los emite el servicio de autenticación externo.
type JWTConfig struct {
	Secret string
	Issuer string
}

// HTTPConfig configuración del servidor HTTP.
type HTTPConfig struct {
	Host string
	Port int
}

// Addr devuelve la dirección de escucha (host:port).
func (c HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// RedisConfig conexión a Redis (contador alternativo y cola de eventos).
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LedgerConfig parámetros del libro de stock.
type LedgerConfig struct {
	MaxRetries int // reintentos del compare-and-swap antes de devolver ErrConflict
}

// CounterConfig selecciona el almacenamiento de los consecutivos por organización.
type CounterConfig struct {
	Backend string // postgres | redis
}

// EventsConfig publicación de eventos de órdenes de trabajo (asynq).
type EventsConfig struct {
	Enabled bool
	Queue   string
}

// TracingConfig exportación OTLP/HTTP. Endpoint vacío = trazas deshabilitadas.
type TracingConfig struct {
	Endpoint string
	Insecure bool
}

// Load lee la configuración desde variables de entorno (y opcionalmente desde archivo).
// Las env vars tienen prioridad. Nombres esperados: APP_ENV, DB_HOST, JWT_SECRET, REDIS_ADDR, etc.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // ignoramos error si no existe

	v.SetConfigName("config")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	_ = v.ReadInConfig()

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	cfg := fromViper(v)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func fromViper(v *viper.Viper) *Config {
	return &Config{
		App: AppConfig{
			Env:      getString(v, "APP_ENV", "development"),
			Name:     getString(v, "APP_NAME", "mantenimiento-api"),
			LogLevel: getString(v, "LOG_LEVEL", "info"),
			TimeZone: getString(v, "APP_TIMEZONE", "America/Bogota"),
		},
		DB: DBConfig{
			DatabaseURL: getString(v, "DATABASE_URL", ""),
			Host:        getString(v, "DB_HOST", "localhost"),
			Port:        getInt(v, "DB_PORT", 5432),
			User:        getString(v, "DB_USER", "postgres"),
			Password:    getString(v, "DB_PASSWORD", ""),
			DBName:      getString(v, "DB_NAME", "mantenimiento"),
			SSLMode:     getString(v, "DB_SSLMODE", "disable"),
			MaxConns:    getInt(v, "DB_MAX_CONNS", 25),
			AutoMigrate: getBool(v, "DB_AUTO_MIGRATE", false),
		},
		JWT: JWTConfig{
			Secret: getString(v, "JWT_SECRET", ""),
			Issuer: getString(v, "JWT_ISSUER", "mantenimiento-auth"),
		},
		HTTP: HTTPConfig{
			Host: getString(v, "HTTP_HOST", "0.0.0.0"),
			Port: getInt(v, "HTTP_PORT", 8080),
		},
		Redis: RedisConfig{
			Addr:     getString(v, "REDIS_ADDR", ""),
			Password: getString(v, "REDIS_PASSWORD", ""),
			DB:       getInt(v, "REDIS_DB", 0),
		},
		Ledger: LedgerConfig{
			MaxRetries: getInt(v, "LEDGER_MAX_RETRIES", 3),
		},
		Counter: CounterConfig{
			Backend: strings.ToLower(getString(v, "COUNTER_BACKEND", CounterBackendPostgres)),
		},
		Events: EventsConfig{
			Enabled: getBool(v, "EVENTS_ENABLED", false),
			Queue:   getString(v, "EVENTS_QUEUE", "workorders"),
		},
		Tracing: TracingConfig{
			Endpoint: getString(v, "OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			Insecure: getBool(v, "OTEL_EXPORTER_OTLP_INSECURE", true),
		},
	}
}

// Validate verifica combinaciones que impedirían arrancar el servicio.
func (c *Config) Validate() error {
	switch c.Counter.Backend {
	case CounterBackendPostgres:
	case CounterBackendRedis:
		if c.Redis.Addr == "" {
			return fmt.Errorf("config: COUNTER_BACKEND=redis requiere REDIS_ADDR")
		}
	default:
		return fmt.Errorf("config: COUNTER_BACKEND inválido %q", c.Counter.Backend)
	}
	if c.Events.Enabled && c.Redis.Addr == "" {
		return fmt.Errorf("config: EVENTS_ENABLED requiere REDIS_ADDR")
	}
	if c.Ledger.MaxRetries < 1 {
		return fmt.Errorf("config: LEDGER_MAX_RETRIES debe ser >= 1")
	}
	return nil
}

func getString(v *viper.Viper, key, def string) string {
	if v.IsSet(key) {
		return v.GetString(key)
	}
	return def
}

func getInt(v *viper.Viper, key string, def int) int {
	if v.IsSet(key) {
		switch v.Get(key).(type) {
		case int:
			return v.GetInt(key)
		case string:
			n, err := strconv.Atoi(v.GetString(key))
			if err != nil {
				return def
			}
			return n
		default:
			return v.GetInt(key)
		}
	}
	return def
}

func getBool(v *viper.Viper, key string, def bool) bool {
	if v.IsSet(key) {
		b, err := strconv.ParseBool(v.GetString(key))
		if err != nil {
			return def
		}
		return b
	}
	return def
}
