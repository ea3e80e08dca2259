// Package config defines the global configuration structure for the RainCast
// service. Configuration is loaded once at process start and is immutable
// thereafter. It follows 12-Factor principles: values come from the OS
// environment, optionally seeded from a .env file for local development.
// Any missing required value or invalid format fails startup immediately.
package config

import "time"

// Config is the top-level configuration struct. It is populated once during
// process initialization and never modified. Sub-components receive only the
// specific subsets they require.
type Config struct {
	// System metadata
	Environment string `envconfig:"APP_ENV" default:"local" validate:"required,oneof=local dev staging prod"`
	Service     string `envconfig:"SERVICE_NAME" default:"raincast"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	Server    ServerConfig
	Storage   StorageConfig
	Consensus ConsensusConfig
	Proof     ProofConfig
	Weather   WeatherConfig
	Admin     AdminConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port               string        `envconfig:"PORT" default:"8080"`
	RequestTimeout     time.Duration `envconfig:"REQUEST_TIMEOUT" default:"29s"`
	ShutdownTimeout    time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`
	CorsAllowedOrigins []string      `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`
}

// StorageConfig holds the durable observation store and proof artifact
// locations. Both directories are created on startup if absent.
type StorageConfig struct {
	HistoryFile string `envconfig:"HISTORY_FILE" default:"data/observation_history.csv"`
	UploadDir   string `envconfig:"UPLOAD_DIR" default:"data/uploads"`
}

// ConsensusConfig holds the vote and swarm tunables. The promote threshold
// governs trust-label transitions on the persisted tally; the alert
// threshold and idle TTL govern the ephemeral swarm tally.
type ConsensusConfig struct {
	PromoteThreshold int           `envconfig:"PROMOTE_THRESHOLD" default:"3" validate:"min=1"`
	AlertThreshold   int           `envconfig:"SWARM_ALERT_THRESHOLD" default:"5" validate:"min=1"`
	SwarmIdleTTL     time.Duration `envconfig:"SWARM_IDLE_TTL" default:"1h" validate:"min=1m"`
}

// ProofConfig holds proof upload limits.
type ProofConfig struct {
	MaxUploadBytes int64 `envconfig:"PROOF_MAX_UPLOAD_BYTES" default:"8388608" validate:"min=1024"`
}

// WeatherConfig holds Open-Meteo upstream settings.
type WeatherConfig struct {
	GeocodeBaseURL  string        `envconfig:"GEOCODE_BASE_URL" default:"https://geocoding-api.open-meteo.com"`
	ForecastBaseURL string        `envconfig:"FORECAST_BASE_URL" default:"https://api.open-meteo.com"`
	Timeout         time.Duration `envconfig:"WEATHER_TIMEOUT" default:"10s"`
	GeocodeCacheTTL time.Duration `envconfig:"GEOCODE_CACHE_TTL" default:"24h"`
	UserAgent       string        `envconfig:"WEATHER_USER_AGENT" default:"RainCast/1.0"`
}

// AdminConfig holds the administrative access credential. The key is stored
// as a bcrypt hash so the plaintext never appears in the environment of a
// running deployment. Empty hash disables the admin surface entirely.
type AdminConfig struct {
	KeyHash string `envconfig:"ADMIN_KEY_HASH"`
}
