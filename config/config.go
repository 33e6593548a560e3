package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// KeycloakConfig holds connection settings for the Keycloak admin API.
type KeycloakConfig struct {
	BaseURL      string
	Realm        string
	ClientID     string
	ClientSecret string
	Timeout      time.Duration
}

// GleanConfig holds connection settings for the Glean indexing API.
type GleanConfig struct {
	APIURL                   string
	APIToken                 string
	Datasource               string
	Timeout                  time.Duration
	UseBulkIndex             bool
	DisableStaleDataDeletion bool
}

// AppConfig holds run-level options.
type AppConfig struct {
	LogLevel string
	DryRun   bool
	// MaxUsers caps the number of users fetched and pushed. Zero means unbounded.
	MaxUsers int
}

// ServerConfig holds settings for the HTTP trigger server.
type ServerConfig struct {
	Port int
	// ProjectID scopes the invoker permission check. When empty it is
	// resolved from the standard cloud environment variables.
	ProjectID string
}

// Config is the full application configuration.
type Config struct {
	Keycloak KeycloakConfig
	Glean    GleanConfig
	App      AppConfig
	Server   ServerConfig
}

// MissingVarsError reports every required environment variable that was unset,
// so a misconfigured deployment can be fixed in one pass.
type MissingVarsError struct {
	Vars []string
}

func (e *MissingVarsError) Error() string {
	return fmt.Sprintf("config: missing required environment variables: %s", strings.Join(e.Vars, ", "))
}

// Load reads configuration from the environment. A .env file at the given
// path is loaded first when it exists; a missing file is not an error so
// deployed environments can rely on real environment variables alone.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if _, err := os.Stat(envFile); err == nil {
			if err := godotenv.Load(envFile); err != nil {
				return nil, fmt.Errorf("config: load %s: %w", envFile, err)
			}
		}
	}

	var missing []string
	requireVar := func(name string) string {
		v := os.Getenv(name)
		if v == "" {
			missing = append(missing, name)
		}
		return v
	}

	keycloak := KeycloakConfig{
		BaseURL:      requireVar("KEYCLOAK_BASE_URL"),
		Realm:        requireVar("KEYCLOAK_REALM"),
		ClientID:     requireVar("KEYCLOAK_CLIENT_ID"),
		ClientSecret: requireVar("KEYCLOAK_CLIENT_SECRET"),
	}
	glean := GleanConfig{
		APIURL:     requireVar("GLEAN_API_URL"),
		APIToken:   requireVar("GLEAN_API_TOKEN"),
		Datasource: requireVar("GLEAN_DATASOURCE"),
	}
	if len(missing) > 0 {
		return nil, &MissingVarsError{Vars: missing}
	}

	var err error
	keycloak.Timeout, err = timeoutVar("KEYCLOAK_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, err
	}
	glean.Timeout, err = timeoutVar("GLEAN_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, err
	}
	glean.UseBulkIndex = boolVar("GLEAN_USE_BULK_INDEX", true)
	glean.DisableStaleDataDeletion = boolVar("GLEAN_DISABLE_STALE_DATA_DELETION", false)

	app := AppConfig{
		LogLevel: strings.ToLower(envOrDefault("LOG_LEVEL", "info")),
		DryRun:   boolVar("DRY_RUN", false),
	}
	app.MaxUsers, err = intVar("MAX_USERS", 0)
	if err != nil {
		return nil, err
	}
	if app.MaxUsers < 0 {
		return nil, fmt.Errorf("config: MAX_USERS must not be negative, got %d", app.MaxUsers)
	}

	server := ServerConfig{ProjectID: projectIDFromEnv()}
	server.Port, err = intVar("PORT", 8080)
	if err != nil {
		return nil, err
	}

	return &Config{
		Keycloak: keycloak,
		Glean:    glean,
		App:      app,
		Server:   server,
	}, nil
}

func envOrDefault(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}

// boolVar treats "true", "1" and "yes" (any case) as true.
func boolVar(name string, fallback bool) bool {
	v := os.Getenv(name)
	if v == "" {
		return fallback
	}
	switch strings.ToLower(v) {
	case "true", "1", "yes":
		return true
	default:
		return false
	}
}

func intVar(name string, fallback int) (int, error) {
	v := os.Getenv(name)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s must be an integer, got %q", name, v)
	}
	return n, nil
}

// timeoutVar parses a timeout given in whole seconds.
func timeoutVar(name string, fallback time.Duration) (time.Duration, error) {
	n, err := intVar(name, int(fallback/time.Second))
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, fmt.Errorf("config: %s must be positive, got %d", name, n)
	}
	return time.Duration(n) * time.Second, nil
}

// projectIDFromEnv checks the environment variables cloud runtimes commonly
// set, in order of preference.
func projectIDFromEnv() string {
	for _, name := range []string{"AUTH_PROJECT_ID", "GOOGLE_CLOUD_PROJECT", "GCP_PROJECT", "GCLOUD_PROJECT"} {
		if v := os.Getenv(name); v != "" {
			return v
		}
	}
	return ""
}
