package cfg

import (
	"fmt"
	"os"

	"github.com/mfridman/interpolate"
)

var (
	SCURRYDRIVER       = ""
	SCURRYDBSTRING     = ""
	SCURRYMIGRATIONDIR = DefaultMigrationDir
	SCURRYTABLE        = DefaultTable
	// https://no-color.org/
	SCURRYNOCOLOR = "false"
)

var (
	DefaultMigrationDir = "./migrations"
	DefaultTable        = "_scurry"
)

// Load reads the config values from environment. Callers that support a .env file load it into
// the environment first.
func Load() {
	SCURRYDRIVER = envOr("SCURRY_DRIVER", SCURRYDRIVER)
	SCURRYDBSTRING = envOr("SCURRY_DBSTRING", SCURRYDBSTRING)
	SCURRYMIGRATIONDIR = envOr("SCURRY_MIGRATION_DIR", SCURRYMIGRATIONDIR)
	SCURRYTABLE = envOr("SCURRY_TABLE", SCURRYTABLE)
	// https://no-color.org/
	SCURRYNOCOLOR = envOr("NO_COLOR", SCURRYNOCOLOR)
}

// An EnvVar is an environment variable Name=Value.
type EnvVar struct {
	Name  string
	Value string
}

func List() []EnvVar {
	return []EnvVar{
		{Name: "SCURRY_DRIVER", Value: SCURRYDRIVER},
		{Name: "SCURRY_DBSTRING", Value: SCURRYDBSTRING},
		{Name: "SCURRY_MIGRATION_DIR", Value: SCURRYMIGRATIONDIR},
		{Name: "SCURRY_TABLE", Value: SCURRYTABLE},
		{Name: "NO_COLOR", Value: SCURRYNOCOLOR},
	}
}

// ExpandDBString replaces $VAR and ${VAR} references in a connection string with values from the
// environment, so credentials don't have to be spelled out on the command line.
func ExpandDBString(s string) (string, error) {
	out, err := interpolate.Interpolate(&envWrapper{}, s)
	if err != nil {
		return "", fmt.Errorf("failed to expand connection string: %w", err)
	}
	return out, nil
}

type envWrapper struct{}

var _ interpolate.Env = (*envWrapper)(nil)

func (e *envWrapper) Get(key string) (string, bool) {
	return os.LookupEnv(key)
}

// envOr returns os.Getenv(key) if set, or else default.
func envOr(key, def string) string {
	val := os.Getenv(key)
	if val == "" {
		val = def
	}
	return val
}
