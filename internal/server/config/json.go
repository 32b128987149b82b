package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dmitrijs2005/phantomchat/internal/flagx"
	"github.com/dmitrijs2005/phantomchat/internal/timex"
)

// JsonConfig defines a configuration structure tailored for JSON unmarshalling.
// It uses timex.Duration for interval fields, which allows parsing both
// string values such as "30s" and integer nanoseconds.
//
// This struct is an intermediate DTO used only for reading JSON configuration
// files. After unmarshalling, its fields are copied into the runtime Config
// struct which uses time.Duration.
type JsonConfig struct {
	EndpointAddr    string         `json:"endpoint_addr"`
	UsersFile       string         `json:"users_file"`
	DatabaseDSN     string         `json:"database_dsn"`
	MaxAuthAttempts int            `json:"max_auth_attempts"`
	ReadTimeout     timex.Duration `json:"read_timeout"`
}

// parseJson loads configuration values from a JSON file into the provided
// Config instance.
//
// The lookup order for the JSON file path is:
//
//	The -c or -config command-line flags.
//	If it is not set, no JSON file is loaded.
//
// If the file path is found, parseJson attempts to read and unmarshal it
// into a JsonConfig. The resulting values are copied into the target Config.
// If the file cannot be read or contains invalid JSON, the function panics.
//
// The caller is expected to merge these values with defaults and
// command-line flags as part of the full configuration process.
func parseJson(config *Config) {

	// try flags
	jsonConfigFile := flagx.JsonConfigFlags()

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	err = json.Unmarshal(file, c)
	if err != nil {
		panic(err)
	}

	config.EndpointAddr = c.EndpointAddr
	config.UsersFile = c.UsersFile
	config.DatabaseDSN = c.DatabaseDSN
	config.MaxAuthAttempts = c.MaxAuthAttempts
	config.ReadTimeout = time.Duration(c.ReadTimeout.Duration)
}
