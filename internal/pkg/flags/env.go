package flags

import (
	"errors"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
)

// EnvFile names the dotenv file to load. Without it, .env is loaded if present.
const EnvFile = envPrefix + "ENV_FILE"

// LoadEnv loads a dotenv file into the process environment so that flag
// EnvVars can pick its values up. Variables already set are not overridden.
func LoadEnv() error {
	if path := os.Getenv(EnvFile); path != "" {
		return godotenv.Load(path)
	}
	err := godotenv.Load()
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}
