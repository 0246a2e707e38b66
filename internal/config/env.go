package config

import (
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// loadEnvFiles loads the first of .env/.env.local found in dir. Variables
// already present in the process environment are not overwritten. It returns
// the loaded file, or "" when none exists.
func loadEnvFiles(dir string) (string, error) {
	for _, name := range []string{".env", ".env.local"} {
		p := filepath.Join(dir, name)
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return "", err
		}
		return p, nil
	}
	return "", nil
}
