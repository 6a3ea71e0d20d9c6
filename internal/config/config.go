package config

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

const envPrefix = "DBCONSOLE_"

type Config struct {
	Port         int           `koanf:"port"`
	Key          string        `koanf:"key"`
	DataPath     string        `koanf:"data_path"`
	LogDir       string        `koanf:"log_dir"`
	QueryTimeout time.Duration `koanf:"query_timeout"`
	SecureCookie bool          `koanf:"secure_cookie"`
}

// Load reads .env (if present) and DBCONSOLE_* variables on top of defaults.
// A missing or short key is replaced by a generated one and persisted to envFile.
func Load(envFile string) (*Config, error) {
	// Try loading .env file, but don't fail if it doesn't exist
	_ = godotenv.Load(envFile)

	k := koanf.New(".")
	if err := k.Load(confmap.Provider(map[string]interface{}{
		"port":          8080,
		"data_path":     "dbconsole.db",
		"log_dir":       "logs",
		"query_timeout": "30s",
		"secure_cookie": false,
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// DBCONSOLE_QUERY_TIMEOUT -> query_timeout
	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, envPrefix))
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if len(cfg.Key) < 32 {
		fmt.Println("DBCONSOLE_KEY not found or too short. Generating a new secure key...")
		newKey, err := generateRandomKey(32)
		if err != nil {
			return nil, fmt.Errorf("failed to generate key: %w", err)
		}

		if err := saveKeyToEnv(envFile, newKey); err != nil {
			fmt.Printf("Warning: Failed to save generated key to %s: %v\n", envFile, err)
		} else {
			fmt.Printf("New DBCONSOLE_KEY saved to %s.\n", envFile)
		}
		cfg.Key = newKey
	}

	if cfg.QueryTimeout <= 0 {
		return nil, fmt.Errorf("query timeout must be positive, got %s", cfg.QueryTimeout)
	}

	return &cfg, nil
}

func generateRandomKey(length int) (string, error) {
	b := make([]byte, length)
	_, err := rand.Read(b)
	if err != nil {
		return "", err
	}
	// base64 keeps the key printable in the env file
	return base64.StdEncoding.EncodeToString(b), nil
}

// saveKeyToEnv sets DBCONSOLE_KEY in filename, keeping every other line.
func saveKeyToEnv(filename, key string) error {
	line := envPrefix + "KEY=" + key

	content, err := os.ReadFile(filename)
	if os.IsNotExist(err) {
		return os.WriteFile(filename, []byte(line+"\n"), 0600)
	} else if err != nil {
		return err
	}

	var newLines []string
	found := false
	for _, l := range strings.Split(string(content), "\n") {
		trimmed := strings.TrimSpace(strings.ReplaceAll(l, "\x00", ""))
		if trimmed == "" {
			continue
		}
		if strings.HasPrefix(trimmed, envPrefix+"KEY=") {
			newLines = append(newLines, line)
			found = true
			continue
		}
		newLines = append(newLines, trimmed)
	}
	if !found {
		newLines = append(newLines, line)
	}

	return os.WriteFile(filename, []byte(strings.Join(newLines, "\n")+"\n"), 0600)
}
