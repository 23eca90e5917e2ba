package app

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// LoadEnvFile preloads variables from a dotenv file. Variables already set in
// the process environment win. A missing file is not an error.
func LoadEnvFile(path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil
	}
	err := godotenv.Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// EnvString reads a string env var with a default.
func EnvString(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

// EnvBool reads a bool env var with a default.
func EnvBool(key string, def bool) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(os.Getenv(key)))
	if err != nil {
		return def
	}
	return b
}

// EnvInt reads a positive int env var with a default.
func EnvInt(key string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(os.Getenv(key)))
	if err != nil || n <= 0 {
		return def
	}
	return n
}

// EnvInt32 reads a non-negative int32 env var with a default.
func EnvInt32(key string, def int32) int32 {
	n, err := strconv.ParseInt(strings.TrimSpace(os.Getenv(key)), 10, 32)
	if err != nil || n < 0 {
		return def
	}
	return int32(n)
}

// EnvDuration reads a positive duration env var with a default.
func EnvDuration(key string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(strings.TrimSpace(os.Getenv(key)))
	if err != nil || d <= 0 {
		return def
	}
	return d
}

// EnvList reads a comma-separated list, dropping empty items.
func EnvList(key string) []string {
	raw := os.Getenv(key)
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
