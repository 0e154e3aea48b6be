package sqlite

import "fmt"

// SQLite configuration constants
const (
	busyTimeoutMS    = 5000 // 5 seconds in milliseconds
	foreignKeysParam = "_fk=1"
)

// DefaultFileName is used when only a directory is known.
const DefaultFileName = "deployments.db"

type Config struct {
	Path string `mapstructure:"path"`
}

// DSN returns the modernc.org/sqlite connection string for the file.
// An empty path selects an in-memory database.
func (c *Config) DSN() string {
	if c.Path == "" {
		return ":memory:"
	}
	return fmt.Sprintf("file:%s?_busy_timeout=%d&%s", c.Path, busyTimeoutMS, foreignKeysParam)
}
