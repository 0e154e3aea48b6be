package postgresql

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/loykin/contract-deployer/internal/util"
)

const (
	defaultPort    = 5432
	defaultSSLMode = "disable"
)

type Config struct {
	DSN      string `mapstructure:"dsn"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

// ConnString prefers an explicit DSN; otherwise it builds one from the
// components when a host is provided.
func (p *Config) ConnString() (string, error) {
	if dsn, ok := util.TrimEmptyCheck(p.DSN); ok {
		return dsn, nil
	}
	host, ok := util.TrimEmptyCheck(p.Host)
	if !ok {
		return "", fmt.Errorf("postgresql store requires dsn or host")
	}
	port := p.Port
	if port == 0 {
		port = defaultPort
	}
	u := url.URL{
		Scheme:   "postgres",
		Host:     fmt.Sprintf("%s:%d", host, port),
		Path:     "/" + strings.TrimSpace(p.DBName),
		RawQuery: "sslmode=" + util.TrimWithDefault(p.SSLMode, defaultSSLMode),
	}
	if user, ok := util.TrimEmptyCheck(p.User); ok {
		u.User = url.UserPassword(user, p.Password)
	}
	return u.String(), nil
}
