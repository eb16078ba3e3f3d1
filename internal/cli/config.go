package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// Environment variables read by DefaultConfig
const (
	envServer    = "ARENA_SERVER"
	envToken     = "ARENA_TOKEN"
	envTokenFile = "ARENA_TOKEN_FILE"
)

const (
	outputText = "text"
	outputJSON = "json"
)

// Config is what arenactl knows before it talks to a server: where the
// server is, the session token and how to print results
type Config struct {
	ServerURL string
	Token     string
	TokenFile string
	Output    string
	Verbose   bool
}

// DefaultConfig reads the environment. Flags override it afterwards.
func DefaultConfig() *Config {
	tokenFile := os.Getenv(envTokenFile)
	if tokenFile == "" {
		tokenFile = defaultTokenFile()
	}
	server := os.Getenv(envServer)
	if server == "" {
		server = "http://localhost:8080"
	}
	return &Config{
		ServerURL: server,
		Token:     os.Getenv(envToken),
		TokenFile: tokenFile,
		Output:    outputText,
	}
}

// Validate rejects an unknown output format or a server URL that is not
// plain http(s)
func (c *Config) Validate() error {
	switch c.Output {
	case outputText, outputJSON:
	default:
		return fmt.Errorf("unknown output format %q (want %s or %s)", c.Output, outputText, outputJSON)
	}

	u, err := url.Parse(c.ServerURL)
	if err != nil {
		return fmt.Errorf("invalid server URL: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid server URL %q: want http(s)://host[:port]", c.ServerURL)
	}
	c.ServerURL = strings.TrimSuffix(c.ServerURL, "/")
	return nil
}

// LoadToken fills Token from the token file unless a flag or the
// environment already set it. A missing file means logged out.
func (c *Config) LoadToken() error {
	if c.Token != "" {
		return nil
	}

	data, err := os.ReadFile(c.TokenFile)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read token file: %w", err)
	}
	c.Token = strings.TrimSpace(string(data))
	return nil
}

// SaveToken stores token for later invocations, readable only by the user
func (c *Config) SaveToken(token string) error {
	c.Token = token
	if err := os.MkdirAll(filepath.Dir(c.TokenFile), 0o700); err != nil {
		return fmt.Errorf("create token dir: %w", err)
	}
	return os.WriteFile(c.TokenFile, []byte(token), 0o600)
}

// ClearToken forgets the saved token. Clearing twice is not an error.
func (c *Config) ClearToken() error {
	c.Token = ""
	err := os.Remove(c.TokenFile)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove token file: %w", err)
	}
	return nil
}

func defaultTokenFile() string {
	dir := ".arenactl"
	if home, err := os.UserHomeDir(); err == nil {
		dir = filepath.Join(home, dir)
	}
	return filepath.Join(dir, "token")
}
