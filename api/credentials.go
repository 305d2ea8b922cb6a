package api

import (
	"os"
	"strings"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/charmbracelet/log"
)

// Environment holds the provider keys that may come from the process environment.
// The first non-empty field in declaration order wins.
type Environment struct {
	GeminiAPIKey    string `env:"GEMINI_API_KEY"`
	GoogleAPIKey    string `env:"GOOGLE_API_KEY"`
	APIKey          string `env:"API_KEY"`
	GenerativeAIKey string `env:"GOOGLE_GENERATIVE_AI_KEY"`
}

// Key returns the preferred key, or "".
func (e Environment) Key() string {
	for _, k := range []string{e.GeminiAPIKey, e.GoogleAPIKey, e.APIKey, e.GenerativeAIKey} {
		if k = strings.TrimSpace(k); k != "" {
			return k
		}
	}
	return ""
}

// LoadEnvironment parses env, or the process environment when env is nil.
func LoadEnvironment(vars map[string]string) (Environment, error) {
	if vars == nil {
		return env.ParseAs[Environment]()
	}
	return env.ParseAsWithOptions[Environment](env.Options{Environment: vars})
}

// KeyResolver supplies the API key for a request.
type KeyResolver interface {
	APIKey() string
}

// OverrideStore persists the user's key override.
type OverrideStore interface {
	APIKeyOverride() (string, error)
	SetAPIKeyOverride(key string) error
}

// Credentials resolves the API key on every call: the stored user override
// first, then the environment.
type Credentials struct {
	mu       sync.RWMutex
	store    OverrideStore
	override string
	loaded   bool
	lookup   func() map[string]string
}

// NewCredentials returns credentials backed by store, which may be nil.
func NewCredentials(store OverrideStore) *Credentials {
	return &Credentials{store: store}
}

// WithEnvironment replaces the process environment as the fallback source.
func (c *Credentials) WithEnvironment(lookup func() map[string]string) *Credentials {
	c.lookup = lookup
	return c
}

// APIKey implements KeyResolver.
func (c *Credentials) APIKey() string {
	if k := c.Override(); k != "" {
		return k
	}
	var vars map[string]string
	if c.lookup != nil {
		vars = c.lookup()
	}
	e, err := LoadEnvironment(vars)
	if err != nil {
		log.Warn("parse credential environment", "err", err)
		return strings.TrimSpace(os.Getenv("GEMINI_API_KEY"))
	}
	return e.Key()
}

// Override returns the user override, loading it from the store once.
func (c *Credentials) Override() string {
	c.mu.RLock()
	if c.loaded || c.store == nil {
		k := c.override
		c.mu.RUnlock()
		return k
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.loaded {
		k, err := c.store.APIKeyOverride()
		if err != nil {
			log.Warn("load api key override", "err", err)
		}
		c.override = strings.TrimSpace(k)
		c.loaded = true
	}
	return c.override
}

// SetOverride stores key as the user override. An empty key clears it.
// The next request picks the change up without a restart.
func (c *Credentials) SetOverride(key string) error {
	key = strings.TrimSpace(key)
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.store != nil {
		if err := c.store.SetAPIKeyOverride(key); err != nil {
			return err
		}
	}
	c.override = key
	c.loaded = true
	return nil
}

// Source names where the current key comes from: "override", "environment" or "".
func (c *Credentials) Source() string {
	if c.Override() != "" {
		return "override"
	}
	if c.APIKey() != "" {
		return "environment"
	}
	return ""
}

// MaskKey hides all but the last four characters of key.
func MaskKey(key string) string {
	if len(key) <= 4 {
		return strings.Repeat("*", len(key))
	}
	return strings.Repeat("*", len(key)-4) + key[len(key)-4:]
}
