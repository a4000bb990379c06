package config

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/e9kdbg/e9kdbg/internal/curated"
	"github.com/e9kdbg/e9kdbg/internal/paths"
)

// componentPrefix is the key prefix owning per-component persistence,
// "comp.<id>.<k>=<v>".
const componentPrefix = "comp."

// Config is the `key=value` config file. Keys this program doesn't
// recognize are kept around unmodified so Save never drops a component's
// setting this build doesn't know about.
type Config struct {
	values map[string]string
	order  []string
}

// New returns an empty Config.
func New() *Config {
	return &Config{values: make(map[string]string)}
}

// Load reads path's `key=value` lines into a Config. A missing file yields
// an empty Config rather than an error, matching a first-run debugger with
// no prior preferences.
func Load(path string) (*Config, error) {
	c := New()
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return c, nil
		}
		return nil, curated.Errorf(curated.ConfigError, err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		i := strings.IndexByte(line, '=')
		if i < 0 {
			continue
		}
		key := strings.TrimSpace(line[:i])
		value := strings.TrimSpace(line[i+1:])
		c.setRaw(key, value)
	}
	if err := sc.Err(); err != nil {
		return nil, curated.Errorf(curated.ConfigError, err)
	}
	return c, nil
}

// LoadDefault loads from the platform config path (internal/paths).
func LoadDefault() (*Config, error) {
	p, err := paths.ConfigFilePath()
	if err != nil {
		return nil, curated.Errorf(curated.ConfigError, err)
	}
	return Load(p)
}

func (c *Config) setRaw(key, value string) {
	if _, ok := c.values[key]; !ok {
		c.order = append(c.order, key)
	}
	c.values[key] = value
}

// Get returns key's value and whether it was present.
func (c *Config) Get(key string) (string, bool) {
	v, ok := c.values[key]
	return v, ok
}

// Set assigns key=value, preserving first-seen key order on Save.
func (c *Config) Set(key, value string) {
	c.setRaw(key, value)
}

// Component returns the value of comp.<id>.<key>, if present.
func (c *Config) Component(id, key string) (string, bool) {
	return c.Get(componentPrefix + id + "." + key)
}

// SetComponent assigns comp.<id>.<key> = value.
func (c *Config) SetComponent(id, key, value string) {
	c.Set(componentPrefix+id+"."+key, value)
}

// Save writes every key=value pair to path, in first-seen order.
func (c *Config) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return curated.Errorf(curated.ConfigError, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for _, k := range c.order {
		if _, err := fmt.Fprintf(w, "%s=%s\n", k, c.values[k]); err != nil {
			return curated.Errorf(curated.ConfigError, err)
		}
	}
	return w.Flush()
}

// SaveDefault saves to the platform config path.
func (c *Config) SaveDefault() error {
	p, err := paths.ConfigFilePath()
	if err != nil {
		return curated.Errorf(curated.ConfigError, err)
	}
	return c.Save(p)
}
