// Package config loads the homosphere project file.
//
// A project file is optional. Command-line flags override whatever it sets:
//
//	name: prod
//	cidr: 10.0.0.0/16
//	region: us-east-1
//	access_key_id: ${AWS_KEY}
//	secret_access_key: ${AWS_SECRET}
//	single_nat_gateway: true
//	tags:
//	  Team: platform
//	  Owner: ${USER}
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/netip"
	"os"
	"regexp"
	"strings"

	log "github.com/cantara/bragi/sbragi"
	"gopkg.in/yaml.v3"

	"github.com/allyunion/homosphere/subnet"
)

const (
	// DefaultFile is the project file read when --config is not given.
	DefaultFile = "homosphere.yaml"
	// DefaultCIDR is the VPC block used when none is configured.
	DefaultCIDR = "10.0.0.0/16"
	// DefaultFormat is the template encoding used when none is configured.
	DefaultFormat = "json"
)

// ErrInvalidConfig is wrapped by every validation and decoding error.
var ErrInvalidConfig = errors.New("invalid config")

var stackName = regexp.MustCompile(`^[A-Za-z][-A-Za-z0-9]*$`)

// Config is the project file.
type Config struct {
	Name             string            `yaml:"name,omitempty"`
	Description      string            `yaml:"description,omitempty"`
	CIDR             string            `yaml:"cidr,omitempty"`
	Region           string            `yaml:"region,omitempty"`
	Profile          string            `yaml:"profile,omitempty"`
	AccessKeyID      string            `yaml:"access_key_id,omitempty"`
	SecretAccessKey  string            `yaml:"secret_access_key,omitempty"`
	Zones            []string          `yaml:"zones,omitempty"`
	ExportPrefix     string            `yaml:"export_prefix,omitempty"`
	SingleNatGateway bool              `yaml:"single_nat_gateway,omitempty"`
	Tags             map[string]string `yaml:"tags,omitempty"`
	Format           string            `yaml:"format,omitempty"`
	Output           string            `yaml:"output,omitempty"`
}

// Default returns the configuration used when no project file exists.
func Default() *Config {
	return &Config{
		CIDR:   DefaultCIDR,
		Format: DefaultFormat,
	}
}

// Load reads the project file at path. A missing file yields Default().
func Load(path string) (*Config, error) {
	c, err := Read(path)
	if errors.Is(err, fs.ErrNotExist) {
		log.Debug("no project file, using defaults", "path", path)
		return Default(), nil
	}
	return c, err
}

// Read reads the project file at path. Unlike Load, a missing file is an error.
func Read(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	c, err := Parse(data, environ())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	log.Debug("project file loaded", "path", path, "name", c.Name)
	return c, nil
}

// Parse decodes a project file. ${VAR} references are replaced from env
// before decoding; unknown variables become empty strings.
func Parse(data []byte, env map[string]string) (*Config, error) {
	expanded := os.Expand(string(data), func(key string) string {
		return env[key]
	})

	c := Default()
	if err := yaml.Unmarshal([]byte(expanded), c); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	c.ApplyDefaults()
	return c, nil
}

func environ() map[string]string {
	env := make(map[string]string)
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			env[k] = v
		}
	}
	return env
}

// ApplyDefaults fills fields that were set to empty values.
func (c *Config) ApplyDefaults() {
	if c.CIDR == "" {
		c.CIDR = DefaultCIDR
	}
	if c.Format == "" {
		c.Format = DefaultFormat
	}
	c.normalize()
}

// normalize lowercases the format, folds "yml" into "yaml" and trims zone
// names so the planner and the AWS lookup see the same strings.
func (c *Config) normalize() {
	c.Format = strings.ToLower(strings.TrimSpace(c.Format))
	if c.Format == "yml" {
		c.Format = "yaml"
	}
	for i, z := range c.Zones {
		c.Zones[i] = strings.TrimSpace(z)
	}
}

// Overrides holds command-line values. Zero values leave the config unchanged.
type Overrides struct {
	Name             string
	CIDR             string
	Region           string
	Profile          string
	AccessKeyID      string
	SecretAccessKey  string
	Zones            []string
	ExportPrefix     string
	SingleNatGateway *bool
	Tags             map[string]string
	Format           string
	Output           string
}

// Apply copies every set override into c. Tags are merged, with override
// values winning.
func (c *Config) Apply(o Overrides) {
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&c.Name, o.Name)
	set(&c.CIDR, o.CIDR)
	set(&c.Region, o.Region)
	set(&c.Profile, o.Profile)
	set(&c.AccessKeyID, o.AccessKeyID)
	set(&c.SecretAccessKey, o.SecretAccessKey)
	set(&c.ExportPrefix, o.ExportPrefix)
	set(&c.Format, o.Format)
	set(&c.Output, o.Output)

	if len(o.Zones) > 0 {
		c.Zones = append([]string(nil), o.Zones...)
	}
	if o.SingleNatGateway != nil {
		c.SingleNatGateway = *o.SingleNatGateway
	}
	if len(o.Tags) > 0 {
		if c.Tags == nil {
			c.Tags = make(map[string]string, len(o.Tags))
		}
		for k, v := range o.Tags {
			c.Tags[k] = v
		}
	}
	c.normalize()
}

// Validate checks the name, network, format, zones and tags.
func (c *Config) Validate() error {
	if c.Name != "" && (len(c.Name) > 128 || !stackName.MatchString(c.Name)) {
		return fmt.Errorf("%w: name %q must start with a letter and contain only letters, digits and hyphens", ErrInvalidConfig, c.Name)
	}
	if _, err := c.Network(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	switch c.Format {
	case "json", "yaml":
	default:
		return fmt.Errorf("%w: format %q must be json or yaml", ErrInvalidConfig, c.Format)
	}
	seen := make(map[string]bool, len(c.Zones))
	for _, z := range c.Zones {
		if strings.TrimSpace(z) == "" {
			return fmt.Errorf("%w: empty zone", ErrInvalidConfig)
		}
		if seen[z] {
			return fmt.Errorf("%w: zone %s listed twice", ErrInvalidConfig, z)
		}
		seen[z] = true
	}
	for k := range c.Tags {
		if k == "" || k == "Name" {
			return fmt.Errorf("%w: tag key %q is reserved", ErrInvalidConfig, k)
		}
	}
	return nil
}

// Network parses the configured CIDR block.
func (c *Config) Network() (netip.Prefix, error) {
	return subnet.ParseNetwork(c.CIDR)
}
