package config

import (
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/cirruslabs/catcache/internal/origin/remote"
	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Host         string  `yaml:"host"`
	Port         int     `yaml:"port"`
	Cache        Cache   `yaml:"cache"`
	Origin       Origin  `yaml:"origin"`
	SingleFlight bool    `yaml:"single-flight"`
	Auth         Auth    `yaml:"auth"`
	Metrics      Metrics `yaml:"metrics"`
}

type Cache struct {
	Dir string `yaml:"dir"`
	S3  *S3    `yaml:"s3"`
}

type S3 struct {
	Bucket string `yaml:"bucket"`
	Prefix string `yaml:"prefix"`
}

type Origin struct {
	URL      string        `yaml:"url"`
	Timeout  time.Duration `yaml:"timeout"`
	MaxSize  string        `yaml:"max-size"`
	Disabled bool          `yaml:"disabled"`
}

type Auth struct {
	Secret string `yaml:"secret"`
}

type Metrics struct {
	Addr string `yaml:"addr"`
}

// Port is required, so the default is a value that can't be configured by accident.
const unsetPort = -1

func Default() *Config {
	return &Config{
		Port: unsetPort,
		Origin: Origin{
			URL:     remote.DefaultURL,
			Timeout: remote.DefaultTimeout,
			MaxSize: humanize.Bytes(remote.DefaultMaxBytes),
		},
	}
}

// Parse decodes the YAML configuration on top of the defaults.
func Parse(r io.Reader) (*Config, error) {
	config := Default()

	if err := yaml.NewDecoder(r).Decode(config); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}

	return config, nil
}

// ParseFile reads the configuration file at path,
// an empty path results in the defaults.
func ParseFile(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}

	configFile, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file at path %s: %w", path, err)
	}
	defer configFile.Close()

	config, err := Parse(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to parse configuration file at path %s: %w", path, err)
	}

	return config, nil
}

func (config *Config) Validate() error {
	if config.Host == "" {
		return errors.New("host (-h or --host) needs to be specified")
	}

	if config.Port == unsetPort {
		return errors.New("port (-p or --port) needs to be specified, use 0 for a random port")
	}

	if config.Port < 0 || config.Port > 65535 {
		return fmt.Errorf("port %d is out of range", config.Port)
	}

	if config.Cache.Dir == "" && config.Cache.S3 == nil {
		return errors.New("cache directory (-c or --cache) or an S3 bucket needs to be specified")
	}

	if config.Cache.Dir != "" && config.Cache.S3 != nil {
		return errors.New("cache directory and S3 bucket are mutually exclusive")
	}

	if config.Cache.S3 != nil && config.Cache.S3.Bucket == "" {
		return errors.New("S3 bucket name cannot be empty")
	}

	if !config.Origin.Disabled {
		originURL, err := url.Parse(config.Origin.URL)
		if err != nil {
			return fmt.Errorf("failed to parse origin URL %q: %w", config.Origin.URL, err)
		}

		if originURL.Scheme != "http" && originURL.Scheme != "https" {
			return fmt.Errorf("origin URL %q should use either http or https scheme", config.Origin.URL)
		}

		if config.Origin.Timeout < 0 {
			return fmt.Errorf("origin timeout %s cannot be negative", config.Origin.Timeout)
		}

		if _, err := config.MaxSizeBytes(); err != nil {
			return err
		}
	}

	return nil
}

func (config *Config) Addr() string {
	return net.JoinHostPort(config.Host, strconv.Itoa(config.Port))
}

func (config *Config) MaxSizeBytes() (uint64, error) {
	maxSizeBytes, err := humanize.ParseBytes(config.Origin.MaxSize)
	if err != nil {
		return 0, fmt.Errorf("failed to parse origin max size value %q: %w", config.Origin.MaxSize, err)
	}

	if maxSizeBytes == 0 {
		return 0, errors.New("origin max size cannot be zero")
	}

	return maxSizeBytes, nil
}
