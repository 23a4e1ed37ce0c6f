package main

import (
	"io/ioutil"
	"os"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

const envPrefix = "farm"

type config struct {
	URL         string `yaml:"url"`
	AccessToken string `yaml:"access_token" split_words:"true"`

	Key      string `yaml:"key"`
	Password string `yaml:"password"`

	// ChainInfo is the directory with deployments/map.json and contracts/.
	ChainInfo string `yaml:"chain_info" split_words:"true"`
	// Contract overrides the farm address from the deployment map.
	Contract common.Address `yaml:"contract"`

	Timeout     time.Duration `yaml:"timeout"`
	LogLevel    string        `yaml:"log_level" split_words:"true"`
	Pretty      bool          `yaml:"pretty"`
	MetricsAddr string        `yaml:"metrics_addr" split_words:"true"`
}

func defaultConfig() config {
	return config{
		URL:      "http://127.0.0.1:8545",
		Timeout:  10 * time.Minute,
		LogLevel: "info",
	}
}

// loadConfig reads the optional yaml file at path, then applies FARM_*
// environment variables on top of it.
func loadConfig(path string) (config, error) {
	c := defaultConfig()
	if path != "" {
		data, err := ioutil.ReadFile(path)
		if err != nil {
			return c, err
		}
		if err := yaml.Unmarshal(data, &c); err != nil {
			return c, err
		}
	}
	if err := envconfig.Process(envPrefix, &c); err != nil {
		return c, err
	}
	return c, nil
}

func newLogger(level string, pretty bool) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	var log zerolog.Logger
	if pretty {
		log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05.000"})
	} else {
		log = zerolog.New(os.Stderr)
	}
	return log.Level(lvl).With().Timestamp().Logger()
}
