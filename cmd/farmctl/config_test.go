package main

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

const configYAML = `
url: http://node:8545
key: /keys/farm.json
chain_info: /app/chain-info
contract: "0x1111111111111111111111111111111111111111"
timeout: 30s
log_level: debug
pretty: true
`

func writeConfig(t *testing.T, data string) string {
	dir, err := ioutil.TempDir("", "farmctl-")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, ioutil.WriteFile(path, []byte(data), 0o644))
	return path
}

func setenv(t *testing.T, key, value string) {
	require.NoError(t, os.Setenv(key, value))
	t.Cleanup(func() { os.Unsetenv(key) })
}

func TestConfigDefaults(t *testing.T) {
	c, err := loadConfig("")
	require.NoError(t, err)
	require.Equal(t, defaultConfig(), c)
	require.Equal(t, "http://127.0.0.1:8545", c.URL)
	require.Equal(t, 10*time.Minute, c.Timeout)
	require.Equal(t, "info", c.LogLevel)
	require.Equal(t, common.Address{}, c.Contract)
}

func TestConfigFromYAML(t *testing.T) {
	c, err := loadConfig(writeConfig(t, configYAML))
	require.NoError(t, err)

	require.Equal(t, "http://node:8545", c.URL)
	require.Equal(t, "/keys/farm.json", c.Key)
	require.Equal(t, "/app/chain-info", c.ChainInfo)
	require.Equal(t, common.HexToAddress("0x1111111111111111111111111111111111111111"), c.Contract)
	require.Equal(t, 30*time.Second, c.Timeout)
	require.Equal(t, "debug", c.LogLevel)
	require.True(t, c.Pretty)
	require.Empty(t, c.MetricsAddr)
}

func TestConfigPartialYAMLKeepsDefaults(t *testing.T) {
	c, err := loadConfig(writeConfig(t, "key: /keys/farm.json\n"))
	require.NoError(t, err)
	require.Equal(t, "/keys/farm.json", c.Key)
	require.Equal(t, "http://127.0.0.1:8545", c.URL)
	require.Equal(t, 10*time.Minute, c.Timeout)
}

func TestConfigEnvOverridesYAML(t *testing.T) {
	setenv(t, "FARM_URL", "http://env:8545")
	setenv(t, "FARM_TIMEOUT", "2m")
	setenv(t, "FARM_CONTRACT", "0x2222222222222222222222222222222222222222")
	setenv(t, "FARM_CHAIN_INFO", "/env/chain-info")
	setenv(t, "FARM_METRICS_ADDR", ":9090")

	c, err := loadConfig(writeConfig(t, configYAML))
	require.NoError(t, err)

	require.Equal(t, "http://env:8545", c.URL)
	require.Equal(t, 2*time.Minute, c.Timeout)
	require.Equal(t, common.HexToAddress("0x2222222222222222222222222222222222222222"), c.Contract)
	require.Equal(t, "/env/chain-info", c.ChainInfo)
	require.Equal(t, ":9090", c.MetricsAddr)
	// not set in the environment
	require.Equal(t, "/keys/farm.json", c.Key)
	require.Equal(t, "debug", c.LogLevel)
}

func TestConfigErrors(t *testing.T) {
	_, err := loadConfig(filepath.Join(os.TempDir(), "farmctl-missing.yaml"))
	require.True(t, os.IsNotExist(err))

	_, err = loadConfig(writeConfig(t, "timeout: soon\n"))
	require.Error(t, err)

	setenv(t, "FARM_TIMEOUT", "soon")
	_, err = loadConfig("")
	require.Error(t, err)
}
