package chaininfo

import (
	"errors"
	"io/ioutil"
	"math/big"
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

const (
	mapJSON = `{
  "42": {
    "TokenFarm": ["0x1111111111111111111111111111111111111111", "0x2222222222222222222222222222222222222222"],
    "DappToken": ["0x3333333333333333333333333333333333333333"]
  }
}`
	helperJSON  = `{"42": "kovan", "4": "rinkeby"}`
	farmJSON    = `{"contractName": "TokenFarm", "abi": [{"type":"function","name":"stakeTokens","inputs":[{"name":"_amount","type":"uint256"},{"name":"_token","type":"address"}],"outputs":[],"stateMutability":"nonpayable"}]}`
	brownieJSON = `{
  "dependencies": ["OpenZeppelin/openzeppelin-contracts@4.2.0"],
  "networks": {
    "development": {"verify": false},
    "kovan": {
      "verify": true,
      "weth_token": "0x4444444444444444444444444444444444444444",
      "fau_token": "0x5555555555555555555555555555555555555555",
      "dai_usd_price_feed": "0x6666666666666666666666666666666666666666"
    },
    "rinkeby": {"weth_token": "not an address"}
  }
}`
)

// writeChainInfo lays out a front end source directory with chain-info in
// it and returns the chain-info path. brownie-config.json is written next to
// chain-info.
func writeChainInfo(t *testing.T) string {
	root, err := ioutil.TempDir("", "front-end-")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(root) })
	require.NoError(t, ioutil.WriteFile(filepath.Join(root, "brownie-config.json"), []byte(brownieJSON), 0o644))

	dir := filepath.Join(root, "chain-info")

	require.NoError(t, os.MkdirAll(filepath.Join(dir, "deployments"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "contracts"), 0o755))
	require.NoError(t, ioutil.WriteFile(filepath.Join(dir, "deployments", "map.json"), []byte(mapJSON), 0o644))
	require.NoError(t, ioutil.WriteFile(filepath.Join(dir, "contracts", "TokenFarm.json"), []byte(farmJSON), 0o644))
	require.NoError(t, ioutil.WriteFile(filepath.Join(dir, "contracts", "Empty.json"), []byte(`{}`), 0o644))
	require.NoError(t, ioutil.WriteFile(filepath.Join(dir, "helper-config.json"), []byte(helperJSON), 0o644))
	return dir
}

func TestDeploymentsLatestFirst(t *testing.T) {
	info, err := Load(writeChainInfo(t))
	require.NoError(t, err)

	farm, err := info.Deployments.Address(big.NewInt(42), TokenFarm)
	require.NoError(t, err)
	require.Equal(t, common.HexToAddress("0x1111111111111111111111111111111111111111"), farm)

	token, err := info.Deployments.Address(big.NewInt(42), DappToken)
	require.NoError(t, err)
	require.Equal(t, common.HexToAddress("0x3333333333333333333333333333333333333333"), token)
}

func TestUnknownDeployment(t *testing.T) {
	info, err := Load(writeChainInfo(t))
	require.NoError(t, err)

	_, err = info.Deployments.Address(big.NewInt(1), TokenFarm)
	require.True(t, errors.Is(err, ErrUnknownDeployment))

	_, err = info.Deployments.Address(big.NewInt(42), "Missing")
	require.True(t, errors.Is(err, ErrUnknownDeployment))
}

func TestNetworkNames(t *testing.T) {
	dir := writeChainInfo(t)
	networks, err := LoadNetworks(filepath.Join(dir, "helper-config.json"))
	require.NoError(t, err)

	require.Equal(t, "kovan", networks.Name(big.NewInt(42)))
	require.Equal(t, "rinkeby", networks.Name(big.NewInt(4)))
	require.Equal(t, DefaultNetwork, networks.Name(big.NewInt(1337)))
	require.Equal(t, DefaultNetwork, networks.Name(nil))

	info, err := Load(dir)
	require.NoError(t, err)
	require.Equal(t, "kovan", info.Networks.Name(big.NewInt(42)))
}

func TestNetworksOptional(t *testing.T) {
	dir := writeChainInfo(t)
	require.NoError(t, os.Remove(filepath.Join(dir, "helper-config.json")))

	info, err := Load(dir)
	require.NoError(t, err)
	require.Equal(t, DefaultNetwork, info.Networks.Name(big.NewInt(42)))
}

func TestLoadABI(t *testing.T) {
	info, err := Load(writeChainInfo(t))
	require.NoError(t, err)

	parsed, err := info.ABI(TokenFarm)
	require.NoError(t, err)
	method, ok := parsed.Methods["stakeTokens"]
	require.True(t, ok)
	require.Len(t, method.Inputs, 2)

	_, err = info.ABI("Empty")
	require.Error(t, err)

	_, err = info.ABI("Missing")
	require.True(t, os.IsNotExist(err))
}

func TestBrownieTokens(t *testing.T) {
	dir := writeChainInfo(t)
	config, err := LoadBrownieConfig(filepath.Join(filepath.Dir(dir), "brownie-config.json"))
	require.NoError(t, err)

	require.Equal(t, map[string]common.Address{
		"weth_token": common.HexToAddress("0x4444444444444444444444444444444444444444"),
		"fau_token":  common.HexToAddress("0x5555555555555555555555555555555555555555"),
	}, config.Tokens("kovan"))
	require.Empty(t, config.Tokens("rinkeby"))
	require.Empty(t, config.Tokens(DefaultNetwork))

	var missing *BrownieConfig
	require.Empty(t, missing.Tokens("kovan"))
}

func TestSupportedTokens(t *testing.T) {
	info, err := Load(writeChainInfo(t))
	require.NoError(t, err)

	require.Equal(t, map[string]common.Address{
		DAPP: common.HexToAddress("0x3333333333333333333333333333333333333333"),
		WETH: common.HexToAddress("0x4444444444444444444444444444444444444444"),
		DAI:  common.HexToAddress("0x5555555555555555555555555555555555555555"),
	}, info.SupportedTokens(big.NewInt(42)))
	require.Empty(t, info.SupportedTokens(big.NewInt(4)))
}

func TestTokenByName(t *testing.T) {
	info, err := Load(writeChainInfo(t))
	require.NoError(t, err)
	kovan := big.NewInt(42)

	for _, tc := range []struct {
		name    string
		address string
	}{
		{"weth", "0x4444444444444444444444444444444444444444"},
		{"WETH", "0x4444444444444444444444444444444444444444"},
		{"dai", "0x5555555555555555555555555555555555555555"},
		{"fau", "0x5555555555555555555555555555555555555555"},
		{"dapp", "0x3333333333333333333333333333333333333333"},
		{DappToken, "0x3333333333333333333333333333333333333333"},
	} {
		address, err := info.Token(kovan, tc.name)
		require.NoError(t, err, tc.name)
		require.Equal(t, common.HexToAddress(tc.address), address, tc.name)
	}

	_, err = info.Token(big.NewInt(4), "weth")
	require.True(t, errors.Is(err, ErrUnknownDeployment))
	_, err = info.Token(kovan, "link")
	require.True(t, errors.Is(err, ErrUnknownDeployment))
}

func TestBrownieConfigOptional(t *testing.T) {
	dir := writeChainInfo(t)
	require.NoError(t, os.Remove(filepath.Join(filepath.Dir(dir), "brownie-config.json")))

	info, err := Load(dir)
	require.NoError(t, err)
	require.Equal(t, map[string]common.Address{
		DAPP: common.HexToAddress("0x3333333333333333333333333333333333333333"),
	}, info.SupportedTokens(big.NewInt(42)))
}
