// Package chaininfo reads the artifacts generated by contract deployments:
// the deployment map, the chain id to network name mapping, the brownie
// network settings with external token addresses and contract build
// artifacts with ABIs.
package chaininfo

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/ioutil"
	"math/big"
	"os"
	"path/filepath"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

const (
	TokenFarm = "TokenFarm"
	DappToken = "DappToken"

	// DefaultNetwork is used for chains missing from the network mapping.
	DefaultNetwork = "dev"
)

// Names of the tokens the farm front end offers for staking.
const (
	DAPP = "DAPP"
	WETH = "WETH"
	DAI  = "DAI"
)

// tokenSettings maps supported token names to brownie network settings.
var tokenSettings = map[string]string{
	WETH: "weth_token",
	DAI:  "fau_token",
}

var ErrUnknownDeployment = errors.New("unknown deployment")

// Deployments maps chain id to contract name to deployed addresses, newest first.
type Deployments map[string]map[string][]common.Address

// LoadDeployments reads deployments/map.json.
func LoadDeployments(path string) (Deployments, error) {
	var d Deployments
	if err := readJSON(path, &d); err != nil {
		return nil, err
	}
	return d, nil
}

// Address returns the latest deployment of contract on chainID.
func (d Deployments) Address(chainID *big.Int, contract string) (common.Address, error) {
	addresses := d[chainID.String()][contract]
	if len(addresses) == 0 {
		return common.Address{}, fmt.Errorf("%w: %s on chain %v", ErrUnknownDeployment, contract, chainID)
	}
	return addresses[0], nil
}

// Networks maps chain id to network name.
type Networks map[string]string

// LoadNetworks reads helper-config.json.
func LoadNetworks(path string) (Networks, error) {
	var n Networks
	if err := readJSON(path, &n); err != nil {
		return nil, err
	}
	return n, nil
}

func (n Networks) Name(chainID *big.Int) string {
	if chainID == nil {
		return DefaultNetwork
	}
	if name, ok := n[chainID.String()]; ok {
		return name
	}
	return DefaultNetwork
}

// BrownieConfig holds the per network settings of brownie-config.json.
// Only string values are kept, other settings are ignored.
type BrownieConfig struct {
	Networks map[string]map[string]interface{} `json:"networks"`
}

func LoadBrownieConfig(path string) (*BrownieConfig, error) {
	b := &BrownieConfig{}
	if err := readJSON(path, b); err != nil {
		return nil, err
	}
	return b, nil
}

// Tokens returns the addresses of the *_token settings of network keyed by
// setting name, e.g. "weth_token".
func (b *BrownieConfig) Tokens(network string) map[string]common.Address {
	tokens := map[string]common.Address{}
	if b == nil {
		return tokens
	}
	for key, value := range b.Networks[network] {
		raw, ok := value.(string)
		if !ok || !strings.HasSuffix(key, "_token") || !common.IsHexAddress(raw) {
			continue
		}
		tokens[key] = common.HexToAddress(raw)
	}
	return tokens
}

// LoadABI reads the abi field of a contract build artifact.
func LoadABI(path string) (abi.ABI, error) {
	var artifact struct {
		ABI json.RawMessage `json:"abi"`
	}
	if err := readJSON(path, &artifact); err != nil {
		return abi.ABI{}, err
	}
	if len(artifact.ABI) == 0 {
		return abi.ABI{}, fmt.Errorf("%s: no abi", path)
	}
	parsed, err := abi.JSON(bytes.NewReader(artifact.ABI))
	if err != nil {
		return abi.ABI{}, fmt.Errorf("%s: %w", path, err)
	}
	return parsed, nil
}

// Info is the chain-info directory as produced by a deployment:
//
//	<dir>/deployments/map.json
//	<dir>/contracts/<Name>.json
//
// helper-config.json and brownie-config.json are optional and looked up in
// dir, then in its parent.
type Info struct {
	Dir         string
	Deployments Deployments
	Networks    Networks
	Brownie     *BrownieConfig
}

func Load(dir string) (*Info, error) {
	d, err := LoadDeployments(filepath.Join(dir, "deployments", "map.json"))
	if err != nil {
		return nil, err
	}
	info := &Info{Dir: dir, Deployments: d, Networks: Networks{}, Brownie: &BrownieConfig{}}
	if err := loadOptional(dir, "helper-config.json", &info.Networks); err != nil {
		return nil, err
	}
	if err := loadOptional(dir, "brownie-config.json", info.Brownie); err != nil {
		return nil, err
	}
	return info, nil
}

// SupportedTokens returns the stakeable tokens of chainID: DAPP from the
// deployment map, WETH and DAI from the brownie settings of the chain's
// network. Tokens that are not configured are left out.
func (i *Info) SupportedTokens(chainID *big.Int) map[string]common.Address {
	tokens := map[string]common.Address{}
	if dapp, err := i.Deployments.Address(chainID, DappToken); err == nil {
		tokens[DAPP] = dapp
	}
	configured := i.Brownie.Tokens(i.Networks.Name(chainID))
	for name, setting := range tokenSettings {
		if address, ok := configured[setting]; ok {
			tokens[name] = address
		}
	}
	return tokens
}

// Token resolves name to a token address on chainID. Supported token names
// are matched case-insensitively, "fau" is accepted for DAI. Any other name
// is looked up in the deployment map.
func (i *Info) Token(chainID *big.Int, name string) (common.Address, error) {
	key := strings.ToUpper(name)
	if key == "FAU" {
		key = DAI
	}
	if address, ok := i.SupportedTokens(chainID)[key]; ok {
		return address, nil
	}
	return i.Deployments.Address(chainID, name)
}

// ABI loads the build artifact of contract.
func (i *Info) ABI(contract string) (abi.ABI, error) {
	return LoadABI(filepath.Join(i.Dir, "contracts", contract+".json"))
}

func loadOptional(dir, name string, v interface{}) error {
	for _, path := range []string{
		filepath.Join(dir, name),
		filepath.Join(filepath.Dir(dir), name),
	} {
		err := readJSON(path, v)
		if os.IsNotExist(err) {
			continue
		}
		return err
	}
	return nil
}

func readJSON(path string, v interface{}) error {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}
