package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/tokenfarm/go-farm"
	"github.com/tokenfarm/go-farm/chaininfo"
	"github.com/videocoin/common/crypto"
	"golang.org/x/oauth2"
)

const (
	configPathKey = "config"
	tokenKey      = "token"
	amountKey     = "amount"

	erc20Artifact = "MockERC20"
)

var (
	cfg config
	log zerolog.Logger
)

var rootCmd = &cobra.Command{
	Use:          "farmctl",
	Short:        "stakes tokens into the token farm",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		path, err := cmd.Flags().GetString(configPathKey)
		if err != nil {
			return err
		}
		cfg, err = loadConfig(path)
		if err != nil {
			return err
		}
		log = newLogger(cfg.LogLevel, cfg.Pretty)
		if cfg.MetricsAddr != "" {
			go serveMetrics(cfg.MetricsAddr)
		}
		return nil
	},
}

var stakeCmd = &cobra.Command{
	Use:   "stake",
	Short: "approves the farm to spend tokens and stakes them",
	RunE: func(cmd *cobra.Command, args []string) error {
		amount, err := cmd.Flags().GetString(amountKey)
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
		defer cancel()

		s, err := connect(ctx, cmd)
		if err != nil {
			return err
		}
		id, err := s.client.ApproveAndStake(ctx, amount, s.token)
		if err != nil {
			return err
		}
		req, err := s.client.Wait(ctx, id)
		if err != nil {
			return fmt.Errorf("stake %s: %w", id, err)
		}
		fmt.Printf("staked %v of %s into %s\napprove: %s\nstake:   %s\n",
			req.Amount, req.Token.Hex(), s.client.Farm().Hex(), req.ApprovalHash.Hex(), req.StakeHash.Hex())
		return nil
	},
}

var balanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "prints wallet, allowance and staked balance of a token",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
		defer cancel()

		s, err := connect(ctx, cmd)
		if err != nil {
			return err
		}
		owner := s.client.Address()
		balance, err := s.client.BalanceOf(ctx, s.token, owner)
		if err != nil {
			return err
		}
		allowance, err := s.client.Allowance(ctx, s.token, owner)
		if err != nil {
			return err
		}
		staked, err := s.client.StakingBalance(ctx, s.token, owner)
		if err != nil {
			return err
		}
		allowed, err := s.client.TokenAllowed(ctx, s.token)
		if err != nil {
			return err
		}
		fmt.Printf("account:   %s\ntoken:     %s (allowed: %t)\nbalance:   %v\nallowance: %v\nstaked:    %v\n",
			owner.Hex(), s.token.Hex(), allowed, balance, allowance, staked)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String(configPathKey, "", "path to yaml config, FARM_* environment variables take precedence")
	for _, cmd := range []*cobra.Command{stakeCmd, balanceCmd} {
		cmd.Flags().String(tokenKey, "", "token address, one of dapp, weth, dai or a contract name from the deployment map")
		must(cmd.MarkFlagRequired(tokenKey))
		rootCmd.AddCommand(cmd)
	}
	stakeCmd.Flags().String(amountKey, "", "amount in token base units")
	must(stakeCmd.MarkFlagRequired(amountKey))
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}

type session struct {
	client *farm.Client
	token  common.Address
}

func connect(ctx context.Context, cmd *cobra.Command) (*session, error) {
	tokenFlag, err := cmd.Flags().GetString(tokenKey)
	if err != nil {
		return nil, err
	}
	key, err := crypto.DecryptKeyFile(cfg.Key, cfg.Password)
	if err != nil {
		return nil, err
	}
	client, err := dial(ctx)
	if err != nil {
		return nil, err
	}

	metrics := farm.NewMetrics(prometheus.DefaultRegisterer)
	opts := []farm.Option{farm.WithLogger(log), farm.WithMetrics(metrics)}
	farmAddress := cfg.Contract
	token := common.Address{}
	if common.IsHexAddress(tokenFlag) {
		token = common.HexToAddress(tokenFlag)
	}

	if cfg.ChainInfo != "" {
		info, err := chaininfo.Load(cfg.ChainInfo)
		if err != nil {
			return nil, err
		}
		chainID, err := client.ChainID(ctx)
		if err != nil {
			return nil, err
		}
		log.Info().
			Str("chain", chainID.String()).
			Str("network", info.Networks.Name(chainID)).
			Str("dir", info.Dir).
			Msg("using chain info")
		if farmAddress == (common.Address{}) {
			farmAddress, err = info.Deployments.Address(chainID, chaininfo.TokenFarm)
			if err != nil {
				return nil, err
			}
		}
		if token == (common.Address{}) {
			token, err = info.Token(chainID, tokenFlag)
			if err != nil {
				return nil, err
			}
		}
		farmABI, err := info.ABI(chaininfo.TokenFarm)
		if err != nil {
			return nil, err
		}
		erc20ABI, err := info.ABI(erc20Artifact)
		if os.IsNotExist(err) {
			erc20ABI, err = abi.JSON(strings.NewReader(farm.ERC20ABI))
		}
		if err != nil {
			return nil, err
		}
		opts = append(opts, farm.WithABIs(erc20ABI, farmABI))
	}
	if farmAddress == (common.Address{}) {
		return nil, fmt.Errorf("farm address is not configured, set FARM_CONTRACT or FARM_CHAIN_INFO")
	}
	if token == (common.Address{}) {
		return nil, fmt.Errorf("can't use %q as token address", tokenFlag)
	}
	return &session{
		client: farm.NewClient(client, farmAddress, key.PrivateKey, opts...),
		token:  token,
	}, nil
}

func dial(ctx context.Context) (*ethclient.Client, error) {
	if cfg.AccessToken == "" {
		return ethclient.DialContext(ctx, cfg.URL)
	}
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.AccessToken, TokenType: "Bearer"})
	client, err := rpc.DialHTTPWithClient(cfg.URL, oauth2.NewClient(ctx, ts))
	if err != nil {
		return nil, err
	}
	return ethclient.NewClient(client), nil
}

func serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Error().Err(err).Str("addr", addr).Msg("metrics server stopped")
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
