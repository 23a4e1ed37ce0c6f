package farm

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// Subsets of the ERC-20 and TokenFarm interfaces used by the client.
// Full ABIs from build artifacts can be supplied with WithABIs.
const (
	ERC20ABI = `[{"type":"function","name":"allowance","inputs":[{"name":"owner","type":"address"},{"name":"spender","type":"address"}],"outputs":[{"name":"","type":"uint256"}],"stateMutability":"view"},{"type":"function","name":"approve","inputs":[{"name":"spender","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}],"stateMutability":"nonpayable"},{"type":"function","name":"balanceOf","inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"uint256"}],"stateMutability":"view"}]`

	TokenFarmABI = `[{"type":"function","name":"stakeTokens","inputs":[{"name":"_amount","type":"uint256"},{"name":"_token","type":"address"}],"outputs":[],"stateMutability":"nonpayable"},{"type":"function","name":"stakingBalance","inputs":[{"name":"","type":"address"},{"name":"","type":"address"}],"outputs":[{"name":"","type":"uint256"}],"stateMutability":"view"},{"type":"function","name":"tokenIsAllowed","inputs":[{"name":"_token","type":"address"}],"outputs":[{"name":"","type":"bool"}],"stateMutability":"view"}]`
)

const (
	methodApprove        = "approve"
	methodAllowance      = "allowance"
	methodBalanceOf      = "balanceOf"
	methodStakeTokens    = "stakeTokens"
	methodStakingBalance = "stakingBalance"
	methodTokenAllowed   = "tokenIsAllowed"
)

func mustParseABI(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic(err)
	}
	return parsed
}
