package types

import "math/big"

// Account captures the fungible balances tracked for a ledger participant.
// BalanceStable is denominated in 6-decimal stablecoin units, BalanceReward
// in 18-decimal reward-token units.
type Account struct {
	Nonce         uint64
	BalanceStable *big.Int
	BalanceReward *big.Int
}

// NewAccount returns an account with zeroed balances.
func NewAccount() *Account {
	return &Account{
		BalanceStable: big.NewInt(0),
		BalanceReward: big.NewInt(0),
	}
}
