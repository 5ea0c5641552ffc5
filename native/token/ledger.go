package token

import (
	"errors"
	"math/big"

	"relicledger/core/types"
	"relicledger/crypto"
)

var (
	errNilState              = errors.New("token ledger: state not configured")
	errInvalidAmount         = errors.New("token ledger: amount must not be negative")
	errInsufficientBalance   = errors.New("token ledger: insufficient balance")
	errInsufficientAllowance = errors.New("token ledger: insufficient allowance")
	errNotOwner              = errors.New("token ledger: caller is not the owner")
)

// Asset selects which balance column of an account a ledger operates on.
type Asset uint8

const (
	// AssetStable is the 6-decimal stablecoin leg.
	AssetStable Asset = iota
	// AssetReward is the 18-decimal reward-token leg, mintable only by the
	// ledger owner.
	AssetReward
)

// ledgerState is the narrow persistence surface required by a ledger.
type ledgerState interface {
	GetAccount(addr crypto.Address) (*types.Account, error)
	PutAccount(addr crypto.Address, account *types.Account) error
	Allowance(asset uint8, owner, spender crypto.Address) (*big.Int, error)
	SetAllowance(asset uint8, owner, spender crypto.Address, amount *big.Int) error
	TokenSupply(asset uint8) (*big.Int, error)
	SetTokenSupply(asset uint8, supply *big.Int) error
}

// Ledger implements standard fungible-asset semantics (transfer, approval,
// owner-gated minting, open burning) over one balance column of the account
// state. It stands in for the external token contracts at the interface
// boundary the accounting engines depend on.
type Ledger struct {
	asset    Asset
	name     string
	symbol   string
	decimals uint8
	owner    crypto.Address
	state    ledgerState
}

// NewLedger constructs a ledger for the given asset column.
func NewLedger(asset Asset, name, symbol string, decimals uint8) *Ledger {
	return &Ledger{asset: asset, name: name, symbol: symbol, decimals: decimals}
}

// SetState wires the ledger to the persistence layer.
func (l *Ledger) SetState(state ledgerState) { l.state = state }

// SetOwner assigns the address allowed to mint. Deployment wiring transfers
// reward-ledger ownership to the vault module address.
func (l *Ledger) SetOwner(owner crypto.Address) { l.owner = owner }

// Owner returns the current mint authority.
func (l *Ledger) Owner() crypto.Address { return l.owner }

// TransferOwnership reassigns the mint authority. Only the current owner may
// call it.
func (l *Ledger) TransferOwnership(caller, newOwner crypto.Address) error {
	if !caller.Equal(l.owner) {
		return errNotOwner
	}
	l.owner = newOwner
	return nil
}

func (l *Ledger) Name() string    { return l.name }
func (l *Ledger) Symbol() string  { return l.symbol }
func (l *Ledger) Decimals() uint8 { return l.decimals }

// BalanceOf returns the asset balance for an address, zero for unknown
// accounts.
func (l *Ledger) BalanceOf(addr crypto.Address) (*big.Int, error) {
	if l == nil || l.state == nil {
		return nil, errNilState
	}
	acc, err := l.loadAccount(addr)
	if err != nil {
		return nil, err
	}
	return new(big.Int).Set(l.balance(acc)), nil
}

// TotalSupply returns the aggregate minted supply of the asset.
func (l *Ledger) TotalSupply() (*big.Int, error) {
	if l == nil || l.state == nil {
		return nil, errNilState
	}
	supply, err := l.state.TokenSupply(uint8(l.asset))
	if err != nil {
		return nil, err
	}
	if supply == nil {
		return big.NewInt(0), nil
	}
	return new(big.Int).Set(supply), nil
}

// Transfer moves amount from one holder to another.
func (l *Ledger) Transfer(from, to crypto.Address, amount *big.Int) error {
	if l == nil || l.state == nil {
		return errNilState
	}
	if amount == nil || amount.Sign() < 0 {
		return errInvalidAmount
	}
	fromAcc, err := l.loadAccount(from)
	if err != nil {
		return err
	}
	if l.balance(fromAcc).Cmp(amount) < 0 {
		return errInsufficientBalance
	}
	if from.Equal(to) {
		// Loading the same account twice yields two decoded copies, so the
		// credit would clobber the debit. A self-transfer is a no-op.
		return nil
	}
	toAcc, err := l.loadAccount(to)
	if err != nil {
		return err
	}
	l.setBalance(fromAcc, new(big.Int).Sub(l.balance(fromAcc), amount))
	l.setBalance(toAcc, new(big.Int).Add(l.balance(toAcc), amount))
	if err := l.state.PutAccount(from, fromAcc); err != nil {
		return err
	}
	return l.state.PutAccount(to, toAcc)
}

// Approve lets owner authorize spender for up to amount.
func (l *Ledger) Approve(owner, spender crypto.Address, amount *big.Int) error {
	if l == nil || l.state == nil {
		return errNilState
	}
	if amount == nil || amount.Sign() < 0 {
		return errInvalidAmount
	}
	return l.state.SetAllowance(uint8(l.asset), owner, spender, new(big.Int).Set(amount))
}

// Allowance returns the remaining spend authorization.
func (l *Ledger) Allowance(owner, spender crypto.Address) (*big.Int, error) {
	if l == nil || l.state == nil {
		return nil, errNilState
	}
	allowance, err := l.state.Allowance(uint8(l.asset), owner, spender)
	if err != nil {
		return nil, err
	}
	if allowance == nil {
		return big.NewInt(0), nil
	}
	return new(big.Int).Set(allowance), nil
}

// TransferFrom spends from the allowance granted by from to spender. The
// allowance is decremented before balances move.
func (l *Ledger) TransferFrom(spender, from, to crypto.Address, amount *big.Int) error {
	if l == nil || l.state == nil {
		return errNilState
	}
	if amount == nil || amount.Sign() < 0 {
		return errInvalidAmount
	}
	allowance, err := l.Allowance(from, spender)
	if err != nil {
		return err
	}
	if allowance.Cmp(amount) < 0 {
		return errInsufficientAllowance
	}
	remaining := new(big.Int).Sub(allowance, amount)
	if err := l.state.SetAllowance(uint8(l.asset), from, spender, remaining); err != nil {
		return err
	}
	return l.Transfer(from, to, amount)
}

// Mint creates new supply for a recipient. Only the ledger owner may mint.
func (l *Ledger) Mint(caller, to crypto.Address, amount *big.Int) error {
	if l == nil || l.state == nil {
		return errNilState
	}
	if !caller.Equal(l.owner) {
		return errNotOwner
	}
	if amount == nil || amount.Sign() < 0 {
		return errInvalidAmount
	}
	toAcc, err := l.loadAccount(to)
	if err != nil {
		return err
	}
	l.setBalance(toAcc, new(big.Int).Add(l.balance(toAcc), amount))
	if err := l.state.PutAccount(to, toAcc); err != nil {
		return err
	}
	supply, err := l.TotalSupply()
	if err != nil {
		return err
	}
	return l.state.SetTokenSupply(uint8(l.asset), supply.Add(supply, amount))
}

// Burn destroys amount from the holder's balance and reduces supply.
func (l *Ledger) Burn(holder crypto.Address, amount *big.Int) error {
	if l == nil || l.state == nil {
		return errNilState
	}
	if amount == nil || amount.Sign() < 0 {
		return errInvalidAmount
	}
	acc, err := l.loadAccount(holder)
	if err != nil {
		return err
	}
	if l.balance(acc).Cmp(amount) < 0 {
		return errInsufficientBalance
	}
	l.setBalance(acc, new(big.Int).Sub(l.balance(acc), amount))
	if err := l.state.PutAccount(holder, acc); err != nil {
		return err
	}
	supply, err := l.TotalSupply()
	if err != nil {
		return err
	}
	supply.Sub(supply, amount)
	if supply.Sign() < 0 {
		supply.SetInt64(0)
	}
	return l.state.SetTokenSupply(uint8(l.asset), supply)
}

func (l *Ledger) loadAccount(addr crypto.Address) (*types.Account, error) {
	acc, err := l.state.GetAccount(addr)
	if err != nil {
		return nil, err
	}
	if acc == nil {
		acc = types.NewAccount()
	}
	if acc.BalanceStable == nil {
		acc.BalanceStable = big.NewInt(0)
	}
	if acc.BalanceReward == nil {
		acc.BalanceReward = big.NewInt(0)
	}
	return acc, nil
}

func (l *Ledger) balance(acc *types.Account) *big.Int {
	if l.asset == AssetReward {
		return acc.BalanceReward
	}
	return acc.BalanceStable
}

func (l *Ledger) setBalance(acc *types.Account, amount *big.Int) {
	if l.asset == AssetReward {
		acc.BalanceReward = amount
		return
	}
	acc.BalanceStable = amount
}
