package rwa

import (
	"errors"
	"math/big"
	"time"

	"relicledger/crypto"
)

var (
	errNilState            = errors.New("rwa adapter: state not configured")
	errInvalidAmount       = errors.New("rwa adapter: amount must be positive")
	errInsufficientBalance = errors.New("rwa adapter: insufficient adapter balance")
)

var basisPoints = big.NewInt(10_000)

const secondsPerYear = 365 * 86400

// State is the persisted accounting record for the adapter: the invested
// principal plus simulated growth folded in at the last accrual.
type State struct {
	TotalAssets *big.Int `json:"totalAssets"`
	LastAccrual int64    `json:"lastAccrual"`
}

type adapterState interface {
	AdapterState() (*State, error)
	PutAdapterState(state *State) error
}

type stableLedger interface {
	Transfer(from, to crypto.Address, amount *big.Int) error
	BalanceOf(addr crypto.Address) (*big.Int, error)
}

// Adapter simulates an external real-world-asset venue: it custodies
// stablecoin deposits at its module address and reports a total-assets
// balance that grows linearly at a configured simulation rate. Withdrawals
// are capped by the stablecoin actually held, not the simulated balance.
type Adapter struct {
	moduleAddress crypto.Address
	stable        stableLedger
	growthAPRBps  uint64
	state         adapterState
	nowFn         func() time.Time
}

// NewAdapter constructs an adapter custodying funds at moduleAddr and growing
// the reported balance at growthAPRBps annually.
func NewAdapter(moduleAddr crypto.Address, growthAPRBps uint64) *Adapter {
	return &Adapter{
		moduleAddress: moduleAddr,
		growthAPRBps:  growthAPRBps,
		nowFn:         func() time.Time { return time.Now().UTC() },
	}
}

// SetState wires the adapter to the persistence layer.
func (a *Adapter) SetState(state adapterState) { a.state = state }

// SetStableLedger wires the stablecoin capability used for custody transfers.
func (a *Adapter) SetStableLedger(ledger stableLedger) { a.stable = ledger }

// SetNowFunc overrides the clock used for simulated growth. Nil restores the
// default UTC clock.
func (a *Adapter) SetNowFunc(now func() time.Time) {
	if now == nil {
		a.nowFn = func() time.Time { return time.Now().UTC() }
		return
	}
	a.nowFn = now
}

// ModuleAddress returns the custody address for the adapter.
func (a *Adapter) ModuleAddress() crypto.Address { return a.moduleAddress }

// Deposit pulls amount from the depositor into adapter custody and adds it to
// the tracked balance. Accrued simulated growth is folded in first so later
// deposits do not dilute it.
func (a *Adapter) Deposit(from crypto.Address, amount *big.Int) error {
	if a == nil || a.state == nil || a.stable == nil {
		return errNilState
	}
	if amount == nil || amount.Sign() <= 0 {
		return errInvalidAmount
	}
	state, err := a.accrue()
	if err != nil {
		return err
	}
	if err := a.stable.Transfer(from, a.moduleAddress, amount); err != nil {
		return err
	}
	state.TotalAssets = new(big.Int).Add(state.TotalAssets, amount)
	return a.state.PutAdapterState(state)
}

// Withdraw releases amount from custody to the recipient, bounded by both the
// tracked balance and the stablecoin actually held.
func (a *Adapter) Withdraw(to crypto.Address, amount *big.Int) error {
	if a == nil || a.state == nil || a.stable == nil {
		return errNilState
	}
	if amount == nil || amount.Sign() <= 0 {
		return errInvalidAmount
	}
	state, err := a.accrue()
	if err != nil {
		return err
	}
	if state.TotalAssets.Cmp(amount) < 0 {
		return errInsufficientBalance
	}
	held, err := a.stable.BalanceOf(a.moduleAddress)
	if err != nil {
		return err
	}
	if held.Cmp(amount) < 0 {
		return errInsufficientBalance
	}
	if err := a.stable.Transfer(a.moduleAddress, to, amount); err != nil {
		return err
	}
	state.TotalAssets = new(big.Int).Sub(state.TotalAssets, amount)
	return a.state.PutAdapterState(state)
}

// TotalAssets reports the tracked balance including simulated growth up to
// now. The read folds accrual into persisted state so repeated calls stay
// monotonic.
func (a *Adapter) TotalAssets() (*big.Int, error) {
	if a == nil || a.state == nil {
		return nil, errNilState
	}
	state, err := a.accrue()
	if err != nil {
		return nil, err
	}
	if err := a.state.PutAdapterState(state); err != nil {
		return nil, err
	}
	return new(big.Int).Set(state.TotalAssets), nil
}

func (a *Adapter) accrue() (*State, error) {
	state, err := a.state.AdapterState()
	if err != nil {
		return nil, err
	}
	now := a.nowFn().Unix()
	if state == nil {
		return &State{TotalAssets: big.NewInt(0), LastAccrual: now}, nil
	}
	if state.TotalAssets == nil {
		state.TotalAssets = big.NewInt(0)
	}
	if state.LastAccrual == 0 || now <= state.LastAccrual || a.growthAPRBps == 0 {
		state.LastAccrual = now
		return state, nil
	}
	elapsed := now - state.LastAccrual
	growth := new(big.Int).Mul(state.TotalAssets, new(big.Int).SetUint64(a.growthAPRBps))
	growth.Mul(growth, big.NewInt(elapsed))
	growth.Quo(growth, new(big.Int).Mul(basisPoints, big.NewInt(secondsPerYear)))
	state.TotalAssets = new(big.Int).Add(state.TotalAssets, growth)
	state.LastAccrual = now
	return state, nil
}
