package insurance

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/google/uuid"

	"relicledger/core/events"
	"relicledger/crypto"
)

var (
	errNilState            = errors.New("insurance: state not configured")
	errNilLedger           = errors.New("insurance: stable ledger not configured")
	errNotOwner            = errors.New("insurance: caller is not the pool owner")
	errInvalidAmount       = errors.New("insurance: amount must be positive")
	errBelowMinStake       = errors.New("insurance: stake below minimum")
	errNoStake             = errors.New("insurance: no stake")
	errNoRewards           = errors.New("insurance: no rewards")
	errInsufficientStake   = errors.New("insurance: unstake exceeds staked principal")
	errCoverageExceeded    = errors.New("insurance: claim exceeds max coverage")
	errCoverageRatioBounds = errors.New("insurance: coverage ratio above cap")
)

var basisPoints = big.NewInt(10_000)

// poolState is the persistence surface the engine depends on.
type poolState interface {
	InsuranceStaker(addr crypto.Address) (*Staker, error)
	PutInsuranceStaker(addr crypto.Address, staker *Staker) error
	InsurancePool() (*Pool, error)
	PutInsurancePool(*Pool) error
}

// stableLedger is the slice of the stable-asset ledger the pool needs: it
// moves bonded principal, reward payouts, and claim payouts between the
// module account and participants. Stakes are pulled through the allowance
// the staker granted to the pool module address.
type stableLedger interface {
	Transfer(from, to crypto.Address, amount *big.Int) error
	TransferFrom(spender, from, to crypto.Address, amount *big.Int) error
	BalanceOf(addr crypto.Address) (*big.Int, error)
}

// Engine implements the share-based insurance pool: stablecoin stakes earn
// block-accrued rewards while the bonded capital backs operator-paid claims
// up to a governed coverage ratio.
type Engine struct {
	state         poolState
	stable        stableLedger
	owner         crypto.Address
	moduleAddress crypto.Address
	emitter       events.Emitter
	blockHeight   uint64
}

// NewEngine constructs a pool engine. moduleAddress is the account that
// custodies bonded capital on the stable ledger.
func NewEngine(owner, moduleAddress crypto.Address) *Engine {
	return &Engine{
		owner:         owner,
		moduleAddress: moduleAddress,
		emitter:       events.NoopEmitter{},
	}
}

// SetState wires the persistence backend.
func (e *Engine) SetState(state poolState) { e.state = state }

// SetStableLedger wires the stable-asset ledger.
func (e *Engine) SetStableLedger(ledger stableLedger) { e.stable = ledger }

// SetEmitter configures the event sink; a nil emitter resets to the no-op sink.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetBlockHeight updates the block counter rewards accrue against.
func (e *Engine) SetBlockHeight(height uint64) { e.blockHeight = height }

// BlockHeight returns the current injected height.
func (e *Engine) BlockHeight() uint64 { return e.blockHeight }

// Owner returns the governance address.
func (e *Engine) Owner() crypto.Address { return e.owner }

// ModuleAddress returns the pool's custody account.
func (e *Engine) ModuleAddress() crypto.Address { return e.moduleAddress }

// TransferOwnership hands governance to a new address.
func (e *Engine) TransferOwnership(caller, next crypto.Address) error {
	if !caller.Equal(e.owner) {
		return errNotOwner
	}
	e.owner = next
	return nil
}

func (e *Engine) ready() error {
	if e.state == nil {
		return errNilState
	}
	if e.stable == nil {
		return errNilLedger
	}
	return nil
}

func (e *Engine) loadPool() (*Pool, error) {
	pool, err := e.state.InsurancePool()
	if err != nil {
		return nil, err
	}
	if pool == nil {
		pool = &Pool{
			TotalStaked:      big.NewInt(0),
			TotalShares:      big.NewInt(0),
			TotalClaimed:     big.NewInt(0),
			CoverageRatioBps: DefaultCoverageRatioBps,
		}
	}
	if pool.TotalStaked == nil {
		pool.TotalStaked = big.NewInt(0)
	}
	if pool.TotalShares == nil {
		pool.TotalShares = big.NewInt(0)
	}
	if pool.TotalClaimed == nil {
		pool.TotalClaimed = big.NewInt(0)
	}
	return pool, nil
}

func (e *Engine) loadStaker(addr crypto.Address) (*Staker, error) {
	staker, err := e.state.InsuranceStaker(addr)
	if err != nil {
		return nil, err
	}
	if staker == nil {
		staker = &Staker{Principal: big.NewInt(0), Shares: big.NewInt(0)}
	}
	if staker.Principal == nil {
		staker.Principal = big.NewInt(0)
	}
	if staker.Shares == nil {
		staker.Shares = big.NewInt(0)
	}
	return staker, nil
}

// pending computes the block-accrued reward owed to staker at the current
// height. Division truncates, matching the stored six-decimal asset.
func (e *Engine) pending(staker *Staker) *big.Int {
	if staker.Principal.Sign() <= 0 || e.blockHeight <= staker.RewardBlock {
		return big.NewInt(0)
	}
	elapsed := new(big.Int).SetUint64(e.blockHeight - staker.RewardBlock)
	reward := new(big.Int).Mul(staker.Principal, new(big.Int).SetUint64(RewardRateBps))
	reward.Mul(reward, elapsed)
	denom := new(big.Int).Mul(new(big.Int).SetUint64(BlocksPerYear), basisPoints)
	return reward.Quo(reward, denom)
}

// settle pays out any pending reward to addr and advances the staker's reward
// block. The caller persists the staker afterwards.
func (e *Engine) settle(addr crypto.Address, staker *Staker) error {
	reward := e.pending(staker)
	staker.RewardBlock = e.blockHeight
	if reward.Sign() <= 0 {
		return nil
	}
	if err := e.stable.Transfer(e.moduleAddress, addr, reward); err != nil {
		return fmt.Errorf("insurance: settle rewards: %w", err)
	}
	e.emitter.Emit(events.InsuranceRewardsClaimed{User: addrBytes(addr), Amount: reward})
	return nil
}

// Stake pulls amount of stable asset through the caller's allowance and
// bonds it into the pool, issuing shares 1:1 with principal. Restaking
// settles the pending reward before the new principal starts accruing.
func (e *Engine) Stake(caller crypto.Address, amount *big.Int) error {
	if err := e.ready(); err != nil {
		return err
	}
	if amount == nil || amount.Sign() <= 0 {
		return errInvalidAmount
	}
	if amount.Cmp(MinStake) < 0 {
		return errBelowMinStake
	}
	staker, err := e.loadStaker(caller)
	if err != nil {
		return err
	}
	pool, err := e.loadPool()
	if err != nil {
		return err
	}
	if err := e.settle(caller, staker); err != nil {
		return err
	}
	if err := e.stable.TransferFrom(e.moduleAddress, caller, e.moduleAddress, amount); err != nil {
		return fmt.Errorf("insurance: bond principal: %w", err)
	}
	staker.Principal = new(big.Int).Add(staker.Principal, amount)
	staker.Shares = new(big.Int).Add(staker.Shares, amount)
	pool.TotalStaked = new(big.Int).Add(pool.TotalStaked, amount)
	pool.TotalShares = new(big.Int).Add(pool.TotalShares, amount)
	if err := e.state.PutInsuranceStaker(caller, staker); err != nil {
		return err
	}
	if err := e.state.PutInsurancePool(pool); err != nil {
		return err
	}
	e.emitter.Emit(events.InsuranceStaked{User: addrBytes(caller), Amount: amount, Shares: amount})
	return nil
}

// Unstake releases amount of bonded principal back to the caller after
// settling the pending reward.
func (e *Engine) Unstake(caller crypto.Address, amount *big.Int) error {
	if err := e.ready(); err != nil {
		return err
	}
	if amount == nil || amount.Sign() <= 0 {
		return errInvalidAmount
	}
	staker, err := e.loadStaker(caller)
	if err != nil {
		return err
	}
	if staker.Principal.Sign() == 0 {
		return errNoStake
	}
	if amount.Cmp(staker.Principal) > 0 {
		return errInsufficientStake
	}
	pool, err := e.loadPool()
	if err != nil {
		return err
	}
	if err := e.settle(caller, staker); err != nil {
		return err
	}
	if err := e.stable.Transfer(e.moduleAddress, caller, amount); err != nil {
		return fmt.Errorf("insurance: release principal: %w", err)
	}
	staker.Principal = new(big.Int).Sub(staker.Principal, amount)
	staker.Shares = new(big.Int).Sub(staker.Shares, amount)
	pool.TotalStaked = new(big.Int).Sub(pool.TotalStaked, amount)
	pool.TotalShares = new(big.Int).Sub(pool.TotalShares, amount)
	if err := e.state.PutInsuranceStaker(caller, staker); err != nil {
		return err
	}
	if err := e.state.PutInsurancePool(pool); err != nil {
		return err
	}
	e.emitter.Emit(events.InsuranceUnstaked{User: addrBytes(caller), Amount: amount})
	return nil
}

// ClaimRewards pays out the caller's pending reward without touching the
// bonded principal.
func (e *Engine) ClaimRewards(caller crypto.Address) (*big.Int, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	staker, err := e.loadStaker(caller)
	if err != nil {
		return nil, err
	}
	if staker.Principal.Sign() == 0 {
		return nil, errNoStake
	}
	reward := e.pending(staker)
	if reward.Sign() == 0 {
		return nil, errNoRewards
	}
	if err := e.settle(caller, staker); err != nil {
		return nil, err
	}
	if err := e.state.PutInsuranceStaker(caller, staker); err != nil {
		return nil, err
	}
	return reward, nil
}

// PendingRewards reports the reward addr would receive from a claim at the
// current height. Addresses with no stake read as zero.
func (e *Engine) PendingRewards(addr crypto.Address) (*big.Int, error) {
	if e.state == nil {
		return nil, errNilState
	}
	staker, err := e.loadStaker(addr)
	if err != nil {
		return nil, err
	}
	return e.pending(staker), nil
}

// StakeOf returns the staker record for addr.
func (e *Engine) StakeOf(addr crypto.Address) (*Staker, error) {
	if e.state == nil {
		return nil, errNilState
	}
	return e.loadStaker(addr)
}

// PayClaim transfers amount of pool capital to recipient. Every call is
// bounded by the max coverage computed fresh from the current totalStaked;
// totalClaimed only accumulates and never gates later claims. A payout
// reference is minted per claim for downstream reconciliation.
func (e *Engine) PayClaim(caller, recipient crypto.Address, amount *big.Int, reason string) (string, error) {
	if err := e.ready(); err != nil {
		return "", err
	}
	if !caller.Equal(e.owner) {
		return "", errNotOwner
	}
	if amount == nil || amount.Sign() <= 0 {
		return "", errInvalidAmount
	}
	pool, err := e.loadPool()
	if err != nil {
		return "", err
	}
	if amount.Cmp(maxCoverage(pool)) > 0 {
		return "", errCoverageExceeded
	}
	if err := e.stable.Transfer(e.moduleAddress, recipient, amount); err != nil {
		return "", fmt.Errorf("insurance: pay claim: %w", err)
	}
	pool.TotalClaimed = new(big.Int).Add(pool.TotalClaimed, amount)
	if err := e.state.PutInsurancePool(pool); err != nil {
		return "", err
	}
	reference := uuid.NewString()
	e.emitter.Emit(events.InsuranceClaimPaid{
		Recipient: addrBytes(recipient),
		Amount:    amount,
		Reason:    reason,
		Reference: reference,
	})
	return reference, nil
}

// UpdateCoverageRatio sets the claimable fraction of bonded capital.
func (e *Engine) UpdateCoverageRatio(caller crypto.Address, ratioBps uint64) error {
	if e.state == nil {
		return errNilState
	}
	if !caller.Equal(e.owner) {
		return errNotOwner
	}
	if ratioBps > MaxCoverageRatioBps {
		return errCoverageRatioBounds
	}
	pool, err := e.loadPool()
	if err != nil {
		return err
	}
	old := pool.CoverageRatioBps
	pool.CoverageRatioBps = ratioBps
	if err := e.state.PutInsurancePool(pool); err != nil {
		return err
	}
	e.emitter.Emit(events.CoverageRatioUpdated{OldRatioBps: old, NewRatioBps: ratioBps})
	return nil
}

// GetMaxCoverage returns the current per-claim payout ceiling.
func (e *Engine) GetMaxCoverage() (*big.Int, error) {
	if e.state == nil {
		return nil, errNilState
	}
	pool, err := e.loadPool()
	if err != nil {
		return nil, err
	}
	return maxCoverage(pool), nil
}

// PoolInfo returns the aggregate pool record.
func (e *Engine) PoolInfo() (*Pool, error) {
	if e.state == nil {
		return nil, errNilState
	}
	return e.loadPool()
}

func maxCoverage(pool *Pool) *big.Int {
	limit := new(big.Int).Mul(pool.TotalStaked, new(big.Int).SetUint64(pool.CoverageRatioBps))
	return limit.Quo(limit, basisPoints)
}

func addrBytes(addr crypto.Address) [20]byte {
	var out [20]byte
	copy(out[:], addr.Bytes())
	return out
}
