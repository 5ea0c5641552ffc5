package vault

import (
	"errors"
	"fmt"
	"math/big"
	"time"

	"relicledger/core/events"
	"relicledger/crypto"
	"relicledger/native/relic"
)

var (
	errNilState         = errors.New("vault: state not configured")
	errNilCollaborator  = errors.New("vault: collaborator not configured")
	errNotOwner         = errors.New("vault: caller is not the vault owner")
	errPaused           = errors.New("vault: deposits are paused")
	errInvalidDuration  = errors.New("vault: unsupported lock duration")
	errBelowMinimum     = errors.New("vault: deposit below minimum")
	errNotPositionOwner = errors.New("vault: caller does not own the position")
	errNoYield          = errors.New("vault: no yield to claim")
	errRescueStable     = errors.New("vault: cannot rescue the stable asset")
	errInvalidAmount    = errors.New("vault: amount must be positive")
	errInvalidAPR       = errors.New("vault: base rate outside allowed range")
)

var basisPoints = big.NewInt(10_000)

// vaultState is the persistence surface the engine depends on: the aggregate
// record plus per-position claim checkpoints.
type vaultState interface {
	VaultState() (*State, error)
	PutVaultState(*State) error
	VaultCheckpoint(tokenID uint64) (int64, error)
	PutVaultCheckpoint(tokenID uint64, ts int64) error
}

// stableLedger is the slice of the stable-asset ledger the vault needs.
// Deposits are pulled through the allowance the depositor granted to the
// vault module address.
type stableLedger interface {
	Symbol() string
	Transfer(from, to crypto.Address, amount *big.Int) error
	TransferFrom(spender, from, to crypto.Address, amount *big.Int) error
	BalanceOf(addr crypto.Address) (*big.Int, error)
}

// positionRegistry mints and reads time-locked positions. The vault module
// address must be the registry owner so Mint succeeds.
type positionRegistry interface {
	Mint(caller, to crypto.Address, lockDays uint32, principal *big.Int) (uint64, error)
	OwnerOf(tokenID uint64) (crypto.Address, error)
	MetaOf(tokenID uint64) (relic.Meta, error)
}

// rewardMinter issues eighteen-decimal reward units for settled yield.
type rewardMinter interface {
	Mint(caller, to crypto.Address, amount *big.Int) error
}

// yieldAdapter custodies net principal and simulates yield growth.
type yieldAdapter interface {
	Deposit(from crypto.Address, amount *big.Int) error
	Withdraw(to crypto.Address, amount *big.Int) error
	TotalAssets() (*big.Int, error)
}

// Engine implements the deposit and claim flow: gross stablecoin deposits
// mint time-locked positions, principal net of the developer fee moves into
// the yield adapter, and holders claim accrued yield as reward units.
type Engine struct {
	state         vaultState
	stable        stableLedger
	registry      positionRegistry
	reward        rewardMinter
	adapter       yieldAdapter
	owner         crypto.Address
	moduleAddress crypto.Address
	emitter       events.Emitter
	nowFn         func() time.Time
}

// NewEngine constructs a vault engine. moduleAddress is the account that
// custodies deposits on the stable ledger and owns the position registry and
// reward ledger.
func NewEngine(owner, moduleAddress crypto.Address) *Engine {
	return &Engine{
		owner:         owner,
		moduleAddress: moduleAddress,
		emitter:       events.NoopEmitter{},
		nowFn:         time.Now,
	}
}

// SetState wires the persistence backend.
func (e *Engine) SetState(state vaultState) { e.state = state }

// SetStableLedger wires the stable-asset ledger.
func (e *Engine) SetStableLedger(ledger stableLedger) { e.stable = ledger }

// SetRegistry wires the position registry.
func (e *Engine) SetRegistry(registry positionRegistry) { e.registry = registry }

// SetRewardMinter wires the reward-asset minter.
func (e *Engine) SetRewardMinter(minter rewardMinter) { e.reward = minter }

// SetAdapter wires the yield adapter.
func (e *Engine) SetAdapter(adapter yieldAdapter) { e.adapter = adapter }

// SetEmitter configures the event sink; a nil emitter resets to the no-op sink.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetNowFunc overrides the time source used for accrual.
func (e *Engine) SetNowFunc(now func() time.Time) {
	if now == nil {
		now = time.Now
	}
	e.nowFn = now
}

// Owner returns the fee recipient and governance address.
func (e *Engine) Owner() crypto.Address { return e.owner }

// ModuleAddress returns the vault's custody account.
func (e *Engine) ModuleAddress() crypto.Address { return e.moduleAddress }

func (e *Engine) ready() error {
	if e.state == nil {
		return errNilState
	}
	if e.stable == nil || e.registry == nil || e.reward == nil || e.adapter == nil {
		return errNilCollaborator
	}
	return nil
}

func (e *Engine) loadState() (*State, error) {
	st, err := e.state.VaultState()
	if err != nil {
		return nil, err
	}
	if st == nil {
		st = &State{}
	}
	if st.TotalPrincipal == nil {
		st.TotalPrincipal = big.NewInt(0)
	}
	return st, nil
}

// baseAPR resolves the base rate for a lock duration from the governed
// schedule, falling back to the flat default.
func baseAPR(st *State, lockDays uint32) uint64 {
	if st.APRSchedule != nil {
		if bps, ok := st.APRSchedule[lockDays]; ok {
			return bps
		}
	}
	return DefaultBaseAPRBps
}

// MintPosition pulls a gross stablecoin deposit through the caller's
// allowance and opens a time-locked position. The developer fee goes to the
// owner, the remainder moves into the yield adapter, and the position
// records the gross amount as principal.
func (e *Engine) MintPosition(caller crypto.Address, lockDays uint32, amount *big.Int) (uint64, error) {
	if err := e.ready(); err != nil {
		return 0, err
	}
	st, err := e.loadState()
	if err != nil {
		return 0, err
	}
	if st.Paused {
		return 0, errPaused
	}
	if !ValidDuration(lockDays) {
		return 0, errInvalidDuration
	}
	if amount == nil || amount.Cmp(MinimumDeposit) < 0 {
		return 0, errBelowMinimum
	}

	if err := e.stable.TransferFrom(e.moduleAddress, caller, e.moduleAddress, amount); err != nil {
		return 0, fmt.Errorf("vault: collect deposit: %w", err)
	}
	devFee := new(big.Int).Mul(amount, new(big.Int).SetUint64(DevFeeBps))
	devFee.Quo(devFee, basisPoints)
	if devFee.Sign() > 0 {
		if err := e.stable.Transfer(e.moduleAddress, e.owner, devFee); err != nil {
			return 0, fmt.Errorf("vault: charge dev fee: %w", err)
		}
	}
	net := new(big.Int).Sub(amount, devFee)
	if err := e.adapter.Deposit(e.moduleAddress, net); err != nil {
		return 0, fmt.Errorf("vault: deploy principal: %w", err)
	}

	tokenID, err := e.registry.Mint(e.moduleAddress, caller, lockDays, amount)
	if err != nil {
		return 0, fmt.Errorf("vault: mint position: %w", err)
	}
	now := e.nowFn().Unix()
	st.TotalPrincipal = new(big.Int).Add(st.TotalPrincipal, amount)
	if err := e.state.PutVaultState(st); err != nil {
		return 0, err
	}
	if err := e.state.PutVaultCheckpoint(tokenID, now); err != nil {
		return 0, err
	}

	meta, err := e.registry.MetaOf(tokenID)
	if err != nil {
		return 0, err
	}
	e.emitter.Emit(events.RelicMinted{
		User:      addrBytes(caller),
		TokenID:   tokenID,
		Principal: amount,
		LockDays:  lockDays,
		LockEnd:   meta.LockEnd,
	})
	e.emitter.Emit(events.DevFeeCharged{User: addrBytes(caller), Amount: devFee})
	return tokenID, nil
}

// accrued computes the yield owed to a position since its checkpoint.
// Division truncates toward zero.
func accrued(principal *big.Int, aprBps uint64, elapsed int64) *big.Int {
	if elapsed <= 0 {
		return big.NewInt(0)
	}
	y := new(big.Int).Mul(principal, new(big.Int).SetUint64(aprBps))
	y.Mul(y, big.NewInt(elapsed))
	denom := new(big.Int).Mul(big.NewInt(SecondsPerYear), basisPoints)
	return y.Quo(y, denom)
}

// ClaimYield settles the pending yield on a position to its current holder
// as reward units. Claims whose implied annualized rate exceeds the
// performance threshold additionally mint a fee cut to the vault owner. The
// checkpoint advances to now regardless of the fee path.
func (e *Engine) ClaimYield(caller crypto.Address, tokenID uint64) (*big.Int, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	holder, err := e.registry.OwnerOf(tokenID)
	if err != nil {
		return nil, err
	}
	if !caller.Equal(holder) {
		return nil, errNotPositionOwner
	}
	st, err := e.loadState()
	if err != nil {
		return nil, err
	}
	meta, err := e.registry.MetaOf(tokenID)
	if err != nil {
		return nil, err
	}
	checkpoint, err := e.state.VaultCheckpoint(tokenID)
	if err != nil {
		return nil, err
	}
	now := e.nowFn().Unix()
	elapsed := now - checkpoint
	pending := accrued(meta.Principal, baseAPR(st, meta.LockDays), elapsed)
	if pending.Sign() == 0 {
		return nil, errNoYield
	}

	scaled := new(big.Int).Mul(pending, rewardScale)
	if err := e.reward.Mint(e.moduleAddress, caller, scaled); err != nil {
		return nil, fmt.Errorf("vault: mint yield: %w", err)
	}

	// Annualize the claim to decide whether the performance fee applies.
	implied := new(big.Int).Mul(pending, basisPoints)
	implied.Mul(implied, big.NewInt(SecondsPerYear))
	implied.Quo(implied, new(big.Int).Mul(meta.Principal, big.NewInt(elapsed)))
	var fee *big.Int
	if implied.Cmp(new(big.Int).SetUint64(PerformanceThresholdBps)) > 0 {
		fee = new(big.Int).Mul(scaled, new(big.Int).SetUint64(PerformanceFeeBps))
		fee.Quo(fee, basisPoints)
		if fee.Sign() > 0 {
			if err := e.reward.Mint(e.moduleAddress, e.owner, fee); err != nil {
				return nil, fmt.Errorf("vault: mint performance fee: %w", err)
			}
		}
	}

	if err := e.state.PutVaultCheckpoint(tokenID, now); err != nil {
		return nil, err
	}
	e.emitter.Emit(events.YieldClaimed{User: addrBytes(caller), TokenID: tokenID, Amount: scaled})
	if fee != nil && fee.Sign() > 0 {
		e.emitter.Emit(events.PerformanceFee{TokenID: tokenID, Amount: fee})
	}
	return scaled, nil
}

// ViewClaimableYield reports the reward units a claim would settle right
// now, without mutating state.
func (e *Engine) ViewClaimableYield(tokenID uint64) (*big.Int, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	st, err := e.loadState()
	if err != nil {
		return nil, err
	}
	meta, err := e.registry.MetaOf(tokenID)
	if err != nil {
		return nil, err
	}
	checkpoint, err := e.state.VaultCheckpoint(tokenID)
	if err != nil {
		return nil, err
	}
	pending := accrued(meta.Principal, baseAPR(st, meta.LockDays), e.nowFn().Unix()-checkpoint)
	return new(big.Int).Mul(pending, rewardScale), nil
}

// TotalPrincipal returns the lifetime sum of gross deposits. It only grows.
func (e *Engine) TotalPrincipal() (*big.Int, error) {
	if e.state == nil {
		return nil, errNilState
	}
	st, err := e.loadState()
	if err != nil {
		return nil, err
	}
	return new(big.Int).Set(st.TotalPrincipal), nil
}

// Paused reports whether deposits are blocked.
func (e *Engine) Paused() (bool, error) {
	if e.state == nil {
		return false, errNilState
	}
	st, err := e.loadState()
	if err != nil {
		return false, err
	}
	return st.Paused, nil
}

// Pause blocks new deposits. Claims keep settling while paused.
func (e *Engine) Pause(caller crypto.Address) error {
	return e.setPaused(caller, true)
}

// Unpause reopens deposits.
func (e *Engine) Unpause(caller crypto.Address) error {
	return e.setPaused(caller, false)
}

func (e *Engine) setPaused(caller crypto.Address, paused bool) error {
	if e.state == nil {
		return errNilState
	}
	if !caller.Equal(e.owner) {
		return errNotOwner
	}
	st, err := e.loadState()
	if err != nil {
		return err
	}
	if st.Paused == paused {
		return nil
	}
	st.Paused = paused
	if err := e.state.PutVaultState(st); err != nil {
		return err
	}
	e.emitter.Emit(events.VaultPaused{Paused: paused})
	return nil
}

// SetBaseAPRSchedule replaces the per-duration base rate schedule. Rates are
// pushed by governance, typically derived from the oracle's effective APR.
func (e *Engine) SetBaseAPRSchedule(caller crypto.Address, schedule map[uint32]uint64) error {
	if e.state == nil {
		return errNilState
	}
	if !caller.Equal(e.owner) {
		return errNotOwner
	}
	for lockDays, bps := range schedule {
		if !ValidDuration(lockDays) {
			return errInvalidDuration
		}
		if bps == 0 || bps > MaxBaseAPRBps {
			return errInvalidAPR
		}
	}
	st, err := e.loadState()
	if err != nil {
		return err
	}
	next := make(map[uint32]uint64, len(schedule))
	for lockDays, bps := range schedule {
		next[lockDays] = bps
	}
	st.APRSchedule = next
	return e.state.PutVaultState(st)
}

// BaseAPR returns the base rate currently applied to a lock duration.
func (e *Engine) BaseAPR(lockDays uint32) (uint64, error) {
	if e.state == nil {
		return 0, errNilState
	}
	st, err := e.loadState()
	if err != nil {
		return 0, err
	}
	return baseAPR(st, lockDays), nil
}

// RescueTokens sweeps tokens mistakenly sent to the vault's custody account
// to the owner. The stable asset is never rescuable: it backs user
// principal.
func (e *Engine) RescueTokens(caller crypto.Address, ledger stableLedger, amount *big.Int) error {
	if !caller.Equal(e.owner) {
		return errNotOwner
	}
	if ledger == nil {
		return errNilCollaborator
	}
	if ledger == e.stable {
		return errRescueStable
	}
	if amount == nil || amount.Sign() <= 0 {
		return errInvalidAmount
	}
	if err := ledger.Transfer(e.moduleAddress, e.owner, amount); err != nil {
		return fmt.Errorf("vault: rescue tokens: %w", err)
	}
	e.emitter.Emit(events.TokensRescued{Token: ledger.Symbol(), Amount: amount})
	return nil
}

func addrBytes(addr crypto.Address) [20]byte {
	var out [20]byte
	copy(out[:], addr.Bytes())
	return out
}
