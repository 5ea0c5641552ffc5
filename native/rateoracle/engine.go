package rateoracle

import (
	"errors"
	"fmt"
	"time"

	"relicledger/core/events"
	"relicledger/crypto"
)

var (
	errNilState        = errors.New("rateoracle: state not configured")
	errNotOwner        = errors.New("rateoracle: caller is not the oracle owner")
	errUnknownDuration = errors.New("rateoracle: unsupported lock duration")
	errOutOfBounds     = errors.New("rateoracle: multiplier outside allowed bounds")
	errCooldownActive  = errors.New("rateoracle: cooldown period not elapsed")
	errPaused          = errors.New("rateoracle: oracle is paused")
	errBatchLength     = errors.New("rateoracle: batch requires one multiplier per lock duration")
	errIndexOutOfRange = errors.New("rateoracle: history index out of range")
)

// oracleState is the minimal persistence surface the engine needs.
type oracleState interface {
	OracleState() (*State, error)
	PutOracleState(*State) error
}

// Engine maintains per-duration APR multipliers with bounded, cooldown-gated
// updates and an append-only change history.
type Engine struct {
	state   oracleState
	owner   crypto.Address
	emitter events.Emitter
	nowFn   func() time.Time
}

// NewEngine constructs an oracle engine owned by owner.
func NewEngine(owner crypto.Address) *Engine {
	return &Engine{
		owner:   owner,
		emitter: events.NoopEmitter{},
		nowFn:   time.Now,
	}
}

// SetState wires the persistence backend.
func (e *Engine) SetState(state oracleState) { e.state = state }

// SetEmitter configures the event sink; a nil emitter resets to the no-op sink.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetNowFunc overrides the time source used for cooldown checks.
func (e *Engine) SetNowFunc(now func() time.Time) {
	if now == nil {
		now = time.Now
	}
	e.nowFn = now
}

// Owner returns the governance address.
func (e *Engine) Owner() crypto.Address { return e.owner }

// TransferOwnership hands governance to a new address.
func (e *Engine) TransferOwnership(caller, next crypto.Address) error {
	if !caller.Equal(e.owner) {
		return errNotOwner
	}
	e.owner = next
	return nil
}

// loadState fetches the persisted record, initializing defaults on first use.
// The deploy-time state carries the neutral multiplier for every duration and
// a lastRateChange stamped at initialization, so the first update already
// sits behind the cooldown.
func (e *Engine) loadState() (*State, error) {
	if e.state == nil {
		return nil, errNilState
	}
	st, err := e.state.OracleState()
	if err != nil {
		return nil, err
	}
	if st == nil {
		st = &State{
			Multipliers:    make(map[uint32]uint64, len(LockDurations)),
			LastRateChange: e.nowFn().Unix(),
		}
		for _, d := range LockDurations {
			st.Multipliers[d] = NeutralMultiplier
		}
		if err := e.state.PutOracleState(st); err != nil {
			return nil, err
		}
	}
	return st, nil
}

// Initialize forces the deploy-time record to exist, stamping the cooldown
// clock. It is safe to call more than once.
func (e *Engine) Initialize() error {
	_, err := e.loadState()
	return err
}

func checkBounds(multiplier uint64) error {
	if multiplier < MinMultiplier || multiplier > MaxMultiplier {
		return fmt.Errorf("%w: %d not in [%d, %d]", errOutOfBounds, multiplier, MinMultiplier, MaxMultiplier)
	}
	return nil
}

func (e *Engine) checkCooldown(st *State) error {
	now := e.nowFn().Unix()
	if now < st.LastRateChange+RateChangeCooldownSeconds {
		return errCooldownActive
	}
	return nil
}

// UpdateMultiplier sets the multiplier for a single lock duration. The change
// is bounds-checked, cooldown-gated, and appended to the history.
func (e *Engine) UpdateMultiplier(caller crypto.Address, lockDays uint32, multiplier uint64) error {
	if !caller.Equal(e.owner) {
		return errNotOwner
	}
	if !ValidDuration(lockDays) {
		return errUnknownDuration
	}
	if err := checkBounds(multiplier); err != nil {
		return err
	}
	st, err := e.loadState()
	if err != nil {
		return err
	}
	if st.Paused {
		return errPaused
	}
	if err := e.checkCooldown(st); err != nil {
		return err
	}
	now := e.nowFn().Unix()
	old := st.Multipliers[lockDays]
	st.Multipliers[lockDays] = multiplier
	st.LastRateChange = now
	st.History = append(st.History, Snapshot{LockDays: lockDays, Multiplier: multiplier, Timestamp: now})
	if err := e.state.PutOracleState(st); err != nil {
		return err
	}
	e.emitter.Emit(events.APRMultiplierUpdated{LockDays: lockDays, OldValue: old, NewValue: multiplier})
	return nil
}

// BatchUpdateMultipliers sets all four multipliers atomically under a single
// cooldown check. multipliers must carry one value per lock duration in the
// order 30, 90, 180, 365. Any out-of-bounds value rejects the whole batch; on
// success one history entry per duration is appended in that same order and
// the cooldown clock advances once.
func (e *Engine) BatchUpdateMultipliers(caller crypto.Address, multipliers []uint64) error {
	if !caller.Equal(e.owner) {
		return errNotOwner
	}
	if len(multipliers) != len(LockDurations) {
		return errBatchLength
	}
	for _, m := range multipliers {
		if err := checkBounds(m); err != nil {
			return err
		}
	}
	st, err := e.loadState()
	if err != nil {
		return err
	}
	if st.Paused {
		return errPaused
	}
	if err := e.checkCooldown(st); err != nil {
		return err
	}
	now := e.nowFn().Unix()
	old := make([]uint64, len(LockDurations))
	for i, d := range LockDurations {
		old[i] = st.Multipliers[d]
		st.Multipliers[d] = multipliers[i]
		st.History = append(st.History, Snapshot{LockDays: d, Multiplier: multipliers[i], Timestamp: now})
	}
	st.LastRateChange = now
	if err := e.state.PutOracleState(st); err != nil {
		return err
	}
	for i, d := range LockDurations {
		e.emitter.Emit(events.APRMultiplierUpdated{LockDays: d, OldValue: old[i], NewValue: multipliers[i]})
	}
	return nil
}

// TogglePause flips the emergency-pause flag. Pausing does not rewrite stored
// multipliers; it only changes what readers observe.
func (e *Engine) TogglePause(caller crypto.Address) error {
	if !caller.Equal(e.owner) {
		return errNotOwner
	}
	st, err := e.loadState()
	if err != nil {
		return err
	}
	st.Paused = !st.Paused
	if err := e.state.PutOracleState(st); err != nil {
		return err
	}
	e.emitter.Emit(events.EmergencyPause{Paused: st.Paused})
	return nil
}

// Paused reports the emergency-pause flag.
func (e *Engine) Paused() (bool, error) {
	st, err := e.loadState()
	if err != nil {
		return false, err
	}
	return st.Paused, nil
}

// GetMultiplier returns the current multiplier for lockDays. While paused
// every recognized duration reads as the neutral 1.0x. Unrecognized durations
// read as zero, matching a missing map entry.
func (e *Engine) GetMultiplier(lockDays uint32) (uint64, error) {
	st, err := e.loadState()
	if err != nil {
		return 0, err
	}
	if st.Paused {
		if ValidDuration(lockDays) {
			return NeutralMultiplier, nil
		}
		return 0, nil
	}
	return st.Multipliers[lockDays], nil
}

// CalculateEffectiveAPR scales baseAPRBps by the duration's multiplier. While
// paused the base rate passes through unchanged.
func (e *Engine) CalculateEffectiveAPR(baseAPRBps uint64, lockDays uint32) (uint64, error) {
	st, err := e.loadState()
	if err != nil {
		return 0, err
	}
	if st.Paused {
		return baseAPRBps, nil
	}
	return baseAPRBps * st.Multipliers[lockDays] / NeutralMultiplier, nil
}

// GetSnapshot returns the history entry at index.
func (e *Engine) GetSnapshot(index uint64) (Snapshot, error) {
	st, err := e.loadState()
	if err != nil {
		return Snapshot{}, err
	}
	if index >= uint64(len(st.History)) {
		return Snapshot{}, errIndexOutOfRange
	}
	return st.History[index], nil
}

// GetHistoryLength returns the number of recorded snapshots.
func (e *Engine) GetHistoryLength() (uint64, error) {
	st, err := e.loadState()
	if err != nil {
		return 0, err
	}
	return uint64(len(st.History)), nil
}

// LastRateChange returns the unix time of the most recent rate change, or the
// deploy time when no change has occurred.
func (e *Engine) LastRateChange() (int64, error) {
	st, err := e.loadState()
	if err != nil {
		return 0, err
	}
	return st.LastRateChange, nil
}
