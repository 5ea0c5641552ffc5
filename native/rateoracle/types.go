package rateoracle

// Multiplier bounds and governance cooldown, expressed the same way the
// on-ledger policy stores them: basis-point style with 10000 = 1.0x.
const (
	// NeutralMultiplier is the 1.0x scaling applied when paused or freshly
	// deployed.
	NeutralMultiplier uint64 = 10_000
	// MinMultiplier bounds downward adjustment to 0.8x.
	MinMultiplier uint64 = 8_000
	// MaxMultiplier bounds upward adjustment to 2.0x.
	MaxMultiplier uint64 = 20_000
	// RateChangeCooldownSeconds is the minimum spacing between successive
	// rate changes, global across all lock durations.
	RateChangeCooldownSeconds int64 = 3_600
)

// LockDurations lists the recognized lock periods in the fixed order used by
// batch updates and history appends.
var LockDurations = [4]uint32{30, 90, 180, 365}

// Snapshot is one append-only history entry recorded per changed multiplier.
type Snapshot struct {
	LockDays   uint32 `json:"lockDays"`
	Multiplier uint64 `json:"multiplier"`
	Timestamp  int64  `json:"timestamp"`
}

// State is the persisted oracle record.
type State struct {
	Multipliers    map[uint32]uint64 `json:"multipliers"`
	LastRateChange int64             `json:"lastRateChange"`
	Paused         bool              `json:"paused"`
	History        []Snapshot        `json:"history"`
}

// ValidDuration reports whether lockDays is one of the recognized periods.
func ValidDuration(lockDays uint32) bool {
	for _, d := range LockDurations {
		if d == lockDays {
			return true
		}
	}
	return false
}
