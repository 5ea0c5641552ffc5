package vault

import "math/big"

// Fee and rate parameters, all in basis points against 10000.
const (
	// DevFeeBps is the mint-time developer fee taken from the gross deposit.
	DevFeeBps uint64 = 100
	// DefaultBaseAPRBps is the flat base rate applied to every lock duration
	// until governance pushes a schedule.
	DefaultBaseAPRBps uint64 = 500
	// PerformanceThresholdBps is the annualized claim rate above which the
	// performance fee applies.
	PerformanceThresholdBps uint64 = 1_500
	// PerformanceFeeBps is the owner cut of yield charged past the threshold.
	PerformanceFeeBps uint64 = 1_000
	// MaxBaseAPRBps caps governance-pushed base rates.
	MaxBaseAPRBps uint64 = 10_000

	// SecondsPerYear is the accrual denominator, 365 days.
	SecondsPerYear int64 = 365 * 86_400
)

// MinimumDeposit is the smallest accepted deposit, 10 units of the
// six-decimal stable asset.
var MinimumDeposit = big.NewInt(10_000_000)

// rewardScale converts six-decimal stable yield into eighteen-decimal
// reward units.
var rewardScale = new(big.Int).Exp(big.NewInt(10), big.NewInt(12), nil)

// LockDurations lists the accepted lock periods in days.
var LockDurations = [4]uint32{30, 90, 180, 365}

// ValidDuration reports whether lockDays is an accepted lock period.
func ValidDuration(lockDays uint32) bool {
	for _, d := range LockDurations {
		if d == lockDays {
			return true
		}
	}
	return false
}

// State is the persisted vault record. The APR schedule maps lock days to
// base rates in basis points; durations absent from the map fall back to
// DefaultBaseAPRBps.
type State struct {
	TotalPrincipal *big.Int          `json:"totalPrincipal"`
	Paused         bool              `json:"paused"`
	APRSchedule    map[uint32]uint64 `json:"aprSchedule,omitempty"`
}
