package insurance

import "math/big"

// Pool economics. Reward accrual is block-driven: a staker earns
// principal * RewardRateBps / 10000 per BlocksPerYear blocks.
const (
	// RewardRateBps is the annual reward rate paid on bonded principal.
	RewardRateBps uint64 = 500
	// BlocksPerYear assumes a 12-second block cadence.
	BlocksPerYear uint64 = 2_628_000
	// DefaultCoverageRatioBps caps claim payouts at 30% of bonded capital.
	DefaultCoverageRatioBps uint64 = 3_000
	// MaxCoverageRatioBps is the governance ceiling for the coverage ratio.
	MaxCoverageRatioBps uint64 = 5_000
)

// MinStake is the smallest stake the pool accepts, 100 units of the
// six-decimal stable asset.
var MinStake = big.NewInt(100_000_000)

// Staker is the persisted per-participant record.
type Staker struct {
	Principal   *big.Int `json:"principal"`
	Shares      *big.Int `json:"shares"`
	RewardBlock uint64   `json:"rewardBlock"`
}

// Clone returns a deep copy safe for mutation.
func (s *Staker) Clone() *Staker {
	if s == nil {
		return nil
	}
	clone := &Staker{RewardBlock: s.RewardBlock}
	if s.Principal != nil {
		clone.Principal = new(big.Int).Set(s.Principal)
	}
	if s.Shares != nil {
		clone.Shares = new(big.Int).Set(s.Shares)
	}
	return clone
}

// Pool is the persisted aggregate record.
type Pool struct {
	TotalStaked      *big.Int `json:"totalStaked"`
	TotalShares      *big.Int `json:"totalShares"`
	TotalClaimed     *big.Int `json:"totalClaimed"`
	CoverageRatioBps uint64   `json:"coverageRatioBps"`
}
