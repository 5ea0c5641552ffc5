package events

import (
	"math/big"

	"relicledger/core/types"
	"relicledger/crypto"
)

const (
	// TypeInsuranceStaked is emitted when stablecoin is bonded into the pool.
	TypeInsuranceStaked = "insurance.staked"
	// TypeInsuranceUnstaked is emitted when principal leaves the pool.
	TypeInsuranceUnstaked = "insurance.unstaked"
	// TypeInsuranceRewardsClaimed is emitted whenever pending rewards settle,
	// whether claimed directly or folded into a stake/unstake.
	TypeInsuranceRewardsClaimed = "insurance.rewardsClaimed"
	// TypeInsuranceClaimPaid records an operator payout against pool capital.
	TypeInsuranceClaimPaid = "insurance.claimPaid"
	// TypeCoverageRatioUpdated records a coverage-ratio policy change.
	TypeCoverageRatioUpdated = "insurance.coverageRatioUpdated"
)

// InsuranceStaked captures a bonded stake and the shares issued for it.
type InsuranceStaked struct {
	User   [20]byte
	Amount *big.Int
	Shares *big.Int
}

func (InsuranceStaked) EventType() string { return TypeInsuranceStaked }

func (e InsuranceStaked) Event() *types.Event {
	return &types.Event{
		Type: TypeInsuranceStaked,
		Attributes: map[string]string{
			"user":   crypto.MustNewAddress(crypto.RelicPrefix, e.User[:]).String(),
			"amount": formatAmount(e.Amount),
			"shares": formatAmount(e.Shares),
		},
	}
}

// InsuranceUnstaked captures principal released back to a staker.
type InsuranceUnstaked struct {
	User   [20]byte
	Amount *big.Int
}

func (InsuranceUnstaked) EventType() string { return TypeInsuranceUnstaked }

func (e InsuranceUnstaked) Event() *types.Event {
	return &types.Event{
		Type: TypeInsuranceUnstaked,
		Attributes: map[string]string{
			"user":   crypto.MustNewAddress(crypto.RelicPrefix, e.User[:]).String(),
			"amount": formatAmount(e.Amount),
		},
	}
}

// InsuranceRewardsClaimed captures a reward settlement for a staker.
type InsuranceRewardsClaimed struct {
	User   [20]byte
	Amount *big.Int
}

func (InsuranceRewardsClaimed) EventType() string { return TypeInsuranceRewardsClaimed }

func (e InsuranceRewardsClaimed) Event() *types.Event {
	return &types.Event{
		Type: TypeInsuranceRewardsClaimed,
		Attributes: map[string]string{
			"user":   crypto.MustNewAddress(crypto.RelicPrefix, e.User[:]).String(),
			"amount": formatAmount(e.Amount),
		},
	}
}

// InsuranceClaimPaid records a coverage payout with its free-text reason and
// the payout reference assigned by the engine.
type InsuranceClaimPaid struct {
	Recipient [20]byte
	Amount    *big.Int
	Reason    string
	Reference string
}

func (InsuranceClaimPaid) EventType() string { return TypeInsuranceClaimPaid }

func (e InsuranceClaimPaid) Event() *types.Event {
	attrs := map[string]string{
		"recipient": crypto.MustNewAddress(crypto.RelicPrefix, e.Recipient[:]).String(),
		"amount":    formatAmount(e.Amount),
		"reason":    e.Reason,
	}
	if e.Reference != "" {
		attrs["reference"] = e.Reference
	}
	return &types.Event{Type: TypeInsuranceClaimPaid, Attributes: attrs}
}

// CoverageRatioUpdated records a change to the claimable fraction of capital.
type CoverageRatioUpdated struct {
	OldRatioBps uint64
	NewRatioBps uint64
}

func (CoverageRatioUpdated) EventType() string { return TypeCoverageRatioUpdated }

func (e CoverageRatioUpdated) Event() *types.Event {
	return &types.Event{
		Type: TypeCoverageRatioUpdated,
		Attributes: map[string]string{
			"oldRatioBps": formatUint(e.OldRatioBps),
			"newRatioBps": formatUint(e.NewRatioBps),
		},
	}
}
