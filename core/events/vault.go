package events

import (
	"math/big"
	"strconv"

	"relicledger/core/types"
	"relicledger/crypto"
)

const (
	// TypeRelicMinted is emitted when a new time-locked position is opened.
	TypeRelicMinted = "vault.relicMinted"
	// TypeDevFeeCharged captures the mint-time developer fee transfer.
	TypeDevFeeCharged = "vault.devFeeCharged"
	// TypeYieldClaimed is emitted when accrued yield is settled to a holder.
	TypeYieldClaimed = "vault.yieldClaimed"
	// TypePerformanceFee is emitted when a claim crosses the annualized-rate
	// threshold and a cut of the yield is minted to the vault owner.
	TypePerformanceFee = "vault.performanceFee"
	// TypeVaultPaused signals a pause-state flip on the vault.
	TypeVaultPaused = "vault.paused"
	// TypeTokensRescued records an owner sweep of stray tokens.
	TypeTokensRescued = "vault.tokensRescued"
)

// RelicMinted captures the position opened by a gross stablecoin deposit.
type RelicMinted struct {
	User      [20]byte
	TokenID   uint64
	Principal *big.Int
	LockDays  uint32
	LockEnd   int64
}

// EventType satisfies the Event interface.
func (RelicMinted) EventType() string { return TypeRelicMinted }

// Event converts the structured payload into a broadcastable event.
func (e RelicMinted) Event() *types.Event {
	return &types.Event{
		Type: TypeRelicMinted,
		Attributes: map[string]string{
			"user":      crypto.MustNewAddress(crypto.RelicPrefix, e.User[:]).String(),
			"tokenId":   strconv.FormatUint(e.TokenID, 10),
			"principal": formatAmount(e.Principal),
			"lockDays":  strconv.FormatUint(uint64(e.LockDays), 10),
			"lockEnd":   strconv.FormatInt(e.LockEnd, 10),
		},
	}
}

// DevFeeCharged records the 1% developer fee taken from a gross deposit.
type DevFeeCharged struct {
	User   [20]byte
	Amount *big.Int
}

func (DevFeeCharged) EventType() string { return TypeDevFeeCharged }

func (e DevFeeCharged) Event() *types.Event {
	return &types.Event{
		Type: TypeDevFeeCharged,
		Attributes: map[string]string{
			"user":   crypto.MustNewAddress(crypto.RelicPrefix, e.User[:]).String(),
			"amount": formatAmount(e.Amount),
		},
	}
}

// YieldClaimed captures a settled claim for a position.
type YieldClaimed struct {
	User    [20]byte
	TokenID uint64
	Amount  *big.Int
}

func (YieldClaimed) EventType() string { return TypeYieldClaimed }

func (e YieldClaimed) Event() *types.Event {
	return &types.Event{
		Type: TypeYieldClaimed,
		Attributes: map[string]string{
			"user":    crypto.MustNewAddress(crypto.RelicPrefix, e.User[:]).String(),
			"tokenId": strconv.FormatUint(e.TokenID, 10),
			"amount":  formatAmount(e.Amount),
		},
	}
}

// PerformanceFee captures the owner cut minted alongside a high-rate claim.
type PerformanceFee struct {
	TokenID uint64
	Amount  *big.Int
}

func (PerformanceFee) EventType() string { return TypePerformanceFee }

func (e PerformanceFee) Event() *types.Event {
	return &types.Event{
		Type: TypePerformanceFee,
		Attributes: map[string]string{
			"tokenId": strconv.FormatUint(e.TokenID, 10),
			"amount":  formatAmount(e.Amount),
		},
	}
}

// VaultPaused signals the vault pause flag flipping.
type VaultPaused struct {
	Paused bool
}

func (VaultPaused) EventType() string { return TypeVaultPaused }

func (e VaultPaused) Event() *types.Event {
	return &types.Event{
		Type: TypeVaultPaused,
		Attributes: map[string]string{
			"paused": strconv.FormatBool(e.Paused),
		},
	}
}

// TokensRescued records an owner sweep of tokens mistakenly sent to the vault.
type TokensRescued struct {
	Token  string
	Amount *big.Int
}

func (TokensRescued) EventType() string { return TypeTokensRescued }

func (e TokensRescued) Event() *types.Event {
	return &types.Event{
		Type: TypeTokensRescued,
		Attributes: map[string]string{
			"token":  e.Token,
			"amount": formatAmount(e.Amount),
		},
	}
}
