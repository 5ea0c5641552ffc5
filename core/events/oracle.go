package events

import (
	"strconv"

	"relicledger/core/types"
)

const (
	// TypeAPRMultiplierUpdated is emitted for every multiplier overwrite,
	// including each leg of a batch update.
	TypeAPRMultiplierUpdated = "oracle.aprMultiplierUpdated"
	// TypeEmergencyPause is emitted when the oracle pause flag flips.
	TypeEmergencyPause = "oracle.emergencyPause"
)

// APRMultiplierUpdated captures a single multiplier change on the oracle.
type APRMultiplierUpdated struct {
	LockDays uint32
	OldValue uint64
	NewValue uint64
}

func (APRMultiplierUpdated) EventType() string { return TypeAPRMultiplierUpdated }

func (e APRMultiplierUpdated) Event() *types.Event {
	return &types.Event{
		Type: TypeAPRMultiplierUpdated,
		Attributes: map[string]string{
			"lockDays": strconv.FormatUint(uint64(e.LockDays), 10),
			"oldValue": strconv.FormatUint(e.OldValue, 10),
			"newValue": strconv.FormatUint(e.NewValue, 10),
		},
	}
}

// EmergencyPause signals the oracle pause flag flipping.
type EmergencyPause struct {
	Paused bool
}

func (EmergencyPause) EventType() string { return TypeEmergencyPause }

func (e EmergencyPause) Event() *types.Event {
	return &types.Event{
		Type: TypeEmergencyPause,
		Attributes: map[string]string{
			"isPaused": strconv.FormatBool(e.Paused),
		},
	}
}
