package events

import (
	"math/big"
	"strconv"
)

func formatUint(v uint64) string {
	return strconv.FormatUint(v, 10)
}

func formatAmount(amount *big.Int) string {
	if amount == nil {
		return "0"
	}
	return amount.String()
}
