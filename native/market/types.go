package market

import "math/big"

// Listing is an active sale escrowed with the marketplace.
type Listing struct {
	Seller  [20]byte `json:"seller"`
	TokenID uint64   `json:"tokenId"`
	Price   *big.Int `json:"price"`
}

// Offer is an escrowed bid on a listed position.
type Offer struct {
	Offerer [20]byte `json:"offerer"`
	Amount  *big.Int `json:"amount"`
}

// Stats is the running trade aggregate. AvgPrice is derived, not stored.
type Stats struct {
	TotalVolume *big.Int `json:"totalVolume"`
	TotalTrades uint64   `json:"totalTrades"`
	HighPrice   *big.Int `json:"highPrice"`
	LowPrice    *big.Int `json:"lowPrice"`
}

// AvgPrice returns the mean sale price across all trades, zero when no
// trade has settled.
func (s *Stats) AvgPrice() *big.Int {
	if s.TotalTrades == 0 {
		return big.NewInt(0)
	}
	return new(big.Int).Quo(s.TotalVolume, new(big.Int).SetUint64(s.TotalTrades))
}
