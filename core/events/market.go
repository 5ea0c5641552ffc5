package events

import (
	"math/big"
	"strconv"

	"relicledger/core/types"
	"relicledger/crypto"
)

const (
	TypeMarketListed         = "market.listed"
	TypeMarketUnlisted       = "market.unlisted"
	TypeMarketSold           = "market.sold"
	TypeMarketOfferMade      = "market.offerMade"
	TypeMarketOfferAccepted  = "market.offerAccepted"
	TypeMarketOfferCancelled = "market.offerCancelled"
	TypeMarketPaused         = "market.paused"
)

// MarketListed captures a position entering escrow at an ask price.
type MarketListed struct {
	Seller  [20]byte
	TokenID uint64
	Price   *big.Int
}

func (MarketListed) EventType() string { return TypeMarketListed }

func (e MarketListed) Event() *types.Event {
	return &types.Event{
		Type: TypeMarketListed,
		Attributes: map[string]string{
			"seller":  crypto.MustNewAddress(crypto.RelicPrefix, e.Seller[:]).String(),
			"tokenId": strconv.FormatUint(e.TokenID, 10),
			"price":   formatAmount(e.Price),
		},
	}
}

// MarketUnlisted captures a listing withdrawn by its seller.
type MarketUnlisted struct {
	Seller  [20]byte
	TokenID uint64
}

func (MarketUnlisted) EventType() string { return TypeMarketUnlisted }

func (e MarketUnlisted) Event() *types.Event {
	return &types.Event{
		Type: TypeMarketUnlisted,
		Attributes: map[string]string{
			"seller":  crypto.MustNewAddress(crypto.RelicPrefix, e.Seller[:]).String(),
			"tokenId": strconv.FormatUint(e.TokenID, 10),
		},
	}
}

// MarketSold captures a completed purchase.
type MarketSold struct {
	Seller  [20]byte
	Buyer   [20]byte
	TokenID uint64
	Price   *big.Int
}

func (MarketSold) EventType() string { return TypeMarketSold }

func (e MarketSold) Event() *types.Event {
	return &types.Event{
		Type: TypeMarketSold,
		Attributes: map[string]string{
			"seller":  crypto.MustNewAddress(crypto.RelicPrefix, e.Seller[:]).String(),
			"buyer":   crypto.MustNewAddress(crypto.RelicPrefix, e.Buyer[:]).String(),
			"tokenId": strconv.FormatUint(e.TokenID, 10),
			"price":   formatAmount(e.Price),
		},
	}
}

// MarketOfferMade captures stablecoin escrowed against a position.
type MarketOfferMade struct {
	Offerer [20]byte
	TokenID uint64
	Amount  *big.Int
}

func (MarketOfferMade) EventType() string { return TypeMarketOfferMade }

func (e MarketOfferMade) Event() *types.Event {
	return &types.Event{
		Type: TypeMarketOfferMade,
		Attributes: map[string]string{
			"offerer": crypto.MustNewAddress(crypto.RelicPrefix, e.Offerer[:]).String(),
			"tokenId": strconv.FormatUint(e.TokenID, 10),
			"amount":  formatAmount(e.Amount),
		},
	}
}

// MarketOfferAccepted captures a seller taking an escrowed offer.
type MarketOfferAccepted struct {
	Seller  [20]byte
	Offerer [20]byte
	TokenID uint64
	Amount  *big.Int
}

func (MarketOfferAccepted) EventType() string { return TypeMarketOfferAccepted }

func (e MarketOfferAccepted) Event() *types.Event {
	return &types.Event{
		Type: TypeMarketOfferAccepted,
		Attributes: map[string]string{
			"seller":  crypto.MustNewAddress(crypto.RelicPrefix, e.Seller[:]).String(),
			"offerer": crypto.MustNewAddress(crypto.RelicPrefix, e.Offerer[:]).String(),
			"tokenId": strconv.FormatUint(e.TokenID, 10),
			"amount":  formatAmount(e.Amount),
		},
	}
}

// MarketOfferCancelled captures an offer refund to its maker.
type MarketOfferCancelled struct {
	Offerer [20]byte
	TokenID uint64
	Amount  *big.Int
}

func (MarketOfferCancelled) EventType() string { return TypeMarketOfferCancelled }

func (e MarketOfferCancelled) Event() *types.Event {
	return &types.Event{
		Type: TypeMarketOfferCancelled,
		Attributes: map[string]string{
			"offerer": crypto.MustNewAddress(crypto.RelicPrefix, e.Offerer[:]).String(),
			"tokenId": strconv.FormatUint(e.TokenID, 10),
			"amount":  formatAmount(e.Amount),
		},
	}
}

// MarketPaused signals the marketplace pause flag flipping.
type MarketPaused struct {
	Paused bool
}

func (MarketPaused) EventType() string { return TypeMarketPaused }

func (e MarketPaused) Event() *types.Event {
	return &types.Event{
		Type: TypeMarketPaused,
		Attributes: map[string]string{
			"paused": strconv.FormatBool(e.Paused),
		},
	}
}
