package market

import (
	"errors"
	"fmt"
	"math/big"

	"relicledger/core/events"
	"relicledger/crypto"
)

var (
	errNilState          = errors.New("market: state not configured")
	errNilCollaborator   = errors.New("market: collaborator not configured")
	errNotOwner          = errors.New("market: caller is not the market owner")
	errPaused            = errors.New("market: listings are paused")
	errInvalidPrice      = errors.New("market: price must be positive")
	errAlreadyListed     = errors.New("market: token already listed")
	errNotListed         = errors.New("market: token not listed")
	errNotSeller         = errors.New("market: caller is not the seller")
	errNotTokenOwner     = errors.New("market: caller does not own the token")
	errInsufficientFunds = errors.New("market: insufficient balance")
	errOfferExists       = errors.New("market: active offer already placed")
	errNoOffer           = errors.New("market: no offer from this address")
)

// marketState is the persistence surface the engine depends on. A nil
// listing means the token is not for sale.
type marketState interface {
	MarketListing(tokenID uint64) (*Listing, error)
	PutMarketListing(tokenID uint64, listing *Listing) error
	DeleteMarketListing(tokenID uint64) error
	MarketOffers(tokenID uint64) ([]Offer, error)
	PutMarketOffers(tokenID uint64, offers []Offer) error
	MarketStats() (*Stats, error)
	PutMarketStats(*Stats) error
	MarketPaused() (bool, error)
	SetMarketPaused(bool) error
}

// stableLedger moves sale proceeds and escrowed offer funds. Buyer funds
// are pulled through the allowance granted to the market module address.
type stableLedger interface {
	Transfer(from, to crypto.Address, amount *big.Int) error
	TransferFrom(spender, from, to crypto.Address, amount *big.Int) error
	BalanceOf(addr crypto.Address) (*big.Int, error)
}

// positionRegistry escrows and releases listed positions.
type positionRegistry interface {
	OwnerOf(tokenID uint64) (crypto.Address, error)
	TransferFrom(caller, from, to crypto.Address, tokenID uint64) error
}

// Engine implements the escrowed marketplace: listed positions and offer
// funds are held by the module account until a sale settles or the escrow
// unwinds.
type Engine struct {
	state         marketState
	stable        stableLedger
	registry      positionRegistry
	owner         crypto.Address
	moduleAddress crypto.Address
	emitter       events.Emitter
}

// NewEngine constructs a marketplace engine. moduleAddress custodies
// escrowed tokens and offer funds.
func NewEngine(owner, moduleAddress crypto.Address) *Engine {
	return &Engine{
		owner:         owner,
		moduleAddress: moduleAddress,
		emitter:       events.NoopEmitter{},
	}
}

// SetState wires the persistence backend.
func (e *Engine) SetState(state marketState) { e.state = state }

// SetStableLedger wires the stable-asset ledger.
func (e *Engine) SetStableLedger(ledger stableLedger) { e.stable = ledger }

// SetRegistry wires the position registry.
func (e *Engine) SetRegistry(registry positionRegistry) { e.registry = registry }

// SetEmitter configures the event sink; a nil emitter resets to the no-op sink.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// Owner returns the governance address.
func (e *Engine) Owner() crypto.Address { return e.owner }

// ModuleAddress returns the escrow account.
func (e *Engine) ModuleAddress() crypto.Address { return e.moduleAddress }

func (e *Engine) ready() error {
	if e.state == nil {
		return errNilState
	}
	if e.stable == nil || e.registry == nil {
		return errNilCollaborator
	}
	return nil
}

// List escrows the caller's position at the given ask price. Listing is
// blocked while paused; existing listings and offers keep settling.
func (e *Engine) List(caller crypto.Address, tokenID uint64, price *big.Int) error {
	if err := e.ready(); err != nil {
		return err
	}
	paused, err := e.state.MarketPaused()
	if err != nil {
		return err
	}
	if paused {
		return errPaused
	}
	if price == nil || price.Sign() <= 0 {
		return errInvalidPrice
	}
	if existing, err := e.state.MarketListing(tokenID); err != nil {
		return err
	} else if existing != nil {
		return errAlreadyListed
	}
	holder, err := e.registry.OwnerOf(tokenID)
	if err != nil {
		return err
	}
	if !caller.Equal(holder) {
		return errNotTokenOwner
	}
	if err := e.registry.TransferFrom(caller, caller, e.moduleAddress, tokenID); err != nil {
		return fmt.Errorf("market: escrow token: %w", err)
	}
	listing := &Listing{Seller: addrBytes(caller), TokenID: tokenID, Price: price}
	if err := e.state.PutMarketListing(tokenID, listing); err != nil {
		return err
	}
	e.emitter.Emit(events.MarketListed{Seller: listing.Seller, TokenID: tokenID, Price: price})
	return nil
}

// Unlist returns an escrowed position to its seller. Outstanding offers
// stay escrowed until their offerers cancel.
func (e *Engine) Unlist(caller crypto.Address, tokenID uint64) error {
	if err := e.ready(); err != nil {
		return err
	}
	listing, err := e.activeListing(tokenID)
	if err != nil {
		return err
	}
	seller := crypto.MustNewAddress(crypto.RelicPrefix, listing.Seller[:])
	if !caller.Equal(seller) {
		return errNotSeller
	}
	if err := e.registry.TransferFrom(e.moduleAddress, e.moduleAddress, seller, tokenID); err != nil {
		return fmt.Errorf("market: release token: %w", err)
	}
	if err := e.state.DeleteMarketListing(tokenID); err != nil {
		return err
	}
	e.emitter.Emit(events.MarketUnlisted{Seller: listing.Seller, TokenID: tokenID})
	return nil
}

// Buy settles a listed position at its ask price, pulled through the
// buyer's allowance.
func (e *Engine) Buy(caller crypto.Address, tokenID uint64) error {
	if err := e.ready(); err != nil {
		return err
	}
	listing, err := e.activeListing(tokenID)
	if err != nil {
		return err
	}
	balance, err := e.stable.BalanceOf(caller)
	if err != nil {
		return err
	}
	if balance.Cmp(listing.Price) < 0 {
		return errInsufficientFunds
	}
	seller := crypto.MustNewAddress(crypto.RelicPrefix, listing.Seller[:])
	if err := e.stable.TransferFrom(e.moduleAddress, caller, seller, listing.Price); err != nil {
		return fmt.Errorf("market: pay seller: %w", err)
	}
	if err := e.registry.TransferFrom(e.moduleAddress, e.moduleAddress, caller, tokenID); err != nil {
		return fmt.Errorf("market: deliver token: %w", err)
	}
	if err := e.state.DeleteMarketListing(tokenID); err != nil {
		return err
	}
	if err := e.recordTrade(listing.Price); err != nil {
		return err
	}
	e.emitter.Emit(events.MarketSold{
		Seller:  listing.Seller,
		Buyer:   addrBytes(caller),
		TokenID: tokenID,
		Price:   listing.Price,
	})
	return nil
}

// MakeOffer escrows a bid on a listed position, pulled through the
// offerer's allowance. One active offer per address per token.
func (e *Engine) MakeOffer(caller crypto.Address, tokenID uint64, amount *big.Int) error {
	if err := e.ready(); err != nil {
		return err
	}
	if amount == nil || amount.Sign() <= 0 {
		return errInvalidPrice
	}
	if _, err := e.activeListing(tokenID); err != nil {
		return err
	}
	offers, err := e.state.MarketOffers(tokenID)
	if err != nil {
		return err
	}
	callerBytes := addrBytes(caller)
	for _, offer := range offers {
		if offer.Offerer == callerBytes {
			return errOfferExists
		}
	}
	if err := e.stable.TransferFrom(e.moduleAddress, caller, e.moduleAddress, amount); err != nil {
		return fmt.Errorf("market: escrow offer: %w", err)
	}
	offers = append(offers, Offer{Offerer: callerBytes, Amount: amount})
	if err := e.state.PutMarketOffers(tokenID, offers); err != nil {
		return err
	}
	e.emitter.Emit(events.MarketOfferMade{Offerer: callerBytes, TokenID: tokenID, Amount: amount})
	return nil
}

// AcceptOffer settles a listed position against an escrowed offer instead
// of the ask price. Remaining offers stay escrowed for their offerers to
// cancel.
func (e *Engine) AcceptOffer(caller crypto.Address, tokenID uint64, offerer crypto.Address) error {
	if err := e.ready(); err != nil {
		return err
	}
	listing, err := e.activeListing(tokenID)
	if err != nil {
		return err
	}
	seller := crypto.MustNewAddress(crypto.RelicPrefix, listing.Seller[:])
	if !caller.Equal(seller) {
		return errNotSeller
	}
	offer, rest, err := e.takeOffer(tokenID, offerer)
	if err != nil {
		return err
	}
	if err := e.stable.Transfer(e.moduleAddress, seller, offer.Amount); err != nil {
		return fmt.Errorf("market: pay seller: %w", err)
	}
	if err := e.registry.TransferFrom(e.moduleAddress, e.moduleAddress, offerer, tokenID); err != nil {
		return fmt.Errorf("market: deliver token: %w", err)
	}
	if err := e.state.DeleteMarketListing(tokenID); err != nil {
		return err
	}
	if err := e.state.PutMarketOffers(tokenID, rest); err != nil {
		return err
	}
	if err := e.recordTrade(offer.Amount); err != nil {
		return err
	}
	e.emitter.Emit(events.MarketOfferAccepted{
		Seller:  listing.Seller,
		Offerer: offer.Offerer,
		TokenID: tokenID,
		Amount:  offer.Amount,
	})
	return nil
}

// CancelOffer refunds the caller's escrowed bid.
func (e *Engine) CancelOffer(caller crypto.Address, tokenID uint64) error {
	if err := e.ready(); err != nil {
		return err
	}
	offer, rest, err := e.takeOffer(tokenID, caller)
	if err != nil {
		return err
	}
	if err := e.stable.Transfer(e.moduleAddress, caller, offer.Amount); err != nil {
		return fmt.Errorf("market: refund offer: %w", err)
	}
	if err := e.state.PutMarketOffers(tokenID, rest); err != nil {
		return err
	}
	e.emitter.Emit(events.MarketOfferCancelled{Offerer: offer.Offerer, TokenID: tokenID, Amount: offer.Amount})
	return nil
}

// Pause blocks new listings.
func (e *Engine) Pause(caller crypto.Address) error {
	return e.setPaused(caller, true)
}

// Unpause reopens listings.
func (e *Engine) Unpause(caller crypto.Address) error {
	return e.setPaused(caller, false)
}

func (e *Engine) setPaused(caller crypto.Address, paused bool) error {
	if e.state == nil {
		return errNilState
	}
	if !caller.Equal(e.owner) {
		return errNotOwner
	}
	current, err := e.state.MarketPaused()
	if err != nil {
		return err
	}
	if current == paused {
		return nil
	}
	if err := e.state.SetMarketPaused(paused); err != nil {
		return err
	}
	e.emitter.Emit(events.MarketPaused{Paused: paused})
	return nil
}

// Paused reports whether new listings are blocked.
func (e *Engine) Paused() (bool, error) {
	if e.state == nil {
		return false, errNilState
	}
	return e.state.MarketPaused()
}

// ListingOf returns the active listing for tokenID, nil when not listed.
func (e *Engine) ListingOf(tokenID uint64) (*Listing, error) {
	if e.state == nil {
		return nil, errNilState
	}
	return e.state.MarketListing(tokenID)
}

// OffersOn returns the escrowed offers for tokenID.
func (e *Engine) OffersOn(tokenID uint64) ([]Offer, error) {
	if e.state == nil {
		return nil, errNilState
	}
	return e.state.MarketOffers(tokenID)
}

// StatsView returns the running trade aggregate.
func (e *Engine) StatsView() (*Stats, error) {
	if e.state == nil {
		return nil, errNilState
	}
	return e.loadStats()
}

func (e *Engine) activeListing(tokenID uint64) (*Listing, error) {
	listing, err := e.state.MarketListing(tokenID)
	if err != nil {
		return nil, err
	}
	if listing == nil {
		return nil, errNotListed
	}
	return listing, nil
}

func (e *Engine) takeOffer(tokenID uint64, offerer crypto.Address) (Offer, []Offer, error) {
	offers, err := e.state.MarketOffers(tokenID)
	if err != nil {
		return Offer{}, nil, err
	}
	target := addrBytes(offerer)
	for i, offer := range offers {
		if offer.Offerer == target {
			rest := append(append([]Offer(nil), offers[:i]...), offers[i+1:]...)
			return offer, rest, nil
		}
	}
	return Offer{}, nil, errNoOffer
}

func (e *Engine) loadStats() (*Stats, error) {
	stats, err := e.state.MarketStats()
	if err != nil {
		return nil, err
	}
	if stats == nil {
		stats = &Stats{}
	}
	if stats.TotalVolume == nil {
		stats.TotalVolume = big.NewInt(0)
	}
	return stats, nil
}

func (e *Engine) recordTrade(price *big.Int) error {
	stats, err := e.loadStats()
	if err != nil {
		return err
	}
	stats.TotalVolume = new(big.Int).Add(stats.TotalVolume, price)
	stats.TotalTrades++
	if stats.HighPrice == nil || price.Cmp(stats.HighPrice) > 0 {
		stats.HighPrice = new(big.Int).Set(price)
	}
	if stats.LowPrice == nil || price.Cmp(stats.LowPrice) < 0 {
		stats.LowPrice = new(big.Int).Set(price)
	}
	return e.state.PutMarketStats(stats)
}

func addrBytes(addr crypto.Address) [20]byte {
	var out [20]byte
	copy(out[:], addr.Bytes())
	return out
}
