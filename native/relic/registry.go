package relic

import (
	"errors"
	"fmt"
	"math/big"
	"time"

	"relicledger/crypto"
)

var (
	errNilState        = errors.New("relic registry: state not configured")
	errNotOwner        = errors.New("relic registry: caller is not the owner")
	errUnknownToken    = errors.New("relic registry: unknown token")
	errNotTokenOwner   = errors.New("relic registry: caller does not own token")
	errNotAuthorized   = errors.New("relic registry: caller not authorized for token")
	errIndexOutOfRange = errors.New("relic registry: index out of range")
)

// Meta holds the immutable terms recorded at mint time. It never changes for
// the life of the position; the accrual checkpoint lives in the vault, keyed
// by token id.
type Meta struct {
	LockDays  uint32   `json:"lockDays"`
	Principal *big.Int `json:"principal"`
	LockEnd   int64    `json:"lockEnd"`
}

// Position is the stored registry record for one token.
type Position struct {
	Owner    crypto.Address
	Approved crypto.Address
	Meta     Meta
}

// registryState is the persistence surface for the registry.
type registryState interface {
	GetPosition(tokenID uint64) (*Position, error)
	PutPosition(tokenID uint64, position *Position) error
	NextTokenID() (uint64, error)
	SetNextTokenID(id uint64) error
	OwnerTokens(addr crypto.Address) ([]uint64, error)
	SetOwnerTokens(addr crypto.Address, tokens []uint64) error
	OperatorApproval(owner, operator crypto.Address) (bool, error)
	SetOperatorApproval(owner, operator crypto.Address, approved bool) error
}

// Registry implements the non-fungible position ledger: owner-gated minting
// with immutable metadata, transfer/approval mechanics and enumeration. Token
// ids are sequential starting at 1 and positions are never burned.
type Registry struct {
	name    string
	symbol  string
	baseURI string
	owner   crypto.Address
	state   registryState
	nowFn   func() time.Time
}

// NewRegistry constructs a registry with the given metadata base URI.
func NewRegistry(name, symbol, baseURI string) *Registry {
	return &Registry{
		name:    name,
		symbol:  symbol,
		baseURI: baseURI,
		nowFn:   func() time.Time { return time.Now().UTC() },
	}
}

// SetState wires the registry to the persistence layer.
func (r *Registry) SetState(state registryState) { r.state = state }

// SetOwner assigns the mint authority. Deployment wiring transfers registry
// ownership to the vault module address.
func (r *Registry) SetOwner(owner crypto.Address) { r.owner = owner }

// Owner returns the current mint authority.
func (r *Registry) Owner() crypto.Address { return r.owner }

// SetNowFunc overrides the clock used for lock-end computation. Nil restores
// the default UTC clock.
func (r *Registry) SetNowFunc(now func() time.Time) {
	if now == nil {
		r.nowFn = func() time.Time { return time.Now().UTC() }
		return
	}
	r.nowFn = now
}

// TransferOwnership reassigns the mint authority.
func (r *Registry) TransferOwnership(caller, newOwner crypto.Address) error {
	if !caller.Equal(r.owner) {
		return errNotOwner
	}
	r.owner = newOwner
	return nil
}

func (r *Registry) Name() string   { return r.name }
func (r *Registry) Symbol() string { return r.symbol }

// SetBaseURI updates the metadata base. Owner only; an empty base is allowed
// and yields empty token URIs.
func (r *Registry) SetBaseURI(caller crypto.Address, baseURI string) error {
	if !caller.Equal(r.owner) {
		return errNotOwner
	}
	r.baseURI = baseURI
	return nil
}

// Mint records a new position for recipient and returns its token id. Only
// the registry owner (the vault) may mint. Lock end is computed from the
// registry clock.
func (r *Registry) Mint(caller, to crypto.Address, lockDays uint32, principal *big.Int) (uint64, error) {
	if r == nil || r.state == nil {
		return 0, errNilState
	}
	if !caller.Equal(r.owner) {
		return 0, errNotOwner
	}
	if principal == nil {
		principal = big.NewInt(0)
	}
	next, err := r.state.NextTokenID()
	if err != nil {
		return 0, err
	}
	if next == 0 {
		next = 1
	}
	lockEnd := r.nowFn().Unix() + int64(lockDays)*86400
	position := &Position{
		Owner: to,
		Meta: Meta{
			LockDays:  lockDays,
			Principal: new(big.Int).Set(principal),
			LockEnd:   lockEnd,
		},
	}
	if err := r.state.PutPosition(next, position); err != nil {
		return 0, err
	}
	if err := r.appendOwnerToken(to, next); err != nil {
		return 0, err
	}
	if err := r.state.SetNextTokenID(next + 1); err != nil {
		return 0, err
	}
	return next, nil
}

// OwnerOf returns the current holder of a token.
func (r *Registry) OwnerOf(tokenID uint64) (crypto.Address, error) {
	position, err := r.position(tokenID)
	if err != nil {
		return crypto.Address{}, err
	}
	return position.Owner, nil
}

// MetaOf returns the immutable mint-time terms for a token.
func (r *Registry) MetaOf(tokenID uint64) (Meta, error) {
	position, err := r.position(tokenID)
	if err != nil {
		return Meta{}, err
	}
	meta := position.Meta
	if meta.Principal != nil {
		meta.Principal = new(big.Int).Set(meta.Principal)
	}
	return meta, nil
}

// TokenURI renders "{baseURI}{tokenId}.json", or an empty string when no base
// is configured.
func (r *Registry) TokenURI(tokenID uint64) (string, error) {
	if _, err := r.position(tokenID); err != nil {
		return "", err
	}
	if r.baseURI == "" {
		return "", nil
	}
	return fmt.Sprintf("%s%d.json", r.baseURI, tokenID), nil
}

// TotalSupply returns the number of minted positions.
func (r *Registry) TotalSupply() (uint64, error) {
	if r == nil || r.state == nil {
		return 0, errNilState
	}
	next, err := r.state.NextTokenID()
	if err != nil {
		return 0, err
	}
	if next == 0 {
		return 0, nil
	}
	return next - 1, nil
}

// TokenByIndex maps a zero-based enumeration index to a token id. Ids are
// dense and sequential because positions are never burned.
func (r *Registry) TokenByIndex(index uint64) (uint64, error) {
	supply, err := r.TotalSupply()
	if err != nil {
		return 0, err
	}
	if index >= supply {
		return 0, errIndexOutOfRange
	}
	return index + 1, nil
}

// TokenOfOwnerByIndex enumerates an owner's holdings.
func (r *Registry) TokenOfOwnerByIndex(owner crypto.Address, index uint64) (uint64, error) {
	if r == nil || r.state == nil {
		return 0, errNilState
	}
	tokens, err := r.state.OwnerTokens(owner)
	if err != nil {
		return 0, err
	}
	if index >= uint64(len(tokens)) {
		return 0, errIndexOutOfRange
	}
	return tokens[index], nil
}

// BalanceOf returns the number of tokens held by an address.
func (r *Registry) BalanceOf(owner crypto.Address) (uint64, error) {
	if r == nil || r.state == nil {
		return 0, errNilState
	}
	tokens, err := r.state.OwnerTokens(owner)
	if err != nil {
		return 0, err
	}
	return uint64(len(tokens)), nil
}

// Approve authorizes spender to transfer one token. Caller must hold it.
func (r *Registry) Approve(caller, spender crypto.Address, tokenID uint64) error {
	position, err := r.position(tokenID)
	if err != nil {
		return err
	}
	if !caller.Equal(position.Owner) {
		return errNotTokenOwner
	}
	position.Approved = spender
	return r.state.PutPosition(tokenID, position)
}

// SetApprovalForAll authorizes operator for every token held by caller.
func (r *Registry) SetApprovalForAll(caller, operator crypto.Address, approved bool) error {
	if r == nil || r.state == nil {
		return errNilState
	}
	return r.state.SetOperatorApproval(caller, operator, approved)
}

// TransferFrom moves a token. The caller must be the holder, the approved
// spender, or an approved operator. Metadata travels unchanged; any
// per-token approval is cleared.
func (r *Registry) TransferFrom(caller, from, to crypto.Address, tokenID uint64) error {
	position, err := r.position(tokenID)
	if err != nil {
		return err
	}
	if !position.Owner.Equal(from) {
		return errNotTokenOwner
	}
	if !caller.Equal(position.Owner) && !caller.Equal(position.Approved) {
		operator, err := r.state.OperatorApproval(position.Owner, caller)
		if err != nil {
			return err
		}
		if !operator {
			return errNotAuthorized
		}
	}
	if err := r.removeOwnerToken(from, tokenID); err != nil {
		return err
	}
	if err := r.appendOwnerToken(to, tokenID); err != nil {
		return err
	}
	position.Owner = to
	position.Approved = crypto.Address{}
	return r.state.PutPosition(tokenID, position)
}

func (r *Registry) position(tokenID uint64) (*Position, error) {
	if r == nil || r.state == nil {
		return nil, errNilState
	}
	position, err := r.state.GetPosition(tokenID)
	if err != nil {
		return nil, err
	}
	if position == nil {
		return nil, errUnknownToken
	}
	if position.Meta.Principal == nil {
		position.Meta.Principal = big.NewInt(0)
	}
	return position, nil
}

func (r *Registry) appendOwnerToken(owner crypto.Address, tokenID uint64) error {
	tokens, err := r.state.OwnerTokens(owner)
	if err != nil {
		return err
	}
	return r.state.SetOwnerTokens(owner, append(tokens, tokenID))
}

func (r *Registry) removeOwnerToken(owner crypto.Address, tokenID uint64) error {
	tokens, err := r.state.OwnerTokens(owner)
	if err != nil {
		return err
	}
	filtered := tokens[:0]
	for _, id := range tokens {
		if id != tokenID {
			filtered = append(filtered, id)
		}
	}
	return r.state.SetOwnerTokens(owner, filtered)
}
