package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strconv"

	"relicledger/core/types"
	"relicledger/crypto"
	"relicledger/native/insurance"
	"relicledger/native/market"
	"relicledger/native/rateoracle"
	"relicledger/native/relic"
	"relicledger/native/rwa"
	"relicledger/native/vault"
	"relicledger/storage"
)

// Key prefixes partition the flat key-value store into per-module record
// families.
const (
	prefixAccount       = "acct/"
	prefixAllowance     = "allow/"
	prefixSupply        = "supply/"
	prefixPosition      = "pos/"
	keyNextTokenID      = "pos/next"
	prefixOwnerTokens   = "posown/"
	prefixOperator      = "posop/"
	keyOracle           = "oracle"
	keyAdapter          = "rwa"
	keyVault            = "vault"
	prefixVaultCheck    = "vault/cp/"
	prefixInsStaker     = "ins/staker/"
	keyInsPool          = "ins/pool"
	prefixMarketListing = "mkt/listing/"
	prefixMarketOffers  = "mkt/offers/"
	keyMarketStats      = "mkt/stats"
	keyMarketPaused     = "mkt/paused"
)

// Manager persists every engine's records as keyed JSON documents over a
// storage backend. It satisfies the narrow state interfaces of the token
// ledger, position registry, yield adapter, vault, oracle, insurance pool
// and marketplace. Callers serialize access; the Manager itself does no
// locking.
type Manager struct {
	db storage.Database
}

// NewManager wraps a storage backend.
func NewManager(db storage.Database) *Manager {
	return &Manager{db: db}
}

// get unmarshals the record at key into out, reporting false when absent.
func (m *Manager) get(key string, out any) (bool, error) {
	raw, err := m.db.Get([]byte(key))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, fmt.Errorf("state: decode %q: %w", key, err)
	}
	return true, nil
}

func (m *Manager) put(key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("state: encode %q: %w", key, err)
	}
	return m.db.Put([]byte(key), raw)
}

// --- token ledger state ---

// GetAccount loads the account record for addr, creating a fresh zero
// account when none exists yet.
func (m *Manager) GetAccount(addr crypto.Address) (*types.Account, error) {
	account := types.NewAccount()
	if _, err := m.get(prefixAccount+addr.String(), account); err != nil {
		return nil, err
	}
	if account.BalanceStable == nil {
		account.BalanceStable = big.NewInt(0)
	}
	if account.BalanceReward == nil {
		account.BalanceReward = big.NewInt(0)
	}
	return account, nil
}

// PutAccount persists the account record for addr.
func (m *Manager) PutAccount(addr crypto.Address, account *types.Account) error {
	return m.put(prefixAccount+addr.String(), account)
}

func allowanceKey(asset uint8, owner, spender crypto.Address) string {
	return prefixAllowance + strconv.Itoa(int(asset)) + "/" + owner.String() + "/" + spender.String()
}

// Allowance reads an approval, zero when never set.
func (m *Manager) Allowance(asset uint8, owner, spender crypto.Address) (*big.Int, error) {
	amount := new(big.Int)
	ok, err := m.get(allowanceKey(asset, owner, spender), amount)
	if err != nil {
		return nil, err
	}
	if !ok {
		return big.NewInt(0), nil
	}
	return amount, nil
}

// SetAllowance persists an approval.
func (m *Manager) SetAllowance(asset uint8, owner, spender crypto.Address, amount *big.Int) error {
	return m.put(allowanceKey(asset, owner, spender), amount)
}

// TokenSupply reads the tracked supply of an asset leg.
func (m *Manager) TokenSupply(asset uint8) (*big.Int, error) {
	supply := new(big.Int)
	ok, err := m.get(prefixSupply+strconv.Itoa(int(asset)), supply)
	if err != nil {
		return nil, err
	}
	if !ok {
		return big.NewInt(0), nil
	}
	return supply, nil
}

// SetTokenSupply persists the tracked supply of an asset leg.
func (m *Manager) SetTokenSupply(asset uint8, supply *big.Int) error {
	return m.put(prefixSupply+strconv.Itoa(int(asset)), supply)
}

// --- position registry state ---

// GetPosition loads a position record, nil when the token is unknown.
func (m *Manager) GetPosition(tokenID uint64) (*relic.Position, error) {
	position := new(relic.Position)
	ok, err := m.get(prefixPosition+strconv.FormatUint(tokenID, 10), position)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return position, nil
}

// PutPosition persists a position record.
func (m *Manager) PutPosition(tokenID uint64, position *relic.Position) error {
	return m.put(prefixPosition+strconv.FormatUint(tokenID, 10), position)
}

// NextTokenID reads the mint counter, zero when never set.
func (m *Manager) NextTokenID() (uint64, error) {
	var id uint64
	if _, err := m.get(keyNextTokenID, &id); err != nil {
		return 0, err
	}
	return id, nil
}

// SetNextTokenID persists the mint counter.
func (m *Manager) SetNextTokenID(id uint64) error {
	return m.put(keyNextTokenID, id)
}

// OwnerTokens reads the enumeration index for addr.
func (m *Manager) OwnerTokens(addr crypto.Address) ([]uint64, error) {
	var tokens []uint64
	if _, err := m.get(prefixOwnerTokens+addr.String(), &tokens); err != nil {
		return nil, err
	}
	return tokens, nil
}

// SetOwnerTokens persists the enumeration index for addr.
func (m *Manager) SetOwnerTokens(addr crypto.Address, tokens []uint64) error {
	return m.put(prefixOwnerTokens+addr.String(), tokens)
}

// OperatorApproval reads an operator grant.
func (m *Manager) OperatorApproval(owner, operator crypto.Address) (bool, error) {
	var approved bool
	if _, err := m.get(prefixOperator+owner.String()+"/"+operator.String(), &approved); err != nil {
		return false, err
	}
	return approved, nil
}

// SetOperatorApproval persists an operator grant.
func (m *Manager) SetOperatorApproval(owner, operator crypto.Address, approved bool) error {
	return m.put(prefixOperator+owner.String()+"/"+operator.String(), approved)
}

// --- yield adapter state ---

// AdapterState loads the adapter record, nil on first use.
func (m *Manager) AdapterState() (*rwa.State, error) {
	st := new(rwa.State)
	ok, err := m.get(keyAdapter, st)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return st, nil
}

// PutAdapterState persists the adapter record.
func (m *Manager) PutAdapterState(st *rwa.State) error {
	return m.put(keyAdapter, st)
}

// --- vault state ---

// VaultState loads the vault record, nil on first use.
func (m *Manager) VaultState() (*vault.State, error) {
	st := new(vault.State)
	ok, err := m.get(keyVault, st)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return st, nil
}

// PutVaultState persists the vault record.
func (m *Manager) PutVaultState(st *vault.State) error {
	return m.put(keyVault, st)
}

// VaultCheckpoint reads a position's last-claim timestamp, zero when never
// checkpointed.
func (m *Manager) VaultCheckpoint(tokenID uint64) (int64, error) {
	var ts int64
	if _, err := m.get(prefixVaultCheck+strconv.FormatUint(tokenID, 10), &ts); err != nil {
		return 0, err
	}
	return ts, nil
}

// PutVaultCheckpoint persists a position's last-claim timestamp.
func (m *Manager) PutVaultCheckpoint(tokenID uint64, ts int64) error {
	return m.put(prefixVaultCheck+strconv.FormatUint(tokenID, 10), ts)
}

// --- oracle state ---

// OracleState loads the oracle record, nil on first use.
func (m *Manager) OracleState() (*rateoracle.State, error) {
	st := new(rateoracle.State)
	ok, err := m.get(keyOracle, st)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return st, nil
}

// PutOracleState persists the oracle record.
func (m *Manager) PutOracleState(st *rateoracle.State) error {
	return m.put(keyOracle, st)
}

// --- insurance pool state ---

// InsuranceStaker loads a staker record, nil when the address never staked.
func (m *Manager) InsuranceStaker(addr crypto.Address) (*insurance.Staker, error) {
	staker := new(insurance.Staker)
	ok, err := m.get(prefixInsStaker+addr.String(), staker)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return staker, nil
}

// PutInsuranceStaker persists a staker record.
func (m *Manager) PutInsuranceStaker(addr crypto.Address, staker *insurance.Staker) error {
	return m.put(prefixInsStaker+addr.String(), staker)
}

// InsurancePool loads the aggregate pool record, nil on first use.
func (m *Manager) InsurancePool() (*insurance.Pool, error) {
	pool := new(insurance.Pool)
	ok, err := m.get(keyInsPool, pool)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return pool, nil
}

// PutInsurancePool persists the aggregate pool record.
func (m *Manager) PutInsurancePool(pool *insurance.Pool) error {
	return m.put(keyInsPool, pool)
}

// --- marketplace state ---

// MarketListing loads the listing for tokenID, nil when not listed.
func (m *Manager) MarketListing(tokenID uint64) (*market.Listing, error) {
	listing := new(market.Listing)
	ok, err := m.get(prefixMarketListing+strconv.FormatUint(tokenID, 10), listing)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return listing, nil
}

// PutMarketListing persists a listing.
func (m *Manager) PutMarketListing(tokenID uint64, listing *market.Listing) error {
	return m.put(prefixMarketListing+strconv.FormatUint(tokenID, 10), listing)
}

// DeleteMarketListing clears a settled or withdrawn listing.
func (m *Manager) DeleteMarketListing(tokenID uint64) error {
	return m.db.Delete([]byte(prefixMarketListing + strconv.FormatUint(tokenID, 10)))
}

// MarketOffers loads the escrowed offers on tokenID.
func (m *Manager) MarketOffers(tokenID uint64) ([]market.Offer, error) {
	var offers []market.Offer
	if _, err := m.get(prefixMarketOffers+strconv.FormatUint(tokenID, 10), &offers); err != nil {
		return nil, err
	}
	return offers, nil
}

// PutMarketOffers persists the escrowed offers on tokenID.
func (m *Manager) PutMarketOffers(tokenID uint64, offers []market.Offer) error {
	return m.put(prefixMarketOffers+strconv.FormatUint(tokenID, 10), offers)
}

// MarketStats loads the running trade aggregate, nil before the first trade.
func (m *Manager) MarketStats() (*market.Stats, error) {
	stats := new(market.Stats)
	ok, err := m.get(keyMarketStats, stats)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return stats, nil
}

// PutMarketStats persists the running trade aggregate.
func (m *Manager) PutMarketStats(stats *market.Stats) error {
	return m.put(keyMarketStats, stats)
}

// MarketPaused reads the listing pause flag.
func (m *Manager) MarketPaused() (bool, error) {
	var paused bool
	if _, err := m.get(keyMarketPaused, &paused); err != nil {
		return false, err
	}
	return paused, nil
}

// SetMarketPaused persists the listing pause flag.
func (m *Manager) SetMarketPaused(paused bool) error {
	return m.put(keyMarketPaused, paused)
}
