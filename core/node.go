package core

import (
	"errors"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"relicledger/core/events"
	"relicledger/core/state"
	"relicledger/core/types"
	"relicledger/crypto"
	"relicledger/native/common"
	"relicledger/native/insurance"
	"relicledger/native/market"
	"relicledger/native/rateoracle"
	"relicledger/native/relic"
	"relicledger/native/rwa"
	"relicledger/native/token"
	"relicledger/native/vault"
	"relicledger/observability/metrics"
	"relicledger/storage"
)

// Module names used by the transaction-surface pause guard.
const (
	ModuleVault     = "vault"
	ModuleOracle    = "oracle"
	ModuleInsurance = "insurance"
	ModuleMarket    = "market"
	ModuleToken     = "token"
)

// blockSeconds is the assumed block cadence. The insurance pool's reward
// accrual counts blocks at this rate from the node's genesis time.
const blockSeconds = 12

// eventRingSize bounds the in-memory event history served over RPC.
const eventRingSize = 1024

var (
	errNotNodeOwner  = errors.New("core: caller is not the node owner")
	errUnknownModule = errors.New("core: unknown module name")
	errUnknownAsset  = errors.New("core: unknown asset symbol")
)

// Config carries the deployment parameters for a node.
type Config struct {
	// Owner is the governance address for every engine and the recipient
	// of vault fees.
	Owner crypto.Address
	// BaseURI seeds the position registry's token URI prefix.
	BaseURI string
	// AdapterGrowthBps is the simulated annual growth rate of the yield
	// adapter's custody balance.
	AdapterGrowthBps uint64
	// Genesis anchors block-height derivation. Zero means time.Now at boot.
	Genesis time.Time
}

// Node owns the storage backend, the state manager and every accounting
// engine. A single mutex serializes all state transitions; engines never
// run concurrently with each other.
type Node struct {
	mu sync.Mutex

	db      storage.Database
	manager *state.Manager

	stable   *token.Ledger
	reward   *token.Ledger
	registry *relic.Registry
	adapter  *rwa.Adapter

	vault     *vault.Engine
	oracle    *rateoracle.Engine
	insurance *insurance.Engine
	market    *market.Engine

	owner   crypto.Address
	paused  map[string]bool
	eventsq []types.Event
	genesis time.Time
	nowFn   func() time.Time
	log     *slog.Logger
	metrics *metrics.LedgerMetrics
}

// collector funnels typed engine events into the node's ring buffer.
type collector struct{ node *Node }

func (c collector) Emit(evt events.Event) {
	payload, ok := evt.(interface{ Event() *types.Event })
	if !ok {
		return
	}
	c.node.appendEvent(payload.Event())
}

// NewNode wires the ledger: ledgers and registry over the shared state
// manager, engines bound to their module custody addresses, reward minting
// and position minting authority held by the vault.
func NewNode(db storage.Database, cfg Config, log *slog.Logger) (*Node, error) {
	if log == nil {
		log = slog.Default()
	}
	genesis := cfg.Genesis
	if genesis.IsZero() {
		genesis = time.Now().UTC()
	}

	n := &Node{
		db:      db,
		manager: state.NewManager(db),
		owner:   cfg.Owner,
		paused:  make(map[string]bool),
		genesis: genesis,
		nowFn:   func() time.Time { return time.Now().UTC() },
		log:     log,
		metrics: metrics.Ledger(),
	}
	sink := collector{node: n}

	vaultAddr := crypto.ModuleAddress(ModuleVault)
	insuranceAddr := crypto.ModuleAddress(ModuleInsurance)
	marketAddr := crypto.ModuleAddress(ModuleMarket)
	adapterAddr := crypto.ModuleAddress("rwa")

	n.stable = token.NewLedger(token.AssetStable, "Relic Stable", "USDC", 6)
	n.stable.SetState(n.manager)
	n.stable.SetOwner(cfg.Owner)

	n.reward = token.NewLedger(token.AssetReward, "Relic Yield Token", "RYT", 18)
	n.reward.SetState(n.manager)
	n.reward.SetOwner(vaultAddr)

	n.registry = relic.NewRegistry("Relic Position", "RELIC", cfg.BaseURI)
	n.registry.SetState(n.manager)
	n.registry.SetOwner(vaultAddr)
	n.registry.SetNowFunc(n.now)

	n.adapter = rwa.NewAdapter(adapterAddr, cfg.AdapterGrowthBps)
	n.adapter.SetState(n.manager)
	n.adapter.SetStableLedger(n.stable)
	n.adapter.SetNowFunc(n.now)

	n.vault = vault.NewEngine(cfg.Owner, vaultAddr)
	n.vault.SetState(n.manager)
	n.vault.SetStableLedger(n.stable)
	n.vault.SetRegistry(n.registry)
	n.vault.SetRewardMinter(n.reward)
	n.vault.SetAdapter(n.adapter)
	n.vault.SetEmitter(sink)
	n.vault.SetNowFunc(n.now)

	n.oracle = rateoracle.NewEngine(cfg.Owner)
	n.oracle.SetState(n.manager)
	n.oracle.SetEmitter(sink)
	n.oracle.SetNowFunc(n.now)

	n.insurance = insurance.NewEngine(cfg.Owner, insuranceAddr)
	n.insurance.SetState(n.manager)
	n.insurance.SetStableLedger(n.stable)
	n.insurance.SetEmitter(sink)

	n.market = market.NewEngine(cfg.Owner, marketAddr)
	n.market.SetState(n.manager)
	n.market.SetStableLedger(n.stable)
	n.market.SetRegistry(n.registry)
	n.market.SetEmitter(sink)

	if err := n.oracle.Initialize(); err != nil {
		return nil, err
	}
	return n, nil
}

// SetNowFunc overrides the node clock. Engines share the same source.
func (n *Node) SetNowFunc(now func() time.Time) {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.nowFn = now
}

func (n *Node) now() time.Time { return n.nowFn() }

// blockHeight derives the accrual block counter from wall time at the
// assumed cadence.
func (n *Node) blockHeight() uint64 {
	elapsed := n.nowFn().Sub(n.genesis)
	if elapsed <= 0 {
		return 0
	}
	return uint64(elapsed / (blockSeconds * time.Second))
}

func (n *Node) appendEvent(evt *types.Event) {
	if evt == nil {
		return
	}
	n.eventsq = append(n.eventsq, *evt)
	if len(n.eventsq) > eventRingSize {
		n.eventsq = n.eventsq[len(n.eventsq)-eventRingSize:]
	}
}

// RecentEvents returns up to limit most recent events, newest last.
func (n *Node) RecentEvents(limit int) []types.Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	if limit <= 0 || limit > len(n.eventsq) {
		limit = len(n.eventsq)
	}
	out := make([]types.Event, limit)
	copy(out, n.eventsq[len(n.eventsq)-limit:])
	return out
}

// IsPaused implements the pause view consulted by transaction guards.
func (n *Node) IsPaused(module string) bool {
	return n.paused[module]
}

// SetModulePaused flips the transaction-surface switch for a whole module.
// This sits above the engines' own pause flags: a paused module rejects
// every mutating call.
func (n *Node) SetModulePaused(caller crypto.Address, module string, paused bool) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if !caller.Equal(n.owner) {
		return errNotNodeOwner
	}
	switch module {
	case ModuleVault, ModuleOracle, ModuleInsurance, ModuleMarket, ModuleToken:
	default:
		return errUnknownModule
	}
	n.paused[module] = paused
	n.log.Info("module pause flipped", "module", module, "paused", paused)
	return nil
}

// ModuleAccount resolves a module name to its custody address, the spender
// that allowance grants target.
func (n *Node) ModuleAccount(module string) (crypto.Address, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	switch module {
	case ModuleVault:
		return n.vault.ModuleAddress(), nil
	case ModuleInsurance:
		return n.insurance.ModuleAddress(), nil
	case ModuleMarket:
		return n.market.ModuleAddress(), nil
	default:
		return crypto.Address{}, errUnknownModule
	}
}

// --- token surface ---

// ledgerFor resolves an asset symbol to its ledger.
func (n *Node) ledgerFor(symbol string) (*token.Ledger, error) {
	switch symbol {
	case n.stable.Symbol():
		return n.stable, nil
	case n.reward.Symbol():
		return n.reward, nil
	default:
		return nil, errUnknownAsset
	}
}

// TokenBalance reads a holder's balance of the named asset.
func (n *Node) TokenBalance(symbol string, addr crypto.Address) (*big.Int, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	ledger, err := n.ledgerFor(symbol)
	if err != nil {
		return nil, err
	}
	return ledger.BalanceOf(addr)
}

// TokenSupply reads the tracked supply of the named asset.
func (n *Node) TokenSupply(symbol string) (*big.Int, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	ledger, err := n.ledgerFor(symbol)
	if err != nil {
		return nil, err
	}
	return ledger.TotalSupply()
}

// TokenTransfer moves funds between accounts.
func (n *Node) TokenTransfer(symbol string, from, to crypto.Address, amount *big.Int) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if err := common.Guard(n, ModuleToken); err != nil {
		return err
	}
	ledger, err := n.ledgerFor(symbol)
	if err != nil {
		return err
	}
	return ledger.Transfer(from, to, amount)
}

// TokenMint issues new units of the named asset; the ledger enforces its
// mint authority.
func (n *Node) TokenMint(symbol string, caller, to crypto.Address, amount *big.Int) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if err := common.Guard(n, ModuleToken); err != nil {
		return err
	}
	ledger, err := n.ledgerFor(symbol)
	if err != nil {
		return err
	}
	return ledger.Mint(caller, to, amount)
}

// TokenApprove authorizes a spender for up to amount of the caller's
// balance. Module custody accounts are the usual spenders: vault deposits,
// insurance stakes, and market purchases pull funds through this allowance.
func (n *Node) TokenApprove(symbol string, owner, spender crypto.Address, amount *big.Int) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if err := common.Guard(n, ModuleToken); err != nil {
		return err
	}
	ledger, err := n.ledgerFor(symbol)
	if err != nil {
		return err
	}
	return ledger.Approve(owner, spender, amount)
}

// TokenAllowance reads the remaining spend authorization.
func (n *Node) TokenAllowance(symbol string, owner, spender crypto.Address) (*big.Int, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	ledger, err := n.ledgerFor(symbol)
	if err != nil {
		return nil, err
	}
	return ledger.Allowance(owner, spender)
}

// TokenBurn destroys units held by the caller.
func (n *Node) TokenBurn(symbol string, holder crypto.Address, amount *big.Int) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if err := common.Guard(n, ModuleToken); err != nil {
		return err
	}
	ledger, err := n.ledgerFor(symbol)
	if err != nil {
		return err
	}
	return ledger.Burn(holder, amount)
}

// --- position registry surface ---

// PositionOwner reads the holder of a position.
func (n *Node) PositionOwner(tokenID uint64) (crypto.Address, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.registry.OwnerOf(tokenID)
}

// PositionMeta reads the immutable terms of a position.
func (n *Node) PositionMeta(tokenID uint64) (relic.Meta, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.registry.MetaOf(tokenID)
}

// PositionURI reads the metadata URI of a position.
func (n *Node) PositionURI(tokenID uint64) (string, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.registry.TokenURI(tokenID)
}

// PositionCount reads the number of minted positions.
func (n *Node) PositionCount() (uint64, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.registry.TotalSupply()
}

// PositionsOf enumerates the positions held by addr.
func (n *Node) PositionsOf(addr crypto.Address) ([]uint64, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	count, err := n.registry.BalanceOf(addr)
	if err != nil {
		return nil, err
	}
	out := make([]uint64, 0, count)
	for i := uint64(0); i < count; i++ {
		id, err := n.registry.TokenOfOwnerByIndex(addr, i)
		if err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, nil
}

// PositionTransfer moves a position between holders, clearing its approval.
func (n *Node) PositionTransfer(caller, from, to crypto.Address, tokenID uint64) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.registry.TransferFrom(caller, from, to, tokenID)
}

// PositionApprove grants single-token transfer rights.
func (n *Node) PositionApprove(caller, spender crypto.Address, tokenID uint64) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.registry.Approve(caller, spender, tokenID)
}

// --- vault surface ---

// VaultMint opens a time-locked position from a gross deposit.
func (n *Node) VaultMint(caller crypto.Address, lockDays uint32, amount *big.Int) (uint64, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if err := common.Guard(n, ModuleVault); err != nil {
		return 0, err
	}
	tokenID, err := n.vault.MintPosition(caller, lockDays, amount)
	if err != nil {
		return 0, err
	}
	n.metrics.ObservePositionMinted()
	if total, terr := n.vault.TotalPrincipal(); terr == nil {
		principal, _ := new(big.Float).SetInt(total).Float64()
		n.metrics.SetTotalPrincipal(principal)
	}
	n.log.Info("position minted", "caller", caller.String(), "tokenId", tokenID, "lockDays", lockDays, "amount", amount.String())
	return tokenID, nil
}

// VaultClaim settles accrued yield on a position.
func (n *Node) VaultClaim(caller crypto.Address, tokenID uint64) (*big.Int, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if err := common.Guard(n, ModuleVault); err != nil {
		return nil, err
	}
	amount, err := n.vault.ClaimYield(caller, tokenID)
	if err != nil {
		return nil, err
	}
	n.metrics.ObserveYieldClaim("base")
	n.log.Info("yield claimed", "caller", caller.String(), "tokenId", tokenID, "amount", amount.String())
	return amount, nil
}

// VaultClaimable reads the reward units a claim would settle now.
func (n *Node) VaultClaimable(tokenID uint64) (*big.Int, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.vault.ViewClaimableYield(tokenID)
}

// VaultTotalPrincipal reads the lifetime gross deposit sum.
func (n *Node) VaultTotalPrincipal() (*big.Int, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.vault.TotalPrincipal()
}

// VaultPaused reads the deposit pause flag.
func (n *Node) VaultPaused() (bool, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.vault.Paused()
}

// VaultSetPaused flips the vault's deposit pause.
func (n *Node) VaultSetPaused(caller crypto.Address, paused bool) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if paused {
		return n.vault.Pause(caller)
	}
	return n.vault.Unpause(caller)
}

// VaultSetAPRSchedule pushes a per-duration base rate schedule.
func (n *Node) VaultSetAPRSchedule(caller crypto.Address, schedule map[uint32]uint64) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.vault.SetBaseAPRSchedule(caller, schedule)
}

// VaultBaseAPR reads the base rate applied to a lock duration.
func (n *Node) VaultBaseAPR(lockDays uint32) (uint64, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.vault.BaseAPR(lockDays)
}

// VaultRescue sweeps a non-stable asset from the vault custody account.
func (n *Node) VaultRescue(caller crypto.Address, symbol string, amount *big.Int) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	ledger, err := n.ledgerFor(symbol)
	if err != nil {
		return err
	}
	return n.vault.RescueTokens(caller, ledger, amount)
}

// --- oracle surface ---

// OracleUpdate overwrites one duration's multiplier.
func (n *Node) OracleUpdate(caller crypto.Address, lockDays uint32, multiplier uint64) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if err := common.Guard(n, ModuleOracle); err != nil {
		return err
	}
	if err := n.oracle.UpdateMultiplier(caller, lockDays, multiplier); err != nil {
		return err
	}
	n.metrics.ObserveOracleUpdate("single")
	return nil
}

// OracleBatchUpdate overwrites all four multipliers atomically.
func (n *Node) OracleBatchUpdate(caller crypto.Address, multipliers []uint64) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if err := common.Guard(n, ModuleOracle); err != nil {
		return err
	}
	if err := n.oracle.BatchUpdateMultipliers(caller, multipliers); err != nil {
		return err
	}
	n.metrics.ObserveOracleUpdate("batch")
	return nil
}

// OracleTogglePause flips the oracle's emergency pause.
func (n *Node) OracleTogglePause(caller crypto.Address) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.oracle.TogglePause(caller)
}

// OracleMultiplier reads the effective multiplier for a duration.
func (n *Node) OracleMultiplier(lockDays uint32) (uint64, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.oracle.GetMultiplier(lockDays)
}

// OracleEffectiveAPR scales a base rate by a duration's multiplier.
func (n *Node) OracleEffectiveAPR(baseAPRBps uint64, lockDays uint32) (uint64, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.oracle.CalculateEffectiveAPR(baseAPRBps, lockDays)
}

// OracleSnapshot reads one history entry.
func (n *Node) OracleSnapshot(index uint64) (rateoracle.Snapshot, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.oracle.GetSnapshot(index)
}

// OracleHistoryLength reads the history size.
func (n *Node) OracleHistoryLength() (uint64, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.oracle.GetHistoryLength()
}

// --- insurance surface ---

func (n *Node) syncInsuranceHeight() {
	n.insurance.SetBlockHeight(n.blockHeight())
}

// InsuranceStake bonds stable funds into the pool.
func (n *Node) InsuranceStake(caller crypto.Address, amount *big.Int) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if err := common.Guard(n, ModuleInsurance); err != nil {
		return err
	}
	n.syncInsuranceHeight()
	if err := n.insurance.Stake(caller, amount); err != nil {
		return err
	}
	n.metrics.ObserveInsuranceAction("stake")
	n.observePoolStaked()
	return nil
}

// InsuranceUnstake releases bonded principal.
func (n *Node) InsuranceUnstake(caller crypto.Address, amount *big.Int) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if err := common.Guard(n, ModuleInsurance); err != nil {
		return err
	}
	n.syncInsuranceHeight()
	if err := n.insurance.Unstake(caller, amount); err != nil {
		return err
	}
	n.metrics.ObserveInsuranceAction("unstake")
	n.observePoolStaked()
	return nil
}

// InsuranceClaimRewards settles the caller's pending rewards.
func (n *Node) InsuranceClaimRewards(caller crypto.Address) (*big.Int, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if err := common.Guard(n, ModuleInsurance); err != nil {
		return nil, err
	}
	n.syncInsuranceHeight()
	reward, err := n.insurance.ClaimRewards(caller)
	if err != nil {
		return nil, err
	}
	n.metrics.ObserveInsuranceAction("claimRewards")
	return reward, nil
}

// InsurancePending reads the reward a claim would settle now.
func (n *Node) InsurancePending(addr crypto.Address) (*big.Int, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.syncInsuranceHeight()
	return n.insurance.PendingRewards(addr)
}

// InsuranceStakeOf reads a staker record.
func (n *Node) InsuranceStakeOf(addr crypto.Address) (*insurance.Staker, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.insurance.StakeOf(addr)
}

// InsurancePayClaim pays pool capital out against a coverage event.
func (n *Node) InsurancePayClaim(caller, recipient crypto.Address, amount *big.Int, reason string) (string, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if err := common.Guard(n, ModuleInsurance); err != nil {
		return "", err
	}
	reference, err := n.insurance.PayClaim(caller, recipient, amount, reason)
	if err != nil {
		return "", err
	}
	n.metrics.ObserveInsuranceAction("payClaim")
	n.log.Info("insurance claim paid", "recipient", recipient.String(), "amount", amount.String(), "reference", reference)
	return reference, nil
}

// InsuranceSetCoverageRatio updates the claimable fraction of capital.
func (n *Node) InsuranceSetCoverageRatio(caller crypto.Address, ratioBps uint64) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.insurance.UpdateCoverageRatio(caller, ratioBps)
}

// InsuranceMaxCoverage reads the current per-claim ceiling.
func (n *Node) InsuranceMaxCoverage() (*big.Int, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.insurance.GetMaxCoverage()
}

// InsurancePoolInfo reads the aggregate pool record.
func (n *Node) InsurancePoolInfo() (*insurance.Pool, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.insurance.PoolInfo()
}

func (n *Node) observePoolStaked() {
	pool, err := n.insurance.PoolInfo()
	if err != nil {
		return
	}
	staked, _ := new(big.Float).SetInt(pool.TotalStaked).Float64()
	n.metrics.SetPoolStaked(staked)
}

// --- marketplace surface ---

// MarketList escrows a position at an ask price.
func (n *Node) MarketList(caller crypto.Address, tokenID uint64, price *big.Int) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if err := common.Guard(n, ModuleMarket); err != nil {
		return err
	}
	return n.market.List(caller, tokenID, price)
}

// MarketUnlist returns an escrowed position to its seller.
func (n *Node) MarketUnlist(caller crypto.Address, tokenID uint64) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if err := common.Guard(n, ModuleMarket); err != nil {
		return err
	}
	return n.market.Unlist(caller, tokenID)
}

// MarketBuy settles a listing at its ask price.
func (n *Node) MarketBuy(caller crypto.Address, tokenID uint64) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if err := common.Guard(n, ModuleMarket); err != nil {
		return err
	}
	listing, err := n.market.ListingOf(tokenID)
	if err != nil {
		return err
	}
	if err := n.market.Buy(caller, tokenID); err != nil {
		return err
	}
	if listing != nil {
		volume, _ := new(big.Float).SetInt(listing.Price).Float64()
		n.metrics.ObserveTrade(volume)
	}
	return nil
}

// MarketMakeOffer escrows a bid on a listed position.
func (n *Node) MarketMakeOffer(caller crypto.Address, tokenID uint64, amount *big.Int) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if err := common.Guard(n, ModuleMarket); err != nil {
		return err
	}
	return n.market.MakeOffer(caller, tokenID, amount)
}

// MarketAcceptOffer settles a listing against an escrowed bid.
func (n *Node) MarketAcceptOffer(caller crypto.Address, tokenID uint64, offerer crypto.Address) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if err := common.Guard(n, ModuleMarket); err != nil {
		return err
	}
	offers, err := n.market.OffersOn(tokenID)
	if err != nil {
		return err
	}
	if err := n.market.AcceptOffer(caller, tokenID, offerer); err != nil {
		return err
	}
	target := offerer.Bytes()
	for _, offer := range offers {
		if string(offer.Offerer[:]) == string(target) {
			volume, _ := new(big.Float).SetInt(offer.Amount).Float64()
			n.metrics.ObserveTrade(volume)
			break
		}
	}
	return nil
}

// MarketCancelOffer refunds an escrowed bid.
func (n *Node) MarketCancelOffer(caller crypto.Address, tokenID uint64) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if err := common.Guard(n, ModuleMarket); err != nil {
		return err
	}
	return n.market.CancelOffer(caller, tokenID)
}

// MarketSetPaused flips the listing pause.
func (n *Node) MarketSetPaused(caller crypto.Address, paused bool) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if paused {
		return n.market.Pause(caller)
	}
	return n.market.Unpause(caller)
}

// MarketListing reads the active listing for a position.
func (n *Node) MarketListing(tokenID uint64) (*market.Listing, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.market.ListingOf(tokenID)
}

// MarketOffers reads the escrowed offers on a position.
func (n *Node) MarketOffers(tokenID uint64) ([]market.Offer, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.market.OffersOn(tokenID)
}

// MarketStats reads the running trade aggregate.
func (n *Node) MarketStats() (*market.Stats, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.market.StatsView()
}

// AdapterAssets reads the adapter's accrued custody value.
func (n *Node) AdapterAssets() (*big.Int, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.adapter.TotalAssets()
}
