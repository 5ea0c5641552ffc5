package vault

import (
	"errors"
	"math/big"
	"testing"
	"time"

	"relicledger/crypto"
	"relicledger/native/relic"
)

type mockVaultState struct {
	st          *State
	checkpoints map[uint64]int64
}

func newMockVaultState() *mockVaultState {
	return &mockVaultState{checkpoints: make(map[uint64]int64)}
}

func (m *mockVaultState) VaultState() (*State, error) { return m.st, nil }

func (m *mockVaultState) PutVaultState(st *State) error {
	m.st = st
	return nil
}

func (m *mockVaultState) VaultCheckpoint(tokenID uint64) (int64, error) {
	return m.checkpoints[tokenID], nil
}

func (m *mockVaultState) PutVaultCheckpoint(tokenID uint64, ts int64) error {
	m.checkpoints[tokenID] = ts
	return nil
}

type mockLedger struct {
	symbol     string
	balances   map[string]*big.Int
	allowances map[string]*big.Int
}

func newMockLedger(symbol string) *mockLedger {
	return &mockLedger{
		symbol:     symbol,
		balances:   make(map[string]*big.Int),
		allowances: make(map[string]*big.Int),
	}
}

func (m *mockLedger) Symbol() string { return m.symbol }

func (m *mockLedger) balance(addr crypto.Address) *big.Int {
	if b, ok := m.balances[addr.String()]; ok {
		return b
	}
	return big.NewInt(0)
}

func (m *mockLedger) fund(addr crypto.Address, amount int64) {
	m.balances[addr.String()] = big.NewInt(amount)
}

func (m *mockLedger) Transfer(from, to crypto.Address, amount *big.Int) error {
	fromBal := m.balance(from)
	if fromBal.Cmp(amount) < 0 {
		return errors.New("ledger: insufficient balance")
	}
	m.balances[from.String()] = new(big.Int).Sub(fromBal, amount)
	m.balances[to.String()] = new(big.Int).Add(m.balance(to), amount)
	return nil
}

func (m *mockLedger) approve(owner, spender crypto.Address, amount int64) {
	m.allowances[owner.String()+"/"+spender.String()] = big.NewInt(amount)
}

func (m *mockLedger) TransferFrom(spender, from, to crypto.Address, amount *big.Int) error {
	key := from.String() + "/" + spender.String()
	allowance, ok := m.allowances[key]
	if !ok || allowance.Cmp(amount) < 0 {
		return errors.New("ledger: insufficient allowance")
	}
	m.allowances[key] = new(big.Int).Sub(allowance, amount)
	return m.Transfer(from, to, amount)
}

func (m *mockLedger) BalanceOf(addr crypto.Address) (*big.Int, error) {
	return new(big.Int).Set(m.balance(addr)), nil
}

func (m *mockLedger) Mint(caller, to crypto.Address, amount *big.Int) error {
	m.balances[to.String()] = new(big.Int).Add(m.balance(to), amount)
	return nil
}

type mockRegistry struct {
	nextID uint64
	owners map[uint64]crypto.Address
	metas  map[uint64]relic.Meta
	clock  func() time.Time
}

func newMockRegistry(clock func() time.Time) *mockRegistry {
	return &mockRegistry{
		nextID: 1,
		owners: make(map[uint64]crypto.Address),
		metas:  make(map[uint64]relic.Meta),
		clock:  clock,
	}
}

func (m *mockRegistry) Mint(caller, to crypto.Address, lockDays uint32, principal *big.Int) (uint64, error) {
	id := m.nextID
	m.nextID++
	m.owners[id] = to
	m.metas[id] = relic.Meta{
		LockDays:  lockDays,
		Principal: new(big.Int).Set(principal),
		LockEnd:   m.clock().Unix() + int64(lockDays)*86_400,
	}
	return id, nil
}

func (m *mockRegistry) OwnerOf(tokenID uint64) (crypto.Address, error) {
	owner, ok := m.owners[tokenID]
	if !ok {
		return crypto.Address{}, errors.New("registry: unknown token")
	}
	return owner, nil
}

func (m *mockRegistry) MetaOf(tokenID uint64) (relic.Meta, error) {
	meta, ok := m.metas[tokenID]
	if !ok {
		return relic.Meta{}, errors.New("registry: unknown token")
	}
	return meta, nil
}

type mockAdapter struct {
	stable *mockLedger
	module crypto.Address
	held   *big.Int
}

func (m *mockAdapter) Deposit(from crypto.Address, amount *big.Int) error {
	if err := m.stable.Transfer(from, m.module, amount); err != nil {
		return err
	}
	m.held = new(big.Int).Add(m.held, amount)
	return nil
}

func (m *mockAdapter) Withdraw(to crypto.Address, amount *big.Int) error {
	if err := m.stable.Transfer(m.module, to, amount); err != nil {
		return err
	}
	m.held = new(big.Int).Sub(m.held, amount)
	return nil
}

func (m *mockAdapter) TotalAssets() (*big.Int, error) {
	return new(big.Int).Set(m.held), nil
}

func testAddr(b byte) crypto.Address {
	var raw [20]byte
	raw[19] = b
	return crypto.MustNewAddress(crypto.RelicPrefix, raw[:])
}

var (
	vaultOwner  = testAddr(1)
	vaultModule = testAddr(2)
	adapterAddr = testAddr(3)
	alice       = testAddr(4)
	bob         = testAddr(5)
)

type fixture struct {
	engine   *Engine
	state    *mockVaultState
	stable   *mockLedger
	reward   *mockLedger
	registry *mockRegistry
	adapter  *mockAdapter
	now      *time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	now := time.Unix(1_700_000_000, 0)
	clock := func() time.Time { return now }

	engine := NewEngine(vaultOwner, vaultModule)
	state := newMockVaultState()
	stable := newMockLedger("USDC")
	reward := newMockLedger("RYT")
	registry := newMockRegistry(clock)
	adapter := &mockAdapter{stable: stable, module: adapterAddr, held: big.NewInt(0)}

	engine.SetState(state)
	engine.SetStableLedger(stable)
	engine.SetRegistry(registry)
	engine.SetRewardMinter(reward)
	engine.SetAdapter(adapter)
	engine.SetNowFunc(clock)

	return &fixture{engine, state, stable, reward, registry, adapter, &now}
}

func (f *fixture) advance(d time.Duration) { *f.now = f.now.Add(d) }

func TestMintPositionChecks(t *testing.T) {
	f := newFixture(t)
	f.stable.fund(alice, 1_000_000_000)
	f.stable.approve(alice, vaultModule, 1_000_000_000)

	if _, err := f.engine.MintPosition(alice, 45, big.NewInt(100_000_000)); !errors.Is(err, errInvalidDuration) {
		t.Fatalf("expected duration check, got %v", err)
	}
	if _, err := f.engine.MintPosition(alice, 30, big.NewInt(9_999_999)); !errors.Is(err, errBelowMinimum) {
		t.Fatalf("expected minimum check, got %v", err)
	}
	if err := f.engine.Pause(vaultOwner); err != nil {
		t.Fatalf("pause: %v", err)
	}
	if _, err := f.engine.MintPosition(alice, 30, big.NewInt(100_000_000)); !errors.Is(err, errPaused) {
		t.Fatalf("expected pause check, got %v", err)
	}
	if err := f.engine.Unpause(vaultOwner); err != nil {
		t.Fatalf("unpause: %v", err)
	}
	if _, err := f.engine.MintPosition(alice, 30, big.NewInt(100_000_000)); err != nil {
		t.Fatalf("mint after unpause: %v", err)
	}
}

func TestMintPositionRequiresAllowance(t *testing.T) {
	f := newFixture(t)
	f.stable.fund(alice, 1_000_000_000)

	// Funds alone are not enough: the deposit is pulled through the
	// allowance granted to the module address.
	if _, err := f.engine.MintPosition(alice, 30, big.NewInt(100_000_000)); err == nil {
		t.Fatal("expected mint without allowance to fail")
	}
	if got := f.stable.balance(alice); got.Cmp(big.NewInt(1_000_000_000)) != 0 {
		t.Fatalf("failed mint moved funds: %s", got)
	}
	f.stable.approve(alice, vaultModule, 100_000_000)
	if _, err := f.engine.MintPosition(alice, 30, big.NewInt(100_000_000)); err != nil {
		t.Fatalf("mint with allowance: %v", err)
	}
}

func TestMintPositionFeeSplit(t *testing.T) {
	f := newFixture(t)
	f.stable.fund(alice, 1_000_000_000)
	f.stable.approve(alice, vaultModule, 1_000_000_000)

	tokenID, err := f.engine.MintPosition(alice, 90, big.NewInt(1_000_000_000))
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if tokenID != 1 {
		t.Fatalf("expected first token id 1, got %d", tokenID)
	}
	// 1% fee to the owner, the remaining 99% deployed into the adapter.
	if got := f.stable.balance(vaultOwner); got.Cmp(big.NewInt(10_000_000)) != 0 {
		t.Fatalf("owner fee: %s", got)
	}
	if got := f.stable.balance(adapterAddr); got.Cmp(big.NewInt(990_000_000)) != 0 {
		t.Fatalf("adapter custody: %s", got)
	}
	if got := f.stable.balance(vaultModule); got.Sign() != 0 {
		t.Fatalf("vault custody should be flat after deploy, got %s", got)
	}

	// Principal is recorded gross of the fee.
	meta, err := f.registry.MetaOf(tokenID)
	if err != nil {
		t.Fatalf("meta: %v", err)
	}
	if meta.Principal.Cmp(big.NewInt(1_000_000_000)) != 0 {
		t.Fatalf("principal: %s", meta.Principal)
	}
	if meta.LockEnd != f.now.Unix()+90*86_400 {
		t.Fatalf("lock end: %d", meta.LockEnd)
	}
	total, err := f.engine.TotalPrincipal()
	if err != nil {
		t.Fatalf("total principal: %v", err)
	}
	if total.Cmp(big.NewInt(1_000_000_000)) != 0 {
		t.Fatalf("totalPrincipal: %s", total)
	}
	if f.state.checkpoints[tokenID] != f.now.Unix() {
		t.Fatalf("checkpoint not set at mint: %d", f.state.checkpoints[tokenID])
	}
}

func TestClaimYieldFormula(t *testing.T) {
	f := newFixture(t)
	f.stable.fund(alice, 1_000_000_000)
	f.stable.approve(alice, vaultModule, 1_000_000_000)
	tokenID, err := f.engine.MintPosition(alice, 365, big.NewInt(1_000_000_000))
	if err != nil {
		t.Fatalf("mint: %v", err)
	}

	// No time elapsed yet.
	if _, err := f.engine.ClaimYield(alice, tokenID); !errors.Is(err, errNoYield) {
		t.Fatalf("expected no-yield error, got %v", err)
	}
	if _, err := f.engine.ClaimYield(bob, tokenID); !errors.Is(err, errNotPositionOwner) {
		t.Fatalf("expected holder check, got %v", err)
	}

	// One year at the flat 5% base rate on 1000 USDC: 50 USDC of yield,
	// scaled to eighteen decimals.
	f.advance(365 * 24 * time.Hour)
	want := new(big.Int).Mul(big.NewInt(50_000_000), rewardScale)

	view, err := f.engine.ViewClaimableYield(tokenID)
	if err != nil {
		t.Fatalf("view: %v", err)
	}
	if view.Cmp(want) != 0 {
		t.Fatalf("view: expected %s, got %s", want, view)
	}

	claimed, err := f.engine.ClaimYield(alice, tokenID)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if claimed.Cmp(want) != 0 {
		t.Fatalf("claim: expected %s, got %s", want, claimed)
	}
	if got := f.reward.balance(alice); got.Cmp(want) != 0 {
		t.Fatalf("reward balance: %s", got)
	}
	// At the base rate no performance fee applies.
	if got := f.reward.balance(vaultOwner); got.Sign() != 0 {
		t.Fatalf("unexpected owner reward balance: %s", got)
	}
	// The checkpoint advanced, so an immediate second claim finds nothing.
	if _, err := f.engine.ClaimYield(alice, tokenID); !errors.Is(err, errNoYield) {
		t.Fatalf("expected no-yield after claim, got %v", err)
	}
}

func TestClaimYieldPerformanceFee(t *testing.T) {
	f := newFixture(t)
	f.stable.fund(alice, 1_000_000_000)
	f.stable.approve(alice, vaultModule, 1_000_000_000)
	tokenID, err := f.engine.MintPosition(alice, 365, big.NewInt(1_000_000_000))
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	// Push the base rate past the performance threshold.
	if err := f.engine.SetBaseAPRSchedule(vaultOwner, map[uint32]uint64{365: 2_000}); err != nil {
		t.Fatalf("set schedule: %v", err)
	}

	f.advance(365 * 24 * time.Hour)
	claimed, err := f.engine.ClaimYield(alice, tokenID)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	// 20% of 1000 USDC = 200 USDC of yield.
	wantYield := new(big.Int).Mul(big.NewInt(200_000_000), rewardScale)
	if claimed.Cmp(wantYield) != 0 {
		t.Fatalf("claim: expected %s, got %s", wantYield, claimed)
	}
	// The owner receives 10% of the yield as performance fee.
	wantFee := new(big.Int).Mul(big.NewInt(20_000_000), rewardScale)
	if got := f.reward.balance(vaultOwner); got.Cmp(wantFee) != 0 {
		t.Fatalf("performance fee: expected %s, got %s", wantFee, got)
	}
}

func TestClaimRightsFollowTransfer(t *testing.T) {
	f := newFixture(t)
	f.stable.fund(alice, 1_000_000_000)
	f.stable.approve(alice, vaultModule, 1_000_000_000)
	tokenID, err := f.engine.MintPosition(alice, 30, big.NewInt(1_000_000_000))
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	f.advance(30 * 24 * time.Hour)

	// Simulate the position changing hands on the registry.
	f.registry.owners[tokenID] = bob

	if _, err := f.engine.ClaimYield(alice, tokenID); !errors.Is(err, errNotPositionOwner) {
		t.Fatalf("expected old holder rejection, got %v", err)
	}
	claimed, err := f.engine.ClaimYield(bob, tokenID)
	if err != nil {
		t.Fatalf("new holder claim: %v", err)
	}
	if got := f.reward.balance(bob); got.Cmp(claimed) != 0 {
		t.Fatalf("reward went to %s, expected %s for new holder", got, claimed)
	}
}

func TestSetBaseAPRScheduleValidation(t *testing.T) {
	f := newFixture(t)

	if err := f.engine.SetBaseAPRSchedule(alice, map[uint32]uint64{30: 600}); !errors.Is(err, errNotOwner) {
		t.Fatalf("expected owner check, got %v", err)
	}
	if err := f.engine.SetBaseAPRSchedule(vaultOwner, map[uint32]uint64{45: 600}); !errors.Is(err, errInvalidDuration) {
		t.Fatalf("expected duration check, got %v", err)
	}
	if err := f.engine.SetBaseAPRSchedule(vaultOwner, map[uint32]uint64{30: 0}); !errors.Is(err, errInvalidAPR) {
		t.Fatalf("expected zero-rate rejection, got %v", err)
	}
	if err := f.engine.SetBaseAPRSchedule(vaultOwner, map[uint32]uint64{30: MaxBaseAPRBps + 1}); !errors.Is(err, errInvalidAPR) {
		t.Fatalf("expected cap rejection, got %v", err)
	}
	if err := f.engine.SetBaseAPRSchedule(vaultOwner, map[uint32]uint64{30: 600}); err != nil {
		t.Fatalf("set schedule: %v", err)
	}
	got, err := f.engine.BaseAPR(30)
	if err != nil {
		t.Fatalf("base apr: %v", err)
	}
	if got != 600 {
		t.Fatalf("expected 600, got %d", got)
	}
	// Durations outside the schedule fall back to the default.
	got, _ = f.engine.BaseAPR(90)
	if got != DefaultBaseAPRBps {
		t.Fatalf("expected default for unscheduled duration, got %d", got)
	}
}

func TestRescueTokens(t *testing.T) {
	f := newFixture(t)
	stray := newMockLedger("WETH")
	stray.fund(vaultModule, 5_000)

	if err := f.engine.RescueTokens(alice, stray, big.NewInt(5_000)); !errors.Is(err, errNotOwner) {
		t.Fatalf("expected owner check, got %v", err)
	}
	if err := f.engine.RescueTokens(vaultOwner, f.stable, big.NewInt(1)); !errors.Is(err, errRescueStable) {
		t.Fatalf("expected stable-asset rejection, got %v", err)
	}
	if err := f.engine.RescueTokens(vaultOwner, stray, big.NewInt(5_000)); err != nil {
		t.Fatalf("rescue: %v", err)
	}
	if got := stray.balance(vaultOwner); got.Cmp(big.NewInt(5_000)) != 0 {
		t.Fatalf("rescued balance: %s", got)
	}
}
