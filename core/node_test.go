package core

import (
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"relicledger/crypto"
	"relicledger/native/common"
	"relicledger/storage"
)

func testAddr(t *testing.T, b byte) crypto.Address {
	t.Helper()
	var raw [20]byte
	raw[19] = b
	return crypto.MustNewAddress(crypto.RelicPrefix, raw[:])
}

type testClock struct {
	now time.Time
}

func (c *testClock) advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestNode(t *testing.T) (*Node, crypto.Address, *testClock) {
	t.Helper()
	owner := testAddr(t, 1)
	clock := &testClock{now: time.Unix(1_700_000_000, 0)}
	node, err := NewNode(storage.NewMemDB(), Config{
		Owner:            owner,
		BaseURI:          "https://relics.example/meta/",
		AdapterGrowthBps: 500,
		Genesis:          clock.now,
	}, nil)
	require.NoError(t, err)
	node.SetNowFunc(func() time.Time { return clock.now })
	return node, owner, clock
}

func TestMintAndClaimFlow(t *testing.T) {
	node, owner, clock := newTestNode(t)
	user := testAddr(t, 2)

	require.NoError(t, node.TokenMint("USDC", owner, user, big.NewInt(1_000_000_000)))
	require.NoError(t, node.TokenApprove("USDC", user, crypto.ModuleAddress(ModuleVault), big.NewInt(1_000_000_000)))

	tokenID, err := node.VaultMint(user, 365, big.NewInt(1_000_000_000))
	require.NoError(t, err)
	require.Equal(t, uint64(1), tokenID)

	// Dev fee moved to the owner at mint.
	ownerBal, err := node.TokenBalance("USDC", owner)
	require.NoError(t, err)
	require.Zero(t, ownerBal.Cmp(big.NewInt(10_000_000)))

	positions, err := node.PositionsOf(user)
	require.NoError(t, err)
	require.Equal(t, []uint64{1}, positions)

	uri, err := node.PositionURI(tokenID)
	require.NoError(t, err)
	require.Equal(t, "https://relics.example/meta/1.json", uri)

	clock.advance(365 * 24 * time.Hour)
	claimable, err := node.VaultClaimable(tokenID)
	require.NoError(t, err)
	want := new(big.Int).Mul(big.NewInt(50_000_000), new(big.Int).Exp(big.NewInt(10), big.NewInt(12), nil))
	require.Zero(t, claimable.Cmp(want))

	claimed, err := node.VaultClaim(user, tokenID)
	require.NoError(t, err)
	require.Zero(t, claimed.Cmp(want))
	rewardBal, err := node.TokenBalance("RYT", user)
	require.NoError(t, err)
	require.Zero(t, rewardBal.Cmp(want))
}

func TestInsuranceFlowAgainstDerivedHeight(t *testing.T) {
	node, owner, clock := newTestNode(t)
	user := testAddr(t, 3)
	require.NoError(t, node.TokenMint("USDC", owner, user, big.NewInt(1_000_000_000)))
	require.NoError(t, node.TokenApprove("USDC", user, crypto.ModuleAddress(ModuleInsurance), big.NewInt(1_000_000_000)))

	require.NoError(t, node.InsuranceStake(user, big.NewInt(1_000_000_000)))

	// A year of 12-second blocks accrues the annual rate.
	clock.advance(2_628_000 * 12 * time.Second)
	pending, err := node.InsurancePending(user)
	require.NoError(t, err)
	require.Zero(t, pending.Cmp(big.NewInt(50_000_000)))

	reward, err := node.InsuranceClaimRewards(user)
	require.NoError(t, err)
	require.Zero(t, reward.Cmp(big.NewInt(50_000_000)))
}

func TestOracleSurface(t *testing.T) {
	node, owner, clock := newTestNode(t)

	clock.advance(time.Hour)
	require.NoError(t, node.OracleBatchUpdate(owner, []uint64{11_000, 12_000, 13_000, 14_000}))

	multiplier, err := node.OracleMultiplier(90)
	require.NoError(t, err)
	require.Equal(t, uint64(12_000), multiplier)

	apr, err := node.OracleEffectiveAPR(500, 90)
	require.NoError(t, err)
	require.Equal(t, uint64(600), apr)

	length, err := node.OracleHistoryLength()
	require.NoError(t, err)
	require.Equal(t, uint64(4), length)
}

func TestMarketTradeFlow(t *testing.T) {
	node, owner, _ := newTestNode(t)
	seller := testAddr(t, 4)
	buyer := testAddr(t, 5)
	require.NoError(t, node.TokenMint("USDC", owner, seller, big.NewInt(1_000_000_000)))
	require.NoError(t, node.TokenMint("USDC", owner, buyer, big.NewInt(1_000_000_000)))
	require.NoError(t, node.TokenApprove("USDC", seller, crypto.ModuleAddress(ModuleVault), big.NewInt(100_000_000)))
	require.NoError(t, node.TokenApprove("USDC", buyer, crypto.ModuleAddress(ModuleMarket), big.NewInt(120_000_000)))

	tokenID, err := node.VaultMint(seller, 30, big.NewInt(100_000_000))
	require.NoError(t, err)

	require.NoError(t, node.MarketList(seller, tokenID, big.NewInt(120_000_000)))
	require.NoError(t, node.MarketBuy(buyer, tokenID))

	holder, err := node.PositionOwner(tokenID)
	require.NoError(t, err)
	require.True(t, holder.Equal(buyer))

	stats, err := node.MarketStats()
	require.NoError(t, err)
	require.Equal(t, uint64(1), stats.TotalTrades)
	require.Zero(t, stats.TotalVolume.Cmp(big.NewInt(120_000_000)))
}

func TestTokenApproveGatesModulePulls(t *testing.T) {
	node, owner, _ := newTestNode(t)
	user := testAddr(t, 8)
	require.NoError(t, node.TokenMint("USDC", owner, user, big.NewInt(1_000_000_000)))

	// Without an allowance the vault cannot pull the deposit.
	_, err := node.VaultMint(user, 30, big.NewInt(100_000_000))
	require.Error(t, err)
	bal, err := node.TokenBalance("USDC", user)
	require.NoError(t, err)
	require.Zero(t, bal.Cmp(big.NewInt(1_000_000_000)))

	vaultAddr, err := node.ModuleAccount(ModuleVault)
	require.NoError(t, err)
	require.NoError(t, node.TokenApprove("USDC", user, vaultAddr, big.NewInt(100_000_000)))
	allowance, err := node.TokenAllowance("USDC", user, vaultAddr)
	require.NoError(t, err)
	require.Zero(t, allowance.Cmp(big.NewInt(100_000_000)))

	_, err = node.VaultMint(user, 30, big.NewInt(100_000_000))
	require.NoError(t, err)
	allowance, err = node.TokenAllowance("USDC", user, vaultAddr)
	require.NoError(t, err)
	require.Zero(t, allowance.Sign())
}

func TestSelfTransferAndSelfBuyConserveBalance(t *testing.T) {
	node, owner, _ := newTestNode(t)
	user := testAddr(t, 9)
	require.NoError(t, node.TokenMint("USDC", owner, user, big.NewInt(900_000_000)))

	require.NoError(t, node.TokenTransfer("USDC", user, user, big.NewInt(900_000_000)))
	bal, err := node.TokenBalance("USDC", user)
	require.NoError(t, err)
	require.Zero(t, bal.Cmp(big.NewInt(900_000_000)))

	require.NoError(t, node.TokenApprove("USDC", user, crypto.ModuleAddress(ModuleVault), big.NewInt(500_000_000)))
	require.NoError(t, node.TokenApprove("USDC", user, crypto.ModuleAddress(ModuleMarket), big.NewInt(300_000_000)))
	tokenID, err := node.VaultMint(user, 30, big.NewInt(500_000_000))
	require.NoError(t, err)
	require.NoError(t, node.MarketList(user, tokenID, big.NewInt(300_000_000)))

	before, err := node.TokenBalance("USDC", user)
	require.NoError(t, err)
	require.NoError(t, node.MarketBuy(user, tokenID))
	after, err := node.TokenBalance("USDC", user)
	require.NoError(t, err)
	require.Zero(t, after.Cmp(before))

	holder, err := node.PositionOwner(tokenID)
	require.NoError(t, err)
	require.True(t, holder.Equal(user))
}

func TestModulePauseGuard(t *testing.T) {
	node, owner, _ := newTestNode(t)
	user := testAddr(t, 6)
	require.NoError(t, node.TokenMint("USDC", owner, user, big.NewInt(1_000_000_000)))
	require.NoError(t, node.TokenApprove("USDC", user, crypto.ModuleAddress(ModuleVault), big.NewInt(1_000_000_000)))

	require.Error(t, node.SetModulePaused(user, ModuleVault, true))
	require.Error(t, node.SetModulePaused(owner, "nope", true))
	require.NoError(t, node.SetModulePaused(owner, ModuleVault, true))

	_, err := node.VaultMint(user, 30, big.NewInt(100_000_000))
	require.ErrorIs(t, err, common.ErrModulePaused)

	require.NoError(t, node.SetModulePaused(owner, ModuleVault, false))
	_, err = node.VaultMint(user, 30, big.NewInt(100_000_000))
	require.NoError(t, err)
}

func TestRecentEvents(t *testing.T) {
	node, owner, _ := newTestNode(t)
	user := testAddr(t, 7)
	require.NoError(t, node.TokenMint("USDC", owner, user, big.NewInt(1_000_000_000)))
	require.NoError(t, node.TokenApprove("USDC", user, crypto.ModuleAddress(ModuleVault), big.NewInt(100_000_000)))
	_, err := node.VaultMint(user, 30, big.NewInt(100_000_000))
	require.NoError(t, err)

	evts := node.RecentEvents(0)
	require.NotEmpty(t, evts)
	require.Equal(t, "vault.relicMinted", evts[0].Type)
}
