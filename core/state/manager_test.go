package state

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"relicledger/crypto"
	"relicledger/native/insurance"
	"relicledger/native/market"
	"relicledger/native/rateoracle"
	"relicledger/native/relic"
	"relicledger/native/vault"
	"relicledger/storage"
)

func testAddr(t *testing.T, b byte) crypto.Address {
	t.Helper()
	var raw [20]byte
	raw[19] = b
	return crypto.MustNewAddress(crypto.RelicPrefix, raw[:])
}

func newManager(t *testing.T) *Manager {
	t.Helper()
	return NewManager(storage.NewMemDB())
}

func TestAccountRoundTrip(t *testing.T) {
	m := newManager(t)
	addr := testAddr(t, 1)

	// Unknown addresses read as fresh zero accounts.
	account, err := m.GetAccount(addr)
	require.NoError(t, err)
	require.Zero(t, account.BalanceStable.Sign())
	require.Zero(t, account.BalanceReward.Sign())

	account.BalanceStable = big.NewInt(1_000_000)
	account.BalanceReward = big.NewInt(42)
	account.Nonce = 7
	require.NoError(t, m.PutAccount(addr, account))

	loaded, err := m.GetAccount(addr)
	require.NoError(t, err)
	require.Equal(t, uint64(7), loaded.Nonce)
	require.Zero(t, loaded.BalanceStable.Cmp(big.NewInt(1_000_000)))
	require.Zero(t, loaded.BalanceReward.Cmp(big.NewInt(42)))
}

func TestAllowanceAndSupply(t *testing.T) {
	m := newManager(t)
	owner := testAddr(t, 1)
	spender := testAddr(t, 2)

	allowance, err := m.Allowance(0, owner, spender)
	require.NoError(t, err)
	require.Zero(t, allowance.Sign())

	require.NoError(t, m.SetAllowance(0, owner, spender, big.NewInt(500)))
	allowance, err = m.Allowance(0, owner, spender)
	require.NoError(t, err)
	require.Zero(t, allowance.Cmp(big.NewInt(500)))

	// Asset legs are independent.
	allowance, err = m.Allowance(1, owner, spender)
	require.NoError(t, err)
	require.Zero(t, allowance.Sign())

	require.NoError(t, m.SetTokenSupply(1, big.NewInt(9_000)))
	supply, err := m.TokenSupply(1)
	require.NoError(t, err)
	require.Zero(t, supply.Cmp(big.NewInt(9_000)))
	supply, err = m.TokenSupply(0)
	require.NoError(t, err)
	require.Zero(t, supply.Sign())
}

func TestPositionRoundTrip(t *testing.T) {
	m := newManager(t)
	holder := testAddr(t, 3)

	position, err := m.GetPosition(1)
	require.NoError(t, err)
	require.Nil(t, position)

	stored := &relic.Position{
		Owner: holder,
		Meta: relic.Meta{
			LockDays:  90,
			Principal: big.NewInt(1_000_000_000),
			LockEnd:   1_700_000_000,
		},
	}
	require.NoError(t, m.PutPosition(1, stored))

	loaded, err := m.GetPosition(1)
	require.NoError(t, err)
	require.True(t, loaded.Owner.Equal(holder))
	require.True(t, loaded.Approved.IsZero())
	require.Equal(t, uint32(90), loaded.Meta.LockDays)
	require.Zero(t, loaded.Meta.Principal.Cmp(big.NewInt(1_000_000_000)))

	require.NoError(t, m.SetNextTokenID(2))
	next, err := m.NextTokenID()
	require.NoError(t, err)
	require.Equal(t, uint64(2), next)

	require.NoError(t, m.SetOwnerTokens(holder, []uint64{1}))
	tokens, err := m.OwnerTokens(holder)
	require.NoError(t, err)
	require.Equal(t, []uint64{1}, tokens)
}

func TestOracleStateRoundTrip(t *testing.T) {
	m := newManager(t)

	st, err := m.OracleState()
	require.NoError(t, err)
	require.Nil(t, st)

	stored := &rateoracle.State{
		Multipliers:    map[uint32]uint64{30: 10_000, 90: 12_000},
		LastRateChange: 1_700_000_000,
		History: []rateoracle.Snapshot{
			{LockDays: 90, Multiplier: 12_000, Timestamp: 1_700_000_000},
		},
	}
	require.NoError(t, m.PutOracleState(stored))

	loaded, err := m.OracleState()
	require.NoError(t, err)
	require.Equal(t, uint64(12_000), loaded.Multipliers[90])
	require.Len(t, loaded.History, 1)
	require.Equal(t, int64(1_700_000_000), loaded.LastRateChange)
}

func TestVaultStateAndCheckpoints(t *testing.T) {
	m := newManager(t)

	st, err := m.VaultState()
	require.NoError(t, err)
	require.Nil(t, st)

	require.NoError(t, m.PutVaultState(&vault.State{
		TotalPrincipal: big.NewInt(500),
		Paused:         true,
		APRSchedule:    map[uint32]uint64{365: 700},
	}))
	loaded, err := m.VaultState()
	require.NoError(t, err)
	require.True(t, loaded.Paused)
	require.Equal(t, uint64(700), loaded.APRSchedule[365])

	ts, err := m.VaultCheckpoint(9)
	require.NoError(t, err)
	require.Zero(t, ts)
	require.NoError(t, m.PutVaultCheckpoint(9, 1_700_000_123))
	ts, err = m.VaultCheckpoint(9)
	require.NoError(t, err)
	require.Equal(t, int64(1_700_000_123), ts)
}

func TestInsuranceRecords(t *testing.T) {
	m := newManager(t)
	staker := testAddr(t, 4)

	loaded, err := m.InsuranceStaker(staker)
	require.NoError(t, err)
	require.Nil(t, loaded)

	require.NoError(t, m.PutInsuranceStaker(staker, &insurance.Staker{
		Principal:   big.NewInt(100_000_000),
		Shares:      big.NewInt(100_000_000),
		RewardBlock: 55,
	}))
	loaded, err = m.InsuranceStaker(staker)
	require.NoError(t, err)
	require.Equal(t, uint64(55), loaded.RewardBlock)
	require.Zero(t, loaded.Principal.Cmp(big.NewInt(100_000_000)))

	require.NoError(t, m.PutInsurancePool(&insurance.Pool{
		TotalStaked:      big.NewInt(100_000_000),
		TotalShares:      big.NewInt(100_000_000),
		TotalClaimed:     big.NewInt(0),
		CoverageRatioBps: 3_000,
	}))
	pool, err := m.InsurancePool()
	require.NoError(t, err)
	require.Equal(t, uint64(3_000), pool.CoverageRatioBps)
}

func TestMarketRecords(t *testing.T) {
	m := newManager(t)
	seller := testAddr(t, 5)

	listing, err := m.MarketListing(1)
	require.NoError(t, err)
	require.Nil(t, listing)

	var sellerBytes [20]byte
	copy(sellerBytes[:], seller.Bytes())
	require.NoError(t, m.PutMarketListing(1, &market.Listing{
		Seller:  sellerBytes,
		TokenID: 1,
		Price:   big.NewInt(500),
	}))
	listing, err = m.MarketListing(1)
	require.NoError(t, err)
	require.Zero(t, listing.Price.Cmp(big.NewInt(500)))

	require.NoError(t, m.DeleteMarketListing(1))
	listing, err = m.MarketListing(1)
	require.NoError(t, err)
	require.Nil(t, listing)

	require.NoError(t, m.PutMarketOffers(1, []market.Offer{{Offerer: sellerBytes, Amount: big.NewInt(400)}}))
	offers, err := m.MarketOffers(1)
	require.NoError(t, err)
	require.Len(t, offers, 1)

	paused, err := m.MarketPaused()
	require.NoError(t, err)
	require.False(t, paused)
	require.NoError(t, m.SetMarketPaused(true))
	paused, err = m.MarketPaused()
	require.NoError(t, err)
	require.True(t, paused)
}
