package contract

import (
	"fmt"
	"math"
	"testing"

	"willvault/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProportionalShare(t *testing.T) {
	testCases := []struct {
		total int64
		share int64
		want  int64
	}{
		{10, 6000, 6},
		{10, 4000, 4},
		{500, 6000, 300},
		{500, 4000, 200},
		{7, 6000, 4},  // 4.2 floors to 4
		{7, 4000, 2},  // 2.8 floors to 2
		{1, 9999, 0},  // Rounds to zero, becomes residue
		{0, 10000, 0},
		{10000, 1, 1},
		{math.MaxInt64, 10000, math.MaxInt64},
		{math.MaxInt64, 5000, math.MaxInt64 / 2},
	}
	for _, tc := range testCases {
		got := proportionalShare(tc.total, tc.share)
		assert.Equalf(t, tc.want, got, "proportionalShare(%d, %d)", tc.total, tc.share)
	}
}

// Floor division never pays out more than the total across any share split.
func TestProportionalShare_NeverOverpays(t *testing.T) {
	splits := [][]int64{
		{3333, 3333, 3334},
		{1, 9999},
		{2500, 2500, 2500, 2500},
		{7143, 1429, 1428},
	}
	totals := []int64{1, 7, 99, 1000, 12345678901}
	for _, split := range splits {
		for _, total := range totals {
			var paid int64
			for _, share := range split {
				paid += proportionalShare(total, share)
			}
			assert.LessOrEqualf(t, paid, total, "split %v of %d", split, total)
		}
	}
}

func TestDistribution_ResiduesRecorded(t *testing.T) {
	h := newHarness()
	executors := fmt.Sprintf(`["%s","%s"]`, idExecutor1, idExecutor2)
	beneficiaries := fmt.Sprintf(`[{"identity":"%s","shareBasisPoints":3333},{"identity":"%s","shareBasisPoints":3333},{"identity":"%s","shareBasisPoints":3334}]`, idBenef1, idBenef2, idStranger)
	require.NoError(t, h.contract.DefineWill(h.ctxAs(idOwner), executors, beneficiaries, 7, "", false))
	require.NoError(t, h.contract.DepositNative(h.ctxAs(idOwner), 10))
	require.NoError(t, h.announceAndSettle())

	require.NoError(t, h.contract.ExecuteInheritance(h.ctxAs(idExecutor1), idOwner))

	dist, err := h.contract.GetDistributionRecord(h.ctxAs(idExecutor1), idOwner)
	require.NoError(t, err)
	// 10 split 3333/3333/3334 pays 3+3+3; the dust unit is recorded, not paid.
	require.Len(t, dist.Transfers, 3)
	for _, tr := range dist.Transfers {
		assert.Equal(t, int64(3), tr.Amount)
	}
	require.Len(t, dist.Residues, 1)
	assert.Equal(t, model.AssetKindNative, dist.Residues[0].Kind)
	assert.Equal(t, int64(1), dist.Residues[0].Amount)

	// Residue is not retained as a spendable balance either.
	balance, err := h.contract.GetNativeBalance(h.ctxAs(idExecutor1), idOwner)
	require.NoError(t, err)
	assert.Zero(t, balance)
}

func TestDistribution_ZeroAmountTransfersSkipped(t *testing.T) {
	h := newHarness()
	executors := fmt.Sprintf(`["%s","%s"]`, idExecutor1, idExecutor2)
	beneficiaries := fmt.Sprintf(`[{"identity":"%s","shareBasisPoints":9999},{"identity":"%s","shareBasisPoints":1}]`, idBenef1, idBenef2)
	require.NoError(t, h.contract.DefineWill(h.ctxAs(idOwner), executors, beneficiaries, 7, "", false))
	require.NoError(t, h.contract.DepositNative(h.ctxAs(idOwner), 5))
	require.NoError(t, h.announceAndSettle())

	h.adapter.calls = nil
	require.NoError(t, h.contract.ExecuteInheritance(h.ctxAs(idExecutor1), idOwner))

	// 5 * 1bp floors to zero: the second beneficiary gets no transfer at all.
	require.Len(t, h.adapter.calls, 1)
	assert.Equal(t, idBenef1, h.adapter.calls[0].party)
	assert.Equal(t, int64(4), h.adapter.calls[0].amount)

	dist, err := h.contract.GetDistributionRecord(h.ctxAs(idExecutor1), idOwner)
	require.NoError(t, err)
	require.Len(t, dist.Residues, 1)
	assert.Equal(t, int64(1), dist.Residues[0].Amount)
}

func TestDistribution_NFTRoundRobin(t *testing.T) {
	h := newHarness()
	require.NoError(t, h.defineStandardWill())
	for _, tokenID := range []string{"c", "a", "b"} {
		require.NoError(t, h.contract.DepositNonFungible(h.ctxAs(idOwner), "punks", tokenID))
	}
	// A second contract restarts the rotation at the first beneficiary.
	require.NoError(t, h.contract.DepositNonFungible(h.ctxAs(idOwner), "apes", "z1"))
	require.NoError(t, h.announceAndSettle())

	h.adapter.calls = nil
	require.NoError(t, h.contract.ExecuteInheritance(h.ctxAs(idExecutor1), idOwner))

	expected := []tokenCall{
		{op: "push", kind: "nft", contractRef: "apes", party: idBenef1, tokenID: "z1"},
		{op: "push", kind: "nft", contractRef: "punks", party: idBenef1, tokenID: "a"},
		{op: "push", kind: "nft", contractRef: "punks", party: idBenef2, tokenID: "b"},
		{op: "push", kind: "nft", contractRef: "punks", party: idBenef1, tokenID: "c"},
	}
	assert.Equal(t, expected, h.adapter.calls)
}

func TestDistribution_MultiTokenSplit(t *testing.T) {
	h := newHarness()
	require.NoError(t, h.defineStandardWill())
	require.NoError(t, h.contract.DepositMultiToken(h.ctxAs(idOwner), "game", "gold", 100))
	require.NoError(t, h.contract.DepositMultiToken(h.ctxAs(idOwner), "game", "gem", 10))
	require.NoError(t, h.announceAndSettle())

	h.adapter.calls = nil
	require.NoError(t, h.contract.ExecuteInheritance(h.ctxAs(idExecutor1), idOwner))

	expected := []tokenCall{
		{op: "push", kind: "multi", contractRef: "game", party: idBenef1, tokenID: "gem", amount: 6},
		{op: "push", kind: "multi", contractRef: "game", party: idBenef2, tokenID: "gem", amount: 4},
		{op: "push", kind: "multi", contractRef: "game", party: idBenef1, tokenID: "gold", amount: 60},
		{op: "push", kind: "multi", contractRef: "game", party: idBenef2, tokenID: "gold", amount: 40},
	}
	assert.Equal(t, expected, h.adapter.calls)
}
