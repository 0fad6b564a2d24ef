package contract

import (
	"fmt"
	"testing"
	"time"

	"willvault/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefineWill_Success(t *testing.T) {
	h := newHarness()
	require.NoError(t, h.defineStandardWill())

	will, err := h.contract.GetWill(h.ctxAs(idExecutor1), idOwner)
	require.NoError(t, err)
	assert.Equal(t, idOwner, will.Owner)
	assert.Equal(t, model.WillStatusActive, will.Status)
	assert.Equal(t, []string{idExecutor1, idExecutor2}, will.Executors)
	require.Len(t, will.Beneficiaries, 2)
	assert.Equal(t, int64(6000), will.Beneficiaries[0].ShareBasisPoint)
	assert.Equal(t, int64(4000), will.Beneficiaries[1].ShareBasisPoint)
	assert.Equal(t, int64(7), will.MoratoriumDays)
	assert.False(t, will.RequiresOracleVerification)
	assert.Contains(t, h.stub.events, "WillDefined")
}

func TestDefineWill_ValidationErrors(t *testing.T) {
	twoExecutors := fmt.Sprintf(`["%s","%s"]`, idExecutor1, idExecutor2)
	validBeneficiaries := fmt.Sprintf(`[{"identity":"%s","shareBasisPoints":10000}]`, idBenef1)

	testCases := []struct {
		name          string
		executors     string
		beneficiaries string
		moratorium    int64
		identityHash  string
		requireOracle bool
		wantErr       string
	}{
		{
			name:          "too few executors",
			executors:     fmt.Sprintf(`["%s"]`, idExecutor1),
			beneficiaries: validBeneficiaries,
			moratorium:    7,
			wantErr:       "executors list must have between 2 and 10",
		},
		{
			name:          "duplicate executor",
			executors:     fmt.Sprintf(`["%s","%s"]`, idExecutor1, idExecutor1),
			beneficiaries: validBeneficiaries,
			moratorium:    7,
			wantErr:       "duplicate",
		},
		{
			name:          "owner as executor",
			executors:     fmt.Sprintf(`["%s","%s"]`, idOwner, idExecutor1),
			beneficiaries: validBeneficiaries,
			moratorium:    7,
			wantErr:       "cannot be their own executor",
		},
		{
			name:          "no beneficiaries",
			executors:     twoExecutors,
			beneficiaries: `[]`,
			moratorium:    7,
			wantErr:       "beneficiaries list must have between 1 and 20",
		},
		{
			name:          "shares under 10000",
			executors:     twoExecutors,
			beneficiaries: fmt.Sprintf(`[{"identity":"%s","shareBasisPoints":9999}]`, idBenef1),
			moratorium:    7,
			wantErr:       "sum to exactly 10000",
		},
		{
			name:          "shares over 10000",
			executors:     twoExecutors,
			beneficiaries: fmt.Sprintf(`[{"identity":"%s","shareBasisPoints":6000},{"identity":"%s","shareBasisPoints":5000}]`, idBenef1, idBenef2),
			moratorium:    7,
			wantErr:       "sum to exactly 10000",
		},
		{
			name:          "zero share",
			executors:     twoExecutors,
			beneficiaries: fmt.Sprintf(`[{"identity":"%s","shareBasisPoints":0},{"identity":"%s","shareBasisPoints":10000}]`, idBenef1, idBenef2),
			moratorium:    7,
			wantErr:       "share must be positive",
		},
		{
			name:          "duplicate beneficiary",
			executors:     twoExecutors,
			beneficiaries: fmt.Sprintf(`[{"identity":"%s","shareBasisPoints":6000},{"identity":"%s","shareBasisPoints":4000}]`, idBenef1, idBenef1),
			moratorium:    7,
			wantErr:       "duplicate",
		},
		{
			name:          "moratorium too short",
			executors:     twoExecutors,
			beneficiaries: validBeneficiaries,
			moratorium:    6,
			wantErr:       "moratoriumDays must be between 7 and 365",
		},
		{
			name:          "moratorium too long",
			executors:     twoExecutors,
			beneficiaries: validBeneficiaries,
			moratorium:    366,
			wantErr:       "moratoriumDays must be between 7 and 365",
		},
		{
			name:          "oracle without identity hash",
			executors:     twoExecutors,
			beneficiaries: validBeneficiaries,
			moratorium:    7,
			requireOracle: true,
			wantErr:       "identityHash is required",
		},
		{
			name:          "malformed executors JSON",
			executors:     `not-json`,
			beneficiaries: validBeneficiaries,
			moratorium:    7,
			wantErr:       "invalid executorsJSON",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness()
			err := h.contract.DefineWill(h.ctxAs(idOwner), tc.executors, tc.beneficiaries, tc.moratorium, tc.identityHash, tc.requireOracle)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestDefineWill_RedefinitionPreservesCreatedAt(t *testing.T) {
	h := newHarness()
	require.NoError(t, h.defineStandardWill())
	original, err := h.contract.GetWill(h.ctxAs(idOwner), idOwner)
	require.NoError(t, err)

	h.advance(48 * time.Hour)
	executors := fmt.Sprintf(`["%s","%s"]`, idExecutor2, idExecutor3)
	beneficiaries := fmt.Sprintf(`[{"identity":"%s","shareBasisPoints":10000}]`, idBenef2)
	require.NoError(t, h.contract.DefineWill(h.ctxAs(idOwner), executors, beneficiaries, 30, "", false))

	updated, err := h.contract.GetWill(h.ctxAs(idOwner), idOwner)
	require.NoError(t, err)
	assert.Equal(t, original.CreatedAt, updated.CreatedAt)
	assert.True(t, updated.LastUpdated.After(original.LastUpdated))
	assert.Equal(t, []string{idExecutor2, idExecutor3}, updated.Executors)
	assert.Equal(t, int64(30), updated.MoratoriumDays)
}

func TestDefineWill_RejectedWhileProcessUnderway(t *testing.T) {
	h := newHarness()
	require.NoError(t, h.defineStandardWill())
	require.NoError(t, h.contract.AnnounceInheritance(h.ctxAs(idExecutor1), idOwner))

	err := h.defineStandardWill()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot redefine will while inheritance process is 'ANNOUNCED'")
}

func TestRevokeWill(t *testing.T) {
	h := newHarness()
	require.NoError(t, h.defineStandardWill())

	t.Run("non-owner cannot revoke", func(t *testing.T) {
		err := h.contract.RevokeWill(h.ctxAs(idExecutor1))
		require.Error(t, err)
	})

	t.Run("owner revokes", func(t *testing.T) {
		require.NoError(t, h.contract.RevokeWill(h.ctxAs(idOwner)))
		will, err := h.contract.GetWill(h.ctxAs(idOwner), idOwner)
		require.NoError(t, err)
		assert.Equal(t, model.WillStatusRevoked, will.Status)
		assert.Contains(t, h.stub.events, "WillRevoked")
	})

	t.Run("revoking twice fails", func(t *testing.T) {
		err := h.contract.RevokeWill(h.ctxAs(idOwner))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "will status is 'REVOKED'")
	})

	t.Run("revoked will cannot be announced", func(t *testing.T) {
		err := h.contract.AnnounceInheritance(h.ctxAs(idExecutor1), idOwner)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "will status is 'REVOKED'")
	})
}

func TestRevokeWill_BlockedDuringProcess(t *testing.T) {
	h := newHarness()
	require.NoError(t, h.defineStandardWill())
	require.NoError(t, h.contract.AnnounceInheritance(h.ctxAs(idExecutor1), idOwner))

	err := h.contract.RevokeWill(h.ctxAs(idOwner))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot revoke while inheritance process is 'ANNOUNCED'")
}

func TestRevokedWillOwnerCanStillWithdraw(t *testing.T) {
	h := newHarness()
	require.NoError(t, h.defineStandardWill())
	require.NoError(t, h.contract.DepositNative(h.ctxAs(idOwner), 100))
	require.NoError(t, h.contract.RevokeWill(h.ctxAs(idOwner)))

	require.NoError(t, h.contract.WithdrawNative(h.ctxAs(idOwner), 100))
	balance, err := h.contract.GetNativeBalance(h.ctxAs(idOwner), idOwner)
	require.NoError(t, err)
	assert.Zero(t, balance)
}

func TestIsExecutor(t *testing.T) {
	h := newHarness()
	require.NoError(t, h.defineStandardWill())

	yes, err := h.contract.IsExecutor(h.ctxAs(idStranger), idOwner, idExecutor1)
	require.NoError(t, err)
	assert.True(t, yes)

	no, err := h.contract.IsExecutor(h.ctxAs(idStranger), idOwner, idBenef1)
	require.NoError(t, err)
	assert.False(t, no)
}

func TestGetWillHistory(t *testing.T) {
	h := newHarness()
	require.NoError(t, h.defineStandardWill())
	require.NoError(t, h.contract.RevokeWill(h.ctxAs(idOwner)))

	history, err := h.contract.GetWillHistory(h.ctxAs(idOwner), idOwner)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, string(model.WillStatusActive), history[0].Status)
	assert.Equal(t, string(model.WillStatusRevoked), history[1].Status)
}

func TestGetWillsByStatus(t *testing.T) {
	h := newHarness()
	require.NoError(t, h.defineStandardWill())

	page, err := h.contract.GetWillsByStatus(h.ctxAs(idAdmin), "ACTIVE", 10, "", false)
	require.NoError(t, err)
	require.Len(t, page.Wills, 1)
	assert.Equal(t, idOwner, page.Wills[0].Owner)

	empty, err := h.contract.GetWillsByStatus(h.ctxAs(idAdmin), "REVOKED", 10, "", false)
	require.NoError(t, err)
	assert.Empty(t, empty.Wills)

	_, err = h.contract.GetWillsByStatus(h.ctxAs(idAdmin), "BOGUS", 10, "", false)
	require.Error(t, err)
}
