package contract

import (
	"testing"

	"willvault/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBootstrapLedger(t *testing.T) {
	h := newHarness()

	require.NoError(t, h.contract.BootstrapLedger(h.ctxAs(idAdmin), "root"))

	info, err := h.contract.GetIdentityDetails(h.ctxAs(idAdmin), "root")
	require.NoError(t, err)
	assert.Equal(t, idAdmin, info.FullID)
	assert.True(t, info.IsAdmin)

	t.Run("second bootstrap rejected", func(t *testing.T) {
		err := h.contract.BootstrapLedger(h.ctxAs(idStranger), "mallory")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "already bootstrapped")
	})

	t.Run("non-admin cannot register identities", func(t *testing.T) {
		err := h.contract.RegisterIdentity(h.ctxAs(idStranger), idStranger, "mallory")
		require.Error(t, err)
	})

	t.Run("admin registers and promotes", func(t *testing.T) {
		require.NoError(t, h.contract.RegisterIdentity(h.ctxAs(idAdmin), idExecutor1, "edgar"))
		require.NoError(t, h.contract.MakeIdentityAdmin(h.ctxAs(idAdmin), "edgar"))
		isAdmin, err := NewIdentityManager(h.ctxAs(idExecutor1)).IsCurrentUserAdmin()
		require.NoError(t, err)
		assert.True(t, isAdmin)
	})
}

func TestGetIdentityDetails_AccessControl(t *testing.T) {
	h := newHarness()
	require.NoError(t, h.contract.BootstrapLedger(h.ctxAs(idAdmin), "root"))
	require.NoError(t, h.contract.RegisterIdentity(h.ctxAs(idAdmin), idOwner, "olivia"))

	// Self lookup works, third-party lookup does not.
	_, err := h.contract.GetIdentityDetails(h.ctxAs(idOwner), "olivia")
	require.NoError(t, err)

	_, err = h.contract.GetIdentityDetails(h.ctxAs(idStranger), "olivia")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unauthorized")
}

func TestSuspendAndReinstateWill(t *testing.T) {
	h := newHarness()
	require.NoError(t, h.contract.BootstrapLedger(h.ctxAs(idAdmin), "root"))
	require.NoError(t, h.defineStandardWill())

	t.Run("non-admin cannot suspend", func(t *testing.T) {
		err := h.contract.SuspendWill(h.ctxAs(idExecutor1), idOwner, "court order")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not an admin")
	})

	require.NoError(t, h.contract.SuspendWill(h.ctxAs(idAdmin), idOwner, "court order"))

	t.Run("suspension blocks announcement and deposits", func(t *testing.T) {
		err := h.contract.AnnounceInheritance(h.ctxAs(idExecutor1), idOwner)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "will status is 'SUSPENDED'")

		err = h.contract.DepositNative(h.ctxAs(idOwner), 10)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "deposits require an 'ACTIVE' will")
	})

	t.Run("double suspension rejected", func(t *testing.T) {
		err := h.contract.SuspendWill(h.ctxAs(idAdmin), idOwner, "again")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "only 'ACTIVE' wills can be suspended")
	})

	t.Run("owner cannot redefine around a suspension", func(t *testing.T) {
		err := h.defineStandardWill()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "must be reinstated by an admin")
	})

	t.Run("owner cannot revoke a suspended will", func(t *testing.T) {
		err := h.contract.RevokeWill(h.ctxAs(idOwner))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "will status is 'SUSPENDED'")
	})

	t.Run("reinstatement restores force", func(t *testing.T) {
		require.NoError(t, h.contract.ReinstateWill(h.ctxAs(idAdmin), idOwner))
		will, err := h.contract.GetWill(h.ctxAs(idAdmin), idOwner)
		require.NoError(t, err)
		assert.Equal(t, model.WillStatusActive, will.Status)
		require.NoError(t, h.contract.DepositNative(h.ctxAs(idOwner), 10))
	})
}

func TestArchiveWill(t *testing.T) {
	h := newHarness()
	require.NoError(t, h.contract.BootstrapLedger(h.ctxAs(idAdmin), "root"))
	require.NoError(t, h.defineStandardWill())

	t.Run("active will cannot be archived", func(t *testing.T) {
		err := h.contract.ArchiveWill(h.ctxAs(idAdmin), idOwner)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "only 'EXECUTED' or 'REVOKED' wills can be archived")
	})

	require.NoError(t, h.contract.RevokeWill(h.ctxAs(idOwner)))

	t.Run("non-admin cannot archive", func(t *testing.T) {
		err := h.contract.ArchiveWill(h.ctxAs(idOwner), idOwner)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not an admin")
	})

	t.Run("admin archives a revoked will", func(t *testing.T) {
		require.NoError(t, h.contract.ArchiveWill(h.ctxAs(idAdmin), idOwner))

		will, err := h.contract.GetWill(h.ctxAs(idAdmin), idOwner)
		require.NoError(t, err)
		assert.True(t, will.IsArchived)
		assert.Equal(t, model.WillStatusRevoked, will.Status)
	})

	t.Run("archived wills drop out of listings", func(t *testing.T) {
		page, err := h.contract.GetWillsByStatus(h.ctxAs(idAdmin), "REVOKED", 10, "", false)
		require.NoError(t, err)
		assert.Empty(t, page.Wills)

		withArchived, err := h.contract.GetWillsByStatus(h.ctxAs(idAdmin), "REVOKED", 10, "", true)
		require.NoError(t, err)
		assert.Len(t, withArchived.Wills, 1)
	})

	t.Run("double archive rejected", func(t *testing.T) {
		err := h.contract.ArchiveWill(h.ctxAs(idAdmin), idOwner)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "already archived")
	})

	t.Run("unarchive restores visibility", func(t *testing.T) {
		require.NoError(t, h.contract.UnarchiveWill(h.ctxAs(idAdmin), idOwner))
		page, err := h.contract.GetWillsByStatus(h.ctxAs(idAdmin), "REVOKED", 10, "", false)
		require.NoError(t, err)
		assert.Len(t, page.Wills, 1)
	})
}
