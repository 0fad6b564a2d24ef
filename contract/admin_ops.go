package contract

import (
	"fmt"

	"willvault/model"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"
)

// --- Administrative Operations ---

// BootstrapLedger registers the caller as the first identity and grants them
// admin. Only usable while no admin exists; after that, identity management
// goes through the admin-gated operations.
func (s *EstateSmartContract) BootstrapLedger(ctx contractapi.TransactionContextInterface, shortName string) error {
	im := NewIdentityManager(ctx)

	anyAdminExists, err := im.AnyAdminExists()
	if err != nil {
		return fmt.Errorf("BootstrapLedger: failed to check for existing admins: %w", err)
	}
	if anyAdminExists {
		return fmt.Errorf("BootstrapLedger: ledger is already bootstrapped; use MakeIdentityAdmin instead")
	}

	callerFullID, err := im.GetCurrentIdentityFullID()
	if err != nil {
		return fmt.Errorf("BootstrapLedger: failed to get caller's FullID: %w", err)
	}
	if err := s.validateRequiredString(shortName, "shortName", maxStringInputLength); err != nil {
		return fmt.Errorf("BootstrapLedger: %w", err)
	}

	if err := im.RegisterIdentity(callerFullID, shortName); err != nil {
		return fmt.Errorf("BootstrapLedger: failed to register bootstrap identity: %w", err)
	}
	if err := im.MakeAdmin(callerFullID); err != nil {
		return fmt.Errorf("BootstrapLedger: failed to grant admin to bootstrap identity: %w", err)
	}

	logger.Infof("Ledger bootstrapped: '%s' (alias '%s') is the first admin", callerFullID, shortName)
	return nil
}

// SuspendWill administratively takes an Active will out of force. A suspended
// will blocks deposits and announcements until reinstated; custody withdrawal
// stays open to the owner.
func (s *EstateSmartContract) SuspendWill(ctx contractapi.TransactionContextInterface, owner, reason string) error {
	im := NewIdentityManager(ctx)
	if err := s.requireAdmin(ctx, im); err != nil {
		return fmt.Errorf("SuspendWill: %w", err)
	}
	actor, err := s.getCurrentActorInfo(ctx)
	if err != nil {
		return fmt.Errorf("SuspendWill: failed to get actor info: %w", err)
	}
	if err := s.validateRequiredString(reason, "reason", maxReasonLength); err != nil {
		return fmt.Errorf("SuspendWill: %w", err)
	}
	resolvedOwner, err := im.ResolveIdentity(owner)
	if err != nil {
		return fmt.Errorf("SuspendWill: failed to resolve owner '%s': %w", owner, err)
	}

	will, err := s.getWillByOwner(ctx, resolvedOwner)
	if err != nil {
		return fmt.Errorf("SuspendWill: %w", err)
	}
	if will.Status != model.WillStatusActive {
		return fmt.Errorf("SuspendWill: will status is '%s', only '%s' wills can be suspended", will.Status, model.WillStatusActive)
	}
	process, err := s.getProcessByOwner(ctx, resolvedOwner)
	if err != nil {
		return fmt.Errorf("SuspendWill: %w", err)
	}
	if process.Status != model.ProcessNotStarted {
		return fmt.Errorf("SuspendWill: cannot suspend while inheritance process is '%s'", process.Status)
	}

	now, err := s.getCurrentTxTimestamp(ctx)
	if err != nil {
		return fmt.Errorf("SuspendWill: failed to get transaction timestamp: %w", err)
	}
	will.Status = model.WillStatusSuspended
	will.LastUpdated = now
	if err := s.putWill(ctx, will); err != nil {
		return fmt.Errorf("SuspendWill: %w", err)
	}

	s.emitEstateEvent(ctx, "WillSuspended", resolvedOwner, actor, willParticipants(will), map[string]interface{}{
		"reason": reason,
	})
	logger.Warningf("Will for owner '%s' suspended by admin '%s': %s", resolvedOwner, actor.fullID, reason)
	return nil
}

// ReinstateWill returns a suspended will to force. Admin-only.
func (s *EstateSmartContract) ReinstateWill(ctx contractapi.TransactionContextInterface, owner string) error {
	im := NewIdentityManager(ctx)
	if err := s.requireAdmin(ctx, im); err != nil {
		return fmt.Errorf("ReinstateWill: %w", err)
	}
	actor, err := s.getCurrentActorInfo(ctx)
	if err != nil {
		return fmt.Errorf("ReinstateWill: failed to get actor info: %w", err)
	}
	resolvedOwner, err := im.ResolveIdentity(owner)
	if err != nil {
		return fmt.Errorf("ReinstateWill: failed to resolve owner '%s': %w", owner, err)
	}

	will, err := s.getWillByOwner(ctx, resolvedOwner)
	if err != nil {
		return fmt.Errorf("ReinstateWill: %w", err)
	}
	if will.Status != model.WillStatusSuspended {
		return fmt.Errorf("ReinstateWill: will status is '%s', expected '%s'", will.Status, model.WillStatusSuspended)
	}

	now, err := s.getCurrentTxTimestamp(ctx)
	if err != nil {
		return fmt.Errorf("ReinstateWill: failed to get transaction timestamp: %w", err)
	}
	will.Status = model.WillStatusActive
	will.LastUpdated = now
	if err := s.putWill(ctx, will); err != nil {
		return fmt.Errorf("ReinstateWill: %w", err)
	}

	s.emitEstateEvent(ctx, "WillReinstated", resolvedOwner, actor, willParticipants(will), nil)
	logger.Infof("Will for owner '%s' reinstated by admin '%s'", resolvedOwner, actor.fullID)
	return nil
}

// ArchiveWill marks a terminal will as archived so listings stay clean.
// Admin-only; executed and revoked wills qualify, active ones never do.
func (s *EstateSmartContract) ArchiveWill(ctx contractapi.TransactionContextInterface, owner string) error {
	im := NewIdentityManager(ctx)
	if err := s.requireAdmin(ctx, im); err != nil {
		return fmt.Errorf("ArchiveWill: %w", err)
	}
	actor, err := s.getCurrentActorInfo(ctx)
	if err != nil {
		return fmt.Errorf("ArchiveWill: failed to get actor info: %w", err)
	}
	resolvedOwner, err := im.ResolveIdentity(owner)
	if err != nil {
		return fmt.Errorf("ArchiveWill: failed to resolve owner '%s': %w", owner, err)
	}

	will, err := s.getWillByOwner(ctx, resolvedOwner)
	if err != nil {
		return fmt.Errorf("ArchiveWill: %w", err)
	}
	if will.Status != model.WillStatusExecuted && will.Status != model.WillStatusRevoked {
		return fmt.Errorf("ArchiveWill: will status is '%s'; only '%s' or '%s' wills can be archived", will.Status, model.WillStatusExecuted, model.WillStatusRevoked)
	}
	if will.IsArchived {
		return fmt.Errorf("ArchiveWill: will for owner '%s' is already archived", resolvedOwner)
	}

	now, err := s.getCurrentTxTimestamp(ctx)
	if err != nil {
		return fmt.Errorf("ArchiveWill: failed to get transaction timestamp: %w", err)
	}
	will.IsArchived = true
	will.LastUpdated = now
	if err := s.putWill(ctx, will); err != nil {
		return fmt.Errorf("ArchiveWill: %w", err)
	}

	s.emitEstateEvent(ctx, "WillArchived", resolvedOwner, actor, nil, nil)
	logger.Infof("Will for owner '%s' archived by admin '%s'", resolvedOwner, actor.fullID)
	return nil
}

// UnarchiveWill reverses ArchiveWill. Admin-only.
func (s *EstateSmartContract) UnarchiveWill(ctx contractapi.TransactionContextInterface, owner string) error {
	im := NewIdentityManager(ctx)
	if err := s.requireAdmin(ctx, im); err != nil {
		return fmt.Errorf("UnarchiveWill: %w", err)
	}
	actor, err := s.getCurrentActorInfo(ctx)
	if err != nil {
		return fmt.Errorf("UnarchiveWill: failed to get actor info: %w", err)
	}
	resolvedOwner, err := im.ResolveIdentity(owner)
	if err != nil {
		return fmt.Errorf("UnarchiveWill: failed to resolve owner '%s': %w", owner, err)
	}

	will, err := s.getWillByOwner(ctx, resolvedOwner)
	if err != nil {
		return fmt.Errorf("UnarchiveWill: %w", err)
	}
	if !will.IsArchived {
		return fmt.Errorf("UnarchiveWill: will for owner '%s' is not archived", resolvedOwner)
	}

	now, err := s.getCurrentTxTimestamp(ctx)
	if err != nil {
		return fmt.Errorf("UnarchiveWill: failed to get transaction timestamp: %w", err)
	}
	will.IsArchived = false
	will.LastUpdated = now
	if err := s.putWill(ctx, will); err != nil {
		return fmt.Errorf("UnarchiveWill: %w", err)
	}

	s.emitEstateEvent(ctx, "WillUnarchived", resolvedOwner, actor, nil, nil)
	logger.Infof("Will for owner '%s' unarchived by admin '%s'", resolvedOwner, actor.fullID)
	return nil
}
