package contract

import (
	"encoding/json"
	"fmt"
	"time"

	"willvault/model"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"
)

// --- Inheritance Process Operations ---
//
// The process is a per-owner state machine: NotStarted -> Announced ->
// (Challenged | Executed). Announcement opens a fixed challenge window;
// execution additionally waits out the will's moratorium and requires
// executor consensus.

// AnnounceInheritance starts the inheritance process for the given owner. Only
// an executor of the owner's will may announce. When the will demands oracle
// verification, a matching DeathVerification record must already exist.
func (s *EstateSmartContract) AnnounceInheritance(ctx contractapi.TransactionContextInterface, owner string) error {
	actor, err := s.getCurrentActorInfo(ctx)
	if err != nil {
		return fmt.Errorf("AnnounceInheritance: failed to get actor info: %w", err)
	}
	im := NewIdentityManager(ctx)
	resolvedOwner, err := im.ResolveIdentity(owner)
	if err != nil {
		return fmt.Errorf("AnnounceInheritance: failed to resolve owner '%s': %w", owner, err)
	}

	will, err := s.getWillByOwner(ctx, resolvedOwner)
	if err != nil {
		return fmt.Errorf("AnnounceInheritance: %w", err)
	}
	if err := checkCapability(opAnnounce, actor.fullID, will); err != nil {
		return err
	}
	if will.Status != model.WillStatusActive {
		return fmt.Errorf("AnnounceInheritance: will status is '%s', expected '%s'", will.Status, model.WillStatusActive)
	}

	process, err := s.getProcessByOwner(ctx, resolvedOwner)
	if err != nil {
		return fmt.Errorf("AnnounceInheritance: %w", err)
	}
	if process.Status != model.ProcessNotStarted {
		return fmt.Errorf("AnnounceInheritance: process already '%s' for owner '%s'", process.Status, resolvedOwner)
	}

	oracleVerified := false
	if will.RequiresOracleVerification {
		verification, err := s.getDeathVerification(ctx, will.IdentityHash)
		if err != nil {
			return fmt.Errorf("AnnounceInheritance: %w", err)
		}
		if verification == nil || !verification.Verified {
			return fmt.Errorf("AnnounceInheritance: death verification pending for identity hash '%s'; request verification and retry once the oracle has recorded it", will.IdentityHash)
		}
		oracleVerified = true
	}

	now, err := s.getCurrentTxTimestamp(ctx)
	if err != nil {
		return fmt.Errorf("AnnounceInheritance: failed to get transaction timestamp: %w", err)
	}

	process.ObjectType = processObjectType
	process.Owner = resolvedOwner
	process.Initiator = actor.fullID
	process.Status = model.ProcessAnnounced
	process.StartTime = now
	process.ChallengeEndTime = now.Add(challengePeriodDays * 24 * time.Hour)
	process.OracleVerified = oracleVerified
	if err := s.putProcess(ctx, process); err != nil {
		return fmt.Errorf("AnnounceInheritance: %w", err)
	}

	s.emitEstateEvent(ctx, "InheritanceAnnounced", resolvedOwner, actor, willParticipants(will), map[string]interface{}{
		"challengeEndTime": process.ChallengeEndTime,
		"moratoriumDays":   will.MoratoriumDays,
		"oracleVerified":   oracleVerified,
	})
	logger.Infof("Executor '%s' announced inheritance for owner '%s'; challenge window ends %s", actor.fullID, resolvedOwner, process.ChallengeEndTime.Format(time.RFC3339))
	return nil
}

// ProvideConsensus records an executor's affirmation of an announced process.
// Each executor counts once.
func (s *EstateSmartContract) ProvideConsensus(ctx contractapi.TransactionContextInterface, owner string) error {
	actor, err := s.getCurrentActorInfo(ctx)
	if err != nil {
		return fmt.Errorf("ProvideConsensus: failed to get actor info: %w", err)
	}
	im := NewIdentityManager(ctx)
	resolvedOwner, err := im.ResolveIdentity(owner)
	if err != nil {
		return fmt.Errorf("ProvideConsensus: failed to resolve owner '%s': %w", owner, err)
	}

	will, err := s.getWillByOwner(ctx, resolvedOwner)
	if err != nil {
		return fmt.Errorf("ProvideConsensus: %w", err)
	}
	if err := checkCapability(opConsensus, actor.fullID, will); err != nil {
		return err
	}

	process, err := s.getProcessByOwner(ctx, resolvedOwner)
	if err != nil {
		return fmt.Errorf("ProvideConsensus: %w", err)
	}
	if process.Status != model.ProcessAnnounced {
		return fmt.Errorf("ProvideConsensus: process status is '%s', consensus requires '%s'", process.Status, model.ProcessAnnounced)
	}
	if process.HasAffirmed(actor.fullID) {
		return fmt.Errorf("ProvideConsensus: executor '%s' already provided consensus for owner '%s'", actor.fullID, resolvedOwner)
	}

	process.Affirmations = append(process.Affirmations, actor.fullID)
	process.ConsensusCount = len(process.Affirmations)
	if err := s.putProcess(ctx, process); err != nil {
		return fmt.Errorf("ProvideConsensus: %w", err)
	}

	s.emitEstateEvent(ctx, "ConsensusProvided", resolvedOwner, actor, will.Executors, map[string]interface{}{
		"consensusCount": process.ConsensusCount,
		"required":       minExecutorConsensus,
	})
	logger.Infof("Executor '%s' affirmed inheritance for owner '%s' (%d/%d)", actor.fullID, resolvedOwner, process.ConsensusCount, minExecutorConsensus)
	return nil
}

// ChallengeInheritance contests an announced process inside the challenge
// window. The owner themselves or any executor may challenge; a successful
// challenge halts the process and freezes custody pending manual resolution.
func (s *EstateSmartContract) ChallengeInheritance(ctx contractapi.TransactionContextInterface, owner, reason string) error {
	actor, err := s.getCurrentActorInfo(ctx)
	if err != nil {
		return fmt.Errorf("ChallengeInheritance: failed to get actor info: %w", err)
	}
	if err := s.validateRequiredString(reason, "reason", maxReasonLength); err != nil {
		return fmt.Errorf("ChallengeInheritance: %w", err)
	}
	im := NewIdentityManager(ctx)
	resolvedOwner, err := im.ResolveIdentity(owner)
	if err != nil {
		return fmt.Errorf("ChallengeInheritance: failed to resolve owner '%s': %w", owner, err)
	}

	will, err := s.getWillByOwner(ctx, resolvedOwner)
	if err != nil {
		return fmt.Errorf("ChallengeInheritance: %w", err)
	}
	if err := checkCapability(opChallenge, actor.fullID, will); err != nil {
		return err
	}

	process, err := s.getProcessByOwner(ctx, resolvedOwner)
	if err != nil {
		return fmt.Errorf("ChallengeInheritance: %w", err)
	}
	if process.Status != model.ProcessAnnounced {
		return fmt.Errorf("ChallengeInheritance: process status is '%s', challenges require '%s'", process.Status, model.ProcessAnnounced)
	}
	now, err := s.getCurrentTxTimestamp(ctx)
	if err != nil {
		return fmt.Errorf("ChallengeInheritance: failed to get transaction timestamp: %w", err)
	}
	if now.After(process.ChallengeEndTime) {
		return fmt.Errorf("ChallengeInheritance: challenge window closed at %s", process.ChallengeEndTime.Format(time.RFC3339))
	}

	process.Challengers = append(process.Challengers, actor.fullID)
	process.ChallengeReasons = append(process.ChallengeReasons, reason)
	process.Status = model.ProcessChallenged
	if err := s.putProcess(ctx, process); err != nil {
		return fmt.Errorf("ChallengeInheritance: %w", err)
	}

	s.emitEstateEvent(ctx, "InheritanceChallenged", resolvedOwner, actor, willParticipants(will), map[string]interface{}{
		"reason": reason,
	})
	logger.Warningf("Inheritance for owner '%s' challenged by '%s': %s", resolvedOwner, actor.fullID, reason)
	return nil
}

// ExecuteInheritance settles an announced process: it distributes all custody
// holdings proportionally to the beneficiaries, writes the distribution audit
// record, and marks both the process and the will as executed. Gates are
// checked in a fixed order so callers always see the earliest unmet condition.
func (s *EstateSmartContract) ExecuteInheritance(ctx contractapi.TransactionContextInterface, owner string) error {
	actor, err := s.getCurrentActorInfo(ctx)
	if err != nil {
		return fmt.Errorf("ExecuteInheritance: failed to get actor info: %w", err)
	}
	im := NewIdentityManager(ctx)
	resolvedOwner, err := im.ResolveIdentity(owner)
	if err != nil {
		return fmt.Errorf("ExecuteInheritance: failed to resolve owner '%s': %w", owner, err)
	}

	will, err := s.getWillByOwner(ctx, resolvedOwner)
	if err != nil {
		return fmt.Errorf("ExecuteInheritance: %w", err)
	}
	if err := checkCapability(opExecute, actor.fullID, will); err != nil {
		return err
	}

	process, err := s.getProcessByOwner(ctx, resolvedOwner)
	if err != nil {
		return fmt.Errorf("ExecuteInheritance: %w", err)
	}
	now, err := s.getCurrentTxTimestamp(ctx)
	if err != nil {
		return fmt.Errorf("ExecuteInheritance: failed to get transaction timestamp: %w", err)
	}
	if err := checkExecutionGates(will, process, now); err != nil {
		return fmt.Errorf("ExecuteInheritance: %w", err)
	}

	holdings, err := s.getHoldingsByOwner(ctx, resolvedOwner)
	if err != nil {
		return fmt.Errorf("ExecuteInheritance: %w", err)
	}

	transfers, residues, err := s.distributeHoldings(ctx, holdings, will.Beneficiaries)
	if err != nil {
		return fmt.Errorf("ExecuteInheritance: distribution failed: %w", err)
	}

	record := model.DistributionRecord{
		ObjectType: distributionObjectType,
		Owner:      resolvedOwner,
		ExecutedBy: actor.fullID,
		ExecutedAt: now,
		Transfers:  transfers,
		Residues:   residues,
	}
	distKey, err := s.createDistributionKey(ctx, resolvedOwner)
	if err != nil {
		return fmt.Errorf("ExecuteInheritance: failed to create distribution key: %w", err)
	}
	recordBytes, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("ExecuteInheritance: failed to marshal distribution record: %w", err)
	}
	if err := ctx.GetStub().PutState(distKey, recordBytes); err != nil {
		return fmt.Errorf("ExecuteInheritance: failed to save distribution record: %w", err)
	}

	// Custody is drained in full; residues are recorded above, not retained
	// as spendable balances.
	drained := model.NewAssetHoldings(resolvedOwner)
	drained.UpdatedAt = now
	if err := s.putHoldings(ctx, drained); err != nil {
		return fmt.Errorf("ExecuteInheritance: %w", err)
	}

	process.Status = model.ProcessExecuted
	process.ExecutedAt = now
	if err := s.putProcess(ctx, process); err != nil {
		return fmt.Errorf("ExecuteInheritance: %w", err)
	}
	will.Status = model.WillStatusExecuted
	will.LastUpdated = now
	if err := s.putWill(ctx, will); err != nil {
		return fmt.Errorf("ExecuteInheritance: %w", err)
	}

	beneficiaryIDs := make([]string, 0, len(will.Beneficiaries))
	for _, b := range will.Beneficiaries {
		beneficiaryIDs = append(beneficiaryIDs, b.Identity)
	}
	s.emitEstateEvent(ctx, "InheritanceExecuted", resolvedOwner, actor, beneficiaryIDs, map[string]interface{}{
		"transferCount": len(transfers),
		"residueCount":  len(residues),
	})
	logger.Infof("Inheritance for owner '%s' executed by '%s': %d transfers, %d residues", resolvedOwner, actor.fullID, len(transfers), len(residues))
	return nil
}

// checkExecutionGates validates every precondition of execution in order:
// announced, challenge window elapsed, moratorium elapsed, consensus quorum,
// oracle verification.
func checkExecutionGates(will *model.Will, process *model.InheritanceProcess, now time.Time) error {
	if process.Status != model.ProcessAnnounced {
		return fmt.Errorf("process status is '%s', execution requires '%s'", process.Status, model.ProcessAnnounced)
	}
	if !now.After(process.ChallengeEndTime) {
		return fmt.Errorf("challenge window open until %s", process.ChallengeEndTime.Format(time.RFC3339))
	}
	moratoriumEnd := process.StartTime.Add(time.Duration(will.MoratoriumDays) * 24 * time.Hour)
	if now.Before(moratoriumEnd) {
		return fmt.Errorf("moratorium in effect until %s", moratoriumEnd.Format(time.RFC3339))
	}
	if process.ConsensusCount < minExecutorConsensus {
		return fmt.Errorf("executor consensus is %d of %d required", process.ConsensusCount, minExecutorConsensus)
	}
	if will.RequiresOracleVerification && !process.OracleVerified {
		return fmt.Errorf("oracle verification missing for identity hash '%s'", will.IdentityHash)
	}
	return nil
}
