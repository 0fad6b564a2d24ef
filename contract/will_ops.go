package contract

import (
	"encoding/json"
	"fmt"

	"willvault/model"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"
)

// --- Lifecycle: Will Registry Operations ---

// DefineWill creates or overwrites the caller's will. The caller becomes the
// owner. All structural invariants are validated up front; the operation
// either fully succeeds or leaves no trace.
func (s *EstateSmartContract) DefineWill(ctx contractapi.TransactionContextInterface,
	executorsJSON string, beneficiariesJSON string, moratoriumDays int64,
	identityHash string, requiresOracleVerification bool) error {

	actor, err := s.getCurrentActorInfo(ctx)
	if err != nil {
		return fmt.Errorf("DefineWill: failed to get actor info: %w", err)
	}
	if err := checkCapability(opDefineWill, actor.fullID, nil); err != nil {
		return err
	}

	logger.Infof("Owner '%s' (alias: '%s') defining will", actor.fullID, actor.alias)

	im := NewIdentityManager(ctx)
	executors, err := s.validateExecutorsArg(im, executorsJSON, actor.fullID)
	if err != nil {
		return fmt.Errorf("DefineWill: %w", err)
	}
	beneficiaries, err := s.validateBeneficiariesArg(im, beneficiariesJSON)
	if err != nil {
		return fmt.Errorf("DefineWill: %w", err)
	}
	if moratoriumDays < minMoratoriumDays || moratoriumDays > maxMoratoriumDays {
		return fmt.Errorf("DefineWill: moratoriumDays must be between %d and %d, got %d", minMoratoriumDays, maxMoratoriumDays, moratoriumDays)
	}
	if err := s.validateOptionalString(identityHash, "identityHash", maxStringInputLength); err != nil {
		return fmt.Errorf("DefineWill: %w", err)
	}
	if requiresOracleVerification && identityHash == "" {
		return fmt.Errorf("DefineWill: identityHash is required when oracle verification is requested")
	}

	now, err := s.getCurrentTxTimestamp(ctx)
	if err != nil {
		return fmt.Errorf("DefineWill: failed to get transaction timestamp: %w", err)
	}

	willKey, err := s.createWillKey(ctx, actor.fullID)
	if err != nil {
		return fmt.Errorf("DefineWill: failed to create will key: %w", err)
	}
	existingBytes, err := ctx.GetStub().GetState(willKey)
	if err != nil {
		return fmt.Errorf("DefineWill: failed to check for existing will: %w", err)
	}

	createdAt := now
	if existingBytes != nil {
		var existing model.Will
		if err := json.Unmarshal(existingBytes, &existing); err != nil {
			return fmt.Errorf("DefineWill: failed to unmarshal existing will: %w", err)
		}
		// Redefinition always writes an Active will, so a suspended will must
		// stay with the admin: letting the owner redefine would lift the
		// suspension without ReinstateWill.
		if existing.Status == model.WillStatusSuspended {
			return fmt.Errorf("DefineWill: will is '%s'; it must be reinstated by an admin before it can be redefined", existing.Status)
		}
		// Redefinition while an inheritance process is mid-flight would let an
		// owner swap beneficiaries out from under the executors.
		process, err := s.getProcessByOwner(ctx, actor.fullID)
		if err != nil {
			return fmt.Errorf("DefineWill: %w", err)
		}
		if process.Status != model.ProcessNotStarted && process.Status != model.ProcessCancelled {
			return fmt.Errorf("DefineWill: cannot redefine will while inheritance process is '%s'", process.Status)
		}
		if existing.Status == model.WillStatusActive {
			createdAt = existing.CreatedAt
		}
	}

	will := model.Will{
		ObjectType:                 willObjectType,
		Owner:                      actor.fullID,
		OwnerAlias:                 actor.alias,
		Executors:                  executors,
		Beneficiaries:              beneficiaries,
		MoratoriumDays:             moratoriumDays,
		IdentityHash:               identityHash,
		RequiresOracleVerification: requiresOracleVerification,
		Status:                     model.WillStatusActive,
		CreatedAt:                  createdAt,
		LastUpdated:                now,
	}
	if err := s.putWill(ctx, &will); err != nil {
		return fmt.Errorf("DefineWill: %w", err)
	}

	s.emitEstateEvent(ctx, "WillDefined", actor.fullID, actor, will.Executors, map[string]interface{}{
		"executorCount":    len(executors),
		"beneficiaryCount": len(beneficiaries),
		"moratoriumDays":   moratoriumDays,
		"requiresOracle":   requiresOracleVerification,
	})
	logger.Infof("Will defined for owner '%s' with %d executors and %d beneficiaries", actor.fullID, len(executors), len(beneficiaries))
	return nil
}

// RevokeWill terminates the caller's will. Only possible before an inheritance
// process starts. Custody balances are deliberately left in place: the owner
// can still withdraw them since withdrawal gates only on a NotStarted process.
func (s *EstateSmartContract) RevokeWill(ctx contractapi.TransactionContextInterface) error {
	actor, err := s.getCurrentActorInfo(ctx)
	if err != nil {
		return fmt.Errorf("RevokeWill: failed to get actor info: %w", err)
	}

	will, err := s.getWillByOwner(ctx, actor.fullID)
	if err != nil {
		return fmt.Errorf("RevokeWill: %w", err)
	}
	if err := checkCapability(opRevokeWill, actor.fullID, will); err != nil {
		return err
	}
	if will.Status != model.WillStatusActive {
		return fmt.Errorf("RevokeWill: will status is '%s', expected '%s'", will.Status, model.WillStatusActive)
	}

	process, err := s.getProcessByOwner(ctx, actor.fullID)
	if err != nil {
		return fmt.Errorf("RevokeWill: %w", err)
	}
	if process.Status != model.ProcessNotStarted {
		return fmt.Errorf("RevokeWill: cannot revoke while inheritance process is '%s'", process.Status)
	}

	now, err := s.getCurrentTxTimestamp(ctx)
	if err != nil {
		return fmt.Errorf("RevokeWill: failed to get transaction timestamp: %w", err)
	}
	will.Status = model.WillStatusRevoked
	will.LastUpdated = now
	if err := s.putWill(ctx, will); err != nil {
		return fmt.Errorf("RevokeWill: %w", err)
	}

	s.emitEstateEvent(ctx, "WillRevoked", actor.fullID, actor, willParticipants(will), nil)
	logger.Infof("Will for owner '%s' revoked", actor.fullID)
	return nil
}

// IsExecutor reports whether the candidate identity is an executor of the
// owner's will.
func (s *EstateSmartContract) IsExecutor(ctx contractapi.TransactionContextInterface, owner, candidate string) (bool, error) {
	im := NewIdentityManager(ctx)
	resolvedOwner, err := im.ResolveIdentity(owner)
	if err != nil {
		return false, fmt.Errorf("IsExecutor: failed to resolve owner '%s': %w", owner, err)
	}
	resolvedCandidate, err := im.ResolveIdentity(candidate)
	if err != nil {
		return false, fmt.Errorf("IsExecutor: failed to resolve candidate '%s': %w", candidate, err)
	}
	will, err := s.getWillByOwner(ctx, resolvedOwner)
	if err != nil {
		return false, err
	}
	return isWillExecutor(will, resolvedCandidate), nil
}

// --- Argument Validators ---

// validateExecutorsArg parses, resolves and validates the executor list:
// 2..10 entries, all distinct, none equal to the owner.
func (s *EstateSmartContract) validateExecutorsArg(im *IdentityManager, executorsJSON, owner string) ([]string, error) {
	var raw []string
	if err := json.Unmarshal([]byte(executorsJSON), &raw); err != nil {
		return nil, fmt.Errorf("invalid executorsJSON: %w. Expected a JSON array of identities or aliases", err)
	}
	if len(raw) < minExecutors || len(raw) > maxExecutors {
		return nil, fmt.Errorf("executors list must have between %d and %d entries, got %d", minExecutors, maxExecutors, len(raw))
	}

	executors := make([]string, 0, len(raw))
	seen := make(map[string]bool, len(raw))
	for i, entry := range raw {
		if err := s.validateRequiredString(entry, fmt.Sprintf("executors[%d]", i), maxStringInputLength); err != nil {
			return nil, err
		}
		fullID, err := im.ResolveIdentity(entry)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve executor '%s': %w", entry, err)
		}
		if fullID == owner {
			return nil, fmt.Errorf("executors[%d] '%s' is the owner; the owner cannot be their own executor", i, entry)
		}
		if seen[fullID] {
			return nil, fmt.Errorf("executors[%d] '%s' is a duplicate", i, entry)
		}
		seen[fullID] = true
		executors = append(executors, fullID)
	}
	return executors, nil
}

// validateBeneficiariesArg parses, resolves and validates the beneficiary list:
// 1..20 entries, no zero shares, no duplicates, shares summing to exactly 10000.
func (s *EstateSmartContract) validateBeneficiariesArg(im *IdentityManager, beneficiariesJSON string) ([]model.Beneficiary, error) {
	var raw []model.Beneficiary
	if err := json.Unmarshal([]byte(beneficiariesJSON), &raw); err != nil {
		return nil, fmt.Errorf("invalid beneficiariesJSON: %w. Expected a JSON array of {identity, shareBasisPoints, description}", err)
	}
	if len(raw) < minBeneficiaries || len(raw) > maxBeneficiaries {
		return nil, fmt.Errorf("beneficiaries list must have between %d and %d entries, got %d", minBeneficiaries, maxBeneficiaries, len(raw))
	}

	beneficiaries := make([]model.Beneficiary, 0, len(raw))
	seen := make(map[string]bool, len(raw))
	var shareSum int64
	for i, entry := range raw {
		if err := s.validateRequiredString(entry.Identity, fmt.Sprintf("beneficiaries[%d].identity", i), maxStringInputLength); err != nil {
			return nil, err
		}
		if err := s.validateOptionalString(entry.Description, fmt.Sprintf("beneficiaries[%d].description", i), maxDescriptionLength); err != nil {
			return nil, err
		}
		if entry.ShareBasisPoint <= 0 {
			return nil, fmt.Errorf("beneficiaries[%d] share must be positive basis points, got %d", i, entry.ShareBasisPoint)
		}
		if entry.ShareBasisPoint > totalShareBasisPts {
			return nil, fmt.Errorf("beneficiaries[%d] share %d exceeds %d basis points", i, entry.ShareBasisPoint, totalShareBasisPts)
		}
		fullID, err := im.ResolveIdentity(entry.Identity)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve beneficiary '%s': %w", entry.Identity, err)
		}
		if seen[fullID] {
			return nil, fmt.Errorf("beneficiaries[%d] '%s' is a duplicate", i, entry.Identity)
		}
		seen[fullID] = true
		shareSum += entry.ShareBasisPoint
		beneficiaries = append(beneficiaries, model.Beneficiary{
			Identity:        fullID,
			ShareBasisPoint: entry.ShareBasisPoint,
			Description:     entry.Description,
		})
	}
	if shareSum != totalShareBasisPts {
		return nil, fmt.Errorf("beneficiary shares must sum to exactly %d basis points, got %d", totalShareBasisPts, shareSum)
	}
	return beneficiaries, nil
}
