package contract

import (
	"encoding/json"
	"fmt"
	"time"

	"willvault/model"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"
)

// --- Oracle Operations ---

// RequestDeathVerification files a verification request for the owner's
// identity hash. Executor-only. The request is fire-and-forget: it records
// intent and emits an event for off-chain oracles, it never blocks on them.
func (s *EstateSmartContract) RequestDeathVerification(ctx contractapi.TransactionContextInterface, owner, evidence string) error {
	actor, err := s.getCurrentActorInfo(ctx)
	if err != nil {
		return fmt.Errorf("RequestDeathVerification: failed to get actor info: %w", err)
	}
	if err := s.validateOptionalString(evidence, "evidence", maxDescriptionLength); err != nil {
		return fmt.Errorf("RequestDeathVerification: %w", err)
	}
	im := NewIdentityManager(ctx)
	resolvedOwner, err := im.ResolveIdentity(owner)
	if err != nil {
		return fmt.Errorf("RequestDeathVerification: failed to resolve owner '%s': %w", owner, err)
	}

	will, err := s.getWillByOwner(ctx, resolvedOwner)
	if err != nil {
		return fmt.Errorf("RequestDeathVerification: %w", err)
	}
	if err := checkCapability(opRequestVer, actor.fullID, will); err != nil {
		return err
	}
	if !will.RequiresOracleVerification {
		return fmt.Errorf("RequestDeathVerification: will for owner '%s' does not require oracle verification", resolvedOwner)
	}

	now, err := s.getCurrentTxTimestamp(ctx)
	if err != nil {
		return fmt.Errorf("RequestDeathVerification: failed to get transaction timestamp: %w", err)
	}
	request := model.VerificationRequest{
		ObjectType:   requestObjectType,
		Owner:        resolvedOwner,
		IdentityHash: will.IdentityHash,
		Evidence:     evidence,
		RequestedBy:  actor.fullID,
		RequestedAt:  now,
	}
	requestKey, err := s.createRequestKey(ctx, resolvedOwner)
	if err != nil {
		return fmt.Errorf("RequestDeathVerification: failed to create request key: %w", err)
	}
	requestBytes, err := json.Marshal(request)
	if err != nil {
		return fmt.Errorf("RequestDeathVerification: failed to marshal request: %w", err)
	}
	if err := ctx.GetStub().PutState(requestKey, requestBytes); err != nil {
		return fmt.Errorf("RequestDeathVerification: failed to save request: %w", err)
	}

	s.emitEstateEvent(ctx, "DeathVerificationRequested", resolvedOwner, actor, nil, map[string]interface{}{
		"identityHash": will.IdentityHash,
	})
	logger.Infof("Executor '%s' requested death verification for owner '%s' (hash '%s')", actor.fullID, resolvedOwner, will.IdentityHash)
	return nil
}

// RecordDeathVerification is the oracle's attestation endpoint. Only callers
// holding the 'oracle' role may record one. Re-recording overwrites the prior
// attestation for the same identity hash.
func (s *EstateSmartContract) RecordDeathVerification(ctx contractapi.TransactionContextInterface, identityHash, deceasedAtRFC3339 string) error {
	im := NewIdentityManager(ctx)
	if err := im.RequireRole("oracle"); err != nil {
		return fmt.Errorf("RecordDeathVerification: %w", err)
	}
	actor, err := s.getCurrentActorInfo(ctx)
	if err != nil {
		return fmt.Errorf("RecordDeathVerification: failed to get actor info: %w", err)
	}
	if err := s.validateRequiredString(identityHash, "identityHash", maxStringInputLength); err != nil {
		return fmt.Errorf("RecordDeathVerification: %w", err)
	}
	deceasedAt, err := time.Parse(time.RFC3339, deceasedAtRFC3339)
	if err != nil {
		return fmt.Errorf("RecordDeathVerification: invalid deceasedAt '%s': %w. Expected RFC3339", deceasedAtRFC3339, err)
	}

	now, err := s.getCurrentTxTimestamp(ctx)
	if err != nil {
		return fmt.Errorf("RecordDeathVerification: failed to get transaction timestamp: %w", err)
	}
	verification := model.DeathVerification{
		ObjectType:   verificationObjectType,
		IdentityHash: identityHash,
		Verified:     true,
		DeceasedAt:   deceasedAt,
		RecordedBy:   actor.fullID,
		RecordedAt:   now,
	}
	verificationKey, err := s.createVerificationKey(ctx, identityHash)
	if err != nil {
		return fmt.Errorf("RecordDeathVerification: failed to create verification key: %w", err)
	}
	verificationBytes, err := json.Marshal(verification)
	if err != nil {
		return fmt.Errorf("RecordDeathVerification: failed to marshal verification: %w", err)
	}
	if err := ctx.GetStub().PutState(verificationKey, verificationBytes); err != nil {
		return fmt.Errorf("RecordDeathVerification: failed to save verification: %w", err)
	}

	s.emitEstateEvent(ctx, "DeathVerificationRecorded", "", actor, nil, map[string]interface{}{
		"identityHash": identityHash,
		"deceasedAt":   deceasedAt,
	})
	logger.Infof("Oracle '%s' recorded death verification for identity hash '%s'", actor.fullID, identityHash)
	return nil
}

// GetDeathVerification returns the oracle attestation for an identity hash,
// or an error if none exists.
func (s *EstateSmartContract) GetDeathVerification(ctx contractapi.TransactionContextInterface, identityHash string) (*model.DeathVerification, error) {
	verification, err := s.getDeathVerification(ctx, identityHash)
	if err != nil {
		return nil, err
	}
	if verification == nil {
		return nil, fmt.Errorf("no death verification recorded for identity hash '%s'", identityHash)
	}
	return verification, nil
}

// getDeathVerification returns nil (no error) when no attestation exists.
func (s *EstateSmartContract) getDeathVerification(ctx contractapi.TransactionContextInterface, identityHash string) (*model.DeathVerification, error) {
	verificationKey, err := s.createVerificationKey(ctx, identityHash)
	if err != nil {
		return nil, fmt.Errorf("getDeathVerification: failed to create key for hash '%s': %w", identityHash, err)
	}
	verificationBytes, err := ctx.GetStub().GetState(verificationKey)
	if err != nil {
		return nil, fmt.Errorf("getDeathVerification: failed to read verification for hash '%s': %w", identityHash, err)
	}
	if verificationBytes == nil {
		return nil, nil
	}
	var verification model.DeathVerification
	if err = json.Unmarshal(verificationBytes, &verification); err != nil {
		return nil, fmt.Errorf("getDeathVerification: failed to unmarshal verification for hash '%s': %w", identityHash, err)
	}
	return &verification, nil
}
