package contract

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"willvault/model"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"
)

// --- Core Helper Methods (used across multiple operations) ---

// getCurrentTxTimestamp retrieves the current transaction timestamp from the stub.
// All time-lock and window checks compare against this value, never wall-clock time.
func (s *EstateSmartContract) getCurrentTxTimestamp(ctx contractapi.TransactionContextInterface) (time.Time, error) {
	ts, err := ctx.GetStub().GetTxTimestamp()
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to get transaction timestamp: %w", err)
	}
	return ts.AsTime(), nil
}

func (s *EstateSmartContract) getCurrentActorInfo(ctx contractapi.TransactionContextInterface) (*actorInfo, error) {
	im := NewIdentityManager(ctx)
	fullID, err := im.GetCurrentIdentityFullID()
	if err != nil {
		return nil, fmt.Errorf("failed to get current actor's FullID: %w", err)
	}

	var alias string
	idInfo, errGetInfo := im.GetIdentityInfo(fullID)
	if errGetInfo == nil && idInfo != nil {
		alias = idInfo.ShortName
	} else if strings.Contains(fullID, "::CN=") {
		// Unregistered caller: fall back to the certificate CN as a display alias.
		parts := strings.Split(fullID, "::CN=")
		cnPart := parts[len(parts)-1]
		if idx := strings.Index(cnPart, "::"); idx != -1 {
			cnPart = cnPart[:idx]
		}
		alias = cnPart
	}

	mspID, err := ctx.GetClientIdentity().GetMSPID()
	if err != nil {
		return nil, fmt.Errorf("failed to get current actor's MSPID: %w", err)
	}
	return &actorInfo{fullID: fullID, alias: alias, mspID: mspID}, nil
}

// --- Composite Key Helpers ---

func (s *EstateSmartContract) createWillKey(ctx contractapi.TransactionContextInterface, owner string) (string, error) {
	owner = strings.TrimSpace(owner)
	if owner == "" {
		return "", errors.New("owner identity cannot be empty")
	}
	return ctx.GetStub().CreateCompositeKey(willObjectType, []string{owner})
}

func (s *EstateSmartContract) createProcessKey(ctx contractapi.TransactionContextInterface, owner string) (string, error) {
	owner = strings.TrimSpace(owner)
	if owner == "" {
		return "", errors.New("owner identity cannot be empty")
	}
	return ctx.GetStub().CreateCompositeKey(processObjectType, []string{owner})
}

func (s *EstateSmartContract) createHoldingsKey(ctx contractapi.TransactionContextInterface, owner string) (string, error) {
	owner = strings.TrimSpace(owner)
	if owner == "" {
		return "", errors.New("owner identity cannot be empty")
	}
	return ctx.GetStub().CreateCompositeKey(holdingsObjectType, []string{owner})
}

func (s *EstateSmartContract) createVerificationKey(ctx contractapi.TransactionContextInterface, identityHash string) (string, error) {
	identityHash = strings.TrimSpace(identityHash)
	if identityHash == "" {
		return "", errors.New("identityHash cannot be empty")
	}
	return ctx.GetStub().CreateCompositeKey(verificationObjectType, []string{identityHash})
}

func (s *EstateSmartContract) createRequestKey(ctx contractapi.TransactionContextInterface, owner string) (string, error) {
	owner = strings.TrimSpace(owner)
	if owner == "" {
		return "", errors.New("owner identity cannot be empty")
	}
	return ctx.GetStub().CreateCompositeKey(requestObjectType, []string{owner})
}

func (s *EstateSmartContract) createDistributionKey(ctx contractapi.TransactionContextInterface, owner string) (string, error) {
	owner = strings.TrimSpace(owner)
	if owner == "" {
		return "", errors.New("owner identity cannot be empty")
	}
	return ctx.GetStub().CreateCompositeKey(distributionObjectType, []string{owner})
}

// --- Validation Helper Functions ---

func (s *EstateSmartContract) validateRequiredString(input, field string, max int) error {
	if strings.TrimSpace(input) == "" {
		return fmt.Errorf("%s cannot be empty", field)
	}
	if len(input) > max {
		return fmt.Errorf("%s exceeds max length %d", field, max)
	}
	return nil
}

func (s *EstateSmartContract) validateOptionalString(input, field string, max int) error {
	if input != "" && len(input) > max {
		return fmt.Errorf("%s exceeds max length %d", field, max)
	}
	return nil
}

// --- Record Loaders ---

// getWillByOwner retrieves and unmarshals a will, normalizing nil slices.
func (s *EstateSmartContract) getWillByOwner(ctx contractapi.TransactionContextInterface, owner string) (*model.Will, error) {
	willKey, err := s.createWillKey(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("getWillByOwner: failed to create key for owner '%s': %w", owner, err)
	}
	willBytes, err := ctx.GetStub().GetState(willKey)
	if err != nil {
		return nil, fmt.Errorf("getWillByOwner: failed to read will for '%s' from ledger: %w", owner, err)
	}
	if willBytes == nil {
		return nil, fmt.Errorf("no will exists for owner '%s'", owner)
	}
	var will model.Will
	if err = json.Unmarshal(willBytes, &will); err != nil {
		return nil, fmt.Errorf("getWillByOwner: failed to unmarshal will for '%s': %w", owner, err)
	}
	ensureWillSchemaCompliance(&will)
	return &will, nil
}

// getProcessByOwner retrieves the inheritance process for an owner. If no
// process record exists yet, a synthetic NotStarted record is returned.
func (s *EstateSmartContract) getProcessByOwner(ctx contractapi.TransactionContextInterface, owner string) (*model.InheritanceProcess, error) {
	processKey, err := s.createProcessKey(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("getProcessByOwner: failed to create key for owner '%s': %w", owner, err)
	}
	processBytes, err := ctx.GetStub().GetState(processKey)
	if err != nil {
		return nil, fmt.Errorf("getProcessByOwner: failed to read process for '%s' from ledger: %w", owner, err)
	}
	if processBytes == nil {
		return &model.InheritanceProcess{
			ObjectType:       processObjectType,
			Owner:            owner,
			Status:           model.ProcessNotStarted,
			Challengers:      []string{},
			ChallengeReasons: []string{},
			Affirmations:     []string{},
		}, nil
	}
	var process model.InheritanceProcess
	if err = json.Unmarshal(processBytes, &process); err != nil {
		return nil, fmt.Errorf("getProcessByOwner: failed to unmarshal process for '%s': %w", owner, err)
	}
	ensureProcessSchemaCompliance(&process)
	return &process, nil
}

// getHoldingsByOwner retrieves the custody record for an owner, returning an
// empty record when the owner never deposited.
func (s *EstateSmartContract) getHoldingsByOwner(ctx contractapi.TransactionContextInterface, owner string) (*model.AssetHoldings, error) {
	holdingsKey, err := s.createHoldingsKey(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("getHoldingsByOwner: failed to create key for owner '%s': %w", owner, err)
	}
	holdingsBytes, err := ctx.GetStub().GetState(holdingsKey)
	if err != nil {
		return nil, fmt.Errorf("getHoldingsByOwner: failed to read holdings for '%s' from ledger: %w", owner, err)
	}
	if holdingsBytes == nil {
		return model.NewAssetHoldings(owner), nil
	}
	var holdings model.AssetHoldings
	if err = json.Unmarshal(holdingsBytes, &holdings); err != nil {
		return nil, fmt.Errorf("getHoldingsByOwner: failed to unmarshal holdings for '%s': %w", owner, err)
	}
	ensureHoldingsSchemaCompliance(&holdings)
	return &holdings, nil
}

// --- Record Savers ---

func (s *EstateSmartContract) putWill(ctx contractapi.TransactionContextInterface, will *model.Will) error {
	ensureWillSchemaCompliance(will)
	willKey, err := s.createWillKey(ctx, will.Owner)
	if err != nil {
		return fmt.Errorf("failed to create will key for '%s': %w", will.Owner, err)
	}
	willBytes, err := json.Marshal(will)
	if err != nil {
		return fmt.Errorf("failed to marshal will for '%s': %w", will.Owner, err)
	}
	if err := ctx.GetStub().PutState(willKey, willBytes); err != nil {
		return fmt.Errorf("failed to save will for '%s' to ledger: %w", will.Owner, err)
	}
	return nil
}

func (s *EstateSmartContract) putProcess(ctx contractapi.TransactionContextInterface, process *model.InheritanceProcess) error {
	ensureProcessSchemaCompliance(process)
	processKey, err := s.createProcessKey(ctx, process.Owner)
	if err != nil {
		return fmt.Errorf("failed to create process key for '%s': %w", process.Owner, err)
	}
	processBytes, err := json.Marshal(process)
	if err != nil {
		return fmt.Errorf("failed to marshal process for '%s': %w", process.Owner, err)
	}
	if err := ctx.GetStub().PutState(processKey, processBytes); err != nil {
		return fmt.Errorf("failed to save process for '%s' to ledger: %w", process.Owner, err)
	}
	return nil
}

func (s *EstateSmartContract) putHoldings(ctx contractapi.TransactionContextInterface, holdings *model.AssetHoldings) error {
	ensureHoldingsSchemaCompliance(holdings)
	holdingsKey, err := s.createHoldingsKey(ctx, holdings.Owner)
	if err != nil {
		return fmt.Errorf("failed to create holdings key for '%s': %w", holdings.Owner, err)
	}
	holdingsBytes, err := json.Marshal(holdings)
	if err != nil {
		return fmt.Errorf("failed to marshal holdings for '%s': %w", holdings.Owner, err)
	}
	if err := ctx.GetStub().PutState(holdingsKey, holdingsBytes); err != nil {
		return fmt.Errorf("failed to save holdings for '%s' to ledger: %w", holdings.Owner, err)
	}
	return nil
}

// --- Schema Compliance Helpers ---

func ensureWillSchemaCompliance(will *model.Will) {
	if will == nil {
		return
	}
	if will.Executors == nil {
		will.Executors = []string{}
	}
	if will.Beneficiaries == nil {
		will.Beneficiaries = []model.Beneficiary{}
	}
}

func ensureProcessSchemaCompliance(process *model.InheritanceProcess) {
	if process == nil {
		return
	}
	if process.Challengers == nil {
		process.Challengers = []string{}
	}
	if process.ChallengeReasons == nil {
		process.ChallengeReasons = []string{}
	}
	if process.Affirmations == nil {
		process.Affirmations = []string{}
	}
}

func ensureHoldingsSchemaCompliance(holdings *model.AssetHoldings) {
	if holdings == nil {
		return
	}
	if holdings.Fungible == nil {
		holdings.Fungible = map[string]int64{}
	}
	if holdings.NonFungible == nil {
		holdings.NonFungible = map[string][]string{}
	}
	if holdings.MultiToken == nil {
		holdings.MultiToken = map[string]map[string]int64{}
	}
}

// --- Notification Boundary ---

// emitEstateEvent sends a chaincode event carrying the intended recipients.
// Notification delivery is best-effort: failures are logged and swallowed,
// never escalated to the calling operation.
func (s *EstateSmartContract) emitEstateEvent(ctx contractapi.TransactionContextInterface, eventName, owner string, actor *actorInfo, recipients []string, additionalPayload map[string]interface{}) {
	if actor == nil {
		logger.Errorf("emitEstateEvent: cannot emit event '%s', actor is nil", eventName)
		return
	}
	if recipients == nil {
		recipients = []string{}
	}
	payload := map[string]interface{}{
		"owner":      owner,
		"actorId":    actor.fullID,
		"actorAlias": actor.alias,
		"recipients": recipients,
	}
	for k, v := range additionalPayload {
		if t, ok := v.(time.Time); ok {
			payload[k] = t.Format(time.RFC3339)
		} else {
			payload[k] = v
		}
	}
	eventBytes, err := json.Marshal(payload)
	if err != nil {
		logger.Warningf("emitEstateEvent: Failed to marshal event payload for '%s' on owner '%s': %v", eventName, owner, err)
		return
	}
	if errSet := ctx.GetStub().SetEvent(eventName, eventBytes); errSet != nil {
		logger.Warningf("emitEstateEvent: Failed to set event '%s' for owner '%s': %v", eventName, owner, errSet)
	}
}

// willParticipants returns executors plus beneficiary identities for notification.
func willParticipants(will *model.Will) []string {
	recipients := append([]string{}, will.Executors...)
	for _, b := range will.Beneficiaries {
		recipients = append(recipients, b.Identity)
	}
	return recipients
}

// requireAdmin is a helper to check if the current caller is an admin.
func (s *EstateSmartContract) requireAdmin(ctx contractapi.TransactionContextInterface, im *IdentityManager) error {
	isCallerAdmin, err := im.IsCurrentUserAdmin()
	if err != nil {
		return fmt.Errorf("failed to check admin status: %w", err)
	}
	if !isCallerAdmin {
		callerID, _ := im.GetCurrentIdentityFullID()
		return fmt.Errorf("unauthorized: caller '%s' is not an admin", callerID)
	}
	return nil
}
