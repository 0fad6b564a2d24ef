package contract

import (
	"encoding/json"
	"fmt"

	"willvault/model"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"
)

// --- Query Operations ---

// GetWill retrieves the will registered for the given owner identity or alias.
func (s *EstateSmartContract) GetWill(ctx contractapi.TransactionContextInterface, owner string) (*model.Will, error) {
	im := NewIdentityManager(ctx)
	resolvedOwner, err := im.ResolveIdentity(owner)
	if err != nil {
		return nil, fmt.Errorf("GetWill: failed to resolve owner '%s': %w", owner, err)
	}
	return s.getWillByOwner(ctx, resolvedOwner)
}

// GetMyWill retrieves the caller's own will.
func (s *EstateSmartContract) GetMyWill(ctx contractapi.TransactionContextInterface) (*model.Will, error) {
	actor, err := s.getCurrentActorInfo(ctx)
	if err != nil {
		return nil, fmt.Errorf("GetMyWill: failed to get actor info: %w", err)
	}
	return s.getWillByOwner(ctx, actor.fullID)
}

// GetInheritanceProcess returns the process state for an owner. When the
// persisted status is Announced but every execution gate already passes, the
// returned status is ReadyForExecution; that value is computed on read and
// never written to the ledger.
func (s *EstateSmartContract) GetInheritanceProcess(ctx contractapi.TransactionContextInterface, owner string) (*model.InheritanceProcess, error) {
	im := NewIdentityManager(ctx)
	resolvedOwner, err := im.ResolveIdentity(owner)
	if err != nil {
		return nil, fmt.Errorf("GetInheritanceProcess: failed to resolve owner '%s': %w", owner, err)
	}
	process, err := s.getProcessByOwner(ctx, resolvedOwner)
	if err != nil {
		return nil, err
	}
	if process.Status == model.ProcessAnnounced {
		will, err := s.getWillByOwner(ctx, resolvedOwner)
		if err != nil {
			return nil, fmt.Errorf("GetInheritanceProcess: %w", err)
		}
		now, err := s.getCurrentTxTimestamp(ctx)
		if err != nil {
			return nil, fmt.Errorf("GetInheritanceProcess: failed to get transaction timestamp: %w", err)
		}
		if checkExecutionGates(will, process, now) == nil {
			process.Status = model.ProcessReadyForExecution
		}
	}
	return process, nil
}

// GetAssetRecords returns the owner's custody positions as a flat, sorted list.
func (s *EstateSmartContract) GetAssetRecords(ctx contractapi.TransactionContextInterface, owner string) ([]model.AssetRecord, error) {
	im := NewIdentityManager(ctx)
	resolvedOwner, err := im.ResolveIdentity(owner)
	if err != nil {
		return nil, fmt.Errorf("GetAssetRecords: failed to resolve owner '%s': %w", owner, err)
	}
	holdings, err := s.getHoldingsByOwner(ctx, resolvedOwner)
	if err != nil {
		return nil, err
	}
	return holdings.Records(), nil
}

// GetNativeBalance returns the owner's native currency amount in custody.
func (s *EstateSmartContract) GetNativeBalance(ctx contractapi.TransactionContextInterface, owner string) (int64, error) {
	holdings, err := s.resolveHoldings(ctx, "GetNativeBalance", owner)
	if err != nil {
		return 0, err
	}
	return holdings.NativeBalance, nil
}

// GetFungibleBalance returns the custody balance for one fungible contract.
func (s *EstateSmartContract) GetFungibleBalance(ctx contractapi.TransactionContextInterface, owner, contractRef string) (int64, error) {
	holdings, err := s.resolveHoldings(ctx, "GetFungibleBalance", owner)
	if err != nil {
		return 0, err
	}
	return holdings.Fungible[contractRef], nil
}

// GetNonFungibleHoldings returns the token ids in custody for one NFT contract.
func (s *EstateSmartContract) GetNonFungibleHoldings(ctx contractapi.TransactionContextInterface, owner, contractRef string) ([]string, error) {
	holdings, err := s.resolveHoldings(ctx, "GetNonFungibleHoldings", owner)
	if err != nil {
		return nil, err
	}
	tokens := holdings.NonFungible[contractRef]
	if tokens == nil {
		tokens = []string{}
	}
	return tokens, nil
}

// GetMultiTokenBalance returns the custody balance for one multi-token position.
func (s *EstateSmartContract) GetMultiTokenBalance(ctx contractapi.TransactionContextInterface, owner, contractRef, tokenID string) (int64, error) {
	holdings, err := s.resolveHoldings(ctx, "GetMultiTokenBalance", owner)
	if err != nil {
		return 0, err
	}
	return holdings.MultiToken[contractRef][tokenID], nil
}

// GetDistributionRecord returns the audit record of an executed inheritance.
func (s *EstateSmartContract) GetDistributionRecord(ctx contractapi.TransactionContextInterface, owner string) (*model.DistributionRecord, error) {
	im := NewIdentityManager(ctx)
	resolvedOwner, err := im.ResolveIdentity(owner)
	if err != nil {
		return nil, fmt.Errorf("GetDistributionRecord: failed to resolve owner '%s': %w", owner, err)
	}
	distKey, err := s.createDistributionKey(ctx, resolvedOwner)
	if err != nil {
		return nil, fmt.Errorf("GetDistributionRecord: failed to create key: %w", err)
	}
	recordBytes, err := ctx.GetStub().GetState(distKey)
	if err != nil {
		return nil, fmt.Errorf("GetDistributionRecord: failed to read record for '%s': %w", resolvedOwner, err)
	}
	if recordBytes == nil {
		return nil, fmt.Errorf("no distribution record exists for owner '%s'", resolvedOwner)
	}
	var record model.DistributionRecord
	if err = json.Unmarshal(recordBytes, &record); err != nil {
		return nil, fmt.Errorf("GetDistributionRecord: failed to unmarshal record for '%s': %w", resolvedOwner, err)
	}
	return &record, nil
}

// GetWillHistory returns the full modification history of an owner's will from
// the ledger's history index.
func (s *EstateSmartContract) GetWillHistory(ctx contractapi.TransactionContextInterface, owner string) ([]model.WillHistoryEntry, error) {
	im := NewIdentityManager(ctx)
	resolvedOwner, err := im.ResolveIdentity(owner)
	if err != nil {
		return nil, fmt.Errorf("GetWillHistory: failed to resolve owner '%s': %w", owner, err)
	}
	willKey, err := s.createWillKey(ctx, resolvedOwner)
	if err != nil {
		return nil, fmt.Errorf("GetWillHistory: failed to create key: %w", err)
	}
	historyIterator, err := ctx.GetStub().GetHistoryForKey(willKey)
	if err != nil {
		return nil, fmt.Errorf("GetWillHistory: failed to get history for '%s': %w", resolvedOwner, err)
	}
	defer historyIterator.Close()

	history := []model.WillHistoryEntry{}
	for historyIterator.HasNext() {
		modification, err := historyIterator.Next()
		if err != nil {
			return nil, fmt.Errorf("GetWillHistory: failed to read history entry for '%s': %w", resolvedOwner, err)
		}
		entry := model.WillHistoryEntry{
			TxID:     modification.TxId,
			IsDelete: modification.IsDelete,
		}
		if modification.Timestamp != nil {
			entry.Timestamp = modification.Timestamp.AsTime()
		}
		if !modification.IsDelete && modification.Value != nil {
			entry.Value = string(modification.Value)
			var will model.Will
			if json.Unmarshal(modification.Value, &will) == nil {
				entry.Status = string(will.Status)
			}
		}
		history = append(history, entry)
	}
	return history, nil
}

// GetWillsByStatus returns a page of wills matching the given status. Archived
// wills are only included when includeArchived is set.
func (s *EstateSmartContract) GetWillsByStatus(ctx contractapi.TransactionContextInterface, status string, pageSize int32, bookmark string, includeArchived bool) (*model.PaginatedWillResponse, error) {
	if pageSize <= 0 {
		return nil, fmt.Errorf("GetWillsByStatus: pageSize must be positive, got %d", pageSize)
	}
	wantStatus := model.WillStatus(status)
	switch wantStatus {
	case model.WillStatusActive, model.WillStatusSuspended, model.WillStatusExecuted, model.WillStatusRevoked:
	default:
		return nil, fmt.Errorf("GetWillsByStatus: unknown status '%s'", status)
	}

	resultsIterator, responseMetadata, err := ctx.GetStub().GetStateByPartialCompositeKeyWithPagination(willObjectType, []string{}, pageSize, bookmark)
	if err != nil {
		return nil, fmt.Errorf("GetWillsByStatus: failed to query wills: %w", err)
	}
	defer resultsIterator.Close()

	wills := []*model.Will{}
	for resultsIterator.HasNext() {
		queryResult, err := resultsIterator.Next()
		if err != nil {
			return nil, fmt.Errorf("GetWillsByStatus: failed to iterate results: %w", err)
		}
		var will model.Will
		if err := json.Unmarshal(queryResult.Value, &will); err != nil {
			logger.Warningf("GetWillsByStatus: skipping unparseable record at key '%s': %v", queryResult.Key, err)
			continue
		}
		if will.Status != wantStatus {
			continue
		}
		if will.IsArchived && !includeArchived {
			continue
		}
		ensureWillSchemaCompliance(&will)
		wills = append(wills, &will)
	}

	response := &model.PaginatedWillResponse{Wills: wills}
	if responseMetadata != nil {
		response.NextBookmark = responseMetadata.Bookmark
		response.FetchedCount = responseMetadata.FetchedRecordsCount
	}
	return response, nil
}

func (s *EstateSmartContract) resolveHoldings(ctx contractapi.TransactionContextInterface, funcName, owner string) (*model.AssetHoldings, error) {
	im := NewIdentityManager(ctx)
	resolvedOwner, err := im.ResolveIdentity(owner)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to resolve owner '%s': %w", funcName, owner, err)
	}
	return s.getHoldingsByOwner(ctx, resolvedOwner)
}
