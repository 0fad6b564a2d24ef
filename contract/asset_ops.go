package contract

import (
	"fmt"
	"math"

	"willvault/model"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"
)

// --- Custody: Deposit Operations ---
//
// Deposits pull value from the owner's account on the external token ledger
// into the custody account, then credit the owner's holdings record. Both
// writes commit atomically or not at all.

// DepositNative places native currency under custody of the caller's will.
func (s *EstateSmartContract) DepositNative(ctx contractapi.TransactionContextInterface, amount int64) error {
	actor, holdings, err := s.prepareDeposit(ctx, "DepositNative")
	if err != nil {
		return err
	}
	if amount <= 0 {
		return fmt.Errorf("DepositNative: amount must be positive, got %d", amount)
	}
	if holdings.NativeBalance > math.MaxInt64-amount {
		return fmt.Errorf("DepositNative: deposit of %d would overflow custody balance %d", amount, holdings.NativeBalance)
	}

	if err := s.tokenAdapter().PullNative(ctx.GetStub(), actor.fullID, amount); err != nil {
		return fmt.Errorf("DepositNative: external transfer failed: %w", err)
	}
	holdings.NativeBalance += amount
	if err := s.finishCustodyUpdate(ctx, holdings); err != nil {
		return fmt.Errorf("DepositNative: %w", err)
	}

	s.emitEstateEvent(ctx, "AssetDeposited", actor.fullID, actor, nil, map[string]interface{}{
		"kind":   string(model.AssetKindNative),
		"amount": amount,
	})
	logger.Infof("Owner '%s' deposited %d native units into custody", actor.fullID, amount)
	return nil
}

// DepositFungible places fungible tokens from the given contract under custody.
func (s *EstateSmartContract) DepositFungible(ctx contractapi.TransactionContextInterface, contractRef string, amount int64) error {
	actor, holdings, err := s.prepareDeposit(ctx, "DepositFungible")
	if err != nil {
		return err
	}
	if err := s.validateRequiredString(contractRef, "contractRef", maxStringInputLength); err != nil {
		return fmt.Errorf("DepositFungible: %w", err)
	}
	if amount <= 0 {
		return fmt.Errorf("DepositFungible: amount must be positive, got %d", amount)
	}
	if holdings.Fungible[contractRef] > math.MaxInt64-amount {
		return fmt.Errorf("DepositFungible: deposit of %d would overflow custody balance %d for contract '%s'", amount, holdings.Fungible[contractRef], contractRef)
	}

	if err := s.tokenAdapter().PullFungible(ctx.GetStub(), contractRef, actor.fullID, amount); err != nil {
		return fmt.Errorf("DepositFungible: external transfer failed: %w", err)
	}
	holdings.Fungible[contractRef] += amount
	if err := s.finishCustodyUpdate(ctx, holdings); err != nil {
		return fmt.Errorf("DepositFungible: %w", err)
	}

	s.emitEstateEvent(ctx, "AssetDeposited", actor.fullID, actor, nil, map[string]interface{}{
		"kind":        string(model.AssetKindFungible),
		"contractRef": contractRef,
		"amount":      amount,
	})
	logger.Infof("Owner '%s' deposited %d fungible units of '%s' into custody", actor.fullID, amount, contractRef)
	return nil
}

// DepositNonFungible places a single NFT under custody.
func (s *EstateSmartContract) DepositNonFungible(ctx contractapi.TransactionContextInterface, contractRef, tokenID string) error {
	actor, holdings, err := s.prepareDeposit(ctx, "DepositNonFungible")
	if err != nil {
		return err
	}
	if err := s.validateRequiredString(contractRef, "contractRef", maxStringInputLength); err != nil {
		return fmt.Errorf("DepositNonFungible: %w", err)
	}
	if err := s.validateRequiredString(tokenID, "tokenID", maxStringInputLength); err != nil {
		return fmt.Errorf("DepositNonFungible: %w", err)
	}
	if holdings.HoldsToken(contractRef, tokenID) {
		return fmt.Errorf("DepositNonFungible: token '%s' of contract '%s' is already in custody", tokenID, contractRef)
	}

	if err := s.tokenAdapter().PullNonFungible(ctx.GetStub(), contractRef, actor.fullID, tokenID); err != nil {
		return fmt.Errorf("DepositNonFungible: external transfer failed: %w", err)
	}
	holdings.NonFungible[contractRef] = append(holdings.NonFungible[contractRef], tokenID)
	if err := s.finishCustodyUpdate(ctx, holdings); err != nil {
		return fmt.Errorf("DepositNonFungible: %w", err)
	}

	s.emitEstateEvent(ctx, "AssetDeposited", actor.fullID, actor, nil, map[string]interface{}{
		"kind":        string(model.AssetKindNonFungible),
		"contractRef": contractRef,
		"tokenId":     tokenID,
	})
	logger.Infof("Owner '%s' deposited NFT '%s' of '%s' into custody", actor.fullID, tokenID, contractRef)
	return nil
}

// DepositMultiToken places a quantity of a semi-fungible token under custody.
func (s *EstateSmartContract) DepositMultiToken(ctx contractapi.TransactionContextInterface, contractRef, tokenID string, amount int64) error {
	actor, holdings, err := s.prepareDeposit(ctx, "DepositMultiToken")
	if err != nil {
		return err
	}
	if err := s.validateRequiredString(contractRef, "contractRef", maxStringInputLength); err != nil {
		return fmt.Errorf("DepositMultiToken: %w", err)
	}
	if err := s.validateRequiredString(tokenID, "tokenID", maxStringInputLength); err != nil {
		return fmt.Errorf("DepositMultiToken: %w", err)
	}
	if amount <= 0 {
		return fmt.Errorf("DepositMultiToken: amount must be positive, got %d", amount)
	}
	if holdings.MultiToken[contractRef][tokenID] > math.MaxInt64-amount {
		return fmt.Errorf("DepositMultiToken: deposit of %d would overflow custody balance for token '%s' of '%s'", amount, tokenID, contractRef)
	}

	if err := s.tokenAdapter().PullMultiToken(ctx.GetStub(), contractRef, actor.fullID, tokenID, amount); err != nil {
		return fmt.Errorf("DepositMultiToken: external transfer failed: %w", err)
	}
	if holdings.MultiToken[contractRef] == nil {
		holdings.MultiToken[contractRef] = map[string]int64{}
	}
	holdings.MultiToken[contractRef][tokenID] += amount
	if err := s.finishCustodyUpdate(ctx, holdings); err != nil {
		return fmt.Errorf("DepositMultiToken: %w", err)
	}

	s.emitEstateEvent(ctx, "AssetDeposited", actor.fullID, actor, nil, map[string]interface{}{
		"kind":        string(model.AssetKindMultiToken),
		"contractRef": contractRef,
		"tokenId":     tokenID,
		"amount":      amount,
	})
	logger.Infof("Owner '%s' deposited %d units of multi-token '%s'/'%s' into custody", actor.fullID, amount, contractRef, tokenID)
	return nil
}

// --- Custody: Withdrawal Operations ---
//
// Withdrawals debit the holdings record and push value back to the owner on
// the external ledger. They are blocked as soon as an inheritance process
// leaves NotStarted, which is what freezes the estate during settlement.

// WithdrawNative returns native currency from custody to the owner.
func (s *EstateSmartContract) WithdrawNative(ctx contractapi.TransactionContextInterface, amount int64) error {
	actor, holdings, err := s.prepareWithdrawal(ctx, "WithdrawNative")
	if err != nil {
		return err
	}
	if amount <= 0 {
		return fmt.Errorf("WithdrawNative: amount must be positive, got %d", amount)
	}
	if holdings.NativeBalance < amount {
		return fmt.Errorf("WithdrawNative: insufficient custody balance: have %d, want %d", holdings.NativeBalance, amount)
	}

	holdings.NativeBalance -= amount
	if err := s.tokenAdapter().PushNative(ctx.GetStub(), actor.fullID, amount); err != nil {
		return fmt.Errorf("WithdrawNative: external transfer failed: %w", err)
	}
	if err := s.finishCustodyUpdate(ctx, holdings); err != nil {
		return fmt.Errorf("WithdrawNative: %w", err)
	}

	s.emitEstateEvent(ctx, "AssetWithdrawn", actor.fullID, actor, nil, map[string]interface{}{
		"kind":   string(model.AssetKindNative),
		"amount": amount,
	})
	logger.Infof("Owner '%s' withdrew %d native units from custody", actor.fullID, amount)
	return nil
}

// WithdrawFungible returns fungible tokens from custody to the owner.
func (s *EstateSmartContract) WithdrawFungible(ctx contractapi.TransactionContextInterface, contractRef string, amount int64) error {
	actor, holdings, err := s.prepareWithdrawal(ctx, "WithdrawFungible")
	if err != nil {
		return err
	}
	if err := s.validateRequiredString(contractRef, "contractRef", maxStringInputLength); err != nil {
		return fmt.Errorf("WithdrawFungible: %w", err)
	}
	if amount <= 0 {
		return fmt.Errorf("WithdrawFungible: amount must be positive, got %d", amount)
	}
	if holdings.Fungible[contractRef] < amount {
		return fmt.Errorf("WithdrawFungible: insufficient custody balance for contract '%s': have %d, want %d", contractRef, holdings.Fungible[contractRef], amount)
	}

	holdings.Fungible[contractRef] -= amount
	if holdings.Fungible[contractRef] == 0 {
		delete(holdings.Fungible, contractRef)
	}
	if err := s.tokenAdapter().PushFungible(ctx.GetStub(), contractRef, actor.fullID, amount); err != nil {
		return fmt.Errorf("WithdrawFungible: external transfer failed: %w", err)
	}
	if err := s.finishCustodyUpdate(ctx, holdings); err != nil {
		return fmt.Errorf("WithdrawFungible: %w", err)
	}

	s.emitEstateEvent(ctx, "AssetWithdrawn", actor.fullID, actor, nil, map[string]interface{}{
		"kind":        string(model.AssetKindFungible),
		"contractRef": contractRef,
		"amount":      amount,
	})
	logger.Infof("Owner '%s' withdrew %d fungible units of '%s' from custody", actor.fullID, amount, contractRef)
	return nil
}

// WithdrawNonFungible returns an NFT from custody to the owner.
func (s *EstateSmartContract) WithdrawNonFungible(ctx contractapi.TransactionContextInterface, contractRef, tokenID string) error {
	actor, holdings, err := s.prepareWithdrawal(ctx, "WithdrawNonFungible")
	if err != nil {
		return err
	}
	if err := s.validateRequiredString(contractRef, "contractRef", maxStringInputLength); err != nil {
		return fmt.Errorf("WithdrawNonFungible: %w", err)
	}
	if err := s.validateRequiredString(tokenID, "tokenID", maxStringInputLength); err != nil {
		return fmt.Errorf("WithdrawNonFungible: %w", err)
	}
	if !holdings.HoldsToken(contractRef, tokenID) {
		return fmt.Errorf("WithdrawNonFungible: token '%s' of contract '%s' is not in custody", tokenID, contractRef)
	}

	tokens := holdings.NonFungible[contractRef]
	kept := make([]string, 0, len(tokens)-1)
	for _, t := range tokens {
		if t != tokenID {
			kept = append(kept, t)
		}
	}
	if len(kept) == 0 {
		delete(holdings.NonFungible, contractRef)
	} else {
		holdings.NonFungible[contractRef] = kept
	}
	if err := s.tokenAdapter().PushNonFungible(ctx.GetStub(), contractRef, actor.fullID, tokenID); err != nil {
		return fmt.Errorf("WithdrawNonFungible: external transfer failed: %w", err)
	}
	if err := s.finishCustodyUpdate(ctx, holdings); err != nil {
		return fmt.Errorf("WithdrawNonFungible: %w", err)
	}

	s.emitEstateEvent(ctx, "AssetWithdrawn", actor.fullID, actor, nil, map[string]interface{}{
		"kind":        string(model.AssetKindNonFungible),
		"contractRef": contractRef,
		"tokenId":     tokenID,
	})
	logger.Infof("Owner '%s' withdrew NFT '%s' of '%s' from custody", actor.fullID, tokenID, contractRef)
	return nil
}

// WithdrawMultiToken returns a quantity of a semi-fungible token from custody.
func (s *EstateSmartContract) WithdrawMultiToken(ctx contractapi.TransactionContextInterface, contractRef, tokenID string, amount int64) error {
	actor, holdings, err := s.prepareWithdrawal(ctx, "WithdrawMultiToken")
	if err != nil {
		return err
	}
	if err := s.validateRequiredString(contractRef, "contractRef", maxStringInputLength); err != nil {
		return fmt.Errorf("WithdrawMultiToken: %w", err)
	}
	if err := s.validateRequiredString(tokenID, "tokenID", maxStringInputLength); err != nil {
		return fmt.Errorf("WithdrawMultiToken: %w", err)
	}
	if amount <= 0 {
		return fmt.Errorf("WithdrawMultiToken: amount must be positive, got %d", amount)
	}
	if holdings.MultiToken[contractRef][tokenID] < amount {
		return fmt.Errorf("WithdrawMultiToken: insufficient custody balance for token '%s' of '%s': have %d, want %d", tokenID, contractRef, holdings.MultiToken[contractRef][tokenID], amount)
	}

	holdings.MultiToken[contractRef][tokenID] -= amount
	if holdings.MultiToken[contractRef][tokenID] == 0 {
		delete(holdings.MultiToken[contractRef], tokenID)
		if len(holdings.MultiToken[contractRef]) == 0 {
			delete(holdings.MultiToken, contractRef)
		}
	}
	if err := s.tokenAdapter().PushMultiToken(ctx.GetStub(), contractRef, actor.fullID, tokenID, amount); err != nil {
		return fmt.Errorf("WithdrawMultiToken: external transfer failed: %w", err)
	}
	if err := s.finishCustodyUpdate(ctx, holdings); err != nil {
		return fmt.Errorf("WithdrawMultiToken: %w", err)
	}

	s.emitEstateEvent(ctx, "AssetWithdrawn", actor.fullID, actor, nil, map[string]interface{}{
		"kind":        string(model.AssetKindMultiToken),
		"contractRef": contractRef,
		"tokenId":     tokenID,
		"amount":      amount,
	})
	logger.Infof("Owner '%s' withdrew %d units of multi-token '%s'/'%s' from custody", actor.fullID, amount, contractRef, tokenID)
	return nil
}

// --- Shared Gate Checks ---

// prepareDeposit runs the gates common to all deposits: the caller must own an
// Active will. Deposits stay open after announcement; anything added joins the
// estate and is distributed on execution. Only withdrawals are frozen by a
// running process.
func (s *EstateSmartContract) prepareDeposit(ctx contractapi.TransactionContextInterface, funcName string) (*actorInfo, *model.AssetHoldings, error) {
	actor, err := s.getCurrentActorInfo(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: failed to get actor info: %w", funcName, err)
	}
	will, err := s.getWillByOwner(ctx, actor.fullID)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", funcName, err)
	}
	if err := checkCapability(opDeposit, actor.fullID, will); err != nil {
		return nil, nil, err
	}
	if will.Status != model.WillStatusActive {
		return nil, nil, fmt.Errorf("%s: will status is '%s', deposits require an '%s' will", funcName, will.Status, model.WillStatusActive)
	}
	holdings, err := s.getHoldingsByOwner(ctx, actor.fullID)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", funcName, err)
	}
	return actor, holdings, nil
}

// prepareWithdrawal runs the gates common to all withdrawals. A revoked will
// still permits withdrawal: the owner must always be able to reclaim custody
// as long as no process ever started.
func (s *EstateSmartContract) prepareWithdrawal(ctx contractapi.TransactionContextInterface, funcName string) (*actorInfo, *model.AssetHoldings, error) {
	actor, err := s.getCurrentActorInfo(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: failed to get actor info: %w", funcName, err)
	}
	will, err := s.getWillByOwner(ctx, actor.fullID)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", funcName, err)
	}
	if err := checkCapability(opWithdraw, actor.fullID, will); err != nil {
		return nil, nil, err
	}
	process, err := s.getProcessByOwner(ctx, actor.fullID)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", funcName, err)
	}
	if process.Status != model.ProcessNotStarted {
		return nil, nil, fmt.Errorf("%s: custody is frozen while inheritance process is '%s'", funcName, process.Status)
	}
	holdings, err := s.getHoldingsByOwner(ctx, actor.fullID)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", funcName, err)
	}
	return actor, holdings, nil
}

func (s *EstateSmartContract) finishCustodyUpdate(ctx contractapi.TransactionContextInterface, holdings *model.AssetHoldings) error {
	now, err := s.getCurrentTxTimestamp(ctx)
	if err != nil {
		return fmt.Errorf("failed to get transaction timestamp: %w", err)
	}
	holdings.UpdatedAt = now
	return s.putHoldings(ctx, holdings)
}
