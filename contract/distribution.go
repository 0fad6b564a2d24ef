package contract

import (
	"sort"

	"willvault/model"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"
)

// --- Proportional Distribution ---
//
// Distribution drains the custody record deterministically: native first, then
// fungible contracts in lexical order, then NFT contracts in lexical order
// (tokens sorted, assigned round-robin along the beneficiary list), then
// multi-token contracts and token ids in lexical order. Divisible assets are
// split by basis points with integer floor division; the remainder of each
// split is recorded as a residue rather than paid out.

// proportionalShare computes floor(total * shareBasisPoints / 10000) without
// overflowing int64 on large totals.
func proportionalShare(total, shareBasisPoints int64) int64 {
	quotient := total / totalShareBasisPts
	remainder := total % totalShareBasisPts
	return quotient*shareBasisPoints + (remainder*shareBasisPoints)/totalShareBasisPts
}

// distributeHoldings settles every custody position to the beneficiaries via
// the token adapter. Any adapter failure aborts the whole transaction, so a
// partial distribution never commits.
func (s *EstateSmartContract) distributeHoldings(ctx contractapi.TransactionContextInterface,
	holdings *model.AssetHoldings, beneficiaries []model.Beneficiary) ([]model.DistributionTransfer, []model.AssetResidue, error) {

	transfers := []model.DistributionTransfer{}
	residues := []model.AssetResidue{}
	stub := ctx.GetStub()
	adapter := s.tokenAdapter()

	// Native currency.
	if holdings.NativeBalance > 0 {
		var paid int64
		for _, b := range beneficiaries {
			amount := proportionalShare(holdings.NativeBalance, b.ShareBasisPoint)
			if amount == 0 {
				continue
			}
			if err := adapter.PushNative(stub, b.Identity, amount); err != nil {
				return nil, nil, err
			}
			paid += amount
			transfers = append(transfers, model.DistributionTransfer{
				Kind:        model.AssetKindNative,
				Beneficiary: b.Identity,
				Amount:      amount,
			})
		}
		if dust := holdings.NativeBalance - paid; dust > 0 {
			residues = append(residues, model.AssetResidue{Kind: model.AssetKindNative, Amount: dust})
		}
	}

	// Fungible tokens, per contract.
	for _, contractRef := range sortedStringKeys(holdings.Fungible) {
		total := holdings.Fungible[contractRef]
		if total <= 0 {
			continue
		}
		var paid int64
		for _, b := range beneficiaries {
			amount := proportionalShare(total, b.ShareBasisPoint)
			if amount == 0 {
				continue
			}
			if err := adapter.PushFungible(stub, contractRef, b.Identity, amount); err != nil {
				return nil, nil, err
			}
			paid += amount
			transfers = append(transfers, model.DistributionTransfer{
				Kind:        model.AssetKindFungible,
				ContractRef: contractRef,
				Beneficiary: b.Identity,
				Amount:      amount,
			})
		}
		if dust := total - paid; dust > 0 {
			residues = append(residues, model.AssetResidue{Kind: model.AssetKindFungible, ContractRef: contractRef, Amount: dust})
		}
	}

	// NFTs are indivisible: assign round-robin along the beneficiary list,
	// restarting from the first beneficiary for each contract so a small
	// collection never starves the head of the list.
	nftContracts := make([]string, 0, len(holdings.NonFungible))
	for contractRef := range holdings.NonFungible {
		nftContracts = append(nftContracts, contractRef)
	}
	sort.Strings(nftContracts)
	for _, contractRef := range nftContracts {
		tokens := append([]string{}, holdings.NonFungible[contractRef]...)
		sort.Strings(tokens)
		for i, tokenID := range tokens {
			recipient := beneficiaries[i%len(beneficiaries)].Identity
			if err := adapter.PushNonFungible(stub, contractRef, recipient, tokenID); err != nil {
				return nil, nil, err
			}
			transfers = append(transfers, model.DistributionTransfer{
				Kind:        model.AssetKindNonFungible,
				ContractRef: contractRef,
				TokenID:     tokenID,
				Beneficiary: recipient,
				Amount:      1,
			})
		}
	}

	// Multi-token positions split like fungibles, per token id.
	mtContracts := make([]string, 0, len(holdings.MultiToken))
	for contractRef := range holdings.MultiToken {
		mtContracts = append(mtContracts, contractRef)
	}
	sort.Strings(mtContracts)
	for _, contractRef := range mtContracts {
		for _, tokenID := range sortedStringKeys(holdings.MultiToken[contractRef]) {
			total := holdings.MultiToken[contractRef][tokenID]
			if total <= 0 {
				continue
			}
			var paid int64
			for _, b := range beneficiaries {
				amount := proportionalShare(total, b.ShareBasisPoint)
				if amount == 0 {
					continue
				}
				if err := adapter.PushMultiToken(stub, contractRef, b.Identity, tokenID, amount); err != nil {
					return nil, nil, err
				}
				paid += amount
				transfers = append(transfers, model.DistributionTransfer{
					Kind:        model.AssetKindMultiToken,
					ContractRef: contractRef,
					TokenID:     tokenID,
					Beneficiary: b.Identity,
					Amount:      amount,
				})
			}
			if dust := total - paid; dust > 0 {
				residues = append(residues, model.AssetResidue{Kind: model.AssetKindMultiToken, ContractRef: contractRef, TokenID: tokenID, Amount: dust})
			}
		}
	}

	return transfers, residues, nil
}

func sortedStringKeys(m map[string]int64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
