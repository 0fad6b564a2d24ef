package model

import (
	"sort"
	"time"
)

// AssetKind identifies which external ledger semantics an asset follows.
type AssetKind string

const (
	AssetKindNative      AssetKind = "NATIVE"
	AssetKindFungible    AssetKind = "FUNGIBLE"
	AssetKindNonFungible AssetKind = "NON_FUNGIBLE"
	AssetKindMultiToken  AssetKind = "MULTI_TOKEN"
)

// AssetHoldings is the authoritative per-owner custody record. Balances here are
// the single source of truth; the AssetRecord list is derived from it on read.
type AssetHoldings struct {
	ObjectType    string                      `json:"objectType"` // "AssetHoldings"
	Owner         string                      `json:"owner"`
	NativeBalance int64                       `json:"nativeBalance"`
	Fungible      map[string]int64            `json:"fungible"`    // contractRef -> balance
	NonFungible   map[string][]string         `json:"nonFungible"` // contractRef -> token ids, no duplicates
	MultiToken    map[string]map[string]int64 `json:"multiToken"`  // contractRef -> tokenId -> balance
	UpdatedAt     time.Time                   `json:"updatedAt"`
}

// NewAssetHoldings returns an empty holdings record for an owner.
func NewAssetHoldings(owner string) *AssetHoldings {
	return &AssetHoldings{
		ObjectType:  "AssetHoldings",
		Owner:       owner,
		Fungible:    map[string]int64{},
		NonFungible: map[string][]string{},
		MultiToken:  map[string]map[string]int64{},
	}
}

// HoldsToken reports whether the given non-fungible token is in custody.
func (h *AssetHoldings) HoldsToken(contractRef, tokenID string) bool {
	for _, id := range h.NonFungible[contractRef] {
		if id == tokenID {
			return true
		}
	}
	return false
}

// IsEmpty reports whether no balance of any kind remains in custody.
func (h *AssetHoldings) IsEmpty() bool {
	if h.NativeBalance != 0 {
		return false
	}
	for _, bal := range h.Fungible {
		if bal != 0 {
			return false
		}
	}
	for _, ids := range h.NonFungible {
		if len(ids) != 0 {
			return false
		}
	}
	for _, perToken := range h.MultiToken {
		for _, bal := range perToken {
			if bal != 0 {
				return false
			}
		}
	}
	return true
}

// AssetRecord is the read-model view of one custody position.
type AssetRecord struct {
	Owner       string    `json:"owner"`
	Kind        AssetKind `json:"assetKind"`
	ContractRef string    `json:"contractRef"` // Empty for NATIVE
	TokenID     string    `json:"tokenId"`     // NON_FUNGIBLE and MULTI_TOKEN only
	Amount      int64     `json:"amount"`
	IsDeposited bool      `json:"isDeposited"`
}

// Records derives the denormalized asset list from the authoritative balances.
// Ordering is deterministic: native, then fungible/non-fungible/multi-token each
// sorted by contract reference and token id.
func (h *AssetHoldings) Records() []AssetRecord {
	records := []AssetRecord{}
	if h.NativeBalance > 0 {
		records = append(records, AssetRecord{
			Owner: h.Owner, Kind: AssetKindNative, Amount: h.NativeBalance, IsDeposited: true,
		})
	}
	for _, ref := range sortedKeys(h.Fungible) {
		if h.Fungible[ref] > 0 {
			records = append(records, AssetRecord{
				Owner: h.Owner, Kind: AssetKindFungible, ContractRef: ref,
				Amount: h.Fungible[ref], IsDeposited: true,
			})
		}
	}
	nftRefs := make([]string, 0, len(h.NonFungible))
	for ref := range h.NonFungible {
		nftRefs = append(nftRefs, ref)
	}
	sort.Strings(nftRefs)
	for _, ref := range nftRefs {
		ids := append([]string{}, h.NonFungible[ref]...)
		sort.Strings(ids)
		for _, id := range ids {
			records = append(records, AssetRecord{
				Owner: h.Owner, Kind: AssetKindNonFungible, ContractRef: ref,
				TokenID: id, Amount: 1, IsDeposited: true,
			})
		}
	}
	multiRefs := make([]string, 0, len(h.MultiToken))
	for ref := range h.MultiToken {
		multiRefs = append(multiRefs, ref)
	}
	sort.Strings(multiRefs)
	for _, ref := range multiRefs {
		for _, id := range sortedKeys(h.MultiToken[ref]) {
			if h.MultiToken[ref][id] > 0 {
				records = append(records, AssetRecord{
					Owner: h.Owner, Kind: AssetKindMultiToken, ContractRef: ref,
					TokenID: id, Amount: h.MultiToken[ref][id], IsDeposited: true,
				})
			}
		}
	}
	return records
}

func sortedKeys(m map[string]int64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
