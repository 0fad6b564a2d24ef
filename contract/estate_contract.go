package contract

import (
	"errors"
	"fmt"

	"willvault/model"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"
	"github.com/hyperledger/fabric/common/flogging"
)

var logger = flogging.MustGetLogger("willvault.estatecontract")

// Object types used for composite keys and as 'docType' for CouchDB queries.
const (
	willObjectType         = "Will"
	processObjectType      = "InheritanceProcess"
	holdingsObjectType     = "AssetHoldings"
	verificationObjectType = "DeathVerification"
	requestObjectType      = "VerificationRequest"
	distributionObjectType = "DistributionRecord"
)

// Constants for input validation and limits.
const (
	maxStringInputLength = 256
	maxDescriptionLength = 1024
	maxReasonLength      = 512

	minExecutors        = 2
	maxExecutors        = 10
	minBeneficiaries    = 1
	maxBeneficiaries    = 20
	totalShareBasisPts  = 10000
	minMoratoriumDays   = 7
	maxMoratoriumDays   = 365
	challengePeriodDays = 3

	// Minimum number of distinct executor affirmations required to execute.
	minExecutorConsensus = 2
)

// EstateSmartContract provides functions for managing custodial inheritance of
// digital assets: will registration, asset custody, and the multi-party
// announce/consensus/challenge/execute lifecycle.
// @contract:EstateSmartContract
type EstateSmartContract struct {
	contractapi.Contract

	// adapter settles value movement against external token ledgers. Nil means
	// the default cross-chaincode adapter; tests inject a fake.
	adapter TokenAdapter
}

// actorInfo holds commonly needed details about the transaction invoker.
type actorInfo struct {
	fullID string
	alias  string
	mspID  string
}

// Instantiate is called during chaincode instantiation.
func (s *EstateSmartContract) Instantiate(ctx contractapi.TransactionContextInterface) {
	logger.Info("EstateSmartContract Instantiated/Upgraded")
}

// --- Identity & Role Management Wrappers (Delegating to IdentityManager) ---

func (s *EstateSmartContract) RegisterIdentity(ctx contractapi.TransactionContextInterface, targetFullID, shortName string) error {
	logger.Infof("Chaincode Call: RegisterIdentity for '%s' with alias '%s'", targetFullID, shortName)
	return NewIdentityManager(ctx).RegisterIdentity(targetFullID, shortName)
}

func (s *EstateSmartContract) AssignRoleToIdentity(ctx contractapi.TransactionContextInterface, identityOrAlias, role string) error {
	logger.Infof("Chaincode Call: AssignRole '%s' to '%s'", role, identityOrAlias)
	return NewIdentityManager(ctx).AssignRole(identityOrAlias, role)
}

func (s *EstateSmartContract) RemoveRoleFromIdentity(ctx contractapi.TransactionContextInterface, identityOrAlias, role string) error {
	logger.Infof("Chaincode Call: RemoveRole '%s' from '%s'", role, identityOrAlias)
	return NewIdentityManager(ctx).RemoveRole(identityOrAlias, role)
}

func (s *EstateSmartContract) MakeIdentityAdmin(ctx contractapi.TransactionContextInterface, identityOrAlias string) error {
	logger.Infof("Chaincode Call: MakeAdmin for '%s'", identityOrAlias)
	return NewIdentityManager(ctx).MakeAdmin(identityOrAlias)
}

func (s *EstateSmartContract) RemoveIdentityAdmin(ctx contractapi.TransactionContextInterface, identityOrAlias string) error {
	logger.Infof("Chaincode Call: RemoveAdmin for '%s'", identityOrAlias)
	return NewIdentityManager(ctx).RemoveAdmin(identityOrAlias)
}

// GetIdentityDetails returns a registered identity record. Admins may inspect
// anyone; everyone else only themselves.
func (s *EstateSmartContract) GetIdentityDetails(ctx contractapi.TransactionContextInterface, identityOrAlias string) (*model.IdentityInfo, error) {
	logger.Debugf("Chaincode Call: GetIdentityDetails for '%s'", identityOrAlias)
	im := NewIdentityManager(ctx)

	isCallerAdmin, err := im.IsCurrentUserAdmin()
	if err != nil {
		return nil, fmt.Errorf("GetIdentityDetails: failed to check admin status: %w", err)
	}
	if !isCallerAdmin {
		callerFullID, err := im.GetCurrentIdentityFullID()
		if err != nil {
			return nil, fmt.Errorf("GetIdentityDetails: failed to get caller's FullID: %w", err)
		}
		targetFullID, err := im.ResolveIdentity(identityOrAlias)
		if err != nil {
			return nil, fmt.Errorf("GetIdentityDetails: failed to resolve target identity '%s': %w", identityOrAlias, err)
		}
		if callerFullID != targetFullID {
			return nil, errors.New("unauthorized: only admins or the identity owner can get these details")
		}
	}
	return im.GetIdentityInfo(identityOrAlias)
}

// tokenAdapter returns the configured external-ledger adapter.
func (s *EstateSmartContract) tokenAdapter() TokenAdapter {
	if s.adapter == nil {
		s.adapter = &chaincodeTokenAdapter{}
	}
	return s.adapter
}
