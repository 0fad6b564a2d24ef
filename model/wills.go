package model

import "time"

// WillStatus defines the possible states of a registered will.
type WillStatus string

const (
	WillStatusActive    WillStatus = "ACTIVE"    // Will registered and in force
	WillStatusSuspended WillStatus = "SUSPENDED" // Will administratively suspended
	WillStatusExecuted  WillStatus = "EXECUTED"  // Inheritance executed, terminal
	WillStatusRevoked   WillStatus = "REVOKED"   // Revoked by the owner, terminal for this will
)

// ProcessStatus defines the possible states of an inheritance process.
type ProcessStatus string

const (
	ProcessNotStarted        ProcessStatus = "NOT_STARTED"
	ProcessAnnounced         ProcessStatus = "ANNOUNCED"
	ProcessChallenged        ProcessStatus = "CHALLENGED"
	ProcessReadyForExecution ProcessStatus = "READY_FOR_EXECUTION" // Computed state, never persisted
	ProcessExecuted          ProcessStatus = "EXECUTED"
	ProcessCancelled         ProcessStatus = "CANCELLED"
)

// Beneficiary is a recipient of a proportional share of the estate.
// Share is expressed in basis points; all shares of a will sum to exactly 10000.
type Beneficiary struct {
	Identity        string `json:"identity"`
	ShareBasisPoint int64  `json:"shareBasisPoints"`
	Description     string `json:"description"`
}

// Will is the owner's inheritance configuration. One per owner identity.
type Will struct {
	ObjectType                 string        `json:"objectType"` // "Will"
	Owner                      string        `json:"owner"`      // Full X.509 identity of the asset holder
	OwnerAlias                 string        `json:"ownerAlias"`
	Executors                  []string      `json:"executors"`     // 2..10 distinct identities, none the owner
	Beneficiaries              []Beneficiary `json:"beneficiaries"` // 1..20 entries
	MoratoriumDays             int64         `json:"moratoriumDays"`
	IdentityHash               string        `json:"identityHash"`
	RequiresOracleVerification bool          `json:"requiresOracleVerification"`
	Status                     WillStatus    `json:"status"`
	IsArchived                 bool          `json:"isArchived"`
	CreatedAt                  time.Time     `json:"createdAt"`
	LastUpdated                time.Time     `json:"lastUpdated"`
}

// InheritanceProcess is the per-owner state machine record, created on first
// announcement and terminal once executed.
type InheritanceProcess struct {
	ObjectType       string        `json:"objectType"` // "InheritanceProcess"
	Owner            string        `json:"owner"`
	Initiator        string        `json:"initiator"` // Executor that announced
	Status           ProcessStatus `json:"status"`
	StartTime        time.Time     `json:"startTime"`
	ChallengeEndTime time.Time     `json:"challengeEndTime"`
	OracleVerified   bool          `json:"oracleVerified"`
	Challengers      []string      `json:"challengers"`      // Append-only
	ChallengeReasons []string      `json:"challengeReasons"` // Parallel to Challengers
	Affirmations     []string      `json:"affirmations"`     // Distinct executors that affirmed
	ConsensusCount   int           `json:"executorConsensusCount"`
	ExecutedAt       time.Time     `json:"executedAt"`
}

// HasAffirmed reports whether the given executor already provided consensus.
func (p *InheritanceProcess) HasAffirmed(executor string) bool {
	for _, a := range p.Affirmations {
		if a == executor {
			return true
		}
	}
	return false
}

// DeathVerification is the oracle's on-ledger attestation for an identity hash.
type DeathVerification struct {
	ObjectType   string    `json:"objectType"` // "DeathVerification"
	IdentityHash string    `json:"identityHash"`
	Verified     bool      `json:"verified"`
	DeceasedAt   time.Time `json:"deceasedAt"`
	RecordedBy   string    `json:"recordedBy"` // Oracle identity
	RecordedAt   time.Time `json:"recordedAt"`
}

// VerificationRequest is a fire-and-forget request for the oracle to verify a death.
type VerificationRequest struct {
	ObjectType   string    `json:"objectType"` // "VerificationRequest"
	Owner        string    `json:"owner"`
	IdentityHash string    `json:"identityHash"`
	Evidence     string    `json:"evidence"`
	RequestedBy  string    `json:"requestedBy"`
	RequestedAt  time.Time `json:"requestedAt"`
}

// DistributionTransfer is one externally settled transfer performed during execution.
type DistributionTransfer struct {
	Kind        AssetKind `json:"assetKind"`
	ContractRef string    `json:"contractRef"`
	TokenID     string    `json:"tokenId"`
	Beneficiary string    `json:"beneficiary"`
	Amount      int64     `json:"amount"`
}

// AssetResidue records the rounding remainder of one proportionally split asset.
type AssetResidue struct {
	Kind        AssetKind `json:"assetKind"`
	ContractRef string    `json:"contractRef"`
	TokenID     string    `json:"tokenId"`
	Amount      int64     `json:"amount"`
}

// DistributionRecord is the durable audit artifact of one executed inheritance.
type DistributionRecord struct {
	ObjectType string                 `json:"objectType"` // "DistributionRecord"
	Owner      string                 `json:"owner"`
	ExecutedBy string                 `json:"executedBy"`
	ExecutedAt time.Time              `json:"executedAt"`
	Transfers  []DistributionTransfer `json:"transfers"`
	Residues   []AssetResidue         `json:"residues"` // Rounding dust left undistributed
}

// WillHistoryEntry represents one historical state of a will record.
type WillHistoryEntry struct {
	TxID      string    `json:"txId"`
	Timestamp time.Time `json:"timestamp"`
	IsDelete  bool      `json:"isDelete"`
	Value     string    `json:"value"` // Raw JSON value of the will at that time
	Status    string    `json:"status"`
}

// PaginatedWillResponse is the structure returned by paginated will queries.
type PaginatedWillResponse struct {
	Wills        []*Will `json:"wills"`
	NextBookmark string  `json:"nextBookmark"`
	FetchedCount int32   `json:"fetchedCount"`
}
