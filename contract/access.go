package contract

import (
	"errors"
	"fmt"

	"willvault/model"
)

// operation enumerates the guarded entry points of the contract.
type operation string

const (
	opDefineWill operation = "DefineWill"
	opRevokeWill operation = "RevokeWill"
	opDeposit    operation = "Deposit"
	opWithdraw   operation = "Withdraw"
	opAnnounce   operation = "AnnounceInheritance"
	opConsensus  operation = "ProvideConsensus"
	opChallenge  operation = "ChallengeInheritance"
	opExecute    operation = "ExecuteInheritance"
	opRequestVer operation = "RequestDeathVerification"
)

// checkCapability is the single authorization gate for will-scoped operations.
// It is pure: it inspects only its arguments and returns nil to allow or a
// descriptive error to deny. State/ordering preconditions (process status,
// windows, quorum) are checked separately by the callers.
func checkCapability(op operation, caller string, will *model.Will) error {
	if caller == "" {
		return errors.New("caller identity cannot be empty")
	}

	switch op {
	case opDefineWill:
		// Anyone may define a will; the caller becomes the owner.
		return nil

	case opRevokeWill, opWithdraw, opDeposit:
		if will == nil {
			return fmt.Errorf("%s: no will exists for this owner", op)
		}
		if caller != will.Owner {
			return fmt.Errorf("%s: unauthorized - caller '%s' is not the will owner", op, caller)
		}
		return nil

	case opAnnounce, opConsensus, opExecute, opRequestVer:
		if will == nil {
			return fmt.Errorf("%s: no will exists for this owner", op)
		}
		if !isWillExecutor(will, caller) {
			return fmt.Errorf("%s: unauthorized - caller '%s' is not an executor of this will", op, caller)
		}
		return nil

	case opChallenge:
		if will == nil {
			return fmt.Errorf("%s: no will exists for this owner", op)
		}
		if caller != will.Owner && !isWillExecutor(will, caller) {
			return fmt.Errorf("%s: unauthorized - caller '%s' is neither the owner nor an executor", op, caller)
		}
		return nil

	default:
		return fmt.Errorf("unknown operation '%s'", op)
	}
}

// isWillExecutor is a linear membership scan; executor lists are bounded to 10.
func isWillExecutor(will *model.Will, candidate string) bool {
	for _, e := range will.Executors {
		if e == candidate {
			return true
		}
	}
	return false
}
