package contract

import (
	"fmt"
	"strconv"

	"github.com/hyperledger/fabric-chaincode-go/shim"
)

// custodyAccount is the account under which this contract holds value on the
// external token ledgers.
const custodyAccount = "willvault-custody"

// nativeLedgerName is the chaincode implementing the native currency ledger.
const nativeLedgerName = "currency"

// TokenAdapter moves value between external token ledgers and the custody
// account. Deposits pull from the depositor (who pre-authorizes the transfer
// on the token ledger); withdrawals and distribution push back out. Every
// method either completes the external transfer or returns an error; callers
// rely on transaction atomicity to keep ledger state and custody accounting
// in step.
type TokenAdapter interface {
	PullNative(stub shim.ChaincodeStubInterface, from string, amount int64) error
	PushNative(stub shim.ChaincodeStubInterface, to string, amount int64) error
	PullFungible(stub shim.ChaincodeStubInterface, contractRef, from string, amount int64) error
	PushFungible(stub shim.ChaincodeStubInterface, contractRef, to string, amount int64) error
	PullNonFungible(stub shim.ChaincodeStubInterface, contractRef, from, tokenID string) error
	PushNonFungible(stub shim.ChaincodeStubInterface, contractRef, to, tokenID string) error
	PullMultiToken(stub shim.ChaincodeStubInterface, contractRef, from, tokenID string, amount int64) error
	PushMultiToken(stub shim.ChaincodeStubInterface, contractRef, to, tokenID string, amount int64) error
}

// chaincodeTokenAdapter settles transfers by invoking the token chaincodes on
// the same channel. The cross-chaincode call shares this transaction's context,
// so its writes commit or roll back together with ours.
type chaincodeTokenAdapter struct{}

func (a *chaincodeTokenAdapter) invoke(stub shim.ChaincodeStubInterface, chaincodeName string, args ...string) error {
	invokeArgs := make([][]byte, len(args))
	for i, arg := range args {
		invokeArgs[i] = []byte(arg)
	}
	resp := stub.InvokeChaincode(chaincodeName, invokeArgs, "")
	if resp.Status != shim.OK {
		return fmt.Errorf("chaincode '%s' call %s failed: %s", chaincodeName, args[0], resp.Message)
	}
	return nil
}

func (a *chaincodeTokenAdapter) PullNative(stub shim.ChaincodeStubInterface, from string, amount int64) error {
	return a.invoke(stub, nativeLedgerName, "Transfer", from, custodyAccount, strconv.FormatInt(amount, 10))
}

func (a *chaincodeTokenAdapter) PushNative(stub shim.ChaincodeStubInterface, to string, amount int64) error {
	return a.invoke(stub, nativeLedgerName, "Transfer", custodyAccount, to, strconv.FormatInt(amount, 10))
}

func (a *chaincodeTokenAdapter) PullFungible(stub shim.ChaincodeStubInterface, contractRef, from string, amount int64) error {
	return a.invoke(stub, contractRef, "Transfer", from, custodyAccount, strconv.FormatInt(amount, 10))
}

func (a *chaincodeTokenAdapter) PushFungible(stub shim.ChaincodeStubInterface, contractRef, to string, amount int64) error {
	return a.invoke(stub, contractRef, "Transfer", custodyAccount, to, strconv.FormatInt(amount, 10))
}

func (a *chaincodeTokenAdapter) PullNonFungible(stub shim.ChaincodeStubInterface, contractRef, from, tokenID string) error {
	return a.invoke(stub, contractRef, "TransferFrom", from, custodyAccount, tokenID)
}

func (a *chaincodeTokenAdapter) PushNonFungible(stub shim.ChaincodeStubInterface, contractRef, to, tokenID string) error {
	return a.invoke(stub, contractRef, "TransferFrom", custodyAccount, to, tokenID)
}

func (a *chaincodeTokenAdapter) PullMultiToken(stub shim.ChaincodeStubInterface, contractRef, from, tokenID string, amount int64) error {
	return a.invoke(stub, contractRef, "SafeTransferFrom", from, custodyAccount, tokenID, strconv.FormatInt(amount, 10))
}

func (a *chaincodeTokenAdapter) PushMultiToken(stub shim.ChaincodeStubInterface, contractRef, to, tokenID string, amount int64) error {
	return a.invoke(stub, contractRef, "SafeTransferFrom", custodyAccount, to, tokenID, strconv.FormatInt(amount, 10))
}
