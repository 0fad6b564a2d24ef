package contract

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/hyperledger/fabric-chaincode-go/pkg/cid"
	"github.com/hyperledger/fabric-chaincode-go/shim"
	"github.com/hyperledger/fabric-contract-api-go/contractapi"
	"github.com/hyperledger/fabric-protos-go/ledger/queryresult"
	pb "github.com/hyperledger/fabric-protos-go/peer"
	"google.golang.org/protobuf/types/known/timestamppb"
)

const compositeKeyNamespace = "\x00"

// mockStub is an in-memory world state implementing the subset of
// shim.ChaincodeStubInterface the contract exercises. Unimplemented methods
// panic via the embedded nil interface, which keeps accidental use loud.
type mockStub struct {
	shim.ChaincodeStubInterface

	state   map[string][]byte
	history map[string][]*queryresult.KeyModification
	events  map[string][]byte
	txID    string
	now     time.Time
}

func newMockStub() *mockStub {
	return &mockStub{
		state:   map[string][]byte{},
		history: map[string][]*queryresult.KeyModification{},
		events:  map[string][]byte{},
		txID:    "tx-0",
		now:     time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func (ms *mockStub) GetTxID() string { return ms.txID }

func (ms *mockStub) GetTxTimestamp() (*timestamppb.Timestamp, error) {
	return timestamppb.New(ms.now), nil
}

func (ms *mockStub) GetState(key string) ([]byte, error) {
	return ms.state[key], nil
}

func (ms *mockStub) PutState(key string, value []byte) error {
	ms.state[key] = value
	ms.history[key] = append(ms.history[key], &queryresult.KeyModification{
		TxId:      ms.txID,
		Value:     append([]byte{}, value...),
		Timestamp: timestamppb.New(ms.now),
	})
	return nil
}

func (ms *mockStub) DelState(key string) error {
	delete(ms.state, key)
	ms.history[key] = append(ms.history[key], &queryresult.KeyModification{
		TxId:      ms.txID,
		IsDelete:  true,
		Timestamp: timestamppb.New(ms.now),
	})
	return nil
}

func (ms *mockStub) CreateCompositeKey(objectType string, attributes []string) (string, error) {
	key := compositeKeyNamespace + objectType + compositeKeyNamespace
	for _, attr := range attributes {
		key += attr + compositeKeyNamespace
	}
	return key, nil
}

func (ms *mockStub) SetEvent(name string, payload []byte) error {
	ms.events[name] = payload
	return nil
}

func (ms *mockStub) sortedMatches(prefix string) []*queryresult.KV {
	keys := make([]string, 0, len(ms.state))
	for k := range ms.state {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	results := make([]*queryresult.KV, 0, len(keys))
	for _, k := range keys {
		results = append(results, &queryresult.KV{Key: k, Value: ms.state[k]})
	}
	return results
}

func (ms *mockStub) GetStateByPartialCompositeKey(objectType string, keys []string) (shim.StateQueryIteratorInterface, error) {
	prefix, _ := ms.CreateCompositeKey(objectType, keys)
	return &mockStateIterator{results: ms.sortedMatches(prefix)}, nil
}

func (ms *mockStub) GetStateByPartialCompositeKeyWithPagination(objectType string, keys []string, pageSize int32, bookmark string) (shim.StateQueryIteratorInterface, *pb.QueryResponseMetadata, error) {
	iterator, err := ms.GetStateByPartialCompositeKey(objectType, keys)
	if err != nil {
		return nil, nil, err
	}
	all := iterator.(*mockStateIterator).results
	start := 0
	if bookmark != "" {
		for i, kv := range all {
			if kv.Key >= bookmark {
				start = i
				break
			}
		}
	}
	end := start + int(pageSize)
	if end > len(all) {
		end = len(all)
	}
	nextBookmark := ""
	if end < len(all) {
		nextBookmark = all[end].Key
	}
	page := all[start:end]
	meta := &pb.QueryResponseMetadata{
		FetchedRecordsCount: int32(len(page)),
		Bookmark:            nextBookmark,
	}
	return &mockStateIterator{results: page}, meta, nil
}

func (ms *mockStub) GetHistoryForKey(key string) (shim.HistoryQueryIteratorInterface, error) {
	return &mockHistoryIterator{results: ms.history[key]}, nil
}

type mockStateIterator struct {
	results []*queryresult.KV
	index   int
}

func (it *mockStateIterator) HasNext() bool { return it.index < len(it.results) }

func (it *mockStateIterator) Next() (*queryresult.KV, error) {
	if !it.HasNext() {
		return nil, fmt.Errorf("iterator exhausted")
	}
	kv := it.results[it.index]
	it.index++
	return kv, nil
}

func (it *mockStateIterator) Close() error { return nil }

type mockHistoryIterator struct {
	results []*queryresult.KeyModification
	index   int
}

func (it *mockHistoryIterator) HasNext() bool { return it.index < len(it.results) }

func (it *mockHistoryIterator) Next() (*queryresult.KeyModification, error) {
	if !it.HasNext() {
		return nil, fmt.Errorf("iterator exhausted")
	}
	km := it.results[it.index]
	it.index++
	return km, nil
}

func (it *mockHistoryIterator) Close() error { return nil }

// mockClientIdentity impersonates one caller for the duration of a call.
type mockClientIdentity struct {
	cid.ClientIdentity

	id    string
	mspID string
}

func (mc *mockClientIdentity) GetID() (string, error)    { return mc.id, nil }
func (mc *mockClientIdentity) GetMSPID() (string, error) { return mc.mspID, nil }

// --- Fake Token Adapter ---

type tokenCall struct {
	op          string // "pull" or "push"
	kind        string // "native", "fungible", "nft", "multi"
	contractRef string
	party       string
	tokenID     string
	amount      int64
}

// fakeTokenAdapter records every settlement call and can be told to fail at a
// specific call index (zero-based; -1 never fails).
type fakeTokenAdapter struct {
	calls  []tokenCall
	failAt int
}

func newFakeTokenAdapter() *fakeTokenAdapter {
	return &fakeTokenAdapter{failAt: -1}
}

func (f *fakeTokenAdapter) record(call tokenCall) error {
	index := len(f.calls)
	f.calls = append(f.calls, call)
	if index == f.failAt {
		return fmt.Errorf("token ledger rejected %s %s transfer", call.op, call.kind)
	}
	return nil
}

func (f *fakeTokenAdapter) PullNative(_ shim.ChaincodeStubInterface, from string, amount int64) error {
	return f.record(tokenCall{op: "pull", kind: "native", party: from, amount: amount})
}

func (f *fakeTokenAdapter) PushNative(_ shim.ChaincodeStubInterface, to string, amount int64) error {
	return f.record(tokenCall{op: "push", kind: "native", party: to, amount: amount})
}

func (f *fakeTokenAdapter) PullFungible(_ shim.ChaincodeStubInterface, contractRef, from string, amount int64) error {
	return f.record(tokenCall{op: "pull", kind: "fungible", contractRef: contractRef, party: from, amount: amount})
}

func (f *fakeTokenAdapter) PushFungible(_ shim.ChaincodeStubInterface, contractRef, to string, amount int64) error {
	return f.record(tokenCall{op: "push", kind: "fungible", contractRef: contractRef, party: to, amount: amount})
}

func (f *fakeTokenAdapter) PullNonFungible(_ shim.ChaincodeStubInterface, contractRef, from, tokenID string) error {
	return f.record(tokenCall{op: "pull", kind: "nft", contractRef: contractRef, party: from, tokenID: tokenID})
}

func (f *fakeTokenAdapter) PushNonFungible(_ shim.ChaincodeStubInterface, contractRef, to, tokenID string) error {
	return f.record(tokenCall{op: "push", kind: "nft", contractRef: contractRef, party: to, tokenID: tokenID})
}

func (f *fakeTokenAdapter) PullMultiToken(_ shim.ChaincodeStubInterface, contractRef, from, tokenID string, amount int64) error {
	return f.record(tokenCall{op: "pull", kind: "multi", contractRef: contractRef, party: from, tokenID: tokenID, amount: amount})
}

func (f *fakeTokenAdapter) PushMultiToken(_ shim.ChaincodeStubInterface, contractRef, to, tokenID string, amount int64) error {
	return f.record(tokenCall{op: "push", kind: "multi", contractRef: contractRef, party: to, tokenID: tokenID, amount: amount})
}

// --- Test Harness ---

const (
	idOwner     = "x509::CN=olivia,OU=client::CN=ca.org1.example.com"
	idExecutor1 = "x509::CN=edgar,OU=client::CN=ca.org1.example.com"
	idExecutor2 = "x509::CN=erin,OU=client::CN=ca.org1.example.com"
	idExecutor3 = "x509::CN=elliot,OU=client::CN=ca.org1.example.com"
	idBenef1    = "x509::CN=ben,OU=client::CN=ca.org1.example.com"
	idBenef2    = "x509::CN=bella,OU=client::CN=ca.org1.example.com"
	idOracle    = "x509::CN=oracle,OU=client::CN=ca.org2.example.com"
	idAdmin     = "x509::CN=root,OU=admin::CN=ca.org1.example.com"
	idStranger  = "x509::CN=mallory,OU=client::CN=ca.org3.example.com"
)

// harness wires one contract instance to a shared mock stub; ctxAs swaps the
// acting identity between calls the way separate transactions would.
type harness struct {
	contract *EstateSmartContract
	stub     *mockStub
	adapter  *fakeTokenAdapter
}

func newHarness() *harness {
	adapter := newFakeTokenAdapter()
	return &harness{
		contract: &EstateSmartContract{adapter: adapter},
		stub:     newMockStub(),
		adapter:  adapter,
	}
}

func (h *harness) ctxAs(identity string) *contractapi.TransactionContext {
	ctx := &contractapi.TransactionContext{}
	ctx.SetStub(h.stub)
	ctx.SetClientIdentity(&mockClientIdentity{id: identity, mspID: "Org1MSP"})
	return ctx
}

func (h *harness) advance(d time.Duration) {
	h.stub.now = h.stub.now.Add(d)
}

// defineStandardWill installs an Active will for idOwner: two executors, two
// beneficiaries at 60/40, 7 day moratorium, no oracle requirement.
func (h *harness) defineStandardWill() error {
	executors := fmt.Sprintf(`["%s","%s"]`, idExecutor1, idExecutor2)
	beneficiaries := fmt.Sprintf(`[{"identity":"%s","shareBasisPoints":6000},{"identity":"%s","shareBasisPoints":4000}]`, idBenef1, idBenef2)
	return h.contract.DefineWill(h.ctxAs(idOwner), executors, beneficiaries, 7, "", false)
}

// announceAndSettle pushes a standard will through announce, dual consensus,
// and the challenge plus moratorium wait so it is ready for execution.
func (h *harness) announceAndSettle() error {
	if err := h.contract.AnnounceInheritance(h.ctxAs(idExecutor1), idOwner); err != nil {
		return err
	}
	if err := h.contract.ProvideConsensus(h.ctxAs(idExecutor1), idOwner); err != nil {
		return err
	}
	if err := h.contract.ProvideConsensus(h.ctxAs(idExecutor2), idOwner); err != nil {
		return err
	}
	h.advance(8 * 24 * time.Hour) // Past both the challenge window and the moratorium
	return nil
}
