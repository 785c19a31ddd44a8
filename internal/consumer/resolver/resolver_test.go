package resolver

import (
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum"
	gethabi "github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xintuition/ethmultivault-indexer/internal/models"
	"github.com/0xintuition/ethmultivault-indexer/internal/pipeline"
	"github.com/0xintuition/ethmultivault-indexer/internal/queue"
)

type fakeResolverStore struct {
	status  models.ResolutionStatus
	label   string
	image   string
	reason  string
	persons []models.Person
	texts   []models.TextObject
}

func (f *fakeResolverStore) SetAtomResolution(ctx context.Context, id models.TermID, status models.ResolutionStatus, label, image, failureReason string) error {
	f.status, f.label, f.image, f.reason = status, label, image, failureReason
	return nil
}
func (f *fakeResolverStore) UpsertTextObject(ctx context.Context, o models.TextObject) error {
	f.texts = append(f.texts, o)
	return nil
}
func (f *fakeResolverStore) UpsertByteObject(ctx context.Context, o models.ByteObject) error { return nil }
func (f *fakeResolverStore) UpsertJSONObject(ctx context.Context, o models.JSONObject) error  { return nil }
func (f *fakeResolverStore) UpsertPerson(ctx context.Context, p models.Person) error {
	f.persons = append(f.persons, p)
	return nil
}
func (f *fakeResolverStore) UpsertOrganization(ctx context.Context, o models.Organization) error {
	return nil
}
func (f *fakeResolverStore) UpsertBook(ctx context.Context, b models.Book) error   { return nil }
func (f *fakeResolverStore) UpsertThing(ctx context.Context, t models.Thing) error { return nil }
func (f *fakeResolverStore) UpsertCaip10(ctx context.Context, c models.Caip10) error {
	return nil
}

func termFromInt(n int64) models.TermID {
	term, err := models.TermIDFromBig(big.NewInt(n))
	if err != nil {
		panic(err)
	}
	return term
}

func newTestConsumer(store *fakeResolverStore, broker queue.Broker, gatewayURL string) *Consumer {
	return &Consumer{
		Broker:              broker,
		Store:               store,
		HTTP:                &http.Client{},
		IPFSGatewayURL:      gatewayURL,
		ResolverQueueURL:    "resolver",
		ImageUploadQueueURL: "image-upload",
		Log:                 logrus.NewEntry(logrus.New()),
	}
}

func TestResolveIPFSTextObjectMarksResolved(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("Alice"))
	}))
	defer srv.Close()

	store := &fakeResolverStore{}
	broker := queue.NewLocalBroker()
	c := newTestConsumer(store, broker, srv.URL)

	term := termFromInt(7)
	job := pipeline.ResolverJob{TermID: term.String(), URI: "ipfs://QmXYZ", Attempt: 0}
	require.NoError(t, c.resolve(context.Background(), term, job))

	assert.Equal(t, models.ResolutionResolved, store.status)
	require.Len(t, store.texts, 1)
	assert.Equal(t, "Alice", store.texts[0].Data)
}

func TestResolveIPFSPersonManifestEnqueuesImageUpload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"type":"person","name":"Alice","image":"ipfs://QmImage"}`))
	}))
	defer srv.Close()

	store := &fakeResolverStore{}
	broker := queue.NewLocalBroker()
	c := newTestConsumer(store, broker, srv.URL)

	term := termFromInt(8)
	job := pipeline.ResolverJob{TermID: term.String(), URI: "ipfs://QmXYZ", Attempt: 0}
	require.NoError(t, c.resolve(context.Background(), term, job))

	assert.Equal(t, models.ResolutionResolved, store.status)
	assert.Equal(t, "Alice", store.label)
	assert.Equal(t, "ipfs://QmImage", store.image)
	require.Len(t, store.persons, 1)
	assert.Equal(t, 1, broker.Len("image-upload"))
}

func TestResolveIPFSGatewayErrorIsRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	store := &fakeResolverStore{}
	broker := queue.NewLocalBroker()
	c := newTestConsumer(store, broker, srv.URL)

	term := termFromInt(9)
	job := pipeline.ResolverJob{TermID: term.String(), URI: "ipfs://QmXYZ", Attempt: 0}
	err := c.resolve(context.Background(), term, job)
	require.Error(t, err)
	var retry *retryable
	assert.True(t, asRetryable(err, &retry))
}

func TestHandleExhaustsRetriesAndMarksFailed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	store := &fakeResolverStore{}
	broker := queue.NewLocalBroker()
	c := newTestConsumer(store, broker, srv.URL)

	term := termFromInt(10)
	job := pipeline.ResolverJob{TermID: term.String(), URI: "ipfs://QmXYZ", Attempt: maxAttempts - 1}
	body, err := json.Marshal(job)
	require.NoError(t, err)
	require.NoError(t, broker.Send(context.Background(), "resolver", string(body)))

	msgs, err := broker.Receive(context.Background(), "resolver")
	require.NoError(t, err)
	require.Len(t, msgs, 1)

	require.NoError(t, c.handle(context.Background(), msgs[0]))
	assert.Equal(t, models.ResolutionFailed, store.status)
	assert.Equal(t, 0, broker.Len("resolver"))
}

func TestHandleRetriesBeforeExhaustion(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	store := &fakeResolverStore{}
	broker := queue.NewLocalBroker()
	c := newTestConsumer(store, broker, srv.URL)

	term := termFromInt(11)
	job := pipeline.ResolverJob{TermID: term.String(), URI: "ipfs://QmXYZ", Attempt: 0}
	body, err := json.Marshal(job)
	require.NoError(t, err)
	require.NoError(t, broker.Send(context.Background(), "resolver", string(body)))

	msgs, err := broker.Receive(context.Background(), "resolver")
	require.NoError(t, err)
	require.Len(t, msgs, 1)

	require.NoError(t, c.handle(context.Background(), msgs[0]))
	assert.NotEqual(t, models.ResolutionFailed, store.status)
	assert.Equal(t, 1, broker.Len("resolver"))
}

func TestResolveCaip10DecodesInPlace(t *testing.T) {
	store := &fakeResolverStore{}
	broker := queue.NewLocalBroker()
	c := newTestConsumer(store, broker, "http://unused")

	term := termFromInt(12)
	job := pipeline.ResolverJob{TermID: term.String(), URI: "caip10:eip155:1:0xabc", Attempt: 0}
	require.NoError(t, c.resolve(context.Background(), term, job))
	assert.Equal(t, models.ResolutionResolved, store.status)
	assert.Equal(t, "0xabc", store.label)
}

// ensFakeCaller answers the two sequential eth_calls ensresolve.Resolve
// makes (registry.resolver then resolver.name) in order, without needing
// to inspect the packed call data's method selector.
type ensFakeCaller struct {
	resolverAddr common.Address
	name         string
	calls        int
}

func (f *ensFakeCaller) CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	f.calls++
	typeAddress, _ := gethabi.NewType("address", "", nil)
	typeString, _ := gethabi.NewType("string", "", nil)
	if f.calls == 1 {
		return gethabi.Arguments{{Type: typeAddress}}.Pack(f.resolverAddr)
	}
	return gethabi.Arguments{{Type: typeString}}.Pack(f.name)
}

func TestResolveENSCallsRegistryThenResolver(t *testing.T) {
	store := &fakeResolverStore{}
	broker := queue.NewLocalBroker()
	c := newTestConsumer(store, broker, "http://unused")
	c.ENS = &ensFakeCaller{resolverAddr: common.HexToAddress("0x1"), name: "alice.eth"}
	c.ENSRegistryAddress = common.HexToAddress("0x2")

	term := termFromInt(13)
	node := "0x" + strings.Repeat("ab12cd34", 8)
	job := pipeline.ResolverJob{TermID: term.String(), URI: "ens:" + node, Attempt: 0}
	require.NoError(t, c.resolve(context.Background(), term, job))
	assert.Equal(t, models.ResolutionResolved, store.status)
	assert.Equal(t, "alice.eth", store.label)
}

