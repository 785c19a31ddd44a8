package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xintuition/ethmultivault-indexer/internal/pipeline"
	"github.com/0xintuition/ethmultivault-indexer/internal/queue"
)

func TestEnqueueRefetchSendsOneJobPerAtom(t *testing.T) {
	broker := queue.NewLocalBroker()
	resp := EnqueueRefetch(context.Background(), broker, "resolver", []AtomRefetch{
		{TermID: "1", URI: "ipfs://QmA"},
		{TermID: "2", URI: "ens:0xabc"},
	})
	assert.Equal(t, 2, resp.Enqueued)
	assert.Empty(t, resp.Errors)
	assert.Equal(t, 2, broker.Len("resolver"))

	msgs, err := broker.Receive(context.Background(), "resolver")
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	var job pipeline.ResolverJob
	require.NoError(t, json.Unmarshal([]byte(msgs[0].Body), &job))
	assert.Equal(t, "1", job.TermID)
	assert.Equal(t, "ipfs://QmA", job.URI)
}

func TestEnqueueRefetchCollectsPerAtomErrors(t *testing.T) {
	broker := queue.NewLocalBroker()
	resp := EnqueueRefetch(context.Background(), broker, "resolver", []AtomRefetch{
		{TermID: "not-a-number", URI: "ipfs://QmA"},
		{TermID: "5", URI: "ipfs://QmB"},
	})
	assert.Equal(t, 1, resp.Enqueued)
	require.Len(t, resp.Errors, 1)
	assert.Equal(t, 1, broker.Len("resolver"))
}

func TestRefetchAtomsHandlerEnqueuesAndReportsCount(t *testing.T) {
	broker := queue.NewLocalBroker()
	s := &Server{Broker: broker, Log: logrus.NewEntry(logrus.New())}
	r := mux.NewRouter()
	s.Register(r)

	body, _ := json.Marshal(RefetchAtomsRequest{
		ResolverQueueURL: "resolver",
		Atoms:            []AtomRefetch{{TermID: "3", URI: "ipfs://QmC"}},
	})
	req := httptest.NewRequest(http.MethodPost, "/refetch_atoms", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp RefetchAtomsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Enqueued)
}

func TestRefetchAtomsHandlerRejectsMissingQueueURL(t *testing.T) {
	broker := queue.NewLocalBroker()
	s := &Server{Broker: broker, Log: logrus.NewEntry(logrus.New())}
	r := mux.NewRouter()
	s.Register(r)

	body, _ := json.Marshal(RefetchAtomsRequest{Atoms: []AtomRefetch{{TermID: "3", URI: "ipfs://QmC"}}})
	req := httptest.NewRequest(http.MethodPost, "/refetch_atoms", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
