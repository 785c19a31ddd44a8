package imageupload

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xintuition/ethmultivault-indexer/internal/models"
	"github.com/0xintuition/ethmultivault-indexer/internal/pipeline"
	"github.com/0xintuition/ethmultivault-indexer/internal/queue"
)

type fakeGuardStore struct {
	guards []models.ImageGuard
}

func (f *fakeGuardStore) UpsertImageGuard(ctx context.Context, g models.ImageGuard) error {
	f.guards = append(f.guards, g)
	return nil
}

func newTestConsumer(store *fakeGuardStore, imageGuardURL string) *Consumer {
	return &Consumer{
		Broker:              queue.NewLocalBroker(),
		Store:               store,
		HTTP:                &http.Client{},
		ImageGuardURL:       imageGuardURL,
		ImageUploadQueueURL: "image-upload",
		PollPause:           10 * time.Millisecond,
		Log:                 logrus.NewEntry(logrus.New()),
	}
}

func TestHandleDownloadsClassifiesAndRecords(t *testing.T) {
	imageSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("fake-image-bytes"))
	}))
	defer imageSrv.Close()

	guardSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, imageSrv.URL+"/photo.png", r.Header.Get("X-Image-Url"))
		json.NewEncoder(w).Encode(classifyResponse{
			IPFSHash:       "QmPhoto",
			Score:          0.02,
			Model:          "guard-v1",
			Classification: "safe",
		})
	}))
	defer guardSrv.Close()

	store := &fakeGuardStore{}
	c := newTestConsumer(store, guardSrv.URL)

	job := pipeline.ImageUploadJob{ImageURL: imageSrv.URL + "/photo.png"}
	body, err := json.Marshal(job)
	require.NoError(t, err)

	require.NoError(t, c.handle(context.Background(), queue.Message{ID: "1", Body: string(body)}))
	require.Len(t, store.guards, 1)
	assert.Equal(t, "QmPhoto", store.guards[0].IPFSHash)
	assert.Equal(t, models.ImageSafe, store.guards[0].Classification)
	require.NotNil(t, store.guards[0].Score)
	assert.InDelta(t, 0.02, *store.guards[0].Score, 0.0001)
}

func TestHandleUnknownClassificationNormalizes(t *testing.T) {
	imageSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("bytes"))
	}))
	defer imageSrv.Close()

	guardSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(classifyResponse{
			IPFSHash:       "QmWeird",
			Classification: "garbage",
		})
	}))
	defer guardSrv.Close()

	store := &fakeGuardStore{}
	c := newTestConsumer(store, guardSrv.URL)

	job := pipeline.ImageUploadJob{ImageURL: imageSrv.URL}
	body, err := json.Marshal(job)
	require.NoError(t, err)

	require.NoError(t, c.handle(context.Background(), queue.Message{ID: "1", Body: string(body)}))
	require.Len(t, store.guards, 1)
	assert.Equal(t, models.ImageUnknown, store.guards[0].Classification)
}

func TestHandleDownloadFailureIsLoggedAndDropped(t *testing.T) {
	imageSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer imageSrv.Close()

	store := &fakeGuardStore{}
	c := newTestConsumer(store, "http://unused")

	job := pipeline.ImageUploadJob{ImageURL: imageSrv.URL}
	body, err := json.Marshal(job)
	require.NoError(t, err)

	err = c.handle(context.Background(), queue.Message{ID: "1", Body: string(body)})
	assert.Error(t, err)
	assert.Empty(t, store.guards)
}

func TestHandleEmptyImageURLIsNoop(t *testing.T) {
	store := &fakeGuardStore{}
	c := newTestConsumer(store, "http://unused")

	body, err := json.Marshal(pipeline.ImageUploadJob{})
	require.NoError(t, err)

	require.NoError(t, c.handle(context.Background(), queue.Message{ID: "1", Body: string(body)}))
	assert.Empty(t, store.guards)
}
