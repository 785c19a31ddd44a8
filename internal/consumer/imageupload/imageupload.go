// Package imageupload implements the image-upload consumer (§4.5):
// download an image, POST it to an external classification endpoint, and
// record the verdict. Failures are logged and dropped — the ledger must
// remain usable without classification data.
package imageupload

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/0xintuition/ethmultivault-indexer/internal/models"
	"github.com/0xintuition/ethmultivault-indexer/internal/pipeline"
	"github.com/0xintuition/ethmultivault-indexer/internal/queue"
)

// storage is the subset of internal/store.Store the image-upload consumer
// depends on.
type storage interface {
	UpsertImageGuard(ctx context.Context, g models.ImageGuard) error
}

// classifyResponse is the external image-guard endpoint's reply shape.
type classifyResponse struct {
	IPFSHash       string  `json:"ipfs_hash"`
	Score          float64 `json:"score"`
	Model          string  `json:"model"`
	Classification string  `json:"classification"`
}

// Consumer applies image-upload jobs (§4.5).
type Consumer struct {
	Broker              queue.Broker
	Store               storage
	HTTP                *http.Client
	ImageGuardURL       string
	ImageUploadQueueURL string
	PollPause           time.Duration
	Log                 *logrus.Entry
}

// Run polls the image-upload queue until ctx is cancelled.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		messages, err := c.Broker.Receive(ctx, c.ImageUploadQueueURL)
		if err != nil {
			return &pipeline.TransientError{Op: "image upload receive", Err: err}
		}
		if len(messages) == 0 {
			time.Sleep(c.PollPause)
			continue
		}
		// Each job is dispatched on its own goroutine so unrelated images
		// download/classify concurrently (§5).
		var wg sync.WaitGroup
		for _, msg := range messages {
			msg := msg
			wg.Add(1)
			go func() {
				defer wg.Done()
				if err := c.handle(ctx, msg); err != nil {
					c.Log.WithError(err).WithField("message_id", msg.ID).Warn("image upload job failed, dropping")
				}
				if err := c.Broker.Ack(ctx, c.ImageUploadQueueURL, msg.ReceiptHandle); err != nil {
					c.Log.WithError(err).Error("failed to ack image upload message")
				}
			}()
		}
		wg.Wait()
	}
}

// handle downloads and classifies one image. Every failure is logged and
// swallowed (§4.5 "Failures are logged and dropped"); the caller always
// acks regardless of the returned error so a bad image never blocks the
// queue.
func (c *Consumer) handle(ctx context.Context, msg queue.Message) error {
	var job pipeline.ImageUploadJob
	if err := json.Unmarshal([]byte(msg.Body), &job); err != nil {
		return fmt.Errorf("malformed image upload job: %w", err)
	}
	if job.ImageURL == "" {
		return nil
	}

	imageData, err := c.download(ctx, job.ImageURL)
	if err != nil {
		return fmt.Errorf("download image %s: %w", job.ImageURL, err)
	}

	result, err := c.classify(ctx, job.ImageURL, imageData)
	if err != nil {
		return fmt.Errorf("classify image %s: %w", job.ImageURL, err)
	}

	guard := models.ImageGuard{
		ID:             uuid.NewString(),
		IPFSHash:       result.IPFSHash,
		Score:          &result.Score,
		Model:          result.Model,
		Classification: classification(result.Classification),
		CreatedAt:      time.Now(),
	}
	if err := c.Store.UpsertImageGuard(ctx, guard); err != nil {
		return fmt.Errorf("upsert image guard: %w", err)
	}
	return nil
}

func classification(s string) models.ImageClassification {
	switch models.ImageClassification(s) {
	case models.ImageSafe, models.ImageUnsafe:
		return models.ImageClassification(s)
	default:
		return models.ImageUnknown
	}
}

func (c *Consumer) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("image host returned status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

func (c *Consumer) classify(ctx context.Context, imageURL string, imageData []byte) (classifyResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.ImageGuardURL, bytes.NewReader(imageData))
	if err != nil {
		return classifyResponse{}, err
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set("X-Image-Url", imageURL)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return classifyResponse{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return classifyResponse{}, fmt.Errorf("image guard returned status %d", resp.StatusCode)
	}

	var result classifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return classifyResponse{}, fmt.Errorf("decode image guard response: %w", err)
	}
	return result, nil
}
