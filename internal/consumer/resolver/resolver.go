// Package resolver implements the resolver consumer (§4.4): it moves
// atoms from Pending to Resolved or Failed by fetching off-chain content
// for ipfs:// and ens: URIs (caip10 is already resolved inline by the
// decoded consumer and never reaches this queue in practice).
package resolver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"

	"github.com/0xintuition/ethmultivault-indexer/internal/ensresolve"
	"github.com/0xintuition/ethmultivault-indexer/internal/models"
	"github.com/0xintuition/ethmultivault-indexer/internal/pipeline"
	"github.com/0xintuition/ethmultivault-indexer/internal/queue"
)

// maxAttempts is the bound named in §4.4/§7: "the 10th attempt timeout,
// atom transitions Pending -> Failed; no 11th attempt occurs".
const maxAttempts = 10

// ipfsTimeout is the per-attempt deadline named in §4.4/§5.
const ipfsTimeout = 3 * time.Second

// storage is the subset of internal/store.Store the resolver needs.
type storage interface {
	SetAtomResolution(ctx context.Context, id models.TermID, status models.ResolutionStatus, label, image, failureReason string) error
	UpsertTextObject(ctx context.Context, o models.TextObject) error
	UpsertByteObject(ctx context.Context, o models.ByteObject) error
	UpsertJSONObject(ctx context.Context, o models.JSONObject) error
	UpsertPerson(ctx context.Context, p models.Person) error
	UpsertOrganization(ctx context.Context, o models.Organization) error
	UpsertBook(ctx context.Context, b models.Book) error
	UpsertThing(ctx context.Context, t models.Thing) error
	UpsertCaip10(ctx context.Context, c models.Caip10) error
}

// Consumer applies resolver jobs (§4.4).
type Consumer struct {
	Broker              queue.Broker
	Store               storage
	HTTP                *http.Client
	ENS                 ensresolve.Caller
	ENSRegistryAddress  common.Address
	IPFSGatewayURL      string
	ResolverQueueURL    string
	ImageUploadQueueURL string
	PollPause           time.Duration
	Log                 *logrus.Entry
}

// Run polls the resolver queue until ctx is cancelled.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		messages, err := c.Broker.Receive(ctx, c.ResolverQueueURL)
		if err != nil {
			return &pipeline.TransientError{Op: "resolver receive", Err: err}
		}
		if len(messages) == 0 {
			time.Sleep(c.PollPause)
			continue
		}
		// Each job is dispatched on its own goroutine so unrelated atoms'
		// off-chain fetches happen concurrently (§5).
		var wg sync.WaitGroup
		for _, msg := range messages {
			msg := msg
			wg.Add(1)
			go func() {
				defer wg.Done()
				if err := c.handle(ctx, msg); err != nil {
					c.Log.WithError(err).WithField("message_id", msg.ID).Error("resolver job handling failed")
				}
			}()
		}
		wg.Wait()
	}
}

func (c *Consumer) handle(ctx context.Context, msg queue.Message) error {
	var job pipeline.ResolverJob
	if err := json.Unmarshal([]byte(msg.Body), &job); err != nil {
		c.Log.WithError(err).Warn("malformed resolver job, dropping")
		return c.Broker.Ack(ctx, c.ResolverQueueURL, msg.ReceiptHandle)
	}

	term, err := models.TermIDFromString(job.TermID)
	if err != nil {
		c.Log.WithError(err).Warn("resolver job carries malformed term id, dropping")
		return c.Broker.Ack(ctx, c.ResolverQueueURL, msg.ReceiptHandle)
	}

	if err := c.resolve(ctx, term, job); err != nil {
		var retry *retryable
		if asRetryable(err, &retry) {
			if job.Attempt+1 >= maxAttempts {
				c.Log.WithError(retry.cause).Warn("resolver attempts exhausted, marking atom failed")
				if failErr := c.Store.SetAtomResolution(ctx, term, models.ResolutionFailed, "", "", retry.cause.Error()); failErr != nil {
					return fmt.Errorf("mark atom failed: %w", failErr)
				}
				return c.Broker.Ack(ctx, c.ResolverQueueURL, msg.ReceiptHandle)
			}
			c.Log.WithError(retry.cause).Warnf("resolver attempt %d failed, retrying", job.Attempt+1)
			next := job
			next.Attempt++
			body, marshalErr := json.Marshal(next)
			if marshalErr != nil {
				return fmt.Errorf("marshal retry job: %w", marshalErr)
			}
			if sendErr := c.Broker.Send(ctx, c.ResolverQueueURL, string(body)); sendErr != nil {
				return &pipeline.TransientError{Op: "requeue resolver job", Err: sendErr}
			}
			return c.Broker.Ack(ctx, c.ResolverQueueURL, msg.ReceiptHandle)
		}

		// Permanent decode failure (§4.4 "do not retry").
		c.Log.WithError(err).Warn("resolver job failed permanently")
		if failErr := c.Store.SetAtomResolution(ctx, term, models.ResolutionFailed, "", "", err.Error()); failErr != nil {
			return fmt.Errorf("mark atom failed: %w", failErr)
		}
		return c.Broker.Ack(ctx, c.ResolverQueueURL, msg.ReceiptHandle)
	}

	return c.Broker.Ack(ctx, c.ResolverQueueURL, msg.ReceiptHandle)
}

// retryable marks a resolver failure the retry policy re-enqueues for
// another attempt, immediately and with no delay (timeouts and other
// network errors, §4.4/§7).
type retryable struct {
	cause error
}

func (r *retryable) Error() string { return r.cause.Error() }
func (r *retryable) Unwrap() error { return r.cause }

func asRetryable(err error, out **retryable) bool {
	r, ok := err.(*retryable)
	if ok {
		*out = r
	}
	return ok
}

func (c *Consumer) resolve(ctx context.Context, term models.TermID, job pipeline.ResolverJob) error {
	switch {
	case strings.HasPrefix(job.URI, "ipfs://"):
		return c.resolveIPFS(ctx, term, job.URI)
	case strings.HasPrefix(job.URI, "ens:"):
		return c.resolveENS(ctx, term, job.URI)
	case strings.HasPrefix(job.URI, "caip10:"):
		return c.resolveCaip10(ctx, term, job.URI)
	default:
		return fmt.Errorf("unrecognized resolver job uri scheme: %q", job.URI)
	}
}

func (c *Consumer) resolveIPFS(ctx context.Context, term models.TermID, uri string) error {
	cid := strings.TrimPrefix(uri, "ipfs://")
	url := fmt.Sprintf("%s/ipfs/%s", strings.TrimRight(c.IPFSGatewayURL, "/"), cid)

	attemptCtx, cancel := context.WithTimeout(ctx, ipfsTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build ipfs request: %w", err)
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		if attemptCtx.Err() != nil {
			return &retryable{cause: fmt.Errorf("ipfs request timed out: %w", err)}
		}
		return &retryable{cause: fmt.Errorf("ipfs network error: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &retryable{cause: fmt.Errorf("ipfs gateway returned status %d", resp.StatusCode)}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &retryable{cause: fmt.Errorf("read ipfs response: %w", err)}
	}

	return c.storeResolvedContent(ctx, term, body)
}

// storeResolvedContent implements §4.4 "Effects": classify, upsert the
// type-specific side table, promote the atom to Resolved, and enqueue an
// image-upload job when the manifest carries an image.
func (c *Consumer) storeResolvedContent(ctx context.Context, term models.TermID, body []byte) error {
	atomType := models.ClassifyResolvedContent(body)

	var label, image string
	switch atomType {
	case models.AtomTypeTextObject:
		if err := c.Store.UpsertTextObject(ctx, models.TextObject{ID: term, Data: string(body)}); err != nil {
			return fmt.Errorf("upsert text object: %w", err)
		}
		label = string(body)

	case models.AtomTypeByteObject:
		if err := c.Store.UpsertByteObject(ctx, models.ByteObject{ID: term, Data: body}); err != nil {
			return fmt.Errorf("upsert byte object: %w", err)
		}

	case models.AtomTypePerson:
		var fields struct {
			Name  string `json:"name"`
			Email string `json:"email"`
			Image string `json:"image"`
		}
		if err := json.Unmarshal(body, &fields); err != nil {
			return fmt.Errorf("decode person manifest: %w", err)
		}
		p := models.Person{ID: term, Name: fields.Name, Email: fields.Email, Image: fields.Image}
		if err := c.Store.UpsertPerson(ctx, p); err != nil {
			return fmt.Errorf("upsert person: %w", err)
		}
		label, image = p.Name, p.Image

	case models.AtomTypeOrganization:
		var fields struct {
			Name  string `json:"name"`
			Email string `json:"email"`
			Image string `json:"image"`
		}
		if err := json.Unmarshal(body, &fields); err != nil {
			return fmt.Errorf("decode organization manifest: %w", err)
		}
		o := models.Organization{ID: term, Name: fields.Name, Email: fields.Email, Image: fields.Image}
		if err := c.Store.UpsertOrganization(ctx, o); err != nil {
			return fmt.Errorf("upsert organization: %w", err)
		}
		label, image = o.Name, o.Image

	case models.AtomTypeBook:
		var fields struct {
			Name   string `json:"name"`
			Author string `json:"author"`
			Genre  string `json:"genre"`
			Image  string `json:"image"`
		}
		if err := json.Unmarshal(body, &fields); err != nil {
			return fmt.Errorf("decode book manifest: %w", err)
		}
		b := models.Book{ID: term, Name: fields.Name, Author: fields.Author, Genre: fields.Genre, Image: fields.Image}
		if err := c.Store.UpsertBook(ctx, b); err != nil {
			return fmt.Errorf("upsert book: %w", err)
		}
		label, image = b.Name, b.Image

	case models.AtomTypeThing:
		var fields struct {
			Name  string `json:"name"`
			Image string `json:"image"`
			URL   string `json:"url"`
		}
		if err := json.Unmarshal(body, &fields); err != nil {
			return fmt.Errorf("decode thing manifest: %w", err)
		}
		th := models.Thing{ID: term, Name: fields.Name, Image: fields.Image, URL: fields.URL}
		if err := c.Store.UpsertThing(ctx, th); err != nil {
			return fmt.Errorf("upsert thing: %w", err)
		}
		label, image = th.Name, th.Image

	default:
		if err := c.Store.UpsertJSONObject(ctx, models.JSONObject{ID: term, Data: body}); err != nil {
			return fmt.Errorf("upsert json object: %w", err)
		}
	}

	if image != "" {
		if err := c.enqueueImageUpload(ctx, image); err != nil {
			return err
		}
	}

	return c.Store.SetAtomResolution(ctx, term, models.ResolutionResolved, label, image, "")
}

func (c *Consumer) enqueueImageUpload(ctx context.Context, imageURL string) error {
	job := pipeline.ImageUploadJob{ImageURL: imageURL}
	body, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal image upload job: %w", err)
	}
	if err := c.Broker.Send(ctx, c.ImageUploadQueueURL, string(body)); err != nil {
		return &pipeline.TransientError{Op: "enqueue image upload job", Err: err}
	}
	return nil
}

func (c *Consumer) resolveENS(ctx context.Context, term models.TermID, uri string) error {
	node, err := ensresolve.ParseNode(uri)
	if err != nil {
		return fmt.Errorf("parse ens uri: %w", err)
	}
	name, err := ensresolve.Resolve(ctx, c.ENS, c.ENSRegistryAddress, node)
	if err != nil {
		return &retryable{cause: fmt.Errorf("ens resolve: %w", err)}
	}
	return c.Store.SetAtomResolution(ctx, term, models.ResolutionResolved, name, "", "")
}

// resolveCaip10 decodes "caip10:<chain>:<address>" in place (§4.4 "no
// network"). Defensive: the decoded consumer already resolves Caip10
// atoms inline and never enqueues this job in the current pipeline.
func (c *Consumer) resolveCaip10(ctx context.Context, term models.TermID, uri string) error {
	rest := strings.TrimPrefix(uri, "caip10:")
	idx := strings.LastIndex(rest, ":")
	if idx < 0 {
		return fmt.Errorf("malformed caip10 uri %q", uri)
	}
	chainID, address := rest[:idx], rest[idx+1:]
	if err := c.Store.UpsertCaip10(ctx, models.Caip10{ID: term, ChainID: chainID, Address: address}); err != nil {
		return fmt.Errorf("upsert caip10: %w", err)
	}
	return c.Store.SetAtomResolution(ctx, term, models.ResolutionResolved, address, "", "")
}
