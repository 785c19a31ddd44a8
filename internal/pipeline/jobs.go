package pipeline

import "github.com/0xintuition/ethmultivault-indexer/internal/models"

// ResolverJob is the envelope enqueued for the resolver consumer (§4.3 step
// 4, §4.4 "Jobs"). TermID is carried as its decimal string form so the job
// survives a plain JSON round-trip without a custom codec.
type ResolverJob struct {
	TermID  string `json:"term_id"`
	URI     string `json:"uri"`
	Attempt int    `json:"attempt"`
}

// NewResolverJob builds the initial job for a term id needing off-chain
// resolution (§4.3 step 4: "enqueue a resolver job carrying {term_id, uri,
// attempt=0}").
func NewResolverJob(term models.TermID, uri string) ResolverJob {
	return ResolverJob{TermID: term.String(), URI: uri, Attempt: 0}
}

// ImageUploadJob is the envelope enqueued for the image-upload consumer
// (§4.5 "Dequeues {image_url}").
type ImageUploadJob struct {
	ImageURL string `json:"image_url"`
}
