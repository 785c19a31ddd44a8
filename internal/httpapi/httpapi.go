// Package httpapi is the thin administrative HTTP surface (§6 "Administrative
// HTTP (external collaborator)"). It exposes a single enqueue function; the
// handler is a JSON decode/encode wrapper around it, in the teacher's
// walletserver controller style.
package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/0xintuition/ethmultivault-indexer/internal/models"
	"github.com/0xintuition/ethmultivault-indexer/internal/pipeline"
	"github.com/0xintuition/ethmultivault-indexer/internal/queue"
)

// AtomRefetch names one atom to re-enqueue for resolution. The admin caller
// supplies both the term id and the uri since a resolver job (§4.4) needs
// both and the HTTP surface has no access to the ledger.
type AtomRefetch struct {
	TermID string `json:"term_id"`
	URI    string `json:"uri"`
}

// RefetchAtomsRequest is the POST /refetch_atoms body (§6).
type RefetchAtomsRequest struct {
	ResolverQueueURL string        `json:"resolver_queue_url"`
	Atoms            []AtomRefetch `json:"atoms"`
}

// RefetchAtomsResponse reports how many jobs were enqueued.
type RefetchAtomsResponse struct {
	Enqueued int      `json:"enqueued"`
	Errors   []string `json:"errors,omitempty"`
}

// EnqueueRefetch is the core's only surface to the admin HTTP handler (§6
// "The core exposes only the enqueue function"). It builds one resolver job
// per atom and sends it to resolverQueueURL, continuing past per-atom
// failures so one malformed term id doesn't block the rest of the batch.
func EnqueueRefetch(ctx context.Context, broker queue.Broker, resolverQueueURL string, atoms []AtomRefetch) RefetchAtomsResponse {
	var resp RefetchAtomsResponse
	for _, a := range atoms {
		term, err := models.TermIDFromString(a.TermID)
		if err != nil {
			resp.Errors = append(resp.Errors, fmt.Sprintf("%s: %v", a.TermID, err))
			continue
		}
		job := pipeline.NewResolverJob(term, a.URI)
		body, err := json.Marshal(job)
		if err != nil {
			resp.Errors = append(resp.Errors, fmt.Sprintf("%s: %v", a.TermID, err))
			continue
		}
		if err := broker.Send(ctx, resolverQueueURL, string(body)); err != nil {
			resp.Errors = append(resp.Errors, fmt.Sprintf("%s: %v", a.TermID, err))
			continue
		}
		resp.Enqueued++
	}
	return resp
}

// Server wires the admin HTTP surface onto a mux.Router.
type Server struct {
	Broker queue.Broker
	Log    *logrus.Entry
}

// Register mounts /refetch_atoms on r, in the teacher's routes.Register style.
func (s *Server) Register(r *mux.Router) {
	r.HandleFunc("/refetch_atoms", s.refetchAtoms).Methods(http.MethodPost)
}

func (s *Server) refetchAtoms(w http.ResponseWriter, r *http.Request) {
	var req RefetchAtomsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.ResolverQueueURL == "" {
		http.Error(w, "resolver_queue_url is required", http.StatusBadRequest)
		return
	}

	resp := EnqueueRefetch(r.Context(), s.Broker, req.ResolverQueueURL, req.Atoms)
	if len(resp.Errors) > 0 {
		s.Log.WithField("errors", resp.Errors).Warn("refetch_atoms completed with per-atom errors")
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}
