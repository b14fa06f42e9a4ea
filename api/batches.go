package api

import (
	"net/http"
	"slices"

	"github.com/jonwraymond/assetmigrate/auth"
	"github.com/jonwraymond/assetmigrate/batch"
	"github.com/jonwraymond/assetmigrate/failure"
)

// BatchRequest is the body of POST /v1/batches. Omitted batchOptions fields
// keep the server defaults.
type BatchRequest struct {
	ItemIDs           []string                `json:"itemIds"`
	ProcessingOptions batch.ProcessingOptions `json:"processingOptions"`
	BatchOptions      batch.Options           `json:"batchOptions"`
}

func (s *Server) submitBatch(w http.ResponseWriter, r *http.Request) {
	owner := auth.OwnerFromContext(r.Context())
	if owner == "" {
		writeError(w, failure.New(failure.KindValidation, "api.batch", "request identity has no owner"))
		return
	}

	req := BatchRequest{BatchOptions: s.defaults}
	// Decoding reuses slice backing arrays; keep the defaults intact.
	req.BatchOptions.FilterByContentType = slices.Clone(s.defaults.FilterByContentType)
	req.BatchOptions.FilterByFileName = slices.Clone(s.defaults.FilterByFileName)
	if err := decodeBody(w, r, s.maxBody, &req); err != nil {
		writeError(w, err)
		return
	}

	res, err := s.processor.ProcessAttachments(r.Context(), owner, req.ItemIDs, req.ProcessingOptions, req.BatchOptions, s.store)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
