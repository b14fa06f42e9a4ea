package api

import (
	"net/http"

	"github.com/jonwraymond/assetmigrate/depgraph"
	"github.com/jonwraymond/assetmigrate/failure"
	"github.com/jonwraymond/assetmigrate/operation"
)

// PlanRequest is the body of POST /v1/plans. With no goals the required
// operations are planned.
type PlanRequest struct {
	Operations []depgraph.Spec `json:"operations"`
	Goals      []string        `json:"goals,omitempty"`
}

// PlanResponse is the resolved execution order.
type PlanResponse struct {
	Order []string `json:"order"`

	// EstimatedTimeCost is the summed estimate in milliseconds.
	EstimatedTimeCost int64 `json:"estimatedTimeCost"`

	// Warnings lists definitions outside the plan that reference unknown
	// operations.
	Warnings []string `json:"warnings,omitempty"`
}

func (s *Server) resolvePlan(w http.ResponseWriter, r *http.Request) {
	var req PlanRequest
	if err := decodeBody(w, r, s.maxBody, &req); err != nil {
		writeError(w, err)
		return
	}
	if len(req.Operations) == 0 {
		writeError(w, failure.New(failure.KindValidation, "api.plan", "operations are required"))
		return
	}

	plan, err := operation.NewPlan(depgraph.DefineAll(req.Operations), req.Goals...)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := PlanResponse{
		Order:             plan.Order,
		EstimatedTimeCost: plan.Estimated.Milliseconds(),
	}
	if resp.Order == nil {
		resp.Order = []string{}
	}
	for _, m := range plan.Graph.MissingDependencies() {
		resp.Warnings = append(resp.Warnings, m.Operation+" depends on unknown operation "+m.Dependency)
	}
	writeJSON(w, http.StatusOK, resp)
}
