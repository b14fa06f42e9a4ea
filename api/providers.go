package api

import "net/http"

// ProviderResponse describes one catalog entry.
type ProviderResponse struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Capability string `json:"capability"`
}

func (s *Server) listProviders(w http.ResponseWriter, _ *http.Request) {
	ids := s.catalog.IDs()
	out := make([]ProviderResponse, 0, len(ids))
	for _, id := range ids {
		d, err := s.catalog.Lookup(id)
		if err != nil {
			continue
		}
		out = append(out, ProviderResponse{ID: d.ID, Name: d.Name, Capability: d.Capability.String()})
	}
	writeJSON(w, http.StatusOK, out)
}
