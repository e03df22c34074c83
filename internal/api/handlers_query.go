package api

import (
	"encoding/json"
	"net/http"
	"strings"
)

const maxJSONBody = 1 << 20

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body == nil {
		jsonError(w, "Missing 'query' field", http.StatusBadRequest)
		return
	}
	query, ok := body["query"].(string)
	if !ok {
		jsonError(w, "Missing 'query' field", http.StatusBadRequest)
		return
	}

	out, err := s.deps.Agent.ProcessText(r.Context(), query)
	if err != nil {
		s.log.Warn("query.failed", "error", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

var contactFields = []string{"name", "email", "inquiryType", "message"}

func (s *Server) handleContact(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body == nil {
		jsonError(w, "Missing required fields", http.StatusBadRequest)
		return
	}
	for _, f := range contactFields {
		if _, ok := body[f]; !ok {
			jsonError(w, "Missing required fields", http.StatusBadRequest)
			return
		}
	}

	inquiry, _ := body["inquiryType"].(string)
	s.log.Info("contact.received", "inquiry_type", strings.TrimSpace(inquiry))
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Contact form submitted successfully",
	})
}
