package httpserver

import (
	"encoding/json"
	"net/http"

	"github.com/bryanwahyu/triangle-intel/internal/application/servicerequests"
	"github.com/bryanwahyu/triangle-intel/internal/domain/servicerequest"
	"github.com/bryanwahyu/triangle-intel/internal/middleware"
)

const createdMessage = "Service request submitted successfully. Jorge will reach out within 24 hours to schedule your 15-minute consultation."

var createdNextSteps = []string{
	"Jorge reviews your intake details",
	"You receive an invitation for a 15-minute consultation",
	"Research and a tailored proposal follow the consultation",
}

// POST /api/admin/service-requests
func (r *Router) handleCreateServiceRequest(w http.ResponseWriter, req *http.Request) error {
	body, err := readBody(req)
	if err != nil {
		return err
	}
	in, err := servicerequests.DecodeCreate(body)
	if err != nil {
		return badRequest("%v", err)
	}
	res, err := r.Requests.Create(req.Context(), in, servicerequests.ClientMeta{
		IPAddress: req.RemoteAddr,
		UserAgent: req.UserAgent(),
	})
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, map[string]any{
		"success":     true,
		"message":     createdMessage,
		"request_id":  res.Request.ID,
		"assigned_to": res.Request.AssignedTo,
		"priority":    res.Request.Priority,
		"stored":      res.Stored,
		"next_steps":  createdNextSteps,
		"consultation_info": map[string]any{
			"duration":    servicerequest.ConsultationLength,
			"assigned_to": res.Request.AssignedTo,
			"status":      res.Request.ConsultationStatus,
		},
	})
}

// GET /api/admin/service-requests?assigned_to=Jorge
func (r *Router) handleListServiceRequests(w http.ResponseWriter, req *http.Request) error {
	assignee := middleware.SanitizeString(req.URL.Query().Get("assigned_to"))
	res := r.Requests.List(req.Context(), assignee)
	requests := res.Requests
	if requests == nil {
		requests = []servicerequest.Request{}
	}
	return writeJSON(w, http.StatusOK, map[string]any{
		"success":     true,
		"requests":    requests,
		"summary":     res.Summary,
		"assigned_to": res.AssignedTo,
		"data_status": map[string]any{
			"source":       res.Source,
			"last_updated": res.UpdatedAt,
		},
	})
}

// PATCH /api/admin/service-requests
// Body: {"id": "SR123456", "status": "...", ...kolom yang boleh diubah}
func (r *Router) handleUpdateServiceRequest(w http.ResponseWriter, req *http.Request) error {
	data, err := readBody(req)
	if err != nil {
		return err
	}
	var body map[string]any
	if err := json.Unmarshal(data, &body); err != nil {
		return badRequest("invalid JSON body")
	}
	res, err := r.Requests.Update(req.Context(), body)
	if err != nil {
		return err
	}
	if !res.Stored {
		return writeJSON(w, http.StatusOK, map[string]any{
			"success":    true,
			"message":    "Update processed (database unavailable)",
			"request_id": res.ID,
		})
	}
	return writeJSON(w, http.StatusOK, map[string]any{
		"success":        true,
		"message":        "Service request updated successfully",
		"updated_record": res.Record,
	})
}
