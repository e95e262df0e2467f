package httpserver

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/bryanwahyu/triangle-intel/internal/domain/report"
	"github.com/bryanwahyu/triangle-intel/internal/domain/servicerequest"
)

// decodeReportRequest maps a free-form intake body onto report.Request.
// Known keys fill the typed fields; every other scalar goes to Fields.
func decodeReportRequest(kind report.Kind, data []byte) (report.Request, error) {
	req := report.Request{Kind: kind, Fields: map[string]string{}}
	if len(data) == 0 {
		return req, nil
	}
	var body map[string]json.RawMessage
	if err := json.Unmarshal(data, &body); err != nil {
		return req, badRequest("invalid JSON body")
	}
	for k, raw := range body {
		switch k {
		case "components":
			if err := json.Unmarshal(raw, &req.Components); err != nil {
				return req, badRequest("components: %v", err)
			}
		case "trade_volume":
			req.TradeVolume = tradeVolume(raw)
		case "company_name":
			req.CompanyName = scalar(raw)
		case "service_request_id":
			req.ServiceRequestID = scalar(raw)
		default:
			if v := scalar(raw); v != "" {
				req.Fields[k] = v
			}
		}
	}
	return req, nil
}

func scalar(raw json.RawMessage) string {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	}
	return ""
}

// tradeVolume accepts 1500000, "1500000" or "$1,500,000".
func tradeVolume(raw json.RawMessage) float64 {
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return n
	}
	return servicerequest.ParseTradeVolume(scalar(raw))
}

// POST /api/reports/{kind}
func (r *Router) handleGenerateReport(w http.ResponseWriter, req *http.Request) error {
	kind := report.Kind(chi.URLParam(req, "kind"))
	if !kind.Valid() {
		return fmt.Errorf("%w: %q", report.ErrUnknownKind, kind)
	}
	data, err := readBody(req)
	if err != nil {
		return err
	}
	in, err := decodeReportRequest(kind, data)
	if err != nil {
		return err
	}
	rep, err := r.Reports.Generate(req.Context(), in)
	if err != nil {
		return err
	}
	if r.Metrics != nil {
		r.Metrics.ReportGenerated(string(rep.Kind), string(rep.Generator))
	}
	return writeJSON(w, http.StatusOK, map[string]any{"success": true, "report": rep})
}
