package driver

import (
	"encoding/json"
	"fmt"

	"ravens/internal/diag"
	"ravens/internal/observ"
	"ravens/internal/source"
)

type timingPayload struct {
	Kind    string               `json:"kind"`
	Path    string               `json:"path,omitempty"`
	Cache   string               `json:"cache,omitempty"`
	TotalMS float64              `json:"total_ms"`
	Phases  []observ.PhaseReport `json:"phases"`
}

// AppendTimingDiagnostic adds the outcome's timings to its bag as an info
// diagnostic carrying the JSON report in a note. The bag grows past its
// limit if needed; timings are never dropped.
func (o *Outcome) AppendTimingDiagnostic(path string) {
	if o == nil || o.Bag == nil {
		return
	}
	payload := timingPayload{
		Kind:    "partition",
		Path:    path,
		Cache:   string(o.Cache),
		TotalMS: o.Timings.TotalMS,
		Phases:  o.Timings.Phases,
	}
	msg := fmt.Sprintf("timings (%s): total %.2f ms", payload.Kind, payload.TotalMS)
	if payload.Cache != "" {
		msg += ", served from " + payload.Cache + " cache"
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	diag.ReportInfo(infoReporter{bag: o.Bag}, diag.ObsTimings, source.Span{}, msg).
		WithNote(source.Span{}, string(data)).
		Emit()
}

// infoReporter adds diagnostics even when the bag is at its limit.
type infoReporter struct{ bag *diag.Bag }

func (r infoReporter) Report(code diag.Code, sev diag.Severity, primary source.Span, msg string, notes []diag.Note) {
	d := diag.Diagnostic{Severity: sev, Code: code, Message: msg, Primary: primary, Notes: notes}
	if r.bag.Add(d) {
		return
	}
	overflow := diag.NewBag(0)
	overflow.Add(d)
	r.bag.Merge(overflow)
}
