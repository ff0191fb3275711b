package core

import (
	"encoding/json"
	"io"

	"github.com/shipsafe/shipsafe/internal/report"
)

// MarshalReport pretty-prints a report as JSON.
func MarshalReport(w io.Writer, r Report) error { return report.WriteJSON(w, r) }

// UnmarshalReport decodes report JSON. Record key order is kept.
func UnmarshalReport(r io.Reader) (Report, error) {
	var rep Report
	if err := json.NewDecoder(r).Decode(&rep); err != nil {
		return Report{}, err
	}
	return rep, nil
}
