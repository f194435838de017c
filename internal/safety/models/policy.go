package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"os"

	dErrors "guardian/pkg/domain-errors"
)

// AnalyzerPolicy configures one analyzer. HardThreshold applies to severity
// (already inverted for higher-is-safer kinds).
type AnalyzerPolicy struct {
	HardThreshold float64 `json:"hard_threshold"`
	Weight        float64 `json:"weight"`
}

// Bands are the lower bounds of each risk level on the weighted severity.
// Anything below Medium is low.
type Bands struct {
	Medium   float64 `json:"medium"`
	High     float64 `json:"high"`
	Critical float64 `json:"critical"`
}

// Policy is the externally supplied safety configuration. There are no
// built-in defaults: a deployment must provide every value.
type Policy struct {
	Analyzers map[AnalyzerKind]AnalyzerPolicy `json:"analyzers"`
	Bands     Bands                           `json:"bands"`
	Actions   map[RiskLevel]Action            `json:"actions"`
}

// ParsePolicy decodes and validates a JSON policy document.
func ParsePolicy(raw []byte) (Policy, error) {
	var p Policy
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&p); err != nil {
		return Policy{}, dErrors.Wrap(err, dErrors.CodeValidation, "safety policy is not valid JSON")
	}
	if err := p.Validate(); err != nil {
		return Policy{}, err
	}
	return p, nil
}

// LoadPolicy reads a policy from path, or from inline JSON when path is empty.
func LoadPolicy(path, inline string) (Policy, error) {
	if path == "" {
		if inline == "" {
			return Policy{}, dErrors.New(dErrors.CodeValidation, "safety policy is required")
		}
		return ParsePolicy([]byte(inline))
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return Policy{}, fmt.Errorf("read safety policy %s: %w", path, err)
	}
	return ParsePolicy(raw)
}

// Validate requires every analyzer kind, thresholds and weights in range,
// strictly ascending bands, and an action for every risk level.
func (p Policy) Validate() error {
	var total float64
	for _, k := range Kinds {
		ap, ok := p.Analyzers[k]
		if !ok {
			return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("safety policy is missing analyzer %s", k))
		}
		if !inUnit(ap.HardThreshold) || ap.HardThreshold == 0 {
			return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("%s hard_threshold must be in (0,1]", k))
		}
		if math.IsNaN(ap.Weight) || ap.Weight < 0 {
			return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("%s weight must not be negative", k))
		}
		total += ap.Weight
	}
	for k := range p.Analyzers {
		if !k.IsValid() {
			return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("unknown analyzer %q", k))
		}
	}
	if total <= 0 {
		return dErrors.New(dErrors.CodeValidation, "analyzer weights must not all be zero")
	}
	b := p.Bands
	if !inUnit(b.Medium) || !inUnit(b.High) || !inUnit(b.Critical) || !(b.Medium < b.High && b.High < b.Critical) {
		return dErrors.New(dErrors.CodeValidation, "bands must satisfy 0 <= medium < high < critical <= 1")
	}
	for _, level := range []RiskLevel{RiskLow, RiskMedium, RiskHigh, RiskCritical} {
		a, ok := p.Actions[level]
		if !ok || !a.IsValid() {
			return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("no valid action for risk level %s", level))
		}
	}
	if p.Actions[RiskCritical].Delivers() {
		return dErrors.New(dErrors.CodeValidation, "critical risk must not deliver content")
	}
	return nil
}

// Level maps a weighted severity onto a risk band.
func (p Policy) Level(severity float64) RiskLevel {
	switch {
	case severity >= p.Bands.Critical:
		return RiskCritical
	case severity >= p.Bands.High:
		return RiskHigh
	case severity >= p.Bands.Medium:
		return RiskMedium
	default:
		return RiskLow
	}
}

func inUnit(v float64) bool {
	return !math.IsNaN(v) && v >= 0 && v <= 1
}
