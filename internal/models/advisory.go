package models

// AdvisoryRequest carries the inputs for a recommendation call.
type AdvisoryRequest struct {
	Skills                []string `json:"skills"`
	CurrentCertifications []string `json:"current_certifications"`
}

// Recommendation is a single certification suggestion.
type Recommendation struct {
	CertificationName string `json:"certification_name"`
	Vendor            string `json:"vendor"`
	Difficulty        string `json:"difficulty"`
	Reason            string `json:"reason"`
	EstimatedPrepTime string `json:"estimated_prep_time"`
}

// AdvisoryOutput is the structured result of a recommendation call. Callers
// always receive a structurally valid value: on upstream failure the service
// substitutes an empty list with low confidence instead of returning an error.
type AdvisoryOutput struct {
	Recommendations     []Recommendation `json:"recommendations"`
	Confidence          string           `json:"confidence"`
	ClarificationNeeded *string          `json:"clarification_needed,omitempty"`
}
