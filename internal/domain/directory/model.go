package directory

// Organization describes one known FHIR-enabled health system a patient can
// connect to. Descriptors are immutable configuration, not stored records.
type Organization struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	City        string   `json:"city"`
	State       string   `json:"state"`
	Provider    string   `json:"provider"`
	FHIRBaseURL string   `json:"fhirBaseUrl"`
	Aliases     []string `json:"aliases,omitempty"`
}
