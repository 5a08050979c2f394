package directory

import (
	"strings"
)

// Catalog is the static directory of known health systems. It is built once
// at startup and never mutated afterwards, so reads need no locking.
type Catalog struct {
	organizations []*Organization
}

// NewCatalog returns a catalog over the given descriptors. Passing nil uses
// the built-in seed list.
func NewCatalog(orgs []*Organization) *Catalog {
	if orgs == nil {
		orgs = seedOrganizations()
	}
	return &Catalog{organizations: orgs}
}

// List returns every known organization.
func (c *Catalog) List() []*Organization {
	return c.organizations
}

// Get returns the organization with the given ID, or nil.
func (c *Catalog) Get(id string) *Organization {
	for _, org := range c.organizations {
		if org.ID == id {
			return org
		}
	}
	return nil
}

// Search matches the query case-insensitively against name, city, and
// aliases. An empty query returns the full list.
func (c *Catalog) Search(query string) []*Organization {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return c.organizations
	}

	var matches []*Organization
	for _, org := range c.organizations {
		if organizationMatches(org, q) {
			matches = append(matches, org)
		}
	}
	return matches
}

func organizationMatches(org *Organization, q string) bool {
	if strings.Contains(strings.ToLower(org.Name), q) {
		return true
	}
	if strings.Contains(strings.ToLower(org.City), q) {
		return true
	}
	for _, alias := range org.Aliases {
		if strings.Contains(strings.ToLower(alias), q) {
			return true
		}
	}
	return false
}

// seedOrganizations is the built-in directory. Base URLs point at the
// vendors' public sandboxes; production deployments replace this list
// through configuration.
func seedOrganizations() []*Organization {
	return []*Organization{
		{
			ID:          "epic-sandbox",
			Name:        "Epic Sandbox Health System",
			City:        "Verona",
			State:       "WI",
			Provider:    "epic",
			FHIRBaseURL: "https://fhir.epic.com/interconnect-fhir-oauth/api/FHIR/R4",
			Aliases:     []string{"epic", "epic demo"},
		},
		{
			ID:          "cerner-sandbox",
			Name:        "Oracle Health Sandbox",
			City:        "Kansas City",
			State:       "MO",
			Provider:    "cerner",
			FHIRBaseURL: "https://fhir-ehr-code.cerner.com/r4/ec2458f2-1e24-41c8-b71b-0e701af7583d",
			Aliases:     []string{"cerner", "oracle health"},
		},
		{
			ID:          "smart-sandbox",
			Name:        "SMART Health IT Sandbox",
			City:        "Boston",
			State:       "MA",
			Provider:    "smart",
			FHIRBaseURL: "https://launch.smarthealthit.org/v/r4/fhir",
			Aliases:     []string{"smart", "smart on fhir"},
		},
		{
			ID:          "meditech-sandbox",
			Name:        "MEDITECH Greenfield Sandbox",
			City:        "Westwood",
			State:       "MA",
			Provider:    "meditech",
			FHIRBaseURL: "https://greenfield-apis.meditech.com/v1/uscore/R4",
			Aliases:     []string{"meditech"},
		},
	}
}
