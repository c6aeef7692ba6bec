package models

import "strings"

// SearchRequest is the body of every search route.
type SearchRequest struct {
	EntityName string `json:"entity_name"`
}

// Validate trims the name and checks its length.
func (r *SearchRequest) Validate() error {
	name, err := ValidateQuery(r.EntityName)
	if err != nil {
		return err
	}
	r.EntityName = name
	return nil
}

// RegistrySearchRequest adds the optional registry filters.
type RegistrySearchRequest struct {
	EntityName  string `json:"entity_name"`
	Country     string `json:"country,omitempty"`
	CountryCode string `json:"country_code,omitempty"`
	Status      string `json:"status,omitempty"`
}

func (r *RegistrySearchRequest) Validate() error {
	name, err := ValidateQuery(r.EntityName)
	if err != nil {
		return err
	}
	r.EntityName = name
	r.Country = strings.TrimSpace(r.Country)
	r.CountryCode = strings.ToUpper(strings.TrimSpace(r.CountryCode))
	r.Status = strings.TrimSpace(r.Status)
	return nil
}
