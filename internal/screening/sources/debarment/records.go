package debarment

import (
	"fmt"
	"strings"

	"screener/internal/screening/models"
)

// Registry field names.
const (
	FieldName        = "SUPP_NAME"
	FieldAddress     = "SUPP_ADDR"
	FieldCountry     = "COUNTRY_NAME"
	FieldCountryCode = "LAND1"
	FieldStatus      = "ELIG_STAT"
	FieldFromDate    = "DEBAR_FROM_DATE"
	FieldToDate      = "DEBAR_TO_DATE"
	FieldGrounds     = "DEBAR_REASON"
)

// Record is one raw registry entry.
type Record map[string]any

// Field returns the value of key as text. Missing and null values are "".
func (r Record) Field(key string) string {
	switch v := r[key].(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

// Firm projects the record onto the response shape.
func (r Record) Firm() models.Firm {
	return models.Firm{
		FirmName: r.Field(FieldName),
		Address:  r.Field(FieldAddress),
		Country:  r.Field(FieldCountry),
		FromDate: r.Field(FieldFromDate),
		ToDate:   r.Field(FieldToDate),
		Grounds:  r.Field(FieldGrounds),
	}
}

// Normalize accepts every payload shape the registry has been seen to
// return: {"response":{"ZPROCSUPP":[...]}}, {"data":[...]},
// {"results":[...]}, a bare list, or a single object. An object matching
// none of these becomes one record. Non-object list items are dropped.
func Normalize(payload any) []Record {
	switch v := payload.(type) {
	case nil:
		return nil
	case []any:
		return records(v)
	case map[string]any:
		if resp, ok := v["response"].(map[string]any); ok {
			if list, ok := resp["ZPROCSUPP"].([]any); ok {
				return records(list)
			}
		}
		for _, key := range []string{"data", "results"} {
			if list, ok := v[key].([]any); ok {
				return records(list)
			}
		}
		return []Record{Record(v)}
	default:
		return nil
	}
}

func records(list []any) []Record {
	out := make([]Record, 0, len(list))
	for _, item := range list {
		if m, ok := item.(map[string]any); ok {
			out = append(out, Record(m))
		}
	}
	return out
}

// FilterByName keeps records whose SUPP_NAME contains name, ignoring case.
// Records without a name never match. An empty name keeps every named
// record.
func FilterByName(name string, recs []Record) []Record {
	needle := strings.ToLower(strings.TrimSpace(name))
	var out []Record
	for _, r := range recs {
		supp := r.Field(FieldName)
		if supp == "" {
			continue
		}
		if strings.Contains(strings.ToLower(supp), needle) {
			out = append(out, r)
		}
	}
	return out
}

// Filters narrows a registry search. Empty fields are ignored.
type Filters struct {
	Name        string
	Country     string
	CountryCode string
	Status      string
}

// FilterByFields applies every non-empty filter: name and country match
// as case-insensitive substrings, the country code matches exactly after
// upper-casing, and status matches as an upper-cased substring.
func FilterByFields(f Filters, recs []Record) []Record {
	name := strings.ToLower(strings.TrimSpace(f.Name))
	country := strings.ToLower(strings.TrimSpace(f.Country))
	code := strings.ToUpper(strings.TrimSpace(f.CountryCode))
	status := strings.ToUpper(strings.TrimSpace(f.Status))

	var out []Record
	for _, r := range recs {
		if name != "" && !strings.Contains(strings.ToLower(r.Field(FieldName)), name) {
			continue
		}
		if country != "" && !strings.Contains(strings.ToLower(r.Field(FieldCountry)), country) {
			continue
		}
		if code != "" && r.Field(FieldCountryCode) != code {
			continue
		}
		if status != "" && !strings.Contains(strings.ToUpper(r.Field(FieldStatus)), status) {
			continue
		}
		out = append(out, r)
	}
	return out
}
