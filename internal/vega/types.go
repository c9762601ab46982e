package vega

import (
	"bytes"
	"encoding/json"
)

// AvailabilityAvailable is the status of a copy that can be borrowed now.
const AvailabilityAvailable = "Available"

// DrawerResponse lists the physical copies of a record. Items is nil when the
// field is absent from the payload.
type DrawerResponse struct {
	Items []DrawerItem `json:"items"`
}

// DrawerItem is a single physical copy.
type DrawerItem struct {
	Status *ItemStatus `json:"status"`
}

// ItemStatus carries the availability of a copy.
type ItemStatus struct {
	AvailabilityStatus string `json:"availabilityStatus"`
}

// SearchRequest is the body of a format-group search.
type SearchRequest struct {
	SearchText          string   `json:"searchText"`
	Sorting             string   `json:"sorting"`
	SortOrder           string   `json:"sortOrder"`
	SearchType          string   `json:"searchType"`
	UniversalLimiterIDs []string `json:"universalLimiterIds"`
	MaterialTypeIDs     []string `json:"materialTypeIds"`
	LocationIDs         []string `json:"locationIds"`
	PageNum             int      `json:"pageNum"`
	PageSize            int      `json:"pageSize"`
	DateFrom            string   `json:"dateFrom"`
	DateTo              string   `json:"dateTo"`
}

// SearchResponse is one page of format groups.
type SearchResponse struct {
	Data []FormatGroup `json:"data"`
}

// FormatGroup is a catalog record as returned by search.
type FormatGroup struct {
	ID           string       `json:"id"`
	Title        string       `json:"title"`
	PrimaryAgent *Agent       `json:"primaryAgent"`
	Identifiers  *Identifiers `json:"identifiers"`
	CoverURL     *Cover       `json:"coverUrl"`
}

// Agent is a creator of a record.
type Agent struct {
	Label string `json:"label"`
}

// Identifiers holds standard numbers of a record.
type Identifiers struct {
	ISBN FlexString `json:"isbn"`
}

// Cover holds cover image URLs.
type Cover struct {
	Medium string `json:"medium"`
}

// FlexString decodes either a JSON string or an array of strings, keeping the
// first element of an array.
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if data[0] == '[' {
		var values []string
		if err := json.Unmarshal(data, &values); err != nil {
			return err
		}
		if len(values) == 0 {
			*f = ""
			return nil
		}
		*f = FlexString(values[0])
		return nil
	}
	var value string
	if err := json.Unmarshal(data, &value); err != nil {
		return err
	}
	*f = FlexString(value)
	return nil
}

// AuthorLabel returns the primary agent label or "".
func (g FormatGroup) AuthorLabel() string {
	if g.PrimaryAgent == nil {
		return ""
	}
	return g.PrimaryAgent.Label
}

// ISBN returns the first ISBN or "".
func (g FormatGroup) ISBN() string {
	if g.Identifiers == nil {
		return ""
	}
	return string(g.Identifiers.ISBN)
}

// MediumCover returns the medium cover URL or "".
func (g FormatGroup) MediumCover() string {
	if g.CoverURL == nil {
		return ""
	}
	return g.CoverURL.Medium
}
