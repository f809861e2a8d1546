package model

import "maps"

// Contact field names used as provenance keys.
const (
	FieldPhone     = "phone"
	FieldEmail     = "email"
	FieldSocialURL = "social_url"
	FieldAddress   = "address"
	FieldWebsite   = "website"
	FieldPlaceLink = "place_link"
)

// ContactRecord is the merged, best-effort contact data for one seller.
// An empty record is valid and means nothing was found.
type ContactRecord struct {
	Phone     string `json:"phone,omitempty"`
	Email     string `json:"email,omitempty"`
	SocialURL string `json:"social_url,omitempty"`
	Address   string `json:"address,omitempty"`
	Website   string `json:"website,omitempty"`
	PlaceLink string `json:"place_link,omitempty"`

	// Sources maps each populated field to the provider that supplied it.
	Sources map[string]string `json:"sources,omitempty"`
}

// IsEmpty reports whether no contact field is populated.
func (c ContactRecord) IsEmpty() bool {
	return c.Phone == "" && c.Email == "" && c.SocialURL == "" &&
		c.Address == "" && c.Website == "" && c.PlaceLink == ""
}

// Get returns the value of a field by provenance key.
func (c *ContactRecord) Get(field string) string {
	switch field {
	case FieldPhone:
		return c.Phone
	case FieldEmail:
		return c.Email
	case FieldSocialURL:
		return c.SocialURL
	case FieldAddress:
		return c.Address
	case FieldWebsite:
		return c.Website
	case FieldPlaceLink:
		return c.PlaceLink
	}
	return ""
}

// Set assigns a field and records its provider. Empty values are ignored.
func (c *ContactRecord) Set(field, value, source string) {
	if value == "" {
		return
	}
	switch field {
	case FieldPhone:
		c.Phone = value
	case FieldEmail:
		c.Email = value
	case FieldSocialURL:
		c.SocialURL = value
	case FieldAddress:
		c.Address = value
	case FieldWebsite:
		c.Website = value
	case FieldPlaceLink:
		c.PlaceLink = value
	default:
		return
	}
	if c.Sources == nil {
		c.Sources = make(map[string]string)
	}
	c.Sources[field] = source
}

// Business is one places-lookup result, normalized across providers.
type Business struct {
	Name        string  `json:"name"`
	Phone       string  `json:"phone,omitempty"`
	Address     string  `json:"address,omitempty"`
	Rating      float64 `json:"rating,omitempty"`
	ReviewCount int     `json:"review_count,omitempty"`
	Website     string  `json:"website,omitempty"`
	MapLink     string  `json:"map_link,omitempty"`
	Provider    string  `json:"provider"`
}

// Clone returns a copy that shares no map with c.
func (c ContactRecord) Clone() ContactRecord {
	c.Sources = maps.Clone(c.Sources)
	return c
}
