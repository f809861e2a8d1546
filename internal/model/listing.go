package model

import "strings"

// Condition is the normalized item condition.
type Condition string

// Condition values.
const (
	ConditionNew                     Condition = "new"
	ConditionNewOther                Condition = "new_other"
	ConditionNewWithDefects          Condition = "new_with_defects"
	ConditionManufacturerRefurbished Condition = "manufacturer_refurbished"
	ConditionSellerRefurbished       Condition = "seller_refurbished"
	ConditionUsed                    Condition = "used"
	ConditionForParts                Condition = "for_parts"
	ConditionNotSpecified            Condition = "not_specified"
)

var conditionAliases = map[string]Condition{
	"new":                      ConditionNew,
	"nuevo":                    ConditionNew,
	"novo":                     ConditionNew,
	"new_other":                ConditionNewOther,
	"new_with_defects":         ConditionNewWithDefects,
	"manufacturer_refurbished": ConditionManufacturerRefurbished,
	"refurbished":              ConditionSellerRefurbished,
	"reacondicionado":          ConditionSellerRefurbished,
	"seller_refurbished":       ConditionSellerRefurbished,
	"used":                     ConditionUsed,
	"usado":                    ConditionUsed,
	"for_parts":                ConditionForParts,
	"not_specified":            ConditionNotSpecified,
}

// ParseCondition maps a provider condition string to a Condition. Unknown or
// empty values become ConditionNotSpecified.
func ParseCondition(s string) Condition {
	key := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), " ", "_")
	if c, ok := conditionAliases[key]; ok {
		return c
	}
	return ConditionNotSpecified
}

// Shipping describes delivery options of a listing.
type Shipping struct {
	Free         bool   `json:"free"`
	Fast         bool   `json:"fast"`
	LogisticType string `json:"logistic_type,omitempty"`
	Mode         string `json:"mode,omitempty"`
}

// Reputation is the seller reputation summary reported by the marketplace.
type Reputation struct {
	LevelID   string `json:"level_id,omitempty"`
	Completed int    `json:"completed"`
}

// SellerIdentity is the single normalized seller encoding consumed downstream.
type SellerIdentity struct {
	ID         *int64      `json:"id,omitempty"`
	Nickname   string      `json:"nickname"`
	Reputation *Reputation `json:"reputation,omitempty"`

	// Placeholder is set when no real seller name was available and the
	// nickname was derived from the listing id.
	Placeholder bool `json:"placeholder,omitempty"`
}

// Identifiable reports whether the identity names a real seller.
func (s SellerIdentity) Identifiable() bool {
	return s.Nickname != "" && !s.Placeholder
}

// Listing is one marketplace search result normalized to a fixed shape.
type Listing struct {
	ID                string         `json:"id"`
	Title             string         `json:"title"`
	Price             float64        `json:"price"`
	Currency          string         `json:"currency,omitempty"`
	Condition         Condition      `json:"condition"`
	SoldQuantity      int            `json:"sold_quantity"`
	AvailableQuantity int            `json:"available_quantity"`
	Shipping          *Shipping      `json:"shipping,omitempty"`
	Seller            SellerIdentity `json:"seller"`
	Permalink         string         `json:"permalink,omitempty"`
	Thumbnail         string         `json:"thumbnail,omitempty"`
	Source            string         `json:"source,omitempty"`
}

// RankedListing is a Listing with its score and, once resolved, seller contact data.
type RankedListing struct {
	Listing
	Score        float64        `json:"score"`
	Contact      *ContactRecord `json:"contact,omitempty"`
	WhatsAppLink string         `json:"whatsapp_link,omitempty"`
}
