package contact

import (
	"regexp"
	"strings"
)

// RegionPlan describes the parts of a national numbering plan the phone
// heuristics need. Normalization is best effort, not a full numbering-plan
// implementation.
type RegionPlan struct {
	Region      string
	CountryName string
	Language    string
	CountryCode string
	TrunkPrefix string
	// MobileIndicator is the digit placed between country code and area code
	// for mobile numbers in international form.
	MobileIndicator string
	// InjectMobile adds MobileIndicator to every normalized number. Web
	// results rarely say whether a number is mobile, and messaging links
	// need the mobile form.
	InjectMobile bool
	// LocalMobilePrefix is dialed after the area code for mobiles in
	// national form and dropped in international form.
	LocalMobilePrefix string
	NationalDigits    int
	// DefaultArea is prepended to bare subscriber numbers.
	DefaultArea string
	// Pattern finds candidate numbers in lowercase free text.
	Pattern *regexp.Regexp
}

var genericPhone = regexp.MustCompile(`\+?\d[\d\s().-]{6,}\d`)

var plans = map[string]RegionPlan{
	"ar": {
		Region:            "ar",
		CountryName:       "Argentina",
		Language:          "es",
		CountryCode:       "54",
		TrunkPrefix:       "0",
		MobileIndicator:   "9",
		InjectMobile:      true,
		LocalMobilePrefix: "15",
		NationalDigits:    10,
		DefaultArea:       "11",
		Pattern:           regexp.MustCompile(`(?:(?:\B\+?54\s?9?)(?:11|[23]\d{1,3})\s?|0?(?:11|[23]\d{1,3})\s?)(?:15)?\s?\d{2,4}[\s.-]?\d{3,4}\b`),
	},
	"mx": {
		Region:          "mx",
		CountryName:     "México",
		Language:        "es",
		CountryCode:     "52",
		TrunkPrefix:     "01",
		MobileIndicator: "1",
		NationalDigits:  10,
		Pattern:         genericPhone,
	},
}

// PlanFor returns the plan for a two-letter region. Regions without a plan get
// a permissive one that only strips formatting.
func PlanFor(region string) RegionPlan {
	region = strings.ToLower(strings.TrimSpace(region))
	if p, ok := plans[region]; ok {
		return p
	}
	return RegionPlan{Region: region, Pattern: genericPhone}
}

// Find returns the first phone-like substring of text.
func (p RegionPlan) Find(text string) string {
	if p.Pattern == nil {
		return ""
	}
	return p.Pattern.FindString(text)
}

// Normalize converts a raw number to international form ("+" and digits). It
// reports false when the digit count does not fit the plan.
func (p RegionPlan) Normalize(raw string) (string, bool) {
	d := digitsOnly(raw)
	if d == "" {
		return "", false
	}
	if p.CountryCode == "" || p.NationalDigits == 0 {
		if len(d) < 8 || len(d) > 15 {
			return "", false
		}
		return "+" + d, true
	}

	d = p.national(d)
	if len(d) != p.NationalDigits {
		return "", false
	}
	if p.InjectMobile {
		return "+" + p.CountryCode + p.MobileIndicator + d, true
	}
	return "+" + p.CountryCode + d, true
}

// NormalizeLandline is Normalize for numbers that may belong to fixed lines,
// such as business listings. The mobile indicator is only added when raw
// itself is written in a mobile form.
func (p RegionPlan) NormalizeLandline(raw string) (string, bool) {
	if p.InjectMobile && !p.writtenAsMobile(digitsOnly(raw)) {
		p.InjectMobile = false
	}
	return p.Normalize(raw)
}

// writtenAsMobile reports whether d carries the mobile indicator after the
// country code or the local mobile prefix after the area code.
func (p RegionPlan) writtenAsMobile(d string) bool {
	n := p.NationalDigits
	if p.MobileIndicator != "" && p.CountryCode != "" &&
		strings.HasPrefix(d, p.CountryCode+p.MobileIndicator) &&
		len(d) == len(p.CountryCode)+len(p.MobileIndicator)+n {
		return true
	}

	lp := p.LocalMobilePrefix
	if lp == "" {
		return false
	}
	if p.CountryCode != "" && strings.HasPrefix(d, p.CountryCode) && len(d) > n {
		d = d[len(p.CountryCode):]
	}
	if p.TrunkPrefix != "" && strings.HasPrefix(d, p.TrunkPrefix) && len(d) > n {
		d = d[len(p.TrunkPrefix):]
	}
	if len(d) == n+len(lp) {
		for area := 2; area <= 4; area++ {
			if d[area:area+len(lp)] == lp {
				return true
			}
		}
	}
	return p.DefaultArea != "" && len(d) == len(lp)+n-len(p.DefaultArea) && strings.HasPrefix(d, lp)
}

// national reduces d to the national significant number.
func (p RegionPlan) national(d string) string {
	n := p.NationalDigits

	if strings.HasPrefix(d, p.CountryCode) && len(d) > n {
		d = d[len(p.CountryCode):]
		if p.MobileIndicator != "" && len(d) == n+len(p.MobileIndicator) && strings.HasPrefix(d, p.MobileIndicator) {
			d = d[len(p.MobileIndicator):]
		}
	}
	if p.TrunkPrefix != "" && strings.HasPrefix(d, p.TrunkPrefix) && len(d) > n {
		d = d[len(p.TrunkPrefix):]
	}

	if lp := p.LocalMobilePrefix; lp != "" {
		// Area code of two to four digits followed by the local mobile prefix.
		if len(d) == n+len(lp) {
			for area := 2; area <= 4; area++ {
				if d[area:area+len(lp)] == lp {
					d = d[:area] + d[area+len(lp):]
					break
				}
			}
		}
		// Local mobile prefix with an implied default area.
		if p.DefaultArea != "" && len(d) == len(lp)+n-len(p.DefaultArea) && strings.HasPrefix(d, lp) {
			d = p.DefaultArea + d[len(lp):]
		}
	}

	if p.DefaultArea != "" && len(d) == n-len(p.DefaultArea) {
		d = p.DefaultArea + d
	}
	return d
}

func digitsOnly(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
