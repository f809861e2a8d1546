// Package card renders ranked listings and contact records as human-readable
// cards.
package card

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/sells-group/seller-scout/internal/model"
)

// Style selects the card markup.
type Style string

// Supported styles.
const (
	StylePlain    Style = "plain"
	StyleMarkdown Style = "markdown"
)

// Formatter renders cards in one style. Prices use the number conventions of
// the region's language.
type Formatter struct {
	style   Style
	printer *message.Printer
}

// New creates a Formatter. An empty style means plain.
func New(style, region string) (*Formatter, error) {
	s := Style(strings.ToLower(strings.TrimSpace(style)))
	switch s {
	case "", "text", StylePlain:
		s = StylePlain
	case "md", StyleMarkdown:
		s = StyleMarkdown
	default:
		return nil, eris.Errorf("card: unknown style %q", style)
	}
	return &Formatter{style: s, printer: message.NewPrinter(regionTag(region))}, nil
}

func regionTag(region string) language.Tag {
	region = strings.ToUpper(strings.TrimSpace(region))
	if _, err := language.ParseRegion(region); err != nil {
		return language.Spanish
	}
	tag, err := language.Parse("es-" + region)
	if err != nil {
		return language.Spanish
	}
	return tag
}

// Result renders every product of res, preceded by a one-line summary.
func (f *Formatter) Result(res *model.Result) string {
	var b strings.Builder
	if f.style == StyleMarkdown {
		fmt.Fprintf(&b, "## %s (%s)\n\n", escape(res.Query), strings.ToUpper(res.Region))
		fmt.Fprintf(&b, "_%s_\n", escape(res.Message))
	} else {
		fmt.Fprintf(&b, "%s (%s): %s\n", res.Query, strings.ToUpper(res.Region), res.Message)
	}
	for i, p := range res.Products {
		b.WriteString("\n")
		b.WriteString(f.Product(i+1, p))
	}
	return b.String()
}

// Product renders one ranked listing with its contact card, if any.
func (f *Formatter) Product(rank int, p model.RankedListing) string {
	var b strings.Builder
	price := f.price(p.Price, p.Currency)

	if f.style == StyleMarkdown {
		title := escape(p.Title)
		if p.Permalink != "" {
			title = "[" + title + "](" + p.Permalink + ")"
		}
		fmt.Fprintf(&b, "### %d. %s\n\n", rank, title)
		fmt.Fprintf(&b, "- **Price:** %s\n", price)
		fmt.Fprintf(&b, "- **Condition:** %s\n", p.Condition)
		fmt.Fprintf(&b, "- **Sold:** %d\n", p.SoldQuantity)
		if p.Seller.Nickname != "" {
			fmt.Fprintf(&b, "- **Seller:** %s\n", escape(p.Seller.Nickname))
		}
		fmt.Fprintf(&b, "- **Score:** %.3f\n", p.Score)
	} else {
		fmt.Fprintf(&b, "%d. %s\n", rank, p.Title)
		fmt.Fprintf(&b, "   Price: %s | Condition: %s | Sold: %d | Score: %.3f\n", price, p.Condition, p.SoldQuantity, p.Score)
		if p.Seller.Nickname != "" {
			fmt.Fprintf(&b, "   Seller: %s\n", p.Seller.Nickname)
		}
		if p.Permalink != "" {
			fmt.Fprintf(&b, "   Link: %s\n", p.Permalink)
		}
	}

	if p.Contact != nil {
		b.WriteString(f.contactLines(*p.Contact, p.WhatsAppLink))
	}
	return b.String()
}

// Contact renders a standalone contact card for seller.
func (f *Formatter) Contact(seller string, rec model.ContactRecord) string {
	var b strings.Builder
	if f.style == StyleMarkdown {
		fmt.Fprintf(&b, "### %s\n\n", escape(seller))
	} else {
		fmt.Fprintf(&b, "%s\n", seller)
	}
	b.WriteString(f.contactLines(rec, ""))
	return b.String()
}

func (f *Formatter) contactLines(rec model.ContactRecord, whatsapp string) string {
	if rec.IsEmpty() {
		if f.style == StyleMarkdown {
			return "- _No contact found._\n"
		}
		return "   No contact found.\n"
	}

	fields := []struct {
		label, value, link string
	}{
		{"Phone", rec.Phone, whatsapp},
		{"Email", rec.Email, ""},
		{"Social", rec.SocialURL, ""},
		{"Address", rec.Address, ""},
		{"Website", rec.Website, ""},
		{"Map", rec.PlaceLink, ""},
	}

	var b strings.Builder
	for _, fl := range fields {
		if fl.value == "" {
			continue
		}
		if f.style == StyleMarkdown {
			fmt.Fprintf(&b, "- **%s:** %s", fl.label, escape(fl.value))
			if fl.link != "" {
				fmt.Fprintf(&b, " ([WhatsApp](%s))", fl.link)
			}
			b.WriteString("\n")
			continue
		}
		fmt.Fprintf(&b, "   %s: %s", fl.label, fl.value)
		if fl.link != "" {
			fmt.Fprintf(&b, " (WhatsApp: %s)", fl.link)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func (f *Formatter) price(v float64, currency string) string {
	if v <= 0 {
		return "n/a"
	}
	s := f.printer.Sprintf("%.2f", v)
	if currency != "" {
		return currency + " " + s
	}
	return s
}

var mdEscaper = strings.NewReplacer(
	`\`, `\\`, "*", `\*`, "_", `\_`, "`", "\\`",
	"[", `\[`, "]", `\]`, "#", `\#`, "|", `\|`,
)

func escape(s string) string {
	return mdEscaper.Replace(s)
}
