package contact

import (
	"net/url"
	"strings"
)

// WhatsAppLink builds a wa.me deep link for an international number. An
// optional product title pre-fills the greeting. It returns "" unless phone is
// in international form.
func WhatsAppLink(phone, title string) string {
	phone = strings.TrimSpace(phone)
	if !strings.HasPrefix(phone, "+") {
		return ""
	}
	d := digitsOnly(phone)
	if d == "" {
		return ""
	}
	link := "https://wa.me/" + d
	if title = strings.TrimSpace(title); title != "" {
		link += "?text=" + url.QueryEscape("Hola, estoy interesado en "+title)
	}
	return link
}
