package lifecycle

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/rigwild/raspberry-instock-check/internal/models"
)

// Renderer builds the Markdown body of an alert from an association.
type Renderer struct {
	SiteURL    string
	DirectLink bool
}

var linkTextReplacer = strings.NewReplacer("[", "(", "]", ")")

// Render returns the message text. It depends only on the association subsets.
func (r Renderer) Render(a *Association) string {
	var b strings.Builder
	b.WriteString("🛍️ Raspberry stock changes!")

	if len(a.Available) > 0 {
		b.WriteString("\n\nNew Raspberry in stock! 🔥")
		for _, it := range models.SortedItems(a.Available) {
			b.WriteString("\n✅ " + r.link(it))
		}
	}

	if len(a.Unavailable) > 0 {
		b.WriteString("\n\nRaspberry now out of stock! 😫")
		for _, it := range models.SortedItems(a.Unavailable) {
			b.WriteString("\n❌ " + r.link(it))
		}
	}

	fmt.Fprintf(&b, "\n\nStock data from [%s](%s)", siteName(r.SiteURL), r.SiteURL)
	return b.String()
}

func (r Renderer) link(it models.Item) string {
	text := linkTextReplacer.Replace(fmt.Sprintf("%s | %s | %s", it.Description, it.Vendor, it.Price.Display))
	return fmt.Sprintf("[%s](%s)", text, r.ItemURL(it))
}

// ItemURL is the vendor link when direct links are enabled, otherwise the aggregator search for the SKU.
func (r Renderer) ItemURL(it models.Item) string {
	if r.DirectLink && it.Link != "" {
		return it.Link
	}
	u, err := url.Parse(r.SiteURL)
	if err != nil {
		return r.SiteURL
	}
	q := u.Query()
	q.Set("sku", it.SKU)
	u.RawQuery = q.Encode()
	return u.String()
}

func siteName(site string) string {
	u, err := url.Parse(site)
	if err != nil || u.Host == "" {
		return site
	}
	return strings.TrimPrefix(u.Host, "www.")
}
