package recording

import (
	"fmt"
	"strings"

	"recapbot/internal/domain"
)

// ItemProducts pairs one list item with its matched catalog products.
type ItemProducts struct {
	Item     string
	Products []domain.Product
}

// ComposeReply formats the completed-recording reply: a header, the
// summary, then one line per item with its products indented underneath
// as "name [- $price] [- url]".
func ComposeReply(summary string, items []ItemProducts) string {
	var sb strings.Builder
	sb.WriteString("✅ *Recording completed!*\n\n")
	sb.WriteString(fmt.Sprintf("**Summary:** %s\n\n", summary))
	sb.WriteString("**Items we will need:**\n")

	for _, ip := range items {
		sb.WriteString(fmt.Sprintf("• *%s*\n", ip.Item))
		for _, p := range ip.Products {
			sb.WriteString("  - " + p.Name)
			if p.Price != nil {
				sb.WriteString(fmt.Sprintf(" - $%.2f", *p.Price))
			}
			if p.URL != "" {
				sb.WriteString(" - " + p.URL)
			}
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}

	return sb.String()
}
