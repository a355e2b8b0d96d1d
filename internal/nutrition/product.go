package nutrition

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Product is a packaged food identified by its barcode. PerGram comes from
// the product database, not from the group table.
type Product struct {
	Barcode string
	Name    string
	PerGram Values
}

// NewProduct builds a Product. The name is trimmed and NFC-normalized so
// that names received from different sources compare equal.
func NewProduct(barcode, name string, perGram Values) Product {
	return Product{
		Barcode: strings.TrimSpace(barcode),
		Name:    norm.NFC.String(strings.TrimSpace(name)),
		PerGram: perGram,
	}
}
