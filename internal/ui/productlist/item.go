package productlist

import (
	"fmt"
	"strings"

	"github.com/fragmede/shopterm/internal/api"
	"github.com/fragmede/shopterm/internal/render"
)

// ProductItem wraps an API product for the bubbles list.
type ProductItem struct {
	api.Product
	Index int
}

func (p ProductItem) Title() string {
	return p.Product.Name
}

func (p ProductItem) Description() string {
	parts := make([]string, 0, 4)

	price := render.FormatPrice(p.Price)
	if p.OldPrice != "" && p.OldPrice != p.Price {
		price += " (was " + render.FormatPrice(p.OldPrice) + ")"
	}
	parts = append(parts, price)

	if p.ReviewsCount > 0 {
		parts = append(parts, fmt.Sprintf("%s %d reviews", render.Stars(p.Rating.Float()), p.ReviewsCount))
	}
	if p.InStock() {
		parts = append(parts, fmt.Sprintf("%d in stock", p.Stock))
	} else {
		parts = append(parts, "out of stock")
	}
	return strings.Join(parts, " | ")
}

func (p ProductItem) FilterValue() string {
	return p.Product.Name
}
