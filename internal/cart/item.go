package cart

import "github.com/shopspring/decimal"

// StorageKey is the device storage key holding the serialized cart.
const StorageKey = "itcaststore_cart"

// PlaceholderImage is used when a product has no image of its own.
const PlaceholderImage = "/products/product-1.png"

// CartItem is one line of the cart. The JSON shape matches the snapshot the
// web storefront writes under StorageKey.
type CartItem struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	ImageURL    string          `json:"imgurl"`
	Quantity    int             `json:"quantity"`
	Category    string          `json:"category,omitempty"`
	Description string          `json:"description,omitempty"`
}

// Subtotal is price times quantity.
func (i CartItem) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Product is the input to AddItem.
type Product struct {
	ID          string
	Name        string
	Price       decimal.Decimal
	ImageURL    string
	Category    string
	Description string
}

func newItem(p Product, quantity int) CartItem {
	img := p.ImageURL
	if img == "" {
		img = PlaceholderImage
	}
	return CartItem{
		ID:          p.ID,
		Name:        p.Name,
		Price:       p.Price,
		ImageURL:    img,
		Quantity:    quantity,
		Category:    p.Category,
		Description: p.Description,
	}
}

// Snapshot is what listeners receive after every mutation.
type Snapshot struct {
	Items         []CartItem
	TotalQuantity int
	TotalPrice    decimal.Decimal
}

func totalQuantity(items []CartItem) int {
	total := 0
	for _, item := range items {
		total += item.Quantity
	}
	return total
}

func totalPrice(items []CartItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Subtotal())
	}
	return total
}

func indexOf(items []CartItem, productID string) int {
	for i := range items {
		if items[i].ID == productID {
			return i
		}
	}
	return -1
}
