package domain

import (
	"time"

	"github.com/google/uuid"
)

const (
	DefaultCurrency = "INR"
	// MaxLineQty bounds a single line so lenient client input cannot overflow.
	MaxLineQty = 999
)

type CartItem struct {
	ID            string    `bson:"id" json:"id"`
	ProductID     string    `bson:"product_id" json:"productId"`
	TitleSnapshot string    `bson:"title_snapshot" json:"titleSnapshot"`
	PriceSnapshot float64   `bson:"price_snapshot" json:"priceSnapshot"`
	Qty           int       `bson:"qty" json:"qty"`
	AddedAt       time.Time `bson:"added_at" json:"addedAt"`
}

type Totals struct {
	Subtotal   float64 `bson:"subtotal" json:"subtotal"`
	Tax        float64 `bson:"tax" json:"tax"`
	Shipping   float64 `bson:"shipping" json:"shipping"`
	GrandTotal float64 `bson:"grand_total" json:"grandTotal"`
}

type Cart struct {
	ID        string     `bson:"_id,omitempty" json:"id,omitempty"`
	UserID    string     `bson:"user_id" json:"userId"`
	Items     []CartItem `bson:"items" json:"items"`
	Totals    Totals     `bson:"totals" json:"totals"`
	Currency  string     `bson:"currency" json:"currency"`
	Version   int64      `bson:"version" json:"version"`
	CreatedAt time.Time  `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time  `bson:"updated_at" json:"updatedAt"`
}

// NewCart returns an empty, unsaved cart (version 0).
func NewCart(userID string, now time.Time) *Cart {
	return &Cart{
		UserID:    userID,
		Items:     []CartItem{},
		Currency:  DefaultCurrency,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// tax and shipping are zero until pricing rules exist.
func tax(subtotal float64) float64 { return 0 }

func shipping(subtotal float64) float64 { return 0 }

// ComputeTotals is the only place totals are derived from lines.
func ComputeTotals(items []CartItem) Totals {
	var subtotal float64
	for _, it := range items {
		subtotal += it.PriceSnapshot * float64(it.Qty)
	}
	t := Totals{
		Subtotal: subtotal,
		Tax:      tax(subtotal),
		Shipping: shipping(subtotal),
	}
	t.GrandTotal = t.Subtotal + t.Tax + t.Shipping
	return t
}

func (c *Cart) Recalculate() {
	c.Totals = ComputeTotals(c.Items)
}

func (c *Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

// AddLine merges qty into an existing line for the product or appends a new line
// carrying the product's current title and price.
func (c *Cart) AddLine(p *Product, qty int, now time.Time) CartItem {
	for i := range c.Items {
		if c.Items[i].ProductID == p.ID {
			c.Items[i].Qty = ClampQty(c.Items[i].Qty + qty)
			c.touch(now)
			return c.Items[i]
		}
	}
	item := CartItem{
		ID:            uuid.NewString(),
		ProductID:     p.ID,
		TitleSnapshot: p.Title,
		PriceSnapshot: p.Price,
		Qty:           ClampQty(qty),
		AddedAt:       now,
	}
	c.Items = append(c.Items, item)
	c.touch(now)
	return item
}

func (c *Cart) SetQty(itemID string, qty int, now time.Time) error {
	for i := range c.Items {
		if c.Items[i].ID == itemID {
			c.Items[i].Qty = ClampQty(qty)
			c.touch(now)
			return nil
		}
	}
	return ErrItemNotFound
}

func (c *Cart) RemoveLine(itemID string, now time.Time) error {
	for i := range c.Items {
		if c.Items[i].ID == itemID {
			c.Items = append(c.Items[:i], c.Items[i+1:]...)
			c.touch(now)
			return nil
		}
	}
	return ErrItemNotFound
}

func (c *Cart) Clear(now time.Time) {
	c.Items = []CartItem{}
	c.touch(now)
}

// Consume removes the quantities captured in lines from the cart. Lines added
// after the snapshot survive, and a line whose qty grew keeps the difference.
func (c *Cart) Consume(lines []CartItem, now time.Time) {
	taken := make(map[string]int, len(lines))
	for _, l := range lines {
		taken[l.ID] += l.Qty
	}
	kept := c.Items[:0]
	for _, it := range c.Items {
		if q, ok := taken[it.ID]; ok {
			it.Qty -= q
			if it.Qty < 1 {
				continue
			}
		}
		kept = append(kept, it)
	}
	c.Items = kept
	c.touch(now)
}

// Snapshot copies the lines so later cart mutations cannot reach them.
func (c *Cart) Snapshot() []CartItem {
	return append([]CartItem(nil), c.Items...)
}

func (c *Cart) Clone() *Cart {
	cp := *c
	cp.Items = append([]CartItem{}, c.Items...)
	return &cp
}

func (c *Cart) touch(now time.Time) {
	c.UpdatedAt = now
	c.Recalculate()
}

// ClampQty applies the lenient quantity rule: anything below 1 becomes 1.
func ClampQty(qty int) int {
	if qty < 1 {
		return 1
	}
	if qty > MaxLineQty {
		return MaxLineQty
	}
	return qty
}
