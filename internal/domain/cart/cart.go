// Package cart implements the in-memory pricing engine for one terminal
// session: an ordered set of line items plus discount and tax context, with
// totals recomputed from scratch on every read.
//
// A Cart is owned by exactly one session and is never shared between
// goroutines; all operations are synchronous and perform no I/O.
package cart

import (
	"github.com/shopspring/decimal"

	"github.com/vendalivre/pos-engine/internal/domain/money"
)

// DiscountType enumerates the supported order-level discount strategies.
type DiscountType string

const (
	// DiscountPercent applies a percentage of the post-line-discount subtotal.
	DiscountPercent DiscountType = "percent"
	// DiscountFixed subtracts a fixed amount, capped at the subtotal.
	DiscountFixed DiscountType = "fixed"
)

// Line is a single product entry in the cart with its own quantity and
// optional per-line discount. Lines are mutated only through Cart operations.
type Line struct {
	ProductID       string
	Name            string
	UnitPrice       decimal.Decimal
	Quantity        int
	MaxQuantity     int
	DiscountPercent decimal.Decimal
}

// gross returns unit price times quantity before any discount.
func (l Line) gross() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// discount returns the per-line discount amount at full precision.
func (l Line) discount() decimal.Decimal {
	if l.DiscountPercent.IsZero() {
		return decimal.Zero
	}
	return money.Percent(l.gross(), l.DiscountPercent)
}

// OrderDiscount is a discount applied to the whole cart, after line discounts.
type OrderDiscount struct {
	Type  DiscountType
	Value decimal.Decimal
}

// Cart holds the ordered line items and pricing context for one session.
// Insertion order is display order.
type Cart struct {
	lines         []Line
	orderDiscount OrderDiscount
	taxRate       decimal.Decimal
	customerID    string
}

// New creates an empty cart with the given tax rate (percentage, 0..100).
func New(taxRate decimal.Decimal) *Cart {
	return &Cart{
		taxRate:       money.ClampPercent(taxRate),
		orderDiscount: OrderDiscount{Type: DiscountPercent, Value: decimal.Zero},
	}
}

// Lines returns the current line items in display order. The returned slice
// is a copy; mutating it does not affect the cart.
func (c *Cart) Lines() []Line {
	out := make([]Line, len(c.lines))
	copy(out, c.lines)
	return out
}

// Len returns the number of distinct lines in the cart.
func (c *Cart) Len() int {
	return len(c.lines)
}

// OrderDiscount returns the current order-level discount.
func (c *Cart) OrderDiscount() OrderDiscount {
	return c.orderDiscount
}

// TaxRate returns the tax rate percentage applied to the post-discount base.
func (c *Cart) TaxRate() decimal.Decimal {
	return c.taxRate
}

// CustomerID returns the optional customer reference attached to the cart.
func (c *Cart) CustomerID() string {
	return c.customerID
}

// SetCustomer attaches an optional customer reference to the cart.
func (c *Cart) SetCustomer(id string) {
	c.customerID = id
}

// AddItem appends a new line with quantity 1, or increments the quantity of
// an existing line for the same product. Incrementing past maxQuantity is a
// silent no-op.
func (c *Cart) AddItem(productID, name string, unitPrice decimal.Decimal, maxQuantity int) {
	for i := range c.lines {
		if c.lines[i].ProductID == productID {
			if c.lines[i].Quantity+1 > c.lines[i].MaxQuantity {
				return
			}
			c.lines[i].Quantity++
			return
		}
	}
	if maxQuantity < 1 {
		return
	}
	c.lines = append(c.lines, Line{
		ProductID:       productID,
		Name:            name,
		UnitPrice:       unitPrice,
		Quantity:        1,
		MaxQuantity:     maxQuantity,
		DiscountPercent: decimal.Zero,
	})
}

// UpdateQuantity adds delta to the line's quantity, clamping the result to
// [0, MaxQuantity]. A resulting quantity of 0 removes the line. Unknown
// product IDs are ignored.
func (c *Cart) UpdateQuantity(productID string, delta int) {
	for i := range c.lines {
		if c.lines[i].ProductID != productID {
			continue
		}
		q := c.lines[i].Quantity + delta
		if q > c.lines[i].MaxQuantity {
			q = c.lines[i].MaxQuantity
		}
		if q <= 0 {
			c.removeAt(i)
			return
		}
		c.lines[i].Quantity = q
		return
	}
}

// RemoveItem removes the line for the given product unconditionally.
func (c *Cart) RemoveItem(productID string) {
	for i := range c.lines {
		if c.lines[i].ProductID == productID {
			c.removeAt(i)
			return
		}
	}
}

// SetLineDiscount sets the per-line discount percentage, clamped to [0, 100].
func (c *Cart) SetLineDiscount(productID string, pct decimal.Decimal) {
	for i := range c.lines {
		if c.lines[i].ProductID == productID {
			c.lines[i].DiscountPercent = money.ClampPercent(pct)
			return
		}
	}
}

// SetOrderDiscount sets the order-level discount. Percent values are clamped
// to [0, 100]; fixed values are clamped to [0, subtotal after line discounts].
func (c *Cart) SetOrderDiscount(value decimal.Decimal, typ DiscountType) {
	switch typ {
	case DiscountPercent:
		c.orderDiscount = OrderDiscount{Type: DiscountPercent, Value: money.ClampPercent(value)}
	case DiscountFixed:
		base := c.subtotal().Sub(c.lineDiscount())
		c.orderDiscount = OrderDiscount{
			Type:  DiscountFixed,
			Value: money.FloorAtZero(money.Min(value, base)),
		}
	}
}

// Clear empties all lines and resets the order discount to zero. The tax rate
// and customer reference survive a clear.
func (c *Cart) Clear() {
	c.lines = nil
	c.orderDiscount = OrderDiscount{Type: DiscountPercent, Value: decimal.Zero}
}

func (c *Cart) removeAt(i int) {
	c.lines = append(c.lines[:i], c.lines[i+1:]...)
}

func (c *Cart) subtotal() decimal.Decimal {
	sum := decimal.Zero
	for _, l := range c.lines {
		sum = sum.Add(l.gross())
	}
	return sum
}

func (c *Cart) lineDiscount() decimal.Decimal {
	sum := decimal.Zero
	for _, l := range c.lines {
		sum = sum.Add(l.discount())
	}
	return sum
}

// Totals is the computed pricing view of a cart at full precision.
// Discount is applied strictly before tax: the tax base is the subtotal
// minus all discounts.
type Totals struct {
	Subtotal       decimal.Decimal
	LineDiscount   decimal.Decimal
	OrderDiscount  decimal.Decimal
	DiscountAmount decimal.Decimal
	TaxableBase    decimal.Decimal
	TaxAmount      decimal.Decimal
	Total          decimal.Decimal
}

// Totals recomputes the pricing view from current cart state. It is pure:
// calling it twice without mutation yields identical results.
func (c *Cart) Totals() Totals {
	subtotal := c.subtotal()
	lineDisc := c.lineDiscount()

	base := subtotal.Sub(lineDisc)
	var orderDisc decimal.Decimal
	switch c.orderDiscount.Type {
	case DiscountFixed:
		orderDisc = money.Min(c.orderDiscount.Value, base)
	default:
		orderDisc = money.Percent(base, c.orderDiscount.Value)
	}
	orderDisc = money.FloorAtZero(orderDisc)

	discount := lineDisc.Add(orderDisc)
	taxable := money.FloorAtZero(subtotal.Sub(discount))
	tax := money.Percent(taxable, c.taxRate)

	return Totals{
		Subtotal:       subtotal,
		LineDiscount:   lineDisc,
		OrderDiscount:  orderDisc,
		DiscountAmount: discount,
		TaxableBase:    taxable,
		TaxAmount:      tax,
		Total:          taxable.Add(tax),
	}
}

// Rounded returns the totals rounded to two decimal places for display or
// persistence. Internal computation stays at full precision.
func (t Totals) Rounded() Totals {
	return Totals{
		Subtotal:       money.Round2(t.Subtotal),
		LineDiscount:   money.Round2(t.LineDiscount),
		OrderDiscount:  money.Round2(t.OrderDiscount),
		DiscountAmount: money.Round2(t.DiscountAmount),
		TaxableBase:    money.Round2(t.TaxableBase),
		TaxAmount:      money.Round2(t.TaxAmount),
		Total:          money.Round2(t.Total),
	}
}
