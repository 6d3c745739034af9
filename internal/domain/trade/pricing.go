package trade

import "github.com/shopspring/decimal"

// DefaultVATRate is the fixed 15% VAT
var DefaultVATRate = decimal.RequireFromString("0.15")

// Totals are the derived order amounts
type Totals struct {
	SubTotal    decimal.Decimal
	VAT         decimal.Decimal
	TotalAmount decimal.Decimal
}

// PricingEngine computes line and order amounts with exact decimals rounded to cents
type PricingEngine struct {
	rate decimal.Decimal
}

// NewPricingEngine creates a PricingEngine; a non-positive rate falls back to DefaultVATRate
func NewPricingEngine(rate decimal.Decimal) PricingEngine {
	if !rate.IsPositive() {
		rate = DefaultVATRate
	}
	return PricingEngine{rate: rate}
}

// Rate returns the VAT rate in use
func (e PricingEngine) Rate() decimal.Decimal {
	return e.rate
}

// LineTotal is quantity x unit price, excluding VAT
func (e PricingEngine) LineTotal(unitPrice decimal.Decimal, quantity int) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(int64(quantity))).Round(2)
}

// OrderTotals recomputes sub_total, vat and total_amount from line prices
func (e PricingEngine) OrderTotals(prices []decimal.Decimal, vatType VATType, receipt ReceiptType) Totals {
	sum := sumOf(prices)
	switch {
	case !receipt.Receipted():
		return Totals{SubTotal: sum, VAT: decimal.Zero, TotalAmount: sum}
	case vatType == VATExclusive:
		vat := sum.Mul(e.rate).Round(2)
		return Totals{SubTotal: sum, VAT: vat, TotalAmount: sum.Add(vat)}
	default:
		return e.inclusive(sum)
	}
}

// InclusiveTotals treats the line prices as VAT-inclusive whatever the order's VAT type.
// Unreceipted orders still carry no VAT.
func (e PricingEngine) InclusiveTotals(prices []decimal.Decimal, receipt ReceiptType) Totals {
	return e.OrderTotals(prices, VATInclusive, receipt)
}

// LineVAT splits one line price into its pre-VAT amount, VAT and total
func (e PricingEngine) LineVAT(price decimal.Decimal, vatType VATType, receipt ReceiptType) Totals {
	return e.OrderTotals([]decimal.Decimal{price}, vatType, receipt)
}

func (e PricingEngine) inclusive(total decimal.Decimal) Totals {
	sub := total.Div(decimal.NewFromInt(1).Add(e.rate)).Round(2)
	return Totals{SubTotal: sub, VAT: total.Sub(sub), TotalAmount: total}
}

func sumOf(values []decimal.Decimal) decimal.Decimal {
	sum := decimal.Zero
	for _, v := range values {
		sum = sum.Add(v)
	}
	return sum.Round(2)
}
