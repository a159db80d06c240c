// Package tax computes India-style GST breakdowns for a single line item.
// Pure math, no state: the callers snapshot the results onto sale and
// invoice lines.
package tax

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// GSTType is a closed enum. Inputs are validated at the boundary so the rest
// of the engine never has to normalize free-text tax types.
type GSTType string

const (
	GSTTypeCGSTSGST  GSTType = "CGST_SGST" // intra-state: rate split in half
	GSTTypeIGST      GSTType = "IGST"      // inter-state: full rate
	GSTTypeExempt    GSTType = "EXEMPT"
	GSTTypeNilRated  GSTType = "NIL_RATED"
	GSTTypeZeroRated GSTType = "ZERO_RATED"
)

type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
)

var (
	ErrInvalidGSTRate        = errors.New("gst rate must be between 0 and 100")
	ErrUnknownGSTType        = errors.New("unknown gst type")
	ErrUnknownDiscountType   = errors.New("unknown discount type")
	ErrInvalidQuantity       = errors.New("quantity must be positive")
	ErrNegativeUnitPrice     = errors.New("unit price cannot be negative")
	ErrDiscountExceedsAmount = errors.New("discount exceeds line subtotal")
)

// ParseGSTType validates a raw string against the closed enum.
func ParseGSTType(s string) (GSTType, error) {
	switch GSTType(s) {
	case GSTTypeCGSTSGST, GSTTypeIGST, GSTTypeExempt, GSTTypeNilRated, GSTTypeZeroRated:
		return GSTType(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownGSTType, s)
}

// taxable reports whether this type actually levies tax. Exempt, nil-rated
// and zero-rated lines carry zero tax regardless of the rate field.
func (t GSTType) taxable() bool {
	return t == GSTTypeCGSTSGST || t == GSTTypeIGST
}

// LineInput is everything needed to price one cart line.
type LineInput struct {
	Quantity      int
	UnitPrice     float64
	Discount      float64
	DiscountType  DiscountType
	GSTApplicable bool
	GSTRate       float64 // percent, 0-100
	GSTType       GSTType
	CessRate      float64 // percent, computed on the taxable amount
}

// LineResult holds the per-line money math, every field rounded to 2 decimal
// places at the point of computation so totals reconcile item by item
// instead of drifting and being rounded once at the end.
type LineResult struct {
	Subtotal       float64
	DiscountAmount float64
	TaxableAmount  float64
	GSTAmount      float64 // includes cess
	CessAmount     float64
	Total          float64
}

// Split is the per-component view used at invoice time.
type Split struct {
	CGSTRate   float64
	CGSTAmount float64
	SGSTRate   float64
	SGSTAmount float64
	IGSTRate   float64
	IGSTAmount float64
	CessAmount float64
}

var hundred = decimal.NewFromInt(100)

func round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// CalculateLine prices a single line:
//
//	subtotal = quantity * unitPrice
//	discount = percentage ? subtotal*discount/100 : discount
//	taxable  = subtotal - discount  (must not go negative)
//	gst      = applicable ? taxable*rate/100 : 0  (+ cess, same base)
//	total    = taxable + gst
func CalculateLine(in LineInput) (LineResult, error) {
	if in.Quantity <= 0 {
		return LineResult{}, ErrInvalidQuantity
	}
	if in.UnitPrice < 0 {
		return LineResult{}, ErrNegativeUnitPrice
	}
	if in.GSTRate < 0 || in.GSTRate > 100 {
		return LineResult{}, ErrInvalidGSTRate
	}
	if in.CessRate < 0 || in.CessRate > 100 {
		return LineResult{}, ErrInvalidGSTRate
	}
	if _, err := ParseGSTType(string(in.GSTType)); err != nil {
		return LineResult{}, err
	}

	unitPrice := decimal.NewFromFloat(in.UnitPrice)
	subtotal := round2(unitPrice.Mul(decimal.NewFromInt(int64(in.Quantity))))

	var discountAmount decimal.Decimal
	switch in.DiscountType {
	case DiscountPercentage, "": // percentage is the default
		discountAmount = round2(subtotal.Mul(decimal.NewFromFloat(in.Discount)).Div(hundred))
	case DiscountFixed:
		discountAmount = round2(decimal.NewFromFloat(in.Discount))
	default:
		return LineResult{}, fmt.Errorf("%w: %q", ErrUnknownDiscountType, in.DiscountType)
	}
	if discountAmount.IsNegative() {
		discountAmount = decimal.Zero
	}
	if discountAmount.GreaterThan(subtotal) {
		return LineResult{}, ErrDiscountExceedsAmount
	}

	taxable := subtotal.Sub(discountAmount)

	var gst, cess decimal.Decimal
	if in.GSTApplicable && in.GSTType.taxable() {
		gst = round2(taxable.Mul(decimal.NewFromFloat(in.GSTRate)).Div(hundred))
		cess = round2(taxable.Mul(decimal.NewFromFloat(in.CessRate)).Div(hundred))
	}

	totalTax := gst.Add(cess)
	total := taxable.Add(totalTax)

	sub, _ := subtotal.Float64()
	disc, _ := discountAmount.Float64()
	tax, _ := taxable.Float64()
	g, _ := totalTax.Float64()
	ce, _ := cess.Float64()
	tot, _ := total.Float64()
	return LineResult{
		Subtotal:       sub,
		DiscountAmount: disc,
		TaxableAmount:  tax,
		GSTAmount:      g,
		CessAmount:     ce,
		Total:          tot,
	}, nil
}

// SplitGST expands a line's rate into explicit CGST/SGST/IGST/cess amounts,
// recomputed from the taxable amount. CGST_SGST halves the rate and computes
// each half on the taxable amount; IGST carries the full rate.
func SplitGST(taxableAmount, rate float64, typ GSTType, cessRate float64, applicable bool) (Split, error) {
	if rate < 0 || rate > 100 {
		return Split{}, ErrInvalidGSTRate
	}
	if _, err := ParseGSTType(string(typ)); err != nil {
		return Split{}, err
	}
	if !applicable || !typ.taxable() {
		return Split{}, nil
	}

	taxable := decimal.NewFromFloat(taxableAmount)
	cess, _ := round2(taxable.Mul(decimal.NewFromFloat(cessRate)).Div(hundred)).Float64()

	if typ == GSTTypeIGST {
		igst, _ := round2(taxable.Mul(decimal.NewFromFloat(rate)).Div(hundred)).Float64()
		return Split{IGSTRate: rate, IGSTAmount: igst, CessAmount: cess}, nil
	}

	halfRate := decimal.NewFromFloat(rate).Div(decimal.NewFromInt(2))
	half, _ := round2(taxable.Mul(halfRate).Div(hundred)).Float64()
	hr, _ := halfRate.Float64()
	return Split{
		CGSTRate:   hr,
		CGSTAmount: half,
		SGSTRate:   hr,
		SGSTAmount: half,
		CessAmount: cess,
	}, nil
}

// RoundToRupee rounds a grand total to the nearest whole currency unit and
// reports the payable amount plus the round-off difference.
func RoundToRupee(grandTotal float64) (finalAmount, roundOff float64) {
	grand := decimal.NewFromFloat(grandTotal)
	final := grand.Round(0)
	f, _ := final.Float64()
	r, _ := final.Sub(grand).Round(2).Float64()
	return f, r
}
