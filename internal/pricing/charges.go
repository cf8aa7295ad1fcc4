package pricing

import (
	"github.com/Eursukkul/courier-backoffice/internal/models"
	"github.com/shopspring/decimal"
)

// MoneyPlaces is the scale every stored monetary value is rounded to.
const MoneyPlaces = 2

// Config carries the tariff explicitly; nothing here reads global state.
type Config struct {
	Currency              string
	BaseRates             map[models.ServiceType]decimal.Decimal
	FallbackService       models.ServiceType
	FuelSurchargeRate     decimal.Decimal
	TaxRate               decimal.Decimal
	InsuranceRate         decimal.Decimal
	CODRate               decimal.Decimal
	VolumetricDivisorCM   decimal.Decimal
	VolumetricDivisorInch decimal.Decimal
}

func DefaultConfig() Config {
	return Config{
		Currency: "INR",
		BaseRates: map[models.ServiceType]decimal.Decimal{
			models.ServiceEconomy:       decimal.NewFromInt(5),
			models.ServiceStandard:      decimal.NewFromInt(10),
			models.ServiceExpress:       decimal.NewFromInt(20),
			models.ServiceSameDay:       decimal.NewFromInt(30),
			models.ServiceInternational: decimal.NewFromInt(50),
		},
		FallbackService:       models.ServiceStandard,
		FuelSurchargeRate:     decimal.RequireFromString("0.10"),
		TaxRate:               decimal.RequireFromString("0.18"),
		InsuranceRate:         decimal.RequireFromString("0.01"),
		CODRate:               decimal.RequireFromString("0.02"),
		VolumetricDivisorCM:   decimal.NewFromInt(5000),
		VolumetricDivisorInch: decimal.NewFromInt(139),
	}
}

// BaseRate returns the per-kg rate for st, falling back to the fallback service's rate.
func (c Config) BaseRate(st models.ServiceType) decimal.Decimal {
	if r, ok := c.BaseRates[st]; ok {
		return r
	}
	return c.BaseRates[c.FallbackService]
}

type ChargeInput struct {
	ServiceType   models.ServiceType
	PaymentMode   models.PaymentMode
	Weight        decimal.Decimal
	Length        decimal.Decimal
	Width         decimal.Decimal
	Height        decimal.Decimal
	DimensionUnit models.DimensionUnit
	DeclaredValue decimal.Decimal
	Insured       bool
	CODAmount     decimal.Decimal
}

// InputFromBooking rebuilds the charge input a booking was priced with.
func InputFromBooking(b *models.Booking) ChargeInput {
	return ChargeInput{
		ServiceType:   b.ServiceType,
		PaymentMode:   b.PaymentMode,
		Weight:        b.Weight,
		Length:        b.Length,
		Width:         b.Width,
		Height:        b.Height,
		DimensionUnit: b.DimensionUnit,
		DeclaredValue: b.DeclaredValue,
		Insured:       b.Insured,
		CODAmount:     b.CODAmount,
	}
}

// VolumetricWeight is L×W×H over the unit's divisor; zero unless all three dimensions are positive.
func VolumetricWeight(in ChargeInput, cfg Config) decimal.Decimal {
	if !in.Length.IsPositive() || !in.Width.IsPositive() || !in.Height.IsPositive() {
		return decimal.Zero
	}
	divisor := cfg.VolumetricDivisorCM
	if in.DimensionUnit == models.DimensionInch {
		divisor = cfg.VolumetricDivisorInch
	}
	return in.Length.Mul(in.Width).Mul(in.Height).Div(divisor)
}

func ChargeableWeight(in ChargeInput, cfg Config) decimal.Decimal {
	return decimal.Max(in.Weight, VolumetricWeight(in, cfg))
}

// ComputeCharges prices a shipment. Components are derived from unrounded bases and rounded
// half-up once, when stored; subtotal, tax and total are built from the stored components so
// the breakdown always adds up.
func ComputeCharges(in ChargeInput, cfg Config) models.ChargeBreakdown {
	chargeable := ChargeableWeight(in, cfg)
	shipping := chargeable.Mul(cfg.BaseRate(in.ServiceType))

	insurance := decimal.Zero
	if in.Insured {
		insurance = in.DeclaredValue.Mul(cfg.InsuranceRate)
	}
	cod := decimal.Zero
	if in.PaymentMode == models.PaymentCOD {
		cod = in.CODAmount.Mul(cfg.CODRate)
	}
	fuel := shipping.Mul(cfg.FuelSurchargeRate)

	out := models.ChargeBreakdown{
		ChargeableWeight: chargeable.Round(3),
		ShippingCharges:  round(shipping),
		InsuranceCharges: round(insurance),
		CODCharges:       round(cod),
		FuelSurcharge:    round(fuel),
		Currency:         cfg.Currency,
	}
	out.Subtotal = out.ShippingCharges.Add(out.InsuranceCharges).Add(out.CODCharges).Add(out.FuelSurcharge)
	out.Tax = round(out.Subtotal.Mul(cfg.TaxRate))
	out.Total = out.Subtotal.Add(out.Tax)
	return out
}

// round is half away from zero, i.e. half-up for the non-negative amounts priced here.
func round(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyPlaces)
}
