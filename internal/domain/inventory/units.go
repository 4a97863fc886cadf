package inventory

import "github.com/shopspring/decimal"

// DefaultKgPerBag factor fijo de conversión kg/bolsa.
const DefaultKgPerBag = 50

// BagsToKg convierte bolsas a kg.
func BagsToKg(bags int, kgPerBag decimal.Decimal) decimal.Decimal {
	return decimal.NewFromInt(int64(bags)).Mul(kgPerBag)
}

// KgToBags convierte kg a bolsas completas (redondeo hacia abajo).
func KgToBags(kg, kgPerBag decimal.Decimal) int {
	if !kgPerBag.IsPositive() {
		return 0
	}
	return int(kg.Div(kgPerBag).Floor().IntPart())
}
