// Package money centraliza el redondeo y la comparación de importes.
// Todos los montos del sistema son decimal.Decimal con dos decimales;
// ninguna capa debe redondear por su cuenta.
package money

import "github.com/shopspring/decimal"

// Tolerancia aceptada al comparar el total de una venta contra la suma
// de sus pagos (centavo de diferencia por redondeos intermedios).
var Tolerancia = decimal.NewFromFloat(0.01)

var cien = decimal.NewFromInt(100)

// Redondear normaliza un importe a dos decimales (half-up).
func Redondear(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// Iguales compara dos importes dentro de Tolerancia.
func Iguales(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(Tolerancia)
}

// Porcentaje devuelve pct% de base, redondeado a dos decimales.
func Porcentaje(base, pct decimal.Decimal) decimal.Decimal {
	return Redondear(base.Mul(pct).Div(cien))
}

// BaseSinRecargo invierte un recargo porcentual a partir del importe final:
// base = final / (1 + pct/100). El llamador informa el monto que pagó el
// cliente (con recargo incluido) y acá se reconstruye la base.
func BaseSinRecargo(final, pct decimal.Decimal) decimal.Decimal {
	if pct.IsZero() {
		return Redondear(final)
	}
	divisor := decimal.NewFromInt(1).Add(pct.Div(cien))
	return Redondear(final.Div(divisor))
}

// Suma acumula una lista de importes sin redondeos intermedios.
func Suma(importes ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, imp := range importes {
		total = total.Add(imp)
	}
	return total
}
