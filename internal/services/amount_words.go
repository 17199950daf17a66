package services

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// voucherCurrency is the currency name printed on vouchers
const voucherCurrency = "LEMPIRAS"

// AmountInWords spells a monetary amount in Spanish for vouchers.
// Example: 1500.50 -> "MIL QUINIENTOS LEMPIRAS CON 50/100"
func AmountInWords(amount decimal.Decimal, currency string) string {
	rounded := amount.Abs().Round(2)
	integerPart := rounded.IntPart()
	cents := rounded.Sub(decimal.NewFromInt(integerPart)).Shift(2).IntPart()

	words := spellNumber(integerPart, true)
	if amount.IsNegative() && !rounded.IsZero() {
		words = "MENOS " + words
	}
	return fmt.Sprintf("%s %s CON %02d/100", words, strings.ToUpper(currency), cents)
}

// spellNumber writes n in words. With short set, a trailing "UNO" is shortened
// the way it is before a noun ("UN MIL", "VEINTIÚN LEMPIRAS").
func spellNumber(n int64, short bool) string {
	switch {
	case n == 0:
		return "CERO"
	case n < 10:
		if n == 1 && short {
			return "UN"
		}
		return unitWords[n]
	case n < 30:
		if n == 21 && short {
			return "VEINTIÚN"
		}
		return teenWords[n]
	case n < 100:
		t, u := n/10, n%10
		if u == 0 {
			return tenWords[t]
		}
		return tenWords[t] + " Y " + spellNumber(u, short)
	case n < 1000:
		h, rest := n/100, n%100
		if rest == 0 {
			return hundredWords[h]
		}
		if h == 1 {
			return "CIENTO " + spellNumber(rest, short)
		}
		return hundredWords[h] + " " + spellNumber(rest, short)
	case n < 1_000_000:
		th, rest := n/1000, n%1000
		head := "MIL"
		if th > 1 {
			head = spellNumber(th, true) + " MIL"
		}
		if rest == 0 {
			return head
		}
		return head + " " + spellNumber(rest, short)
	case n < 1_000_000_000_000:
		m, rest := n/1_000_000, n%1_000_000
		head := "UN MILLÓN"
		if m > 1 {
			head = spellNumber(m, true) + " MILLONES"
		}
		if rest == 0 {
			return head
		}
		return head + " " + spellNumber(rest, short)
	}
	return fmt.Sprintf("%d", n)
}

var unitWords = []string{
	"", "UNO", "DOS", "TRES", "CUATRO", "CINCO", "SEIS", "SIETE", "OCHO", "NUEVE",
}

var teenWords = map[int64]string{
	10: "DIEZ", 11: "ONCE", 12: "DOCE", 13: "TRECE", 14: "CATORCE", 15: "QUINCE",
	16: "DIECISÉIS", 17: "DIECISIETE", 18: "DIECIOCHO", 19: "DIECINUEVE",
	20: "VEINTE", 21: "VEINTIUNO", 22: "VEINTIDÓS", 23: "VEINTITRÉS", 24: "VEINTICUATRO",
	25: "VEINTICINCO", 26: "VEINTISÉIS", 27: "VEINTISIETE", 28: "VEINTIOCHO", 29: "VEINTINUEVE",
}

var tenWords = []string{
	"", "", "VEINTE", "TREINTA", "CUARENTA", "CINCUENTA", "SESENTA", "SETENTA", "OCHENTA", "NOVENTA",
}

var hundredWords = []string{
	"", "CIEN", "DOSCIENTOS", "TRESCIENTOS", "CUATROCIENTOS", "QUINIENTOS", "SEISCIENTOS", "SETECIENTOS", "OCHOCIENTOS", "NOVECIENTOS",
}
