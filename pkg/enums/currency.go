package enums

// Currency is the ISO currency code attached to invoices.
type Currency string

const (
	CurrencyIRR Currency = "IRR"
	CurrencyUSD Currency = "USD"
)

// String implements fmt.Stringer.
func (c Currency) String() string {
	return string(c)
}

// IsValid reports whether the value is a supported Currency.
func (c Currency) IsValid() bool {
	return c == CurrencyIRR || c == CurrencyUSD
}
