package coinjoin

// Denomination is one of the four fixed base-unit deposit sizes. It is a
// closed enumeration — any amount outside this set is rejected at the
// surface (spec §3, §9 "Denomination discrepancy").
type Denomination int

const (
	DenomSmall Denomination = iota + 1
	DenomMedium
	DenomLarge
	DenomExtraLarge
)

// Base-unit values. ExtraLarge is pinned to 2_000_000_000: the source
// repository's Denomination::value disagreed with its own from_amount for
// this variant (10_000_000_000 vs 2_000_000_000). The deposit-admission
// path (from_amount) is binding, so 2_000_000_000 is authoritative here.
const (
	valueSmall      int64 = 10_000_000
	valueMedium     int64 = 100_000_000
	valueLarge      int64 = 1_000_000_000
	valueExtraLarge int64 = 2_000_000_000
)

var denomValues = map[Denomination]int64{
	DenomSmall:      valueSmall,
	DenomMedium:     valueMedium,
	DenomLarge:      valueLarge,
	DenomExtraLarge: valueExtraLarge,
}

var denomSymbols = map[Denomination]string{
	DenomSmall:      "10",
	DenomMedium:     "100",
	DenomLarge:      "1K",
	DenomExtraLarge: "10K",
}

var symbolToDenom = map[string]Denomination{
	"10":  DenomSmall,
	"100": DenomMedium,
	"1K":  DenomLarge,
	"10K": DenomExtraLarge,
}

var amountToDenom = map[int64]Denomination{
	valueSmall:      DenomSmall,
	valueMedium:     DenomMedium,
	valueLarge:      DenomLarge,
	valueExtraLarge: DenomExtraLarge,
}

// FromAmount maps a raw base-unit amount to its Denomination, or
// ErrInvalidInput if the amount is not one of the four supported sizes.
func FromAmount(amount int64) (Denomination, error) {
	d, ok := amountToDenom[amount]
	if !ok {
		return 0, invalidInput("amount does not match a supported denomination")
	}
	return d, nil
}

// FromSymbol maps a short tag ("10", "100", "1K", "10K") to its Denomination.
func FromSymbol(symbol string) (Denomination, error) {
	d, ok := symbolToDenom[symbol]
	if !ok {
		return 0, invalidInput("unknown denomination symbol: " + symbol)
	}
	return d, nil
}

// Value returns the base-unit amount for a denomination.
func (d Denomination) Value() int64 {
	return denomValues[d]
}

// Symbol returns the short display tag for a denomination.
func (d Denomination) Symbol() string {
	return denomSymbols[d]
}

// Supported reports whether amount is an admissible deposit size.
func Supported(amount int64) bool {
	_, ok := amountToDenom[amount]
	return ok
}

// AllDenominations returns the four denominations in ascending order, used
// to seed one pool per denomination at engine construction.
func AllDenominations() []Denomination {
	return []Denomination{DenomSmall, DenomMedium, DenomLarge, DenomExtraLarge}
}
