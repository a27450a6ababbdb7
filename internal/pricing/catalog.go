package pricing

import "github.com/shopspring/decimal"

// Family identifies a product family with its own rate bands. Rigid
// panels encode the material/thickness combination in the family key, so
// an unknown combination is rejected as an unknown family rather than
// silently defaulted.
type Family string

const (
	FamilyBanner       Family = "banner"
	FamilyMesh         Family = "mesh"
	FamilySticker      Family = "sticker"
	FamilyCanvas       Family = "canvas"
	FamilyBoardForex3  Family = "board-forex-3"
	FamilyBoardForex5  Family = "board-forex-5"
	FamilyBoardForex10 Family = "board-forex-10"
	FamilyBoardAlu     Family = "board-alucobond"
)

// band maps a contiguous total-area range to one per-m² rate. upTo is the
// exclusive upper bound in m²; zero means open-ended.
type band struct {
	upTo decimal.Decimal
	rate decimal.Decimal
}

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic("pricing: bad catalog constant " + s)
	}
	return v
}

// Band boundaries are shared across families: 1, 5, 20, 50 m² of total
// order area. Rates are strictly decreasing, so the bulk discount falls
// out of the banding itself rather than an explicit percentage.
func bands(r1, r2, r3, r4, r5 string) []band {
	return []band{
		{upTo: d("1"), rate: d(r1)},
		{upTo: d("5"), rate: d(r2)},
		{upTo: d("20"), rate: d(r3)},
		{upTo: d("50"), rate: d(r4)},
		{rate: d(r5)},
	}
}

// rateTable holds the per-family banded rates in RON/m².
var rateTable = map[Family][]band{
	FamilyBanner:       bands("89", "79", "69", "59", "49"),
	FamilyMesh:         bands("99", "89", "79", "69", "62"),
	FamilySticker:      bands("119", "105", "92", "82", "75"),
	FamilyCanvas:       bands("189", "169", "155", "139", "129"),
	FamilyBoardForex3:  bands("159", "145", "132", "119", "109"),
	FamilyBoardForex5:  bands("189", "172", "158", "142", "129"),
	FamilyBoardForex10: bands("249", "229", "209", "189", "175"),
	FamilyBoardAlu:     bands("279", "259", "239", "219", "199"),
}

// Finishing surcharges are multiplicative and applied in this order, as
// successive multipliers rather than summed percentages.
var (
	laminationFactor = d("1.10")
	contourCutFactor = d("1.12")
	reinforcedFactor = d("1.10")
)

// proDesignFee is the flat one-time fee added after all multipliers when
// the customer orders professional design work.
var proDesignFee = d("49.00")

// canvasPresets maps canonical size keys of fixed-size canvas products to
// their unit price. Presets bypass the banded calculation entirely; an
// unknown key is a validation error, never a computed fallback.
var canvasPresets = map[string]decimal.Decimal{
	"20x30":  d("89"),
	"30x40":  d("119"),
	"40x60":  d("169"),
	"50x70":  d("219"),
	"60x90":  d("289"),
	"70x100": d("349"),
}

// rateFor resolves the per-m² rate for a family at the given total area.
func rateFor(family Family, totalArea decimal.Decimal) (decimal.Decimal, bool) {
	bs, ok := rateTable[family]
	if !ok {
		return decimal.Zero, false
	}
	for _, b := range bs {
		if b.upTo.IsZero() || totalArea.LessThan(b.upTo) {
			return b.rate, true
		}
	}
	return bs[len(bs)-1].rate, true
}
