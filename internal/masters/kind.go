package masters

// Kind names a per-detector calibration product slot.
type Kind string

const (
	KindBias        Kind = "bias"
	KindArc         Kind = "arc"
	KindTrace       Kind = "trace"
	KindPixFlat     Kind = "pixflat"
	KindNormPixFlat Kind = "normpixflat"
	KindBlaze       Kind = "blaze"
	// KindBadPixels is not a combined master but shares the per-detector
	// slot lifecycle, so it lives in the same store.
	KindBadPixels Kind = "badpix"
)

var kindSet = map[Kind]struct{}{
	KindBias:        {},
	KindArc:         {},
	KindTrace:       {},
	KindPixFlat:     {},
	KindNormPixFlat: {},
	KindBlaze:       {},
	KindBadPixels:   {},
}

// Kinds returns every known kind in slot order.
func Kinds() []Kind {
	return []Kind{
		KindBias, KindArc, KindTrace,
		KindPixFlat, KindNormPixFlat, KindBlaze,
		KindBadPixels,
	}
}

// Valid reports whether k names a known slot.
func (k Kind) Valid() bool {
	_, ok := kindSet[k]
	return ok
}

func (k Kind) String() string { return string(k) }
