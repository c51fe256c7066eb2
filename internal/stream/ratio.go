package stream

// Ratio is the rational numerator/denominator of output items to input
// items that a block declares for one of its ports (spec.md §4.1,
// "Resampling ratio"). No scheduler in this module reads it: work units
// are not sized from it, and blocks that change the item rate rescale
// their own tag positions and length tags.
type Ratio struct {
	Num int
	Den int
}

// Unity is the default 1/1 ratio most blocks use.
var Unity = Ratio{Num: 1, Den: 1}

// Scale maps an input-stream sample index to the corresponding
// output-stream index: floor(i * Num / Den). Division is integer and
// always rounds toward zero for nonnegative i, matching the reference
// scheduler's tag-rescaling rule (spec.md §8, property 5).
func (r Ratio) Scale(i int64) int64 {
	if r.Num == r.Den {
		return i
	}
	return (i * int64(r.Num)) / int64(r.Den)
}

// ScaleLen rescales a length value carried in a tag (e.g. packet_len)
// by the same ratio as sample positions, so that "N samples form one
// packet" stays true after resampling.
func (r Ratio) ScaleLen(n int64) int64 {
	return r.Scale(n)
}
