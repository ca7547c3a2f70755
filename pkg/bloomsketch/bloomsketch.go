// Package bloomsketch is an accelerated fingerprint.Fingerprinter: it uses
// a hand-built Bloom filter, backed by bitarray.BitArray, as a fast
// first-pass "have I seen this shingle before" check ahead of the exact
// MinHash permutation pass. An accelerated fingerprinter must still
// produce bit-identical output to the default implementation, so a
// Bloom "maybe seen" answer always falls back to an exact check; only a
// definite "not seen" answer (which a Bloom filter never gets wrong) is
// trusted outright. The exact-set lookup is therefore skipped only for
// shingles the filter proves were never seen (a distinct shingle's first
// occurrence); repeated shingles always take the exact lookup, so the
// signature is never at risk.
package bloomsketch

import (
	"github.com/golang-collections/go-datastructures/bitarray"

	"github.com/kshedden/intertext/internal/fingerprint"
)

// Sketch implements fingerprint.Fingerprinter.
type Sketch struct {
	// Bits sizes the Bloom filter's underlying bit array.
	Bits uint64
	// NumHash is the number of independent bit positions each shingle
	// sets, the Bloom filter's k parameter.
	NumHash int
}

// defaults matches a modest per-window shingle count at a low false
// positive rate without requiring the caller to size anything.
func (s Sketch) withDefaults() Sketch {
	if s.Bits == 0 {
		s.Bits = 1 << 16
	}
	if s.NumHash == 0 {
		s.NumHash = 4
	}
	return s
}

// Signature computes the same MinHash signature fingerprint.Signature
// would for identical inputs, using a Bloom filter to accelerate the
// duplicate-shingle check.
func (s Sketch) Signature(window string, cfg fingerprint.Config) ([]uint32, error) {
	s = s.withDefaults()

	lower := fingerprint.ToLowerASCII(window)
	shingles := fingerprint.ShinglesOf(lower, cfg.C)

	k := cfg.K
	sig := make([]uint64, k)
	for i := range sig {
		sig[i] = fingerprint.Mersenne61
	}
	if len(shingles) == 0 {
		return make([]uint32, k), nil
	}

	filter := bitarray.NewBitArray(s.Bits)
	params := fingerprint.DerivePermutations(k, cfg.Seed)
	exact := make(map[string]struct{}, len(shingles))

	for _, sh := range shingles {
		base := fingerprint.ShingleHash(sh)
		if s.maybeMember(filter, base) {
			// Possibly seen: a Bloom filter has no false negatives, but
			// does have false positives, so confirm against the exact
			// set before trusting it.
			if _, ok := exact[sh]; ok {
				continue
			}
		}
		s.mark(filter, base)
		exact[sh] = struct{}{}

		for i, p := range params {
			v := fingerprint.Permute(base, p)
			if v < sig[i] {
				sig[i] = v
			}
		}
	}

	out := make([]uint32, k)
	for i, v := range sig {
		out[i] = uint32(v)
	}
	return out, nil
}

// bitPositions derives s.NumHash bit positions for a shingle's base hash
// via double hashing (Kirsch-Mitzenmacher): position_i = (h1 + i*h2) mod
// Bits. base only carries 32 bits of entropy (buzhash32's Sum32 widened
// to uint64), so h1 and h2 cannot be split from its upper/lower halves
// the way they could from a genuinely 64-bit hash — base>>32 is always
// zero, which would collapse h2 to a fixed stride of 1. Instead h1 and
// h2 are each the output of an independent avalanche mix of base, so
// every bit of base's 32 bits of entropy can influence either half.
func (s Sketch) bitPositions(base uint64) []uint64 {
	h1 := mix64(base) % s.Bits
	h2 := mix64(base^goldenGammaMix) % s.Bits
	if h2 == 0 {
		h2 = 1
	}
	out := make([]uint64, s.NumHash)
	for i := range out {
		out[i] = (h1 + uint64(i)*h2) % s.Bits
	}
	return out
}

// goldenGammaMix decorrelates h2 from h1 by perturbing base with a fixed
// odd constant (the splitmix64 golden-ratio increment) before mixing,
// rather than mixing the same input twice.
const goldenGammaMix = 0x9e3779b97f4a7c15

// mix64 is splitmix64's finalizer: a fixed sequence of xor-shifts and
// odd-constant multiplications that avalanches its input across all 64
// output bits, used here to spread a narrow (32-bit) hash before folding
// it down with %.
func mix64(x uint64) uint64 {
	x ^= x >> 30
	x *= 0xbf58476d1ce4e5b9
	x ^= x >> 27
	x *= 0x94d049bb133111eb
	x ^= x >> 31
	return x
}

func (s Sketch) maybeMember(ba bitarray.BitArray, base uint64) bool {
	for _, pos := range s.bitPositions(base) {
		set, err := ba.GetBit(pos)
		if err != nil || !set {
			return false
		}
	}
	return true
}

func (s Sketch) mark(ba bitarray.BitArray, base uint64) {
	for _, pos := range s.bitPositions(base) {
		_ = ba.SetBit(pos)
	}
}
