// Package fingerprint computes deterministic MinHash signatures over
// character shingles of a window of text. The algorithm and its
// permutation parameters must not vary by platform: identical
// (text, K, C, seed) inputs always produce identical signatures.
package fingerprint

import (
	"math/big"
	"math/rand"

	"github.com/chmduquesne/rollinghash/buzhash32"
)

// shingleHashTable is the fixed byte->uint32 mixing table buzhash32 hashes
// a shingle's bytes against, generated once from a constant (not
// fingerprint.Config.Seed, which governs only the K permutations) so the
// base hash itself never varies between runs or platforms. Built the same
// way a per-hash mixing table is generated from a fixed seed, but with a
// single fixed table rather than one per permutation.
var shingleHashTable = func() [256]uint32 {
	var tab [256]uint32
	rng := rand.New(rand.NewSource(0x696e746572746578)) // "intertex" in ASCII, a fixed constant
	seen := make(map[uint32]bool, 256)
	for i := range tab {
		for {
			x := uint32(rng.Int63())
			if !seen[x] {
				tab[i] = x
				seen[x] = true
				break
			}
		}
	}
	return tab
}()

// Config parameterizes the signature function.
type Config struct {
	K    int   // number of MinHash permutations (signature length)
	C    int   // character shingle length
	Seed int64 // seed for the permutation parameters
}

// Fingerprinter computes a MinHash signature for a window of text. An
// accelerated implementation (e.g. batch GPU) may replace Default as long
// as it produces bit-identical output for the same (text, cfg).
type Fingerprinter interface {
	Signature(window string, cfg Config) ([]uint32, error)
}

// Default is the reference Fingerprinter implementation.
type Default struct{}

// Signature implements Fingerprinter using the pure Signature function.
func (Default) Signature(window string, cfg Config) ([]uint32, error) {
	return Signature(window, cfg.K, cfg.C, cfg.Seed), nil
}

// permParams are the K pairs (a, b) of a universal hash family
// h_k(x) = (a_k*x + b_k) mod mersenne61, used to permute the base shingle
// hash. They are derived deterministically from seed via math/rand, whose
// generator is a pure-Go arithmetic algorithm and therefore stable across
// platforms and Go releases.
type permParams struct {
	a, b uint64
}

const mersenne61 = (uint64(1) << 61) - 1

var mersenne61Big = new(big.Int).SetUint64(mersenne61)

func derivePermutations(k int, seed int64) []permParams {
	rng := rand.New(rand.NewSource(seed))
	params := make([]permParams, k)
	for i := range params {
		a := uint64(rng.Int63())%(mersenne61-1) + 1
		b := uint64(rng.Int63()) % mersenne61
		params[i] = permParams{a: a, b: b}
	}
	return params
}

// shingleHash computes a buzhash32 hash of a character shingle's UTF-8
// bytes, the same rolling-hash family used to hash k-mer windows in the
// Bloom-sketch screening stage. Only the one-shot Write/Sum32 path is
// used here, not Roll, since each shingle is hashed once rather than
// incrementally; it still serves as the deterministic base hash that
// feeds the K universal-hash permutations below.
func shingleHash(s string) uint64 {
	h := buzhash32.NewFromUint32Array(shingleHashTable)
	_, _ = h.Write([]byte(s))
	return uint64(h.Sum32())
}

// permute computes (a*x + b) mod (2^61 - 1). big.Int keeps the
// reduction obviously correct; signature computation is not on any hot
// request path, so the extra allocation is not a concern.
func permute(x uint64, p permParams) uint64 {
	v := new(big.Int).SetUint64(p.a)
	v.Mul(v, new(big.Int).SetUint64(x))
	v.Add(v, new(big.Int).SetUint64(p.b))
	v.Mod(v, mersenne61Big)
	return v.Uint64()
}

// Signature builds the set of contiguous character N-grams of length C over
// the lowercased window string, computes K independent permutations of a
// base hash over each shingle, and returns the per-permutation minimum: the
// standard MinHash signature with K permutations over character shingles.
func Signature(window string, k, c int, seed int64) []uint32 {
	lower := toLowerASCIIAware(window)
	shingles := shinglesOf(lower, c)

	sig := make([]uint64, k)
	for i := range sig {
		sig[i] = mersenne61 // sentinel "infinity" within the field
	}

	if len(shingles) == 0 {
		out := make([]uint32, k)
		return out
	}

	params := derivePermutations(k, seed)
	seen := make(map[string]struct{}, len(shingles))
	for _, sh := range shingles {
		if _, ok := seen[sh]; ok {
			continue
		}
		seen[sh] = struct{}{}
		base := shingleHash(sh)
		for i, p := range params {
			v := permute(base, p)
			if v < sig[i] {
				sig[i] = v
			}
		}
	}

	out := make([]uint32, k)
	for i, v := range sig {
		out[i] = uint32(v)
	}
	return out
}

func shinglesOf(s string, c int) []string {
	runes := []rune(s)
	if c <= 0 || len(runes) < c {
		return nil
	}
	out := make([]string, 0, len(runes)-c+1)
	for i := 0; i+c <= len(runes); i++ {
		out = append(out, string(runes[i:i+c]))
	}
	return out
}

func toLowerASCIIAware(s string) string {
	b := []rune(s)
	for i, r := range b {
		if r >= 'A' && r <= 'Z' {
			b[i] = r + ('a' - 'A')
		}
	}
	return string(b)
}
