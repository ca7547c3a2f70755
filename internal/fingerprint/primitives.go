package fingerprint

// This file exports the primitives an accelerated Fingerprinter needs to
// stay bit-identical to Default: shingle extraction, the permutation
// family, and the base shingle hash. pkg/bloomsketch builds on these
// directly rather than re-deriving them, so there is exactly one
// definition of "the signature algorithm" for both implementations to
// share.

// Mersenne61 is the Mersenne prime modulus of the permutation family.
const Mersenne61 = mersenne61

// PermParams is one (a, b) pair of the permutation family
// h(x) = (a*x + b) mod Mersenne61.
type PermParams = permParams

// DerivePermutations derives the K permutation parameters for seed.
func DerivePermutations(k int, seed int64) []PermParams {
	return derivePermutations(k, seed)
}

// Permute applies one permutation to x.
func Permute(x uint64, p PermParams) uint64 {
	return permute(x, p)
}

// ShingleHash computes the base hash of a single character shingle.
func ShingleHash(s string) uint64 {
	return shingleHash(s)
}

// ShinglesOf splits s into overlapping character shingles of length c.
func ShinglesOf(s string, c int) []string {
	return shinglesOf(s, c)
}

// ToLowerASCII lowercases the ASCII letters of s, leaving all other runes
// untouched.
func ToLowerASCII(s string) string {
	return toLowerASCIIAware(s)
}
