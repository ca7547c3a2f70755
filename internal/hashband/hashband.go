// Package hashband derives the banded postings used to generate candidate
// document pairs in approximately linear time rather than comparing every
// window against every other window. A MinHash signature of length K is
// split into overlapping bands of B consecutive entries, advancing by a
// stride T across the signature; two windows whose band at the same offset
// is textually identical are filed under the same band key, the standard
// LSH banding technique.
package hashband

import "strconv"

// Config parameterizes the banding of a signature.
type Config struct {
	B int // band length: signature entries per band
	T int // band step: stride across K between successive bands
}

// Triple is one hashband posting for a single window: the band key (the
// B consecutive signature entries at one offset, joined as text) and the
// offset it was taken from within the signature. Two postings sharing a
// BandKey are LSH candidates regardless of their Offset.
type Triple struct {
	BandKey string
	Offset  int
}

// Bands splits sig into overlapping bands of cfg.B consecutive entries,
// advancing cfg.T entries between successive bands, and returns one Triple
// per band offset O ∈ {0, T, 2T, ..., K-B}. A signature shorter than B, or
// a non-positive B or T, yields no bands.
func Bands(sig []uint32, cfg Config) []Triple {
	if cfg.B <= 0 || cfg.T <= 0 || len(sig) < cfg.B {
		return nil
	}
	n := NumBands(len(sig), cfg)
	out := make([]Triple, 0, n)
	for o := 0; o+cfg.B <= len(sig); o += cfg.T {
		out = append(out, Triple{
			BandKey: bandKey(sig[o : o+cfg.B]),
			Offset:  o,
		})
	}
	return out
}

// NumBands returns the number of bands Bands would produce for a signature
// of length k, without materializing the signature or its keys.
func NumBands(k int, cfg Config) int {
	if cfg.B <= 0 || cfg.T <= 0 || k < cfg.B {
		return 0
	}
	return (k-cfg.B)/cfg.T + 1
}

// bandKey renders a band's B signature values as "v0.v1. ... .v_{B-1}", the
// literal string key the store shards and groups by.
func bandKey(band []uint32) string {
	// One allocation-friendly pass: most signature values are small
	// enough that a 12-byte-per-entry estimate rarely under-allocates.
	buf := make([]byte, 0, len(band)*12)
	for i, v := range band {
		if i > 0 {
			buf = append(buf, '.')
		}
		buf = strconv.AppendUint(buf, uint64(v), 10)
	}
	return string(buf)
}
