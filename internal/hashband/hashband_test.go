package hashband

import "testing"

func TestBandsCount(t *testing.T) {
	sig := make([]uint32, 20)
	for i := range sig {
		sig[i] = uint32(i)
	}
	cfg := Config{B: 4, T: 2}
	bands := Bands(sig, cfg)
	want := NumBands(len(sig), cfg)
	if len(bands) != want {
		t.Fatalf("want %d bands, got %d", want, len(bands))
	}
	for i, b := range bands {
		if b.Offset != i*cfg.T {
			t.Fatalf("band %d: want offset %d, got %d", i, i*cfg.T, b.Offset)
		}
	}
}

func TestBandsShortSignature(t *testing.T) {
	sig := []uint32{1, 2}
	cfg := Config{B: 4, T: 1}
	if bands := Bands(sig, cfg); bands != nil {
		t.Fatalf("want nil for a signature shorter than B, got %v", bands)
	}
}

func TestBandsNonPositiveParams(t *testing.T) {
	sig := []uint32{1, 2, 3, 4}
	if bands := Bands(sig, Config{B: 0, T: 1}); bands != nil {
		t.Fatalf("want nil for B<=0, got %v", bands)
	}
	if bands := Bands(sig, Config{B: 1, T: 0}); bands != nil {
		t.Fatalf("want nil for T<=0, got %v", bands)
	}
}

func TestBandKeyIdentifiesEqualSlices(t *testing.T) {
	sig1 := []uint32{1, 2, 3, 4, 5, 6}
	sig2 := []uint32{9, 1, 2, 3, 10, 10}
	cfg := Config{B: 3, T: 3}
	b1 := Bands(sig1, cfg)
	b2 := Bands(sig2, cfg)
	if len(b1) != 2 || len(b2) != 2 {
		t.Fatalf("expected 2 bands each, got %d and %d", len(b1), len(b2))
	}
	// sig1's first band (1,2,3) and sig2's first band (9,1,2) differ...
	if b1[0].BandKey == b2[0].BandKey {
		t.Fatalf("unrelated bands should not share a key")
	}
	// ...and so do the second bands, (4,5,6) and (3,10,10), so construct a
	// genuine match instead.
	sig3 := []uint32{1, 2, 3}
	sig4 := []uint32{1, 2, 3}
	k3 := Bands(sig3, Config{B: 3, T: 3})
	k4 := Bands(sig4, Config{B: 3, T: 3})
	if k3[0].BandKey != k4[0].BandKey {
		t.Fatalf("identical band contents must produce identical keys: %q vs %q", k3[0].BandKey, k4[0].BandKey)
	}
}

func TestNumBandsMatchesFormula(t *testing.T) {
	cfg := Config{B: 4, T: 3}
	if n := NumBands(16, cfg); n != 5 {
		t.Fatalf("want 5 bands for k=16,B=4,T=3, got %d", n)
	}
	if n := NumBands(3, cfg); n != 0 {
		t.Fatalf("want 0 bands when k<B, got %d", n)
	}
}
