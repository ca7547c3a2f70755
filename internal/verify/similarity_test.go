package verify

import "testing"

func TestLongestCommonSubstring(t *testing.T) {
	ai, bi, l := longestCommonSubstring("abcdef", "zzcdeyy")
	if l != 3 {
		t.Fatalf("want length 3 (\"cde\"), got %d", l)
	}
	if "abcdef"[ai:ai+l] != "cde" {
		t.Fatalf("want substring at a-offset to be \"cde\", got %q", "abcdef"[ai:ai+l])
	}
	if "zzcdeyy"[bi:bi+l] != "cde" {
		t.Fatalf("want substring at b-offset to be \"cde\", got %q", "zzcdeyy"[bi:bi+l])
	}
}

func TestLongestCommonSubstringNoOverlap(t *testing.T) {
	_, _, l := longestCommonSubstring("abc", "xyz")
	if l != 0 {
		t.Fatalf("want length 0 for disjoint alphabets, got %d", l)
	}
}

func TestRatioIdenticalStrings(t *testing.T) {
	s := "the quick brown fox"
	if got := (Ratio{}).Score(s, s); got != 100 {
		t.Fatalf("want 100 for identical strings, got %v", got)
	}
}

func TestRatioEmptyStrings(t *testing.T) {
	if got := (Ratio{}).Score("", ""); got != 100 {
		t.Fatalf("want 100 for two empty strings, got %v", got)
	}
}

func TestRatioDisjointStrings(t *testing.T) {
	if got := (Ratio{}).Score("abc", "xyz"); got != 0 {
		t.Fatalf("want 0 for strings sharing no substring, got %v", got)
	}
}

func TestRatioPartialOverlapBetweenZeroAndHundred(t *testing.T) {
	got := (Ratio{}).Score("the quick brown fox jumps", "the slow brown fox sleeps")
	if got <= 0 || got >= 100 {
		t.Fatalf("want a partial score strictly between 0 and 100, got %v", got)
	}
}

func TestGreedyIdenticalStrings(t *testing.T) {
	s := "the quick brown fox jumps over the lazy dog"
	if got := (Greedy{MinLen: 4}).Score(s, s); got != 100 {
		t.Fatalf("want 100 for identical strings, got %v", got)
	}
}

func TestGreedyIgnoresMatchesBelowMinLen(t *testing.T) {
	// "ab" appears in both but is shorter than MinLen, so it should never
	// be counted and the score should be 0.
	got := Greedy{MinLen: 4}.Score("xxabxx", "yyabyy")
	if got != 0 {
		t.Fatalf("want 0 when the only shared substring is shorter than MinLen, got %v", got)
	}
}

func TestGreedyDefaultMinLen(t *testing.T) {
	// MinLen unset should default to 4, not 0.
	got := Greedy{}.Score("xxabxx", "yyabyy")
	if got != 0 {
		t.Fatalf("want 0 under the default MinLen of 4, got %v", got)
	}
}
