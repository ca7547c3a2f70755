package text

// Options is the normalization configuration that a word list or window
// sequence is deterministic with respect to. Two calls with equal Options
// (and equal path + bytes) must produce byte-identical results; this is
// also the cache key shape used by internal/cache.
type Options struct {
	StripDiacritics bool
	XMLBaseTag      string
	XMLRemoveTags   []string
}

// Key returns a stable string encoding of o suitable for use as part of a
// cache key.
func (o Options) Key() string {
	k := "d0"
	if o.StripDiacritics {
		k = "d1"
	}
	k += ";b=" + o.XMLBaseTag + ";r="
	for _, t := range o.XMLRemoveTags {
		k += t + ","
	}
	return k
}
