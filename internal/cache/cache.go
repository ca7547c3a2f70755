// Package cache implements the content-addressed, read-mostly caches for
// word lists, window lists, and MinHash signatures that the rest of the
// pipeline shares across worker goroutines. Entries are produced once per
// (path, normalization options) key and are safe for concurrent readers
// once written, following a write-once, read-many convention for the
// per-file signature cache.
package cache

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/golang/snappy"

	"github.com/kshedden/intertext/internal/config"
	"github.com/kshedden/intertext/internal/fingerprint"
	"github.com/kshedden/intertext/internal/text"
)

// Cache memoizes word lists, windows, and signatures for a single pipeline
// run. It is safe for concurrent use: each distinct key is computed by at
// most one goroutine (subsequent callers block on the same in-flight
// computation), so a given cache entry is written by at most one goroutine.
type Cache struct {
	cacheDir string
	opts     text.Options
	fp       fingerprint.Fingerprinter
	fpCfg    fingerprint.Config
	winLen   int
	slideLen int

	mu      sync.Mutex
	windows map[string]*windowEntry
	sigs    map[string]*sigEntry
}

type windowEntry struct {
	once sync.Once
	val  []string
	err  error
}

type sigEntry struct {
	once sync.Once
	val  [][]uint32
	err  error
}

// New creates a Cache rooted at cacheDir, using opts for word/window
// normalization, winLen/slideLen for windowing, and fp/fpCfg for
// signature computation. A Cache is scoped to a single pipeline run, so
// these parameters are fixed for its lifetime.
func New(cacheDir string, opts text.Options, winLen, slideLen int, fp fingerprint.Fingerprinter, fpCfg fingerprint.Config) *Cache {
	if fp == nil {
		fp = fingerprint.Default{}
	}
	return &Cache{
		cacheDir: cacheDir,
		opts:     opts,
		fp:       fp,
		fpCfg:    fpCfg,
		winLen:   winLen,
		slideLen: slideLen,
		windows:  make(map[string]*windowEntry),
		sigs:     make(map[string]*sigEntry),
	}
}

// Windows returns the window list for path, computing and memoizing it on
// first use, using the windowing parameters the Cache was constructed
// with.
func (c *Cache) Windows(path string) ([]string, error) {
	key := fmt.Sprintf("%s|%s|%d|%d", path, c.opts.Key(), c.winLen, c.slideLen)

	c.mu.Lock()
	entry, ok := c.windows[key]
	if !ok {
		entry = &windowEntry{}
		c.windows[key] = entry
	}
	c.mu.Unlock()

	entry.once.Do(func() {
		entry.val, entry.err = text.Windows(path, c.opts, c.winLen, c.slideLen)
	})
	return entry.val, entry.err
}

// Signatures returns the per-window MinHash signatures for path, loading
// them from the on-disk signature cache if present, or computing and
// persisting them otherwise. Staleness is not detected automatically: a
// stale cache entry on disk from an earlier run with different parameters
// is the caller's responsibility to purge.
func (c *Cache) Signatures(path string) ([][]uint32, error) {
	key := fmt.Sprintf("%s|%s|%d|%d", path, c.opts.Key(), c.fpCfg.K, c.fpCfg.C)

	c.mu.Lock()
	entry, ok := c.sigs[key]
	if !ok {
		entry = &sigEntry{}
		c.sigs[key] = entry
	}
	c.mu.Unlock()

	entry.once.Do(func() {
		entry.val, entry.err = c.loadOrComputeSignatures(path)
	})
	return entry.val, entry.err
}

func (c *Cache) loadOrComputeSignatures(path string) ([][]uint32, error) {
	cachePath := signatureCachePath(c.cacheDir, path)

	if sig, err := readSignatureFile(cachePath, c.fpCfg.K); err == nil {
		return sig, nil
	}
	// Cache miss or corruption: recompute and overwrite.

	windows, err := c.Windows(path)
	if err != nil {
		return nil, err
	}

	sigs := make([][]uint32, len(windows))
	for i, w := range windows {
		sig, err := c.fp.Signature(w, c.fpCfg)
		if err != nil {
			return nil, fmt.Errorf("computing signature for %s window %d: %w", path, i, err)
		}
		sigs[i] = sig
	}

	if err := writeSignatureFile(cachePath, sigs); err != nil {
		// Treat write failure as non-fatal: signatures were still
		// computed successfully, only the cache optimization is lost.
		return sigs, nil
	}
	return sigs, nil
}

func signatureCachePath(cacheDir, path string) string {
	return config.EscapedCachePath(cacheDir, "minhashes", path, ".sig.sz")
}

// writeSignatureFile persists sigs as a snappy-compressed binary blob:
// uint32 numWindows, uint32 K, then numWindows*K little-endian uint32
// values.
func writeSignatureFile(path string, sigs [][]uint32) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	fid, err := os.Create(tmp)
	if err != nil {
		return err
	}
	wtr := snappy.NewBufferedWriter(fid)
	bw := bufio.NewWriter(wtr)

	k := 0
	if len(sigs) > 0 {
		k = len(sigs[0])
	}
	var hdr [8]byte
	binary.LittleEndian.PutUint32(hdr[0:4], uint32(len(sigs)))
	binary.LittleEndian.PutUint32(hdr[4:8], uint32(k))
	if _, err := bw.Write(hdr[:]); err != nil {
		fid.Close()
		return err
	}
	var buf [4]byte
	for _, sig := range sigs {
		for _, v := range sig {
			binary.LittleEndian.PutUint32(buf[:], v)
			if _, err := bw.Write(buf[:]); err != nil {
				fid.Close()
				return err
			}
		}
	}
	if err := bw.Flush(); err != nil {
		fid.Close()
		return err
	}
	if err := wtr.Close(); err != nil {
		fid.Close()
		return err
	}
	if err := fid.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func readSignatureFile(path string, expectK int) ([][]uint32, error) {
	fid, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fid.Close()

	rdr := snappy.NewReader(fid)
	br := bufio.NewReader(rdr)

	var hdr [8]byte
	if _, err := readFull(br, hdr[:]); err != nil {
		return nil, fmt.Errorf("corrupt signature cache header: %w", err)
	}
	numWindows := int(binary.LittleEndian.Uint32(hdr[0:4]))
	k := int(binary.LittleEndian.Uint32(hdr[4:8]))
	if expectK != 0 && k != expectK {
		return nil, fmt.Errorf("signature cache K mismatch: have %d, want %d", k, expectK)
	}

	sigs := make([][]uint32, numWindows)
	buf := make([]byte, 4)
	for i := 0; i < numWindows; i++ {
		sig := make([]uint32, k)
		for j := 0; j < k; j++ {
			if _, err := readFull(br, buf); err != nil {
				return nil, fmt.Errorf("corrupt signature cache body: %w", err)
			}
			sig[j] = binary.LittleEndian.Uint32(buf)
		}
		sigs[i] = sig
	}
	return sigs, nil
}

func readFull(r *bufio.Reader, buf []byte) (int, error) {
	n := 0
	for n < len(buf) {
		m, err := r.Read(buf[n:])
		n += m
		if err != nil {
			return n, err
		}
	}
	return n, nil
}

