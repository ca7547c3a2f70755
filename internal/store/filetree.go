package store

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/golang/snappy"
	"golang.org/x/sys/unix"
)

// FileTree is the file-tree Store backend: each relation is sharded
// across small append-only files so that concurrent writers touching
// different shards never contend, and a reader reconstructs grouping and
// ordering by loading a shard and sorting it in memory. Candidate files
// do not enforce uniqueness on append; the generator deduplicates before
// writing, and StreamCandidateWindows drops duplicate rows on read.
type FileTree struct {
	root string
	mu   sync.Mutex // serializes appends across shards, matching "the writer serializes commits"
}

// OpenFileTree creates the root directory structure (if absent) and
// returns a FileTree store rooted there.
func OpenFileTree(root string) (*FileTree, error) {
	for _, d := range []string{"hashbands", "candidates", "matches"} {
		if err := os.MkdirAll(filepath.Join(root, d), 0o755); err != nil {
			return nil, fmt.Errorf("creating file-tree directory %s: %w", d, err)
		}
	}
	return &FileTree{root: root}, nil
}

// hashbandShardPath returns the two-level shard path for a band key, split on
// its first four characters: <first2>/<next2>.
func (f *FileTree) hashbandShardPath(bandKey string) string {
	first2, next2 := "__", "__"
	if len(bandKey) >= 2 {
		first2 = bandKey[:2]
	} else if len(bandKey) == 1 {
		first2 = bandKey + "_"
	}
	rest := bandKey
	if len(rest) > 2 {
		rest = rest[2:]
	} else {
		rest = ""
	}
	if len(rest) >= 2 {
		next2 = rest[:2]
	} else if len(rest) == 1 {
		next2 = rest + "_"
	}
	return filepath.Join(f.root, "hashbands", first2, next2)
}

func (f *FileTree) pairShardPath(kind string, docA, docB int) string {
	return filepath.Join(f.root, kind, strconv.Itoa(docA), strconv.Itoa(docB))
}

// appendLines appends lines (without trailing newline) to a snappy-framed
// file at path, taking an advisory exclusive flock for the duration so
// that multiple worker processes sharing a file-tree store do not
// interleave writes; goroutines within this process are additionally
// serialized by f.mu.
func appendLines(path string, lines []string) error {
	if len(lines) == 0 {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	fid, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer fid.Close()

	if err := unix.Flock(int(fid.Fd()), unix.LOCK_EX); err != nil {
		return fmt.Errorf("locking %s: %w", path, err)
	}
	defer unix.Flock(int(fid.Fd()), unix.LOCK_UN)

	w := snappy.NewBufferedWriter(fid)
	bw := bufio.NewWriter(w)
	for _, l := range lines {
		if _, err := bw.WriteString(l); err != nil {
			return err
		}
		if err := bw.WriteByte('\n'); err != nil {
			return err
		}
	}
	if err := bw.Flush(); err != nil {
		return err
	}
	return w.Close()
}

// readLines reads and decompresses every snappy frame appended to path.
// Each call to appendLines wrote one independent snappy stream, so frames
// are read back to back until EOF.
func readLines(path string) ([]string, error) {
	fid, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer fid.Close()

	var out []string
	for {
		r := snappy.NewReader(fid)
		sc := bufio.NewScanner(r)
		sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
		got := false
		for sc.Scan() {
			got = true
			out = append(out, sc.Text())
		}
		if !got {
			break
		}
	}
	return out, nil
}

func (f *FileTree) AppendHashbands(rows []HashbandRow) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	byShard := map[string][]string{}
	for _, r := range rows {
		path := f.hashbandShardPath(r.BandKey)
		line := fmt.Sprintf("%s\t%d\t%d", r.BandKey, r.DocID, r.WindowID)
		byShard[path] = append(byShard[path], line)
	}
	for path, lines := range byShard {
		if err := appendLines(path, lines); err != nil {
			return err
		}
	}
	return nil
}

func (f *FileTree) StreamBandsMultiDoc(fn func(bandKey string, postings []Posting) error) error {
	shardDirs, err := walkLeafDirs(filepath.Join(f.root, "hashbands"))
	if err != nil {
		return err
	}

	grouped := map[string][]Posting{}
	for _, shard := range shardDirs {
		lines, err := readLines(shard)
		if err != nil {
			return err
		}
		for _, line := range lines {
			parts := strings.SplitN(line, "\t", 3)
			if len(parts) != 3 {
				continue
			}
			docID, err1 := strconv.Atoi(parts[1])
			winID, err2 := strconv.Atoi(parts[2])
			if err1 != nil || err2 != nil {
				continue
			}
			grouped[parts[0]] = append(grouped[parts[0]], Posting{DocID: docID, WindowID: winID})
		}
	}

	keys := make([]string, 0, len(grouped))
	for k := range grouped {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		postings := grouped[k]
		if distinctDocCount(postings) < 2 {
			continue
		}
		if err := fn(k, postings); err != nil {
			return err
		}
	}
	return nil
}

func (f *FileTree) AppendCandidates(rows []CandidateRow) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	byShard := map[string][]string{}
	for _, r := range rows {
		path := f.pairShardPath("candidates", r.DocA, r.DocB)
		line := fmt.Sprintf("%d\t%d", r.WinA, r.WinB)
		byShard[path] = append(byShard[path], line)
	}
	for path, lines := range byShard {
		if err := appendLines(path, lines); err != nil {
			return err
		}
	}
	return nil
}

func (f *FileTree) StreamCandidatePairs(fn func(docA, docB int) error) error {
	pairs, err := walkPairDirs(filepath.Join(f.root, "candidates"))
	if err != nil {
		return err
	}
	for _, p := range pairs {
		if err := fn(p[0], p[1]); err != nil {
			return err
		}
	}
	return nil
}

func (f *FileTree) StreamCandidateWindows(docA, docB int, fn func(winA, winB int) error) error {
	path := f.pairShardPath("candidates", docA, docB)
	lines, err := readLines(path)
	if err != nil {
		return err
	}
	seen := map[[2]int]struct{}{}
	for _, line := range lines {
		parts := strings.SplitN(line, "\t", 2)
		if len(parts) != 2 {
			continue
		}
		wa, err1 := strconv.Atoi(parts[0])
		wb, err2 := strconv.Atoi(parts[1])
		if err1 != nil || err2 != nil {
			continue
		}
		key := [2]int{wa, wb}
		if _, ok := seen[key]; ok {
			continue // set semantics enforced here, on read
		}
		seen[key] = struct{}{}
		if err := fn(wa, wb); err != nil {
			return err
		}
	}
	return nil
}

func (f *FileTree) AppendMatches(rows []MatchRow) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	byShard := map[string][]string{}
	for _, r := range rows {
		path := f.pairShardPath("matches", r.DocA, r.DocB)
		line := fmt.Sprintf("%d\t%d\t%d", r.WinA, r.WinB, r.Sim)
		byShard[path] = append(byShard[path], line)
	}
	for path, lines := range byShard {
		if err := appendLines(path, lines); err != nil {
			return err
		}
	}
	return nil
}

func (f *FileTree) StreamMatchPairs(fn func(docA, docB int) error) error {
	pairs, err := walkPairDirs(filepath.Join(f.root, "matches"))
	if err != nil {
		return err
	}
	for _, p := range pairs {
		if err := fn(p[0], p[1]); err != nil {
			return err
		}
	}
	return nil
}

func (f *FileTree) StreamMatchRows(docA, docB int, fn func(MatchRow) error) error {
	path := f.pairShardPath("matches", docA, docB)
	lines, err := readLines(path)
	if err != nil {
		return err
	}
	for _, line := range lines {
		r, ok := parseMatchLine(line, docA, docB)
		if !ok {
			continue
		}
		if err := fn(r); err != nil {
			return err
		}
	}
	return nil
}

func (f *FileTree) StreamAllMatches(fn func(MatchRow) error) error {
	pairs, err := walkPairDirs(filepath.Join(f.root, "matches"))
	if err != nil {
		return err
	}
	for _, p := range pairs {
		if err := f.StreamMatchRows(p[0], p[1], fn); err != nil {
			return err
		}
	}
	return nil
}

// DeleteMatchesWithEndpoint rewrites every match shard, dropping rows
// whose either endpoint is in endpoints. The file-tree backend has no
// in-place delete, so deletion is a filtered rewrite per shard.
func (f *FileTree) DeleteMatchesWithEndpoint(endpoints map[NodeID]struct{}) error {
	if len(endpoints) == 0 {
		return nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	pairs, err := walkPairDirs(filepath.Join(f.root, "matches"))
	if err != nil {
		return err
	}
	for _, p := range pairs {
		docA, docB := p[0], p[1]
		path := f.pairShardPath("matches", docA, docB)
		lines, err := readLines(path)
		if err != nil {
			return err
		}
		kept := make([]string, 0, len(lines))
		for _, line := range lines {
			r, ok := parseMatchLine(line, docA, docB)
			if !ok {
				continue
			}
			_, aHit := endpoints[Node(r.DocA, r.WinA)]
			_, bHit := endpoints[Node(r.DocB, r.WinB)]
			if aHit || bHit {
				continue
			}
			kept = append(kept, fmt.Sprintf("%d\t%d\t%d", r.WinA, r.WinB, r.Sim))
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return err
		}
		if err := appendLines(path, kept); err != nil {
			return err
		}
	}
	return nil
}

func (f *FileTree) Close() error { return nil }

func parseMatchLine(line string, docA, docB int) (MatchRow, bool) {
	parts := strings.SplitN(line, "\t", 3)
	if len(parts) != 3 {
		return MatchRow{}, false
	}
	wa, err1 := strconv.Atoi(parts[0])
	wb, err2 := strconv.Atoi(parts[1])
	sim, err3 := strconv.Atoi(parts[2])
	if err1 != nil || err2 != nil || err3 != nil {
		return MatchRow{}, false
	}
	return MatchRow{DocA: docA, DocB: docB, WinA: wa, WinB: wb, Sim: sim}, true
}

// walkLeafDirs lists the paths of every shard file two directory levels
// below root (root/first2/next2), matching the hashband shard layout.
func walkLeafDirs(root string) ([]string, error) {
	var out []string
	firstLevel, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	for _, d1 := range firstLevel {
		if !d1.IsDir() {
			continue
		}
		sub := filepath.Join(root, d1.Name())
		secondLevel, err := os.ReadDir(sub)
		if err != nil {
			return nil, err
		}
		for _, d2 := range secondLevel {
			if d2.IsDir() {
				continue
			}
			out = append(out, filepath.Join(sub, d2.Name()))
		}
	}
	return out, nil
}

// walkPairDirs lists the (doc_a, doc_b) pairs present as files two levels
// below root (root/doc_a/doc_b), sorted lexicographically.
func walkPairDirs(root string) ([][2]int, error) {
	var out [][2]int
	firstLevel, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	for _, d1 := range firstLevel {
		if !d1.IsDir() {
			continue
		}
		docA, err := strconv.Atoi(d1.Name())
		if err != nil {
			continue
		}
		sub := filepath.Join(root, d1.Name())
		secondLevel, err := os.ReadDir(sub)
		if err != nil {
			return nil, err
		}
		for _, d2 := range secondLevel {
			if d2.IsDir() {
				continue
			}
			docB, err := strconv.Atoi(d2.Name())
			if err != nil {
				continue
			}
			out = append(out, [2]int{docA, docB})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i][0] != out[j][0] {
			return out[i][0] < out[j][0]
		}
		return out[i][1] < out[j][1]
	})
	return out, nil
}
