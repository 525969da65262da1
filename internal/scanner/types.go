package scanner

import (
	"sort"
	"time"
)

// Fingerprint identifies file content: the hex SHA-256 of the bytes, or
// EmptyFingerprint for zero-length files.
type Fingerprint string

// EmptyFingerprint is shared by every zero-byte file, making all empty files
// duplicates of each other.
const EmptyFingerprint Fingerprint = "empty_file"

// FileInfo represents a file visited during a walk
type FileInfo struct {
	Path          string
	Size          int64
	ModTime       time.Time
	Fingerprint   Fingerprint
	CanonicalPath string // set on duplicates: the kept copy with the same content
}

// UnhashableFile records a file that could not be fingerprinted
type UnhashableFile struct {
	Path string
	Err  error
}

// ScanResult represents the result of a duplicate scan. Kept and Duplicates
// follow walk order; the first path seen for a fingerprint is the kept one.
type ScanResult struct {
	Root         string
	Kept         []FileInfo
	Duplicates   []FileInfo
	Unhashable   []UnhashableFile
	TotalScanned int // includes unhashable files
	WalkErrors   []error
}

// DuplicateGroup is a kept file together with every later copy of it
type DuplicateGroup struct {
	Fingerprint Fingerprint
	Kept        FileInfo
	Copies      []FileInfo
}

// ProgressCallback is called for every file a scan visits
type ProgressCallback func(current, total int, path string)

// DuplicateSize returns the bytes occupied by duplicate copies
func (r *ScanResult) DuplicateSize() int64 {
	var total int64
	for _, f := range r.Duplicates {
		total += f.Size
	}
	return total
}

// Groups returns one group per fingerprint that has at least one duplicate,
// ordered by the position of the kept file
func (r *ScanResult) Groups() []DuplicateGroup {
	index := make(map[Fingerprint]int)
	var groups []DuplicateGroup

	for _, dup := range r.Duplicates {
		i, ok := index[dup.Fingerprint]
		if !ok {
			i = len(groups)
			index[dup.Fingerprint] = i
			groups = append(groups, DuplicateGroup{Fingerprint: dup.Fingerprint})
		}
		groups[i].Copies = append(groups[i].Copies, dup)
	}

	keptIndex := make(map[Fingerprint]int, len(r.Kept))
	for pos, kept := range r.Kept {
		keptIndex[kept.Fingerprint] = pos
		if i, ok := index[kept.Fingerprint]; ok {
			groups[i].Kept = kept
		}
	}

	sort.SliceStable(groups, func(i, j int) bool {
		return keptIndex[groups[i].Fingerprint] < keptIndex[groups[j].Fingerprint]
	})

	return groups
}
