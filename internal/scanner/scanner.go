package scanner

import (
	"context"
	"log/slog"

	"github.com/fenilsonani/orgest/internal/logging"
)

// Options configures a Scanner
type Options struct {
	Exclude  []string // directory names skipped at any depth
	Ignore   *IgnoreMatcher
	Hash     HashFunc // defaults to FingerprintFile
	Progress ProgressCallback
	Logger   *slog.Logger
}

// Scanner finds files with identical content below a root
type Scanner struct {
	opts   Options
	hash   HashFunc
	logger *slog.Logger
}

// New creates a new Scanner
func New(opts Options) *Scanner {
	hash := opts.Hash
	if hash == nil {
		hash = FingerprintFile
	}
	return &Scanner{
		opts:   opts,
		hash:   hash,
		logger: logging.OrNop(opts.Logger),
	}
}

// SetProgressCallback sets the per-file progress callback
func (s *Scanner) SetProgressCallback(cb ProgressCallback) {
	s.opts.Progress = cb
}

// Walker returns a walker for root using the scanner's exclusions
func (s *Scanner) Walker(root string) *Walker {
	return NewWalker(root, WalkOptions{Exclude: s.opts.Exclude, Ignore: s.opts.Ignore})
}

// Collect snapshots the file set a scan of root would visit
func (s *Scanner) Collect(ctx context.Context, root string) (*Listing, error) {
	return s.Walker(root).Collect(ctx)
}

// Count returns how many files a scan of root would visit
func (s *Scanner) Count(ctx context.Context, root string) (int, error) {
	listing, err := s.Collect(ctx, root)
	if err != nil {
		return 0, err
	}
	return len(listing.Files), nil
}

// Scan walks root and fingerprints every file it finds
func (s *Scanner) Scan(ctx context.Context, root string) (*ScanResult, error) {
	listing, err := s.Collect(ctx, root)
	if err != nil {
		return nil, err
	}
	return s.ScanListing(ctx, listing)
}
