package scanner

import (
	"context"

	"github.com/fenilsonani/orgest/internal/logging"
)

// ScanListing fingerprints every file in listing, in order. The first file
// seen for a fingerprint is kept; later ones are duplicates. On cancellation
// the partial result is returned together with the context error.
func (s *Scanner) ScanListing(ctx context.Context, listing *Listing) (*ScanResult, error) {
	result := &ScanResult{
		Root:       listing.Root,
		WalkErrors: listing.Errors,
	}

	canonical := make(map[Fingerprint]string)
	total := len(listing.Files)

	for i, file := range listing.Files {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		result.TotalScanned++
		if s.opts.Progress != nil {
			s.opts.Progress(i+1, total, file.Path)
		}

		fp, err := s.hash(file.Path)
		if err != nil {
			s.logger.Warn("skipping unhashable file",
				logging.FieldPath, file.Path,
				logging.Error(err),
			)
			result.Unhashable = append(result.Unhashable, UnhashableFile{Path: file.Path, Err: err})
			continue
		}
		file.Fingerprint = fp

		if kept, ok := canonical[fp]; ok {
			file.CanonicalPath = kept
			result.Duplicates = append(result.Duplicates, file)
			s.logger.Debug("duplicate found",
				logging.FieldPath, file.Path,
				"canonical", kept,
			)
			continue
		}

		canonical[fp] = file.Path
		result.Kept = append(result.Kept, file)
	}

	return result, nil
}
