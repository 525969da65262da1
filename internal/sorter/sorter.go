// Package sorter files media into the images and videos folders and sends
// everything else to the trash folder.
package sorter

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fenilsonani/orgest/internal/fsx"
	"github.com/fenilsonani/orgest/internal/logging"
	"github.com/fenilsonani/orgest/internal/stage"
)

// Class is the bucket a file is sorted into
type Class int

const (
	Unclassified Class = iota
	Image
	Video
	Pending // waits for the converter and stays in place
)

func (c Class) String() string {
	switch c {
	case Image:
		return "image"
	case Video:
		return "video"
	case Pending:
		return "pending"
	default:
		return "unclassified"
	}
}

// Result reports what a sort pass did
type Result struct {
	stage.Base
	Total   int
	Images  int
	Videos  int
	Trash   int
	Pending map[string]int // keyed by extension without the dot
}

// Processed counts files moved into any destination folder
func (r *Result) Processed() int { return r.Images + r.Videos + r.Trash }

// Summary implements stage.Outcome
func (r *Result) Summary() []stage.Field {
	fields := []stage.Field{
		{Label: "Files examined", Value: fmt.Sprint(r.Total)},
		{Label: "Images", Value: fmt.Sprint(r.Images)},
		{Label: "Videos", Value: fmt.Sprint(r.Videos)},
		{Label: "Moved to trash", Value: fmt.Sprint(r.Trash)},
	}

	kinds := make([]string, 0, len(r.Pending))
	for kind := range r.Pending {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	for _, kind := range kinds {
		fields = append(fields, stage.Field{
			Label: "Pending " + strings.ToUpper(kind),
			Value: fmt.Sprint(r.Pending[kind]),
		})
	}
	return append(fields, r.BaseSummary()...)
}

// Classifier maps file names to classes by lowercase extension
type Classifier struct {
	classes map[string]Class
}

// NewClassifier builds a classifier from extension lists. A later list wins
// when an extension appears twice, so pending extensions always stay put.
func NewClassifier(images, videos, pending []string) *Classifier {
	c := &Classifier{classes: make(map[string]Class)}
	for _, ext := range images {
		c.classes[strings.ToLower(ext)] = Image
	}
	for _, ext := range videos {
		c.classes[strings.ToLower(ext)] = Video
	}
	for _, ext := range pending {
		c.classes[strings.ToLower(ext)] = Pending
	}
	return c
}

// Classify returns the class for name
func (c *Classifier) Classify(name string) Class {
	return c.classes[strings.ToLower(filepath.Ext(name))]
}

// Sorter moves files into the images, videos and trash folders
type Sorter struct {
	env        stage.Env
	mover      *fsx.Mover
	classifier *Classifier
}

// New creates a Sorter
func New(env stage.Env) *Sorter {
	env = env.WithDefaults()
	s := env.Config.Sorting
	return &Sorter{
		env:        env,
		mover:      env.Mover(),
		classifier: NewClassifier(s.ImageExtensions, s.VideoExtensions, s.PendingExtensions),
	}
}

// Run sorts every file below root outside the reserved folders
func (s *Sorter) Run(ctx context.Context, root string) *Result {
	start := time.Now()
	res := &Result{Base: stage.Base{Stage: stage.Sort}, Pending: make(map[string]int)}
	defer func() { res.Duration = time.Since(start) }()

	folders := s.env.Config.Folders
	logger := s.env.Logger.With(logging.FieldStage, stage.Sort)

	listing, err := s.env.Walk(ctx, root, s.env.Config.ReservedFolders()...)
	if err != nil {
		if ctx.Err() != nil {
			res.Interrupt(err)
		} else {
			res.Err = err
		}
		return res
	}

	res.Total = len(listing.Files)
	tracker := s.env.Progress.Start(stage.Sort, res.Total)

	for _, file := range listing.Files {
		if err := ctx.Err(); err != nil {
			res.Interrupt(err)
			tracker.Done(err)
			return res
		}

		class := s.classifier.Classify(file.Path)
		var dest string
		switch class {
		case Pending:
			kind := strings.TrimPrefix(strings.ToLower(filepath.Ext(file.Path)), ".")
			res.Pending[kind]++
			logger.Debug("left for conversion", logging.FieldPath, file.Path)
			tracker.Step(file.Path, true)
			continue
		case Image:
			dest = folders.Images
		case Video:
			dest = folders.Videos
		default:
			dest = folders.Trash
		}

		moved := s.mover.Move(file.Path, filepath.Join(root, dest))
		tracker.Step(file.Path, moved.Success)
		if !moved.Success {
			res.AddFailure(moved.Err)
			logger.Warn("failed to sort file",
				logging.FieldPath, file.Path,
				logging.Error(moved.Err),
			)
			continue
		}

		switch class {
		case Image:
			res.Images++
		case Video:
			res.Videos++
		default:
			res.Trash++
		}
		logger.Debug("sorted file",
			logging.FieldPath, file.Path,
			logging.FieldDest, moved.Destination,
			"class", class.String(),
			"renamed", moved.Renamed,
		)
	}
	tracker.Done(nil)

	logger.Info("sorting finished",
		"images", res.Images,
		"videos", res.Videos,
		"trash", res.Trash,
		"failures", len(res.Failures),
	)
	return res
}
