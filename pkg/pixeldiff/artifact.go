package pixeldiff

import (
	"image"
	"path/filepath"

	"github.com/menta2k/visual-assert/internal/utils"
	"github.com/menta2k/visual-assert/pkg/processing"
)

// FileArtifact writes diff rasters to a fixed path.
type FileArtifact struct {
	processor *processing.Processor
	Path      string
	Format    string
}

// NewFileArtifact creates a writer for path in the given format (png or webp).
func NewFileArtifact(p *processing.Processor, path, format string) *FileArtifact {
	if format == "" {
		format = utils.GetFileExtension(path)
	}
	return &FileArtifact{processor: p, Path: path, Format: format}
}

// WriteDiff saves img, creating the parent directory if needed.
func (f *FileArtifact) WriteDiff(img image.Image) error {
	if err := utils.EnsureDir(filepath.Dir(f.Path)); err != nil {
		return err
	}
	return f.processor.SaveImage(img, f.Path, f.Format, 100, true)
}
