// Package writer persists generated layers to disk.
//
// Saving is strictly additive to a pipeline run: a failed save reports
// WRITE_FAILED but the layer remains fully usable in memory, so callers can
// retry with a corrected path or hand the layer to another sink instead.
package writer

import (
	"os"
	"path/filepath"

	"github.com/CESMikef/cadastral-automation/pkg/errors"
	"github.com/CESMikef/cadastral-automation/pkg/layer"
)

// Save writes a layer as GeoJSON to path, creating parent directories as
// needed. Content goes to a temp file in the target directory first and is
// renamed into place, so a failed save never leaves a truncated file behind.
func Save(l *layer.Layer, path string) error {
	if err := errors.ValidateOutputPath(path); err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrap(errors.ErrCodeWriteFailed, err, "create output directory %s", dir)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp*")
	if err != nil {
		return errors.Wrap(errors.ErrCodeWriteFailed, err, "create temp file in %s", dir)
	}
	defer os.Remove(tmp.Name())

	if err := layer.WriteGeoJSON(l, tmp); err != nil {
		tmp.Close()
		return errors.Wrap(errors.ErrCodeWriteFailed, err, "encode layer %q", l.Name)
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(errors.ErrCodeWriteFailed, err, "flush %s", tmp.Name())
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return errors.Wrap(errors.ErrCodeWriteFailed, err, "rename into %s", path)
	}
	return nil
}
