// SPDX-License-Identifier: MPL-2.0

package modpack

import (
	"archive/zip"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"strings"
)

type (
	// Source reads files from one mod by slash-separated path relative to the
	// mod root. Missing files yield an error matching ErrFileNotFound.
	Source interface {
		ReadFile(name string) ([]byte, error)
	}

	// FSSource is a Source backed by an fs.FS rooted at the mod directory.
	FSSource struct {
		fsys fs.FS
	}

	// ZipSource is a Source backed by a mod archive. The archive's single
	// top-level folder is treated as the mod root.
	ZipSource struct {
		FSSource
		// Root is the top-level folder inside the archive.
		Root   string
		closer *zip.ReadCloser
	}

	// MapSource is an in-memory Source keyed by relative path.
	MapSource map[string]string
)

// NewFSSource wraps fsys as a Source.
func NewFSSource(fsys fs.FS) *FSSource {
	return &FSSource{fsys: fsys}
}

// DirSource returns a Source for an unpacked mod directory.
func DirSource(dir string) *FSSource {
	return NewFSSource(os.DirFS(dir))
}

// ReadFile implements Source.
func (s *FSSource) ReadFile(name string) ([]byte, error) {
	clean, err := cleanPath(name)
	if err != nil {
		return nil, err
	}
	data, err := fs.ReadFile(s.fsys, clean)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &FileNotFoundError{Path: clean}
		}
		return nil, err
	}
	return data, nil
}

// FS exposes the underlying filesystem.
func (s *FSSource) FS() fs.FS { return s.fsys }

// OpenZip opens a mod archive. The caller must Close it once the pipeline no
// longer needs the mod's files.
func OpenZip(archivePath string) (*ZipSource, error) {
	rc, err := zip.OpenReader(archivePath)
	if err != nil {
		return nil, fmt.Errorf("open mod archive %s: %w", archivePath, err)
	}
	src, err := newZipSource(&rc.Reader)
	if err != nil {
		_ = rc.Close()
		return nil, fmt.Errorf("open mod archive %s: %w", archivePath, err)
	}
	src.closer = rc
	return src, nil
}

// NewZipSource wraps an already opened archive. Closing the returned source is
// a no-op.
func NewZipSource(r *zip.Reader) (*ZipSource, error) {
	return newZipSource(r)
}

func newZipSource(r *zip.Reader) (*ZipSource, error) {
	root, err := archiveRoot(r)
	if err != nil {
		return nil, err
	}
	sub, err := fs.Sub(r, root)
	if err != nil {
		return nil, err
	}
	return &ZipSource{FSSource: FSSource{fsys: sub}, Root: root}, nil
}

// Close releases the archive if it was opened by OpenZip.
func (s *ZipSource) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

// ReadFile implements Source.
func (m MapSource) ReadFile(name string) ([]byte, error) {
	clean, err := cleanPath(name)
	if err != nil {
		return nil, err
	}
	content, ok := m[clean]
	if !ok {
		return nil, &FileNotFoundError{Path: clean}
	}
	return []byte(content), nil
}

// archiveRoot finds the single top-level folder every mod archive contains,
// conventionally "<name>_<version>/" or "<name>/".
func archiveRoot(r *zip.Reader) (string, error) {
	root := ""
	for _, f := range r.File {
		first, _, nested := strings.Cut(f.Name, "/")
		if !nested {
			continue
		}
		switch {
		case root == "":
			root = first
		case root != first:
			return "", fmt.Errorf("archive has more than one top-level folder (%q, %q)", root, first)
		}
	}
	if root == "" {
		return "", errors.New("archive has no top-level folder")
	}
	return root, nil
}

// cleanPath normalizes a relative path and rejects escapes from the mod root.
func cleanPath(name string) (string, error) {
	clean := path.Clean(strings.ReplaceAll(name, `\`, "/"))
	if clean == "." || !fs.ValidPath(clean) {
		return "", &FileNotFoundError{Path: name}
	}
	return clean, nil
}
