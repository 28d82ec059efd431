package respack

import (
	"bytes"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/klauspost/compress/zip"
)

// maxEntryBytes bounds one decompressed entry so a hostile archive
// cannot balloon memory.
const maxEntryBytes = 64 << 20

var zipMagic = []byte("PK\x03\x04")

// LooksLikeArchive reports whether an upload should be treated as a
// resource pack rather than a single image.
func LooksLikeArchive(name string, data []byte) bool {
	ext := strings.ToLower(path.Ext(name))
	if ext == ".zip" || ext == ".mcpack" {
		return true
	}
	return bytes.HasPrefix(data, zipMagic)
}

// Extract reads every file entry of a resource pack archive. Texture
// entries are flagged and role-classified. Directories and entries
// whose paths escape the archive root are skipped.
func Extract(data []byte) ([]Entry, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open resource pack: %w", err)
	}

	entries := make([]Entry, 0, len(zr.File))
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		clean := path.Clean(f.Name)
		if clean == ".." || strings.HasPrefix(clean, "../") || path.IsAbs(clean) {
			continue
		}

		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open entry %s: %w", f.Name, err)
		}
		content, err := io.ReadAll(io.LimitReader(rc, maxEntryBytes))
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("read entry %s: %w", f.Name, err)
		}

		e := Entry{Path: clean, Name: path.Base(clean), Data: content}
		if IsTexture(clean) {
			e.IsTexture = true
			e.Role = RoleOf(clean)
		}
		entries = append(entries, e)
	}
	return entries, nil
}
