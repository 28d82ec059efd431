package respack

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/klauspost/compress/zip"

	"github.com/SteakTheStake/bonemeal/internal/hasher"
	"github.com/SteakTheStake/bonemeal/internal/labpbr"
	"github.com/SteakTheStake/bonemeal/internal/processor"
)

// ManifestName is the conversion record appended to every output pack.
const ManifestName = "bonemeal.manifest.json"

const packMetaName = "pack.mcmeta"

// DefaultPackFormat targets current resource pack consumers when the
// source archive ships no pack.mcmeta of its own.
const DefaultPackFormat = 15

// Manifest records what a conversion produced.
type Manifest struct {
	Generator   string       `json:"generator"`
	SpecVersion string       `json:"specVersion"`
	CreatedAt   string       `json:"createdAt"`
	Files       []FileRecord `json:"files"`
}

// FileRecord describes one output file.
type FileRecord struct {
	Path string `json:"path"`
	Kind string `json:"kind"` // map kind, "passthrough" or "meta"
	Size int64  `json:"size"`
	Hash string `json:"hash"`
}

type packMeta struct {
	Pack packMetaInner `json:"pack"`
}

type packMetaInner struct {
	PackFormat  int    `json:"pack_format"`
	Description string `json:"description"`
}

// mapSuffixes names generated maps next to their source texture.
var mapSuffixes = map[processor.MapKind]string{
	processor.MapBaseColor: "",
	processor.MapNormal:    "_n",
	processor.MapSpecular:  "_s",
	processor.MapHeight:    "_h",
	processor.MapAO:        "_ao",
}

// MapPath returns the output path for one generated map of a source
// texture. Generated maps are always PNG regardless of the source
// extension.
func MapPath(srcPath string, kind processor.MapKind) string {
	stem := strings.TrimSuffix(srcPath, path.Ext(srcPath))
	return stem + mapSuffixes[kind] + ".png"
}

// Writer assembles the converted archive in memory and keeps the
// manifest in sync with every written entry.
type Writer struct {
	buf        bytes.Buffer
	zw         *zip.Writer
	manifest   Manifest
	seen       map[string]bool
	packFormat int
}

// NewWriter starts an empty output pack. generator is recorded in the
// manifest, e.g. "bonemeal 1.0.0".
func NewWriter(generator string) *Writer {
	w := &Writer{seen: map[string]bool{}, packFormat: DefaultPackFormat}
	w.zw = zip.NewWriter(&w.buf)
	w.manifest = Manifest{
		Generator:   generator,
		SpecVersion: labpbr.SpecVersion,
		CreatedAt:   time.Now().UTC().Format(time.RFC3339),
	}
	return w
}

// SetPackFormat overrides the pack_format of a generated pack.mcmeta.
// It has no effect when the source archive supplies its own descriptor.
func (w *Writer) SetPackFormat(format int) {
	if format > 0 {
		w.packFormat = format
	}
}

func (w *Writer) add(p, kind string, data []byte) error {
	if w.seen[p] {
		return fmt.Errorf("duplicate output path %s", p)
	}
	w.seen[p] = true

	fw, err := w.zw.Create(p)
	if err != nil {
		return fmt.Errorf("create %s: %w", p, err)
	}
	if _, err := fw.Write(data); err != nil {
		return fmt.Errorf("write %s: %w", p, err)
	}
	w.manifest.Files = append(w.manifest.Files, FileRecord{
		Path: p,
		Kind: kind,
		Size: int64(len(data)),
		Hash: hasher.ContentHash(data),
	})
	return nil
}

// AddRaw copies a non-generated entry into the output unchanged.
func (w *Writer) AddRaw(p string, data []byte) error {
	return w.add(p, "passthrough", data)
}

// AddMaps writes every populated map of set next to the source
// texture's path, with LabPBR suffixes.
func (w *Writer) AddMaps(srcPath string, set *processor.MapSet) error {
	for _, e := range set.Entries() {
		if err := w.add(MapPath(srcPath, e.Kind), string(e.Kind), e.Data); err != nil {
			return err
		}
	}
	return nil
}

// Has reports whether an entry was already written at p.
func (w *Writer) Has(p string) bool { return w.seen[p] }

// FileCount reports how many entries have been written so far.
func (w *Writer) FileCount() int { return len(w.manifest.Files) }

// Close ensures a pack.mcmeta exists, appends the manifest and returns
// the finished archive bytes. The Writer must not be used afterwards.
func (w *Writer) Close() ([]byte, error) {
	if !w.seen[packMetaName] {
		meta := packMeta{Pack: packMetaInner{
			PackFormat:  w.packFormat,
			Description: w.manifest.Generator + " LabPBR conversion",
		}}
		data, err := json.MarshalIndent(meta, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", packMetaName, err)
		}
		if err := w.add(packMetaName, "meta", append(data, '\n')); err != nil {
			return nil, err
		}
	}

	data, err := json.MarshalIndent(w.manifest, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode manifest: %w", err)
	}
	fw, err := w.zw.Create(ManifestName)
	if err != nil {
		return nil, fmt.Errorf("create manifest: %w", err)
	}
	if _, err := fw.Write(append(data, '\n')); err != nil {
		return nil, fmt.Errorf("write manifest: %w", err)
	}

	if err := w.zw.Close(); err != nil {
		return nil, fmt.Errorf("close archive: %w", err)
	}
	return w.buf.Bytes(), nil
}
