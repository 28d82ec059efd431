package respack

import (
	"bytes"
	"encoding/json"
	"sort"
	"testing"

	"github.com/klauspost/compress/zip"

	"github.com/SteakTheStake/bonemeal/internal/hasher"
	"github.com/SteakTheStake/bonemeal/internal/labpbr"
	"github.com/SteakTheStake/bonemeal/internal/processor"
)

func buildZip(t *testing.T, files map[string][]byte) []byte {
	t.Helper()
	names := make([]string, 0, len(files))
	for n := range files {
		names = append(names, n)
	}
	sort.Strings(names)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, n := range names {
		fw, err := zw.Create(n)
		if err != nil {
			t.Fatalf("create %s: %v", n, err)
		}
		if _, err := fw.Write(files[n]); err != nil {
			t.Fatalf("write %s: %v", n, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}

func findEntry(entries []Entry, p string) *Entry {
	for i := range entries {
		if entries[i].Path == p {
			return &entries[i]
		}
	}
	return nil
}

func TestExtractClassification(t *testing.T) {
	data := buildZip(t, map[string][]byte{
		"pack.mcmeta":                            []byte(`{"pack":{}}`),
		"README.txt":                             []byte("hello"),
		"assets/":                                nil,
		"assets/bm/textures/block/stone.png":     []byte("png1"),
		"assets/bm/textures/block/stone_n.png":   []byte("png2"),
		"assets/bm/textures/block/lamp_e.png":    []byte("png3"),
		"assets/bm/textures/block/brick.TGA":     []byte("tga1"),
	})

	entries, err := Extract(data)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(entries) != 6 {
		t.Fatalf("entries = %d, want 6 (directory skipped)", len(entries))
	}

	textures := 0
	for _, e := range entries {
		if e.IsTexture {
			textures++
		}
	}
	if textures != 4 {
		t.Errorf("texture entries = %d, want 4", textures)
	}

	normal := findEntry(entries, "assets/bm/textures/block/stone_n.png")
	if normal == nil {
		t.Fatal("stone_n.png missing")
	}
	if normal.Name != "stone_n.png" {
		t.Errorf("Name = %q, want basename", normal.Name)
	}
	if !normal.IsTexture || normal.Role != RoleNormal {
		t.Errorf("stone_n.png classified as %v/%q", normal.IsTexture, normal.Role)
	}
	if string(normal.Data) != "png2" {
		t.Errorf("Data = %q, want original bytes", normal.Data)
	}

	if meta := findEntry(entries, "pack.mcmeta"); meta == nil || meta.IsTexture {
		t.Errorf("pack.mcmeta entry = %+v, want non-texture", meta)
	}
	if tga := findEntry(entries, "assets/bm/textures/block/brick.TGA"); tga == nil || !tga.IsTexture || tga.Role != RoleBase {
		t.Errorf("uppercase TGA entry = %+v, want base texture", tga)
	}
}

func TestExtractSkipsUnsafePaths(t *testing.T) {
	data := buildZip(t, map[string][]byte{
		"../evil.png": []byte("x"),
		"/abs.png":    []byte("y"),
		"ok.png":      []byte("z"),
	})
	entries, err := Extract(data)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(entries) != 1 || entries[0].Path != "ok.png" {
		t.Errorf("entries = %+v, want only ok.png", entries)
	}
}

func TestExtractCorruptArchive(t *testing.T) {
	if _, err := Extract([]byte("not a zip at all")); err == nil {
		t.Fatal("corrupt archive accepted")
	}
}

func TestRoleOf(t *testing.T) {
	cases := []struct {
		path string
		want Role
	}{
		{"stone.png", RoleBase},
		{"stone_n.png", RoleNormal},
		{"a/b/stone_s.png", RoleSpecular},
		{"lamp_e.png", RoleEmission},
		{"cliff_h.png", RoleHeight},
		{"dirt_snow.png", RoleBase},
		{"ends_in_ns.png", RoleBase},
	}
	for _, tc := range cases {
		if got := RoleOf(tc.path); got != tc.want {
			t.Errorf("RoleOf(%q) = %q, want %q", tc.path, got, tc.want)
		}
	}
}

func TestLooksLikeArchive(t *testing.T) {
	if !LooksLikeArchive("pack.zip", nil) {
		t.Error("zip extension not recognized")
	}
	if !LooksLikeArchive("pack.mcpack", nil) {
		t.Error("mcpack extension not recognized")
	}
	if !LooksLikeArchive("upload.bin", []byte("PK\x03\x04rest")) {
		t.Error("zip magic not recognized")
	}
	if LooksLikeArchive("image.png", []byte("\x89PNG")) {
		t.Error("png treated as archive")
	}
}

func TestWriterRoundTrip(t *testing.T) {
	w := NewWriter("bonemeal test")
	if err := w.AddRaw("pack.mcmeta", []byte(`{"pack":{"pack_format":9,"description":"orig"}}`)); err != nil {
		t.Fatalf("AddRaw: %v", err)
	}
	if err := w.AddRaw("assets/bm/sounds/drip.ogg", []byte("oggdata")); err != nil {
		t.Fatalf("AddRaw: %v", err)
	}
	set := &processor.MapSet{
		BaseColor: []byte("basecolor-bytes"),
		Normal:    []byte("normal-bytes"),
		Specular:  []byte("specular-bytes"),
		Height:    []byte{},
		AO:        []byte{},
	}
	if err := w.AddMaps("assets/bm/textures/block/stone.png", set); err != nil {
		t.Fatalf("AddMaps: %v", err)
	}

	out, err := w.Close()
	if err != nil {
		t.Fatalf("Close: %v", err)
	}
	entries, err := Extract(out)
	if err != nil {
		t.Fatalf("Extract output: %v", err)
	}

	for p, wantRole := range map[string]Role{
		"assets/bm/textures/block/stone.png":   RoleBase,
		"assets/bm/textures/block/stone_n.png": RoleNormal,
		"assets/bm/textures/block/stone_s.png": RoleSpecular,
	} {
		e := findEntry(entries, p)
		if e == nil {
			t.Fatalf("output missing %s", p)
		}
		if e.Role != wantRole {
			t.Errorf("%s role = %q, want %q", p, e.Role, wantRole)
		}
	}
	if e := findEntry(entries, "assets/bm/textures/block/stone_h.png"); e != nil {
		t.Error("empty height map written to the archive")
	}

	meta := findEntry(entries, "pack.mcmeta")
	if meta == nil || !bytes.Contains(meta.Data, []byte(`"pack_format":9`)) {
		t.Errorf("source pack.mcmeta not preserved: %s", meta.Data)
	}

	mf := findEntry(entries, ManifestName)
	if mf == nil {
		t.Fatal("manifest missing from output")
	}
	var manifest Manifest
	if err := json.Unmarshal(mf.Data, &manifest); err != nil {
		t.Fatalf("manifest JSON: %v", err)
	}
	if manifest.Generator != "bonemeal test" || manifest.SpecVersion != labpbr.SpecVersion {
		t.Errorf("manifest header = %q/%q", manifest.Generator, manifest.SpecVersion)
	}
	var normalRec *FileRecord
	for i := range manifest.Files {
		if manifest.Files[i].Path == "assets/bm/textures/block/stone_n.png" {
			normalRec = &manifest.Files[i]
		}
	}
	if normalRec == nil {
		t.Fatal("manifest missing record for stone_n.png")
	}
	if normalRec.Kind != "normal" || normalRec.Size != int64(len("normal-bytes")) {
		t.Errorf("record = %+v", normalRec)
	}
	if want := hasher.ContentHash([]byte("normal-bytes")); normalRec.Hash != want {
		t.Errorf("record hash = %s, want %s", normalRec.Hash, want)
	}
}

func TestWriterDefaultPackMeta(t *testing.T) {
	w := NewWriter("bonemeal test")
	if err := w.AddRaw("readme.txt", []byte("x")); err != nil {
		t.Fatalf("AddRaw: %v", err)
	}
	out, err := w.Close()
	if err != nil {
		t.Fatalf("Close: %v", err)
	}

	entries, err := Extract(out)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	meta := findEntry(entries, "pack.mcmeta")
	if meta == nil {
		t.Fatal("default pack.mcmeta not written")
	}
	var pm packMeta
	if err := json.Unmarshal(meta.Data, &pm); err != nil {
		t.Fatalf("pack.mcmeta JSON: %v", err)
	}
	if pm.Pack.PackFormat != DefaultPackFormat {
		t.Errorf("pack_format = %d, want %d", pm.Pack.PackFormat, DefaultPackFormat)
	}
}

func TestWriterRejectsDuplicatePaths(t *testing.T) {
	w := NewWriter("bonemeal test")
	if err := w.AddRaw("a.txt", []byte("1")); err != nil {
		t.Fatalf("first AddRaw: %v", err)
	}
	if err := w.AddRaw("a.txt", []byte("2")); err == nil {
		t.Fatal("duplicate path accepted")
	}
}

func TestMapPath(t *testing.T) {
	cases := []struct {
		src  string
		kind processor.MapKind
		want string
	}{
		{"a/b/stone.png", processor.MapBaseColor, "a/b/stone.png"},
		{"a/b/stone.png", processor.MapNormal, "a/b/stone_n.png"},
		{"a/b/stone.png", processor.MapSpecular, "a/b/stone_s.png"},
		{"a/b/stone.png", processor.MapHeight, "a/b/stone_h.png"},
		{"a/b/stone.png", processor.MapAO, "a/b/stone_ao.png"},
		{"brick.tga", processor.MapSpecular, "brick_s.png"},
	}
	for _, tc := range cases {
		if got := MapPath(tc.src, tc.kind); got != tc.want {
			t.Errorf("MapPath(%q, %q) = %q, want %q", tc.src, tc.kind, got, tc.want)
		}
	}
}
