// Package respack reads and assembles resource pack archives: it
// classifies entries as textures, extracts them for conversion and
// writes the converted pack together with its manifest.
package respack

import (
	"path"
	"strings"
)

// Role tags what a texture carries, following the LabPBR filename
// suffix convention.
type Role string

const (
	RoleBase     Role = "base"
	RoleNormal   Role = "normal"
	RoleSpecular Role = "specular"
	RoleEmission Role = "emission"
	RoleHeight   Role = "height"
)

// Entry is one archive member.
type Entry struct {
	Path      string // full relative path inside the archive
	Name      string // basename
	IsTexture bool
	Role      Role // meaningful only when IsTexture
	Data      []byte
}

var textureExts = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".tiff": true,
	".tga":  true,
}

// IsTexture reports whether the path carries a texture extension.
func IsTexture(p string) bool {
	return textureExts[strings.ToLower(path.Ext(p))]
}

// RoleOf classifies a texture path by its filename suffix: _n normal,
// _s specular, _e emission, _h height, anything else base color.
func RoleOf(p string) Role {
	stem := strings.TrimSuffix(path.Base(p), path.Ext(p))
	switch {
	case strings.HasSuffix(stem, "_n"):
		return RoleNormal
	case strings.HasSuffix(stem, "_s"):
		return RoleSpecular
	case strings.HasSuffix(stem, "_e"):
		return RoleEmission
	case strings.HasSuffix(stem, "_h"):
		return RoleHeight
	}
	return RoleBase
}
