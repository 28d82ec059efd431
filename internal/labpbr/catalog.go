package labpbr

import "math"

// Material is one reference entry used to label analyzed textures.
// F0 is the encoded green value. Reflectance (percent) and IOR are
// optional; when Reflectance is zero it is derived from IOR.
type Material struct {
	Name        string
	Category    string
	F0          uint8
	Reflectance float64
	IOR         float64
	RGBF0       *[3]uint8 // per-channel F0, hardcoded metals only
	Notes       string
}

// ReflectancePercent returns the stored reflectance, deriving it from
// the IOR via ((n-1)/(n+1))² when none is stored.
func (m Material) ReflectancePercent() float64 {
	if m.Reflectance > 0 {
		return m.Reflectance
	}
	if m.IOR > 0 {
		r := (m.IOR - 1) / (m.IOR + 1)
		return r * r * 100
	}
	return 0
}

// Match pairs a catalog entry with its distance to an observed average
// encoded F0.
type Match struct {
	Material
	Difference float64
}

func rgb(r, g, b uint8) *[3]uint8 { return &[3]uint8{r, g, b} }

// catalog holds the reference materials, encoded-F0 ascending within
// each category. Dielectric F0 values follow measured IORs; metal rows
// carry the per-channel F0 the standard hardcodes for codes 230..237.
var catalog = []Material{
	// liquids
	{Name: "Water", Category: "liquids", F0: 5, IOR: 1.333, Notes: "calm water at 20°C"},
	{Name: "Ice", Category: "liquids", F0: 5, IOR: 1.309},
	{Name: "Milk", Category: "liquids", F0: 6, IOR: 1.35},
	{Name: "Honey", Category: "liquids", F0: 10, IOR: 1.504},

	// surfaces
	{Name: "Snow", Category: "surfaces", F0: 5, Reflectance: 2.0},
	{Name: "Concrete", Category: "surfaces", F0: 6, Reflectance: 2.4},
	{Name: "Sand", Category: "surfaces", F0: 9, Reflectance: 3.5},
	{Name: "Clay", Category: "surfaces", F0: 9, Reflectance: 3.6},
	{Name: "Stone", Category: "surfaces", F0: 10, Reflectance: 3.95},

	// plastics
	{Name: "Acrylic", Category: "plastics", F0: 10, IOR: 1.49},
	{Name: "PVC", Category: "plastics", F0: 12, IOR: 1.54},
	{Name: "Nylon", Category: "plastics", F0: 12, IOR: 1.53},
	{Name: "Polystyrene", Category: "plastics", F0: 13, IOR: 1.59},

	// gems
	{Name: "Quartz", Category: "gems", F0: 12, IOR: 1.544},
	{Name: "Emerald", Category: "gems", F0: 13, IOR: 1.58},
	{Name: "Ruby", Category: "gems", F0: 20, IOR: 1.77},
	{Name: "Sapphire", Category: "gems", F0: 20, IOR: 1.77},
	{Name: "Diamond", Category: "gems", F0: 44, IOR: 2.417, Notes: "highest IOR of the natural gems"},

	// transparents
	{Name: "Plexiglass", Category: "transparents", F0: 10, IOR: 1.49},
	{Name: "Glass", Category: "transparents", F0: 11, IOR: 1.52},
	{Name: "Crystal", Category: "transparents", F0: 28, IOR: 2.0},

	// human
	{Name: "Eye", Category: "human", F0: 6, IOR: 1.376, Notes: "cornea"},
	{Name: "Skin", Category: "human", F0: 8, IOR: 1.44},
	{Name: "Hair", Category: "human", F0: 12, IOR: 1.55},
	{Name: "Teeth", Category: "human", F0: 15, IOR: 1.63},

	// building
	{Name: "Plaster", Category: "building", F0: 8, Reflectance: 3.2},
	{Name: "Brick", Category: "building", F0: 9, Reflectance: 3.6},
	{Name: "Asphalt", Category: "building", F0: 10, Reflectance: 4.0},
	{Name: "Marble", Category: "building", F0: 10, IOR: 1.486},
	{Name: "Ceramic", Category: "building", F0: 12, IOR: 1.54},

	// woods
	{Name: "Pine", Category: "woods", F0: 10, IOR: 1.52},
	{Name: "Oak", Category: "woods", F0: 11, IOR: 1.53},
	{Name: "Birch", Category: "woods", F0: 11, IOR: 1.53},

	// paints
	{Name: "Matte paint", Category: "paints", F0: 9, Reflectance: 3.5},
	{Name: "Varnish", Category: "paints", F0: 11, IOR: 1.52},
	{Name: "Gloss paint", Category: "paints", F0: 12, IOR: 1.55},

	// metals (green channel carries the code, not an F0 percentage)
	{Name: "Iron", Category: "metals", F0: 230, Reflectance: 76, RGBF0: rgb(199, 196, 189)},
	{Name: "Gold", Category: "metals", F0: 231, Reflectance: 84, RGBF0: rgb(255, 230, 156)},
	{Name: "Aluminum", Category: "metals", F0: 232, Reflectance: 99, RGBF0: rgb(255, 250, 255)},
	{Name: "Chrome", Category: "metals", F0: 233, Reflectance: 78, RGBF0: rgb(196, 204, 201)},
	{Name: "Copper", Category: "metals", F0: 234, Reflectance: 87, RGBF0: rgb(255, 227, 186)},
	{Name: "Lead", Category: "metals", F0: 235, Reflectance: 84, RGBF0: rgb(201, 222, 217)},
	{Name: "Platinum", Category: "metals", F0: 236, Reflectance: 89, RGBF0: rgb(235, 230, 212)},
	{Name: "Silver", Category: "metals", F0: 237, Reflectance: 99, RGBF0: rgb(255, 255, 232)},
	{Name: "Custom metal", Category: "metals", F0: 255, Notes: "base color is used as F0"},
}

// Materials returns the full reference catalog. Callers must not
// mutate the returned slice.
func Materials() []Material { return catalog }

// NearestMaterial returns the catalog entry whose encoded F0 is closest
// to the observed average. Ties keep the earlier (lower-F0) entry.
func NearestMaterial(avgF0Encoded float64) Match {
	best := Match{Difference: math.Inf(1)}
	for _, m := range catalog {
		d := math.Abs(avgF0Encoded - float64(m.F0))
		if d < best.Difference {
			best = Match{Material: m, Difference: d}
		}
	}
	best.Reflectance = best.ReflectancePercent()
	return best
}
