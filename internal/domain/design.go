package domain

// CurrentSchemaVersion is stamped onto every normalized DesignDNA. Older
// persisted versions are migrated by the normalizer, never patched ad hoc
// by consumers.
const CurrentSchemaVersion = 2

// Compass orientations accepted for the entrance.
var Orientations = []string{"N", "NE", "E", "SE", "S", "SW", "W", "NW"}

const DefaultStyle = "contemporary"
const DefaultEntrance = "N"

// Material binds a named surface ("facade", "roof", "trim") to a color or
// texture identifier ("brick", "#aa3322", "slate").
type Material struct {
	Surface string `json:"surface"`
	Finish  string `json:"finish"`
}

// ProgramSpace is a named interior space with a target area on a floor.
type ProgramSpace struct {
	Name  string  `json:"name"`
	Area  float64 `json:"area"`
	Floor int     `json:"floor"`
}

// DesignDNA is the canonical description of a design: the single source of
// truth for what a generated sheet should depict. Instances are drafts until
// they pass normalization and validation; once embedded in a committed
// baseline they are immutable.
type DesignDNA struct {
	SchemaVersion int `json:"schema_version"`

	// Footprint, meters.
	Length     float64 `json:"length"`
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
	FloorCount int     `json:"floor_count"`

	Materials []Material     `json:"materials"`
	Style     string         `json:"style"`
	Entrance  string         `json:"entrance"`
	Spaces    []ProgramSpace `json:"spaces,omitempty"`
}

// FootprintArea is the plan area of the footprint in square meters.
func (d DesignDNA) FootprintArea() float64 {
	return d.Length * d.Width
}

// FloorHeight is the derived floor-to-floor height in meters, 0 when the
// floor count is not positive.
func (d DesignDNA) FloorHeight() float64 {
	if d.FloorCount <= 0 {
		return 0
	}
	return d.Height / float64(d.FloorCount)
}

// MaterialFor returns the finish for a named surface and whether it is set.
func (d DesignDNA) MaterialFor(surface string) (string, bool) {
	for _, m := range d.Materials {
		if m.Surface == surface {
			return m.Finish, true
		}
	}
	return "", false
}

// Clone returns a deep copy so drafts can be mutated without aliasing the
// baseline's DNA.
func (d DesignDNA) Clone() DesignDNA {
	out := d
	out.Materials = append([]Material(nil), d.Materials...)
	out.Spaces = append([]ProgramSpace(nil), d.Spaces...)
	return out
}

func IsValidOrientation(v string) bool {
	for _, o := range Orientations {
		if v == o {
			return true
		}
	}
	return false
}
