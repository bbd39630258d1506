package dna

import (
	"fmt"
	"sort"
	"strings"

	"github.com/yungbote/archsheet-backend/internal/domain"
)

// Canonical produces the deterministic serialization a seed is derived from:
// fields in fixed order, numbers rounded to 2 decimal places, strings
// lower-cased, materials sorted by surface, spaces sorted by floor then name.
// schema_version is excluded so migrating a record does not move its seed.
// Stable across processes and platforms: no map iteration, no pointer
// identity.
func Canonical(d domain.DesignDNA) string {
	var b strings.Builder

	fmt.Fprintf(&b, "entrance=%s", strings.ToLower(d.Entrance))
	fmt.Fprintf(&b, "|floor_count=%d", d.FloorCount)
	fmt.Fprintf(&b, "|height=%.2f", d.Height)
	fmt.Fprintf(&b, "|length=%.2f", d.Length)

	mats := append([]domain.Material(nil), d.Materials...)
	sort.Slice(mats, func(i, j int) bool { return mats[i].Surface < mats[j].Surface })
	b.WriteString("|materials=[")
	for i, m := range mats {
		if i > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, "%s:%s", strings.ToLower(m.Surface), strings.ToLower(m.Finish))
	}
	b.WriteByte(']')

	spaces := append([]domain.ProgramSpace(nil), d.Spaces...)
	sort.Slice(spaces, func(i, j int) bool {
		if spaces[i].Floor != spaces[j].Floor {
			return spaces[i].Floor < spaces[j].Floor
		}
		return spaces[i].Name < spaces[j].Name
	})
	b.WriteString("|spaces=[")
	for i, s := range spaces {
		if i > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, "%s:%.2f:%d", strings.ToLower(s.Name), s.Area, s.Floor)
	}
	b.WriteByte(']')

	fmt.Fprintf(&b, "|style=%s", strings.ToLower(d.Style))
	fmt.Fprintf(&b, "|width=%.2f", d.Width)

	return b.String()
}
