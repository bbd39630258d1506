package services

import (
	"fmt"
	"sort"
	"strings"

	"github.com/yungbote/archsheet-backend/internal/domain"
)

// buildPrompt renders the DNA as provider prompt text. The wording is stable
// for a given DNA so that the prompt, like the seed, is reproducible.
func buildPrompt(d domain.DesignDNA) string {
	var b strings.Builder
	fmt.Fprintf(&b, "architectural presentation sheet, %s style, %d-floor building, %.1fm x %.1fm footprint, %.1fm tall, entrance facing %s",
		strings.ToLower(d.Style), d.FloorCount, d.Length, d.Width, d.Height, d.Entrance)

	if len(d.Materials) > 0 {
		parts := make([]string, 0, len(d.Materials))
		for _, m := range d.Materials {
			parts = append(parts, fmt.Sprintf("%s %s", m.Finish, m.Surface))
		}
		sort.Strings(parts)
		b.WriteString(", materials: ")
		b.WriteString(strings.Join(parts, ", "))
	}
	if len(d.Spaces) > 0 {
		parts := make([]string, 0, len(d.Spaces))
		for _, s := range d.Spaces {
			parts = append(parts, fmt.Sprintf("%s %.0fsqm floor %d", s.Name, s.Area, s.Floor))
		}
		b.WriteString(", program: ")
		b.WriteString(strings.Join(parts, ", "))
	}
	b.WriteString(". Multi-view composite: plans, elevations, sections, annotated title block.")
	return b.String()
}

func negativePrompt() string {
	return "people, vehicles, vegetation overgrowth, text artifacts, watermark, distorted geometry, inconsistent line weights"
}

// lockInstruction tells the provider what must stay fixed during a modify.
// The strengthened form is used on the single drift retry and enumerates the
// locked surfaces and spaces explicitly.
func lockInstruction(d domain.DesignDNA, req domain.ModifyRequest, strengthened bool) string {
	affected := map[string]bool{}
	for _, r := range req.AffectedRegions {
		affected[strings.ToLower(strings.TrimSpace(r))] = true
	}

	var b strings.Builder
	b.WriteString("Preserve all existing geometry, materials, program spaces and panel layout")
	if desc := strings.TrimSpace(req.DeltaDescription); desc != "" {
		fmt.Fprintf(&b, " except the requested change: %s", desc)
	}
	b.WriteString(".")

	if !strengthened {
		return b.String()
	}

	locked := []string{}
	for _, m := range d.Materials {
		if !affected[strings.ToLower(m.Surface)] {
			locked = append(locked, fmt.Sprintf("%s (%s)", m.Surface, m.Finish))
		}
	}
	for _, s := range d.Spaces {
		if !affected[strings.ToLower(s.Name)] {
			locked = append(locked, fmt.Sprintf("%s layout", s.Name))
		}
	}
	sort.Strings(locked)
	if len(locked) > 0 {
		fmt.Fprintf(&b, " Strictly keep unchanged: %s.", strings.Join(locked, ", "))
	}
	fmt.Fprintf(&b, " Reuse the exact composition, camera angles, line weights and color palette of the previous sheet. Footprint stays %.1fm x %.1fm with %d floors.",
		d.Length, d.Width, d.FloorCount)
	return b.String()
}
