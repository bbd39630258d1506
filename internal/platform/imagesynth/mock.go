package imagesynth

import (
	"bytes"
	"context"
	"fmt"
	"hash/fnv"
	"math/rand"
	"os"
	"strings"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"

	"github.com/yungbote/archsheet-backend/internal/platform/envutil"
	"github.com/yungbote/archsheet-backend/internal/platform/logger"
)

// mockRenderer draws a deterministic architectural sheet. The same prompt and
// seed always produce byte-identical PNG output, which is what the drift
// checker needs from a pinned provider.
type mockRenderer struct {
	log      *logger.Logger
	fontFace font.Face
}

// NewMockRenderer builds the offline provider. A title-block font is loaded
// from IMAGESYNTH_MOCK_FONT when set; without it the sheet is drawn unlabeled.
func NewMockRenderer(log *logger.Logger) (Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}

	var face font.Face
	if fontPath := envutil.Str("IMAGESYNTH_MOCK_FONT", ""); fontPath != "" {
		raw, err := os.ReadFile(fontPath)
		if err != nil {
			return nil, fmt.Errorf("read mock font: %w", err)
		}
		parsed, err := truetype.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("parse mock font: %w", err)
		}
		face = truetype.NewFace(parsed, &truetype.Options{
			Size:    envutil.Float("IMAGESYNTH_MOCK_FONT_SIZE", 18),
			DPI:     72,
			Hinting: font.HintingNone,
		})
	}

	return &mockRenderer{
		log:      log.With("service", "MockRenderer"),
		fontFace: face,
	}, nil
}

const (
	defaultSheetWidth  = 1024
	defaultSheetHeight = 768
	panelCols          = 3
	panelRows          = 2
)

func (m *mockRenderer) Generate(ctx context.Context, req Request) (Result, error) {
	var out Result
	if err := ctx.Err(); err != nil {
		return out, err
	}
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return out, fmt.Errorf("render prompt required")
	}

	w, h := req.Width, req.Height
	if w <= 0 {
		w = defaultSheetWidth
	}
	if h <= 0 {
		h = defaultSheetHeight
	}

	rng := rand.New(rand.NewSource(req.Seed))
	dc := gg.NewContext(w, h)

	// Sheet background and border.
	dc.SetRGB(0.97, 0.97, 0.95)
	dc.Clear()
	dc.SetRGB(0.1, 0.1, 0.1)
	dc.SetLineWidth(3)
	dc.DrawRectangle(8, 8, float64(w-16), float64(h-16))
	dc.Stroke()

	// Title block along the bottom edge.
	titleH := float64(h) * 0.08
	dc.SetLineWidth(1.5)
	dc.DrawRectangle(8, float64(h)-8-titleH, float64(w-16), titleH)
	dc.Stroke()
	if m.fontFace != nil {
		dc.SetFontFace(m.fontFace)
		dc.DrawString(truncate(prompt, 90), 20, float64(h)-8-titleH/2+6)
	}

	m.drawPanels(dc, rng, prompt, float64(w), float64(h)-titleH-8)

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return out, fmt.Errorf("encode sheet png: %w", err)
	}

	out.Image = buf.Bytes()
	out.MimeType = "image/png"
	out.EchoedSeed = req.Seed
	return out, nil
}

// drawPanels lays out a fixed grid of drawing panels. Panel geometry comes
// from the seeded rng; panel shading comes from the prompt, so a prompt edit
// shifts tone while the pinned seed keeps line positions stable.
func (m *mockRenderer) drawPanels(dc *gg.Context, rng *rand.Rand, prompt string, sheetW, sheetH float64) {
	margin := 24.0
	gutter := 16.0
	panelW := (sheetW - 2*margin - gutter*(panelCols-1)) / panelCols
	panelH := (sheetH - 2*margin - gutter*(panelRows-1)) / panelRows

	idx := 0
	for row := 0; row < panelRows; row++ {
		for col := 0; col < panelCols; col++ {
			x := margin + float64(col)*(panelW+gutter)
			y := margin + float64(row)*(panelH+gutter)

			dc.SetRGB(0.1, 0.1, 0.1)
			dc.SetLineWidth(1.5)
			dc.DrawRectangle(x, y, panelW, panelH)
			dc.Stroke()

			tone := promptTone(prompt, idx)
			dc.SetRGB(tone, tone, tone)
			inset := 12.0
			dc.DrawRectangle(x+inset, y+inset, panelW-2*inset, panelH-2*inset)
			dc.Fill()

			// Interior line work: walls and openings jittered by the seed.
			dc.SetRGB(0.15, 0.15, 0.15)
			dc.SetLineWidth(1)
			lines := 4 + rng.Intn(4)
			for i := 0; i < lines; i++ {
				x0 := x + inset + rng.Float64()*(panelW-2*inset)
				y0 := y + inset + rng.Float64()*(panelH-2*inset)
				if rng.Intn(2) == 0 {
					dc.DrawLine(x0, y+inset, x0, y+panelH-inset)
				} else {
					dc.DrawLine(x+inset, y0, x+panelW-inset, y0)
				}
				dc.Stroke()
			}
			idx++
		}
	}
}

// promptTone maps a prompt and panel index to a mid-range gray.
func promptTone(prompt string, panel int) float64 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(strings.ToLower(prompt)))
	_, _ = fmt.Fprintf(h, "|%d", panel)
	return 0.35 + float64(h.Sum32()%1000)/1000.0*0.45
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
