// Package render draws a top-down view of a plan as PNG.
package render

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"
	"strconv"
	"strings"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"github.com/vanplanner/VanLayoutMCP/internal/layout"
	"github.com/vanplanner/VanLayoutMCP/internal/models"
)

// Options configures PNG rendering.
type Options struct {
	PixelsPerMeter float64
	Padding        int
	FontSize       float64
	Supersample    int
	Title          string
}

// DefaultOptions returns the settings used by the export endpoint.
func DefaultOptions() Options {
	return Options{
		PixelsPerMeter: 160,
		Padding:        40,
		FontSize:       12,
		Supersample:    2,
	}
}

var (
	colorBackground = color.RGBA{255, 255, 255, 255}
	colorFloor      = color.RGBA{245, 242, 235, 255}
	colorOutline    = color.RGBA{51, 51, 51, 255}
	colorText       = color.RGBA{34, 34, 34, 255}
	colorCollision  = color.RGBA{211, 47, 47, 255}
	colorFallback   = color.RGBA{128, 128, 128, 255}
)

var namedColors = map[string]color.RGBA{
	"gray":   colorFallback,
	"grey":   colorFallback,
	"white":  {255, 255, 255, 255},
	"black":  {0, 0, 0, 255},
	"brown":  {139, 90, 43, 255},
	"wood":   {193, 154, 107, 255},
	"blue":   {74, 144, 217, 255},
	"green":  {123, 141, 66, 255},
	"red":    {192, 57, 43, 255},
	"beige":  {222, 205, 170, 255},
	"orange": {230, 126, 34, 255},
}

// ParseColor accepts #rgb, #rrggbb and a few color names, falling back to gray.
func ParseColor(s string) color.RGBA {
	s = strings.ToLower(strings.TrimSpace(s))
	if c, ok := namedColors[s]; ok {
		return c
	}
	hex := strings.TrimPrefix(s, "#")
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) != 6 {
		return colorFallback
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return colorFallback
	}
	return color.RGBA{uint8(v >> 16), uint8(v >> 8), uint8(v), 255}
}

type canvas struct {
	img     *image.RGBA
	face    font.Face
	scale   float64 // pixels per millimeter
	originX float64
	originY float64
	line    int
}

// RenderPlan writes a PNG of the plan's floor as seen from above. The front
// of the vehicle (x = 0) is on the left.
func RenderPlan(w io.Writer, plan *models.Plan, env models.VehicleEnvelope, opts Options) error {
	if env.Length <= 0 || env.Width <= 0 {
		return fmt.Errorf("invalid vehicle envelope %s", env.Type)
	}
	if opts.PixelsPerMeter <= 0 {
		opts.PixelsPerMeter = DefaultOptions().PixelsPerMeter
	}
	if opts.Supersample < 1 {
		opts.Supersample = 1
	}
	if opts.FontSize <= 0 {
		opts.FontSize = DefaultOptions().FontSize
	}
	title := opts.Title
	if title == "" {
		title = fmt.Sprintf("%s (%s, %.0f x %.0f mm)", plan.Name, env.Name, env.Length, env.Width)
	}

	ss := opts.Supersample
	header := int(opts.FontSize*2) + opts.Padding/2
	outW := int(math.Ceil(env.Length/1000*opts.PixelsPerMeter)) + 2*opts.Padding
	outH := int(math.Ceil(env.Width/1000*opts.PixelsPerMeter)) + 2*opts.Padding + header

	large := image.NewRGBA(image.Rect(0, 0, outW*ss, outH*ss))
	face, err := newFace(opts.FontSize * float64(ss))
	if err != nil {
		return err
	}
	defer face.Close()

	c := &canvas{
		img:     large,
		face:    face,
		scale:   opts.PixelsPerMeter / 1000 * float64(ss),
		originX: float64(opts.Padding * ss),
		originY: float64((opts.Padding + header) * ss),
		line:    2 * ss,
	}

	draw.Draw(large, large.Bounds(), image.NewUniform(colorBackground), image.Point{}, draw.Src)
	c.drawText(opts.Padding*ss, (opts.Padding/2+int(opts.FontSize))*ss, title, colorText)

	floor := c.rect(layout.Rect{Width: env.Length, Height: env.Width})
	draw.Draw(large, floor, image.NewUniform(colorFloor), image.Point{}, draw.Src)
	c.strokeRect(floor, colorOutline)

	colliding := make(map[string]bool)
	for _, pair := range layout.FindCollisions(plan.Items, layout.Mode3D) {
		colliding[pair.A] = true
		colliding[pair.B] = true
	}

	for _, item := range plan.Items {
		r := c.rect(layout.Footprint(item))
		fill := ParseColor(item.Color)
		fill.A = 220
		draw.Draw(large, r, image.NewUniform(fill), image.Point{}, draw.Over)

		stroke := colorOutline
		if colliding[item.ID] {
			stroke = colorCollision
		}
		c.strokeRect(r, stroke)

		label := item.Name
		if label == "" {
			label = string(item.Type)
		}
		center := r.Min.Add(r.Max).Div(2)
		c.drawTextCentered(center.X, center.Y, label, colorText)
	}

	final := image.NewRGBA(image.Rect(0, 0, outW, outH))
	draw.CatmullRom.Scale(final, final.Bounds(), large, large.Bounds(), draw.Src, nil)
	return png.Encode(w, final)
}

func newFace(size float64) (font.Face, error) {
	fnt, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse font: %w", err)
	}
	return opentype.NewFace(fnt, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingNone,
	})
}

// rect maps a millimeter rectangle to pixel space.
func (c *canvas) rect(r layout.Rect) image.Rectangle {
	x0 := int(math.Round(c.originX + r.X*c.scale))
	y0 := int(math.Round(c.originY + r.Y*c.scale))
	x1 := int(math.Round(c.originX + r.Right()*c.scale))
	y1 := int(math.Round(c.originY + r.Bottom()*c.scale))
	return image.Rect(x0, y0, x1, y1)
}

func (c *canvas) strokeRect(r image.Rectangle, col color.Color) {
	src := image.NewUniform(col)
	t := c.line
	draw.Draw(c.img, image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+t), src, image.Point{}, draw.Src)
	draw.Draw(c.img, image.Rect(r.Min.X, r.Max.Y-t, r.Max.X, r.Max.Y), src, image.Point{}, draw.Src)
	draw.Draw(c.img, image.Rect(r.Min.X, r.Min.Y, r.Min.X+t, r.Max.Y), src, image.Point{}, draw.Src)
	draw.Draw(c.img, image.Rect(r.Max.X-t, r.Min.Y, r.Max.X, r.Max.Y), src, image.Point{}, draw.Src)
}

func (c *canvas) drawText(x, baseline int, text string, col color.Color) {
	d := &font.Drawer{
		Dst:  c.img,
		Src:  image.NewUniform(col),
		Face: c.face,
		Dot:  fixed.Point26_6{X: fixed.I(x), Y: fixed.I(baseline)},
	}
	d.DrawString(text)
}

func (c *canvas) drawTextCentered(x, y int, text string, col color.Color) {
	width := font.MeasureString(c.face, text).Ceil()
	ascent := c.face.Metrics().Ascent.Ceil()
	c.drawText(x-width/2, y+int(float64(ascent)*0.35), text, col)
}
