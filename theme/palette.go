package theme

import (
	"bufio"
	"bytes"
	"embed"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

//go:embed palettes/*.gpl
var palettes embed.FS

// DefaultPalette is the embedded palette used when none is configured
const DefaultPalette = "dusk"

type RGB [3]uint8

type Palette struct {
	Name   string
	Colors []RGB
}

// LoadGPL reads a GIMP palette file
func LoadGPL(path string) (*Palette, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	p, err := ParseGPL(f)
	if err != nil {
		return nil, fmt.Errorf("palette %s: %w", path, err)
	}
	return p, nil
}

// Builtin returns an embedded palette by name
func Builtin(name string) (*Palette, error) {
	data, err := palettes.ReadFile("palettes/" + name + ".gpl")
	if err != nil {
		return nil, fmt.Errorf("no built-in palette %q", name)
	}
	return ParseGPL(bytes.NewReader(data))
}

// MustBuiltin is Builtin for palettes known to be embedded
func MustBuiltin(name string) *Palette {
	p, err := Builtin(name)
	if err != nil {
		panic(err)
	}
	return p
}

// ParseGPL parses GIMP palette text
func ParseGPL(r io.Reader) (*Palette, error) {
	p := &Palette{}
	scanner := bufio.NewScanner(r)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if strings.HasPrefix(line, "Name:") {
			p.Name = strings.TrimSpace(strings.TrimPrefix(line, "Name:"))
			continue
		}

		// Skip headers and comments
		if line == "" || line[0] == '#' || strings.HasPrefix(line, "GIMP") || strings.HasPrefix(line, "Columns") {
			continue
		}

		// first 3 fields are R G B, the rest is the color name
		fields := strings.Fields(line)
		if len(fields) >= 3 {
			r, err1 := strconv.Atoi(fields[0])
			g, err2 := strconv.Atoi(fields[1])
			b, err3 := strconv.Atoi(fields[2])
			if err1 == nil && err2 == nil && err3 == nil {
				p.Colors = append(p.Colors, RGB{clampByte(r), clampByte(g), clampByte(b)})
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(p.Colors) == 0 {
		return nil, fmt.Errorf("no colors found")
	}
	return p, nil
}

// Lookup returns the color at normalized position 0-1, blending
// neighbouring entries in Lab space
func (p *Palette) Lookup(norm float64) RGB {
	if norm <= 0 || len(p.Colors) == 1 {
		return p.Colors[0]
	}
	if norm >= 1 {
		return p.Colors[len(p.Colors)-1]
	}

	pos := norm * float64(len(p.Colors)-1)
	i := int(pos)
	frac := pos - float64(i)
	if frac == 0 {
		return p.Colors[i]
	}
	return Blend(p.Colors[i], p.Colors[i+1], frac)
}

// Blend mixes a toward b by t (0-1) in Lab space
func Blend(a, b RGB, t float64) RGB {
	c := a.colorful().BlendLab(b.colorful(), t).Clamped()
	r, g, bl := c.RGB255()
	return RGB{r, g, bl}
}

func (c RGB) colorful() colorful.Color {
	return colorful.Color{R: float64(c[0]) / 255, G: float64(c[1]) / 255, B: float64(c[2]) / 255}
}

// Hex returns the #rrggbb form
func (c RGB) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c[0], c[1], c[2])
}

// Index returns color at specific index (no interpolation)
func (p *Palette) Index(i int) RGB {
	if i < 0 {
		return p.Colors[0]
	}
	if i >= len(p.Colors) {
		return p.Colors[len(p.Colors)-1]
	}
	return p.Colors[i]
}

func clampByte(v int) uint8 {
	return uint8(max(0, min(255, v)))
}
