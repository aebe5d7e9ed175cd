package fermisurf

import (
	"fmt"
	"strconv"
)

// Palette is the default cycle of band colors.
var Palette = []string{
	"#1f77b4", "#ff7f0e", "#2ca02c", "#d62728", "#9467bd",
	"#8c564b", "#e377c2", "#7f7f7f", "#bcbd22", "#17becf",
}

// BandColor returns the palette color for band i, cycling when there are more
// bands than colors.
func BandColor(i int) string {
	return Palette[i%len(Palette)]
}

// BandName returns name or, when empty, the default label of band i.
func BandName(i int, name string) string {
	if name != "" {
		return name
	}
	return "Band " + strconv.Itoa(i+1)
}

// ParseHexColor parses "#rrggbb" or "#rrggbbaa" into RGBA components in [0,1].
func ParseHexColor(hex string) ([4]float32, error) {
	if len(hex) == 0 || hex[0] != '#' {
		return [4]float32{}, fmt.Errorf("invalid hex color %q", hex)
	}
	h := hex[1:]
	if len(h) != 6 && len(h) != 8 {
		return [4]float32{}, fmt.Errorf("invalid hex color length %q", hex)
	}
	rgba := [4]float32{3: 1}
	for i := 0; i < len(h)/2; i++ {
		c, err := strconv.ParseUint(h[2*i:2*i+2], 16, 8)
		if err != nil {
			return [4]float32{}, fmt.Errorf("invalid hex color %q: %w", hex, err)
		}
		rgba[i] = float32(c) / 255
	}
	return rgba, nil
}
