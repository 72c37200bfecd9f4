package gfx

// Color is a straight-alpha RGBA sample in linear space, channels 0..1.
type Color struct{ R, G, B, A float32 }

var Transparent = Color{}

func Clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

func clamp01f(x float32) float32 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

// Scale returns c with all channels multiplied by s.
func (c Color) Scale(s float32) Color {
	return Color{c.R * s, c.G * s, c.B * s, c.A * s}
}

// Clamped returns c with every channel clamped to [0,1].
func (c Color) Clamped() Color {
	return Color{clamp01f(c.R), clamp01f(c.G), clamp01f(c.B), clamp01f(c.A)}
}

// HSV converts hue/saturation/value (all 0..1) to an opaque Color.
func HSV(h, s, v float64) Color {
	i := int(h * 6.0)
	f := h*6.0 - float64(i)
	p := v * (1.0 - s)
	q := v * (1.0 - f*s)
	t := v * (1.0 - (1.0-f)*s)
	var r, g, b float64
	switch ((i % 6) + 6) % 6 {
	case 0:
		r, g, b = v, t, p
	case 1:
		r, g, b = q, v, p
	case 2:
		r, g, b = p, v, t
	case 3:
		r, g, b = p, q, v
	case 4:
		r, g, b = t, p, v
	default:
		r, g, b = v, p, q
	}
	return Color{float32(r), float32(g), float32(b), 1}
}
