package compositor

import (
	"math"

	"github.com/coreman2200/luxdeck/internal/gfx"
)

// PostPipeline is the optional output trim applied after compositing:
// a linear brightness scale followed by a gamma curve. The zero value is
// a pass-through.
type PostPipeline struct {
	Brightness float64 // linear scale, 1 = unchanged; 0 treated as 1
	Gamma      float64 // output gamma, 1 = unchanged; 0 treated as 1
}

// Apply runs the stage over the target's color channels. Alpha is left
// alone so opacity semantics survive the trim.
func (p PostPipeline) Apply(t *gfx.Target) {
	b := p.Brightness
	if b == 0 {
		b = 1
	}
	g := p.Gamma
	if g == 0 {
		g = 1
	}
	if b == 1 && g == 1 {
		return
	}
	bf := float32(b)
	ig := 1.0 / g
	pix := t.Pix()
	for i := range pix {
		c := pix[i]
		c.R *= bf
		c.G *= bf
		c.B *= bf
		if g != 1 {
			c.R = powf(c.R, ig)
			c.G = powf(c.G, ig)
			c.B = powf(c.B, ig)
		}
		c.A = pix[i].A
		pix[i] = c.Clamped()
	}
}

func powf(x float32, p float64) float32 {
	if x <= 0 {
		return 0
	}
	return float32(math.Pow(float64(x), p))
}
