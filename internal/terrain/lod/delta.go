package lod

// HeightSampler is an integer-coordinate elevation lookup that clamps to its edges.
type HeightSampler interface {
	Sample(x, y int) float32
}

// MaximumDelta returns the largest vertical error between the full-resolution samples of
// the region [x0, x0+w] x [y0, y0+h] and the mesh obtained by keeping only every step-th
// sample. Decimated cells are split along the (x, y+1)-(x+1, y) diagonal, matching the
// triangulation the renderers emit.
func MaximumDelta(s HeightSampler, x0, y0, w, h, step int) float32 {
	if step <= 1 || w <= 0 || h <= 0 {
		return 0
	}
	var worst float32
	for cy := 0; cy < h; cy += step {
		for cx := 0; cx < w; cx += step {
			ax, ay := x0+cx, y0+cy
			h00 := s.Sample(ax, ay)
			h10 := s.Sample(ax+step, ay)
			h01 := s.Sample(ax, ay+step)
			h11 := s.Sample(ax+step, ay+step)

			for j := 0; j <= step && cy+j <= h; j++ {
				for i := 0; i <= step && cx+i <= w; i++ {
					a := float32(i) / float32(step)
					b := float32(j) / float32(step)
					var approx float32
					if a+b <= 1 {
						approx = h00 + a*(h10-h00) + b*(h01-h00)
					} else {
						approx = h11 + (1-a)*(h01-h11) + (1-b)*(h10-h11)
					}
					d := s.Sample(ax+i, ay+j) - approx
					if d < 0 {
						d = -d
					}
					if d > worst {
						worst = d
					}
				}
			}
		}
	}
	return worst
}

// TierDeltas returns MaximumDelta for steps 1, 2, 4, ... over tiers entries.
func TierDeltas(s HeightSampler, x0, y0, w, h, tiers int) []float32 {
	out := make([]float32, tiers)
	for t := range tiers {
		out[t] = MaximumDelta(s, x0, y0, w, h, 1<<t)
	}
	return out
}
