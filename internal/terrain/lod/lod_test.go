package lod

import (
	"errors"
	"testing"
)

func TestNeighborCodeRoundTrip(t *testing.T) {
	for i := 0; i < NeighborCodes; i++ {
		l, r, tp, b := i&1 != 0, i&2 != 0, i&4 != 0, i&8 != 0
		code := Encode(l, r, tp, b)
		if int(code) != i {
			t.Errorf("Encode(%v,%v,%v,%v) = %d, want %d", l, r, tp, b, code, i)
		}
		gl, gr, gt, gb := code.Decode()
		if gl != l || gr != r || gt != tp || gb != b {
			t.Errorf("Decode(%d) = %v,%v,%v,%v, want %v,%v,%v,%v", code, gl, gr, gt, gb, l, r, tp, b)
		}
	}
}

func TestNeighborCodeString(t *testing.T) {
	tests := []struct {
		code NeighborCode
		want string
	}{
		{0, "none"},
		{LeftFiner, "left"},
		{LeftFiner | BottomFiner, "left|bottom"},
		{LeftFiner | RightFiner | TopFiner | BottomFiner, "left|right|top|bottom"},
	}
	for _, tt := range tests {
		if got := tt.code.String(); got != tt.want {
			t.Errorf("NeighborCode(%d).String() = %q, want %q", tt.code, got, tt.want)
		}
	}
}

func TestNeighborCodeOutOfRangePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic decoding code 16")
		}
	}()
	NeighborCode(16).Decode()
}

func TestThresholdScale(t *testing.T) {
	p := Projection{Near: 1, Top: 0.5, ViewportHeight: 600}
	c, err := ThresholdScale(p, 3)
	if err != nil {
		t.Fatalf("ThresholdScale failed: %v", err)
	}
	// 1 / (0.5 * (6/600)) = 200
	if c < 199.99 || c > 200.01 {
		t.Errorf("expected C = 200, got %v", c)
	}

	// Negative top is treated by magnitude.
	p.Top = -0.5
	c2, err := ThresholdScale(p, 3)
	if err != nil || c2 != c {
		t.Errorf("expected same scale for negative top, got %v (%v)", c2, err)
	}
}

func TestThresholdScaleInvalid(t *testing.T) {
	tests := []struct {
		name string
		p    Projection
		tau  float32
	}{
		{"zero near", Projection{Near: 0, Top: 1, ViewportHeight: 100}, 1},
		{"zero top", Projection{Near: 1, Top: 0, ViewportHeight: 100}, 1},
		{"zero viewport", Projection{Near: 1, Top: 1, ViewportHeight: 0}, 1},
		{"zero tau", Projection{Near: 1, Top: 1, ViewportHeight: 100}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ThresholdScale(tt.p, tt.tau); !errors.Is(err, ErrInvalidProjection) {
				t.Errorf("expected ErrInvalidProjection, got %v", err)
			}
		})
	}
}

func TestSelect(t *testing.T) {
	thresholds := []float32{0, 100, 400, 1600}
	tests := []struct {
		d2   float32
		want int
	}{
		{0, 0},
		{100, 0},
		{101, 1},
		{400, 1},
		{401, 2},
		{1e6, 3},
	}
	for _, tt := range tests {
		if got := Select(thresholds, tt.d2); got != tt.want {
			t.Errorf("Select(%v) = %d, want %d", tt.d2, got, tt.want)
		}
	}
}

func TestSelectMonotoneInDistance(t *testing.T) {
	m := NewMetric([]float32{0, 0.5, 0.3, 2, 7})
	if _, err := m.Update(Projection{Near: 0.1, Top: 0.0577, ViewportHeight: 720}, 2); err != nil {
		t.Fatal(err)
	}

	prev := 0
	for d := float32(0); d < 1e5; d += 7.5 {
		tier := m.Select(d * d)
		if tier < prev {
			t.Fatalf("tier decreased from %d to %d at distance %v", prev, tier, d)
		}
		prev = tier
	}
	if prev != 4 {
		t.Errorf("expected coarsest tier far away, got %d", prev)
	}
}

func TestMetricThresholdsNonDecreasing(t *testing.T) {
	m := NewMetric([]float32{0, 3, 1, 5})
	if _, err := m.Update(Projection{Near: 1, Top: 1, ViewportHeight: 100}, 1); err != nil {
		t.Fatal(err)
	}
	th := m.Thresholds()
	for i := 1; i < len(th); i++ {
		if th[i] < th[i-1] {
			t.Errorf("threshold %d (%v) below threshold %d (%v)", i, th[i], i-1, th[i-1])
		}
	}
}

func TestMetricRecomputesOnlyOnChange(t *testing.T) {
	m := NewMetric([]float32{0, 1})
	p := Projection{Near: 1, Top: 1, ViewportHeight: 100}

	changed, err := m.Update(p, 2)
	if err != nil || !changed {
		t.Fatalf("expected first update to compute, got %v (%v)", changed, err)
	}
	changed, _ = m.Update(p, 2)
	if changed {
		t.Error("expected no recomputation for identical inputs")
	}
	changed, _ = m.Update(p, 4)
	if !changed {
		t.Error("expected recomputation after tau change")
	}
	p.ViewportHeight = 200
	changed, _ = m.Update(p, 4)
	if !changed {
		t.Error("expected recomputation after viewport change")
	}
}

func TestReconcileFixedPoint(t *testing.T) {
	g := NewGrid(8, 8)
	for i := range g.Tiers {
		g.Tiers[i] = 6
	}
	g.Tiers[g.Index(0, 0)] = 0

	passes := g.Reconcile()
	if passes < 2 {
		t.Errorf("expected several passes, got %d", passes)
	}
	if d := g.MaxNeighborDifference(); d > 1 {
		t.Errorf("expected neighbor difference <= 1, got %d", d)
	}

	before := append([]int(nil), g.Tiers...)
	if again := g.Reconcile(); again != 1 {
		t.Errorf("expected a single clean pass on re-run, got %d", again)
	}
	for i := range before {
		if before[i] != g.Tiers[i] {
			t.Fatalf("re-running Reconcile changed tile %d: %d -> %d", i, before[i], g.Tiers[i])
		}
	}
}

func TestReconcileFinestPatchWithCoarserNeighbors(t *testing.T) {
	g := NewGrid(3, 3)
	g.Tiers = []int{
		2, 2, 2,
		2, 0, 2,
		2, 2, 2,
	}

	g.Reconcile()

	if got := g.Tiers[g.Index(1, 1)]; got != 0 {
		t.Errorf("expected centre to stay at tier 0, got %d", got)
	}
	for _, s := range Sides {
		n := g.Neighbor(1, 1, s)
		if g.Tiers[n] != 1 {
			t.Errorf("expected %s neighbor clamped to tier 1, got %d", s, g.Tiers[n])
		}
	}
	if d := g.MaxNeighborDifference(); d > 1 {
		t.Errorf("expected neighbor difference <= 1, got %d", d)
	}
}

func TestGridCode(t *testing.T) {
	g := NewGrid(3, 3)
	g.Tiers = []int{
		1, 0, 1,
		1, 1, 2,
		1, 1, 1,
	}

	if got := g.Code(1, 1); got != TopFiner {
		t.Errorf("Code(1,1) = %v, want top", got)
	}
	if got := g.Code(2, 1); got != LeftFiner|TopFiner|BottomFiner {
		t.Errorf("Code(2,1) = %v, want left|top|bottom", got)
	}
	if got := g.Code(0, 0); got != RightFiner {
		t.Errorf("Code(0,0) = %v, want right", got)
	}
	if got := g.Code(1, 0); got != 0 {
		t.Errorf("Code(1,0) = %v, want none", got)
	}
}

type planeSampler struct{}

func (planeSampler) Sample(x, y int) float32 { return float32(3*x - 2*y) }

type bumpSampler struct{}

func (bumpSampler) Sample(x, y int) float32 {
	if x == 1 && y == 1 {
		return 5
	}
	return 0
}

func TestMaximumDelta(t *testing.T) {
	if d := MaximumDelta(planeSampler{}, 0, 0, 8, 8, 4); d > 1e-4 {
		t.Errorf("expected zero error on a plane, got %v", d)
	}
	if d := MaximumDelta(bumpSampler{}, 0, 0, 4, 4, 2); d != 5 {
		t.Errorf("expected bump error 5, got %v", d)
	}
	if d := MaximumDelta(bumpSampler{}, 0, 0, 4, 4, 1); d != 0 {
		t.Errorf("expected zero error at full resolution, got %v", d)
	}

	deltas := TierDeltas(bumpSampler{}, 0, 0, 4, 4, 3)
	if deltas[0] != 0 || deltas[1] != 5 {
		t.Errorf("unexpected tier deltas %v", deltas)
	}
}
