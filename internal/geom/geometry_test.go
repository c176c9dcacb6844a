package geom

import "testing"

func TestIdentityVoxelToPhysical(t *testing.T) {
	g := Identity([]int{10, 10, 10})
	p := g.VoxelToPhysical([]float64{3, 4, 5})
	want := []float64{3, 4, 5}
	for i := range want {
		if p[i] != want[i] {
			t.Errorf("axis %d: got %v want %v", i, p[i], want[i])
		}
	}
}

func TestVoxelPhysicalRoundTrip(t *testing.T) {
	g, err := NewGeometry([]int{8, 8, 8},
		[]float64{1.5, -2.0, 3.25},
		[]float64{0.5, 1.0, 2.0},
		[]float64{1, 0, 0, 0, 1, 0, 0, 0, 1})
	if err != nil {
		t.Fatal(err)
	}
	idx := []float64{1, 2, 3}
	p := g.VoxelToPhysical(idx)
	back := g.PhysicalToVoxel(p)
	for i := range idx {
		if diff := back[i] - idx[i]; diff > 1e-9 || diff < -1e-9 {
			t.Errorf("axis %d: round trip %v != %v", i, back[i], idx[i])
		}
	}
}

func TestNewGeometryRejectsBadSpacing(t *testing.T) {
	_, err := NewGeometry([]int{4, 4}, []float64{0, 0}, []float64{1, -1}, []float64{1, 0, 0, 1})
	if err == nil {
		t.Fatal("expected error for non-positive spacing")
	}
}

func TestDownsampleDoublesSpacing(t *testing.T) {
	g := Identity([]int{16, 16})
	d := g.Downsample(2)
	if d.Size[0] != 8 || d.Size[1] != 8 {
		t.Errorf("expected 8x8, got %v", d.Size)
	}
	if d.Spacing[0] != 2 || d.Spacing[1] != 2 {
		t.Errorf("expected spacing 2, got %v", d.Spacing)
	}
}

func TestRASVoxelRoundTrip(t *testing.T) {
	g, err := NewGeometry([]int{32, 32, 32},
		[]float64{10, -5, 2},
		[]float64{1, 1, 1.5},
		[]float64{1, 0, 0, 0, 1, 0, 0, 0, 1})
	if err != nil {
		t.Fatal(err)
	}

	voxel := NewHomogeneous([]float64{
		1, 0.01, 0,
		-0.01, 1, 0,
		0, 0, 1,
	}, []float64{2, -3, 0.5})

	ras := VoxelToRAS(voxel, g)
	back := RASToVoxel(ras, g)

	wantLin := voxel.Linear()
	gotLin := back.Linear()
	for i := range wantLin {
		if diff := gotLin[i] - wantLin[i]; diff > 1e-9 || diff < -1e-9 {
			t.Errorf("linear[%d]: got %v want %v", i, gotLin[i], wantLin[i])
		}
	}
	wantOff := voxel.Offset()
	gotOff := back.Offset()
	for i := range wantOff {
		if diff := gotOff[i] - wantOff[i]; diff > 1e-9 || diff < -1e-9 {
			t.Errorf("offset[%d]: got %v want %v", i, gotOff[i], wantOff[i])
		}
	}
}

func TestConvertConventionIsInvolution(t *testing.T) {
	h := NewHomogeneous([]float64{1, 0, 0, 0, 1, 0, 0, 0, 1}, []float64{1, 2, 3})
	ras := ConvertConvention(h, LPS, RAS)
	back := ConvertConvention(ras, RAS, LPS)
	wantOff := h.Offset()
	gotOff := back.Offset()
	for i := range wantOff {
		if gotOff[i] != wantOff[i] {
			t.Errorf("offset[%d]: got %v want %v", i, gotOff[i], wantOff[i])
		}
	}
}
