package config

import "testing"

func TestParseSigmaUnits(t *testing.T) {
	cases := []struct {
		in      string
		value   float64
		inMM    bool
		wantErr bool
	}{
		{"3vox", 3, false, false},
		{"1.5mm", 1.5, true, false},
		{"2", 2, false, false},
		{"abc", 0, false, true},
	}
	for _, c := range cases {
		got, err := ParseSigma(c.in)
		if c.wantErr {
			if err == nil {
				t.Errorf("%q: expected error", c.in)
			}
			continue
		}
		if err != nil {
			t.Fatalf("%q: %v", c.in, err)
		}
		if got.Value != c.value || got.InMM != c.inMM {
			t.Errorf("%q: got %+v, want value=%v inMM=%v", c.in, got, c.value, c.inMM)
		}
	}
}

func TestParseIterationSchedule(t *testing.T) {
	got, err := ParseIterationSchedule("40x20x10")
	if err != nil {
		t.Fatal(err)
	}
	want := []int{40, 20, 10}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("index %d: got %d want %d", i, got[i], want[i])
		}
	}
}

func TestParseIterationScheduleRejectsMalformed(t *testing.T) {
	if _, err := ParseIterationSchedule("40xNx10"); err == nil {
		t.Error("expected error for malformed schedule")
	}
}

func TestMetricSpecBuildRejectsNCCWithoutRadius(t *testing.T) {
	spec := MetricSpec{Kind: NCC}
	if _, err := spec.Build(); err == nil {
		t.Error("expected error for NCC with zero radius")
	}
}

func TestBruteValidateRejectsDimensionMismatch(t *testing.T) {
	b := Brute{Radius: []int{2, 2}}
	if err := b.Validate(3); err == nil {
		t.Error("expected error for radius/dimensionality mismatch")
	}
}

func TestValidateMetricRejectsNonNCCForBrute(t *testing.T) {
	if err := ValidateMetric(MetricSpec{Kind: SSD}); err == nil {
		t.Error("expected error for brute-force with non-NCC metric")
	}
}

func TestParseStepScale(t *testing.T) {
	if _, err := ParseStepScale("bogus"); err == nil {
		t.Error("expected error for unknown step-scale policy")
	}
}
