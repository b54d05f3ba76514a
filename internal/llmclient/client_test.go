package llmclient

import "testing"

func TestNormalizeProducesUnitVector(t *testing.T) {
	v := normalize([]float32{3, 4})
	got := float64(v[0])*float64(v[0]) + float64(v[1])*float64(v[1])
	if got < 0.999 || got > 1.001 {
		t.Fatalf("expected unit norm, got sum of squares %v", got)
	}
}

func TestNormalizeZeroVectorUnchanged(t *testing.T) {
	v := normalize([]float32{0, 0, 0})
	for _, x := range v {
		if x != 0 {
			t.Fatalf("expected zero vector unchanged, got %v", v)
		}
	}
}
