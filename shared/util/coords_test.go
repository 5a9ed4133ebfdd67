package util

import (
	"math"
	"testing"
)

func TestSectorOf(t *testing.T) {
	tests := []struct {
		pos  Vector3
		want SectorCoord
	}{
		{Vector3{X: 0, Y: 0, Z: 0}, SectorCoord{X: 0, Z: 0}},
		{Vector3{X: 3999.9, Y: 50, Z: 1}, SectorCoord{X: 0, Z: 0}},
		{Vector3{X: 4000, Y: 0, Z: 0}, SectorCoord{X: 1, Z: 0}},
		{Vector3{X: -100, Y: 12, Z: -300}, SectorCoord{X: -1, Z: -1}},
		{Vector3{X: -4000, Y: 0, Z: -4001}, SectorCoord{X: -1, Z: -2}},
		{Vector3{X: -0.01, Y: 0, Z: 0}, SectorCoord{X: -1, Z: 0}},
	}

	for _, tt := range tests {
		got := SectorOf(tt.pos)
		if got != tt.want {
			t.Errorf("SectorOf(%v) = %v, esperava %v", tt.pos, got, tt.want)
		}
	}
}

func TestSectorCoordString(t *testing.T) {
	tests := []struct {
		coord SectorCoord
		want  string
	}{
		{SectorCoord{X: 0, Z: 0}, "sec+0000+0000"},
		{SectorCoord{X: -1, Z: -1}, "sec-0001-0001"},
		{SectorCoord{X: 12, Z: -5}, "sec+0012-0005"},
	}

	for _, tt := range tests {
		if got := tt.coord.String(); got != tt.want {
			t.Errorf("%v.String() = %q, esperava %q", tt.coord, got, tt.want)
		}
	}
}

func TestFixedPoint(t *testing.T) {
	tests := []float32{0, 1, -1, 69.25, -420.5, 3999.996}

	for _, v := range tests {
		raw := ToFixed(v)
		back := FromFixed(raw)
		if math.Abs(float64(back-v)) > 1.0/256.0 {
			t.Errorf("ToFixed/FromFixed(%v): obteve %v (raw %d)", v, back, raw)
		}
	}
}

func TestClamp(t *testing.T) {
	if got := Clamp(int32(5), 10, 1500); got != 10 {
		t.Errorf("Clamp(5) = %d", got)
	}
	if got := Clamp(int32(2000), 10, 1500); got != 1500 {
		t.Errorf("Clamp(2000) = %d", got)
	}
	if got := Clamp(int32(400), 10, 1500); got != 400 {
		t.Errorf("Clamp(400) = %d", got)
	}
}

func TestYawQuaternionRotates(t *testing.T) {
	// direção -Z é a identidade do yaw
	q := YawQuaternion(Vector3{X: 0, Y: 0, Z: -1})
	v := q.Rotate(Vector3{X: 0, Y: 0, Z: -1})
	if math.Abs(float64(v.X)) > 1e-4 || math.Abs(float64(v.Z+1)) > 1e-4 {
		t.Errorf("identidade do yaw rotacionou para %v", v)
	}

	// FlipYaw duas vezes volta à orientação original
	q2 := q.FlipYaw().FlipYaw()
	v2 := q2.Rotate(Vector3{X: 0, Y: 0, Z: -1})
	if v2.Sub(v).Length() > 1e-4 {
		t.Errorf("FlipYaw dupla mudou a orientação: %v vs %v", v2, v)
	}
}
