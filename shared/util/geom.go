package util

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Quaternion representa uma rotação no formato do arquivo (W, X, Y, Z).
type Quaternion struct {
	W, X, Y, Z float32
}

// QuaternionIdentity retorna a rotação identidade.
func QuaternionIdentity() Quaternion {
	return Quaternion{W: 1}
}

// toMgl converte para o tipo de quaternion da mathgl.
func (q Quaternion) toMgl() mgl32.Quat {
	return mgl32.Quat{W: q.W, V: mgl32.Vec3{q.X, q.Y, q.Z}}
}

// fromMgl converte de volta do tipo da mathgl.
func fromMgl(m mgl32.Quat) Quaternion {
	return Quaternion{W: m.W, X: m.V.X(), Y: m.V.Y(), Z: m.V.Z()}
}

// Mul compõe duas rotações (q aplicado depois de other).
func (q Quaternion) Mul(other Quaternion) Quaternion {
	return fromMgl(q.toMgl().Mul(other.toMgl()))
}

// Rotate aplica a rotação a um vetor.
func (q Quaternion) Rotate(v Vector3) Vector3 {
	r := q.toMgl().Normalize().Rotate(mgl32.Vec3{v.X, v.Y, v.Z})
	return Vector3{X: r.X(), Y: r.Y(), Z: r.Z()}
}

// YawQuaternion cria a rotação em torno do eixo Y que aponta o eixo -Z
// (frente no espaço do mapa) na direção dada. Ignora a componente Y.
func YawQuaternion(dir Vector3) Quaternion {
	angle := float32(math.Atan2(float64(-dir.X), float64(-dir.Z)))
	return fromMgl(mgl32.QuatRotate(angle, mgl32.Vec3{0, 1, 0}))
}

// FlipYaw gira a rotação 180 graus em torno do eixo Y.
// Usado para restaurar a orientação de âncoras fixas quando o vizinho some.
func (q Quaternion) FlipYaw() Quaternion {
	half := fromMgl(mgl32.QuatRotate(float32(math.Pi), mgl32.Vec3{0, 1, 0}))
	return q.Mul(half)
}

// RotatePointAroundPivot gira um ponto em torno de um pivô.
func RotatePointAroundPivot(point, pivot Vector3, rot Quaternion) Vector3 {
	return rot.Rotate(point.Sub(pivot)).Add(pivot)
}

// HermiteTangent retorna a derivada da curva de Hermite em s (0..1).
// p0/p1 são os extremos, t0/t1 as tangentes nos extremos.
func HermiteTangent(p0, p1, t0, t1 Vector3, s float32) Vector3 {
	s2 := s * s
	a := 6*s2 - 6*s
	b := 3*s2 - 4*s + 1
	c := -6*s2 + 6*s
	d := 3*s2 - 2*s
	return p0.Scale(a).Add(t0.Scale(b)).Add(p1.Scale(c)).Add(t1.Scale(d))
}
