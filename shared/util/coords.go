package util

import (
	"fmt"
	"math"
)

// Vector3 representa uma posição no espaço do mapa.
// X = leste/oeste, Y = altura, Z = norte/sul
type Vector3 struct {
	X, Y, Z float32
}

// NewVector3 cria um novo vetor.
func NewVector3(x, y, z float32) Vector3 {
	return Vector3{X: x, Y: y, Z: z}
}

// Add soma dois vetores.
func (v Vector3) Add(other Vector3) Vector3 {
	return Vector3{
		X: v.X + other.X,
		Y: v.Y + other.Y,
		Z: v.Z + other.Z,
	}
}

// Sub subtrai dois vetores.
func (v Vector3) Sub(other Vector3) Vector3 {
	return Vector3{
		X: v.X - other.X,
		Y: v.Y - other.Y,
		Z: v.Z - other.Z,
	}
}

// Scale multiplica o vetor por um escalar.
func (v Vector3) Scale(f float32) Vector3 {
	return Vector3{X: v.X * f, Y: v.Y * f, Z: v.Z * f}
}

// Length retorna o comprimento do vetor.
func (v Vector3) Length() float32 {
	return float32(math.Sqrt(float64(v.X*v.X + v.Y*v.Y + v.Z*v.Z)))
}

// String retorna a representação em string do vetor.
func (v Vector3) String() string {
	return fmt.Sprintf("(%g, %g, %g)", v.X, v.Y, v.Z)
}

// SectorSize é o lado de um setor do mapa em unidades de mundo (4000x4000).
const SectorSize = 4000

// SectorCoord identifica um setor pela coordenada inteira da grade (X, Z).
type SectorCoord struct {
	X, Z int32
}

// String retorna a chave textual do setor no padrão dos arquivos: sec+0000-0001
func (c SectorCoord) String() string {
	return fmt.Sprintf("sec%+05d%+05d", c.X, c.Z)
}

// SectorOf calcula o setor que contém a posição.
// Divisão por piso (floor), não truncamento: coordenadas negativas
// caem no setor negativo correto.
func SectorOf(pos Vector3) SectorCoord {
	return SectorCoord{
		X: int32(math.Floor(float64(pos.X) / SectorSize)),
		Z: int32(math.Floor(float64(pos.Z) / SectorSize)),
	}
}

// FixedPointFactor é o fator de ponto fixo das posições no formato (1/256).
const FixedPointFactor = 256

// ToFixed converte um float de mundo para o inteiro de ponto fixo do arquivo.
func ToFixed(v float32) int32 {
	return int32(math.Round(float64(v) * FixedPointFactor))
}

// FromFixed converte o inteiro de ponto fixo do arquivo de volta para float.
func FromFixed(raw int32) float32 {
	return float32(raw) / FixedPointFactor
}

// Clamp limita um valor inteiro ao intervalo [min, max].
func Clamp(v, min, max int32) int32 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// ClampF limita um float ao intervalo [min, max].
func ClampF(v, min, max float32) float32 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
