// Package secwire implementa encoding/decoding do formato binário dos
// arquivos de setor. Primitivas: inteiros little-endian, vetores de ponto
// fixo (fator 256), quaternions, tokens base-38 e listas terminadas por
// sentinela (uint64 todo em 1s).
package secwire

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"

	"RotaForge/shared/util"
)

// Sentinel marca o fim das listas de registros (uid todo em 1s).
const Sentinel = ^uint64(0)

// NullUID é o uid nulo gravado para relações inexistentes.
const NullUID = uint64(0)

// FormatError indica bytes truncados, versão não suportada ou
// valores impossíveis no fluxo. Fatal para o load do escopo inteiro.
type FormatError struct {
	Msg string
}

func (e *FormatError) Error() string {
	return "secwire: " + e.Msg
}

// errf cria um FormatError formatado.
func errf(format string, args ...interface{}) *FormatError {
	return &FormatError{Msg: fmt.Sprintf(format, args...)}
}

// CheckVersion valida o tag de versão contra o conjunto suportado.
func CheckVersion(got uint32, supported ...uint32) error {
	for _, v := range supported {
		if got == v {
			return nil
		}
	}
	return errf("versão %d não suportada (aceitas: %v)", got, supported)
}

// ---------- ENCODER ----------

// Encoder acumula bytes no formato dos arquivos de setor.
type Encoder struct {
	buf []byte
}

// NewEncoder cria um encoder vazio.
func NewEncoder() *Encoder {
	return &Encoder{buf: make([]byte, 0, 256)}
}

// Bytes retorna o buffer serializado.
func (e *Encoder) Bytes() []byte {
	return e.buf
}

// Reset limpa o buffer.
func (e *Encoder) Reset() {
	e.buf = e.buf[:0]
}

// WriteUint8 grava um byte.
func (e *Encoder) WriteUint8(v uint8) {
	e.buf = append(e.buf, v)
}

// WriteUint16 grava um uint16 little-endian.
func (e *Encoder) WriteUint16(v uint16) {
	e.buf = binary.LittleEndian.AppendUint16(e.buf, v)
}

// WriteUint32 grava um uint32 little-endian.
func (e *Encoder) WriteUint32(v uint32) {
	e.buf = binary.LittleEndian.AppendUint32(e.buf, v)
}

// WriteInt32 grava um int32 little-endian.
func (e *Encoder) WriteInt32(v int32) {
	e.WriteUint32(uint32(v))
}

// WriteUint64 grava um uint64 little-endian.
func (e *Encoder) WriteUint64(v uint64) {
	e.buf = binary.LittleEndian.AppendUint64(e.buf, v)
}

// WriteFloat32 grava um float32 (IEEE 754, little-endian).
func (e *Encoder) WriteFloat32(v float32) {
	e.WriteUint32(math.Float32bits(v))
}

// WriteVector3 grava um vetor como três float32.
func (e *Encoder) WriteVector3(v util.Vector3) {
	e.WriteFloat32(v.X)
	e.WriteFloat32(v.Y)
	e.WriteFloat32(v.Z)
}

// WriteFixedVector3 grava um vetor em ponto fixo: round(v * 256) como int32.
func (e *Encoder) WriteFixedVector3(v util.Vector3) {
	e.WriteInt32(util.ToFixed(v.X))
	e.WriteInt32(util.ToFixed(v.Y))
	e.WriteInt32(util.ToFixed(v.Z))
}

// WriteQuaternion grava um quaternion como quatro float32 (W, X, Y, Z).
func (e *Encoder) WriteQuaternion(q util.Quaternion) {
	e.WriteFloat32(q.W)
	e.WriteFloat32(q.X)
	e.WriteFloat32(q.Y)
	e.WriteFloat32(q.Z)
}

// WriteBytes grava bytes com prefixo de comprimento uint32.
func (e *Encoder) WriteBytes(b []byte) {
	e.WriteUint32(uint32(len(b)))
	e.buf = append(e.buf, b...)
}

// WriteString grava uma string com prefixo de comprimento uint32.
func (e *Encoder) WriteString(s string) {
	e.WriteUint32(uint32(len(s)))
	e.buf = append(e.buf, s...)
}

// WriteToken grava um token (string internada) codificado em base-38.
func (e *Encoder) WriteToken(s string) error {
	t, err := EncodeToken(s)
	if err != nil {
		return err
	}
	e.WriteUint64(t)
	return nil
}

// WriteSentinel grava o terminador de lista.
func (e *Encoder) WriteSentinel() {
	e.WriteUint64(Sentinel)
}

// ---------- DECODER ----------

// Decoder lê primitivas de um buffer.
type Decoder struct {
	buf []byte
	pos int
}

// NewDecoder cria um decoder sobre um buffer.
func NewDecoder(buf []byte) *Decoder {
	return &Decoder{buf: buf, pos: 0}
}

// Done retorna true se não há mais bytes.
func (d *Decoder) Done() bool {
	return d.pos >= len(d.buf)
}

// Remaining retorna quantos bytes faltam.
func (d *Decoder) Remaining() int {
	return len(d.buf) - d.pos
}

// need garante que há n bytes disponíveis antes de ler.
func (d *Decoder) need(n int, what string) error {
	if d.pos+n > len(d.buf) {
		return errf("%s truncado: precisa %d, tem %d", what, n, len(d.buf)-d.pos)
	}
	return nil
}

// ReadUint8 lê um byte.
func (d *Decoder) ReadUint8() (uint8, error) {
	if err := d.need(1, "uint8"); err != nil {
		return 0, err
	}
	v := d.buf[d.pos]
	d.pos++
	return v, nil
}

// ReadUint16 lê um uint16 little-endian.
func (d *Decoder) ReadUint16() (uint16, error) {
	if err := d.need(2, "uint16"); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint16(d.buf[d.pos:])
	d.pos += 2
	return v, nil
}

// ReadUint32 lê um uint32 little-endian.
func (d *Decoder) ReadUint32() (uint32, error) {
	if err := d.need(4, "uint32"); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint32(d.buf[d.pos:])
	d.pos += 4
	return v, nil
}

// ReadInt32 lê um int32 little-endian.
func (d *Decoder) ReadInt32() (int32, error) {
	v, err := d.ReadUint32()
	return int32(v), err
}

// ReadUint64 lê um uint64 little-endian.
func (d *Decoder) ReadUint64() (uint64, error) {
	if err := d.need(8, "uint64"); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint64(d.buf[d.pos:])
	d.pos += 8
	return v, nil
}

// ReadFloat32 lê um float32.
func (d *Decoder) ReadFloat32() (float32, error) {
	v, err := d.ReadUint32()
	return math.Float32frombits(v), err
}

// ReadVector3 lê um vetor de três float32.
func (d *Decoder) ReadVector3() (util.Vector3, error) {
	if err := d.need(12, "vector3"); err != nil {
		return util.Vector3{}, err
	}
	x, _ := d.ReadFloat32()
	y, _ := d.ReadFloat32()
	z, _ := d.ReadFloat32()
	return util.Vector3{X: x, Y: y, Z: z}, nil
}

// ReadFixedVector3 lê um vetor em ponto fixo (raw / 256.0).
func (d *Decoder) ReadFixedVector3() (util.Vector3, error) {
	if err := d.need(12, "vector3 fixo"); err != nil {
		return util.Vector3{}, err
	}
	x, _ := d.ReadInt32()
	y, _ := d.ReadInt32()
	z, _ := d.ReadInt32()
	return util.Vector3{
		X: util.FromFixed(x),
		Y: util.FromFixed(y),
		Z: util.FromFixed(z),
	}, nil
}

// ReadQuaternion lê um quaternion (W, X, Y, Z).
func (d *Decoder) ReadQuaternion() (util.Quaternion, error) {
	if err := d.need(16, "quaternion"); err != nil {
		return util.Quaternion{}, err
	}
	w, _ := d.ReadFloat32()
	x, _ := d.ReadFloat32()
	y, _ := d.ReadFloat32()
	z, _ := d.ReadFloat32()
	return util.Quaternion{W: w, X: x, Y: y, Z: z}, nil
}

// ReadBytes lê bytes com prefixo de comprimento uint32.
func (d *Decoder) ReadBytes() ([]byte, error) {
	length, err := d.ReadUint32()
	if err != nil {
		return nil, err
	}
	// Verificação de segurança: evita pânicos de slice bounds com
	// comprimentos corrompidos maiores que o buffer.
	if uint64(length) > uint64(d.Remaining()) {
		return nil, errf("comprimento excessivo: precisa %d, tem %d", length, d.Remaining())
	}
	data := d.buf[d.pos : d.pos+int(length)]
	d.pos += int(length)
	return data, nil
}

// ReadString lê uma string com prefixo de comprimento uint32.
func (d *Decoder) ReadString() (string, error) {
	b, err := d.ReadBytes()
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ReadToken lê e decodifica um token base-38.
func (d *Decoder) ReadToken() (string, error) {
	t, err := d.ReadUint64()
	if err != nil {
		return "", err
	}
	return DecodeToken(t)
}

// ---------- TOKENS ----------

// tokenChars é o alfabeto dos tokens; o valor de cada caractere é
// índice + 1 (zero encerra o token), base 38.
const tokenChars = "0123456789abcdefghijklmnopqrstuvwxyz_"

// maxTokenLen é o máximo de caracteres que cabem em 64 bits na base 38.
const maxTokenLen = 12

// EncodeToken converte uma string para o uint64 internado do formato.
func EncodeToken(s string) (uint64, error) {
	if len(s) > maxTokenLen {
		return 0, errf("token %q excede %d caracteres", s, maxTokenLen)
	}
	var t uint64
	var mult uint64 = 1
	for i := 0; i < len(s); i++ {
		idx := strings.IndexByte(tokenChars, s[i])
		if idx < 0 {
			return 0, errf("caractere inválido %q no token %q", s[i], s)
		}
		t += uint64(idx+1) * mult
		mult *= 38
	}
	return t, nil
}

// DecodeToken converte o uint64 internado de volta para string.
func DecodeToken(t uint64) (string, error) {
	var sb strings.Builder
	for t != 0 {
		c := t % 38
		if c == 0 || int(c) > len(tokenChars) {
			return "", errf("token 0x%016x com dígito fora do alfabeto", t)
		}
		sb.WriteByte(tokenChars[c-1])
		t /= 38
	}
	return sb.String(), nil
}
