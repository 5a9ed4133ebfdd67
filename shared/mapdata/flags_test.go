package mapdata

import "testing"

func TestFlagFieldBits(t *testing.T) {
	var f FlagField

	f.SetBit(0, true)
	f.SetBit(3, true)
	if !f.Bit(0) || !f.Bit(3) {
		t.Errorf("bits 0 e 3 deveriam estar ligados: %032b", f)
	}
	if f.Bit(1) {
		t.Errorf("bit 1 não deveria estar ligado: %032b", f)
	}

	f.SetBit(0, false)
	if f.Bit(0) {
		t.Error("bit 0 deveria ter sido limpo")
	}
	if !f.Bit(3) {
		t.Error("limpar o bit 0 não pode afetar o bit 3")
	}
}

func TestFlagFieldBytes(t *testing.T) {
	var f FlagField

	f.SetByte(1, 0xAB)
	f.SetByte(2, 0xCD)
	if f.Byte(1) != 0xAB {
		t.Errorf("byte 1 = 0x%02x", f.Byte(1))
	}
	if f.Byte(2) != 0xCD {
		t.Errorf("byte 2 = 0x%02x", f.Byte(2))
	}

	// sobrescrever um byte não vaza para o vizinho
	f.SetByte(1, 0x01)
	if f.Byte(2) != 0xCD {
		t.Errorf("byte 2 corrompido após SetByte(1): 0x%02x", f.Byte(2))
	}
}

func TestFlagFieldNibbles(t *testing.T) {
	var f FlagField

	f.SetNibble(2, 0x7)
	if f.Nibble(2) != 0x7 {
		t.Errorf("nibble 2 = 0x%x", f.Nibble(2))
	}
	f.SetNibble(2, 0x2)
	if f.Nibble(2) != 0x2 {
		t.Errorf("nibble 2 após sobrescrita = 0x%x", f.Nibble(2))
	}
	if f.Nibble(3) != 0 {
		t.Errorf("nibble 3 deveria continuar zerado: 0x%x", f.Nibble(3))
	}
}

func TestNodeFlagAccessors(t *testing.T) {
	n := &Node{}

	n.SetRed(true)
	if !n.IsRed() {
		t.Error("nó deveria estar vermelho")
	}

	n.SetCountryBorder(true, 4, 7)
	if !n.CountryBorder() || n.BackwardCountry() != 4 || n.ForwardCountry() != 7 {
		t.Errorf("fronteira: %v back=%d fwd=%d", n.CountryBorder(), n.BackwardCountry(), n.ForwardCountry())
	}
	n.SetCountryBorder(false, 0, 0)
	if n.CountryBorder() || n.BackwardCountry() != 0 {
		t.Error("limpar a fronteira deveria zerar os códigos")
	}

	if !n.IsRed() {
		t.Error("mexer na fronteira não pode apagar a marca vermelha")
	}
}

func TestViewDistanceClamp(t *testing.T) {
	b := &ItemBase{}

	b.SetViewDistance(400)
	if b.ViewDistance() != 400 {
		t.Errorf("ViewDistance = %d", b.ViewDistance())
	}

	b.SetViewDistance(5)
	if b.ViewDistance() != MinViewDistance {
		t.Errorf("abaixo do mínimo deveria virar %d, obteve %d", MinViewDistance, b.ViewDistance())
	}

	b.SetViewDistance(99999)
	if b.ViewDistance() != MaxViewDistance {
		t.Errorf("acima do máximo deveria virar %d, obteve %d", MaxViewDistance, b.ViewDistance())
	}
}
