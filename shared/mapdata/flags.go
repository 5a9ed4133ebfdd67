package mapdata

// FlagField é a palavra de flags de 32 bits compartilhada por nós, itens
// com Kdop e cabeçalhos de setor. O layout de bits é específico por tipo
// e precisa ser reproduzido bit a bit para compatibilidade do formato;
// os acessores nomeados ficam em cada tipo, nunca espalhados pela lógica.
type FlagField uint32

// Bit lê um bit individual (0..31).
func (f FlagField) Bit(i uint) bool {
	return f&(1<<i) != 0
}

// SetBit grava um bit individual.
func (f *FlagField) SetBit(i uint, v bool) {
	if v {
		*f |= 1 << i
	} else {
		*f &^= 1 << i
	}
}

// Byte lê o n-ésimo byte (0..3) da palavra.
func (f FlagField) Byte(n uint) uint8 {
	return uint8(f >> (n * 8))
}

// SetByte grava o n-ésimo byte da palavra.
func (f *FlagField) SetByte(n uint, v uint8) {
	shift := n * 8
	*f = (*f &^ (0xFF << shift)) | (FlagField(v) << shift)
}

// Nibble lê o n-ésimo nibble (0..7) da palavra.
func (f FlagField) Nibble(n uint) uint8 {
	return uint8(f>>(n*4)) & 0x0F
}

// SetNibble grava o n-ésimo nibble da palavra.
func (f *FlagField) SetNibble(n uint, v uint8) {
	shift := n * 4
	*f = (*f &^ (0x0F << shift)) | (FlagField(v&0x0F) << shift)
}

// Range lê width bits a partir do offset off.
func (f FlagField) Range(off, width uint) uint32 {
	mask := uint32(1<<width - 1)
	return (uint32(f) >> off) & mask
}

// SetRange grava width bits a partir do offset off.
func (f *FlagField) SetRange(off, width uint, v uint32) {
	mask := uint32(1<<width-1) << off
	*f = FlagField((uint32(*f) &^ mask) | ((v << off) & mask))
}
