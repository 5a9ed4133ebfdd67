package mapdata

import (
	"fmt"

	"RotaForge/shared/pkg/secwire"
)

// Serializer é o par encode/decode de uma variante de item. A lei de
// round-trip vale para todo par registrado: decode consome exatamente os
// bytes que encode produz para o mesmo valor lógico.
type Serializer interface {
	Decode(d *secwire.Decoder) (MapItem, error)
	Encode(e *secwire.Encoder, item MapItem) error
}

// registry mapeia o tag de tipo para o serializador da variante.
// Exatamente um registro por tag; variantes novas entram por Register,
// nunca por ramificação de tipo dentro do codec.
var registry = map[ItemType]Serializer{}

// Register registra o serializador de uma variante. Registro duplicado é
// erro de programação e derruba o processo na inicialização.
func Register(t ItemType, s Serializer) {
	if _, dup := registry[t]; dup {
		panic(fmt.Sprintf("mapdata: serializador duplicado para o tipo %d", t))
	}
	registry[t] = s
}

// SerializerFor retorna o serializador do tag, ou FormatError se o tag é
// desconhecido (arquivo de versão/conteúdo não suportado).
func SerializerFor(t ItemType) (Serializer, error) {
	s, ok := registry[t]
	if !ok {
		return nil, &secwire.FormatError{Msg: fmt.Sprintf("tipo de item desconhecido: %d", t)}
	}
	return s, nil
}

// encodeTypedItem grava tag + corpo de um item via registry.
func encodeTypedItem(e *secwire.Encoder, item MapItem) error {
	s, err := SerializerFor(item.Type())
	if err != nil {
		return err
	}
	e.WriteUint32(uint32(item.Type()))
	return s.Encode(e, item)
}

// decodeTypedItem lê tag + corpo de um item via registry.
func decodeTypedItem(d *secwire.Decoder) (MapItem, error) {
	tag, err := d.ReadUint32()
	if err != nil {
		return nil, err
	}
	s, err := SerializerFor(ItemType(tag))
	if err != nil {
		return nil, err
	}
	return s.Decode(d)
}
