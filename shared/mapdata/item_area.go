package mapdata

import (
	"fmt"

	"RotaForge/shared/pkg/secwire"
)

// MapArea é um polígono desenhado no mapa-múndi (área de cidade, água).
type MapArea struct {
	ItemBase

	AreaType uint32
	Color    uint32
}

// Type retorna o tag de tipo do item.
func (a *MapArea) Type() ItemType { return ItemTypeMapArea }

// resolve roda a passada 2: só a lista de nós.
func (a *MapArea) resolve(s scope) error {
	return a.resolveNodes(s, a)
}

type mapAreaSerializer struct{}

func init() { Register(ItemTypeMapArea, mapAreaSerializer{}) }

func (mapAreaSerializer) Encode(e *secwire.Encoder, item MapItem) error {
	a := item.(*MapArea)
	encodeItemBase(e, &a.ItemBase)
	e.WriteUint32(a.AreaType)
	e.WriteUint32(a.Color)
	encodeNodeRefs(e, a.nodes)
	return nil
}

func (mapAreaSerializer) Decode(d *secwire.Decoder) (MapItem, error) {
	a := &MapArea{}
	if err := decodeItemBase(d, &a.ItemBase); err != nil {
		return nil, err
	}
	var err error
	if a.AreaType, err = d.ReadUint32(); err != nil {
		return nil, err
	}
	if a.Color, err = d.ReadUint32(); err != nil {
		return nil, err
	}
	if a.nodes, err = decodeNodeRefs(d); err != nil {
		return nil, err
	}
	if len(a.nodes) < 3 {
		return nil, &secwire.FormatError{Msg: fmt.Sprintf("área 0x%x com %d nós (mínimo 3)", a.ID, len(a.nodes))}
	}
	return a, nil
}
