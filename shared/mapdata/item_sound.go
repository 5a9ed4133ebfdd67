package mapdata

import (
	"fmt"

	"RotaForge/shared/pkg/secwire"
	"RotaForge/shared/util"
)

// Sound é um emissor de áudio ambiente de nó único. Mora no canal .snd.
type Sound struct {
	ItemBase

	Sound  string // token do recurso de áudio
	Volume float32
	Range  float32
}

// Type retorna o tag de tipo do item.
func (s *Sound) Type() ItemType { return ItemTypeSound }

// resolve roda a passada 2: só a lista de nós.
func (s *Sound) resolve(sc scope) error {
	return s.resolveNodes(sc, s)
}

// NewSound cria um emissor de som na posição dada (canal de áudio).
func NewSound(c ItemContainer, sound string, pos util.Vector3, volume, rng float32) (*Sound, error) {
	item := &Sound{
		Sound:  sound,
		Volume: volume,
		Range:  rng,
	}
	item.ItemFile = FileAudio
	n := c.AddNode(pos, false)
	item.nodes = []NodeRef{n}
	item.SetViewDistance(MinViewDistance)
	item.updateKdop()
	attachNodes(item)
	if err := c.AddItem(item); err != nil {
		return nil, err
	}
	return item, nil
}

type soundSerializer struct{}

func init() { Register(ItemTypeSound, soundSerializer{}) }

func (soundSerializer) Encode(e *secwire.Encoder, item MapItem) error {
	s := item.(*Sound)
	encodeItemBase(e, &s.ItemBase)
	if err := e.WriteToken(s.Sound); err != nil {
		return err
	}
	e.WriteFloat32(s.Volume)
	e.WriteFloat32(s.Range)
	encodeNodeRefs(e, s.nodes)
	return nil
}

func (soundSerializer) Decode(d *secwire.Decoder) (MapItem, error) {
	s := &Sound{}
	if err := decodeItemBase(d, &s.ItemBase); err != nil {
		return nil, err
	}
	var err error
	if s.Sound, err = d.ReadToken(); err != nil {
		return nil, err
	}
	if s.Volume, err = d.ReadFloat32(); err != nil {
		return nil, err
	}
	if s.Range, err = d.ReadFloat32(); err != nil {
		return nil, err
	}
	if s.nodes, err = decodeNodeRefs(d); err != nil {
		return nil, err
	}
	if len(s.nodes) != 1 {
		return nil, &secwire.FormatError{Msg: fmt.Sprintf("som 0x%x com %d nós (esperado 1)", s.ID, len(s.nodes))}
	}
	return s, nil
}
