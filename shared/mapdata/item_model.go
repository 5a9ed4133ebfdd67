package mapdata

import (
	"fmt"

	"RotaForge/shared/pkg/secwire"
	"RotaForge/shared/util"
)

// Model é um item decorativo de nó único (vegetação, placas, estátuas).
type Model struct {
	ItemBase

	Model string // token do modelo 3D
	Look  string // token da variante visual
	Scale util.Vector3
}

// Type retorna o tag de tipo do item.
func (m *Model) Type() ItemType { return ItemTypeModel }

// resolve roda a passada 2: só a lista de nós.
func (m *Model) resolve(s scope) error {
	return m.resolveNodes(s, m)
}

// NewModel cria um item decorativo na posição dada.
func NewModel(c ItemContainer, model, look string, pos util.Vector3) (*Model, error) {
	item := &Model{
		Model: model,
		Look:  look,
		Scale: util.NewVector3(1, 1, 1),
	}
	n := c.AddNode(pos, false)
	item.nodes = []NodeRef{n}
	item.SetViewDistance(400)
	item.updateKdop()
	attachNodes(item)
	if err := c.AddItem(item); err != nil {
		return nil, err
	}
	return item, nil
}

type modelSerializer struct{}

func init() { Register(ItemTypeModel, modelSerializer{}) }

func (modelSerializer) Encode(e *secwire.Encoder, item MapItem) error {
	m := item.(*Model)
	encodeItemBase(e, &m.ItemBase)
	if err := e.WriteToken(m.Model); err != nil {
		return err
	}
	if err := e.WriteToken(m.Look); err != nil {
		return err
	}
	e.WriteVector3(m.Scale)
	encodeNodeRefs(e, m.nodes)
	return nil
}

func (modelSerializer) Decode(d *secwire.Decoder) (MapItem, error) {
	m := &Model{}
	if err := decodeItemBase(d, &m.ItemBase); err != nil {
		return nil, err
	}
	var err error
	if m.Model, err = d.ReadToken(); err != nil {
		return nil, err
	}
	if m.Look, err = d.ReadToken(); err != nil {
		return nil, err
	}
	if m.Scale, err = d.ReadVector3(); err != nil {
		return nil, err
	}
	if m.nodes, err = decodeNodeRefs(d); err != nil {
		return nil, err
	}
	if len(m.nodes) != 1 {
		return nil, &secwire.FormatError{Msg: fmt.Sprintf("modelo 0x%x com %d nós (esperado 1)", m.ID, len(m.nodes))}
	}
	return m, nil
}
