package mapdata

import (
	"fmt"

	"RotaForge/shared/pkg/secwire"
	"RotaForge/shared/util"
)

// Trigger é uma área de gatilho poligonal (número variável de nós) com
// uma lista de ações por token.
type Trigger struct {
	ItemBase

	Range   float32
	Actions []string // tokens de ação
}

// Type retorna o tag de tipo do item.
func (t *Trigger) Type() ItemType { return ItemTypeTrigger }

// resolve roda a passada 2: só a lista de nós.
func (t *Trigger) resolve(s scope) error {
	return t.resolveNodes(s, t)
}

// NewTrigger cria um gatilho com os vértices dados.
func NewTrigger(c ItemContainer, actions []string, points ...util.Vector3) (*Trigger, error) {
	if len(points) == 0 {
		return nil, fmt.Errorf("mapdata: gatilho precisa de pelo menos 1 vértice")
	}
	t := &Trigger{Actions: actions}
	for i, p := range points {
		n := c.AddNode(p, i == 0)
		t.nodes = append(t.nodes, n)
	}
	t.SetViewDistance(MinViewDistance)
	t.updateKdop()
	attachNodes(t)
	if err := c.AddItem(t); err != nil {
		return nil, err
	}
	return t, nil
}

type triggerSerializer struct{}

func init() { Register(ItemTypeTrigger, triggerSerializer{}) }

func (triggerSerializer) Encode(e *secwire.Encoder, item MapItem) error {
	t := item.(*Trigger)
	encodeItemBase(e, &t.ItemBase)
	e.WriteFloat32(t.Range)
	e.WriteUint32(uint32(len(t.Actions)))
	for _, a := range t.Actions {
		if err := e.WriteToken(a); err != nil {
			return err
		}
	}
	encodeNodeRefs(e, t.nodes)
	return nil
}

func (triggerSerializer) Decode(d *secwire.Decoder) (MapItem, error) {
	t := &Trigger{}
	if err := decodeItemBase(d, &t.ItemBase); err != nil {
		return nil, err
	}
	var err error
	if t.Range, err = d.ReadFloat32(); err != nil {
		return nil, err
	}
	count, err := d.ReadUint32()
	if err != nil {
		return nil, err
	}
	if uint64(count)*8 > uint64(d.Remaining()) {
		return nil, &secwire.FormatError{Msg: fmt.Sprintf("gatilho 0x%x com %d ações excede o buffer", t.ID, count)}
	}
	for i := uint32(0); i < count; i++ {
		a, err := d.ReadToken()
		if err != nil {
			return nil, err
		}
		t.Actions = append(t.Actions, a)
	}
	if t.nodes, err = decodeNodeRefs(d); err != nil {
		return nil, err
	}
	if len(t.nodes) == 0 {
		return nil, &secwire.FormatError{Msg: fmt.Sprintf("gatilho 0x%x sem nós", t.ID)}
	}
	return t, nil
}
