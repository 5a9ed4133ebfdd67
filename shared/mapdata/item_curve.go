package mapdata

import (
	"fmt"

	"RotaForge/shared/pkg/secwire"
	"RotaForge/shared/util"
)

// Curve é uma polilinha decorativa (cercas, muros, postes repetidos).
type Curve struct {
	ItemBase

	Model     string // token do modelo repetido
	FirstPart string // token da peça inicial (pode ser vazio)
	LastPart  string // token da peça final (pode ser vazio)
}

// Type retorna o tag de tipo do item.
func (c *Curve) Type() ItemType { return ItemTypeCurve }

// resolve roda a passada 2: só a lista de nós.
func (c *Curve) resolve(s scope) error {
	return c.resolveNodes(s, c)
}

// Recalculate realinha a rotação dos nós com a direção da polilinha,
// igual à estrada (mesma capacidade de recálculo de ponta).
func (c *Curve) Recalculate() {
	refs := c.nodes
	for i, ref := range refs {
		n, ok := resolvedNode(ref)
		if !ok || n.FreeRotation() {
			continue
		}
		var dir util.Vector3
		switch {
		case len(refs) < 2:
			continue
		case i == 0:
			if next, ok := resolvedNode(refs[1]); ok {
				dir = next.Position.Sub(n.Position)
			}
		case i == len(refs)-1:
			if prev, ok := resolvedNode(refs[i-1]); ok {
				dir = n.Position.Sub(prev.Position)
			}
		default:
			prev, okP := resolvedNode(refs[i-1])
			next, okN := resolvedNode(refs[i+1])
			if !okP || !okN {
				continue
			}
			dir = next.Position.Sub(prev.Position)
		}
		if dir.Length() == 0 {
			continue
		}
		n.Rotation = util.YawQuaternion(dir)
	}
}

// NewCurve cria uma polilinha decorativa ligando as posições dadas.
func NewCurve(c ItemContainer, model string, points ...util.Vector3) (*Curve, error) {
	if len(points) < 2 {
		return nil, fmt.Errorf("mapdata: curva precisa de pelo menos 2 pontos, veio %d", len(points))
	}
	cv := &Curve{Model: model}
	for i, p := range points {
		n := c.AddNode(p, i == 0)
		cv.nodes = append(cv.nodes, n)
	}
	cv.SetViewDistance(400)
	cv.updateKdop()
	attachNodes(cv)
	cv.Recalculate()
	if err := c.AddItem(cv); err != nil {
		return nil, err
	}
	return cv, nil
}

type curveSerializer struct{}

func init() { Register(ItemTypeCurve, curveSerializer{}) }

func (curveSerializer) Encode(e *secwire.Encoder, item MapItem) error {
	c := item.(*Curve)
	encodeItemBase(e, &c.ItemBase)
	if err := e.WriteToken(c.Model); err != nil {
		return err
	}
	if err := e.WriteToken(c.FirstPart); err != nil {
		return err
	}
	if err := e.WriteToken(c.LastPart); err != nil {
		return err
	}
	encodeNodeRefs(e, c.nodes)
	return nil
}

func (curveSerializer) Decode(d *secwire.Decoder) (MapItem, error) {
	c := &Curve{}
	if err := decodeItemBase(d, &c.ItemBase); err != nil {
		return nil, err
	}
	var err error
	if c.Model, err = d.ReadToken(); err != nil {
		return nil, err
	}
	if c.FirstPart, err = d.ReadToken(); err != nil {
		return nil, err
	}
	if c.LastPart, err = d.ReadToken(); err != nil {
		return nil, err
	}
	if c.nodes, err = decodeNodeRefs(d); err != nil {
		return nil, err
	}
	if len(c.nodes) < 2 {
		return nil, &secwire.FormatError{Msg: fmt.Sprintf("curva 0x%x com %d nós (mínimo 2)", c.ID, len(c.nodes))}
	}
	return c, nil
}
