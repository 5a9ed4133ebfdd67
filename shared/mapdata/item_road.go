package mapdata

import (
	"fmt"

	"RotaForge/shared/pkg/secwire"
	"RotaForge/shared/util"
)

// MaxTerrainSize é o limite do aterro lateral de uma estrada em metros.
const MaxTerrainSize = 500

// Road é um item de polilinha (>= 2 nós) que liga nós em sequência.
// O primeiro nó é a saída (vermelho), o último a chegada.
type Road struct {
	ItemBase

	RoadType         string // token do tipo de estrada
	LeftTerrainSize  float32
	RightTerrainSize float32
}

// Type retorna o tag de tipo do item.
func (r *Road) Type() ItemType { return ItemTypeRoad }

// resolve roda a passada 2: a lista de nós é obrigatória.
func (r *Road) resolve(s scope) error {
	return r.resolveNodes(s, r)
}

// Recalculate realinha a rotação dos nós com a tangente da polilinha.
// Nós com rotação livre não são tocados.
func (r *Road) Recalculate() {
	refs := r.nodes
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
			chord := next.Position.Sub(prev.Position)
			dir = util.HermiteTangent(prev.Position, next.Position, chord, chord, 0.5)
		}
		if dir.Length() == 0 {
			continue
		}
		n.Rotation = util.YawQuaternion(dir)
	}
}

// NewRoad cria uma estrada ligando as posições dadas, criando os nós no
// container. O primeiro nó nasce vermelho.
func NewRoad(c ItemContainer, roadType string, points ...util.Vector3) (*Road, error) {
	if len(points) < 2 {
		return nil, fmt.Errorf("mapdata: estrada precisa de pelo menos 2 pontos, veio %d", len(points))
	}
	r := &Road{
		RoadType:        roadType,
		LeftTerrainSize: 0,
	}
	for i, p := range points {
		n := c.AddNode(p, i == 0)
		r.nodes = append(r.nodes, n)
	}
	r.SetViewDistance(400)
	r.updateKdop()
	attachNodes(r)
	r.Recalculate()
	if err := c.AddItem(r); err != nil {
		return nil, err
	}
	return r, nil
}

// updateKdop recalcula o volume delimitador a partir dos nós resolvidos.
func (b *ItemBase) updateKdop() {
	first := true
	for _, ref := range b.nodes {
		n, ok := resolvedNode(ref)
		if !ok {
			continue
		}
		p := n.Position
		if first {
			b.Kdop.Min, b.Kdop.Max = p, p
			first = false
			continue
		}
		if p.X < b.Kdop.Min.X {
			b.Kdop.Min.X = p.X
		}
		if p.Y < b.Kdop.Min.Y {
			b.Kdop.Min.Y = p.Y
		}
		if p.Z < b.Kdop.Min.Z {
			b.Kdop.Min.Z = p.Z
		}
		if p.X > b.Kdop.Max.X {
			b.Kdop.Max.X = p.X
		}
		if p.Y > b.Kdop.Max.Y {
			b.Kdop.Max.Y = p.Y
		}
		if p.Z > b.Kdop.Max.Z {
			b.Kdop.Max.Z = p.Z
		}
	}
}

type roadSerializer struct{}

func init() { Register(ItemTypeRoad, roadSerializer{}) }

func (roadSerializer) Encode(e *secwire.Encoder, item MapItem) error {
	r := item.(*Road)
	encodeItemBase(e, &r.ItemBase)
	if err := e.WriteToken(r.RoadType); err != nil {
		return err
	}
	e.WriteFloat32(r.LeftTerrainSize)
	e.WriteFloat32(r.RightTerrainSize)
	encodeNodeRefs(e, r.nodes)
	return nil
}

func (roadSerializer) Decode(d *secwire.Decoder) (MapItem, error) {
	r := &Road{}
	if err := decodeItemBase(d, &r.ItemBase); err != nil {
		return nil, err
	}
	var err error
	if r.RoadType, err = d.ReadToken(); err != nil {
		return nil, err
	}
	left, err := d.ReadFloat32()
	if err != nil {
		return nil, err
	}
	right, err := d.ReadFloat32()
	if err != nil {
		return nil, err
	}
	// clamp silencioso do aterro, não rejeição
	r.LeftTerrainSize = util.ClampF(left, 0, MaxTerrainSize)
	r.RightTerrainSize = util.ClampF(right, 0, MaxTerrainSize)
	if r.nodes, err = decodeNodeRefs(d); err != nil {
		return nil, err
	}
	if len(r.nodes) < 2 {
		return nil, &secwire.FormatError{Msg: fmt.Sprintf("estrada 0x%x com %d nós (mínimo 2)", r.ID, len(r.nodes))}
	}
	return r, nil
}
