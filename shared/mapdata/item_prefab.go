package mapdata

import (
	"fmt"

	"RotaForge/shared/pkg/secwire"
)

// Prefab é um item multi-nó instanciado a partir de um descritor externo
// de unidade. Serve de âncora fixa para estradas encadeadas e pode ter
// itens escravos (pontos de serviço) que caem junto no delete.
type Prefab struct {
	ItemBase

	Unit   string // token da unidade do descritor
	Look   string // token da variante visual
	Origin uint16 // índice do nó de controle usado como origem

	// SlaveItems são os itens dependentes (serviços, empresas). Resolução
	// tolerante: alvo fora do escopo permanece placeholder.
	SlaveItems []ItemRef

	// payload é o bloco extra do .data, opaco e re-emitido byte a byte.
	payload []byte
}

// Type retorna o tag de tipo do item.
func (p *Prefab) Type() ItemType { return ItemTypePrefab }

// resolve roda a passada 2: nós obrigatórios, escravos tolerantes.
func (p *Prefab) resolve(s scope) error {
	if err := p.resolveNodes(s, p); err != nil {
		return err
	}
	resolveItemRefs(s, p.SlaveItems)
	return nil
}

// DependentItems retorna os itens que caem em cascata com o prefab.
func (p *Prefab) DependentItems() []ItemRef { return p.SlaveItems }

// removeDependent tira um escravo da lista quando ele é removido do mapa
// diretamente, sem passar pela cascata do prefab.
func (p *Prefab) removeDependent(uid uint64) {
	for i, ref := range p.SlaveItems {
		if ref != nil && ref.UID() == uid {
			p.SlaveItems = append(p.SlaveItems[:i], p.SlaveItems[i+1:]...)
			return
		}
	}
}

// PayloadData retorna o bloco opaco do .data.
func (p *Prefab) PayloadData() []byte { return p.payload }

// SetPayloadData grava o bloco opaco e ajusta a flag de payload.
func (p *Prefab) SetPayloadData(b []byte) {
	p.payload = b
	p.setHasPayload(len(b) > 0)
}

type prefabSerializer struct{}

func init() { Register(ItemTypePrefab, prefabSerializer{}) }

func (prefabSerializer) Encode(e *secwire.Encoder, item MapItem) error {
	p := item.(*Prefab)
	encodeItemBase(e, &p.ItemBase)
	if err := e.WriteToken(p.Unit); err != nil {
		return err
	}
	if err := e.WriteToken(p.Look); err != nil {
		return err
	}
	e.WriteUint16(p.Origin)
	encodeNodeRefs(e, p.nodes)
	encodeItemRefs(e, p.SlaveItems)
	return nil
}

func (prefabSerializer) Decode(d *secwire.Decoder) (MapItem, error) {
	p := &Prefab{}
	if err := decodeItemBase(d, &p.ItemBase); err != nil {
		return nil, err
	}
	var err error
	if p.Unit, err = d.ReadToken(); err != nil {
		return nil, err
	}
	if p.Look, err = d.ReadToken(); err != nil {
		return nil, err
	}
	if p.Origin, err = d.ReadUint16(); err != nil {
		return nil, err
	}
	if p.nodes, err = decodeNodeRefs(d); err != nil {
		return nil, err
	}
	if len(p.nodes) == 0 {
		return nil, &secwire.FormatError{Msg: fmt.Sprintf("prefab 0x%x sem nós", p.ID)}
	}
	if p.SlaveItems, err = decodeItemRefs(d); err != nil {
		return nil, err
	}
	return p, nil
}
