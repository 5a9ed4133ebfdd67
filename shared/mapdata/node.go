package mapdata

import (
	"RotaForge/shared/pkg/secwire"
	"RotaForge/shared/util"
)

// Layout de bits do FlagField de um nó.
// bit 0: nó vermelho (tem item de saída); 0 = verde
// bit 1: rotação livre (o recálculo de polilinha não toca a rotação)
// bit 2: travado no editor
// bit 3: fronteira de país
// byte 1: código de país do lado backward
// byte 2: código de país do lado forward
const (
	nodeFlagRed           = 0
	nodeFlagFreeRotation  = 1
	nodeFlagLocked        = 2
	nodeFlagCountryBorder = 3
	nodeByteCountryBack   = 1
	nodeByteCountryFwd    = 2
)

// Node é um vértice posicionado do grafo com no máximo duas relações:
// o item de saída (forward) e o item de chegada (backward). Um nó sem
// nenhuma relação é órfão e deve ser removido.
type Node struct {
	container graphScope

	ID       uint64
	Position util.Vector3
	Rotation util.Quaternion
	Flags    FlagField

	// ForwardItem é o item para o qual este nó é o ponto de saída;
	// BackwardItem o de chegada. Podem segurar *UnresolvedItem até o
	// resolver rodar (ou permanentemente, em load parcial de setores).
	ForwardItem  ItemRef
	BackwardItem ItemRef
}

// UID retorna o identificador único do nó.
func (n *Node) UID() uint64 { return n.ID }

// IsRed indica se o nó está marcado como vermelho (origem de item).
func (n *Node) IsRed() bool { return n.Flags.Bit(nodeFlagRed) }

// SetRed marca o nó como vermelho ou verde.
func (n *Node) SetRed(v bool) { n.Flags.SetBit(nodeFlagRed, v) }

// FreeRotation indica se a rotação é livre (não recalculada).
func (n *Node) FreeRotation() bool { return n.Flags.Bit(nodeFlagFreeRotation) }

// SetFreeRotation liga/desliga a rotação livre.
func (n *Node) SetFreeRotation(v bool) { n.Flags.SetBit(nodeFlagFreeRotation, v) }

// Locked indica se o nó está travado para edição.
func (n *Node) Locked() bool { return n.Flags.Bit(nodeFlagLocked) }

// SetLocked trava/destrava o nó.
func (n *Node) SetLocked(v bool) { n.Flags.SetBit(nodeFlagLocked, v) }

// CountryBorder indica se o nó é uma fronteira de país.
func (n *Node) CountryBorder() bool { return n.Flags.Bit(nodeFlagCountryBorder) }

// SetCountryBorder marca o nó como fronteira com os códigos de cada lado.
func (n *Node) SetCountryBorder(v bool, backCountry, fwdCountry uint8) {
	n.Flags.SetBit(nodeFlagCountryBorder, v)
	if v {
		n.Flags.SetByte(nodeByteCountryBack, backCountry)
		n.Flags.SetByte(nodeByteCountryFwd, fwdCountry)
	} else {
		n.Flags.SetByte(nodeByteCountryBack, 0)
		n.Flags.SetByte(nodeByteCountryFwd, 0)
	}
}

// BackwardCountry retorna o código de país do lado backward.
func (n *Node) BackwardCountry() uint8 { return n.Flags.Byte(nodeByteCountryBack) }

// ForwardCountry retorna o código de país do lado forward.
func (n *Node) ForwardCountry() uint8 { return n.Flags.Byte(nodeByteCountryFwd) }

// IsOrphaned retorna true se o nó não tem nenhuma relação viva.
func (n *Node) IsOrphaned() bool {
	return n.ForwardItem == nil && n.BackwardItem == nil
}

// Sector retorna o setor que contém fisicamente o nó.
func (n *Node) Sector() util.SectorCoord {
	return util.SectorOf(n.Position)
}

// hasResolvedRelation indica se ao menos uma relação aponta para um item
// vivo. Nós sem relação resolvida nunca são persistidos.
func (n *Node) hasResolvedRelation() bool {
	if _, ok := resolvedItem(n.ForwardItem); ok {
		return true
	}
	_, ok := resolvedItem(n.BackwardItem)
	return ok
}

// attach liga o nó a um item no slot forward ou backward.
func (n *Node) attach(item MapItem, forward bool) {
	if forward {
		n.ForwardItem = item
		n.SetRed(true)
	} else {
		n.BackwardItem = item
	}
}

// refUID devolve o uid gravável de uma referência. Relação vazia vira o
// uid nulo; um placeholder re-emite o uid original (o alvo simplesmente
// não estava no escopo carregado e a relação sobrevive ao round-trip).
func refUID(r ItemRef) uint64 {
	if r == nil {
		return secwire.NullUID
	}
	return r.UID()
}

// itemRefFromUID reconstrói a referência a partir do uid do arquivo.
func itemRefFromUID(uid uint64) ItemRef {
	if uid == secwire.NullUID {
		return nil
	}
	return &UnresolvedItem{ID: uid}
}

// encodeNode grava o registro binário do nó.
func encodeNode(e *secwire.Encoder, n *Node) {
	e.WriteUint64(n.ID)
	e.WriteFixedVector3(n.Position)
	e.WriteQuaternion(n.Rotation)
	e.WriteUint64(refUID(n.BackwardItem))
	e.WriteUint64(refUID(n.ForwardItem))
	e.WriteUint32(uint32(n.Flags))
}

// decodeNode lê o registro binário de um nó. As relações voltam como
// placeholders pendentes do resolver.
func decodeNode(d *secwire.Decoder) (*Node, error) {
	n := &Node{}
	var err error
	if n.ID, err = d.ReadUint64(); err != nil {
		return nil, err
	}
	if n.Position, err = d.ReadFixedVector3(); err != nil {
		return nil, err
	}
	if n.Rotation, err = d.ReadQuaternion(); err != nil {
		return nil, err
	}
	back, err := d.ReadUint64()
	if err != nil {
		return nil, err
	}
	fwd, err := d.ReadUint64()
	if err != nil {
		return nil, err
	}
	flags, err := d.ReadUint32()
	if err != nil {
		return nil, err
	}
	n.BackwardItem = itemRefFromUID(back)
	n.ForwardItem = itemRefFromUID(fwd)
	n.Flags = FlagField(flags)
	return n, nil
}
