package mapdata

import (
	"fmt"

	"RotaForge/shared/pkg/secwire"
	"RotaForge/shared/util"
)

// ItemType é o tag inteiro de tipo gravado antes de cada item no arquivo.
type ItemType uint32

const (
	ItemTypeRoad     ItemType = 3
	ItemTypePrefab   ItemType = 4
	ItemTypeModel    ItemType = 5
	ItemTypeService  ItemType = 7
	ItemTypeSound    ItemType = 18
	ItemTypeTrigger  ItemType = 22
	ItemTypeCompound ItemType = 28
	ItemTypeMapArea  ItemType = 30
	ItemTypeCurve    ItemType = 32
)

// ItemFile é o canal físico (sub-arquivo de setor) onde o item mora.
type ItemFile uint8

const (
	FilePrimary   ItemFile = iota // .base (obrigatório)
	FileAuxiliary                 // .aux (opcional)
	FileAudio                     // .snd (opcional)
)

// Extension retorna a extensão de arquivo do canal.
func (f ItemFile) Extension() string {
	switch f {
	case FileAuxiliary:
		return ".aux"
	case FileAudio:
		return ".snd"
	default:
		return ".base"
	}
}

// MapItem é a entidade polimórfica do grafo. Cada variante registra seu
// par encode/decode no registry; código compartilhado nunca ramifica por
// tipo concreto.
type MapItem interface {
	UID() uint64
	Type() ItemType
	File() ItemFile
	Nodes() []NodeRef
	Base() *ItemBase

	// resolve roda a passada 2 do resolver no escopo dado: lista de nós
	// (falha dura) e relações secundárias de item (tolerantes).
	resolve(s scope) error
}

// Recalculable é implementado por itens de polilinha que recalculam a
// rotação dos nós quando uma ponta se move ou um vizinho some.
type Recalculable interface {
	MapItem
	Recalculate()
}

// PayloadCarrier é implementado por itens que carregam um bloco extra no
// arquivo .data. O conteúdo é opaco e re-emitido byte a byte.
type PayloadCarrier interface {
	MapItem
	PayloadData() []byte
	SetPayloadData([]byte)
}

// dependentOwner é implementado por itens com itens dependentes (ex:
// pontos de serviço escravos de um prefab) que caem em cascata no delete.
type dependentOwner interface {
	DependentItems() []ItemRef
	removeDependent(uid uint64)
}

// ownedDependent é o lado escravo da relação: conhece o item dono, para
// que a remoção direta do escravo limpe a lista do dono e nenhuma
// referência resolvida aponte para item fora da tabela.
type ownedDependent interface {
	OwnerItem() ItemRef
}

// scope é a visão de lookup de um escopo de resolução (mapa inteiro ou o
// conteúdo privado de um compound).
type scope interface {
	Node(uid uint64) (*Node, bool)
	Item(uid uint64) (MapItem, bool)
}

// graphScope estende scope com as remoções usadas pelo motor de mutação.
type graphScope interface {
	scope
	removeItem(uid uint64)
	removeNode(uid uint64)
}

// Limites do view distance em metros; valores fora viram clamp silencioso.
const (
	MinViewDistance = 10
	MaxViewDistance = 1500
)

// Layout de bits do FlagField de um item com Kdop.
// bit 0: item carrega payload extra no .data
// byte 3: view distance / 10
const (
	itemFlagPayload    = 0
	itemByteViewDist   = 3
	viewDistanceFactor = 10
)

// KdopBounds é o cabeçalho de volume delimitador + flags compartilhado
// pela maioria dos itens.
type KdopBounds struct {
	Min util.Vector3
	Max util.Vector3
}

// ItemBase carrega os atributos comuns de todo item.
type ItemBase struct {
	ID       uint64
	ItemFile ItemFile
	Layer    uint8
	Kdop     KdopBounds
	Flags    FlagField

	// nodes é a sequência ordenada de nós do item; nunca vazia, e o
	// índice 0 é a âncora que decide o setor dono no save.
	nodes []NodeRef
}

// UID retorna o identificador único do item.
func (b *ItemBase) UID() uint64 { return b.ID }

// File retorna o canal de arquivo do item.
func (b *ItemBase) File() ItemFile { return b.ItemFile }

// Nodes retorna a sequência de nós do item.
func (b *ItemBase) Nodes() []NodeRef { return b.nodes }

// Base retorna o próprio ItemBase (acesso aos campos comuns).
func (b *ItemBase) Base() *ItemBase { return b }

// ViewDistance retorna a distância de visão em metros.
func (b *ItemBase) ViewDistance() int32 {
	return int32(b.Flags.Byte(itemByteViewDist)) * viewDistanceFactor
}

// SetViewDistance grava a distância de visão, com clamp silencioso.
func (b *ItemBase) SetViewDistance(meters int32) {
	meters = util.Clamp(meters, MinViewDistance, MaxViewDistance)
	b.Flags.SetByte(itemByteViewDist, uint8(meters/viewDistanceFactor))
}

// HasPayload indica se o item carrega bloco extra no .data.
func (b *ItemBase) HasPayload() bool { return b.Flags.Bit(itemFlagPayload) }

// setHasPayload liga/desliga a flag de payload.
func (b *ItemBase) setHasPayload(v bool) { b.Flags.SetBit(itemFlagPayload, v) }

// MainNode retorna o nó âncora resolvido (índice 0), se houver.
func (b *ItemBase) MainNode() (*Node, bool) {
	if len(b.nodes) == 0 {
		return nil, false
	}
	return resolvedNode(b.nodes[0])
}

// resolveNodes troca os placeholders da lista de nós pelos nós vivos do
// escopo. Um item cujo nó não existe no escopo é falha dura de load.
func (b *ItemBase) resolveNodes(s scope, owner MapItem) error {
	for i, ref := range b.nodes {
		if _, ok := resolvedNode(ref); ok {
			continue
		}
		n, ok := s.Node(ref.UID())
		if !ok {
			return fmt.Errorf("mapdata: item 0x%x referencia nó 0x%x ausente do escopo", owner.UID(), ref.UID())
		}
		b.nodes[i] = n
	}
	return nil
}

// attachNodes liga os nós resolvidos de volta ao item: o índice 0 é a
// saída (forward), o último é a chegada (backward) e nós intermediários
// de polilinha ocupam os dois slots. Usado na criação.
func attachNodes(item MapItem) {
	refs := item.Base().nodes
	last := len(refs) - 1
	for i, ref := range refs {
		n, ok := resolvedNode(ref)
		if !ok {
			continue
		}
		switch {
		case last == 0:
			// item de nó único: só a saída
			n.attach(item, true)
		case i == 0:
			n.attach(item, true)
		case i == last:
			n.attach(item, false)
		default:
			// nó interno de polilinha ocupa os dois slots
			n.attach(item, true)
			n.attach(item, false)
		}
	}
}

// encodeItemBase grava o cabeçalho comum (uid + kdop + flags).
func encodeItemBase(e *secwire.Encoder, b *ItemBase) {
	e.WriteUint64(b.ID)
	e.WriteFixedVector3(b.Kdop.Min)
	e.WriteFixedVector3(b.Kdop.Max)
	e.WriteUint32(uint32(b.Flags))
}

// decodeItemBase lê o cabeçalho comum.
func decodeItemBase(d *secwire.Decoder, b *ItemBase) error {
	var err error
	if b.ID, err = d.ReadUint64(); err != nil {
		return err
	}
	if b.Kdop.Min, err = d.ReadFixedVector3(); err != nil {
		return err
	}
	if b.Kdop.Max, err = d.ReadFixedVector3(); err != nil {
		return err
	}
	flags, err := d.ReadUint32()
	if err != nil {
		return err
	}
	b.Flags = FlagField(flags)
	return nil
}

// encodeNodeRefs grava a lista de uids de nós de um item.
func encodeNodeRefs(e *secwire.Encoder, refs []NodeRef) {
	e.WriteUint32(uint32(len(refs)))
	for _, r := range refs {
		e.WriteUint64(r.UID())
	}
}

// decodeNodeRefs lê a lista de uids de nós como placeholders.
func decodeNodeRefs(d *secwire.Decoder) ([]NodeRef, error) {
	count, err := d.ReadUint32()
	if err != nil {
		return nil, err
	}
	if uint64(count)*8 > uint64(d.Remaining()) {
		return nil, &secwire.FormatError{Msg: fmt.Sprintf("lista de nós com %d entradas excede o buffer", count)}
	}
	refs := make([]NodeRef, 0, count)
	for i := uint32(0); i < count; i++ {
		uid, err := d.ReadUint64()
		if err != nil {
			return nil, err
		}
		refs = append(refs, &UnresolvedNode{ID: uid})
	}
	return refs, nil
}

// encodeItemRefs grava uma lista de referências secundárias de itens.
func encodeItemRefs(e *secwire.Encoder, refs []ItemRef) {
	e.WriteUint32(uint32(len(refs)))
	for _, r := range refs {
		e.WriteUint64(refUID(r))
	}
}

// decodeItemRefs lê uma lista de referências secundárias como placeholders.
func decodeItemRefs(d *secwire.Decoder) ([]ItemRef, error) {
	count, err := d.ReadUint32()
	if err != nil {
		return nil, err
	}
	if uint64(count)*8 > uint64(d.Remaining()) {
		return nil, &secwire.FormatError{Msg: fmt.Sprintf("lista de itens com %d entradas excede o buffer", count)}
	}
	refs := make([]ItemRef, 0, count)
	for i := uint32(0); i < count; i++ {
		uid, err := d.ReadUint64()
		if err != nil {
			return nil, err
		}
		refs = append(refs, itemRefFromUID(uid))
	}
	return refs, nil
}

// resolveItemRefs roda a resolução tolerante de relações secundárias:
// uid ausente do escopo permanece placeholder ("relação inexistente").
func resolveItemRefs(s scope, refs []ItemRef) {
	for i, r := range refs {
		if r == nil {
			continue
		}
		if _, ok := resolvedItem(r); ok {
			continue
		}
		if item, ok := s.Item(r.UID()); ok {
			refs[i] = item
		}
	}
}
