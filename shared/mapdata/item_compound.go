package mapdata

import (
	"errors"
	"fmt"
	"sort"

	"RotaForge/shared/pkg/secwire"
	"RotaForge/shared/util"
)

// ErrCompoundChannel é devolvido ao tentar colocar num compound um item
// que não pertence ao canal auxiliar. Erro estrutural, não aviso.
var ErrCompoundChannel = errors.New("mapdata: item de compound precisa do canal auxiliar")

// Compound é um item âncora que também é um sub-container privado: seus
// nós e itens internos são invisíveis para os índices globais do mapa e
// têm a própria passada de resolução, restrita ao escopo local.
type Compound struct {
	ItemBase

	uids uidSource

	items []MapItem // ordem de inserção preservada para o save
	nodes map[uint64]*Node
}

// uidSource é quem aloca uids para o escopo (o Map, em última instância).
type uidSource interface {
	allocUID() uint64
}

// Type retorna o tag de tipo do item.
func (c *Compound) Type() ItemType { return ItemTypeCompound }

// NewCompound cria um compound vazio ancorado na posição dada.
func NewCompound(parent ItemContainer, pos util.Vector3) (*Compound, error) {
	src, ok := parent.(uidSource)
	if !ok {
		return nil, fmt.Errorf("mapdata: container %T não aloca uids", parent)
	}
	c := &Compound{
		uids:  src,
		nodes: make(map[uint64]*Node),
	}
	n := parent.AddNode(pos, false)
	c.nodes2anchor(n)
	c.SetViewDistance(400)
	c.updateKdop()
	attachNodes(c)
	if err := parent.AddItem(c); err != nil {
		return nil, err
	}
	return c, nil
}

// nodes2anchor instala o nó âncora (índice 0 da lista de nós).
func (c *Compound) nodes2anchor(n *Node) {
	c.ItemBase.nodes = []NodeRef{n}
}

// allocUID delega ao mapa dono; um compound nunca aloca por conta própria.
func (c *Compound) allocUID() uint64 {
	return c.uids.allocUID()
}

// AddNode cria um nó no escopo privado do compound.
func (c *Compound) AddNode(pos util.Vector3, isRed bool) *Node {
	if c.nodes == nil {
		c.nodes = make(map[uint64]*Node)
	}
	n := &Node{
		container: c,
		ID:        c.allocUID(),
		Position:  pos,
		Rotation:  util.QuaternionIdentity(),
	}
	n.SetRed(isRed)
	c.nodes[n.ID] = n
	return n
}

// AddItem registra um item no escopo privado. Todo item direto de um
// compound precisa estar no canal auxiliar.
func (c *Compound) AddItem(item MapItem) error {
	if item.File() != FileAuxiliary {
		return ErrCompoundChannel
	}
	b := item.Base()
	if len(b.nodes) == 0 {
		return fmt.Errorf("mapdata: item %T sem nós", item)
	}
	if b.ID == 0 {
		b.ID = c.allocUID()
	}
	c.items = append(c.items, item)
	return nil
}

// Node procura um nó no escopo privado.
func (c *Compound) Node(uid uint64) (*Node, bool) {
	n, ok := c.nodes[uid]
	return n, ok
}

// Item procura um item no escopo privado.
func (c *Compound) Item(uid uint64) (MapItem, bool) {
	for _, item := range c.items {
		if item.UID() == uid {
			return item, true
		}
	}
	return nil, false
}

// Items retorna os itens internos na ordem de inserção.
func (c *Compound) Items() []MapItem { return c.items }

// NodeCount retorna quantos nós privados o compound possui.
func (c *Compound) NodeCount() int { return len(c.nodes) }

// removeItem tira um item do escopo privado.
func (c *Compound) removeItem(uid uint64) {
	for i, item := range c.items {
		if item.UID() == uid {
			c.items = append(c.items[:i], c.items[i+1:]...)
			return
		}
	}
}

// removeNode tira um nó do escopo privado.
func (c *Compound) removeNode(uid uint64) {
	delete(c.nodes, uid)
}

// clearContents descarta todo o conteúdo privado (delete do compound).
func (c *Compound) clearContents() {
	c.items = nil
	c.nodes = make(map[uint64]*Node)
}

// resolve liga o nó âncora no escopo externo e roda as duas passadas do
// resolver sobre o escopo privado: primeiro todos os nós, depois todos
// os itens. A ordem importa: itens consultam relações de nós já resolvidas.
func (c *Compound) resolve(s scope) error {
	if err := c.resolveNodes(s, c); err != nil {
		return err
	}
	for _, n := range c.nodes {
		resolveNodeRelations(c, n)
	}
	for _, item := range c.items {
		if err := item.resolve(c); err != nil {
			return err
		}
	}
	return nil
}

type compoundSerializer struct{}

func init() { Register(ItemTypeCompound, compoundSerializer{}) }

func (compoundSerializer) Encode(e *secwire.Encoder, item MapItem) error {
	c := item.(*Compound)
	encodeItemBase(e, &c.ItemBase)

	e.WriteUint32(uint32(len(c.items)))
	for _, child := range c.items {
		if err := encodeTypedItem(e, child); err != nil {
			return err
		}
	}

	// nós privados em ordem de uid, para bytes determinísticos
	uids := make([]uint64, 0, len(c.nodes))
	for uid := range c.nodes {
		uids = append(uids, uid)
	}
	sort.Slice(uids, func(i, j int) bool { return uids[i] < uids[j] })
	e.WriteUint32(uint32(len(uids)))
	for _, uid := range uids {
		encodeNode(e, c.nodes[uid])
	}

	encodeNodeRefs(e, c.ItemBase.nodes)
	return nil
}

func (compoundSerializer) Decode(d *secwire.Decoder) (MapItem, error) {
	c := &Compound{nodes: make(map[uint64]*Node)}
	if err := decodeItemBase(d, &c.ItemBase); err != nil {
		return nil, err
	}

	itemCount, err := d.ReadUint32()
	if err != nil {
		return nil, err
	}
	for i := uint32(0); i < itemCount; i++ {
		child, err := decodeTypedItem(d)
		if err != nil {
			return nil, err
		}
		// filhos diretos do compound só existem no canal auxiliar
		if child.Base().ItemFile != FileAuxiliary {
			child.Base().ItemFile = FileAuxiliary
		}
		c.items = append(c.items, child)
	}

	nodeCount, err := d.ReadUint32()
	if err != nil {
		return nil, err
	}
	for i := uint32(0); i < nodeCount; i++ {
		n, err := decodeNode(d)
		if err != nil {
			return nil, err
		}
		n.container = c
		c.nodes[n.ID] = n
	}

	if c.ItemBase.nodes, err = decodeNodeRefs(d); err != nil {
		return nil, err
	}
	if len(c.ItemBase.nodes) == 0 {
		return nil, &secwire.FormatError{Msg: fmt.Sprintf("compound 0x%x sem nó âncora", c.ID)}
	}
	return c, nil
}
