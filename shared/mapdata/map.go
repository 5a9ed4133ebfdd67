package mapdata

import (
	"fmt"
	"math/rand"

	"RotaForge/shared/util"
)

// ItemContainer é o contrato de quem hospeda nós e itens: o Map inteiro
// ou o escopo privado de um Compound. É também a costura usada pelos
// parsers de descritores externos para montar itens (BuildPrefab).
type ItemContainer interface {
	AddNode(pos util.Vector3, isRed bool) *Node
	AddItem(item MapItem) error
	Node(uid uint64) (*Node, bool)
	Item(uid uint64) (MapItem, bool)
}

// Map é o mundo inteiro: o índice de setores, as tabelas globais de nós
// e itens por uid, e os ajustes escalares do mundo. Modelo de escritor
// único; mutação concorrente do mesmo grafo está fora de contrato.
type Map struct {
	Name string

	Sectors map[util.SectorCoord]*Sector
	Nodes   map[uint64]*Node
	Items   map[uint64]MapItem

	// Ajustes globais do mundo, gravados no arquivo .mbd.
	EditorMapID   uint64
	StartPosition util.Vector3
	StartRotation util.Quaternion
	NormalScale   float32
	CityScale     float32
	Correction    uint8

	nextUID uint64
}

// NewMap cria um mapa vazio com os ajustes padrão do jogo.
func NewMap(name string) *Map {
	return &Map{
		Name:          name,
		Sectors:       make(map[util.SectorCoord]*Sector),
		Nodes:         make(map[uint64]*Node),
		Items:         make(map[uint64]MapItem),
		EditorMapID:   rand.Uint64(),
		StartRotation: util.QuaternionIdentity(),
		NormalScale:   19,
		CityScale:     3,
		nextUID:       1,
	}
}

// allocUID aloca o próximo uid do mapa (0 é reservado como nulo).
func (m *Map) allocUID() uint64 {
	uid := m.nextUID
	m.nextUID++
	return uid
}

// seedUID garante que o alocador fique acima de todo uid carregado.
func (m *Map) seedUID(uid uint64) {
	if uid >= m.nextUID {
		m.nextUID = uid + 1
	}
}

// EnsureSector devolve o setor da coordenada, criando e registrando um
// vazio se necessário. Idempotente.
func (m *Map) EnsureSector(c util.SectorCoord) *Sector {
	if s, ok := m.Sectors[c]; ok {
		return s
	}
	s := NewSector(c)
	m.Sectors[c] = s
	return s
}

// AddNode cria um nó na posição dada, aloca o uid, garante o setor dono
// e registra o nó na tabela global.
func (m *Map) AddNode(pos util.Vector3, isRed bool) *Node {
	n := &Node{
		container: m,
		ID:        m.allocUID(),
		Position:  pos,
		Rotation:  util.QuaternionIdentity(),
	}
	n.SetRed(isRed)
	m.EnsureSector(util.SectorOf(pos))
	m.Nodes[n.ID] = n
	return n
}

// AddItem registra um item na tabela global e garante o setor do nó
// âncora. A sequência de nós de um item nunca pode ser vazia.
func (m *Map) AddItem(item MapItem) error {
	b := item.Base()
	if len(b.nodes) == 0 {
		return fmt.Errorf("mapdata: item %T sem nós", item)
	}
	if b.ID == 0 {
		b.ID = m.allocUID()
	}
	if comp, ok := item.(*Compound); ok && comp.uids == nil {
		comp.uids = m
	}
	if main, ok := b.MainNode(); ok {
		m.EnsureSector(util.SectorOf(main.Position))
	}
	m.Items[b.ID] = item
	return nil
}

// Node procura um nó na tabela global.
func (m *Map) Node(uid uint64) (*Node, bool) {
	n, ok := m.Nodes[uid]
	return n, ok
}

// Item procura um item na tabela global.
func (m *Map) Item(uid uint64) (MapItem, bool) {
	item, ok := m.Items[uid]
	return item, ok
}

// removeItem tira um item da tabela global.
func (m *Map) removeItem(uid uint64) {
	delete(m.Items, uid)
}

// removeNode tira um nó da tabela global.
func (m *Map) removeNode(uid uint64) {
	delete(m.Nodes, uid)
}
