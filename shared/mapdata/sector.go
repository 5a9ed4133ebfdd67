package mapdata

import (
	"fmt"

	"RotaForge/shared/util"
)

// Versões de formato suportadas dos arquivos de setor e do mundo.
const (
	FormatVersion       = 902
	legacyFormatVersion = 901
)

// supportedVersions é o conjunto aceito no load.
var supportedVersions = []uint32{legacyFormatVersion, FormatVersion}

// Layout de bits do FlagField do cabeçalho de setor.
// bit 0: setor inspecionado no editor
// nibble 2: estação climática forçada (0 = nenhuma)
const (
	sectorFlagReviewed  = 0
	sectorNibbleSeason  = 2
)

// Sector é uma célula fixa de 4000x4000 da grade espacial. É partição de
// layout de arquivo, não fronteira de posse: os nós pertencem ao registro
// global e o setor só guarda uma visão derivada na hora do save.
type Sector struct {
	Coord util.SectorCoord

	// Extensões de fronteira registradas no .desc (ponto fixo no disco).
	MinBoundary util.Vector3
	MaxBoundary util.Vector3

	Flags   FlagField
	Climate string // token do perfil de clima
}

// NewSector cria um setor vazio com o clima padrão.
func NewSector(coord util.SectorCoord) *Sector {
	return &Sector{
		Coord:   coord,
		Climate: "default",
	}
}

// Reviewed indica se o setor foi marcado como inspecionado.
func (s *Sector) Reviewed() bool { return s.Flags.Bit(sectorFlagReviewed) }

// SetReviewed marca o setor como inspecionado.
func (s *Sector) SetReviewed(v bool) { s.Flags.SetBit(sectorFlagReviewed, v) }

// Season retorna a estação climática forçada (0 = nenhuma).
func (s *Sector) Season() uint8 { return s.Flags.Nibble(sectorNibbleSeason) }

// SetSeason força uma estação climática no setor.
func (s *Sector) SetSeason(v uint8) { s.Flags.SetNibble(sectorNibbleSeason, v) }

// sectorBucket é o agrupamento derivado de um setor na hora do save.
type sectorBucket struct {
	items []MapItem
	nodes map[uint64]*Node
}

func (b *sectorBucket) addNode(n *Node) {
	if b.nodes == nil {
		b.nodes = make(map[uint64]*Node)
	}
	b.nodes[n.ID] = n
}

// partitionForSave agrupa cada item pelo setor da posição do nó âncora e
// cada nó pelo setor da própria posição. Um nó referenciado por item de
// outro setor é gravado também no arquivo daquele setor (compartilhamento
// entre células); nós sem nenhuma relação resolvida nunca são persistidos.
func partitionForSave(items map[uint64]MapItem, nodes map[uint64]*Node) (map[util.SectorCoord]*sectorBucket, error) {
	buckets := make(map[util.SectorCoord]*sectorBucket)
	bucket := func(c util.SectorCoord) *sectorBucket {
		b, ok := buckets[c]
		if !ok {
			b = &sectorBucket{}
			buckets[c] = b
		}
		return b
	}

	for _, item := range items {
		main, ok := item.Base().MainNode()
		if !ok {
			return nil, fmt.Errorf("mapdata: item 0x%x sem nó âncora resolvido no save", item.UID())
		}
		b := bucket(util.SectorOf(main.Position))
		b.items = append(b.items, item)
		// todo nó resolvido do item entra no arquivo do setor do item
		for _, ref := range item.Nodes() {
			if n, ok := resolvedNode(ref); ok {
				b.addNode(n)
			}
		}
	}

	for _, n := range nodes {
		if !n.hasResolvedRelation() {
			// nó pendurado: fora de todos os arquivos
			continue
		}
		bucket(n.Sector()).addNode(n)
	}

	return buckets, nil
}
