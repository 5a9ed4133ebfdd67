package mapdata

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"

	"RotaForge/shared/pkg/secwire"
	"RotaForge/shared/util"
)

// Save grava o mapa inteiro em disco: o arquivo de mundo <dir>/<nome>.mbd
// e um conjunto de arquivos por setor em <dir>/<nome>/. A filiação de
// setor é derivada na hora (setor do nó âncora para itens, setor da
// posição para nós); itens e nós saem ordenados por uid para bytes
// determinísticos.
func (m *Map) Save(dir string) error {
	// placeholders são re-checados contra a tabela viva antes de qualquer
	// uid ir para o disco
	for _, n := range m.Nodes {
		resolveNodeRelations(m, n)
	}

	buckets, err := partitionForSave(m.Items, m.Nodes)
	if err != nil {
		return err
	}

	secDir := filepath.Join(dir, m.Name)
	if err := os.MkdirAll(secDir, 0o755); err != nil {
		return fmt.Errorf("mapdata: falha ao criar diretório de setores: %w", err)
	}

	if err := writeWorldFile(m, filepath.Join(dir, m.Name+extWorld)); err != nil {
		return err
	}

	// setores registrados sem conteúdo ainda ganham arquivos (primário
	// vazio + descritor)
	for coord := range buckets {
		m.EnsureSector(coord)
	}
	coords := make([]util.SectorCoord, 0, len(m.Sectors))
	for coord := range m.Sectors {
		coords = append(coords, coord)
	}
	sort.Slice(coords, func(i, j int) bool {
		if coords[i].X != coords[j].X {
			return coords[i].X < coords[j].X
		}
		return coords[i].Z < coords[j].Z
	})

	for _, coord := range coords {
		b := buckets[coord]
		if b == nil {
			b = &sectorBucket{}
		}
		if err := writeSectorFiles(secDir, m.Sectors[coord], b); err != nil {
			return fmt.Errorf("mapdata: setor %v: %w", coord, err)
		}
	}

	log.Printf("[Save] Mapa %q gravado: %d setores, %d itens, %d nós", m.Name, len(coords), len(m.Items), len(m.Nodes))
	return nil
}

// writeSectorFiles grava todos os canais de um setor. O primário e o
// descritor sempre existem; auxiliar, áudio, payload e layer só quando
// têm conteúdo.
func writeSectorFiles(dir string, s *Sector, b *sectorBucket) error {
	base := filepath.Join(dir, s.Coord.String())

	var primary, aux, audio []MapItem
	for _, item := range b.items {
		switch item.File() {
		case FileAuxiliary:
			aux = append(aux, item)
		case FileAudio:
			audio = append(audio, item)
		default:
			primary = append(primary, item)
		}
	}

	allNodes := sortedNodes(b.nodes)
	updateBoundaries(s, allNodes)

	// o primário carrega todos os nós do balde; os outros canais só os
	// nós que os próprios itens referenciam
	data, err := encodeChannel(primary, allNodes)
	if err != nil {
		return err
	}
	if err := os.WriteFile(base+FilePrimary.Extension(), data, 0o644); err != nil {
		return err
	}

	for _, ch := range []struct {
		file  ItemFile
		items []MapItem
	}{
		{FileAuxiliary, aux},
		{FileAudio, audio},
	} {
		if len(ch.items) == 0 {
			continue
		}
		data, err := encodeChannel(ch.items, referencedNodes(ch.items))
		if err != nil {
			return err
		}
		if err := os.WriteFile(base+ch.file.Extension(), data, 0o644); err != nil {
			return err
		}
	}

	if data := encodePayloads(b.items); data != nil {
		if err := os.WriteFile(base+extPayload, data, 0o644); err != nil {
			return err
		}
	}
	if data := encodeLayers(b.items); data != nil {
		if err := os.WriteFile(base+extLayer, data, 0o644); err != nil {
			return err
		}
	}

	return os.WriteFile(base+extDescriptor, encodeDescriptor(s), 0o644)
}

// encodeChannel serializa um arquivo de canal: cabeçalho, itens tipados
// ordenados por uid, nós ordenados por uid e a lista (vazia) de filhos de
// área de visibilidade.
func encodeChannel(items []MapItem, nodes []*Node) ([]byte, error) {
	sort.Slice(items, func(i, j int) bool { return items[i].UID() < items[j].UID() })

	e := secwire.NewEncoder()
	e.WriteUint32(FormatVersion)

	e.WriteUint32(uint32(len(items)))
	for _, item := range items {
		if err := encodeTypedItem(e, item); err != nil {
			return nil, err
		}
	}

	e.WriteUint32(uint32(len(nodes)))
	for _, n := range nodes {
		encodeNode(e, n)
	}

	e.WriteUint32(0) // filhos de área de visibilidade
	return e.Bytes(), nil
}

// encodePayloads serializa o .data do setor, ou nil se nenhum item do
// balde carrega payload.
func encodePayloads(items []MapItem) []byte {
	carriers := make([]MapItem, 0)
	for _, item := range items {
		if c, ok := item.(PayloadCarrier); ok && len(c.PayloadData()) > 0 {
			carriers = append(carriers, item)
		}
	}
	if len(carriers) == 0 {
		return nil
	}
	sort.Slice(carriers, func(i, j int) bool { return carriers[i].UID() < carriers[j].UID() })

	e := secwire.NewEncoder()
	e.WriteUint32(FormatVersion)
	for _, item := range carriers {
		e.WriteUint64(item.UID())
		e.WriteBytes(item.(PayloadCarrier).PayloadData())
	}
	e.WriteSentinel()
	return e.Bytes()
}

// encodeLayers serializa o .layer do setor, ou nil se todos os itens
// estão na camada padrão.
func encodeLayers(items []MapItem) []byte {
	layered := make([]MapItem, 0)
	for _, item := range items {
		if item.Base().Layer != 0 {
			layered = append(layered, item)
		}
	}
	if len(layered) == 0 {
		return nil
	}
	sort.Slice(layered, func(i, j int) bool { return layered[i].UID() < layered[j].UID() })

	e := secwire.NewEncoder()
	e.WriteUint32(FormatVersion)
	for _, item := range layered {
		e.WriteUint64(item.UID())
		e.WriteUint8(item.Base().Layer)
	}
	e.WriteSentinel()
	return e.Bytes()
}

// encodeDescriptor serializa o .desc do setor.
func encodeDescriptor(s *Sector) []byte {
	e := secwire.NewEncoder()
	e.WriteUint32(FormatVersion)
	e.WriteFixedVector3(s.MinBoundary)
	e.WriteFixedVector3(s.MaxBoundary)
	e.WriteUint32(uint32(s.Flags))
	// clima já validado como token na atribuição; erro aqui seria bug
	_ = e.WriteToken(s.Climate)
	return e.Bytes()
}

// secWorldBlob serializa o conteúdo do arquivo de mundo .mbd.
func secWorldBlob(m *Map) []byte {
	e := secwire.NewEncoder()
	e.WriteUint32(FormatVersion)
	e.WriteUint64(m.EditorMapID)
	e.WriteFixedVector3(m.StartPosition)
	e.WriteQuaternion(m.StartRotation)
	e.WriteFloat32(m.NormalScale)
	e.WriteFloat32(m.CityScale)
	e.WriteUint8(m.Correction)
	return e.Bytes()
}

// writeWorldFile grava o arquivo de mundo .mbd.
func writeWorldFile(m *Map, path string) error {
	if err := os.WriteFile(path, secWorldBlob(m), 0o644); err != nil {
		return fmt.Errorf("mapdata: falha ao gravar arquivo de mundo: %w", err)
	}
	return nil
}

// updateBoundaries recalcula as extensões do setor a partir dos nós que
// vão para o arquivo.
func updateBoundaries(s *Sector, nodes []*Node) {
	if len(nodes) == 0 {
		return
	}
	min := nodes[0].Position
	max := nodes[0].Position
	for _, n := range nodes[1:] {
		p := n.Position
		if p.X < min.X {
			min.X = p.X
		}
		if p.Y < min.Y {
			min.Y = p.Y
		}
		if p.Z < min.Z {
			min.Z = p.Z
		}
		if p.X > max.X {
			max.X = p.X
		}
		if p.Y > max.Y {
			max.Y = p.Y
		}
		if p.Z > max.Z {
			max.Z = p.Z
		}
	}
	s.MinBoundary = min
	s.MaxBoundary = max
}

// sortedNodes devolve os nós do mapa ordenados por uid.
func sortedNodes(nodes map[uint64]*Node) []*Node {
	out := make([]*Node, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// referencedNodes coleta, ordenados por uid, os nós resolvidos que os
// itens dados referenciam.
func referencedNodes(items []MapItem) []*Node {
	set := make(map[uint64]*Node)
	for _, item := range items {
		for _, ref := range item.Nodes() {
			if n, ok := resolvedNode(ref); ok {
				set[n.ID] = n
			}
		}
	}
	return sortedNodes(set)
}
