package mapdata

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"RotaForge/shared/pkg/secwire"
	"RotaForge/shared/util"
)

// Extensões dos canais de arquivo por setor.
const (
	extPayload    = ".data"
	extDescriptor = ".desc"
	extLayer      = ".layer"
	extWorld      = ".mbd"
)

// Open carrega um mapa inteiro do disco: o arquivo de mundo
// <dir>/<nome>.mbd e todos os setores em <dir>/<nome>/. Os setores são
// lidos um a um; a passada do resolver só roda depois que TODAS as
// tabelas estão completas, nunca com visibilidade parcial entre setores.
// Falha de decode aborta o load inteiro.
func Open(dir, name string) (*Map, error) {
	m := NewMap(name)

	if err := readWorldFile(m, filepath.Join(dir, name+extWorld)); err != nil {
		return nil, err
	}

	secDir := filepath.Join(dir, name)
	entries, err := os.ReadDir(secDir)
	if err != nil {
		return nil, fmt.Errorf("mapdata: falha ao listar setores de %q: %w", secDir, err)
	}

	loaded := 0
	for _, entry := range entries {
		fname := entry.Name()
		if !strings.HasPrefix(fname, "sec") || !strings.HasSuffix(fname, FilePrimary.Extension()) {
			continue
		}
		coord, err := parseSectorKey(strings.TrimSuffix(fname, FilePrimary.Extension()))
		if err != nil {
			return nil, err
		}
		if err := loadSector(m, secDir, coord); err != nil {
			return nil, fmt.Errorf("mapdata: setor %v: %w", coord, err)
		}
		loaded++
	}

	// Barreira dura: resolver só com a união de todos os setores em memória.
	if err := m.ResolveReferences(); err != nil {
		return nil, err
	}
	m.seedLoadedUIDs()

	log.Printf("[Load] Mapa %q carregado: %d setores, %d itens, %d nós", name, loaded, len(m.Items), len(m.Nodes))
	return m, nil
}

// parseSectorKey converte "sec+0012-0005" de volta para a coordenada.
func parseSectorKey(key string) (util.SectorCoord, error) {
	if len(key) != 13 {
		return util.SectorCoord{}, fmt.Errorf("mapdata: chave de setor inválida: %q", key)
	}
	x, errX := strconv.ParseInt(key[3:8], 10, 32)
	z, errZ := strconv.ParseInt(key[8:13], 10, 32)
	if errX != nil || errZ != nil {
		return util.SectorCoord{}, fmt.Errorf("mapdata: chave de setor inválida: %q", key)
	}
	return util.SectorCoord{X: int32(x), Z: int32(z)}, nil
}

// loadSector lê todos os canais de um setor. Só o primário é
// obrigatório; auxiliar, áudio, payload e layer são pulados se ausentes.
func loadSector(m *Map, dir string, coord util.SectorCoord) error {
	s := m.EnsureSector(coord)
	base := filepath.Join(dir, coord.String())

	data, err := os.ReadFile(base + FilePrimary.Extension())
	if err != nil {
		return fmt.Errorf("canal primário: %w", err)
	}
	if err := readChannel(m, data, FilePrimary); err != nil {
		return err
	}

	for _, ch := range []ItemFile{FileAuxiliary, FileAudio} {
		data, err := os.ReadFile(base + ch.Extension())
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return err
		}
		if err := readChannel(m, data, ch); err != nil {
			return err
		}
	}

	data, err = os.ReadFile(base + extDescriptor)
	if err != nil {
		return fmt.Errorf("descritor: %w", err)
	}
	if err := readDescriptor(s, data); err != nil {
		return err
	}

	if data, err = os.ReadFile(base + extPayload); err == nil {
		if err := readPayloads(m, data); err != nil {
			return err
		}
	} else if !os.IsNotExist(err) {
		return err
	}

	if data, err = os.ReadFile(base + extLayer); err == nil {
		if err := readLayers(m, data); err != nil {
			return err
		}
	} else if !os.IsNotExist(err) {
		return err
	}

	return nil
}

// readChannel lê um arquivo de canal: cabeçalho, itens tipados, nós e a
// contagem de filhos de área de visibilidade (ignorada).
func readChannel(m *Map, data []byte, channel ItemFile) error {
	d := secwire.NewDecoder(data)

	version, err := d.ReadUint32()
	if err != nil {
		return err
	}
	if err := secwire.CheckVersion(version, supportedVersions...); err != nil {
		return err
	}

	itemCount, err := d.ReadUint32()
	if err != nil {
		return err
	}
	for i := uint32(0); i < itemCount; i++ {
		item, err := decodeTypedItem(d)
		if err != nil {
			return err
		}
		item.Base().ItemFile = channel
		if _, dup := m.Item(item.UID()); dup {
			// item já veio de outro canal/setor: mantém o primeiro
			continue
		}
		if err := m.AddItem(item); err != nil {
			return err
		}
	}

	nodeCount, err := d.ReadUint32()
	if err != nil {
		return err
	}
	for i := uint32(0); i < nodeCount; i++ {
		n, err := decodeNode(d)
		if err != nil {
			return err
		}
		if _, dup := m.Node(n.ID); dup {
			// nó compartilhado entre setores: gravado em cada arquivo que
			// precisa dele, mas só existe uma vez no registro global
			continue
		}
		n.container = m
		m.Nodes[n.ID] = n
	}

	// filhos de área de visibilidade: contagem lida e descartada
	visCount, err := d.ReadUint32()
	if err != nil {
		return err
	}
	for i := uint32(0); i < visCount; i++ {
		if _, err := d.ReadUint64(); err != nil {
			return err
		}
	}

	if !d.Done() {
		return &secwire.FormatError{Msg: fmt.Sprintf("%d bytes sobrando no canal", d.Remaining())}
	}
	return nil
}

// readDescriptor lê o .desc do setor: versão, fronteiras em ponto fixo,
// flags e o token de clima.
func readDescriptor(s *Sector, data []byte) error {
	d := secwire.NewDecoder(data)

	version, err := d.ReadUint32()
	if err != nil {
		return err
	}
	if err := secwire.CheckVersion(version, supportedVersions...); err != nil {
		return err
	}
	if s.MinBoundary, err = d.ReadFixedVector3(); err != nil {
		return err
	}
	if s.MaxBoundary, err = d.ReadFixedVector3(); err != nil {
		return err
	}
	flags, err := d.ReadUint32()
	if err != nil {
		return err
	}
	s.Flags = FlagField(flags)
	if s.Climate, err = d.ReadToken(); err != nil {
		return err
	}
	return nil
}

// readPayloads lê o .data: registros (uid, blob) até a sentinela. Uid
// ausente da tabela de itens é erro de formato; o blob fica opaco.
func readPayloads(m *Map, data []byte) error {
	d := secwire.NewDecoder(data)

	version, err := d.ReadUint32()
	if err != nil {
		return err
	}
	if err := secwire.CheckVersion(version, supportedVersions...); err != nil {
		return err
	}
	for {
		uid, err := d.ReadUint64()
		if err != nil {
			return err
		}
		if uid == secwire.Sentinel {
			return nil
		}
		blob, err := d.ReadBytes()
		if err != nil {
			return err
		}
		item, ok := m.Item(uid)
		if !ok {
			return &secwire.FormatError{Msg: fmt.Sprintf("payload para item 0x%x ausente da tabela", uid)}
		}
		carrier, ok := item.(PayloadCarrier)
		if !ok {
			return &secwire.FormatError{Msg: fmt.Sprintf("item 0x%x (tipo %d) não aceita payload", uid, item.Type())}
		}
		carrier.SetPayloadData(append([]byte(nil), blob...))
	}
}

// readLayers lê o .layer: registros (uid, byte de camada) até a
// sentinela. Uid ausente da tabela é erro de formato.
func readLayers(m *Map, data []byte) error {
	d := secwire.NewDecoder(data)

	version, err := d.ReadUint32()
	if err != nil {
		return err
	}
	if err := secwire.CheckVersion(version, supportedVersions...); err != nil {
		return err
	}
	for {
		uid, err := d.ReadUint64()
		if err != nil {
			return err
		}
		if uid == secwire.Sentinel {
			return nil
		}
		layer, err := d.ReadUint8()
		if err != nil {
			return err
		}
		item, ok := m.Item(uid)
		if !ok {
			return &secwire.FormatError{Msg: fmt.Sprintf("camada para item 0x%x ausente da tabela", uid)}
		}
		item.Base().Layer = layer
	}
}

// readWorldFile lê o arquivo de mundo .mbd.
func readWorldFile(m *Map, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("mapdata: arquivo de mundo: %w", err)
	}
	return decodeWorldBlob(m, data)
}

// decodeWorldBlob decodifica o conteúdo do arquivo de mundo .mbd.
func decodeWorldBlob(m *Map, data []byte) error {
	d := secwire.NewDecoder(data)

	version, err := d.ReadUint32()
	if err != nil {
		return err
	}
	if err := secwire.CheckVersion(version, supportedVersions...); err != nil {
		return err
	}
	if m.EditorMapID, err = d.ReadUint64(); err != nil {
		return err
	}
	if m.StartPosition, err = d.ReadFixedVector3(); err != nil {
		return err
	}
	if m.StartRotation, err = d.ReadQuaternion(); err != nil {
		return err
	}
	if m.NormalScale, err = d.ReadFloat32(); err != nil {
		return err
	}
	if m.CityScale, err = d.ReadFloat32(); err != nil {
		return err
	}
	if m.Correction, err = d.ReadUint8(); err != nil {
		return err
	}
	return nil
}

// seedLoadedUIDs posiciona o alocador acima de todo uid carregado,
// inclusive os escopos privados dos compounds.
func (m *Map) seedLoadedUIDs() {
	for uid := range m.Nodes {
		m.seedUID(uid)
	}
	for uid, item := range m.Items {
		m.seedUID(uid)
		if comp, ok := item.(*Compound); ok {
			for cuid := range comp.nodes {
				m.seedUID(cuid)
			}
			for _, child := range comp.items {
				m.seedUID(child.UID())
			}
		}
	}
}
