package mapdata

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"RotaForge/shared/util"
)

// SectorModel é a linha de snapshot de um setor: os blobs serializados
// de cada canal, exatamente como iriam para o disco.
type SectorModel struct {
	ID        string `gorm:"primaryKey"` // "X_Z"
	X         int32  `gorm:"index"`
	Z         int32  `gorm:"index"`
	Base      []byte
	Aux       []byte
	Snd       []byte
	Data      []byte
	Desc      []byte
	Layer     []byte
	UpdatedAt time.Time
}

// WorldMetadata guarda pares chave/valor do mundo (nome, versão do
// formato, arquivo .mbd serializado).
type WorldMetadata struct {
	Key   string `gorm:"primaryKey"`
	Value []byte
}

// SnapshotStore persiste snapshots de setores em SQLite. Serve de cache
// intermediário entre sessões de edição: mais barato de atualizar
// incrementalmente que regravar a árvore de arquivos inteira.
type SnapshotStore struct {
	DB *gorm.DB
}

// OpenSnapshot abre (ou cria) o banco de snapshot no caminho dado.
func OpenSnapshot(path string) (*SnapshotStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("mapdata: falha ao criar diretório do snapshot: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("mapdata: falha ao abrir snapshot: %w", err)
	}

	if err := db.AutoMigrate(&SectorModel{}, &WorldMetadata{}); err != nil {
		return nil, fmt.Errorf("mapdata: falha ao migrar schema do snapshot: %w", err)
	}

	log.Printf("[Persistence] Snapshot aberto em %s", path)
	return &SnapshotStore{DB: db}, nil
}

// SaveWorld grava o mapa inteiro no snapshot: metadados do mundo e um
// registro por setor com os blobs de todos os canais.
func (st *SnapshotStore) SaveWorld(m *Map) error {
	for _, n := range m.Nodes {
		resolveNodeRelations(m, n)
	}
	buckets, err := partitionForSave(m.Items, m.Nodes)
	if err != nil {
		return err
	}
	for coord := range buckets {
		m.EnsureSector(coord)
	}

	world := secWorldBlob(m)
	if err := st.putMetadata("world_name", []byte(m.Name)); err != nil {
		return err
	}
	if err := st.putMetadata("format_version", []byte(fmt.Sprintf("%d", FormatVersion))); err != nil {
		return err
	}
	if err := st.putMetadata("world_mbd", world); err != nil {
		return err
	}

	saved := 0
	for coord, s := range m.Sectors {
		b := buckets[coord]
		if b == nil {
			b = &sectorBucket{}
		}
		row, err := snapshotRow(s, b)
		if err != nil {
			return fmt.Errorf("mapdata: snapshot do setor %v: %w", coord, err)
		}
		if err := st.DB.Save(row).Error; err != nil {
			return fmt.Errorf("mapdata: falha ao gravar setor %v no snapshot: %w", coord, err)
		}
		saved++
	}

	log.Printf("[Persistence] Snapshot atualizado: %d setores", saved)
	return nil
}

// snapshotRow serializa os canais de um setor nos mesmos bytes do save
// em arquivo.
func snapshotRow(s *Sector, b *sectorBucket) (*SectorModel, error) {
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

	row := &SectorModel{
		ID: fmt.Sprintf("%d_%d", s.Coord.X, s.Coord.Z),
		X:  s.Coord.X,
		Z:  s.Coord.Z,
	}

	var err error
	if row.Base, err = encodeChannel(primary, allNodes); err != nil {
		return nil, err
	}
	if len(aux) > 0 {
		if row.Aux, err = encodeChannel(aux, referencedNodes(aux)); err != nil {
			return nil, err
		}
	}
	if len(audio) > 0 {
		if row.Snd, err = encodeChannel(audio, referencedNodes(audio)); err != nil {
			return nil, err
		}
	}
	row.Data = encodePayloads(b.items)
	row.Layer = encodeLayers(b.items)
	row.Desc = encodeDescriptor(s)
	return row, nil
}

// LoadWorld reconstrói um mapa inteiro a partir do snapshot.
func (st *SnapshotStore) LoadWorld() (*Map, error) {
	name, err := st.getMetadata("world_name")
	if err != nil {
		return nil, err
	}
	worldBlob, err := st.getMetadata("world_mbd")
	if err != nil {
		return nil, err
	}

	m := NewMap(string(name))
	if err := decodeWorldBlob(m, worldBlob); err != nil {
		return nil, err
	}

	var rows []SectorModel
	if err := st.DB.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("mapdata: falha ao ler setores do snapshot: %w", err)
	}

	for _, row := range rows {
		coord := util.SectorCoord{X: row.X, Z: row.Z}
		s := m.EnsureSector(coord)
		if err := readChannel(m, row.Base, FilePrimary); err != nil {
			return nil, fmt.Errorf("mapdata: setor %v do snapshot: %w", coord, err)
		}
		if len(row.Aux) > 0 {
			if err := readChannel(m, row.Aux, FileAuxiliary); err != nil {
				return nil, fmt.Errorf("mapdata: setor %v do snapshot: %w", coord, err)
			}
		}
		if len(row.Snd) > 0 {
			if err := readChannel(m, row.Snd, FileAudio); err != nil {
				return nil, fmt.Errorf("mapdata: setor %v do snapshot: %w", coord, err)
			}
		}
		if err := readDescriptor(s, row.Desc); err != nil {
			return nil, fmt.Errorf("mapdata: setor %v do snapshot: %w", coord, err)
		}
		if len(row.Data) > 0 {
			if err := readPayloads(m, row.Data); err != nil {
				return nil, err
			}
		}
		if len(row.Layer) > 0 {
			if err := readLayers(m, row.Layer); err != nil {
				return nil, err
			}
		}
	}

	if err := m.ResolveReferences(); err != nil {
		return nil, err
	}
	m.seedLoadedUIDs()

	log.Printf("[Persistence] Mundo %q restaurado do snapshot: %d setores", m.Name, len(rows))
	return m, nil
}

// Close fecha a conexão SQLite subjacente.
func (st *SnapshotStore) Close() error {
	sqlDB, err := st.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (st *SnapshotStore) putMetadata(key string, value []byte) error {
	if err := st.DB.Save(&WorldMetadata{Key: key, Value: value}).Error; err != nil {
		return fmt.Errorf("mapdata: falha ao gravar metadado %q: %w", key, err)
	}
	return nil
}

func (st *SnapshotStore) getMetadata(key string) ([]byte, error) {
	var meta WorldMetadata
	if err := st.DB.First(&meta, "key = ?", key).Error; err != nil {
		return nil, fmt.Errorf("mapdata: metadado %q ausente do snapshot: %w", key, err)
	}
	return meta.Value, nil
}
