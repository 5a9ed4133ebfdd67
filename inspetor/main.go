package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"sort"

	"RotaForge/shared/config"
	"RotaForge/shared/mapdata"
	"RotaForge/shared/util"
)

// Ferramenta de linha de comando: carrega um mundo, imprime estatísticas
// por setor e opcionalmente regrava os arquivos ou atualiza o snapshot
// SQLite.

func main() {
	log.SetFlags(log.Ltime)

	cfg := config.Load()
	dir := flag.String("dir", cfg.MapDir, "diretório dos mapas")
	world := flag.String("world", cfg.WorldName, "nome do mundo")
	resave := flag.Bool("resave", false, "regrava o mundo após o load (normaliza os arquivos)")
	snapshot := flag.Bool("snapshot", false, "atualiza o snapshot SQLite")
	verify := flag.Bool("verify", false, "regrava num diretório temporário e reabre para conferir o round-trip")
	flag.Parse()

	log.Printf("Carregando mundo %q de %s...", *world, *dir)
	m, err := mapdata.Open(*dir, *world)
	if err != nil {
		log.Fatalf("Erro fatal ao carregar o mapa: %v", err)
	}

	printStats(m)

	if *verify {
		if err := verifyRoundTrip(m); err != nil {
			log.Fatalf("Round-trip falhou: %v", err)
		}
		log.Print("Round-trip OK: todos os uids, itens e nós sobreviveram")
	}

	if *resave {
		if err := m.Save(*dir); err != nil {
			log.Fatalf("Erro ao regravar o mundo: %v", err)
		}
	}

	if *snapshot {
		store, err := mapdata.OpenSnapshot(cfg.SnapshotPath)
		if err != nil {
			log.Fatalf("Erro ao abrir o snapshot: %v", err)
		}
		defer store.Close()
		if err := store.SaveWorld(m); err != nil {
			log.Fatalf("Erro ao gravar o snapshot: %v", err)
		}
	}
}

// verifyRoundTrip grava o mundo num diretório temporário, reabre e
// confere que nenhum item ou nó persistível se perdeu no caminho.
func verifyRoundTrip(m *mapdata.Map) error {
	tmp, err := os.MkdirTemp("", "inspetor-verify-*")
	if err != nil {
		return err
	}
	defer os.RemoveAll(tmp)

	if err := m.Save(tmp); err != nil {
		return err
	}
	m2, err := mapdata.Open(tmp, m.Name)
	if err != nil {
		return err
	}

	if len(m2.Items) != len(m.Items) {
		return fmt.Errorf("gravou %d itens, leu %d", len(m.Items), len(m2.Items))
	}
	for uid := range m.Items {
		if _, ok := m2.Item(uid); !ok {
			return fmt.Errorf("item 0x%x sumiu no round-trip", uid)
		}
	}
	for uid, n := range m.Nodes {
		if _, ok := m2.Node(uid); !ok {
			// nós pendurados não são persistidos, só relação viva conta
			if n.IsOrphaned() {
				continue
			}
			return fmt.Errorf("nó 0x%x sumiu no round-trip", uid)
		}
	}
	return nil
}

// printStats imprime a contagem de itens e nós por setor, em ordem de
// coordenada.
func printStats(m *mapdata.Map) {
	type row struct {
		coord util.SectorCoord
		items int
		nodes int
	}
	rows := make(map[util.SectorCoord]*row)
	get := func(c util.SectorCoord) *row {
		r, ok := rows[c]
		if !ok {
			r = &row{coord: c}
			rows[c] = r
		}
		return r
	}

	for c := range m.Sectors {
		get(c)
	}
	for _, item := range m.Items {
		if main, ok := item.Base().MainNode(); ok {
			get(util.SectorOf(main.Position)).items++
		}
	}
	for _, n := range m.Nodes {
		get(n.Sector()).nodes++
	}

	sorted := make([]*row, 0, len(rows))
	for _, r := range rows {
		sorted = append(sorted, r)
	}
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].coord.X != sorted[j].coord.X {
			return sorted[i].coord.X < sorted[j].coord.X
		}
		return sorted[i].coord.Z < sorted[j].coord.Z
	})

	for _, r := range sorted {
		log.Printf("  %s → %d itens, %d nós", r.coord, r.items, r.nodes)
	}
	log.Printf("Total: %d setores, %d itens, %d nós", len(m.Sectors), len(m.Items), len(m.Nodes))
}
