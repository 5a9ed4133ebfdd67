package mapdata

import (
	"bytes"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"

	"RotaForge/shared/util"
)

// buildTestWorld monta um mundo com um item de cada variante, espalhado
// por mais de um setor.
func buildTestWorld(t *testing.T) *Map {
	t.Helper()
	m := NewMap("mundo_teste")
	m.StartPosition = util.Vector3{X: 12, Y: 3, Z: -7}

	road, err := NewRoad(m, "road1",
		util.Vector3{X: 0, Y: 10, Z: 0},
		util.Vector3{X: 200, Y: 12, Z: 100},
		util.Vector3{X: 4100, Y: 15, Z: 100}, // cruza para o setor vizinho
	)
	if err != nil {
		t.Fatal(err)
	}
	road.RightTerrainSize = 25.5
	road.Base().Layer = 2

	prefab, err := BuildPrefab(m, "cruzamento", []ControlPoint{
		{Position: util.Vector3{X: 500, Y: 0, Z: 500}, Direction: util.Vector3{Z: -1}},
		{Position: util.Vector3{X: 520, Y: 0, Z: 500}, Direction: util.Vector3{Z: 1}},
	}, []SpawnPoint{
		{Type: ServiceFuel, Position: util.Vector3{X: 510, Y: 0, Z: 505}},
	})
	if err != nil {
		t.Fatal(err)
	}
	prefab.SetPayloadData([]byte{0xDE, 0xAD, 0xBE, 0xEF, 0x00, 0x42})

	if _, err := NewModel(m, "arvore_01", "outono", util.Vector3{X: -50, Y: 2, Z: -50}); err != nil {
		t.Fatal(err)
	}
	if _, err := NewSound(m, "rio_corrente", util.Vector3{X: 300, Y: 0, Z: 300}, 0.8, 120); err != nil {
		t.Fatal(err)
	}
	if _, err := NewTrigger(m, []string{"hud_parking"},
		util.Vector3{X: 600, Y: 0, Z: 600},
		util.Vector3{X: 620, Y: 0, Z: 600},
	); err != nil {
		t.Fatal(err)
	}
	if _, err := NewCurve(m, "cerca_rural",
		util.Vector3{X: 700, Y: 0, Z: 700},
		util.Vector3{X: 750, Y: 0, Z: 720},
	); err != nil {
		t.Fatal(err)
	}

	area := &MapArea{AreaType: 1, Color: 0xFF00FF00}
	for i, pos := range []util.Vector3{
		{X: 800, Y: 0, Z: 800},
		{X: 850, Y: 0, Z: 800},
		{X: 825, Y: 0, Z: 860},
	} {
		area.nodes = append(area.nodes, m.AddNode(pos, i == 0))
	}
	area.SetViewDistance(120)
	area.updateKdop()
	attachNodes(area)
	if err := m.AddItem(area); err != nil {
		t.Fatal(err)
	}

	comp, err := NewCompound(m, util.Vector3{X: 900, Y: 0, Z: 900})
	if err != nil {
		t.Fatal(err)
	}
	cn := comp.AddNode(util.Vector3{X: 905, Y: 0, Z: 902}, true)
	inner := &Model{Model: "poste", Look: "default"}
	inner.ItemFile = FileAuxiliary
	inner.nodes = []NodeRef{cn}
	inner.SetViewDistance(80)
	inner.updateKdop()
	cn.attach(inner, true)
	if err := comp.AddItem(inner); err != nil {
		t.Fatal(err)
	}

	s := m.EnsureSector(util.SectorCoord{X: 0, Z: 0})
	s.SetReviewed(true)
	s.SetSeason(3)
	s.Climate = "nordico"

	return m
}

func positionsClose(a, b util.Vector3) bool {
	const eps = 2.0 / 256.0
	return math.Abs(float64(a.X-b.X)) <= eps &&
		math.Abs(float64(a.Y-b.Y)) <= eps &&
		math.Abs(float64(a.Z-b.Z)) <= eps
}

func TestSaveOpenRoundTrip(t *testing.T) {
	m := buildTestWorld(t)
	dir := t.TempDir()

	if err := m.Save(dir); err != nil {
		t.Fatal(err)
	}

	m2, err := Open(dir, m.Name)
	if err != nil {
		t.Fatal(err)
	}

	if len(m2.Items) != len(m.Items) {
		t.Fatalf("itens: gravou %d, leu %d", len(m.Items), len(m2.Items))
	}
	if len(m2.Nodes) != len(m.Nodes) {
		t.Fatalf("nós: gravou %d, leu %d", len(m.Nodes), len(m2.Nodes))
	}
	if m2.EditorMapID != m.EditorMapID {
		t.Errorf("EditorMapID: 0x%x vs 0x%x", m2.EditorMapID, m.EditorMapID)
	}
	if !positionsClose(m2.StartPosition, m.StartPosition) {
		t.Errorf("StartPosition: %v vs %v", m2.StartPosition, m.StartPosition)
	}

	for uid, orig := range m.Items {
		got, ok := m2.Item(uid)
		if !ok {
			t.Errorf("item 0x%x sumiu no round-trip", uid)
			continue
		}
		if got.Type() != orig.Type() {
			t.Errorf("item 0x%x: tipo %d vs %d", uid, got.Type(), orig.Type())
		}
		if got.File() != orig.File() {
			t.Errorf("item 0x%x: canal %d vs %d", uid, got.File(), orig.File())
		}
		if got.Base().Layer != orig.Base().Layer {
			t.Errorf("item 0x%x: camada %d vs %d", uid, got.Base().Layer, orig.Base().Layer)
		}
		if got.Base().ViewDistance() != orig.Base().ViewDistance() {
			t.Errorf("item 0x%x: view distance %d vs %d", uid, got.Base().ViewDistance(), orig.Base().ViewDistance())
		}
		if len(got.Nodes()) != len(orig.Nodes()) {
			t.Errorf("item 0x%x: %d nós vs %d", uid, len(got.Nodes()), len(orig.Nodes()))
		}
	}

	for uid, orig := range m.Nodes {
		got, ok := m2.Node(uid)
		if !ok {
			t.Errorf("nó 0x%x sumiu no round-trip", uid)
			continue
		}
		if !positionsClose(got.Position, orig.Position) {
			t.Errorf("nó 0x%x: posição %v vs %v", uid, got.Position, orig.Position)
		}
		if got.IsRed() != orig.IsRed() {
			t.Errorf("nó 0x%x: vermelho %v vs %v", uid, got.IsRed(), orig.IsRed())
		}
		if (got.ForwardItem == nil) != (orig.ForwardItem == nil) {
			t.Errorf("nó 0x%x: slot de saída divergiu", uid)
		}
		if (got.BackwardItem == nil) != (orig.BackwardItem == nil) {
			t.Errorf("nó 0x%x: slot de chegada divergiu", uid)
		}
	}
}

func TestRoundTripVariantFields(t *testing.T) {
	m := buildTestWorld(t)
	dir := t.TempDir()
	if err := m.Save(dir); err != nil {
		t.Fatal(err)
	}
	m2, err := Open(dir, m.Name)
	if err != nil {
		t.Fatal(err)
	}

	var road *Road
	var prefab *Prefab
	var comp *Compound
	for _, item := range m2.Items {
		switch v := item.(type) {
		case *Road:
			road = v
		case *Prefab:
			prefab = v
		case *Compound:
			comp = v
		}
	}

	if road == nil || prefab == nil || comp == nil {
		t.Fatal("variantes esperadas não voltaram do disco")
	}

	if road.RoadType != "road1" {
		t.Errorf("RoadType = %q", road.RoadType)
	}
	if road.RightTerrainSize != 25.5 {
		t.Errorf("RightTerrainSize = %v", road.RightTerrainSize)
	}

	if prefab.Unit != "cruzamento" {
		t.Errorf("Unit = %q", prefab.Unit)
	}
	if !prefab.HasPayload() {
		t.Error("flag de payload deveria ter sobrevivido")
	}
	if !bytes.Equal(prefab.PayloadData(), []byte{0xDE, 0xAD, 0xBE, 0xEF, 0x00, 0x42}) {
		t.Errorf("payload = % x", prefab.PayloadData())
	}
	if len(prefab.SlaveItems) != 1 {
		t.Fatalf("escravos = %d", len(prefab.SlaveItems))
	}
	if _, ok := prefab.SlaveItems[0].(*Service); !ok {
		t.Errorf("escravo deveria ter resolvido para *Service, é %T", prefab.SlaveItems[0])
	}

	if len(comp.Items()) != 1 || comp.NodeCount() != 1 {
		t.Fatalf("compound: %d itens, %d nós privados", len(comp.Items()), comp.NodeCount())
	}
	innerModel, ok := comp.Items()[0].(*Model)
	if !ok {
		t.Fatalf("filho do compound deveria ser *Model, é %T", comp.Items()[0])
	}
	if innerModel.Model != "poste" || innerModel.File() != FileAuxiliary {
		t.Errorf("filho do compound: %q canal %d", innerModel.Model, innerModel.File())
	}
	if n, ok := resolvedNode(innerModel.Nodes()[0]); !ok {
		t.Error("nó privado do filho deveria estar resolvido no escopo local")
	} else if _, global := m2.Node(n.ID); global {
		t.Error("nó privado não pode vazar para a tabela global")
	}
}

func TestRoundTripSectorHeader(t *testing.T) {
	m := buildTestWorld(t)
	dir := t.TempDir()
	if err := m.Save(dir); err != nil {
		t.Fatal(err)
	}
	m2, err := Open(dir, m.Name)
	if err != nil {
		t.Fatal(err)
	}

	s, ok := m2.Sectors[util.SectorCoord{X: 0, Z: 0}]
	if !ok {
		t.Fatal("setor (0,0) deveria existir")
	}
	if !s.Reviewed() {
		t.Error("marca de inspeção deveria ter sobrevivido")
	}
	if s.Season() != 3 {
		t.Errorf("estação = %d", s.Season())
	}
	if s.Climate != "nordico" {
		t.Errorf("clima = %q", s.Climate)
	}
}

func TestResolverIdempotent(t *testing.T) {
	m := buildTestWorld(t)
	dir := t.TempDir()
	if err := m.Save(dir); err != nil {
		t.Fatal(err)
	}
	m2, err := Open(dir, m.Name)
	if err != nil {
		t.Fatal(err)
	}

	before := make(map[uint64]MapItem)
	for uid, n := range m2.Nodes {
		if item, ok := resolvedItem(n.ForwardItem); ok {
			before[uid] = item
		}
	}

	if err := m2.ResolveReferences(); err != nil {
		t.Fatalf("segunda passada do resolver: %v", err)
	}

	for uid, n := range m2.Nodes {
		item, ok := resolvedItem(n.ForwardItem)
		if !ok {
			continue
		}
		if before[uid] != item {
			t.Fatal("resolver re-executado trocou uma referência já resolvida")
		}
	}
}

func TestSaveIsDeterministic(t *testing.T) {
	m := buildTestWorld(t)
	dir1 := t.TempDir()
	dir2 := t.TempDir()

	if err := m.Save(dir1); err != nil {
		t.Fatal(err)
	}
	if err := m.Save(dir2); err != nil {
		t.Fatal(err)
	}

	coord := util.SectorCoord{X: 0, Z: 0}
	for _, ext := range []string{".base", ".desc"} {
		a := readSectorFile(t, dir1, m.Name, coord, ext)
		b := readSectorFile(t, dir2, m.Name, coord, ext)
		if !bytes.Equal(a, b) {
			t.Errorf("bytes de %s divergem entre dois saves", ext)
		}
	}
}

func TestDanglingNodeNotPersisted(t *testing.T) {
	m := NewMap("mundo_teste")
	if _, err := NewRoad(m, "road1", util.Vector3{X: 0}, util.Vector3{X: 100}); err != nil {
		t.Fatal(err)
	}
	// nó pendurado, sem nenhuma relação
	dangling := m.AddNode(util.Vector3{X: 50, Y: 0, Z: 50}, false)

	dir := t.TempDir()
	if err := m.Save(dir); err != nil {
		t.Fatal(err)
	}
	m2, err := Open(dir, m.Name)
	if err != nil {
		t.Fatal(err)
	}

	if _, ok := m2.Node(dangling.ID); ok {
		t.Error("nó sem relação não deveria ter sido persistido")
	}
	if len(m2.Nodes) != 2 {
		t.Errorf("só os 2 nós da estrada deveriam voltar, vieram %d", len(m2.Nodes))
	}
}

func TestOpenRejectsBadVersion(t *testing.T) {
	m := buildTestWorld(t)
	dir := t.TempDir()
	if err := m.Save(dir); err != nil {
		t.Fatal(err)
	}

	// corrompe a versão do primeiro arquivo .base
	corruptSectorVersion(t, dir, m.Name)

	if _, err := Open(dir, m.Name); err == nil {
		t.Fatal("versão não suportada deveria abortar o load inteiro")
	}
}

func readSectorFile(t *testing.T, dir, world string, coord util.SectorCoord, ext string) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, world, coord.String()+ext))
	if err != nil {
		t.Fatal(err)
	}
	return data
}

// corruptSectorVersion sobrescreve o tag de versão do .base do setor
// (0,0) com um valor fora do conjunto suportado.
func corruptSectorVersion(t *testing.T, dir, world string) {
	t.Helper()
	path := filepath.Join(dir, world, util.SectorCoord{X: 0, Z: 0}.String()+FilePrimary.Extension())
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	binary.LittleEndian.PutUint32(data, 12345)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
}
