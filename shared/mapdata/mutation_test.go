package mapdata

import (
	"errors"
	"testing"

	"RotaForge/shared/util"
)

func TestAddNodeRegistersSector(t *testing.T) {
	m := NewMap("teste")

	n := m.AddNode(util.Vector3{X: -69, Y: 0, Z: -420}, true)

	want := util.SectorCoord{X: -1, Z: -1}
	if n.Sector() != want {
		t.Fatalf("setor do nó = %v, esperava %v", n.Sector(), want)
	}
	if _, ok := m.Sectors[want]; !ok {
		t.Error("setor dono deveria ter sido registrado")
	}
	if len(m.Sectors) != 1 {
		t.Errorf("exatamente um setor deveria existir, tem %d", len(m.Sectors))
	}
	if got, ok := m.Node(n.ID); !ok || got != n {
		t.Error("tabela global deveria mapear o uid para o próprio nó")
	}
	if !n.IsRed() {
		t.Error("nó criado como vermelho deveria estar vermelho")
	}

	m.DeleteNode(n)
	if len(m.Nodes) != 0 {
		t.Errorf("tabela de nós deveria estar vazia, tem %d", len(m.Nodes))
	}
}

func TestRoadCreation(t *testing.T) {
	m := NewMap("teste")

	r, err := NewRoad(m, "road1",
		util.Vector3{X: 0, Y: 0, Z: 0},
		util.Vector3{X: 50, Y: 0, Z: 0},
		util.Vector3{X: 100, Y: 0, Z: 50},
	)
	if err != nil {
		t.Fatal(err)
	}

	if len(m.Nodes) != 3 || len(m.Items) != 1 {
		t.Fatalf("esperava 3 nós e 1 item, tem %d e %d", len(m.Nodes), len(m.Items))
	}

	first := r.Nodes()[0].(*Node)
	mid := r.Nodes()[1].(*Node)
	last := r.Nodes()[2].(*Node)

	if !first.IsRed() {
		t.Error("primeiro nó da estrada deveria ser vermelho")
	}
	if first.ForwardItem != MapItem(r) || first.BackwardItem != nil {
		t.Error("primeiro nó: só o slot de saída deveria apontar para a estrada")
	}
	if mid.ForwardItem != MapItem(r) || mid.BackwardItem != MapItem(r) {
		t.Error("nó interno deveria ocupar os dois slots")
	}
	if last.BackwardItem != MapItem(r) || last.ForwardItem != nil {
		t.Error("último nó: só o slot de chegada deveria apontar para a estrada")
	}
}

func TestDeleteItemRemovesOrphans(t *testing.T) {
	m := NewMap("teste")

	r, err := NewRoad(m, "road1",
		util.Vector3{X: 0, Y: 0, Z: 0},
		util.Vector3{X: 50, Y: 0, Z: 0},
	)
	if err != nil {
		t.Fatal(err)
	}

	m.DeleteItem(r)

	if len(m.Items) != 0 {
		t.Errorf("tabela de itens deveria estar vazia, tem %d", len(m.Items))
	}
	if len(m.Nodes) != 0 {
		t.Errorf("nós órfãos deveriam ter sido removidos, restam %d", len(m.Nodes))
	}
}

func TestMergeAndSharedNodeSurvival(t *testing.T) {
	m := NewMap("teste")

	r1, err := NewRoad(m, "road1",
		util.Vector3{X: 0, Y: 0, Z: 0},
		util.Vector3{X: 100, Y: 0, Z: 0},
	)
	if err != nil {
		t.Fatal(err)
	}
	r2, err := NewRoad(m, "road1",
		util.Vector3{X: 100, Y: 0, Z: 0},
		util.Vector3{X: 200, Y: 0, Z: 0},
	)
	if err != nil {
		t.Fatal(err)
	}

	end1 := r1.Nodes()[1].(*Node)   // chegada de r1
	start2 := r2.Nodes()[0].(*Node) // saída de r2

	if err := m.MergeNodes(end1, start2); err != nil {
		t.Fatal(err)
	}

	if len(m.Nodes) != 3 {
		t.Fatalf("após o merge deveriam restar 3 nós, tem %d", len(m.Nodes))
	}
	if end1.ForwardItem != MapItem(r2) || end1.BackwardItem != MapItem(r1) {
		t.Fatal("nó unificado deveria ligar a chegada de r1 à saída de r2")
	}
	if !end1.IsRed() {
		t.Error("nó que ganhou item de saída deveria ficar vermelho")
	}
	if r2.Nodes()[0].(*Node) != end1 {
		t.Error("lista de nós de r2 deveria apontar para o nó unificado")
	}

	// apagar r1 mantém o nó compartilhado (ainda serve r2)
	m.DeleteItem(r1)
	if _, ok := m.Node(end1.ID); !ok {
		t.Fatal("nó compartilhado deveria sobreviver à remoção de r1")
	}
	if end1.BackwardItem != nil {
		t.Error("slot de chegada deveria ter sido limpo")
	}

	// apagar r2 orfana e remove o nó
	m.DeleteItem(r2)
	if len(m.Nodes) != 0 {
		t.Errorf("todos os nós deveriam ter sumido, restam %d", len(m.Nodes))
	}
}

func TestMergeConflictRejected(t *testing.T) {
	m := NewMap("teste")

	r1, _ := NewRoad(m, "road1", util.Vector3{X: 0}, util.Vector3{X: 100})
	r2, _ := NewRoad(m, "road1", util.Vector3{X: 0, Z: 50}, util.Vector3{X: 100, Z: 50})

	a := r1.Nodes()[0].(*Node)
	b := r2.Nodes()[0].(*Node)

	if err := m.MergeNodes(a, b); err == nil {
		t.Fatal("merge de dois nós de saída deveria falhar")
	}
	// grafo intacto
	if a.ForwardItem != MapItem(r1) || b.ForwardItem != MapItem(r2) {
		t.Error("merge rejeitado não pode ter alterado os slots")
	}
	if len(m.Nodes) != 4 {
		t.Errorf("merge rejeitado não pode ter removido nós, tem %d", len(m.Nodes))
	}
}

func TestPrefabSlaveCascade(t *testing.T) {
	m := NewMap("teste")

	p, err := BuildPrefab(m, "cruzamento", []ControlPoint{
		{Position: util.Vector3{X: 0, Y: 0, Z: 0}, Direction: util.Vector3{Z: -1}},
		{Position: util.Vector3{X: 20, Y: 0, Z: 0}, Direction: util.Vector3{Z: 1}},
	}, []SpawnPoint{
		{Type: ServiceFuel, Position: util.Vector3{X: 10, Y: 0, Z: 5}},
	})
	if err != nil {
		t.Fatal(err)
	}

	if len(m.Items) != 2 {
		t.Fatalf("esperava prefab + serviço, tem %d itens", len(m.Items))
	}
	if len(p.SlaveItems) != 1 {
		t.Fatalf("esperava 1 escravo, tem %d", len(p.SlaveItems))
	}

	m.DeleteItem(p)

	if len(m.Items) != 0 {
		t.Errorf("escravos deveriam cair em cascata, restam %d itens", len(m.Items))
	}
	if len(m.Nodes) != 0 {
		t.Errorf("todos os nós deveriam ter sumido, restam %d", len(m.Nodes))
	}
}

func TestDeleteSlaveDirectly(t *testing.T) {
	m := NewMap("teste")

	p, err := BuildPrefab(m, "posto", []ControlPoint{
		{Position: util.Vector3{X: 0, Y: 0, Z: 0}, Direction: util.Vector3{Z: -1}},
		{Position: util.Vector3{X: 20, Y: 0, Z: 0}, Direction: util.Vector3{Z: 1}},
	}, []SpawnPoint{
		{Type: ServiceFuel, Position: util.Vector3{X: 10, Y: 0, Z: 5}},
	})
	if err != nil {
		t.Fatal(err)
	}

	svc, ok := p.SlaveItems[0].(*Service)
	if !ok {
		t.Fatalf("escravo deveria ser um serviço, é %T", p.SlaveItems[0])
	}
	uid := svc.UID()

	// remoção direta do escravo, sem passar pelo prefab
	m.DeleteItem(svc)

	if _, ok := m.Item(uid); ok {
		t.Fatal("serviço removido não pode continuar na tabela")
	}
	for _, ref := range p.SlaveItems {
		if ref != nil && ref.UID() == uid {
			t.Error("dono mantém referência ao escravo removido")
		}
	}
	if len(p.SlaveItems) != 0 {
		t.Errorf("lista de escravos deveria estar vazia, tem %d", len(p.SlaveItems))
	}
	// o prefab e seus nós continuam intactos
	if _, ok := m.Item(p.UID()); !ok {
		t.Fatal("prefab deveria sobreviver à remoção do escravo")
	}
	if len(m.Items) != 1 || len(m.Nodes) != 2 {
		t.Errorf("esperava 1 item e 2 nós, tem %d e %d", len(m.Items), len(m.Nodes))
	}
}

func TestDeleteNodeCascadesBothItems(t *testing.T) {
	m := NewMap("teste")

	r1, _ := NewRoad(m, "road1", util.Vector3{X: 0}, util.Vector3{X: 100})
	r2, _ := NewRoad(m, "road1", util.Vector3{X: 100}, util.Vector3{X: 200})

	shared := r1.Nodes()[1].(*Node)
	if err := m.MergeNodes(shared, r2.Nodes()[0].(*Node)); err != nil {
		t.Fatal(err)
	}

	m.DeleteNode(shared)

	if len(m.Items) != 0 {
		t.Errorf("os dois itens ligados deveriam cair, restam %d", len(m.Items))
	}
	if len(m.Nodes) != 0 {
		t.Errorf("todos os nós deveriam ter sumido, restam %d", len(m.Nodes))
	}
}

func TestMoveItemNodeOutOfRange(t *testing.T) {
	m := NewMap("teste")

	r, _ := NewRoad(m, "road1", util.Vector3{X: 0}, util.Vector3{X: 100})

	if err := m.MoveItemNode(r, 2, util.Vector3{X: 150}); err == nil {
		t.Fatal("índice fora do intervalo deveria ser rejeitado")
	}
	if err := m.MoveItemNode(r, -1, util.Vector3{X: 150}); err == nil {
		t.Fatal("índice negativo deveria ser rejeitado")
	}
	// grafo intacto após rejeição
	if got := r.Nodes()[1].(*Node).Position.X; got != 100 {
		t.Errorf("posição não pode ter mudado, X = %v", got)
	}
}

func TestMoveNodeAcrossSectors(t *testing.T) {
	m := NewMap("teste")

	r, _ := NewRoad(m, "road1", util.Vector3{X: 0}, util.Vector3{X: 100})
	n := r.Nodes()[1].(*Node)

	if err := m.MoveItemNode(r, 1, util.Vector3{X: 4100}); err != nil {
		t.Fatal(err)
	}

	want := util.SectorCoord{X: 1, Z: 0}
	if n.Sector() != want {
		t.Fatalf("setor do nó = %v, esperava %v", n.Sector(), want)
	}
	if _, ok := m.Sectors[want]; !ok {
		t.Error("setor destino deveria ter sido registrado")
	}
	if r.Kdop.Max.X != 4100 {
		t.Errorf("kdop deveria acompanhar o nó, Max.X = %v", r.Kdop.Max.X)
	}
}

func TestMoveSharedNodeRefreshesBothBounds(t *testing.T) {
	m := NewMap("teste")

	r1, _ := NewRoad(m, "road1", util.Vector3{X: 0}, util.Vector3{X: 100})
	r2, _ := NewRoad(m, "road1", util.Vector3{X: 100}, util.Vector3{X: 200})

	shared := r1.Nodes()[1].(*Node)
	if err := m.MergeNodes(shared, r2.Nodes()[0].(*Node)); err != nil {
		t.Fatal(err)
	}

	// mover o nó compartilhado tem que arrastar o volume dos dois itens
	m.MoveNode(shared, util.Vector3{X: 100, Y: 40, Z: 100})

	if r1.Kdop.Max.Y != 40 || r1.Kdop.Max.Z != 100 {
		t.Errorf("kdop de r1 ficou para trás: Max = %v", r1.Kdop.Max)
	}
	if r2.Kdop.Max.Y != 40 || r2.Kdop.Max.Z != 100 {
		t.Errorf("kdop de r2 ficou para trás: Max = %v", r2.Kdop.Max)
	}
	if r2.Kdop.Min.X != 100 {
		t.Errorf("kdop de r2 deveria começar no nó compartilhado, Min.X = %v", r2.Kdop.Min.X)
	}
}

func TestNodeDeleteUsesOwningScope(t *testing.T) {
	m := NewMap("teste")

	r, _ := NewRoad(m, "road1", util.Vector3{X: 0}, util.Vector3{X: 100})
	r.Nodes()[0].(*Node).Delete()
	if len(m.Items) != 0 || len(m.Nodes) != 0 {
		t.Fatalf("delete pelo nó deveria limpar o mapa: %d itens, %d nós", len(m.Items), len(m.Nodes))
	}

	// nó privado de compound cai pelo escopo do compound, não pelo mapa
	comp, err := NewCompound(m, util.Vector3{X: 10, Y: 0, Z: 10})
	if err != nil {
		t.Fatal(err)
	}
	inner := comp.AddNode(util.Vector3{X: 12, Y: 0, Z: 10}, true)
	model := &Model{Model: "arvore", Look: "default"}
	model.ItemFile = FileAuxiliary
	model.nodes = []NodeRef{inner}
	model.updateKdop()
	inner.attach(model, true)
	if err := comp.AddItem(model); err != nil {
		t.Fatal(err)
	}

	inner.Delete()
	if len(comp.Items()) != 0 || comp.NodeCount() != 0 {
		t.Error("delete pelo nó interno deveria limpar o escopo privado")
	}
	if _, ok := m.Item(comp.UID()); !ok {
		t.Error("o compound em si deveria sobreviver")
	}
}

func TestCompoundChannelRule(t *testing.T) {
	m := NewMap("teste")

	comp, err := NewCompound(m, util.Vector3{X: 10, Y: 0, Z: 10})
	if err != nil {
		t.Fatal(err)
	}

	// item de canal primário não entra em compound
	n := comp.AddNode(util.Vector3{X: 12, Y: 0, Z: 10}, true)
	bad := &Model{Model: "arvore", Look: "default"}
	bad.nodes = []NodeRef{n}
	if err := comp.AddItem(bad); !errors.Is(err, ErrCompoundChannel) {
		t.Fatalf("esperava ErrCompoundChannel, obteve %v", err)
	}

	good := &Model{Model: "arvore", Look: "default"}
	good.ItemFile = FileAuxiliary
	good.nodes = []NodeRef{n}
	good.updateKdop()
	n.attach(good, true)
	if err := comp.AddItem(good); err != nil {
		t.Fatal(err)
	}

	if len(comp.Items()) != 1 || comp.NodeCount() != 1 {
		t.Fatalf("escopo privado: %d itens, %d nós", len(comp.Items()), comp.NodeCount())
	}
	// conteúdo privado é invisível para os índices globais
	if _, ok := m.Item(good.UID()); ok {
		t.Error("item interno não pode aparecer na tabela global")
	}
	if _, ok := m.Node(n.ID); ok {
		t.Error("nó interno não pode aparecer na tabela global")
	}

	m.DeleteItem(comp)
	if len(comp.Items()) != 0 || comp.NodeCount() != 0 {
		t.Error("delete do compound deveria limpar o conteúdo privado")
	}
	if len(m.Items) != 0 || len(m.Nodes) != 0 {
		t.Errorf("âncora e registro deveriam sumir: %d itens, %d nós", len(m.Items), len(m.Nodes))
	}
}

func TestSurvivorRecalcOnPrefabNeighbor(t *testing.T) {
	m := NewMap("teste")

	p, err := BuildPrefab(m, "entrada", []ControlPoint{
		{Position: util.Vector3{X: 0, Y: 0, Z: 0}, Direction: util.Vector3{Z: -1}},
	}, nil)
	if err != nil {
		t.Fatal(err)
	}

	anchor := p.Nodes()[0].(*Node)
	// estrada chega na âncora do prefab
	r, err := NewRoad(m, "road1", util.Vector3{X: 0, Y: 0, Z: 100}, util.Vector3{X: 0, Y: 0, Z: 40})
	if err != nil {
		t.Fatal(err)
	}
	if err := m.MergeNodes(anchor, r.Nodes()[1].(*Node)); err != nil {
		t.Fatal(err)
	}

	before := anchor.Rotation
	m.DeleteItem(r)

	if _, ok := m.Node(anchor.ID); !ok {
		t.Fatal("âncora do prefab deveria sobreviver")
	}
	// vizinho de âncora fixa: a rotação do nó vira 180°
	after := anchor.Rotation
	fwdBefore := before.Rotate(util.Vector3{Z: -1})
	fwdAfter := after.Rotate(util.Vector3{Z: -1})
	if fwdBefore.Add(fwdAfter).Length() > 1e-3 {
		t.Errorf("rotação deveria ter virado 180°: antes %v, depois %v", fwdBefore, fwdAfter)
	}
}
