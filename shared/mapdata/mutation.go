package mapdata

import (
	"fmt"

	"RotaForge/shared/util"
)

// Motor de mutação: operações de edição que mantêm o grafo consistente.
// Máquina de estados das relações de um nó:
//
//	{vazio, vazio}  → órfão, precisa ser removido
//	{um slot}       → meio conectado
//	{dois slots}    → totalmente conectado
//
// Qualquer transição para {vazio, vazio} dispara a remoção do nó.

// MoveNode muda a posição de um nó. Se o setor dono mudar, o novo setor
// é garantido (a filiação em si é derivada no save). Itens ligados que
// implementam recálculo de ponta são recalculados.
func (m *Map) MoveNode(n *Node, pos util.Vector3) {
	oldSector := n.Sector()
	n.Position = pos
	if newSector := n.Sector(); newSector != oldSector {
		m.EnsureSector(newSector)
	}
	recalcAttached(n)
}

// MoveItemNode move o nó no índice dado da lista de nós de um item.
// Índice fora do intervalo é erro estrutural: rejeitado na hora, grafo
// intacto.
func (m *Map) MoveItemNode(item MapItem, index int, pos util.Vector3) error {
	refs := item.Nodes()
	if index < 0 || index >= len(refs) {
		return fmt.Errorf("mapdata: índice de nó %d fora do intervalo [0,%d) do item 0x%x", index, len(refs), item.UID())
	}
	n, ok := resolvedNode(refs[index])
	if !ok {
		return fmt.Errorf("mapdata: nó no índice %d do item 0x%x não está resolvido", index, item.UID())
	}
	m.MoveNode(n, pos)
	item.Base().updateKdop()
	return nil
}

// recalcAttached recalcula os itens ligados ao nó que têm a capacidade e
// atualiza o volume delimitador dos dois. Um nó compartilhado por merge
// pertence a mais de um item, então os bounds de todos os ligados
// precisam acompanhar a nova posição.
func recalcAttached(n *Node) {
	for _, rel := range []ItemRef{n.ForwardItem, n.BackwardItem} {
		item, ok := resolvedItem(rel)
		if !ok {
			continue
		}
		if r, ok := item.(Recalculable); ok {
			r.Recalculate()
		}
		item.Base().updateKdop()
	}
}

// DeleteItem remove um item do mapa com toda a limpeza em cascata.
func (m *Map) DeleteItem(item MapItem) {
	deleteItemFrom(m, item)
}

// DeleteItem remove um item do escopo privado do compound.
func (c *Compound) DeleteItem(item MapItem) {
	deleteItemFrom(c, item)
}

// DeleteNode expurga um nó e, em cascata, os dois itens ligados a ele.
func (m *Map) DeleteNode(n *Node) {
	deleteNodeFrom(m, n)
}

// DeleteNode expurga um nó do escopo privado do compound.
func (c *Compound) DeleteNode(n *Node) {
	deleteNodeFrom(c, n)
}

// Delete expurga o nó pelo escopo que o contém (mapa ou compound), com a
// mesma cascata de DeleteNode. Nós criados fora de um escopo são inertes.
func (n *Node) Delete() {
	if n.container != nil {
		deleteNodeFrom(n.container, n)
	}
}

// deleteItemFrom tira o item da tabela do escopo e faz a limpeza: para
// cada nó do item limpa os slots que apontam para ele (zerando a marca
// vermelha quando o forward some), remove nós que ficarem órfãos e
// recalcula o vizinho de polilinha que sobrar. Itens dependentes caem
// em cascata.
func deleteItemFrom(s graphScope, item MapItem) {
	if _, present := s.Item(item.UID()); !present {
		// já removido por uma cascata anterior
		return
	}
	s.removeItem(item.UID())

	// escravo removido diretamente: limpa a lista do dono, senão a
	// relação secundária fica resolvida apontando para item fora da
	// tabela. Na cascata o dono já saiu do escopo e nada é tocado.
	if dep, ok := item.(ownedDependent); ok {
		if owner, ok := resolvedItem(dep.OwnerItem()); ok {
			if _, present := s.Item(owner.UID()); present {
				if o, ok := owner.(dependentOwner); ok {
					o.removeDependent(item.UID())
				}
			}
		}
	}

	if comp, ok := item.(*Compound); ok {
		// o conteúdo privado morre junto com o compound
		comp.clearContents()
	}

	_, linear := item.(Recalculable)

	for _, ref := range item.Nodes() {
		n, ok := resolvedNode(ref)
		if !ok {
			continue
		}
		if n.ForwardItem != nil && n.ForwardItem.UID() == item.UID() {
			n.ForwardItem = nil
			n.SetRed(false)
		}
		if n.BackwardItem != nil && n.BackwardItem.UID() == item.UID() {
			n.BackwardItem = nil
		}
		if n.IsOrphaned() {
			s.removeNode(n.ID)
			continue
		}
		if linear {
			recalcSurvivor(n)
		}
	}

	if owner, ok := item.(dependentOwner); ok {
		for _, ref := range owner.DependentItems() {
			if dep, ok := resolvedItem(ref); ok {
				deleteItemFrom(s, dep)
			}
		}
	}
}

// recalcSurvivor trata o vizinho que sobrou num nó compartilhado após a
// remoção de uma polilinha: vizinho recalculável é recalculado; âncora
// fixa (prefab) tem a rotação do nó virada 180° para restaurar a
// orientação correta.
func recalcSurvivor(n *Node) {
	for _, rel := range []ItemRef{n.ForwardItem, n.BackwardItem} {
		other, ok := resolvedItem(rel)
		if !ok {
			continue
		}
		if r, ok := other.(Recalculable); ok {
			r.Recalculate()
			continue
		}
		if _, ok := other.(*Prefab); ok {
			n.Rotation = n.Rotation.FlipYaw()
		}
	}
}

// deleteNodeFrom expurga o nó: os itens forward e backward caem primeiro
// (cada um com a própria cascata) e o nó sai da tabela se ainda estiver lá.
func deleteNodeFrom(s graphScope, n *Node) {
	if item, ok := resolvedItem(n.ForwardItem); ok {
		deleteItemFrom(s, item)
	}
	if item, ok := resolvedItem(n.BackwardItem); ok {
		deleteItemFrom(s, item)
	}
	if _, still := s.Node(n.ID); still {
		s.removeNode(n.ID)
	}
}

// MergeNodes unifica dois nós que representam a mesma junção física
// (encadeamento de itens ponta a ponta): as relações de b migram para a,
// as listas de nós dos itens envolvidos passam a apontar para a, e b é
// descartado. Conflito de slot (os dois nós com o mesmo lado ocupado) é
// erro estrutural e deixa o grafo intacto.
func (m *Map) MergeNodes(a, b *Node) error {
	if a == b {
		return nil
	}
	if a.ForwardItem != nil && b.ForwardItem != nil {
		return fmt.Errorf("mapdata: merge impossível, nós 0x%x e 0x%x têm item de saída", a.ID, b.ID)
	}
	if a.BackwardItem != nil && b.BackwardItem != nil {
		return fmt.Errorf("mapdata: merge impossível, nós 0x%x e 0x%x têm item de chegada", a.ID, b.ID)
	}

	if b.ForwardItem != nil {
		a.ForwardItem = b.ForwardItem
		a.SetRed(true)
		if item, ok := resolvedItem(b.ForwardItem); ok {
			replaceNodeRef(item, b.ID, a)
		}
	}
	if b.BackwardItem != nil {
		a.BackwardItem = b.BackwardItem
		if item, ok := resolvedItem(b.BackwardItem); ok {
			replaceNodeRef(item, b.ID, a)
		}
	}

	m.removeNode(b.ID)
	recalcAttached(a)
	return nil
}

// replaceNodeRef troca toda entrada da lista de nós do item com o uid
// antigo pelo nó novo.
func replaceNodeRef(item MapItem, oldUID uint64, n *Node) {
	refs := item.Base().nodes
	for i, ref := range refs {
		if ref.UID() == oldUID {
			refs[i] = n
		}
	}
}
