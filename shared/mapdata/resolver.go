package mapdata

// resolveNodeRelations é a passada 1 para um nó: troca os placeholders
// forward/backward pelos itens vivos do escopo. Uid genuinamente ausente
// não é erro: o alvo só não está no escopo carregado (load seletivo de
// setores) e o placeholder permanece.
func resolveNodeRelations(s scope, n *Node) {
	if u, ok := n.ForwardItem.(*UnresolvedItem); ok {
		if item, found := s.Item(u.ID); found {
			n.ForwardItem = item
		}
	}
	if u, ok := n.BackwardItem.(*UnresolvedItem); ok {
		if item, found := s.Item(u.ID); found {
			n.BackwardItem = item
		}
	}
}

// ResolveReferences roda o linker de duas passadas sobre o escopo global.
// A passada 1 (relações dos nós) precisa terminar para TODOS os nós antes
// da passada 2 começar: a resolução de alguns itens depende das relações
// dos nós já estarem corretas. Idempotente: referências já resolvidas
// são puladas.
func (m *Map) ResolveReferences() error {
	for _, n := range m.Nodes {
		resolveNodeRelations(m, n)
	}
	for _, item := range m.Items {
		if err := item.resolve(m); err != nil {
			return err
		}
	}
	return nil
}
