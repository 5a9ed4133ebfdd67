package mapdata

// ItemRef referencia um item do grafo. Depois do resolver, toda referência
// viva é um MapItem; durante o load ela pode ser um *UnresolvedItem.
type ItemRef interface {
	UID() uint64
}

// NodeRef referencia um nó do grafo (resolvido ou pendente).
type NodeRef interface {
	UID() uint64
}

// UnresolvedItem é o placeholder de um item decodificado antes do alvo
// existir em memória. Estritamente transitório: sobrevive ao resolver
// apenas quando o alvo não está no escopo carregado.
type UnresolvedItem struct {
	ID uint64
}

// UID retorna o uid pendente.
func (u *UnresolvedItem) UID() uint64 { return u.ID }

// UnresolvedNode é o placeholder de um nó ainda não resolvido.
type UnresolvedNode struct {
	ID uint64
}

// UID retorna o uid pendente.
func (u *UnresolvedNode) UID() uint64 { return u.ID }

// resolvedItem devolve o MapItem por trás da referência, se já resolvida.
func resolvedItem(r ItemRef) (MapItem, bool) {
	if r == nil {
		return nil, false
	}
	item, ok := r.(MapItem)
	return item, ok
}

// resolvedNode devolve o *Node por trás da referência, se já resolvida.
func resolvedNode(r NodeRef) (*Node, bool) {
	if r == nil {
		return nil, false
	}
	n, ok := r.(*Node)
	return n, ok
}
