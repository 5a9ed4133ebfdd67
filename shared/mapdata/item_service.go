package mapdata

import (
	"fmt"

	"RotaForge/shared/pkg/secwire"
)

// ServiceType é o tipo de ponto de spawn vindo do descritor da unidade.
type ServiceType uint32

const (
	ServiceNone ServiceType = iota
	ServiceFuel
	ServiceRepair
	ServiceCompany
	ServiceParking
)

// Service é um ponto de serviço de nó único, normalmente escravo de um
// prefab (relação secundária, resolvida de forma tolerante).
type Service struct {
	ItemBase

	ServiceType  ServiceType
	ParentPrefab ItemRef
}

// Type retorna o tag de tipo do item.
func (s *Service) Type() ItemType { return ItemTypeService }

// OwnerItem retorna o prefab dono da relação de escravidão.
func (s *Service) OwnerItem() ItemRef { return s.ParentPrefab }

// resolve roda a passada 2: nó obrigatório, prefab pai tolerante.
func (s *Service) resolve(sc scope) error {
	if err := s.resolveNodes(sc, s); err != nil {
		return err
	}
	if s.ParentPrefab != nil {
		if _, ok := resolvedItem(s.ParentPrefab); !ok {
			if item, ok := sc.Item(s.ParentPrefab.UID()); ok {
				s.ParentPrefab = item
			}
		}
	}
	return nil
}

type serviceSerializer struct{}

func init() { Register(ItemTypeService, serviceSerializer{}) }

func (serviceSerializer) Encode(e *secwire.Encoder, item MapItem) error {
	s := item.(*Service)
	encodeItemBase(e, &s.ItemBase)
	e.WriteUint32(uint32(s.ServiceType))
	e.WriteUint64(refUID(s.ParentPrefab))
	encodeNodeRefs(e, s.nodes)
	return nil
}

func (serviceSerializer) Decode(d *secwire.Decoder) (MapItem, error) {
	s := &Service{}
	if err := decodeItemBase(d, &s.ItemBase); err != nil {
		return nil, err
	}
	st, err := d.ReadUint32()
	if err != nil {
		return nil, err
	}
	s.ServiceType = ServiceType(st)
	parent, err := d.ReadUint64()
	if err != nil {
		return nil, err
	}
	s.ParentPrefab = itemRefFromUID(parent)
	if s.nodes, err = decodeNodeRefs(d); err != nil {
		return nil, err
	}
	if len(s.nodes) != 1 {
		return nil, &secwire.FormatError{Msg: fmt.Sprintf("serviço 0x%x com %d nós (esperado 1)", s.ID, len(s.nodes))}
	}
	return s, nil
}
