package mapdata

import (
	"fmt"

	"RotaForge/shared/util"
)

// Costura para os parsers de descritores externos (navegação de prefab,
// definições de unidade): eles entregam pontos de controle e pontos de
// spawn já interpretados e o motor monta o sub-grafo do item. Os parsers
// em si ficam fora deste módulo.

// ControlPoint é um ponto de controle do descritor: posição e direção de
// entrada/saída da unidade.
type ControlPoint struct {
	Position  util.Vector3
	Direction util.Vector3
}

// SpawnPoint é um ponto de spawn tipado do descritor.
type SpawnPoint struct {
	Type     ServiceType
	Position util.Vector3
	Rotation util.Quaternion
}

// BuildPrefab monta um prefab a partir dos dados de um descritor de
// unidade: um nó por ponto de controle (o primeiro vermelho, rotação
// vinda da direção) e um item de serviço escravo por ponto de spawn.
// Usado uma única vez, na criação do item.
func BuildPrefab(c ItemContainer, unit string, points []ControlPoint, spawns []SpawnPoint) (*Prefab, error) {
	if len(points) == 0 {
		return nil, fmt.Errorf("mapdata: descritor de %q sem pontos de controle", unit)
	}

	p := &Prefab{
		Unit: unit,
		Look: "default",
	}
	for i, cp := range points {
		n := c.AddNode(cp.Position, i == 0)
		if cp.Direction.Length() > 0 {
			n.Rotation = util.YawQuaternion(cp.Direction)
		}
		// nós de controle do prefab: o primeiro é a saída, os demais chegam
		n.attach(p, i == 0)
		p.nodes = append(p.nodes, n)
	}
	p.SetViewDistance(400)
	p.updateKdop()
	if err := c.AddItem(p); err != nil {
		return nil, err
	}

	for _, sp := range spawns {
		if sp.Type == ServiceNone {
			continue
		}
		svc := &Service{
			ServiceType:  sp.Type,
			ParentPrefab: p,
		}
		n := c.AddNode(sp.Position, false)
		n.Rotation = sp.Rotation
		svc.nodes = []NodeRef{n}
		svc.SetViewDistance(MinViewDistance)
		svc.updateKdop()
		n.attach(svc, true)
		if err := c.AddItem(svc); err != nil {
			return nil, err
		}
		p.SlaveItems = append(p.SlaveItems, svc)
	}

	return p, nil
}
