package main

import (
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"sync"
	"time"

	"RotaForge/shared/config"
	"RotaForge/shared/mapdata"
	"RotaForge/shared/util"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Envelope é a moldura JSON de toda mensagem do visor.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// WorldStats é o resumo do mundo enviado em broadcast periódico.
type WorldStats struct {
	WorldName string `json:"world_name"`
	Sectors   int    `json:"sectors"`
	Items     int    `json:"items"`
	Nodes     int    `json:"nodes"`
}

// SectorSummary é a resposta ao pedido de inspeção de um setor.
type SectorSummary struct {
	Key      string  `json:"key"`
	Items    int     `json:"items"`
	Nodes    int     `json:"nodes"`
	Reviewed bool    `json:"reviewed"`
	Climate  string  `json:"climate"`
	MinY     float32 `json:"min_y"`
	MaxY     float32 `json:"max_y"`
}

// SectorRequest é o pedido do cliente por um setor específico.
type SectorRequest struct {
	X int32 `json:"x"`
	Z int32 `json:"z"`
}

// Hub gerencia as conexões WebSocket ativas
type Hub struct {
	clients    map[*websocket.Conn]*sync.Mutex
	broadcast  chan []byte
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	mu         sync.Mutex
}

func newHub() *Hub {
	return &Hub{
		clients:    make(map[*websocket.Conn]*sync.Mutex),
		broadcast:  make(chan []byte, 4096), // Bufferizado para evitar deadlocks e bloqueios
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
	}
}

func (h *Hub) run() {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[Hub] Recuperado de pânico fatal: %v", r)
		}
	}()

	for {
		select {
		case client, ok := <-h.register:
			if !ok {
				return
			}
			h.mu.Lock()
			h.clients[client] = &sync.Mutex{}
			h.mu.Unlock()
			log.Printf("Cliente registrado: %s", client.RemoteAddr())
		case client, ok := <-h.unregister:
			if !ok {
				return
			}
			h.mu.Lock()
			if lock, ok := h.clients[client]; ok {
				lock.Lock()
				delete(h.clients, client)
				client.Close()
				lock.Unlock()
				log.Printf("Cliente desregistrado: %s", client.RemoteAddr())
			}
			h.mu.Unlock()
		case message, ok := <-h.broadcast:
			if !ok {
				return
			}
			h.mu.Lock()
			type clientEntry struct {
				conn *websocket.Conn
				lock *sync.Mutex
			}
			var targets []clientEntry
			for c, l := range h.clients {
				targets = append(targets, clientEntry{c, l})
			}
			h.mu.Unlock()

			for _, target := range targets {
				target.lock.Lock()
				err := target.conn.WriteMessage(websocket.TextMessage, message)
				if err != nil {
					log.Printf("Erro ao enviar para cliente %s: %v", target.conn.RemoteAddr(), err)
					target.conn.Close()
					h.mu.Lock()
					delete(h.clients, target.conn)
					h.mu.Unlock()
				}
				target.lock.Unlock()
			}
		}
	}
}

// WriteSafe garante que apenas uma goroutine escreva no WebSocket por vez
func (h *Hub) WriteSafe(conn *websocket.Conn, data []byte) error {
	h.mu.Lock()
	lock, ok := h.clients[conn]
	h.mu.Unlock()

	if !ok {
		return fmt.Errorf("cliente não encontrado no hub")
	}

	lock.Lock()
	defer lock.Unlock()
	return conn.WriteMessage(websocket.TextMessage, data)
}

// safeSend envia para o canal de broadcast protegendo contra pânicos de canal fechado
func (h *Hub) safeSend(data []byte) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[Hub] Aviso: Falha ao enviar broadcast (canal fechado?): %v", r)
		}
	}()
	h.broadcast <- data
}

// sendEnvelope serializa e envia um envelope para uma conexão específica.
func (h *Hub) sendEnvelope(conn *websocket.Conn, msgType string, payload interface{}) {
	data, err := marshalEnvelope(msgType, payload)
	if err != nil {
		log.Printf("Erro ao serializar envelope: %v", err)
		return
	}
	if err := h.WriteSafe(conn, data); err != nil {
		log.Printf("Erro ao enviar mensagem: %v", err)
	}
}

func marshalEnvelope(msgType string, payload interface{}) ([]byte, error) {
	env := Envelope{Type: msgType}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		env.Payload = raw
	}
	return json.Marshal(&env)
}

func main() {
	log.SetFlags(log.Ltime | log.Lshortfile)
	cfg := config.Load()

	log.Printf("Carregando mundo %q de %s...", cfg.WorldName, cfg.MapDir)
	m, err := mapdata.Open(cfg.MapDir, cfg.WorldName)
	if err != nil {
		log.Fatalf("Erro fatal ao carregar o mapa: %v", err)
	}

	hub := newHub()
	go hub.run()

	go broadcastWorldStats(hub, m, time.Duration(cfg.BroadcastIntervalMs)*time.Millisecond)

	http.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		serveWs(hub, m, w, r)
	})

	// Verificação de porta antes do ListenAndServe para erro legível
	ln, err := net.Listen("tcp", cfg.VisorAddr)
	if err != nil {
		log.Fatalf("Erro ao abrir %s (outra instância do visor rodando?): %v", cfg.VisorAddr, err)
	}
	ln.Close()

	log.Printf("Visor RotaForge iniciado em %s", cfg.VisorAddr)
	if err := http.ListenAndServe(cfg.VisorAddr, nil); err != nil {
		log.Fatalf("Erro fatal no servidor HTTP: %v", err)
	}
}

// broadcastWorldStats envia o resumo do mundo para todos os clientes em
// intervalo fixo.
func broadcastWorldStats(hub *Hub, m *mapdata.Map, interval time.Duration) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[WorldStats] Recuperado de pânico: %v", r)
			go func() {
				time.Sleep(5 * time.Second)
				broadcastWorldStats(hub, m, interval)
			}()
		}
	}()

	for {
		stats := WorldStats{
			WorldName: m.Name,
			Sectors:   len(m.Sectors),
			Items:     len(m.Items),
			Nodes:     len(m.Nodes),
		}
		data, err := marshalEnvelope("world_stats", &stats)
		if err == nil {
			hub.safeSend(data)
		}
		time.Sleep(interval)
	}
}

// serveWs maneja requisições websocket do peer.
func serveWs(hub *Hub, m *mapdata.Map, w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("Erro no upgrade do WebSocket: %v", err)
		return
	}
	hub.register <- conn

	hub.sendEnvelope(conn, "server_status", map[string]string{
		"message": "Conectado ao Visor RotaForge",
		"world":   m.Name,
	})

	go func() {
		defer func() {
			hub.unregister <- conn
		}()

		for {
			_, message, err := conn.ReadMessage()
			if err != nil {
				log.Printf("Erro ao ler mensagem: %v", err)
				break
			}

			var envelope Envelope
			if err := json.Unmarshal(message, &envelope); err != nil {
				log.Printf("Erro ao desempacotar envelope: %v", err)
				continue
			}

			handleClientMessage(hub, conn, m, &envelope)
		}
	}()
}

func handleClientMessage(hub *Hub, conn *websocket.Conn, m *mapdata.Map, env *Envelope) {
	switch env.Type {
	case "ping":
		hub.sendEnvelope(conn, "pong", nil)
	case "sector":
		var req SectorRequest
		if err := json.Unmarshal(env.Payload, &req); err != nil {
			log.Printf("Erro ao ler pedido de setor: %v", err)
			return
		}
		log.Printf("[Network] Setor pedido (%d,%d)", req.X, req.Z)
		hub.sendEnvelope(conn, "sector_summary", sectorSummary(m, util.SectorCoord{X: req.X, Z: req.Z}))
	}
}

// sectorSummary conta itens e nós do setor pedido. A filiação é derivada
// da posição, do mesmo jeito que no save.
func sectorSummary(m *mapdata.Map, coord util.SectorCoord) *SectorSummary {
	sum := &SectorSummary{Key: coord.String()}

	for _, item := range m.Items {
		if main, ok := item.Base().MainNode(); ok && util.SectorOf(main.Position) == coord {
			sum.Items++
		}
	}
	for _, n := range m.Nodes {
		if n.Sector() == coord {
			sum.Nodes++
		}
	}
	if s, ok := m.Sectors[coord]; ok {
		sum.Reviewed = s.Reviewed()
		sum.Climate = s.Climate
		sum.MinY = s.MinBoundary.Y
		sum.MaxY = s.MaxBoundary.Y
	}
	return sum
}
