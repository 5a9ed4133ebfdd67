package config

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// Config armazena as configurações do RotaForge.
type Config struct {
	// Mapa
	MapDir    string `json:"map_dir"`
	WorldName string `json:"world_name"`

	// Snapshot SQLite (usado pelo inspetor)
	SnapshotPath string `json:"snapshot_path"`

	// Servidor do visor (usado pelo visor e pelos clientes websocket)
	VisorAddr string `json:"visor_addr"`

	// Intervalo de broadcast de estatísticas em milissegundos
	BroadcastIntervalMs int `json:"broadcast_interval_ms"`

	// Debug
	ShowDebugInfo bool `json:"show_debug_info"`
}

// DefaultConfig retorna a configuração padrão.
func DefaultConfig() *Config {
	return &Config{
		MapDir:    "maps",
		WorldName: "europa",

		SnapshotPath: "snapshot/rotaforge.db",

		VisorAddr:           ":8080",
		BroadcastIntervalMs: 2000,

		ShowDebugInfo: false,
	}
}

// configPath retorna o caminho do arquivo de configuração.
func configPath() string {
	execDir, err := os.Executable()
	if err != nil {
		return "config.json"
	}
	return filepath.Join(filepath.Dir(execDir), "config.json")
}

// Load carrega as configurações de um arquivo JSON.
// Se o arquivo não existir, retorna as configurações padrão.
func Load() *Config {
	cfg := DefaultConfig()

	data, err := os.ReadFile(configPath())
	if err != nil {
		return cfg
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return DefaultConfig()
	}

	return cfg
}

// Save salva as configurações em um arquivo JSON.
func (c *Config) Save() error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(configPath(), data, 0644)
}
