package config

import (
	"encoding/json"
	"os"
)

// jsonConfig is a DTO used exclusively for JSON unmarshalling.
type jsonConfig struct {
	DataDir    string `json:"data_dir"`
	ListenAddr string `json:"listen_addr"`
	JoinURL    string `json:"join_url"`
	Nick       string `json:"nick"`
	Color      string `json:"color"`
	LogLevel   string `json:"log_level"`
}

// configFilePath scans os.Args for -c <path> without consuming anything,
// so the main flag pass still sees its own flags.
func configFilePath() string {
	args := os.Args[1:]
	for i, a := range args {
		if a == "-c" || a == "--c" {
			if i+1 < len(args) {
				return args[i+1]
			}
		}
	}
	return ""
}

// parseJSON overlays Config with values loaded from a JSON file named by
// the -c flag. Only non-empty fields override. Intended usage is:
// defaults -> parseJSON -> parseFlags, later stages winning.
func parseJSON(cfg *Config) {
	path := configFilePath()
	if path == "" {
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}
	var jc jsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if jc.DataDir != "" {
		cfg.DataDir = jc.DataDir
	}
	if jc.ListenAddr != "" {
		cfg.ListenAddr = jc.ListenAddr
	}
	if jc.JoinURL != "" {
		cfg.JoinURL = jc.JoinURL
	}
	if jc.Nick != "" {
		cfg.Nick = jc.Nick
	}
	if jc.Color != "" {
		cfg.Color = jc.Color
	}
	if jc.LogLevel != "" {
		cfg.LogLevel = jc.LogLevel
	}
}
