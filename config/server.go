package config

// ServerConfig defines listen settings for the intake server.
// If no server block is present in config, serve falls back to defaults.
type ServerConfig struct {
	Listen         string   `hcl:"listen,optional"`
	AllowedOrigins []string `hcl:"allowed_origins,optional"`
}

// Defaults fills in default values for unset fields
func (s *ServerConfig) Defaults() {
	if s.Listen == "" {
		s.Listen = ":8790"
	}
}
