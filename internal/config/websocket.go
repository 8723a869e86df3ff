package config

// WebSocketConfig covers the realtime channel that carries dispatch offers to
// drivers and live status frames to customers. Ping cadence is fixed in the
// socket layer; only the upgrade surface is tunable here.
type WebSocketConfig struct {
	Path              string   `yaml:"path"`
	ReadBufferSize    int      `yaml:"read_buffer_size"`
	WriteBufferSize   int      `yaml:"write_buffer_size"`
	EnableCompression bool     `yaml:"enable_compression"`
	AllowedOrigins    []string `yaml:"allowed_origins"`
}

func loadWebSocketConfig() *WebSocketConfig {
	return &WebSocketConfig{
		Path:              getEnv("WEBSOCKET_PATH", "/ws"),
		ReadBufferSize:    getEnvAsInt("WEBSOCKET_READ_BUFFER_SIZE", 1024),
		WriteBufferSize:   getEnvAsInt("WEBSOCKET_WRITE_BUFFER_SIZE", 1024),
		EnableCompression: getEnvAsBool("WEBSOCKET_ENABLE_COMPRESSION", true),
		AllowedOrigins:    getEnvAsSlice("WEBSOCKET_ALLOWED_ORIGINS", []string{"*"}),
	}
}
