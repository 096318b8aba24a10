package config

func loadProductionConfig(cfg *Config) {
	cfg.DatabaseDebug = false
}
