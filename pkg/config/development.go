package config

func loadDevelopmentConfig(cfg *Config) {
	cfg.BooksPath = "./books"
	cfg.DatabaseDebug = true
	cfg.DatabaseFilePath = "./books/metadata.db"
	cfg.LogLevel = "debug"
	cfg.ServerHost = "127.0.0.1"
}
