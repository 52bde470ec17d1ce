package config

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "/usr/local/var/clausemark/data/db/documents.db"
	}
	if cfg.Storage.FileStoreDir == "" {
		cfg.Storage.FileStoreDir = "/usr/local/var/clausemark/data/files"
	}
	if cfg.Resources.MaxResources == 0 {
		cfg.Resources.MaxResources = 20
	}
	if cfg.Resources.TTLSeconds == 0 {
		cfg.Resources.TTLSeconds = 600
	}
	if cfg.Resources.SweepIntervalSeconds == 0 {
		cfg.Resources.SweepIntervalSeconds = 60
	}
	if cfg.Resources.URLBasePath == "" {
		cfg.Resources.URLBasePath = "/api/v1/resources"
	}
	if cfg.Highlight.DebounceMS == 0 {
		cfg.Highlight.DebounceMS = 300
	}
	if cfg.Highlight.SinglePage == (TimingProfile{}) {
		cfg.Highlight.SinglePage = TimingProfile{
			InitialDelayMS: 300,
			RetryDelayMS:   800,
			JumpDelayMS:    150,
		}
	}
	if cfg.Highlight.ContinuousScroll == (TimingProfile{}) {
		cfg.Highlight.ContinuousScroll = TimingProfile{
			InitialDelayMS: 1200,
			RetryDelayMS:   2000,
			JumpDelayMS:    500,
		}
	}
	if cfg.Fetch.TokenEnv == "" {
		cfg.Fetch.TokenEnv = "CLAUSEMARK_API_TOKEN"
	}
	if cfg.Fetch.TimeoutSeconds == 0 {
		cfg.Fetch.TimeoutSeconds = 30
	}
	if cfg.Watch.Extensions == nil {
		cfg.Watch.Extensions = []string{".pdf", ".docx", ".odt", ".xlsx", ".txt", ".md"}
	}
	// Recursive defaults to true when unset (nil).
	if len(cfg.Watch.Directories) > 0 && cfg.Watch.Recursive == nil {
		t := true
		cfg.Watch.Recursive = &t
	}
}
