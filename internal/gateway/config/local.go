package config

// applyLocalDefaults lets a developer run without credentials: with no
// API key the fake LLM is used.
func applyLocalDefaults(cfg *Config) {
	if !cfg.LLM.HasCredentials() {
		cfg.LLM.Fake = true
	}
	if cfg.Report.Endpoint != "" {
		cfg.Report.AccessKey = firstNonEmpty(cfg.Report.AccessKey, "rationalist")
		cfg.Report.SecretKey = firstNonEmpty(cfg.Report.SecretKey, "rationalist123")
	}
}
