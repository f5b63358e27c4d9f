package resttime

// Config is the flat export/import shape for the whole rest-time table.
type Config struct {
	GlobalDefaultRestTime int            `json:"globalDefaultRestTime"`
	ExerciseRestTimes     map[string]int `json:"exerciseRestTimes"`
}

// Export snapshots the full configuration. The round-trip through Import
// is lossless.
func (r *Resolver) Export() Config {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := Config{
		GlobalDefaultRestTime: r.globalDefault,
		ExerciseRestTimes:     make(map[string]int, len(r.exercise)),
	}
	for k, v := range r.exercise {
		out.ExerciseRestTimes[k] = v
	}
	return out
}

// Import replaces the configuration with cfg. Entries with non-positive
// durations are skipped rather than treated as errors, so stale or unknown
// keys in an exported blob never break an import.
func (r *Resolver) Import(cfg Config) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cfg.GlobalDefaultRestTime > 0 {
		r.globalDefault = cfg.GlobalDefaultRestTime
	}
	r.exercise = make(map[string]int, len(cfg.ExerciseRestTimes))
	for k, v := range cfg.ExerciseRestTimes {
		if k == "" || v <= 0 {
			continue
		}
		r.exercise[k] = v
	}
}
