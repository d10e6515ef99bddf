package model

// StatusBreakdown is the full ITR picture for one subsystem. Every
// field is labeled so the agent layer can lift individual numbers out
// of the JSON without re-parsing prose.
type StatusBreakdown struct {
	SubsystemID    string                   `json:"subsystem_id"`
	SubsystemDescr string                   `json:"subsystem_descr"`
	SystemID       string                   `json:"system_id"`
	Total          int                      `json:"total"`
	Open           int                      `json:"open"`
	NotStarted     int                      `json:"not_started"`
	Ongoing        int                      `json:"ongoing"`
	Completed      int                      `json:"completed"`
	CompletionRate float64                  `json:"completion_rate"`
	ByType         map[string]TypeBreakdown `json:"by_type"`
	Guidance       string                   `json:"guidance,omitempty"`
}

// TypeBreakdown is the per-record-type slice of a StatusBreakdown.
// Record types are an open set; whatever codes appear in the source
// get their own entry.
type TypeBreakdown struct {
	Total          int     `json:"total"`
	Open           int     `json:"open"`
	NotStarted     int     `json:"not_started"`
	Ongoing        int     `json:"ongoing"`
	Completed      int     `json:"completed"`
	CompletionRate float64 `json:"completion_rate"`
}

// SubsystemMatch is one row of a subsystem search result.
type SubsystemMatch struct {
	SubsystemID string `json:"subsystem_id"`
	Description string `json:"description"`
}

// SystemMatch is one row of a system search result, including the
// distinct subsystems observed under the system.
type SystemMatch struct {
	SystemID     string   `json:"system_id"`
	Description  string   `json:"description"`
	SubsystemIDs []string `json:"subsystem_ids"`
}

// CacheStatus reports the state of the dataset cache for a source.
type CacheStatus struct {
	Action      string  `json:"action"`
	CacheExists bool    `json:"cache_exists"`
	RecordCount int     `json:"record_count,omitempty"`
	AgeMinutes  float64 `json:"age_minutes,omitempty"`
	Valid       bool    `json:"valid"`
	Reloaded    bool    `json:"reloaded,omitempty"`
	Guidance    string  `json:"guidance,omitempty"`
}
