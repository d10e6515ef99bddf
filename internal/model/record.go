package model

import "time"

// Record is a single inspection/test/review row from the completions
// workbook. Records are immutable once loaded; the whole Dataset is
// replaced on reload rather than mutated in place.
type Record struct {
	SystemID       string `json:"system_id"`
	SystemDescr    string `json:"system_descr"`
	SubsystemID    string `json:"subsystem_id"`
	SubsystemDescr string `json:"subsystem_descr"`
	RecordType     string `json:"record_type"`
	CertStatusRaw  string `json:"cert_status_raw"`

	// Optional deduplication columns. Nil when the source workbook
	// predates these columns.
	Item *string `json:"item,omitempty"`
	Rule *string `json:"rule,omitempty"`
	Test *string `json:"test,omitempty"`
	Form *string `json:"form,omitempty"`
}

// Dataset is the deduplicated set of records held by the processor.
// It is an immutable snapshot; reloads swap in a fresh Dataset.
type Dataset struct {
	Records         []Record  `json:"records"`
	HasDedupColumns bool      `json:"has_dedup_columns"`
	SourcePath      string    `json:"source_path"`
	RemovedCount    int       `json:"removed_count"`
	BuiltAt         time.Time `json:"built_at"`
}

// Len returns the number of records in the dataset. Safe on nil.
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Records)
}
