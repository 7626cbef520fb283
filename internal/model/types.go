package model

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

// Run describes one training run.
type Run struct {
	VersionedRecord
	ID             string  `json:"id"`
	Representation string  `json:"representation"`
	Specialization string  `json:"specialization,omitempty"`
	Generations    int     `json:"generations"`
	Seed           int64   `json:"seed"`
	CreatedAtUTC   string  `json:"created_at_utc"`
	FinalScore     float64 `json:"final_score"`
}

// ValidationRecord is the outcome of one validation sweep of the best
// policy. Score is the mean per-class recall in percent.
type ValidationRecord struct {
	VersionedRecord
	Generation  int      `json:"generation"`
	BestFitness float64  `json:"best_fitness"`
	Score       float64  `json:"score"`
	Correct     []uint64 `json:"correct"`
	Totals      []uint64 `json:"totals"`
}

// PolicyRecord stores a serialized policy artifact.
type PolicyRecord struct {
	VersionedRecord
	RunID      string  `json:"run_id"`
	Class      string  `json:"class"`
	Generation int     `json:"generation"`
	Fitness    float64 `json:"fitness"`
	DOT        string  `json:"dot"`
}
