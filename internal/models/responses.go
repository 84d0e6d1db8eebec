package models

// QuotesResponse is the wire shape shared by the quote-serving routes. The
// dashboard frontend depends on data/lastUpdated/source staying as-is.
// Symbols nobody could answer are listed in Unsatisfied and never appear in
// Data as zero-value placeholders.
type QuotesResponse struct {
	Data        map[string]Quote `json:"data"`
	Unsatisfied []string         `json:"unsatisfied,omitempty"`
	LastUpdated string           `json:"lastUpdated"`
	Source      string           `json:"source"`
}

// SectorPerformance is one row of the sector board.
type SectorPerformance struct {
	Name      string  `json:"name"`
	Symbol    string  `json:"symbol"`
	Price     float64 `json:"price"`
	Change    float64 `json:"change"`
	ChangePct float64 `json:"change_pct"`
	Volume    int64   `json:"volume"`
	Status    string  `json:"status"`
}

// SectorsResponse is the payload of /api/v1/sectors.
type SectorsResponse struct {
	Sectors     []SectorPerformance `json:"sectors"`
	Unsatisfied []string            `json:"unsatisfied,omitempty"`
	LastUpdated string              `json:"lastUpdated"`
	Source      string              `json:"source"`
}

// SnapshotMeta describes the full-universe snapshot.
type SnapshotMeta struct {
	LastUpdated string   `json:"lastUpdated"`
	Symbols     int      `json:"symbols"`
	Categories  []string `json:"categories"`
	Source      string   `json:"source"`
}

// SnapshotResponse is the payload of /api/v1/snapshot: the watch universe
// grouped by category.
type SnapshotResponse struct {
	Data map[string][]Quote `json:"data"`
	Meta SnapshotMeta       `json:"meta"`
}
