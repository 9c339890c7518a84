package opportunity

// Source tags every analysis result with its pipeline provenance.
const Source = "missed-opportunities"

// DeltaBinLabels returns the canonical advantage-axis bucket labels.
// Finite labels carry their own inclusive bounds; the trailing open
// label also catches every mate opportunity.
func DeltaBinLabels() []string {
	return []string{"100-299", "300-499", "500-799", "800+"}
}

// TBinLabels returns the canonical conversion-time bucket labels.
// These are display names, not bounds: the buckets absorb the gaps
// between labels (4 counts as "5-7", 8 as "9-15", 16 as "17+").
func TBinLabels() []string {
	return []string{"1-3", "5-7", "9-15", "17+"}
}

// HistogramData carries the bucket label sets and the per-cell event
// counts of an analysis result. Counts is indexed [delta][time].
type HistogramData struct {
	DeltaBins []string `json:"delta_bins"`
	TBins     []string `json:"t_bins"`
	Counts    [][]int  `json:"counts"`
}

// AnalysisResult is one player's (or the whole field's) aggregate.
// Produced wholesale per request and treated as immutable by
// consumers; a player or ELO-filter change replaces it entirely.
type AnalysisResult struct {
	Username       string        `json:"username"`
	Events         []Event       `json:"errors"`
	Histogram      HistogramData `json:"histogram"`
	TotalEvents    int           `json:"total_errors"`
	MissedCount    int           `json:"missed"`
	ConvertedCount int           `json:"converted"`
	GamesAnalyzed  int           `json:"games_analyzed"`
	Source         string        `json:"source"`
	Timestamp      string        `json:"timestamp"`
}

// PlayerSummary is one row of the player listing.
type PlayerSummary struct {
	Username      string `json:"username"`
	Opportunities int    `json:"opportunities"`
	Games         int    `json:"games"`
}

// GameInfo is one row of the per-player game listing.
type GameInfo struct {
	URL         string `json:"url"`
	White       string `json:"white"`
	Black       string `json:"black"`
	Result      string `json:"result"`
	TimeControl string `json:"time_control"`
	EndTime     int64  `json:"end_time"`
	ECO         string `json:"eco,omitempty"`
	Opening     string `json:"opening,omitempty"`
}
