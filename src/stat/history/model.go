package history

// RequestHistory is one per-minute sample of the request statistics.
// Response and mapping counters are deltas since the previous sample.
type RequestHistory struct {
	At                int64   `json:"at"`                // minute bucket, unix seconds
	Total             int64   `json:"total"`             // requests since start
	Count             int64   `json:"count"`             // requests in the trailing minute
	RequestsPerSecond float64 `json:"requestsPerSecond"` // rate in the trailing minute
	MinDuration       int64   `json:"minDuration"`       // ms, -1 without requests
	MaxDuration       int64   `json:"maxDuration"`       // ms, -1 without requests
	AvgDuration       int64   `json:"avgDuration"`       // ms, -1 without requests
	Count2xx          int64   `json:"count2xx"`
	Count4xx          int64   `json:"count4xx"`
	Count5xx          int64   `json:"count5xx"`
	CountOther        int64   `json:"countOther"`
	Mappings          int64   `json:"mappings"`
	FailedMappings    int64   `json:"failedMappings"`
	Dropped           int64   `json:"dropped"`
}
