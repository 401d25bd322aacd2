package monstat

// ResponseStatistics counts written responses per status code.
type ResponseStatistics struct {
	LastResponseCode int           `json:"lastResponseCode"` // -1 if no response yet
	ResponseCodes    map[int]int64 `json:"responseCodes"`
}

type responseBuilder struct {
	last  int
	codes map[int]int64
}

func newResponseBuilder() *responseBuilder {
	return &responseBuilder{last: -1, codes: make(map[int]int64)}
}

func (b *responseBuilder) addResponseCode(code int) {
	b.last = code
	b.codes[code]++
}

func (b *responseBuilder) build() ResponseStatistics {
	codes := make(map[int]int64, len(b.codes))
	for k, v := range b.codes {
		codes[k] = v
	}
	return ResponseStatistics{LastResponseCode: b.last, ResponseCodes: codes}
}

// ExceptionMapperStatistics counts error mapping outcomes and how often each
// registered mapper ran.
type ExceptionMapperStatistics struct {
	Executions   map[string]int64 `json:"executions"`
	Successful   int64            `json:"successful"`
	Unsuccessful int64            `json:"unsuccessful"`
	Total        int64            `json:"total"`
}

type mapperBuilder struct {
	executions   map[string]int64
	successful   int64
	unsuccessful int64
}

func newMapperBuilder() *mapperBuilder {
	return &mapperBuilder{executions: make(map[string]int64)}
}

func (b *mapperBuilder) build() ExceptionMapperStatistics {
	exec := make(map[string]int64, len(b.executions))
	for k, v := range b.executions {
		exec[k] = v
	}
	return ExceptionMapperStatistics{
		Executions:   exec,
		Successful:   b.successful,
		Unsuccessful: b.unsuccessful,
		Total:        b.successful + b.unsuccessful,
	}
}
