package procstat

// ProcUsage is one sample of the resources used by this process and its host.
type ProcUsage struct {
	AppCPU     float64 `json:"appCpu"`     // process CPU usage in percentage
	AppMem     float64 `json:"appMem"`     // process RSS in MB
	Goroutines int64   `json:"goroutines"` // live goroutines
	Threads    int64   `json:"threads"`    // OS threads of the process
	CPU        float64 `json:"cpu"`        // host CPU usage in percentage
	Mem        float64 `json:"mem"`        // host memory used in MB
	TotalMem   float64 `json:"totalMem"`   // host memory in MB
	At         int64   `json:"at"`         // unix seconds
}
