package event

import "time"

type ApplicationEventType int

const (
	InitializationStart ApplicationEventType = iota
	InitializationFinished
	ReloadFinished
	Destroy
)

var appEventNames = map[ApplicationEventType]string{
	InitializationStart:    "INITIALIZATION_START",
	InitializationFinished: "INITIALIZATION_FINISHED",
	ReloadFinished:         "RELOAD_FINISHED",
	Destroy:                "DESTROY_FINISHED",
}

func (t ApplicationEventType) String() string {
	if s, ok := appEventNames[t]; ok {
		return s
	}
	return "UNKNOWN"
}

// ApplicationEvent is fired on application lifecycle changes. Resources is
// the registered resource model and is set on initialization and reload.
type ApplicationEvent struct {
	Type      ApplicationEventType
	Time      time.Time
	Resources []Resource
}

type RequestEventType int

const (
	Start RequestEventType = iota
	MatchingFinished
	ResourceMethodStart
	ResourceMethodFinished
	OnException
	ExceptionMapperFound
	ExceptionMappingFinished
	RespFiltersStart
	Finished
)

var reqEventNames = map[RequestEventType]string{
	Start:                    "START",
	MatchingFinished:         "MATCHING_FINISHED",
	ResourceMethodStart:      "RESOURCE_METHOD_START",
	ResourceMethodFinished:   "RESOURCE_METHOD_FINISHED",
	OnException:              "ON_EXCEPTION",
	ExceptionMapperFound:     "EXCEPTION_MAPPER_FOUND",
	ExceptionMappingFinished: "EXCEPTION_MAPPING_FINISHED",
	RespFiltersStart:         "RESP_FILTERS_START",
	Finished:                 "FINISHED",
}

func (t RequestEventType) String() string {
	if s, ok := reqEventNames[t]; ok {
		return s
	}
	return "UNKNOWN"
}

// RequestEvent describes one step of processing a single request. Fields are
// filled progressively: Template and Method once the route is matched, Err
// from OnException on, Mapper from ExceptionMapperFound on, Status and
// ResponseWritten on Finished.
type RequestEvent struct {
	Type       RequestEventType
	ID         string
	Time       time.Time
	HTTPMethod string
	Path       string
	Template   string
	Method     *ResourceMethod

	Err                        error
	Mapper                     string
	ResponseSuccessfullyMapped bool

	Status          int
	ResponseWritten bool
}

// Success reports whether the request finished without an unmapped error.
func (e RequestEvent) Success() bool {
	return e.Err == nil || e.ResponseSuccessfullyMapped
}

type ApplicationEventListener interface {
	OnEvent(ev ApplicationEvent)
	// OnRequest is called when a request starts. It returns the listener for
	// the rest of that request's events, or nil to ignore the request.
	OnRequest(ev RequestEvent) RequestEventListener
}

type RequestEventListener interface {
	OnEvent(ev RequestEvent)
}
