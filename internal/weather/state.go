package weather

import "time"

// Status discriminates the FetchState variants.
type Status int

const (
	StatusLoading Status = iota + 1
	StatusSuccess
	StatusFailure
)

func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusSuccess:
		return "success"
	case StatusFailure:
		return "failure"
	default:
		return "unknown"
	}
}

// FetchState is the outcome of the latest fetch cycle. Build it with
// LoadingState, SuccessState or FailureState; the payload fields are
// unexported so only the active variant carries data.
type FetchState struct {
	Status    Status
	City      string
	FetchID   string
	Seq       uint64
	UpdatedAt time.Time

	record  WeatherRecord
	message string
}

func LoadingState(city, fetchID string, seq uint64, at time.Time) FetchState {
	return FetchState{Status: StatusLoading, City: city, FetchID: fetchID, Seq: seq, UpdatedAt: at}
}

func SuccessState(city, fetchID string, seq uint64, at time.Time, rec WeatherRecord) FetchState {
	return FetchState{Status: StatusSuccess, City: city, FetchID: fetchID, Seq: seq, UpdatedAt: at, record: rec}
}

func FailureState(city, fetchID string, seq uint64, at time.Time, message string) FetchState {
	return FetchState{Status: StatusFailure, City: city, FetchID: fetchID, Seq: seq, UpdatedAt: at, message: message}
}

// Record returns the payload of a Success state.
func (s FetchState) Record() (WeatherRecord, bool) {
	if s.Status != StatusSuccess {
		return WeatherRecord{}, false
	}
	return s.record, true
}

// Message returns the payload of a Failure state.
func (s FetchState) Message() (string, bool) {
	if s.Status != StatusFailure {
		return "", false
	}
	return s.message, true
}

// IsTerminal reports whether the fetch cycle has resolved.
func (s FetchState) IsTerminal() bool {
	return s.Status == StatusSuccess || s.Status == StatusFailure
}
