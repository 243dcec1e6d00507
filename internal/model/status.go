package model

import "encoding/json"

// ServiceState classifies the status strings the backend reports for its
// Twitter and Telegram integrations. The wire values are free-form, so
// anything unrecognized lands on ServiceStateUnknown instead of being
// mistaken for an error.
type ServiceState int

const (
	ServiceStateUnknown ServiceState = iota
	ServiceStateConnected
	ServiceStateDisconnected
	ServiceStatePermissionError
	ServiceStateConfigError
	ServiceStateRateLimited
)

func (s ServiceState) String() string {
	switch s {
	case ServiceStateConnected:
		return "connected"
	case ServiceStateDisconnected:
		return "disconnected"
	case ServiceStatePermissionError:
		return "permission_error"
	case ServiceStateConfigError:
		return "config_error"
	case ServiceStateRateLimited:
		return "rate_limited"
	default:
		return "unknown"
	}
}

// ServiceStatus pairs the classification with the raw wire value so
// unrecognized states stay displayable as received.
type ServiceStatus struct {
	State ServiceState
	Raw   string
}

func ParseServiceStatus(raw string) ServiceStatus {
	st := ServiceStatus{Raw: raw}
	switch raw {
	case "connected", "ok":
		st.State = ServiceStateConnected
	case "disconnected":
		st.State = ServiceStateDisconnected
	case "permission_error":
		st.State = ServiceStatePermissionError
	case "config_error":
		st.State = ServiceStateConfigError
	case "rate_limited":
		st.State = ServiceStateRateLimited
	default:
		st.State = ServiceStateUnknown
	}
	return st
}

// String returns the raw wire value when one was received, otherwise the
// canonical name of the state.
func (s ServiceStatus) String() string {
	if s.Raw != "" {
		return s.Raw
	}
	return s.State.String()
}

func (s ServiceStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *ServiceStatus) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = ParseServiceStatus(raw)
	return nil
}

// MonitoringStatus is the backend's view of the monitoring engine. Stream
// events and /status responses replace it wholesale, so the displayed status
// is always the most recently received one, with no field-level merging.
type MonitoringStatus struct {
	IsRunning      bool          `json:"is_running"`
	Uptime         string        `json:"uptime,omitempty"`
	LastCheck      string        `json:"last_check,omitempty"`
	NextRun        string        `json:"next_run,omitempty"`
	MonitoredUsers int           `json:"monitored_users"`
	RegexPatterns  int           `json:"regex_patterns"`
	Keywords       int           `json:"keywords"`
	CheckInterval  int           `json:"check_interval"`
	TwitterStatus  ServiceStatus `json:"twitter_status"`
	TelegramStatus ServiceStatus `json:"telegram_status"`
}
