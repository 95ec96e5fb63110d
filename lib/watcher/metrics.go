package watcher

type runMetrics struct {
	Calendars int `json:"calendars"`
	Active    int `json:"active"`
	Notified  int `json:"notified"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
}

func (m *runMetrics) Add(other *runMetrics) {
	m.Calendars += other.Calendars
	m.Active += other.Active
	m.Notified += other.Notified
	m.Skipped += other.Skipped
	m.Failed += other.Failed
}

// logArgs lists the non-zero counters as key-value pairs.
func (m *runMetrics) logArgs() []any {
	args := make([]any, 0)
	if m.Notified != 0 {
		args = append(args, "notified", m.Notified)
	}
	if m.Skipped != 0 {
		args = append(args, "skipped", m.Skipped)
	}
	if m.Failed != 0 {
		args = append(args, "failed", m.Failed)
	}
	return args
}
