package domain

import "time"

// Hard fallbacks applied when neither the project nor the settings store
// yields a usable value.
const (
	DefaultDeadlineHours = 24
	DefaultAmberHours    = 6
	DefaultRedHours      = 2
)

// Policy is the resolved set of deadline and threshold hours governing SLA
// classification for one project context. Thresholds are measured as hours
// remaining before the deadline, with red inside amber.
type Policy struct {
	DeadlineHours int `json:"deadline_hours"`
	AmberHours    int `json:"amber_hours"`
	RedHours      int `json:"red_hours"`
}

func DefaultPolicy() Policy {
	return Policy{
		DeadlineHours: DefaultDeadlineHours,
		AmberHours:    DefaultAmberHours,
		RedHours:      DefaultRedHours,
	}
}

// Normalize replaces threshold values a resolver must not trust with the
// hard defaults: non-positive hours, or red above amber. Resolution fails
// closed on bad configuration instead of surfacing an error.
func (p Policy) Normalize() Policy {
	if p.AmberHours <= 0 {
		p.AmberHours = DefaultAmberHours
	}
	if p.RedHours <= 0 {
		p.RedHours = DefaultRedHours
	}
	if p.RedHours > p.AmberHours {
		p.AmberHours = DefaultAmberHours
		p.RedHours = DefaultRedHours
	}
	if p.DeadlineHours == 0 {
		p.DeadlineHours = DefaultDeadlineHours
	}
	return p
}

func (p Policy) AmberWindow() time.Duration {
	return time.Duration(p.AmberHours) * time.Hour
}

func (p Policy) RedWindow() time.Duration {
	return time.Duration(p.RedHours) * time.Hour
}
