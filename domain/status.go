package domain

// Category distinguishes plain work items from defects, which follow a
// stricter workflow.
type Category string

const (
	CategoryTask Category = "TASK"
	CategoryBug  Category = "BUG"
)

// Status enumerates every state a task can be in. Plain tasks move freely
// between the general statuses; bugs follow the linear flow encoded in
// AllowedNextStatuses.
type Status string

const (
	StatusTodo       Status = "todo"
	StatusInProgress Status = "in_progress"
	StatusBlocked    Status = "blocked"
	StatusInReview   Status = "in_review"
	StatusDone       Status = "done"
	StatusClosed     Status = "closed"

	// Bug-specific statuses.
	StatusNew       Status = "new"
	StatusConfirmed Status = "confirmed"
	StatusFixing    Status = "fixing"
	StatusVerifying Status = "verifying"
)

var knownStatuses = map[Status]struct{}{
	StatusTodo: {}, StatusInProgress: {}, StatusBlocked: {}, StatusInReview: {},
	StatusDone: {}, StatusClosed: {},
	StatusNew: {}, StatusConfirmed: {}, StatusFixing: {}, StatusVerifying: {},
}

func (s Status) Valid() bool {
	_, ok := knownStatuses[s]
	return ok
}

// IsTerminal reports whether the status stops SLA accrual for good.
func (s Status) IsTerminal() bool {
	return s == StatusDone || s == StatusClosed
}

// IsPausedStatus reports whether the status suspends the SLA clock.
// Membership is a closed set; call sites must not compare raw strings.
func (s Status) IsPausedStatus() bool {
	return s == StatusBlocked
}

var generalStatuses = []Status{
	StatusTodo,
	StatusInProgress,
	StatusBlocked,
	StatusInReview,
	StatusDone,
	StatusClosed,
}

// bugFlow maps each bug status to the statuses it may move to.
var bugFlow = map[Status][]Status{
	StatusNew:       {StatusConfirmed},
	StatusConfirmed: {StatusFixing},
	StatusFixing:    {StatusVerifying},
	StatusVerifying: {StatusClosed, StatusFixing},
	StatusClosed:    {StatusNew, StatusFixing},
}

// AllowedNextStatuses returns the statuses a task of the given category may
// transition to from current. Plain tasks move freely between general
// statuses; bugs in an out-of-flow status may only reset to new.
func AllowedNextStatuses(category Category, current Status) []Status {
	switch category {
	case CategoryBug:
		if next, ok := bugFlow[current]; ok {
			return next
		}
		return []Status{StatusNew}
	default:
		return generalStatuses
	}
}

// ValidTransition reports whether moving from current to next is allowed for
// the category. In-place updates (same status) are always allowed.
func ValidTransition(category Category, current, next Status) bool {
	if !next.Valid() {
		return false
	}
	if current == next {
		return true
	}
	for _, s := range AllowedNextStatuses(category, current) {
		if s == next {
			return true
		}
	}
	return false
}

// InitialStatus returns the default status for a freshly created task.
func InitialStatus(category Category) Status {
	if category == CategoryBug {
		return StatusNew
	}
	return StatusTodo
}
