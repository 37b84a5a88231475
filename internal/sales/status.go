package sales

type Status string

const (
	StatusConfirmed Status = "CONFIRMED"
	StatusCompleted Status = "COMPLETED"
	StatusFailed    Status = "FAILED"
	StatusVoided    Status = "VOIDED"
)

// Sales are created CONFIRMED; the stock worker moves them to COMPLETED or
// FAILED; only a COMPLETED sale can be voided (restocking its items).
var validNext = map[Status]map[Status]bool{
	StatusConfirmed: {StatusCompleted: true, StatusFailed: true},
	StatusCompleted: {StatusVoided: true},
	StatusFailed:    {},
	StatusVoided:    {},
}

func CanTransition(from, to Status) bool {
	return validNext[from][to]
}
