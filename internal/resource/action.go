package resource

// Op enumerates the remedial operations the executor knows how to apply.
type Op string

const (
	OpDetachInterface      Op = "DetachInterface"
	OpPurgeObjectVersions  Op = "PurgeObjectVersions"
	OpDeregisterTarget     Op = "DeregisterTarget"
	OpDeleteManagedService Op = "DeleteManagedService"
)

// ActionResult classifies the outcome of one cleanup action.
type ActionResult string

const (
	ResultSuccess          ActionResult = "Success"
	ResultAlreadyClean     ActionResult = "AlreadyClean"
	ResultBlocked          ActionResult = "Blocked"
	ResultPermissionDenied ActionResult = "PermissionDenied"
)

// CleanupAction is a unit of remedial work. Every action is idempotent:
// re-applying against an already-clean target yields AlreadyClean, never an
// error.
type CleanupAction struct {
	Target    Resource `json:"target"`
	Operation Op       `json:"operation"`
}

// ActionOutcome pairs an executed action with its result.
type ActionOutcome struct {
	Action CleanupAction `json:"action"`
	Result ActionResult  `json:"result"`
	Err    error         `json:"-"`
	// Remedy is the manual command an operator could run if the action
	// cannot be completed automatically.
	Remedy string `json:"remedy,omitempty"`
}
