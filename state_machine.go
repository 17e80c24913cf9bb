package authclient

import goerrors "github.com/goliatone/go-errors"

const textCodeInvalidTransition = "INVALID_SESSION_TRANSITION"

// ErrInvalidTransition is returned for a status or trigger outside the
// transition table.
var ErrInvalidTransition = goerrors.New("invalid session transition", goerrors.CategoryValidation).
	WithTextCode(textCodeInvalidTransition).
	WithCode(goerrors.CodeBadRequest)

// Status is the authentication state of a session. Settling is tracked
// separately and overlays either status.
type Status string

const (
	StatusUnauthenticated Status = "unauthenticated"
	StatusAuthenticated   Status = "authenticated"
)

// Trigger names the event moving a session between statuses.
type Trigger string

const (
	TriggerRestored     Trigger = "restored"
	TriggerLogin        Trigger = "login"
	TriggerLogout       Trigger = "logout"
	TriggerProbeSuccess Trigger = "probe_success"
	TriggerProbeFailure Trigger = "probe_failure"
	TriggerInvalid      Trigger = "invalid"
)

// transitions lists, per status, where each trigger leads.
var transitions = map[Status]map[Trigger]Status{
	StatusUnauthenticated: {
		TriggerRestored:     StatusAuthenticated,
		TriggerLogin:        StatusAuthenticated,
		TriggerProbeSuccess: StatusAuthenticated,
		TriggerLogout:       StatusUnauthenticated,
		TriggerProbeFailure: StatusUnauthenticated,
		TriggerInvalid:      StatusUnauthenticated,
	},
	StatusAuthenticated: {
		TriggerRestored:     StatusAuthenticated,
		TriggerLogin:        StatusAuthenticated,
		TriggerProbeSuccess: StatusAuthenticated,
		TriggerLogout:       StatusUnauthenticated,
		TriggerProbeFailure: StatusUnauthenticated,
		TriggerInvalid:      StatusUnauthenticated,
	},
}

// NextStatus returns the status reached from `from` on trigger.
func NextStatus(from Status, trigger Trigger) (Status, error) {
	edges, ok := transitions[from]
	if !ok {
		return from, invalidTransition(from, trigger, "unknown status")
	}
	to, ok := edges[trigger]
	if !ok {
		return from, invalidTransition(from, trigger, "no edge for trigger")
	}
	return to, nil
}

// IsInvalidTransition reports whether err came from NextStatus
func IsInvalidTransition(err error) bool {
	return hasTextCode(err, textCodeInvalidTransition)
}

func invalidTransition(from Status, trigger Trigger, reason string) error {
	return ErrInvalidTransition.Clone().WithMetadata(map[string]any{
		"from":    string(from),
		"trigger": string(trigger),
		"reason":  reason,
	})
}

func statusOf(id *Identity) Status {
	if id == nil {
		return StatusUnauthenticated
	}
	return StatusAuthenticated
}
