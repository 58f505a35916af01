// Package recovery decides how a batch reacts to a failed file.
package recovery

import "context"

// Strategy is consulted after every failed conversion.
type Strategy interface {
	OnError(ctx context.Context, err error, location Location) Action
}

// Location identifies where a failure happened.
type Location struct {
	Path  string
	Stage string
}

type Action int

const (
	// ActionFail stops the batch; files not yet started are not converted.
	ActionFail Action = iota
	// ActionSkip records the failure and moves on to the next file.
	ActionSkip
)

func (a Action) String() string {
	switch a {
	case ActionFail:
		return "fail"
	case ActionSkip:
		return "skip"
	}
	return "unknown"
}
