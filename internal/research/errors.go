package research

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyQuestion     = errors.New("research: question is empty")
	ErrUnknownEntityType = errors.New("research: unknown entity type")
)

// NodeError is returned by Engine.Run when a node fails. The run produced no
// entities.
type NodeError struct {
	State State
	Err   error
}

func (e *NodeError) Error() string {
	if e == nil {
		return "research: node failed"
	}
	return fmt.Sprintf("research: %s node failed: %v", e.State, e.Err)
}

func (e *NodeError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}
