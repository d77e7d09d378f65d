package entity

import (
	"errors"
	"fmt"
)

var (
	// ErrChain wraps transport failures and transactions the node refused.
	ErrChain = errors.New("chain error")
	// ErrProtocolInvariant means the ledgers returned something the protocol never produces, it is never retried.
	ErrProtocolInvariant = errors.New("protocol invariant violated")
	// ErrAlreadyProcessed is returned by the destination when the request was claimed before.
	ErrAlreadyProcessed = errors.New("request already processed")

	ErrRejectedByLimits     = errors.New("rejected by bridge limits")
	ErrFatalMisuse          = errors.New("fatal bridge misuse")
	ErrMalformedCertificate = errors.New("malformed certificate")
	ErrTimeout              = errors.New("timeout")
)

type Stage string

const (
	StageDeposit      Stage = "deposit"
	StageFinality     Stage = "finality"
	StageEvidence     Stage = "evidence"
	StageClaim        Stage = "claim"
	StageConfirmation Stage = "confirmation"
)

// TimeoutError reports the stage that ran out of time and the last status reached, so the request can be resumed.
type TimeoutError struct {
	Stage  Stage
	Status Status
	Err    error
}

func (e *TimeoutError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s timed out in status %s", e.Stage, e.Status)
	}
	return fmt.Sprintf("%s timed out in status %s: %v", e.Stage, e.Status, e.Err)
}

func (e *TimeoutError) Unwrap() error {
	return e.Err
}

func (e *TimeoutError) Is(target error) bool {
	return target == ErrTimeout
}
