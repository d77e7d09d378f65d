package contract

import (
	"errors"
	"fmt"

	"github.com/podnetwork/pod-sdk-sub000/contract/abi"
	"github.com/podnetwork/pod-sdk-sub000/contract/bridgeabi"
	"github.com/podnetwork/pod-sdk-sub000/entity"
	"github.com/podnetwork/pod-sdk-sub000/ethclient"
)

var errorClasses = buildErrorClasses()

func buildErrorClasses() map[string]error {
	classes := make(map[string]error)
	for _, name := range bridgeabi.IdempotentErrors {
		classes[name] = entity.ErrAlreadyProcessed
	}
	for _, name := range bridgeabi.LimitErrors {
		classes[name] = entity.ErrRejectedByLimits
	}
	for _, name := range bridgeabi.MisuseErrors {
		classes[name] = entity.ErrFatalMisuse
	}
	return classes
}

// DecodeRevert maps a failed call to one of the entity error sentinels.
// Known contract errors keep their name in the message, everything else is an entity.ErrChain.
func DecodeRevert(contractABI abi.ABI, err error) error {
	if err == nil {
		return nil
	}
	var revertErr *ethclient.RevertError
	if !errors.As(err, &revertErr) {
		return fmt.Errorf("%w: %w", entity.ErrChain, err)
	}
	e, _, unpackErr := contractABI.UnpackError(revertErr.Data)
	if unpackErr != nil {
		return fmt.Errorf("%w: %w", entity.ErrChain, err)
	}
	class, ok := errorClasses[e.Name]
	if !ok {
		return fmt.Errorf("%w: contract error %s: %w", entity.ErrChain, e.Name, err)
	}
	return fmt.Errorf("%w: contract error %s", class, e.Name)
}
