package gameerr

import (
	"errors"

	"connectrpc.com/connect"
)

// ToConnect converts a core error into a connect error carrying an Error-Code header.
func ToConnect(err error) error {
	if err == nil {
		return nil
	}
	var ce *connect.Error
	if errors.As(err, &ce) {
		return err
	}

	kind := Kind(err)
	var code connect.Code
	switch kind {
	case CodeNotFound:
		code = connect.CodeNotFound
	case CodeInvalidTransition:
		code = connect.CodeFailedPrecondition
	case CodeCapacityExceeded:
		code = connect.CodeResourceExhausted
	case CodeInsufficientFunds:
		code = connect.CodePermissionDenied
	default:
		code = connect.CodeInternal
	}

	cerr := connect.NewError(code, err)
	cerr.Meta().Set("Error-Code", string(kind))
	return cerr
}
