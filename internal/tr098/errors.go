package tr098

import (
	"errors"
	"fmt"

	"grimm.is/l2bridge/internal/bridging"
)

// Sentinel errors, each mapping to a CWMP fault code.
var (
	ErrInvalidName  = errors.New("invalid parameter name")
	ErrNotWritable  = errors.New("attempt to set a non-writable parameter")
	ErrInvalidValue = errors.New("invalid parameter value")
)

// CWMP fault codes.
const (
	FaultInternal          = 9002
	FaultResourcesExceeded = 9004
	FaultInvalidName       = 9005
	FaultInvalidValue      = 9007
	FaultNotWritable       = 9008
)

// ParamError ties an error to the parameter or object path it concerns.
type ParamError struct {
	Path string
	Err  error
}

func (e *ParamError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *ParamError) Unwrap() error { return e.Err }

func paramErr(path string, err error) error {
	return &ParamError{Path: path, Err: err}
}

// FaultCode returns the CWMP fault code for err.
func FaultCode(err error) int {
	switch {
	case errors.Is(err, ErrInvalidName), errors.Is(err, bridging.ErrNotFound):
		return FaultInvalidName
	case errors.Is(err, ErrNotWritable):
		return FaultNotWritable
	case errors.Is(err, ErrInvalidValue), errors.Is(err, bridging.ErrInvalid), errors.Is(err, bridging.ErrExists):
		return FaultInvalidValue
	case errors.Is(err, bridging.ErrLimit):
		return FaultResourcesExceeded
	}
	return FaultInternal
}
