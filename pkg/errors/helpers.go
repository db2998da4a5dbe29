package errors

import "errors"

// IsValidation checks if an error is a validation error.
func IsValidation(err error) bool {
	if err == nil {
		return false
	}

	var validationErr *ValidationError
	return errors.As(err, &validationErr)
}

// reasonOf returns the key validation reason carried by err, if any.
func reasonOf(err error) Reason {
	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		return validationErr.Reason
	}
	return ""
}

// IsInvalidKey reports whether err rejected a malformed subscription key.
func IsInvalidKey(err error) bool {
	return err != nil && reasonOf(err) == ReasonInvalidKey
}

// IsEmptyKeySet reports whether err rejected an empty batch of keys.
func IsEmptyKeySet(err error) bool {
	return err != nil && reasonOf(err) == ReasonEmptyKeySet
}

// IsDuplicateKey reports whether err rejected a batch with repeated keys.
func IsDuplicateKey(err error) bool {
	return err != nil && reasonOf(err) == ReasonDuplicateKey
}

// IsHandler checks if an error came from a user message handler.
func IsHandler(err error) bool {
	if err == nil {
		return false
	}

	var handlerErr *HandlerError
	return errors.As(err, &handlerErr)
}

// IsProtocol checks if an error is a wire protocol error.
func IsProtocol(err error) bool {
	if err == nil {
		return false
	}

	var protocolErr *ProtocolError
	return errors.As(err, &protocolErr)
}

// IsClosed checks if an error indicates the connection is closed.
func IsClosed(err error) bool {
	return err != nil && errors.Is(err, ErrClosed)
}

// IsServiceUnavailable checks if an error indicates a service is unavailable.
func IsServiceUnavailable(err error) bool {
	if err == nil {
		return false
	}

	var serviceErr *ServiceError
	return errors.As(err, &serviceErr) || errors.Is(err, ErrServiceUnavailable)
}

// IsInternal checks if an error is an internal error.
func IsInternal(err error) bool {
	if err == nil {
		return false
	}

	var internalErr *InternalError
	return errors.As(err, &internalErr) || errors.Is(err, ErrInternal)
}

// GetErrorCode extracts the error code from an error.
func GetErrorCode(err error) string {
	if err == nil {
		return CodeOK
	}

	var customErr Error
	if errors.As(err, &customErr) {
		return customErr.Code()
	}

	// Try to infer from sentinel errors
	switch {
	case errors.Is(err, ErrInvalidInput):
		return CodeInvalidArgument
	case IsClosed(err):
		return CodeUnavailable
	case IsServiceUnavailable(err):
		return CodeServiceUnavailable
	default:
		return CodeInternal
	}
}

// GetErrorMessage extracts a human-readable message from an error.
func GetErrorMessage(err error) string {
	if err == nil {
		return ""
	}

	var customErr Error
	if errors.As(err, &customErr) {
		return customErr.Message()
	}

	return err.Error()
}

// Cause returns the underlying cause of an error.
// It unwraps the error chain until it finds the root cause.
func Cause(err error) error {
	for {
		unwrapper, ok := err.(interface{ Unwrap() error })
		if !ok {
			return err
		}
		underlying := unwrapper.Unwrap()
		if underlying == nil {
			return err
		}
		err = underlying
	}
}
