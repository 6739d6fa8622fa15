package eventstream

import "errors"

// ErrNilOperationEvent indicates a nil operation event payload was provided
// to a publisher.
var ErrNilOperationEvent = errors.New("nil operation event")
