package rbm

import "errors"

// ErrConfig marks an invalid sampling configuration: bad length bounds,
// an unrecognized init method, a non-positive iteration count, a missing
// example source, and the like. It is always returned before any model
// state has been touched, so a failed call leaves the model as it was.
var ErrConfig = errors.New("invalid sampling configuration")
