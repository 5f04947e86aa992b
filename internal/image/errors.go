package image

import "errors"

// Returned when assembling or writing a crate image fails.
var ErrPackaging = errors.New("image packaging failed")
