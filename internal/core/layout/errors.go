package layout

import "errors"

var ErrInvalidLayout = errors.New("invalid layout")
