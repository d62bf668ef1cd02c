package jetformat

import "errors"

var errBadHeader = errors.New("jetformat: page 0 is not a recognizable Jet file header")
