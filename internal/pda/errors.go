package pda

import "errors"

// ErrMalformedSeed 种子字节宽度或数量不符合该账户种类的要求
var ErrMalformedSeed = errors.New("malformed seed")
