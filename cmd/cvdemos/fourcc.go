package main

import (
	"github.com/pkg/errors"
)

// FourCC is the four character code identifying a video codec.
type FourCC [4]byte

func ParseFourCC(code string) (FourCC, error) {
	var f FourCC

	if len(code) != len(f) {
		return f, errors.Errorf("fourcc '%s' must be exactly 4 characters", code)
	}

	for i := 0; i < len(f); i++ {
		c := code[i]
		if c < 0x20 || c > 0x7e {
			return f, errors.Errorf("fourcc '%s' contains a non-printable character at %d", code, i)
		}
		f[i] = c
	}

	return f, nil
}

// Int packs the code the way OpenCV's VideoWriter::fourcc() does.
func (f FourCC) Int() int32 {
	return int32(f[0]) | int32(f[1])<<8 | int32(f[2])<<16 | int32(f[3])<<24
}

func (f FourCC) String() string {
	return string(f[:])
}
