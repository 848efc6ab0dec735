package address

import "fmt"

const (
	charset        = "qpzry9x8gf2tvdw0s3jn54khce6mua7l"
	checksumLength = 8
)

var generator = [5]uint64{0x98f2bc8e61, 0x79b76d99e2, 0xf33e5fb3c4, 0xae2eabe2a8, 0x1e4f43e470}

var charsetRev = func() [256]int8 {
	var rev [256]int8
	for i := range rev {
		rev[i] = -1
	}
	for i := 0; i < len(charset); i++ {
		rev[charset[i]] = int8(i)
	}
	return rev
}()

// polymod runs over the lower 5 bits of the prefix, a zero separator and the
// 5-bit body values.
func polymod(prefix string, values []byte) uint64 {
	c := uint64(1)
	step := func(v byte) {
		top := c >> 35
		c = ((c & 0x07ffffffff) << 5) ^ uint64(v)
		for i := 0; i < 5; i++ {
			if (top>>uint(i))&1 == 1 {
				c ^= generator[i]
			}
		}
	}
	for i := 0; i < len(prefix); i++ {
		step(prefix[i] & 0x1f)
	}
	step(0)
	for _, v := range values {
		step(v)
	}
	return c ^ 1
}

func checksum(prefix string, data []byte) uint64 {
	padded := make([]byte, len(data)+checksumLength)
	copy(padded, data)
	return polymod(prefix, padded)
}

func convertBits(data []byte, fromBits, toBits uint, pad bool) ([]byte, error) {
	var (
		acc    uint32
		bits   uint
		maxv   = uint32(1)<<toBits - 1
		result = make([]byte, 0, len(data)*int(fromBits)/int(toBits)+1)
	)
	for _, b := range data {
		if uint32(b)>>fromBits != 0 {
			return nil, fmt.Errorf("value %d exceeds %d bits", b, fromBits)
		}
		acc = acc<<fromBits | uint32(b)
		bits += fromBits
		for bits >= toBits {
			bits -= toBits
			result = append(result, byte(acc>>bits&maxv))
		}
	}
	if pad {
		if bits > 0 {
			result = append(result, byte(acc<<(toBits-bits)&maxv))
		}
	} else if bits >= fromBits || acc<<(toBits-bits)&maxv != 0 {
		return nil, fmt.Errorf("invalid padding")
	}
	return result, nil
}
