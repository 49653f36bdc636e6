package conv

const hexDigits = "0123456789ABCDEF"

// U16Hex writes n as 4-digit uppercase hex without 0x, zero-padded.
// Returns buf[:0] if buf is shorter than 4.
func U16Hex(buf []byte, n uint16) []byte {
	if len(buf) < 4 {
		return buf[:0]
	}
	i := len(buf)
	for j := 0; j < 4; j++ {
		i--
		buf[i] = hexDigits[n&0xF]
		n >>= 4
	}
	return buf[i:]
}
