package dshot

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dshot-go/errcode"
)

var sampleKISS = KISSFrame{
	TemperatureC:   42,
	VoltageCV:      1620,
	CurrentCA:      1234,
	ConsumptionMAh: 87,
	ERPMHundreds:   950,
}

func TestKISSCRC8(t *testing.T) {
	// CRC-8/SMBUS check value.
	assert.Equal(t, uint8(0xF4), KISSCRC8([]byte("123456789")))
	assert.Zero(t, KISSCRC8(nil))
}

func TestKISSRoundTrip(t *testing.T) {
	b := AppendKISS(nil, sampleKISS)
	require.Len(t, b, KISSFrameLen)
	assert.Equal(t, []byte{42, 0x06, 0x54, 0x04, 0xD2, 0x00, 0x57, 0x03, 0xB6}, b[:9])

	f, err := ParseKISS(b)
	require.NoError(t, err)
	assert.Equal(t, sampleKISS, f)
	assert.Equal(t, uint32(95_000), f.ERPM())
}

func TestParseKISSErrors(t *testing.T) {
	_, err := ParseKISS([]byte{1, 2, 3})
	assert.Equal(t, errcode.ShortFrame, errcode.Of(err))

	b := AppendKISS(nil, sampleKISS)
	b[4] ^= 0x40
	_, err = ParseKISS(b)
	assert.Equal(t, errcode.BadCRC, errcode.Of(err))
}

func TestKISSAssemblerResyncs(t *testing.T) {
	var got []KISSFrame
	a := &KISSAssembler{OnFrame: func(f KISSFrame) { got = append(got, f) }}

	stream := []byte{0x00, 0x55, 0x13} // line noise before the first frame
	stream = AppendKISS(stream, sampleKISS)
	second := sampleKISS
	second.TemperatureC = 43
	stream = AppendKISS(stream, second)

	// Feed in uneven pieces.
	for len(stream) > 0 {
		n := 7
		if n > len(stream) {
			n = len(stream)
		}
		w, err := a.Write(stream[:n])
		require.NoError(t, err)
		require.Equal(t, n, w)
		stream = stream[n:]
	}
	require.Len(t, got, 2)
	assert.Equal(t, sampleKISS, got[0])
	assert.Equal(t, second, got[1])
	last, n := a.Last()
	assert.Equal(t, second, last)
	assert.Equal(t, uint32(2), n)
	assert.Positive(t, a.CRCErrors())
}

type fakeUART struct {
	rx  bytes.Buffer
	out bytes.Buffer
}

func (u *fakeUART) Read(p []byte) (int, error)  { return u.rx.Read(p) }
func (u *fakeUART) Write(p []byte) (int, error) { return u.out.Write(p) }
func (u *fakeUART) Buffered() int               { return u.rx.Len() }

func TestKISSPollUART(t *testing.T) {
	u := &fakeUART{}
	u.rx.Write(AppendKISS(nil, sampleKISS))
	u.rx.Write([]byte{0xAA, 0xBB}) // start of the next frame

	var a KISSAssembler
	n, err := a.PollUART(u)
	require.NoError(t, err)
	assert.Equal(t, KISSFrameLen+2, n)
	last, count := a.Last()
	assert.Equal(t, uint32(1), count)
	assert.Equal(t, sampleKISS, last)

	n, err = a.PollUART(u)
	require.NoError(t, err)
	assert.Zero(t, n)

	a.Reset()
	u.rx.Write(AppendKISS(nil, sampleKISS))
	_, err = a.PollUART(u)
	require.NoError(t, err)
	_, count = a.Last()
	assert.Equal(t, uint32(2), count)
}
