package dshot

// Pin is the digital line a motor is attached to.
type Pin interface {
	Number() int
	Set(high bool)
	PullUp()
}

// Peripheral is the pulse generation and capture hardware: a fixed set of
// identical channels, each usable for transmit or receive.
//
// Methods named in the interrupt path (AttachRX, ArmRX, AcquireCapture,
// ReleaseCapture, Pending*, Clear*) must not block or allocate.
type Peripheral interface {
	// Channels is the number of channel slots.
	Channels() int

	ConfigureTX(ch uint8, pin Pin, idleHigh bool) error
	// ConfigureRX sets the idle time (in ticks) that ends a capture.
	ConfigureRX(ch uint8, pin Pin, idleTicks uint16) error

	// Load copies a pulse train into the channel's memory.
	Load(ch uint8, train *PulseTrain)
	// AttachTX and AttachRX route pin to ch in drive or capture mode.
	AttachTX(ch uint8, pin Pin)
	AttachRX(ch uint8, pin Pin)
	EnableTxInterrupt(ch uint8, on bool)
	StartTX(ch uint8)
	ArmRX(ch uint8)

	// AcquireCapture stops the receiver and hands its buffer to the caller
	// until ReleaseCapture. The slice must not be used after release.
	AcquireCapture(ch uint8) []Symbol
	ReleaseCapture(ch uint8)

	// PendingTX and PendingRX return bitmasks of finished channels.
	PendingTX() uint32
	PendingRX() uint32
	ClearTX(ch uint8)
	ClearRX(ch uint8)

	// OnInterrupt installs the single completion handler.
	OnInterrupt(h func())
}
