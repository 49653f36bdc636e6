//go:build rp2040

package motors

import (
	"machine"

	"dshot-go/errcode"
	"dshot-go/types"

	"github.com/jangala-dev/tinygo-uartx/uartx"
)

func openKISSPort(cfg types.KISSConfig) (KISSPort, error) {
	var hw *uartx.UART
	switch cfg.UART {
	case "uart0":
		hw = uartx.UART0
	case "uart1":
		hw = uartx.UART1
	default:
		return nil, errcode.InvalidParams
	}
	baud := cfg.Baud
	if baud == 0 {
		baud = defaultKISSBaud
	}
	if err := hw.Configure(uartx.UARTConfig{
		BaudRate: baud,
		TX:       machine.Pin(cfg.TX),
		RX:       machine.Pin(cfg.RX),
	}); err != nil {
		return nil, err
	}
	return hw, nil
}
