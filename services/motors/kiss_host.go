//go:build !rp2040

package motors

import (
	"dshot-go/errcode"
	"dshot-go/types"
)

// Off target, KISS telemetry comes from a UART passed with WithKISSUART.
func openKISSPort(types.KISSConfig) (KISSPort, error) {
	return nil, errcode.Unsupported
}
