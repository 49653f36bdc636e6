package motors

import "context"

// KISSPort is a byte stream carrying ESC serial telemetry.
type KISSPort interface {
	RecvSomeContext(ctx context.Context, buf []byte) (int, error)
}

// readKISS copies received bytes into the KISS ring until ctx ends.
func (s *Service) readKISS(ctx context.Context, port KISSPort) {
	var buf [32]byte
	for {
		n, err := port.RecvSomeContext(ctx, buf[:])
		if n > 0 {
			s.kissRing.TryWriteFrom(buf[:n])
		}
		if err != nil {
			if ctx.Err() == nil {
				println("[motors] kiss read:", err.Error())
			}
			return
		}
	}
}

// drainKISS feeds everything in the ring to the assembler.
func (s *Service) drainKISS() {
	var buf [32]byte
	for {
		n := s.kissRing.TryReadInto(buf[:])
		if n == 0 {
			return
		}
		s.kiss.Write(buf[:n])
	}
}
