package com

import (
	"fmt"

	"go.uber.org/zap"
)

// ProtocolViolation is the panic value for reference-counting misuse:
// releasing an object that is not live, releasing past zero, or touching a
// destroyed object. These mean memory is already being misused, so they are
// never turned into status codes.
type ProtocolViolation struct {
	Op     string
	Detail string
	Addr   uintptr
}

func (p *ProtocolViolation) Error() string {
	return fmt.Sprintf("com: %s on %#x: %s", p.Op, p.Addr, p.Detail)
}

func violate(op string, addr uintptr, detail string) {
	v := &ProtocolViolation{Op: op, Addr: addr, Detail: detail}
	Logger().Error("protocol violation",
		zap.String("op", op),
		zap.Uintptr("addr", addr),
		zap.String("detail", detail))
	panic(v)
}
