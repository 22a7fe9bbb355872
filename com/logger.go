package com

import (
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/com-runtime/guid"
)

var (
	logger     *zap.Logger
	loggerOnce sync.Once
)

// Logger returns the com package's logger instance.
// It uses a no-op logger by default.
func Logger() *zap.Logger {
	loggerOnce.Do(func() {
		if logger == nil {
			logger = zap.NewNop()
		}
	})
	return logger
}

// SetLogger configures the com package's logger.
// This must be called before any library is created.
func SetLogger(l *zap.Logger) {
	logger = l
}

func zapClass(c *Class) zap.Field {
	return zap.String("class", c.Decl.Name)
}

func zapAddr(addr uintptr) zap.Field {
	return zap.Uintptr("addr", addr)
}

func zapIID(iid guid.GUID) zap.Field {
	return zap.Stringer("iid", iid)
}
