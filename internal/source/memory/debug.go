package memory

import (
	"io"
	"log"
)

var diagLogger *log.Logger

// SetLogWriter configures the diagnostic stream; nil disables it.
func SetLogWriter(diag io.Writer) {
	if diag == nil {
		diagLogger = nil
		return
	}
	diagLogger = log.New(diag, "[memory] ", log.LstdFlags|log.Lmicroseconds)
}

func diagf(format string, args ...interface{}) {
	if diagLogger != nil {
		diagLogger.Printf(format, args...)
	}
}
