package audit

import (
	"github.com/suchimauz/clinic-availability-resolver/internal/core/ports/out"
)

// LoggerAuditSink emits audit events through the structured logger. Emission
// runs on its own goroutine so a slow sink can never stall resolution.
type LoggerAuditSink struct {
	logger out.LoggerPort
}

func NewLoggerAuditSink(logger out.LoggerPort) *LoggerAuditSink {
	return &LoggerAuditSink{
		logger: logger.WithModule("AuditSink"),
	}
}

func (s *LoggerAuditSink) Emit(event string, fields out.LogFields) {
	go func() {
		defer func() {
			// Audit must never take the resolution path down with it
			_ = recover()
		}()
		s.logger.Info("audit."+event, fields)
	}()
}
