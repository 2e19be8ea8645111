package out

// AuditPort receives a structured event for every inter-appointment decision
// point. Emission is fire-and-forget: implementations must never block or fail
// the resolution path.
type AuditPort interface {
	Emit(event string, fields LogFields)
}
