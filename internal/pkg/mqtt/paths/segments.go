package paths

// Topic segments published by the master's MQTT mirror.
// All payloads are JSON and retained.
const (
	// State carries the aggregate system state.
	// Payload: { "state": "ON" }
	// Pattern: {root}/state
	State = "state"

	// Status carries the latest report of one machine.
	// Payload: MachineStatus
	// Pattern: {root}/status/{machine}
	Status = "status"

	// Online is the master's liveness flag, "true" while connected and
	// "false" through the last will.
	// Pattern: {root}/online/{machine}
	Online = "online"

	// Command is subscribed by the master. A payload such as "START" is
	// issued to every machine like the HTTP /system routes do.
	// Pattern: {root}/command
	Command = "command"
)
