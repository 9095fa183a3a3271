package protocol

// Status codes carried as the first payload frame of Titanic replies, and
// as the sole payload frame of an mmi.service lookup reply. These are
// ASCII strings on the wire, not structured fields, matching the
// original Majordomo convention of reusing HTTP-like status frames.
const (
	StatusOK      = "200"
	StatusPending = "300"
	StatusUnknown = "400"
)

// ManagementService is the broker's built-in service-discovery endpoint.
// A client sends it a single frame naming the service to look up, and
// receives StatusOK if that service has at least one ready worker.
const ManagementService = "mmi.service"

// Shutdown is the in-band sentinel a client sends as a request's first
// frame to tell a Titanic endpoint to terminate its receive loop. It must
// be matched case-sensitively and never translated or localized.
const Shutdown = "shutdown"
