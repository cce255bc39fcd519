package collab

// Wire event names shared by every transport.
const (
	EventJoin           = "join"
	EventUpdate         = "update"
	EventInitialData    = "initialData"
	EventDocumentUpdate = "documentUpdate"
	EventError          = "error"
)

// Inbound names used by older clients.
var (
	JoinAliases   = []string{"join-room"}
	UpdateAliases = []string{"codeChange", "whiteboardUpdate"}
)

// ErrorPayload is the body of an error event.
type ErrorPayload struct {
	Message string `json:"message"`
}
