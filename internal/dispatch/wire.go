// Package dispatch implements the client side of the upstream dispatch
// backend: the request envelope, the typed record built from the server's
// heading/value pairs, the route-to-screen resolver, and message cleanup for
// operator-facing errors.
package dispatch

// Distinguished ActionCode values in every response header.
const (
	CodeOK           = 0 // success
	CodeUnauthorized = 1 // unauthorized or terminal error
	CodeLocked       = 5 // record locked by another party, treated as unauthorized
)

// Header carries the status portion of every response.
type Header struct {
	ActionCode int    `json:"ActionCode"`
	Message    string `json:"Message"`
	SysVersion string `json:"SysVersion"`
}

// MetaData describes which positional columns are present and how they are
// labelled. Each heading is a (key, label) pair; presence of a key doubles as
// the visibility flag for the field it names.
type MetaData struct {
	Headings [][]string `json:"Headings"`
}

// Envelope is the wire shape of a dispatch response. Data is positional:
// row 0 is the current record and its columns only have meaning through the
// heading at the same index.
type Envelope struct {
	JHeader   Header     `json:"JHeader"`
	JMetaData MetaData   `json:"JMetaData"`
	JData     [][]string `json:"JData"`
}

// Action pairs the backend's action code with the view it is issued against.
type Action struct {
	Type string
	View string
}

// The full catalog of action/view pairs the driver client issues.
var (
	ActionAuth    = Action{Type: "AUTH", View: "AUTH"}
	ActionLive    = Action{Type: "LOG", View: "LIVESCREENCALL"}
	ActionAccept  = Action{Type: "ACCEPT", View: "OFFER"}
	ActionReject  = Action{Type: "REJECT", View: "OFFER"}
	ActionArrive  = Action{Type: "ARRIVE", View: "ARRIVE"}
	ActionStart   = Action{Type: "START", View: "ONSCENE"}
	ActionAddStop = Action{Type: "ADD_STOP", View: "LOAD"}
	ActionEnd     = Action{Type: "END", View: "LOAD"}
	ActionSave    = Action{Type: "SAVE", View: "COMPLETE"}
)

// Parameter keys carried by the SAVE/COMPLETE action.
const (
	ParamDropoffLocation = "DropoffLocation"
	ParamDropoffCity     = "DropoffCityState"
	ParamPassengerName   = "PassengerName"
)
