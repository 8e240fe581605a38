package dispatch

import "encoding/json"

// Field is one named column of the current record: the heading key, its
// display label, and the value from data row 0 at the same position.
type Field struct {
	Key   string
	Label string
	Value string
}

// Record is the typed view of a dispatch response. The positional JData/
// Headings pair is folded into named fields once, at the client boundary;
// nothing outside this package indexes columns by offset.
type Record struct {
	env    Envelope
	fields []Field
	index  map[string]int
}

// NewRecord folds an envelope into a Record.
func NewRecord(env Envelope) *Record {
	r := &Record{env: env, index: make(map[string]int)}

	var row []string
	if len(env.JData) > 0 {
		row = env.JData[0]
	}
	for i, heading := range env.JMetaData.Headings {
		if len(heading) == 0 {
			continue
		}
		f := Field{Key: heading[0]}
		if len(heading) > 1 {
			f.Label = heading[1]
		}
		if i < len(row) {
			f.Value = row[i]
		}
		r.index[f.Key] = len(r.fields)
		r.fields = append(r.fields, f)
	}
	return r
}

// Failure builds a synthetic unauthorized record carrying message.
// The client uses it to give every failure path the same shape.
func Failure(message string) *Record {
	return NewRecord(Envelope{JHeader: Header{ActionCode: CodeUnauthorized, Message: message}})
}

// Header returns the response header.
func (r *Record) Header() Header { return r.env.JHeader }

// OK reports whether the response carried a success code.
func (r *Record) OK() bool { return r.env.JHeader.ActionCode == CodeOK }

// Unauthorized reports whether the response means the session is invalid.
// The lock code is treated the same way the unauthorized code is.
func (r *Record) Unauthorized() bool {
	return r.env.JHeader.ActionCode == CodeUnauthorized || r.env.JHeader.ActionCode == CodeLocked
}

// Message returns the server-supplied message, which may be empty.
func (r *Record) Message() string { return r.env.JHeader.Message }

// Route returns the status string in the first column of the current record,
// or "" when the record has no data rows.
func (r *Record) Route() string {
	if len(r.env.JData) == 0 || len(r.env.JData[0]) == 0 {
		return ""
	}
	return r.env.JData[0][0]
}

// Field returns the value for a heading key.
func (r *Record) Field(key string) (string, bool) {
	i, ok := r.index[key]
	if !ok {
		return "", false
	}
	return r.fields[i].Value, true
}

// Label returns the display label for a heading key.
func (r *Record) Label(key string) (string, bool) {
	i, ok := r.index[key]
	if !ok {
		return "", false
	}
	return r.fields[i].Label, true
}

// Has reports whether the server sent a heading for key. Absence means the
// field is hidden on the current screen.
func (r *Record) Has(key string) bool {
	_, ok := r.index[key]
	return ok
}

// Fields returns the named columns in server order.
func (r *Record) Fields() []Field { return r.fields }

// MarshalJSON persists the original envelope so a restored record rebuilds
// its field table from the same wire data.
func (r *Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.env)
}

// UnmarshalJSON restores a record from its persisted envelope.
func (r *Record) UnmarshalJSON(data []byte) error {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return err
	}
	*r = *NewRecord(env)
	return nil
}
