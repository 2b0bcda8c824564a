// Package chat implements the domain model and operations of the messaging
// service: registration, login, message history, and sends.
package chat

// User is a registered account. ProfilePic, when set, is an attachment
// reference of the form /uploads/<name> resolved by the static file server.
//
// The password is stored and compared as plaintext. That is only
// acceptable for prototyping; production deployments need a salted-hash
// scheme.
type User struct {
	ID         string `json:"id"`
	Username   string `json:"username"`
	Email      string `json:"email"`
	Password   string `json:"password"`
	ProfilePic string `json:"profilePic,omitempty"`
}

// RecordID returns the user's storage identifier.
func (u *User) RecordID() string { return u.ID }

// SetRecordID assigns the user's storage identifier.
func (u *User) SetRecordID(id string) { u.ID = id }

// Message is one chat message between a sender and a receiver. Sender and
// receiver are opaque identifiers; no referential check against the user
// collection is performed. Either Text or File may be empty. Time is an
// RFC 3339 instant assigned when the message is stored.
type Message struct {
	ID       string `json:"id"`
	Sender   string `json:"sender"`
	Receiver string `json:"receiver"`
	Text     string `json:"text,omitempty"`
	File     string `json:"file,omitempty"`
	Time     string `json:"time"`
}

// RecordID returns the message's storage identifier.
func (m *Message) RecordID() string { return m.ID }

// SetRecordID assigns the message's storage identifier.
func (m *Message) SetRecordID(id string) { m.ID = id }
