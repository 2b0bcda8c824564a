package chat

import (
	"time"

	"github.com/pkg/errors"

	"pairchat/internal/store"
)

// Service coordinates the user and message collections. It owns no
// transport concerns; callers decide how failures map onto responses and
// when to notify connected clients.
type Service struct {
	users    *store.Collection[*User]
	messages *store.Collection[*Message]
	now      func() time.Time
}

// NewService builds a Service over already-opened collections.
func NewService(users *store.Collection[*User], messages *store.Collection[*Message]) *Service {
	return &Service{
		users:    users,
		messages: messages,
		now:      time.Now,
	}
}

// Register creates a new user. Username, email, and password are required;
// profilePic is an optional attachment reference. Emails are unique with an
// exact, case-sensitive comparison.
func (s *Service) Register(username, email, password, profilePic string) (*User, error) {
	if username == "" || email == "" || password == "" {
		return nil, ErrValidation
	}

	user := &User{
		Username:   username,
		Email:      email,
		Password:   password,
		ProfilePic: profilePic,
	}

	// The uniqueness check and the insert must share one critical section:
	// checking first and appending after would let two concurrent
	// registrations of the same email both pass the check.
	stored, err := s.users.AppendUnique(user, func(u *User) bool { return u.Email == email })
	if errors.Is(err, store.ErrDuplicate) {
		return nil, ErrDuplicateUser
	}
	if err != nil {
		return nil, errors.WithMessage(err, "register user")
	}
	return stored, nil
}

// Login returns the user whose email and password both match exactly, or
// ErrInvalidCredentials. This is a plain equality check, not a verified
// credential scheme.
func (s *Service) Login(email, password string) (*User, error) {
	user, err := s.users.FindUnique(func(u *User) bool {
		return u.Email == email && u.Password == password
	})
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, errors.WithMessage(err, "look up credentials")
	}
	return user, nil
}

// Users returns every registered user.
func (s *Service) Users() ([]*User, error) {
	return s.users.LoadAll()
}

// MessagesBetween returns the messages exchanged between the two users, in
// storage order. The pair is unordered: MessagesBetween(a, b) and
// MessagesBetween(b, a) return the same messages.
func (s *Service) MessagesBetween(a, b string) ([]*Message, error) {
	all, err := s.messages.LoadAll()
	if err != nil {
		return nil, err
	}

	matched := make([]*Message, 0)
	for _, m := range all {
		if (m.Sender == a && m.Receiver == b) || (m.Sender == b && m.Receiver == a) {
			matched = append(matched, m)
		}
	}
	return matched, nil
}

// Send stores a new message and returns it with its assigned id and
// timestamp. Only sender and receiver are required; text and file may both
// be empty.
func (s *Service) Send(sender, receiver, text, file string) (*Message, error) {
	if sender == "" || receiver == "" {
		return nil, ErrValidation
	}

	msg := &Message{
		Sender:   sender,
		Receiver: receiver,
		Text:     text,
		File:     file,
		Time:     s.now().Format(time.RFC3339),
	}
	return s.messages.Append(msg)
}
