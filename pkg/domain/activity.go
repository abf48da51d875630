package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Activity is an extracurricular activity students can be signed up for.
// Name is the unique key and is carried by the surrounding map on the wire.
type Activity struct {
	Name            string   `json:"-"`
	Description     string   `json:"description"`
	Schedule        string   `json:"schedule"`
	MaxParticipants int      `json:"max_participants"`
	Participants    []string `json:"participants"`
}

// SpotsLeft returns the number of open places. It goes negative when an
// activity is over-subscribed.
func (a Activity) SpotsLeft() int {
	return a.MaxParticipants - len(a.Participants)
}

// HasParticipant reports whether email is already registered.
func (a Activity) HasParticipant(email string) bool {
	for _, p := range a.Participants {
		if p == email {
			return true
		}
	}
	return false
}

// ActivityList is the decoded GET /activities response. The server sends a
// JSON object keyed by activity name; the list keeps the server's key order.
type ActivityList []Activity

// Find returns the activity with the given name.
func (l ActivityList) Find(name string) (Activity, bool) {
	for _, a := range l {
		if a.Name == name {
			return a, true
		}
	}
	return Activity{}, false
}

// Names returns activity names in list order.
func (l ActivityList) Names() []string {
	names := make([]string, len(l))
	for i, a := range l {
		names[i] = a.Name
	}
	return names
}

// UnmarshalJSON decodes {"name": {...}, ...} keeping key order.
func (l *ActivityList) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("activities: %w", err)
	}
	if tok == nil {
		*l = nil
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("activities: expected object, got %v", tok)
	}

	var out ActivityList
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("activities: %w", err)
		}
		name, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("activities: expected name, got %v", keyTok)
		}
		var a Activity
		if err := dec.Decode(&a); err != nil {
			return fmt.Errorf("activities: decode %q: %w", name, err)
		}
		a.Name = name
		if a.Participants == nil {
			a.Participants = []string{}
		}
		out = append(out, a)
	}
	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("activities: %w", err)
	}
	*l = out
	return nil
}

// MarshalJSON encodes the list back into the server's object shape.
func (l ActivityList) MarshalJSON() ([]byte, error) {
	var b bytes.Buffer
	b.WriteByte('{')
	for i, a := range l {
		if i > 0 {
			b.WriteByte(',')
		}
		key, err := json.Marshal(a.Name)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(a)
		if err != nil {
			return nil, err
		}
		b.Write(key)
		b.WriteByte(':')
		b.Write(val)
	}
	b.WriteByte('}')
	return b.Bytes(), nil
}
