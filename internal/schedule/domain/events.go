package domain

import "fmt"

// ChangeKind discriminates change feed notifications.
type ChangeKind string

const (
	ChangeInsert ChangeKind = "insert"
	ChangeUpdate ChangeKind = "update"
	ChangeDelete ChangeKind = "delete"
)

// ParseChangeKind accepts the lowercase and SQL spellings of a change kind.
func ParseChangeKind(s string) (ChangeKind, error) {
	switch s {
	case "insert", "INSERT":
		return ChangeInsert, nil
	case "update", "UPDATE":
		return ChangeUpdate, nil
	case "delete", "DELETE":
		return ChangeDelete, nil
	default:
		return "", fmt.Errorf("unknown change kind %q", s)
	}
}

// ChangeEvent is a single insert, update or delete of a stored task.
// For deletes only Record.ID and Record.ProfileID are meaningful.
type ChangeEvent struct {
	Kind   ChangeKind `json:"kind"`
	Record Task       `json:"record"`
}

// RoutingKey returns the topic for the event, tasks.<profile>.<kind>.
func (e ChangeEvent) RoutingKey() string {
	return RoutingKey(e.Record.ProfileID.String(), e.Kind)
}

// RoutingKey builds a change topic for a profile.
func RoutingKey(profileID string, kind ChangeKind) string {
	return "tasks." + profileID + "." + string(kind)
}

// ProfileTopic is the wildcard topic matching every change for a profile.
func ProfileTopic(profileID string) string {
	return "tasks." + profileID + ".*"
}
