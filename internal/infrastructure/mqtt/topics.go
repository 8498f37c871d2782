package mqtt

import "fmt"

// Topic prefixes for tablekit MQTT traffic.
const (
	// TopicPrefix is the root of every tablekit topic.
	TopicPrefix = "tablekit"

	// TopicPrefixTable is the base for row change events.
	TopicPrefixTable = TopicPrefix + "/table"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = TopicPrefix + "/system"
)

// Topics provides builders for tablekit MQTT topics.
//
//	topic := mqtt.Topics{}.TableChange("users", "insert")
//	// Returns: "tablekit/table/users/insert"
type Topics struct{}

// TableChange returns the topic for one kind of change on one table.
//
// Example: tablekit/table/users/update
func (Topics) TableChange(table, action string) string {
	return fmt.Sprintf("%s/%s/%s", TopicPrefixTable, table, action)
}

// TableChanges returns a pattern matching every change on one table.
//
// Pattern: tablekit/table/users/+
func (Topics) TableChanges(table string) string {
	return fmt.Sprintf("%s/%s/+", TopicPrefixTable, table)
}

// AllTableChanges returns a pattern matching every change on every table.
//
// Pattern: tablekit/table/+/+
func (Topics) AllTableChanges() string {
	return TopicPrefixTable + "/+/+"
}

// SystemStatus returns the retained online/offline status topic.
//
// Example: tablekit/system/status
func (Topics) SystemStatus() string {
	return TopicPrefixSystem + "/status"
}
