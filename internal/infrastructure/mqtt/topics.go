package mqtt

import "fmt"

// DefaultTopicPrefix is used when the configuration leaves topic_prefix empty.
const DefaultTopicPrefix = "taller"

// Topics builds Taller MQTT topics under a common prefix.
//
//	topics := mqtt.Topics{Prefix: "taller"}
//	topics.WorkshopEvent(4, "job.updated")
//	// Returns: "taller/workshop/4/event/job.updated"
type Topics struct {
	Prefix string
}

func (t Topics) prefix() string {
	if t.Prefix == "" {
		return DefaultTopicPrefix
	}
	return t.Prefix
}

// WorkshopEvent returns the topic for one event type of one workshop.
//
// Example: taller/workshop/4/event/job.updated
func (t Topics) WorkshopEvent(workshopID int64, eventType string) string {
	return fmt.Sprintf("%s/workshop/%d/event/%s", t.prefix(), workshopID, eventType)
}

// AllWorkshopEvents returns a wildcard matching every event of one workshop.
//
// Example: taller/workshop/4/event/+
func (t Topics) AllWorkshopEvents(workshopID int64) string {
	return fmt.Sprintf("%s/workshop/%d/event/+", t.prefix(), workshopID)
}

// SystemStatus returns the retained online/offline status topic.
//
// Example: taller/system/status
func (t Topics) SystemStatus() string {
	return t.prefix() + "/system/status"
}
