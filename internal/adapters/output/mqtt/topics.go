package mqtt

import (
	"strings"

	"github.com/richardctrimble/ha-emulated-hue/internal/domain/model"
)

// Topic layout below the prefix:
//
//	<prefix>/<domain>/<object_id>/state  retained {"state":"on","attributes":{...}}
//	<prefix>/<domain>/<object_id>/set    {"service":"light.turn_on","data":{...}}
//	<prefix>/bridge/status               retained online|offline

func StateTopic(prefix string, ref model.TargetRef) string {
	return prefix + "/" + string(ref.Domain) + "/" + ref.ObjectID + "/state"
}

func CommandTopic(prefix string, ref model.TargetRef) string {
	return prefix + "/" + string(ref.Domain) + "/" + ref.ObjectID + "/set"
}

func stateSubscription(prefix string) string {
	return prefix + "/+/+/state"
}

func statusTopic(prefix string) string {
	return prefix + "/bridge/status"
}

// parseStateTopic extracts the entity a state topic belongs to.
func parseStateTopic(prefix, topic string) (model.TargetRef, bool) {
	rest, ok := strings.CutPrefix(topic, prefix+"/")
	if !ok {
		return model.TargetRef{}, false
	}
	parts := strings.Split(rest, "/")
	if len(parts) != 3 || parts[2] != "state" || parts[0] == "" || parts[1] == "" {
		return model.TargetRef{}, false
	}
	return model.TargetRef{Domain: model.Domain(parts[0]), ObjectID: parts[1]}, true
}
