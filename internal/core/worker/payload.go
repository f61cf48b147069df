package worker

import "motherstream/internal/core/compositor"

func payloadString(j Job, key string) string {
	v, _ := j.Payload[key].(string)
	return v
}

func payloadSceneSource(j Job, key string) compositor.SceneSource {
	v, _ := j.Payload[key].(compositor.SceneSource)
	return v
}

func payloadBool(j Job, key string) bool {
	v, _ := j.Payload[key].(bool)
	return v
}
