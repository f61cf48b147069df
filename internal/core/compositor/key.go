package compositor

import "fmt"

// SceneSource names a scene-item pair inside the compositor. The
// Compositor Client is the only package that ever names real compositor
// objects; every other component deals in SceneSource values it was
// handed, never in raw strings.
type SceneSource struct {
	Scene  string
	Source string
}

// String returns a stable "scene/source" representation, used in logs.
func (k SceneSource) String() string {
	return fmt.Sprintf("%s/%s", k.Scene, k.Source)
}

// NewSceneSource builds a SceneSource from a scene and source name.
func NewSceneSource(scene, source string) SceneSource {
	return SceneSource{Scene: scene, Source: source}
}
