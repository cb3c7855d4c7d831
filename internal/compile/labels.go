package compile

import (
	"fmt"
	"strings"

	"github.com/colinator27/open-day-dialogue-compiler/internal/parse"
)

func labelKey(scene, label string) string {
	return scene + ":" + label
}

// indexLabels records the scene defining each label of the file, the index is used to resolve
// jumps to labels of other scenes. The first scene defining a label wins.
func (c *Compiler) indexLabels(block *parse.Block) {
	parse.WalkScenes(block, func(namespaces []string, scene *parse.Scene) {
		sceneName := strings.Join(append(namespaces[:len(namespaces):len(namespaces)], scene.Name), ".")

		parse.WalkSceneStatements(scene.Statements, func(stmt parse.SceneStatement) {
			label, ok := stmt.(*parse.LabelStatement)
			if !ok {
				return
			}
			if _, ok := c.labelScenes[label.Name]; !ok {
				c.labelScenes[label.Name] = sceneName
			}
		})
	})
}

// labelID returns the id of a label, the id is allocated on first use.
func (c *Compiler) labelID(scene, label string) uint32 {
	key := labelKey(scene, label)
	id, ok := c.labels[key]
	if !ok {
		id = c.program.NextLabel()
		c.labels[key] = id
	}
	return id
}

// allocateSceneLabels allocates the ids of all the labels of a scene, including the labels of nested
// bodies, before any instruction of the scene is emitted.
func (c *Compiler) allocateSceneLabels(sceneName string, scene *parse.Scene) bool {
	c.currentScene = sceneName
	c.sceneLabels = map[string]struct{}{}

	ok := true

	parse.WalkSceneStatements(scene.Statements, func(stmt parse.SceneStatement) {
		label, isLabel := stmt.(*parse.LabelStatement)
		if !isLabel || !ok {
			return
		}
		if _, duplicate := c.sceneLabels[label.Name]; duplicate {
			c.error(fmt.Sprintf(DUPLICATE_LABEL_MSG, label.Name, sceneName), label.Line)
			ok = false
			return
		}
		c.sceneLabels[label.Name] = struct{}{}
		c.labelID(sceneName, label.Name)
	})

	return ok
}

func (c *Compiler) jumpTarget(jump *parse.JumpStatement) (uint32, bool) {
	if _, ok := c.sceneLabels[jump.Label]; ok {
		return c.labelID(c.currentScene, jump.Label), true
	}

	otherScene, ok := c.labelScenes[jump.Label]
	if !ok || otherScene == c.currentScene {
		c.error(fmt.Sprintf(UNKNOWN_LABEL_MSG, jump.Label), jump.Line)
		return 0, false
	}

	c.warn(CROSS_SCENE_JUMP_MSG, jump.Line)
	return c.labelID(otherScene, jump.Label), true
}
