package component

import "github.com/go-gl/mathgl/mgl64"

// Transform is an entity's pose: position plus unit orientation.
type Transform struct {
	Position mgl64.Vec3
	Rotation mgl64.Quat
}

func NewTransform(pos mgl64.Vec3) Transform {
	return Transform{Position: pos, Rotation: mgl64.QuatIdent()}
}

var TransformComponent = NewComponent[Transform]()
