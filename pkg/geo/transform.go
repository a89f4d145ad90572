package geo

// Transformable is implemented by every geometry value that can be moved
// rigidly in the plane. Implementations return new values and never mutate
// the receiver.
type Transformable[T any] interface {
	Translate(d Point2D) T
	RotateAround(center Point2D, angle float64) T
}

// Transplant moves g from the frame anchored at origin into the frame anchored
// at destination: translate origin→destination, then rotate by angle about
// destination.
func Transplant[T Transformable[T]](g T, origin, destination Point2D, angle float64) T {
	return g.Translate(destination.Sub(origin)).RotateAround(destination, angle)
}

// Retract inverts Transplant: rotate by -angle about destination, then
// translate destination→origin.
func Retract[T Transformable[T]](g T, origin, destination Point2D, angle float64) T {
	return g.RotateAround(destination, -angle).Translate(origin.Sub(destination))
}
