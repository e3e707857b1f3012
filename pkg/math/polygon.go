package math

// SignedArea returns the shoelace area of a closed polygon given without a
// repeated closing point. It is positive for counter-clockwise winding with
// X to the right and Y up.
func SignedArea(points []Vec2) float32 {
	if len(points) < 3 {
		return 0
	}
	var sum float32
	for i := range points {
		a := points[i]
		b := points[(i+1)%len(points)]
		sum += a.X*b.Y - b.X*a.Y
	}
	return sum / 2
}

// Reversed reports whether points have negative signed area, the winding
// footprints are flipped away from. Degenerate polygons are not reversed.
func Reversed(points []Vec2) bool {
	return SignedArea(points) < 0
}

// BoundsArea returns the area of the axis-aligned bounding box of points.
// Fewer than three points have no area.
func BoundsArea(points []Vec2) float32 {
	if len(points) < 3 {
		return 0
	}
	minP, maxP := points[0], points[0]
	for _, p := range points[1:] {
		minP.X = min(minP.X, p.X)
		minP.Y = min(minP.Y, p.Y)
		maxP.X = max(maxP.X, p.X)
		maxP.Y = max(maxP.Y, p.Y)
	}
	return (maxP.X - minP.X) * (maxP.Y - minP.Y)
}

// Centroid returns the arithmetic mean of points.
func Centroid(points []Vec2) Vec2 {
	if len(points) == 0 {
		return Vec2{}
	}
	var sum Vec2
	for _, p := range points {
		sum = sum.Add(p)
	}
	return sum.Scale(1 / float32(len(points)))
}
