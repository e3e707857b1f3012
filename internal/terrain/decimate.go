package terrain

import "container/heap"

// quadric is a symmetric 4x4 error matrix stored as its upper triangle:
// aa ab ac ad bb bc bd cc cd dd.
type quadric [10]float64

// planeQuadric returns the quadric measuring squared distance to the plane
// n.p + d = 0, with n of unit length.
func planeQuadric(n [3]float64, d float64) quadric {
	a, b, c := n[0], n[1], n[2]
	return quadric{
		a * a, a * b, a * c, a * d,
		b * b, b * c, b * d,
		c * c, c * d,
		d * d,
	}
}

func (q *quadric) add(o *quadric) {
	for i := range q {
		q[i] += o[i]
	}
}

// eval returns the error of position p.
func (q *quadric) eval(p [3]float64) float64 {
	x, y, z := p[0], p[1], p[2]
	return q[0]*x*x + 2*q[1]*x*y + 2*q[2]*x*z + 2*q[3]*x +
		q[4]*y*y + 2*q[5]*y*z + 2*q[6]*y +
		q[7]*z*z + 2*q[8]*z +
		q[9]
}

// collapse is a queued candidate: move vertex from onto its cheapest
// neighbour. Entries whose stamp no longer matches the vertex are stale.
type collapse struct {
	cost  float64
	from  int32
	stamp uint32
}

// collapseHeap implements a min-priority queue of collapse candidates.
type collapseHeap []collapse

func (h collapseHeap) Len() int { return len(h) }
func (h collapseHeap) Less(i, j int) bool {
	if h[i].cost != h[j].cost {
		return h[i].cost < h[j].cost
	}
	return h[i].from < h[j].from
}
func (h collapseHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *collapseHeap) Push(x interface{}) {
	*h = append(*h, x.(collapse))
}

func (h *collapseHeap) Pop() interface{} {
	old := *h
	n := len(old)
	c := old[n-1]
	*h = old[:n-1]
	return c
}

// minFaceArea2 is the smallest doubled face area a collapse may produce.
const minFaceArea2 = 1e-9

type decimator struct {
	m     *Mesh
	q     []quadric
	stamp []uint32
	queue collapseHeap

	scratchU []int32
	scratchV []int32
	ring     []int32
}

// Decimate simplifies m in place with quadric-error half-edge collapses.
// Boundary vertices never move and are never removed. Decimation stops once
// another collapse would take the mesh below minFaces, or when the cheapest
// remaining collapse costs more than maxError squared.
func Decimate(m *Mesh, maxError float64, minFaces int) {
	d := &decimator{
		m:     m,
		q:     make([]quadric, len(m.pos)),
		stamp: make([]uint32, len(m.pos)),
	}
	d.initQuadrics()

	d.queue = make(collapseHeap, 0, m.liveVerts)
	for v := range m.pos {
		d.enqueue(int32(v))
	}
	heap.Init(&d.queue)

	limit := maxError * maxError
	for d.queue.Len() > 0 && m.liveFaces-2 >= minFaces {
		c := heap.Pop(&d.queue).(collapse)
		if !m.vertAlive[c.from] || d.stamp[c.from] != c.stamp {
			continue
		}
		if c.cost > limit {
			break
		}

		to, cost, ok := d.bestValidTarget(c.from)
		if !ok {
			// Stuck until its neighbourhood changes and re-stamps it.
			continue
		}
		if cost > c.cost {
			heap.Push(&d.queue, collapse{cost: cost, from: c.from, stamp: c.stamp})
			continue
		}
		d.collapse(c.from, to)
	}
}

func (d *decimator) initQuadrics() {
	m := d.m
	for f, alive := range m.faceAlive {
		if !alive {
			continue
		}
		n := m.faceNormal(int32(f))
		if dot(n, n) < minFaceArea2*minFaceArea2 {
			continue
		}
		n = normalize(n)
		t := m.faces[f]
		pq := planeQuadric(n, -dot(n, m.pos[t[0]]))
		for _, v := range t {
			d.q[v].add(&pq)
		}
	}
}

// enqueue queues the cheapest collapse of v, ignoring validity, without
// restoring the heap order.
func (d *decimator) enqueue(v int32) {
	if !d.m.vertAlive[v] || d.m.boundary[v] {
		return
	}
	if cost, ok := d.cheapest(v); ok {
		d.queue = append(d.queue, collapse{cost: cost, from: v, stamp: d.stamp[v]})
	}
}

func (d *decimator) cost(u, v int32) float64 {
	q := d.q[u]
	q.add(&d.q[v])
	return q.eval(d.m.pos[v])
}

func (d *decimator) cheapest(u int32) (float64, bool) {
	d.scratchU = d.m.neighbors(u, d.scratchU)
	best, found := 0.0, false
	for _, v := range d.scratchU {
		c := d.cost(u, v)
		if !found || c < best {
			best, found = c, true
		}
	}
	return best, found
}

func (d *decimator) bestValidTarget(u int32) (int32, float64, bool) {
	d.scratchU = d.m.neighbors(u, d.scratchU)
	var (
		best     int32
		bestCost float64
		found    bool
	)
	for _, v := range d.scratchU {
		c := d.cost(u, v)
		if found && c >= bestCost {
			continue
		}
		if d.canCollapse(u, v) {
			best, bestCost, found = v, c, true
		}
	}
	return best, bestCost, found
}

// canCollapse reports whether moving u onto v keeps the mesh manifold and
// flips no face.
func (d *decimator) canCollapse(u, v int32) bool {
	m := d.m

	// Link condition: the edge's two faces supply the only common neighbours.
	d.scratchV = m.neighbors(v, d.scratchV)
	common := 0
	for _, w := range d.scratchU {
		if containsID(d.scratchV, w) {
			common++
		}
	}
	if common != 2 {
		return false
	}

	target := m.pos[v]
	for _, f := range m.incident[u] {
		t := m.faces[f]
		if t[0] == v || t[1] == v || t[2] == v {
			continue
		}
		before := m.faceNormal(f)
		var p [3][3]float64
		for i, w := range t {
			if w == u {
				p[i] = target
			} else {
				p[i] = m.pos[w]
			}
		}
		after := cross(sub(p[1], p[0]), sub(p[2], p[0]))
		if dot(after, after) < minFaceArea2*minFaceArea2 {
			return false
		}
		if dot(before, after) <= 0 {
			return false
		}
		// Terrain stays a height field: no face may fold over in plan view.
		if before[2] > 0 && after[2] <= 0 {
			return false
		}
	}
	return true
}

// collapse moves u onto v, deleting the faces on edge (u, v).
func (d *decimator) collapse(u, v int32) {
	m := d.m
	for _, f := range m.incident[u] {
		t := &m.faces[f]
		if t[0] == v || t[1] == v || t[2] == v {
			m.faceAlive[f] = false
			m.liveFaces--
			for _, w := range t {
				if w != u {
					m.incident[w] = removeID(m.incident[w], f)
				}
			}
			continue
		}
		for i := range t {
			if t[i] == u {
				t[i] = v
			}
		}
		m.incident[v] = append(m.incident[v], f)
	}
	m.incident[u] = nil
	m.vertAlive[u] = false
	m.liveVerts--
	d.q[v].add(&d.q[u])

	d.refresh(v)
	d.ring = m.neighbors(v, d.ring)
	for _, w := range d.ring {
		d.refresh(w)
	}
}

// refresh invalidates queued entries of v and queues its current cheapest
// collapse.
func (d *decimator) refresh(v int32) {
	d.stamp[v]++
	if !d.m.vertAlive[v] || d.m.boundary[v] {
		return
	}
	if cost, ok := d.cheapest(v); ok {
		heap.Push(&d.queue, collapse{cost: cost, from: v, stamp: d.stamp[v]})
	}
}
