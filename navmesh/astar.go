package navmesh

import (
	"container/heap"
	"math"
)

// astar searches from start to goal over walkable cells using 8-neighbours.
// Diagonal moves require both adjacent orthogonal cells to be walkable. When
// the goal is unreachable it returns the path to the explored cell closest
// to the goal and reached=false.
func (g *Grid) astar(start, goal cell, filter QueryFilter) (path []cell, reached bool) {
	if !g.walkable(start, filter) {
		return nil, false
	}

	n := g.w * g.h
	cameFrom := make([]int, n)
	for i := range cameFrom {
		cameFrom[i] = -1
	}
	gScore := make([]float64, n)
	for i := range gScore {
		gScore[i] = math.Inf(1)
	}
	closed := make([]bool, n)

	startIdx := g.index(start)
	gScore[startIdx] = 0
	goalIdx := -1
	if g.inBounds(goal) {
		goalIdx = g.index(goal)
	}

	open := &openSet{}
	heap.Init(open)
	heap.Push(open, &openItem{pos: start, f: octile(start, goal)})

	bestIdx := startIdx
	bestH := octile(start, goal)

	for open.Len() > 0 {
		cur := heap.Pop(open).(*openItem).pos
		curIdx := g.index(cur)
		if closed[curIdx] {
			continue
		}
		closed[curIdx] = true

		if curIdx == goalIdx {
			return reconstructPath(cameFrom, g.w, startIdx, goalIdx), true
		}
		if h := octile(cur, goal); h < bestH {
			bestH = h
			bestIdx = curIdx
		}

		for _, nb := range g.neighbors(cur, filter) {
			idx := g.index(nb.pos)
			if closed[idx] {
				continue
			}
			tentative := gScore[curIdx] + nb.cost
			if tentative < gScore[idx] {
				cameFrom[idx] = curIdx
				gScore[idx] = tentative
				heap.Push(open, &openItem{pos: nb.pos, f: tentative + octile(nb.pos, goal), g: tentative})
			}
		}
	}

	return reconstructPath(cameFrom, g.w, startIdx, bestIdx), false
}

func reconstructPath(cameFrom []int, gridW int, startIdx, goalIdx int) []cell {
	if startIdx == goalIdx {
		return []cell{{x: startIdx % gridW, z: startIdx / gridW}}
	}
	if goalIdx < 0 || goalIdx >= len(cameFrom) || cameFrom[goalIdx] == -1 {
		return nil
	}

	path := make([]cell, 0, 32)
	cur := goalIdx
	for cur != -1 {
		path = append(path, cell{x: cur % gridW, z: cur / gridW})
		if cur == startIdx {
			break
		}
		cur = cameFrom[cur]
	}

	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

type neighbor struct {
	pos  cell
	cost float64
}

func (g *Grid) neighbors(c cell, filter QueryFilter) []neighbor {
	out := make([]neighbor, 0, 8)
	for _, d := range [4]cell{{1, 0}, {-1, 0}, {0, 1}, {0, -1}} {
		n := cell{c.x + d.x, c.z + d.z}
		if g.walkable(n, filter) {
			out = append(out, neighbor{pos: n, cost: 1})
		}
	}
	for _, d := range [4]cell{{1, 1}, {1, -1}, {-1, 1}, {-1, -1}} {
		n := cell{c.x + d.x, c.z + d.z}
		if !g.walkable(n, filter) {
			continue
		}
		if !g.walkable(cell{c.x + d.x, c.z}, filter) || !g.walkable(cell{c.x, c.z + d.z}, filter) {
			continue
		}
		out = append(out, neighbor{pos: n, cost: math.Sqrt2})
	}
	return out
}

func octile(a, b cell) float64 {
	dx := math.Abs(float64(a.x - b.x))
	dz := math.Abs(float64(a.z - b.z))
	return math.Max(dx, dz) + (math.Sqrt2-1)*math.Min(dx, dz)
}

type openItem struct {
	pos   cell
	f     float64
	g     float64
	index int
}

type openSet []*openItem

func (o openSet) Len() int { return len(o) }
func (o openSet) Less(i, j int) bool {
	if o[i].f == o[j].f {
		return o[i].g > o[j].g
	}
	return o[i].f < o[j].f
}
func (o openSet) Swap(i, j int) {
	o[i], o[j] = o[j], o[i]
	o[i].index = i
	o[j].index = j
}
func (o *openSet) Push(x any) {
	item := x.(*openItem)
	item.index = len(*o)
	*o = append(*o, item)
}
func (o *openSet) Pop() any {
	old := *o
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*o = old[:n-1]
	return item
}
