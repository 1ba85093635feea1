package model

// Path-dependent TreeSHAP (Lundberg et al., "Consistent Individualized
// Feature Attribution for Tree Ensembles", Algorithm 2). Node covers stand
// in for the training distribution.

type pathElement struct {
	feature      int
	zeroFraction float64
	oneFraction  float64
	weight       float64
}

func extendPath(path []pathElement, depth int, zeroFraction, oneFraction float64, feature int) {
	path[depth] = pathElement{
		feature:      feature,
		zeroFraction: zeroFraction,
		oneFraction:  oneFraction,
	}
	if depth == 0 {
		path[depth].weight = 1
	}
	for i := depth - 1; i >= 0; i-- {
		path[i+1].weight += oneFraction * path[i].weight * float64(i+1) / float64(depth+1)
		path[i].weight = zeroFraction * path[i].weight * float64(depth-i) / float64(depth+1)
	}
}

func unwindPath(path []pathElement, depth, index int) {
	one := path[index].oneFraction
	zero := path[index].zeroFraction
	next := path[depth].weight

	for i := depth - 1; i >= 0; i-- {
		if one != 0 {
			tmp := path[i].weight
			path[i].weight = next * float64(depth+1) / (float64(i+1) * one)
			next = tmp - path[i].weight*zero*float64(depth-i)/float64(depth+1)
		} else if zero != 0 {
			path[i].weight = path[i].weight * float64(depth+1) / (zero * float64(depth-i))
		}
	}

	for i := index; i < depth; i++ {
		path[i].feature = path[i+1].feature
		path[i].zeroFraction = path[i+1].zeroFraction
		path[i].oneFraction = path[i+1].oneFraction
	}
}

// unwoundPathSum is the total permutation weight of the path with element
// index removed, without modifying the path.
func unwoundPathSum(path []pathElement, depth, index int) float64 {
	one := path[index].oneFraction
	zero := path[index].zeroFraction
	next := path[depth].weight
	total := 0.0

	for i := depth - 1; i >= 0; i-- {
		if one != 0 {
			tmp := next * float64(depth+1) / (float64(i+1) * one)
			total += tmp
			next = path[i].weight - tmp*zero*float64(depth-i)/float64(depth+1)
		} else if zero != 0 {
			total += path[i].weight / zero / (float64(depth-i) / float64(depth+1))
		}
	}
	return total
}

// shap adds this tree's contributions for x to phi.
func (t *tree) shap(x []float32, phi []float64) {
	t.recurse(0, x, phi, nil, 0, 1, 1, -1)
}

func (t *tree) recurse(i int, x []float32, phi []float64, parent []pathElement, depth int,
	zeroFraction, oneFraction float64, feature int) {
	path := make([]pathElement, depth+1)
	copy(path, parent[:depth])
	extendPath(path, depth, zeroFraction, oneFraction, feature)

	if t.isLeaf(i) {
		leaf := float64(t.value[i])
		for k := 1; k <= depth; k++ {
			w := unwoundPathSum(path, depth, k)
			el := path[k]
			if el.feature >= 0 && el.feature < len(phi) {
				phi[el.feature] += w * (el.oneFraction - el.zeroFraction) * leaf
			}
		}
		return
	}

	n := t.nodes[i]
	hot := t.next(i, x)
	cold := n.right
	if hot == n.right {
		cold = n.left
	}

	var hotZero, coldZero float64
	if n.cover > 0 {
		hotZero = t.nodes[hot].cover / n.cover
		coldZero = t.nodes[cold].cover / n.cover
	}

	incomingZero, incomingOne := 1.0, 1.0

	// A feature split on again further down is folded into its earlier
	// path element.
	k := 0
	for ; k <= depth; k++ {
		if path[k].feature == n.feature {
			break
		}
	}
	if k != depth+1 {
		incomingZero = path[k].zeroFraction
		incomingOne = path[k].oneFraction
		unwindPath(path, depth, k)
		depth--
	}

	t.recurse(hot, x, phi, path, depth+1, hotZero*incomingZero, incomingOne, n.feature)
	t.recurse(cold, x, phi, path, depth+1, coldZero*incomingZero, 0, n.feature)
}
