package l4assign

import "math"

// Solve implements the Kuhn–Munkres (Hungarian) algorithm for the
// rectangular assignment problem in O(n³). It returns assignment[i] = column
// assigned to row i, or -1 if row i is unassigned.
//
// The matrix is padded square with zeros. Forbidden cells (+Inf or NaN) are
// replaced by a penalty larger than any all-finite assignment total, so the
// solver first minimises the number of forbidden pairs and then the total
// cost. Any row that still lands on a forbidden cell is returned as -1.
func Solve(cost [][]float64) []int {
	n := len(cost)
	if n == 0 {
		return nil
	}
	m := len(cost[0])
	if m == 0 {
		return unassigned(n)
	}

	dim := n
	if m > dim {
		dim = m
	}

	maxFinite := 0.0
	for i := 0; i < n; i++ {
		for j := 0; j < m; j++ {
			if forbidden(cost[i][j]) {
				continue
			}
			maxFinite = math.Max(maxFinite, math.Abs(cost[i][j]))
		}
	}
	penalty := maxFinite*float64(dim) + 1

	c := make([][]float64, dim)
	for i := 0; i < dim; i++ {
		c[i] = make([]float64, dim)
		if i >= n {
			continue
		}
		for j := 0; j < m; j++ {
			if forbidden(cost[i][j]) {
				c[i][j] = penalty
			} else {
				c[i][j] = cost[i][j]
			}
		}
	}

	// Kuhn-Munkres with potentials (Jonker-Volgenant variant).
	// Uses 1-indexed arrays internally for cleaner index arithmetic.
	const inf = math.MaxFloat64 / 2

	u := make([]float64, dim+1) // Row potentials
	v := make([]float64, dim+1) // Column potentials
	p := make([]int, dim+1)     // p[j] = row assigned to column j
	way := make([]int, dim+1)   // way[j] = previous column in augmenting path
	minv := make([]float64, dim+1)
	used := make([]bool, dim+1)

	for i := 1; i <= dim; i++ {
		p[0] = i
		j0 := 0 // Virtual column

		for j := 1; j <= dim; j++ {
			minv[j] = inf
			used[j] = false
		}

		for {
			used[j0] = true
			i0 := p[j0]
			delta := inf
			j1 := -1

			for j := 1; j <= dim; j++ {
				if used[j] {
					continue
				}
				cur := c[i0-1][j-1] - u[i0] - v[j]
				if cur < minv[j] {
					minv[j] = cur
					way[j] = j0
				}
				if minv[j] < delta {
					delta = minv[j]
					j1 = j
				}
			}

			if j1 < 0 {
				break
			}

			for j := 0; j <= dim; j++ {
				if used[j] {
					u[p[j]] += delta
					v[j] -= delta
				} else {
					minv[j] -= delta
				}
			}

			j0 = j1
			if p[j0] == 0 {
				break
			}
		}

		// Augment along the path.
		for j0 != 0 {
			p[j0] = p[way[j0]]
			j0 = way[j0]
		}
	}

	rowAssign := make([]int, dim)
	for i := range rowAssign {
		rowAssign[i] = -1
	}
	for j := 1; j <= dim; j++ {
		if p[j] > 0 && p[j] <= dim {
			rowAssign[p[j]-1] = j - 1
		}
	}

	// Trim padding and drop forbidden pairs.
	result := make([]int, n)
	for i := 0; i < n; i++ {
		col := rowAssign[i]
		if col < 0 || col >= m || forbidden(cost[i][col]) {
			result[i] = -1
		} else {
			result[i] = col
		}
	}
	return result
}

func forbidden(c float64) bool {
	return math.IsInf(c, 1) || math.IsNaN(c)
}

func unassigned(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = -1
	}
	return out
}
