package deform

import (
	"github.com/CBICA/greedy/internal/kernel"
	"github.com/CBICA/greedy/internal/ndimage"
	"github.com/CBICA/greedy/internal/rerr"
)

// InvertDisplacement computes the displacement v whose transform
// (id+v) approximately inverts (id+u), per §4.5's optional inverse-warp
// step: v(i) ← −u(i+v(i)), iterated until max_i ‖v(i)+u(i+v(i))‖ < tol
// (that residual is kernel.Compose(u, v)). When the direct
// Picard iteration stalls, u is halved (a first-order approximation of
// its diffeomorphic square root for small fields) and the inversion is
// retried on the smaller field, then squared back up via composition —
// up to maxSqrt halvings. Returns the best field found and a
// *rerr.NumericalWarning if no halving converged within maxIter steps.
func InvertDisplacement(u *ndimage.Image, maxSqrt, maxIter int, tol float64) (*ndimage.Image, error) {
	w := u.Clone()
	var best *ndimage.Image

	for attempt := 0; attempt <= maxSqrt; attempt++ {
		v := w.Clone()
		kernel.ScaleInPlace(v, -1)

		converged := false
		for it := 0; it < maxIter; it++ {
			// Compose(w, v) = v + w(i+v); subtracting it from v leaves −w(i+v).
			next := kernel.Compose(w, v)
			for i := range next.Data {
				next.Data[i] = v.Data[i] - next.Data[i]
			}
			v = next

			if kernel.MaxNorm(kernel.Compose(w, v)) < tol {
				converged = true
				break
			}
		}
		best = v

		if converged {
			for s := 0; s < attempt; s++ {
				v = kernel.Compose(v, v)
			}
			return v, nil
		}

		kernel.ScaleInPlace(w, 0.5)
	}

	return best, &rerr.NumericalWarning{What: "inverse warp did not converge within the square-root budget"}
}
