package affine

import "math"

// CheckDerivative compares the analytic gradient against a four-point
// central difference of cost at x0, returning the largest relative
// discrepancy across parameters, per §4.6's optional derivative-check
// debug mode.
func CheckDerivative(cost func([]float64) float64, grad func([]float64) []float64, x0 []float64, eps float64) float64 {
	analytic := grad(x0)
	var maxRelErr float64
	x := append([]float64(nil), x0...)
	for i := range x0 {
		orig := x[i]
		x[i] = orig + 2*eps
		fPlus2 := cost(x)
		x[i] = orig + eps
		fPlus := cost(x)
		x[i] = orig - eps
		fMinus := cost(x)
		x[i] = orig - 2*eps
		fMinus2 := cost(x)
		x[i] = orig

		numeric := (fMinus2 - 8*fMinus + 8*fPlus - fPlus2) / (12 * eps)
		denom := math.Max(math.Abs(numeric), 1e-8)
		if rel := math.Abs(numeric-analytic[i]) / denom; rel > maxRelErr {
			maxRelErr = rel
		}
	}
	return maxRelErr
}
