package execution

import "math"

const (
	// StrikeTolerance bounds both the final bracket width and the
	// objective value accepted as a root.
	StrikeTolerance = 1e-4

	lowerBracket = 0.5
	upperBracket = 1.5
)

// Bisect halves [lo, hi] until it is narrower than tol. f is assumed to
// fall as its argument rises: a positive value moves the lower bound up.
// It returns early once |f(mid)| < tol. No sign check is made on the
// bracket; when no root is found the midpoint of the final bracket is
// returned without error. Only errors from f itself are reported.
func Bisect(f func(float64) (float64, error), lo, hi, tol float64) (float64, error) {
	for hi-lo > tol {
		mid := (lo + hi) / 2
		diff, err := f(mid)
		if err != nil {
			return 0, err
		}
		if math.Abs(diff) < tol {
			return mid, nil
		}
		if diff > 0 {
			lo = mid
		} else {
			hi = mid
		}
	}
	return (lo + hi) / 2, nil
}
