package lppls

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"BubbleSentinel/internal/model"
)

const (
	// basisSize is the number of linear parameters (a, b, c1, c2).
	basisSize = 4
	// maxCondition is the largest condition number treated as solvable.
	maxCondition = 1e15
)

// SolveLinear derives (a, b, c1, c2) for fixed (tc, m, w) from the normal
// equations of the basis {1, f, g, h} where, with dT = |tc - t|,
//
//	f = dT^m, g = f cos(w ln dT), h = f sin(w ln dT).
//
// A singular or non-finite system yields all four values as NaN.
func SolveLinear(window model.Series, p model.NonlinearParams) model.LinearParams {
	// Fewer observations than unknowns always gives a rank-deficient Gram matrix.
	if len(window) < basisSize {
		return nanLinear()
	}

	gram := mat.NewSymDense(basisSize, nil)
	rhs := mat.NewVecDense(basisSize, nil)
	var basis [basisSize]float64
	for _, o := range window {
		dt := math.Abs(p.TC - o.T)
		phase := p.W * math.Log(dt)
		f := math.Pow(dt, p.M)
		basis = [basisSize]float64{1, f, f * math.Cos(phase), f * math.Sin(phase)}
		for i := 0; i < basisSize; i++ {
			for j := i; j < basisSize; j++ {
				gram.SetSym(i, j, gram.At(i, j)+basis[i]*basis[j])
			}
			rhs.SetVec(i, rhs.AtVec(i)+basis[i]*o.P)
		}
	}
	if !finiteSym(gram) || !finiteVec(rhs) {
		return nanLinear()
	}

	var lu mat.LU
	lu.Factorize(gram)
	if lu.Det() == 0 || lu.Cond() > maxCondition {
		return nanLinear()
	}
	var x mat.VecDense
	// SolveVecTo reports mat.Condition for ill-conditioned systems.
	if err := lu.SolveVecTo(&x, false, rhs); err != nil {
		return nanLinear()
	}
	if !finiteVec(&x) {
		return nanLinear()
	}
	return model.LinearParams{A: x.AtVec(0), B: x.AtVec(1), C1: x.AtVec(2), C2: x.AtVec(3)}
}

// IsNaN reports whether any of the linear params is NaN.
func IsNaN(l model.LinearParams) bool {
	return math.IsNaN(l.A) || math.IsNaN(l.B) || math.IsNaN(l.C1) || math.IsNaN(l.C2)
}

func nanLinear() model.LinearParams {
	nan := math.NaN()
	return model.LinearParams{A: nan, B: nan, C1: nan, C2: nan}
}

func finiteSym(m *mat.SymDense) bool {
	for i := 0; i < basisSize; i++ {
		for j := i; j < basisSize; j++ {
			if v := m.At(i, j); math.IsNaN(v) || math.IsInf(v, 0) {
				return false
			}
		}
	}
	return true
}

func finiteVec(v *mat.VecDense) bool {
	for i := 0; i < v.Len(); i++ {
		if x := v.AtVec(i); math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}
