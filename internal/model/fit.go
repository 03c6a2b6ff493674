package model

// Parameter names addressable on a FitRecord.
const (
	FieldT1 = "t1"
	FieldT2 = "t2"
	FieldTC = "tc"
	FieldM  = "m"
	FieldW  = "w"
	FieldA  = "a"
	FieldB  = "b"
	FieldC  = "c"
	FieldC1 = "c1"
	FieldC2 = "c2"
	FieldO  = "O"
	FieldD  = "D"
)

// Fields lists every addressable FitRecord field in storage order.
var Fields = []string{
	FieldT1, FieldT2, FieldTC, FieldM, FieldW, FieldA, FieldB, FieldC, FieldC1, FieldC2, FieldO, FieldD,
}

// NonlinearParams are the free variables of the LPPLS optimization.
type NonlinearParams struct {
	TC float64 // critical time
	M  float64 // power-law exponent
	W  float64 // log-periodic angular frequency
}

// Vector returns the params as [tc, m, w].
func (p NonlinearParams) Vector() []float64 { return []float64{p.TC, p.M, p.W} }

// NonlinearFromVector is the inverse of NonlinearParams.Vector.
func NonlinearFromVector(x []float64) NonlinearParams {
	return NonlinearParams{TC: x[0], M: x[1], W: x[2]}
}

// LinearParams are solved in closed form for fixed nonlinear params.
type LinearParams struct {
	A  float64
	B  float64
	C1 float64
	C2 float64
}

// FitRecord is the outcome of fitting one observation window.
//
// Fitted is false when the search budget ran out without a successful
// optimization; all parameter fields are then zero and only T1/T2 are set.
type FitRecord struct {
	T1       float64
	T2       float64
	TC       float64
	M        float64
	W        float64
	A        float64
	B        float64
	C        float64
	C1       float64
	C2       float64
	O        float64 // number of oscillations
	D        float64 // damping
	Fitted   bool
	Searches int // optimizer runs performed
}

// Nonlinear returns the record's (tc, m, w).
func (r FitRecord) Nonlinear() NonlinearParams {
	return NonlinearParams{TC: r.TC, M: r.M, W: r.W}
}

// Linear returns the record's (a, b, c1, c2).
func (r FitRecord) Linear() LinearParams {
	return LinearParams{A: r.A, B: r.B, C1: r.C1, C2: r.C2}
}

// Field returns the value of the named field.
func (r FitRecord) Field(name string) (float64, bool) {
	switch name {
	case FieldT1:
		return r.T1, true
	case FieldT2:
		return r.T2, true
	case FieldTC:
		return r.TC, true
	case FieldM:
		return r.M, true
	case FieldW:
		return r.W, true
	case FieldA:
		return r.A, true
	case FieldB:
		return r.B, true
	case FieldC:
		return r.C, true
	case FieldC1:
		return r.C1, true
	case FieldC2:
		return r.C2, true
	case FieldO:
		return r.O, true
	case FieldD:
		return r.D, true
	}
	return 0, false
}

// NotFound builds the record returned when no fit succeeded for [t1, t2].
func NotFound(t1, t2 float64, searches int) FitRecord {
	return FitRecord{T1: t1, T2: t2, Searches: searches}
}
