package lti

import (
	"fmt"

	"github.com/san-kum/ctrlkit/internal/dynamo"
	"gonum.org/v1/gonum/mat"
)

// StateSpace is a SISO realization dx/dt = Ax + Bu, y = Cx + Du. A static
// gain has no states and nil A, B and C.
type StateSpace struct {
	A, B, C, D *mat.Dense
}

func NewSS(a, b, c, d *mat.Dense) (*StateSpace, error) {
	if d == nil {
		return nil, fmt.Errorf("%w: D is required", ErrDimension)
	}
	if dr, dc := d.Dims(); dr != 1 || dc != 1 {
		return nil, fmt.Errorf("%w: D is %dx%d, want 1x1", ErrDimension, dr, dc)
	}
	if a == nil {
		if b != nil || c != nil {
			return nil, fmt.Errorf("%w: B and C require A", ErrDimension)
		}
		return &StateSpace{D: d}, nil
	}
	ar, ac := a.Dims()
	if ar != ac {
		return nil, fmt.Errorf("%w: A is %dx%d, want square", ErrDimension, ar, ac)
	}
	if b == nil || c == nil {
		return nil, fmt.Errorf("%w: B and C are required with A", ErrDimension)
	}
	if br, bc := b.Dims(); br != ar || bc != 1 {
		return nil, fmt.Errorf("%w: B is %dx%d, want %dx1", ErrDimension, br, bc, ar)
	}
	if cr, cc := c.Dims(); cr != 1 || cc != ar {
		return nil, fmt.Errorf("%w: C is %dx%d, want 1x%d", ErrDimension, cr, cc, ar)
	}
	return &StateSpace{A: a, B: b, C: c, D: d}, nil
}

// NewSSFromRows builds a realization from row-major slices.
func NewSSFromRows(a [][]float64, b, c []float64, d float64) (*StateSpace, error) {
	n := len(a)
	if n == 0 {
		return NewSS(nil, nil, nil, mat.NewDense(1, 1, []float64{d}))
	}
	data := make([]float64, 0, n*n)
	for i, row := range a {
		if len(row) != n {
			return nil, fmt.Errorf("%w: row %d of A has %d entries, want %d", ErrDimension, i, len(row), n)
		}
		data = append(data, row...)
	}
	if len(b) != n || len(c) != n {
		return nil, fmt.Errorf("%w: B has %d and C has %d entries, want %d", ErrDimension, len(b), len(c), n)
	}
	return NewSS(
		mat.NewDense(n, n, data),
		mat.NewDense(n, 1, append([]float64(nil), b...)),
		mat.NewDense(1, n, append([]float64(nil), c...)),
		mat.NewDense(1, 1, []float64{d}),
	)
}

func (s *StateSpace) StateDim() int {
	if s.A == nil {
		return 0
	}
	n, _ := s.A.Dims()
	return n
}

func (s *StateSpace) ControlDim() int { return 1 }

func (s *StateSpace) Matrices() (a, b *mat.Dense) { return s.A, s.B }

func (s *StateSpace) Derive(x dynamo.State, u dynamo.Control, t float64) dynamo.State {
	n := s.StateDim()
	dx := make(dynamo.State, n)
	for i := 0; i < n; i++ {
		sum := s.B.At(i, 0) * u[0]
		for j := 0; j < n; j++ {
			sum += s.A.At(i, j) * x[j]
		}
		dx[i] = sum
	}
	return dx
}

// Output is y = Cx + Du.
func (s *StateSpace) Output(x dynamo.State, u float64) float64 {
	y := s.D.At(0, 0) * u
	for j := 0; j < s.StateDim(); j++ {
		y += s.C.At(0, j) * x[j]
	}
	return y
}

// TF converts the realization with the Faddeev-LeVerrier recursion, which
// yields det(sI-A) and adj(sI-A) together.
func (s *StateSpace) TF() TransferFunction {
	n := s.StateDim()
	d := s.D.At(0, 0)
	if n == 0 {
		return Gain(d)
	}

	char := make(Poly, n+1)
	char[0] = 1
	num := make(Poly, n+1)
	num[0] = d

	m := mat.NewDense(n, n, nil)
	var am, mb, cmb mat.Dense
	for k := 1; k <= n; k++ {
		// M_k = A*M_{k-1} + c_{k-1}*I
		am.Mul(s.A, m)
		next := mat.DenseCopyOf(&am)
		for i := 0; i < n; i++ {
			next.Set(i, i, next.At(i, i)+char[k-1])
		}
		m = next

		am.Mul(s.A, m)
		char[k] = -mat.Trace(&am) / float64(k)

		mb.Mul(m, s.B)
		cmb.Mul(s.C, &mb)
		num[k] = cmb.At(0, 0)
	}
	for k := 1; k <= n; k++ {
		num[k] += d * char[k]
	}

	return TransferFunction{Num: num.Trim(), Den: char}
}

// StateSpace returns the controllable canonical realization of tf.
func (tf TransferFunction) StateSpace() (*StateSpace, error) {
	if !tf.IsProper() {
		return nil, ErrImproper
	}
	m := tf.Monic()
	n := m.Den.Degree()

	num := make(Poly, n+1)
	copy(num[n+1-len(m.Num):], m.Num)
	d := num[0]

	if n == 0 {
		return NewSS(nil, nil, nil, mat.NewDense(1, 1, []float64{d}))
	}

	a := mat.NewDense(n, n, nil)
	for j := 0; j < n; j++ {
		a.Set(0, j, -m.Den[j+1])
	}
	for i := 1; i < n; i++ {
		a.Set(i, i-1, 1)
	}
	b := mat.NewDense(n, 1, nil)
	b.Set(0, 0, 1)
	c := mat.NewDense(1, n, nil)
	for j := 0; j < n; j++ {
		c.Set(0, j, num[j+1]-d*m.Den[j+1])
	}
	return NewSS(a, b, c, mat.NewDense(1, 1, []float64{d}))
}
