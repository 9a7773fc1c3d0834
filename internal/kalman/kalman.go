// Package kalman implements the per-Actuator motion Kalman filter: a
// small discrete linear Kalman filter fusing an arbitrary number of
// single-variable sensors into a POSITION/VELOCITY/ACCELERATION/FORCE
// state estimate.
package kalman

import (
	"github.com/arobi-robotics/robotd/pkg/errs"
	"gonum.org/v1/gonum/mat"
)

// Variable names one of the four motion state components. Note this
// ordering (POSITION, VELOCITY, ACCELERATION, FORCE) differs from the
// wire codec's record field order; the two are independent and must not
// be confused.
type Variable int

const (
	Position Variable = iota
	Velocity
	Acceleration
	Force
	numVariables
)

// State is the filter's estimate after a Predict/Update cycle.
type State struct {
	Position     float64
	Velocity     float64
	Acceleration float64
	Force        float64
}

// Get returns the component named by v.
func (s State) Get(v Variable) float64 {
	switch v {
	case Position:
		return s.Position
	case Velocity:
		return s.Velocity
	case Acceleration:
		return s.Acceleration
	case Force:
		return s.Force
	default:
		return 0
	}
}

// Measurement binds one sensor reading slot to the state variable it
// measures, with its measurement deviation (used as the diagonal of R).
type Measurement struct {
	Variable  Variable
	Deviation float64
}

// Filter is a discrete linear Kalman filter over the 4-component motion
// state, fed by an arbitrary number of single-variable sensors.
type Filter struct {
	numSensors int
	h          *mat.Dense    // numSensors x numVariables, one-hot per row
	r          *mat.SymDense // numSensors x numSensors, diagonal

	a *mat.Dense // numVariables x numVariables transition matrix
	q *mat.SymDense

	x *mat.VecDense // numVariables x 1 state
	p *mat.SymDense // numVariables x numVariables covariance

	z *mat.VecDense // numSensors x 1 pending measurement vector
}

// New builds a Filter for the given sensor bindings. A sensor whose
// Variable is out of range is a configuration error.
func New(measurements []Measurement) (*Filter, error) {
	n := len(measurements)

	h := mat.NewDense(n, int(numVariables), nil)
	rDiag := make([]float64, n*n)
	for i, m := range measurements {
		if m.Variable < 0 || m.Variable >= numVariables {
			return nil, errs.Configuration("kalman", "measurement %d: invalid variable %d", i, m.Variable)
		}
		h.Set(i, int(m.Variable), 1.0)
		deviation := m.Deviation
		if deviation <= 0 {
			deviation = 1.0
		}
		rDiag[i*n+i] = deviation * deviation
	}

	f := &Filter{
		numSensors: n,
		h:          h,
		r:          mat.NewSymDense(n, rDiag),
		a:          mat.NewDense(int(numVariables), int(numVariables), nil),
		q:          mat.NewSymDense(int(numVariables), nil),
		x:          mat.NewVecDense(int(numVariables), nil),
		p:          mat.NewSymDense(int(numVariables), nil),
		z:          mat.NewVecDense(n, nil),
	}
	f.Reset()
	return f, nil
}

// Reset clears the state estimate to zero, sets the covariance to a high
// initial uncertainty, and restores the transition matrix to identity
// (no cross-variable coupling until SetTransitionFactor is called again).
func (f *Filter) Reset() {
	for i := 0; i < int(numVariables); i++ {
		f.x.SetVec(i, 0)
		for j := 0; j < int(numVariables); j++ {
			f.a.Set(i, j, 0)
			f.p.SetSym(i, j, 0)
		}
		f.a.Set(i, i, 1.0)
		f.p.SetSym(i, i, 1000.0)
		f.q.SetSym(i, i, 0.01)
	}
}

// SetTransitionFactor sets A[row, col], the contribution of the previous
// tick's col variable to the predicted row variable. Call this once per
// tick before Predict with the actuator's control-loop timeDelta (the
// POSITION<-VELOCITY, POSITION<-ACCELERATION and VELOCITY<-ACCELERATION
// factors of the kinematic integration).
func (f *Filter) SetTransitionFactor(row, col Variable, value float64) {
	f.a.Set(int(row), int(col), value)
}

// SetMeasure stages the sensorIndex-th sensor's latest reading for the
// next Update call.
func (f *Filter) SetMeasure(sensorIndex int, value float64) {
	f.z.SetVec(sensorIndex, value)
}

// Predict advances the state estimate one tick using the current
// transition matrix, returning the predicted (prior) state.
func (f *Filter) Predict() State {
	var predicted mat.VecDense
	predicted.MulVec(f.a, f.x)
	f.x.CopyVec(&predicted)

	var ap mat.Dense
	ap.Mul(f.a, f.p)
	var apat mat.Dense
	apat.Mul(&ap, f.a.T())

	n := int(numVariables)
	data := make([]float64, n*n)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			v := apat.At(i, j)
			if i == j {
				v += f.q.At(i, i)
			}
			data[i*n+j] = v
		}
	}
	f.p = symFromUpper(n, data)

	return f.currentState()
}

// Update folds in every staged measurement (set via SetMeasure since the
// last Update) and returns the posterior state estimate. If the
// innovation covariance is singular, the update is skipped: the prior
// state from Predict is returned unchanged and a NumericalInstability
// error is returned so the caller can log and continue rather than
// corrupt the estimate.
func (f *Filter) Update() (State, error) {
	if f.numSensors == 0 {
		return f.currentState(), nil
	}

	var expected mat.VecDense
	expected.MulVec(f.h, f.x)

	innovation := mat.NewVecDense(f.numSensors, nil)
	for i := 0; i < f.numSensors; i++ {
		innovation.SetVec(i, f.z.AtVec(i)-expected.AtVec(i))
	}

	var hp mat.Dense
	hp.Mul(f.h, f.p)
	var s mat.Dense
	s.Mul(&hp, f.h.T())
	for i := 0; i < f.numSensors; i++ {
		s.Set(i, i, s.At(i, i)+f.r.At(i, i))
	}

	var sInv mat.Dense
	if err := sInv.Inverse(&s); err != nil {
		return f.currentState(), errs.Numerical("kalman", "singular innovation covariance: %v", err)
	}

	var pht mat.Dense
	pht.Mul(f.p, f.h.T())
	var k mat.Dense
	k.Mul(&pht, &sInv)

	var correction mat.VecDense
	correction.MulVec(&k, innovation)
	f.x.AddVec(f.x, &correction)

	n := int(numVariables)
	var kh mat.Dense
	kh.Mul(&k, f.h)
	identity := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		identity.Set(i, i, 1.0)
	}
	var iMinusKH mat.Dense
	iMinusKH.Sub(identity, &kh)
	var updated mat.Dense
	updated.Mul(&iMinusKH, f.p)

	data := make([]float64, n*n)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			data[i*n+j] = updated.At(i, j)
		}
	}
	f.p = symFromUpper(n, data)

	return f.currentState(), nil
}

func (f *Filter) currentState() State {
	return State{
		Position:     f.x.AtVec(int(Position)),
		Velocity:     f.x.AtVec(int(Velocity)),
		Acceleration: f.x.AtVec(int(Acceleration)),
		Force:        f.x.AtVec(int(Force)),
	}
}

// symFromUpper builds a SymDense from an n*n row-major buffer populated
// only above (and on) the diagonal.
func symFromUpper(n int, upper []float64) *mat.SymDense {
	full := make([]float64, n*n)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			full[i*n+j] = upper[i*n+j]
			full[j*n+i] = upper[i*n+j]
		}
	}
	return mat.NewSymDense(n, full)
}
