// Package timetracker estimates a remote peer's clock (both its current
// time and its drift rate relative to the local clock) from a stream of
// noisy timestamp observations, using a small Kalman filter. The estimate
// lets a consumer correct timestamps received from a peer whose clock runs
// at a slightly different rate than the local one.
package timetracker

import (
	"time"

	"gonum.org/v1/gonum/mat"
)

const (
	resetThreshold   = 5.0
	trackingCeiling  = 10.0
	processNoiseBase = 0.001
	measurementNoise = 0.01
)

// Tracker maintains a 2-state estimate (time, rate) updated by Predict
// between observations and corrected by Update on each new observation.
type Tracker struct {
	xHat *mat.VecDense // [time_estimate, time_rate]
	p    *mat.Dense    // 2x2 estimation covariance

	prev    time.Time
	hasPrev bool

	now func() time.Time
}

// New returns a Tracker with zero initial state and identity covariance,
// matching an estimator that has seen no observations yet.
func New() *Tracker {
	return newWithClock(time.Now)
}

func newWithClock(now func() time.Time) *Tracker {
	return &Tracker{
		xHat: mat.NewVecDense(2, []float64{0, 0}),
		p:    identity2(),
		now:  now,
	}
}

func identity2() *mat.Dense {
	return mat.NewDense(2, 2, []float64{1, 0, 0, 1})
}

func (t *Tracker) reset(observation float64) {
	t.xHat = mat.NewVecDense(2, []float64{observation, 1})
	t.p = identity2()
	t.hasPrev = false
}

func (t *Tracker) dt() float64 {
	now := t.now()
	if !t.hasPrev {
		t.prev = now
		t.hasPrev = true
		return 0
	}
	dt := now.Sub(t.prev).Seconds()
	t.prev = now
	return dt
}

func frobeniusNormSquared(m *mat.Dense) float64 {
	r, c := m.Dims()
	sum := 0.0
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			v := m.At(i, j)
			sum += v * v
		}
	}
	return sum
}

// Predict advances the model by the time elapsed since the last
// Predict/Update call, growing the estimate's uncertainty. It is a no-op
// once the covariance has grown past trackingCeiling; at that point the
// estimate should be considered unreliable until the next Update resets
// it.
func (t *Tracker) Predict() {
	if frobeniusNormSquared(t.p) >= trackingCeiling*trackingCeiling {
		return
	}

	dt := t.dt()
	f := mat.NewDense(2, 2, []float64{1, dt, 0, 1})

	var xHat mat.VecDense
	xHat.MulVec(f, t.xHat)
	t.xHat = &xHat

	q := mat.NewDense(2, 2, []float64{processNoiseBase * dt, 0, 0, processNoiseBase * dt})

	var fp, fpft, p mat.Dense
	fp.Mul(f, t.p)
	fpft.Mul(&fp, f.T())
	p.Add(&fpft, q)
	t.p = &p
}

// Update folds in a newly observed value, first advancing the model with
// Predict. An observation that disagrees wildly with the current estimate
// (more than resetThreshold away) snaps the tracker back to that
// observation instead of slowly dragging the estimate toward it, on the
// assumption the peer's clock jumped rather than merely drifted.
func (t *Tracker) Update(observation float64) {
	t.Predict()

	h := mat.NewDense(1, 2, []float64{1, 0})

	var hx mat.VecDense
	hx.MulVec(h, t.xHat)
	innovation := observation - hx.AtVec(0)

	if abs(innovation) > resetThreshold {
		t.reset(observation)
		return
	}

	var hp, s mat.Dense
	hp.Mul(h, t.p)
	s.Mul(&hp, h.T())
	sValue := s.At(0, 0) + measurementNoise

	var pht mat.Dense
	pht.Mul(t.p, h.T())

	var k mat.Dense
	k.Scale(1/sValue, &pht)

	var correction mat.Dense
	correction.Scale(innovation, &k)

	var xHat mat.VecDense
	xHat.AddVec(t.xHat, correction.ColView(0))
	t.xHat = &xHat

	var kh, ikh, p mat.Dense
	kh.Mul(&k, h)
	ikh.Sub(identity2(), &kh)
	p.Mul(&ikh, t.p)
	t.p = &p
}

// Estimate returns the tracker's current best guess of the peer's time.
func (t *Tracker) Estimate() float64 {
	return t.xHat.AtVec(0)
}

// Rate returns the tracker's current best guess of the peer clock's speed
// relative to the local clock, where 1.0 means the clocks agree.
func (t *Tracker) Rate() float64 {
	return t.xHat.AtVec(1)
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
