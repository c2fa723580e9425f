package metrics_test

import (
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/ctrlkit/internal/metrics"
	"github.com/san-kum/ctrlkit/internal/response"
)

// underdamped is the unit step response of wn^2/(s^2 + 2*zeta*wn*s + wn^2),
// scaled by gain and offset by start.
func underdamped(zeta, wn, gain, start, dt, duration float64) response.Sampled {
	n := int(duration/dt) + 1
	t := make([]float64, n)
	y := make([]float64, n)
	wd := wn * math.Sqrt(1-zeta*zeta)
	for i := range t {
		t[i] = float64(i) * dt
		e := math.Exp(-zeta * wn * t[i])
		unit := 1 - e*(math.Cos(wd*t[i])+zeta/math.Sqrt(1-zeta*zeta)*math.Sin(wd*t[i]))
		y[i] = start + gain*unit
	}
	s, err := response.New("underdamped", t, y)
	Expect(err).NotTo(HaveOccurred())
	return s
}

var _ = Describe("Analyze", func() {
	const (
		zeta = 0.5
		wn   = 2.0
		dt   = 1e-3
	)

	expectedOvershoot := 100 * math.Exp(-math.Pi*zeta/math.Sqrt(1-zeta*zeta))
	expectedPeakTime := math.Pi / (wn * math.Sqrt(1-zeta*zeta))

	Context("with an underdamped rising response", func() {
		var m metrics.Metrics

		BeforeEach(func() {
			var err error
			m, err = metrics.Analyze(underdamped(zeta, wn, 1, 0, dt, 20), metrics.DefaultOptions())
			Expect(err).NotTo(HaveOccurred())
		})

		It("estimates the final value from the trailing window", func() {
			Expect(m.SteadyState).To(BeNumerically("~", 1, 1e-6))
		})

		It("matches the analytic overshoot and peak time", func() {
			Expect(m.OvershootPercent).To(BeNumerically("~", expectedOvershoot, 0.01))
			Expect(m.PeakTime).To(BeNumerically("~", expectedPeakTime, 2*dt))
			Expect(m.PeakValue).To(BeNumerically(">=", m.SteadyState))
		})

		It("reports the last band violation as settling time", func() {
			Expect(m.SettlingTime).To(BeNumerically(">", 3))
			Expect(m.SettlingTime).To(BeNumerically("<", 5))
		})

		It("keeps derived times inside the sampled window", func() {
			for _, v := range []float64{m.TimeConstant, m.PeakTime} {
				Expect(v).To(BeNumerically(">=", 0))
				Expect(v).To(BeNumerically("<=", 20))
			}
			Expect(m.RiseTime).To(BeNumerically(">", 0))
			Expect(m.RiseTime).To(BeNumerically("<", m.PeakTime))
		})
	})

	Context("with the same response mirrored and offset", func() {
		It("is direction agnostic", func() {
			rising, err := metrics.Analyze(underdamped(zeta, wn, 1, 0, dt, 20), metrics.DefaultOptions())
			Expect(err).NotTo(HaveOccurred())
			falling, err := metrics.Analyze(underdamped(zeta, wn, -1, -16, dt, 20), metrics.DefaultOptions())
			Expect(err).NotTo(HaveOccurred())

			Expect(falling.Direction).To(Equal(metrics.Falling))
			Expect(falling.SteadyState).To(BeNumerically("~", -17, 1e-6))
			Expect(falling.OvershootPercent).To(BeNumerically("~", rising.OvershootPercent, 1e-6))
			Expect(falling.RiseTime).To(BeNumerically("~", rising.RiseTime, 2*dt))
			Expect(falling.PeakTime).To(BeNumerically("~", rising.PeakTime, 2*dt))
			Expect(falling.PeakValue).To(BeNumerically("<=", falling.SteadyState))
		})
	})

	Context("with a step applied after the first sample", func() {
		It("measures settling from the reference time", func() {
			resp := underdamped(zeta, wn, 1, 0, dt, 20)
			opts := metrics.DefaultOptions()

			base, _ := metrics.Analyze(resp, opts)
			opts.ReferenceTime = 1.0
			shifted, _ := metrics.Analyze(resp, opts)

			Expect(shifted.SettlingTime).To(BeNumerically("~", base.SettlingTime-1.0, 1e-12))
		})
	})

	Context("with a monotonic first-order response", func() {
		It("finds tau and reports zero overshoot", func() {
			n := 5001
			t := make([]float64, n)
			y := make([]float64, n)
			for i := range t {
				t[i] = float64(i) * 0.01
				y[i] = 36.21 * (1 - math.Exp(-t[i]/7.4))
			}
			resp, err := response.New("first-order", t, y)
			Expect(err).NotTo(HaveOccurred())

			opts := metrics.DefaultOptions()
			opts.FinalValue = 36.21
			m, err := metrics.Analyze(resp, opts)
			Expect(err).NotTo(HaveOccurred())

			Expect(m.TimeConstant).To(BeNumerically("~", 7.4, 0.02))
			Expect(m.RiseTime).To(BeNumerically("~", 7.4*math.Log(9), 0.02))
			Expect(m.OvershootPercent).To(BeZero())
			Expect(m.PeakValue).To(BeNumerically(">", y[0]))
		})
	})

	Context("with too short a curve", func() {
		It("surfaces insufficient data instead of defaulting", func() {
			resp, err := response.New("short", []float64{0, 1, 2}, []float64{0, 1, 1})
			Expect(err).NotTo(HaveOccurred())

			m, err := metrics.Analyze(resp, metrics.DefaultOptions())
			Expect(err).To(MatchError(metrics.ErrInsufficientData))
			Expect(math.IsNaN(m.SteadyState)).To(BeTrue())
		})
	})
})
