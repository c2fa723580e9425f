// Package analysis provides frequency and state-space views of simulated
// or measured responses.
//
//   - [PowerSpectrum]: one-sided magnitude spectrum of a uniformly resampled curve
//   - [DominantFrequency]: strongest oscillation, used to cross-check fitted models
//   - [NewPhasePortrait]: two state variables of a trajectory plotted against each other
//
// A lightly damped step response oscillates at the damped natural
// frequency, so
//
//	hz, _ := analysis.DominantFrequency(resp, final)
//	wd := 2 * math.Pi * hz
//
// should agree with Wn*sqrt(1-Zeta^2) of a second-order fit.
package analysis
