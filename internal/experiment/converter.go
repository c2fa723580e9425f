package experiment

import (
	"context"
	"fmt"

	"github.com/go-logr/logr"
	"github.com/san-kum/ctrlkit/internal/config"
	"github.com/san-kum/ctrlkit/internal/converter"
	"github.com/san-kum/ctrlkit/internal/export"
)

// perSecond scales converter times for display in µs.
var perSecond = converter.Microseconds(1)

// runConverter designs the proportional controller for the buck-boost
// plant and compares the open and closed loop responses.
func runConverter(ctx context.Context, cfg *config.Config, log logr.Logger) (*Report, error) {
	rep := newReport("dcdc", cfg)
	study := cfg.Converter
	if study.Method == "" {
		study.Method = cfg.Simulation.Method
	}
	study.Logger = log
	rep.Method = study.Method

	res, err := study.Run(ctx)
	if err != nil {
		return nil, err
	}
	rep.Notes = append(rep.Notes, res.Notes...)

	p := study.Params
	plant := rep.Section("Plant")
	plant.Add("Vi, L, C, Ro, D", "%g V, %g µH, %g µF, %g Ω, %g", p.Vi, p.L*1e6, p.C*1e6, p.Ro, p.D)
	plant.Add("operating point Vo", "%.2f V", res.OperatingPoint)
	plant.Add("natural frequency", "%.4g rad/s", p.NaturalFrequency())
	plant.Line("Gvd(s) =")
	plant.Line("%s", res.Plant)

	design := rep.Section("Proportional design")
	design.Add("target error", "%.1f%%", 100*study.TargetError)
	design.Add("Gvd(0)", "%.4g V", res.Design.PlantDC)
	design.Add("controller K", "%.4f", res.K)
	design.Add("Kp achieved", "%.3f (target %.4g)", res.AchievedKp, res.Design.DesiredKp)
	design.Line("T(s) =")
	design.Line("%s", res.Closed)

	open := rep.Section("Open loop (duty step)")
	open.Add("duty step", "%.4f", study.DutyStep)
	open.Add("steady-state change", "%.3f V", study.DutyStep*res.Design.PlantDC)
	open.Add("final voltage", "%.3f V", res.OpenLoopFinal)
	addMetrics(open, res.OpenLoopMetrics, perSecond, "µs")

	closed := rep.Section("Closed loop (reference step)")
	closed.Add("reference step", "%.2f V", study.RefStep)
	closed.Add("desired voltage", "%.3f V", res.Desired)
	closed.Add("final voltage", "%.3f V", res.ClosedLoopFinal)
	closed.Add("steady-state error", "%.3f V (%.1f%%)", res.SteadyStateError, res.SteadyStateErrorPercent)
	addMetrics(closed, res.Metrics, perSecond, "µs")

	rep.Record("open", res.OpenLoopMetrics)
	rep.Record("closed", res.Metrics)
	rep.Metrics["k"] = res.K
	rep.Metrics["achieved_kp"] = res.AchievedKp
	rep.Metrics["open.final_voltage"] = res.OpenLoopFinal
	rep.Metrics["closed.final_voltage"] = res.ClosedLoopFinal
	rep.Metrics["closed.steady_state_error"] = res.SteadyStateError
	rep.Metrics["closed.steady_state_error_percent"] = res.SteadyStateErrorPercent

	rep.AddResponse(res.OpenLoop)
	rep.AddResponse(res.ClosedLoop)

	cf := export.NewFigure("closed_loop", "Closed-loop response", "time [ms]", "output voltage Vo [V]")
	cf.TimeScale = 1000
	cf.AddLine("closed loop (reference step)", res.ClosedLoop, export.Red).
		AddVLine("step", study.StepTime, export.Black).
		AddHLine(fmt.Sprintf("desired (%.2f V)", res.Desired), res.Desired, export.Green).
		AddHLine(fmt.Sprintf("closed-loop steady state (%.2f V)", res.ClosedLoopFinal), res.ClosedLoopFinal, export.Red)
	rep.AddFigure(cf)

	of := export.NewFigure("open_loop", "Open-loop response", "time [ms]", "output voltage Vo [V]")
	of.TimeScale = 1000
	of.AddLine("open loop (duty step)", res.OpenLoop, export.Blue).
		AddVLine("step", study.StepTime, export.Black).
		AddHLine(fmt.Sprintf("initial (%.2f V)", res.OperatingPoint), res.OperatingPoint, export.Gray).
		AddHLine(fmt.Sprintf("open-loop steady state (%.2f V)", res.OpenLoopFinal), res.OpenLoopFinal, export.Blue)
	rep.AddFigure(of)

	rep.Summary = fmt.Sprintf("K=%.4f, ess=%.1f%%, overshoot=%s, Ts=%s",
		res.K, res.SteadyStateErrorPercent,
		formatValue(res.Metrics.OvershootPercent, 1, "%"),
		formatValue(res.Metrics.SettlingTime, perSecond, "µs"))
	return rep, nil
}
