package cmd

import (
	"fmt"
	"log"
	"strconv"

	"github.com/pkg/profile"
	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/chat2snack/snacksim/analysis"
	"github.com/chat2snack/snacksim/config"
	"github.com/chat2snack/snacksim/monitoring"
	"github.com/chat2snack/snacksim/sim"
	"github.com/chat2snack/snacksim/simulation"
	"github.com/chat2snack/snacksim/snack/machine"
	"github.com/chat2snack/snacksim/snack/snack"
	"github.com/chat2snack/snacksim/tracing"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a dispense scenario against the simulated board.",
	Long: `Run builds a board, sends the given command words over the ` +
		`simulated serial line, and runs the simulation until the board ` +
		`goes quiet. Orders given with --order carry the GO flag and start ` +
		`dispensing; raw words given with --command are sent verbatim.

The board runs at the configured clock frequency, 50 MHz by default. At
that rate a half-second push is 25 million cycles, so scale the clock
down with --clock-hz for quick experiments.`,
	Example: `  snacksim run --order burger=1,pizza=1
  snacksim run --order fries=2 --order soda=3 --clear
  snacksim run --command 0x0009 --command 0x8009 --clock-hz 100000
  snacksim run --order burger=1 --clock-hz 1000000 --bit-rate 9600 --csv-trace board
  snacksim run --order soda=2 --clock-hz 100000 --perf --perf-period 0.01`,
	Run: func(cmd *cobra.Command, _ []string) {
		runScenario(cmd)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringArray("order", nil,
		"order to dispense, as name=count pairs such as \"burger=1,fries=2\"; repeatable")
	runCmd.Flags().StringArray("command", nil,
		"raw 16-bit command word, such as 0x8009; repeatable, sent after the orders")
	runCmd.Flags().Bool("clear", false,
		"send the all-zero word at the end to blank the command register")
	runCmd.Flags().StringSlice("at", nil,
		"send times in seconds, one per word; default spaces the words so each order finishes")

	runCmd.Flags().String("config", "",
		"YAML configuration file; defaults come from the reference board")
	runCmd.Flags().Float64("clock-hz", 0, "override the board clock frequency")
	runCmd.Flags().Int("bit-rate", 0, "override the serial bit rate")
	runCmd.Flags().Float64("push-duration-ms", 0,
		"override the actuation phase length")

	runCmd.Flags().String("output", "",
		"base name for the result database and trace files")
	runCmd.Flags().Bool("trace-vis", false,
		"record task traces into the result database for visualization")
	runCmd.Flags().String("csv-trace", "",
		"write task traces to the named CSV file")
	runCmd.Flags().String("event-log", "",
		"log every event to the named file, rotated at 100 MB")

	runCmd.Flags().Bool("monitor", false, "serve the monitoring API while running")
	runCmd.Flags().Int("monitor-port", 0, "port for the monitoring API, 0 picks one")
	runCmd.Flags().Bool("open-browser", false, "open the monitoring page in a browser")

	runCmd.Flags().Bool("perf", false,
		"record port traffic, buffer levels, and wire duty cycles")
	runCmd.Flags().Float64("perf-period", 0,
		"performance sampling period in seconds, 0 reports whole-run totals")
	runCmd.Flags().Bool("perf-sqlite", false,
		"write performance metrics to SQLite instead of CSV")

	runCmd.Flags().Bool("cpuprofile", false, "write a CPU profile of the run")
}

func runScenario(cmd *cobra.Command) {
	cfg := loadRunConfig(cmd)
	words := scenarioWords(cmd)

	if on, _ := cmd.Flags().GetBool("cpuprofile"); on {
		defer profile.Start(profile.CPUProfile, profile.ProfilePath(".")).Stop()
	}

	s := buildSimulation(cmd, cfg)
	defer s.Terminate()

	engine := s.GetEngine()
	attachEventLog(cmd, engine)

	board := machine.MakeBuilder().
		WithSimulation(s).
		WithFreq(cfg.ClockFreq()).
		WithBitRate(cfg.Serial.BitRate).
		WithPulsePeriod(cfg.PulsePeriod()).
		WithPulseWidths(cfg.PulseWidths()).
		WithPushDuration(cfg.PushDuration()).
		WithLineDriver().
		Build("Board")

	orderTracer, busyTracers := attachTracers(cmd, s, board)
	attachPerfAnalyzer(cmd, s, board)
	finishProgress := attachOrderProgress(s, board, words)

	times := sendTimes(cmd, words, cfg)
	for i, w := range words {
		board.Driver.ScheduleCommand(times[i], w)
		fmt.Printf("t=%-10.6f send %s\n", float64(times[i]), w)
	}

	if err := engine.Run(); err != nil {
		log.Fatalf("simulation failed: %v", err)
	}

	finishProgress()
	printReport(engine, board, orderTracer, busyTracers)
}

func loadRunConfig(cmd *cobra.Command) *config.Config {
	path, _ := cmd.Flags().GetString("config")

	cfg, err := config.Load(path)
	if err != nil {
		log.Fatalf("%v", err)
	}

	if hz, _ := cmd.Flags().GetFloat64("clock-hz"); hz > 0 {
		cfg.Board.ClockHz = hz
	}

	if rate, _ := cmd.Flags().GetInt("bit-rate"); rate > 0 {
		cfg.Serial.BitRate = rate
	}

	if ms, _ := cmd.Flags().GetFloat64("push-duration-ms"); ms > 0 {
		cfg.Board.PushDurationMs = ms
	}

	if err := cfg.Validate(); err != nil {
		log.Fatalf("%v", err)
	}

	return cfg
}

// scenarioWords assembles the word sequence: orders first, each with the
// GO flag, then raw words, then the optional trailing clear. Without any
// flags the scenario is a single one-burger-one-pizza order.
func scenarioWords(cmd *cobra.Command) []snack.Command {
	var words []snack.Command

	orders, _ := cmd.Flags().GetStringArray("order")
	for _, o := range orders {
		w, err := snack.ParseOrder(o)
		if err != nil {
			log.Fatalf("bad --order %q: %v", o, err)
		}

		words = append(words, w.WithGo(true))
	}

	raws, _ := cmd.Flags().GetStringArray("command")
	for _, r := range raws {
		v, err := strconv.ParseUint(r, 0, 16)
		if err != nil {
			log.Fatalf("bad --command %q: %v", r, err)
		}

		words = append(words, snack.Command(v))
	}

	if len(words) == 0 {
		w, _ := snack.ParseOrder("burger=1,pizza=1")
		words = append(words, w.WithGo(true))
	}

	if clear, _ := cmd.Flags().GetBool("clear"); clear {
		words = append(words, snack.Command(0))
	}

	return words
}

func buildSimulation(
	cmd *cobra.Command,
	cfg *config.Config,
) *simulation.Simulation {
	builder := simulation.MakeBuilder()

	monitorOn, _ := cmd.Flags().GetBool("monitor")
	if !monitorOn && !cfg.Monitor.Enabled {
		builder = builder.WithoutMonitoring()
	}

	port, _ := cmd.Flags().GetInt("monitor-port")
	if port == 0 {
		port = cfg.Monitor.Port
	}
	if port > 0 {
		builder = builder.WithMonitorPort(port)
	}

	if open, _ := cmd.Flags().GetBool("open-browser"); open {
		builder = builder.WithBrowserOpen()
	}

	if name, _ := cmd.Flags().GetString("output"); name != "" {
		builder = builder.WithOutputFileName(name)
	}

	return builder.Build()
}

func attachEventLog(cmd *cobra.Command, engine sim.Engine) {
	path, _ := cmd.Flags().GetString("event-log")
	if path == "" {
		return
	}

	writer := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    100,
		MaxBackups: 3,
	}

	engine.AcceptHook(sim.NewEventLogger(log.New(writer, "", 0)))
}

// attachTracers wires the order and per-slot busy-time tracers, plus the
// optional visualization and CSV trace collectors, onto the board.
func attachTracers(
	cmd *cobra.Command,
	s *simulation.Simulation,
	board *machine.Machine,
) (*tracing.TotalTimeTracer, [snack.NumItems]*tracing.BusyTimeTracer) {
	engine := s.GetEngine()

	orderTracer := tracing.NewTotalTimeTracer(engine,
		func(t tracing.Task) bool { return t.Kind == "order" })
	tracing.CollectTrace(board.Sequencer, orderTracer)

	var busyTracers [snack.NumItems]*tracing.BusyTimeTracer
	for _, item := range snack.VisitOrder {
		tracer := tracing.NewBusyTimeTracer(engine,
			func(t tracing.Task) bool { return t.Kind == "dispense" })
		tracing.CollectTrace(board.Controllers[item], tracer)
		busyTracers[item] = tracer
	}

	var collectors []tracing.Tracer

	if vis, _ := cmd.Flags().GetBool("trace-vis"); vis {
		collectors = append(collectors, s.GetVisTracer())
	}

	if path, _ := cmd.Flags().GetString("csv-trace"); path != "" {
		backend := tracing.NewCSVTraceWriter(path)
		collectors = append(collectors, tracing.NewDBTracer(engine, backend))
	}

	for _, tracer := range collectors {
		for _, comp := range board.Components() {
			tracing.CollectTrace(comp.(sim.NamedHookable), tracer)
		}
	}

	return orderTracer, busyTracers
}

// orderProgressTracer advances a monitoring progress bar as the sequencer
// starts and finishes orders.
type orderProgressTracer struct {
	bar      *monitoring.ProgressBar
	inflight map[string]bool
}

func (t *orderProgressTracer) StartTask(task tracing.Task) {
	if task.Kind != "order" {
		return
	}

	t.inflight[task.ID] = true
	t.bar.IncrementInProgress(1)
}

func (t *orderProgressTracer) StepTask(_ tracing.Task) {
	// Do nothing
}

// EndTask only carries the task ID, so membership in inflight decides
// whether the ended task was an order.
func (t *orderProgressTracer) EndTask(task tracing.Task) {
	if !t.inflight[task.ID] {
		return
	}

	delete(t.inflight, task.ID)
	t.bar.MoveInProgressToFinished(1)
}

// attachOrderProgress puts an order progress bar on the monitoring page. The
// returned function removes the bar once the run is over.
func attachOrderProgress(
	s *simulation.Simulation,
	board *machine.Machine,
	words []snack.Command,
) func() {
	m := s.GetMonitor()
	if m == nil {
		return func() {}
	}

	total := uint64(0)
	for _, w := range words {
		if w.Go() {
			total++
		}
	}

	bar := m.CreateProgressBar("orders served", total)
	tracing.CollectTrace(board.Sequencer, &orderProgressTracer{
		bar:      bar,
		inflight: map[string]bool{},
	})

	return func() { m.CompleteProgressBar(bar) }
}

// attachPerfAnalyzer registers the board's ports, buffers, and wires with a
// performance analyzer when --perf is given.
func attachPerfAnalyzer(
	cmd *cobra.Command,
	s *simulation.Simulation,
	board *machine.Machine,
) {
	if on, _ := cmd.Flags().GetBool("perf"); !on {
		return
	}

	builder := analysis.MakePerfAnalyzerBuilder()

	if period, _ := cmd.Flags().GetFloat64("perf-period"); period > 0 {
		builder = builder.WithPeriod(sim.VTimeInSec(period))
	}

	if sqlite, _ := cmd.Flags().GetBool("perf-sqlite"); sqlite {
		builder = builder.WithSQLiteBackend()
	}

	if name, _ := cmd.Flags().GetString("output"); name != "" {
		builder = builder.WithDBFilename(name + "_perf")
	}

	pa := builder.Build()
	pa.RegisterEngine(s.GetEngine())

	for _, c := range board.Components() {
		pa.RegisterComponent(c)
	}

	pa.RegisterSignal(board.RxLine())
	pa.RegisterSignal(board.SequencerBusy())
	for _, item := range snack.VisitOrder {
		pa.RegisterSignal(board.Busy(item))
		pa.RegisterSignal(board.Indicator(item))
		pa.RegisterSignal(board.Pulse(item))
	}

	if m := s.GetMonitor(); m != nil {
		m.RegisterPerfAnalyzer(pa)
	}
}

// sendTimes spaces the words so that each GO word's dispensing finishes
// before the next word goes out, unless --at gives explicit times.
func sendTimes(
	cmd *cobra.Command,
	words []snack.Command,
	cfg *config.Config,
) []sim.VTimeInSec {
	times := make([]sim.VTimeInSec, len(words))

	explicit, _ := cmd.Flags().GetStringSlice("at")
	if len(explicit) > 0 {
		if len(explicit) != len(words) {
			log.Fatalf("--at needs %d times, got %d", len(words), len(explicit))
		}

		for i, s := range explicit {
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				log.Fatalf("bad --at %q: %v", s, err)
			}

			times[i] = sim.VTimeInSec(v)
		}

		return times
	}

	// Two 10-bit frames plus the inter-frame gap on the wire, then the
	// dispensing span, then one extra push duration of margin for the
	// sequencer handshakes.
	serialSpan := sim.VTimeInSec(
		float64(2*10+cfg.Serial.GapBits) / float64(cfg.Serial.BitRate))

	t := sim.VTimeInSec(0)
	for i, w := range words {
		times[i] = t
		t += serialSpan + dispenseSpan(w, cfg.PushDuration()) + cfg.PushDuration()
	}

	return times
}

// dispenseSpan returns the time the board spends dispensing a word: each
// item with count n holds its slot busy for (3n-1) push durations. Words
// without the GO flag only latch and take no time.
func dispenseSpan(w snack.Command, pushDuration sim.VTimeInSec) sim.VTimeInSec {
	if !w.Go() {
		return 0
	}

	span := sim.VTimeInSec(0)
	for _, item := range snack.VisitOrder {
		if n := w.Count(item); n > 0 {
			span += sim.VTimeInSec(3*int(n)-1) * pushDuration
		}
	}

	return span
}

func printReport(
	engine sim.Engine,
	board *machine.Machine,
	orderTracer *tracing.TotalTimeTracer,
	busyTracers [snack.NumItems]*tracing.BusyTimeTracer,
) {
	fmt.Printf("\nSimulation done at t=%.6f s.\n\n", float64(engine.CurrentTime()))

	rx := board.Receiver
	fmt.Printf("Serial:    %d bytes received, %d framing errors, %d dropped\n",
		rx.BytesReceived(), rx.FramingErrors(), rx.BytesDropped())

	asm := board.Assembler
	fmt.Printf("Assembler: %d words latched, %d triggers fired, command 0x%04X\n",
		asm.CommandsLatched(), asm.TriggersFired(), uint16(board.Command()))

	seq := board.Sequencer
	fmt.Printf("Sequencer: %d orders started, %d completed, %d triggers lost, "+
		"%.3f s serving\n\n",
		seq.OrdersStarted(), seq.OrdersCompleted(), seq.LostTriggers(),
		float64(orderTracer.TotalTime()))

	for _, item := range snack.VisitOrder {
		ctrl := board.Controllers[item]
		fmt.Printf("%-7v %d dispensed in %d runs, busy %.3f s, %d pulses\n",
			item, ctrl.CyclesRun(), ctrl.DispensesCompleted(),
			float64(busyTracers[item].BusyTime()),
			board.Generators[item].PulsesEmitted())
	}
}
