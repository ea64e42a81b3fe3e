package profiling

import (
	"fmt"
	"os"
	"runtime"
	"runtime/pprof"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// CobraProfiler owns the --cpu-profile, --mem-profile and --timing flags.
type CobraProfiler struct {
	cpuProfileFile *os.File
	cpuProfilePath string
	memProfilePath string
	timing         bool
	log            logrus.FieldLogger
}

// NewCobraProfiler creates a profiler that reports failures to log.
func NewCobraProfiler(log logrus.FieldLogger) *CobraProfiler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &CobraProfiler{log: log}
}

// AddFlags registers the profiling flags as hidden persistent flags.
func (p *CobraProfiler) AddFlags(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()
	flags.StringVar(&p.cpuProfilePath, "cpu-profile", "", "Write CPU profile to file")
	flags.StringVar(&p.memProfilePath, "mem-profile", "", "Write memory profile to file")
	flags.BoolVar(&p.timing, "timing", false, "Print a timing tree to stderr on exit")
	for _, name := range []string{"cpu-profile", "mem-profile", "timing"} {
		_ = flags.MarkHidden(name)
	}
}

// PreRun starts CPU profiling and span timing. Use it as PersistentPreRunE.
func (p *CobraProfiler) PreRun(cmd *cobra.Command, _ []string) error {
	if p.timing {
		Enable()
	}
	if p.cpuProfilePath == "" {
		return nil
	}
	f, err := os.Create(p.cpuProfilePath)
	if err != nil {
		return fmt.Errorf("could not create CPU profile: %w", err)
	}
	if err := pprof.StartCPUProfile(f); err != nil {
		f.Close()
		return fmt.Errorf("could not start CPU profile: %w", err)
	}
	p.cpuProfileFile = f
	return nil
}

// PostRun flushes profiles and prints the timing tree. It never writes to
// stdout so hook output stays machine readable.
func (p *CobraProfiler) PostRun(cmd *cobra.Command, _ []string) {
	errOut := cmd.ErrOrStderr()

	if p.cpuProfileFile != nil {
		pprof.StopCPUProfile()
		p.cpuProfileFile.Close()
		p.cpuProfileFile = nil
		fmt.Fprintf(errOut, "CPU profile written to %s\n", p.cpuProfilePath)
	}

	if p.memProfilePath != "" {
		if err := writeHeapProfile(p.memProfilePath); err != nil {
			p.log.WithError(err).Warn("Could not write memory profile")
		} else {
			fmt.Fprintf(errOut, "Memory profile written to %s\n", p.memProfilePath)
		}
	}

	if p.timing {
		Summarize(errOut)
	}
}

func writeHeapProfile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	runtime.GC()
	return pprof.WriteHeapProfile(f)
}
