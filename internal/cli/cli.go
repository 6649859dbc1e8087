// Package cli parses the command line, builds a config.Config and the
// filter containers it describes, and drives a pipeline.Pipeline run.
package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	flag "github.com/spf13/pflag"

	"github.com/kenorb-dev/bloomline/config"
	"github.com/kenorb-dev/bloomline/filecodec"
	"github.com/kenorb-dev/bloomline/filter"
	"github.com/kenorb-dev/bloomline/internal/bloomlog"
	"github.com/kenorb-dev/bloomline/internal/memstat"
	"github.com/kenorb-dev/bloomline/pipeline"
)

const usage = `bloomline - streaming line deduplication and set-membership filter

Usage: bloomline [flags]

Flags:
  --file PATH                             declare a file-backed container (repeatable)
  --bloom-capacity-and-size N,S           Bloom filter by capacity N and byte size S (repeatable)
  --bloom-capacity-and-error-rate N,R     Bloom filter by capacity N and false-positive rate R (repeatable)
  --xxh-capacity-and-size N,S             Xxh filter by capacity N and byte size S (repeatable)
  --write                                 insert lines into containers (without it, nothing is ever recorded)
  --inverse                               invert emission: emit previously-seen lines instead of new ones
  --silent                                suppress all stdout output
  --debug                                 enable debug logging and a memory-usage report on exit
  --help                                  show this help text

Reads lines from stdin, writes admitted lines to stdout, one per line.
`

// Run parses args, executes the pipeline over stdin/stdout, and returns
// the process exit code. Diagnostics go to stderr.
func Run(stdin io.Reader, stdout, stderr io.Writer, args []string) int {
	fs := flag.NewFlagSet("bloomline", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var files []string
	var bloomBySize []string
	var bloomByRate []string
	var xxhBySize []string
	var write, inverse, silent, debug bool

	fs.StringArrayVar(&files, "file", nil, "declare a file-backed container (repeatable)")
	fs.StringArrayVar(&bloomBySize, "bloom-capacity-and-size", nil, "N,S")
	fs.StringArrayVar(&bloomByRate, "bloom-capacity-and-error-rate", nil, "N,R")
	fs.StringArrayVar(&xxhBySize, "xxh-capacity-and-size", nil, "N,S")
	fs.BoolVar(&write, "write", false, "insert lines into containers")
	fs.BoolVar(&inverse, "inverse", false, "invert emission")
	fs.BoolVar(&silent, "silent", false, "suppress stdout output")
	fs.BoolVar(&debug, "debug", false, "enable debug logging and memory reporting")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			fmt.Fprint(stdout, usage)
			return 0
		}
		fmt.Fprintln(stderr, "bloomline: error:", err)
		return 1
	}

	logger := bloomlog.New(stderr, debug)

	specs, err := buildSpecs(files, bloomBySize, bloomByRate, xxhBySize)
	if err != nil {
		logger.Error("msg", "invalid configuration", "err", err)
		return 1
	}

	cfg, err := config.New(specs, write, inverse, silent, debug)
	if err != nil {
		logger.Error("msg", "invalid configuration", "err", err)
		return 1
	}

	containers, err := buildContainers(cfg)
	if err != nil {
		logger.Error("msg", "failed to build containers", "err", err)
		return 1
	}

	before := memstat.Take()

	p := pipeline.New(containers, cfg.WriteMode, cfg.Inverse, cfg.Silent, logger)
	if err := p.Run(stdin, stdout); err != nil {
		logger.Error("msg", "pipeline failed", "err", err)
		return 1
	}

	if cfg.Debug {
		after := memstat.Take()
		logger.Debug("msg", "memory usage", "delta", memstat.Delta(before, after))
	}

	return 0
}

// Main is the entry point cmd/bloomline/main.go calls.
func Main() int {
	return Run(os.Stdin, os.Stdout, os.Stderr, os.Args[1:])
}

// buildSpecs combines the repeatable construction flags into an ordered
// list of config.ContainerSpec, applying the pairing rule against
// files: one spec applies to every file (or to a single memory
// container when no files are given); otherwise the spec count must
// equal the file count, paired positionally in declaration order
// (bloom-by-size, then bloom-by-error-rate, then xxh-by-size).
func buildSpecs(files, bloomBySize, bloomByRate, xxhBySize []string) ([]config.ContainerSpec, error) {
	var constructions []filter.ConstructionDetails

	for _, raw := range bloomBySize {
		cd, err := parseCapacityAndSize(raw, filter.KindBloomCapacityAndSize)
		if err != nil {
			return nil, fmt.Errorf("--bloom-capacity-and-size %q: %w", raw, err)
		}
		constructions = append(constructions, cd)
	}
	for _, raw := range bloomByRate {
		cd, err := parseCapacityAndRate(raw)
		if err != nil {
			return nil, fmt.Errorf("--bloom-capacity-and-error-rate %q: %w", raw, err)
		}
		constructions = append(constructions, cd)
	}
	for _, raw := range xxhBySize {
		cd, err := parseCapacityAndSize(raw, filter.KindXxhCapacityAndSize)
		if err != nil {
			return nil, fmt.Errorf("--xxh-capacity-and-size %q: %w", raw, err)
		}
		constructions = append(constructions, cd)
	}

	if len(files) == 0 {
		if len(constructions) != 1 {
			return nil, fmt.Errorf("%w: exactly one construction flag is required when --file is not given, got %d",
				config.ErrInvalid, len(constructions))
		}
		return []config.ContainerSpec{{Construction: constructions[0]}}, nil
	}

	switch len(constructions) {
	case 1:
		specs := make([]config.ContainerSpec, len(files))
		for i, f := range files {
			specs[i] = config.ContainerSpec{Path: f, Construction: constructions[0]}
		}
		return specs, nil
	case len(files):
		specs := make([]config.ContainerSpec, len(files))
		for i, f := range files {
			specs[i] = config.ContainerSpec{Path: f, Construction: constructions[i]}
		}
		return specs, nil
	default:
		return nil, fmt.Errorf("%w: %d construction flags given for %d --file flags, want 1 or %d",
			config.ErrInvalid, len(constructions), len(files), len(files))
	}
}

func parseCapacityAndSize(raw string, kind filter.Kind) (filter.ConstructionDetails, error) {
	capacity, size, err := splitUint64Pair(raw)
	if err != nil {
		return filter.ConstructionDetails{}, err
	}
	return filter.ConstructionDetails{Kind: kind, Capacity: capacity, SizeBytes: size}, nil
}

func parseCapacityAndRate(raw string) (filter.ConstructionDetails, error) {
	parts := strings.SplitN(raw, ",", 2)
	if len(parts) != 2 {
		return filter.ConstructionDetails{}, fmt.Errorf("expected CAPACITY,RATE")
	}
	capacity, err := strconv.ParseUint(strings.TrimSpace(parts[0]), 10, 64)
	if err != nil {
		return filter.ConstructionDetails{}, fmt.Errorf("capacity: %w", err)
	}
	rate, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return filter.ConstructionDetails{}, fmt.Errorf("error_rate: %w", err)
	}
	return filter.ConstructionDetails{Kind: filter.KindBloomCapacityAndErrorRate, Capacity: capacity, ErrorRate: rate}, nil
}

func splitUint64Pair(raw string) (uint64, uint64, error) {
	parts := strings.SplitN(raw, ",", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("expected CAPACITY,SIZE")
	}
	a, err := strconv.ParseUint(strings.TrimSpace(parts[0]), 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("capacity: %w", err)
	}
	b, err := strconv.ParseUint(strings.TrimSpace(parts[1]), 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("size_bytes: %w", err)
	}
	return a, b, nil
}

// buildContainers constructs or loads every container described by cfg,
// in order.
func buildContainers(cfg config.Config) ([]filter.Container, error) {
	containers := make([]filter.Container, 0, len(cfg.Containers))
	for _, spec := range cfg.Containers {
		if !spec.IsFile() {
			c, err := filter.New("", spec.Construction)
			if err != nil {
				return nil, err
			}
			containers = append(containers, c)
			continue
		}

		if _, err := os.Stat(spec.Path); err == nil {
			c, err := filecodec.Read(spec.Path)
			if err != nil {
				return nil, fmt.Errorf("load %s: %w", spec.Path, err)
			}
			containers = append(containers, c)
			continue
		}

		c, err := filter.NewWithSource(spec.Path, spec.Construction, filter.SourceFile)
		if err != nil {
			return nil, fmt.Errorf("build %s: %w", spec.Path, err)
		}
		containers = append(containers, c)
	}
	return containers, nil
}
