// Command readsim is a thin wrapper around the engine package: it parses a
// reference FASTA file and a handful of run parameters, drives engine.Run,
// and reports what it produced. Writing the synthesized reads to real
// FASTQ/BAM/VCF files is left to a production host binary; this command
// uses sink.Recorder and prints a summary, demonstrating the OutputSink
// contract a real writer would implement.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/fragmentlab/readsim/engine"
	"github.com/fragmentlab/readsim/mutation"
	"github.com/fragmentlab/readsim/refindex"
	"github.com/fragmentlab/readsim/sink"
	"github.com/grailbio/base/log"
)

type flags struct {
	refPath string

	ploidy    int
	readLen   int
	coverage  float64
	pairedEnd bool
	fragMean  float64
	fragStd   float64

	mutationRate     float64
	disableMutations bool

	errorRate   float64
	rescaleQual bool

	nQualThreshold int
	forceCoverage  bool
	lowCovThresh   float64
	seed           int64
}

func parseFlags() flags {
	var f flags
	flag.StringVar(&f.refPath, "ref", "", "Path to the reference FASTA file (required).")
	flag.IntVar(&f.ploidy, "ploidy", 2, "Number of haplotype copies per contig.")
	flag.IntVar(&f.readLen, "read-len", 100, "Length of each simulated read.")
	flag.Float64Var(&f.coverage, "coverage", 10, "Target mean coverage depth.")
	flag.BoolVar(&f.pairedEnd, "paired", false, "Simulate paired-end reads.")
	flag.Float64Var(&f.fragMean, "frag-mean", 300, "Mean fragment length (paired-end only).")
	flag.Float64Var(&f.fragStd, "frag-std", 30, "Fragment length standard deviation (paired-end only).")
	flag.Float64Var(&f.mutationRate, "mutation-rate", 0.001, "Per-base random mutation rate.")
	flag.BoolVar(&f.disableMutations, "no-mutations", false, "Disable random mutation injection entirely.")
	flag.Float64Var(&f.errorRate, "error-rate", 0.01, "Target average per-base sequencing error rate (used only with -rescale-qual).")
	flag.BoolVar(&f.rescaleQual, "rescale-qual", false, "Scale per-base error probabilities to hit -error-rate; reported qualities are left unscaled.")
	flag.IntVar(&f.nQualThreshold, "n-qual-threshold", 0, "Mask bases at or below this quality to N (0 disables).")
	flag.BoolVar(&f.forceCoverage, "force-coverage", false, "Ignore GC-bias/target scaling and sample at flat -coverage.")
	flag.Float64Var(&f.lowCovThresh, "low-cov-threshold", 50, "Skip windows whose summed coverage falls below this.")
	flag.Int64Var(&f.seed, "seed", 1, "Random seed.")
	flag.Usage = usage
	flag.Parse()
	return f
}

func usage() {
	fmt.Fprintf(os.Stderr, "usage: readsim -ref reference.fa [flags]\n\n")
	flag.PrintDefaults()
}

func main() {
	f := parseFlags()
	if f.refPath == "" {
		usage()
		os.Exit(1)
	}

	fh, err := os.Open(f.refPath)
	if err != nil {
		log.Fatalf("readsim: opening reference: %v", err)
	}
	ref, err := refindex.ParseFasta(fh)
	if cerr := fh.Close(); cerr != nil {
		log.Printf("readsim: closing reference file: %v", cerr)
	}
	if err != nil {
		log.Fatalf("readsim: parsing reference: %v", err)
	}

	var mutModel *mutation.Model
	if !f.disableMutations {
		mutModel, err = mutation.DefaultModel()
		if err != nil {
			log.Fatalf("readsim: building mutation model: %v", err)
		}
		mutModel.Rate = f.mutationRate
	}

	rec := sink.NewRecorder()
	cfg := engine.Config{
		Reference:        ref,
		Sink:             rec,
		Seed:             f.seed,
		Ploidy:           f.ploidy,
		ReadLen:          f.readLen,
		Coverage:         f.coverage,
		PairedEnd:        f.pairedEnd,
		FragMean:         f.fragMean,
		FragStd:          f.fragStd,
		MutModel:         mutModel,
		DisableMutations: f.disableMutations,
		ErrorRate:        f.errorRate,
		RescaleQual:      f.rescaleQual,
		NQualThreshold:   f.nQualThreshold,
		ForceCoverage:    f.forceCoverage,
		LowCovThreshold:  f.lowCovThresh,
	}

	if err := cfg.Validate(); err != nil {
		log.Printf("readsim: %v", err)
		os.Exit(1)
	}
	if err := engine.Run(cfg); err != nil {
		log.Fatalf("readsim: run failed: %v", err)
	}

	fmt.Printf("contigs: %d\nreads: %d\nalignment records: %d\nvariants: %d\n",
		len(ref.Names()), len(rec.Fastq), len(rec.Bam), len(rec.Vcf))
}
