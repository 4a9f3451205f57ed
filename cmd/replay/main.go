package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"nanotrade/internal/ml"
	"nanotrade/internal/replay"
)

func main() {
	stimulusPath := flag.String("stimulus", "", "path to a .memh stimulus file (required)")
	goldenPath := flag.String("golden", "", "path to a golden expectation file (optional)")
	romDir := flag.String("rom", "", "weight ROM directory (optional, zero weights if unset)")
	flag.Parse()

	if *stimulusPath == "" {
		flag.Usage()
		os.Exit(1)
	}

	weights := &ml.Weights{}
	if *romDir != "" {
		w, err := ml.LoadWeights(*romDir)
		if err != nil {
			log.Fatalf("FATAL: load weight ROM: %v", err)
		}
		weights = w
	}

	f, err := os.Open(*stimulusPath)
	if err != nil {
		log.Fatalf("FATAL: open stimulus: %v", err)
	}
	events, err := replay.ParseStimulus(f)
	f.Close()
	if err != nil {
		log.Fatalf("FATAL: %v", err)
	}

	report := replay.Run(weights, events)
	fmt.Printf("Replayed %d ticks\n", report.Ticks)
	fmt.Printf("  Fired:         %v\n", report.FiredSorted())
	fmt.Printf("  Interventions: %d\n", report.Interventions)

	if *goldenPath == "" {
		return
	}

	g, err := os.Open(*goldenPath)
	if err != nil {
		log.Fatalf("FATAL: open golden: %v", err)
	}
	expected, err := replay.ParseGolden(g)
	g.Close()
	if err != nil {
		log.Fatalf("FATAL: %v", err)
	}

	pass, missing, falseAlarms := replay.Check(expected, report)
	fmt.Printf("  Expected:      %v\n", expected)
	if pass {
		fmt.Println("PASS")
		return
	}
	if len(missing) > 0 {
		fmt.Printf("FAIL: missed %v\n", missing)
	}
	if len(falseAlarms) > 0 {
		fmt.Printf("FAIL: false alarms %v\n", falseAlarms)
	}
	os.Exit(1)
}
