// Command build-prototypes turns recorded gesture session CSVs into a kNN
// prototype file. Each labelled run of samples is cut into overlapping
// windows matching the engine's geometry, and every window becomes one
// labelled feature vector.
package main

import (
	"encoding/csv"
	"encoding/json"
	"flag"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/banshee-data/motionkit/internal/motion"
	"github.com/banshee-data/motionkit/internal/motion/features"
	"github.com/banshee-data/motionkit/internal/motion/knn"
	"github.com/banshee-data/motionkit/internal/sampler"
)

var (
	dataDir = flag.String("data", "data", "directory of recorded session CSV files")
	outPath = flag.String("out", "config/prototypes.json", "output prototype JSON file")
)

func main() {
	flag.Parse()

	paths, err := filepath.Glob(filepath.Join(*dataDir, "*.csv"))
	if err != nil {
		log.Fatalf("failed to list session files: %v", err)
	}
	if len(paths) == 0 {
		log.Fatalf("no session files found in %s", *dataDir)
	}

	var protos []knn.Prototype
	for _, path := range paths {
		fileProtos, err := prototypesFromFile(path)
		if err != nil {
			log.Fatalf("failed to process %s: %v", path, err)
		}
		protos = append(protos, fileProtos...)
	}
	if len(protos) == 0 {
		log.Fatal("no complete windows found in session data")
	}

	out := struct {
		Prototypes []knn.Prototype `json:"prototypes"`
	}{Prototypes: protos}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		log.Fatalf("failed to encode prototypes: %v", err)
	}
	if err := os.WriteFile(*outPath, data, 0644); err != nil {
		log.Fatalf("failed to write %s: %v", *outPath, err)
	}
	log.Printf("wrote %d prototypes from %d files to %s", len(protos), len(paths), *outPath)
}

// prototypesFromFile windows each labelled run of samples in one session
// file. Rows are grouped by consecutive activity label; a run shorter than
// one window yields nothing.
func prototypesFromFile(path string) ([]knn.Prototype, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	var protos []knn.Prototype
	var run []motion.Sample
	var label motion.Label

	flush := func() {
		for start := 0; start+motion.WindowSize <= len(run); start += motion.WindowOffset {
			w := motion.Window(run[start : start+motion.WindowSize])
			protos = append(protos, knn.Prototype{
				Label:    label,
				Features: features.Vector(w),
			})
		}
		run = run[:0]
	}

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if len(record) < 2 {
			continue
		}
		rowLabel := motion.Label(record[1])
		s, err := sampler.SampleFromRecord(record)
		if err != nil {
			log.Printf("skipping row in %s: %v", path, err)
			continue
		}
		if rowLabel != label {
			flush()
			label = rowLabel
		}
		run = append(run, s)
	}
	flush()
	return protos, nil
}
