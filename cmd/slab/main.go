// Package main provides the slab CLI: a quick benchmark of the gather and
// scatter paths of the indexing engine.
package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/schollz/progressbar/v3"
	"k8s.io/klog/v2"

	"github.com/slab-ml/slab/index"
	"github.com/slab-ml/slab/internal/snapshot"
	"github.com/slab-ml/slab/tensor"
)

const version = "v0.1.0-dev"

func main() {
	klog.InitFlags(nil)
	rows := flag.Int("rows", 1<<20, "destination rows")
	cols := flag.Int("cols", 64, "elements per row")
	iters := flag.Int("iters", 10, "benchmark iterations")
	deterministic := flag.Bool("deterministic", false, "force fixed-order scatter")
	out := flag.String("out", "", "save the scatter destination to a .slab snapshot")
	flag.Parse()

	if flag.Arg(0) == "version" {
		fmt.Printf("slab %s\n", version)
		return
	}

	index.SetDeterministic(*deterministic)

	shape := tensor.Shape{*rows, *cols}
	bytes := uint64(shape.NumElements()) * 4
	fmt.Printf("slab index benchmark: %d x %d float32 (%s), deterministic=%v\n",
		*rows, *cols, humanize.Bytes(bytes), index.Deterministic())

	dest := tensor.Zeros(shape, tensor.Float32, tensor.CPU)
	src := tensor.Consec(tensor.Shape{*rows / 2, *cols})
	idx := tensor.Zeros(tensor.Shape{*rows / 2}, tensor.Int64, tensor.CPU)
	idxData := tensor.Flat[int64](idx)
	for i := range idxData {
		idxData[i] = rand.Int63n(int64(*rows)) //nolint:gosec // benchmark data
	}

	runBench("gather (index_select)", *iters, bytes/2, func() error {
		_, err := index.Select(dest, 0, idx)
		return err
	})
	runBench("scatter (index_add)", *iters, bytes/2, func() error {
		_, err := index.Add(dest, 0, idx, src, 1)
		return err
	})

	if *out != "" {
		meta := map[string]string{"slab_version": version}
		if err := snapshot.Save(*out, map[string]*tensor.RawTensor{"dest": dest}, meta); err != nil {
			klog.Errorf("snapshot save failed: %v", err)
			os.Exit(1)
		}
		fmt.Printf("saved destination tensor to %s\n", *out)
	}
}

func runBench(name string, iters int, bytesPerIter uint64, f func() error) {
	bar := progressbar.Default(int64(iters), name)
	start := time.Now()
	for i := 0; i < iters; i++ {
		if err := f(); err != nil {
			klog.Errorf("%s failed: %v", name, err)
			os.Exit(1)
		}
		_ = bar.Add(1)
	}
	elapsed := time.Since(start)
	perSec := float64(bytesPerIter) * float64(iters) / elapsed.Seconds()
	fmt.Printf("%s: %v total, %s/s\n", name, elapsed.Round(time.Millisecond), humanize.Bytes(uint64(perSec)))
}
