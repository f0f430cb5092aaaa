package index

import (
	"sync/atomic"

	"github.com/xyproto/env/v2"
	"k8s.io/klog/v2"
)

// deterministic is the process-wide scatter-determinism toggle. When set,
// scatter with duplicate coordinates always runs on a single goroutine in
// row-major visitation order, so repeated runs are bit-exact. When unset,
// overwrite scatter may run unordered in parallel; the value landing at a
// duplicated coordinate is then one of the writers', but which one is
// unspecified.
var deterministic atomic.Bool

func init() {
	if env.Bool("SLAB_DETERMINISTIC") {
		deterministic.Store(true)
	}
}

// SetDeterministic switches scatter between the fixed-order algorithm and
// the unordered parallel one.
func SetDeterministic(on bool) {
	deterministic.Store(on)
	klog.V(1).Infof("index: deterministic scatter set to %v", on)
}

// Deterministic reports whether fixed-order scatter is active.
func Deterministic() bool {
	return deterministic.Load()
}
