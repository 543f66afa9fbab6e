// Command nagisadump is a small smoke-test driver for the nagisa
// engine: it runs one of the built-in seed scenarios against the
// in-memory reference device/JIT backends and prints the result, or
// dumps the functional-IR text for one of the scenarios that builds a
// compiled function instead of a trace.
package main

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"

	"github.com/shiina-lab/nagisa/internal/fir"
	"github.com/shiina-lab/nagisa/internal/jit"
	"github.com/shiina-lab/nagisa/pkg/nagisa"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "usage: %s <scenario>\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "scenarios: trace, firdump\n")
		os.Exit(1)
	}

	scenario := os.Args[1]
	switch scenario {
	case "trace":
		runTraceScenario()
	case "firdump":
		runFIRDumpScenario()
	default:
		fmt.Fprintf(os.Stderr, "unknown scenario %q\n", scenario)
		os.Exit(1)
	}
}

// runTraceScenario mirrors spec §8's S1: a = 2.0; r = range(128);
// s = a + r; read(s).
func runTraceScenario() {
	ctx := nagisa.NewContext(nagisa.NewRefDevice(), jit.NewRefBackend())
	a := ctx.ConstFloat(2)
	r := ctx.Range(128)
	s := ctx.FAdd(a, r)

	dst := make([]byte, 128*4)
	if err := ctx.CopyToHost(s, dst); err != nil {
		fmt.Fprintf(os.Stderr, "copy_to_host failed: %v\n", err)
		os.Exit(1)
	}
	for i := 0; i < 128; i += 16 {
		bits := binary.LittleEndian.Uint32(dst[i*4:])
		fmt.Printf("lane %3d: %v\n", i, math.Float32frombits(bits))
	}
}

// runFIRDumpScenario builds the S4 functional-IR scenario
// (f(x) = select(x<0, 0, x*x) + 2) and prints its let-chain text.
func runFIRDumpScenario() {
	b := fir.NewBuilder("f")
	x := b.MakeParameter(fir.F32)
	zero := b.ConstF32(0)
	cond := b.FCmpLT(x, zero)
	squared := b.FMul(x, x)
	sel := b.Select(cond, zero, squared)
	two := b.ConstF32(2)
	result := b.FAdd(sel, two)
	fn := b.Finish(result)

	fmt.Print(fir.Dump(fn))
}
