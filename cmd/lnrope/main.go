// Command lnrope loads a text file into a SumRope and answers line and
// offset queries against it from the command line.
package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/coreseekdev/lnrope/pkg/sumrope"
)

func main() {
	if len(os.Args) < 3 {
		usage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	path := os.Args[2]

	data, err := os.ReadFile(path)
	if err != nil {
		fatalf("reading %s: %v", path, err)
	}

	rope, err := sumrope.FromText(string(data), sumrope.Config{})
	if err != nil {
		fatalf("building rope: %v", err)
	}

	switch cmd {
	case "stats":
		runStats(rope)
	case "line":
		if len(os.Args) < 4 {
			fatalf("line requires a line index")
		}
		runLine(rope, os.Args[3])
	case "query":
		if len(os.Args) < 5 {
			fatalf("query requires a dimension (char|byte) and a value")
		}
		runQuery(rope, os.Args[3], os.Args[4])
	default:
		usage()
		os.Exit(1)
	}
}

func runStats(rope sumrope.SumRope) {
	total := rope.TotalSum()
	fmt.Printf("lines: %d\n", rope.Len())
	fmt.Printf("chars: %d\n", total.Char)
	fmt.Printf("bytes: %d\n", total.Byte)
}

func runLine(rope sumrope.SumRope, arg string) {
	idx, err := strconv.Atoi(arg)
	if err != nil {
		fatalf("invalid line index %q: %v", arg, err)
	}

	group, err := rope.Get(idx)
	if err != nil {
		fatalf("line %d: %v", idx, err)
	}

	prefix, err := rope.PrefixSum(idx)
	if err != nil {
		fatalf("line %d: %v", idx, err)
	}

	fmt.Printf("line %d: chars=%d bytes=%d starts_at=(char=%d,byte=%d)\n",
		idx, group.Sum().Char, group.Sum().Byte, prefix.Char, prefix.Byte)
}

func runQuery(rope sumrope.SumRope, dimArg, valueArg string) {
	var dim sumrope.Dimension
	switch dimArg {
	case "char":
		dim = sumrope.DimChar
	case "byte":
		dim = sumrope.DimByte
	default:
		fatalf("dimension must be char or byte, got %q", dimArg)
	}

	value, err := strconv.Atoi(valueArg)
	if err != nil {
		fatalf("invalid value %q: %v", valueArg, err)
	}

	result := rope.Query(value, dim)
	fmt.Printf("line=%d line_start=(char=%d,byte=%d) offset=(char=%d,byte=%d)\n",
		result.LineIndex, result.LineStart.Char, result.LineStart.Byte,
		result.Offset.Char, result.Offset.Byte)
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: lnrope <stats|line|query> <file> [args...]")
	fmt.Fprintln(os.Stderr, "  lnrope stats <file>")
	fmt.Fprintln(os.Stderr, "  lnrope line <file> <index>")
	fmt.Fprintln(os.Stderr, "  lnrope query <file> <char|byte> <value>")
}

func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "lnrope: "+format+"\n", args...)
	os.Exit(1)
}
