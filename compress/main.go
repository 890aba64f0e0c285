// Command compress adaptively PPM-codes a file into a range-coded stream.
//
//	go run ./compress -order 4 -escape D sourcefile targetfile
package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/tawa-ppm/ppm"
)

var (
	maxOrder = flag.Int("order", 4, "maximum PPM context order")
	escape   = flag.String("escape", "D", "escape method: A, C, or D")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] sourcefilename targetfilename\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	name, name2 := flag.Arg(0), flag.Arg(1)
	if name == "" || name2 == "" {
		flag.Usage()
		os.Exit(1)
	}

	method, err := parseEscapeMethod(*escape)
	if err != nil {
		log.Fatalf("%v", err)
	}

	in, err := os.Open(name)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error when reading input files\n")
		return
	}
	defer in.Close()

	out, err := os.Create(name2)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error when reading input files\n")
		return
	}
	defer out.Close()

	if err := compress(in, out, *maxOrder, method); err != nil {
		log.Fatalf("%v", err)
	}
}

// compress drives an adaptive byte-alphabet model over in, range-coding
// every byte and terminating the stream with ppm.Sentinel.
func compress(in io.Reader, out io.Writer, maxOrder int, method ppm.EscapeMethod) error {
	eng := ppm.NewEngine()
	model, err := eng.CreateModel(ppm.CreateModelParams{AlphabetSize: 256, MaxOrder: maxOrder, EscapeMethod: method})
	if err != nil {
		return err
	}
	ctx, err := eng.CreateContext(model)
	if err != nil {
		return err
	}

	w := bufio.NewWriter(out)
	coder := ppm.NewRangeEncoder(w)

	reader := bufio.NewReader(in)
	for {
		b, err := reader.ReadByte()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		if err := eng.EncodeSymbol(ctx, coder, ppm.Symbol(b)); err != nil {
			return err
		}
	}
	if err := eng.EncodeSymbol(ctx, coder, ppm.Sentinel); err != nil {
		return err
	}
	coder.Finish()
	return w.Flush()
}

func parseEscapeMethod(s string) (ppm.EscapeMethod, error) {
	switch s {
	case "A":
		return ppm.EscapeA, nil
	case "C":
		return ppm.EscapeC, nil
	case "D":
		return ppm.EscapeD, nil
	}
	return 0, fmt.Errorf("unknown escape method %q", s)
}
