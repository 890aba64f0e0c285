// Command decompress is compress's inverse: it reads a range-coded stream
// produced with the same -order/-escape settings and reconstructs the
// original bytes.
//
//	go run ./decompress -order 4 -escape D sourcefile targetfile
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

	f1, err := os.Open(name)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error when reading input files\n")
		return
	}
	defer f1.Close()

	f2, err := os.Create(name2)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error when reading input files\n")
		return
	}
	defer f2.Close()

	if err := decompress(f2, f1, *maxOrder, method); err != nil {
		log.Fatalf("%v", err)
	}
}

// decompress mirrors compress's model setup exactly, decoding symbols
// until ppm.Sentinel is reached.
func decompress(out io.Writer, in io.Reader, maxOrder int, method ppm.EscapeMethod) error {
	eng := ppm.NewEngine()
	model, err := eng.CreateModel(ppm.CreateModelParams{AlphabetSize: 256, MaxOrder: maxOrder, EscapeMethod: method})
	if err != nil {
		return err
	}
	ctx, err := eng.CreateContext(model)
	if err != nil {
		return err
	}

	reader := bufio.NewReader(in)
	coder := ppm.NewRangeDecoder(reader)
	w := bufio.NewWriter(out)
	defer w.Flush()

	for {
		sym, err := eng.DecodeSymbol(ctx, coder)
		if err != nil {
			return err
		}
		if sym == ppm.Sentinel {
			break
		}
		if err := w.WriteByte(byte(sym)); err != nil {
			return err
		}
	}
	if coder.Err() != nil && coder.Err() != io.EOF {
		return coder.Err()
	}
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
