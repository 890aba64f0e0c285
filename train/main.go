// Command train builds an adaptive byte-alphabet PPM model from a file and
// writes it out in static form, ready to be loaded by decompress (or any
// other consumer of ppm.LoadModel) without replaying the training data.
//
//	go run ./train -order 4 -escape D corpus.txt model.ppm
package main

import (
	"bufio"
	"errors"
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
		fmt.Fprintf(os.Stderr, "usage: %s [flags] corpusfilename modelfilename\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	corpusName, modelName := flag.Arg(0), flag.Arg(1)
	if corpusName == "" || modelName == "" {
		flag.Usage()
		os.Exit(1)
	}

	method, err := parseEscapeMethod(*escape)
	if err != nil {
		log.Fatalf("%v", err)
	}

	eng := ppm.NewEngine()
	model, err := eng.CreateModel(ppm.CreateModelParams{AlphabetSize: 256, MaxOrder: *maxOrder, EscapeMethod: method})
	if err != nil {
		log.Fatalf("%v", err)
	}
	ctx, err := eng.CreateContext(model)
	if err != nil {
		log.Fatalf("%v", err)
	}

	if err := trainModel(eng, ctx, corpusName); err != nil {
		log.Fatalf("%v", err)
	}
	if err := eng.ReleaseContext(ctx); err != nil {
		log.Fatalf("%v", err)
	}

	out, err := os.Create(modelName)
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer out.Close()
	if err := eng.WriteModel(out, model, ppm.FormStatic, corpusName); err != nil {
		log.Fatalf("%v", err)
	}
}

// trainModel streams corpus's bytes through src the way the reference
// trainer streamed bits, one goroutine producing while main consumes and
// folds each symbol into ctx via UpdateContext.
func trainModel(eng *ppm.Engine, ctx ppm.ContextID, name string) error {
	f, err := os.Open(name)
	if err != nil {
		return err
	}
	defer f.Close()

	src := make(chan byte)
	errc := make(chan error, 1)
	go func() {
		defer close(src)
		r := bufio.NewReader(f)
		errc <- func() error {
			for {
				b, err := r.ReadByte()
				if err != nil {
					return err
				}
				src <- b
			}
		}()
	}()

	for b := range src {
		if err := eng.UpdateContext(ctx, ppm.Symbol(b)); err != nil {
			return err
		}
	}
	if err := <-errc; err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
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
