// cupartctl trains and evaluates CU partition classifiers.
//
// Usage:
//
//	cupartctl train   --config=<run.yaml> [flags]
//	cupartctl infer   --models=<dir> --order=TTV,NS,QT,BTH,BTV [flags]
//	cupartctl report plot --compact=<file> --out=<dir>
//	cupartctl runs    [--limit=N]
//	cupartctl history --run-id=<id>
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := newRootCmd()
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
