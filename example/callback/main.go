package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/david0154/David-BCI/pkg/brainflow"
)

func main() {
	flow, err := brainflow.Conf("../../data/config.yaml")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	callback := func(d *brainflow.Decision) error {
		fmt.Printf("%s window=%d label=%d confidence=%.2f\n",
			d.At.Format(time.RFC3339Nano),
			d.WindowSeq,
			d.Label,
			d.Confidence,
		)
		return nil
	}

	if err := flow.Run(ctx, brainflow.DecodeOutCallback("stdout", callback)); err != nil && err != context.Canceled {
		log.Fatalf("session error: %v", err)
	}
}
