package main

import (
	"context"
	"fmt"
	"log"

	"github.com/david0154/David-BCI"
)

func main() {
	flow, err := davidbci.Conf("../../data/config.yaml")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sink, decisions, closeDecisions := davidbci.NewChannelSink("fanout", 32)
	defer closeDecisions()

	go controlWorker("cursor", decisions)

	if err := flow.Run(ctx, davidbci.DecodeOutSink(sink)); err != nil && err != context.Canceled {
		log.Fatalf("session error: %v", err)
	}
}

func controlWorker(name string, decisions <-chan *davidbci.Decision) {
	for d := range decisions {
		fmt.Printf("[%s] window=%d label=%d confidence=%.2f\n", name, d.WindowSeq, d.Label, d.Confidence)
	}
}
