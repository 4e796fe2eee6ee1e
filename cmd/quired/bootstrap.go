package main

import (
	"time"

	"quire/internal/config"
	"quire/internal/processing"
	"quire/internal/queue"
)

// buildDispatcher wires an HTTP processor for every kind that has an endpoint
// configured. Kinds without an endpoint stay unregistered and records for them
// fail with a dispatch error rather than sitting in the queue forever.
func buildDispatcher(cfg *config.Config) *processing.Dispatcher {
	dispatcher := processing.NewDispatcher()
	if cfg == nil {
		return dispatcher
	}

	timeout := time.Duration(cfg.Processors.RequestTimeout) * time.Second
	endpoints := map[queue.Kind]string{
		queue.KindTextExtraction: cfg.Processors.TextExtractionURL,
		queue.KindClassification: cfg.Processors.ClassificationURL,
		queue.KindSummarization:  cfg.Processors.SummarizationURL,
	}
	for kind, endpoint := range endpoints {
		if endpoint == "" {
			continue
		}
		dispatcher.Register(kind, processing.NewHTTPProcessor(endpoint, kind,
			processing.WithTimeout(timeout)))
	}
	return dispatcher
}
