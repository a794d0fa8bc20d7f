// Package pkg provides the libraries behind inkgrid, which turns stroke
// drawings into raster vectors for machine learning.
//
// # Overview
//
// The pkg directory is organized into three areas:
//
//  1. Core: [sketch] (drawing model), [raster] (normalization, point and
//     line rasterizers, max-pool downsampling, flattening) and [perturb]
//     (random shift and scale)
//  2. Infrastructure: [io] (ndjson records, JSON vectors), [dataset]
//     (sampling and splitting), [cache], [store] (output sinks) and
//     [observability]
//  3. Orchestration: [pipeline] (options, conversion runner)
//
// # Architecture
//
// The data flow through inkgrid:
//
//	ndjson record
//	     ↓
//	[io] / [sketch] (decode and validate)
//	     ↓
//	[perturb] (optional augmentation)
//	     ↓
//	[raster] (normalize → rasterize → downsample → flatten)
//	     ↓
//	[store] (JSON files or MongoDB)
//
// # Quick Start
//
//	runner := pipeline.NewRunner(nil, nil, logger)
//	opts := pipeline.DefaultOptions()
//	opts.Mode = pipeline.ModeLine
//	opts.Sizes = []int{28, 14}
//
//	f, _ := os.Open("cat.ndjson")
//	result, err := runner.Convert(ctx, f, opts)
//	if err != nil {
//	    return err
//	}
//	err = runner.Write(ctx, store.NewFileSink("out"), "cat", "all", result, opts)
package pkg
