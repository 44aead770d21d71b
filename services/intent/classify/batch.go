// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package classify

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// DefaultBatchConcurrency bounds ClassifyBatch when concurrency <= 0.
const DefaultBatchConcurrency = 8

// MaxBatchSize caps the number of texts in one batch.
const MaxBatchSize = 256

// ErrBatchTooLarge is returned for more than MaxBatchSize texts.
var ErrBatchTooLarge = errors.New("batch exceeds maximum size")

// ClassifyBatch classifies independent texts concurrently.
//
// Description:
//
//	Results keep input order. Each text is classified exactly as Classify
//	would; the only failure mode is context cancellation.
//
// Inputs:
//
//	ctx - Cancels outstanding work.
//	texts - Requests to classify. At most MaxBatchSize.
//	concurrency - Worker bound. <= 0 uses DefaultBatchConcurrency.
//
// Outputs:
//
//	[]Classification - One per input, same order.
//	error - Non-nil on oversize input or cancellation.
func (c *Classifier) ClassifyBatch(ctx context.Context, texts []string, concurrency int) ([]Classification, error) {
	if len(texts) > MaxBatchSize {
		return nil, fmt.Errorf("ClassifyBatch: %d texts: %w (%d)", len(texts), ErrBatchTooLarge, MaxBatchSize)
	}
	if concurrency <= 0 {
		concurrency = DefaultBatchConcurrency
	}

	results := make([]Classification, len(texts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i, text := range texts {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = c.Classify(text)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("ClassifyBatch: %w", err)
	}
	return results, nil
}
