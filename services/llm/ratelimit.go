// Copyright (C) 2026 The agrovers Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See <https://www.gnu.org/licenses/> for the full license text.

package llm

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// RateLimited spaces calls to an inner client.
//
// # Description
//
// Hosted free tiers enforce a requests-per-minute quota. Waiting here keeps
// the assistant under that quota instead of collecting 429s. A caller whose
// context expires while waiting gets ErrQuotaExceeded, which the explainer
// turns into its quota apology.
//
// # Thread Safety
//
// Safe for concurrent use.
type RateLimited struct {
	inner   LLMClient
	limiter *rate.Limiter
}

var _ LLMClient = (*RateLimited)(nil)

// NewRateLimited allows perMinute calls per minute with a burst of one.
func NewRateLimited(inner LLMClient, perMinute int) *RateLimited {
	every := time.Minute / time.Duration(perMinute)
	return &RateLimited{
		inner:   inner,
		limiter: rate.NewLimiter(rate.Every(every), 1),
	}
}

// Generate implements the LLMClient interface
func (r *RateLimited) Generate(ctx context.Context, prompt string, params GenerationParams) (string, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("%w: %v", ErrQuotaExceeded, err)
	}
	return r.inner.Generate(ctx, prompt, params)
}
