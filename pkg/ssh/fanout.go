// Copyright (C) 2023, Lux Partners Limited, All rights reserved.
// See the file LICENSE for licensing terms.
package ssh

import (
	"context"

	"github.com/luxfi/hydra/pkg/models"
	"golang.org/x/sync/errgroup"
)

// RunAll runs cmd on every address with at most parallelism hosts in flight.
// Failures are recorded per host; RunAll itself only fails if ctx does.
func RunAll(ctx context.Context, exec Executor, addresses []string, cmd Command, parallelism int) (*models.NodeResults, error) {
	results := &models.NodeResults{}
	g, gctx := errgroup.WithContext(ctx)
	if parallelism > 0 {
		g.SetLimit(parallelism)
	}
	for i, addr := range addresses {
		g.Go(func() error {
			res, err := exec.Run(gctx, addr, cmd)
			output := res.Stdout
			if output == "" {
				output = res.Stderr
			}
			results.AddResult(i, addr, output, err)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, ctx.Err()
}
