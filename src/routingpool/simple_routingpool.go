// 实现了一个最简单的协程池，自行指定worker
// 任一worker返回错误时，其余worker的ctx会被取消
package routingpool

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"
)

var ErrStarted = errors.New("routing pool already started")

type SimpleRoutingPool struct {
	group *errgroup.Group
	ctx   context.Context

	size     uint32
	workerFn func(ctx context.Context, id uint32) error
}

func NewSimpleRoutingPool(ctx context.Context, size uint32, workerFn func(ctx context.Context, id uint32) error) RoutingPool {
	if size == 0 {
		size = 1
	}
	return &SimpleRoutingPool{
		ctx:      ctx,
		size:     size,
		workerFn: workerFn,
	}
}

func (s *SimpleRoutingPool) Start() error {
	if s.group != nil {
		return ErrStarted
	}
	group, ctx := errgroup.WithContext(s.ctx)
	s.group = group

	var i uint32
	for ; i != s.size; i++ {
		id := i
		group.Go(func() error {
			return s.workerFn(ctx, id)
		})
	}
	return nil
}

func (s *SimpleRoutingPool) Stop() error {
	if s.group == nil {
		return nil
	}
	return s.group.Wait()
}
