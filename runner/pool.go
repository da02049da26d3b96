//
// Tencent is pleased to support the open source community by making finbot-eval available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// finbot-eval is licensed under the Apache License Version 2.0.
//
//

package runner

import (
	"context"
	"sync"

	"github.com/panjf2000/ants/v2"

	"trpc.group/trpc-go/finbot-eval/evalset"
	"trpc.group/trpc-go/finbot-eval/evaluator"
	"trpc.group/trpc-go/finbot-eval/log"
)

// evalParam carries one scoring task into the pool. Instances are recycled
// through evalParamPool; submit fills them, the pool func resets them.
type evalParam struct {
	ctx  context.Context
	eval *evaluator.Evaluator
	agg  *aggregator
	tc   *evalset.TestCase
	resp evaluator.Response
}

func (p *evalParam) reset() {
	p.ctx = nil
	p.eval = nil
	p.agg = nil
	p.tc = nil
	p.resp = evaluator.Response{}
}

var evalParamPool = &sync.Pool{
	New: func() any { return new(evalParam) },
}

// evalPool scores responses off the transport workers so a slow evaluation
// never blocks the next ask.
type evalPool struct {
	pool *ants.PoolWithFunc
	wg   sync.WaitGroup
}

func newEvalPool(size int) (*evalPool, error) {
	ep := &evalPool{}
	pool, err := ants.NewPoolWithFunc(size, func(args any) {
		param, ok := args.(*evalParam)
		if !ok {
			panic("eval pool args type error")
		}
		defer func() {
			param.reset()
			evalParamPool.Put(param)
			ep.wg.Done()
		}()
		param.agg.append(param.ctx, *param.eval.Evaluate(param.tc, param.resp))
	})
	if err != nil {
		return nil, err
	}
	ep.pool = pool
	return ep, nil
}

// submit queues one scoring task. On pool failure the task runs inline so
// the result is never lost.
func (p *evalPool) submit(ctx context.Context, eval *evaluator.Evaluator,
	agg *aggregator, tc *evalset.TestCase, resp evaluator.Response) {
	param := evalParamPool.Get().(*evalParam)
	param.ctx = ctx
	param.eval = eval
	param.agg = agg
	param.tc = tc
	param.resp = resp
	p.wg.Add(1)
	if err := p.pool.Invoke(param); err != nil {
		log.Warnf("eval pool invoke: %v, scoring inline", err)
		agg.append(ctx, *eval.Evaluate(tc, resp))
		param.reset()
		evalParamPool.Put(param)
		p.wg.Done()
	}
}

// wait blocks until every submitted task has been scored and persisted.
func (p *evalPool) wait() {
	p.wg.Wait()
}

func (p *evalPool) release() {
	p.wg.Wait()
	p.pool.Release()
}
