package llm

import (
	"context"
	"fmt"
)

// Strategy turns a compiled request into SQL. Implementations own their
// retry and timeout policy.
type Strategy interface {
	Generate(ctx context.Context, req Request) (Response, error)
}

type StrategyFunc func(ctx context.Context, req Request) (Response, error)

func (f StrategyFunc) Generate(ctx context.Context, req Request) (Response, error) {
	return f(ctx, req)
}

// Registry is the fixed set of strategies known at startup.
type Registry struct {
	strategies map[SQLGenType]Strategy
}

func NewRegistry(strategies map[SQLGenType]Strategy) *Registry {
	copied := make(map[SQLGenType]Strategy, len(strategies))
	for genType, strategy := range strategies {
		if strategy != nil {
			copied[genType] = strategy
		}
	}
	return &Registry{strategies: copied}
}

func (r *Registry) Get(genType SQLGenType) (Strategy, error) {
	strategy, ok := r.strategies[genType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrStrategyNotRegistered, genType)
	}
	return strategy, nil
}
