package uow

import "context"

type ctxKey struct{}

func ContextWithUnitOfWork(ctx context.Context, unit UnitOfWork) context.Context {
	return context.WithValue(ctx, ctxKey{}, unit)
}

func FromContext(ctx context.Context) (UnitOfWork, bool) {
	unit, ok := ctx.Value(ctxKey{}).(UnitOfWork)
	return unit, ok && unit != nil
}

// Start begins a unit and returns the context handlers must use with it.
func Start(ctx context.Context, factory UoWFactory, opts TxOptions) (UnitOfWork, context.Context, error) {
	if factory == nil {
		return nil, ctx, ErrUnitOfWorkMissing
	}
	unit, err := factory.Begin(ctx, opts)
	if err != nil {
		return nil, ctx, err
	}
	execCtx := ctx
	if injector, ok := unit.(contextInjector); ok {
		execCtx = injector.InjectContext(ctx)
	}
	return unit, ContextWithUnitOfWork(execCtx, unit), nil
}

// Acquire reuses the unit already in ctx or starts one. release is a no-op
// for a borrowed unit and a rollback for an owned one, so callers that
// commit an owned unit must check owned first.
func Acquire(ctx context.Context, factory UoWFactory, opts TxOptions) (unit UnitOfWork, execCtx context.Context, owned bool, release func(), err error) {
	if existing, ok := FromContext(ctx); ok {
		return existing, ctx, false, func() {}, nil
	}
	unit, execCtx, err = Start(ctx, factory, opts)
	if err != nil {
		return nil, ctx, false, func() {}, err
	}
	return unit, execCtx, true, func() { _ = unit.Rollback(execCtx) }, nil
}

// Run executes fn inside its own unit and commits when fn succeeds.
func Run(ctx context.Context, factory UoWFactory, fn func(ctx context.Context, unit UnitOfWork) error) error {
	return RunWith(ctx, factory, TxOptions{}, fn)
}

func RunWith(ctx context.Context, factory UoWFactory, opts TxOptions, fn func(ctx context.Context, unit UnitOfWork) error) error {
	unit, execCtx, err := Start(ctx, factory, opts)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = unit.Rollback(execCtx)
		}
	}()
	if err := fn(execCtx, unit); err != nil {
		return err
	}
	if err := unit.Commit(execCtx); err != nil {
		return err
	}
	committed = true
	return nil
}

// Within runs fn in the unit already in ctx, or in a fresh unit that commits
// when fn succeeds.
func Within(ctx context.Context, factory UoWFactory, opts TxOptions, fn func(ctx context.Context, unit UnitOfWork) error) error {
	if unit, ok := FromContext(ctx); ok {
		return fn(ctx, unit)
	}
	return RunWith(ctx, factory, opts, fn)
}
